package hpack

import "fmt"

// MaxIntegerValue is the largest prefixed integer the decoder accepts.
const MaxIntegerValue = 1<<32 - 1

// AppendInteger appends n encoded with a prefixBits-bit prefix. The bits of the
// first octet above the prefix are left zero.
func AppendInteger(dst []byte, prefixBits uint8, n uint64) []byte {
	return appendInteger(dst, 0, prefixBits, n)
}

func appendInteger(dst []byte, flags byte, prefixBits uint8, n uint64) []byte {
	mask := uint64(1)<<prefixBits - 1
	if n < mask {
		return append(dst, flags|byte(n))
	}

	dst = append(dst, flags|byte(mask))
	n -= mask
	for n >= 0x80 {
		dst = append(dst, byte(n&0x7f)|0x80)
		n >>= 7
	}
	return append(dst, byte(n))
}

// IntegerDecoder decodes one prefixed integer that may arrive split across
// several calls. The zero value is ready to use.
type IntegerDecoder struct {
	value   uint64
	shift   uint
	started bool
}

// Decode consumes octets from p. It reports how many octets were used and
// whether the integer is complete; when it is not, the partial value is kept
// for the next call.
func (d *IntegerDecoder) Decode(p []byte, prefixBits uint8) (int, bool, error) {
	n := 0
	if !d.started {
		if len(p) == 0 {
			return 0, false, nil
		}
		mask := byte(1)<<prefixBits - 1
		v := p[0] & mask
		n = 1
		if v < mask {
			d.value = uint64(v)
			return n, true, nil
		}
		d.value = uint64(mask)
		d.shift = 0
		d.started = true
	}

	for ; n < len(p); n++ {
		b := p[n]
		if d.shift >= 35 {
			return n + 1, false, fmt.Errorf("%w: more than %d", ErrIntegerOverflow, uint64(MaxIntegerValue))
		}
		d.value += uint64(b&0x7f) << d.shift
		if d.value > MaxIntegerValue {
			return n + 1, false, fmt.Errorf("%w: more than %d", ErrIntegerOverflow, uint64(MaxIntegerValue))
		}
		d.shift += 7
		if b&0x80 == 0 {
			d.started = false
			return n + 1, true, nil
		}
	}
	return n, false, nil
}

// Value returns the integer completed by the last successful Decode.
func (d *IntegerDecoder) Value() uint64 {
	return d.value
}

func (d *IntegerDecoder) Reset() {
	*d = IntegerDecoder{}
}
