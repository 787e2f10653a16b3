package hpack

import "fmt"

//go:generate go run ../../tools/huffmanTable -codes ../../tools/huffmanTable/huffman_codes.txt -out huffman_table.go

const (
	huffmanAccepted = 1 << iota
	huffmanSymbol
	huffmanFail
)

// huffmanTransition is one edge of the decoding automaton. Each edge consumes
// four bits, which is never enough to finish two symbols since the shortest
// code is five bits long.
type huffmanTransition struct {
	state uint8
	flags uint8
	sym   byte
}

// HuffmanEncodedLen returns the number of octets AppendHuffmanString would
// append for s.
func HuffmanEncodedLen(s string) int {
	var bits uint64
	for i := 0; i < len(s); i++ {
		bits += uint64(huffmanCodeLen[s[i]])
	}
	return int((bits + 7) / 8)
}

// AppendHuffmanString appends the Huffman encoding of s to dst. The final
// octet is padded with the leading bits of the EOS code.
func AppendHuffmanString(dst []byte, s string) []byte {
	var acc uint64
	var n uint
	for i := 0; i < len(s); i++ {
		c := s[i]
		acc = acc<<huffmanCodeLen[c] | uint64(huffmanCodes[c])
		n += uint(huffmanCodeLen[c])
		for n >= 8 {
			n -= 8
			dst = append(dst, byte(acc>>n))
		}
	}
	if n > 0 {
		pad := 8 - n
		dst = append(dst, byte(acc<<pad)|byte(1<<pad-1))
	}
	return dst
}

// HuffmanDecoder walks the decoding automaton one nibble at a time. Its state
// survives between calls so a string may be fed in pieces. The zero value is
// ready to use.
type HuffmanDecoder struct {
	state   uint8
	partial bool
}

// Decode appends the symbols found in p to dst. When final is set the input
// must end on a symbol boundary followed by at most seven bits of EOS padding.
func (d *HuffmanDecoder) Decode(dst, p []byte, final bool) ([]byte, error) {
	for _, b := range p {
		t := huffmanDecodeTable[d.state][b>>4]
		if t.flags&huffmanFail != 0 {
			return dst, ErrMalformedHuffman
		}
		if t.flags&huffmanSymbol != 0 {
			dst = append(dst, t.sym)
		}

		t = huffmanDecodeTable[t.state][b&0x0f]
		if t.flags&huffmanFail != 0 {
			return dst, ErrMalformedHuffman
		}
		if t.flags&huffmanSymbol != 0 {
			dst = append(dst, t.sym)
		}
		d.state = t.state
		d.partial = t.flags&huffmanAccepted == 0
	}

	if final && d.partial {
		return dst, fmt.Errorf("%w: invalid padding", ErrMalformedHuffman)
	}
	return dst, nil
}

func (d *HuffmanDecoder) Reset() {
	*d = HuffmanDecoder{}
}

// HuffmanDecode decodes a complete Huffman string and appends it to dst.
func HuffmanDecode(dst, p []byte) ([]byte, error) {
	var d HuffmanDecoder
	return d.Decode(dst, p, true)
}
