package hpack

import (
	"errors"
	"fmt"
	"io"

	"hpackCodec/internal/logging"
)

type SignalKind int

const (
	// NeedMoreInput means all input was consumed in the middle of a block.
	NeedMoreInput SignalKind = iota
	// Emitted carries one decoded header field.
	Emitted
	// BlockComplete means the final chunk ended on a representation boundary.
	BlockComplete
)

func (k SignalKind) String() string {
	switch k {
	case NeedMoreInput:
		return "NeedMoreInput"
	case Emitted:
		return "Emitted"
	case BlockComplete:
		return "BlockComplete"
	}
	return fmt.Sprintf("SignalKind(%d)", int(k))
}

type Signal struct {
	Kind  SignalKind
	Field HeaderField
}

// Interner returns a string with the contents of b, possibly one it handed
// out before.
type Interner interface {
	Intern(b []byte) string
}

type decodeState uint8

const (
	stateOpcode decodeState = iota
	stateIndexed
	stateSizeUpdate
	stateNameIndex
	stateNameLength
	stateName
	stateValueLength
	stateValue
)

// Decoder decompresses header blocks for one direction of one connection.
// Input may be split at any octet; everything needed to resume lives in the
// Decoder. It is not safe for concurrent use and is unusable after an error.
type Decoder struct {
	table           *DynamicTable
	maxSizeLimit    uint32
	maxStringLength int
	interner        Interner

	state        decodeState
	prefixBits   uint8
	indexing     bool
	neverIndexed bool
	sawField     bool

	integer   IntegerDecoder
	huffman   bool
	huffDec   HuffmanDecoder
	remaining uint64
	buf       []byte
	name      string

	err    error
	logger logging.Logger
}

type DecoderOption func(*Decoder)

// WithDecoderTableSize sets the table size and the largest size a table size
// update may ask for.
func WithDecoderTableSize(size uint32) DecoderOption {
	return func(dec *Decoder) {
		dec.maxSizeLimit = size
		dec.table.SetMaxSize(size)
	}
}

// WithMaxStringLength bounds the length of each decoded name and value,
// before and after Huffman decoding. Zero means no limit.
func WithMaxStringLength(n int) DecoderOption {
	return func(dec *Decoder) {
		dec.maxStringLength = n
	}
}

func WithInterner(in Interner) DecoderOption {
	return func(dec *Decoder) {
		dec.interner = in
	}
}

func WithDecoderLogger(logger logging.Logger) DecoderOption {
	return func(dec *Decoder) {
		dec.logger = logger
		dec.table.evicted = func(f HeaderField) {
			logger.Log(logging.LogLevelDebug, "hpack decoder: evicted %s", f)
		}
	}
}

func NewDecoder(opts ...DecoderOption) *Decoder {
	dec := &Decoder{
		table:        NewDynamicTable(DefaultMaxDynamicTableSize),
		maxSizeLimit: DefaultMaxDynamicTableSize,
		logger:       logging.NopLogger{},
	}

	for _, opt := range opts {
		opt(dec)
	}

	return dec
}

// SetMaxDynamicTableSizeLimit changes the largest size a table size update
// may ask for, usually after our SETTINGS_HEADER_TABLE_SIZE was acknowledged.
func (dec *Decoder) SetMaxDynamicTableSizeLimit(limit uint32) {
	dec.maxSizeLimit = limit
}

// DynamicTable exposes the decoder's table for inspection. Callers must not
// modify it.
func (dec *Decoder) DynamicTable() *DynamicTable {
	return dec.table
}

func (dec *Decoder) Poisoned() bool {
	return dec.err != nil
}

// DecodeChunk consumes input until one header field is decoded or p runs
// out. It returns the number of octets used; the caller passes the rest of p
// back in on the next call. final marks the last chunk of a header block.
func (dec *Decoder) DecodeChunk(p []byte, final bool) (int, Signal, error) {
	if dec.err != nil {
		return 0, Signal{}, fmt.Errorf("%w: %w", ErrPoisoned, dec.err)
	}

	n := 0
	for {
		switch dec.state {
		case stateOpcode:
			if n == len(p) {
				if final {
					dec.sawField = false
					return n, Signal{Kind: BlockComplete}, nil
				}
				return n, Signal{Kind: NeedMoreInput}, nil
			}
			dec.startRepresentation(p[n])

		case stateIndexed:
			m, done, err := dec.integer.Decode(p[n:], 7)
			n += m
			if err != nil {
				return n, Signal{}, dec.fail(err)
			}
			if !done {
				return dec.needMore(n, final)
			}
			e, err := indexedEntry(dec.table, dec.integer.Value())
			if err != nil {
				return n, Signal{}, dec.fail(err)
			}
			dec.state = stateOpcode
			dec.sawField = true
			return n, Signal{Kind: Emitted, Field: e.field()}, nil

		case stateSizeUpdate:
			m, done, err := dec.integer.Decode(p[n:], 5)
			n += m
			if err != nil {
				return n, Signal{}, dec.fail(err)
			}
			if !done {
				return dec.needMore(n, final)
			}
			if err := dec.updateTableSize(dec.integer.Value()); err != nil {
				return n, Signal{}, dec.fail(err)
			}
			dec.state = stateOpcode

		case stateNameIndex:
			m, done, err := dec.integer.Decode(p[n:], dec.prefixBits)
			n += m
			if err != nil {
				return n, Signal{}, dec.fail(err)
			}
			if !done {
				return dec.needMore(n, final)
			}
			index := dec.integer.Value()
			if index == 0 {
				dec.state = stateNameLength
				continue
			}
			e, err := indexedEntry(dec.table, index)
			if err != nil {
				return n, Signal{}, dec.fail(err)
			}
			dec.name = e.name
			dec.state = stateValueLength

		case stateNameLength, stateValueLength:
			if n == len(p) {
				return dec.needMore(n, final)
			}
			if !dec.integer.started {
				dec.huffman = p[n]&0x80 != 0
			}
			m, done, err := dec.integer.Decode(p[n:], 7)
			n += m
			if err != nil {
				return n, Signal{}, dec.fail(err)
			}
			if !done {
				return dec.needMore(n, final)
			}
			length := dec.integer.Value()
			if dec.maxStringLength > 0 && length > uint64(dec.maxStringLength) {
				return n, Signal{}, dec.fail(fmt.Errorf("%w: %d octets, limit %d", ErrStringTooLong, length, dec.maxStringLength))
			}
			dec.remaining = length
			dec.buf = dec.buf[:0]
			dec.huffDec.Reset()
			dec.state++

		case stateName, stateValue:
			chunk := p[n:]
			if uint64(len(chunk)) > dec.remaining {
				chunk = chunk[:dec.remaining]
			}
			n += len(chunk)
			dec.remaining -= uint64(len(chunk))

			if dec.huffman {
				var err error
				dec.buf, err = dec.huffDec.Decode(dec.buf, chunk, dec.remaining == 0)
				if err != nil {
					return n, Signal{}, dec.fail(err)
				}
			} else {
				dec.buf = append(dec.buf, chunk...)
			}
			if dec.maxStringLength > 0 && len(dec.buf) > dec.maxStringLength {
				return n, Signal{}, dec.fail(fmt.Errorf("%w: more than %d octets", ErrStringTooLong, dec.maxStringLength))
			}
			if dec.remaining > 0 {
				return dec.needMore(n, final)
			}

			s := dec.makeString(dec.buf)
			if dec.state == stateName {
				dec.name = s
				dec.state = stateValueLength
				continue
			}
			return n, Signal{Kind: Emitted, Field: dec.commit(s)}, nil
		}
	}
}

// DecodeFull decodes p as one complete header block.
func (dec *Decoder) DecodeFull(p []byte) ([]HeaderField, error) {
	var fields []HeaderField
	for {
		n, sig, err := dec.DecodeChunk(p, true)
		if err != nil {
			return fields, err
		}
		p = p[n:]

		switch sig.Kind {
		case Emitted:
			fields = append(fields, sig.Field)
		case BlockComplete:
			return fields, nil
		default:
			return fields, dec.fail(ErrTruncatedBlock)
		}
	}
}

// Decode reads one header block from r until EOF, feeding the decoder as
// data arrives.
func (dec *Decoder) Decode(r io.Reader) ([]HeaderField, error) {
	var fields []HeaderField
	buf := make([]byte, 512)

	for {
		m, readErr := r.Read(buf)
		chunk := buf[:m]
		for len(chunk) > 0 {
			n, sig, err := dec.DecodeChunk(chunk, false)
			if err != nil {
				return fields, err
			}
			chunk = chunk[n:]
			if sig.Kind == Emitted {
				fields = append(fields, sig.Field)
			}
		}

		if errors.Is(readErr, io.EOF) {
			break
		} else if readErr != nil {
			return fields, fmt.Errorf("decoder error: %w", readErr)
		}
	}

	_, sig, err := dec.DecodeChunk(nil, true)
	if err != nil {
		return fields, err
	}
	if sig.Kind != BlockComplete {
		return fields, dec.fail(ErrTruncatedBlock)
	}
	return fields, nil
}

func (dec *Decoder) startRepresentation(b byte) {
	dec.indexing = false
	dec.neverIndexed = false

	switch {
	case b&0x80 != 0:
		dec.state = stateIndexed
	case b&0xc0 == 0x40:
		dec.state = stateNameIndex
		dec.prefixBits = 6
		dec.indexing = true
	case b&0xe0 == 0x20:
		dec.state = stateSizeUpdate
	case b&0xf0 == 0x10:
		dec.state = stateNameIndex
		dec.prefixBits = 4
		dec.neverIndexed = true
	default:
		dec.state = stateNameIndex
		dec.prefixBits = 4
	}
}

func (dec *Decoder) updateTableSize(size uint64) error {
	if dec.sawField {
		return ErrMisplacedSizeUpdate
	}
	if size > uint64(dec.maxSizeLimit) {
		return fmt.Errorf("%w: %d, limit %d", ErrTableSizeExceeded, size, dec.maxSizeLimit)
	}
	dec.table.SetMaxSize(uint32(size))
	dec.logger.Log(logging.LogLevelDebug, "hpack decoder: table size update to %d", size)
	return nil
}

func (dec *Decoder) commit(value string) HeaderField {
	f := HeaderField{
		HeaderFieldName:  dec.name,
		HeaderFieldValue: value,
		NeverIndexed:     dec.neverIndexed,
	}
	if dec.indexing {
		dec.table.Insert(f.HeaderFieldName, f.HeaderFieldValue)
	}

	dec.name = ""
	dec.state = stateOpcode
	dec.sawField = true
	return f
}

func (dec *Decoder) makeString(b []byte) string {
	if dec.interner != nil {
		return dec.interner.Intern(b)
	}
	return string(b)
}

func (dec *Decoder) needMore(n int, final bool) (int, Signal, error) {
	if final {
		return n, Signal{}, dec.fail(ErrTruncatedBlock)
	}
	return n, Signal{Kind: NeedMoreInput}, nil
}

func (dec *Decoder) fail(err error) error {
	dec.err = err
	dec.logger.Log(logging.LogLevelError, "hpack decoder: %v", err)
	return err
}
