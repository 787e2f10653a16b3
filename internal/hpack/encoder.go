package hpack

import (
	"fmt"

	"hpackCodec/internal/logging"
)

const DefaultMaxDynamicTableSize = 4096

// DefaultUnindexedNames are header names whose values rarely repeat, so adding
// them to the dynamic table only pushes out entries that would be reused.
var DefaultUnindexedNames = []string{
	":path",
	"age",
	"content-length",
	"etag",
	"if-modified-since",
	"if-none-match",
	"location",
	"set-cookie",
}

// Encoder compresses header blocks for one direction of one connection.
// Blocks must be encoded in the order they are sent; an Encoder is not safe
// for concurrent use. After any error the Encoder is unusable.
type Encoder struct {
	table *DynamicTable

	// maxSizeLimit is the largest table size the peer's decoder accepts.
	maxSizeLimit uint32
	// minSize is the smallest table size set since the last size update
	// was written.
	minSize    uint32
	sizeUpdate bool

	unindexed   map[string]struct{}
	outputLimit int

	buf     []byte
	scratch []byte
	inBlock bool

	err    error
	logger logging.Logger
}

type EncoderOption func(*Encoder)

// WithEncoderTableSize sets both the dynamic table size and the limit the
// peer is assumed to accept.
func WithEncoderTableSize(size uint32) EncoderOption {
	return func(enc *Encoder) {
		enc.maxSizeLimit = size
		if size != enc.table.MaxSize() {
			enc.SetMaxDynamicTableSize(size)
		}
	}
}

// WithOutputLimit caps the size of one encoded header block. Zero means no
// limit.
func WithOutputLimit(n int) EncoderOption {
	return func(enc *Encoder) {
		enc.outputLimit = n
	}
}

// WithUnindexedNames replaces the list of names that are never added to the
// dynamic table.
func WithUnindexedNames(names ...string) EncoderOption {
	return func(enc *Encoder) {
		enc.unindexed = make(map[string]struct{}, len(names))
		for _, name := range names {
			enc.unindexed[name] = struct{}{}
		}
	}
}

func WithEncoderLogger(logger logging.Logger) EncoderOption {
	return func(enc *Encoder) {
		enc.logger = logger
	}
}

func NewEncoder(opts ...EncoderOption) *Encoder {
	enc := &Encoder{
		table:        NewDynamicTable(DefaultMaxDynamicTableSize),
		maxSizeLimit: DefaultMaxDynamicTableSize,
		minSize:      DefaultMaxDynamicTableSize,
		logger:       logging.NopLogger{},
	}
	WithUnindexedNames(DefaultUnindexedNames...)(enc)

	for _, opt := range opts {
		opt(enc)
	}

	return enc
}

// SetMaxDynamicTableSize changes the table size used by the encoder. The
// value is clipped to the peer's limit. The change is announced at the start
// of the next header block.
func (enc *Encoder) SetMaxDynamicTableSize(size uint32) {
	if size > enc.maxSizeLimit {
		size = enc.maxSizeLimit
	}
	if !enc.sizeUpdate || size < enc.minSize {
		enc.minSize = size
	}
	enc.sizeUpdate = true
	enc.table.SetMaxSize(size)
}

// SetMaxDynamicTableSizeLimit records the largest table size the peer's
// decoder accepts, usually taken from SETTINGS_HEADER_TABLE_SIZE.
func (enc *Encoder) SetMaxDynamicTableSizeLimit(limit uint32) {
	enc.maxSizeLimit = limit
	if enc.table.MaxSize() > limit {
		enc.SetMaxDynamicTableSize(limit)
	}
}

// DynamicTable exposes the encoder's table for inspection. Callers must not
// modify it.
func (enc *Encoder) DynamicTable() *DynamicTable {
	return enc.table
}

func (enc *Encoder) Poisoned() bool {
	return enc.err != nil
}

// WriteField appends the representation of f to the current header block.
func (enc *Encoder) WriteField(f HeaderField) error {
	if enc.err != nil {
		return fmt.Errorf("%w: %w", ErrPoisoned, enc.err)
	}
	if !enc.inBlock {
		if err := enc.beginBlock(); err != nil {
			return enc.fail(err)
		}
	}

	name, value := f.HeaderFieldName, f.HeaderFieldValue
	nameHash, valueHash := hashString(name), hashString(value)
	index, nameIndex := enc.search(name, value, nameHash, valueHash)

	s := enc.scratch[:0]
	indexing := false
	switch {
	case index != 0:
		s = appendInteger(s, 0x80, 7, index)
	case f.NeverIndexed:
		s = appendLiteral(s, 0x10, 4, nameIndex, f)
	case enc.shouldIndex(f):
		s = appendLiteral(s, 0x40, 6, nameIndex, f)
		indexing = true
	default:
		s = appendLiteral(s, 0x00, 4, nameIndex, f)
	}
	enc.scratch = s

	if err := enc.emit(s); err != nil {
		return enc.fail(err)
	}

	if indexing {
		if nameIndex != 0 {
			// Share the name already held by the table.
			e, _ := indexedEntry(enc.table, nameIndex)
			name = e.name
		}
		enc.table.insert(tableEntry{name: name, value: value, nameHash: nameHash, valueHash: valueHash})
	}
	return nil
}

// EndBlock finishes the current header block and returns it. A block with
// no fields still carries a pending table size update.
func (enc *Encoder) EndBlock() ([]byte, error) {
	if enc.err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPoisoned, enc.err)
	}
	if !enc.inBlock {
		if err := enc.beginBlock(); err != nil {
			return nil, enc.fail(err)
		}
	}

	block := append([]byte(nil), enc.buf...)
	enc.buf = enc.buf[:0]
	enc.inBlock = false
	return block, nil
}

// Encode encodes fields as one complete header block.
func (enc *Encoder) Encode(fields []HeaderField) ([]byte, error) {
	for _, f := range fields {
		if err := enc.WriteField(f); err != nil {
			return nil, err
		}
	}
	return enc.EndBlock()
}

func (enc *Encoder) beginBlock() error {
	enc.inBlock = true
	if !enc.sizeUpdate {
		return nil
	}

	maxSize := enc.table.MaxSize()
	s := enc.scratch[:0]
	if enc.minSize < maxSize {
		s = appendInteger(s, 0x20, 5, uint64(enc.minSize))
	}
	s = appendInteger(s, 0x20, 5, uint64(maxSize))
	enc.scratch = s

	if err := enc.emit(s); err != nil {
		return err
	}
	enc.logger.Log(logging.LogLevelDebug, "hpack encoder: table size update min=%d max=%d", enc.minSize, maxSize)
	enc.sizeUpdate = false
	enc.minSize = maxSize
	return nil
}

// search looks for f in the dynamic table first and then in the static
// table. It returns the index of a full match, or failing that the index of
// an entry with the same name; zero means not found.
func (enc *Encoder) search(name, value string, nameHash, valueHash uint32) (index, nameIndex uint64) {
	full, nameOnly := enc.table.search(name, value, nameHash, valueHash)
	if full >= 0 {
		return uint64(full) + STATIC_TABLE_SIZE + 1, 0
	}

	staticFull, staticName := staticLookup(name, value, nameHash, valueHash)
	if staticFull != 0 {
		return staticFull, 0
	}
	if staticName != 0 {
		return 0, staticName
	}
	if nameOnly >= 0 {
		return 0, uint64(nameOnly) + STATIC_TABLE_SIZE + 1
	}
	return 0, 0
}

func (enc *Encoder) shouldIndex(f HeaderField) bool {
	if uint64(f.Size())*4 > uint64(enc.table.MaxSize())*3 {
		return false
	}
	_, denied := enc.unindexed[f.HeaderFieldName]
	return !denied
}

func (enc *Encoder) emit(p []byte) error {
	if enc.outputLimit > 0 && len(enc.buf)+len(p) > enc.outputLimit {
		return fmt.Errorf("%w: block would reach %d octets, limit %d",
			ErrOutputCapacityExceeded, len(enc.buf)+len(p), enc.outputLimit)
	}
	enc.buf = append(enc.buf, p...)
	return nil
}

func (enc *Encoder) fail(err error) error {
	enc.err = err
	enc.logger.Log(logging.LogLevelError, "hpack encoder: %v", err)
	return err
}

func appendLiteral(dst []byte, flags byte, prefixBits uint8, nameIndex uint64, f HeaderField) []byte {
	dst = appendInteger(dst, flags, prefixBits, nameIndex)
	if nameIndex == 0 {
		dst = appendString(dst, f.HeaderFieldName)
	}
	return appendString(dst, f.HeaderFieldValue)
}

// appendString writes s Huffman coded when that is strictly shorter.
func appendString(dst []byte, s string) []byte {
	if n := HuffmanEncodedLen(s); n < len(s) {
		dst = appendInteger(dst, 0x80, 7, uint64(n))
		return AppendHuffmanString(dst, s)
	}
	dst = appendInteger(dst, 0, 7, uint64(len(s)))
	return append(dst, s...)
}
