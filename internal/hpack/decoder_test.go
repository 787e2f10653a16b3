package hpack

import (
	"bytes"
	"encoding/hex"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hpackCodec/internal/cache"
)

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

func field(name, value string) HeaderField {
	return HeaderField{HeaderFieldName: name, HeaderFieldValue: value}
}

func TestDecodeIndexedStatic(t *testing.T) {
	dec := NewDecoder()

	n, sig, err := dec.DecodeChunk([]byte{0x82}, true)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, Emitted, sig.Kind)
	assert.Equal(t, field(":method", "GET"), sig.Field)

	n, sig, err = dec.DecodeChunk(nil, true)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, BlockComplete, sig.Kind)
}

// Requests without Huffman coding, RFC 7541 C.3.
func TestDecodeRequestSequence(t *testing.T) {
	dec := NewDecoder()

	blocks := []struct {
		encoded string
		fields  []HeaderField
	}{
		{
			"828684410f7777772e6578616d706c652e636f6d",
			[]HeaderField{field(":method", "GET"), field(":scheme", "http"), field(":path", "/"), field(":authority", "www.example.com")},
		},
		{
			"828684be58086e6f2d6361636865",
			[]HeaderField{field(":method", "GET"), field(":scheme", "http"), field(":path", "/"), field(":authority", "www.example.com"), field("cache-control", "no-cache")},
		},
		{
			"828785bf400a637573746f6d2d6b65790c637573746f6d2d76616c7565",
			[]HeaderField{field(":method", "GET"), field(":scheme", "https"), field(":path", "/index.html"), field(":authority", "www.example.com"), field("custom-key", "custom-value")},
		},
	}

	for _, block := range blocks {
		fields, err := dec.DecodeFull(mustHex(t, block.encoded))
		require.NoError(t, err)
		assert.Equal(t, block.fields, fields)
	}

	assert.Equal(t, []HeaderField{
		field("custom-key", "custom-value"),
		field("cache-control", "no-cache"),
		field(":authority", "www.example.com"),
	}, dec.DynamicTable().Entries())
	assert.Equal(t, uint32(164), dec.DynamicTable().Size())
}

// Responses with Huffman coding and eviction, RFC 7541 C.6.
func TestDecodeResponseSequenceWithEviction(t *testing.T) {
	dec := NewDecoder(WithDecoderTableSize(256))
	date := "Mon, 21 Oct 2013 20:13:21 GMT"

	fields, err := dec.DecodeFull(mustHex(t, "488264025885aec3771a4b6196d07abe941054d444a8200595040b8166e082a62d1bff6e919d29ad171863c78f0b97c8e9ae82ae43d3"))
	require.NoError(t, err)
	assert.Equal(t, []HeaderField{
		field(":status", "302"),
		field("cache-control", "private"),
		field("date", date),
		field("location", "https://www.example.com"),
	}, fields)
	assert.Equal(t, uint32(222), dec.DynamicTable().Size())

	fields, err = dec.DecodeFull(mustHex(t, "4883640effc1c0bf"))
	require.NoError(t, err)
	assert.Equal(t, []HeaderField{
		field(":status", "307"),
		field("cache-control", "private"),
		field("date", date),
		field("location", "https://www.example.com"),
	}, fields)
	assert.Equal(t, []HeaderField{
		field(":status", "307"),
		field("location", "https://www.example.com"),
		field("date", date),
		field("cache-control", "private"),
	}, dec.DynamicTable().Entries())

	fields, err = dec.DecodeFull(mustHex(t, "88c16196d07abe941054d444a8200595040b8166e084a62d1bffc05a839bd9ab77ad94e7821dd7f2e6c7b335dfdfcd5b3960d5af27087f3672c1ab270fb5291f9587316065c003ed4ee5b1063d5007"))
	require.NoError(t, err)
	assert.Equal(t, []HeaderField{
		field(":status", "200"),
		field("cache-control", "private"),
		field("date", "Mon, 21 Oct 2013 20:13:22 GMT"),
		field("location", "https://www.example.com"),
		field("content-encoding", "gzip"),
		field("set-cookie", "foo=ASDJKHQKBZXOQWEOPIUAXQWEOIU; max-age=3600; version=1"),
	}, fields)
	assert.Equal(t, 3, dec.DynamicTable().Len())
	assert.Equal(t, uint32(215), dec.DynamicTable().Size())
}

func TestDecodeOneOctetAtATime(t *testing.T) {
	encoded := mustHex(t, "828785bf408825a849e95ba97d7f8925a849e95bb8e8b4bf")

	whole := NewDecoder()
	whole.DynamicTable().Insert(":authority", "www.example.com")
	whole.DynamicTable().Insert("cache-control", "no-cache")
	expected, err := whole.DecodeFull(encoded)
	require.NoError(t, err)

	split := NewDecoder()
	split.DynamicTable().Insert(":authority", "www.example.com")
	split.DynamicTable().Insert("cache-control", "no-cache")
	var fields []HeaderField
	for i := 0; i < len(encoded); i++ {
		chunk := encoded[i : i+1]
		for {
			n, sig, err := split.DecodeChunk(chunk, false)
			require.NoError(t, err)
			chunk = chunk[n:]
			if sig.Kind == Emitted {
				fields = append(fields, sig.Field)
				continue
			}
			assert.Equal(t, NeedMoreInput, sig.Kind)
			break
		}
	}
	_, sig, err := split.DecodeChunk(nil, true)
	require.NoError(t, err)
	assert.Equal(t, BlockComplete, sig.Kind)

	assert.Equal(t, expected, fields)
	assert.Equal(t, whole.DynamicTable().Entries(), split.DynamicTable().Entries())
}

func TestDecodeFromReader(t *testing.T) {
	encoded := mustHex(t, "828684410f7777772e6578616d706c652e636f6d")

	dec := NewDecoder()
	fields, err := dec.Decode(iotest.OneByteReader(bytes.NewReader(encoded)))
	require.NoError(t, err)
	assert.Len(t, fields, 4)
	assert.Equal(t, field(":authority", "www.example.com"), fields[3])
}

func TestDecodeNeverIndexed(t *testing.T) {
	dec := NewDecoder()

	// Literal never indexed, new name "password", value "secret".
	fields, err := dec.DecodeFull(mustHex(t, "100870617373776f726406736563726574"))
	require.NoError(t, err)
	require.Len(t, fields, 1)
	assert.Equal(t, HeaderField{HeaderFieldName: "password", HeaderFieldValue: "secret", NeverIndexed: true}, fields[0])
	assert.Equal(t, 0, dec.DynamicTable().Len())
}

func TestDecodeWithoutIndexingIndexedName(t *testing.T) {
	dec := NewDecoder()

	// Literal without indexing, name from static index 4.
	fields, err := dec.DecodeFull(mustHex(t, "040c2f73616d706c652f70617468"))
	require.NoError(t, err)
	assert.Equal(t, []HeaderField{field(":path", "/sample/path")}, fields)
	assert.Equal(t, 0, dec.DynamicTable().Len())
}

func TestDecodeSizeUpdateToZeroInvalidatesIndices(t *testing.T) {
	dec := NewDecoder()

	_, err := dec.DecodeFull(mustHex(t, "400a637573746f6d2d6b65790d637573746f6d2d686561646572"))
	require.NoError(t, err)
	require.Equal(t, 1, dec.DynamicTable().Len())

	fields, err := dec.DecodeFull([]byte{0xbe})
	require.NoError(t, err)
	assert.Equal(t, []HeaderField{field("custom-key", "custom-header")}, fields)

	_, err = dec.DecodeFull([]byte{0x20, 0xbe})
	assert.ErrorIs(t, err, ErrInvalidIndex)
	assert.Equal(t, 0, dec.DynamicTable().Len())
	assert.True(t, dec.Poisoned())
}

func TestDecodeSizeUpdates(t *testing.T) {
	dec := NewDecoder()

	// Two updates back to back, then a field.
	fields, err := dec.DecodeFull(mustHex(t, "203f4582"))
	require.NoError(t, err)
	assert.Equal(t, []HeaderField{field(":method", "GET")}, fields)
	assert.Equal(t, uint32(100), dec.DynamicTable().MaxSize())

	// A block made only of an update is fine too.
	fields, err = dec.DecodeFull(mustHex(t, "3fe11f"))
	require.NoError(t, err)
	assert.Empty(t, fields)
	assert.Equal(t, uint32(4096), dec.DynamicTable().MaxSize())
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name    string
		encoded string
		err     error
	}{
		{"index zero", "80", ErrInvalidIndex},
		{"index beyond tables", "be", ErrInvalidIndex},
		{"name index beyond tables", "7e0161", ErrInvalidIndex},
		{"size update above limit", "3fe21f", ErrTableSizeExceeded},
		{"size update after field", "8220", ErrMisplacedSizeUpdate},
		{"truncated opcode integer", "ff", ErrTruncatedBlock},
		{"truncated name", "400a6375", ErrTruncatedBlock},
		{"missing value", "400161", ErrTruncatedBlock},
		{"index overflow", "ffffffffff0f", ErrIntegerOverflow},
		{"string length overflow", "007fffffffff0f", ErrIntegerOverflow},
		{"bad huffman padding", "0081ff0161", ErrMalformedHuffman},
		{"huffman eos", "000161" + "84ffffffff", ErrMalformedHuffman},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dec := NewDecoder()
			_, err := dec.DecodeFull(mustHex(t, tt.encoded))
			assert.ErrorIs(t, err, tt.err)
			assert.True(t, dec.Poisoned())

			_, _, err = dec.DecodeChunk([]byte{0x82}, true)
			assert.ErrorIs(t, err, ErrPoisoned)
		})
	}
}

func TestDecodeStringLimit(t *testing.T) {
	dec := NewDecoder(WithMaxStringLength(4))

	_, err := dec.DecodeFull(mustHex(t, "000161" + "0568656c6c6f"))
	assert.ErrorIs(t, err, ErrStringTooLong)

	// Huffman strings are checked after expansion as well.
	dec = NewDecoder(WithMaxStringLength(8))
	value := AppendHuffmanString(nil, "0000000000")
	require.Less(t, len(value), 8)
	encoded := append(mustHex(t, "000161"), byte(0x80|len(value)))
	_, err = dec.DecodeFull(append(encoded, value...))
	assert.ErrorIs(t, err, ErrStringTooLong)
}

func TestDecodeWithInterner(t *testing.T) {
	interner := cache.NewInterner(16, 64)
	first := NewDecoder(WithInterner(interner))
	second := NewDecoder(WithInterner(interner))

	encoded := mustHex(t, "400a637573746f6d2d6b65790d637573746f6d2d686561646572")
	a, err := first.DecodeFull(encoded)
	require.NoError(t, err)
	b, err := second.DecodeFull(encoded)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	hits, _ := interner.Stats()
	assert.Equal(t, uint64(2), hits)
}
