package hpack

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeStaticMatch(t *testing.T) {
	enc := NewEncoder()

	block, err := enc.Encode([]HeaderField{field(":method", "GET")})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x82}, block)
	assert.Equal(t, 0, enc.DynamicTable().Len())
}

// Requests with Huffman coding, RFC 7541 C.4.
func TestEncodeRequestSequence(t *testing.T) {
	enc := NewEncoder()

	blocks := []struct {
		fields  []HeaderField
		encoded string
	}{
		{
			[]HeaderField{field(":method", "GET"), field(":scheme", "http"), field(":path", "/"), field(":authority", "www.example.com")},
			"828684418cf1e3c2e5f23a6ba0ab90f4ff",
		},
		{
			[]HeaderField{field(":method", "GET"), field(":scheme", "http"), field(":path", "/"), field(":authority", "www.example.com"), field("cache-control", "no-cache")},
			"828684be5886a8eb10649cbf",
		},
		{
			[]HeaderField{field(":method", "GET"), field(":scheme", "https"), field(":path", "/index.html"), field(":authority", "www.example.com"), field("custom-key", "custom-value")},
			"828785bf408825a849e95ba97d7f8925a849e95bb8e8b4bf",
		},
	}

	for _, block := range blocks {
		encoded, err := enc.Encode(block.fields)
		require.NoError(t, err)
		assert.Equal(t, block.encoded, hex.EncodeToString(encoded))
	}
	assert.Equal(t, uint32(164), enc.DynamicTable().Size())
}

// Responses with Huffman coding and eviction, RFC 7541 C.6. The table size is
// announced first, and "307" is sent raw since Huffman coding does not make
// it shorter.
func TestEncodeResponseSequence(t *testing.T) {
	enc := NewEncoder(WithEncoderTableSize(256), WithUnindexedNames())
	date := "Mon, 21 Oct 2013 20:13:21 GMT"

	encoded, err := enc.Encode([]HeaderField{
		field(":status", "302"),
		field("cache-control", "private"),
		field("date", date),
		field("location", "https://www.example.com"),
	})
	require.NoError(t, err)
	assert.Equal(t, "3fe101"+"488264025885aec3771a4b6196d07abe941054d444a8200595040b8166e082a62d1bff6e919d29ad171863c78f0b97c8e9ae82ae43d3",
		hex.EncodeToString(encoded))

	encoded, err = enc.Encode([]HeaderField{
		field(":status", "307"),
		field("cache-control", "private"),
		field("date", date),
		field("location", "https://www.example.com"),
	})
	require.NoError(t, err)
	assert.Equal(t, "4803333037c1c0bf", hex.EncodeToString(encoded))

	encoded, err = enc.Encode([]HeaderField{
		field(":status", "200"),
		field("cache-control", "private"),
		field("date", "Mon, 21 Oct 2013 20:13:22 GMT"),
		field("location", "https://www.example.com"),
		field("content-encoding", "gzip"),
		field("set-cookie", "foo=ASDJKHQKBZXOQWEOPIUAXQWEOIU; max-age=3600; version=1"),
	})
	require.NoError(t, err)
	assert.Equal(t, "88c16196d07abe941054d444a8200595040b8166e084a62d1bffc05a839bd9ab77ad94e7821dd7f2e6c7b335dfdfcd5b3960d5af27087f3672c1ab270fb5291f9587316065c003ed4ee5b1063d5007",
		hex.EncodeToString(encoded))
	assert.Equal(t, uint32(215), enc.DynamicTable().Size())
}

func TestEncodeSensitiveNeverIndexed(t *testing.T) {
	enc := NewEncoder()
	secret := HeaderField{HeaderFieldName: "authorization", HeaderFieldValue: "Bearer abc", NeverIndexed: true}

	for i := 0; i < 5; i++ {
		block, err := enc.Encode([]HeaderField{secret})
		require.NoError(t, err)
		// 0001xxxx with the static name index of authorization.
		assert.Equal(t, byte(0x1f), block[0])
		assert.Equal(t, byte(23-15), block[1])
		assert.Equal(t, 0, enc.DynamicTable().Len())
		assert.Equal(t, uint32(0), enc.DynamicTable().Size())
	}

	block, err := enc.Encode([]HeaderField{{HeaderFieldName: "x-secret", HeaderFieldValue: "abc", NeverIndexed: true}})
	require.NoError(t, err)
	assert.Equal(t, byte(0x10), block[0])
	assert.Equal(t, 0, enc.DynamicTable().Len())
}

func TestEncodeUnindexedNames(t *testing.T) {
	enc := NewEncoder()

	block, err := enc.Encode([]HeaderField{field(":path", "/search?q=1")})
	require.NoError(t, err)
	// Literal without indexing, static name index 4.
	assert.Equal(t, byte(0x04), block[0])
	assert.Equal(t, 0, enc.DynamicTable().Len())

	enc = NewEncoder(WithUnindexedNames("x-request-id"))
	_, err = enc.Encode([]HeaderField{field(":path", "/search?q=1"), field("x-request-id", "42")})
	require.NoError(t, err)
	assert.Equal(t, []HeaderField{field(":path", "/search?q=1")}, enc.DynamicTable().Entries())
}

func TestEncodeLargeFieldNotIndexed(t *testing.T) {
	enc := NewEncoder()

	// 3/4 of 4096 is 3072; this field needs 3073 octets of table space.
	value := strings.Repeat("v", 3072-32-len("x-big")+1)
	_, err := enc.Encode([]HeaderField{field("x-big", value)})
	require.NoError(t, err)
	assert.Equal(t, 0, enc.DynamicTable().Len())

	_, err = enc.Encode([]HeaderField{field("x-big", value[1:])})
	require.NoError(t, err)
	assert.Equal(t, 1, enc.DynamicTable().Len())
}

func TestEncodeReusesDynamicName(t *testing.T) {
	enc := NewEncoder()

	_, err := enc.Encode([]HeaderField{field("x-trace", "1")})
	require.NoError(t, err)

	block, err := enc.Encode([]HeaderField{field("x-trace", "2")})
	require.NoError(t, err)
	// Literal with incremental indexing, name from dynamic index 62.
	assert.Equal(t, byte(0x40|62), block[0])
	assert.Equal(t, 2, enc.DynamicTable().Len())

	block, err = enc.Encode([]HeaderField{field("x-trace", "1")})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x80 | 63}, block)
}

func TestEncodeTableSizeUpdates(t *testing.T) {
	enc := NewEncoder()

	enc.SetMaxDynamicTableSize(100)
	block, err := enc.Encode([]HeaderField{field(":method", "GET")})
	require.NoError(t, err)
	assert.Equal(t, "3f4582", hex.EncodeToString(block))

	// Lowered and raised again between blocks: both bounds are sent.
	enc.SetMaxDynamicTableSize(0)
	enc.SetMaxDynamicTableSize(4096)
	block, err = enc.EndBlock()
	require.NoError(t, err)
	assert.Equal(t, "203fe11f", hex.EncodeToString(block))

	block, err = enc.Encode([]HeaderField{field(":method", "GET")})
	require.NoError(t, err)
	assert.Equal(t, "82", hex.EncodeToString(block))
}

func TestEncodeSizeLimitFromPeer(t *testing.T) {
	enc := NewEncoder()
	_, err := enc.Encode([]HeaderField{field("x-a", "1"), field("x-b", "2")})
	require.NoError(t, err)
	require.Equal(t, 2, enc.DynamicTable().Len())

	enc.SetMaxDynamicTableSizeLimit(40)
	assert.Equal(t, uint32(40), enc.DynamicTable().MaxSize())
	assert.Equal(t, 1, enc.DynamicTable().Len())

	enc.SetMaxDynamicTableSize(8192)
	assert.Equal(t, uint32(40), enc.DynamicTable().MaxSize())

	block, err := enc.EndBlock()
	require.NoError(t, err)
	assert.Equal(t, "3f09", hex.EncodeToString(block))
}

func TestEncodeOutputLimitPoisons(t *testing.T) {
	enc := NewEncoder(WithOutputLimit(8))

	_, err := enc.Encode([]HeaderField{field("x-long-header-name", "with a long value")})
	assert.ErrorIs(t, err, ErrOutputCapacityExceeded)
	assert.True(t, enc.Poisoned())
	assert.Equal(t, 0, enc.DynamicTable().Len())

	_, err = enc.Encode([]HeaderField{field(":method", "GET")})
	assert.ErrorIs(t, err, ErrPoisoned)
	assert.ErrorIs(t, err, ErrOutputCapacityExceeded)
}

func TestEncodeEmptyValues(t *testing.T) {
	enc := NewEncoder()

	block, err := enc.Encode([]HeaderField{field("x-empty", ""), field("", "")})
	require.NoError(t, err)

	fields, err := NewDecoder().DecodeFull(block)
	require.NoError(t, err)
	assert.Equal(t, []HeaderField{field("x-empty", ""), field("", "")}, fields)
}
