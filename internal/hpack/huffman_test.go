package hpack

import (
	"encoding/hex"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var huffmanExamples = []struct {
	plain   string
	encoded string
}{
	{"www.example.com", "f1e3c2e5f23a6ba0ab90f4ff"},
	{"no-cache", "a8eb10649cbf"},
	{"custom-key", "25a849e95ba97d7f"},
	{"custom-value", "25a849e95bb8e8b4bf"},
	{"302", "6402"},
	{"private", "aec3771a4b"},
	{"Mon, 21 Oct 2013 20:13:21 GMT", "d07abe941054d444a8200595040b8166e082a62d1bff"},
	{"https://www.example.com", "9d29ad171863c78f0b97c8e9ae82ae43d3"},
	{"", ""},
}

func TestHuffmanEncodeExamples(t *testing.T) {
	for _, tt := range huffmanExamples {
		got := AppendHuffmanString(nil, tt.plain)
		assert.Equal(t, tt.encoded, hex.EncodeToString(got), tt.plain)
		assert.Equal(t, len(got), HuffmanEncodedLen(tt.plain), tt.plain)
	}
}

func TestHuffmanDecodeExamples(t *testing.T) {
	for _, tt := range huffmanExamples {
		encoded, err := hex.DecodeString(tt.encoded)
		require.NoError(t, err)

		got, err := HuffmanDecode(nil, encoded)
		require.NoError(t, err, tt.plain)
		assert.Equal(t, tt.plain, string(got))
	}
}

func TestHuffmanRoundTripAllOctets(t *testing.T) {
	all := make([]byte, 256)
	for i := range all {
		all[i] = byte(i)
	}

	encoded := AppendHuffmanString(nil, string(all))
	decoded, err := HuffmanDecode(nil, encoded)
	require.NoError(t, err)
	assert.Equal(t, all, decoded)
}

func TestHuffmanRoundTripRandom(t *testing.T) {
	rng := rand.New(rand.NewSource(7541))
	for i := 0; i < 500; i++ {
		s := make([]byte, rng.Intn(64))
		rng.Read(s)

		encoded := AppendHuffmanString(nil, string(s))
		assert.Equal(t, len(encoded), HuffmanEncodedLen(string(s)))

		decoded, err := HuffmanDecode(nil, encoded)
		require.NoError(t, err)
		assert.Equal(t, string(s), string(decoded))
	}
}

func TestHuffmanDecodeInPieces(t *testing.T) {
	encoded := AppendHuffmanString(nil, "Mon, 21 Oct 2013 20:13:21 GMT")

	var d HuffmanDecoder
	var out []byte
	var err error
	for i := range encoded {
		out, err = d.Decode(out, encoded[i:i+1], i == len(encoded)-1)
		require.NoError(t, err)
	}
	assert.Equal(t, "Mon, 21 Oct 2013 20:13:21 GMT", string(out))
}

func TestHuffmanDecodeRejects(t *testing.T) {
	tests := []struct {
		name    string
		encoded []byte
	}{
		{"eos symbol", []byte{0xff, 0xff, 0xff, 0xff}},
		{"padding longer than seven bits", []byte{0x1f, 0xff}},
		{"padding not taken from eos", []byte{0x18}},
		{"incomplete symbol", []byte{0xfe}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := HuffmanDecode(nil, tt.encoded)
			assert.ErrorIs(t, err, ErrMalformedHuffman)
		})
	}
}

func TestHuffmanPartialIsNotFinal(t *testing.T) {
	var d HuffmanDecoder
	_, err := d.Decode(nil, []byte{0xfe}, false)
	assert.NoError(t, err)

	_, err = d.Decode(nil, nil, true)
	assert.ErrorIs(t, err, ErrMalformedHuffman)
}
