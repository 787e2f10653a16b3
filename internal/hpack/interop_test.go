package hpack_test

import (
	"bufio"
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tested_hpack "github.com/tatsuhiro-t/go-http2-hpack"
	xhpack "golang.org/x/net/http2/hpack"

	"hpackCodec/internal/hpack"
)

func TestDecoderStatic(t *testing.T) {
	headersPre := []*tested_hpack.Header{
		tested_hpack.NewHeader(":method", "GET", false),
		tested_hpack.NewHeader(":scheme", "https", false),
		tested_hpack.NewHeader(":path", "/", false),
	}

	dec := hpack.NewDecoder()
	enc := tested_hpack.NewEncoder(0)

	encoded := &bytes.Buffer{}
	enc.Encode(encoded, headersPre)

	encBytes := encoded.Bytes()
	t.Logf("Encoded headers as hex   : 0x%s", hex.EncodeToString(encBytes))

	headersAfter, err := dec.Decode(bufio.NewReader(bytes.NewReader(encBytes)))
	assert.NoError(t, err, "Error decoding headers after encoded payload")
	assert.Len(t, headersAfter, len(headersPre))

	for i, header := range headersAfter {
		assert.Equal(t, headersPre[i].Name, header.HeaderFieldName)
		assert.Equal(t, headersPre[i].Value, header.HeaderFieldValue)
	}
}

func TestDecoderHeaderLiterals(t *testing.T) {
	encoded, err := hex.DecodeString("040c2f73616d706c652f70617468")
	require.NoError(t, err)

	headersPref := []hpack.HeaderField{
		{HeaderFieldName: ":path", HeaderFieldValue: "/sample/path"},
	}

	dec := hpack.NewDecoder()

	headersAfter, err := dec.Decode(bufio.NewReader(bytes.NewReader(encoded)))
	assert.NoError(t, err, "Error decoding headers after encoded payload")
	assert.Equal(t, headersPref, headersAfter)
}

func TestEncoderStaticForOtherDecoder(t *testing.T) {
	enc := hpack.NewEncoder()
	block, err := enc.Encode([]hpack.HeaderField{
		{HeaderFieldName: ":method", HeaderFieldValue: "GET"},
		{HeaderFieldName: ":scheme", HeaderFieldValue: "https"},
		{HeaderFieldName: ":path", HeaderFieldValue: "/"},
	})
	require.NoError(t, err)

	dec := tested_hpack.NewDecoder()
	var got []string
	for pos := 0; pos < len(block); {
		header, n, err := dec.Decode(block[pos:], true)
		require.NoError(t, err)
		if header == nil {
			break
		}
		pos += n
		got = append(got, header.Name+": "+header.Value)
	}
	assert.Equal(t, []string{":method: GET", ":scheme: https", ":path: /"}, got)
}

var interopBlocks = [][]hpack.HeaderField{
	{
		{HeaderFieldName: ":method", HeaderFieldValue: "GET"},
		{HeaderFieldName: ":scheme", HeaderFieldValue: "https"},
		{HeaderFieldName: ":authority", HeaderFieldValue: "api.example.org"},
		{HeaderFieldName: ":path", HeaderFieldValue: "/v1/items?page=2"},
		{HeaderFieldName: "user-agent", HeaderFieldValue: "hpack-inspect/1.0"},
		{HeaderFieldName: "authorization", HeaderFieldValue: "Bearer 0123456789", NeverIndexed: true},
	},
	{
		{HeaderFieldName: ":method", HeaderFieldValue: "POST"},
		{HeaderFieldName: ":scheme", HeaderFieldValue: "https"},
		{HeaderFieldName: ":authority", HeaderFieldValue: "api.example.org"},
		{HeaderFieldName: ":path", HeaderFieldValue: "/v1/items"},
		{HeaderFieldName: "user-agent", HeaderFieldValue: "hpack-inspect/1.0"},
		{HeaderFieldName: "content-type", HeaderFieldValue: "application/json"},
		{HeaderFieldName: "x-empty", HeaderFieldValue: ""},
	},
	{
		{HeaderFieldName: ":method", HeaderFieldValue: "GET"},
		{HeaderFieldName: ":authority", HeaderFieldValue: "api.example.org"},
		{HeaderFieldName: "user-agent", HeaderFieldValue: "hpack-inspect/1.0"},
		{HeaderFieldName: "content-type", HeaderFieldValue: "application/json"},
		{HeaderFieldName: "cookie", HeaderFieldValue: "session=abc"},
		{HeaderFieldName: "cookie", HeaderFieldValue: "session=abc"},
	},
}

func TestEncoderAgainstXNetDecoder(t *testing.T) {
	enc := hpack.NewEncoder()
	dec := xhpack.NewDecoder(hpack.DefaultMaxDynamicTableSize, nil)

	for i, fields := range interopBlocks {
		if i == 1 {
			enc.SetMaxDynamicTableSize(256)
		}
		block, err := enc.Encode(fields)
		require.NoError(t, err)

		decoded, err := dec.DecodeFull(block)
		require.NoError(t, err)
		require.Len(t, decoded, len(fields))
		for j, f := range decoded {
			assert.Equal(t, fields[j].HeaderFieldName, f.Name)
			assert.Equal(t, fields[j].HeaderFieldValue, f.Value)
			assert.Equal(t, fields[j].NeverIndexed, f.Sensitive)
		}
	}
}

func TestDecoderAgainstXNetEncoder(t *testing.T) {
	var buf bytes.Buffer
	enc := xhpack.NewEncoder(&buf)
	dec := hpack.NewDecoder()

	for i, fields := range interopBlocks {
		if i == 2 {
			enc.SetMaxDynamicTableSize(64)
		}
		buf.Reset()
		for _, f := range fields {
			require.NoError(t, enc.WriteField(xhpack.HeaderField{
				Name:      f.HeaderFieldName,
				Value:     f.HeaderFieldValue,
				Sensitive: f.NeverIndexed,
			}))
		}

		decoded, err := dec.DecodeFull(buf.Bytes())
		require.NoError(t, err)
		assert.Equal(t, fields, decoded)
	}
	assert.Equal(t, uint32(64), dec.DynamicTable().MaxSize())
}

func TestHuffmanAgainstXNet(t *testing.T) {
	for _, s := range []string{"", "a", "www.example.com", "no-cache", "custom-key", "Mon, 21 Oct 2013 20:13:21 GMT", "\x00\x01\xfe\xff"} {
		assert.Equal(t, int(xhpack.HuffmanEncodeLength(s)), hpack.HuffmanEncodedLen(s), s)

		encoded := hpack.AppendHuffmanString(nil, s)
		assert.Equal(t, xhpack.AppendHuffmanString(nil, s), encoded, s)

		decoded, err := xhpack.HuffmanDecodeToString(encoded)
		require.NoError(t, err)
		assert.Equal(t, s, decoded)
	}
}
