package helper

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hpackCodec/internal/hpack"
)

func TestParseFieldLines(t *testing.T) {
	input := strings.Join([]string{
		"# request",
		":method: GET",
		":path: /index.html",
		"Host: www.example.com:8443",
		"",
		"!authorization: Bearer abc",
		"x-empty:",
		"x-spaces:    padded value\r",
	}, "\n")

	fields, err := ParseFieldLines(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, []hpack.HeaderField{
		{HeaderFieldName: ":method", HeaderFieldValue: "GET"},
		{HeaderFieldName: ":path", HeaderFieldValue: "/index.html"},
		{HeaderFieldName: "host", HeaderFieldValue: "www.example.com:8443"},
		{HeaderFieldName: "authorization", HeaderFieldValue: "Bearer abc", NeverIndexed: true},
		{HeaderFieldName: "x-empty", HeaderFieldValue: ""},
		{HeaderFieldName: "x-spaces", HeaderFieldValue: "padded value"},
	}, fields)
}

func TestParseFieldLineErrors(t *testing.T) {
	for _, line := range []string{"no-colon", ":authority", ":", ": value", "name : value"} {
		_, err := ParseFieldLine(line)
		assert.ErrorIs(t, err, ErrMalformedFieldLine, line)
	}

	_, err := ParseFieldLines(strings.NewReader("a: 1\nbroken\n"))
	assert.ErrorContains(t, err, "line 2")
}

func TestFormatFieldLinesRoundTrip(t *testing.T) {
	fields := []hpack.HeaderField{
		{HeaderFieldName: ":status", HeaderFieldValue: "200"},
		{HeaderFieldName: "set-cookie", HeaderFieldValue: "a=b", NeverIndexed: true},
	}

	var buf bytes.Buffer
	require.NoError(t, FormatFieldLines(&buf, fields))
	assert.Equal(t, ":status: 200\n!set-cookie: a=b\n", buf.String())

	parsed, err := ParseFieldLines(&buf)
	require.NoError(t, err)
	assert.Equal(t, fields, parsed)
}

func TestDecodeHex(t *testing.T) {
	b, err := DecodeHex([]byte("0x8286\n84 41 8c\n"))
	require.NoError(t, err)
	assert.Equal(t, []byte{0x82, 0x86, 0x84, 0x41, 0x8c}, b)

	_, err = DecodeHex([]byte("828"))
	assert.Error(t, err)
	_, err = DecodeHex([]byte("zz"))
	assert.Error(t, err)
}

func TestHexDump(t *testing.T) {
	dump := HexDump([]byte("abc\x00"))
	assert.Equal(t, "00000000  61 62 63 00 "+strings.Repeat("   ", 12)+" |abc.|\n", dump)
}

func TestReadUntil(t *testing.T) {
	r := bytes.NewReader([]byte("key;rest"))
	b, err := ReadUntil(r, ';')
	require.NoError(t, err)
	assert.Equal(t, "key", string(b))
	assert.Equal(t, 4, r.Len())
}
