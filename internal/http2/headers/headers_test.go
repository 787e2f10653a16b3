package headers

import (
	"bufio"
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/http2"
	xhpack "golang.org/x/net/http2/hpack"

	"hpackCodec/internal/hpack"
	"hpackCodec/internal/http2/frame"
	"hpackCodec/internal/http2/structs"
)

var requestFields = []hpack.HeaderField{
	{HeaderFieldName: ":method", HeaderFieldValue: "GET"},
	{HeaderFieldName: ":scheme", HeaderFieldValue: "https"},
	{HeaderFieldName: ":authority", HeaderFieldValue: "www.example.com"},
	{HeaderFieldName: ":path", HeaderFieldValue: "/index.html"},
	{HeaderFieldName: "user-agent", HeaderFieldValue: "hpack-test"},
	{HeaderFieldName: "custom-key", HeaderFieldValue: "custom-value"},
}

func TestBlockReaderWithFramer(t *testing.T) {
	block, err := hpack.NewEncoder().Encode(requestFields)
	require.NoError(t, err)

	var buf bytes.Buffer
	fr := http2.NewFramer(&buf, nil)
	require.NoError(t, fr.WriteSettings())
	require.NoError(t, fr.WriteHeaders(http2.HeadersFrameParam{
		StreamID:      3,
		BlockFragment: block[:5],
		EndStream:     true,
		PadLength:     4,
		Priority:      http2.PriorityParam{StreamDep: 1, Weight: 200},
	}))
	require.NoError(t, fr.WriteContinuation(3, false, block[5:9]))
	require.NoError(t, fr.WriteContinuation(3, true, block[9:]))

	br := NewBlockReader(hpack.NewDecoder(), nil)
	got, err := br.ReadHeaderBlock(bufio.NewReader(&buf), 0)
	require.NoError(t, err)
	assert.Equal(t, uint32(3), got.StreamID)
	assert.True(t, got.EndStream)
	assert.Equal(t, requestFields, got.Fields)
}

func TestWriteHeaderBlockForFramer(t *testing.T) {
	enc := hpack.NewEncoder()
	fields := append([]hpack.HeaderField{}, requestFields...)
	for i := 0; i < 20; i++ {
		fields = append(fields, hpack.HeaderField{HeaderFieldName: "x-filler", HeaderFieldValue: string(bytes.Repeat([]byte{'a' + byte(i)}, 40))})
	}
	block, err := enc.Encode(fields)
	require.NoError(t, err)
	require.Greater(t, len(block), 3*64)

	var buf bytes.Buffer
	require.NoError(t, WriteHeaderBlock(&buf, 1, block, false, 64))

	fr := http2.NewFramer(nil, &buf)
	fr.ReadMetaHeaders = xhpack.NewDecoder(4096, nil)
	f, err := fr.ReadFrame()
	require.NoError(t, err)
	meta, ok := f.(*http2.MetaHeadersFrame)
	require.True(t, ok)
	assert.False(t, meta.StreamEnded())
	require.Len(t, meta.Fields, len(fields))
	for i, hf := range meta.Fields {
		assert.Equal(t, fields[i].HeaderFieldName, hf.Name)
		assert.Equal(t, fields[i].HeaderFieldValue, hf.Value)
	}
}

func TestWriteHeaderBlockSplits(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteHeaderBlock(&buf, 7, bytes.Repeat([]byte{0x82}, 10), true, 4))

	reader := bufio.NewReader(&buf)
	var types []uint8
	var flags []uint8
	for i := 0; i < 3; i++ {
		f, err := frame.ParseFrame(reader, 0)
		require.NoError(t, err)
		types = append(types, f.Type)
		flags = append(flags, f.Flags)
	}
	assert.Equal(t, []uint8{structs.HEADER_FRAME_TYPE, structs.CONTINUATION_FRAME_TYPE, structs.CONTINUATION_FRAME_TYPE}, types)
	assert.Equal(t, []uint8{structs.END_STREAM, 0, structs.END_HEADERS}, flags)

	buf.Reset()
	require.NoError(t, WriteHeaderBlock(&buf, 7, nil, false, 0))
	f, err := frame.ParseFrame(bufio.NewReader(&buf), 0)
	require.NoError(t, err)
	assert.Equal(t, uint8(structs.END_HEADERS), f.Flags)
	assert.Empty(t, f.Payload)

	assert.ErrorIs(t, WriteHeaderBlock(&buf, 0, nil, false, 0), ErrInvalidStream)
}

func TestBlockReaderSequencing(t *testing.T) {
	br := NewBlockReader(hpack.NewDecoder(), nil)

	_, err := br.ReadFrame(frame.NewFrame(structs.CONTINUATION_FRAME_TYPE, structs.END_HEADERS, 1, []byte{0x82}))
	assert.ErrorIs(t, err, ErrUnexpectedContinuation)

	_, err = br.ReadFrame(frame.NewFrame(structs.DATA_FRAME_TYPE, 0, 1, nil))
	assert.ErrorIs(t, err, ErrNotHeaderFrame)

	_, err = br.ReadFrame(frame.NewFrame(structs.HEADER_FRAME_TYPE, structs.END_HEADERS, 0, []byte{0x82}))
	assert.ErrorIs(t, err, ErrInvalidStream)

	block, err := br.ReadFrame(frame.NewFrame(structs.HEADER_FRAME_TYPE, 0, 1, []byte{0x82}))
	require.NoError(t, err)
	assert.Nil(t, block)

	_, err = br.ReadFrame(frame.NewFrame(structs.CONTINUATION_FRAME_TYPE, structs.END_HEADERS, 3, []byte{0x86}))
	assert.ErrorIs(t, err, ErrInvalidStream)

	_, err = br.ReadFrame(frame.NewFrame(structs.HEADER_FRAME_TYPE, structs.END_HEADERS, 3, []byte{0x86}))
	assert.ErrorIs(t, err, ErrExpectedContinuation)

	block, err = br.ReadFrame(frame.NewFrame(structs.CONTINUATION_FRAME_TYPE, structs.END_HEADERS, 1, []byte{0x86}))
	require.NoError(t, err)
	require.NotNil(t, block)
	assert.Equal(t, []hpack.HeaderField{
		{HeaderFieldName: ":method", HeaderFieldValue: "GET"},
		{HeaderFieldName: ":scheme", HeaderFieldValue: "http"},
	}, block.Fields)
}

func TestBlockReaderPaddingErrors(t *testing.T) {
	br := NewBlockReader(hpack.NewDecoder(), nil)

	_, err := br.ReadFrame(frame.NewFrame(structs.HEADER_FRAME_TYPE, structs.PADDED|structs.END_HEADERS, 1, []byte{5, 0x82}))
	assert.ErrorIs(t, err, ErrInvalidPadding)

	_, err = br.ReadFrame(frame.NewFrame(structs.HEADER_FRAME_TYPE, structs.PADDED|structs.END_HEADERS, 1, nil))
	assert.ErrorIs(t, err, ErrInvalidPadding)
}

func TestBlockReaderTruncatedBlock(t *testing.T) {
	br := NewBlockReader(hpack.NewDecoder(), nil)

	_, err := br.ReadFrame(frame.NewFrame(structs.HEADER_FRAME_TYPE, structs.END_HEADERS, 1, []byte{0x40, 0x03, 'a'}))
	assert.ErrorIs(t, err, hpack.ErrTruncatedBlock)
}

func TestApplySettings(t *testing.T) {
	enc := hpack.NewEncoder()
	ApplySettings(enc, []structs.Setting{
		{ID: structs.SETTINGS_MAX_FRAME_SIZE, Value: 1 << 15},
		{ID: structs.SETTINGS_HEADER_TABLE_SIZE, Value: 100},
	})
	assert.Equal(t, uint32(100), enc.DynamicTable().MaxSize())

	block, err := enc.EndBlock()
	require.NoError(t, err)
	assert.Equal(t, []byte{0x3f, 0x45}, block)
}

func TestBlockReaderPending(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, frame.WriteFrame(&buf, frame.NewFrame(structs.HEADER_FRAME_TYPE, 0, 1, []byte{0x82})))

	br := NewBlockReader(hpack.NewDecoder(), nil)
	_, err := br.ReadHeaderBlock(bufio.NewReader(&buf), 0)
	assert.ErrorIs(t, err, io.EOF)
	assert.True(t, br.Pending())
}
