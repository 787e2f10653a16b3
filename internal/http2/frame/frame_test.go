package frame

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/http2"

	"hpackCodec/internal/http2/structs"
)

func TestParseFrameFromFramer(t *testing.T) {
	var buf bytes.Buffer
	fr := http2.NewFramer(&buf, nil)
	require.NoError(t, fr.WriteSettings(http2.Setting{ID: http2.SettingHeaderTableSize, Val: 256}, http2.Setting{ID: http2.SettingMaxFrameSize, Val: 1 << 15}))
	require.NoError(t, fr.WriteSettingsAck())

	reader := bufio.NewReader(&buf)
	f, err := ParseFrame(reader, 0)
	require.NoError(t, err)
	assert.Equal(t, uint8(structs.SETTINGS_FRAME_TYPE), f.Type)
	assert.Equal(t, uint32(12), f.Length)

	settings, err := ParseSettings(f)
	require.NoError(t, err)
	assert.Equal(t, []structs.Setting{
		{ID: structs.SETTINGS_HEADER_TABLE_SIZE, Value: 256},
		{ID: structs.SETTINGS_MAX_FRAME_SIZE, Value: 1 << 15},
	}, settings)

	f, err = ParseFrame(reader, 0)
	require.NoError(t, err)
	settings, err = ParseSettings(f)
	require.NoError(t, err)
	assert.Empty(t, settings)
}

func TestWriteFrameForFramer(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, NewFrame(structs.HEADER_FRAME_TYPE, structs.END_HEADERS, 1<<31|5, []byte{0x82})))

	f, err := http2.NewFramer(nil, &buf).ReadFrame()
	require.NoError(t, err)
	headers, ok := f.(*http2.HeadersFrame)
	require.True(t, ok)
	assert.Equal(t, uint32(5), headers.StreamID)
	assert.True(t, headers.HeadersEnded())
	assert.False(t, headers.StreamEnded())
	assert.Equal(t, []byte{0x82}, headers.HeaderBlockFragment())
}

func TestParseFrameErrors(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, NewFrame(structs.HEADER_FRAME_TYPE, 0, 1, make([]byte, 100))))

	_, err := ParseFrame(bufio.NewReader(bytes.NewReader(buf.Bytes())), 50)
	assert.ErrorIs(t, err, ErrFrameTooLarge)

	_, err = ParseFrame(bufio.NewReader(bytes.NewReader(buf.Bytes()[:20])), 0)
	assert.Error(t, err)

	_, err = ParseSettings(NewFrame(structs.SETTINGS_FRAME_TYPE, 0, 0, []byte{0, 1, 0}))
	assert.Error(t, err)
	_, err = ParseSettings(NewFrame(structs.SETTINGS_FRAME_TYPE, 0, 3, nil))
	assert.Error(t, err)
	_, err = ParseSettings(NewFrame(structs.PING_FRAME_TYPE, 0, 0, nil))
	assert.Error(t, err)
}
