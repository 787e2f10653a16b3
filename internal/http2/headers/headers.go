// Package headers carries HPACK header blocks over HTTP/2 HEADERS and
// CONTINUATION frames.
package headers

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	"hpackCodec/internal/hpack"
	"hpackCodec/internal/http2/frame"
	"hpackCodec/internal/http2/structs"
	"hpackCodec/internal/logging"
)

var (
	ErrNotHeaderFrame         = errors.New("not a headers frame")
	ErrUnexpectedContinuation = errors.New("continuation frame without open header block")
	ErrExpectedContinuation   = errors.New("expected continuation frame")
	ErrInvalidPadding         = errors.New("invalid header padding length")
	ErrInvalidStream          = errors.New("invalid stream id for header block")
)

type HeaderBlock struct {
	StreamID  uint32
	EndStream bool
	Fields    []hpack.HeaderField
}

// BlockReader reassembles header blocks from HEADERS and CONTINUATION frames
// and decodes each fragment as it arrives. One BlockReader serves one
// connection direction, like the Decoder it feeds.
type BlockReader struct {
	dec    *hpack.Decoder
	logger logging.Logger

	open      bool
	streamID  uint32
	endStream bool
	fields    []hpack.HeaderField
}

func NewBlockReader(dec *hpack.Decoder, logger logging.Logger) *BlockReader {
	if logger == nil {
		logger = logging.NopLogger{}
	}
	return &BlockReader{dec: dec, logger: logger}
}

// Pending reports whether a block was started and not yet ended.
func (br *BlockReader) Pending() bool {
	return br.open
}

// ReadFrame consumes one HEADERS or CONTINUATION frame. It returns the
// decoded block once a frame carries END_HEADERS and nil before that.
func (br *BlockReader) ReadFrame(f *structs.Frame) (*HeaderBlock, error) {
	var fragment []byte

	switch {
	case br.open:
		if f.Type != structs.CONTINUATION_FRAME_TYPE {
			return nil, fmt.Errorf("%w: got frame type %d on stream %d", ErrExpectedContinuation, f.Type, f.StreamID)
		}
		if f.StreamID != br.streamID {
			return nil, fmt.Errorf("%w: continuation on stream %d, block open on %d", ErrInvalidStream, f.StreamID, br.streamID)
		}
		fragment = f.Payload

	case f.Type == structs.CONTINUATION_FRAME_TYPE:
		return nil, fmt.Errorf("%w: stream %d", ErrUnexpectedContinuation, f.StreamID)

	case f.Type == structs.HEADER_FRAME_TYPE:
		if f.StreamID == 0 {
			return nil, fmt.Errorf("%w: 0", ErrInvalidStream)
		}
		var err error
		fragment, err = headerFragment(f)
		if err != nil {
			return nil, err
		}
		br.open = true
		br.streamID = f.StreamID
		br.endStream = f.Flags&structs.END_STREAM != 0
		br.fields = nil

	default:
		return nil, fmt.Errorf("%w: type %d", ErrNotHeaderFrame, f.Type)
	}

	endHeaders := f.Flags&structs.END_HEADERS != 0
	for {
		n, sig, err := br.dec.DecodeChunk(fragment, endHeaders)
		if err != nil {
			br.open = false
			return nil, fmt.Errorf("cannot decode header block on stream %d: %w", br.streamID, err)
		}
		fragment = fragment[n:]
		if sig.Kind != hpack.Emitted {
			break
		}
		br.fields = append(br.fields, sig.Field)
	}

	if !endHeaders {
		return nil, nil
	}

	br.open = false
	block := &HeaderBlock{StreamID: br.streamID, EndStream: br.endStream, Fields: br.fields}
	br.fields = nil
	br.logger.Log(logging.LogLevelDebug, "Decoded header block with %d fields on stream %d", len(block.Fields), block.StreamID)
	return block, nil
}

// ReadHeaderBlock reads frames until a header block is complete. Frames of
// other types between blocks are skipped.
func (br *BlockReader) ReadHeaderBlock(reader *bufio.Reader, maxFrameSize uint32) (*HeaderBlock, error) {
	for {
		f, err := frame.ParseFrame(reader, maxFrameSize)
		if err != nil {
			return nil, err
		}

		if !br.open && f.Type != structs.HEADER_FRAME_TYPE && f.Type != structs.CONTINUATION_FRAME_TYPE {
			br.logger.Log(logging.LogLevelDebug, "Skipping frame type %d on stream %d", f.Type, f.StreamID)
			continue
		}

		block, err := br.ReadFrame(f)
		if err != nil {
			return nil, err
		}
		if block != nil {
			return block, nil
		}
	}
}

// headerFragment strips padding and priority from a HEADERS payload.
func headerFragment(f *structs.Frame) ([]byte, error) {
	payload := f.Payload
	var paddingLength int

	// Padding flag set
	if f.Flags&structs.PADDED != 0 {
		if len(payload) < 1 {
			return nil, fmt.Errorf("%w: missing pad length", ErrInvalidPadding)
		}
		paddingLength = int(payload[0])
		payload = payload[1:]
	}

	// Priority flag set
	if f.Flags&structs.HEADERS_PRIORITY != 0 {
		if len(payload) < 5 {
			return nil, fmt.Errorf("cannot read header priority: %d octets left", len(payload))
		}
		payload = payload[5:]
	}

	if paddingLength > len(payload) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPadding, paddingLength)
	}
	return payload[:len(payload)-paddingLength], nil
}

// WriteHeaderBlock sends an encoded block as one HEADERS frame followed by as
// many CONTINUATION frames as maxFrameSize requires.
func WriteHeaderBlock(w io.Writer, streamID uint32, block []byte, endStream bool, maxFrameSize uint32) error {
	if streamID == 0 {
		return fmt.Errorf("%w: 0", ErrInvalidStream)
	}
	if maxFrameSize == 0 {
		maxFrameSize = structs.DEFAULT_MAX_FRAME_SIZE
	}

	iType := uint8(structs.HEADER_FRAME_TYPE)
	var flags uint8
	if endStream {
		flags |= structs.END_STREAM
	}

	for {
		chunk := block
		if uint32(len(chunk)) > maxFrameSize {
			chunk = chunk[:maxFrameSize]
		}
		block = block[len(chunk):]
		if len(block) == 0 {
			flags |= structs.END_HEADERS
		}

		if err := frame.WriteFrame(w, frame.NewFrame(iType, flags, streamID, chunk)); err != nil {
			return err
		}
		if len(block) == 0 {
			return nil
		}

		iType = structs.CONTINUATION_FRAME_TYPE
		flags = 0
	}
}

// ApplySettings passes the peer's SETTINGS_HEADER_TABLE_SIZE on to enc.
func ApplySettings(enc *hpack.Encoder, settings []structs.Setting) {
	for _, setting := range settings {
		if setting.ID == structs.SETTINGS_HEADER_TABLE_SIZE {
			enc.SetMaxDynamicTableSizeLimit(setting.Value)
		}
	}
}
