package frame

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"hpackCodec/internal/http2/structs"
)

var ErrFrameTooLarge = errors.New("frame exceeds max frame size")

// ParseFrame reads one frame. Frames longer than maxFrameSize are rejected
// before their payload is read; zero means the protocol default.
func ParseFrame(reader *bufio.Reader, maxFrameSize uint32) (*structs.Frame, error) {
	if maxFrameSize == 0 {
		maxFrameSize = structs.DEFAULT_MAX_FRAME_SIZE
	}
	newFrame := new(structs.Frame)

	header := make([]byte, structs.FRAME_HEADER_LENGTH)
	_, err := io.ReadFull(reader, header)
	if err != nil {
		return nil, fmt.Errorf("cannot read frame header: %w", err)
	}
	buffer := bytes.NewBuffer(header)

	var length []byte
	length = append(length, 0)
	length = append(length, buffer.Next(3)...)

	newFrame.Length = binary.BigEndian.Uint32(length)
	newFrame.Type = buffer.Next(1)[0]
	newFrame.Flags = buffer.Next(1)[0]
	newFrame.StreamID = binary.BigEndian.Uint32(buffer.Next(4))

	// Clears the first bit (Reserved)
	newFrame.StreamID &^= 1 << 31

	if newFrame.Length > maxFrameSize {
		return nil, fmt.Errorf("%w: %d > %d", ErrFrameTooLarge, newFrame.Length, maxFrameSize)
	}

	newFrame.Payload = make([]byte, newFrame.Length)
	_, err = io.ReadFull(reader, newFrame.Payload)
	if err != nil {
		return nil, fmt.Errorf("cannot read frame data: %w", err)
	}

	return newFrame, nil
}

func NewFrame(iType uint8, flags uint8, streamID uint32, data []byte) *structs.Frame {
	return &structs.Frame{
		Length:   uint32(len(data)),
		Type:     iType,
		Flags:    flags,
		StreamID: streamID &^ (1 << 31),
		Payload:  data,
	}
}

func WriteFrame(w io.Writer, f *structs.Frame) error {
	if len(f.Payload) > structs.MAX_FRAME_SIZE_LIMIT {
		return fmt.Errorf("%w: %d", ErrFrameTooLarge, len(f.Payload))
	}

	var message bytes.Buffer
	message.Grow(structs.FRAME_HEADER_LENGTH + len(f.Payload))

	lengthBytes := make([]byte, 4)
	binary.BigEndian.PutUint32(lengthBytes, uint32(len(f.Payload)))
	message.Write(lengthBytes[1:])

	message.WriteByte(f.Type)
	message.WriteByte(f.Flags)

	// Sets the reserved bit to 0
	streamIDBytes := make([]byte, 4)
	binary.BigEndian.PutUint32(streamIDBytes, f.StreamID&^(1<<31))
	message.Write(streamIDBytes)

	message.Write(f.Payload)

	_, err := w.Write(message.Bytes())
	if err != nil {
		return fmt.Errorf("send frame failed: %w", err)
	}

	return nil
}

// ParseSettings validates a SETTINGS frame and returns its parameters in
// order. An ACK carries none.
func ParseSettings(f *structs.Frame) ([]structs.Setting, error) {
	if f.Type != structs.SETTINGS_FRAME_TYPE {
		return nil, fmt.Errorf("invalid frame type, needs to be a settings frame: %v", f.Type)
	}
	if f.StreamID != 0x0 {
		return nil, fmt.Errorf("invalid frame stream id: %v", f.StreamID)
	}
	if len(f.Payload)%6 != 0 {
		return nil, fmt.Errorf("invalid frame payload length: %v", len(f.Payload))
	}
	if f.Flags&structs.ACK != 0 {
		if len(f.Payload) != 0 {
			return nil, fmt.Errorf("settings ack with payload length %v", len(f.Payload))
		}
		return nil, nil
	}

	settings := make([]structs.Setting, 0, len(f.Payload)/6)
	for p := f.Payload; len(p) > 0; p = p[6:] {
		settings = append(settings, structs.Setting{
			ID:    binary.BigEndian.Uint16(p[:2]),
			Value: binary.BigEndian.Uint32(p[2:6]),
		})
	}
	return settings, nil
}
