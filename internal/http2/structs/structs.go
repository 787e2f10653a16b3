package structs

//goland:noinspection ALL
const (
	DATA_FRAME_TYPE = iota
	HEADER_FRAME_TYPE
	PRIORITY_FRAME_TYPE
	RST_STREAM_FRAME_TYPE
	SETTINGS_FRAME_TYPE
	PUSH_PROMISE_FRAME_TYPE
	PING_FRAME_TYPE
	GOAWAY_FRAME_TYPE
	WINDOW_UPDATE_FRAME_TYPE
	CONTINUATION_FRAME_TYPE
)

const (
	PADDED           = 0x08
	END_STREAM       = 0x01
	END_HEADERS      = 0x04
	HEADERS_PRIORITY = 0x20
	ACK              = 0x01
)

//goland:noinspection ALL
const (
	SETTINGS_HEADER_TABLE_SIZE = iota + 1
	SETTINGS_ENABLE_PUSH
	SETTINGS_MAX_CONCURRENT_STREAMS
	SETTINGS_INITIAL_WINDOW_SIZE
	SETTINGS_MAX_FRAME_SIZE
	SETTINGS_MAX_HEADER_LIST_SIZE
)

const (
	FRAME_HEADER_LENGTH    = 9
	DEFAULT_MAX_FRAME_SIZE = 1 << 14
	MAX_FRAME_SIZE_LIMIT   = 1<<24 - 1
)

type Frame struct {
	Length   uint32
	Type     uint8
	Flags    uint8
	StreamID uint32
	Payload  []byte
}

type Setting struct {
	ID    uint16
	Value uint32
}
