package inspect

import (
	"sync"

	"hpackCodec/internal/hpack"
	"hpackCodec/internal/http2/headers"
)

// Flow is one named connection direction pair: an encoder for blocks the
// caller wants compressed and a decoder for blocks it has captured. Both
// keep their dynamic tables between requests.
type Flow struct {
	mutex sync.Mutex

	enc    *hpack.Encoder
	dec    *hpack.Decoder
	reader *headers.BlockReader

	encodedBlocks uint64
	decodedBlocks uint64
}

type FieldJSON struct {
	Name         string `json:"name"`
	Value        string `json:"value"`
	NeverIndexed bool   `json:"never_indexed,omitempty"`
}

type TableJSON struct {
	Size    uint32      `json:"size"`
	MaxSize uint32      `json:"max_size"`
	Entries []FieldJSON `json:"entries"`
}

type FlowJSON struct {
	Name          string    `json:"name"`
	EncodedBlocks uint64    `json:"encoded_blocks"`
	DecodedBlocks uint64    `json:"decoded_blocks"`
	Encoder       TableJSON `json:"encoder"`
	Decoder       TableJSON `json:"decoder"`
}

func toFieldJSON(fields []hpack.HeaderField) []FieldJSON {
	out := make([]FieldJSON, len(fields))
	for i, f := range fields {
		out[i] = FieldJSON{Name: f.HeaderFieldName, Value: f.HeaderFieldValue, NeverIndexed: f.NeverIndexed}
	}
	return out
}

func fromFieldJSON(fields []FieldJSON) []hpack.HeaderField {
	out := make([]hpack.HeaderField, len(fields))
	for i, f := range fields {
		out[i] = hpack.HeaderField{HeaderFieldName: f.Name, HeaderFieldValue: f.Value, NeverIndexed: f.NeverIndexed}
	}
	return out
}

func toTableJSON(t *hpack.DynamicTable) TableJSON {
	return TableJSON{
		Size:    t.Size(),
		MaxSize: t.MaxSize(),
		Entries: toFieldJSON(t.Entries()),
	}
}

// snapshot must be called with the flow's mutex held.
func (f *Flow) snapshot(name string) FlowJSON {
	return FlowJSON{
		Name:          name,
		EncodedBlocks: f.encodedBlocks,
		DecodedBlocks: f.decodedBlocks,
		Encoder:       toTableJSON(f.enc.DynamicTable()),
		Decoder:       toTableJSON(f.dec.DynamicTable()),
	}
}

func (f *Flow) poisoned() bool {
	return f.enc.Poisoned() || f.dec.Poisoned()
}
