package inspect

import (
	"bufio"
	"bytes"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"hpackCodec/internal/helper"
	"hpackCodec/internal/hpack"
	"hpackCodec/internal/http2/headers"
	"hpackCodec/internal/http2/structs"
	"hpackCodec/internal/logging"
)

type errorJSON struct {
	Error         string `json:"error"`
	FlowDiscarded bool   `json:"flow_discarded,omitempty"`
}

type BlockJSON struct {
	StreamID  uint32      `json:"stream_id,omitempty"`
	EndStream bool        `json:"end_stream,omitempty"`
	Fields    []FieldJSON `json:"fields"`
}

type DecodeResponse struct {
	Blocks []BlockJSON `json:"blocks"`
	Table  TableJSON   `json:"table"`
}

type EncodeRequest struct {
	Fields    []FieldJSON `json:"fields"`
	StreamID  uint32      `json:"stream_id,omitempty"`
	EndStream bool        `json:"end_stream,omitempty"`
}

type EncodeResponse struct {
	Block  string    `json:"block"`
	Frames string    `json:"frames,omitempty"`
	Table  TableJSON `json:"table"`
}

type SettingsRequest struct {
	// HeaderTableSize is the peer's SETTINGS_HEADER_TABLE_SIZE and bounds
	// the encoder.
	HeaderTableSize *uint32 `json:"header_table_size"`
	// DecoderTableSizeLimit is our acknowledged SETTINGS_HEADER_TABLE_SIZE.
	DecoderTableSizeLimit *uint32 `json:"decoder_table_size_limit"`
}

type StatsResponse struct {
	Flows         int    `json:"flows"`
	InternedCount int    `json:"interned_count"`
	InternHits    uint64 `json:"intern_hits"`
	InternMisses  uint64 `json:"intern_misses"`
}

func (s *Server) NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	s.Log(logging.LogLevelWarn, "Not Found: %s %s", r.Method, r.URL.Path)
	w.WriteHeader(http.StatusNotFound)
	_, err := w.Write([]byte("Not Found"))
	if err != nil {
		s.Log(logging.LogLevelError, "Response writer failed in NotFoundHandler: %s", err)
	}
}

func (s *Server) MethodNotAllowedHandler(w http.ResponseWriter, r *http.Request) {
	s.Log(logging.LogLevelWarn, "Method Not Allowed: %s %s", r.Method, r.URL.Path)
	w.WriteHeader(http.StatusMethodNotAllowed)
	_, err := w.Write([]byte("Method Not Allowed"))
	if err != nil {
		s.Log(logging.LogLevelError, "Response writer failed in MethodNotAllowedHandler: %s", err)
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.Log(logging.LogLevelError, "Cannot write response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, errorJSON{Error: err.Error()})
}

// codecFailed answers a failed codec call. A flow whose codec is poisoned or
// which stopped in the middle of a header block is dropped.
func (s *Server) codecFailed(w http.ResponseWriter, name string, f *Flow, err error) {
	discarded := false
	if f.poisoned() || f.reader.Pending() {
		discarded = s.dropFlow(name, f)
		s.Log(logging.LogLevelWarn, "Flow %q discarded: %v", name, err)
	}

	status := http.StatusUnprocessableEntity
	if errors.Is(err, hpack.ErrOutputCapacityExceeded) || errors.Is(err, hpack.ErrStringTooLong) {
		status = http.StatusRequestEntityTooLarge
	}
	s.writeJSON(w, status, errorJSON{Error: err.Error(), FlowDiscarded: discarded})
}

func (s *Server) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		return nil, err
	}
	if r.URL.Query().Get("format") == "hex" {
		return helper.DecodeHex(body)
	}
	return body, nil
}

// DecodeHandler decodes the request body with the flow's decoder. The body
// is one header block, or with frames=1 a sequence of HTTP/2 frames. With
// format=hex the body is hex text.
func (s *Server) DecodeHandler(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "flow")
	body, err := s.readBody(w, r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	f, _ := s.flow(name, true)
	f.mutex.Lock()
	defer f.mutex.Unlock()

	var blocks []BlockJSON
	if r.URL.Query().Get("frames") == "1" {
		reader := bufio.NewReader(bytes.NewReader(body))
		for {
			block, err := f.reader.ReadHeaderBlock(reader, s.MaxFrameSize)
			if errors.Is(err, io.EOF) && !f.reader.Pending() {
				break
			}
			if err != nil {
				if f.poisoned() || f.reader.Pending() {
					s.codecFailed(w, name, f, err)
				} else {
					s.writeError(w, http.StatusBadRequest, err)
				}
				return
			}
			f.decodedBlocks++
			blocks = append(blocks, BlockJSON{StreamID: block.StreamID, EndStream: block.EndStream, Fields: toFieldJSON(block.Fields)})
		}
	} else {
		fields, err := f.dec.DecodeFull(body)
		if err != nil {
			s.codecFailed(w, name, f, err)
			return
		}
		f.decodedBlocks++
		blocks = append(blocks, BlockJSON{Fields: toFieldJSON(fields)})
	}

	s.Log(logging.LogLevelDebug, "Flow %q decoded %d blocks", name, len(blocks))
	s.writeJSON(w, http.StatusOK, DecodeResponse{Blocks: blocks, Table: toTableJSON(f.dec.DynamicTable())})
}

// EncodeHandler encodes the listed fields as one header block. With a stream
// id the block is also framed as HEADERS and CONTINUATION frames.
func (s *Server) EncodeHandler(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "flow")

	var req EncodeRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid encode request: %w", err))
		return
	}

	f, _ := s.flow(name, true)
	f.mutex.Lock()
	defer f.mutex.Unlock()

	block, err := f.enc.Encode(fromFieldJSON(req.Fields))
	if err != nil {
		s.codecFailed(w, name, f, err)
		return
	}
	f.encodedBlocks++

	resp := EncodeResponse{Block: hex.EncodeToString(block), Table: toTableJSON(f.enc.DynamicTable())}
	if req.StreamID != 0 {
		var frames bytes.Buffer
		if err := headers.WriteHeaderBlock(&frames, req.StreamID, block, req.EndStream, s.MaxFrameSize); err != nil {
			s.writeError(w, http.StatusInternalServerError, err)
			return
		}
		resp.Frames = hex.EncodeToString(frames.Bytes())
	}

	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) SettingsHandler(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "flow")

	var req SettingsRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid settings request: %w", err))
		return
	}

	f, _ := s.flow(name, true)
	f.mutex.Lock()
	defer f.mutex.Unlock()

	if req.HeaderTableSize != nil {
		headers.ApplySettings(f.enc, []structs.Setting{{ID: structs.SETTINGS_HEADER_TABLE_SIZE, Value: *req.HeaderTableSize}})
	}
	if req.DecoderTableSizeLimit != nil {
		f.dec.SetMaxDynamicTableSizeLimit(*req.DecoderTableSizeLimit)
	}

	s.writeJSON(w, http.StatusOK, f.snapshot(name))
}

func (s *Server) TableHandler(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "flow")
	f, ok := s.flow(name, false)
	if !ok {
		s.writeError(w, http.StatusNotFound, fmt.Errorf("unknown flow %q", name))
		return
	}

	f.mutex.Lock()
	defer f.mutex.Unlock()
	s.writeJSON(w, http.StatusOK, f.snapshot(name))
}

func (s *Server) DeleteFlowHandler(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "flow")
	if !s.dropFlow(name, nil) {
		s.writeError(w, http.StatusNotFound, fmt.Errorf("unknown flow %q", name))
		return
	}
	s.Log(logging.LogLevelDebug, "Deleted flow %q", name)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) ListFlowsHandler(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string][]string{"flows": s.flowNames()})
}

func (s *Server) StatsHandler(w http.ResponseWriter, r *http.Request) {
	resp := StatsResponse{Flows: len(s.flowNames())}
	if s.interner != nil {
		resp.InternedCount = s.interner.Len()
		resp.InternHits, resp.InternMisses = s.interner.Stats()
	}
	s.writeJSON(w, http.StatusOK, resp)
}
