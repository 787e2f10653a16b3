package inspect

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/http2"

	"hpackCodec/internal/config"
	"hpackCodec/internal/logging"
)

func newTestServer(t *testing.T, modify func(c *config.Config)) (*Server, *httptest.Server) {
	t.Helper()
	conf := config.Default()
	if modify != nil {
		modify(conf)
	}
	require.NoError(t, conf.Validate())

	s := NewServer(conf, logging.NopLogger{})
	ts := httptest.NewServer(s.Router())
	t.Cleanup(ts.Close)
	return s, ts
}

func doRequest(t *testing.T, method, url, contentType string, body io.Reader) (int, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, url, body)
	require.NoError(t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func TestDecodeKeepsFlowContext(t *testing.T) {
	_, ts := newTestServer(t, nil)

	blocks := []string{
		"828684418cf1e3c2e5f23a6ba0ab90f4ff",
		"828684be5886a8eb10649cbf",
	}
	var resp DecodeResponse
	for _, block := range blocks {
		status, data := doRequest(t, http.MethodPost, ts.URL+"/flows/c1/decode?format=hex", "text/plain", strings.NewReader(block))
		require.Equal(t, http.StatusOK, status, string(data))
		require.NoError(t, json.Unmarshal(data, &resp))
	}

	require.Len(t, resp.Blocks, 1)
	assert.Equal(t, []FieldJSON{
		{Name: ":method", Value: "GET"},
		{Name: ":scheme", Value: "http"},
		{Name: ":path", Value: "/"},
		{Name: ":authority", Value: "www.example.com"},
		{Name: "cache-control", Value: "no-cache"},
	}, resp.Blocks[0].Fields)
	assert.Equal(t, uint32(110), resp.Table.Size)
	assert.Len(t, resp.Table.Entries, 2)

	// Another flow has its own table.
	status, _ := doRequest(t, http.MethodPost, ts.URL+"/flows/c2/decode?format=hex", "text/plain", strings.NewReader(blocks[1]))
	assert.Equal(t, http.StatusUnprocessableEntity, status)
}

func TestDecodeRawBody(t *testing.T) {
	_, ts := newTestServer(t, nil)

	body, err := hex.DecodeString("100870617373776f726406736563726574")
	require.NoError(t, err)
	status, data := doRequest(t, http.MethodPost, ts.URL+"/flows/raw/decode", "application/octet-stream", bytes.NewReader(body))
	require.Equal(t, http.StatusOK, status, string(data))

	var resp DecodeResponse
	require.NoError(t, json.Unmarshal(data, &resp))
	assert.Equal(t, []FieldJSON{{Name: "password", Value: "secret", NeverIndexed: true}}, resp.Blocks[0].Fields)
	assert.Empty(t, resp.Table.Entries)
}

func TestDecodeErrorDiscardsFlow(t *testing.T) {
	s, ts := newTestServer(t, nil)

	status, _ := doRequest(t, http.MethodPost, ts.URL+"/flows/bad/decode?format=hex", "", strings.NewReader("828684418cf1e3c2e5f23a6ba0ab90f4ff"))
	require.Equal(t, http.StatusOK, status)

	status, data := doRequest(t, http.MethodPost, ts.URL+"/flows/bad/decode?format=hex", "", strings.NewReader("c0"))
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	var e errorJSON
	require.NoError(t, json.Unmarshal(data, &e))
	assert.True(t, e.FlowDiscarded)
	assert.Contains(t, e.Error, "invalid index")

	_, ok := s.flow("bad", false)
	assert.False(t, ok)

	status, _ = doRequest(t, http.MethodPost, ts.URL+"/flows/bad/decode?format=hex", "", strings.NewReader("zz"))
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestEncodeThenDecodeFrames(t *testing.T) {
	_, ts := newTestServer(t, func(c *config.Config) {
		c.Decoder.Intern.Enabled = true
	})

	req := EncodeRequest{
		Fields: []FieldJSON{
			{Name: ":method", Value: "GET"},
			{Name: ":scheme", Value: "https"},
			{Name: ":authority", Value: "www.example.com"},
			{Name: ":path", Value: "/"},
			{Name: "authorization", Value: "secret", NeverIndexed: true},
		},
		StreamID:  1,
		EndStream: true,
	}
	payload, err := json.Marshal(req)
	require.NoError(t, err)

	status, data := doRequest(t, http.MethodPost, ts.URL+"/flows/client/encode", "application/json", bytes.NewReader(payload))
	require.Equal(t, http.StatusOK, status, string(data))
	var enc EncodeResponse
	require.NoError(t, json.Unmarshal(data, &enc))
	assert.Len(t, enc.Table.Entries, 1)

	frames, err := hex.DecodeString(enc.Frames)
	require.NoError(t, err)
	f, err := http2.NewFramer(nil, bytes.NewReader(frames)).ReadFrame()
	require.NoError(t, err)
	headersFrame, ok := f.(*http2.HeadersFrame)
	require.True(t, ok)
	assert.True(t, headersFrame.StreamEnded())
	assert.Equal(t, enc.Block, hex.EncodeToString(headersFrame.HeaderBlockFragment()))

	status, data = doRequest(t, http.MethodPost, ts.URL+"/flows/server/decode?frames=1", "application/octet-stream", bytes.NewReader(frames))
	require.Equal(t, http.StatusOK, status, string(data))
	var dec DecodeResponse
	require.NoError(t, json.Unmarshal(data, &dec))
	require.Len(t, dec.Blocks, 1)
	assert.Equal(t, uint32(1), dec.Blocks[0].StreamID)
	assert.True(t, dec.Blocks[0].EndStream)
	assert.Equal(t, req.Fields, dec.Blocks[0].Fields)

	status, data = doRequest(t, http.MethodGet, ts.URL+"/stats", "", nil)
	require.Equal(t, http.StatusOK, status)
	var stats StatsResponse
	require.NoError(t, json.Unmarshal(data, &stats))
	assert.Equal(t, 2, stats.Flows)
	assert.Equal(t, 2, stats.InternedCount)
}

func TestDecodeTruncatedFramesDiscardsFlow(t *testing.T) {
	s, ts := newTestServer(t, nil)

	var buf bytes.Buffer
	fr := http2.NewFramer(&buf, nil)
	require.NoError(t, fr.WriteHeaders(http2.HeadersFrameParam{StreamID: 1, BlockFragment: []byte{0x82}}))

	status, _ := doRequest(t, http.MethodPost, ts.URL+"/flows/cut/decode?frames=1", "", &buf)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	_, ok := s.flow("cut", false)
	assert.False(t, ok)
}

func TestEncodeOutputLimit(t *testing.T) {
	s, ts := newTestServer(t, func(c *config.Config) {
		c.Encoder.OutputLimit = 4
	})

	payload := `{"fields":[{"name":"x-long-name","value":"long value"}]}`
	status, data := doRequest(t, http.MethodPost, ts.URL+"/flows/small/encode", "application/json", strings.NewReader(payload))
	assert.Equal(t, http.StatusRequestEntityTooLarge, status, string(data))
	_, ok := s.flow("small", false)
	assert.False(t, ok)

	status, _ = doRequest(t, http.MethodPost, ts.URL+"/flows/small/encode", "application/json", strings.NewReader("{"))
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestSettingsTableAndDelete(t *testing.T) {
	_, ts := newTestServer(t, nil)

	status, _ := doRequest(t, http.MethodGet, ts.URL+"/flows/f/table", "", nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, data := doRequest(t, http.MethodPost, ts.URL+"/flows/f/settings", "application/json", strings.NewReader(`{"header_table_size": 100, "decoder_table_size_limit": 200}`))
	require.Equal(t, http.StatusOK, status, string(data))
	var flow FlowJSON
	require.NoError(t, json.Unmarshal(data, &flow))
	assert.Equal(t, uint32(100), flow.Encoder.MaxSize)
	assert.Equal(t, uint32(4096), flow.Decoder.MaxSize)

	status, data = doRequest(t, http.MethodPost, ts.URL+"/flows/f/encode", "application/json", strings.NewReader(`{"fields":[{"name":":method","value":"GET"}]}`))
	require.Equal(t, http.StatusOK, status)
	var enc EncodeResponse
	require.NoError(t, json.Unmarshal(data, &enc))
	assert.Equal(t, "3f4582", enc.Block)

	// A size update above the acknowledged limit is rejected.
	status, _ = doRequest(t, http.MethodPost, ts.URL+"/flows/f/decode?format=hex", "", strings.NewReader("3fe101"))
	assert.Equal(t, http.StatusUnprocessableEntity, status)

	status, data = doRequest(t, http.MethodGet, ts.URL+"/flows/", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"flows":[]}`, string(data))

	_, _ = doRequest(t, http.MethodPost, ts.URL+"/flows/g/settings", "application/json", strings.NewReader(`{}`))
	status, data = doRequest(t, http.MethodGet, ts.URL+"/flows/g/table", "", nil)
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(data, &flow))
	assert.Equal(t, "g", flow.Name)

	status, _ = doRequest(t, http.MethodDelete, ts.URL+"/flows/g", "", nil)
	assert.Equal(t, http.StatusNoContent, status)
	status, _ = doRequest(t, http.MethodDelete, ts.URL+"/flows/g", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestNotFoundAndMethodNotAllowed(t *testing.T) {
	_, ts := newTestServer(t, nil)

	status, data := doRequest(t, http.MethodGet, ts.URL+"/nowhere", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Not Found", string(data))

	status, data = doRequest(t, http.MethodGet, ts.URL+"/flows/x/decode", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, status)
	assert.Equal(t, "Method Not Allowed", string(data))
}

func TestServeStopsOnCancel(t *testing.T) {
	s, _ := newTestServer(t, nil)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get(fmt.Sprintf("http://%s/stats", ln.Addr()))
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
