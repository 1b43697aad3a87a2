package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wbrown/piecewise/resources"
	"github.com/wbrown/piecewise/types"
)

func newTestHandler(t *testing.T, opts ...Option) http.Handler {
	t.Helper()
	pieces := [][]byte{}
	for _, piece := range []string{
		"a", "b", "o", "▁", "▁hell", "▁hello", "▁there"} {
		pieces = append(pieces, []byte(piece))
	}
	model, err := resources.NewModel(pieces,
		[]float32{-5, -5, -4, -3, -2, -1, -1}, nil)
	require.NoError(t, err)
	encoder, err := model.NewEncoder()
	require.NoError(t, err)
	return NewHandler(encoder, model.Vocabulary(), opts...)
}

func post(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	h := newTestHandler(t)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, float64(7), body["pieces"])
}

func TestEncodeText(t *testing.T) {
	h := newTestHandler(t)
	rec := post(t, h, "/encode", `{"text": "hello   there", "pieces": true}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp EncodeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, types.Codes{0, 7, 8, 1}, resp.Codes)
	assert.Equal(t, 4, resp.Length)
	assert.Equal(t, []string{"▁hello", "▁there"}, resp.Pieces)
}

func TestEncodeBatch(t *testing.T) {
	h := newTestHandler(t)
	rec := post(t, h, "/encode",
		`{"texts": ["hello", "there"], "max_length": 8}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp EncodeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, types.Codes{0, 7, 1, 0, 8, 1, 1, 1}, resp.Codes)
	assert.Equal(t, 6, resp.Length)
}

func TestEncodeBatchMaxLength(t *testing.T) {
	h := newTestHandler(t, WithMaxLength(4))
	for _, body := range []string{
		`{"texts": ["hello"], "max_length": 5}`,
		`{"texts": ["hello"]}`,
	} {
		rec := post(t, h, "/encode", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
}

func TestEncodeUnmatched(t *testing.T) {
	h := newTestHandler(t)
	rec := post(t, h, "/encode", `{"text": "xyz"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Error)
	require.NotNil(t, resp.Offset)
	assert.Equal(t, len("▁"), *resp.Offset)
}

func TestEncodeBadRequests(t *testing.T) {
	h := newTestHandler(t)
	assert.Equal(t, http.StatusBadRequest, post(t, h, "/encode", `{`).Code)
	assert.Equal(t, http.StatusBadRequest, post(t, h, "/encode", `{}`).Code)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/encode", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestEncodeBodyTooLarge(t *testing.T) {
	h := newTestHandler(t, WithMaxBodyBytes(16))
	body := `{"text": "` + strings.Repeat("a", 64) + `"}`
	assert.Equal(t, http.StatusRequestEntityTooLarge,
		post(t, h, "/encode", body).Code)
}

func TestDecode(t *testing.T) {
	h := newTestHandler(t)
	rec := post(t, h, "/decode", `{"codes": [0, 7, 8, 1]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp DecodeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "hello there", resp.Text)
}

func TestMetricsEndpoint(t *testing.T) {
	registry := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "piecewise_test_total",
		Help: "Test counter.",
	})
	registry.MustRegister(counter)
	counter.Inc()

	h := newTestHandler(t, WithGatherer(registry))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "piecewise_test_total 1")
}

func TestWorkerLimitCancelled(t *testing.T) {
	h := &handler{sem: make(chan struct{}, 1), opts: defaultOptions()}
	h.sem <- struct{}{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/encode",
		strings.NewReader(`{}`)).WithContext(ctx)
	rec := httptest.NewRecorder()
	called := false
	h.limited(func(http.ResponseWriter, *http.Request) { called = true })(rec, req)
	assert.False(t, called)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestServerStartShutdown(t *testing.T) {
	srv := New("127.0.0.1:0", newTestHandler(t)).
		WithShutdownTimeout(time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Start(ctx) }()
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestServerListenError(t *testing.T) {
	listener := httptest.NewServer(http.NotFoundHandler())
	defer listener.Close()
	addr := strings.TrimPrefix(listener.URL, "http://")

	err := New(addr, http.NotFoundHandler()).Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "http listen")
}
