// Package server serves encoding and decoding over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/wbrown/piecewise"
	"github.com/wbrown/piecewise/internal/logger"
	"github.com/wbrown/piecewise/types"
)

type options struct {
	maxBodyBytes int64
	workers      int
	maxLength    int
	normalizer   *piecewise.Normalizer
	gatherer     prometheus.Gatherer
	logger       *log.Logger
}

func defaultOptions() options {
	return options{
		maxBodyBytes: 1 << 20,
		workers:      64,
		maxLength:    4096,
		normalizer:   piecewise.DefaultNormalizer(),
		gatherer:     prometheus.DefaultGatherer,
		logger:       logger.New("server"),
	}
}

// Option configures the HTTP handler.
type Option func(*options)

// WithMaxBodyBytes caps the size of request bodies.
func WithMaxBodyBytes(n int64) Option {
	return func(o *options) { o.maxBodyBytes = n }
}

// WithWorkers caps concurrent encode and decode requests. Zero disables the
// limit.
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

// WithMaxLength caps the max_length of batch requests.
func WithMaxLength(n int) Option {
	return func(o *options) { o.maxLength = n }
}

func WithNormalizer(n *piecewise.Normalizer) Option {
	return func(o *options) { o.normalizer = n }
}

// WithGatherer sets the registry served on /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(o *options) { o.gatherer = g }
}

func WithLogger(l *log.Logger) Option {
	return func(o *options) { o.logger = l }
}

type handler struct {
	segmenter   piecewise.Segmenter
	textEncoder *piecewise.TextEncoder
	vocab       *piecewise.Vocabulary
	opts        options
	sem         chan struct{}
	log         *log.Logger
}

// NewHandler returns an http.Handler serving /health, /metrics, POST /encode
// and POST /decode. segmenter must emit codes for vocab.
func NewHandler(segmenter piecewise.Segmenter, vocab *piecewise.Vocabulary,
	optFns ...Option) http.Handler {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	config := vocab.Config()
	h := &handler{
		segmenter:   segmenter,
		textEncoder: piecewise.NewTextEncoder(segmenter, opts.normalizer, &config),
		vocab:       vocab,
		opts:        opts,
		log:         opts.logger,
	}
	if opts.workers > 0 {
		h.sem = make(chan struct{}, opts.workers)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", h.handleHealth)
	mux.Handle("GET /metrics", promhttp.HandlerFor(opts.gatherer,
		promhttp.HandlerOpts{}))
	mux.HandleFunc("POST /encode", h.limited(h.handleEncode))
	mux.HandleFunc("POST /decode", h.limited(h.handleDecode))
	return mux
}

func buildVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func (h *handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": buildVersion(),
		"pieces":  h.vocab.Len(),
	})
}

// limited bounds the request body and holds a worker slot while next runs.
func (h *handler) limited(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, h.opts.maxBodyBytes)
		if h.sem != nil {
			select {
			case h.sem <- struct{}{}:
			case <-r.Context().Done():
				writeError(w, http.StatusServiceUnavailable,
					"request cancelled while waiting for worker")
				return
			}
			defer func() { <-h.sem }()
		}
		next(w, r)
	}
}

// decodeBody reports a bad body to the client and returns false.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("body exceeds maximum size of %d bytes",
					tooLarge.Limit))
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return false
	}
	return true
}

type EncodeRequest struct {
	Text      *string  `json:"text,omitempty"`
	Texts     []string `json:"texts,omitempty"`
	MaxLength int      `json:"max_length,omitempty"`
	Pieces    bool     `json:"pieces,omitempty"`
}

type EncodeResponse struct {
	Codes  types.Codes `json:"codes"`
	Length int         `json:"length"`
	Pieces []string    `json:"pieces,omitempty"`
}

type DecodeRequest struct {
	Codes types.Codes `json:"codes"`
}

type DecodeResponse struct {
	Text string `json:"text"`
}

type errorResponse struct {
	Error  string `json:"error"`
	Offset *int   `json:"offset,omitempty"`
}

func (h *handler) handleEncode(w http.ResponseWriter, r *http.Request) {
	var req EncodeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	start := time.Now()

	var resp EncodeResponse
	switch {
	case req.Texts != nil:
		if req.MaxLength <= 0 || req.MaxLength > h.opts.maxLength {
			writeError(w, http.StatusBadRequest, fmt.Sprintf(
				"max_length must be between 1 and %d", h.opts.maxLength))
			return
		}
		batch, err := h.textEncoder.EncodeBatch(r.Context(), req.Texts,
			req.MaxLength)
		if err != nil {
			h.writeEncodeError(w, err)
			return
		}
		resp = EncodeResponse{Codes: batch.Codes, Length: batch.Length}
	case req.Text != nil:
		normalized := h.opts.normalizer.Normalize(*req.Text)
		codes, err := h.segmenter.Encode([]byte(normalized))
		if err != nil {
			h.writeEncodeError(w, err)
			return
		}
		resp = EncodeResponse{Codes: codes, Length: len(codes)}
	default:
		writeError(w, http.StatusBadRequest, "text or texts field is required")
		return
	}
	if req.Pieces {
		for _, piece := range h.vocab.DecodePieces(resp.Codes[:resp.Length]) {
			resp.Pieces = append(resp.Pieces, string(piece))
		}
	}

	h.log.Debug("encoded", "codes", resp.Length,
		"duration", time.Since(start))
	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) writeEncodeError(w http.ResponseWriter, err error) {
	var unmatched *piecewise.UnmatchedInputError
	switch {
	case errors.As(err, &unmatched):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Error:  err.Error(),
			Offset: &unmatched.Offset,
		})
	case errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		h.log.Error("encode failed", "err", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (h *handler) handleDecode(w http.ResponseWriter, r *http.Request) {
	var req DecodeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, DecodeResponse{Text: h.vocab.Decode(req.Codes)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// Server runs a handler on a net/http.Server with graceful shutdown.
type Server struct {
	addr            string
	handler         http.Handler
	shutdownTimeout time.Duration
	log             *log.Logger
}

func New(addr string, handler http.Handler) *Server {
	return &Server{
		addr:            addr,
		handler:         handler,
		shutdownTimeout: 30 * time.Second,
		log:             logger.New("server"),
	}
}

// WithShutdownTimeout overrides the graceful shutdown drain period.
func (s *Server) WithShutdownTimeout(d time.Duration) *Server {
	s.shutdownTimeout = d
	return s
}

// Start serves until ctx is done or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()
	s.log.Info("listening", "addr", s.addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(),
			s.shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http listen: %w", err)
	}
}
