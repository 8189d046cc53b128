package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"signscribe/internal/history"
	"signscribe/internal/logging"
	"signscribe/internal/pipeline"
	"signscribe/internal/services"
	"signscribe/internal/staging"
)

const (
	uploadField       = "file"
	maxJSONBody       = 64 << 10
	multipartOverhead = 1 << 20
	shutdownTimeout   = 5 * time.Second
)

// Processor runs the transcript pipeline for one request.
type Processor interface {
	ProcessUpload(ctx context.Context, filename string, body io.Reader) (pipeline.Result, error)
	ProcessURL(ctx context.Context, rawURL string) (pipeline.Result, error)
}

// RunStore exposes recorded runs.
type RunStore interface {
	List(ctx context.Context, limit int) ([]history.Run, error)
	Get(ctx context.Context, id string) (*history.Run, error)
}

// StatusFunc reports server health for /api/status.
type StatusFunc func(ctx context.Context) Status

// Options configures the HTTP API.
type Options struct {
	Bind           string
	MaxUploadBytes int64
	RequestTimeout time.Duration
	Processor      Processor
	Runs           RunStore
	Status         StatusFunc
	Logger         *slog.Logger
}

// Server is the signscribe HTTP API.
type Server struct {
	bind      string
	maxUpload int64
	timeout   time.Duration
	processor Processor
	runs      RunStore
	status    StatusFunc
	logger    *slog.Logger

	mux      *http.ServeMux
	server   *http.Server
	listener net.Listener
}

// New builds the API routes.
func New(opts Options) (*Server, error) {
	if opts.Processor == nil {
		return nil, errors.New("server: processor is required")
	}
	s := &Server{
		bind:      strings.TrimSpace(opts.Bind),
		maxUpload: opts.MaxUploadBytes,
		timeout:   opts.RequestTimeout,
		processor: opts.Processor,
		runs:      opts.Runs,
		status:    opts.Status,
		logger:    logging.NewComponentLogger(opts.Logger, "api-server"),
		mux:       http.NewServeMux(),
	}

	s.mux.HandleFunc("POST /api/upload", s.handleUpload)
	s.mux.HandleFunc("POST /upload-video/", s.handleUpload)
	s.mux.HandleFunc("POST /api/transcribe", s.handleTranscribe)
	s.mux.HandleFunc("GET /api/runs", s.handleRuns)
	s.mux.HandleFunc("GET /api/runs/{id}", s.handleRun)
	s.mux.HandleFunc("GET /api/status", s.handleStatus)

	writeTimeout := time.Duration(0)
	if s.timeout > 0 {
		writeTimeout = s.timeout + 30*time.Second
	}
	s.server = &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       60 * time.Second,
	}
	return s, nil
}

// Handler returns the route multiplexer.
func (s *Server) Handler() http.Handler { return s.mux }

// Addr returns the bound listener address once Serve has started.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Listen binds the configured address.
func (s *Server) Listen() error {
	if s.bind == "" {
		return errors.New("server: bind address is required")
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener
	return nil
}

// Serve accepts requests until ctx is cancelled, then shuts down
// gracefully. Listen is called first when it has not been.
func (s *Server) Serve(ctx context.Context) error {
	if s.listener == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.server.Serve(s.listener)
	}()
	s.logger.Info("api server listening",
		logging.String("address", s.Addr()),
		logging.String(logging.FieldEventType, "server_start"),
	)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("api shutdown: %w", err)
	}
	s.logger.Info("api server stopped", logging.String(logging.FieldEventType, "server_stop"))
	return nil
}

func (s *Server) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	if s.timeout > 0 {
		return context.WithTimeout(r.Context(), s.timeout)
	}
	return context.WithCancel(r.Context())
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || !strings.HasPrefix(mediaType, "multipart/") {
		s.writeError(w, http.StatusBadRequest, "expected multipart/form-data upload", "")
		return
	}
	if s.maxUpload > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload+multipartOverhead)
	}
	reader, err := r.MultipartReader()
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error(), "")
		return
	}

	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			s.writeError(w, http.StatusBadRequest, fmt.Sprintf("missing %q form field", uploadField), "")
			return
		}
		if err != nil {
			s.writeRequestError(w, err)
			return
		}
		if part.FormName() != uploadField {
			part.Close()
			continue
		}

		ctx, cancel := s.requestContext(r)
		result, err := s.processor.ProcessUpload(ctx, part.FileName(), part)
		cancel()
		part.Close()
		if err != nil {
			s.writePipelineError(w, result.RunID, err)
			return
		}
		s.writeJSON(w, http.StatusOK, result)
		return
	}
}

type transcribeRequest struct {
	URL string `json:"url"`
}

func (s *Server) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	var req transcribeRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err := decoder.Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body", "")
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		s.writeError(w, http.StatusBadRequest, `"url" is required`, "")
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()
	result, err := s.processor.ProcessURL(ctx, req.URL)
	if err != nil {
		s.writePipelineError(w, result.RunID, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

// RunsResponse is the body of GET /api/runs.
type RunsResponse struct {
	Runs []history.Run `json:"runs"`
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		s.writeJSON(w, http.StatusOK, RunsResponse{Runs: []history.Run{}})
		return
	}
	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			s.writeError(w, http.StatusBadRequest, "invalid limit", "")
			return
		}
		limit = parsed
	}
	runs, err := s.runs.List(r.Context(), limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error(), "")
		return
	}
	if runs == nil {
		runs = []history.Run{}
	}
	s.writeJSON(w, http.StatusOK, RunsResponse{Runs: runs})
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("id"))
	if s.runs == nil || id == "" {
		s.writeError(w, http.StatusNotFound, "run not found", "")
		return
	}
	run, err := s.runs.Get(r.Context(), id)
	if errors.Is(err, history.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "run not found", "")
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error(), "")
		return
	}
	s.writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if s.status == nil {
		s.writeJSON(w, http.StatusOK, Status{Running: true})
		return
	}
	s.writeJSON(w, http.StatusOK, s.status(r.Context()))
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
	RunID string `json:"run_id,omitempty"`
}

func (s *Server) writePipelineError(w http.ResponseWriter, runID string, err error) {
	status := services.HTTPStatus(err)
	var maxBytes *http.MaxBytesError
	if errors.As(err, &maxBytes) || errors.Is(err, staging.ErrTooLarge) {
		status = http.StatusRequestEntityTooLarge
	}
	if status >= http.StatusInternalServerError {
		s.logger.Warn("request failed",
			logging.String(logging.FieldEventType, "request_failed"),
			logging.String("run_id", runID),
			logging.Int("status", status),
			logging.Error(err),
		)
	}
	s.writeJSON(w, status, ErrorResponse{Error: err.Error(), Kind: services.Kind(err), RunID: runID})
}

func (s *Server) writeRequestError(w http.ResponseWriter, err error) {
	var maxBytes *http.MaxBytesError
	if errors.As(err, &maxBytes) {
		s.writeError(w, http.StatusRequestEntityTooLarge, "upload exceeds size limit", "")
		return
	}
	s.writeError(w, http.StatusBadRequest, err.Error(), "")
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message, runID string) {
	s.writeJSON(w, status, ErrorResponse{Error: message, RunID: runID})
}
