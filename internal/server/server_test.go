package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"signscribe/internal/history"
	"signscribe/internal/logging"
	"signscribe/internal/pipeline"
	"signscribe/internal/services"
	"signscribe/internal/testsupport"
	"signscribe/internal/transcript"
)

type fakeProcessor struct {
	filename string
	body     string
	url      string
	result   pipeline.Result
	err      error
	deadline bool
}

func (f *fakeProcessor) ProcessUpload(ctx context.Context, filename string, body io.Reader) (pipeline.Result, error) {
	f.filename = filename
	data, _ := io.ReadAll(body)
	f.body = string(data)
	_, f.deadline = ctx.Deadline()
	return f.result, f.err
}

func (f *fakeProcessor) ProcessURL(ctx context.Context, rawURL string) (pipeline.Result, error) {
	f.url = rawURL
	_, f.deadline = ctx.Deadline()
	return f.result, f.err
}

func newTestServer(t *testing.T, proc *fakeProcessor, runs RunStore) *Server {
	t.Helper()
	srv, err := New(Options{
		Bind:           "127.0.0.1:0",
		MaxUploadBytes: 1 << 20,
		RequestTimeout: time.Minute,
		Processor:      proc,
		Runs:           runs,
		Logger:         logging.NewNop(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return srv
}

func multipartBody(t *testing.T, field, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("note", "ignored"); err != nil {
		t.Fatalf("write field: %v", err)
	}
	fw, err := mw.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fw.Write([]byte(content)); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func decode[T any](t *testing.T, body *bytes.Buffer) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", body.String(), err)
	}
	return out
}

func sampleResult() pipeline.Result {
	return pipeline.Result{
		RunID:      "run-1",
		Transcript: "Hello world.",
		Segments:   []string{"Hello world."},
		SourceName: "clip.mp4",
		Provenance: transcript.ProvenanceSpeech,
		RenderURLs: []string{"https://sign.mt?text=Hello+world."},
	}
}

func TestUploadReturnsPipelineResult(t *testing.T) {
	for _, path := range []string{"/api/upload", "/upload-video/"} {
		t.Run(path, func(t *testing.T) {
			proc := &fakeProcessor{result: sampleResult()}
			srv := newTestServer(t, proc, nil)

			body, contentType := multipartBody(t, "file", "clip.mp4", "video-bytes")
			req := httptest.NewRequest(http.MethodPost, path, body)
			req.Header.Set("Content-Type", contentType)
			w := httptest.NewRecorder()
			srv.Handler().ServeHTTP(w, req)

			if w.Code != http.StatusOK {
				t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
			}
			if proc.filename != "clip.mp4" || proc.body != "video-bytes" {
				t.Fatalf("processor saw %q / %q", proc.filename, proc.body)
			}
			if !proc.deadline {
				t.Fatal("expected request timeout on the pipeline context")
			}
			resp := decode[map[string]any](t, w.Body)
			for _, key := range []string{"transcript", "segments", "source_name", "provenance", "render_urls"} {
				if _, ok := resp[key]; !ok {
					t.Fatalf("response missing %q: %v", key, resp)
				}
			}
			if _, ok := resp["public_url"]; ok {
				t.Fatalf("public_url should be omitted when empty: %v", resp)
			}
			if resp["provenance"] != "speech_recognition" {
				t.Fatalf("provenance = %v", resp["provenance"])
			}
		})
	}
}

func TestUploadMissingFileField(t *testing.T) {
	srv := newTestServer(t, &fakeProcessor{}, nil)
	body, contentType := multipartBody(t, "video", "clip.mp4", "x")
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
	if resp := decode[ErrorResponse](t, w.Body); !strings.Contains(resp.Error, `"file"`) {
		t.Fatalf("unexpected error %q", resp.Error)
	}
}

func TestUploadRejectsNonMultipart(t *testing.T) {
	srv := newTestServer(t, &fakeProcessor{}, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/upload", strings.NewReader("raw"))
	req.Header.Set("Content-Type", "video/mp4")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestUploadRejectsGet(t *testing.T) {
	srv := newTestServer(t, &fakeProcessor{}, nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/upload", nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestTranscribeMapsErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
		kind string
	}{
		{"invalid", services.Wrap(services.ErrInvalidSource, "source", "identify", "unsupported host", nil), http.StatusBadRequest, "invalid_source"},
		{"timeout", services.Wrap(services.ErrMedia, "media", "download", "", context.DeadlineExceeded), http.StatusGatewayTimeout, "timeout"},
		{"transcription", services.Wrap(services.ErrTranscription, "speech", "infer", "", errors.New("oom")), http.StatusInternalServerError, "transcription"},
		{"storage", services.Wrap(services.ErrStorage, "storage", "upload", "", errors.New("409")), http.StatusBadGateway, "storage"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			proc := &fakeProcessor{err: tc.err, result: pipeline.Result{RunID: "run-9"}}
			srv := newTestServer(t, proc, nil)
			req := httptest.NewRequest(http.MethodPost, "/api/transcribe", strings.NewReader(`{"url":"https://example.com/x"}`))
			w := httptest.NewRecorder()
			srv.Handler().ServeHTTP(w, req)

			if w.Code != tc.code {
				t.Fatalf("status = %d, want %d", w.Code, tc.code)
			}
			resp := decode[ErrorResponse](t, w.Body)
			if resp.Kind != tc.kind || resp.RunID != "run-9" || resp.Error == "" {
				t.Fatalf("unexpected error body %+v", resp)
			}
			if proc.url != "https://example.com/x" {
				t.Fatalf("processor url = %q", proc.url)
			}
		})
	}
}

func TestTranscribeSuccess(t *testing.T) {
	proc := &fakeProcessor{result: sampleResult()}
	srv := newTestServer(t, proc, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/transcribe", strings.NewReader(`{"url":"https://youtu.be/dQw4w9WgXcQ"}`))
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	resp := decode[pipeline.Result](t, w.Body)
	if resp.Transcript != "Hello world." || len(resp.Segments) != 1 {
		t.Fatalf("unexpected result %+v", resp)
	}
}

func TestTranscribeValidatesBody(t *testing.T) {
	srv := newTestServer(t, &fakeProcessor{}, nil)
	for _, body := range []string{`not json`, `{}`, `{"url":"  "}`} {
		w := httptest.NewRecorder()
		srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/transcribe", strings.NewReader(body)))
		if w.Code != http.StatusBadRequest {
			t.Errorf("body %q: status = %d", body, w.Code)
		}
	}
}

func TestRunsEndpoints(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	ctx := context.Background()
	for i := range 3 {
		run := history.Run{
			ID:         fmt.Sprintf("run-%d", i),
			SourceKind: "remote_url",
			SourceName: "https://youtu.be/dQw4w9WgXcQ",
			StartedAt:  time.Date(2026, 1, 1, 0, i, 0, 0, time.UTC),
		}
		if err := store.Start(ctx, run); err != nil {
			t.Fatalf("Start: %v", err)
		}
	}
	srv := newTestServer(t, &fakeProcessor{}, store)

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/runs?limit=2", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	list := decode[RunsResponse](t, w.Body)
	if len(list.Runs) != 2 || list.Runs[0].ID != "run-2" {
		t.Fatalf("unexpected runs %+v", list.Runs)
	}

	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/runs/run-1", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	if run := decode[history.Run](t, w.Body); run.ID != "run-1" || run.Status != history.StatusRunning {
		t.Fatalf("unexpected run %+v", run)
	}

	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/runs/missing", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("missing status = %d", w.Code)
	}

	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/runs?limit=abc", nil))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad limit status = %d", w.Code)
	}
}

func TestRunsWithoutStore(t *testing.T) {
	srv := newTestServer(t, &fakeProcessor{}, nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/runs", nil))
	if w.Code != http.StatusOK || strings.TrimSpace(w.Body.String()) != `{"runs":[]}` {
		t.Fatalf("unexpected response %d %s", w.Code, w.Body.String())
	}
}

func TestStatusUsesConfig(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	srv, err := New(Options{
		Processor: &fakeProcessor{},
		Status:    ConfigStatus(cfg, "whisperx", "base"),
		Logger:    logging.NewNop(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	status := decode[Status](t, w.Body)
	if !status.Running || status.SpeechEngine != "whisperx" || status.HistoryDB != cfg.HistoryDBPath() {
		t.Fatalf("unexpected status %+v", status)
	}
	if len(status.Dependencies) == 0 || len(status.Checks) == 0 {
		t.Fatalf("expected dependency and preflight results: %+v", status)
	}
}

func TestServeAndShutdown(t *testing.T) {
	srv := newTestServer(t, &fakeProcessor{}, nil)
	if err := srv.Listen(); err != nil {
		t.Fatalf("Listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()

	resp, err := http.Get("http://" + srv.Addr() + "/api/status")
	if err != nil {
		t.Fatalf("GET status: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Serve: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestAcquireLockIsExclusive(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	first, err := AcquireLock(cfg)
	if err != nil {
		t.Fatalf("first lock: %v", err)
	}
	if _, err := AcquireLock(cfg); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}
	if err := first.Unlock(); err != nil {
		t.Fatalf("Unlock: %v", err)
	}
	again, err := AcquireLock(cfg)
	if err != nil {
		t.Fatalf("lock after release: %v", err)
	}
	_ = again.Unlock()
}

func TestNewRequiresProcessor(t *testing.T) {
	if _, err := New(Options{}); err == nil {
		t.Fatal("expected error without processor")
	}
}
