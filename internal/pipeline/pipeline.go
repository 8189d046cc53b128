package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"signscribe/internal/history"
	"signscribe/internal/logging"
	"signscribe/internal/segment"
	"signscribe/internal/services"
	"signscribe/internal/signrender"
	"signscribe/internal/source"
	"signscribe/internal/staging"
	"signscribe/internal/storage"
	"signscribe/internal/transcript"
)

// Resolver obtains a transcript for a source.
type Resolver interface {
	Resolve(ctx context.Context, src source.VideoSource) (transcript.Transcript, error)
}

// History records run lifecycles.
type History interface {
	Start(ctx context.Context, run history.Run) error
	Finish(ctx context.Context, run history.Run) error
}

// Result is the outcome of one successful run.
type Result struct {
	RunID      string                `json:"run_id"`
	Transcript string                `json:"transcript"`
	Segments   []string              `json:"segments"`
	SourceName string                `json:"source_name"`
	Provenance transcript.Provenance `json:"provenance"`
	RenderURLs []string              `json:"render_urls"`
	PublicURL  string                `json:"public_url,omitempty"`
}

// Options wires a Pipeline. Resolver, Renderer and StagingDir are required;
// a nil Uploader skips storage forwarding and a nil History skips run
// recording.
type Options struct {
	Resolver         Resolver
	Renderer         *signrender.Builder
	Uploader         storage.Uploader
	History          History
	StagingDir       string
	MaxSegmentLength int
	MaxUploadBytes   int64
	Logger           *slog.Logger
}

// Pipeline turns an upload or URL into a segmented transcript.
type Pipeline struct {
	resolver   Resolver
	renderer   *signrender.Builder
	uploader   storage.Uploader
	history    History
	stagingDir string
	maxLength  int
	maxUpload  int64
	logger     *slog.Logger
	newID      func() string
	now        func() time.Time
}

// New validates opts and returns a Pipeline.
func New(opts Options) (*Pipeline, error) {
	if opts.Resolver == nil {
		return nil, errors.New("pipeline: resolver is required")
	}
	if opts.Renderer == nil {
		return nil, errors.New("pipeline: renderer is required")
	}
	if strings.TrimSpace(opts.StagingDir) == "" {
		return nil, errors.New("pipeline: staging dir is required")
	}
	maxLength := opts.MaxSegmentLength
	if maxLength <= 0 {
		maxLength = segment.DefaultMaxLength
	}
	return &Pipeline{
		resolver:   opts.Resolver,
		renderer:   opts.Renderer,
		uploader:   opts.Uploader,
		history:    opts.History,
		stagingDir: opts.StagingDir,
		maxLength:  maxLength,
		maxUpload:  opts.MaxUploadBytes,
		logger:     logging.NewComponentLogger(opts.Logger, "pipeline"),
		newID:      uuid.NewString,
		now:        time.Now,
	}, nil
}

// ProcessUpload stages an uploaded video, forwards it to storage when
// configured, and transcribes it. The staged copy is removed before
// returning.
func (p *Pipeline) ProcessUpload(ctx context.Context, filename string, body io.Reader) (Result, error) {
	runID := p.newID()
	name := strings.TrimSpace(filename)
	if name == "" {
		name = "upload"
	}
	ctx = services.WithRequestID(ctx, runID)
	ctx = services.WithSourceName(ctx, name)

	run := p.start(ctx, history.Run{ID: runID, SourceKind: string(source.KindLocalFile), SourceName: name})

	result, err := p.processUpload(ctx, runID, name, body)
	result.RunID = runID
	p.finish(ctx, run, result, err)
	return result, err
}

func (p *Pipeline) processUpload(ctx context.Context, runID, name string, body io.Reader) (Result, error) {
	logger := logging.WithContext(ctx, p.logger)

	ctx = services.WithStage(ctx, "stage_upload")
	ws, err := staging.NewWorkspace(p.stagingDir, runID)
	if err != nil {
		return Result{}, services.Wrap(services.ErrMedia, "pipeline", "stage upload", "", err)
	}
	defer func() {
		if err := ws.Remove(); err != nil {
			logging.WarnWithContext(logger, "failed to remove request workspace", "workspace_cleanup_failed",
				logging.String("path", ws.Dir()),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "remove the directory manually or wait for the stale sweep"),
				logging.String(logging.FieldImpact, "disk space not reclaimed"),
			)
		}
	}()

	path, err := ws.SaveUpload(name, body, p.maxUpload)
	if err != nil {
		if errors.Is(err, staging.ErrTooLarge) {
			return Result{}, services.Wrap(services.ErrInvalidSource, "pipeline", "stage upload",
				fmt.Sprintf("upload exceeds %d bytes", p.maxUpload), err)
		}
		return Result{}, services.Wrap(services.ErrInvalidSource, "pipeline", "stage upload", "", err)
	}

	var publicURL string
	if p.uploader != nil {
		publicURL, err = p.forward(services.WithStage(ctx, "storage_upload"), name, path)
		if err != nil {
			return Result{}, err
		}
	}

	result, err := p.transcribe(ctx, source.LocalFile(path), name)
	if err != nil {
		return Result{}, err
	}
	result.PublicURL = publicURL
	return result, nil
}

// ProcessURL transcribes a remote video.
func (p *Pipeline) ProcessURL(ctx context.Context, rawURL string) (Result, error) {
	runID := p.newID()
	rawURL = strings.TrimSpace(rawURL)
	ctx = services.WithRequestID(ctx, runID)
	ctx = services.WithSourceName(ctx, rawURL)

	src := source.RemoteURL(rawURL)
	record := history.Run{ID: runID, SourceKind: string(source.KindRemoteURL), SourceName: rawURL}
	if id, err := src.Identify(); err == nil {
		record.VideoID = string(id)
	}
	run := p.start(ctx, record)

	var (
		result Result
		err    error
	)
	if rawURL == "" {
		err = services.Wrap(services.ErrInvalidSource, "pipeline", "parse url", "url is required", nil)
	} else {
		result, err = p.transcribe(ctx, src, rawURL)
	}
	result.RunID = runID
	p.finish(ctx, run, result, err)
	return result, err
}

func (p *Pipeline) transcribe(ctx context.Context, src source.VideoSource, name string) (Result, error) {
	ctx = services.WithStage(ctx, "transcribe")
	logger := logging.WithContext(ctx, p.logger)

	t, err := p.resolver.Resolve(ctx, src)
	if err != nil {
		return Result{}, err
	}

	segments := segment.Split(t.Text, p.maxLength)
	if oversized := segment.Oversized(segments, p.maxLength); len(oversized) > 0 {
		logging.WarnWithContext(logger, "segments exceed maximum length", "segment_oversized",
			logging.Int("count", len(oversized)),
			logging.Int("max_length", p.maxLength),
			logging.String(logging.FieldErrorHint, "the transcript has clauses without sentence or comma breaks"),
			logging.String(logging.FieldImpact, "rendering service receives longer text than configured"),
		)
	}

	logger.Info("transcript segmented",
		logging.String(logging.FieldEventType, "pipeline_complete"),
		logging.String("provenance", string(t.Provenance)),
		logging.Int("transcript_chars", len(t.Text)),
		logging.Int("segments", len(segments)),
	)

	return Result{
		Transcript: t.Text,
		Segments:   segments,
		SourceName: name,
		Provenance: t.Provenance,
		RenderURLs: p.renderer.URLs(segments),
	}, nil
}

func (p *Pipeline) forward(ctx context.Context, name, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", services.Wrap(services.ErrStorage, "pipeline", "read upload", "", err)
	}
	publicURL, err := p.uploader.Upload(ctx, name, data)
	if err != nil {
		return "", err
	}
	logging.WithContext(ctx, p.logger).Info("upload forwarded to storage",
		logging.String(logging.FieldEventType, "storage_upload"),
		logging.String("public_url", publicURL),
		logging.Int("bytes", len(data)),
	)
	return publicURL, nil
}

func (p *Pipeline) start(ctx context.Context, run history.Run) history.Run {
	run.Status = history.StatusRunning
	run.StartedAt = p.now()
	if p.history == nil {
		return run
	}
	if err := p.history.Start(ctx, run); err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, p.logger), "failed to record run start", "history_write_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check paths.state_dir and the history database"),
			logging.String(logging.FieldImpact, "run missing from history"),
		)
	}
	return run
}

func (p *Pipeline) finish(ctx context.Context, run history.Run, result Result, runErr error) {
	logger := logging.WithContext(ctx, p.logger)
	run.FinishedAt = p.now()
	if runErr != nil {
		run.Status = history.StatusFailed
		run.ErrorKind = services.Kind(runErr)
		run.ErrorMessage = runErr.Error()
		logging.ErrorWithContext(logger, "pipeline run failed", "pipeline_failed",
			logging.String("error_kind", run.ErrorKind),
			logging.Duration("elapsed", run.Duration()),
			logging.Error(runErr),
		)
	} else {
		run.Status = history.StatusSucceeded
		run.Provenance = string(result.Provenance)
		run.Transcript = result.Transcript
		run.Segments = result.Segments
		run.PublicURL = result.PublicURL
		logger.Info("pipeline run finished",
			logging.String(logging.FieldEventType, "pipeline_finished"),
			logging.Duration("elapsed", run.Duration()),
		)
	}
	if p.history == nil {
		return
	}
	// The request context may already be cancelled; the outcome is still recorded.
	if err := p.history.Finish(context.WithoutCancel(ctx), run); err != nil {
		logging.WarnWithContext(logger, "failed to record run outcome", "history_write_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check paths.state_dir and the history database"),
			logging.String(logging.FieldImpact, "run stays in running state until the next start-up"),
		)
	}
}
