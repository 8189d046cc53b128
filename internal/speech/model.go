package speech

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"signscribe/internal/logging"
	"signscribe/internal/services"
)

// Engine names accepted in Config.Engine.
const (
	EngineWhisperX = "whisperx"
	EngineOpenAI   = "openai"
)

// Config holds the static recognition settings read at start-up.
type Config struct {
	Engine        string
	Model         string
	Language      string
	CUDAEnabled   bool
	VADMethod     string
	HFToken       string
	APIKey        string
	BaseURL       string
	Timeout       time.Duration
	MaxConcurrent int
}

// Engine performs one inference over a WAV file.
type Engine interface {
	Name() string
	Infer(ctx context.Context, audioPath string) (string, error)
}

// Option customizes Load.
type Option func(*loadOptions)

type loadOptions struct {
	run        CommandRunner
	lookPath   func(string) (string, error)
	httpClient *http.Client
}

// WithCommandRunner replaces the process runner used by the whisperx engine.
func WithCommandRunner(run CommandRunner) Option {
	return func(o *loadOptions) { o.run = run }
}

// WithLookPath replaces binary discovery during Load.
func WithLookPath(lookPath func(string) (string, error)) Option {
	return func(o *loadOptions) { o.lookPath = lookPath }
}

// WithHTTPClient sets the client used by the openai engine.
func WithHTTPClient(client *http.Client) Option {
	return func(o *loadOptions) { o.httpClient = client }
}

// Model is the process-wide recognition handle. It is read-only after Load
// and safe for concurrent use; inference is limited to MaxConcurrent calls.
type Model struct {
	engine  Engine
	name    string
	timeout time.Duration
	slots   chan struct{}
	logger  *slog.Logger
}

// Load prepares the configured engine. Failures are tagged
// services.ErrTranscription and are not retried.
func Load(ctx context.Context, cfg Config, logger *slog.Logger, opts ...Option) (*Model, error) {
	options := loadOptions{lookPath: defaultLookPath}
	for _, opt := range opts {
		opt(&options)
	}
	if err := ctx.Err(); err != nil {
		return nil, services.Wrap(services.ErrTranscription, "speech", "load", "", err)
	}

	var engine Engine
	switch strings.ToLower(strings.TrimSpace(cfg.Engine)) {
	case "", EngineWhisperX:
		if _, err := options.lookPath(UVXCommand); err != nil {
			return nil, services.Wrap(services.ErrTranscription, "speech", "load", "uvx is required for the whisperx engine", err)
		}
		engine = newWhisperX(cfg, options.run)
	case EngineOpenAI:
		oa, err := newOpenAI(cfg, options.httpClient)
		if err != nil {
			return nil, services.Wrap(services.ErrTranscription, "speech", "load", "", err)
		}
		engine = oa
	default:
		return nil, services.Wrap(services.ErrTranscription, "speech", "load", fmt.Sprintf("unknown engine %q", cfg.Engine), nil)
	}

	model := NewModel(engine, cfg, logger)
	model.logger.Info("speech model loaded",
		logging.String("engine", engine.Name()),
		logging.String("model", model.name),
		logging.Int("max_concurrent", cap(model.slots)),
	)
	return model, nil
}

// NewModel wraps an Engine directly. Load is the normal constructor.
func NewModel(engine Engine, cfg Config, logger *slog.Logger) *Model {
	limit := cfg.MaxConcurrent
	if limit <= 0 {
		limit = 1
	}
	name := strings.TrimSpace(cfg.Model)
	if name == "" {
		name = DefaultModel
	}
	return &Model{
		engine:  engine,
		name:    name,
		timeout: cfg.Timeout,
		slots:   make(chan struct{}, limit),
		logger:  logging.NewComponentLogger(logger, "speech"),
	}
}

// Name returns the configured model name.
func (m *Model) Name() string { return m.name }

// Engine returns the engine name.
func (m *Model) Engine() string { return m.engine.Name() }

// Infer runs recognition once, waiting for a free slot first. An empty
// transcript is a valid result.
func (m *Model) Infer(ctx context.Context, audioPath string) (string, error) {
	if m == nil || m.engine == nil {
		return "", services.Wrap(services.ErrTranscription, "speech", "infer", "model not loaded", nil)
	}
	if _, err := os.Stat(audioPath); err != nil {
		return "", services.Wrap(services.ErrTranscription, "speech", "infer", "audio artifact missing", err)
	}

	select {
	case m.slots <- struct{}{}:
	case <-ctx.Done():
		return "", services.Wrap(services.ErrTranscription, "speech", "infer", "waiting for a free inference slot", ctx.Err())
	}
	defer func() { <-m.slots }()

	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	started := time.Now()
	text, err := m.engine.Infer(ctx, audioPath)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
			err = fmt.Errorf("%w: %w", ctxErr, err)
		}
		return "", services.Wrap(services.ErrTranscription, "speech", "infer", m.engine.Name()+" failed", err)
	}
	text = strings.Join(strings.Fields(text), " ")
	logging.WithContext(ctx, m.logger).Info("speech recognized",
		logging.String("engine", m.engine.Name()),
		logging.Int("characters", len(text)),
		logging.Duration("elapsed", time.Since(started)),
	)
	return text, nil
}
