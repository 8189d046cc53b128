package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"signscribe/internal/captions"
	"signscribe/internal/config"
	"signscribe/internal/history"
	"signscribe/internal/logging"
	"signscribe/internal/media"
	"signscribe/internal/services"
	"signscribe/internal/signrender"
	"signscribe/internal/speech"
	"signscribe/internal/storage"
	"signscribe/internal/transcript"
	"signscribe/internal/transcriptcache"
)

// BuildOption customizes Build.
type BuildOption func(*buildOptions)

type buildOptions struct {
	speech []speech.Option
}

// WithSpeechOptions forwards options to speech.Load.
func WithSpeechOptions(opts ...speech.Option) BuildOption {
	return func(o *buildOptions) { o.speech = append(o.speech, opts...) }
}

// Runtime owns the long-lived collaborators built from configuration.
type Runtime struct {
	Pipeline *Pipeline
	History  *history.Store
	Model    *speech.Model

	closers []io.Closer
}

// Build loads the speech model once and wires every collaborator from cfg.
// The caller must Close the runtime.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...BuildOption) (*Runtime, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "build", "config is required", nil)
	}
	var options buildOptions
	for _, opt := range opts {
		opt(&options)
	}

	rt := &Runtime{}
	built := false
	defer func() {
		if !built {
			_ = rt.Close()
		}
	}()

	if err := cfg.EnsureDirectories(); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "build", "ensure directories", err)
	}

	store, err := history.Open(cfg)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "build", "open history", err)
	}
	rt.History = store
	rt.closers = append(rt.closers, store)

	model, err := speech.Load(ctx, speech.Config{
		Engine:        cfg.Speech.Engine,
		Model:         cfg.Speech.Model,
		Language:      cfg.Speech.Language,
		CUDAEnabled:   cfg.Speech.CUDAEnabled,
		VADMethod:     cfg.Speech.VADMethod,
		HFToken:       cfg.Speech.HFToken,
		APIKey:        cfg.Speech.APIKey,
		BaseURL:       cfg.Speech.BaseURL,
		Timeout:       cfg.SpeechTimeout(),
		MaxConcurrent: cfg.Speech.MaxConcurrent,
	}, logger, options.speech...)
	if err != nil {
		return nil, err
	}
	rt.Model = model

	acquirer := media.NewAcquirer(media.Config{
		FFmpegBinary:     cfg.Media.FFmpegBinary,
		FFprobeBinary:    cfg.Media.FFprobeBinary,
		YTDLPBinary:      cfg.Media.YTDLPBinary,
		SampleRate:       cfg.Media.SampleRate,
		WorkDir:          cfg.Paths.StagingDir,
		Language:         cfg.Speech.Language,
		TranscodeTimeout: cfg.TranscodeTimeout(),
		DownloadTimeout:  cfg.DownloadTimeout(),
	}, logger)

	var resolverOpts []transcript.Option
	cache, closer, err := transcriptcache.Open(ctx, cfg, logger)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "build", "open transcript cache", err)
	}
	rt.closers = append(rt.closers, closer)
	if cache != nil {
		resolverOpts = append(resolverOpts, transcript.WithCache(cache))
	}

	// Captions stay an untyped nil when disabled so the resolver skips them.
	var fetcher transcript.CaptionFetcher
	if cfg.Captions.Enabled {
		client, err := captions.New(captions.Config{
			BaseURL: cfg.Captions.BaseURL,
			Timeout: cfg.CaptionTimeout(),
		})
		if err != nil {
			return nil, services.Wrap(services.ErrConfiguration, "pipeline", "build", "caption client", err)
		}
		fetcher = captions.NewFetcher(client, cfg.Captions.Languages, logger)
	}

	resolver := transcript.NewResolver(fetcher, acquirer, speech.NewRecognizer(model), logger, resolverOpts...)

	renderer, err := signrender.New(cfg.Render.BaseURL)
	if err != nil {
		return nil, err
	}

	var uploader storage.Uploader
	client, err := storage.NewFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	if client != nil {
		uploader = client
	}

	p, err := New(Options{
		Resolver:         resolver,
		Renderer:         renderer,
		Uploader:         uploader,
		History:          store,
		StagingDir:       cfg.Paths.StagingDir,
		MaxSegmentLength: cfg.Segment.MaxLength,
		MaxUploadBytes:   cfg.MaxUploadBytes(),
		Logger:           logger,
	})
	if err != nil {
		return nil, err
	}
	rt.Pipeline = p

	logging.NewComponentLogger(logger, "pipeline").Info("pipeline ready",
		logging.String("speech_engine", model.Engine()),
		logging.String("speech_model", model.Name()),
		logging.Bool("captions_enabled", fetcher != nil),
		logging.String("cache_backend", cfg.Cache.Backend),
		logging.Bool("storage_enabled", uploader != nil),
	)
	built = true
	return rt, nil
}

// Close releases the history store and cache connections.
func (r *Runtime) Close() error {
	if r == nil {
		return nil
	}
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	r.closers = nil
	return errors.Join(errs...)
}
