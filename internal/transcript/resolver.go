package transcript

import (
	"context"
	"errors"
	"log/slog"

	"signscribe/internal/captions"
	"signscribe/internal/logging"
	"signscribe/internal/services"
	"signscribe/internal/source"
)

const decisionType = "transcript_source"

// Option customizes a Resolver.
type Option func(*Resolver)

// WithCache enables the transcript cache for remote sources.
func WithCache(cache Cache) Option {
	return func(r *Resolver) { r.cache = cache }
}

// Resolver obtains a transcript for a source, preferring platform captions
// over speech recognition.
type Resolver struct {
	captions   CaptionFetcher
	acquirer   AudioAcquirer
	recognizer SpeechRecognizer
	cache      Cache
	logger     *slog.Logger
}

// NewResolver builds a Resolver. A nil CaptionFetcher disables the caption
// path.
func NewResolver(fetcher CaptionFetcher, acquirer AudioAcquirer, recognizer SpeechRecognizer, logger *slog.Logger, opts ...Option) *Resolver {
	r := &Resolver{
		captions:   fetcher,
		acquirer:   acquirer,
		recognizer: recognizer,
		logger:     logging.NewComponentLogger(logger, "transcript"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve runs the caption-then-recognition state machine for src.
//
// Remote sources are identified first; an unparseable URL fails with
// services.ErrInvalidSource before any network or process call. Caption
// failures fall through to recognition. Acquisition errors keep their own
// kind and recognition errors are services.ErrTranscription. The temporary
// audio artifact is released on every path.
func (r *Resolver) Resolve(ctx context.Context, src source.VideoSource) (Transcript, error) {
	logger := logging.WithContext(ctx, r.logger)

	if src.IsRemote() {
		id, err := src.Identify()
		if err != nil {
			logger.Info("transcript source decision", logging.Args(append(
				logging.DecisionAttrs(decisionType, "failed", "invalid_identifier"),
				logging.String("state", "start"),
			)...)...)
			return Transcript{}, err
		}
		if t, ok := r.lookupCache(ctx, logger, id); ok {
			return t, nil
		}
		if t, ok := r.tryCaptions(ctx, logger, id); ok {
			r.storeCache(ctx, logger, id, t)
			return t, nil
		}
		t, err := r.recognize(ctx, logger, src)
		if err != nil {
			return Transcript{}, err
		}
		r.storeCache(ctx, logger, id, t)
		return t, nil
	}

	logger.Info("transcript source decision", logging.Args(append(
		logging.DecisionAttrs(decisionType, "speech_recognition", "local_file_has_no_captions"),
		logging.String("state", "audio_acquire"),
	)...)...)
	return r.recognize(ctx, logger, src)
}

func (r *Resolver) tryCaptions(ctx context.Context, logger *slog.Logger, id source.VideoID) (Transcript, bool) {
	if r.captions == nil {
		logger.Info("transcript source decision", logging.Args(append(
			logging.DecisionAttrs(decisionType, "speech_recognition", "captions_disabled"),
			logging.String("state", "caption_unavailable"),
		)...)...)
		return Transcript{}, false
	}

	caption, err := r.captions.Fetch(services.WithStage(ctx, "caption_attempt"), id)
	if err != nil {
		reason := "caption_service_error"
		if errors.Is(err, captions.ErrNoTrack) {
			reason = "no_preferred_track"
		}
		logger.Info("transcript source decision", logging.Args(append(
			logging.DecisionAttrs(decisionType, "speech_recognition", reason),
			logging.String("state", "caption_unavailable"),
			logging.String("video_id", string(id)),
			logging.String("error_kind", services.Kind(err)),
			logging.Error(err),
		)...)...)
		return Transcript{}, false
	}

	logger.Info("transcript source decision", logging.Args(append(
		logging.DecisionAttrs(decisionType, string(ProvenanceCaption), "caption_found"),
		logging.String("state", "caption_found"),
		logging.String("video_id", string(id)),
		logging.String("language", caption.Language),
	)...)...)
	return Transcript{Text: caption.Text, Provenance: ProvenanceCaption, Language: caption.Language}, true
}

func (r *Resolver) recognize(ctx context.Context, logger *slog.Logger, src source.VideoSource) (Transcript, error) {
	if r.acquirer == nil || r.recognizer == nil {
		return Transcript{}, services.Wrap(services.ErrTranscription, "transcript", "recognize", "speech recognition is not configured", nil)
	}

	audio, err := r.acquirer.ExtractAudio(services.WithStage(ctx, "audio_acquire"), src)
	if err != nil {
		logger.Info("transcript source decision", logging.Args(append(
			logging.DecisionAttrs(decisionType, "failed", "audio_acquire_failed"),
			logging.String("state", "failed"),
			logging.String("error_kind", services.Kind(err)),
		)...)...)
		return Transcript{}, err
	}
	defer func() {
		if err := audio.Release(); err != nil {
			logging.WarnWithContext(logger, "audio artifact cleanup failed", "audio_release_failed",
				logging.String(logging.FieldImpact, "temporary audio left in staging"),
				logging.String(logging.FieldErrorHint, "stale staging sweep removes it on next start"),
				logging.Error(err),
			)
		}
	}()

	text, err := r.recognizer.Transcribe(services.WithStage(ctx, "speech_recognize"), audio.Path)
	if err != nil {
		if !errors.Is(err, services.ErrTranscription) {
			err = services.Wrap(services.ErrTranscription, "transcript", "recognize", "", err)
		}
		logger.Info("transcript source decision", logging.Args(append(
			logging.DecisionAttrs(decisionType, "failed", "speech_recognition_failed"),
			logging.String("state", "failed"),
		)...)...)
		return Transcript{}, err
	}

	logger.Info("transcript source decision", logging.Args(append(
		logging.DecisionAttrs(decisionType, string(ProvenanceSpeech), "speech_recognized"),
		logging.String("state", "done"),
		logging.Bool("empty", text == ""),
	)...)...)
	return Transcript{Text: text, Provenance: ProvenanceSpeech}, nil
}

func (r *Resolver) lookupCache(ctx context.Context, logger *slog.Logger, id source.VideoID) (Transcript, bool) {
	if r.cache == nil {
		return Transcript{}, false
	}
	t, ok, err := r.cache.Get(ctx, id)
	if err != nil {
		logging.WarnWithContext(logger, "transcript cache lookup failed", "transcript_cache_get_failed",
			logging.String(logging.FieldImpact, "transcript resolved without cache"),
			logging.String(logging.FieldErrorHint, "check cache backend availability"),
			logging.Error(err),
		)
		return Transcript{}, false
	}
	if !ok {
		logger.Debug("transcript cache miss", logging.String("video_id", string(id)))
		return Transcript{}, false
	}
	logger.Info("transcript source decision", logging.Args(append(
		logging.DecisionAttrs(decisionType, string(t.Provenance), "cache_hit"),
		logging.String("state", "done"),
		logging.String("video_id", string(id)),
	)...)...)
	return t, true
}

func (r *Resolver) storeCache(ctx context.Context, logger *slog.Logger, id source.VideoID, t Transcript) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Put(ctx, id, t); err != nil {
		logging.WarnWithContext(logger, "transcript cache store failed", "transcript_cache_put_failed",
			logging.String(logging.FieldImpact, "next request for this video resolves again"),
			logging.String(logging.FieldErrorHint, "check cache backend availability"),
			logging.Error(err),
		)
	}
}
