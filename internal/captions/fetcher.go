package captions

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"signscribe/internal/language"
	"signscribe/internal/logging"
	"signscribe/internal/services"
	"signscribe/internal/source"
)

// ErrNoTrack reports that the video has no caption track in an acceptable
// language, or that the chosen track was empty.
var ErrNoTrack = errors.New("no caption track in preferred languages")

// TrackSource is the caption API surface the fetcher depends on.
type TrackSource interface {
	ListTracks(ctx context.Context, id source.VideoID) ([]Track, error)
	FetchText(ctx context.Context, track Track) (string, error)
}

// Caption is the text of a selected track.
type Caption struct {
	Text     string
	Language string
	Track    Track
}

// Fetcher selects and downloads the preferred caption track for a video.
type Fetcher struct {
	tracks    TrackSource
	languages []string
	logger    *slog.Logger
}

// NewFetcher builds a Fetcher. Languages are tried in order; an empty list
// falls back to en-US, en-GB, en.
func NewFetcher(tracks TrackSource, languages []string, logger *slog.Logger) *Fetcher {
	langs := language.NormalizeList(languages)
	if len(langs) == 0 {
		langs = []string{"en-US", "en-GB", "en"}
	}
	return &Fetcher{
		tracks:    tracks,
		languages: langs,
		logger:    logging.NewComponentLogger(logger, "captions"),
	}
}

// Languages returns the preference order in use.
func (f *Fetcher) Languages() []string {
	return append([]string(nil), f.languages...)
}

// Fetch lists the tracks for id and returns the text of the first track
// matching the preference order. Owner-uploaded tracks win over generated
// ones of the same language.
//
// Every failure is tagged services.ErrCaptionUnavailable. A missing or empty
// track additionally matches ErrNoTrack, which distinguishes it from an
// unreachable caption service.
func (f *Fetcher) Fetch(ctx context.Context, id source.VideoID) (Caption, error) {
	if f == nil || f.tracks == nil {
		return Caption{}, services.Wrap(services.ErrCaptionUnavailable, "captions", "fetch", "caption source not configured", nil)
	}
	logger := logging.WithContext(ctx, f.logger)

	tracks, err := f.tracks.ListTracks(ctx, id)
	if err != nil {
		return Caption{}, services.Wrap(services.ErrCaptionUnavailable, "captions", "list tracks", "caption service request failed", err)
	}

	track, ok := f.selectTrack(tracks)
	if !ok {
		logger.Info("caption track selection",
			logging.Args(append(logging.DecisionAttrs("caption_track", "none", "no preferred language"),
				logging.Int("tracks_available", len(tracks)),
				logging.String("preferred_languages", strings.Join(f.languages, ",")),
			)...)...,
		)
		return Caption{}, services.Wrap(services.ErrCaptionUnavailable, "captions", "select track", "", ErrNoTrack)
	}
	logger.Info("caption track selection",
		logging.Args(append(logging.DecisionAttrs("caption_track", "selected", "preferred language"),
			logging.String("language", track.Language),
			logging.Bool("generated", track.Generated()),
		)...)...,
	)

	text, err := f.tracks.FetchText(ctx, track)
	if err != nil {
		return Caption{}, services.Wrap(services.ErrCaptionUnavailable, "captions", "fetch text", "caption download failed", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return Caption{}, services.Wrap(services.ErrCaptionUnavailable, "captions", "fetch text", "track "+track.Language+" is empty", ErrNoTrack)
	}
	return Caption{Text: text, Language: track.Language, Track: track}, nil
}

func (f *Fetcher) selectTrack(tracks []Track) (Track, bool) {
	var manual, generated []Track
	for _, t := range tracks {
		if t.Generated() {
			generated = append(generated, t)
		} else {
			manual = append(manual, t)
		}
	}
	for _, group := range [][]Track{manual, generated} {
		codes := make([]string, len(group))
		for i, t := range group {
			codes[i] = t.Language
		}
		if idx, ok := language.Pick(f.languages, codes); ok {
			return group[idx], true
		}
	}
	return Track{}, false
}
