package transcript

import (
	"context"

	"signscribe/internal/captions"
	"signscribe/internal/media"
	"signscribe/internal/source"
)

// Provenance records where transcript text came from.
type Provenance string

const (
	ProvenanceCaption Provenance = "caption"
	ProvenanceSpeech  Provenance = "speech_recognition"
)

// Transcript is resolved text plus its provenance.
type Transcript struct {
	Text       string     `json:"text"`
	Provenance Provenance `json:"provenance"`
	Language   string     `json:"language,omitempty"`
}

// CaptionFetcher returns platform captions for a remote video.
type CaptionFetcher interface {
	Fetch(ctx context.Context, id source.VideoID) (captions.Caption, error)
}

// AudioAcquirer produces a normalized audio artifact the caller must release.
type AudioAcquirer interface {
	ExtractAudio(ctx context.Context, src source.VideoSource) (*media.Audio, error)
}

// SpeechRecognizer converts an audio artifact to text.
type SpeechRecognizer interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

// Cache stores resolved transcripts by video identifier.
type Cache interface {
	Get(ctx context.Context, id source.VideoID) (Transcript, bool, error)
	Put(ctx context.Context, id source.VideoID, t Transcript) error
}
