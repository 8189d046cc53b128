package audio

import (
	"strconv"
	"strings"

	"signscribe/internal/language"
	"signscribe/internal/media/ffprobe"
)

// Selection describes the audio stream chosen for transcription.
type Selection struct {
	Stream ffprobe.Stream
	Index  int
}

// Label returns a human-readable summary of the selected stream.
func (s Selection) Label() string {
	if s.Index < 0 {
		return ""
	}
	return formatStreamSummary(s.Stream)
}

// Select picks the audio stream most likely to carry the main dialogue.
// Streams tagged with the preferred language win, then the container's
// default stream; commentary tracks are ranked last. An empty preference
// skips the language check. Index is -1 when there is no audio stream.
func Select(streams []ffprobe.Stream, preferred string) Selection {
	want := language.Base(preferred)
	best := Selection{Index: -1}
	bestScore := 0
	order := 0
	for _, stream := range streams {
		if !stream.IsAudio() {
			continue
		}
		score := scoreStream(stream, want) - order
		order++
		if best.Index < 0 || score > bestScore {
			best = Selection{Stream: stream, Index: stream.Index}
			bestScore = score
		}
	}
	return best
}

func scoreStream(stream ffprobe.Stream, want string) int {
	score := 0
	if want != "" && streamLanguage(stream) == want {
		score += 1000
	}
	if stream.IsDefault() {
		score += 100
	}
	if strings.Contains(strings.ToLower(stream.Tag("title", "handler_name")), "commentary") || stream.Disposition["comment"] == 1 {
		score -= 500
	}
	return score
}

// streamLanguage maps a stream's language tag ("eng", "en-US") to its base
// subtag. Three-letter codes are resolved through BCP 47 canonicalization.
func streamLanguage(stream ffprobe.Stream) string {
	tag := stream.Tag("language", "language_ietf", "lang")
	if tag == "" || strings.EqualFold(tag, "und") {
		return ""
	}
	return language.Base(tag)
}

func formatStreamSummary(stream ffprobe.Stream) string {
	parts := make([]string, 0, 4)
	if lang := stream.Tag("language"); lang != "" {
		parts = append(parts, strings.ToLower(lang))
	}
	codec := stream.CodecLong
	if codec == "" {
		codec = stream.CodecName
	}
	if codec != "" {
		parts = append(parts, codec)
	}
	if stream.Channels > 0 {
		parts = append(parts, strconv.Itoa(stream.Channels)+"ch")
	}
	if title := stream.Tag("title"); title != "" {
		parts = append(parts, title)
	}
	if len(parts) == 0 {
		return "audio"
	}
	return strings.Join(parts, " | ")
}
