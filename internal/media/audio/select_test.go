package audio

import (
	"testing"

	"signscribe/internal/media/ffprobe"
)

func TestSelectPrefersLanguage(t *testing.T) {
	streams := []ffprobe.Stream{
		{Index: 0, CodecType: "video"},
		{Index: 1, CodecType: "audio", CodecName: "ac3", Channels: 6, Tags: map[string]string{"language": "fre"}, Disposition: map[string]int{"default": 1}},
		{Index: 2, CodecType: "audio", CodecName: "aac", Channels: 2, Tags: map[string]string{"language": "eng"}},
	}
	sel := Select(streams, "en")
	if sel.Index != 2 {
		t.Fatalf("expected english stream 2, got %d", sel.Index)
	}
	if got := sel.Label(); got != "eng | aac | 2ch" {
		t.Fatalf("unexpected label %q", got)
	}
}

func TestSelectPrefersDefaultWithoutLanguage(t *testing.T) {
	streams := []ffprobe.Stream{
		{Index: 1, CodecType: "audio"},
		{Index: 2, CodecType: "audio", Disposition: map[string]int{"default": 1}},
	}
	if sel := Select(streams, ""); sel.Index != 2 {
		t.Fatalf("expected default stream 2, got %d", sel.Index)
	}
}

func TestSelectAvoidsCommentary(t *testing.T) {
	streams := []ffprobe.Stream{
		{Index: 1, CodecType: "audio", Tags: map[string]string{"language": "eng", "title": "Director Commentary"}, Disposition: map[string]int{"default": 1}},
		{Index: 2, CodecType: "audio", Tags: map[string]string{"language": "eng"}},
	}
	if sel := Select(streams, "en"); sel.Index != 2 {
		t.Fatalf("expected main dialogue stream 2, got %d", sel.Index)
	}
}

func TestSelectKeepsContainerOrderOnTie(t *testing.T) {
	streams := []ffprobe.Stream{
		{Index: 3, CodecType: "audio"},
		{Index: 4, CodecType: "audio"},
	}
	if sel := Select(streams, "en"); sel.Index != 3 {
		t.Fatalf("expected first stream, got %d", sel.Index)
	}
}

func TestSelectWithoutAudio(t *testing.T) {
	sel := Select([]ffprobe.Stream{{Index: 0, CodecType: "video"}}, "en")
	if sel.Index != -1 || sel.Label() != "" {
		t.Fatalf("expected empty selection, got %+v", sel)
	}
}
