package pipeline

import (
	"context"
	"errors"
	"testing"

	"signscribe/internal/config"
	"signscribe/internal/logging"
	"signscribe/internal/services"
	"signscribe/internal/speech"
	"signscribe/internal/testsupport"
)

func TestBuildWiresRuntime(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithCacheBackend(config.CacheBackendFile))
	cfg.Speech.Engine = config.SpeechEngineWhisperX

	rt, err := Build(context.Background(), cfg, logging.NewNop(),
		WithSpeechOptions(speech.WithLookPath(func(name string) (string, error) { return "/usr/bin/" + name, nil })),
	)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer rt.Close()

	if rt.Pipeline == nil || rt.History == nil || rt.Model == nil {
		t.Fatalf("incomplete runtime %+v", rt)
	}
	if rt.Model.Engine() != speech.EngineWhisperX {
		t.Fatalf("engine = %q", rt.Model.Engine())
	}
	if rt.Pipeline.maxLength != cfg.Segment.MaxLength {
		t.Fatalf("max length = %d", rt.Pipeline.maxLength)
	}
	if rt.Pipeline.uploader != nil {
		t.Fatal("storage is disabled in test config")
	}
}

func TestBuildFailsWithoutSpeechEngine(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Speech.Engine = config.SpeechEngineOpenAI
	cfg.Speech.APIKey = ""

	rt, err := Build(context.Background(), cfg, logging.NewNop())
	if !errors.Is(err, services.ErrTranscription) {
		t.Fatalf("expected ErrTranscription, got %v", err)
	}
	if rt != nil {
		t.Fatal("runtime should be nil on failure")
	}
}

func TestRuntimeCloseNil(t *testing.T) {
	var rt *Runtime
	if err := rt.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
