package speech

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"signscribe/internal/logging"
	"signscribe/internal/services"
)

func argValue(args []string, flag string) string {
	idx := slices.Index(args, flag)
	if idx < 0 || idx+1 >= len(args) {
		return ""
	}
	return args[idx+1]
}

func TestWhisperXInferReadsJSON(t *testing.T) {
	audio := writeAudio(t)
	var gotArgs []string
	var outputDir string
	run := func(_ context.Context, name string, args ...string) error {
		if name != UVXCommand {
			t.Fatalf("unexpected command %q", name)
		}
		gotArgs = args
		outputDir = argValue(args, "--output_dir")
		payload := `{"segments":[{"text":" Hello there. "},{"text":""},{"text":"General Kenobi."}]}`
		return os.WriteFile(filepath.Join(outputDir, "audio.json"), []byte(payload), 0o644)
	}
	engine := newWhisperX(Config{Language: "en-US", VADMethod: VADMethodPyannote, HFToken: "hf_x"}, run)

	text, err := engine.Infer(context.Background(), audio)
	if err != nil {
		t.Fatalf("Infer: %v", err)
	}
	if text != "Hello there. General Kenobi." {
		t.Fatalf("unexpected text %q", text)
	}
	if argValue(gotArgs, "--language") != "en" {
		t.Errorf("expected base language flag, args %v", gotArgs)
	}
	if argValue(gotArgs, "--hf_token") != "hf_x" {
		t.Errorf("expected hf token for pyannote, args %v", gotArgs)
	}
	if argValue(gotArgs, "--model") != DefaultModel {
		t.Errorf("expected default model, args %v", gotArgs)
	}
	if argValue(gotArgs, "--device") != CPUDevice {
		t.Errorf("expected cpu device, args %v", gotArgs)
	}
	if _, err := os.Stat(outputDir); !os.IsNotExist(err) {
		t.Fatalf("expected output dir %s removed, stat err %v", outputDir, err)
	}
}

func TestWhisperXArgsCUDA(t *testing.T) {
	engine := newWhisperX(Config{CUDAEnabled: true, Model: "large-v3"}, nil)
	args := engine.buildArgs("/tmp/a.wav", "/tmp/out")
	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "--extra-index-url "+PypiIndexURL) || argValue(args, "--device") != CUDADevice {
		t.Fatalf("unexpected cuda args %v", args)
	}
	if slices.Contains(args, "--hf_token") || slices.Contains(args, "--language") {
		t.Fatalf("unexpected optional flags %v", args)
	}
}

func TestWhisperXMissingOutput(t *testing.T) {
	run := func(context.Context, string, ...string) error { return nil }
	model := NewModel(newWhisperX(Config{}, run), Config{}, logging.NewNop())
	_, err := model.Infer(context.Background(), writeAudio(t))
	if !errors.Is(err, services.ErrTranscription) {
		t.Fatalf("expected ErrTranscription, got %v", err)
	}
}

func TestWhisperXProcessFailure(t *testing.T) {
	run := func(context.Context, string, ...string) error { return errors.New("exit status 1") }
	model := NewModel(newWhisperX(Config{}, run), Config{}, logging.NewNop())
	_, err := model.Infer(context.Background(), writeAudio(t))
	if !errors.Is(err, services.ErrTranscription) || !strings.Contains(err.Error(), "exit status 1") {
		t.Fatalf("expected wrapped process failure, got %v", err)
	}
}
