package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"signscribe/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantStaging := filepath.Join(tempHome, ".local", "share", "signscribe", "staging")
	if cfg.Paths.StagingDir != wantStaging {
		t.Fatalf("unexpected staging dir: got %q want %q", cfg.Paths.StagingDir, wantStaging)
	}
	if cfg.HistoryDBPath() != filepath.Join(tempHome, ".local", "share", "signscribe", "history.db") {
		t.Fatalf("unexpected history db path: %q", cfg.HistoryDBPath())
	}
	if cfg.Segment.MaxLength != 100 {
		t.Fatalf("expected default max length 100, got %d", cfg.Segment.MaxLength)
	}
	if strings.Join(cfg.Captions.Languages, ",") != "en-US,en-GB,en" {
		t.Fatalf("unexpected caption languages: %v", cfg.Captions.Languages)
	}
	if cfg.Speech.Engine != config.SpeechEngineWhisperX || cfg.Speech.Model != "base" {
		t.Fatalf("unexpected speech defaults: %+v", cfg.Speech)
	}
	if cfg.Storage.Enabled {
		t.Fatal("expected storage disabled by default")
	}
	if cfg.Cache.Backend != config.CacheBackendNone {
		t.Fatalf("expected cache disabled by default, got %q", cfg.Cache.Backend)
	}
	if cfg.CaptionTimeout() != 15*time.Second {
		t.Fatalf("unexpected caption timeout %s", cfg.CaptionTimeout())
	}
	if cfg.MaxUploadBytes() != 512<<20 {
		t.Fatalf("unexpected upload limit %d", cfg.MaxUploadBytes())
	}
}

func TestLoadCustomConfigOverrides(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg := config.Default()
	cfg.Paths.StagingDir = "~/custom/staging"
	cfg.Captions.Languages = []string{" en_gb ", "EN-us", "en-GB"}
	cfg.Segment.MaxLength = 80
	cfg.Speech.MaxConcurrent = 2
	cfg.Logging.Format = "JSON"

	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	path := filepath.Join(t.TempDir(), "signscribe.toml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	loaded, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected explicit config to be used, got %q exists=%v", resolved, exists)
	}
	if loaded.Paths.StagingDir != filepath.Join(tempHome, "custom", "staging") {
		t.Fatalf("unexpected staging dir %q", loaded.Paths.StagingDir)
	}
	if got := strings.Join(loaded.Captions.Languages, ","); got != "en-GB,en-US" {
		t.Fatalf("expected canonical deduplicated languages, got %q", got)
	}
	if loaded.Segment.MaxLength != 80 || loaded.Speech.MaxConcurrent != 2 {
		t.Fatalf("overrides not applied: %+v %+v", loaded.Segment, loaded.Speech)
	}
	if loaded.Logging.Format != "json" {
		t.Fatalf("expected json format, got %q", loaded.Logging.Format)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(path, []byte("[segment]\nmax_lenght = 50\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected unknown key to be rejected")
	}
}

func TestStorageCredentialsFromEnv(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("SUPABASE_URL", "")
	t.Setenv("SUPABASE_KEY", "")
	t.Setenv("PROJECT_URL", "https://example.supabase.co/")
	t.Setenv("ANON_PUBLIC_KEY", "anon")

	path := filepath.Join(t.TempDir(), "storage.toml")
	if err := os.WriteFile(path, []byte("[storage]\nenabled = true\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Storage.ProjectURL != "https://example.supabase.co" {
		t.Fatalf("unexpected project url %q", cfg.Storage.ProjectURL)
	}
	if cfg.Storage.APIKey != "anon" {
		t.Fatalf("unexpected api key %q", cfg.Storage.APIKey)
	}
	if cfg.Storage.Bucket != "video-to-sign" {
		t.Fatalf("unexpected bucket %q", cfg.Storage.Bucket)
	}
	if redacted := cfg.Redacted(); redacted.Storage.APIKey == "anon" {
		t.Fatal("expected redacted copy to mask api key")
	}
	if cfg.Storage.APIKey != "anon" {
		t.Fatal("redaction must not modify the original")
	}
}

func TestValidateRejectsBadSettings(t *testing.T) {
	cases := map[string]func(*config.Config){
		"storage without url": func(c *config.Config) {
			c.Storage.Enabled = true
			c.Storage.APIKey = "k"
			c.Storage.ProjectURL = ""
		},
		"openai without key": func(c *config.Config) {
			c.Speech.Engine = config.SpeechEngineOpenAI
			c.Speech.BaseURL = "https://api.openai.com/v1"
		},
		"unknown engine": func(c *config.Config) {
			c.Speech.Engine = "kaldi"
		},
		"redis without addr": func(c *config.Config) {
			c.Cache.Backend = config.CacheBackendRedis
		},
		"tiny segments": func(c *config.Config) {
			c.Segment.MaxLength = 3
		},
		"bad render url": func(c *config.Config) {
			c.Render.BaseURL = "ftp://sign"
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := config.Default()
			mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error for %s", name)
			}
		})
	}
}

func TestCreateSampleIsLoadable(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}
	if _, _, exists, err := config.Load(path); err != nil || !exists {
		t.Fatalf("expected sample to load, exists=%v err=%v", exists, err)
	}
}

func TestEnsureDirectoriesCreatesFileCacheDir(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.StagingDir = filepath.Join(base, "staging")
	cfg.Paths.StateDir = filepath.Join(base, "state")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.CacheDir = filepath.Join(base, "cache")
	cfg.Cache.Backend = config.CacheBackendFile

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories returned error: %v", err)
	}
	for _, dir := range []string{cfg.Paths.StagingDir, cfg.Paths.StateDir, cfg.Paths.LogDir, cfg.Paths.CacheDir} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Fatalf("expected directory %s: %v", dir, err)
		}
	}
}
