package config

import (
	"fmt"
	"os"
	"strings"

	"signscribe/internal/language"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeServer()
	if err := c.normalizeCaptions(); err != nil {
		return err
	}
	c.normalizeMedia()
	c.normalizeSpeech()
	if c.Segment.MaxLength <= 0 {
		c.Segment.MaxLength = defaultMaxSegmentLength
	}
	c.normalizeStorage()
	c.Render.BaseURL = strings.TrimSpace(c.Render.BaseURL)
	if c.Render.BaseURL == "" {
		c.Render.BaseURL = defaultRenderBaseURL
	}
	c.normalizeCache()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	fields := []struct {
		name     string
		value    *string
		fallback string
	}{
		{"paths.staging_dir", &c.Paths.StagingDir, defaultStagingDir},
		{"paths.state_dir", &c.Paths.StateDir, defaultStateDir},
		{"paths.log_dir", &c.Paths.LogDir, defaultLogDir},
		{"paths.cache_dir", &c.Paths.CacheDir, defaultCacheDir},
	}
	for _, field := range fields {
		if strings.TrimSpace(*field.value) == "" {
			*field.value = field.fallback
		}
		expanded, err := expandPath(strings.TrimSpace(*field.value))
		if err != nil {
			return fmt.Errorf("%s: %w", field.name, err)
		}
		*field.value = expanded
	}
	return nil
}

func (c *Config) normalizeServer() {
	c.Server.Bind = strings.TrimSpace(c.Server.Bind)
	if c.Server.Bind == "" {
		c.Server.Bind = defaultBind
	}
	if c.Server.MaxUploadMiB <= 0 {
		c.Server.MaxUploadMiB = defaultMaxUploadMiB
	}
	if c.Server.RequestTimeout <= 0 {
		c.Server.RequestTimeout = defaultRequestTimeout
	}
	if c.Server.StaleStagingAge <= 0 {
		c.Server.StaleStagingAge = defaultStaleStagingAge
	}
}

func (c *Config) normalizeCaptions() error {
	c.Captions.BaseURL = strings.TrimSpace(c.Captions.BaseURL)
	if c.Captions.BaseURL == "" {
		c.Captions.BaseURL = defaultCaptionBaseURL
	}
	if c.Captions.Timeout <= 0 {
		c.Captions.Timeout = defaultCaptionTimeout
	}
	langs := make([]string, 0, len(c.Captions.Languages))
	seen := make(map[string]struct{}, len(c.Captions.Languages))
	for _, raw := range c.Captions.Languages {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		code, err := language.Canonical(raw)
		if err != nil {
			return fmt.Errorf("captions.languages: %w", err)
		}
		if _, ok := seen[code]; ok {
			continue
		}
		seen[code] = struct{}{}
		langs = append(langs, code)
	}
	if len(langs) == 0 {
		langs = append(langs, DefaultCaptionLanguages...)
	}
	c.Captions.Languages = langs
	return nil
}

func (c *Config) normalizeMedia() {
	c.Media.FFmpegBinary = firstNonEmpty(c.Media.FFmpegBinary, defaultFFmpegBinary)
	c.Media.FFprobeBinary = firstNonEmpty(c.Media.FFprobeBinary, defaultFFprobeBinary)
	c.Media.YTDLPBinary = firstNonEmpty(c.Media.YTDLPBinary, defaultYTDLPBinary)
	if c.Media.SampleRate <= 0 {
		c.Media.SampleRate = defaultSampleRate
	}
	if c.Media.TranscodeTimeout <= 0 {
		c.Media.TranscodeTimeout = defaultTranscodeTimeout
	}
	if c.Media.DownloadTimeout <= 0 {
		c.Media.DownloadTimeout = defaultDownloadTimeout
	}
}

func (c *Config) normalizeSpeech() {
	c.Speech.Engine = strings.ToLower(firstNonEmpty(c.Speech.Engine, defaultSpeechEngine))
	c.Speech.Model = firstNonEmpty(c.Speech.Model, defaultSpeechModel)
	c.Speech.Language = strings.ToLower(strings.TrimSpace(c.Speech.Language))
	c.Speech.VADMethod = strings.ToLower(firstNonEmpty(c.Speech.VADMethod, defaultVADMethod))
	c.Speech.HFToken = strings.TrimSpace(c.Speech.HFToken)
	if c.Speech.HFToken == "" {
		c.Speech.HFToken = envFirst("HUGGING_FACE_HUB_TOKEN", "HF_TOKEN")
	}
	c.Speech.APIKey = strings.TrimSpace(c.Speech.APIKey)
	if c.Speech.APIKey == "" && c.Speech.Engine == SpeechEngineOpenAI {
		c.Speech.APIKey = envFirst("OPENAI_API_KEY")
	}
	c.Speech.BaseURL = strings.TrimRight(strings.TrimSpace(c.Speech.BaseURL), "/")
	if c.Speech.BaseURL == "" && c.Speech.Engine == SpeechEngineOpenAI {
		c.Speech.BaseURL = defaultOpenAIBaseURL
	}
	if c.Speech.Timeout <= 0 {
		c.Speech.Timeout = defaultSpeechTimeout
	}
	if c.Speech.MaxConcurrent <= 0 {
		c.Speech.MaxConcurrent = defaultMaxConcurrent
	}
}

func (c *Config) normalizeStorage() {
	c.Storage.ProjectURL = strings.TrimRight(strings.TrimSpace(c.Storage.ProjectURL), "/")
	if c.Storage.ProjectURL == "" {
		c.Storage.ProjectURL = strings.TrimRight(envFirst("SUPABASE_URL", "PROJECT_URL"), "/")
	}
	c.Storage.APIKey = strings.TrimSpace(c.Storage.APIKey)
	if c.Storage.APIKey == "" {
		c.Storage.APIKey = envFirst("SUPABASE_KEY", "ANON_PUBLIC_KEY")
	}
	c.Storage.Bucket = firstNonEmpty(c.Storage.Bucket, defaultStorageBucket)
	if c.Storage.Timeout <= 0 {
		c.Storage.Timeout = defaultStorageTimeout
	}
}

func (c *Config) normalizeCache() {
	c.Cache.Backend = strings.ToLower(firstNonEmpty(c.Cache.Backend, defaultCacheBackend))
	c.Cache.RedisAddr = strings.TrimSpace(c.Cache.RedisAddr)
	if c.Cache.RedisAddr == "" && c.Cache.Backend == CacheBackendRedis {
		c.Cache.RedisAddr = envFirst("REDIS_ADDR")
	}
	if c.Cache.TTLHours <= 0 {
		c.Cache.TTLHours = defaultCacheTTLHours
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format != "json" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func firstNonEmpty(value, fallback string) string {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		return trimmed
	}
	return fallback
}

func envFirst(keys ...string) string {
	for _, key := range keys {
		if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}
