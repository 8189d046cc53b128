package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateCaptions(); err != nil {
		return err
	}
	if err := c.validateSpeech(); err != nil {
		return err
	}
	if err := c.validateStorage(); err != nil {
		return err
	}
	if err := c.validateCache(); err != nil {
		return err
	}
	if _, err := parseHTTPURL(c.Render.BaseURL); err != nil {
		return fmt.Errorf("render.base_url: %w", err)
	}
	if c.Segment.MaxLength < 10 {
		return errors.New("segment.max_length must be at least 10")
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}

func (c *Config) validateCaptions() error {
	if !c.Captions.Enabled {
		return nil
	}
	if _, err := parseHTTPURL(c.Captions.BaseURL); err != nil {
		return fmt.Errorf("captions.base_url: %w", err)
	}
	if len(c.Captions.Languages) == 0 {
		return errors.New("captions.languages must include at least one language")
	}
	return nil
}

func (c *Config) validateSpeech() error {
	switch c.Speech.Engine {
	case SpeechEngineWhisperX:
		switch c.Speech.VADMethod {
		case "silero", "pyannote":
		default:
			return fmt.Errorf("speech.vad_method: unsupported value %q (use silero or pyannote)", c.Speech.VADMethod)
		}
	case SpeechEngineOpenAI:
		if c.Speech.APIKey == "" {
			return errors.New("speech.api_key must be set when speech.engine is openai (or set OPENAI_API_KEY)")
		}
		if _, err := parseHTTPURL(c.Speech.BaseURL); err != nil {
			return fmt.Errorf("speech.base_url: %w", err)
		}
	default:
		return fmt.Errorf("speech.engine: unsupported value %q (use whisperx or openai)", c.Speech.Engine)
	}
	if c.Speech.MaxConcurrent > 16 {
		return errors.New("speech.max_concurrent must be between 1 and 16")
	}
	return nil
}

func (c *Config) validateStorage() error {
	if !c.Storage.Enabled {
		return nil
	}
	if _, err := parseHTTPURL(c.Storage.ProjectURL); err != nil {
		return fmt.Errorf("storage.project_url must be set when storage.enabled is true (or set SUPABASE_URL): %w", err)
	}
	if c.Storage.APIKey == "" {
		return errors.New("storage.api_key must be set when storage.enabled is true (or set SUPABASE_KEY)")
	}
	if strings.ContainsAny(c.Storage.Bucket, "/ ") {
		return fmt.Errorf("storage.bucket: invalid bucket name %q", c.Storage.Bucket)
	}
	return nil
}

func (c *Config) validateCache() error {
	switch c.Cache.Backend {
	case CacheBackendNone, CacheBackendFile:
	case CacheBackendRedis:
		if c.Cache.RedisAddr == "" {
			return errors.New("cache.redis_addr must be set when cache.backend is redis (or set REDIS_ADDR)")
		}
	default:
		return fmt.Errorf("cache.backend: unsupported value %q (use none, file, or redis)", c.Cache.Backend)
	}
	return nil
}

func parseHTTPURL(raw string) (*url.URL, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, errors.New("empty url")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return nil, errors.New("missing host")
	}
	return parsed, nil
}
