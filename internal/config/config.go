package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	StagingDir string `toml:"staging_dir"`
	StateDir   string `toml:"state_dir"`
	LogDir     string `toml:"log_dir"`
	CacheDir   string `toml:"cache_dir"`
}

// Server contains HTTP API settings.
type Server struct {
	Bind            string `toml:"bind"`
	MaxUploadMiB    int    `toml:"max_upload_mib"`
	RequestTimeout  int    `toml:"request_timeout"`
	StaleStagingAge int    `toml:"stale_staging_age"`
}

// Captions contains configuration for the platform caption lookup.
type Captions struct {
	Enabled   bool     `toml:"enabled"`
	BaseURL   string   `toml:"base_url"`
	Languages []string `toml:"languages"`
	Timeout   int      `toml:"timeout"`
}

// Media contains external tool settings for audio acquisition.
type Media struct {
	FFmpegBinary     string `toml:"ffmpeg_binary"`
	FFprobeBinary    string `toml:"ffprobe_binary"`
	YTDLPBinary      string `toml:"ytdlp_binary"`
	SampleRate       int    `toml:"sample_rate"`
	TranscodeTimeout int    `toml:"transcode_timeout"`
	DownloadTimeout  int    `toml:"download_timeout"`
}

// Speech contains speech recognition settings. The engine and model are
// static for the lifetime of the process.
type Speech struct {
	Engine        string `toml:"engine"`
	Model         string `toml:"model"`
	Language      string `toml:"language"`
	CUDAEnabled   bool   `toml:"cuda_enabled"`
	VADMethod     string `toml:"vad_method"`
	HFToken       string `toml:"hf_token"`
	APIKey        string `toml:"api_key"`
	BaseURL       string `toml:"base_url"`
	Timeout       int    `toml:"timeout"`
	MaxConcurrent int    `toml:"max_concurrent"`
}

// Segment contains transcript segmentation settings.
type Segment struct {
	MaxLength int `toml:"max_length"`
}

// Storage contains object storage settings for forwarding uploaded videos.
type Storage struct {
	Enabled    bool   `toml:"enabled"`
	ProjectURL string `toml:"project_url"`
	APIKey     string `toml:"api_key"`
	Bucket     string `toml:"bucket"`
	Timeout    int    `toml:"timeout"`
}

// Render contains settings for the sign rendering service URLs.
type Render struct {
	BaseURL string `toml:"base_url"`
}

// Cache contains transcript cache settings.
type Cache struct {
	Backend   string `toml:"backend"`
	RedisAddr string `toml:"redis_addr"`
	RedisDB   int    `toml:"redis_db"`
	TTLHours  int    `toml:"ttl_hours"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for signscribe.
//
// Configuration sections by subsystem:
//   - Paths: staging, state, log, and cache directories
//   - Server: HTTP API bind address and upload limits
//   - Captions: caption API lookup and language preference order
//   - Media: ffmpeg / ffprobe / yt-dlp binaries and timeouts
//   - Speech: recognition engine, model, and concurrency
//   - Segment: maximum segment length
//   - Storage: object storage forwarding of uploaded videos
//   - Render: sign rendering service base URL
//   - Cache: transcript cache backend
//   - Logging: log format and level
type Config struct {
	Paths    Paths    `toml:"paths"`
	Server   Server   `toml:"server"`
	Captions Captions `toml:"captions"`
	Media    Media    `toml:"media"`
	Speech   Speech   `toml:"speech"`
	Segment  Segment  `toml:"segment"`
	Storage  Storage  `toml:"storage"`
	Render   Render   `toml:"render"`
	Cache    Cache    `toml:"cache"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("signscribe.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories the pipeline writes into.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.StagingDir, c.Paths.StateDir, c.Paths.LogDir}
	if c.Cache.Backend == CacheBackendFile {
		dirs = append(dirs, c.Paths.CacheDir)
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// HistoryDBPath returns the location of the run history database.
func (c *Config) HistoryDBPath() string {
	return filepath.Join(c.Paths.StateDir, "history.db")
}

// LockPath returns the single-instance lock file used by the API server.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "signscribe.lock")
}

// MaxUploadBytes returns the upload size limit in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.Server.MaxUploadMiB) << 20
}

// CacheTTL returns the transcript cache entry lifetime.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLHours) * time.Hour
}

func seconds(value int) time.Duration {
	return time.Duration(value) * time.Second
}

// CaptionTimeout bounds each caption API request.
func (c *Config) CaptionTimeout() time.Duration { return seconds(c.Captions.Timeout) }

// TranscodeTimeout bounds each ffmpeg/ffprobe invocation.
func (c *Config) TranscodeTimeout() time.Duration { return seconds(c.Media.TranscodeTimeout) }

// DownloadTimeout bounds each yt-dlp invocation.
func (c *Config) DownloadTimeout() time.Duration { return seconds(c.Media.DownloadTimeout) }

// SpeechTimeout bounds each inference call.
func (c *Config) SpeechTimeout() time.Duration { return seconds(c.Speech.Timeout) }

// StorageTimeout bounds each object storage upload.
func (c *Config) StorageTimeout() time.Duration { return seconds(c.Storage.Timeout) }

// RequestTimeout bounds a whole API request.
func (c *Config) RequestTimeout() time.Duration { return seconds(c.Server.RequestTimeout) }

// StaleStagingAge is how old a staging directory must be before the
// start-up sweep removes it.
func (c *Config) StaleStagingAge() time.Duration { return seconds(c.Server.StaleStagingAge) }

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// SampleConfig returns the embedded sample configuration.
func SampleConfig() string {
	return sampleConfig
}

// Encode renders the configuration as TOML.
func (c *Config) Encode() (string, error) {
	var b strings.Builder
	encoder := toml.NewEncoder(&b)
	encoder.SetIndentTables(true)
	if err := encoder.Encode(c); err != nil {
		return "", fmt.Errorf("encode config: %w", err)
	}
	return b.String(), nil
}

// Redacted returns a copy with credentials masked, for display.
func (c Config) Redacted() Config {
	mask := func(value string) string {
		if value == "" {
			return ""
		}
		return "********"
	}
	c.Speech.APIKey = mask(c.Speech.APIKey)
	c.Speech.HFToken = mask(c.Speech.HFToken)
	c.Storage.APIKey = mask(c.Storage.APIKey)
	c.Captions.Languages = append([]string(nil), c.Captions.Languages...)
	return c
}
