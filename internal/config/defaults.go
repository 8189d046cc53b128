package config

const (
	defaultConfigPath       = "~/.config/signscribe/config.toml"
	defaultStagingDir       = "~/.local/share/signscribe/staging"
	defaultStateDir         = "~/.local/share/signscribe"
	defaultLogDir           = "~/.local/share/signscribe/logs"
	defaultCacheDir         = "~/.cache/signscribe/transcripts"
	defaultBind             = "127.0.0.1:8080"
	defaultMaxUploadMiB     = 512
	defaultRequestTimeout   = 1800
	defaultStaleStagingAge  = 86400
	defaultCaptionBaseURL   = "https://www.youtube.com/api/timedtext"
	defaultCaptionTimeout   = 15
	defaultFFmpegBinary     = "ffmpeg"
	defaultFFprobeBinary    = "ffprobe"
	defaultYTDLPBinary      = "yt-dlp"
	defaultSampleRate       = 16000
	defaultTranscodeTimeout = 600
	defaultDownloadTimeout  = 900
	defaultSpeechEngine     = SpeechEngineWhisperX
	defaultSpeechModel      = "base"
	defaultSpeechLanguage   = "en"
	defaultVADMethod        = "silero"
	defaultOpenAIBaseURL    = "https://api.openai.com/v1"
	defaultSpeechTimeout    = 1800
	defaultMaxConcurrent    = 1
	defaultMaxSegmentLength = 100
	defaultStorageBucket    = "video-to-sign"
	defaultStorageTimeout   = 120
	defaultRenderBaseURL    = "https://sign.mt"
	defaultCacheBackend     = CacheBackendNone
	defaultCacheTTLHours    = 168
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
)

// Speech engines.
const (
	SpeechEngineWhisperX = "whisperx"
	SpeechEngineOpenAI   = "openai"
)

// Transcript cache backends.
const (
	CacheBackendNone  = "none"
	CacheBackendFile  = "file"
	CacheBackendRedis = "redis"
)

// DefaultCaptionLanguages is the caption language preference order. Regional
// English variants win over generic English; nothing else is accepted.
var DefaultCaptionLanguages = []string{"en-US", "en-GB", "en"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StagingDir: defaultStagingDir,
			StateDir:   defaultStateDir,
			LogDir:     defaultLogDir,
			CacheDir:   defaultCacheDir,
		},
		Server: Server{
			Bind:            defaultBind,
			MaxUploadMiB:    defaultMaxUploadMiB,
			RequestTimeout:  defaultRequestTimeout,
			StaleStagingAge: defaultStaleStagingAge,
		},
		Captions: Captions{
			Enabled:   true,
			BaseURL:   defaultCaptionBaseURL,
			Languages: append([]string(nil), DefaultCaptionLanguages...),
			Timeout:   defaultCaptionTimeout,
		},
		Media: Media{
			FFmpegBinary:     defaultFFmpegBinary,
			FFprobeBinary:    defaultFFprobeBinary,
			YTDLPBinary:      defaultYTDLPBinary,
			SampleRate:       defaultSampleRate,
			TranscodeTimeout: defaultTranscodeTimeout,
			DownloadTimeout:  defaultDownloadTimeout,
		},
		Speech: Speech{
			Engine:        defaultSpeechEngine,
			Model:         defaultSpeechModel,
			Language:      defaultSpeechLanguage,
			VADMethod:     defaultVADMethod,
			Timeout:       defaultSpeechTimeout,
			MaxConcurrent: defaultMaxConcurrent,
		},
		Segment: Segment{
			MaxLength: defaultMaxSegmentLength,
		},
		Storage: Storage{
			Bucket:  defaultStorageBucket,
			Timeout: defaultStorageTimeout,
		},
		Render: Render{
			BaseURL: defaultRenderBaseURL,
		},
		Cache: Cache{
			Backend:  defaultCacheBackend,
			TTLHours: defaultCacheTTLHours,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
