package media

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"signscribe/internal/logging"
	"signscribe/internal/media/audio"
	"signscribe/internal/media/ffprobe"
	"signscribe/internal/services"
	"signscribe/internal/source"
)

const (
	defaultSampleRate = 16000
	audioFileName     = "audio.wav"
	workDirPrefix     = "audio-"
)

// Config captures the external tools and limits used to acquire audio.
type Config struct {
	FFmpegBinary     string
	FFprobeBinary    string
	YTDLPBinary      string
	SampleRate       int
	WorkDir          string
	Language         string
	TranscodeTimeout time.Duration
	DownloadTimeout  time.Duration
}

// Audio is a normalized mono WAV file owned by the caller until Release.
type Audio struct {
	Path   string
	Source source.VideoSource
	Stream string

	dir  string
	once sync.Once
	err  error
}

// Release removes the artifact and its working directory. It is safe to call
// on a nil Audio and more than once.
func (a *Audio) Release() error {
	if a == nil {
		return nil
	}
	a.once.Do(func() {
		target := a.dir
		if target == "" {
			target = a.Path
		}
		if target != "" {
			a.err = os.RemoveAll(target)
		}
	})
	return a.err
}

// Acquirer turns a VideoSource into an Audio artifact using ffprobe, ffmpeg
// and yt-dlp.
type Acquirer struct {
	cfg    Config
	run    ffprobe.Runner
	logger *slog.Logger
}

// NewAcquirer builds an Acquirer. Blank binaries fall back to their command
// names on PATH.
func NewAcquirer(cfg Config, logger *slog.Logger) *Acquirer {
	if strings.TrimSpace(cfg.FFmpegBinary) == "" {
		cfg.FFmpegBinary = "ffmpeg"
	}
	if strings.TrimSpace(cfg.FFprobeBinary) == "" {
		cfg.FFprobeBinary = "ffprobe"
	}
	if strings.TrimSpace(cfg.YTDLPBinary) == "" {
		cfg.YTDLPBinary = "yt-dlp"
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = defaultSampleRate
	}
	if strings.TrimSpace(cfg.WorkDir) == "" {
		cfg.WorkDir = os.TempDir()
	}
	return &Acquirer{
		cfg:    cfg,
		run:    ffprobe.ExecRunner,
		logger: logging.NewComponentLogger(logger, "media"),
	}
}

// WithRunner sets a custom command runner (for testing).
func (a *Acquirer) WithRunner(run ffprobe.Runner) {
	if run != nil {
		a.run = run
	}
}

// ExtractAudio produces exactly one normalized audio artifact for src.
//
// Remote sources are identified before anything else runs; an unrecognized
// URL fails with services.ErrInvalidSource without starting a process.
// Every other failure is services.ErrMedia, and no artifact is left behind.
func (a *Acquirer) ExtractAudio(ctx context.Context, src source.VideoSource) (*Audio, error) {
	switch src.Kind() {
	case source.KindLocalFile:
		return a.extractLocal(ctx, src)
	case source.KindRemoteURL:
		id, err := src.Identify()
		if err != nil {
			return nil, err
		}
		return a.download(ctx, src, id)
	default:
		return nil, services.Wrap(services.ErrInvalidSource, "media", "extract audio", "source is neither a file nor a url", nil)
	}
}

func (a *Acquirer) extractLocal(ctx context.Context, src source.VideoSource) (*Audio, error) {
	path := src.Path()
	info, err := os.Stat(path)
	if err != nil {
		return nil, services.Wrap(services.ErrMedia, "media", "stat input", "input file is unreadable", err)
	}
	if info.IsDir() {
		return nil, services.Wrap(services.ErrMedia, "media", "stat input", path+" is a directory", nil)
	}

	probeCtx, cancel := a.bound(ctx, a.cfg.TranscodeTimeout)
	probe, err := ffprobe.InspectWith(probeCtx, a.run, a.cfg.FFprobeBinary, path)
	err = contextError(probeCtx, err)
	cancel()
	if err != nil {
		return nil, services.Wrap(services.ErrMedia, "media", "probe", "ffprobe could not read the input", err)
	}
	selection := audio.Select(probe.Streams, a.cfg.Language)
	if selection.Index < 0 {
		return nil, services.Wrap(services.ErrMedia, "media", "probe", "input has no audio track", nil)
	}

	artifact, err := a.newArtifact(src)
	if err != nil {
		return nil, err
	}
	artifact.Stream = selection.Label()

	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", path,
		"-map", fmt.Sprintf("0:%d", selection.Index),
		"-vn",
		"-sn",
		"-dn",
		"-ac", "1",
		"-ar", strconv.Itoa(a.cfg.SampleRate),
		"-c:a", "pcm_s16le",
		artifact.Path,
	}
	runCtx, cancel := a.bound(ctx, a.cfg.TranscodeTimeout)
	defer cancel()
	started := time.Now()
	if _, err := a.run(runCtx, a.cfg.FFmpegBinary, args...); err != nil {
		err = contextError(runCtx, err)
		_ = artifact.Release()
		return nil, services.Wrap(services.ErrMedia, "media", "transcode", "ffmpeg failed", err)
	}
	if err := checkArtifact(artifact); err != nil {
		return nil, err
	}
	logging.WithContext(ctx, a.logger).Info("audio extracted",
		logging.String("audio_stream", artifact.Stream),
		logging.Int("probe_audio_streams", probe.AudioStreamCount()),
		logging.Duration("elapsed", time.Since(started)),
	)
	return artifact, nil
}

func (a *Acquirer) download(ctx context.Context, src source.VideoSource, id source.VideoID) (*Audio, error) {
	artifact, err := a.newArtifact(src)
	if err != nil {
		return nil, err
	}

	// yt-dlp substitutes the extension after post-processing.
	template := filepath.Join(artifact.dir, strings.TrimSuffix(audioFileName, filepath.Ext(audioFileName))+".%(ext)s")
	args := []string{
		"--no-playlist",
		"--no-progress",
		"--quiet",
		"--no-warnings",
		"-f", "bestaudio/best",
		"--extract-audio",
		"--audio-format", "wav",
		"--postprocessor-args", fmt.Sprintf("ffmpeg:-ac 1 -ar %d -c:a pcm_s16le", a.cfg.SampleRate),
		"-o", template,
	}
	if strings.ContainsRune(a.cfg.FFmpegBinary, filepath.Separator) {
		args = append(args, "--ffmpeg-location", a.cfg.FFmpegBinary)
	}
	args = append(args, id.WatchURL())

	runCtx, cancel := a.bound(ctx, a.cfg.DownloadTimeout)
	defer cancel()
	started := time.Now()
	if _, err := a.run(runCtx, a.cfg.YTDLPBinary, args...); err != nil {
		err = contextError(runCtx, err)
		_ = artifact.Release()
		return nil, services.Wrap(services.ErrMedia, "media", "download", "yt-dlp could not fetch audio for "+string(id), err)
	}
	if err := checkArtifact(artifact); err != nil {
		return nil, err
	}
	logging.WithContext(ctx, a.logger).Info("remote audio downloaded",
		logging.String("video_id", string(id)),
		logging.Duration("elapsed", time.Since(started)),
	)
	return artifact, nil
}

func (a *Acquirer) newArtifact(src source.VideoSource) (*Audio, error) {
	dir := filepath.Join(a.cfg.WorkDir, workDirPrefix+uuid.NewString())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrMedia, "media", "prepare", "create work directory", err)
	}
	return &Audio{Path: filepath.Join(dir, audioFileName), Source: src, dir: dir}, nil
}

func (a *Acquirer) bound(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

// contextError attaches the context's cancellation cause to a process error,
// since a killed process only reports its signal.
func contextError(ctx context.Context, err error) error {
	if err == nil || ctx.Err() == nil || errors.Is(err, ctx.Err()) {
		return err
	}
	return fmt.Errorf("%w: %w", ctx.Err(), err)
}

func checkArtifact(artifact *Audio) error {
	info, err := os.Stat(artifact.Path)
	if err == nil && info.Size() > 0 {
		return nil
	}
	_ = artifact.Release()
	if err != nil {
		return services.Wrap(services.ErrMedia, "media", "verify", "no audio was produced", err)
	}
	return services.Wrap(services.ErrMedia, "media", "verify", "produced audio is empty", nil)
}
