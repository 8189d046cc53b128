package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/gofrs/flock"

	"signscribe/internal/config"
	"signscribe/internal/deps"
	"signscribe/internal/logging"
	"signscribe/internal/pipeline"
	"signscribe/internal/preflight"
	"signscribe/internal/staging"
)

// ErrAlreadyRunning is returned when another server holds the state lock.
var ErrAlreadyRunning = errors.New("another signscribe server is already running")

// AcquireLock takes the single-instance lock under the state dir.
func AcquireLock(cfg *config.Config) (*flock.Flock, error) {
	lock := flock.New(cfg.LockPath())
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w (lock %s)", ErrAlreadyRunning, cfg.LockPath())
	}
	return lock, nil
}

// Run starts the API server and blocks until ctx is cancelled or SIGINT /
// SIGTERM arrives.
func Run(cmdCtx context.Context, cfg *config.Config, logger *slog.Logger, opts ...pipeline.BuildOption) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	logger = logging.NewComponentLogger(logger, "server")

	ctx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}
	lock, err := AcquireLock(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.Warn("failed to release server lock", logging.Error(err))
		}
	}()

	swept := staging.CleanStale(ctx, cfg.Paths.StagingDir, cfg.StaleStagingAge(), logger)
	if len(swept.Removed) > 0 {
		logger.Info("stale staging swept", logging.Int("removed", len(swept.Removed)))
	}

	if summary := deps.Summary(preflight.CheckSystemDeps(cfg)); summary != "" {
		logging.WarnWithContext(logger, "external tools unavailable", "dependency_missing",
			logging.String("detail", summary),
			logging.String(logging.FieldErrorHint, "install the missing tools or fix [media] binaries in the config"),
			logging.String(logging.FieldImpact, "requests needing these tools will fail"),
		)
	}
	for _, check := range preflight.Failed(preflight.RunAll(ctx, cfg)) {
		logging.WarnWithContext(logger, "preflight check failed", "preflight_failed",
			logging.String("check", check.Name),
			logging.String("detail", check.Detail),
			logging.String(logging.FieldErrorHint, "run signscribe deps for details"),
			logging.String(logging.FieldImpact, "dependent features may fail"),
		)
	}

	rt, err := pipeline.Build(ctx, cfg, logger, opts...)
	if err != nil {
		return err
	}
	defer rt.Close()

	if n, err := rt.History.MarkInterrupted(ctx); err != nil {
		logger.Warn("failed to mark interrupted runs", logging.Error(err))
	} else if n > 0 {
		logger.Info("marked interrupted runs as failed", logging.Int64("count", n))
	}

	srv, err := New(Options{
		Bind:           cfg.Server.Bind,
		MaxUploadBytes: cfg.MaxUploadBytes(),
		RequestTimeout: cfg.RequestTimeout(),
		Processor:      rt.Pipeline,
		Runs:           rt.History,
		Status:         ConfigStatus(cfg, rt.Model.Engine(), rt.Model.Name()),
		Logger:         logger,
	})
	if err != nil {
		return err
	}
	return srv.Serve(ctx)
}
