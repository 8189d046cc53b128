package server

import (
	"context"
	"os"

	"signscribe/internal/config"
	"signscribe/internal/deps"
	"signscribe/internal/preflight"
	"signscribe/internal/staging"
)

// Status is the body of GET /api/status.
type Status struct {
	Running      bool               `json:"running"`
	PID          int                `json:"pid,omitempty"`
	HistoryDB    string             `json:"history_db,omitempty"`
	LockFile     string             `json:"lock_file,omitempty"`
	SpeechEngine string             `json:"speech_engine,omitempty"`
	SpeechModel  string             `json:"speech_model,omitempty"`
	Captions     bool               `json:"captions_enabled"`
	Storage      bool               `json:"storage_enabled"`
	CacheBackend string             `json:"cache_backend,omitempty"`
	Dependencies []deps.Status      `json:"dependencies"`
	Checks       []preflight.Result `json:"checks"`
	Staging      []staging.DirInfo  `json:"staging"`
}

// ConfigStatus builds a StatusFunc that re-runs the dependency and
// preflight checks on every call.
func ConfigStatus(cfg *config.Config, engine, model string) StatusFunc {
	return func(ctx context.Context) Status {
		dirs, _ := staging.ListDirectories(cfg.Paths.StagingDir)
		if dirs == nil {
			dirs = []staging.DirInfo{}
		}
		return Status{
			Running:      true,
			PID:          os.Getpid(),
			HistoryDB:    cfg.HistoryDBPath(),
			LockFile:     cfg.LockPath(),
			SpeechEngine: engine,
			SpeechModel:  model,
			Captions:     cfg.Captions.Enabled,
			Storage:      cfg.Storage.Enabled,
			CacheBackend: cfg.Cache.Backend,
			Dependencies: preflight.CheckSystemDeps(cfg),
			Checks:       preflight.RunAll(ctx, cfg),
			Staging:      dirs,
		}
	}
}
