package preflight

import (
	"context"

	"signscribe/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// RunAll executes all applicable preflight checks for the given config.
// Checks are only run when the corresponding feature is enabled.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Staging directory", cfg.Paths.StagingDir),
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
	}

	switch cfg.Cache.Backend {
	case config.CacheBackendFile:
		results = append(results, CheckDirectoryAccess("Cache directory", cfg.Paths.CacheDir))
	case config.CacheBackendRedis:
		results = append(results, CheckRedis(ctx, cfg.Cache.RedisAddr, cfg.Cache.RedisDB))
	}

	if cfg.Storage.Enabled {
		results = append(results, CheckStorage(ctx, cfg))
	}

	if cfg.Speech.Engine == config.SpeechEngineOpenAI {
		results = append(results, CheckSpeechAPI(ctx, cfg.Speech.BaseURL, cfg.Speech.APIKey))
	}

	return results
}

// Failed returns the checks that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}
