package transcriptcache

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"signscribe/internal/config"
	"signscribe/internal/transcript"
)

// FileName is the cache file created under paths.cache_dir.
const FileName = "transcripts.json"

// Open builds the configured cache backend. The returned closer is never nil.
// A "none" backend yields a nil Cache.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (transcript.Cache, io.Closer, error) {
	switch cfg.Cache.Backend {
	case config.CacheBackendFile:
		return NewFileCache(filepath.Join(cfg.Paths.CacheDir, FileName), cfg.CacheTTL(), logger), nopCloser{}, nil
	case config.CacheBackendRedis:
		cache, err := DialRedis(ctx, cfg.Cache.RedisAddr, cfg.Cache.RedisDB, cfg.CacheTTL())
		if err != nil {
			return nil, nopCloser{}, err
		}
		return cache, cache, nil
	case config.CacheBackendNone, "":
		return nil, nopCloser{}, nil
	default:
		return nil, nopCloser{}, fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
