package main

import (
	"fmt"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"signscribe/internal/config"
	"signscribe/internal/transcriptcache"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect the file-backed transcript cache",
	}
	cacheCmd.AddCommand(newCacheListCommand(ctx))
	cacheCmd.AddCommand(newCacheClearCommand(ctx))
	return cacheCmd
}

func openFileCache(ctx *commandContext) (*transcriptcache.FileCache, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, err
	}
	if cfg.Cache.Backend != config.CacheBackendFile {
		return nil, fmt.Errorf("cache.backend is %q; these commands only manage the %q backend", cfg.Cache.Backend, config.CacheBackendFile)
	}
	logger, err := ctx.logger()
	if err != nil {
		return nil, err
	}
	path := filepath.Join(cfg.Paths.CacheDir, transcriptcache.FileName)
	return transcriptcache.NewFileCache(path, cfg.CacheTTL(), logger), nil
}

func newCacheListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List cached transcripts",
		RunE: func(cmd *cobra.Command, args []string) error {
			cache, err := openFileCache(ctx)
			if err != nil {
				return err
			}
			entries := cache.List()
			if ctx.JSONMode() {
				return writeJSON(cmd, entries)
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "Transcript cache is empty")
				return nil
			}
			rows := make([][]string, 0, len(entries))
			for _, entry := range entries {
				rows = append(rows, []string{
					entry.VideoID,
					string(entry.Provenance),
					entry.Language,
					humanize.Comma(int64(len([]rune(entry.Text)))),
					humanize.Time(entry.CachedAt),
				})
			}
			fmt.Fprint(out, renderTable(
				[]string{"Video", "Source", "Lang", "Chars", "Cached"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight},
			))
			return nil
		},
	}
}

func newCacheClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached transcript",
		RunE: func(cmd *cobra.Command, args []string) error {
			cache, err := openFileCache(ctx)
			if err != nil {
				return err
			}
			count := len(cache.List())
			if err := cache.Clear(); err != nil {
				return fmt.Errorf("clear transcript cache: %w", err)
			}
			if ctx.JSONMode() {
				return writeJSON(cmd, map[string]int{"removed": count})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d cached transcripts\n", count)
			return nil
		},
	}
}
