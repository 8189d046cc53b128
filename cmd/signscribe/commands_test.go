package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"signscribe/internal/config"
	"signscribe/internal/deps"
	"signscribe/internal/history"
	"signscribe/internal/logging"
	"signscribe/internal/source"
	"signscribe/internal/testsupport"
	"signscribe/internal/transcript"
	"signscribe/internal/transcriptcache"
)

func TestSegmentCommandFromArgument(t *testing.T) {
	out, _, err := runCLI(t, []string{"segment", "--max-length", "20", "Hello there. How are you today?"}, "")
	if err != nil {
		t.Fatalf("segment: %v", err)
	}
	var got segmentOutput
	decodeJSON(t, out, &got)
	want := []string{"Hello there.", "How are you today?"}
	if len(got.Segments) != len(want) {
		t.Fatalf("segments = %q, want %q", got.Segments, want)
	}
	for i := range want {
		if got.Segments[i] != want[i] {
			t.Fatalf("segment %d = %q, want %q", i, got.Segments[i], want[i])
		}
	}
	if len(got.RenderURLs) != 0 {
		t.Fatalf("expected no render urls without --render-base, got %v", got.RenderURLs)
	}
}

func TestSegmentCommandReadsStdinAndRenders(t *testing.T) {
	out, _, err := runCLIWithInput(t, []string{"segment", "--render-base", "https://sign.mt"}, "", strings.NewReader("Good morning.\n"))
	if err != nil {
		t.Fatalf("segment: %v", err)
	}
	var got segmentOutput
	decodeJSON(t, out, &got)
	if len(got.Segments) != 1 || got.Segments[0] != "Good morning." {
		t.Fatalf("segments = %q", got.Segments)
	}
	if len(got.RenderURLs) != 1 || got.RenderURLs[0] != "https://sign.mt?text=Good+morning." {
		t.Fatalf("render urls = %q", got.RenderURLs)
	}
}

func TestSegmentCommandRejectsEmptyInput(t *testing.T) {
	if _, _, err := runCLIWithInput(t, []string{"segment"}, "", strings.NewReader("   \n")); err == nil {
		t.Fatal("expected error for empty input")
	}
	if _, _, err := runCLI(t, []string{"segment", "--max-length", "0", "text"}, ""); err == nil {
		t.Fatal("expected error for zero max length")
	}
}

func TestRenderSegmentsMarksOversized(t *testing.T) {
	table := renderSegments(segmentOutput{
		Segments:  []string{"short", "this one is far too long"},
		Oversized: []int{1},
	})
	requireContains(t, table, "24!")
	requireContains(t, table, "short")
}

func TestHistoryListAndShow(t *testing.T) {
	env := setupCLITestEnv(t)
	store := testsupport.MustOpenHistory(t, env.cfg)
	ctx := context.Background()

	started := time.Now().Add(-time.Minute)
	for _, run := range []history.Run{
		{ID: "run-ok", SourceKind: "remote_url", SourceName: "https://youtu.be/abc", StartedAt: started},
		{ID: "run-bad", SourceKind: "local_file", SourceName: "clip.mp4", StartedAt: started.Add(time.Second)},
	} {
		if err := store.Start(ctx, run); err != nil {
			t.Fatalf("start %s: %v", run.ID, err)
		}
	}
	if err := store.Finish(ctx, history.Run{
		ID: "run-ok", Status: history.StatusSucceeded, Provenance: "caption",
		Transcript: "Hi. Bye.", Segments: []string{"Hi. Bye."},
	}); err != nil {
		t.Fatalf("finish: %v", err)
	}
	if err := store.Finish(ctx, history.Run{
		ID: "run-bad", Status: history.StatusFailed, ErrorKind: "media", ErrorMessage: "ffmpeg exploded",
	}); err != nil {
		t.Fatalf("finish: %v", err)
	}

	out, _, err := runCLI(t, []string{"history", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("history list: %v", err)
	}
	var runs []history.Run
	decodeJSON(t, out, &runs)
	if len(runs) != 2 || runs[0].ID != "run-bad" || runs[1].ID != "run-ok" {
		t.Fatalf("unexpected runs: %+v", runs)
	}

	out, _, err = runCLI(t, []string{"history", "show", "run-ok"}, env.configPath)
	if err != nil {
		t.Fatalf("history show: %v", err)
	}
	var run history.Run
	decodeJSON(t, out, &run)
	if run.Status != history.StatusSucceeded || len(run.Segments) != 1 {
		t.Fatalf("unexpected run: %+v", run)
	}

	_, _, err = runCLI(t, []string{"history", "show", "missing"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestStagingListAndClean(t *testing.T) {
	env := setupCLITestEnv(t)
	stale := filepath.Join(env.cfg.Paths.StagingDir, "req-stale")
	fresh := filepath.Join(env.cfg.Paths.StagingDir, "req-fresh")
	testsupport.WriteFile(t, filepath.Join(stale, "clip.mp4"), 128)
	testsupport.WriteFile(t, filepath.Join(fresh, "clip.mp4"), 64)
	old := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(stale, old, old); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	out, _, err := runCLI(t, []string{"staging", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("staging list: %v", err)
	}
	var listing struct {
		Directories []struct {
			Name string `json:"name"`
		} `json:"directories"`
		TotalSize int64 `json:"total_size_bytes"`
	}
	decodeJSON(t, out, &listing)
	if len(listing.Directories) != 2 || listing.TotalSize != 192 {
		t.Fatalf("unexpected listing: %+v", listing)
	}

	out, _, err = runCLI(t, []string{"staging", "clean", "--max-age", "24h"}, env.configPath)
	if err != nil {
		t.Fatalf("staging clean: %v", err)
	}
	var cleaned struct {
		Removed []string `json:"removed"`
		Errors  []string `json:"errors"`
	}
	decodeJSON(t, out, &cleaned)
	if len(cleaned.Removed) != 1 || cleaned.Removed[0] != stale {
		t.Fatalf("unexpected removal: %+v", cleaned)
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Fatalf("fresh directory should survive: %v", err)
	}

	if _, _, err := runCLI(t, []string{"staging", "clean", "--max-age", "-1h"}, env.configPath); err == nil {
		t.Fatal("expected negative max-age to be rejected")
	}
}

func TestCacheCommandsRequireFileBackend(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := runCLI(t, []string{"cache", "list"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "cache.backend") {
		t.Fatalf("expected backend error, got %v", err)
	}
}

func TestCacheListAndClear(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithCacheBackend(config.CacheBackendFile))
	if err := os.MkdirAll(env.cfg.Paths.CacheDir, 0o755); err != nil {
		t.Fatalf("mkdir cache: %v", err)
	}
	cache := transcriptcache.NewFileCache(
		filepath.Join(env.cfg.Paths.CacheDir, transcriptcache.FileName), 0, logging.NewNop())
	if err := cache.Put(context.Background(), source.VideoID("dQw4w9WgXcQ"), transcript.Transcript{
		Text: "Never gonna give you up.", Provenance: transcript.ProvenanceCaption, Language: "en",
	}); err != nil {
		t.Fatalf("put: %v", err)
	}

	out, _, err := runCLI(t, []string{"cache", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("cache list: %v", err)
	}
	var entries []transcriptcache.Entry
	decodeJSON(t, out, &entries)
	if len(entries) != 1 || entries[0].VideoID != "dQw4w9WgXcQ" {
		t.Fatalf("unexpected entries: %+v", entries)
	}

	out, _, err = runCLI(t, []string{"cache", "clear"}, env.configPath)
	if err != nil {
		t.Fatalf("cache clear: %v", err)
	}
	requireContains(t, out, `"removed": 1`)

	out, _, err = runCLI(t, []string{"cache", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("cache list: %v", err)
	}
	requireContains(t, out, "[]")
}

func TestDepsCommandReportsStubbedTools(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithStubbedBinaries())
	out, _, err := runCLI(t, []string{"deps", "--strict"}, env.configPath)
	if err != nil {
		t.Fatalf("deps: %v\n%s", err, out)
	}
	var report depsReport
	decodeJSON(t, out, &report)
	if !report.OK {
		t.Fatalf("expected all checks to pass: %+v", report)
	}
	if len(report.Dependencies) == 0 || len(report.Checks) == 0 {
		t.Fatalf("expected dependencies and checks: %+v", report)
	}
}

func TestRenderDepsReportMarksOptionalAsWarning(t *testing.T) {
	text := renderDepsReport(depsReport{
		Dependencies: []deps.Status{
			{Name: "FFmpeg", Command: "ffmpeg", Available: true},
			{Name: "uvx", Optional: true, Detail: "binary \"uvx\" not found"},
		},
	}, false)
	requireContains(t, text, "[OK] ffmpeg")
	requireContains(t, text, "[WARN] binary \"uvx\" not found")
}

func TestRenderStatusLine(t *testing.T) {
	got := renderStatusLine("FFmpeg", statusError, "missing", false)
	if !strings.HasPrefix(got, statusIndent+"FFmpeg:") || !strings.HasSuffix(got, "[ERROR] missing") {
		t.Fatalf("unexpected line %q", got)
	}
	colored := renderStatusLine("FFmpeg", statusOK, "", true)
	if !strings.HasPrefix(colored, ansiGreen) || !strings.HasSuffix(colored, ansiReset) {
		t.Fatalf("expected color codes, got %q", colored)
	}
}

func TestDescribeRunErrorIncludesRunAndKind(t *testing.T) {
	err := describeRunError("abc", context.DeadlineExceeded)
	requireContains(t, err.Error(), "run abc failed (internal)")
}
