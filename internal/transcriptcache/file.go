package transcriptcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"signscribe/internal/logging"
	"signscribe/internal/source"
	"signscribe/internal/transcript"
)

// Entry is one cached transcript.
type Entry struct {
	VideoID    string                `json:"video_id"`
	Text       string                `json:"text"`
	Provenance transcript.Provenance `json:"provenance"`
	Language   string                `json:"language,omitempty"`
	CachedAt   time.Time             `json:"cached_at"`
}

// FileCache keeps transcripts in a single JSON file. It is safe for
// concurrent use within one process.
type FileCache struct {
	path    string
	ttl     time.Duration
	now     func() time.Time
	logger  *slog.Logger
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewFileCache opens the cache stored at path. A missing file starts empty;
// an unreadable one is logged and replaced on the next write. A non-positive
// ttl keeps entries forever.
func NewFileCache(path string, ttl time.Duration, logger *slog.Logger) *FileCache {
	logger = logging.NewComponentLogger(logger, "transcriptcache")
	c := &FileCache{
		path:    path,
		ttl:     ttl,
		now:     time.Now,
		logger:  logger,
		entries: make(map[string]Entry),
	}
	if err := c.load(); err != nil {
		logging.WarnWithContext(logger, "failed to load transcript cache", "transcript_cache_load_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "cache will start empty"),
			logging.String(logging.FieldImpact, "previously cached videos will be transcribed again"),
		)
	}
	return c
}

// Get returns the cached transcript for id when present and not expired.
func (c *FileCache) Get(_ context.Context, id source.VideoID) (transcript.Transcript, bool, error) {
	key := strings.TrimSpace(string(id))
	if key == "" {
		return transcript.Transcript{}, false, nil
	}
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || c.expired(entry) {
		return transcript.Transcript{}, false, nil
	}
	return transcript.Transcript{Text: entry.Text, Provenance: entry.Provenance, Language: entry.Language}, true, nil
}

// Put stores t under id and persists the cache.
func (c *FileCache) Put(_ context.Context, id source.VideoID, t transcript.Transcript) error {
	key := strings.TrimSpace(string(id))
	if key == "" {
		return errors.New("video id cannot be empty")
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = Entry{
		VideoID:    key,
		Text:       t.Text,
		Provenance: t.Provenance,
		Language:   t.Language,
		CachedAt:   c.now().UTC(),
	}
	c.prune()
	if err := c.save(); err != nil {
		return fmt.Errorf("persist cache: %w", err)
	}
	c.logger.Debug("cached transcript",
		logging.String("video_id", key),
		logging.String("provenance", string(t.Provenance)),
	)
	return nil
}

// List returns live entries, newest first.
func (c *FileCache) List() []Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entries := make([]Entry, 0, len(c.entries))
	for _, entry := range c.entries {
		if !c.expired(entry) {
			entries = append(entries, entry)
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].CachedAt.After(entries[j].CachedAt)
	})
	return entries
}

// Clear removes every entry and persists the empty cache.
func (c *FileCache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]Entry)
	if err := c.save(); err != nil {
		return fmt.Errorf("persist cache: %w", err)
	}
	return nil
}

func (c *FileCache) expired(entry Entry) bool {
	return c.ttl > 0 && c.now().Sub(entry.CachedAt) > c.ttl
}

func (c *FileCache) prune() {
	for key, entry := range c.entries {
		if c.expired(entry) {
			delete(c.entries, key)
		}
	}
}

func (c *FileCache) load() error {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read cache file: %w", err)
	}
	if len(data) == 0 {
		return nil
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("parse cache file: %w", err)
	}
	for _, entry := range entries {
		if strings.TrimSpace(entry.VideoID) != "" {
			c.entries[entry.VideoID] = entry
		}
	}
	c.logger.Debug("loaded transcript cache",
		logging.Int("entry_count", len(c.entries)),
		logging.String("path", c.path),
	)
	return nil
}

// save writes the cache atomically through a temp file. Callers hold mu.
func (c *FileCache) save() error {
	entries := make([]Entry, 0, len(c.entries))
	for _, entry := range c.entries {
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].VideoID < entries[j].VideoID
	})
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal cache: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}
	tmpPath := c.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, c.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
