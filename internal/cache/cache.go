package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/smokyabdulrahman/prayer-countdown/internal/api"
	"github.com/smokyabdulrahman/prayer-countdown/internal/geo"
)

const (
	calendarCacheFile = "calendar_%s.json" // keyed by MonthKey.ID
	geoCacheFile      = "geolocation.json"
	geoTTL            = 24 * time.Hour
)

// FileStore keeps calendar months and the detected geolocation as JSON files.
type FileStore struct {
	dir string
}

// GeoCacheEntry stores a cached geolocation result with a timestamp.
type GeoCacheEntry struct {
	Location geo.Location `json:"location"`
	CachedAt time.Time    `json:"cached_at"`
}

// DefaultDir returns ~/.cache/prayer-countdown.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".cache", "prayer-countdown"), nil
}

// NewFileStore creates a FileStore rooted at dir, creating it if needed.
// If dir is empty, DefaultDir is used.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		d, err := DefaultDir()
		if err != nil {
			return nil, err
		}
		dir = d
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create cache directory %s: %w", dir, err)
	}

	return &FileStore{dir: dir}, nil
}

// Dir returns the directory the store writes to.
func (s *FileStore) Dir() string { return s.dir }

func (s *FileStore) monthPath(key MonthKey) string {
	return filepath.Join(s.dir, fmt.Sprintf(calendarCacheFile, key.ID()))
}

// LoadMonth reads a cached calendar month. Unreadable or mismatched files count as misses.
func (s *FileStore) LoadMonth(_ context.Context, key MonthKey) (*MonthEntry, error) {
	data, err := os.ReadFile(s.monthPath(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrMiss
		}
		return nil, fmt.Errorf("failed to read cache file: %w", err)
	}

	var entry MonthEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, ErrMiss
	}
	if !entry.valid(key) {
		return nil, ErrMiss
	}

	return &entry, nil
}

// SaveMonth writes a calendar month atomically (temp file + rename).
func (s *FileStore) SaveMonth(_ context.Context, key MonthKey, days []api.Data) error {
	data, err := json.Marshal(newEntry(key, days))
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}

	path := s.monthPath(key)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to move cache file into place: %w", err)
	}

	return nil
}

// Close is a no-op for the file store.
func (s *FileStore) Close() error { return nil }

// LoadGeo attempts to read a cached geolocation result.
// Returns nil if the cache is missing or older than the TTL (24 hours).
func (s *FileStore) LoadGeo() *geo.Location {
	data, err := os.ReadFile(filepath.Join(s.dir, geoCacheFile))
	if err != nil {
		return nil
	}

	var entry GeoCacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil
	}

	if time.Since(entry.CachedAt) > geoTTL {
		return nil
	}

	return &entry.Location
}

// SaveGeo writes a geolocation result to the cache.
func (s *FileStore) SaveGeo(loc *geo.Location) error {
	entry := GeoCacheEntry{
		Location: *loc,
		CachedAt: time.Now(),
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal geo cache: %w", err)
	}

	if err := os.WriteFile(filepath.Join(s.dir, geoCacheFile), data, 0o644); err != nil {
		return fmt.Errorf("failed to write geo cache: %w", err)
	}

	return nil
}
