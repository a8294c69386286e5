package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"go.uber.org/zap"

	"github.com/mikey/link-joiner/internal/core"
)

// Layout selects the JSON shape of a cache file
type Layout int

const (
	// LayoutPairs stores [[fingerprint, content], ...]
	LayoutPairs Layout = iota
	// LayoutKeys stores a flat array of keys
	LayoutKeys
)

// ErrLocked is returned when another process holds the cache file
var ErrLocked = errors.New("cache file is locked by another process")

// JSONStore keeps a cache in a single JSON file guarded by a lock file
type JSONStore struct {
	path   string
	layout Layout
	lock   *flock.Flock
	logger *zap.Logger
}

// NewJSONStore creates a JSON file store and takes an exclusive lock on it
func NewJSONStore(path string, layout Layout, logger *zap.Logger) (*JSONStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
	}

	lock := flock.New(path + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to lock %s: %w", path, err)
	}
	if !locked {
		return nil, fmt.Errorf("%s: %w", path, ErrLocked)
	}

	return &JSONStore{
		path:   path,
		layout: layout,
		lock:   lock,
		logger: logger,
	}, nil
}

// Load reads the cache file. A missing file is an empty cache.
func (s *JSONStore) Load(ctx context.Context) ([]core.CacheRecord, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read cache file: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	switch s.layout {
	case LayoutKeys:
		var keys []string
		if err := json.Unmarshal(data, &keys); err != nil {
			return nil, fmt.Errorf("failed to parse cache file %s: %w", s.path, err)
		}
		records := make([]core.CacheRecord, 0, len(keys))
		for _, k := range keys {
			records = append(records, core.CacheRecord{Fingerprint: k, Content: k})
		}
		return records, nil
	default:
		var pairs [][]string
		if err := json.Unmarshal(data, &pairs); err != nil {
			return nil, fmt.Errorf("failed to parse cache file %s: %w", s.path, err)
		}
		records := make([]core.CacheRecord, 0, len(pairs))
		for i, p := range pairs {
			if len(p) != 2 {
				return nil, fmt.Errorf("cache file %s: entry %d is not a [fingerprint, content] pair", s.path, i)
			}
			records = append(records, core.CacheRecord{Fingerprint: p[0], Content: p[1]})
		}
		return records, nil
	}
}

// Save atomically replaces the cache file
func (s *JSONStore) Save(ctx context.Context, records []core.CacheRecord) error {
	var payload interface{}
	switch s.layout {
	case LayoutKeys:
		keys := make([]string, 0, len(records))
		for _, r := range records {
			keys = append(keys, r.Fingerprint)
		}
		payload = keys
	default:
		pairs := make([][2]string, 0, len(records))
		for _, r := range records {
			pairs = append(pairs, [2]string{r.Fingerprint, r.Content})
		}
		payload = pairs
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(payload); err != nil {
		return fmt.Errorf("failed to encode cache: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace cache file: %w", err)
	}
	return nil
}

// Close releases the file lock
func (s *JSONStore) Close() error {
	if err := s.lock.Unlock(); err != nil {
		return fmt.Errorf("failed to unlock %s: %w", s.path, err)
	}
	_ = os.Remove(s.path + ".lock")
	return nil
}
