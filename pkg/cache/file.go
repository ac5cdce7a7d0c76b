package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// FileCache implements Service with one JSON file per key under a directory.
// Values are always JSON-encoded, so Get must decode into the type that was Set.
type FileCache struct {
	dir string
}

type fileEntry struct {
	ExpiresAt time.Time       `json:"expires_at,omitempty"`
	Data      json.RawMessage `json:"data"`
}

// NewFileCache creates the directory if needed.
func NewFileCache(dir string) (*FileCache, error) {
	if dir == "" {
		return nil, errors.New("file cache: dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("file cache: %w", err)
	}
	return &FileCache{dir: dir}, nil
}

// Path returns the file that backs key.
func (fc *FileCache) Path(key string) string {
	name := strings.NewReplacer(":", "_", "/", "_", "\\", "_").Replace(key)
	return filepath.Join(fc.dir, name+".json")
}

func (fc *FileCache) Set(_ context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache encode: %w", err)
	}
	e := fileEntry{Data: data}
	if expiration > 0 {
		e.ExpiresAt = time.Now().Add(expiration).UTC()
	}
	b, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("cache encode: %w", err)
	}

	// write-then-rename so readers never see a partial file
	tmp, err := os.CreateTemp(fc.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("file cache: %w", err)
	}
	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("file cache write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("file cache write: %w", err)
	}
	if err := os.Rename(tmp.Name(), fc.Path(key)); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("file cache rename: %w", err)
	}
	return nil
}

func (fc *FileCache) Get(_ context.Context, key string, dest interface{}) error {
	e, err := fc.read(key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(e.Data, dest); err != nil {
		return fmt.Errorf("cache decode: %w", err)
	}
	return nil
}

func (fc *FileCache) Delete(_ context.Context, keys ...string) error {
	for _, key := range keys {
		if err := os.Remove(fc.Path(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("file cache delete: %w", err)
		}
	}
	return nil
}

func (fc *FileCache) Exists(_ context.Context, keys ...string) (bool, error) {
	for _, key := range keys {
		_, err := fc.read(key)
		if err == nil {
			return true, nil
		}
		if !errors.Is(err, ErrCacheMiss) {
			return false, err
		}
	}
	return false, nil
}

func (fc *FileCache) Close() error { return nil }

func (fc *FileCache) read(key string) (*fileEntry, error) {
	b, err := os.ReadFile(fc.Path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("file cache read: %w", err)
	}
	var e fileEntry
	if err := json.Unmarshal(b, &e); err != nil {
		// a corrupt entry is treated as absent and overwritten on the next Set
		return nil, ErrCacheMiss
	}
	if !e.ExpiresAt.IsZero() && time.Now().After(e.ExpiresAt) {
		return nil, ErrCacheMiss
	}
	return &e, nil
}
