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

// FileStore keeps one JSON file per key under a directory.
type FileStore struct {
	dir string
	now func() time.Time
}

type fileEntry struct {
	Key        string          `json:"cache_key"`
	CreatedAt  time.Time       `json:"created_at"`
	TTLSeconds int64           `json:"ttl_seconds"`
	Data       json.RawMessage `json:"data"`
}

func (e fileEntry) expired(now time.Time) bool {
	return !now.Before(e.CreatedAt.Add(time.Duration(e.TTLSeconds) * time.Second))
}

// Info describes the files of a FileStore.
type Info struct {
	Dir            string `json:"cache_dir"`
	TotalFiles     int    `json:"total_files"`
	ValidFiles     int    `json:"valid_files"`
	ExpiredFiles   int    `json:"expired_files"`
	TotalSizeBytes int64  `json:"total_size_bytes"`
}

// NewFileStore creates the cache directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &FileStore{dir: dir, now: time.Now}, nil
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, key+".json")
}

// Get returns the cached value. Expired or unreadable entries are removed
// and reported as a miss.
func (s *FileStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	data, err := os.ReadFile(s.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var entry fileEntry
	if err := json.Unmarshal(data, &entry); err != nil || entry.expired(s.now()) {
		_ = os.Remove(s.path(key))
		return nil, false, nil
	}
	return entry.Data, true, nil
}

func (s *FileStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if !json.Valid(value) {
		return fmt.Errorf("cache value for %s is not JSON", key)
	}
	entry := fileEntry{
		Key:        key,
		CreatedAt:  s.now(),
		TTLSeconds: int64(ttl / time.Second),
		Data:       value,
	}
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return err
	}

	// Write then rename so readers never see a partial file.
	tmp := s.path(key) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path(key))
}

func (s *FileStore) Delete(_ context.Context, key string) error {
	err := os.Remove(s.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// Invalidate removes one entry and reports whether it existed.
func (s *FileStore) Invalidate(key string) (bool, error) {
	err := os.Remove(s.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *FileStore) files() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		out = append(out, filepath.Join(s.dir, e.Name()))
	}
	return out, nil
}

func (s *FileStore) valid(path string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	var entry fileEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return false
	}
	return !entry.expired(s.now())
}

// Clear removes every entry and returns how many were removed.
func (s *FileStore) Clear() (int, error) {
	paths, err := s.files()
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, p := range paths {
		if err := os.Remove(p); err == nil {
			removed++
		}
	}
	return removed, nil
}

// ClearExpired removes expired or unreadable entries.
func (s *FileStore) ClearExpired() (int, error) {
	paths, err := s.files()
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, p := range paths {
		if s.valid(p) {
			continue
		}
		if err := os.Remove(p); err == nil {
			removed++
		}
	}
	return removed, nil
}

// Info counts entries by validity and sums their size.
func (s *FileStore) Info() (Info, error) {
	info := Info{Dir: s.dir}
	paths, err := s.files()
	if err != nil {
		return info, err
	}
	for _, p := range paths {
		info.TotalFiles++
		if st, err := os.Stat(p); err == nil {
			info.TotalSizeBytes += st.Size()
		}
		if s.valid(p) {
			info.ValidFiles++
		} else {
			info.ExpiredFiles++
		}
	}
	return info, nil
}
