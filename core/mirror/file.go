package mirror

import (
	"context"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"
)

// envelope is the on-disk representation of one value.
type envelope struct {
	Timestamp time.Time       `json:"timestamp"`
	Value     json.RawMessage `json:"value"`
}

// FileBackend keeps one JSON file per key under a state directory.
type FileBackend struct {
	dir string
}

// MustNewFileBackend creates the state directory if needed and returns
// a file backend on it.
func MustNewFileBackend(dir string) *FileBackend {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		panic(err)
	}
	return &FileBackend{dir: dir}
}

func (b *FileBackend) path(key string) string {
	return filepath.Join(b.dir, url.PathEscape(key)+".json")
}

// Load reads the value stored under key.
func (b *FileBackend) Load(ctx context.Context, key string) ([]byte, time.Time, error) {
	raw, err := os.ReadFile(b.path(key))
	if os.IsNotExist(err) {
		return nil, time.Time{}, ErrNoValue
	}
	if err != nil {
		return nil, time.Time{}, err
	}
	var e envelope
	if err := json.Unmarshal(raw, &e); err != nil || e.Value == nil {
		return nil, time.Time{}, ErrCorrupt
	}
	return e.Value, e.Timestamp, nil
}

// Store writes the value under key. The file is replaced atomically so a
// crash mid-write never leaves a half-written value behind.
func (b *FileBackend) Store(ctx context.Context, key string, value []byte, timestamp time.Time) error {
	raw, err := json.Marshal(envelope{Timestamp: timestamp, Value: value})
	if err != nil {
		return err
	}
	path := b.path(key)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Remove deletes the value stored under key. Removing an absent key is
// not an error.
func (b *FileBackend) Remove(ctx context.Context, key string) error {
	err := os.Remove(b.path(key))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
