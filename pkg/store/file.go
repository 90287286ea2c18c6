package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/kulturekool/tutor-gateway/pkg/core/types"
)

// File is the durable-file secondary store. One JSON document holds all
// sessions; expired entries are swept on every write.
type File struct {
	mu   sync.Mutex
	path string
	ttl  time.Duration
	now  func() time.Time
}

type fileEntry struct {
	Session *types.Session `json:"session"`
	SavedAt time.Time      `json:"saved_at"`
}

// NewFile creates a file store at path. A zero ttl means DefaultTTL.
func NewFile(path string, ttl time.Duration) *File {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &File{path: path, ttl: ttl, now: time.Now}
}

func (f *File) Save(ctx context.Context, sess *types.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	entries, err := f.readAll()
	if err != nil {
		return err
	}
	now := f.now().UTC()
	f.sweep(entries, now)
	entries[sess.ID] = fileEntry{Session: sess, SavedAt: now}
	return f.writeAll(entries)
}

func (f *File) Load(ctx context.Context, id string) (*types.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	entries, err := f.readAll()
	if err != nil {
		return nil, err
	}
	entry, ok := entries[id]
	if !ok || entry.Session == nil {
		return nil, ErrNotFound
	}
	if f.now().UTC().Sub(entry.SavedAt) > f.ttl {
		return nil, ErrNotFound
	}
	sess := *entry.Session
	sess.Normalize()
	if err := sess.Validate(); err != nil {
		return nil, fmt.Errorf("invalid stored session: %w", err)
	}
	return &sess, nil
}

func (f *File) Ping(ctx context.Context) error {
	dir := filepath.Dir(f.path)
	if _, err := os.Stat(dir); err != nil {
		return fmt.Errorf("file store dir: %w", err)
	}
	return nil
}

func (f *File) readAll() (map[string]fileEntry, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]fileEntry{}, nil
		}
		return nil, fmt.Errorf("read sessions file: %w", err)
	}
	entries := map[string]fileEntry{}
	if len(data) == 0 {
		return entries, nil
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode sessions file: %w", err)
	}
	return entries, nil
}

func (f *File) writeAll(entries map[string]fileEntry) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encode sessions file: %w", err)
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write sessions file: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("replace sessions file: %w", err)
	}
	return nil
}

func (f *File) sweep(entries map[string]fileEntry, now time.Time) {
	for id, entry := range entries {
		if now.Sub(entry.SavedAt) > f.ttl {
			delete(entries, id)
		}
	}
}
