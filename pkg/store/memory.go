package store

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/kulturekool/tutor-gateway/pkg/core/types"
)

// Memory is an in-process store for tests and local development. Sessions are
// deep-copied through JSON so callers never share mutable state with the
// store.
type Memory struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time

	// FailSave and FailLoad force errors, for exercising fallback paths.
	FailSave error
	FailLoad error
}

type memoryEntry struct {
	data    []byte
	savedAt time.Time
}

// NewMemory creates an in-memory store. A zero ttl means DefaultTTL.
func NewMemory(ttl time.Duration) *Memory {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Memory{entries: map[string]memoryEntry{}, ttl: ttl, now: time.Now}
}

func (m *Memory) Save(ctx context.Context, sess *types.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailSave != nil {
		return m.FailSave
	}
	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	m.entries[sess.ID] = memoryEntry{data: data, savedAt: m.now()}
	return nil
}

func (m *Memory) Load(ctx context.Context, id string) (*types.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailLoad != nil {
		return nil, m.FailLoad
	}
	entry, ok := m.entries[id]
	if !ok || m.now().Sub(entry.savedAt) > m.ttl {
		return nil, ErrNotFound
	}
	var sess types.Session
	if err := json.Unmarshal(entry.data, &sess); err != nil {
		return nil, err
	}
	sess.Normalize()
	return &sess, nil
}

func (m *Memory) Ping(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailSave != nil {
		return m.FailSave
	}
	return nil
}

// Len reports the number of live entries.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
