package framestore

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps frames in process memory. Used for tests and when no
// durable backend is configured.
type MemoryStore struct {
	mu     sync.RWMutex
	frames map[string][]byte
	now    func() time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		frames: make(map[string][]byte),
		now:    time.Now,
	}
}

// Store saves a copy of jpeg under a fresh id.
func (m *MemoryStore) Store(ctx context.Context, jpeg []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	buf := make([]byte, len(jpeg))
	copy(buf, jpeg)

	m.mu.Lock()
	defer m.mu.Unlock()

	id := NewFrameID(m.now())
	for m.frames[id] != nil {
		id = NewFrameID(m.now())
	}
	m.frames[id] = buf
	return id, nil
}

// Fetch returns a copy of the frame stored under id.
func (m *MemoryStore) Fetch(ctx context.Context, id string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.frames[id]
	if !ok {
		return nil, ErrNotFound
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	return buf, nil
}

// Len reports how many frames are held.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.frames)
}
