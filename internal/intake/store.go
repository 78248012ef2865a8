package intake

import (
	"context"
	"sync"
	"time"
)

// Entry is the persisted state of one limiter key.
type Entry struct {
	Attempts     int        `json:"attempts"`
	LastAttempt  time.Time  `json:"lastAttempt"`
	BlockedUntil *time.Time `json:"blockedUntil,omitempty"`
}

// Store persists limiter entries. Implementations must be safe for
// concurrent use; ttl lets a backend expire entries nobody touches again.
type Store interface {
	Get(ctx context.Context, key string) (Entry, bool, error)
	Set(ctx context.Context, key string, entry Entry, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// MemoryStore keeps entries in process memory.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryItem
	now     func() time.Time
}

type memoryItem struct {
	entry     Entry
	expiresAt time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryItem), now: time.Now}
}

func (m *MemoryStore) Get(_ context.Context, key string) (Entry, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.entries[key]
	if !ok {
		return Entry{}, false, nil
	}
	if !item.expiresAt.IsZero() && !m.now().Before(item.expiresAt) {
		delete(m.entries, key)
		return Entry{}, false, nil
	}
	return item.entry, true, nil
}

func (m *MemoryStore) Set(_ context.Context, key string, entry Entry, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	item := memoryItem{entry: entry}
	if ttl > 0 {
		item.expiresAt = m.now().Add(ttl)
	}
	m.entries[key] = item
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

// Len reports the number of stored keys, expired ones included.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
