package session

import (
	"sync"
	"time"
)

// MemoryStore keeps the session in process memory only
type MemoryStore struct {
	mu      sync.RWMutex
	access  string
	refresh string
	savedAt time.Time
}

// NewMemoryStore returns an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Save(access, refresh string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.access = access
	m.refresh = refresh
	m.savedAt = time.Now().UTC()
	return nil
}

func (m *MemoryStore) Access() (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.access, m.access != ""
}

func (m *MemoryStore) Refresh() (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.refresh, m.refresh != ""
}

func (m *MemoryStore) SetAccess(access string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.access = access
	m.savedAt = time.Now().UTC()
	return nil
}

func (m *MemoryStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.access = ""
	m.refresh = ""
	m.savedAt = time.Time{}
	return nil
}

func (m *MemoryStore) SavedAt() (time.Time, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.savedAt, !m.savedAt.IsZero()
}

func (m *MemoryStore) Close() error {
	return nil
}
