package monitor

import (
	"context"
	"sync"

	"api-monitor/model"
)

// MemoryTokenStore is the in-process TokenStore.
type MemoryTokenStore struct {
	mu      sync.RWMutex
	entries map[string]model.TokenCacheEntry
}

func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{entries: make(map[string]model.TokenCacheEntry)}
}

func (s *MemoryTokenStore) Load(_ context.Context, profileID string) (model.TokenCacheEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[profileID]
	return e, ok
}

func (s *MemoryTokenStore) Save(_ context.Context, profileID string, entry model.TokenCacheEntry) {
	s.mu.Lock()
	s.entries[profileID] = entry
	s.mu.Unlock()
}

func (s *MemoryTokenStore) Clear(_ context.Context) {
	s.mu.Lock()
	clear(s.entries)
	s.mu.Unlock()
}

// Len reports the number of cached tokens.
func (s *MemoryTokenStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
