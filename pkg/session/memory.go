package session

import (
	"context"
	"sync"

	"venuebot/pkg/venue"
)

// MemoryStore is a process-local Store for tests and single-process runs.
type MemoryStore struct {
	mu      sync.RWMutex
	results map[int64]venue.SearchResult
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{results: make(map[int64]venue.SearchResult)}
}

func (m *MemoryStore) Save(_ context.Context, chatID int64, result venue.SearchResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.results[chatID] = cloneResult(result)
	return nil
}

func (m *MemoryStore) Load(_ context.Context, chatID int64) (venue.SearchResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result, ok := m.results[chatID]
	if !ok {
		return nil, ErrNotFound
	}

	return cloneResult(result), nil
}

func cloneResult(result venue.SearchResult) venue.SearchResult {
	if result == nil {
		return venue.SearchResult{}
	}

	out := make(venue.SearchResult, len(result))
	for i, v := range result {
		v.Tips = append([]venue.Tip(nil), v.Tips...)
		out[i] = v
	}
	return out
}
