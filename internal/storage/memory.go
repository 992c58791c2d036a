package storage

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore mirrors SQLiteStore's surface without persistence. Intended
// for tests and for deployments that accept losing local state on restart.
type MemoryStore struct {
	mu      sync.RWMutex
	cache   map[string][]byte
	pending map[string]PendingEntity
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		cache:   make(map[string][]byte),
		pending: make(map[string]PendingEntity),
	}
}

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) Write(_ context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache[key] = append([]byte(nil), data...)
	return nil
}

func (s *MemoryStore) Read(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.cache[key]
	return data, ok, nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cache, key)
	return nil
}

func (s *MemoryStore) EnqueuePending(_ context.Context, kind, localID string, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[localID] = PendingEntity{
		LocalID:   localID,
		Kind:      kind,
		Payload:   append([]byte(nil), payload...),
		CreatedAt: time.Now().UTC(),
	}
	return nil
}

func (s *MemoryStore) PendingEntities(_ context.Context, limit int) ([]PendingEntity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pending := make([]PendingEntity, 0, len(s.pending))
	for _, e := range s.pending {
		pending = append(pending, e)
	}
	sort.Slice(pending, func(i, j int) bool {
		return pending[i].CreatedAt.Before(pending[j].CreatedAt)
	})
	if len(pending) > limit {
		pending = pending[:limit]
	}
	return pending, nil
}

func (s *MemoryStore) MarkReconciled(_ context.Context, localID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, localID)
	return nil
}

func (s *MemoryStore) MarkReconcileError(_ context.Context, localID, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.pending[localID]; ok {
		e.Attempts++
		e.LastError = message
		s.pending[localID] = e
	}
	return nil
}

func (s *MemoryStore) PendingCount(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.pending)), nil
}
