package queue

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is the in-process admission store used in tests and
// single-instance deployments.
type MemoryStore struct {
	mu    sync.Mutex
	items map[memKey]time.Time
}

type memKey struct {
	group string
	id    string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[memKey]time.Time)}
}

func (s *MemoryStore) Enqueue(_ context.Context, item QueuedItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := memKey{group: item.DataGroup, id: item.ItemID}
	if _, ok := s.items[k]; ok {
		return ErrAlreadyQueued
	}
	if item.QueuedAt.IsZero() {
		item.QueuedAt = time.Now()
	}
	s.items[k] = item.QueuedAt
	return nil
}

func (s *MemoryStore) Dequeue(_ context.Context, dataGroup, itemID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := memKey{group: dataGroup, id: itemID}
	if _, ok := s.items[k]; !ok {
		return false, nil
	}
	delete(s.items, k)
	return true, nil
}

// Len reports the number of queued items.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}
