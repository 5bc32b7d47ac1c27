package cache

import "sync"

// Store is a minimal concurrent cache for repository decorators. Writes to
// the owning repository call Put (single-entity writes) or EvictAll (bulk
// writes) so stale metadata is never served.
type Store struct {
	mu      sync.RWMutex
	entries map[string]interface{}
}

func NewStore() *Store {
	return &Store{entries: make(map[string]interface{})}
}

func (s *Store) Get(key string) (interface{}, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.entries[key]
	return v, ok
}

func (s *Store) Put(key string, value interface{}) {
	s.mu.Lock()
	s.entries[key] = value
	s.mu.Unlock()
}

func (s *Store) Evict(key string) {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
}

// EvictAll drops every entry. Used on bulk or structural writes where
// invalidating individual keys would be unsound.
func (s *Store) EvictAll() {
	s.mu.Lock()
	s.entries = make(map[string]interface{})
	s.mu.Unlock()
}

// Len reports the number of cached entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
