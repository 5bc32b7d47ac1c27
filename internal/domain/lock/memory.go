package lock

import (
	"context"
	"sync"
)

// MemoryProvider serializes lock holders within a single process. Each key
// maps to a channel that is closed on release; waiters re-check ownership
// after every hand-off.
type MemoryProvider struct {
	mu    sync.Mutex
	locks map[string]chan struct{}
}

func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{locks: make(map[string]chan struct{})}
}

func (p *MemoryProvider) Acquire(ctx context.Context, key string) error {
	for {
		p.mu.Lock()
		ch, held := p.locks[key]
		if !held {
			p.locks[key] = make(chan struct{})
			p.mu.Unlock()
			return nil
		}
		p.mu.Unlock()

		select {
		case <-ch:
			// Holder released; race for the key again.
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (p *MemoryProvider) Release(_ context.Context, keys []string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, key := range keys {
		if ch, ok := p.locks[key]; ok {
			delete(p.locks, key)
			close(ch)
		}
	}
	return nil
}
