package lock

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
)

// AdvisoryProvider implements cluster-wide locks with Postgres session
// advisory locks. A local MemoryProvider serializes holders within the
// process first, so at most one goroutine per key ever reaches the database;
// the advisory lock then excludes other adapter instances.
//
// Each held key pins one pooled connection, because advisory locks are bound
// to the session that took them.
type AdvisoryProvider struct {
	pool  *pgxpool.Pool
	local *MemoryProvider

	mu    sync.Mutex
	conns map[string]*pgxpool.Conn
}

func NewAdvisoryProvider(pool *pgxpool.Pool) *AdvisoryProvider {
	return &AdvisoryProvider{
		pool:  pool,
		local: NewMemoryProvider(),
		conns: make(map[string]*pgxpool.Conn),
	}
}

func (p *AdvisoryProvider) Acquire(ctx context.Context, key string) error {
	if err := p.local.Acquire(ctx, key); err != nil {
		return err
	}

	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		_ = p.local.Release(context.Background(), []string{key})
		return fmt.Errorf("acquire lock connection: %w", err)
	}

	if _, err := conn.Exec(ctx, `SELECT pg_advisory_lock(hashtextextended($1, 0))`, key); err != nil {
		conn.Release()
		_ = p.local.Release(context.Background(), []string{key})
		return fmt.Errorf("acquire advisory lock %s: %w", key, err)
	}

	p.mu.Lock()
	p.conns[key] = conn
	p.mu.Unlock()
	return nil
}

func (p *AdvisoryProvider) Release(ctx context.Context, keys []string) error {
	var firstErr error
	for _, key := range keys {
		p.mu.Lock()
		conn := p.conns[key]
		delete(p.conns, key)
		p.mu.Unlock()

		if conn != nil {
			if _, err := conn.Exec(ctx, `SELECT pg_advisory_unlock(hashtextextended($1, 0))`, key); err != nil && firstErr == nil {
				firstErr = fmt.Errorf("release advisory lock %s: %w", key, err)
			}
			conn.Release()
		}
	}
	if err := p.local.Release(ctx, keys); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
