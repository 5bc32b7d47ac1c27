// Package lock provides the per-entity locking used to serialize transforms
// that touch the same tracker resources. Callers obtain a lock context from
// the manager, lock any number of keys through it, and release everything by
// closing it.
package lock

import (
	"context"
	"errors"
)

var (
	// ErrClosed is returned by any operation on a closed lock context.
	ErrClosed = errors.New("lock context is closed")
	// ErrContextBound is returned by Begin when the incoming context already
	// carries a lock context.
	ErrContextBound = errors.New("a lock context is already bound")
)

// Provider acquires and releases named locks. Implementations must block in
// Acquire until the key is held or ctx is done.
type Provider interface {
	Acquire(ctx context.Context, key string) error
	Release(ctx context.Context, keys []string) error
}

// Context tracks the keys held by one unit of work. It is not safe for
// concurrent use; a unit of work runs on one goroutine.
type Context interface {
	// Lock acquires key, blocking until it is held. Locking a key the
	// context already holds is a no-op.
	Lock(ctx context.Context, key string) error
	// UnlockAll releases every held key but keeps the context usable, so a
	// declined transform candidate can roll its locks back and the next
	// candidate can lock again.
	UnlockAll() error
	// Close releases every held key and invalidates the context permanently.
	Close() error
	// Held returns the keys currently held, in acquisition order.
	Held() []string
}

type ctxKey struct{}

// WithContext binds lc to ctx so downstream code can join it.
func WithContext(ctx context.Context, lc Context) context.Context {
	return context.WithValue(ctx, ctxKey{}, lc)
}

// FromContext returns the bound lock context, or nil.
func FromContext(ctx context.Context) Context {
	lc, _ := ctx.Value(ctxKey{}).(Context)
	return lc
}
