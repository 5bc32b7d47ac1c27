package lock

import "context"

// Manager creates lock contexts backed by a provider.
type Manager struct {
	provider Provider
}

func NewManager(provider Provider) *Manager {
	return &Manager{provider: provider}
}

// Begin creates a fresh lock context and binds it to the returned
// context.Context. It is an error if ctx already carries one; nested units of
// work must use JoinOrBegin.
func (m *Manager) Begin(ctx context.Context) (context.Context, Context, error) {
	if FromContext(ctx) != nil {
		return nil, nil, ErrContextBound
	}
	lc := &lockContext{provider: m.provider}
	return WithContext(ctx, lc), lc, nil
}

// JoinOrBegin returns the lock context already bound to ctx, wrapped so the
// caller can close its own handle without releasing locks the outer unit of
// work still needs. Without a bound context it behaves like Begin.
func (m *Manager) JoinOrBegin(ctx context.Context) (context.Context, Context, error) {
	if lc := FromContext(ctx); lc != nil {
		return ctx, &joinedContext{inner: lc}, nil
	}
	return m.Begin(ctx)
}

// lockContext is the owning implementation: it holds the keys and releases
// them on UnlockAll/Close.
type lockContext struct {
	provider Provider
	held     []string
	closed   bool
}

func (lc *lockContext) Lock(ctx context.Context, key string) error {
	if lc.closed {
		return ErrClosed
	}
	for _, k := range lc.held {
		if k == key {
			return nil
		}
	}
	if err := lc.provider.Acquire(ctx, key); err != nil {
		return err
	}
	lc.held = append(lc.held, key)
	return nil
}

func (lc *lockContext) UnlockAll() error {
	if lc.closed {
		return ErrClosed
	}
	return lc.release()
}

func (lc *lockContext) Close() error {
	if lc.closed {
		return ErrClosed
	}
	err := lc.release()
	lc.closed = true
	return err
}

func (lc *lockContext) release() error {
	if len(lc.held) == 0 {
		return nil
	}
	keys := lc.held
	lc.held = nil
	// Release must not be cut short by a cancelled request context.
	return lc.provider.Release(context.Background(), keys)
}

// unlock releases only the given keys, keeping the rest held. It backs the
// rollback of a joined handle's attempt without disturbing the owner's locks.
func (lc *lockContext) unlock(keys []string) error {
	if lc.closed {
		return ErrClosed
	}
	drop := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		drop[k] = struct{}{}
	}
	var released []string
	kept := lc.held[:0]
	for _, k := range lc.held {
		if _, ok := drop[k]; ok {
			released = append(released, k)
			continue
		}
		kept = append(kept, k)
	}
	lc.held = kept
	if len(released) == 0 {
		return nil
	}
	return lc.provider.Release(context.Background(), released)
}

func (lc *lockContext) Held() []string {
	out := make([]string, len(lc.held))
	copy(out, lc.held)
	return out
}

// keyUnlocker is implemented by the owning context so a joined handle can
// release exactly the keys its own attempt acquired.
type keyUnlocker interface {
	unlock(keys []string) error
}

// joinedContext delegates lock acquisition to the shared inner context but
// keeps its own open/closed state and remembers which keys it newly acquired.
// UnlockAll rolls back just those keys; closing a joined handle must not
// release locks the owner still holds.
type joinedContext struct {
	inner    Context
	acquired []string
	closed   bool
}

func (jc *joinedContext) Lock(ctx context.Context, key string) error {
	if jc.closed {
		return ErrClosed
	}
	for _, k := range jc.inner.Held() {
		if k == key {
			// The owner already holds this key; it is not ours to roll back.
			return nil
		}
	}
	if err := jc.inner.Lock(ctx, key); err != nil {
		return err
	}
	jc.acquired = append(jc.acquired, key)
	return nil
}

func (jc *joinedContext) UnlockAll() error {
	if jc.closed {
		return ErrClosed
	}
	if len(jc.acquired) == 0 {
		return nil
	}
	keys := jc.acquired
	jc.acquired = nil
	if u, ok := jc.inner.(keyUnlocker); ok {
		return u.unlock(keys)
	}
	// An owner without per-key release gives up everything rather than leave
	// the attempt's keys held.
	return jc.inner.UnlockAll()
}

func (jc *joinedContext) Close() error {
	if jc.closed {
		return ErrClosed
	}
	jc.closed = true
	return nil
}

func (jc *joinedContext) Held() []string {
	if jc.closed {
		return nil
	}
	return jc.inner.Held()
}
