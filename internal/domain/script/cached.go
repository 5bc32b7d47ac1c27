package script

import (
	"context"

	"github.com/google/uuid"

	"github.com/fhirbridge/fhirbridge/internal/platform/cache"
)

// cachedRepo is a read-through caching decorator. The transform path resolves
// the same executable scripts for every inbound resource, so those lookups
// are served from memory. Writes evict everything: a new script version can
// change what any resolved executable means.
type cachedRepo struct {
	next  Repository
	store *cache.Store
}

// NewCachedRepo wraps a repository with an in-memory cache.
func NewCachedRepo(next Repository, store *cache.Store) Repository {
	return &cachedRepo{next: next, store: store}
}

func (r *cachedRepo) CreateScript(ctx context.Context, s *Script) error {
	if err := r.next.CreateScript(ctx, s); err != nil {
		return err
	}
	r.store.EvictAll()
	return nil
}

func (r *cachedRepo) GetScript(ctx context.Context, id uuid.UUID) (*Script, error) {
	key := cache.Key("GetScript", id.String())
	if v, ok := r.store.Get(key); ok {
		return v.(*Script), nil
	}
	s, err := r.next.GetScript(ctx, id)
	if err != nil {
		return nil, err
	}
	r.store.Put(key, s)
	return s, nil
}

func (r *cachedRepo) GetScriptByCode(ctx context.Context, code string) (*Script, error) {
	key := cache.Key("GetScriptByCode", code)
	if v, ok := r.store.Get(key); ok {
		return v.(*Script), nil
	}
	s, err := r.next.GetScriptByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	r.store.Put(key, s)
	return s, nil
}

func (r *cachedRepo) ListScripts(ctx context.Context, limit, offset int) ([]*Script, error) {
	return r.next.ListScripts(ctx, limit, offset)
}

func (r *cachedRepo) CreateExecutable(ctx context.Context, es *ExecutableScript) error {
	if err := r.next.CreateExecutable(ctx, es); err != nil {
		return err
	}
	r.store.EvictAll()
	return nil
}

func (r *cachedRepo) GetExecutable(ctx context.Context, id uuid.UUID) (*ExecutableScript, error) {
	key := cache.Key("GetExecutable", id.String())
	if v, ok := r.store.Get(key); ok {
		return v.(*ExecutableScript), nil
	}
	es, err := r.next.GetExecutable(ctx, id)
	if err != nil {
		return nil, err
	}
	r.store.Put(key, es)
	return es, nil
}

func (r *cachedRepo) GetExecutableByCode(ctx context.Context, code string) (*ExecutableScript, error) {
	key := cache.Key("GetExecutableByCode", code)
	if v, ok := r.store.Get(key); ok {
		return v.(*ExecutableScript), nil
	}
	es, err := r.next.GetExecutableByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	r.store.Put(key, es)
	return es, nil
}
