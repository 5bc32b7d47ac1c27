package rule

import (
	"context"

	"github.com/google/uuid"

	"github.com/fhirbridge/fhirbridge/internal/platform/cache"
)

// cachedRepo is a read-through caching decorator. Reads are served from the
// cache when present; single-entity writes refresh the entity's own entry and
// evict everything else, since a changed rule can join or leave any selector
// result.
type cachedRepo struct {
	next  Repository
	store *cache.Store
}

// NewCachedRepo wraps a repository with an in-memory cache.
func NewCachedRepo(next Repository, store *cache.Store) Repository {
	return &cachedRepo{next: next, store: store}
}

func idKey(id uuid.UUID) string {
	return cache.Key("GetByID", id.String())
}

func (r *cachedRepo) Create(ctx context.Context, ru *Rule) error {
	if err := r.next.Create(ctx, ru); err != nil {
		return err
	}
	r.store.EvictAll()
	r.store.Put(idKey(ru.ID), ru)
	return nil
}

func (r *cachedRepo) GetByID(ctx context.Context, id uuid.UUID) (*Rule, error) {
	key := idKey(id)
	if v, ok := r.store.Get(key); ok {
		return v.(*Rule), nil
	}
	ru, err := r.next.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	r.store.Put(key, ru)
	return ru, nil
}

func (r *cachedRepo) Update(ctx context.Context, ru *Rule) error {
	if err := r.next.Update(ctx, ru); err != nil {
		return err
	}
	r.store.EvictAll()
	r.store.Put(idKey(ru.ID), ru)
	return nil
}

func (r *cachedRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if err := r.next.Delete(ctx, id); err != nil {
		return err
	}
	r.store.EvictAll()
	return nil
}

func (r *cachedRepo) List(ctx context.Context, limit, offset int) ([]*Rule, error) {
	return r.next.List(ctx, limit, offset)
}

func (r *cachedRepo) FindAllByInputData(ctx context.Context, fhirResourceType string, codes []string) ([]*Rule, error) {
	// The resource type stays outside the sorted code set so a type can never
	// trade places with a code of the same spelling.
	key := cache.Key("FindAllByInputData"+cache.KeyDelimiter+fhirResourceType, codes...)
	if v, ok := r.store.Get(key); ok {
		return v.([]*Rule), nil
	}
	rules, err := r.next.FindAllByInputData(ctx, fhirResourceType, codes)
	if err != nil {
		return nil, err
	}
	r.store.Put(key, rules)
	return rules, nil
}
