package rule

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/fhirbridge/fhirbridge/internal/platform/cache"
)

type mockRepo struct {
	rules     map[uuid.UUID]*Rule
	findCalls int
	getCalls  int
}

func newMockRepo() *mockRepo {
	return &mockRepo{rules: make(map[uuid.UUID]*Rule)}
}

func (m *mockRepo) Create(_ context.Context, r *Rule) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	m.rules[r.ID] = r
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Rule, error) {
	m.getCalls++
	r, ok := m.rules[id]
	if !ok {
		return nil, ErrNotFound
	}
	return r, nil
}

func (m *mockRepo) Update(_ context.Context, r *Rule) error {
	if _, ok := m.rules[r.ID]; !ok {
		return ErrNotFound
	}
	m.rules[r.ID] = r
	return nil
}

func (m *mockRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.rules[id]; !ok {
		return ErrNotFound
	}
	delete(m.rules, id)
	return nil
}

func (m *mockRepo) List(_ context.Context, _, _ int) ([]*Rule, error) {
	var out []*Rule
	for _, r := range m.rules {
		out = append(out, r)
	}
	return out, nil
}

func (m *mockRepo) FindAllByInputData(_ context.Context, fhirResourceType string, codes []string) ([]*Rule, error) {
	m.findCalls++
	var out []*Rule
	for _, r := range m.rules {
		if r.Enabled && r.FHIRResourceType == fhirResourceType && r.Applies(codes) {
			out = append(out, r)
		}
	}
	return out, nil
}

func TestCachedFindServesFromCache(t *testing.T) {
	ctx := context.Background()
	mock := newMockRepo()
	repo := NewCachedRepo(mock, cache.NewStore())

	ru := &Rule{Name: "imm", FHIRResourceType: "Immunization", Enabled: true}
	if err := mock.Create(ctx, ru); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 3; i++ {
		got, err := repo.FindAllByInputData(ctx, "Immunization", []string{"a", "b"})
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 1 {
			t.Fatalf("got %d rules", len(got))
		}
	}
	if mock.findCalls != 1 {
		t.Fatalf("findCalls = %d, want 1", mock.findCalls)
	}

	// Same elements in a different order with a duplicate must hit the same
	// cache entry.
	if _, err := repo.FindAllByInputData(ctx, "Immunization", []string{"b", "a", "a"}); err != nil {
		t.Fatal(err)
	}
	if mock.findCalls != 1 {
		t.Fatalf("findCalls = %d after permuted lookup, want 1", mock.findCalls)
	}
}

func TestCachedFindKeySeparatesTypeFromCodes(t *testing.T) {
	ctx := context.Background()
	mock := newMockRepo()
	repo := NewCachedRepo(mock, cache.NewStore())

	ru := &Rule{Name: "pat", FHIRResourceType: "Patient", Enabled: true}
	if err := mock.Create(ctx, ru); err != nil {
		t.Fatal(err)
	}

	got, err := repo.FindAllByInputData(ctx, "Patient", []string{"X"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d rules", len(got))
	}

	// Swapping the type and the code is a different lookup; it must not be
	// served from the first lookup's entry.
	swapped, err := repo.FindAllByInputData(ctx, "X", []string{"Patient"})
	if err != nil {
		t.Fatal(err)
	}
	if len(swapped) != 0 {
		t.Fatalf("swapped lookup returned %d rules, want 0", len(swapped))
	}
	if mock.findCalls != 2 {
		t.Fatalf("findCalls = %d, want 2 distinct cache entries", mock.findCalls)
	}
}

func TestCachedWriteEvictsFindResults(t *testing.T) {
	ctx := context.Background()
	mock := newMockRepo()
	repo := NewCachedRepo(mock, cache.NewStore())

	ru := &Rule{Name: "obs", FHIRResourceType: "Observation", Enabled: true}
	if err := repo.Create(ctx, ru); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.FindAllByInputData(ctx, "Observation", nil); err != nil {
		t.Fatal(err)
	}

	ru2 := &Rule{Name: "obs-2", FHIRResourceType: "Observation", Enabled: true}
	if err := repo.Create(ctx, ru2); err != nil {
		t.Fatal(err)
	}

	got, err := repo.FindAllByInputData(ctx, "Observation", nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d rules after create, want 2 (stale cache served)", len(got))
	}
}

func TestCachedWritePutsByID(t *testing.T) {
	ctx := context.Background()
	mock := newMockRepo()
	repo := NewCachedRepo(mock, cache.NewStore())

	ru := &Rule{Name: "pat", FHIRResourceType: "Patient", Enabled: true}
	if err := repo.Create(ctx, ru); err != nil {
		t.Fatal(err)
	}

	got, err := repo.GetByID(ctx, ru.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "pat" {
		t.Fatalf("Name = %q", got.Name)
	}
	if mock.getCalls != 0 {
		t.Fatalf("getCalls = %d, want 0 (create should have primed the entry)", mock.getCalls)
	}
}

func TestCachedDeleteEvicts(t *testing.T) {
	ctx := context.Background()
	mock := newMockRepo()
	repo := NewCachedRepo(mock, cache.NewStore())

	ru := &Rule{Name: "x", FHIRResourceType: "Patient", Enabled: true}
	if err := repo.Create(ctx, ru); err != nil {
		t.Fatal(err)
	}
	if err := repo.Delete(ctx, ru.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.GetByID(ctx, ru.ID); err != ErrNotFound {
		t.Fatalf("GetByID after delete = %v, want ErrNotFound", err)
	}
}
