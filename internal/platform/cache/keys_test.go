package cache

import "testing"

func TestKey_OrderIndependent(t *testing.T) {
	a := Key("findAllByInputData", "Observation", "loinc|8867-4", "loinc|9279-1")
	b := Key("findAllByInputData", "loinc|9279-1", "Observation", "loinc|8867-4")
	if a != b {
		t.Fatalf("keys differ for permuted input: %q vs %q", a, b)
	}
}

func TestKey_DeDuplicates(t *testing.T) {
	a := Key("m", "x", "x", "y")
	b := Key("m", "y", "x")
	if a != b {
		t.Fatalf("duplicate elements changed the key: %q vs %q", a, b)
	}
}

func TestKey_DistinctContentDistinctKeys(t *testing.T) {
	a := Key("m", "x", "y")
	b := Key("m", "x", "z")
	if a == b {
		t.Fatalf("distinct collections produced the same key %q", a)
	}
}

func TestKey_NoParts(t *testing.T) {
	if got := Key("listAll"); got != "listAll" {
		t.Fatalf("Key with no parts = %q, want method name", got)
	}
}

func TestStore_PutGetEvict(t *testing.T) {
	s := NewStore()
	s.Put("k", 42)
	if v, ok := s.Get("k"); !ok || v.(int) != 42 {
		t.Fatalf("Get after Put = %v, %v", v, ok)
	}
	s.Evict("k")
	if _, ok := s.Get("k"); ok {
		t.Fatal("entry survived Evict")
	}
	s.Put("a", 1)
	s.Put("b", 2)
	s.EvictAll()
	if s.Len() != 0 {
		t.Fatalf("Len after EvictAll = %d", s.Len())
	}
}
