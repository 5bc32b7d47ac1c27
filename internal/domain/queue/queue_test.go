package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestMemoryStoreEnqueueDequeue(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	item := QueuedItem{DataGroup: "EVENT", ItemID: "ev-1"}
	if err := s.Enqueue(ctx, item); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if err := s.Enqueue(ctx, item); !errors.Is(err, ErrAlreadyQueued) {
		t.Fatalf("second Enqueue = %v, want ErrAlreadyQueued", err)
	}

	// A different group is a different identity.
	if err := s.Enqueue(ctx, QueuedItem{DataGroup: "TRACKED_ENTITY", ItemID: "ev-1"}); err != nil {
		t.Fatalf("Enqueue other group: %v", err)
	}

	ok, err := s.Dequeue(ctx, "EVENT", "ev-1")
	if err != nil || !ok {
		t.Fatalf("Dequeue = (%v, %v)", ok, err)
	}
	ok, err = s.Dequeue(ctx, "EVENT", "ev-1")
	if err != nil {
		t.Fatalf("Dequeue absent: %v", err)
	}
	if ok {
		t.Fatal("dequeue of absent item reported true")
	}

	// Dequeued items can be enqueued again.
	if err := s.Enqueue(ctx, item); err != nil {
		t.Fatalf("re-Enqueue: %v", err)
	}
}

func TestMemoryStoreConcurrentEnqueueSingleWinner(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	var wg sync.WaitGroup
	var winners int32
	var mu sync.Mutex

	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.Enqueue(ctx, QueuedItem{DataGroup: "EVENT", ItemID: "contended"})
			if err == nil {
				mu.Lock()
				winners++
				mu.Unlock()
			} else if !errors.Is(err, ErrAlreadyQueued) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if winners != 1 {
		t.Fatalf("winners = %d, want exactly 1", winners)
	}
}

// fakeSource serves a fixed timeline of items with an inclusive since filter,
// the way the tracker API behaves.
type fakeSource struct {
	items []ProcessedItemInfo
	calls int
}

func (f *fakeSource) ItemsUpdatedSince(_ context.Context, since time.Time, max int) ([]ProcessedItemInfo, error) {
	f.calls++
	var out []ProcessedItemInfo
	for _, it := range f.items {
		if it.LastUpdated != nil && it.LastUpdated.Before(since) {
			continue
		}
		out = append(out, it)
		if len(out) == max {
			break
		}
	}
	return out, nil
}

func ts(sec int) *time.Time {
	t := time.Date(2024, 5, 1, 12, 0, sec, 0, time.UTC)
	return &t
}

func TestRetrieverPollAdvancesWatermark(t *testing.T) {
	src := &fakeSource{items: []ProcessedItemInfo{
		{ID: "a", LastUpdated: ts(1)},
		{ID: "b", LastUpdated: ts(2)},
		{ID: "c", LastUpdated: ts(3)},
	}}
	r := NewRetriever(src, 10, zerolog.Nop())

	var seen []string
	mark, err := r.Poll(context.Background(), ts(0).Add(-time.Second), func(_ context.Context, items []ProcessedItemInfo) error {
		for _, it := range items {
			seen = append(seen, it.ID)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if len(seen) != 3 {
		t.Fatalf("seen = %v", seen)
	}
	if !mark.Equal(*ts(3)) {
		t.Fatalf("mark = %v, want %v", mark, ts(3))
	}

	// A second poll from the new watermark re-serves nothing, even though the
	// source filter is inclusive.
	seen = nil
	mark2, err := r.Poll(context.Background(), mark, func(_ context.Context, items []ProcessedItemInfo) error {
		for _, it := range items {
			seen = append(seen, it.ID)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("second Poll: %v", err)
	}
	if len(seen) != 0 {
		t.Fatalf("re-served items: %v", seen)
	}
	if !mark2.Equal(mark) {
		t.Fatalf("mark moved without items: %v", mark2)
	}
}

func TestRetrieverPollDrainsFullBatches(t *testing.T) {
	src := &fakeSource{items: []ProcessedItemInfo{
		{ID: "a", LastUpdated: ts(1)},
		{ID: "b", LastUpdated: ts(2)},
		{ID: "c", LastUpdated: ts(3)},
		{ID: "d", LastUpdated: ts(4)},
		{ID: "e", LastUpdated: ts(5)},
	}}
	r := NewRetriever(src, 2, zerolog.Nop())

	var seen []string
	_, err := r.Poll(context.Background(), ts(0).Add(-time.Second), func(_ context.Context, items []ProcessedItemInfo) error {
		for _, it := range items {
			seen = append(seen, it.ID)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if len(seen) != 5 {
		t.Fatalf("seen = %v, want all 5 drained in one Poll", seen)
	}
	if src.calls < 3 {
		t.Fatalf("calls = %d, expected repeated scans", src.calls)
	}
}

func TestRetrieverPollDropsUnstampedItems(t *testing.T) {
	src := &fakeSource{items: []ProcessedItemInfo{
		{ID: "a", LastUpdated: ts(1)},
		{ID: "b"},
		{ID: "c"},
	}}
	r := NewRetriever(src, 3, zerolog.Nop())

	var seen []string
	mark, err := r.Poll(context.Background(), ts(0).Add(-time.Second), func(_ context.Context, items []ProcessedItemInfo) error {
		for _, it := range items {
			seen = append(seen, it.ID)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if len(seen) != 1 || seen[0] != "a" {
		t.Fatalf("seen = %v, want only the stamped item", seen)
	}
	if !mark.Equal(*ts(1)) {
		t.Fatalf("mark = %v, want %v", mark, ts(1))
	}
	// A full batch of unstamped items must terminate, not re-scan forever.
	if src.calls > 2 {
		t.Fatalf("calls = %d, poller kept re-scanning unstamped items", src.calls)
	}
}

func TestRetrieverConsumerErrorHoldsWatermark(t *testing.T) {
	src := &fakeSource{items: []ProcessedItemInfo{{ID: "a", LastUpdated: ts(1)}}}
	r := NewRetriever(src, 10, zerolog.Nop())

	start := ts(0).Add(-time.Second)
	boom := errors.New("boom")
	mark, err := r.Poll(context.Background(), start, func(context.Context, []ProcessedItemInfo) error {
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	if !mark.Equal(start) {
		t.Fatalf("watermark advanced past a failed batch: %v", mark)
	}
}
