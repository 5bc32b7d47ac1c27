package queue

import (
	"context"
	"errors"
)

// ErrAlreadyQueued is returned by Enqueue when the item is already queued.
// Exactly one of any number of concurrent enqueuers of the same item wins;
// the rest receive this error.
var ErrAlreadyQueued = errors.New("item is already queued")

// Store is the queued-item admission store.
type Store interface {
	// Enqueue records the item, or returns ErrAlreadyQueued if it is present.
	Enqueue(ctx context.Context, item QueuedItem) error
	// Dequeue removes the item. The boolean reports whether it existed;
	// removing an absent item is not an error.
	Dequeue(ctx context.Context, dataGroup, itemID string) (bool, error)
}
