package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Source lists remote items modified since a given instant, in ascending
// last-updated order, at most max per call.
type Source interface {
	ItemsUpdatedSince(ctx context.Context, since time.Time, max int) ([]ProcessedItemInfo, error)
}

// Consumer receives one batch of polled items.
type Consumer func(ctx context.Context, items []ProcessedItemInfo) error

// Retriever polls a source for modified items and tracks the high-water mark.
type Retriever struct {
	source    Source
	batchSize int
	log       zerolog.Logger
}

func NewRetriever(source Source, batchSize int, log zerolog.Logger) *Retriever {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Retriever{source: source, batchSize: batchSize, log: log}
}

// Poll scans the source for items modified strictly after since, invoking
// consume once per batch, and returns the new high-water mark. A full batch
// triggers another scan from the batch's last timestamp, so a burst larger
// than the batch size is drained in one Poll call.
//
// The watermark only advances over items the consumer accepted; a consumer
// error returns the mark reached so far, so the failed batch is re-polled.
func (r *Retriever) Poll(ctx context.Context, since time.Time, consume Consumer) (time.Time, error) {
	mark := since
	for {
		items, err := r.source.ItemsUpdatedSince(ctx, mark, r.batchSize)
		if err != nil {
			return mark, fmt.Errorf("poll source: %w", err)
		}

		// Sources with inclusive filters re-serve the item at the exact
		// watermark; drop anything not strictly newer. An item without a
		// last-updated stamp can never advance the mark, so it is dropped
		// too or a full batch of them would be re-polled forever.
		fresh := items[:0]
		for _, it := range items {
			if it.LastUpdated == nil {
				r.log.Warn().Str("item", it.ID).Msg("polled item has no last-updated stamp, skipping")
				continue
			}
			if !it.LastUpdated.After(mark) {
				continue
			}
			fresh = append(fresh, it)
		}
		if len(fresh) == 0 {
			return mark, nil
		}

		if err := consume(ctx, fresh); err != nil {
			return mark, fmt.Errorf("consume polled items: %w", err)
		}

		for _, it := range fresh {
			if it.LastUpdated.After(mark) {
				mark = *it.LastUpdated
			}
		}
		r.log.Debug().Int("items", len(fresh)).Time("watermark", mark).Msg("polled batch")

		if len(items) < r.batchSize {
			return mark, nil
		}
	}
}
