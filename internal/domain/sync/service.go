package sync

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/fhirbridge/fhirbridge/internal/domain/queue"
)

// Processor handles one admitted item. Returning an error leaves the item
// queued so a later cycle retries it.
type Processor func(ctx context.Context, item queue.ProcessedItemInfo) error

// Service ties the poller, the admission store and the processor into the
// asynchronous sync loop for one data group.
type Service struct {
	dataGroup string
	retriever *queue.Retriever
	store     queue.Store
	marks     WatermarkRepo
	process   Processor
	interval  time.Duration
	log       zerolog.Logger
}

func NewService(dataGroup string, retriever *queue.Retriever, store queue.Store, marks WatermarkRepo, process Processor, interval time.Duration, log zerolog.Logger) *Service {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Service{
		dataGroup: dataGroup,
		retriever: retriever,
		store:     store,
		marks:     marks,
		process:   process,
		interval:  interval,
		log:       log.With().Str("data_group", dataGroup).Logger(),
	}
}

// Run polls until ctx is cancelled.
func (s *Service) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.log.Error().Err(err).Msg("sync cycle failed")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RunOnce performs a single poll cycle: load the watermark, scan the source,
// admit and process each item, persist the advanced watermark.
func (s *Service) RunOnce(ctx context.Context) error {
	since, err := s.marks.Get(ctx, s.dataGroup)
	if err != nil {
		return err
	}

	mark, pollErr := s.retriever.Poll(ctx, since, s.consumeBatch)
	if mark.After(since) {
		if err := s.marks.Set(ctx, s.dataGroup, mark); err != nil {
			return err
		}
	}
	return pollErr
}

// consumeBatch admits each item exactly once and hands it to the processor.
// An item another instance is already working on is skipped silently. A
// processing failure dequeues the item and holds the watermark, so the next
// cycle re-admits and retries it.
func (s *Service) consumeBatch(ctx context.Context, items []queue.ProcessedItemInfo) error {
	for _, item := range items {
		err := s.store.Enqueue(ctx, queue.QueuedItem{DataGroup: s.dataGroup, ItemID: item.ID})
		if errors.Is(err, queue.ErrAlreadyQueued) {
			s.log.Debug().Str("item", item.ID).Msg("item already queued, skipping")
			continue
		}
		if err != nil {
			return err
		}

		perr := s.process(ctx, item)
		if _, err := s.store.Dequeue(ctx, s.dataGroup, item.ID); err != nil {
			return err
		}
		if perr != nil {
			return perr
		}
	}
	return nil
}
