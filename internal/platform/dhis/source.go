package dhis

import (
	"context"
	"time"

	"github.com/fhirbridge/fhirbridge/internal/domain/queue"
)

// EventSource adapts the events endpoint to the poller's source contract.
type EventSource struct {
	client *Client
}

func NewEventSource(client *Client) *EventSource {
	return &EventSource{client: client}
}

func (s *EventSource) ItemsUpdatedSince(ctx context.Context, since time.Time, max int) ([]queue.ProcessedItemInfo, error) {
	events, err := s.client.EventsUpdatedSince(ctx, since, max)
	if err != nil {
		return nil, err
	}
	items := make([]queue.ProcessedItemInfo, 0, len(events))
	for _, ev := range events {
		items = append(items, queue.ProcessedItemInfo{
			ID:          ev.ID,
			LastUpdated: ev.LastUpdated,
			Version:     string(ev.Status),
			Deleted:     ev.Deleted,
		})
	}
	return items, nil
}
