package sync

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/fhirbridge/fhirbridge/internal/domain/queue"
	"github.com/fhirbridge/fhirbridge/internal/platform/dhis"
)

// EventReader fetches the current state of a changed tracker event.
type EventReader interface {
	GetEvent(ctx context.Context, id string) (*dhis.Event, error)
}

// ChangeHandler processes one admitted change notification: it drops changes
// whose version was already handled, forgets deleted items, and for the rest
// fetches the full event from the tracker before recording the handled
// version in the processed-item ledger. A returned error leaves the item's
// record untouched, so the next poll cycle retries the change.
type ChangeHandler struct {
	dataGroup string
	reader    EventReader
	processed ProcessedRepo
	log       zerolog.Logger
}

func NewChangeHandler(dataGroup string, reader EventReader, processed ProcessedRepo, log zerolog.Logger) *ChangeHandler {
	return &ChangeHandler{
		dataGroup: dataGroup,
		reader:    reader,
		processed: processed,
		log:       log.With().Str("data_group", dataGroup).Logger(),
	}
}

// Process implements the service's Processor contract.
func (h *ChangeHandler) Process(ctx context.Context, item queue.ProcessedItemInfo) error {
	if item.Deleted {
		if err := h.processed.Forget(ctx, h.dataGroup, item.ID); err != nil {
			return err
		}
		h.log.Info().Str("item", item.ID).Msg("remote item deleted")
		return nil
	}

	last, ok, err := h.processed.LastVersion(ctx, h.dataGroup, item.ID)
	if err != nil {
		return err
	}
	if ok && last == item.Version {
		h.log.Debug().Str("item", item.ID).Str("version", item.Version).Msg("change already handled")
		return nil
	}

	ev, err := h.reader.GetEvent(ctx, item.ID)
	if err != nil {
		return fmt.Errorf("fetch changed event %s: %w", item.ID, err)
	}

	h.log.Info().
		Str("item", item.ID).
		Str("status", string(ev.Status)).
		Str("program", ev.Program).
		Str("org_unit", ev.OrgUnit).
		Msg("tracker event changed")

	return h.processed.MarkProcessed(ctx, h.dataGroup, item.ID, item.Version)
}
