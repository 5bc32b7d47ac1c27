package queue

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fhirbridge/fhirbridge/internal/platform/db"
)

// StorePG backs the admission store with the queued_item table. The primary
// key on (data_group, item_id) makes concurrent enqueues race safely: the
// losing insert affects zero rows.
type StorePG struct {
	pool *pgxpool.Pool
}

func NewStorePG(pool *pgxpool.Pool) *StorePG {
	return &StorePG{pool: pool}
}

func (s *StorePG) Enqueue(ctx context.Context, item QueuedItem) error {
	tag, err := s.exec(ctx, `
		INSERT INTO queued_item (data_group, item_id)
		VALUES ($1, $2)
		ON CONFLICT (data_group, item_id) DO NOTHING`,
		item.DataGroup, item.ItemID)
	if err != nil {
		return fmt.Errorf("enqueue item %s/%s: %w", item.DataGroup, item.ItemID, err)
	}
	if tag == 0 {
		return ErrAlreadyQueued
	}
	return nil
}

func (s *StorePG) Dequeue(ctx context.Context, dataGroup, itemID string) (bool, error) {
	tag, err := s.exec(ctx, `
		DELETE FROM queued_item WHERE data_group = $1 AND item_id = $2`,
		dataGroup, itemID)
	if err != nil {
		return false, fmt.Errorf("dequeue item %s/%s: %w", dataGroup, itemID, err)
	}
	return tag > 0, nil
}

func (s *StorePG) exec(ctx context.Context, sql string, args ...interface{}) (int64, error) {
	if tx := db.TxFromContext(ctx); tx != nil {
		tag, err := tx.Exec(ctx, sql, args...)
		return tag.RowsAffected(), err
	}
	tag, err := s.pool.Exec(ctx, sql, args...)
	return tag.RowsAffected(), err
}
