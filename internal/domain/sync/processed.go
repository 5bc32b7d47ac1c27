package sync

import (
	"context"
	"errors"
	"fmt"
	gosync "sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ProcessedRepo records the last handled version per remote item, so a change
// the poller re-serves is not handled twice and a restart does not redo work
// the previous instance already finished.
type ProcessedRepo interface {
	// LastVersion returns the recorded version for the item; the bool is
	// false when the item was never processed.
	LastVersion(ctx context.Context, dataGroup, itemID string) (string, bool, error)
	// MarkProcessed upserts the item's handled version.
	MarkProcessed(ctx context.Context, dataGroup, itemID, version string) error
	// Forget removes the item's record, used when the remote item is deleted.
	Forget(ctx context.Context, dataGroup, itemID string) error
}

type processedPG struct{ pool *pgxpool.Pool }

func NewProcessedRepoPG(pool *pgxpool.Pool) ProcessedRepo {
	return &processedPG{pool: pool}
}

func (r *processedPG) LastVersion(ctx context.Context, dataGroup, itemID string) (string, bool, error) {
	var version string
	err := r.pool.QueryRow(ctx,
		`SELECT version FROM processed_item WHERE data_group = $1 AND item_id = $2`,
		dataGroup, itemID).Scan(&version)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get processed item %s/%s: %w", dataGroup, itemID, err)
	}
	return version, true, nil
}

func (r *processedPG) MarkProcessed(ctx context.Context, dataGroup, itemID, version string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO processed_item (data_group, item_id, version)
		VALUES ($1, $2, $3)
		ON CONFLICT (data_group, item_id)
		DO UPDATE SET version = EXCLUDED.version, processed_at = NOW()`,
		dataGroup, itemID, version)
	if err != nil {
		return fmt.Errorf("mark processed item %s/%s: %w", dataGroup, itemID, err)
	}
	return nil
}

func (r *processedPG) Forget(ctx context.Context, dataGroup, itemID string) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM processed_item WHERE data_group = $1 AND item_id = $2`,
		dataGroup, itemID)
	if err != nil {
		return fmt.Errorf("forget processed item %s/%s: %w", dataGroup, itemID, err)
	}
	return nil
}

// MemoryProcessedRepo keeps the processed-item ledger in memory, for tests
// and ephemeral deployments.
type MemoryProcessedRepo struct {
	mu       gosync.Mutex
	versions map[string]string
}

func NewMemoryProcessedRepo() *MemoryProcessedRepo {
	return &MemoryProcessedRepo{versions: make(map[string]string)}
}

func (r *MemoryProcessedRepo) LastVersion(_ context.Context, dataGroup, itemID string) (string, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.versions[dataGroup+"/"+itemID]
	return v, ok, nil
}

func (r *MemoryProcessedRepo) MarkProcessed(_ context.Context, dataGroup, itemID, version string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.versions[dataGroup+"/"+itemID] = version
	return nil
}

func (r *MemoryProcessedRepo) Forget(_ context.Context, dataGroup, itemID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.versions, dataGroup+"/"+itemID)
	return nil
}
