// Package sync runs the asynchronous polling loop that admits remote tracker
// changes into the processing queue.
package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// WatermarkRepo persists the per-group polling high-water mark so a restart
// resumes where the previous instance stopped.
type WatermarkRepo interface {
	Get(ctx context.Context, dataGroup string) (time.Time, error)
	Set(ctx context.Context, dataGroup string, mark time.Time) error
}

type watermarkPG struct{ pool *pgxpool.Pool }

func NewWatermarkRepoPG(pool *pgxpool.Pool) WatermarkRepo {
	return &watermarkPG{pool: pool}
}

func (r *watermarkPG) Get(ctx context.Context, dataGroup string) (time.Time, error) {
	var mark time.Time
	err := r.pool.QueryRow(ctx,
		`SELECT mark FROM sync_watermark WHERE data_group = $1`, dataGroup).Scan(&mark)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("get watermark %s: %w", dataGroup, err)
	}
	return mark, nil
}

func (r *watermarkPG) Set(ctx context.Context, dataGroup string, mark time.Time) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO sync_watermark (data_group, mark)
		VALUES ($1, $2)
		ON CONFLICT (data_group) DO UPDATE SET mark = EXCLUDED.mark, updated_at = NOW()`,
		dataGroup, mark)
	if err != nil {
		return fmt.Errorf("set watermark %s: %w", dataGroup, err)
	}
	return nil
}

// MemoryWatermarkRepo keeps watermarks in memory, for tests and ephemeral
// deployments.
type MemoryWatermarkRepo struct {
	marks map[string]time.Time
}

func NewMemoryWatermarkRepo() *MemoryWatermarkRepo {
	return &MemoryWatermarkRepo{marks: make(map[string]time.Time)}
}

func (r *MemoryWatermarkRepo) Get(_ context.Context, dataGroup string) (time.Time, error) {
	return r.marks[dataGroup], nil
}

func (r *MemoryWatermarkRepo) Set(_ context.Context, dataGroup string, mark time.Time) error {
	r.marks[dataGroup] = mark
	return nil
}
