package rule

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fhirbridge/fhirbridge/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const ruleCols = `id, name, fhir_resource_type, tracker_resource_type, codes,
	applicable_script_id, transform_script_id, priority, enabled, created_at, updated_at`

func scanRule(row pgx.Row) (*Rule, error) {
	var ru Rule
	err := row.Scan(&ru.ID, &ru.Name, &ru.FHIRResourceType, &ru.TrackerResourceType,
		&ru.Codes, &ru.ApplicableScript, &ru.TransformScript,
		&ru.Priority, &ru.Enabled, &ru.CreatedAt, &ru.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan rule: %w", err)
	}
	return &ru, nil
}

func (r *repoPG) Create(ctx context.Context, ru *Rule) error {
	if ru.ID == uuid.Nil {
		ru.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO rule (id, name, fhir_resource_type, tracker_resource_type, codes,
			applicable_script_id, transform_script_id, priority, enabled)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		ru.ID, ru.Name, ru.FHIRResourceType, ru.TrackerResourceType, ru.Codes,
		ru.ApplicableScript, ru.TransformScript, ru.Priority, ru.Enabled)
	if err != nil {
		return fmt.Errorf("insert rule: %w", err)
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Rule, error) {
	return scanRule(r.conn(ctx).QueryRow(ctx,
		`SELECT `+ruleCols+` FROM rule WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, ru *Rule) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE rule SET name=$2, fhir_resource_type=$3, tracker_resource_type=$4,
			codes=$5, applicable_script_id=$6, transform_script_id=$7,
			priority=$8, enabled=$9, updated_at=NOW()
		WHERE id = $1`,
		ru.ID, ru.Name, ru.FHIRResourceType, ru.TrackerResourceType, ru.Codes,
		ru.ApplicableScript, ru.TransformScript, ru.Priority, ru.Enabled)
	if err != nil {
		return fmt.Errorf("update rule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM rule WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete rule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*Rule, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+ruleCols+` FROM rule ORDER BY priority, id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query rules: %w", err)
	}
	defer rows.Close()
	return collectRules(rows)
}

func (r *repoPG) FindAllByInputData(ctx context.Context, fhirResourceType string, codes []string) ([]*Rule, error) {
	// Code-specific rules first (generic last), then priority, then id so
	// equal-priority rules keep a stable order.
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+ruleCols+`
		FROM rule
		WHERE fhir_resource_type = $1
		  AND enabled
		  AND (cardinality(codes) = 0 OR codes && $2)
		ORDER BY (cardinality(codes) = 0), priority, id`,
		fhirResourceType, codes)
	if err != nil {
		return nil, fmt.Errorf("query rules for %s: %w", fhirResourceType, err)
	}
	defer rows.Close()
	return collectRules(rows)
}

func collectRules(rows pgx.Rows) ([]*Rule, error) {
	var rules []*Rule
	for rows.Next() {
		ru, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, ru)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rules: %w", err)
	}
	return rules, nil
}
