package script

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

const scriptCols = `id, code, description, return_type, required_vars, created_at, updated_at`

func scanScript(row pgx.Row) (*Script, error) {
	var s Script
	err := row.Scan(&s.ID, &s.Code, &s.Description, &s.ReturnType, &s.RequiredVars,
		&s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan script: %w", err)
	}
	return &s, nil
}

func (r *repoPG) CreateScript(ctx context.Context, s *Script) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return db.WithTx(ctx, r.pool, func(ctx context.Context) error {
		q := r.conn(ctx)
		if _, err := q.Exec(ctx, `
			INSERT INTO script (id, code, description, return_type, required_vars)
			VALUES ($1,$2,$3,$4,$5)`,
			s.ID, s.Code, s.Description, s.ReturnType, s.RequiredVars); err != nil {
			return fmt.Errorf("insert script: %w", err)
		}

		for i := range s.Sources {
			src := &s.Sources[i]
			if src.ID == uuid.Nil {
				src.ID = uuid.New()
			}
			src.ScriptID = s.ID
			if _, err := q.Exec(ctx, `
				INSERT INTO script_source (id, script_id, source_text, from_version, to_version)
				VALUES ($1,$2,$3,$4,$5)`,
				src.ID, src.ScriptID, src.SourceText, src.FromVersion, src.ToVersion); err != nil {
				return fmt.Errorf("insert script source: %w", err)
			}
		}

		for _, a := range s.Args {
			if _, err := q.Exec(ctx, `
				INSERT INTO script_argument (script_id, name, mandatory, default_value)
				VALUES ($1,$2,$3,$4)`,
				s.ID, a.Name, a.Mandatory, a.DefaultValue); err != nil {
				return fmt.Errorf("insert script argument: %w", err)
			}
		}
		return nil
	})
}

func (r *repoPG) GetScript(ctx context.Context, id uuid.UUID) (*Script, error) {
	s, err := scanScript(r.conn(ctx).QueryRow(ctx,
		`SELECT `+scriptCols+` FROM script WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	if err := r.loadScriptDetails(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

func (r *repoPG) GetScriptByCode(ctx context.Context, code string) (*Script, error) {
	s, err := scanScript(r.conn(ctx).QueryRow(ctx,
		`SELECT `+scriptCols+` FROM script WHERE code = $1`, code))
	if err != nil {
		return nil, err
	}
	if err := r.loadScriptDetails(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

func (r *repoPG) ListScripts(ctx context.Context, limit, offset int) ([]*Script, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+scriptCols+` FROM script ORDER BY code LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query scripts: %w", err)
	}
	defer rows.Close()

	var scripts []*Script
	for rows.Next() {
		s, err := scanScript(rows)
		if err != nil {
			return nil, err
		}
		scripts = append(scripts, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate scripts: %w", err)
	}
	return scripts, nil
}

// loadScriptDetails attaches the version-ranged sources and argument
// declarations to a scanned script.
func (r *repoPG) loadScriptDetails(ctx context.Context, s *Script) error {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, script_id, source_text, from_version, to_version
		FROM script_source WHERE script_id = $1 ORDER BY from_version`, s.ID)
	if err != nil {
		return fmt.Errorf("query script sources: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var src Source
		if err := rows.Scan(&src.ID, &src.ScriptID, &src.SourceText, &src.FromVersion, &src.ToVersion); err != nil {
			return fmt.Errorf("scan script source: %w", err)
		}
		s.Sources = append(s.Sources, src)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate script sources: %w", err)
	}

	argRows, err := r.conn(ctx).Query(ctx, `
		SELECT name, mandatory, default_value
		FROM script_argument WHERE script_id = $1 ORDER BY name`, s.ID)
	if err != nil {
		return fmt.Errorf("query script arguments: %w", err)
	}
	defer argRows.Close()
	for argRows.Next() {
		var a Arg
		if err := argRows.Scan(&a.Name, &a.Mandatory, &a.DefaultValue); err != nil {
			return fmt.Errorf("scan script argument: %w", err)
		}
		s.Args = append(s.Args, a)
	}
	if err := argRows.Err(); err != nil {
		return fmt.Errorf("iterate script arguments: %w", err)
	}
	return nil
}

func (r *repoPG) CreateExecutable(ctx context.Context, es *ExecutableScript) error {
	if es.ID == uuid.Nil {
		es.ID = uuid.New()
	}
	return db.WithTx(ctx, r.pool, func(ctx context.Context) error {
		q := r.conn(ctx)
		if _, err := q.Exec(ctx, `
			INSERT INTO executable_script (id, code, script_id)
			VALUES ($1,$2,$3)`,
			es.ID, es.Code, es.ScriptID); err != nil {
			return fmt.Errorf("insert executable script: %w", err)
		}
		for name, value := range es.Overrides {
			if _, err := q.Exec(ctx, `
				INSERT INTO executable_script_argument (executable_script_id, name, override_value)
				VALUES ($1,$2,$3)`,
				es.ID, name, value); err != nil {
				return fmt.Errorf("insert executable script argument: %w", err)
			}
		}
		return nil
	})
}

func (r *repoPG) GetExecutable(ctx context.Context, id uuid.UUID) (*ExecutableScript, error) {
	return r.getExecutable(ctx, `WHERE id = $1`, id)
}

func (r *repoPG) GetExecutableByCode(ctx context.Context, code string) (*ExecutableScript, error) {
	return r.getExecutable(ctx, `WHERE code = $1`, code)
}

func (r *repoPG) getExecutable(ctx context.Context, where string, arg interface{}) (*ExecutableScript, error) {
	var es ExecutableScript
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT id, code, script_id, created_at FROM executable_script `+where, arg).
		Scan(&es.ID, &es.Code, &es.ScriptID, &es.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan executable script: %w", err)
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT name, override_value
		FROM executable_script_argument WHERE executable_script_id = $1`, es.ID)
	if err != nil {
		return nil, fmt.Errorf("query executable script arguments: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return nil, fmt.Errorf("scan executable script argument: %w", err)
		}
		if es.Overrides == nil {
			es.Overrides = make(map[string]string)
		}
		es.Overrides[name] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate executable script arguments: %w", err)
	}

	es.Script, err = r.GetScript(ctx, es.ScriptID)
	if err != nil {
		return nil, fmt.Errorf("resolve script for executable %s: %w", es.Code, err)
	}
	return &es, nil
}
