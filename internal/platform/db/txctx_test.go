package db

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// stubTx satisfies pgx.Tx just enough to travel through the context.
type stubTx struct{}

func (stubTx) Begin(context.Context) (pgx.Tx, error) { return nil, nil }
func (stubTx) Commit(context.Context) error          { return nil }
func (stubTx) Rollback(context.Context) error        { return nil }
func (stubTx) CopyFrom(context.Context, pgx.Identifier, []string, pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (stubTx) SendBatch(context.Context, *pgx.Batch) pgx.BatchResults { return nil }
func (stubTx) LargeObjects() pgx.LargeObjects                         { return pgx.LargeObjects{} }
func (stubTx) Prepare(context.Context, string, string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (stubTx) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}
func (stubTx) Query(context.Context, string, ...any) (pgx.Rows, error) { return nil, nil }
func (stubTx) QueryRow(context.Context, string, ...any) pgx.Row        { return nil }
func (stubTx) Conn() *pgx.Conn                                         { return nil }

func TestWithTxJoinsExistingTransaction(t *testing.T) {
	tx := stubTx{}
	ctx := context.WithValue(context.Background(), DBTxKey, pgx.Tx(tx))

	// The nil pool proves no new transaction is begun when one is already
	// carried by the context.
	var ran bool
	err := WithTx(ctx, nil, func(inner context.Context) error {
		ran = true
		if TxFromContext(inner) == nil {
			t.Error("transaction not visible inside fn")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithTx: %v", err)
	}
	if !ran {
		t.Fatal("fn never ran")
	}
}

func TestTxFromContextEmpty(t *testing.T) {
	if tx := TxFromContext(context.Background()); tx != nil {
		t.Fatalf("TxFromContext on bare context = %v, want nil", tx)
	}
}
