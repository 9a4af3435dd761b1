package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/stockledger/internal/shared"
)

// WithTx runs fn inside a RepeatableRead transaction. Driver failures surface
// as shared.ErrCollaboratorUnavailable and serialization failures as
// shared.ErrConflict; errors returned by fn keep their identity.
func WithTx(ctx context.Context, pool *pgxpool.Pool, fn func(pgx.Tx) error) error {
	tx, err := pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return shared.Unavailable(err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(tx); err != nil {
		return shared.SerializationConflict(err)
	}
	return shared.SerializationConflict(shared.Unavailable(tx.Commit(ctx)))
}
