package locations

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/stockledger/internal/ledger"
	"github.com/odyssey-erp/stockledger/internal/platform/db"
	"github.com/odyssey-erp/stockledger/internal/shared"
)

// Repository persists the registry in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
	*ledger.Repository
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool, Repository: ledger.NewRepository(pool)}
}

// WithTx executes the callback inside repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

type txRepo struct {
	tx pgx.Tx
}

func (t *txRepo) RegisterIfAbsent(ctx context.Context, name string) (ledger.MasterLocation, bool, error) {
	var loc ledger.MasterLocation
	err := t.tx.QueryRow(ctx, `INSERT INTO master_locations (name_key, name, created_at) VALUES ($1, $2, NOW())
ON CONFLICT (name_key) DO NOTHING RETURNING name, created_at`, ledger.NormalizeLocation(name), name).Scan(&loc.Name, &loc.CreatedAt)
	if err == nil {
		return loc, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return ledger.MasterLocation{}, false, shared.Unavailable(err)
	}
	err = t.tx.QueryRow(ctx, `SELECT name, created_at FROM master_locations WHERE name_key = $1`,
		ledger.NormalizeLocation(name)).Scan(&loc.Name, &loc.CreatedAt)
	if err != nil {
		return ledger.MasterLocation{}, false, shared.Unavailable(err)
	}
	return loc, false, nil
}

func (t *txRepo) GetForUpdate(ctx context.Context, name string) (ledger.MasterLocation, error) {
	var loc ledger.MasterLocation
	err := t.tx.QueryRow(ctx, `SELECT name, created_at FROM master_locations WHERE name_key = $1 FOR UPDATE`,
		ledger.NormalizeLocation(name)).Scan(&loc.Name, &loc.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.MasterLocation{}, shared.ErrNotFound
	}
	return loc, shared.Unavailable(err)
}

func (t *txRepo) CountEntries(ctx context.Context, name string) (int, error) {
	var n int
	err := t.tx.QueryRow(ctx, `SELECT COUNT(*) FROM product_locations WHERE place_key = $1`,
		ledger.NormalizeLocation(name)).Scan(&n)
	return n, shared.Unavailable(err)
}

func (t *txRepo) Delete(ctx context.Context, name string) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM master_locations WHERE name_key = $1`, ledger.NormalizeLocation(name))
	if err != nil {
		return shared.Unavailable(err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
