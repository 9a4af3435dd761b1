package movement

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/stockledger/internal/ledger"
	"github.com/odyssey-erp/stockledger/internal/platform/db"
	"github.com/odyssey-erp/stockledger/internal/shared"
)

// TxRepository exposes transactional operations used by service.
type TxRepository interface {
	GetProduct(ctx context.Context, sku string) (ledger.Product, error)
	GetLocationForUpdate(ctx context.Context, id uuid.UUID) (ledger.Location, error)
	FindLocationForUpdate(ctx context.Context, sku, place string, unitsPerBox int) (ledger.Location, error)
	InsertLocation(ctx context.Context, loc ledger.Location) (ledger.Location, error)
	UpdateLocation(ctx context.Context, id uuid.UUID, volume int, day ledger.Date) error
	DeleteLocation(ctx context.Context, id uuid.UUID) error
	InsertExit(ctx context.Context, exit ledger.Exit) (ledger.Exit, error)
	UpdateExitObservation(ctx context.Context, id uuid.UUID, observation string) (ledger.Exit, error)
	DeleteExit(ctx context.Context, id uuid.UUID) error
	RegisterMasterLocation(ctx context.Context, name string) error
}

// Repository persists ledger movements in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
	*ledger.Repository
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool, Repository: ledger.NewRepository(pool)}
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx executes the callback inside repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

func (t *txRepo) GetProduct(ctx context.Context, sku string) (ledger.Product, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+ledger.ProductColumns+` FROM products WHERE sku_key = $1`, ledger.NormalizeSKU(sku))
	p, err := ledger.ScanProduct(row)
	return p, shared.Unavailable(err)
}

func (t *txRepo) GetLocationForUpdate(ctx context.Context, id uuid.UUID) (ledger.Location, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+ledger.LocationColumns+` FROM product_locations WHERE id = $1 FOR UPDATE`, id)
	loc, err := ledger.ScanLocation(row)
	return loc, shared.Unavailable(err)
}

func (t *txRepo) FindLocationForUpdate(ctx context.Context, sku, place string, unitsPerBox int) (ledger.Location, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+ledger.LocationColumns+` FROM product_locations
WHERE sku_key = $1 AND place_key = $2 AND units_per_box = $3
ORDER BY created_at ASC LIMIT 1 FOR UPDATE`, ledger.NormalizeSKU(sku), ledger.NormalizeLocation(place), unitsPerBox)
	loc, err := ledger.ScanLocation(row)
	return loc, shared.Unavailable(err)
}

func (t *txRepo) InsertLocation(ctx context.Context, loc ledger.Location) (ledger.Location, error) {
	if loc.ID == uuid.Nil {
		loc.ID = uuid.New()
	}
	_, err := t.tx.Exec(ctx, `INSERT INTO product_locations (id, sku, sku_key, name, place, place_key, volume, units_per_box, entry_date, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		loc.ID, loc.SKU, ledger.NormalizeSKU(loc.SKU), loc.Name, loc.Place, ledger.NormalizeLocation(loc.Place),
		loc.Volume, loc.UnitsPerBox, loc.Date.Time(), time.Now().UTC())
	if err != nil {
		return ledger.Location{}, shared.Unavailable(err)
	}
	return loc, nil
}

func (t *txRepo) UpdateLocation(ctx context.Context, id uuid.UUID, volume int, day ledger.Date) error {
	tag, err := t.tx.Exec(ctx, `UPDATE product_locations SET volume = $2, entry_date = $3 WHERE id = $1`, id, volume, day.Time())
	if err != nil {
		return shared.Unavailable(err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (t *txRepo) DeleteLocation(ctx context.Context, id uuid.UUID) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM product_locations WHERE id = $1`, id)
	if err != nil {
		return shared.Unavailable(err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (t *txRepo) InsertExit(ctx context.Context, exit ledger.Exit) (ledger.Exit, error) {
	if exit.ID == uuid.Nil {
		exit.ID = uuid.New()
	}
	exit.CreatedAt = time.Now().UTC()
	_, err := t.tx.Exec(ctx, `INSERT INTO product_exits (id, sku, sku_key, name, quantity, exit_date, exit_type, store, observation, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		exit.ID, exit.SKU, ledger.NormalizeSKU(exit.SKU), exit.Name, exit.Quantity, exit.Date.Time(),
		string(exit.Type), string(exit.Store), exit.Observation, exit.CreatedAt)
	if err != nil {
		return ledger.Exit{}, shared.Unavailable(err)
	}
	return exit, nil
}

func (t *txRepo) UpdateExitObservation(ctx context.Context, id uuid.UUID, observation string) (ledger.Exit, error) {
	row := t.tx.QueryRow(ctx, `UPDATE product_exits SET observation = $2 WHERE id = $1 RETURNING `+ledger.ExitColumns, id, observation)
	exit, err := ledger.ScanExit(row)
	return exit, shared.Unavailable(err)
}

func (t *txRepo) DeleteExit(ctx context.Context, id uuid.UUID) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM product_exits WHERE id = $1`, id)
	if err != nil {
		return shared.Unavailable(err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// RegisterMasterLocation upserts the place so that the row lock serialises
// against a concurrent registry removal.
func (t *txRepo) RegisterMasterLocation(ctx context.Context, name string) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO master_locations (name_key, name, created_at) VALUES ($1, $2, NOW())
ON CONFLICT (name_key) DO UPDATE SET name = master_locations.name`, ledger.NormalizeLocation(name), name)
	return shared.Unavailable(err)
}
