package catalog

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/stockledger/internal/ledger"
	"github.com/odyssey-erp/stockledger/internal/platform/db"
	"github.com/odyssey-erp/stockledger/internal/shared"
)

// TxRepository exposes transactional operations used by service.
type TxRepository interface {
	GetProductForUpdate(ctx context.Context, sku string) (ledger.Product, error)
	InsertProduct(ctx context.Context, p ledger.Product) error
	UpdateProduct(ctx context.Context, p ledger.Product) error
	DeleteProduct(ctx context.Context, sku string) error
	CountLocations(ctx context.Context, sku string) (int, error)
}

// Repository persists products in PostgreSQL.
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

// GetProduct loads a product by case-insensitive SKU.
func (r *Repository) GetProduct(ctx context.Context, sku string) (ledger.Product, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+ledger.ProductColumns+` FROM products WHERE sku_key = $1`, ledger.NormalizeSKU(sku))
	p, err := ledger.ScanProduct(row)
	return p, shared.Unavailable(err)
}

// CountLocations counts ledger entries referencing sku.
func (r *Repository) CountLocations(ctx context.Context, sku string) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM product_locations WHERE sku_key = $1`, ledger.NormalizeSKU(sku)).Scan(&n)
	return n, shared.Unavailable(err)
}

type txRepo struct {
	tx pgx.Tx
}

func (t *txRepo) GetProductForUpdate(ctx context.Context, sku string) (ledger.Product, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+ledger.ProductColumns+` FROM products WHERE sku_key = $1 FOR UPDATE`, ledger.NormalizeSKU(sku))
	p, err := ledger.ScanProduct(row)
	return p, shared.Unavailable(err)
}

func (t *txRepo) InsertProduct(ctx context.Context, p ledger.Product) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO products (sku, sku_key, name, brand, color, supplier, cost_price, units_per_box,
repurchase_threshold, image_url, history_last_edit, history_previous_price, history_best_price, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		p.SKU, ledger.NormalizeSKU(p.SKU), p.Name, p.Brand, p.Color, p.Supplier, p.CostPrice, p.UnitsPerBox,
		p.RepurchaseThreshold, p.ImageURL, ledger.NullDate(p.History.LastEditDate), p.History.PreviousPrice,
		p.History.BestPrice, p.CreatedAt, p.UpdatedAt)
	if shared.IsUniqueViolation(err) {
		return shared.ErrDuplicateSKU
	}
	return shared.Unavailable(err)
}

func (t *txRepo) UpdateProduct(ctx context.Context, p ledger.Product) error {
	tag, err := t.tx.Exec(ctx, `UPDATE products SET name = $2, brand = $3, color = $4, supplier = $5, cost_price = $6,
units_per_box = $7, repurchase_threshold = $8, image_url = $9, history_last_edit = $10,
history_previous_price = $11, history_best_price = $12, updated_at = $13
WHERE sku_key = $1`,
		ledger.NormalizeSKU(p.SKU), p.Name, p.Brand, p.Color, p.Supplier, p.CostPrice, p.UnitsPerBox,
		p.RepurchaseThreshold, p.ImageURL, ledger.NullDate(p.History.LastEditDate), p.History.PreviousPrice,
		p.History.BestPrice, p.UpdatedAt)
	if err != nil {
		return shared.Unavailable(err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (t *txRepo) DeleteProduct(ctx context.Context, sku string) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM products WHERE sku_key = $1`, ledger.NormalizeSKU(sku))
	if err != nil {
		return shared.Unavailable(err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (t *txRepo) CountLocations(ctx context.Context, sku string) (int, error) {
	var n int
	err := t.tx.QueryRow(ctx, `SELECT COUNT(*) FROM product_locations WHERE sku_key = $1`, ledger.NormalizeSKU(sku)).Scan(&n)
	return n, shared.Unavailable(err)
}
