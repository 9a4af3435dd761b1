package ledger

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/stockledger/internal/shared"
)

// Column lists shared by every repository reading ledger tables.
const (
	ProductColumns  = `sku, name, brand, color, supplier, cost_price, units_per_box, repurchase_threshold, image_url, history_last_edit, history_previous_price, history_best_price, created_at, updated_at`
	LocationColumns = `id, sku, name, place, volume, units_per_box, entry_date`
	ExitColumns     = `id, sku, name, quantity, exit_date, exit_type, store, observation, created_at`
)

// Repository is the read side of the ledger in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListProducts returns products ordered by name.
func (r *Repository) ListProducts(ctx context.Context, search string) ([]Product, error) {
	query := `SELECT ` + ProductColumns + ` FROM products`
	args := []any{}
	if s := strings.TrimSpace(search); s != "" {
		query += ` WHERE name ILIKE $1 OR brand ILIKE $1 OR sku ILIKE $1`
		args = append(args, "%"+s+"%")
	}
	query += ` ORDER BY name ASC, sku_key ASC`
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, shared.Unavailable(err)
	}
	defer rows.Close()
	products := []Product{}
	for rows.Next() {
		p, err := ScanProduct(rows)
		if err != nil {
			return nil, shared.Unavailable(err)
		}
		products = append(products, p)
	}
	return products, shared.Unavailable(rows.Err())
}

// ListLocations returns ledger entries, newest first.
func (r *Repository) ListLocations(ctx context.Context, filter LocationFilter) ([]Location, error) {
	query := `SELECT ` + LocationColumns + ` FROM product_locations WHERE 1=1`
	args := []any{}
	if filter.SKU != "" {
		args = append(args, NormalizeSKU(filter.SKU))
		query += ` AND sku_key = $` + strconv.Itoa(len(args))
	}
	if filter.Place != "" {
		args = append(args, NormalizeLocation(filter.Place))
		query += ` AND place_key = $` + strconv.Itoa(len(args))
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		args = append(args, "%"+s+"%")
		n := strconv.Itoa(len(args))
		query += ` AND (name ILIKE $` + n + ` OR sku ILIKE $` + n + ` OR place ILIKE $` + n + `)`
	}
	query += ` ORDER BY entry_date DESC, created_at DESC`
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, shared.Unavailable(err)
	}
	defer rows.Close()
	locations := []Location{}
	for rows.Next() {
		loc, err := ScanLocation(rows)
		if err != nil {
			return nil, shared.Unavailable(err)
		}
		locations = append(locations, loc)
	}
	return locations, shared.Unavailable(rows.Err())
}

// ListExits returns exit records, newest first.
func (r *Repository) ListExits(ctx context.Context, filter ExitFilter) ([]Exit, error) {
	query := `SELECT ` + ExitColumns + ` FROM product_exits WHERE 1=1`
	args := []any{}
	if filter.SKU != "" {
		args = append(args, NormalizeSKU(filter.SKU))
		query += ` AND sku_key = $` + strconv.Itoa(len(args))
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		args = append(args, "%"+s+"%")
		n := strconv.Itoa(len(args))
		query += ` AND (name ILIKE $` + n + ` OR sku ILIKE $` + n + ` OR store ILIKE $` + n + ` OR observation ILIKE $` + n + `)`
	}
	query += ` ORDER BY exit_date DESC, created_at DESC`
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, shared.Unavailable(err)
	}
	defer rows.Close()
	exits := []Exit{}
	for rows.Next() {
		e, err := ScanExit(rows)
		if err != nil {
			return nil, shared.Unavailable(err)
		}
		exits = append(exits, e)
	}
	return exits, shared.Unavailable(rows.Err())
}

// ListMasterLocations returns every registered location name.
func (r *Repository) ListMasterLocations(ctx context.Context) ([]MasterLocation, error) {
	rows, err := r.pool.Query(ctx, `SELECT name, created_at FROM master_locations ORDER BY name_key ASC`)
	if err != nil {
		return nil, shared.Unavailable(err)
	}
	defer rows.Close()
	out := []MasterLocation{}
	for rows.Next() {
		var m MasterLocation
		if err := rows.Scan(&m.Name, &m.CreatedAt); err != nil {
			return nil, shared.Unavailable(err)
		}
		out = append(out, m)
	}
	return out, shared.Unavailable(rows.Err())
}

// ScanProduct reads a row selected with ProductColumns.
func ScanProduct(row pgx.Row) (Product, error) {
	var p Product
	var lastEdit *time.Time
	err := row.Scan(&p.SKU, &p.Name, &p.Brand, &p.Color, &p.Supplier, &p.CostPrice, &p.UnitsPerBox,
		&p.RepurchaseThreshold, &p.ImageURL, &lastEdit, &p.History.PreviousPrice, &p.History.BestPrice,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return Product{}, notFound(err)
	}
	if lastEdit != nil {
		p.History.LastEditDate = DateOf(*lastEdit)
	}
	return p, nil
}

// ScanLocation reads a row selected with LocationColumns.
func ScanLocation(row pgx.Row) (Location, error) {
	var l Location
	var day time.Time
	if err := row.Scan(&l.ID, &l.SKU, &l.Name, &l.Place, &l.Volume, &l.UnitsPerBox, &day); err != nil {
		return Location{}, notFound(err)
	}
	l.Date = DateOf(day)
	return l, nil
}

// ScanExit reads a row selected with ExitColumns.
func ScanExit(row pgx.Row) (Exit, error) {
	var e Exit
	var day time.Time
	var exitType, store string
	if err := row.Scan(&e.ID, &e.SKU, &e.Name, &e.Quantity, &day, &exitType, &store, &e.Observation, &e.CreatedAt); err != nil {
		return Exit{}, notFound(err)
	}
	e.Date = DateOf(day)
	e.Type = ExitType(exitType)
	e.Store = Store(store)
	return e, nil
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return shared.ErrNotFound
	}
	return err
}

// NullDate converts an unset Date to SQL NULL.
func NullDate(d Date) any {
	if d.IsZero() {
		return nil
	}
	return d.Time()
}
