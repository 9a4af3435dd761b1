// Package catalog manages the product catalogue.
package catalog

import (
	"context"
	"strings"
	"time"

	"github.com/odyssey-erp/stockledger/internal/ledger"
	"github.com/odyssey-erp/stockledger/internal/pricing"
	"github.com/odyssey-erp/stockledger/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetProduct(ctx context.Context, sku string) (ledger.Product, error)
	ListProducts(ctx context.Context, search string) ([]ledger.Product, error)
	ListLocations(ctx context.Context, filter ledger.LocationFilter) ([]ledger.Location, error)
	CountLocations(ctx context.Context, sku string) (int, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates catalogue operations.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
	now   func() time.Time
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit, now: time.Now}
}

// WithClock overrides the clock used for price-history dates.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Create registers a product with a fresh price history.
func (s *Service) Create(ctx context.Context, input CreateInput) (ledger.Product, error) {
	sku := strings.TrimSpace(input.SKU)
	if sku == "" {
		return ledger.Product{}, shared.Validation("sku required")
	}
	fields, err := normalizeInput(input.ProductInput)
	if err != nil {
		return ledger.Product{}, err
	}
	now := s.now().UTC()
	product := buildProduct(sku, fields, now)
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.InsertProduct(ctx, product)
	})
	if err != nil {
		return ledger.Product{}, err
	}
	s.record(ctx, input.ActorID, shared.AuditProductCreate, product.SKU, map[string]any{
		"name":       product.Name,
		"cost_price": product.CostPrice.String(),
	})
	return product, nil
}

// Get returns one product with its derived quantity.
func (s *Service) Get(ctx context.Context, sku string) (ProductView, error) {
	product, err := s.repo.GetProduct(ctx, sku)
	if err != nil {
		return ProductView{}, err
	}
	locations, err := s.repo.ListLocations(ctx, ledger.LocationFilter{SKU: product.SKU})
	if err != nil {
		return ProductView{}, err
	}
	return ProductView{Product: product, Quantity: ledger.QuantityOf(product.SKU, locations)}, nil
}

// List returns products matching search, each with its derived quantity.
func (s *Service) List(ctx context.Context, search string) ([]ProductView, error) {
	products, err := s.repo.ListProducts(ctx, search)
	if err != nil {
		return nil, err
	}
	locations, err := s.repo.ListLocations(ctx, ledger.LocationFilter{})
	if err != nil {
		return nil, err
	}
	quantities := ledger.QuantityBySKU(locations)
	views := make([]ProductView, 0, len(products))
	for _, p := range products {
		views = append(views, ProductView{Product: p, Quantity: quantities[ledger.NormalizeSKU(p.SKU)]})
	}
	return views, nil
}

// Update edits product fields and advances the price history.
func (s *Service) Update(ctx context.Context, input UpdateInput) (ledger.Product, error) {
	if strings.TrimSpace(input.SKU) == "" {
		return ledger.Product{}, shared.Validation("sku required")
	}
	fields, err := normalizeInput(input.ProductInput)
	if err != nil {
		return ledger.Product{}, err
	}
	today := ledger.DateOf(s.now())
	var updated ledger.Product
	var previous ledger.Product
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetProductForUpdate(ctx, input.SKU)
		if err != nil {
			return err
		}
		previous = current
		updated = current
		updated.Name = fields.Name
		updated.Brand = fields.Brand
		updated.Color = fields.Color
		updated.Supplier = fields.Supplier
		updated.CostPrice = fields.CostPrice
		updated.UnitsPerBox = fields.UnitsPerBox
		updated.RepurchaseThreshold = fields.RepurchaseThreshold
		updated.ImageURL = fields.ImageURL
		updated.History = pricing.Apply(current.History, current.CostPrice, fields.CostPrice, today)
		updated.UpdatedAt = s.now().UTC()
		return tx.UpdateProduct(ctx, updated)
	})
	if err != nil {
		return ledger.Product{}, err
	}
	meta := map[string]any{"name": updated.Name}
	if pricing.Changed(previous.CostPrice, updated.CostPrice) {
		meta["previous_price"] = previous.CostPrice.String()
		meta["cost_price"] = updated.CostPrice.String()
	}
	s.record(ctx, input.ActorID, shared.AuditProductUpdate, updated.SKU, meta)
	return updated, nil
}

// Clone copies a product under a new SKU. The clone starts its own price
// history and never inherits stock.
func (s *Service) Clone(ctx context.Context, input CloneInput) (ledger.Product, error) {
	newSKU := strings.TrimSpace(input.NewSKU)
	if newSKU == "" {
		return ledger.Product{}, shared.Validation("new sku required")
	}
	source, err := s.repo.GetProduct(ctx, input.SourceSKU)
	if err != nil {
		return ledger.Product{}, err
	}
	fields, err := normalizeInput(inherit(input.ProductInput, input.Threshold, source))
	if err != nil {
		return ledger.Product{}, err
	}
	clone := buildProduct(newSKU, fields, s.now().UTC())
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.InsertProduct(ctx, clone)
	})
	if err != nil {
		return ledger.Product{}, err
	}
	s.record(ctx, input.ActorID, shared.AuditProductClone, clone.SKU, map[string]any{"source_sku": source.SKU})
	return clone, nil
}

// Delete removes a product that no ledger entry references.
func (s *Service) Delete(ctx context.Context, sku string, actorID int64) error {
	if strings.TrimSpace(sku) == "" {
		return shared.Validation("sku required")
	}
	var removed ledger.Product
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		product, err := tx.GetProductForUpdate(ctx, sku)
		if err != nil {
			return err
		}
		entries, err := tx.CountLocations(ctx, product.SKU)
		if err != nil {
			return err
		}
		if entries > 0 {
			return shared.ErrProductInUse
		}
		removed = product
		return tx.DeleteProduct(ctx, product.SKU)
	})
	if err != nil {
		return err
	}
	s.record(ctx, actorID, shared.AuditProductDelete, removed.SKU, map[string]any{"name": removed.Name})
	return nil
}

// Exists reports whether sku names a product.
func (s *Service) Exists(ctx context.Context, sku string) (bool, error) {
	_, err := s.repo.GetProduct(ctx, sku)
	switch {
	case err == nil:
		return true, nil
	case shared.IsNotFound(err):
		return false, nil
	default:
		return false, err
	}
}

// InUse reports whether any ledger entry still references sku.
func (s *Service) InUse(ctx context.Context, sku string) (bool, error) {
	n, err := s.repo.CountLocations(ctx, sku)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// History returns the price history of a product.
func (s *Service) History(ctx context.Context, sku string) (HistoryView, error) {
	product, err := s.repo.GetProduct(ctx, sku)
	if err != nil {
		return HistoryView{}, err
	}
	return HistoryView{SKU: product.SKU, CurrentPrice: product.CostPrice, History: product.History}, nil
}

func buildProduct(sku string, fields ProductInput, now time.Time) ledger.Product {
	return ledger.Product{
		SKU:                 sku,
		Name:                fields.Name,
		Brand:               fields.Brand,
		Color:               fields.Color,
		Supplier:            fields.Supplier,
		CostPrice:           fields.CostPrice,
		UnitsPerBox:         fields.UnitsPerBox,
		RepurchaseThreshold: fields.RepurchaseThreshold,
		ImageURL:            fields.ImageURL,
		History:             pricing.Start(fields.CostPrice, ledger.DateOf(now)),
		CreatedAt:           now,
		UpdatedAt:           now,
	}
}

func inherit(in ProductInput, threshold *int, source ledger.Product) ProductInput {
	if strings.TrimSpace(in.Name) == "" {
		in.Name = source.Name
	}
	if strings.TrimSpace(in.Brand) == "" {
		in.Brand = source.Brand
	}
	if strings.TrimSpace(in.Color) == "" {
		in.Color = source.Color
	}
	if strings.TrimSpace(in.Supplier) == "" {
		in.Supplier = source.Supplier
	}
	if in.CostPrice.IsZero() {
		in.CostPrice = source.CostPrice
	}
	if in.UnitsPerBox == 0 {
		in.UnitsPerBox = source.UnitsPerBox
	}
	in.RepurchaseThreshold = source.RepurchaseThreshold
	if threshold != nil {
		in.RepurchaseThreshold = *threshold
	}
	if strings.TrimSpace(in.ImageURL) == "" {
		in.ImageURL = source.ImageURL
	}
	return in
}

func (s *Service) record(ctx context.Context, actorID int64, action, sku string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "product",
		EntityID: sku,
		Meta:     meta,
	})
}
