package catalog

import (
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/stockledger/internal/ledger"
)

// ProductInput carries the editable product fields.
type ProductInput struct {
	Name                string
	Brand               string
	Color               string
	Supplier            string
	CostPrice           decimal.Decimal
	UnitsPerBox         int
	RepurchaseThreshold int
	ImageURL            string
}

// CreateInput registers a new product.
type CreateInput struct {
	SKU string
	ProductInput
	ActorID int64
}

// UpdateInput edits an existing product. The SKU never changes.
type UpdateInput struct {
	SKU string
	ProductInput
	ActorID int64
}

// CloneInput creates a new product from an existing one under a new SKU.
// Zero-valued fields inherit from the source. ProductInput.RepurchaseThreshold
// is ignored; a nil Threshold inherits and a set one, including 0, overrides.
type CloneInput struct {
	SourceSKU string
	NewSKU    string
	ProductInput
	Threshold *int
	ActorID   int64
}

// ProductView is a product with its derived stock.
type ProductView struct {
	ledger.Product
	Quantity int `json:"quantity"`
}

// HistoryView is the price-history projection of one product.
type HistoryView struct {
	SKU          string              `json:"sku"`
	CurrentPrice decimal.Decimal     `json:"current_price"`
	History      ledger.PriceHistory `json:"history"`
}
