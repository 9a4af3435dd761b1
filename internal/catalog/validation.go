package catalog

import (
	"strings"

	"github.com/odyssey-erp/stockledger/internal/shared"
)

func normalizeInput(in ProductInput) (ProductInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Brand = strings.TrimSpace(in.Brand)
	in.Color = strings.TrimSpace(in.Color)
	in.Supplier = strings.TrimSpace(in.Supplier)
	in.ImageURL = strings.TrimSpace(in.ImageURL)
	if in.Name == "" {
		return in, shared.Validation("product name required")
	}
	if in.Brand == "" {
		return in, shared.Validation("brand required")
	}
	if in.Supplier == "" {
		return in, shared.Validation("supplier required")
	}
	in.CostPrice = in.CostPrice.Round(2)
	if !in.CostPrice.IsPositive() {
		return in, shared.Validation("cost price must be positive")
	}
	if in.RepurchaseThreshold < 0 {
		return in, shared.Validation("repurchase threshold must not be negative")
	}
	if in.UnitsPerBox < 0 {
		return in, shared.Validation("units per box must not be negative")
	}
	if in.UnitsPerBox == 0 {
		in.UnitsPerBox = 1
	}
	return in, nil
}
