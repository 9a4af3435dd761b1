// Package pricing tracks how a product's cost price evolves across edits.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/stockledger/internal/ledger"
)

// Start returns the history of a freshly created product. The initial price
// is both the previous and the best price.
func Start(price decimal.Decimal, today ledger.Date) ledger.PriceHistory {
	return ledger.PriceHistory{
		LastEditDate:  today,
		PreviousPrice: price,
		BestPrice:     price,
	}
}

// Apply records an edit that replaces currentPrice with newPrice. The best
// price never increases.
func Apply(h ledger.PriceHistory, currentPrice, newPrice decimal.Decimal, today ledger.Date) ledger.PriceHistory {
	best := h.BestPrice
	if best.IsZero() {
		best = currentPrice
	}
	if best.IsZero() || newPrice.LessThan(best) {
		best = newPrice
	}
	return ledger.PriceHistory{
		LastEditDate:  today,
		PreviousPrice: currentPrice,
		BestPrice:     best,
	}
}

// Changed reports whether an edit actually moves the price.
func Changed(currentPrice, newPrice decimal.Decimal) bool {
	return !currentPrice.Equal(newPrice)
}
