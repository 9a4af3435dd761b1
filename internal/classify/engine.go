// Package classify derives repurchase and stagnation views from a ledger
// snapshot. Nothing computed here is persisted.
package classify

import (
	"sort"

	"github.com/odyssey-erp/stockledger/internal/ledger"
)

// DefaultStagnantAfterDays is the idle period after which stock counts as stagnant.
const DefaultStagnantAfterDays = 30

// Status is the single classification assigned to a product per pass.
type Status string

const (
	// StatusOK means neither repurchase nor stagnation applies.
	StatusOK Status = "OK"
	// StatusRepurchase means quantity fell to or below the threshold.
	StatusRepurchase Status = "REPURCHASE"
	// StatusStagnant means stock exists but has not moved for too long.
	StatusStagnant Status = "STAGNANT"
)

// Item is one classified product.
type Item struct {
	SKU                   string      `json:"sku"`
	Name                  string      `json:"name"`
	Brand                 string      `json:"brand"`
	Supplier              string      `json:"supplier"`
	Quantity              int         `json:"current_quantity"`
	Threshold             int         `json:"repurchase_threshold"`
	TotalExits            int         `json:"total_exit_quantity"`
	Suggestion            int         `json:"suggestion"`
	LastMovement          ledger.Date `json:"last_movement"`
	DaysSinceLastMovement int         `json:"days_since_last_movement"`
	Status                Status      `json:"status"`
}

// Counts feeds the status pie chart.
type Counts struct {
	OK         int `json:"ok"`
	Repurchase int `json:"repurchase"`
	Stagnant   int `json:"stagnant"`
}

// Report is the outcome of one classification pass.
type Report struct {
	Today      ledger.Date `json:"today"`
	Counts     Counts      `json:"counts"`
	Repurchase []Item      `json:"repurchase"`
	Stagnant   []Item      `json:"stagnant"`
	Items      []Item      `json:"items"`
}

// Engine classifies products.
type Engine struct {
	StagnantAfterDays int
}

// NewEngine builds an Engine, falling back to the default idle period when
// days is not positive.
func NewEngine(days int) Engine {
	if days <= 0 {
		days = DefaultStagnantAfterDays
	}
	return Engine{StagnantAfterDays: days}
}

// Classify evaluates every product of snap. Repurchase is checked before
// stagnation, so a product lands in at most one list.
func (e Engine) Classify(snap ledger.Snapshot, today ledger.Date) Report {
	limit := e.StagnantAfterDays
	if limit <= 0 {
		limit = DefaultStagnantAfterDays
	}
	quantities := ledger.QuantityBySKU(snap.Locations)
	exitTotals := exitTotalsBySKU(snap.Exits)
	lastMoves := lastMovementBySKU(snap.Locations, snap.Exits)

	report := Report{
		Today:      today,
		Repurchase: []Item{},
		Stagnant:   []Item{},
		Items:      make([]Item, 0, len(snap.Products)),
	}
	for _, p := range snap.Products {
		key := ledger.NormalizeSKU(p.SKU)
		item := Item{
			SKU:        p.SKU,
			Name:       p.Name,
			Brand:      p.Brand,
			Supplier:   p.Supplier,
			Quantity:   quantities[key],
			Threshold:  p.RepurchaseThreshold,
			TotalExits: exitTotals[key],
			Status:     StatusOK,
		}
		if last, ok := lastMoves[key]; ok {
			item.LastMovement = last
			item.DaysSinceLastMovement = today.DaysBetween(last)
		}
		switch {
		case NeedsRepurchase(item.Threshold, item.Quantity):
			item.Status = StatusRepurchase
			item.Suggestion = Suggestion(item.Threshold, item.TotalExits, item.Quantity)
			report.Repurchase = append(report.Repurchase, item)
			report.Counts.Repurchase++
		case item.Quantity > 0 && !item.LastMovement.IsZero() && item.DaysSinceLastMovement > limit:
			item.Status = StatusStagnant
			report.Stagnant = append(report.Stagnant, item)
			report.Counts.Stagnant++
		default:
			report.Counts.OK++
		}
		report.Items = append(report.Items, item)
	}
	sort.SliceStable(report.Stagnant, func(i, j int) bool {
		return report.Stagnant[i].DaysSinceLastMovement > report.Stagnant[j].DaysSinceLastMovement
	})
	return report
}

// NeedsRepurchase applies the threshold rule. A zero threshold disables it.
func NeedsRepurchase(threshold, quantity int) bool {
	return threshold > 0 && quantity <= threshold
}

// Suggestion returns max(0, threshold + totalExits - quantity).
func Suggestion(threshold, totalExits, quantity int) int {
	s := threshold + totalExits - quantity
	if s < 0 {
		return 0
	}
	return s
}

// TotalExitQuantity sums every historical exit of sku.
func TotalExitQuantity(sku string, exits []ledger.Exit) int {
	key := ledger.NormalizeSKU(sku)
	total := 0
	for _, e := range exits {
		if ledger.NormalizeSKU(e.SKU) == key {
			total += e.Quantity
		}
	}
	return total
}

// LastMovement returns the latest ledger or exit date of sku.
func LastMovement(sku string, locations []ledger.Location, exits []ledger.Exit) (ledger.Date, bool) {
	d, ok := lastMovementBySKU(locations, exits)[ledger.NormalizeSKU(sku)]
	return d, ok
}

func exitTotalsBySKU(exits []ledger.Exit) map[string]int {
	out := make(map[string]int)
	for _, e := range exits {
		out[ledger.NormalizeSKU(e.SKU)] += e.Quantity
	}
	return out
}

func lastMovementBySKU(locations []ledger.Location, exits []ledger.Exit) map[string]ledger.Date {
	out := make(map[string]ledger.Date)
	track := func(sku string, d ledger.Date) {
		if d.IsZero() {
			return
		}
		key := ledger.NormalizeSKU(sku)
		if cur, ok := out[key]; !ok || d.After(cur) {
			out[key] = d
		}
	}
	for _, l := range locations {
		track(l.SKU, l.Date)
	}
	for _, e := range exits {
		track(e.SKU, e.Date)
	}
	return out
}
