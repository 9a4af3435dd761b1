package ledger

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is a catalogue item. SKU is the case-insensitive identity key.
type Product struct {
	SKU                 string          `json:"sku"`
	Name                string          `json:"name"`
	Brand               string          `json:"brand"`
	Color               string          `json:"color,omitempty"`
	Supplier            string          `json:"supplier"`
	CostPrice           decimal.Decimal `json:"cost_price"`
	UnitsPerBox         int             `json:"units_per_box"`
	RepurchaseThreshold int             `json:"repurchase_threshold"`
	ImageURL            string          `json:"image_url,omitempty"`
	History             PriceHistory    `json:"history"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

// PriceHistory tracks cost price across product edits.
type PriceHistory struct {
	LastEditDate  Date            `json:"last_edit_date"`
	PreviousPrice decimal.Decimal `json:"previous_price"`
	BestPrice     decimal.Decimal `json:"best_price"`
}

// IsZero reports whether no history was ever recorded.
func (h PriceHistory) IsZero() bool {
	return h.LastEditDate.IsZero() && h.BestPrice.IsZero() && h.PreviousPrice.IsZero()
}

// Location is a ledger entry: boxes of one SKU shelved at a named place.
// UnitsPerBox is frozen when the entry is created.
type Location struct {
	ID          uuid.UUID `json:"id"`
	SKU         string    `json:"sku"`
	Name        string    `json:"name"`
	Place       string    `json:"location"`
	Volume      int       `json:"volume"`
	UnitsPerBox int       `json:"units_per_box"`
	Date        Date      `json:"date"`
}

// Quantity returns the unit-level stock held by the entry.
func (l Location) Quantity() int {
	return l.Volume * l.UnitsPerBox
}

// ExitType enumerates the ways stock leaves the warehouse.
type ExitType string

const (
	// ExitExpedicao is a regular shipment.
	ExitExpedicao ExitType = "Expedição"
	// ExitFull is marketplace fulfilment and requires a store.
	ExitFull ExitType = "Full"
)

// ParseExitType accepts the canonical names case-insensitively and the
// unaccented spelling of Expedição.
func ParseExitType(raw string) (ExitType, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "expedição", "expedicao":
		return ExitExpedicao, true
	case "full":
		return ExitFull, true
	}
	return "", false
}

// Store is a marketplace storefront receiving Full exits.
type Store string

// Supported storefronts.
const (
	StoreShein         Store = "Shein"
	StoreAmazon        Store = "Amazon"
	StoreMercadoLivre  Store = "Mercado Livre"
	StoreShopee        Store = "Shopee"
	StoreMagazineLuiza Store = "Magazine Luiza"
)

// Stores lists every storefront in display order.
var Stores = []Store{StoreShein, StoreAmazon, StoreMercadoLivre, StoreShopee, StoreMagazineLuiza}

// ParseStore matches a storefront name case-insensitively.
func ParseStore(raw string) (Store, bool) {
	needle := strings.TrimSpace(raw)
	for _, s := range Stores {
		if strings.EqualFold(string(s), needle) {
			return s, true
		}
	}
	return "", false
}

// Exit is an append-only record of stock leaving the warehouse. Only
// Observation may change after creation.
type Exit struct {
	ID          uuid.UUID `json:"id"`
	SKU         string    `json:"sku"`
	Name        string    `json:"name"`
	Quantity    int       `json:"quantity"`
	Date        Date      `json:"date"`
	Type        ExitType  `json:"exit_type"`
	Store       Store     `json:"store,omitempty"`
	Observation string    `json:"observation"`
	CreatedAt   time.Time `json:"created_at"`
}

// MasterLocation is a registered location name, occupied or not.
type MasterLocation struct {
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// AvailabilityStatus reports whether a master location holds stock.
type AvailabilityStatus string

const (
	// StatusOccupied marks a location with at least one ledger entry.
	StatusOccupied AvailabilityStatus = "Occupied"
	// StatusFree marks an empty location.
	StatusFree AvailabilityStatus = "Free"
)

// AvailabilityRow is a single availability report line.
type AvailabilityRow struct {
	Location string             `json:"location"`
	Status   AvailabilityStatus `json:"status"`
}

// LocationFilter narrows ledger listings.
type LocationFilter struct {
	SKU    string
	Place  string
	Search string
}

// ExitFilter narrows exit listings.
type ExitFilter struct {
	SKU    string
	Search string
}
