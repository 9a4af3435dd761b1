package movement

import (
	"github.com/google/uuid"

	"github.com/odyssey-erp/stockledger/internal/ledger"
)

// MoveInput moves boxes from one ledger entry to a named place.
type MoveInput struct {
	SourceID    uuid.UUID
	Destination string
	Volume      int
	ActorID     int64
	RequestKey  string
}

// MoveResult describes both sides of a move. Source is nil when the entry
// was drained and deleted.
type MoveResult struct {
	Source      *ledger.Location `json:"source"`
	Destination ledger.Location  `json:"destination"`
	Merged      bool             `json:"merged"`
}

// ExitInput consumes boxes of a ledger entry.
type ExitInput struct {
	SourceID    uuid.UUID
	Type        string
	Store       string
	Observation string
	Volume      int
	Date        ledger.Date
	ActorID     int64
	RequestKey  string
}

// ExitResult carries the appended exit and what is left of the source.
type ExitResult struct {
	Exit   ledger.Exit      `json:"exit"`
	Source *ledger.Location `json:"source"`
}

// AddStockInput shelves new boxes of a product.
type AddStockInput struct {
	SKU         string
	Place       string
	Volume      int
	UnitsPerBox int
	Date        ledger.Date
	ActorID     int64
}

// AddStockResult is the entry holding the new boxes.
type AddStockResult struct {
	Location ledger.Location `json:"location"`
	Merged   bool            `json:"merged"`
}
