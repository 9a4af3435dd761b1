package deletion

import (
	"time"

	"github.com/google/uuid"
)

// Kind names what a request deletes.
type Kind string

const (
	// KindProduct targets a catalogue product by SKU.
	KindProduct Kind = "product"
	// KindLocation targets a master location by name.
	KindLocation Kind = "location"
)

// ParseKind validates a kind string.
func ParseKind(raw string) (Kind, bool) {
	switch Kind(raw) {
	case KindProduct, KindLocation:
		return Kind(raw), true
	}
	return "", false
}

// Status is the lifecycle state of a request.
type Status string

const (
	// StatusPending awaits an admin decision.
	StatusPending Status = "PENDING"
	// StatusApproved means the deletion was executed.
	StatusApproved Status = "APPROVED"
	// StatusRejected means the request was turned down.
	StatusRejected Status = "REJECTED"
)

// Target identifies the entity to delete.
type Target struct {
	Kind Kind
	Key  string
}

// Request is a pending or decided deletion request.
type Request struct {
	ID          uuid.UUID  `json:"id"`
	Kind        Kind       `json:"kind"`
	Target      string     `json:"target"`
	Status      Status     `json:"status"`
	RequestedBy int64      `json:"requested_by"`
	DecidedBy   int64      `json:"decided_by,omitempty"`
	Note        string     `json:"note,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	DecidedAt   *time.Time `json:"decided_at,omitempty"`
}
