package shared

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates an unknown SKU, ledger entry, exit or request.
	ErrNotFound = errors.New("not found")
	// ErrValidation indicates a blank required field or an out-of-range value.
	ErrValidation = errors.New("validation failed")
	// ErrInvalidVolume indicates a move/exit volume outside 1..source volume.
	ErrInvalidVolume = errors.New("invalid volume")
	// ErrMissingStore occurs when a Full exit has no store.
	ErrMissingStore = errors.New("store required for full exit")
	// ErrLocationOccupied blocks removal of a location that still holds stock.
	ErrLocationOccupied = errors.New("location occupied")
	// ErrDuplicateSKU occurs when creating a product whose SKU already exists.
	ErrDuplicateSKU = errors.New("duplicate sku")
	// ErrProductInUse blocks removal of a product still referenced by the ledger.
	ErrProductInUse = errors.New("product still referenced by ledger")
	// ErrConflict reports a concurrent or replayed mutation of the same entry.
	ErrConflict = errors.New("conflicting operation")
	// ErrRequestClosed occurs when deciding a request that is no longer pending.
	ErrRequestClosed = errors.New("request already decided")
	// ErrForbidden blocks privileged operations for non-admin actors.
	ErrForbidden = errors.New("forbidden")
	// ErrCollaboratorUnavailable wraps storage or cache failures.
	ErrCollaboratorUnavailable = errors.New("storage unavailable")
)

// Validation builds an ErrValidation with detail.
func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Unavailable tags a driver error as ErrCollaboratorUnavailable. Context
// cancellation and domain sentinels pass through untouched.
func Unavailable(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if IsDomainError(err) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrCollaboratorUnavailable, err)
}

// IsDomainError reports whether err belongs to the ledger error taxonomy.
func IsDomainError(err error) bool {
	for _, target := range []error{
		ErrNotFound, ErrValidation, ErrInvalidVolume, ErrMissingStore,
		ErrLocationOccupied, ErrDuplicateSKU, ErrProductInUse, ErrConflict,
		ErrRequestClosed, ErrForbidden, ErrCollaboratorUnavailable,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsNotFound reports whether err is ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// UserSafeMessage returns a message suitable for API consumers.
func UserSafeMessage(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrCollaboratorUnavailable) {
		return ErrCollaboratorUnavailable.Error()
	}
	if IsDomainError(err) {
		return err.Error()
	}
	return "internal error"
}
