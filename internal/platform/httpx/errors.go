// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"

	"github.com/odyssey-erp/stockledger/internal/shared"
)

// Transport-level sentinels not covered by the ledger taxonomy.
var (
	ErrForbidden    = shared.ErrForbidden
	ErrUnauthorized = errors.New("unauthorized")
)

// StatusFor maps an error to its HTTP status code.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, shared.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, shared.ErrValidation),
		errors.Is(err, shared.ErrInvalidVolume),
		errors.Is(err, shared.ErrMissingStore):
		return http.StatusBadRequest
	case errors.Is(err, shared.ErrDuplicateSKU),
		errors.Is(err, shared.ErrLocationOccupied),
		errors.Is(err, shared.ErrProductInUse),
		errors.Is(err, shared.ErrConflict),
		errors.Is(err, shared.ErrRequestClosed):
		return http.StatusConflict
	case errors.Is(err, shared.ErrCollaboratorUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// RespondError maps domain errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	detail := shared.UserSafeMessage(err)
	if errors.Is(err, ErrUnauthorized) {
		detail = err.Error()
	}
	Problem(w, status, http.StatusText(status), detail)
}
