package httpx

import (
	"net/http"

	"github.com/odyssey-erp/stockledger/internal/shared"
)

// RequireActor rejects requests that carry no acting user.
func RequireActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := shared.ActorFromContext(r.Context()); !ok {
			RespondError(w, ErrUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin restricts a route to the ADMIN role.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := shared.ActorFromContext(r.Context())
		if !ok {
			RespondError(w, ErrUnauthorized)
			return
		}
		if !actor.IsAdmin() {
			RespondError(w, ErrForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ActorID returns the acting user id, or 0 when absent.
func ActorID(r *http.Request) int64 {
	actor, _ := shared.ActorFromContext(r.Context())
	return actor.ID
}
