package locations

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/stockledger/internal/ledger"
	"github.com/odyssey-erp/stockledger/internal/platform/httpx"
	"github.com/odyssey-erp/stockledger/internal/shared"
)

// RegistryService is the part of Service used by the HTTP layer.
type RegistryService interface {
	Register(ctx context.Context, name string, actorID int64) (ledger.MasterLocation, bool, error)
	Availability(ctx context.Context, search string) ([]ledger.AvailabilityRow, error)
}

// Remover deletes a location immediately on behalf of a privileged actor.
type Remover interface {
	RemoveLocation(ctx context.Context, name string, actor shared.Actor) error
}

// Handler wires HTTP endpoints for the master-location registry.
type Handler struct {
	logger  *slog.Logger
	service RegistryService
	remover Remover
	decoder *httpx.Decoder
}

// NewHandler constructs registry handler.
func NewHandler(logger *slog.Logger, service RegistryService, remover Remover) *Handler {
	return &Handler{logger: logger, service: service, remover: remover, decoder: httpx.NewDecoder()}
}

// MountRoutes registers registry routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.availability)
	r.With(httpx.RequireActor).Post("/", h.register)
	if h.remover != nil {
		r.With(httpx.RequireAdmin).Delete("/{name}", h.remove)
	}
}

type registerRequest struct {
	Name string `json:"name" validate:"required,max=120"`
}

func (h *Handler) availability(w http.ResponseWriter, r *http.Request) {
	rows, err := h.service.Availability(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		h.logger.Error("location availability", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rows)
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := h.decoder.Decode(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	loc, created, err := h.service.Register(r.Context(), req.Name, httpx.ActorID(r))
	if err != nil {
		h.logger.Error("register location", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	httpx.JSON(w, status, loc)
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	name, err := url.PathUnescape(chi.URLParam(r, "name"))
	if err != nil {
		httpx.RespondError(w, shared.Validation("invalid location name"))
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	if err := h.remover.RemoveLocation(r.Context(), name, actor); err != nil {
		if httpx.StatusFor(err) >= http.StatusInternalServerError {
			h.logger.Error("remove location", slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
