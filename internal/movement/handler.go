package movement

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/odyssey-erp/stockledger/internal/ledger"
	"github.com/odyssey-erp/stockledger/internal/platform/httpx"
	"github.com/odyssey-erp/stockledger/internal/shared"
)

// LedgerService is the part of Service used by the HTTP layer.
type LedgerService interface {
	AddStock(ctx context.Context, input AddStockInput) (AddStockResult, error)
	Move(ctx context.Context, input MoveInput) (MoveResult, error)
	Exit(ctx context.Context, input ExitInput) (ExitResult, error)
	UpdateExitObservation(ctx context.Context, id uuid.UUID, observation string, actorID int64) (ledger.Exit, error)
	DeleteExit(ctx context.Context, id uuid.UUID, actorID int64) error
	ListLocations(ctx context.Context, filter ledger.LocationFilter) ([]ledger.Location, error)
	ListExits(ctx context.Context, filter ledger.ExitFilter) ([]ledger.Exit, error)
}

// Handler wires HTTP endpoints for ledger movements.
type Handler struct {
	logger  *slog.Logger
	service LedgerService
	decoder *httpx.Decoder
}

// NewHandler constructs movement handler.
func NewHandler(logger *slog.Logger, service LedgerService) *Handler {
	return &Handler{logger: logger, service: service, decoder: httpx.NewDecoder()}
}

// MountLocationRoutes registers ledger entry routes.
func (h *Handler) MountLocationRoutes(r chi.Router) {
	r.Get("/", h.listLocations)
	r.Group(func(r chi.Router) {
		r.Use(httpx.RequireActor)
		r.Post("/", h.addStock)
		r.Post("/move", h.move)
		r.Post("/{id}/exit", h.exit)
	})
}

// MountExitRoutes registers exit history routes.
func (h *Handler) MountExitRoutes(r chi.Router) {
	r.Get("/", h.listExits)
	r.Group(func(r chi.Router) {
		r.Use(httpx.RequireAdmin)
		r.Put("/{id}/observation", h.updateObservation)
		r.Delete("/{id}", h.deleteExit)
	})
}

type addStockRequest struct {
	SKU         string      `json:"sku" validate:"required"`
	Location    string      `json:"location" validate:"required"`
	Volume      int         `json:"volume" validate:"required,gt=0,max=2147483647"`
	UnitsPerBox int         `json:"units_per_box" validate:"gte=0"`
	Date        ledger.Date `json:"date"`
}

type moveRequest struct {
	SourceID    uuid.UUID `json:"source_id" validate:"required"`
	Destination string    `json:"destination" validate:"required"`
	Volume      int       `json:"volume" validate:"max=2147483647"`
	RequestKey  string    `json:"request_key" validate:"omitempty,max=128"`
}

type exitRequest struct {
	Type        string      `json:"exit_type" validate:"required"`
	Store       string      `json:"store"`
	Observation string      `json:"observation" validate:"max=1000"`
	Volume      int         `json:"volume" validate:"max=2147483647"`
	Date        ledger.Date `json:"date"`
	RequestKey  string      `json:"request_key" validate:"omitempty,max=128"`
}

type observationRequest struct {
	Observation string `json:"observation" validate:"max=1000"`
}

func (h *Handler) listLocations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	locations, err := h.service.ListLocations(r.Context(), ledger.LocationFilter{
		SKU:    q.Get("sku"),
		Place:  q.Get("location"),
		Search: q.Get("search"),
	})
	if err != nil {
		h.fail(w, "list locations", err)
		return
	}
	httpx.JSON(w, http.StatusOK, locations)
}

func (h *Handler) addStock(w http.ResponseWriter, r *http.Request) {
	var req addStockRequest
	if err := h.decoder.Decode(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	result, err := h.service.AddStock(r.Context(), AddStockInput{
		SKU:         req.SKU,
		Place:       req.Location,
		Volume:      req.Volume,
		UnitsPerBox: req.UnitsPerBox,
		Date:        req.Date,
		ActorID:     httpx.ActorID(r),
	})
	if err != nil {
		h.fail(w, "add stock", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, result)
}

func (h *Handler) move(w http.ResponseWriter, r *http.Request) {
	var req moveRequest
	if err := h.decoder.Decode(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	result, err := h.service.Move(r.Context(), MoveInput{
		SourceID:    req.SourceID,
		Destination: req.Destination,
		Volume:      req.Volume,
		ActorID:     httpx.ActorID(r),
		RequestKey:  firstNonEmpty(req.RequestKey, r.Header.Get("Idempotency-Key")),
	})
	if err != nil {
		h.fail(w, "move stock", err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) exit(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req exitRequest
	if err := h.decoder.Decode(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	result, err := h.service.Exit(r.Context(), ExitInput{
		SourceID:    id,
		Type:        req.Type,
		Store:       req.Store,
		Observation: req.Observation,
		Volume:      req.Volume,
		Date:        req.Date,
		ActorID:     httpx.ActorID(r),
		RequestKey:  firstNonEmpty(req.RequestKey, r.Header.Get("Idempotency-Key")),
	})
	if err != nil {
		h.fail(w, "register exit", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, result)
}

func (h *Handler) listExits(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	exits, err := h.service.ListExits(r.Context(), ledger.ExitFilter{SKU: q.Get("sku"), Search: q.Get("search")})
	if err != nil {
		h.fail(w, "list exits", err)
		return
	}
	httpx.JSON(w, http.StatusOK, exits)
}

func (h *Handler) updateObservation(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req observationRequest
	if err := h.decoder.Decode(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	exit, err := h.service.UpdateExitObservation(r.Context(), id, req.Observation, httpx.ActorID(r))
	if err != nil {
		h.fail(w, "update observation", err)
		return
	}
	httpx.JSON(w, http.StatusOK, exit)
}

func (h *Handler) deleteExit(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.DeleteExit(r.Context(), id, httpx.ActorID(r)); err != nil {
		h.fail(w, "delete exit", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) fail(w http.ResponseWriter, action string, err error) {
	if !shared.IsDomainError(err) || httpx.StatusFor(err) >= http.StatusInternalServerError {
		h.logger.Error(action, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

func parseID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, shared.Validation("invalid id %q", chi.URLParam(r, "id"))
	}
	return id, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
