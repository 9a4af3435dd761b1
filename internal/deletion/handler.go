package deletion

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/odyssey-erp/stockledger/internal/platform/httpx"
	"github.com/odyssey-erp/stockledger/internal/shared"
)

// RequestService is the part of Service used by the HTTP layer.
type RequestService interface {
	Request(ctx context.Context, target Target, requestedBy int64) (Request, error)
	Approve(ctx context.Context, id uuid.UUID, actor shared.Actor) (Request, error)
	Reject(ctx context.Context, id uuid.UUID, actor shared.Actor, note string) (Request, error)
	ListPending(ctx context.Context) ([]Request, error)
}

// Handler wires HTTP endpoints for deletion requests.
type Handler struct {
	logger  *slog.Logger
	service RequestService
	decoder *httpx.Decoder
}

// NewHandler constructs deletion handler.
func NewHandler(logger *slog.Logger, service RequestService) *Handler {
	return &Handler{logger: logger, service: service, decoder: httpx.NewDecoder()}
}

// MountRoutes registers deletion request routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(httpx.RequireActor).Post("/", h.create)
	r.Group(func(r chi.Router) {
		r.Use(httpx.RequireAdmin)
		r.Get("/", h.listPending)
		r.Post("/{id}/approve", h.approve)
		r.Post("/{id}/reject", h.reject)
	})
}

type createRequest struct {
	Kind   string `json:"kind" validate:"required,oneof=product location"`
	Target string `json:"target" validate:"required,max=200"`
}

type decisionRequest struct {
	Note string `json:"note" validate:"max=500"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := h.decoder.Decode(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	kind, _ := ParseKind(req.Kind)
	created, err := h.service.Request(r.Context(), Target{Kind: kind, Key: req.Target}, httpx.ActorID(r))
	if err != nil {
		h.fail(w, "request deletion", err)
		return
	}
	httpx.JSON(w, http.StatusAccepted, created)
}

func (h *Handler) listPending(w http.ResponseWriter, r *http.Request) {
	reqs, err := h.service.ListPending(r.Context())
	if err != nil {
		h.fail(w, "list deletion requests", err)
		return
	}
	httpx.JSON(w, http.StatusOK, reqs)
}

func (h *Handler) approve(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, shared.Validation("invalid request id"))
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	decided, err := h.service.Approve(r.Context(), id, actor)
	if err != nil {
		h.fail(w, "approve deletion", err)
		return
	}
	httpx.JSON(w, http.StatusOK, decided)
}

func (h *Handler) reject(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, shared.Validation("invalid request id"))
		return
	}
	var req decisionRequest
	if r.ContentLength != 0 {
		if err := h.decoder.Decode(r, &req); err != nil {
			httpx.RespondError(w, err)
			return
		}
	}
	actor, _ := shared.ActorFromContext(r.Context())
	decided, err := h.service.Reject(r.Context(), id, actor, req.Note)
	if err != nil {
		h.fail(w, "reject deletion", err)
		return
	}
	httpx.JSON(w, http.StatusOK, decided)
}

func (h *Handler) fail(w http.ResponseWriter, action string, err error) {
	if httpx.StatusFor(err) >= http.StatusInternalServerError {
		h.logger.Error(action, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
