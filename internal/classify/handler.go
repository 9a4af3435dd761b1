package classify

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/stockledger/internal/ledger"
	"github.com/odyssey-erp/stockledger/internal/platform/httpx"
	"github.com/odyssey-erp/stockledger/internal/shared"
)

// ReportService is the part of Service used by the HTTP layer.
type ReportService interface {
	Report(ctx context.Context) (Report, error)
	ExitSummary(ctx context.Context, stores []ledger.Store) (ExitSummary, error)
}

// Handler exposes report endpoints.
type Handler struct {
	logger  *slog.Logger
	service ReportService
}

// NewHandler constructs Handler.
func NewHandler(logger *slog.Logger, service ReportService) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/classification", h.handleClassification)
	r.Get("/exits", h.handleExitSummary)
}

func (h *Handler) handleClassification(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.Report(r.Context())
	if err != nil {
		h.logger.Error("classification report", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) handleExitSummary(w http.ResponseWriter, r *http.Request) {
	stores, err := parseStores(r.URL.Query()["store"])
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	summary, err := h.service.ExitSummary(r.Context(), stores)
	if err != nil {
		h.logger.Error("exit summary", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

// parseStores accepts repeated or comma separated store values.
func parseStores(raw []string) ([]ledger.Store, error) {
	var stores []ledger.Store
	seen := make(map[ledger.Store]bool)
	for _, value := range raw {
		for _, part := range strings.Split(value, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			store, ok := ledger.ParseStore(part)
			if !ok {
				return nil, shared.Validation("unknown store %q", part)
			}
			if !seen[store] {
				seen[store] = true
				stores = append(stores, store)
			}
		}
	}
	return stores, nil
}
