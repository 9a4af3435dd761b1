package catalog

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/stockledger/internal/ledger"
	"github.com/odyssey-erp/stockledger/internal/platform/httpx"
	"github.com/odyssey-erp/stockledger/internal/shared"
)

// CatalogService is the part of Service used by the HTTP layer.
type CatalogService interface {
	Create(ctx context.Context, input CreateInput) (ledger.Product, error)
	Get(ctx context.Context, sku string) (ProductView, error)
	List(ctx context.Context, search string) ([]ProductView, error)
	Update(ctx context.Context, input UpdateInput) (ledger.Product, error)
	Clone(ctx context.Context, input CloneInput) (ledger.Product, error)
	History(ctx context.Context, sku string) (HistoryView, error)
}

// Remover deletes a product immediately on behalf of a privileged actor.
type Remover interface {
	RemoveProduct(ctx context.Context, sku string, actor shared.Actor) error
}

// Handler wires HTTP endpoints for the product catalogue.
type Handler struct {
	logger  *slog.Logger
	service CatalogService
	remover Remover
	decoder *httpx.Decoder
}

// NewHandler constructs catalogue handler.
func NewHandler(logger *slog.Logger, service CatalogService, remover Remover) *Handler {
	return &Handler{logger: logger, service: service, remover: remover, decoder: httpx.NewDecoder()}
}

// MountRoutes registers product routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Get("/{sku}", h.get)
	r.Get("/{sku}/history", h.history)
	r.Group(func(r chi.Router) {
		r.Use(httpx.RequireActor)
		r.Post("/", h.create)
		r.Put("/{sku}", h.update)
		r.Post("/{sku}/clone", h.clone)
	})
	if h.remover != nil {
		r.With(httpx.RequireAdmin).Delete("/{sku}", h.remove)
	}
}

type productRequest struct {
	Name                string          `json:"name" validate:"required,max=200"`
	Brand               string          `json:"brand" validate:"required,max=120"`
	Color               string          `json:"color" validate:"max=60"`
	Supplier            string          `json:"supplier" validate:"required,max=200"`
	CostPrice           decimal.Decimal `json:"cost_price"`
	UnitsPerBox         int             `json:"units_per_box" validate:"gte=0"`
	RepurchaseThreshold int             `json:"repurchase_threshold" validate:"gte=0"`
	ImageURL            string          `json:"image_url" validate:"omitempty,url"`
}

type createRequest struct {
	SKU string `json:"sku" validate:"required,max=64"`
	productRequest
}

type cloneRequest struct {
	SKU                 string          `json:"sku" validate:"required,max=64"`
	Name                string          `json:"name"`
	Brand               string          `json:"brand"`
	Color               string          `json:"color"`
	Supplier            string          `json:"supplier"`
	CostPrice           decimal.Decimal `json:"cost_price"`
	UnitsPerBox         int             `json:"units_per_box" validate:"gte=0"`
	RepurchaseThreshold *int            `json:"repurchase_threshold" validate:"omitempty,gte=0"`
	ImageURL            string          `json:"image_url" validate:"omitempty,url"`
}

func (p productRequest) input() ProductInput {
	return ProductInput{
		Name:                p.Name,
		Brand:               p.Brand,
		Color:               p.Color,
		Supplier:            p.Supplier,
		CostPrice:           p.CostPrice,
		UnitsPerBox:         p.UnitsPerBox,
		RepurchaseThreshold: p.RepurchaseThreshold,
		ImageURL:            p.ImageURL,
	}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.List(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		h.fail(w, "list products", err)
		return
	}
	httpx.JSON(w, http.StatusOK, products)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	product, err := h.service.Get(r.Context(), chi.URLParam(r, "sku"))
	if err != nil {
		h.fail(w, "get product", err)
		return
	}
	httpx.JSON(w, http.StatusOK, product)
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.History(r.Context(), chi.URLParam(r, "sku"))
	if err != nil {
		h.fail(w, "product history", err)
		return
	}
	httpx.JSON(w, http.StatusOK, view)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := h.decoder.Decode(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	product, err := h.service.Create(r.Context(), CreateInput{SKU: req.SKU, ProductInput: req.input(), ActorID: httpx.ActorID(r)})
	if err != nil {
		h.fail(w, "create product", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, product)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := h.decoder.Decode(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	product, err := h.service.Update(r.Context(), UpdateInput{
		SKU:          chi.URLParam(r, "sku"),
		ProductInput: req.input(),
		ActorID:      httpx.ActorID(r),
	})
	if err != nil {
		h.fail(w, "update product", err)
		return
	}
	httpx.JSON(w, http.StatusOK, product)
}

func (h *Handler) clone(w http.ResponseWriter, r *http.Request) {
	var req cloneRequest
	if err := h.decoder.Decode(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	product, err := h.service.Clone(r.Context(), CloneInput{
		SourceSKU: chi.URLParam(r, "sku"),
		NewSKU:    req.SKU,
		ProductInput: ProductInput{
			Name:        req.Name,
			Brand:       req.Brand,
			Color:       req.Color,
			Supplier:    req.Supplier,
			CostPrice:   req.CostPrice,
			UnitsPerBox: req.UnitsPerBox,
			ImageURL:    req.ImageURL,
		},
		Threshold: req.RepurchaseThreshold,
		ActorID:   httpx.ActorID(r),
	})
	if err != nil {
		h.fail(w, "clone product", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, product)
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	actor, _ := shared.ActorFromContext(r.Context())
	if err := h.remover.RemoveProduct(r.Context(), chi.URLParam(r, "sku"), actor); err != nil {
		h.fail(w, "delete product", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) fail(w http.ResponseWriter, action string, err error) {
	if httpx.StatusFor(err) >= http.StatusInternalServerError {
		h.logger.Error(action, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
