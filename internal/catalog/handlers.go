package catalog

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/toko-tierprice/internal/common"
	"github.com/noah-isme/toko-tierprice/internal/salesctx"
)

// Handler exposes calculated price tables to the storefront widget.
type Handler struct {
	lookup   *Lookup
	defaults salesctx.Defaults
}

// HandlerConfig configures the Handler dependencies.
type HandlerConfig struct {
	Lookup   *Lookup
	Defaults salesctx.Defaults
}

// NewHandler constructs a Handler.
func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{lookup: cfg.Lookup, defaults: cfg.Defaults}
}

// TierView is one row of the advanced price table.
type TierView struct {
	From      int    `json:"from"`
	To        *int   `json:"to,omitempty"`
	UnitPrice string `json:"unitPrice"`
	Savings   string `json:"savingsPercent"`
}

// Prices handles GET /api/v1/sales-channels/{salesChannelId}/products/{productId}/prices.
func (h *Handler) Prices(w http.ResponseWriter, r *http.Request) {
	if h.lookup == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog lookup not configured", nil)
		return
	}
	sc := salesctx.FromRequest(r, chi.URLParam(r, "salesChannelId"), h.defaults)
	product, err := h.lookup.Find(r.Context(), Reference{ProductID: chi.URLParam(r, "productId")}, sc)
	if err != nil {
		h.writeError(w, err)
		return
	}

	rows := make([]TierView, 0, len(product.Prices))
	for i, tier := range product.Prices {
		lower, upper, unbounded := product.Prices.Bounds(i)
		view := TierView{From: lower, UnitPrice: tier.UnitPrice.StringFixed(sc.Decimals()), Savings: "0"}
		if !unbounded {
			to := upper
			view.To = &to
		}
		if first := product.Prices[0].UnitPrice; first.IsPositive() {
			view.Savings = first.Sub(tier.UnitPrice).Div(first).Mul(hundredPercent).Round(2).String()
		}
		rows = append(rows, view)
	}
	common.Data(w, http.StatusOK, map[string]any{
		"id":            product.ID,
		"parentId":      product.ParentID,
		"productNumber": product.ProductNumber,
		"minPurchase":   product.MinPurchase,
		"groupMinimum":  product.GroupMinimum,
		"signature":     product.Prices.Signature(),
		"tiers":         rows,
	})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrNotFound) {
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "product not found", nil)
		return
	}
	common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to load product", nil)
}
