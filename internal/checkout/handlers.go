package checkout

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-tierprice/internal/cart"
	"github.com/noah-isme/toko-tierprice/internal/common"
	"github.com/noah-isme/toko-tierprice/internal/pricing"
	"github.com/noah-isme/toko-tierprice/internal/salesctx"
)

// Handler exposes the cart calculation endpoint.
type Handler struct {
	svc      *Service
	validate *validator.Validate
	defaults salesctx.Defaults
}

// HandlerConfig configures the Handler dependencies.
type HandlerConfig struct {
	Service   *Service
	Validator *validator.Validate
	Defaults  salesctx.Defaults
}

// NewHandler constructs a Handler.
func NewHandler(cfg HandlerConfig) *Handler {
	v := cfg.Validator
	if v == nil {
		v = validator.New()
	}
	return &Handler{svc: cfg.Service, validate: v, defaults: cfg.Defaults}
}

type calculateRequest struct {
	Token     string            `json:"token" validate:"max=64"`
	Behavior  cart.Behavior     `json:"behavior"`
	LineItems []lineItemRequest `json:"lineItems" validate:"required,min=1,max=500,dive"`
}

type lineItemRequest struct {
	ID           string            `json:"id" validate:"max=64"`
	Type         string            `json:"type" validate:"max=32"`
	ReferencedID string            `json:"referencedId" validate:"required,max=64"`
	Label        string            `json:"label" validate:"max=255"`
	Quantity     int               `json:"quantity" validate:"min=1,max=100000"`
	Payload      cart.Payload      `json:"payload"`
	FreeProduct  bool              `json:"freeProduct"`
	DesignPrice  *decimal.Decimal  `json:"designPrice"`
	UnitPrice    *decimal.Decimal  `json:"unitPrice"`
	TaxRate      *decimal.Decimal  `json:"taxRate"`
	Children     []lineItemRequest `json:"children" validate:"max=50,dive"`
}

func (r lineItemRequest) toLineItem(sc salesctx.Context) *cart.LineItem {
	li := &cart.LineItem{
		ID:           r.ID,
		Type:         r.Type,
		ReferencedID: r.ReferencedID,
		Label:        r.Label,
		Quantity:     r.Quantity,
		Payload:      r.Payload,
	}
	if li.Type == "" {
		li.Type = cart.LineItemTypeProduct
	}
	if r.FreeProduct {
		li.Extensions.FreeProduct = &cart.FreeProduct{IsFreeProduct: true}
	}
	if r.DesignPrice != nil && r.DesignPrice.IsPositive() {
		li.Extensions.DesignPrice = &cart.DesignPrice{Price: *r.DesignPrice}
	}
	if r.UnitPrice != nil {
		var rules []pricing.TaxRule
		if r.TaxRate != nil {
			rules = []pricing.TaxRule{{Rate: *r.TaxRate, Percentage: decimal.NewFromInt(100)}}
		}
		price := pricing.Calculator{}.Calculate(pricing.QuantityDefinition{Price: *r.UnitPrice, TaxRules: rules, Quantity: r.Quantity}, sc)
		li.Price = &price
	}
	for _, child := range r.Children {
		li.Children = append(li.Children, child.toLineItem(sc))
	}
	return li
}

// Calculate handles POST /api/v1/sales-channels/{salesChannelId}/cart/calculate.
func (h *Handler) Calculate(w http.ResponseWriter, r *http.Request) {
	if h.svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "checkout service not configured", nil)
		return
	}
	var req calculateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request payload", nil)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		common.JSONError(w, http.StatusUnprocessableEntity, "VALIDATION_FAILED", "invalid request payload", common.ValidationDetails(err))
		return
	}

	sc := salesctx.FromRequest(r, chi.URLParam(r, "salesChannelId"), h.defaults)
	original := &cart.Cart{Token: req.Token}
	for _, item := range req.LineItems {
		original.LineItems = append(original.LineItems, item.toLineItem(sc))
	}

	calculated, errs := h.svc.Calculate(r.Context(), original, sc, req.Behavior)
	common.Data(w, http.StatusOK, map[string]any{
		"cart":        calculated,
		"errors":      errs,
		"blocksOrder": errs.BlocksOrder(),
	})
}
