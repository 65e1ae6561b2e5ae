package storefront

import (
	"encoding/json"
	"net/http"

	validator "github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-tierprice/internal/common"
)

// Handler applies designer prices to product page labels.
type Handler struct {
	Validate *validator.Validate
	Logger   zerolog.Logger
}

type designPriceRequest struct {
	Message   string          `json:"message" validate:"required,max=8192"`
	Label     string          `json:"label" validate:"max=1024"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Tiers     []TierRow       `json:"tiers" validate:"max=100,dive"`
	Advanced  []AdvancedPrice `json:"advanced" validate:"max=100,dive"`
}

type designPriceResponse struct {
	Applied     bool      `json:"applied"`
	DesignPrice string    `json:"designPrice,omitempty"`
	Label       string    `json:"label"`
	Tiers       []TierRow `json:"tiers"`
}

// DesignPrice handles POST /api/v1/storefront/design-price. Messages that are not a
// finished designer session leave the labels untouched and report applied=false.
func (h *Handler) DesignPrice(w http.ResponseWriter, r *http.Request) {
	var req designPriceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request payload", nil)
		return
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(req); err != nil {
			common.JSONError(w, http.StatusUnprocessableEntity, "VALIDATION_FAILED", "invalid request payload", common.ValidationDetails(err))
			return
		}
	}

	resp := designPriceResponse{Label: req.Label, Tiers: req.Tiers}
	if resp.Tiers == nil {
		resp.Tiers = []TierRow{}
	}
	price, err := ParseDesignerMessage(req.Message)
	if err != nil {
		h.Logger.Debug().Err(err).Msg("designer message ignored")
		common.Data(w, http.StatusOK, resp)
		return
	}

	resp.Applied = true
	resp.DesignPrice = price.StringFixed(2)
	if req.Label != "" {
		resp.Label = ApplyToLabel(req.Label, req.UnitPrice, price)
	}
	resp.Tiers = ApplyToTierRows(resp.Tiers, req.Advanced, price)
	common.Data(w, http.StatusOK, resp)
}
