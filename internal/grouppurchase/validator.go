package grouppurchase

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-tierprice/internal/cart"
	"github.com/noah-isme/toko-tierprice/internal/common"
	"github.com/noah-isme/toko-tierprice/internal/obs"
	"github.com/noah-isme/toko-tierprice/internal/salesctx"
)

// MinimumField is the product custom field holding the group purchase minimum.
const MinimumField = "custom_styledrop_product_group_purchase_quantity"

// MessageKey identifies BlockedError in storefront translations.
const MessageKey = "custom-cart-blocked"

// BlockedError reports a product group removed for missing its minimum quantity.
type BlockedError struct {
	ProductID string
	Quantity  int
	Minimum   int
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("product group %s requires at least %d items, cart has %d", e.ProductID, e.Minimum, e.Quantity)
}

func (e *BlockedError) ID() string             { return MessageKey + "-" + e.ProductID }
func (e *BlockedError) MessageKey() string     { return MessageKey }
func (e *BlockedError) Level() cart.ErrorLevel { return cart.LevelError }
func (e *BlockedError) BlockOrder() bool       { return true }
func (e *BlockedError) Parameters() map[string]any {
	return map[string]any{"productId": e.ProductID, "quantity": e.Quantity, "minimum": e.Minimum}
}

// Validator removes product groups whose combined quantity is below the minimum
// configured on the first line item of the group.
type Validator struct {
	Logger zerolog.Logger
}

// NewValidator constructs a Validator.
func NewValidator(logger zerolog.Logger) *Validator {
	return &Validator{Logger: logger.With().Str("component", "group_purchase").Logger()}
}

type groupTotals struct {
	id       string
	quantity int
	minimum  int
}

// GroupID returns the product group of a line item: its parent product when known, else the referenced product.
func GroupID(li *cart.LineItem) string {
	if li.Payload.ParentID != "" {
		return li.Payload.ParentID
	}
	return li.ReferencedID
}

// Validate implements cart.Validator.
func (v *Validator) Validate(_ context.Context, c *cart.Cart, errs *cart.ErrorCollection, sc salesctx.Context) {
	if c == nil || errs == nil {
		return
	}
	var (
		order  []*groupTotals
		groups = map[string]*groupTotals{}
	)
	for _, li := range c.LineItems.Flat() {
		id := GroupID(li)
		g, ok := groups[id]
		if !ok {
			g = &groupTotals{id: id, minimum: Minimum(li.Payload.CustomFields)}
			groups[id] = g
			order = append(order, g)
		}
		g.quantity += li.Quantity
	}

	for _, g := range order {
		if g.minimum <= 0 || g.quantity >= g.minimum {
			continue
		}
		var removed int
		c.LineItems, removed = c.LineItems.RemoveFunc(func(li *cart.LineItem) bool { return GroupID(li) == g.id })
		errs.Add(&BlockedError{ProductID: g.id, Quantity: g.quantity, Minimum: g.minimum})
		if obs.GroupPurchaseBlockedTotal != nil {
			obs.GroupPurchaseBlockedTotal.Inc()
		}
		v.Logger.Info().
			Str("sales_channel_id", sc.SalesChannelID).
			Str("product_group", g.id).
			Int("quantity", g.quantity).
			Int("minimum", g.minimum).
			Int("removed", removed).
			Msg("group purchase minimum not reached")
	}
}

// Minimum reads the group purchase minimum from custom fields. Numbers and numeric
// strings are accepted; anything else counts as no minimum.
func Minimum(fields map[string]any) int {
	raw, ok := fields[MinimumField]
	if !ok || raw == nil {
		return 0
	}
	switch v := raw.(type) {
	case int:
		return v
	case int32:
		return int(v)
	case int64:
		return int(v)
	case float64:
		return int(math.Ceil(v))
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return int(math.Ceil(f))
		}
	case string:
		return common.AtoiDefault(strings.TrimSpace(v), 0)
	}
	return 0
}
