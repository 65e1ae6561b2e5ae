package catalog

import (
	"errors"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-tierprice/internal/pricing"
)

// ErrNotFound is returned when a product cannot be resolved.
var ErrNotFound = errors.New("catalog: product not found")

var hundredPercent = decimal.NewFromInt(100)

// Product is the pricing view of a purchasable product.
type Product struct {
	ID            string            `json:"id"`
	ParentID      string            `json:"parentId,omitempty"`
	ProductNumber string            `json:"productNumber"`
	MinPurchase   int               `json:"minPurchase"`
	Prices        pricing.TierTable `json:"prices"`

	// GroupMinimum is the combined quantity all variants of the product group
	// must reach in a cart. Zero means no minimum.
	GroupMinimum int `json:"groupPurchaseMinimum,omitempty"`
}

// IsVariant reports whether the product belongs to a parent product.
func (p *Product) IsVariant() bool {
	return p != nil && p.ParentID != ""
}

// PriceRow is a stored quantity break before the calculator has derived taxes.
// A nil QuantityEnd means the row has no upper bound.
type PriceRow struct {
	RuleID      string          `json:"ruleId,omitempty"`
	QuantityEnd *int            `json:"quantityEnd,omitempty"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	TaxRate     decimal.Decimal `json:"taxRate"`
}

// Record is a product as returned by a Repository.
type Record struct {
	ID            string
	ParentID      string
	ProductNumber string
	MinPurchase   int
	GroupMinimum  int
	Prices        []PriceRow
}

// selectRulePrices keeps the rows of the first rule in ruleIDs that has any,
// falling back to rows without a rule.
func selectRulePrices(rows []PriceRow, ruleIDs []string) []PriceRow {
	byRule := make(map[string][]PriceRow)
	for _, row := range rows {
		byRule[row.RuleID] = append(byRule[row.RuleID], row)
	}
	for _, id := range ruleIDs {
		if id == "" {
			continue
		}
		if set, ok := byRule[id]; ok {
			return set
		}
	}
	return byRule[""]
}
