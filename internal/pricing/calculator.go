package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-tierprice/internal/salesctx"
)

var hundred = decimal.NewFromInt(100)

// Calculator turns quantity definitions into calculated prices for a sales channel context.
type Calculator struct{}

// Calculate rounds the unit price, multiplies it by the quantity and derives taxes
// according to the context's tax state.
func (Calculator) Calculate(def QuantityDefinition, sc salesctx.Context) CalculatedPrice {
	places := sc.Decimals()
	qty := def.Quantity
	if qty <= 0 {
		qty = 1
	}
	unit := def.Price.Round(places)
	total := unit.Mul(decimal.NewFromInt(int64(qty)))

	return CalculatedPrice{
		UnitPrice:       unit,
		Quantity:        qty,
		TotalPrice:      total,
		CalculatedTaxes: calculateTaxes(total, def.TaxRules, sc.TaxState, places),
		TaxRules:        append([]TaxRule(nil), def.TaxRules...),
	}
}

func calculateTaxes(price decimal.Decimal, rules []TaxRule, state salesctx.TaxState, places int32) CalculatedTaxes {
	if state == salesctx.TaxStateTaxFree || len(rules) == 0 {
		return CalculatedTaxes{}
	}
	out := make(CalculatedTaxes, 0, len(rules))
	for _, rule := range rules {
		share := price.Mul(rule.Percentage).Div(hundred)
		var tax decimal.Decimal
		if state == salesctx.TaxStateNet {
			tax = share.Mul(rule.Rate).Div(hundred)
		} else {
			tax = share.Mul(rule.Rate).Div(hundred.Add(rule.Rate))
		}
		out = append(out, CalculatedTax{
			Tax:   tax.Round(places),
			Rate:  rule.Rate,
			Price: share.Round(places),
		})
	}
	return out
}
