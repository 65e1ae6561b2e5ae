package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-tierprice/internal/salesctx"
)

// Summary aggregates computed cart pricing components.
type Summary struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	Net      decimal.Decimal `json:"net"`
	Total    decimal.Decimal `json:"total"`
}

// Summarize totals the calculated prices of a cart. Nil prices are ignored.
// Gross carts already contain taxes in their line totals; net carts add them on top.
func Summarize(prices []*CalculatedPrice, state salesctx.TaxState) Summary {
	subtotal := decimal.Zero
	tax := decimal.Zero
	for _, p := range prices {
		if p == nil || p.Quantity <= 0 {
			continue
		}
		subtotal = subtotal.Add(p.TotalPrice)
		tax = tax.Add(p.CalculatedTaxes.Amount())
	}
	switch state {
	case salesctx.TaxStateNet:
		return Summary{Subtotal: subtotal, Tax: tax, Net: subtotal, Total: subtotal.Add(tax)}
	case salesctx.TaxStateTaxFree:
		return Summary{Subtotal: subtotal, Tax: decimal.Zero, Net: subtotal, Total: subtotal}
	default:
		return Summary{Subtotal: subtotal, Tax: tax, Net: subtotal.Sub(tax), Total: subtotal}
	}
}
