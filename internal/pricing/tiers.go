package pricing

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-tierprice/internal/common"
)

// PriceTier is one quantity break of a product's price table. Quantity is the
// inclusive upper bound of the tier; the last tier of a table has no upper bound.
type PriceTier struct {
	Quantity        int             `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unitPrice"`
	TaxRules        []TaxRule       `json:"taxRules"`
	CalculatedTaxes CalculatedTaxes `json:"calculatedTaxes"`
}

// TierTable is a price table ordered ascending by Quantity.
type TierTable []PriceTier

// Bounds returns the inclusive quantity range of tier i. unbounded is true for the last tier.
func (t TierTable) Bounds(i int) (lower, upper int, unbounded bool) {
	lower = 1
	if i > 0 {
		lower = t[i-1].Quantity + 1
	}
	if i == len(t)-1 {
		return lower, 0, true
	}
	return lower, t[i].Quantity, false
}

// Select returns the tier whose range contains qty. When no range matches the
// first tier is returned; ok is false only for an empty table.
func (t TierTable) Select(qty int) (PriceTier, bool) {
	if len(t) == 0 {
		return PriceTier{}, false
	}
	for i := range t {
		lower, upper, unbounded := t.Bounds(i)
		if qty >= lower && (unbounded || qty <= upper) {
			return t[i], true
		}
	}
	return t[0], true
}

// Signature returns a digest over the (quantity, unit price, tax amount) triples of
// the table. Tables with equal signatures belong to the same price group.
func (t TierTable) Signature() string {
	var b strings.Builder
	for _, tier := range t {
		b.WriteString(strconv.Itoa(tier.Quantity))
		b.WriteByte('-')
		b.WriteString(tier.UnitPrice.String())
		b.WriteByte('-')
		b.WriteString(tier.CalculatedTaxes.Amount().String())
		b.WriteByte(';')
	}
	return common.Sha256Hex(b.String())
}
