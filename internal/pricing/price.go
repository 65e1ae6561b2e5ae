package pricing

import "github.com/shopspring/decimal"

// TaxRule describes a tax rate applied to a share of a price.
type TaxRule struct {
	Rate       decimal.Decimal `json:"taxRate"`
	Percentage decimal.Decimal `json:"percentage"`
}

// NewTaxRule returns a rule that taxes the full price at rate percent.
func NewTaxRule(rate float64) TaxRule {
	return TaxRule{Rate: decimal.NewFromFloat(rate), Percentage: decimal.NewFromInt(100)}
}

// CalculatedTax is the tax derived for a price under one rule.
type CalculatedTax struct {
	Tax   decimal.Decimal `json:"tax"`
	Rate  decimal.Decimal `json:"taxRate"`
	Price decimal.Decimal `json:"price"`
}

// CalculatedTaxes is the tax breakdown of a price.
type CalculatedTaxes []CalculatedTax

// Amount sums all tax amounts.
func (c CalculatedTaxes) Amount() decimal.Decimal {
	total := decimal.Zero
	for _, t := range c {
		total = total.Add(t.Tax)
	}
	return total
}

// CalculatedPrice is a price after the calculator has applied quantity, rounding and taxes.
type CalculatedPrice struct {
	UnitPrice       decimal.Decimal `json:"unitPrice"`
	Quantity        int             `json:"quantity"`
	TotalPrice      decimal.Decimal `json:"totalPrice"`
	CalculatedTaxes CalculatedTaxes `json:"calculatedTaxes"`
	TaxRules        []TaxRule       `json:"taxRules"`
}

// Clone returns a deep copy.
func (p *CalculatedPrice) Clone() *CalculatedPrice {
	if p == nil {
		return nil
	}
	out := *p
	out.CalculatedTaxes = append(CalculatedTaxes(nil), p.CalculatedTaxes...)
	out.TaxRules = append([]TaxRule(nil), p.TaxRules...)
	return &out
}

// QuantityDefinition is the input of a quantity price calculation.
type QuantityDefinition struct {
	Price    decimal.Decimal
	TaxRules []TaxRule
	Quantity int
}

// WithSurcharge returns a copy of the definition with amount added to the unit price.
func (d QuantityDefinition) WithSurcharge(amount decimal.Decimal) QuantityDefinition {
	d.Price = d.Price.Add(amount)
	d.TaxRules = append([]TaxRule(nil), d.TaxRules...)
	return d
}
