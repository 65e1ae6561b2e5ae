package catalog

import "github.com/shopspring/decimal"

// Demo product identifiers.
const (
	DemoShirtID     = "0b7c3c52-5a0d-4d6e-9a57-7c1f0e1d2a10"
	DemoShirtRedID  = "0b7c3c52-5a0d-4d6e-9a57-7c1f0e1d2a11"
	DemoShirtBlueID = "0b7c3c52-5a0d-4d6e-9a57-7c1f0e1d2a12"
	DemoMugID       = "6f1e2d3c-4b5a-4697-8877-665544332211"
)

// DemoRecords is a small tiered catalog: a shirt with two variants sharing the
// parent's table, and a mug without variants sold in groups of at least 12.
func DemoRecords() []Record {
	tier := func(end int, price string) PriceRow {
		e := end
		return PriceRow{QuantityEnd: &e, UnitPrice: decimal.RequireFromString(price), TaxRate: decimal.NewFromInt(19)}
	}
	last := func(price string) PriceRow {
		return PriceRow{UnitPrice: decimal.RequireFromString(price), TaxRate: decimal.NewFromInt(19)}
	}
	return []Record{
		{ID: DemoShirtID, ProductNumber: "SW10000", MinPurchase: 1, Prices: []PriceRow{
			tier(9, "11.90"), tier(49, "9.52"), last("7.14"),
		}},
		{ID: DemoShirtRedID, ParentID: DemoShirtID, ProductNumber: "SW10000.1", MinPurchase: 1},
		{ID: DemoShirtBlueID, ParentID: DemoShirtID, ProductNumber: "SW10000.2", MinPurchase: 1},
		{ID: DemoMugID, ProductNumber: "SW20000", MinPurchase: 6, GroupMinimum: 12, Prices: []PriceRow{
			tier(23, "4.76"), last("3.57"),
		}},
	}
}
