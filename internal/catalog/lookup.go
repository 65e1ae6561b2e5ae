package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/noah-isme/toko-tierprice/internal/pricing"
	"github.com/noah-isme/toko-tierprice/internal/salesctx"
)

// Reference identifies a product the way a line item does.
type Reference struct {
	ProductID     string
	ProductNumber string
}

// Lookup resolves products and derives their calculated tier tables for a sales channel context.
type Lookup struct {
	Repo       Repository
	Calculator pricing.Calculator
}

// NewLookup constructs a Lookup over repo.
func NewLookup(repo Repository) *Lookup {
	return &Lookup{Repo: repo}
}

// Find loads the product identified by ref. A product id takes precedence over a product number.
func (l *Lookup) Find(ctx context.Context, ref Reference, sc salesctx.Context) (*Product, error) {
	if l == nil || l.Repo == nil {
		return nil, errors.New("catalog lookup not configured")
	}
	var (
		rec *Record
		err error
	)
	switch {
	case ref.ProductID != "":
		rec, err = l.Repo.FindByID(ctx, ref.ProductID, sc.RuleIDs)
	case ref.ProductNumber != "":
		rec, err = l.Repo.FindByNumber(ctx, ref.ProductNumber, sc.RuleIDs)
	default:
		return nil, ErrNotFound
	}
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("find product: %w", err)
	}
	return l.build(rec, sc), nil
}

func (l *Lookup) build(rec *Record, sc salesctx.Context) *Product {
	p := &Product{
		ID:            rec.ID,
		ParentID:      rec.ParentID,
		ProductNumber: rec.ProductNumber,
		MinPurchase:   rec.MinPurchase,
		GroupMinimum:  rec.GroupMinimum,
	}
	if p.MinPurchase < 1 {
		p.MinPurchase = 1
	}
	if len(rec.Prices) == 0 {
		return p
	}
	p.Prices = make(pricing.TierTable, 0, len(rec.Prices))
	for _, row := range rec.Prices {
		rules := []pricing.TaxRule{{Rate: row.TaxRate, Percentage: hundredPercent}}
		unit := l.Calculator.Calculate(pricing.QuantityDefinition{Price: row.UnitPrice, TaxRules: rules, Quantity: 1}, sc)
		qty := 0
		if row.QuantityEnd != nil {
			qty = *row.QuantityEnd
		}
		p.Prices = append(p.Prices, pricing.PriceTier{
			Quantity:        qty,
			UnitPrice:       unit.UnitPrice,
			TaxRules:        rules,
			CalculatedTaxes: unit.CalculatedTaxes,
		})
	}
	return p
}
