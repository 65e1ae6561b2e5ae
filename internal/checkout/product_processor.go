package checkout

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-tierprice/internal/cart"
	"github.com/noah-isme/toko-tierprice/internal/catalog"
	"github.com/noah-isme/toko-tierprice/internal/crossvariant"
	"github.com/noah-isme/toko-tierprice/internal/grouppurchase"
	"github.com/noah-isme/toko-tierprice/internal/pricing"
	"github.com/noah-isme/toko-tierprice/internal/salesctx"
)

// ProductProcessor prices product line items at their own quantity and preloads
// the resolved products into the data collection for later processors.
// The catalog owns the group data on the payload: parent id, product number and
// group purchase minimum are overwritten from the resolved product, and cleared
// when the product cannot be resolved.
type ProductProcessor struct {
	Products   crossvariant.ProductLookup
	Calculator crossvariant.PriceCalculator
	Logger     zerolog.Logger
}

// Process implements cart.Processor.
func (p *ProductProcessor) Process(ctx context.Context, data *cart.DataCollection, _, toCalculate *cart.Cart, sc salesctx.Context, _ cart.Behavior) {
	if p.Products == nil || toCalculate == nil {
		return
	}
	calc := p.Calculator
	if calc == nil {
		calc = pricing.Calculator{}
	}
	for _, li := range toCalculate.LineItems.Flat().FilterType(cart.LineItemTypeProduct) {
		product, err := p.Products.Find(ctx, catalog.Reference{ProductID: li.ReferencedID, ProductNumber: li.Payload.ProductNumber}, sc)
		if err != nil {
			if !errors.Is(err, catalog.ErrNotFound) {
				p.Logger.Warn().Err(err).Str("line_item_id", li.ID).Msg("product lookup failed")
			}
			li.Payload.ParentID = ""
			delete(li.Payload.CustomFields, grouppurchase.MinimumField)
			continue
		}
		data.Set(cart.ProductDataKey(li.ReferencedID), product)
		applyProductPayload(li, product)

		tier, ok := product.Prices.Select(li.Quantity)
		if !ok {
			continue
		}
		def := pricing.QuantityDefinition{Price: tier.UnitPrice, TaxRules: tier.TaxRules, Quantity: li.Quantity}
		if li.Extensions.IsFree() {
			def.Price = decimal.Zero
		} else if dp := li.Extensions.DesignPrice; dp != nil {
			def = def.WithSurcharge(dp.Price)
		}
		price := calc.Calculate(def, sc)
		li.Price = &price
	}
}

func applyProductPayload(li *cart.LineItem, product *catalog.Product) {
	li.Payload.ParentID = product.ParentID
	li.Payload.ProductNumber = product.ProductNumber
	if li.Payload.CustomFields == nil {
		li.Payload.CustomFields = make(map[string]any, 1)
	}
	li.Payload.CustomFields[grouppurchase.MinimumField] = product.GroupMinimum
}
