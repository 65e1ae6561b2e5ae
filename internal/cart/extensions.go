package cart

import (
	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-tierprice/internal/pricing"
)

// FreeProduct marks a gift line item added by a promotion.
type FreeProduct struct {
	IsFreeProduct bool `json:"isFreeProduct"`
}

// DesignPrice carries the surcharge reported by the product designer.
type DesignPrice struct {
	Price decimal.Decimal `json:"price"`
}

// CrossVariantDiscount records the aggregated quantity a sibling contributed to
// and the price the repriced item had before aggregation.
type CrossVariantDiscount struct {
	TotalQuantity int                      `json:"totalQuantity"`
	PreviousPrice *pricing.CalculatedPrice `json:"previousPrice,omitempty"`
}

// Extensions is the closed set of annotations a line item can carry.
type Extensions struct {
	FreeProduct          *FreeProduct          `json:"freeProduct,omitempty"`
	DesignPrice          *DesignPrice          `json:"designPrice,omitempty"`
	CrossVariantDiscount *CrossVariantDiscount `json:"crossVariantDiscount,omitempty"`
}

// IsFree reports whether the item is a promotional gift.
func (e Extensions) IsFree() bool {
	return e.FreeProduct != nil && e.FreeProduct.IsFreeProduct
}

// Clone deep-copies the annotations.
func (e Extensions) Clone() Extensions {
	out := Extensions{}
	if e.FreeProduct != nil {
		fp := *e.FreeProduct
		out.FreeProduct = &fp
	}
	if e.DesignPrice != nil {
		dp := *e.DesignPrice
		out.DesignPrice = &dp
	}
	if e.CrossVariantDiscount != nil {
		cv := *e.CrossVariantDiscount
		cv.PreviousPrice = e.CrossVariantDiscount.PreviousPrice.Clone()
		out.CrossVariantDiscount = &cv
	}
	return out
}
