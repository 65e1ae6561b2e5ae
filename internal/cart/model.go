package cart

import (
	"github.com/noah-isme/toko-tierprice/internal/pricing"
)

// LineItemTypeProduct marks line items that reference a purchasable product.
const LineItemTypeProduct = "product"

// Payload holds the product data snapshotted onto a line item.
type Payload struct {
	ParentID      string         `json:"parentId,omitempty"`
	ProductNumber string         `json:"productNumber,omitempty"`
	CustomFields  map[string]any `json:"customFields,omitempty"`
}

// LineItem is one entry of a cart. Price holds the calculated price for the full quantity.
type LineItem struct {
	ID           string                   `json:"id"`
	Type         string                   `json:"type"`
	ReferencedID string                   `json:"referencedId"`
	Label        string                   `json:"label,omitempty"`
	Quantity     int                      `json:"quantity"`
	Price        *pricing.CalculatedPrice `json:"price,omitempty"`
	Payload      Payload                  `json:"payload"`
	Extensions   Extensions               `json:"extensions"`
	Children     LineItems                `json:"children,omitempty"`
}

// Clone returns a deep copy of the line item and its children.
func (li *LineItem) Clone() *LineItem {
	if li == nil {
		return nil
	}
	out := *li
	out.Price = li.Price.Clone()
	if li.Payload.CustomFields != nil {
		out.Payload.CustomFields = make(map[string]any, len(li.Payload.CustomFields))
		for k, v := range li.Payload.CustomFields {
			out.Payload.CustomFields[k] = v
		}
	}
	out.Extensions = li.Extensions.Clone()
	out.Children = li.Children.Clone()
	return &out
}

// LineItems is an ordered line item collection.
type LineItems []*LineItem

// FilterType returns the items of the given type, preserving order.
func (c LineItems) FilterType(kind string) LineItems {
	out := make(LineItems, 0, len(c))
	for _, li := range c {
		if li != nil && li.Type == kind {
			out = append(out, li)
		}
	}
	return out
}

// Flat returns every item including nested children, depth first.
func (c LineItems) Flat() LineItems {
	out := make(LineItems, 0, len(c))
	for _, li := range c {
		if li == nil {
			continue
		}
		out = append(out, li)
		out = append(out, li.Children.Flat()...)
	}
	return out
}

// RemoveFunc drops every item, at any depth, for which fn returns true and reports how many were removed.
func (c LineItems) RemoveFunc(fn func(*LineItem) bool) (LineItems, int) {
	out := c[:0:0]
	removed := 0
	for _, li := range c {
		if li == nil {
			continue
		}
		if fn(li) {
			removed++
			continue
		}
		var n int
		li.Children, n = li.Children.RemoveFunc(fn)
		removed += n
		out = append(out, li)
	}
	return out, removed
}

// Clone deep-copies the collection.
func (c LineItems) Clone() LineItems {
	if c == nil {
		return nil
	}
	out := make(LineItems, len(c))
	for i, li := range c {
		out[i] = li.Clone()
	}
	return out
}

// Cart is a shopping cart being calculated.
type Cart struct {
	Token     string          `json:"token"`
	LineItems LineItems       `json:"lineItems"`
	Summary   pricing.Summary `json:"price"`
}

// Clone deep-copies the cart.
func (c *Cart) Clone() *Cart {
	if c == nil {
		return nil
	}
	out := *c
	out.LineItems = c.LineItems.Clone()
	return &out
}

// Prices collects the calculated prices of the top-level line items.
func (c *Cart) Prices() []*pricing.CalculatedPrice {
	out := make([]*pricing.CalculatedPrice, 0, len(c.LineItems))
	for _, li := range c.LineItems {
		if li != nil {
			out = append(out, li.Price)
		}
	}
	return out
}
