package cart

import (
	"context"

	"github.com/noah-isme/toko-tierprice/internal/salesctx"
)

// Behavior carries host flags for a calculation run.
type Behavior struct {
	// Recalculation is set when the host recalculates an existing order.
	Recalculation bool `json:"recalculation"`
}

// DataCollection is scratch storage shared by all processors of one calculation.
type DataCollection struct {
	values map[string]any
}

// NewDataCollection returns an empty collection.
func NewDataCollection() *DataCollection {
	return &DataCollection{values: map[string]any{}}
}

// Set stores value under key.
func (d *DataCollection) Set(key string, value any) {
	if d.values == nil {
		d.values = map[string]any{}
	}
	d.values[key] = value
}

// Get returns the value stored under key.
func (d *DataCollection) Get(key string) (any, bool) {
	if d == nil || d.values == nil {
		return nil, false
	}
	v, ok := d.values[key]
	return v, ok
}

// ProductDataKey is the key under which hosts preload the product of a line item reference.
func ProductDataKey(referenceID string) string {
	return "product-" + referenceID
}

// Processor mutates the cart being calculated. Implementations must not return
// errors to the host; problems are skipped or logged.
type Processor interface {
	Process(ctx context.Context, data *DataCollection, original, toCalculate *Cart, sc salesctx.Context, behavior Behavior)
}

// Validator inspects the calculated cart before checkout and reports problems via errs.
type Validator interface {
	Validate(ctx context.Context, c *Cart, errs *ErrorCollection, sc salesctx.Context)
}
