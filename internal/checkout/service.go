package checkout

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/noah-isme/toko-tierprice/internal/cart"
	"github.com/noah-isme/toko-tierprice/internal/pricing"
	"github.com/noah-isme/toko-tierprice/internal/salesctx"
)

// Service runs the cart calculation pipeline: processors, summary, validators.
type Service struct {
	Processors []cart.Processor
	Validators []cart.Validator
	Logger     zerolog.Logger
}

// Calculate prices a copy of original for sc. The original cart is never mutated.
// Validators run after pricing and may remove line items, in which case the
// summary is recomputed.
func (s *Service) Calculate(ctx context.Context, original *cart.Cart, sc salesctx.Context, behavior cart.Behavior) (*cart.Cart, cart.ErrorCollection) {
	ctx, span := otel.Tracer("checkout.Service").Start(ctx, "Service.Calculate")
	defer span.End()
	started := time.Now()

	var errs cart.ErrorCollection
	if original == nil {
		original = &cart.Cart{}
	}
	toCalculate := original.Clone()
	if toCalculate.Token == "" {
		toCalculate.Token = uuid.NewString()
	}
	assignIDs(toCalculate.LineItems)

	data := cart.NewDataCollection()
	for _, p := range s.Processors {
		p.Process(ctx, data, original, toCalculate, sc, behavior)
	}
	toCalculate.Summary = pricing.Summarize(toCalculate.Prices(), sc.TaxState)

	items := len(toCalculate.LineItems.Flat())
	for _, v := range s.Validators {
		v.Validate(ctx, toCalculate, &errs, sc)
	}
	if remaining := len(toCalculate.LineItems.Flat()); remaining != items {
		toCalculate.Summary = pricing.Summarize(toCalculate.Prices(), sc.TaxState)
	}

	span.SetAttributes(
		attribute.String("sales_channel.id", sc.SalesChannelID),
		attribute.Int("cart.line_items", len(toCalculate.LineItems)),
		attribute.Int("cart.errors", errs.Len()),
	)
	s.Logger.Debug().
		Str("token", toCalculate.Token).
		Str("sales_channel_id", sc.SalesChannelID).
		Int("line_items", len(toCalculate.LineItems)).
		Int("errors", errs.Len()).
		Dur("duration", time.Since(started)).
		Msg("cart calculated")
	return toCalculate, errs
}

func assignIDs(items cart.LineItems) {
	for _, li := range items {
		if li == nil {
			continue
		}
		if li.ID == "" {
			li.ID = uuid.NewString()
		}
		assignIDs(li.Children)
	}
}
