package crossvariant

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/noah-isme/toko-tierprice/internal/cart"
	"github.com/noah-isme/toko-tierprice/internal/catalog"
	"github.com/noah-isme/toko-tierprice/internal/obs"
	"github.com/noah-isme/toko-tierprice/internal/pricing"
	"github.com/noah-isme/toko-tierprice/internal/salesctx"
	"github.com/noah-isme/toko-tierprice/internal/settings"
)

// DefaultNamespace is the settings namespace read when none is configured.
const DefaultNamespace = "CrossVariantPricing.config"

var hundred = decimal.NewFromInt(100)

// ProductLookup resolves the product behind a line item for a pricing context.
type ProductLookup interface {
	Find(ctx context.Context, ref catalog.Reference, sc salesctx.Context) (*catalog.Product, error)
}

// PriceCalculator turns a quantity definition into a calculated price.
type PriceCalculator interface {
	Calculate(def pricing.QuantityDefinition, sc salesctx.Context) pricing.CalculatedPrice
}

// Config groups Processor dependencies.
type Config struct {
	Products   ProductLookup
	Settings   settings.Provider
	Calculator PriceCalculator
	Classifier salesctx.Classifier
	Namespace  string
	Logger     zerolog.Logger
}

// Processor reprices variant line items from the tier table of their product
// using the combined quantity of all sibling variants in the cart.
//
// Once a calculation runs in an administrative context the processor stays
// disabled for the lifetime of the process so manually entered order prices
// are never overwritten.
type Processor struct {
	products   ProductLookup
	settings   settings.Provider
	calculator PriceCalculator
	classifier salesctx.Classifier
	namespace  string
	logger     zerolog.Logger

	disabled atomic.Bool
}

// NewProcessor constructs a Processor.
func NewProcessor(cfg Config) *Processor {
	p := &Processor{
		products:   cfg.Products,
		settings:   cfg.Settings,
		calculator: cfg.Calculator,
		classifier: cfg.Classifier,
		namespace:  cfg.Namespace,
		logger:     cfg.Logger.With().Str("component", "cross_variant").Logger(),
	}
	if p.calculator == nil {
		p.calculator = pricing.Calculator{}
	}
	if p.classifier == nil {
		p.classifier = salesctx.SourceClassifier{}
	}
	if p.namespace == "" {
		p.namespace = DefaultNamespace
	}
	return p
}

// Disabled reports whether an administrative context has switched the processor off.
func (p *Processor) Disabled() bool {
	return p.disabled.Load()
}

// Process implements cart.Processor.
func (p *Processor) Process(ctx context.Context, data *cart.DataCollection, _, toCalculate *cart.Cart, sc salesctx.Context, _ cart.Behavior) {
	if p.checkDisabled(sc) || toCalculate == nil {
		return
	}
	ctx, span := otel.Tracer("crossvariant.Processor").Start(ctx, "Processor.Process")
	defer span.End()

	if p.settings == nil || p.products == nil {
		p.logger.Warn().Msg("cross variant processor not configured")
		return
	}
	cfg, err := p.settings.Get(ctx, p.namespace, sc.SalesChannelID)
	if err != nil {
		span.RecordError(err)
		p.logger.Warn().Err(err).Str("sales_channel_id", sc.SalesChannelID).Msg("settings unavailable, skipping cross variant pricing")
		return
	}
	cfg = cfg.Normalize()

	items := toCalculate.LineItems.FilterType(cart.LineItemTypeProduct)
	res := newResolver(p, data, sc)
	repriced := 0

	for _, subject := range items {
		product := res.product(ctx, subject)
		if product == nil {
			p.skip(subject, "product_not_found")
			continue
		}
		if reason, skip := ineligibleReason(subject, product, cfg); skip {
			p.skip(subject, reason)
			continue
		}
		if len(product.Prices) == 0 {
			p.skip(subject, "no_prices")
			continue
		}

		group := p.collect(ctx, res, subject, product, items, cfg)

		tier, ok := product.Prices.Select(group.TotalQuantity)
		if !ok {
			p.skip(subject, "no_tier")
			continue
		}
		def := pricing.QuantityDefinition{
			Price:    tier.UnitPrice,
			TaxRules: tier.TaxRules,
			Quantity: subject.Quantity,
		}
		if dp := subject.Extensions.DesignPrice; dp != nil {
			def = def.WithSurcharge(blendDesignPrice(dp.Price, product, group.TotalQuantity))
		}

		price := p.calculator.Calculate(def, sc)
		previous := subject.Price.Clone()
		subject.Price = &price

		for _, sibling := range group.Siblings {
			sibling.Extensions.CrossVariantDiscount = &cart.CrossVariantDiscount{
				TotalQuantity: group.TotalQuantity,
				PreviousPrice: previous.Clone(),
			}
		}

		repriced++
		if obs.CrossVariantRepricedTotal != nil {
			obs.CrossVariantRepricedTotal.Inc()
		}
		if obs.CrossVariantGroupSize != nil {
			obs.CrossVariantGroupSize.Observe(float64(group.TotalQuantity))
		}
		p.logger.Debug().
			Str("line_item_id", subject.ID).
			Int("total_quantity", group.TotalQuantity).
			Int("siblings", len(group.Siblings)).
			Str("unit_price", price.UnitPrice.String()).
			Msg("line item repriced")
	}

	span.SetAttributes(
		attribute.Int("cart.line_items", len(items)),
		attribute.Int("cross_variant.repriced", repriced),
		attribute.Bool("cross_variant.group_by_price", cfg.GroupByPrice),
	)
}

// group is the aggregation of one subject with its sibling variants for a single pass.
type group struct {
	Subject       *cart.LineItem
	Siblings      []*cart.LineItem
	TotalQuantity int
}

func (p *Processor) collect(ctx context.Context, res *resolver, subject *cart.LineItem, product *catalog.Product, items cart.LineItems, cfg settings.Values) group {
	g := group{Subject: subject, TotalQuantity: subject.Quantity}
	var signature string
	if cfg.GroupByPrice {
		signature = res.signature(product)
	}
	for _, other := range items {
		if other == subject || other.ID == subject.ID {
			continue
		}
		sibling := res.product(ctx, other)
		if sibling == nil || sibling.ParentID != product.ParentID {
			continue
		}
		if !Eligible(other, sibling, cfg) {
			continue
		}
		if cfg.GroupByPrice && res.signature(sibling) != signature {
			continue
		}
		g.Siblings = append(g.Siblings, other)
		g.TotalQuantity += other.Quantity
	}
	return g
}

// blendDesignPrice discounts the design price by the savings of the tier that
// contains total. The first tier starts at the product's minimum purchase and
// the last tier has no upper bound.
func blendDesignPrice(designPrice decimal.Decimal, product *catalog.Product, total int) decimal.Decimal {
	tiers := product.Prices
	base := tiers[0].UnitPrice
	if !base.IsPositive() {
		return designPrice
	}
	minQuantity := product.MinPurchase
	for i, tier := range tiers {
		_, upper, unbounded := tiers.Bounds(i)
		if total >= minQuantity && (unbounded || total <= upper) {
			percentage := base.Sub(tier.UnitPrice).Div(base).Mul(hundred)
			if percentage.IsPositive() {
				designPrice = designPrice.Sub(designPrice.Mul(percentage).Div(hundred))
			}
		}
		if unbounded {
			break
		}
		minQuantity = upper + 1
	}
	return designPrice
}

func (p *Processor) checkDisabled(sc salesctx.Context) bool {
	if p.disabled.Load() {
		return true
	}
	if !p.classifier.IsAdministrative(sc) {
		return false
	}
	if p.disabled.CompareAndSwap(false, true) {
		if obs.CrossVariantDisabled != nil {
			obs.CrossVariantDisabled.Set(1)
		}
		p.logger.Info().
			Str("sales_channel_id", sc.SalesChannelID).
			Str("source", string(sc.Source.Kind)).
			Msg("administrative context detected, cross variant pricing disabled")
	}
	return true
}

func (p *Processor) skip(item *cart.LineItem, reason string) {
	if obs.CrossVariantSkippedTotal != nil {
		obs.CrossVariantSkippedTotal.WithLabelValues(reason).Inc()
	}
	p.logger.Debug().Str("line_item_id", item.ID).Str("reason", reason).Msg("line item skipped")
}

// productKey identifies a resolved product within one calculation.
type productKey struct {
	Reference   string
	ContextHash string
}

// resolver memoises product lookups for the duration of one Process call.
type resolver struct {
	p          *Processor
	data       *cart.DataCollection
	sc         salesctx.Context
	hash       string
	products   map[productKey]*catalog.Product
	signatures map[*catalog.Product]string
}

func newResolver(p *Processor, data *cart.DataCollection, sc salesctx.Context) *resolver {
	return &resolver{
		p:          p,
		data:       data,
		sc:         sc,
		hash:       sc.Hash(),
		products:   make(map[productKey]*catalog.Product),
		signatures: make(map[*catalog.Product]string),
	}
}

func (r *resolver) product(ctx context.Context, item *cart.LineItem) *catalog.Product {
	key := productKey{Reference: item.ReferencedID, ContextHash: r.hash}
	if product, ok := r.products[key]; ok {
		return product
	}
	product := r.load(ctx, item)
	r.products[key] = product
	return product
}

func (r *resolver) load(ctx context.Context, item *cart.LineItem) *catalog.Product {
	ref := catalog.Reference{ProductID: item.ReferencedID}
	if v, ok := r.data.Get(cart.ProductDataKey(item.ReferencedID)); ok {
		if base, ok := v.(*catalog.Product); ok && base != nil && base.ID != "" {
			ref = catalog.Reference{ProductID: base.ID}
		}
	} else if number := item.Payload.ProductNumber; number != "" {
		ref = catalog.Reference{ProductNumber: number}
	}

	product, err := r.p.products.Find(ctx, ref, r.sc)
	if err != nil {
		if !errors.Is(err, catalog.ErrNotFound) {
			r.p.logger.Warn().Err(err).Str("referenced_id", item.ReferencedID).Msg("product lookup failed")
		}
		return nil
	}
	return product
}

func (r *resolver) signature(product *catalog.Product) string {
	if sig, ok := r.signatures[product]; ok {
		return sig
	}
	sig := product.Prices.Signature()
	r.signatures[product] = sig
	return sig
}
