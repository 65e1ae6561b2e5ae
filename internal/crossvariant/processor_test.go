package crossvariant_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-tierprice/internal/cart"
	"github.com/noah-isme/toko-tierprice/internal/catalog"
	"github.com/noah-isme/toko-tierprice/internal/crossvariant"
	"github.com/noah-isme/toko-tierprice/internal/pricing"
	"github.com/noah-isme/toko-tierprice/internal/salesctx"
	"github.com/noah-isme/toko-tierprice/internal/settings"
)

func intPtr(v int) *int { return &v }

func row(end *int, price string) catalog.PriceRow {
	return catalog.PriceRow{QuantityEnd: end, UnitPrice: decimal.RequireFromString(price), TaxRate: decimal.NewFromInt(19)}
}

// countingLookup records how often each reference was resolved.
type countingLookup struct {
	mu    sync.Mutex
	inner crossvariant.ProductLookup
	calls map[catalog.Reference]int
	err   error
}

func (c *countingLookup) Find(ctx context.Context, ref catalog.Reference, sc salesctx.Context) (*catalog.Product, error) {
	c.mu.Lock()
	if c.calls == nil {
		c.calls = map[catalog.Reference]int{}
	}
	c.calls[ref]++
	c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	return c.inner.Find(ctx, ref, sc)
}

func shirtRepository() *catalog.MemoryRepository {
	twoTiers := []catalog.PriceRow{row(intPtr(5), "10.0"), row(nil, "8.0")}
	return catalog.NewMemoryRepository(
		catalog.Record{ID: "shirt-red", ParentID: "shirt", ProductNumber: "SHIRT.1", Prices: twoTiers},
		catalog.Record{ID: "shirt-blue", ParentID: "shirt", ProductNumber: "SHIRT.2", Prices: twoTiers},
		catalog.Record{ID: "shirt-gold", ParentID: "shirt", ProductNumber: "SHIRT.3", Prices: []catalog.PriceRow{row(intPtr(5), "12.0"), row(nil, "9.0")}},
		catalog.Record{ID: "mug", ProductNumber: "MUG", Prices: []catalog.PriceRow{row(nil, "4.0")}},
		catalog.Record{ID: "cap-red", ParentID: "cap", ProductNumber: "CAP.1", MinPurchase: 1, Prices: []catalog.PriceRow{
			row(intPtr(5), "10"), row(intPtr(10), "8"), row(nil, "6"),
		}},
		catalog.Record{ID: "plain", ParentID: "plain-parent", ProductNumber: "PLAIN.1"},
	)
}

func lineItem(id, ref string, qty int) *cart.LineItem {
	return &cart.LineItem{ID: id, Type: cart.LineItemTypeProduct, ReferencedID: ref, Quantity: qty}
}

func newProcessor(lookup crossvariant.ProductLookup, cfg settings.Values) *crossvariant.Processor {
	return crossvariant.NewProcessor(crossvariant.Config{
		Products: lookup,
		Settings: settings.Static(cfg),
		Logger:   zerolog.Nop(),
	})
}

var storefront = salesctx.Context{SalesChannelID: "sc-1", TaxState: salesctx.TaxStateGross}

func process(p *crossvariant.Processor, c *cart.Cart, sc salesctx.Context) {
	p.Process(context.Background(), cart.NewDataCollection(), c.Clone(), c, sc, cart.Behavior{})
}

func TestProcessorRepricesFromCombinedQuantity(t *testing.T) {
	p := newProcessor(catalog.NewLookup(shirtRepository()), settings.Values{})
	previous := &pricing.CalculatedPrice{UnitPrice: decimal.NewFromInt(10), Quantity: 3, TotalPrice: decimal.NewFromInt(30)}
	subject := lineItem("a", "shirt-red", 3)
	subject.Price = previous
	sibling := lineItem("b", "shirt-blue", 4)
	c := &cart.Cart{LineItems: cart.LineItems{subject, sibling}}

	process(p, c, storefront)

	require.Equal(t, "8", subject.Price.UnitPrice.String())
	require.Equal(t, 3, subject.Price.Quantity)
	require.Equal(t, "24", subject.Price.TotalPrice.String())
	require.Equal(t, "8", sibling.Price.UnitPrice.String())
	require.Equal(t, "32", sibling.Price.TotalPrice.String())

	require.NotNil(t, sibling.Extensions.CrossVariantDiscount)
	require.Equal(t, 7, sibling.Extensions.CrossVariantDiscount.TotalQuantity)
	require.Equal(t, "30", sibling.Extensions.CrossVariantDiscount.PreviousPrice.TotalPrice.String())
	require.NotSame(t, previous, sibling.Extensions.CrossVariantDiscount.PreviousPrice)
}

func TestProcessorSingleItemUsesOwnQuantity(t *testing.T) {
	p := newProcessor(catalog.NewLookup(shirtRepository()), settings.Values{})
	item := lineItem("a", "shirt-red", 6)
	c := &cart.Cart{LineItems: cart.LineItems{item}}

	process(p, c, storefront)

	require.Equal(t, "8", item.Price.UnitPrice.String())
	require.Nil(t, item.Extensions.CrossVariantDiscount)
}

func TestProcessorGroupByPriceSeparatesTables(t *testing.T) {
	c := &cart.Cart{LineItems: cart.LineItems{
		lineItem("a", "shirt-red", 3),
		lineItem("b", "shirt-gold", 4),
	}}
	process(newProcessor(catalog.NewLookup(shirtRepository()), settings.Values{GroupByPrice: true}), c, storefront)
	require.Equal(t, "10", c.LineItems[0].Price.UnitPrice.String())
	require.Equal(t, "12", c.LineItems[1].Price.UnitPrice.String())
	require.Nil(t, c.LineItems[1].Extensions.CrossVariantDiscount)

	c = &cart.Cart{LineItems: cart.LineItems{
		lineItem("a", "shirt-red", 3),
		lineItem("b", "shirt-gold", 4),
	}}
	process(newProcessor(catalog.NewLookup(shirtRepository()), settings.Values{}), c, storefront)
	require.Equal(t, "8", c.LineItems[0].Price.UnitPrice.String())
	require.Equal(t, "9", c.LineItems[1].Price.UnitPrice.String())
}

func TestProcessorSkipsIneligibleItems(t *testing.T) {
	previous := &pricing.CalculatedPrice{UnitPrice: decimal.NewFromInt(99), Quantity: 3, TotalPrice: decimal.NewFromInt(297)}
	free := lineItem("free", "shirt-blue", 4)
	free.Extensions.FreeProduct = &cart.FreeProduct{IsFreeProduct: true}
	subject := lineItem("a", "shirt-red", 3)
	mug := lineItem("m", "mug", 10)
	mug.Price = previous
	missing := lineItem("x", "unknown", 1)
	missing.Price = previous
	noPrices := lineItem("p", "plain", 2)
	noPrices.Price = previous
	promo := &cart.LineItem{ID: "promo", Type: "promotion", ReferencedID: "shirt-blue", Quantity: 50}
	c := &cart.Cart{LineItems: cart.LineItems{subject, free, mug, missing, noPrices, promo}}

	process(newProcessor(catalog.NewLookup(shirtRepository()), settings.Values{}), c, storefront)

	require.Equal(t, "10", subject.Price.UnitPrice.String(), "free and non-product items must not count")
	require.Nil(t, free.Price)
	require.Same(t, previous, mug.Price)
	require.Same(t, previous, missing.Price)
	require.Same(t, previous, noPrices.Price)
	require.Nil(t, promo.Price)
}

func TestProcessorHonoursPatternLists(t *testing.T) {
	newCart := func() *cart.Cart {
		return &cart.Cart{LineItems: cart.LineItems{lineItem("a", "shirt-red", 3), lineItem("b", "shirt-blue", 4)}}
	}

	c := newCart()
	process(newProcessor(catalog.NewLookup(shirtRepository()), settings.Values{Blacklist: "SHIRT"}), c, storefront)
	require.Nil(t, c.LineItems[0].Price)
	require.Nil(t, c.LineItems[1].Price)

	c = newCart()
	process(newProcessor(catalog.NewLookup(shirtRepository()), settings.Values{Whitelist: "CAP*, SHI*"}), c, storefront)
	require.Equal(t, "8", c.LineItems[0].Price.UnitPrice.String())

	c = newCart()
	process(newProcessor(catalog.NewLookup(shirtRepository()), settings.Values{Whitelist: "CAP*"}), c, storefront)
	require.Nil(t, c.LineItems[0].Price)
}

func TestProcessorDesignPriceBlend(t *testing.T) {
	cases := []struct {
		name     string
		quantity int
		want     string
	}{
		{name: "first tier keeps full design price", quantity: 3, want: "15"},
		{name: "middle tier discounts design price", quantity: 7, want: "12"},
		{name: "unbounded last tier", quantity: 50, want: "9"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			item := lineItem("a", "cap-red", tc.quantity)
			item.Extensions.DesignPrice = &cart.DesignPrice{Price: decimal.NewFromInt(5)}
			c := &cart.Cart{LineItems: cart.LineItems{item}}

			process(newProcessor(catalog.NewLookup(shirtRepository()), settings.Values{}), c, storefront)

			require.Equal(t, tc.want, item.Price.UnitPrice.String())
			require.Equal(t, "5", item.Extensions.DesignPrice.Price.String(), "annotation must stay untouched")
		})
	}
}

func TestProcessorDesignPriceUsesAggregatedQuantity(t *testing.T) {
	repo := shirtRepository()
	repo.Put(catalog.Record{ID: "cap-blue", ParentID: "cap", ProductNumber: "CAP.2", MinPurchase: 2, Prices: []catalog.PriceRow{
		row(intPtr(5), "10"), row(intPtr(10), "8"), row(nil, "6"),
	}})
	designed := lineItem("a", "cap-red", 3)
	designed.Extensions.DesignPrice = &cart.DesignPrice{Price: decimal.RequireFromString("2.50")}
	plain := lineItem("b", "cap-blue", 4)
	c := &cart.Cart{LineItems: cart.LineItems{designed, plain}}

	process(newProcessor(catalog.NewLookup(repo), settings.Values{}), c, storefront)

	// 3 + 4 = 7 caps select the "up to 10" tier: 8.00, 20% below the first tier.
	// At its own quantity of 3 the designed cap would stay at 10.00 + 2.50.
	tierPrice := decimal.NewFromInt(8)
	blendedDesign := decimal.RequireFromString("2.50").Mul(decimal.RequireFromString("0.8"))
	require.Equal(t, "2", blendedDesign.String())
	require.True(t, tierPrice.Add(blendedDesign).Equal(designed.Price.UnitPrice), "got %s", designed.Price.UnitPrice)
	require.NotEqual(t, "12.5", designed.Price.UnitPrice.String())
	require.Equal(t, "30", designed.Price.TotalPrice.String())
	require.Equal(t, "8", plain.Price.UnitPrice.String())
}

func TestProcessorMemoisesLookupsPerCall(t *testing.T) {
	lookup := &countingLookup{inner: catalog.NewLookup(shirtRepository())}
	p := newProcessor(lookup, settings.Values{})
	c := &cart.Cart{LineItems: cart.LineItems{
		lineItem("a", "shirt-red", 1),
		lineItem("b", "shirt-blue", 1),
		lineItem("c", "shirt-gold", 1),
		lineItem("d", "unknown", 1),
	}}

	process(p, c, storefront)
	for ref, n := range lookup.calls {
		require.Equal(t, 1, n, "reference %+v", ref)
	}
	require.Len(t, lookup.calls, 4)

	process(p, c, storefront)
	require.Equal(t, 2, lookup.calls[catalog.Reference{ProductID: "shirt-red"}], "cache must not outlive a calculation")
}

func TestProcessorResolutionOrder(t *testing.T) {
	lookup := &countingLookup{inner: catalog.NewLookup(shirtRepository())}
	p := newProcessor(lookup, settings.Values{})

	preloaded := lineItem("a", "ref-a", 1)
	byNumber := lineItem("b", "ref-b", 1)
	byNumber.Payload.ProductNumber = "SHIRT.2"
	plain := lineItem("c", "shirt-gold", 1)

	data := cart.NewDataCollection()
	data.Set(cart.ProductDataKey("ref-a"), &catalog.Product{ID: "shirt-red"})
	c := &cart.Cart{LineItems: cart.LineItems{preloaded, byNumber, plain}}
	p.Process(context.Background(), data, c.Clone(), c, storefront, cart.Behavior{})

	require.Equal(t, 1, lookup.calls[catalog.Reference{ProductID: "shirt-red"}])
	require.Equal(t, 1, lookup.calls[catalog.Reference{ProductNumber: "SHIRT.2"}])
	require.Equal(t, 1, lookup.calls[catalog.Reference{ProductID: "shirt-gold"}])
	require.NotNil(t, preloaded.Price)
	require.NotNil(t, byNumber.Price)
}

func TestProcessorLookupErrorsLeavePricesUntouched(t *testing.T) {
	lookup := &countingLookup{inner: catalog.NewLookup(shirtRepository()), err: errors.New("db down")}
	item := lineItem("a", "shirt-red", 3)
	c := &cart.Cart{LineItems: cart.LineItems{item}}
	process(newProcessor(lookup, settings.Values{}), c, storefront)
	require.Nil(t, item.Price)
}

type failingSettings struct{}

func (failingSettings) Get(context.Context, string, string) (settings.Values, error) {
	return settings.Values{}, errors.New("redis down")
}

func TestProcessorSkipsPassWithoutSettings(t *testing.T) {
	lookup := &countingLookup{inner: catalog.NewLookup(shirtRepository())}
	p := crossvariant.NewProcessor(crossvariant.Config{Products: lookup, Settings: failingSettings{}, Logger: zerolog.Nop()})
	item := lineItem("a", "shirt-red", 3)
	c := &cart.Cart{LineItems: cart.LineItems{item}}

	process(p, c, storefront)
	require.Nil(t, item.Price)
	require.Empty(t, lookup.calls)
}

func TestProcessorAdministrativeLatch(t *testing.T) {
	var adminCalls int
	classifier := salesctx.ClassifierFunc(func(sc salesctx.Context) bool {
		adminCalls++
		return sc.Source.Kind == salesctx.SourceAdminAPI
	})
	p := crossvariant.NewProcessor(crossvariant.Config{
		Products:   catalog.NewLookup(shirtRepository()),
		Settings:   settings.Static{},
		Classifier: classifier,
		Logger:     zerolog.Nop(),
	})

	item := lineItem("a", "shirt-red", 6)
	process(p, &cart.Cart{LineItems: cart.LineItems{item}}, storefront)
	require.NotNil(t, item.Price)
	require.False(t, p.Disabled())

	admin := storefront
	admin.Source = salesctx.Source{Kind: salesctx.SourceAdminAPI}
	manual := &pricing.CalculatedPrice{UnitPrice: decimal.NewFromInt(1), Quantity: 6, TotalPrice: decimal.NewFromInt(6)}
	adminItem := lineItem("a", "shirt-red", 6)
	adminItem.Price = manual
	process(p, &cart.Cart{LineItems: cart.LineItems{adminItem}}, admin)
	require.Same(t, manual, adminItem.Price)
	require.True(t, p.Disabled())

	later := lineItem("a", "shirt-red", 6)
	process(p, &cart.Cart{LineItems: cart.LineItems{later}}, storefront)
	require.Nil(t, later.Price, "processor must stay disabled after an administrative context")
	require.Equal(t, 2, adminCalls, "classifier is not consulted once latched")
}

func TestProcessorLatchIsConcurrencySafe(t *testing.T) {
	p := crossvariant.NewProcessor(crossvariant.Config{
		Products: catalog.NewLookup(shirtRepository()),
		Settings: settings.Static{},
		Logger:   zerolog.Nop(),
	})
	admin := storefront
	admin.Source = salesctx.Source{Kind: salesctx.SourceAdminAPI}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sc := storefront
			if i%4 == 0 {
				sc = admin
			}
			c := &cart.Cart{LineItems: cart.LineItems{lineItem("a", "shirt-red", 3), lineItem("b", "shirt-blue", 4)}}
			process(p, c, sc)
		}(i)
	}
	wg.Wait()
	require.True(t, p.Disabled())
}
