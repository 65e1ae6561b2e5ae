package crossvariant_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-tierprice/internal/cart"
	"github.com/noah-isme/toko-tierprice/internal/catalog"
	"github.com/noah-isme/toko-tierprice/internal/crossvariant"
	"github.com/noah-isme/toko-tierprice/internal/settings"
)

func TestNormalizeProductNumber(t *testing.T) {
	require.Equal(t, "A100", crossvariant.NormalizeProductNumber("A100.2"))
	require.Equal(t, "A100.12", crossvariant.NormalizeProductNumber("A100.12"))
	require.Equal(t, "A100.1", crossvariant.NormalizeProductNumber("A100.1.3"))
	require.Equal(t, "A100", crossvariant.NormalizeProductNumber("A100"))
	require.Equal(t, ".5", crossvariant.NormalizeProductNumber(".5.5"))
}

func TestEligible(t *testing.T) {
	item := &cart.LineItem{ID: "1", Type: cart.LineItemTypeProduct}
	variant := func(number string) *catalog.Product {
		return &catalog.Product{ID: "v", ParentID: "p", ProductNumber: number}
	}

	require.False(t, crossvariant.Eligible(item, &catalog.Product{ID: "p", ProductNumber: "A100"}, settings.Values{}))
	require.True(t, crossvariant.Eligible(item, variant("A100"), settings.Values{}))

	free := &cart.LineItem{ID: "2", Extensions: cart.Extensions{FreeProduct: &cart.FreeProduct{IsFreeProduct: true}}}
	require.False(t, crossvariant.Eligible(free, variant("A100"), settings.Values{}))
	notFree := &cart.LineItem{ID: "3", Extensions: cart.Extensions{FreeProduct: &cart.FreeProduct{}}}
	require.True(t, crossvariant.Eligible(notFree, variant("A100"), settings.Values{}))

	require.False(t, crossvariant.Eligible(item, variant("B100"), settings.Values{Whitelist: "A*"}))
	require.False(t, crossvariant.Eligible(item, variant("B100"), settings.Values{Whitelist: "*", Blacklist: "B*"}))
	require.True(t, crossvariant.Eligible(item, variant("A100.2"), settings.Values{Whitelist: "A100"}))
	require.False(t, crossvariant.Eligible(item, variant("A100.2"), settings.Values{Blacklist: "X*, A100"}))
	require.True(t, crossvariant.Eligible(item, variant("A100"), settings.Values{Whitelist: "   ", Blacklist: "  "}))
}
