package storefront_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-tierprice/internal/storefront"
)

func d(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func TestParseDesignerMessage(t *testing.T) {
	price, err := storefront.ParseDesignerMessage(`{"isProductDesigner":true,"event":"finish","params":{"price":4.5}}`)
	require.NoError(t, err)
	require.Equal(t, "4.5", price.String())

	_, err = storefront.ParseDesignerMessage(`{"isProductDesigner":true,"event":"progress","params":{"price":4.5}}`)
	require.ErrorIs(t, err, storefront.ErrNotDesignerFinish)

	_, err = storefront.ParseDesignerMessage(`{"isProductDesigner":false,"event":"finish"}`)
	require.ErrorIs(t, err, storefront.ErrNotDesignerFinish)

	_, err = storefront.ParseDesignerMessage(`not json`)
	require.Error(t, err)
}

func TestExtractPrice(t *testing.T) {
	require.Equal(t, "21,00", storefront.ExtractPrice("21,00 €*"))
	require.Equal(t, "21.00", storefront.ExtractPrice("from 21.00 EUR"))
	require.Equal(t, "21.00", storefront.ExtractPrice("€21.00"))
	require.Equal(t, "0.00", storefront.ExtractPrice("€21.00*"))
	require.Equal(t, "21.00", storefront.ExtractPrice("$21.00"))
	require.Equal(t, "0.00", storefront.ExtractPrice("free"))
}

func TestFormatPrice(t *testing.T) {
	require.Equal(t, ",", storefront.DecimalSeparator("21,00 €"))
	require.Equal(t, ".", storefront.DecimalSeparator("no separator"))
	require.Equal(t, "25,50", storefront.FormatPrice(d("25.5"), "21,00 €"))
	require.Equal(t, "7.00", storefront.FormatPrice(d("7"), "$1.00"))
}

func TestApplyToLabel(t *testing.T) {
	require.Equal(t, "25,50 €*", storefront.ApplyToLabel("21,00&nbsp;€*", d("21"), d("4.5")))
	require.Equal(t, "€25.50", storefront.ApplyToLabel("€21.00", d("21"), d("4.5")))
}

func TestApplyToTierRows(t *testing.T) {
	five, ten, eleven := 5, 10, 11
	rows := []storefront.TierRow{
		{From: 1, To: &five, Content: "10,00 €"},
		{From: 6, To: &ten, Content: "8,00 €"},
		{From: 11, Content: "6,00 €"},
		{From: 20, To: &eleven, Content: "5,00 €"},
	}
	advanced := []storefront.AdvancedPrice{
		{From: 1, To: &five, UnitPrice: d("10"), SavingsPercent: decimal.Zero},
		{From: 6, To: &ten, UnitPrice: d("8"), SavingsPercent: d("20")},
		{From: 11, UnitPrice: d("6"), SavingsPercent: d("40")},
	}

	out := storefront.ApplyToTierRows(rows, advanced, d("5"))

	require.Equal(t, "10,00 €", out[0].Content, "rows without savings stay unchanged")
	require.Equal(t, "12,00 €", out[1].Content)
	require.Equal(t, "12,00", out[1].Price)
	require.Equal(t, "9,00 €", out[2].Content)
	require.Equal(t, "5,00 €", out[3].Content, "rows without an advanced price stay unchanged")
	require.Equal(t, "8,00 €", rows[1].Content, "input must not be mutated")
}
