package storefront

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrNotDesignerFinish is returned for messages that are not a finished product designer session.
var ErrNotDesignerFinish = errors.New("storefront: not a product designer finish event")

// DesignerMessage is the cross-frame message posted by the product designer.
type DesignerMessage struct {
	IsProductDesigner bool   `json:"isProductDesigner"`
	Event             string `json:"event"`
	Params            struct {
		Price *decimal.Decimal `json:"price"`
	} `json:"params"`
}

// ParseDesignerMessage decodes data and returns the design price of a finish event.
func ParseDesignerMessage(data string) (decimal.Decimal, error) {
	var msg DesignerMessage
	if err := json.Unmarshal([]byte(data), &msg); err != nil {
		return decimal.Zero, err
	}
	if !msg.IsProductDesigner || msg.Event != "finish" || msg.Params.Price == nil {
		return decimal.Zero, ErrNotDesignerFinish
	}
	return *msg.Params.Price, nil
}

var (
	commaPrice    = regexp.MustCompile(`^\d+,\d{2}$`)
	dotPrice      = regexp.MustCompile(`^\d+\.\d{2}$`)
	prefixedPrice = regexp.MustCompile(`^[^\d]+(\d+\.\d{2})$`)
	separator     = regexp.MustCompile(`[.,]`)
)

// ExtractPrice returns the first price-looking token of a label, or "0.00".
func ExtractPrice(content string) string {
	for _, chunk := range strings.Split(content, " ") {
		if commaPrice.MatchString(chunk) || dotPrice.MatchString(chunk) {
			return chunk
		}
		if m := prefixedPrice.FindStringSubmatch(chunk); m != nil {
			return m[1]
		}
	}
	return "0.00"
}

// DecimalSeparator returns the first '.' or ',' of content, defaulting to '.'.
func DecimalSeparator(content string) string {
	if sep := separator.FindString(content); sep != "" {
		return sep
	}
	return "."
}

// FormatPrice renders price with two decimals using the separator found in content.
func FormatPrice(price decimal.Decimal, content string) string {
	return strings.Replace(price.StringFixed(2), ".", DecimalSeparator(content), 1)
}

func normalizeLabel(content string) string {
	return strings.Replace(content, "&nbsp;", " ", 1)
}

// ApplyToLabel replaces the price inside a label with unitPrice + designPrice.
func ApplyToLabel(content string, unitPrice, designPrice decimal.Decimal) string {
	content = normalizeLabel(content)
	return strings.Replace(content, ExtractPrice(content), FormatPrice(unitPrice.Add(designPrice), content), 1)
}

// AdvancedPrice is one block price entry as rendered into the product page.
type AdvancedPrice struct {
	From           int             `json:"from" validate:"gte=1"`
	To             *int            `json:"to"`
	UnitPrice      decimal.Decimal `json:"unitPrice"`
	SavingsPercent decimal.Decimal `json:"savingsPercent"`
}

// TierRow is one row of the rendered block price table.
type TierRow struct {
	From    int    `json:"from" validate:"gte=1"`
	To      *int   `json:"to"`
	Content string `json:"content"`
	Price   string `json:"price,omitempty"`
}

// ApplyToTierRows adds the design price, reduced by each row's savings, to the row labels.
// Rows without a matching advanced price or without savings are returned unchanged.
func ApplyToTierRows(rows []TierRow, advanced []AdvancedPrice, designPrice decimal.Decimal) []TierRow {
	out := make([]TierRow, len(rows))
	hundred := decimal.NewFromInt(100)
	for i, row := range rows {
		out[i] = row
		adv, ok := findAdvanced(advanced, row)
		if !ok || adv.SavingsPercent.IsZero() {
			continue
		}
		content := normalizeLabel(row.Content)
		discounted := designPrice.Sub(designPrice.Mul(adv.SavingsPercent).Div(hundred))
		formatted := FormatPrice(adv.UnitPrice.Add(discounted), content)
		out[i].Content = strings.Replace(content, ExtractPrice(content), formatted, 1)
		out[i].Price = formatted
	}
	return out
}

func findAdvanced(advanced []AdvancedPrice, row TierRow) (AdvancedPrice, bool) {
	for _, adv := range advanced {
		if adv.From != row.From {
			continue
		}
		if adv.To == nil || (row.To != nil && *adv.To == *row.To) {
			return adv, true
		}
	}
	return AdvancedPrice{}, false
}
