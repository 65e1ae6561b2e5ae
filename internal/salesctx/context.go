package salesctx

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/noah-isme/toko-tierprice/internal/common"
)

// TaxState controls how the quantity price calculator derives taxes.
type TaxState string

const (
	TaxStateGross   TaxState = "gross"
	TaxStateNet     TaxState = "net"
	TaxStateTaxFree TaxState = "tax-free"
)

// ParseTaxState normalises a textual tax state, falling back to gross.
func ParseTaxState(value string) TaxState {
	switch TaxState(strings.ToLower(strings.TrimSpace(value))) {
	case TaxStateNet:
		return TaxStateNet
	case TaxStateTaxFree, "taxfree", "tax_free":
		return TaxStateTaxFree
	default:
		return TaxStateGross
	}
}

// SourceKind identifies who initiated the cart calculation.
type SourceKind string

const (
	SourceStorefront SourceKind = "storefront"
	SourceAdminAPI   SourceKind = "admin-api"
)

// Source describes the request origin.
type Source struct {
	Kind   SourceKind `json:"kind"`
	UserID string     `json:"userId,omitempty"`
}

// Context carries the pricing-relevant state of a sales channel request.
type Context struct {
	SalesChannelID   string   `json:"salesChannelId"`
	DomainID         string   `json:"domainId"`
	VersionID        string   `json:"versionId"`
	CurrencyID       string   `json:"currencyId"`
	RuleIDs          []string `json:"ruleIds"`
	TaxState         TaxState `json:"taxState"`
	CurrencyDecimals int      `json:"currencyDecimals"`
	Source           Source   `json:"source"`
}

// Decimals returns the rounding precision for monetary values.
func (c Context) Decimals() int32 {
	if c.CurrencyDecimals <= 0 {
		return 2
	}
	return int32(c.CurrencyDecimals)
}

// Hash returns a stable digest of everything that can change a product's
// calculated prices. Two contexts with equal hashes price products identically.
func (c Context) Hash() string {
	ruleIDs := c.RuleIDs
	if ruleIDs == nil {
		ruleIDs = []string{}
	}
	payload, _ := json.Marshal([]any{
		c.SalesChannelID,
		c.DomainID,
		c.VersionID,
		c.CurrencyID,
		ruleIDs,
		string(c.TaxState),
	})
	return common.Sha256Hex(string(payload))
}

type ctxKey struct{}

// WithSource stores the request source on ctx.
func WithSource(ctx context.Context, src Source) context.Context {
	return context.WithValue(ctx, ctxKey{}, src)
}

// SourceFrom returns the request source stored on ctx, defaulting to storefront.
func SourceFrom(ctx context.Context) Source {
	if ctx != nil {
		if src, ok := ctx.Value(ctxKey{}).(Source); ok {
			return src
		}
	}
	return Source{Kind: SourceStorefront}
}
