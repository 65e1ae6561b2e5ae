package salesctx

import (
	"net/http"
	"strings"
)

// Request headers carrying the pricing context.
const (
	HeaderCurrencyID = "X-Currency-Id"
	HeaderDomainID   = "X-Domain-Id"
	HeaderVersionID  = "X-Version-Id"
	HeaderRuleIDs    = "X-Rule-Ids"
	HeaderTaxState   = "X-Tax-State"
)

// Defaults fills context fields a request does not carry.
type Defaults struct {
	TaxState         TaxState
	CurrencyDecimals int
	CurrencyID       string
}

// FromRequest builds the pricing context of r for salesChannelID.
func FromRequest(r *http.Request, salesChannelID string, d Defaults) Context {
	c := Context{
		SalesChannelID:   salesChannelID,
		DomainID:         strings.TrimSpace(r.Header.Get(HeaderDomainID)),
		VersionID:        strings.TrimSpace(r.Header.Get(HeaderVersionID)),
		CurrencyID:       strings.TrimSpace(r.Header.Get(HeaderCurrencyID)),
		TaxState:         d.TaxState,
		CurrencyDecimals: d.CurrencyDecimals,
		Source:           SourceFrom(r.Context()),
	}
	if c.CurrencyID == "" {
		c.CurrencyID = d.CurrencyID
	}
	if raw := r.Header.Get(HeaderTaxState); raw != "" {
		c.TaxState = ParseTaxState(raw)
	}
	if c.TaxState == "" {
		c.TaxState = TaxStateGross
	}
	for _, id := range strings.Split(r.Header.Get(HeaderRuleIDs), ",") {
		if id = strings.TrimSpace(id); id != "" {
			c.RuleIDs = append(c.RuleIDs, id)
		}
	}
	return c
}
