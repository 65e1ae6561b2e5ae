package settings

import (
	"context"
	"strings"
)

// Values holds the cross-variant configuration of one sales channel.
type Values struct {
	GroupByPrice bool   `json:"groupByPrice"`
	Blacklist    string `json:"blacklist" validate:"max=2048"`
	Whitelist    string `json:"whitelist" validate:"max=2048"`
}

// Normalize trims the pattern lists.
func (v Values) Normalize() Values {
	v.Blacklist = strings.TrimSpace(v.Blacklist)
	v.Whitelist = strings.TrimSpace(v.Whitelist)
	return v
}

// Provider returns the settings for a sales channel within a namespace.
type Provider interface {
	Get(ctx context.Context, namespace, salesChannelID string) (Values, error)
}

// Static always returns the same values.
type Static Values

// Get implements Provider.
func (s Static) Get(context.Context, string, string) (Values, error) {
	return Values(s).Normalize(), nil
}
