package crossvariant

import (
	"regexp"
	"strings"

	"github.com/noah-isme/toko-tierprice/internal/cart"
	"github.com/noah-isme/toko-tierprice/internal/catalog"
	"github.com/noah-isme/toko-tierprice/internal/settings"
	"github.com/noah-isme/toko-tierprice/internal/wildcard"
)

var variantSuffix = regexp.MustCompile(`^(.*)\.\d$`)

// NormalizeProductNumber strips a single trailing ".<digit>" variant suffix.
func NormalizeProductNumber(number string) string {
	if m := variantSuffix.FindStringSubmatch(number); m != nil {
		return m[1]
	}
	return number
}

// Eligible reports whether item takes part in cross-variant aggregation.
func Eligible(item *cart.LineItem, product *catalog.Product, cfg settings.Values) bool {
	_, ok := ineligibleReason(item, product, cfg)
	return !ok
}

func ineligibleReason(item *cart.LineItem, product *catalog.Product, cfg settings.Values) (string, bool) {
	if !product.IsVariant() {
		return "not_variant", true
	}
	if item.Extensions.IsFree() {
		return "free_product", true
	}
	number := NormalizeProductNumber(product.ProductNumber)
	if blacklist := strings.TrimSpace(cfg.Blacklist); blacklist != "" &&
		wildcard.MatchAny(wildcard.SplitPatterns(blacklist), number) {
		return "blacklisted", true
	}
	if whitelist := strings.TrimSpace(cfg.Whitelist); whitelist != "" &&
		!wildcard.MatchAny(wildcard.SplitPatterns(whitelist), number) {
		return "not_whitelisted", true
	}
	return "", false
}
