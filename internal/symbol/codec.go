// Package symbol converts between the canonical BASE/QUOTE symbol form
// and the per-venue formats exchange APIs expect.
package symbol

import (
	"fmt"
	"strings"

	"github.com/alanyoungcy/sorbot/internal/domain"
)

// quoteSuffixes lists known quote currencies, longest first, used to
// split concatenated symbols like BTCUSDT.
var quoteSuffixes = []string{
	"USDT", "USDC", "TUSD", "BUSD", "DAI",
	"USD", "EUR", "GBP", "BTC", "ETH",
}

// Normalize converts any accepted input form to the canonical uppercase
// BASE/QUOTE symbol. Slash, dash and underscore separators are accepted;
// a separator-free input is split on a known quote suffix. Inputs that
// cannot be decomposed are returned uppercased as-is.
func Normalize(in string) string {
	s := strings.ToUpper(strings.TrimSpace(in))
	if s == "" {
		return ""
	}
	s = strings.ReplaceAll(s, "-", "/")
	s = strings.ReplaceAll(s, "_", "/")
	if strings.Contains(s, "/") {
		return s
	}
	for _, q := range quoteSuffixes {
		if strings.HasSuffix(s, q) && len(s) > len(q) {
			return s[:len(s)-len(q)] + "/" + q
		}
	}
	return s
}

// Split returns the base and quote of a canonical symbol.
func Split(canonical string) (base, quote string, err error) {
	base, quote, ok := strings.Cut(canonical, "/")
	if !ok || base == "" || quote == "" {
		return "", "", fmt.Errorf("symbol: not a canonical pair: %q", canonical)
	}
	return base, quote, nil
}

// ForVenue renders a canonical symbol in the format a venue expects.
func ForVenue(canonical string, conv domain.SymbolConvention) (string, error) {
	base, quote, err := Split(canonical)
	if err != nil {
		return "", err
	}
	switch conv {
	case domain.ConventionSlash:
		return base + "/" + quote, nil
	case domain.ConventionDash:
		return base + "-" + quote, nil
	case domain.ConventionConcat:
		return strings.ToLower(base + quote), nil
	case domain.ConventionConcatUpper:
		return base + quote, nil
	default:
		return "", fmt.Errorf("symbol: unknown convention %q", conv)
	}
}
