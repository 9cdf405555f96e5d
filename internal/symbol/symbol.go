package symbol

import "strings"

// exchangePrefix is stripped before comparison; charts created from the
// exchange-qualified picker and the plain ticker must resolve to the same
// instrument.
const exchangePrefix = "HOSE:"

// Normalize strips the exchange prefix and uppercases the ticker.
func Normalize(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= len(exchangePrefix) && strings.EqualFold(s[:len(exchangePrefix)], exchangePrefix) {
		s = s[len(exchangePrefix):]
	}
	return strings.ToUpper(s)
}

// Same reports whether two symbol strings name the same instrument.
func Same(a, b string) bool {
	return Normalize(a) == Normalize(b)
}
