package utils

import (
	"strings"
)

// NamespaceSeparator marks a ticker that already carries a provider namespace, e.g. "C:EURUSD"
const NamespaceSeparator = ":"

// DefaultMarketPrefix forex/CFD namespace of the aggregates provider
const DefaultMarketPrefix = "C:"

// tickerSubstitutions broker CFD codes that differ from the provider ticker
var tickerSubstitutions = map[string]string{
	"GOLD":    "XAUUSD",
	"SILVER":  "XAGUSD",
	"XAUUSDM": "XAUUSD",
}

// NormalizeTicker maps a journal symbol to the provider ticker.
// "eurusd+" -> "C:EURUSD", "GOLD" -> "C:XAUUSD"; namespaced input is returned as is.
func NormalizeTicker(raw, prefix string) string {
	if raw == "" || strings.Contains(raw, NamespaceSeparator) {
		return raw
	}

	symbol := strings.ToUpper(strings.TrimSpace(raw))
	symbol = strings.TrimSuffix(symbol, "+")
	if sub, ok := tickerSubstitutions[symbol]; ok {
		symbol = sub
	}

	symbol = stripNonAlphanumeric(symbol)
	if symbol == "" {
		return raw
	}
	return prefix + symbol
}

// NormalizeTickers normalizes and drops duplicates, keeping first-seen order.
func NormalizeTickers(raw []string, prefix string) []string {
	seen := make(map[string]bool, len(raw))
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		n := NormalizeTicker(s, prefix)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

// BareTicker drops the provider namespace: "C:EURUSD" -> "EURUSD".
func BareTicker(ticker string) string {
	if idx := strings.LastIndex(ticker, NamespaceSeparator); idx >= 0 {
		return ticker[idx+1:]
	}
	return ticker
}

func stripNonAlphanumeric(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
