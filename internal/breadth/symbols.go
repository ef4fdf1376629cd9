package breadth

import (
	"regexp"
	"strings"
)

// maxComparisonSymbols caps how many symbols one comparison request
// may expand to after variant generation.
const maxComparisonSymbols = 60

var marketSuffixRe = regexp.MustCompile(`(?i)\.(TW|TWO)$`)

// NormalizeSymbol uppercases a symbol and strips the Taiwan market
// suffix (".TW" / ".TWO") so bare codes and suffixed variants compare
// equal.
func NormalizeSymbol(symbol string) string {
	return marketSuffixRe.ReplaceAllString(strings.ToUpper(strings.TrimSpace(symbol)), "")
}

// SymbolVariants expands one raw symbol into the stored forms it may
// match: the input as given, the bare code, and both suffixed forms
// when the input carried no suffix.
func SymbolVariants(raw string) []string {
	upper := strings.ToUpper(strings.TrimSpace(raw))
	if upper == "" {
		return nil
	}

	seen := map[string]struct{}{}
	var out []string
	add := func(s string) {
		if s == "" {
			return
		}
		if _, ok := seen[s]; ok {
			return
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}

	add(upper)
	normalized := NormalizeSymbol(upper)
	add(normalized)
	if normalized != "" && !strings.Contains(upper, ".") {
		add(normalized + ".TW")
		add(normalized + ".TWO")
	}
	return out
}

var symbolSplitRe = regexp.MustCompile(`[\s,]+`)

// RequestedSymbols splits a comma/whitespace separated symbols query
// parameter into an uppercased list, deduplicated by normalized form
// and capped at 60 entries. Each entry is later expanded to variants
// for lookup.
func RequestedSymbols(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	seen := map[string]struct{}{}
	var out []string
	for _, entry := range symbolSplitRe.Split(raw, -1) {
		upper := strings.ToUpper(strings.TrimSpace(entry))
		if upper == "" {
			continue
		}
		key := NormalizeSymbol(upper)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, upper)
		if len(out) == maxComparisonSymbols {
			break
		}
	}
	return out
}
