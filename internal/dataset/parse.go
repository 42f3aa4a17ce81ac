package dataset

import (
	"math"
	"strconv"
	"strings"
)

// ParseOptions controls how raw text cells are interpreted.
type ParseOptions struct {
	// DecimalSeparator; if 0, auto-detect per value.
	DecimalSeparator rune
	// ThousandsSeparator is optional; if 0 it is inferred together with the decimal separator.
	ThousandsSeparator rune
	// NullTokens overrides DefaultNullTokens when non-nil.
	NullTokens []string
}

// DefaultNullTokens mirrors the strings pandas reads as missing by default.
var DefaultNullTokens = []string{
	"", "#N/A", "#N/A N/A", "#NA", "-1.#IND", "-1.#QNAN", "-NaN", "-nan",
	"1.#IND", "1.#QNAN", "<NA>", "N/A", "NA", "NULL", "NaN", "None", "n/a", "nan", "null",
}

// IsNull reports whether s (already trimmed) is a missing-value token.
func IsNull(s string, tokens []string) bool {
	if tokens == nil {
		tokens = DefaultNullTokens
	}
	if s == "" {
		return true
	}
	for _, t := range tokens {
		if s == t {
			return true
		}
	}
	return false
}

// ParseNumber parses locale-formatted numbers such as "1.000,5", "12.5%" or "3e-4".
// Non-finite results are rejected.
func ParseNumber(s string, opt ParseOptions) (float64, bool) {
	raw := strings.ReplaceAll(s, "\u00A0", " ")
	raw = strings.TrimSpace(raw)
	raw = strings.TrimSpace(strings.TrimSuffix(raw, "%"))
	if raw == "" {
		return 0, false
	}
	dec := opt.DecimalSeparator
	thou := opt.ThousandsSeparator
	if dec == 0 {
		cpos := strings.LastIndex(raw, ",")
		dpos := strings.LastIndex(raw, ".")
		switch {
		case cpos >= 0 && dpos >= 0:
			if cpos > dpos {
				dec, thou = ',', '.'
			} else {
				dec, thou = '.', ','
			}
		case cpos >= 0:
			// "1,234,567" and "1,234" group thousands; "0,5" is a decimal comma
			if strings.Count(raw, ",") > 1 || len(raw)-cpos-1 == 3 {
				dec, thou = '.', ','
			} else {
				dec = ','
			}
		case strings.Count(raw, " ") > 0:
			dec, thou = '.', ' '
		default:
			dec = '.'
		}
	}
	if thou != 0 && thou != dec && strings.ContainsRune(raw, thou) {
		intPart := raw
		if i := strings.IndexRune(raw, dec); i >= 0 {
			intPart = raw[:i]
		}
		if !validGrouping(intPart, thou) {
			return 0, false
		}
		raw = strings.ReplaceAll(raw, string(thou), "")
	}
	if dec != '.' {
		if strings.ContainsRune(raw, '.') {
			return 0, false
		}
		raw = strings.ReplaceAll(raw, string(dec), ".")
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// validGrouping checks "1,234,567"-style digit groups.
func validGrouping(intPart string, sep rune) bool {
	intPart = strings.TrimLeft(intPart, "+-")
	groups := strings.Split(intPart, string(sep))
	for i, g := range groups {
		if i == 0 && (len(g) < 1 || len(g) > 3) {
			return false
		}
		if i > 0 && len(g) != 3 {
			return false
		}
		for _, r := range g {
			if r < '0' || r > '9' {
				return false
			}
		}
	}
	return true
}
