package fields

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Submitted values arrive either from JSON decoding (float64, string, bool,
// []any, map[string]any, json.Number) or from Go callers (ints, []string).
// The helpers below bring them to the shape each rule needs without ever
// panicking on an unexpected type.

// isEmpty reports whether v counts as "no answer".
func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case []any:
		return len(t) == 0
	case []string:
		return len(t) == 0
	case json.Number:
		return strings.TrimSpace(t.String()) == ""
	case map[string]any:
		return len(t) == 0
	default:
		return false
	}
}

// asNumber extracts a finite number from v. Numeric strings are parsed, and
// a decimal comma is accepted.
func asNumber(v any) (float64, bool) {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int32:
		f = float64(t)
	case int64:
		f = float64(t)
	case uint:
		f = float64(t)
	case uint32:
		f = float64(t)
	case uint64:
		f = float64(t)
	case json.Number:
		p, err := t.Float64()
		if err != nil {
			return 0, false
		}
		f = p
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, false
		}
		p, ok := parseDecimal(s)
		if !ok {
			return 0, false
		}
		f = p
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// parseDecimal parses s as a plain float or in the pt-BR form "1.234,56":
// one decimal comma, optionally preceded by dot-grouped thousands. Mixed
// forms such as "1,234.56" are rejected rather than guessed.
func parseDecimal(s string) (float64, bool) {
	if p, err := strconv.ParseFloat(s, 64); err == nil {
		return p, true
	}
	whole, frac, found := strings.Cut(s, ",")
	if !found || frac == "" || strings.ContainsAny(frac, ",.") {
		return 0, false
	}
	if strings.Contains(whole, ".") {
		groups := strings.Split(whole, ".")
		for i, g := range groups {
			if g == "" || (i > 0 && len(g) != 3) {
				return 0, false
			}
		}
		whole = strings.Join(groups, "")
	}
	p, err := strconv.ParseFloat(whole+"."+frac, 64)
	if err != nil {
		return 0, false
	}
	return p, true
}

// asText converts scalars to their string form. Composite values are not
// text.
func asText(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case json.Number:
		return t.String(), true
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < 1<<53 {
			return strconv.FormatInt(int64(t), 10), true
		}
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		return "", false
	}
}

// asStrings converts a multi-selection to a list of stored values.
func asStrings(v any) ([]string, bool) {
	switch t := v.(type) {
	case []string:
		return t, true
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			s, ok := asText(e)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	default:
		return nil, false
	}
}
