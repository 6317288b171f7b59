package market

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// NotAvailable is the placeholder for missing overview facts.
const NotAvailable = "N/A"

// fields is a flat object of verbose API labels.
type fields map[string]any

func decodeFields(raw json.RawMessage) (fields, bool) {
	var f fields
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, false
	}
	return f, len(f) > 0
}

// str returns the field as a string, or def when missing or empty.
func (f fields) str(key, def string) string {
	switch v := f[key].(type) {
	case string:
		if v != "" {
			return v
		}
	case float64:
		return decimal.NewFromFloat(v).String()
	}
	return def
}

// float parses a numeric field, tolerating a trailing percent sign. Malformed values are 0.
func (f fields) float(key string) float64 {
	d, ok := parseDecimal(f.str(key, ""))
	if !ok {
		return 0
	}
	return d.InexactFloat64()
}

// int parses an integer field, truncating any fraction. Malformed values are 0.
func (f fields) int(key string) int64 {
	d, ok := parseDecimal(f.str(key, ""))
	if !ok {
		return 0
	}
	return d.IntPart()
}

func parseDecimal(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%"))
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}
