package store

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Row is one record of a remote table, decoded as a dynamic JSON object.
// Numbers are kept as json.Number so the literal text the store returned
// (e.g. "10" vs "10.0") survives decoding; inline-edit no-op detection
// compares those literal forms, not parsed values.
type Row map[string]any

// ID returns the row's primary key. Supabase assigns ids server-side, so
// a row without a usable id is treated as malformed and reported via ok.
func (r Row) ID() (int64, bool) {
	v, present := r["id"]
	if !present {
		return 0, false
	}
	switch t := v.(type) {
	case json.Number:
		n, err := t.Int64()
		if err != nil {
			return 0, false
		}
		return n, true
	case float64:
		return int64(t), true
	case int64:
		return t, true
	}
	return 0, false
}

// String returns the value of a column in its display/string form, the
// same way JavaScript's toString would render it. Missing columns and
// nulls render as the empty string.
func (r Row) String(column string) string {
	v, present := r[column]
	if !present || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		if t {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprintf("%v", t)
	}
}

// Decimal parses a column as a decimal number. Missing, null or
// non-numeric values coerce to zero so derived columns and totals never
// see a NaN equivalent.
func (r Row) Decimal(column string) decimal.Decimal {
	s := strings.TrimSpace(r.String(column))
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// HasNumeric reports whether the column holds a parseable number.
func (r Row) HasNumeric(column string) bool {
	s := strings.TrimSpace(r.String(column))
	if s == "" {
		return false
	}
	_, err := decimal.NewFromString(s)
	return err == nil
}

// Clone returns a shallow copy of the row. Values are immutable JSON
// scalars in practice, so a shallow copy is enough for optimistic edits.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
