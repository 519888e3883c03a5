// Package grid implements the editable-grid core shared by the light
// bill and payment tables: loading and deriving the row set, gating the
// single inline edit session, committing cell edits to the remote store
// and reconciling realtime change events.
package grid

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/SkySouL159/RMS/internal/store"
)

// Schema is the static column configuration of one grid. It is fixed at
// build time, not derived from the remote table; column names must match
// the remote columns exactly or updates silently fail.
type Schema struct {
	// Name is the grid key used in URLs and logs ("lightbill", "payment").
	Name string
	// Table is the remote table backing the grid (same as Name here, but
	// kept separate so the two can diverge).
	Table string
	// Columns is the display order.
	Columns []string
	// Headers maps column names to their short display labels.
	Headers map[string]string
	// NonEditable lists columns that can never enter edit mode.
	NonEditable map[string]bool
	// RoomColumn is the numeric room identifier the grid sorts by.
	RoomColumn string
	// HasTotals enables the bill/points aggregate footer.
	HasTotals bool
}

// Editable reports whether a column may enter edit mode.
func (s Schema) Editable(column string) bool {
	known := false
	for _, c := range s.Columns {
		if c == column {
			known = true
			break
		}
	}
	return known && !s.NonEditable[column]
}

// Derive recomputes the grid's derived columns in place from the row's
// base columns. It runs after every load, after every commit echo and on
// every realtime payload, so a derived value is never carried over from
// stale local state.
func (s Schema) Derive(r store.Row) {
	switch s.Name {
	case "lightbill":
		// point = current_reading - previous_reading, 2 decimal places.
		point := r.Decimal("current_reading").Sub(r.Decimal("previous_reading"))
		r["point"] = point.StringFixed(2)
	case "payment":
		// remaining = total_amount - paid_amount.
		remaining := r.Decimal("total_amount").Sub(r.Decimal("paid_amount"))
		r["remaining"] = remaining.String()
	}
}

// SideEffects returns the derived patch entries a cell edit implies, so
// the remote row stays consistent with what the grid will display. The
// derived value is computed from the row's existing base columns plus
// the new text, never authored independently.
func (s Schema) SideEffects(r store.Row, column, text string) map[string]any {
	if s.Name == "payment" && column == "paid_amount" {
		paid := parseDecimalOrZero(text)
		remaining := r.Decimal("total_amount").Sub(paid)
		return map[string]any{"remaining": remaining.String()}
	}
	// point is computed client-side only and is never written back.
	return nil
}

// parseDecimalOrZero parses user-entered cell text, treating anything
// unparsable as zero, matching how missing base columns are coerced.
func parseDecimalOrZero(s string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero
	}
	return d
}

// LightBill is the schema of the utility-billing grid. Only the two
// meter readings are editable; point is derived and bill_amount is
// authored remotely.
func LightBill() Schema {
	return Schema{
		Name:  "lightbill",
		Table: "lightbill",
		Columns: []string{
			"room_number", "month", "previous_reading", "current_reading", "point", "bill_amount",
		},
		Headers: map[string]string{
			"room_number":      "RNo",
			"month":            "Month",
			"previous_reading": "Pre",
			"current_reading":  "Curr",
			"point":            "Point",
			"bill_amount":      "Bill",
		},
		NonEditable: map[string]bool{
			"room_number": true,
			"month":       true,
			"point":       true,
			"bill_amount": true,
		},
		RoomColumn: "room_number",
		HasTotals:  true,
	}
}

// Payment is the schema of the tenant-payment grid. Only paid_amount is
// editable; remaining is derived from total_amount and paid_amount.
func Payment() Schema {
	return Schema{
		Name:  "payment",
		Table: "payment",
		Columns: []string{
			"room_no", "month", "light_bill", "total_amount", "paid_amount", "remaining",
		},
		Headers: map[string]string{
			"room_no":      "RNo",
			"month":        "Month",
			"light_bill":   "Light",
			"total_amount": "Total",
			"paid_amount":  "Paid",
			"remaining":    "Remain",
		},
		NonEditable: map[string]bool{
			"room_no":      true,
			"month":        true,
			"light_bill":   true,
			"total_amount": true,
			"remaining":    true,
		},
		RoomColumn: "room_no",
	}
}
