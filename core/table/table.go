// Package table holds the canonical tabular record model passed between the
// aligner, the validator and the store.
//
// A cell is nil when the value is not available (NA). Strings, ints,
// decimal.Decimal and identity.Key are the value types in use.
package table

import (
	"slices"
	"strings"
)

// Row maps column name to cell value.
type Row map[string]any

// Clone returns a shallow copy of r.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// IsNA reports whether column is missing or empty in r.
func (r Row) IsNA(column string) bool {
	return IsNA(r[column])
}

// IsNA reports whether v represents a missing value.
func IsNA(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(x) == ""
	default:
		return false
	}
}

// Table is an ordered set of columns and the rows holding them.
type Table struct {
	Columns []string
	Rows    []Row
	// Lines holds the 1-based source line of each row when the table was
	// read from a file. It is nil for tables built in memory.
	Lines []int
}

// Line returns the source line of row i, or 0 when unknown.
func (t Table) Line(i int) int {
	if len(t.Lines) != len(t.Rows) || i < 0 || i >= len(t.Lines) {
		return 0
	}
	return t.Lines[i]
}

// New returns an empty table with the given columns.
func New(columns ...string) Table {
	return Table{Columns: append([]string(nil), columns...)}
}

// Len returns the number of rows.
func (t Table) Len() int {
	return len(t.Rows)
}

// HasColumn reports whether column is part of the table.
func (t Table) HasColumn(column string) bool {
	return slices.Contains(t.Columns, column)
}

// AddColumn appends column if absent.
func (t *Table) AddColumn(column string) {
	if !t.HasColumn(column) {
		t.Columns = append(t.Columns, column)
	}
}

// SetAll adds column and sets it to v on every row.
func (t *Table) SetAll(column string, v any) {
	t.AddColumn(column)
	for _, r := range t.Rows {
		r[column] = v
	}
}

// Append adds a row. Unknown columns are added to the column list.
func (t *Table) Append(r Row) {
	for k := range r {
		if !t.HasColumn(k) {
			t.Columns = append(t.Columns, k)
		}
	}
	t.Rows = append(t.Rows, r)
}

// Missing returns the columns of want absent from the table, in order.
func (t Table) Missing(want []string) []string {
	var out []string
	for _, c := range want {
		if !t.HasColumn(c) {
			out = append(out, c)
		}
	}
	return out
}

// Project returns a copy restricted to columns, skipping absent ones.
func (t Table) Project(columns []string) Table {
	var keep []string
	for _, c := range columns {
		if t.HasColumn(c) {
			keep = append(keep, c)
		}
	}
	out := New(keep...)
	out.Lines = append([]int(nil), t.Lines...)
	for _, r := range t.Rows {
		nr := make(Row, len(keep))
		for _, c := range keep {
			nr[c] = r[c]
		}
		out.Rows = append(out.Rows, nr)
	}
	return out
}
