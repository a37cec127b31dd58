package importer

import (
	"fmt"
	"strconv"
	"strings"

	"bom-manager/core/apperr"
	"bom-manager/core/identity"
	"bom-manager/core/report"
	"bom-manager/core/scheme"
	"bom-manager/core/table"
	"bom-manager/core/utils"
)

// RowIssue points at a source line and the columns it lacks.
type RowIssue struct {
	Line    int
	Missing []string
}

// Result is the outcome of ValidateAndHash.
type Result struct {
	Table table.Table
	// Dropped rows lacked a required value.
	Dropped []RowIssue
	// Incomplete rows were kept but lack optional values.
	Incomplete []RowIssue
	// Absent lists optional columns the source did not supply at all.
	Absent []string
}

// ValidateAndHash drops rows missing required values, flags rows missing
// optional ones and computes the hash columns of res. Reported line numbers
// are the source lines recorded in t.Lines. Tables without them number rows
// index + rowShift + 1, rowShift being the number of header lines.
func ValidateAndHash(t table.Table, res scheme.Resolution, rowShift int) (Result, error) {
	for _, h := range res.Hashes {
		if missing := t.Missing(h.Sources); len(missing) > 0 {
			return Result{}, &apperr.HashInputError{Column: h.Column, Missing: missing}
		}
	}
	if missing := t.Missing(res.Required); len(missing) > 0 {
		return Result{}, &apperr.ValidationError{Table: res.Table, Missing: missing}
	}

	out := Result{Table: table.New(t.Columns...)}
	var present []string
	for _, c := range res.Optional {
		if t.HasColumn(c) {
			present = append(present, c)
		} else {
			out.Absent = append(out.Absent, c)
		}
	}

	for i, r := range t.Rows {
		line := t.Line(i)
		if line == 0 {
			line = i + rowShift + 1
		}
		if missing := naColumns(r, res.Required); len(missing) > 0 {
			out.Dropped = append(out.Dropped, RowIssue{Line: line, Missing: missing})
			continue
		}
		if missing := naColumns(r, present); len(missing) > 0 {
			out.Incomplete = append(out.Incomplete, RowIssue{Line: line, Missing: missing})
		}
		row := r.Clone()
		for _, h := range res.Hashes {
			row[h.Column] = Hash(row, h.Sources)
		}
		out.Table.Rows = append(out.Table.Rows, row)
	}
	for _, h := range res.Hashes {
		out.Table.AddColumn(h.Column)
	}
	return out, nil
}

// Hash computes the content identity of r over columns, in order.
func Hash(r table.Row, columns []string) identity.Key {
	parts := make([]string, len(columns))
	for i, c := range columns {
		parts[i] = utils.ToString(r[c])
	}
	return identity.Of(parts...)
}

func naColumns(r table.Row, columns []string) []string {
	var out []string
	for _, c := range columns {
		if r.IsNA(c) {
			out = append(out, c)
		}
	}
	return out
}

// Report sends one event for dropped rows and one batched warning for
// incomplete rows to sink. Rows without issues produce no output.
func (r Result) Report(sink report.Sink, sourceFile string) {
	if len(r.Dropped) > 0 {
		report.Error(sink, "rows dropped for missing required values",
			report.F("file", sourceFile),
			report.F("rows", formatIssues(r.Dropped)))
	}
	if len(r.Incomplete) > 0 {
		report.Warn(sink, "rows missing optional values",
			report.F("file", sourceFile),
			report.F("rows", formatIssues(r.Incomplete)))
	}
	if len(r.Absent) > 0 {
		report.Info(sink, "optional columns not supplied",
			report.F("file", sourceFile),
			report.F("columns", strings.Join(r.Absent, ", ")))
	}
}

func formatIssues(issues []RowIssue) string {
	parts := make([]string, len(issues))
	for i, is := range issues {
		parts[i] = fmt.Sprintf("line %s: %s", strconv.Itoa(is.Line), strings.Join(is.Missing, ", "))
	}
	return strings.Join(parts, "; ")
}
