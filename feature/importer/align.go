package importer

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"bom-manager/core/table"

	"github.com/shopspring/decimal"
)

// Provenance columns attached to every aligned row.
const (
	ColDir        = "dir"
	ColFileName   = "file_name"
	ColFileFormat = "file_format"
	ColImportDate = "import_date"
)

// DateLayout is the layout of import and offer dates.
const DateLayout = "2006-01-02"

var (
	parenthesized = regexp.MustCompile(`\([^()]*\)`)
	spaces        = regexp.MustCompile(`\s+`)
)

// Align maps a raw supplier table onto canonical column names and types and
// tags each row with its provenance. Columns absent from raw stay absent.
func Align(raw table.Table, sourceFile string, f Format, now time.Time) (table.Table, error) {
	if len(raw.Columns) == 0 {
		return table.Table{}, fmt.Errorf("%s: no header row", filepath.Base(sourceFile))
	}

	// Map raw columns to canonical names, first occurrence wins.
	source := make(map[string]string, len(raw.Columns))
	var columns []string
	for _, rc := range raw.Columns {
		canonical := normalizeHeader(rc)
		if to, ok := f.Rename[canonical]; ok {
			canonical = to
		}
		if canonical == "" {
			continue
		}
		if _, taken := source[canonical]; taken {
			continue
		}
		source[canonical] = rc
		columns = append(columns, canonical)
	}

	out := table.New(columns...)
	out.Lines = append([]int(nil), raw.Lines...)
	for _, r := range raw.Rows {
		row := make(table.Row, len(columns)+4)
		for _, c := range columns {
			row[c] = alignCell(r[source[c]], c, f)
		}
		out.Rows = append(out.Rows, row)
	}

	out.SetAll(ColDir, filepath.Dir(sourceFile))
	out.SetAll(ColFileName, filepath.Base(sourceFile))
	out.SetAll(ColFileFormat, f.Name)
	out.SetAll(ColImportDate, now.Format(DateLayout))
	return out, nil
}

func alignCell(v any, column string, f Format) any {
	if v == nil {
		return nil
	}
	s, ok := v.(string)
	if !ok {
		return v
	}
	if f.IsNA(s) {
		return nil
	}

	typ := f.Types[column]
	if typ == "" || typ == TypeString {
		s = CleanText(s)
	}
	if tr, ok := transforms[f.Transform[column]]; ok {
		s = tr(s)
	}
	if strings.TrimSpace(s) == "" {
		return nil
	}

	switch typ {
	case TypeInt:
		return coerceInt(s)
	case TypeDecimal:
		d, err := decimal.NewFromString(strings.TrimSpace(s))
		if err != nil {
			return nil
		}
		return d
	default:
		return s
	}
}

// coerceInt parses whole numbers, accepting spreadsheet floats such as "10.0".
func coerceInt(s string) any {
	s = strings.TrimSpace(s)
	if i, err := strconv.Atoi(s); err == nil {
		return i
	}
	d, err := decimal.NewFromString(s)
	if err != nil || !d.Equal(d.Truncate(0)) {
		return nil
	}
	return int(d.IntPart())
}

// CleanText removes parenthesized annotations and non-ASCII characters and
// collapses whitespace.
func CleanText(s string) string {
	for {
		stripped := parenthesized.ReplaceAllString(s, "")
		if stripped == s {
			break
		}
		s = stripped
	}
	s = strings.Map(func(r rune) rune {
		if r > 127 {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(spaces.ReplaceAllString(s, " "))
}

func normalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	return strings.ToLower(strings.TrimSpace(spaces.ReplaceAllString(h, " ")))
}
