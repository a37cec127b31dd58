package importer

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"bom-manager/core/table"
)

// ReadFile reads a supplier spreadsheet exported as CSV or TSV.
func ReadFile(path string, f Format) (table.Table, error) {
	ext := strings.ToLower(filepath.Ext(path))
	var comma rune
	switch ext {
	case ".csv", ".txt":
		comma = ','
	case ".tsv":
		comma = '\t'
	default:
		return table.Table{}, fmt.Errorf("unsupported file type %q: export the sheet as .csv or .tsv", ext)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return table.Table{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if comma == ',' && bytes.Count(firstLine(data), []byte(";")) > bytes.Count(firstLine(data), []byte(",")) {
		comma = ';'
	}
	return ReadCSV(bytes.NewReader(sanitizeUTF8(data)), comma, f)
}

// ReadCSV reads delimited text into a table of raw string cells. The first
// f.Header records are skipped, the next one is the header. Empty records are
// dropped; every kept row remembers its line in the source.
func ReadCSV(r io.Reader, comma rune, f Format) (table.Table, error) {
	cr := csv.NewReader(r)
	cr.Comma = comma
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	var t table.Table
	var header []string
	for n := 0; ; n++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return table.Table{}, fmt.Errorf("failed to parse csv: %w", err)
		}
		switch {
		case n < f.Header:
			continue
		case n == f.Header:
			header = rec
			t = table.New(header...)
			continue
		}
		if isEmptyRow(rec) {
			continue
		}
		row := make(table.Row, len(header))
		for i, h := range header {
			if i < len(rec) {
				row[h] = rec[i]
			} else {
				row[h] = nil
			}
		}
		line, _ := cr.FieldPos(0)
		t.Rows = append(t.Rows, row)
		t.Lines = append(t.Lines, line)
	}
	return t, nil
}

func firstLine(data []byte) []byte {
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		return data[:i]
	}
	return data
}

func sanitizeUTF8(data []byte) []byte {
	if utf8.Valid(data) {
		return data
	}

	var buf bytes.Buffer
	buf.Grow(len(data))

	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError && size == 1 {
			buf.WriteRune('\uFFFD')
			data = data[1:]
		} else {
			buf.WriteRune(r)
			data = data[size:]
		}
	}

	return buf.Bytes()
}

func isEmptyRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
