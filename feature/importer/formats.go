package importer

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

//go:embed formats.yaml
var defaultFormats []byte

// Cell types a format can coerce a column to.
const (
	TypeString  = "string"
	TypeInt     = "int"
	TypeDecimal = "decimal"
)

// Format describes how one supplier lays out its spreadsheets.
type Format struct {
	Name string `yaml:"-"`
	// Header is the number of rows preceding the header row.
	Header int `yaml:"header"`
	// NA lists cell values that mean "not available", compared case-insensitively.
	NA []string `yaml:"na"`
	// Rename maps lower-cased raw headers to canonical column names.
	Rename map[string]string `yaml:"rename"`
	// Types maps canonical columns to a cell type.
	Types map[string]string `yaml:"types"`
	// Transform maps canonical columns to a named cell transform.
	Transform map[string]string `yaml:"transform"`
}

// HeaderRows is the number of lines consumed before the first data row.
func (f Format) HeaderRows() int {
	return f.Header + 1
}

// IsNA reports whether raw is one of the format's NA sentinels.
func (f Format) IsNA(raw string) bool {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return true
	}
	for _, na := range f.NA {
		if strings.EqualFold(raw, strings.TrimSpace(na)) {
			return true
		}
	}
	return false
}

// Formats is a set of formats keyed by supplier name.
type Formats map[string]Format

// Get returns the named format.
func (fs Formats) Get(name string) (Format, error) {
	if name == "" {
		name = "default"
	}
	f, ok := fs[name]
	if !ok {
		return Format{}, fmt.Errorf("unknown import format %q (known: %s)", name, strings.Join(fs.Names(), ", "))
	}
	return f, nil
}

// Names returns the sorted format names.
func (fs Formats) Names() []string {
	names := make([]string, 0, len(fs))
	for n := range fs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// builtin is parsed once; a broken embed surfaces through LoadFormats("").
var builtin, builtinErr = ParseFormats(bytes.NewReader(defaultFormats))

// DefaultFormats returns the embedded supplier formats. It panics if the
// embedded document is invalid.
func DefaultFormats() Formats {
	if builtinErr != nil {
		panic(fmt.Sprintf("embedded formats are invalid: %v", builtinErr))
	}
	return builtin
}

// LoadFormats reads formats from path. An empty path returns the embedded
// formats.
func LoadFormats(path string) (Formats, error) {
	if path == "" {
		if builtinErr != nil {
			return nil, fmt.Errorf("embedded formats are invalid: %w", builtinErr)
		}
		return builtin, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open formats: %w", err)
	}
	defer f.Close()
	return ParseFormats(f)
}

// ParseFormats decodes a formats document and validates types and transforms.
func ParseFormats(r io.Reader) (Formats, error) {
	var raw map[string]Format
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to parse formats: %w", err)
	}
	fs := make(Formats, len(raw))
	for name, f := range raw {
		f.Name = name
		rename := make(map[string]string, len(f.Rename))
		for k, v := range f.Rename {
			rename[normalizeHeader(k)] = v
		}
		f.Rename = rename
		for col, typ := range f.Types {
			switch typ {
			case TypeString, TypeInt, TypeDecimal:
			default:
				return nil, fmt.Errorf("format %s: column %s: unknown type %q", name, col, typ)
			}
		}
		for col, tr := range f.Transform {
			if _, ok := transforms[tr]; !ok {
				return nil, fmt.Errorf("format %s: column %s: unknown transform %q", name, col, tr)
			}
		}
		fs[name] = f
	}
	return fs, nil
}

// transforms are per-cell hooks applied before type coercion.
var transforms = map[string]func(string) string{
	"currency": parseCurrency,
	"upper":    strings.ToUpper,
	"lower":    strings.ToLower,
}

var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)$`)

// parseCurrency strips currency symbols, codes and thousands separators.
// A decimal comma is accepted when it is the only separator.
func parseCurrency(s string) string {
	s = strings.TrimSpace(s)
	for _, sym := range []string{"$", "€", "£", "EUR", "USD", "GBP", "CHF"} {
		s = strings.ReplaceAll(s, sym, "")
	}
	s = strings.TrimSpace(s)
	if strings.Contains(s, ",") && !strings.Contains(s, ".") && strings.Count(s, ",") == 1 {
		s = strings.Replace(s, ",", ".", 1)
	}
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, " ", "")
	if !numericRegex.MatchString(s) {
		return ""
	}
	if d, err := decimal.NewFromString(s); err == nil {
		return d.String()
	}
	return ""
}
