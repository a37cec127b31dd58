package scheme

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"

	"bom-manager/core/apperr"

	"gopkg.in/yaml.v3"
)

// Reserved table keys.
const (
	KeyForeign = "FOREIGN"
	KeyUnique  = "UNIQUE"
	KeyHash    = "HASH_COLS"
	KeyMeta    = "META"
)

//go:embed scheme.yaml
var defaultScheme []byte

// Column is a declared column and its SQL type/constraint string.
type Column struct {
	Name string
	Type string
}

// Required reports whether the constraint forbids NULL.
func (c Column) Required() bool {
	t := strings.ToUpper(c.Type)
	return strings.Contains(t, "NOT NULL") || strings.Contains(t, "PRIMARY KEY")
}

// ForeignKey links a local column to a column of another table.
type ForeignKey struct {
	Column    string
	RefTable  string
	RefColumn string
}

// HashSpec declares a derived column computed from source columns, in order.
type HashSpec struct {
	Column  string
	Sources []string
}

// Table is one declared table.
type Table struct {
	Name    string
	Columns []Column
	Foreign []ForeignKey
	Unique  [][]string
	Hashes  []HashSpec
	Meta    []string
}

// Column returns the named column.
func (t *Table) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// HasColumn reports whether the table declares name.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.Column(name)
	return ok
}

// ColumnNames returns column names in declared order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// ConflictKey returns the first UNIQUE group, used to detect existing rows.
func (t *Table) ConflictKey() []string {
	if len(t.Unique) == 0 {
		return nil
	}
	return t.Unique[0]
}

// Hash returns the hash spec deriving column, if any.
func (t *Table) Hash(column string) (HashSpec, bool) {
	for _, h := range t.Hashes {
		if h.Column == column {
			return h, true
		}
	}
	return HashSpec{}, false
}

// Scheme is the parsed declarative scheme.
type Scheme struct {
	order  []string
	tables map[string]*Table
}

// Default returns the embedded scheme shipped with the tool.
func Default() *Scheme {
	s, err := Load(bytes.NewReader(defaultScheme))
	if err != nil {
		panic(fmt.Sprintf("embedded scheme is invalid: %v", err))
	}
	return s
}

// LoadFile loads a scheme from path. An empty path returns Default().
func LoadFile(path string) (*Scheme, error) {
	if path == "" {
		return Default(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, &apperr.SchemaError{Reason: fmt.Sprintf("open %s: %v", path, err)}
	}
	defer f.Close()
	return Load(f)
}

// Load parses a scheme document.
func Load(r io.Reader) (*Scheme, error) {
	var doc yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, &apperr.SchemaError{Reason: fmt.Sprintf("parse: %v", err)}
	}
	if len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return nil, &apperr.SchemaError{Reason: "document must be a mapping of tables"}
	}
	root := doc.Content[0]

	s := &Scheme{tables: make(map[string]*Table)}
	for i := 0; i+1 < len(root.Content); i += 2 {
		name := root.Content[i].Value
		t, err := parseTable(name, root.Content[i+1])
		if err != nil {
			return nil, err
		}
		if _, dup := s.tables[name]; dup {
			return nil, &apperr.SchemaError{Table: name, Reason: "declared twice"}
		}
		s.order = append(s.order, name)
		s.tables[name] = t
	}

	if err := s.check(); err != nil {
		return nil, err
	}
	return s, nil
}

func parseTable(name string, node *yaml.Node) (*Table, error) {
	if node.Kind != yaml.MappingNode {
		return nil, &apperr.SchemaError{Table: name, Reason: "must be a mapping of columns"}
	}
	t := &Table{Name: name}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i].Value, node.Content[i+1]
		var err error
		switch key {
		case KeyForeign:
			err = parseForeign(t, val)
		case KeyUnique:
			err = val.Decode(&t.Unique)
		case KeyHash:
			err = parseHash(t, val)
		case KeyMeta:
			err = val.Decode(&t.Meta)
		default:
			if val.Kind != yaml.ScalarNode {
				return nil, &apperr.SchemaError{Table: name, Reason: fmt.Sprintf("column %q must have a type string", key)}
			}
			t.Columns = append(t.Columns, Column{Name: key, Type: val.Value})
		}
		if err != nil {
			return nil, &apperr.SchemaError{Table: name, Reason: fmt.Sprintf("%s: %v", key, err)}
		}
	}
	return t, nil
}

func parseForeign(t *Table, node *yaml.Node) error {
	if node.Kind != yaml.SequenceNode {
		return fmt.Errorf("must be a list of links")
	}
	for _, link := range node.Content {
		if link.Kind != yaml.MappingNode {
			return fmt.Errorf("link must be a mapping")
		}
		for i := 0; i+1 < len(link.Content); i += 2 {
			local, target := link.Content[i].Value, link.Content[i+1].Value
			ref, col, ok := strings.Cut(target, ".")
			if !ok || ref == "" || col == "" {
				return fmt.Errorf("link %q must be table.column", target)
			}
			t.Foreign = append(t.Foreign, ForeignKey{Column: local, RefTable: ref, RefColumn: col})
		}
	}
	return nil
}

func parseHash(t *Table, node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("must be a mapping")
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		var sources []string
		if err := node.Content[i+1].Decode(&sources); err != nil {
			return err
		}
		t.Hashes = append(t.Hashes, HashSpec{Column: node.Content[i].Value, Sources: sources})
	}
	return nil
}

// check verifies that every referenced column is declared.
func (s *Scheme) check() error {
	for _, name := range s.order {
		t := s.tables[name]
		for _, fk := range t.Foreign {
			if !t.HasColumn(fk.Column) {
				return &apperr.SchemaError{Table: name, Reason: fmt.Sprintf("foreign column %q not declared", fk.Column)}
			}
			ref, ok := s.tables[fk.RefTable]
			if !ok {
				return &apperr.SchemaError{Table: name, Reason: fmt.Sprintf("references unknown table %q", fk.RefTable)}
			}
			if !ref.HasColumn(fk.RefColumn) {
				return &apperr.SchemaError{Table: name, Reason: fmt.Sprintf("references unknown column %s.%s", fk.RefTable, fk.RefColumn)}
			}
		}
		for _, group := range t.Unique {
			for _, c := range group {
				if !t.HasColumn(c) {
					return &apperr.SchemaError{Table: name, Reason: fmt.Sprintf("unique column %q not declared", c)}
				}
			}
		}
		for _, h := range t.Hashes {
			if !t.HasColumn(h.Column) {
				return &apperr.SchemaError{Table: name, Reason: fmt.Sprintf("hash column %q not declared", h.Column)}
			}
			for _, src := range h.Sources {
				if !t.HasColumn(src) {
					return &apperr.SchemaError{Table: name, Reason: fmt.Sprintf("hash source %q not declared", src)}
				}
			}
		}
	}
	return nil
}

// Tables returns table names in declared order.
func (s *Scheme) Tables() []string {
	return append([]string(nil), s.order...)
}

// Table returns the named table or a SchemaError.
func (s *Scheme) Table(name string) (*Table, error) {
	t, ok := s.tables[name]
	if !ok {
		return nil, &apperr.SchemaError{Table: name, Reason: "not declared in scheme"}
	}
	return t, nil
}
