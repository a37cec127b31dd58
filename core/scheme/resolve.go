package scheme

import (
	"fmt"
	"slices"

	"bom-manager/core/apperr"
)

// Resolution lists the columns an import into a table must and may supply,
// and the hash columns derived from them.
type Resolution struct {
	Table    string
	Required []string
	Optional []string
	Hashes   []HashSpec
}

// Columns returns required then optional columns.
func (r Resolution) Columns() []string {
	return append(append([]string(nil), r.Required...), r.Optional...)
}

// IsRequired reports whether column must be supplied.
func (r Resolution) IsRequired(column string) bool {
	return slices.Contains(r.Required, column)
}

// Resolve derives required, optional and hash columns for table by following
// its foreign keys transitively. It has no side effects.
func (s *Scheme) Resolve(table string) (Resolution, error) {
	r, err := s.resolve(table, map[string]bool{})
	if err != nil {
		return Resolution{}, err
	}
	r.Optional = slices.DeleteFunc(r.Optional, func(c string) bool {
		return slices.Contains(r.Required, c)
	})
	return r, nil
}

func (s *Scheme) resolve(name string, visiting map[string]bool) (Resolution, error) {
	t, err := s.Table(name)
	if err != nil {
		return Resolution{}, err
	}
	if visiting[name] {
		return Resolution{}, &apperr.SchemaError{Table: name, Reason: "foreign key cycle"}
	}
	visiting[name] = true
	defer delete(visiting, name)

	excluded := make(map[string]bool)
	for _, h := range t.Hashes {
		excluded[h.Column] = true
	}
	for _, m := range t.Meta {
		excluded[m] = true
	}
	unique := make(map[string]bool)
	for _, group := range t.Unique {
		for _, c := range group {
			unique[c] = true
		}
	}

	res := Resolution{Table: name, Hashes: append([]HashSpec(nil), t.Hashes...)}

	var subs []Resolution
	for _, fk := range t.Foreign {
		sub, err := s.resolve(fk.RefTable, visiting)
		if err != nil {
			return Resolution{}, fmt.Errorf("%s.%s: %w", name, fk.Column, err)
		}
		derived := false
		for _, h := range sub.Hashes {
			if h.Column == fk.RefColumn {
				res.Hashes = appendHash(res.Hashes, HashSpec{Column: fk.Column, Sources: h.Sources})
				derived = true
				continue
			}
			res.Hashes = appendHash(res.Hashes, h)
		}
		if derived {
			excluded[fk.Column] = true
		}
		subs = append(subs, sub)
	}

	for _, c := range t.Columns {
		if excluded[c.Name] {
			continue
		}
		if c.Required() || unique[c.Name] {
			res.Required = appendUnique(res.Required, c.Name)
		} else {
			res.Optional = appendUnique(res.Optional, c.Name)
		}
	}
	for _, sub := range subs {
		for _, c := range sub.Required {
			res.Required = appendUnique(res.Required, c)
		}
		for _, c := range sub.Optional {
			res.Optional = appendUnique(res.Optional, c)
		}
	}
	return res, nil
}

// Reference is a foreign key seen from the referenced table.
type Reference struct {
	Table     string
	Column    string
	RefTable  string
	RefColumn string
}

// Dependents returns every table referencing table, directly or
// transitively, ordered so that a table always precedes the tables it
// references.
func (s *Scheme) Dependents(table string) ([]Reference, error) {
	if _, err := s.Table(table); err != nil {
		return nil, err
	}
	var out []Reference
	seen := map[string]bool{table: true}
	var walk func(name string)
	walk = func(name string) {
		for _, other := range s.order {
			for _, fk := range s.tables[other].Foreign {
				if fk.RefTable != name || seen[other] {
					continue
				}
				seen[other] = true
				walk(other)
				out = append(out, Reference{Table: other, Column: fk.Column, RefTable: name, RefColumn: fk.RefColumn})
			}
		}
	}
	walk(table)
	return out, nil
}

func appendUnique(list []string, v string) []string {
	if slices.Contains(list, v) {
		return list
	}
	return append(list, v)
}

func appendHash(list []HashSpec, h HashSpec) []HashSpec {
	for _, existing := range list {
		if existing.Column == h.Column {
			return list
		}
	}
	return append(list, h)
}
