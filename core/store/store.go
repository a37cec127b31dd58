package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"bom-manager/core/apperr"
	"bom-manager/core/database"
	"bom-manager/core/identity"
	"bom-manager/core/scheme"
	"bom-manager/core/table"
	"bom-manager/core/utils"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Mode selects what Put does when a row's conflict key already exists.
type Mode int

const (
	// Replace overwrites the stored row with the supplied columns.
	Replace Mode = iota
	// Add sums the named columns into the stored row and overwrites the rest.
	Add
	// Ignore keeps the stored row untouched.
	Ignore
	// Fail aborts the put with a ConflictError.
	Fail
)

// Conflict is an on-conflict policy.
type Conflict struct {
	Mode    Mode
	Columns []string
}

var (
	ReplaceRow = Conflict{Mode: Replace}
	IgnoreRow  = Conflict{Mode: Ignore}
	FailRow    = Conflict{Mode: Fail}
)

// AddTo returns a policy adding columns on conflict.
func AddTo(columns ...string) Conflict {
	return Conflict{Mode: Add, Columns: columns}
}

// ConflictError is returned by Put under the Fail policy.
type ConflictError struct {
	Table string
	Key   map[string]any
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("table %q: row with key %v already exists", e.Table, e.Key)
}

// PutResult counts what Put did.
type PutResult struct {
	Inserted int
	Updated  int
	Skipped  int
}

// Query selects rows for Get.
type Query struct {
	// Columns restricts the result; empty means every column.
	Columns []string
	// By is the search column matched against Values.
	By     string
	Values []any
	// Follow joins tables referenced by foreign keys, exposing their columns.
	Follow bool
	// OrderBy sorts ascending by these columns; empty sorts by the table's
	// conflict key so repeated reads return rows in the same order.
	OrderBy []string
}

// Store is the persistence adapter over a relational database described by a
// declarative scheme.
type Store struct {
	db     *gorm.DB
	scheme *scheme.Scheme
}

// New wraps db with the given scheme.
func New(db *gorm.DB, sch *scheme.Scheme) *Store {
	return &Store{db: db, scheme: sch}
}

// Scheme returns the scheme the store was built with.
func (s *Store) Scheme() *scheme.Scheme {
	return s.scheme
}

// Transaction runs fn against a store bound to one database transaction.
// Any error returned by fn, or a panic, rolls every write back.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx, scheme: s.scheme})
	})
}

// Migrate creates missing tables and checks that existing ones carry every
// declared column.
func (s *Store) Migrate(ctx context.Context) error {
	db := s.db.WithContext(ctx)
	for _, name := range s.scheme.Tables() {
		t, err := s.scheme.Table(name)
		if err != nil {
			return err
		}
		if !db.Migrator().HasTable(name) {
			if err := db.Exec(CreateTableSQL(t)).Error; err != nil {
				return fmt.Errorf("failed to create table %s: %w", name, err)
			}
			continue
		}
		cols, err := database.GetTableColumns(db, name)
		if err != nil {
			return err
		}
		present := make(map[string]bool, len(cols))
		for _, c := range cols {
			present[c.Field] = true
		}
		var missing []string
		for _, c := range t.Columns {
			if !present[strings.ToLower(c.Name)] {
				missing = append(missing, c.Name)
			}
		}
		if len(missing) > 0 {
			return &apperr.SchemaError{Table: name, Reason: "existing table lacks columns " + strings.Join(missing, ", ")}
		}
	}
	return nil
}

// CreateTableSQL renders the DDL for t. FOREIGN links carry no database
// constraint: rows naming a missing device must stay storable so reads can
// report them.
func CreateTableSQL(t *scheme.Table) string {
	defs := make([]string, 0, len(t.Columns)+len(t.Unique))
	for _, c := range t.Columns {
		defs = append(defs, c.Name+" "+c.Type)
	}
	for _, group := range t.Unique {
		defs = append(defs, "UNIQUE ("+strings.Join(group, ", ")+")")
	}
	return fmt.Sprintf("CREATE TABLE %s (\n  %s\n)", t.Name, strings.Join(defs, ",\n  "))
}

// Get returns rows of name matching q.
func (s *Store) Get(ctx context.Context, name string, q Query) ([]table.Row, error) {
	t, err := s.scheme.Table(name)
	if err != nil {
		return nil, err
	}

	owner := map[string]string{}
	for _, c := range t.Columns {
		owner[c.Name] = name
	}
	tx := s.db.WithContext(ctx).Table(name)
	if q.Follow {
		for _, fk := range t.Foreign {
			ref, err := s.scheme.Table(fk.RefTable)
			if err != nil {
				return nil, err
			}
			tx = tx.Joins(fmt.Sprintf("LEFT JOIN %s ON %s.%s = %s.%s", ref.Name, ref.Name, fk.RefColumn, name, fk.Column))
			for _, c := range ref.Columns {
				if _, taken := owner[c.Name]; !taken {
					owner[c.Name] = ref.Name
				}
			}
		}
	}

	columns := q.Columns
	if len(columns) == 0 {
		columns = t.ColumnNames()
		if q.Follow {
			for c, o := range owner {
				if o != name {
					columns = append(columns, c)
				}
			}
		}
	}
	selects := make([]string, 0, len(columns))
	for _, c := range columns {
		o, ok := owner[c]
		if !ok {
			return nil, &apperr.ValidationError{Table: name, Missing: []string{c}}
		}
		selects = append(selects, fmt.Sprintf("%s.%s AS %s", o, c, c))
	}
	tx = tx.Select(strings.Join(selects, ", "))

	if q.By != "" {
		o, ok := owner[q.By]
		if !ok {
			return nil, &apperr.ValidationError{Table: name, Missing: []string{q.By}}
		}
		tx = tx.Where(fmt.Sprintf("%s.%s IN ?", o, q.By), dbValues(q.Values))
	}

	order := q.OrderBy
	if len(order) == 0 {
		order = t.ConflictKey()
	}
	for _, c := range order {
		o, ok := owner[c]
		if !ok {
			return nil, &apperr.ValidationError{Table: name, Missing: []string{c}}
		}
		tx = tx.Order(o + "." + c)
	}

	var raw []map[string]any
	if err := tx.Find(&raw).Error; err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	rows := make([]table.Row, len(raw))
	for i, r := range raw {
		row := make(table.Row, len(r))
		for k, v := range r {
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			row[k] = v
		}
		rows[i] = row
	}
	return rows, nil
}

// Put writes rows into name. Columns not declared by the table are ignored.
func (s *Store) Put(ctx context.Context, name string, rows []table.Row, policy Conflict) (PutResult, error) {
	var res PutResult
	t, err := s.scheme.Table(name)
	if err != nil {
		return res, err
	}
	key := t.ConflictKey()

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, r := range rows {
			values := make(map[string]any, len(t.Columns))
			for _, c := range t.Columns {
				if v, ok := r[c.Name]; ok {
					values[c.Name] = dbValue(v)
				}
			}
			if len(key) == 0 {
				if err := tx.Table(name).Create(values).Error; err != nil {
					return fmt.Errorf("failed to insert into %s: %w", name, err)
				}
				res.Inserted++
				continue
			}

			where := make(map[string]any, len(key))
			for _, c := range key {
				where[c] = values[c]
			}
			var existing []map[string]any
			if err := tx.Table(name).Where(where).Limit(1).Find(&existing).Error; err != nil {
				return fmt.Errorf("failed to read %s: %w", name, err)
			}
			if len(existing) == 0 {
				if err := tx.Table(name).Create(values).Error; err != nil {
					return fmt.Errorf("failed to insert into %s: %w", name, err)
				}
				res.Inserted++
				continue
			}

			switch policy.Mode {
			case Ignore:
				res.Skipped++
				continue
			case Fail:
				return &ConflictError{Table: name, Key: where}
			case Add:
				for _, c := range policy.Columns {
					values[c] = addValues(existing[0][c], values[c])
				}
			}
			if err := tx.Table(name).Where(where).Updates(values).Error; err != nil {
				return fmt.Errorf("failed to update %s: %w", name, err)
			}
			res.Updated++
		}
		return nil
	})
	if err != nil {
		return PutResult{}, err
	}
	return res, nil
}

// Remove deletes the rows of name whose column matches one of values.
func (s *Store) Remove(ctx context.Context, name, column string, values []any) (int64, error) {
	t, err := s.scheme.Table(name)
	if err != nil {
		return 0, err
	}
	if !t.HasColumn(column) {
		return 0, &apperr.ValidationError{Table: name, Missing: []string{column}}
	}
	if len(values) == 0 {
		return 0, nil
	}
	result := s.db.WithContext(ctx).Exec(fmt.Sprintf("DELETE FROM %s WHERE %s IN ?", name, column), dbValues(values))
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete from %s: %w", name, result.Error)
	}
	return result.RowsAffected, nil
}

// Count returns the number of rows in name.
func (s *Store) Count(ctx context.Context, name string) (int64, error) {
	if _, err := s.scheme.Table(name); err != nil {
		return 0, err
	}
	var n int64
	if err := s.db.WithContext(ctx).Table(name).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", name, err)
	}
	return n, nil
}

// IsConflict reports whether err is a ConflictError.
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}

// dbValue converts cell values to driver-friendly primitives.
func dbValue(v any) any {
	switch x := v.(type) {
	case identity.Key:
		return x.String()
	case decimal.Decimal:
		return x.String()
	default:
		return v
	}
}

func dbValues(values []any) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = dbValue(v)
	}
	return out
}

// addValues sums two numeric cells; decimals stay decimal.
func addValues(stored, added any) any {
	if table.IsNA(stored) {
		return added
	}
	if table.IsNA(added) {
		return stored
	}
	switch added.(type) {
	case int, int64, int32:
		return utils.ToInt(stored) + utils.ToInt(added)
	}
	a, okA := utils.ToDecimal(stored)
	b, okB := utils.ToDecimal(added)
	if okA && okB {
		return a.Add(b).String()
	}
	return added
}
