// Package device administers device master data.
package device

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"bom-manager/core/identity"
	"bom-manager/core/plan"
	"bom-manager/core/store"
	"bom-manager/core/utils"
)

const (
	// Table holds device master data.
	Table      = "device"
	hashColumn = "device_hash"
)

// InUseError is returned when removing devices that other tables still
// reference and the removal is not forced.
type InUseError struct {
	Devices []string
	// Tables maps each referencing table to its row count.
	Tables map[string]int
}

func (e *InUseError) Error() string {
	names := make([]string, 0, len(e.Tables))
	for t := range e.Tables {
		names = append(names, t)
	}
	sort.Strings(names)
	refs := make([]string, len(names))
	for i, t := range names {
		refs[i] = fmt.Sprintf("%s (%d rows)", t, e.Tables[t])
	}
	return fmt.Sprintf("devices %s are referenced by %s; use force to remove them everywhere",
		strings.Join(e.Devices, ", "), strings.Join(refs, ", "))
}

// Find returns the identities of devices named id. A non-empty manufacturer
// narrows the match.
func Find(ctx context.Context, st *store.Store, id, manufacturer string) ([]identity.Key, error) {
	rows, err := st.Get(ctx, Table, store.Query{By: "device_id", Values: []any{id}})
	if err != nil {
		return nil, err
	}
	var keys []identity.Key
	for _, r := range rows {
		if manufacturer != "" && !strings.EqualFold(utils.ToString(r["device_manufacturer"]), manufacturer) {
			continue
		}
		k, err := identity.From(r[hashColumn])
		if err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("no device %q found", id)
	}
	return keys, nil
}

type selection struct {
	column string
	values []any
}

// PlanRemoval plans deleting the devices hashes. Rows referencing them are
// removed first, leaf tables before the tables they reference, and the
// device rows last. Without force a referenced device fails with an
// InUseError and nothing is planned.
func PlanRemoval(ctx context.Context, st *store.Store, hashes []identity.Key, force bool) (*plan.Plan, error) {
	if len(hashes) == 0 {
		return nil, fmt.Errorf("no devices to remove")
	}
	refs, err := st.Scheme().Dependents(Table)
	if err != nil {
		return nil, err
	}

	values := make([]any, len(hashes))
	for i, h := range hashes {
		values[i] = h
	}
	selected := map[string]selection{Table: {column: hashColumn, values: values}}

	// Dependents lists leaf tables first; parents must be resolved before
	// their children.
	for i := len(refs) - 1; i >= 0; i-- {
		ref := refs[i]
		parent, ok := selected[ref.RefTable]
		if !ok {
			continue
		}
		keys := parent.values
		if parent.column != ref.RefColumn {
			rows, err := st.Get(ctx, ref.RefTable, store.Query{By: parent.column, Values: parent.values, Columns: []string{ref.RefColumn}})
			if err != nil {
				return nil, err
			}
			keys = make([]any, 0, len(rows))
			for _, r := range rows {
				keys = append(keys, r[ref.RefColumn])
			}
		}
		selected[ref.Table] = selection{column: ref.Column, values: keys}
	}

	inUse := map[string]int{}
	for _, ref := range refs {
		sel, ok := selected[ref.Table]
		if !ok || len(sel.values) == 0 {
			continue
		}
		rows, err := st.Get(ctx, ref.Table, store.Query{By: sel.column, Values: sel.values, Columns: []string{sel.column}})
		if err != nil {
			return nil, err
		}
		if len(rows) > 0 {
			inUse[ref.Table] = len(rows)
		}
	}
	if len(inUse) > 0 && !force {
		devices := make([]string, len(hashes))
		for i, h := range hashes {
			devices[i] = h.String()
		}
		return nil, &InUseError{Devices: devices, Tables: inUse}
	}

	p := plan.New("remove devices")
	for _, ref := range refs {
		if n, ok := inUse[ref.Table]; ok {
			sel := selected[ref.Table]
			p.Remove(ref.Table, sel.column, sel.values, fmt.Sprintf("%d referencing rows", n))
		}
	}
	p.Remove(Table, hashColumn, values, "device master data")
	return p, nil
}
