package plan

import (
	"context"
	"fmt"

	"bom-manager/core/apperr"
	"bom-manager/core/store"
	"bom-manager/core/table"
)

// Plan is an ordered list of actions belonging to one operation.
type Plan struct {
	Operation string   `json:"operation"`
	Actions   []Action `json:"actions"`
}

// New returns an empty plan for operation.
func New(operation string) *Plan {
	return &Plan{Operation: operation}
}

// Remove appends a remove action. Empty value lists are dropped.
func (p *Plan) Remove(tableName, column string, values []any, reason string) *Plan {
	if len(values) == 0 {
		return p
	}
	p.Actions = append(p.Actions, Action{
		Type:   ActionRemove,
		Table:  tableName,
		Column: column,
		Values: values,
		Reason: reason,
	})
	return p
}

// Put appends a put action. Empty row sets are dropped.
func (p *Plan) Put(tableName string, rows []table.Row, policy store.Conflict, reason string) *Plan {
	if len(rows) == 0 {
		return p
	}
	p.Actions = append(p.Actions, Action{
		Type:   ActionPut,
		Table:  tableName,
		Rows:   rows,
		Policy: policy,
		Reason: reason,
	})
	return p
}

// Merge appends the actions of other after those of p.
func (p *Plan) Merge(other *Plan) *Plan {
	if other != nil {
		p.Actions = append(p.Actions, other.Actions...)
	}
	return p
}

// Empty reports whether the plan has nothing to do.
func (p *Plan) Empty() bool {
	return len(p.Actions) == 0
}

// Summary returns aggregate counts of the plan.
func (p *Plan) Summary() Summary {
	var s Summary
	tables := map[string]struct{}{}
	for _, a := range p.Actions {
		tables[a.Table] = struct{}{}
		switch a.Type {
		case ActionRemove:
			s.Removes++
			s.RemoveKeys += len(a.Values)
		case ActionPut:
			s.Puts++
			s.PutRows += len(a.Rows)
		}
	}
	s.Tables = len(tables)
	return s
}

// Apply executes the plan in a single transaction.
// Requires opts.Confirmed=true and opts.DryRun=false to actually execute.
func Apply(ctx context.Context, s *store.Store, p *Plan, opts Options) (Result, error) {
	// Safety check: do not execute if not confirmed or dry-run
	if !opts.Confirmed || opts.DryRun || p.Empty() {
		return Result{}, nil
	}

	var res Result
	err := s.Transaction(ctx, func(tx *store.Store) error {
		var err error
		res, err = Execute(ctx, tx, p)
		return err
	})
	if err != nil {
		return Result{}, &apperr.TransactionIntegrityError{Operation: p.Operation, Err: err}
	}
	return res, nil
}

// Execute runs the actions against s without opening a transaction of its
// own. Callers composing several plans pass the store of an enclosing
// Transaction.
func Execute(ctx context.Context, s *store.Store, p *Plan) (Result, error) {
	var res Result
	for i, a := range p.Actions {
		switch a.Type {
		case ActionRemove:
			n, err := s.Remove(ctx, a.Table, a.Column, a.Values)
			if err != nil {
				return res, fmt.Errorf("action %d (remove %s): %w", i, a.Table, err)
			}
			res.Removed += n
		case ActionPut:
			put, err := s.Put(ctx, a.Table, a.Rows, a.Policy)
			if err != nil {
				return res, fmt.Errorf("action %d (put %s): %w", i, a.Table, err)
			}
			res.Inserted += put.Inserted
			res.Updated += put.Updated
			res.Skipped += put.Skipped
		default:
			return res, fmt.Errorf("action %d: unknown type %q", i, a.Type)
		}
		res.Executed++
	}
	return res, nil
}
