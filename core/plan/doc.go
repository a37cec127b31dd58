// Package plan describes multi-table writes as a list of actions that are
// built first and executed later, all or nothing.
//
// Operations such as committing a project or merging two devices first
// compute a Plan, which can be printed or inspected (dry run), and only then
// apply it. Apply runs every action inside one store transaction; a failing
// action rolls back the whole plan and surfaces as a
// apperr.TransactionIntegrityError.
//
// # Usage Example
//
//	p := plan.New("commit amp")
//	p.Remove("stock", "device_hash", emptied, "quantity reached zero")
//	p.Put("stock", updated, store.ReplaceRow, "consume project demand")
//
//	res, err := plan.Apply(ctx, st, p, plan.Options{Confirmed: true})
package plan
