// Package apperr defines the error taxonomy shared by the reconciliation core.
//
// Every error carries the identifiers an operator needs to fix the input and
// retry: table names, column names, device identities or project names.
// Callers match them with errors.As:
//
//	var short *apperr.InsufficientStockError
//	if errors.As(err, &short) {
//	    for _, s := range short.Shortfalls { ... }
//	}
package apperr
