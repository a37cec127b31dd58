package apperr

import (
	"fmt"
	"strings"
)

// SchemaError reports a missing or malformed declarative scheme, or a table
// that the scheme does not declare.
type SchemaError struct {
	Table  string
	Reason string
}

func (e *SchemaError) Error() string {
	if e.Table == "" {
		return "scheme: " + e.Reason
	}
	return fmt.Sprintf("scheme: table %q: %s", e.Table, e.Reason)
}

// HashInputError reports hash source columns absent from a row set.
type HashInputError struct {
	Column  string
	Missing []string
}

func (e *HashInputError) Error() string {
	return fmt.Sprintf("cannot compute %s: missing source columns %s", e.Column, strings.Join(e.Missing, ", "))
}

// ValidationError reports required columns missing from an import or a join.
// Devices lists the identities affected when the failure is per device.
type ValidationError struct {
	Table   string
	Missing []string
	Devices []string
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("table %q: missing required columns %s", e.Table, strings.Join(e.Missing, ", "))
	if len(e.Devices) > 0 {
		msg += fmt.Sprintf(" (devices: %s)", strings.Join(e.Devices, ", "))
	}
	return msg
}

// ReconciliationConflictError is returned when a conflict needs an operator
// decision but no interactive decider is available.
type ReconciliationConflictError struct {
	DeviceID   string
	Field      string
	Candidates []string
}

func (e *ReconciliationConflictError) Error() string {
	return fmt.Sprintf("device %q: conflicting %s values need operator resolution: %s",
		e.DeviceID, e.Field, strings.Join(e.Candidates, " | "))
}

// TransactionIntegrityError wraps the failure of a multi-table write that was
// rolled back.
type TransactionIntegrityError struct {
	Operation string
	Err       error
}

func (e *TransactionIntegrityError) Error() string {
	return fmt.Sprintf("%s rolled back: %v", e.Operation, e.Err)
}

func (e *TransactionIntegrityError) Unwrap() error {
	return e.Err
}

// Shortfall is the stock deficit of a single device.
type Shortfall struct {
	Device    string
	Required  int
	Available int
}

// Missing returns how many parts are lacking.
func (s Shortfall) Missing() int {
	return s.Required - s.Available
}

// InsufficientStockError is returned when using or committing a project would
// drive a stock quantity below zero.
type InsufficientStockError struct {
	Project    string
	Shortfalls []Shortfall
}

func (e *InsufficientStockError) Error() string {
	parts := make([]string, 0, len(e.Shortfalls))
	for _, s := range e.Shortfalls {
		parts = append(parts, fmt.Sprintf("%s short by %d", s.Device, s.Missing()))
	}
	return fmt.Sprintf("project %q: insufficient stock: %s", e.Project, strings.Join(parts, ", "))
}
