package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTransactionIntegrityError_Unwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := fmt.Errorf("commit: %w", &TransactionIntegrityError{Operation: "commit", Err: cause})

	var tie *TransactionIntegrityError
	assert.True(t, errors.As(err, &tie))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "commit rolled back: disk full")
}

func TestInsufficientStockError_Message(t *testing.T) {
	err := &InsufficientStockError{
		Project: "amp",
		Shortfalls: []Shortfall{
			{Device: "r1", Required: 5, Available: 2},
		},
	}
	assert.Equal(t, 3, err.Shortfalls[0].Missing())
	assert.Equal(t, `project "amp": insufficient stock: r1 short by 3`, err.Error())
}

func TestValidationError_Message(t *testing.T) {
	err := &ValidationError{Table: "bom", Missing: []string{"quantity"}}
	assert.Equal(t, `table "bom": missing required columns quantity`, err.Error())

	err.Devices = []string{"abc"}
	assert.Contains(t, err.Error(), "(devices: abc)")
}
