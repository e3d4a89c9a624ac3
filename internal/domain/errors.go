package domain

import (
	"errors"
	"fmt"
)

// ErrStorageDisabled is returned by every operation that needs persistence
// when the database was not configured. Callers degrade gracefully instead of
// crashing.
var ErrStorageDisabled = errors.New("storage is not configured")

// ErrProformaNotFound is returned when a proforma lookup yields no row
var ErrProformaNotFound = errors.New("proforma not found")

// ErrTransactionNotFound is returned when a transaction lookup yields no row
var ErrTransactionNotFound = errors.New("transaction not found")

// ValidationError rejects a manual review action with a user-facing message
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func NewValidationError(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}
