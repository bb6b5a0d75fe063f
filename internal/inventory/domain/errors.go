package domain

import (
	"errors"
	"fmt"
)

// ErrMaterialNotFound is returned when a material key has no catalog entry.
var ErrMaterialNotFound = errors.New("material not found")

// ValidationError reports bad input shape or values. Never retried,
// surfaced verbatim to the caller.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// InsufficientStockError is the business-rule failure of an allocation
// request. It names exactly which line could not be met.
type InsufficientStockError struct {
	MaterialType string
	Length       int
	Requested    int
	Available    int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s length %d: requested %d, available %d",
		e.MaterialType, e.Length, e.Requested, e.Available)
}
