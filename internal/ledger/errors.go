package ledger

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by store reads when no row matches.
var ErrNotFound = errors.New("not found")

// ValidationError reports a store/ledger consistency violation. The
// triggering operation is rolled back in full; nothing partial is visible.
type ValidationError struct {
	SKU     string
	Message string
}

func (e *ValidationError) Error() string {
	if e.SKU != "" {
		return fmt.Sprintf("validation failed for %s: %s", e.SKU, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// InsufficientStockError is an expected order-processing outcome: a line item
// requested more than is on hand. The whole order is rejected.
type InsufficientStockError struct {
	SKU       string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: available %d, requested %d",
		e.SKU, e.Available, e.Requested)
}

// UnknownSKUError is an expected order-processing outcome: a line item named
// a SKU that is not in the catalog.
type UnknownSKUError struct {
	SKU string
}

func (e *UnknownSKUError) Error() string {
	return fmt.Sprintf("unknown sku: %s", e.SKU)
}

// SyncItemError is an isolated per-SKU failure inside a sync batch. The
// batch records it and continues with the remaining items.
type SyncItemError struct {
	SKU string
	Err error
}

func (e *SyncItemError) Error() string {
	return fmt.Sprintf("sync failed for %s: %v", e.SKU, e.Err)
}

func (e *SyncItemError) Unwrap() error { return e.Err }

// RuleActionError is an isolated per-rule failure during evaluation. It is
// reported as an alert; the remaining rules still run.
type RuleActionError struct {
	Rule string
	SKU  string
	Err  error
}

func (e *RuleActionError) Error() string {
	return fmt.Sprintf("rule %s failed for %s: %v", e.Rule, e.SKU, e.Err)
}

func (e *RuleActionError) Unwrap() error { return e.Err }

// IsInsufficientStock reports whether err is an InsufficientStockError.
// Uses errors.As to handle wrapped errors.
func IsInsufficientStock(err error) bool {
	var e *InsufficientStockError
	return errors.As(err, &e)
}

// IsUnknownSKU reports whether err is an UnknownSKUError.
func IsUnknownSKU(err error) bool {
	var e *UnknownSKUError
	return errors.As(err, &e)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var e *ValidationError
	return errors.As(err, &e)
}

// IsNotFound reports whether err wraps ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
