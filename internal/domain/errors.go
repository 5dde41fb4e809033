package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Category sentinels. Specific errors wrap these so callers can match a
// whole category with errors.Is without knowing every concrete failure.
var (
	ErrValidation = errors.New("invalid request")
	ErrConflict   = errors.New("transaction conflict, retry the command")
)

// Validation errors, all matching ErrValidation.
var (
	ErrEmptyLines          = validationErr("movement needs at least one line")
	ErrMissingActor        = validationErr("actor id is required")
	ErrMissingWarehouse    = validationErr("movement kind requires a warehouse")
	ErrSameWarehouse       = validationErr("origin and destination warehouse must differ")
	ErrNonPositiveQuantity = validationErr("line quantity must be positive")
	ErrNegativeTarget      = validationErr("target balance cannot be negative")
	ErrReasonRequired      = validationErr("adjustment requires a reason")
	ErrNoopAdjustment      = validationErr("adjustment changes nothing, no movement recorded")
	ErrItemInactive        = validationErr("item is inactive")
	ErrInvalidPeriod       = validationErr("period start must not be after its end")
)

// Not-found errors.
var (
	ErrMovementNotFound  = errors.New("movement not found")
	ErrItemNotFound      = errors.New("item not found")
	ErrWarehouseNotFound = errors.New("warehouse not found")
)

// ErrInsufficientStock is the match target for InsufficientStockError.
var ErrInsufficientStock = errors.New("insufficient stock")

func validationErr(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}

// InsufficientStockError reports the first line of an exit or transfer
// whose requested quantity exceeds the locked balance. It matches
// ErrInsufficientStock via errors.Is.
type InsufficientStockError struct {
	ItemID      string
	WarehouseID string
	Available   decimal.Decimal
	Requested   decimal.Decimal
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock of item %s in warehouse %s: available %s, requested %s",
		e.ItemID, e.WarehouseID, e.Available, e.Requested)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// StoreError wraps an unexpected persistence failure. Conflicts and
// not-found conditions are mapped to their own errors before this applies.
type StoreError struct {
	Err error
	Op  string
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}
