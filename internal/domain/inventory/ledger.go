package inventory

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrProductNotFound   = errors.New("inventory: product not found")
	ErrInvalidQuantity   = errors.New("inventory: quantity must be greater than zero")
	ErrInsufficientStock = errors.New("inventory: insufficient stock")
)

// Deduction is one product's share of a reservation batch.
type Deduction struct {
	ProductID string
	Quantity  int
}

// Ledger is the only component allowed to mutate stock. ReserveAll applies
// every deduction as a single atomic group: each decrement succeeds only if
// the product still holds at least the requested quantity at the moment of
// the write, and a single failure leaves the whole batch unapplied.
//
// Release is the compensating credit used when a commit fails after a
// successful reservation.
type Ledger interface {
	ReserveAll(ctx context.Context, deductions []Deduction) error
	Release(ctx context.Context, deductions []Deduction) error
}

// InsufficientStockError identifies the product that lost the race and the
// quantities involved. Matchable via errors.Is(err, ErrInsufficientStock).
type InsufficientStockError struct {
	ProductID string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("inventory: insufficient stock for %s: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}

func (e *InsufficientStockError) Is(target error) bool { return target == ErrInsufficientStock }
