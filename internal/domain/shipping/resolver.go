package shipping

import (
	"context"
	"errors"
	"fmt"
)

var ErrFeeUnavailable = errors.New("shipping: fee unavailable")

// FeeResolver quotes the delivery fee between two location codes for a
// service tier. A negative fee, a transport error, and a timeout are all
// treated identically as failure by callers.
type FeeResolver interface {
	Quote(ctx context.Context, originCode, destCode string, serviceID int) (int64, error)
}

// FeeUnavailableError names the vendor whose quote failed so the checkout
// response can identify it.
type FeeUnavailableError struct {
	VendorID string
	Cause    error
}

func (e *FeeUnavailableError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("shipping: fee unavailable for vendor %s: %v", e.VendorID, e.Cause)
	}
	return fmt.Sprintf("shipping: fee unavailable for vendor %s", e.VendorID)
}

func (e *FeeUnavailableError) Unwrap() error { return e.Cause }

func (e *FeeUnavailableError) Is(target error) bool { return target == ErrFeeUnavailable }
