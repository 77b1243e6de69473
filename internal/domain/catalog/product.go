package catalog

import (
	"errors"
	"fmt"
)

var ErrProductNotFound = errors.New("catalog: product not found")

// Product is the catalog's view of a sellable item. Stock is read here but
// mutated exclusively through the inventory ledger.
type Product struct {
	ProductID  string
	VendorID   string
	Name       string
	UnitPrice  int64
	InStock    int
	OriginCode string
}

// ProductNotFoundError carries the offending product id so the checkout
// response can identify it.
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("catalog: product %s not found", e.ProductID)
}

func (e *ProductNotFoundError) Is(target error) bool { return target == ErrProductNotFound }
