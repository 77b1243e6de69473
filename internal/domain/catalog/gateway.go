package catalog

import "context"

// Gateway resolves a product id to its current attributes. Read-only from the
// checkout core's perspective.
type Gateway interface {
	GetProduct(ctx context.Context, productID string) (*Product, error)
}
