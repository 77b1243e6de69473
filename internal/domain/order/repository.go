package order

import "context"

// Repository persists orders and their status history.
//
// CreateAll persists every order together with its initial waiting record as
// one all-or-nothing batch: no order ever exists without a status, and no
// partial vendor subset is ever committed.
type Repository interface {
	CreateAll(ctx context.Context, orders []*Order) error
	Get(ctx context.Context, id string) (*Order, error)
	AppendStatus(ctx context.Context, rec StatusRecord) error
	StatusHistory(ctx context.Context, orderID string) ([]StatusRecord, error)
}
