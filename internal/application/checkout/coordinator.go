package checkout

import (
	"context"

	dominv "github.com/whatseat/fulfillment/internal/domain/inventory"
	domain "github.com/whatseat/fulfillment/internal/domain/order"
	"github.com/whatseat/fulfillment/internal/observability"
	"github.com/whatseat/fulfillment/internal/observability/logctx"
)

type CommitInput struct {
	CustomerID        string
	ShippingProfileID string
	PaymentMethodID   string
	Drafts            []*domain.Draft
}

// Coordinator turns drafts into committed orders. The checkout is
// all-or-nothing across vendors: one deduction batch covers every draft, and
// a single losing decrement aborts even the vendors whose stock was fine.
type Coordinator struct {
	ledger dominv.Ledger
	orders domain.Repository
	ids    IDGenerator
	log    observability.Logger
}

func NewCoordinator(ledger dominv.Ledger, orders domain.Repository, ids IDGenerator, logger observability.Logger) *Coordinator {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Coordinator{
		ledger: ledger,
		orders: orders,
		ids:    ids,
		log:    logger.With(observability.F("component", "coordinator")),
	}
}

// Commit reserves stock for every line, then persists each draft as an order
// with its initial waiting record. If persistence fails after a successful
// reservation the stock is released before the error surfaces, so stock is
// never consumed by an order that does not exist. Output preserves the
// drafts' vendor order.
func (c *Coordinator) Commit(ctx context.Context, in CommitInput) ([]*domain.Order, error) {
	logger := logctx.FromOr(ctx, c.log)

	deductions := flattenDeductions(in.Drafts)
	if err := c.ledger.ReserveAll(ctx, deductions); err != nil {
		return nil, err
	}

	orders := make([]*domain.Order, 0, len(in.Drafts))
	for _, draft := range in.Drafts {
		o, err := domain.New(
			c.ids.NewID(),
			in.CustomerID,
			draft.VendorID,
			in.ShippingProfileID,
			in.PaymentMethodID,
			draft.ShippingFee,
			draft.Lines,
		)
		if err != nil {
			c.release(ctx, deductions)
			return nil, err
		}
		orders = append(orders, o)
	}

	if err := c.orders.CreateAll(ctx, orders); err != nil {
		logger.Error("order_persist_failed",
			observability.F("orders", len(orders)),
			observability.F("error", err),
		)
		c.release(ctx, deductions)
		return nil, &PersistenceError{Cause: err}
	}

	return orders, nil
}

// release compensates a reservation. A failure here means stock is leaked
// until reconciled, so it is logged at error level with the full batch.
func (c *Coordinator) release(ctx context.Context, deductions []dominv.Deduction) {
	// Detach so compensation still runs when the request context is gone.
	releaseCtx := context.WithoutCancel(ctx)
	if err := c.ledger.Release(releaseCtx, deductions); err != nil {
		logctx.FromOr(ctx, c.log).Error("stock_release_failed",
			observability.F("deductions", len(deductions)),
			observability.F("error", err),
		)
	}
}

// flattenDeductions merges every draft's lines into one batch, summing
// quantities per product in first-seen order.
func flattenDeductions(drafts []*domain.Draft) []dominv.Deduction {
	var out []dominv.Deduction
	index := make(map[string]int)
	for _, draft := range drafts {
		for _, line := range draft.Lines {
			if i, ok := index[line.ProductID]; ok {
				out[i].Quantity += line.Quantity
				continue
			}
			out = append(out, dominv.Deduction{ProductID: line.ProductID, Quantity: line.Quantity})
			index[line.ProductID] = len(out) - 1
		}
	}
	return out
}
