package memory

import (
	"context"
	"fmt"
	"sync"

	domain "github.com/whatseat/fulfillment/internal/domain/order"
)

type OrderRepository struct {
	mu      sync.RWMutex
	orders  map[string]*domain.Order
	history map[string][]domain.StatusRecord

	// failCreate forces CreateAll to fail. Tests use it to exercise the
	// coordinator's compensation path.
	failCreate error
}

func NewOrderRepository() *OrderRepository {
	return &OrderRepository{
		orders:  make(map[string]*domain.Order),
		history: make(map[string][]domain.StatusRecord),
	}
}

// FailCreateAll makes every subsequent CreateAll return err (nil to reset).
func (r *OrderRepository) FailCreateAll(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failCreate = err
}

// CreateAll persists the batch with one waiting record per order, holding the
// write lock for the whole batch so it is all-or-nothing.
func (r *OrderRepository) CreateAll(ctx context.Context, orders []*domain.Order) error {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failCreate != nil {
		return r.failCreate
	}

	for _, o := range orders {
		if o == nil || o.ID == "" {
			return fmt.Errorf("order repository: id is required")
		}
		if _, exists := r.orders[o.ID]; exists {
			return domain.ErrConflict
		}
	}

	for _, o := range orders {
		r.orders[o.ID] = o.Clone()
		r.history[o.ID] = append(r.history[o.ID], domain.NewStatusRecord(o.ID, domain.StatusWaiting, ""))
	}
	return nil
}

func (r *OrderRepository) Get(ctx context.Context, id string) (*domain.Order, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	o, ok := r.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return o.Clone(), nil
}

func (r *OrderRepository) AppendStatus(ctx context.Context, rec domain.StatusRecord) error {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.orders[rec.OrderID]; !ok {
		return domain.ErrNotFound
	}
	r.history[rec.OrderID] = append(r.history[rec.OrderID], rec)
	return nil
}

func (r *OrderRepository) StatusHistory(ctx context.Context, orderID string) ([]domain.StatusRecord, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	history, ok := r.history[orderID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return append([]domain.StatusRecord(nil), history...), nil
}
