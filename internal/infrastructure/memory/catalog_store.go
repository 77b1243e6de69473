package memory

import (
	"context"
	"sync"

	domcatalog "github.com/whatseat/fulfillment/internal/domain/catalog"
	dominv "github.com/whatseat/fulfillment/internal/domain/inventory"
)

// CatalogStore is an in-memory catalog that doubles as the inventory ledger:
// both views share one mutex, so a reservation batch is applied as a single
// atomic group and reads never observe a half-applied batch.
type CatalogStore struct {
	mu       sync.RWMutex
	products map[string]*domcatalog.Product
}

func NewCatalogStore() *CatalogStore {
	return &CatalogStore{products: make(map[string]*domcatalog.Product)}
}

// Put seeds or replaces a product. Intended for wiring and tests.
func (s *CatalogStore) Put(p *domcatalog.Product) {
	if p == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ProductID] = cloneProduct(p)
}

func (s *CatalogStore) GetProduct(ctx context.Context, productID string) (*domcatalog.Product, error) {
	_ = ctx

	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[productID]
	if !ok {
		return nil, domcatalog.ErrProductNotFound
	}
	return cloneProduct(p), nil
}

// ReserveAll validates the whole batch under the write lock before mutating
// anything: either every decrement applies or none does. Demand is summed per
// product so a batch naming the same product twice is checked against stock
// cumulatively, never row by row.
func (s *CatalogStore) ReserveAll(ctx context.Context, deductions []dominv.Deduction) error {
	_ = ctx

	s.mu.Lock()
	defer s.mu.Unlock()

	demand := make(map[string]int, len(deductions))
	for _, d := range deductions {
		if d.Quantity <= 0 {
			return dominv.ErrInvalidQuantity
		}
		p, ok := s.products[d.ProductID]
		if !ok {
			return dominv.ErrProductNotFound
		}
		demand[d.ProductID] += d.Quantity
		if p.InStock < demand[d.ProductID] {
			return &dominv.InsufficientStockError{
				ProductID: d.ProductID,
				Requested: demand[d.ProductID],
				Available: p.InStock,
			}
		}
	}

	for _, d := range deductions {
		s.products[d.ProductID].InStock -= d.Quantity
	}
	return nil
}

// Release credits a previously reserved batch back.
func (s *CatalogStore) Release(ctx context.Context, deductions []dominv.Deduction) error {
	_ = ctx

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, d := range deductions {
		p, ok := s.products[d.ProductID]
		if !ok {
			return dominv.ErrProductNotFound
		}
		p.InStock += d.Quantity
	}
	return nil
}

func cloneProduct(p *domcatalog.Product) *domcatalog.Product {
	if p == nil {
		return nil
	}
	clone := *p
	return &clone
}
