package memory

import (
	"context"
	"sync"

	"github.com/whatseat/fulfillment/internal/application/checkout"
)

// ProfileDirectory maps shipping profile ids to destination codes. The real
// directory lives in the customer service; this stands in for it.
type ProfileDirectory struct {
	mu           sync.RWMutex
	destinations map[string]string
}

func NewProfileDirectory() *ProfileDirectory {
	return &ProfileDirectory{destinations: make(map[string]string)}
}

func (d *ProfileDirectory) Put(shippingProfileID, destCode string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.destinations[shippingProfileID] = destCode
}

func (d *ProfileDirectory) DestinationCode(ctx context.Context, shippingProfileID string) (string, error) {
	_ = ctx

	d.mu.RLock()
	defer d.mu.RUnlock()

	dest, ok := d.destinations[shippingProfileID]
	if !ok {
		return "", checkout.ErrProfileNotFound
	}
	return dest, nil
}
