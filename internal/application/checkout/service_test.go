package checkout_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/whatseat/fulfillment/internal/application/checkout"
	domain "github.com/whatseat/fulfillment/internal/domain/order"
	domoutbox "github.com/whatseat/fulfillment/internal/domain/outbox"
	"github.com/whatseat/fulfillment/internal/infrastructure/memory"
)

type flatFees struct{ fee int64 }

func (f flatFees) Quote(context.Context, string, string, int) (int64, error) {
	return f.fee, nil
}

type capturePublisher struct {
	mu     sync.Mutex
	events []domoutbox.Event
	err    error
}

func (p *capturePublisher) Publish(_ context.Context, e domoutbox.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, e)
	return nil
}

func checkoutInput(lines []checkout.LineRequest) checkout.DecomposeInput {
	return checkout.DecomposeInput{
		CustomerID:        "c-1",
		Lines:             lines,
		ShippingProfileID: "sp-1",
		PaymentMethodID:   "pm-1",
		ServiceID:         2,
	}
}

func newTestService(t *testing.T, pub domoutbox.Publisher) (*checkout.Service, *memory.CatalogStore, *memory.OrderRepository) {
	t.Helper()

	store := seedStore(t)
	repo := memory.NewOrderRepository()
	profiles := memory.NewProfileDirectory()
	profiles.Put("sp-1", "999")

	decomposer := checkout.NewDecomposer(store, profiles, flatFees{fee: 15}, 0, nil)
	coordinator := checkout.NewCoordinator(store, repo, &seqIDs{}, nil)
	return checkout.NewService(decomposer, coordinator, pub, nil), store, repo
}

func TestCheckout_EndToEnd(t *testing.T) {
	t.Parallel()

	pub := &capturePublisher{}
	svc, store, repo := newTestService(t, pub)

	orders, err := svc.Checkout(context.Background(), checkoutInput([]checkout.LineRequest{
		{ProductID: "p-1", Quantity: 2},
		{ProductID: "p-2", Quantity: 1},
		{ProductID: "p-3", Quantity: 1},
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(orders) != 2 {
		t.Fatalf("expected one order per vendor, got %d", len(orders))
	}

	for _, o := range orders {
		stored, err := repo.Get(context.Background(), o.ID)
		if err != nil {
			t.Fatalf("order %s not persisted: %v", o.ID, err)
		}
		if stored.Total() != o.Total() {
			t.Fatalf("stored total %d != returned total %d", stored.Total(), o.Total())
		}
	}

	p1, _ := store.GetProduct(context.Background(), "p-1")
	if p1.InStock != 3 {
		t.Fatalf("expected stock 3, got %d", p1.InStock)
	}

	pub.mu.Lock()
	defer pub.mu.Unlock()
	if len(pub.events) != 2 {
		t.Fatalf("expected one event per order, got %d", len(pub.events))
	}
	created, ok := pub.events[0].(domain.OrderCreatedEvent)
	if !ok {
		t.Fatalf("expected OrderCreatedEvent, got %T", pub.events[0])
	}
	if created.EventName() != "order.created" || created.CustomerID != "c-1" {
		t.Fatalf("unexpected event payload: %+v", created)
	}
}

func TestCheckout_PublishFailureDoesNotFailCheckout(t *testing.T) {
	t.Parallel()

	pub := &capturePublisher{err: errors.New("broker down")}
	svc, _, repo := newTestService(t, pub)

	orders, err := svc.Checkout(context.Background(), checkoutInput([]checkout.LineRequest{
		{ProductID: "p-1", Quantity: 1},
	}))
	if err != nil {
		t.Fatalf("publish failures must not surface: %v", err)
	}
	if _, err := repo.Get(context.Background(), orders[0].ID); err != nil {
		t.Fatalf("order must still be persisted: %v", err)
	}
}

func TestCheckout_Validation(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService(t, nil)

	line := []checkout.LineRequest{{ProductID: "p-1", Quantity: 1}}
	cases := []struct {
		name string
		in   checkout.DecomposeInput
	}{
		{"missing customer", checkout.DecomposeInput{Lines: line, ShippingProfileID: "sp-1", PaymentMethodID: "pm-1"}},
		{"no lines", checkout.DecomposeInput{CustomerID: "c-1", ShippingProfileID: "sp-1", PaymentMethodID: "pm-1"}},
		{"missing profile", checkout.DecomposeInput{CustomerID: "c-1", Lines: line, PaymentMethodID: "pm-1"}},
		{"missing payment method", checkout.DecomposeInput{CustomerID: "c-1", Lines: line, ShippingProfileID: "sp-1"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if _, err := svc.Checkout(context.Background(), tc.in); err == nil {
				t.Fatal("expected a validation error")
			}
		})
	}
}

func TestCheckout_ZeroQuantityLine(t *testing.T) {
	t.Parallel()

	svc, store, _ := newTestService(t, nil)

	_, err := svc.Checkout(context.Background(), checkoutInput([]checkout.LineRequest{
		{ProductID: "p-1", Quantity: 0},
	}))
	if !errors.Is(err, domain.ErrInvalidQuantity) {
		t.Fatalf("expected ErrInvalidQuantity, got %v", err)
	}

	p1, _ := store.GetProduct(context.Background(), "p-1")
	if p1.InStock != 5 {
		t.Fatalf("stock must be untouched, got %d", p1.InStock)
	}
}
