package order

import "time"

// OrderCreatedEvent is emitted once per committed vendor order.
type OrderCreatedEvent struct {
	OrderID     string
	CustomerID  string
	VendorID    string
	Total       int64
	ShippingFee int64
	OccurredAt  time.Time
}

func (OrderCreatedEvent) EventName() string { return "order.created" }

func NewOrderCreatedEvent(o *Order) OrderCreatedEvent {
	return OrderCreatedEvent{
		OrderID:     o.ID,
		CustomerID:  o.CustomerID,
		VendorID:    o.VendorID,
		Total:       o.Total(),
		ShippingFee: o.ShippingFee,
		OccurredAt:  time.Now().UTC(),
	}
}

// OrderCancelledEvent is emitted when a customer cancels an order.
type OrderCancelledEvent struct {
	OrderID    string
	CustomerID string
	Message    string
	OccurredAt time.Time
}

func (OrderCancelledEvent) EventName() string { return "order.cancelled" }

func NewOrderCancelledEvent(o *Order, message string) OrderCancelledEvent {
	return OrderCancelledEvent{
		OrderID:    o.ID,
		CustomerID: o.CustomerID,
		Message:    message,
		OccurredAt: time.Now().UTC(),
	}
}
