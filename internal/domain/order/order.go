package order

import (
	"errors"
	"time"
)

var (
	ErrNotFound        = errors.New("order: not found")
	ErrNotAuthorized   = errors.New("order: not authorized")
	ErrConflict        = errors.New("order: already exists")
	ErrInvalidQuantity = errors.New("order: quantity must be greater than zero")
	ErrNegativeFee     = errors.New("order: shipping fee must be zero or greater")
	ErrNoLines         = errors.New("order: at least one line is required")
)

// Line is a snapshot of one requested product. UnitPrice is fixed at
// decomposition time: the order's historical total never changes when the
// catalog price does.
type Line struct {
	ProductID string
	Quantity  int
	UnitPrice int64
}

// Order is one vendor's slice of a checkout. Immutable after commit; status
// lives in the append-only history, not here.
type Order struct {
	ID                string
	CustomerID        string
	VendorID          string
	ShippingProfileID string
	PaymentMethodID   string
	ShippingFee       int64
	Lines             []Line
	CreatedAt         time.Time
}

func New(id, customerID, vendorID, shippingProfileID, paymentMethodID string, shippingFee int64, lines []Line) (*Order, error) {
	if shippingFee < 0 {
		return nil, ErrNegativeFee
	}
	if len(lines) == 0 {
		return nil, ErrNoLines
	}
	for _, l := range lines {
		if l.Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}
	}

	return &Order{
		ID:                id,
		CustomerID:        customerID,
		VendorID:          vendorID,
		ShippingProfileID: shippingProfileID,
		PaymentMethodID:   paymentMethodID,
		ShippingFee:       shippingFee,
		Lines:             append([]Line(nil), lines...),
		CreatedAt:         time.Now().UTC(),
	}, nil
}

// Total is the line total plus the shipping fee.
func (o *Order) Total() int64 {
	var sum int64
	for _, l := range o.Lines {
		sum += l.UnitPrice * int64(l.Quantity)
	}
	return sum + o.ShippingFee
}

func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	clone := *o
	clone.Lines = append([]Line(nil), o.Lines...)
	return &clone
}

// Draft is the in-memory, not-yet-persisted grouping of lines for one vendor
// produced by decomposition.
type Draft struct {
	VendorID    string
	ShippingFee int64
	Lines       []Line
}

func (d *Draft) AppendLine(l Line) {
	d.Lines = append(d.Lines, l)
}
