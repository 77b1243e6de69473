package order

import (
	"errors"
	"time"
)

var ErrMessageRequired = errors.New("order: cancellation message is required")

// Status is deliberately open: vendor-managed states (confirmed, shipped,
// delivered, ...) arrive from outside this core and must round-trip through
// the history without a code change here.
type Status string

const (
	StatusWaiting   Status = "waiting"
	StatusCancelled Status = "cancelled"
)

// StatusRecord is one entry in an order's append-only history. The current
// status is derived, never stored as a mutable field.
type StatusRecord struct {
	OrderID    string
	Status     Status
	Message    string
	OccurredAt time.Time
}

func NewStatusRecord(orderID string, status Status, message string) StatusRecord {
	return StatusRecord{
		OrderID:    orderID,
		Status:     status,
		Message:    message,
		OccurredAt: time.Now().UTC(),
	}
}

// LatestRecord returns the record with the maximum OccurredAt. Records
// appended within the same timestamp tick resolve to the later append, which
// is why callers must pass history in append order.
func LatestRecord(history []StatusRecord) (StatusRecord, error) {
	if len(history) == 0 {
		return StatusRecord{}, ErrNotFound
	}
	latest := history[0]
	for _, rec := range history[1:] {
		if !rec.OccurredAt.Before(latest.OccurredAt) {
			latest = rec
		}
	}
	return latest, nil
}

// CancelPolicy decides whether an order in the given current status may be
// cancelled. The rule set is a deployment decision, so it is pluggable
// rather than hardcoded.
type CancelPolicy func(current Status) bool

// CancelAlways allows cancellation from any status.
func CancelAlways(Status) bool { return true }

// CancelableFrom allows cancellation only from the listed statuses.
func CancelableFrom(statuses ...Status) CancelPolicy {
	allowed := make(map[Status]struct{}, len(statuses))
	for _, s := range statuses {
		allowed[s] = struct{}{}
	}
	return func(current Status) bool {
		_, ok := allowed[current]
		return ok
	}
}
