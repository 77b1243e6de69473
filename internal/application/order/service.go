package order

import (
	"context"
	"errors"
	"time"

	domain "github.com/whatseat/fulfillment/internal/domain/order"
	domoutbox "github.com/whatseat/fulfillment/internal/domain/outbox"
	"github.com/whatseat/fulfillment/internal/observability"
	"github.com/whatseat/fulfillment/internal/observability/logctx"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var ErrNotCancelable = errors.New("order: not cancelable in current status")

const (
	orderService  = "order-service"
	useCaseCancel = "order.cancel"
	spanPrefix    = "UC."
)

// View is an order together with its derived current status.
type View struct {
	Order   *domain.Order
	Current domain.StatusRecord
}

type Service struct {
	repo      domain.Repository
	publisher domoutbox.Publisher
	policy    domain.CancelPolicy
	tel       observability.Observability

	log          observability.Logger
	reqCounter   observability.Counter
	durHistogram observability.Histogram
}

// NewService builds the order read/cancel service. The cancellation policy is
// pluggable; passing nil keeps the permissive default of the checkout API.
func NewService(
	repo domain.Repository,
	publisher domoutbox.Publisher,
	policy domain.CancelPolicy,
	tel observability.Observability,
) *Service {
	if policy == nil {
		policy = domain.CancelAlways
	}
	if tel == nil {
		tel = observability.Nop()
	}
	return &Service{
		repo:         repo,
		publisher:    publisher,
		policy:       policy,
		tel:          tel,
		log:          tel.Logger().With(observability.F("service", orderService)),
		reqCounter:   tel.Metrics().Counter(observability.MUsecaseRequests),
		durHistogram: tel.Metrics().Histogram(observability.MUsecaseDuration),
	}
}

// Get returns the customer's order with its current status. Orders belonging
// to other customers are reported as not authorized, not as missing.
func (s *Service) Get(ctx context.Context, customerID, orderID string) (*View, error) {
	o, err := s.load(ctx, customerID, orderID)
	if err != nil {
		return nil, err
	}
	current, err := s.latest(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return &View{Order: o, Current: current}, nil
}

// History returns the full append-only status history, oldest first.
func (s *Service) History(ctx context.Context, customerID, orderID string) ([]domain.StatusRecord, error) {
	if _, err := s.load(ctx, customerID, orderID); err != nil {
		return nil, err
	}
	return s.repo.StatusHistory(ctx, orderID)
}

// Cancel appends a cancelled record with the supplied message and returns the
// updated view. Prior records are never touched.
func (s *Service) Cancel(ctx context.Context, customerID, orderID, message string) (_ *View, err error) {
	logger := logctx.FromOr(ctx, s.log).With(observability.F("use_case", useCaseCancel))

	ctx, span := s.tel.Tracer().Start(ctx, spanPrefix+"Cancel",
		attribute.String("use_case", useCaseCancel),
		attribute.String("order.id", orderID),
	)
	start := time.Now()
	outcome, statusText := "success", "OK"

	defer func() {
		lat := time.Since(start).Seconds()

		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, statusText)
		} else {
			span.SetStatus(codes.Ok, statusText)
		}
		span.End()

		s.reqCounter.Add(1,
			observability.L("use_case", useCaseCancel),
			observability.L("outcome", outcome),
		)
		s.durHistogram.Observe(lat, observability.L("use_case", useCaseCancel))

		fields := []observability.Field{
			observability.F("order_id", orderID),
			observability.F("outcome", outcome),
			observability.F("status", statusText),
			observability.F("latency_seconds", lat),
		}
		if err != nil {
			fields = append(fields, observability.F("error", err.Error()))
		}
		logger.Info("use_case_done", fields...)
	}()

	if message == "" {
		outcome, statusText = "error", "MESSAGE_REQUIRED"
		return nil, domain.ErrMessageRequired
	}

	o, err := s.load(ctx, customerID, orderID)
	if err != nil {
		outcome, statusText = "error", "LOAD_FAILED"
		return nil, err
	}

	current, err := s.latest(ctx, orderID)
	if err != nil {
		outcome, statusText = "error", "STATUS_UNAVAILABLE"
		return nil, err
	}
	if !s.policy(current.Status) {
		outcome, statusText = "error", "NOT_CANCELABLE"
		return nil, ErrNotCancelable
	}

	rec := domain.NewStatusRecord(orderID, domain.StatusCancelled, message)
	if err = s.repo.AppendStatus(ctx, rec); err != nil {
		outcome, statusText = "error", "APPEND_FAILED"
		return nil, err
	}

	// Best effort; the cancelled record is already durable.
	if s.publisher != nil {
		if pubErr := s.publisher.Publish(ctx, domain.NewOrderCancelledEvent(o, message)); pubErr != nil {
			logger.Warn("cancel_event_publish_failed", observability.F("error", pubErr.Error()))
		}
	}

	return &View{Order: o, Current: rec}, nil
}

func (s *Service) load(ctx context.Context, customerID, orderID string) (*domain.Order, error) {
	if orderID == "" {
		return nil, domain.ErrNotFound
	}
	o, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.CustomerID != customerID {
		return nil, domain.ErrNotAuthorized
	}
	return o, nil
}

func (s *Service) latest(ctx context.Context, orderID string) (domain.StatusRecord, error) {
	history, err := s.repo.StatusHistory(ctx, orderID)
	if err != nil {
		return domain.StatusRecord{}, err
	}
	return domain.LatestRecord(history)
}
