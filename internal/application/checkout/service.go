package checkout

import (
	"context"
	"time"

	domain "github.com/whatseat/fulfillment/internal/domain/order"
	domoutbox "github.com/whatseat/fulfillment/internal/domain/outbox"
	"github.com/whatseat/fulfillment/internal/observability"
	"github.com/whatseat/fulfillment/internal/observability/logctx"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	checkoutService = "checkout-service"
	useCaseCheckout = "checkout.submit"
	spanPrefix      = "UC."
	publishPeer     = "outbox"
	publishTimeout  = 300 * time.Millisecond
)

// Service executes the checkout use case: decompose, commit, publish.
type Service struct {
	decomposer  *Decomposer
	coordinator *Coordinator
	publisher   domoutbox.Publisher
	tel         observability.Observability

	// Base logger with fixed fields prebound.
	log observability.Logger
	// RED metrics (supplied via DI; do not instantiate inside methods).
	reqCounter   observability.Counter   // usecase_requests_total{use_case,outcome}
	durHistogram observability.Histogram // usecase_duration_seconds{use_case}

	extCounter   observability.Counter   // external_requests_total{peer,endpoint,outcome}
	extHistogram observability.Histogram // external_request_duration_seconds{peer,endpoint}
}

func NewService(
	decomposer *Decomposer,
	coordinator *Coordinator,
	publisher domoutbox.Publisher,
	tel observability.Observability,
) *Service {
	baseLog := observability.NopLogger()
	if tel != nil {
		baseLog = tel.Logger()
	}
	baseLog = baseLog.With(observability.F("service", checkoutService))

	if tel == nil {
		tel = observability.Nop()
	}
	metricsProvider := tel.Metrics()

	return &Service{
		decomposer:   decomposer,
		coordinator:  coordinator,
		publisher:    publisher,
		tel:          tel,
		log:          baseLog,
		reqCounter:   metricsProvider.Counter(observability.MUsecaseRequests),
		durHistogram: metricsProvider.Histogram(observability.MUsecaseDuration),
		extCounter:   metricsProvider.Counter(observability.MExternalRequests),
		extHistogram: metricsProvider.Histogram(observability.MExternalRequestDuration),
	}
}

// Checkout splits the request into one order per vendor and commits them as a
// unit. It either returns every created order or a single error identifying
// the first blocking cause; there is no partial success.
func (s *Service) Checkout(ctx context.Context, in DecomposeInput) (_ []*domain.Order, err error) {
	logger := logctx.FromOr(ctx, s.log).With(observability.F("use_case", useCaseCheckout))

	ctx, span := s.tel.Tracer().Start(ctx, spanPrefix+"Checkout",
		attribute.String("use_case", useCaseCheckout),
		attribute.String("checkout.customer_id", in.CustomerID),
		attribute.Int("checkout.lines", len(in.Lines)),
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
			observability.L("use_case", useCaseCheckout),
			observability.L("outcome", outcome),
		)
		s.durHistogram.Observe(lat, observability.L("use_case", useCaseCheckout))

		fields := []observability.Field{
			observability.F("outcome", outcome),
			observability.F("status", statusText),
			observability.F("latency_seconds", lat),
		}
		if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
			fields = append(fields,
				observability.F("trace_id", sc.TraceID().String()),
				observability.F("span_id", sc.SpanID().String()),
			)
		}
		if err != nil {
			fields = append(fields, observability.F("error", err.Error()))
		}
		logger.Info("use_case_done", fields...)
	}()

	if in.CustomerID == "" {
		outcome, statusText = "error", "CUSTOMER_ID_REQUIRED"
		return nil, newValidation("customer id is required")
	}
	if len(in.Lines) == 0 {
		outcome, statusText = "error", "LINES_REQUIRED"
		return nil, newValidation("at least one line is required")
	}
	if in.ShippingProfileID == "" {
		outcome, statusText = "error", "SHIPPING_PROFILE_REQUIRED"
		return nil, newValidation("shipping profile id is required")
	}
	if in.PaymentMethodID == "" {
		outcome, statusText = "error", "PAYMENT_METHOD_REQUIRED"
		return nil, newValidation("payment method id is required")
	}
	if err := ctx.Err(); err != nil {
		outcome, statusText = "error", "CONTEXT_CANCELED"
		return nil, err
	}

	drafts, err := s.decomposer.Decompose(ctx, in)
	if err != nil {
		outcome, statusText = "error", "DECOMPOSE_FAILED"
		return nil, err
	}

	orders, err := s.coordinator.Commit(ctx, CommitInput{
		CustomerID:        in.CustomerID,
		ShippingProfileID: in.ShippingProfileID,
		PaymentMethodID:   in.PaymentMethodID,
		Drafts:            drafts,
	})
	if err != nil {
		outcome, statusText = "error", "COMMIT_FAILED"
		return nil, err
	}

	span.SetAttributes(attribute.Int("checkout.orders", len(orders)))
	span.AddEvent("checkout.committed")

	for _, o := range orders {
		s.publish(ctx, logger, domain.NewOrderCreatedEvent(o))
	}

	return orders, nil
}

// publish is best-effort: the orders are already committed, so a publish
// failure is recorded but does not fail the checkout.
func (s *Service) publish(ctx context.Context, logger observability.Logger, e domoutbox.Event) {
	if s.publisher == nil {
		return
	}

	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	pubStart := time.Now()
	pubOutcome := "success"
	if err := s.publisher.Publish(pubCtx, e); err != nil {
		pubOutcome = "error"
		logger.Warn("event_publish_failed",
			observability.F("event", e.EventName()),
			observability.F("error", err.Error()),
		)
	}

	s.extCounter.Add(1,
		observability.L("peer", publishPeer),
		observability.L("endpoint", e.EventName()),
		observability.L("outcome", pubOutcome),
	)
	s.extHistogram.Observe(time.Since(pubStart).Seconds(),
		observability.L("peer", publishPeer),
		observability.L("endpoint", e.EventName()),
	)
}
