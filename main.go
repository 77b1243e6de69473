package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	appcheckout "github.com/whatseat/fulfillment/internal/application/checkout"
	apporder "github.com/whatseat/fulfillment/internal/application/order"
	"github.com/whatseat/fulfillment/internal/config"
	domcatalog "github.com/whatseat/fulfillment/internal/domain/catalog"
	dominv "github.com/whatseat/fulfillment/internal/domain/inventory"
	domorder "github.com/whatseat/fulfillment/internal/domain/order"
	domoutbox "github.com/whatseat/fulfillment/internal/domain/outbox"
	domshipping "github.com/whatseat/fulfillment/internal/domain/shipping"
	"github.com/whatseat/fulfillment/internal/infrastructure/cache"
	eventkafka "github.com/whatseat/fulfillment/internal/infrastructure/event/kafka"
	"github.com/whatseat/fulfillment/internal/infrastructure/id"
	"github.com/whatseat/fulfillment/internal/infrastructure/memory"
	infraobs "github.com/whatseat/fulfillment/internal/infrastructure/observability"
	"github.com/whatseat/fulfillment/internal/infrastructure/observability/oteltrace"
	"github.com/whatseat/fulfillment/internal/infrastructure/observability/prometrics"
	"github.com/whatseat/fulfillment/internal/infrastructure/observability/zaplogger"
	"github.com/whatseat/fulfillment/internal/infrastructure/outbox"
	"github.com/whatseat/fulfillment/internal/infrastructure/shipping"
	"github.com/whatseat/fulfillment/internal/infrastructure/sqlite"
	"github.com/whatseat/fulfillment/internal/observability"
	"github.com/whatseat/fulfillment/internal/pkg/logging"
	httppresentation "github.com/whatseat/fulfillment/internal/presentation/http"
)

func main() {
	cfg := config.FromEnv()

	baseLogger := logging.MustNewLogger(cfg.ServiceName, cfg.Env)
	defer func() { _ = baseLogger.Sync() }()
	zap.ReplaceGlobals(baseLogger)

	systemLogger := logging.WithTrace(baseLogger, logging.SystemTraceID, logging.SystemSpanID)

	obsLogger := zaplogger.FromZap(baseLogger)
	tel := buildObservability(cfg.ServiceName, obsLogger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Storage: sqlite when configured, otherwise everything in memory.
	var (
		gateway   domcatalog.Gateway
		ledger    dominv.Ledger
		orderRepo domorder.Repository
	)
	if cfg.SQLitePath != "" {
		store, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			systemLogger.Fatal("sqlite_open_failed", zap.Error(err))
		}
		defer func() { _ = store.Close() }()
		gateway, ledger, orderRepo = store, store, store
	} else {
		catalogStore := memory.NewCatalogStore()
		gateway, ledger = catalogStore, catalogStore
		orderRepo = memory.NewOrderRepository()
	}

	if cfg.RedisAddr != "" {
		catalogCache := cache.NewCatalogCache(cfg.RedisAddr, gateway, cfg.CatalogCacheTTL)
		defer func() { _ = catalogCache.Close() }()
		gateway = catalogCache
	}

	var fees domshipping.FeeResolver = shipping.NewClient(cfg.ShippingBaseURL, cfg.ShippingToken, nil)

	// Events go to Kafka when brokers are configured; the in-memory bus
	// remains the default fanout for local runs.
	var publisher domoutbox.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPublisher := eventkafka.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer func() { _ = kafkaPublisher.Close() }()
		publisher = kafkaPublisher
	} else {
		bus := outbox.NewBus(obsLogger)
		bus.Start(ctx)
		defer bus.Stop(context.Background())
		publisher = bus
	}

	profiles := memory.NewProfileDirectory()
	for profileID, destCode := range cfg.ShippingProfiles {
		profiles.Put(profileID, destCode)
	}
	idGenerator := id.NewUUIDGenerator()

	decomposer := appcheckout.NewDecomposer(gateway, profiles, fees, cfg.QuoteTimeout, obsLogger)
	coordinator := appcheckout.NewCoordinator(ledger, orderRepo, idGenerator, obsLogger)
	checkoutService := appcheckout.NewService(decomposer, coordinator, publisher, tel)
	orderService := apporder.NewService(orderRepo, publisher, nil, tel)

	handler := httppresentation.NewHandler(checkoutService, orderService, fees, obsLogger, tel)
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", handler.Router())

	server := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: mux,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		systemLogger.Info("http_server_start", zap.String("addr", server.Addr))
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		systemLogger.Error("http_server_error", zap.Error(err))
	} else {
		systemLogger.Info("http_server_stopped")
	}
}

// buildObservability registers the Prometheus instruments and assembles the
// tracer/logger/metrics provider the application layers consume.
func buildObservability(serviceName string, logger observability.Logger) observability.Observability {
	registry := prometrics.New("", "")

	counters := map[observability.MetricKey]observability.Counter{
		observability.MUsecaseRequests: registry.Counter(
			string(observability.MUsecaseRequests),
			"Total number of use case invocations.",
			"use_case", "outcome",
		),
		observability.MHTTPRequests: registry.Counter(
			string(observability.MHTTPRequests),
			"Total number of HTTP requests.",
			"method", "route", "status",
		),
		observability.MExternalRequests: registry.Counter(
			string(observability.MExternalRequests),
			"Total number of outbound calls to peers.",
			"peer", "endpoint", "outcome",
		),
	}
	histograms := map[observability.MetricKey]observability.Histogram{
		observability.MUsecaseDuration: registry.Histogram(
			string(observability.MUsecaseDuration),
			"Duration of use case execution in seconds.",
			prometheus.DefBuckets,
			"use_case",
		),
		observability.MHTTPRequestDuration: registry.Histogram(
			string(observability.MHTTPRequestDuration),
			"Duration of HTTP requests in seconds.",
			prometheus.DefBuckets,
			"method", "route", "status",
		),
		observability.MExternalRequestDuration: registry.Histogram(
			string(observability.MExternalRequestDuration),
			"Duration of outbound calls in seconds.",
			prometheus.DefBuckets,
			"peer", "endpoint",
		),
	}

	return infraobs.New(oteltrace.New(serviceName), logger, counters, histograms)
}
