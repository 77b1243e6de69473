package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is assembled from the environment; every field has a dev-friendly
// default so `go run .` works with no setup.
type Config struct {
	ServiceName string
	Env         string
	HTTPAddr    string

	// SQLitePath selects the durable store; empty keeps everything in memory.
	SQLitePath string

	// RedisAddr enables the catalog cache when non-empty.
	RedisAddr       string
	CatalogCacheTTL time.Duration

	// KafkaBrokers enables the Kafka event publisher when non-empty;
	// otherwise order events stay on the in-memory bus.
	KafkaBrokers []string
	KafkaTopic   string

	ShippingBaseURL string
	ShippingToken   string
	QuoteTimeout    time.Duration

	// ShippingProfiles maps profile ids to destination codes until the
	// customer service exposes a directory endpoint.
	ShippingProfiles map[string]string
}

func FromEnv() Config {
	return Config{
		ServiceName:      getenvDefault("SERVICE_NAME", "fulfillment"),
		Env:              getenvDefault("ENV", "dev"),
		HTTPAddr:         getenvDefault("HTTP_ADDR", ":8080"),
		SQLitePath:       os.Getenv("SQLITE_PATH"),
		RedisAddr:        os.Getenv("REDIS_ADDR"),
		CatalogCacheTTL:  getenvDuration("CATALOG_CACHE_TTL", 30*time.Second),
		KafkaBrokers:     splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:       getenvDefault("KAFKA_TOPIC", "fulfillment.order-events"),
		ShippingBaseURL:  getenvDefault("SHIPPING_BASE_URL", "http://localhost:9090"),
		ShippingToken:    os.Getenv("SHIPPING_TOKEN"),
		QuoteTimeout:     getenvDuration("QUOTE_TIMEOUT", 3*time.Second),
		ShippingProfiles: splitPairs(getenvDefault("SHIPPING_PROFILES", "default=1442")),
	}
}

// splitPairs parses "id=code,id=code" lists.
func splitPairs(v string) map[string]string {
	out := make(map[string]string)
	for _, item := range splitList(v) {
		if key, val, ok := strings.Cut(item, "="); ok && key != "" {
			out[key] = val
		}
	}
	return out
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return def
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
