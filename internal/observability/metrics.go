package observability

// Keys for the instruments registered at startup. Asking a provider for a
// key it never registered yields a no-op instrument, so recording against
// any of these is always safe.
const (
	// RED instruments around each use case.
	MUsecaseRequests MetricKey = "usecase_requests_total"
	MUsecaseDuration MetricKey = "usecase_duration_seconds"

	// Inbound HTTP, recorded by the presentation middleware.
	MHTTPRequests        MetricKey = "http_requests_total"
	MHTTPRequestDuration MetricKey = "http_request_duration_seconds"

	// Outbound calls to shipping, brokers and other collaborators.
	MExternalRequests        MetricKey = "external_requests_total"
	MExternalRequestDuration MetricKey = "external_request_duration_seconds"
)
