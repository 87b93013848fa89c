package metrics

import "time"

// HTTPMetrics provides observability for the HTTP control adapter.
type HTTPMetrics interface {
	// RecordRequest records a completed request.
	//
	// Parameters:
	//   - route: Route pattern (e.g., "/v1/blocks/:index")
	//   - method: HTTP method
	//   - status: Response status code
	//   - duration: Time taken to serve the request
	RecordRequest(route, method string, status int, duration time.Duration)

	// RecordRateLimited records a request rejected by the rate limiter.
	RecordRateLimited()
}

// NewNoopHTTPMetrics returns an HTTPMetrics that discards everything.
func NewNoopHTTPMetrics() HTTPMetrics {
	return noopHTTPMetrics{}
}

type noopHTTPMetrics struct{}

func (noopHTTPMetrics) RecordRequest(route, method string, status int, duration time.Duration) {}
func (noopHTTPMetrics) RecordRateLimited()                                                     {}
