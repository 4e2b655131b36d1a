package nethttp

import (
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/sony/gobreaker"
)

// DefaultBreakerSettings opens circuit after 5 consecutive transport failures.
func DefaultBreakerSettings(name string) gobreaker.Settings {
	return gobreaker.Settings{
		Name:     name,
		Interval: 10 * time.Second,
		Timeout:  5 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}
}

// CircuitBreakerMiddleware is a http.RoundTripper middleware.
//
// Only transport errors are counted as failures, any HTTP status is a success.
func CircuitBreakerMiddleware(
	settings gobreaker.Settings,
	cbRejected *int64,
) func(tripper http.RoundTripper) http.RoundTripper {
	cb := gobreaker.NewTwoStepCircuitBreaker(settings)

	return func(tripper http.RoundTripper) http.RoundTripper {
		return roundTripperFunc(func(r *http.Request) (*http.Response, error) {
			done, err := cb.Allow()
			// Error means circuit breaker is open and request should fail immediately.
			if err != nil {
				atomic.AddInt64(cbRejected, 1)

				return nil, fmt.Errorf("circuit breaker %s: %w", settings.Name, err)
			}

			resp, err := tripper.RoundTrip(r)

			done(err == nil)

			return resp, err
		})
	}
}

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (fn roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return fn(req)
}
