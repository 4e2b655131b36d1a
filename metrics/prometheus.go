// Package metrics exports load stats to Prometheus.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/ecomlab/shoplt/loadgen"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Result label values.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Exporter is a loadgen.Reporter that keeps Prometheus metrics on its own registry.
type Exporter struct {
	registry *prometheus.Registry

	requestsTotal          *prometheus.CounterVec
	requestDurationSeconds *prometheus.HistogramVec
}

// NewExporter creates exporter, users gauge reads current value from users func if it is not nil.
func NewExporter(users func() int) *Exporter {
	e := &Exporter{
		registry: prometheus.NewRegistry(),
	}

	e.requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "shoplt",
			Name:      "requests_total",
			Help:      "Total number of requests made by simulated users.",
		},
		[]string{"method", "name", "result"},
	)

	e.requestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "shoplt",
			Name:      "request_duration_seconds",
			Help:      "Duration of requests in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "name"},
	)

	e.registry.MustRegister(e.requestsTotal, e.requestDurationSeconds)

	if users != nil {
		e.registry.MustRegister(prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Namespace: "shoplt",
				Name:      "users",
				Help:      "Number of running simulated users.",
			},
			func() float64 { return float64(users()) },
		))
	}

	return e
}

// Report implements loadgen.Reporter.
func (e *Exporter) Report(r loadgen.Result) {
	result := ResultSuccess
	if r.Err != nil {
		result = ResultFailure
	}

	e.requestsTotal.WithLabelValues(r.Method, r.Name, result).Inc()
	e.requestDurationSeconds.WithLabelValues(r.Method, r.Name).Observe(r.Elapsed.Seconds())
}

// Registry returns underlying registry.
func (e *Exporter) Registry() *prometheus.Registry {
	return e.registry
}

// Handler serves metrics in Prometheus text format.
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}

// Serve starts metrics server at addr in background, server is stopped when ctx is done.
//
// It returns listening address, useful when port is 0.
func (e *Exporter) Serve(ctx context.Context, addr string) (net.Addr, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen metrics address: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", e.Handler())

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			loadgen.Logger.Errorw("metrics server failed", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			loadgen.Logger.Warnw("failed to shutdown metrics server", "error", err)
		}
	}()

	loadgen.Logger.Infow("serving metrics", "addr", ln.Addr().String())

	return ln.Addr(), nil
}
