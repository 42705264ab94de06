// Package metrics holds the canteen's Prometheus collectors and the HTTP
// middleware that feeds them. Everything registers on Registry, which is
// what /metrics serves.
package metrics

import (
	"bufio"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "canteen"

// Registry is scraped on /metrics.
var Registry = prometheus.NewRegistry()

func counter(subsystem, name, help string, labels ...string) *prometheus.CounterVec {
	c := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: subsystem, Name: name, Help: help,
	}, labels)
	Registry.MustRegister(c)
	return c
}

func histogram(subsystem, name, help string, buckets []float64, labels ...string) *prometheus.HistogramVec {
	h := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace, Subsystem: subsystem, Name: name, Help: help, Buckets: buckets,
	}, labels)
	Registry.MustRegister(h)
	return h
}

func gauge(subsystem, name, help string) prometheus.Gauge {
	g := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Subsystem: subsystem, Name: name, Help: help,
	})
	Registry.MustRegister(g)
	return g
}

// HTTP
var (
	RequestDuration = histogram("http", "request_duration_seconds",
		"Duration of HTTP requests in seconds.", prometheus.DefBuckets, "method", "route", "status")
	RequestTotal = counter("http", "requests_total",
		"HTTP requests served.", "method", "route", "status")
	Panics = counter("http", "panics_total",
		"Handler panics caught by the recovery middleware.", "route")
	RequestInFlight = gauge("http", "requests_in_flight",
		"HTTP requests currently being served.")
)

// gRPC
var (
	GRPCHandled = counter("grpc", "handled_total",
		"gRPC calls completed, by method and status code.", "method", "code")
	GRPCDuration = histogram("grpc", "handling_seconds",
		"Duration of gRPC calls in seconds.",
		[]float64{.001, .005, .01, .025, .05, .1, .25, .5, 1}, "method")
)

// Data Client, queue and session cache
var (
	DatastoreDuration = histogram("datastore", "op_duration_seconds",
		"Duration of orders Data Client operations in seconds.",
		[]float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5}, "backend", "op", "result")
	QueueJobsProcessed = counter("queue", "jobs_processed_total",
		"Notification jobs processed by outcome.", "status")
	QueueJobDuration = histogram("queue", "job_duration_seconds",
		"Duration of notification job handling in seconds.", prometheus.DefBuckets, "job_type")
	CacheHits = counter("cache", "hits_total",
		"Session lookups that found state.", "driver")
	CacheMisses = counter("cache", "misses_total",
		"Session lookups that started from empty state.", "driver")
)

// Orders
var (
	OrdersPlaced = counter("", "orders_placed_total",
		"Orders successfully submitted by the composer.").WithLabelValues()
	OrdersFulfilled = counter("", "orders_fulfilled_total",
		"Orders marked fulfilled by the scanner.").WithLabelValues()

	// Scans counts scanner lookups by result: found, not_found, invalid, error.
	Scans = counter("", "scans_total", "Scanner lookups by result.", "result")
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// Handler exposes Registry in Prometheus and OpenMetrics formats.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// Route is the chi pattern that matched r, or "unmatched". Using the
// pattern keeps order codes out of label values.
func Route(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
		return rc.RoutePattern()
	}
	return "unmatched"
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// Hijack lets the staff feed upgrade to a WebSocket through the recorder.
func (s *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := s.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, http.ErrNotSupported
	}
	s.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

// Middleware records duration, count and in-flight requests.
func Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			RequestInFlight.Inc()
			defer RequestInFlight.Dec()

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			route, status := Route(r), strconv.Itoa(rec.status)
			RequestDuration.WithLabelValues(r.Method, route, status).Observe(time.Since(start).Seconds())
			RequestTotal.WithLabelValues(r.Method, route, status).Inc()
		})
	}
}

// ObserveDatastore records one Data Client call:
//
//	defer metrics.ObserveDatastore("sql", "find_one", time.Now(), &err)
func ObserveDatastore(backend, op string, start time.Time, errp *error) {
	result := "ok"
	if errp != nil && *errp != nil {
		result = "error"
	}
	DatastoreDuration.WithLabelValues(backend, op, result).Observe(time.Since(start).Seconds())
}

func RecordQueueJob(jobType, status string, start time.Time) {
	QueueJobsProcessed.WithLabelValues(status).Inc()
	QueueJobDuration.WithLabelValues(jobType).Observe(time.Since(start).Seconds())
}
