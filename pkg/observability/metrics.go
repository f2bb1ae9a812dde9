package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Reflection metrics
	RequestsTotal     *prometheus.CounterVec
	RequestDuration   *prometheus.HistogramVec
	ClosureCacheTotal *prometheus.CounterVec

	// Schema metrics
	SchemaReloadsTotal *prometheus.CounterVec
	SchemaFiles        prometheus.Gauge
	SchemaServices     prometheus.Gauge
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reflector_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "reflector_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reflector_requests_total",
				Help: "Total number of reflection requests by kind and result code",
			},
			[]string{"kind", "code"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "reflector_request_duration_seconds",
				Help:    "Reflection request processing time in seconds",
				Buckets: []float64{.00001, .00005, .0001, .0005, .001, .005, .01, .05},
			},
			[]string{"kind"},
		),
		ClosureCacheTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reflector_closure_cache_total",
				Help: "Dependency closure cache lookups by result",
			},
			[]string{"result"},
		),

		SchemaReloadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reflector_schema_reloads_total",
				Help: "Schema reload attempts by status",
			},
			[]string{"status"},
		),
		SchemaFiles: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "reflector_schema_files",
				Help: "Number of files in the served schema",
			},
		),
		SchemaServices: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "reflector_schema_services",
				Help: "Number of services in the served schema",
			},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.RequestsTotal,
		m.RequestDuration,
		m.ClosureCacheTotal,
		m.SchemaReloadsTotal,
		m.SchemaFiles,
		m.SchemaServices,
	)

	return m
}

// ObserveRequest records one processed reflection request
func (m *Metrics) ObserveRequest(kind, code string, d time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(kind, code).Inc()
	m.RequestDuration.WithLabelValues(kind).Observe(d.Seconds())
}

// ObserveCache records a closure cache hit or miss
func (m *Metrics) ObserveCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.ClosureCacheTotal.WithLabelValues(result).Inc()
}

// ObserveReload records a reload attempt
func (m *Metrics) ObserveReload(err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "failure"
	}
	m.SchemaReloadsTotal.WithLabelValues(status).Inc()
}

// SetSchemaSize records the size of the schema being served
func (m *Metrics) SetSchemaSize(files, services int) {
	if m == nil {
		return
	}
	m.SchemaFiles.Set(float64(files))
	m.SchemaServices.Set(float64(services))
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// HTTPMetricsMiddleware instruments HTTP requests with Prometheus metrics
func HTTPMetricsMiddleware(metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if metrics == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(rw, r)

			status := strconv.Itoa(rw.statusCode)
			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, r.URL.Path, status).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(time.Since(start).Seconds())
		})
	}
}

// MetricsHandler serves the registry in the Prometheus exposition format
func MetricsHandler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
