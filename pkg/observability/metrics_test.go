package observability

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)
	require.NotNil(t, metrics)

	assert.NotNil(t, metrics.HTTPRequestsTotal)
	assert.NotNil(t, metrics.HTTPRequestDuration)
	assert.NotNil(t, metrics.RequestsTotal)
	assert.NotNil(t, metrics.RequestDuration)
	assert.NotNil(t, metrics.ClosureCacheTotal)
	assert.NotNil(t, metrics.SchemaReloadsTotal)
	assert.NotNil(t, metrics.SchemaFiles)
	assert.NotNil(t, metrics.SchemaServices)

	t.Run("double registration panics", func(t *testing.T) {
		assert.Panics(t, func() { NewMetrics(registry) })
	})
}

func TestMetrics_Observers(t *testing.T) {
	metrics := NewMetrics(prometheus.NewRegistry())

	metrics.ObserveRequest("file_containing_symbol", "OK", time.Millisecond)
	metrics.ObserveRequest("file_containing_symbol", "OK", time.Millisecond)
	metrics.ObserveRequest("file_by_filename", "NotFound", time.Millisecond)
	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.RequestsTotal.WithLabelValues("file_containing_symbol", "OK")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.RequestsTotal.WithLabelValues("file_by_filename", "NotFound")))

	metrics.ObserveCache(true)
	metrics.ObserveCache(false)
	metrics.ObserveCache(false)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.ClosureCacheTotal.WithLabelValues("hit")))
	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.ClosureCacheTotal.WithLabelValues("miss")))

	metrics.ObserveReload(nil)
	metrics.ObserveReload(errors.New("parse error"))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.SchemaReloadsTotal.WithLabelValues("success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.SchemaReloadsTotal.WithLabelValues("failure")))

	metrics.SetSchemaSize(7, 3)
	assert.Equal(t, float64(7), testutil.ToFloat64(metrics.SchemaFiles))
	assert.Equal(t, float64(3), testutil.ToFloat64(metrics.SchemaServices))
}

func TestMetrics_NilReceiver(t *testing.T) {
	var metrics *Metrics
	assert.NotPanics(t, func() {
		metrics.ObserveRequest("list_services", "OK", time.Millisecond)
		metrics.ObserveCache(true)
		metrics.ObserveReload(nil)
		metrics.SetSchemaSize(1, 1)
	})
}

func TestHTTPMetricsMiddleware(t *testing.T) {
	metrics := NewMetrics(prometheus.NewRegistry())

	handler := HTTPMetricsMiddleware(metrics)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))

	for _, path := range []string{"/v1/services", "/v1/services", "/missing"} {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.HTTPRequestsTotal.WithLabelValues("GET", "/v1/services", "200")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.HTTPRequestsTotal.WithLabelValues("GET", "/missing", "404")))

	t.Run("nil metrics passes through", func(t *testing.T) {
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		})
		rr := httptest.NewRecorder()
		HTTPMetricsMiddleware(nil)(next).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusTeapot, rr.Code)
	})
}

func TestMetricsHandler(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)
	metrics.ObserveRequest("list_services", "OK", time.Millisecond)

	server := httptest.NewServer(MetricsHandler(registry))
	defer server.Close()

	resp, err := http.Get(server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.Contains(string(body), `reflector_requests_total{code="OK",kind="list_services"} 1`))
}
