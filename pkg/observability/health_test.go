package observability

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthChecker_Liveness(t *testing.T) {
	checker := NewHealthChecker("test")
	checker.AddCheck("reflector", func(context.Context) error { return errors.New("not loaded") })

	rr := httptest.NewRecorder()
	checker.Liveness(rr, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var response map[string]interface{}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&response))
	assert.Equal(t, StatusHealthy, response["status"])
	assert.Contains(t, response, "timestamp")
}

func TestHealthChecker_Readiness(t *testing.T) {
	tests := []struct {
		name       string
		checks     map[string]CheckFunc
		wantCode   int
		wantStatus string
	}{
		{
			name:       "no checks",
			wantCode:   http.StatusOK,
			wantStatus: StatusHealthy,
		},
		{
			name: "all passing",
			checks: map[string]CheckFunc{
				"reflector": func(context.Context) error { return nil },
			},
			wantCode:   http.StatusOK,
			wantStatus: StatusHealthy,
		},
		{
			name: "one failing",
			checks: map[string]CheckFunc{
				"reflector": func(context.Context) error { return errors.New("no schema loaded") },
				"source":    func(context.Context) error { return nil },
			},
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: StatusUnhealthy,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			checker := NewHealthChecker("1.2.3")
			for name, check := range tt.checks {
				checker.AddCheck(name, check)
			}

			rr := httptest.NewRecorder()
			checker.Readiness(rr, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
			assert.Equal(t, tt.wantCode, rr.Code)

			var status HealthStatus
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&status))
			assert.Equal(t, tt.wantStatus, status.Status)
			assert.Equal(t, "1.2.3", status.Version)
			assert.Len(t, status.Dependencies, len(tt.checks))
		})
	}
}

func TestHealthChecker_CheckMessage(t *testing.T) {
	checker := NewHealthChecker("")
	checker.AddCheck("reflector", func(context.Context) error { return errors.New("no schema loaded") })

	status := checker.Check(context.Background())
	require.Contains(t, status.Dependencies, "reflector")
	assert.Equal(t, StatusUnhealthy, status.Dependencies["reflector"].Status)
	assert.Equal(t, "no schema loaded", status.Dependencies["reflector"].Message)

	checker.AddCheck("reflector", func(context.Context) error { return nil })
	assert.Equal(t, StatusHealthy, checker.Check(context.Background()).Status)
}
