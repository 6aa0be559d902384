package health_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/dealqueue/core/health"
)

func TestLiveness(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	health.Liveness(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ALIVE", rec.Body.String())
}

func TestReadiness(t *testing.T) {
	t.Parallel()

	ok := health.Check{Name: "postgres", Fn: func(context.Context) error { return nil }}
	down := health.Check{Name: "queue", Fn: func(context.Context) error { return errors.New("fallback mode") }}

	t.Run("all checks pass", func(t *testing.T) {
		t.Parallel()

		rec := httptest.NewRecorder()
		health.Readiness(nil, time.Second, ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		var report health.Report
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
		assert.Equal(t, health.StatusReady, report.Status)
		assert.Equal(t, "ok", report.Checks["postgres"])
	})

	t.Run("failing check", func(t *testing.T) {
		t.Parallel()

		rec := httptest.NewRecorder()
		health.Readiness(nil, time.Second, down, ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		var report health.Report
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
		assert.Equal(t, health.StatusUnavailable, report.Status)
		assert.Equal(t, "fallback mode", report.Checks["queue"])
		assert.Equal(t, "ok", report.Checks["postgres"])
	})

	t.Run("checks receive a deadline", func(t *testing.T) {
		t.Parallel()

		var hasDeadline bool
		check := health.Check{Name: "redis", Fn: func(ctx context.Context) error {
			_, hasDeadline = ctx.Deadline()
			return nil
		}}
		rec := httptest.NewRecorder()
		health.Readiness(nil, time.Second, check).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
		assert.True(t, hasDeadline)
	})
}
