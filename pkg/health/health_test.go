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

	"github.com/dmitrymomot/courier/pkg/health"
)

func ok(context.Context) error { return nil }

func TestLivenessHandler(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	health.LivenessHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestReadinessHandler(t *testing.T) {
	t.Parallel()

	t.Run("all healthy", func(t *testing.T) {
		t.Parallel()

		h := health.ReadinessHandler(health.Checks{"postgres": ok, "jobs": ok})
		rec := httptest.NewRecorder()
		h(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "OK", rec.Body.String())
	})

	t.Run("failing check as json", func(t *testing.T) {
		t.Parallel()

		h := health.ReadinessHandler(health.Checks{
			"postgres": ok,
			"redis":    func(context.Context) error { return errors.New("connection refused") },
		})
		rec := httptest.NewRecorder()
		h(rec, httptest.NewRequest(http.MethodGet, "/health/ready?format=json", nil))

		require.Equal(t, http.StatusServiceUnavailable, rec.Code)
		var resp health.Response
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, health.StatusUnhealthy, resp.Status)
		assert.Equal(t, health.StatusHealthy, resp.Checks["postgres"].Status)
		assert.Equal(t, "connection refused", resp.Checks["redis"].Error)
	})

	t.Run("slow check times out", func(t *testing.T) {
		t.Parallel()

		slow := func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		}
		h := health.ReadinessHandler(health.Checks{"slow": slow}, health.WithTimeout(20*time.Millisecond))
		req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
		req.Header.Set("Accept", "application/json")
		rec := httptest.NewRecorder()

		start := time.Now()
		h(rec, req)
		assert.Less(t, time.Since(start), time.Second)

		var resp health.Response
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, health.ErrCheckTimeout.Error(), resp.Checks["slow"].Error)
	})
}

func TestReadinessHandler_Optional(t *testing.T) {
	t.Parallel()

	down := func(context.Context) error { return errors.New("river client stopped") }

	t.Run("optional failure degrades", func(t *testing.T) {
		t.Parallel()

		h := health.ReadinessHandler(health.Checks{"postgres": ok, "jobs": health.Optional(down)})
		rec := httptest.NewRecorder()
		h(rec, httptest.NewRequest(http.MethodGet, "/health/ready?format=json", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		var resp health.Response
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, health.StatusDegraded, resp.Status)
		assert.Equal(t, health.StatusDegraded, resp.Checks["jobs"].Status)
		assert.Equal(t, "river client stopped", resp.Checks["jobs"].Error)
	})

	t.Run("required failure wins", func(t *testing.T) {
		t.Parallel()

		h := health.ReadinessHandler(health.Checks{"postgres": down, "jobs": health.Optional(down)})
		rec := httptest.NewRecorder()
		h(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Equal(t, "Service Unavailable", rec.Body.String())
	})

	t.Run("plain text degraded", func(t *testing.T) {
		t.Parallel()

		h := health.ReadinessHandler(health.Checks{"jobs": health.Optional(down)})
		rec := httptest.NewRecorder()
		h(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "OK (degraded)", rec.Body.String())
	})
}
