package health_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-tierprice/internal/health"
)

func ok(context.Context) error { return nil }

func ready(t *testing.T, h health.Handler) (int, map[string]string) {
	t.Helper()
	rr := httptest.NewRecorder()
	h.Ready(rr, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	var status map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &status))
	return rr.Code, status
}

func TestLive(t *testing.T) {
	rr := httptest.NewRecorder()
	health.Handler{}.Live(rr, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "ok", rr.Body.String())
}

func TestReady(t *testing.T) {
	code, status := ready(t, health.Handler{Probes: map[string]health.Probe{"db": ok, "redis": ok}})
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, map[string]string{"status": "ok", "db": "ok", "redis": "ok"}, status)

	code, status = ready(t, health.Handler{Probes: map[string]health.Probe{
		"db":    ok,
		"redis": func(context.Context) error { return errors.New("redis down") },
	}})
	require.Equal(t, http.StatusServiceUnavailable, code)
	require.Equal(t, "redis down", status["redis"])
	require.Equal(t, "degraded", status["status"])
}

func TestReadyAppliesTimeout(t *testing.T) {
	slow := func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}
	code, _ := ready(t, health.Handler{Probes: map[string]health.Probe{"db": slow}, Timeout: 10 * time.Millisecond})
	require.Equal(t, http.StatusServiceUnavailable, code)
}

func TestReadinessAfterShutdown(t *testing.T) {
	h := health.Handler{Probes: map[string]health.Probe{"db": ok}}
	t.Cleanup(func() { health.SetReady(true) })

	health.SetReady(false)
	code, status := ready(t, h)
	require.Equal(t, http.StatusServiceUnavailable, code)
	require.Equal(t, "draining", status["status"])

	health.SetReady(true)
	code, _ = ready(t, h)
	require.Equal(t, http.StatusOK, code)
}
