package obs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/noah-isme/toko-tierprice/internal/common"
	"github.com/noah-isme/toko-tierprice/internal/salesctx"
)

func TestHTTPMetricsUseRoutePattern(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewHTTPMetrics("tierprice", []float64{0.1, 1}, registry)

	r := chi.NewRouter()
	r.Use(HTTPObs{Metrics: metrics}.Middleware)
	r.Post("/api/v1/sales-channels/{salesChannelId}/cart/calculate", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/sales-channels/sc-1/cart/calculate", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)

	route := "/api/v1/sales-channels/{salesChannelId}/cart/calculate"
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ReqTotal.WithLabelValues(http.MethodPost, route, "204")))
	assert.Equal(t, 1, testutil.CollectAndCount(metrics.ReqDur))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.InFlight))

	// registering twice reuses the existing collectors
	again := NewHTTPMetrics("tierprice", nil, registry)
	assert.Same(t, metrics.ReqTotal, again.ReqTotal)
}

func TestRequestLoggerFields(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "json", "info")

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := common.WithUserID(r.Context(), "ops")
			ctx = salesctx.WithSource(ctx, salesctx.Source{Kind: salesctx.SourceAdminAPI, UserID: "ops"})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	})
	r.Use(RequestLogger{Logger: logger}.Middleware)
	r.Get("/api/v1/admin/settings/{salesChannelId}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/settings/sc-9", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.7")
	r.ServeHTTP(httptest.NewRecorder(), req)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "error", line["level"])
	assert.Equal(t, "/api/v1/admin/settings/{salesChannelId}", line["route"])
	assert.Equal(t, "sc-9", line["sales_channel_id"])
	assert.Equal(t, "admin-api", line["source"])
	assert.Equal(t, "ops", line["user_id"])
	assert.Equal(t, "203.0.113.7", line["client_ip"])
	assert.EqualValues(t, 500, line["status"])
}

func TestNewLoggerLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "json", "warn")
	logger.Info().Msg("hidden")
	assert.Zero(t, buf.Len())
	logger.Warn().Msg("shown")
	assert.Contains(t, buf.String(), "shown")

	buf.Reset()
	fallback := newLogger(&buf, "json", "bogus")
	fallback.Info().Msg("fallback")
	assert.Contains(t, buf.String(), "fallback")
}

func TestParseBucketsCSV(t *testing.T) {
	assert.Nil(t, ParseBucketsCSV(" "))
	assert.Equal(t, []float64{0.1, 2.5}, ParseBucketsCSV("0.1, x, -1, 2.5,"))
}

func TestPGXTracerRecordsSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	var tracer PGXTracer
	ctx := tracer.TraceQueryStart(context.Background(), nil, pgx.TraceQueryStartData{SQL: "select id from product where id = $1", Args: []any{"p"}})
	tracer.TraceQueryEnd(ctx, nil, pgx.TraceQueryEndData{CommandTag: pgconn.NewCommandTag("SELECT 1")})
	ctx = tracer.TraceQueryStart(context.Background(), nil, pgx.TraceQueryStartData{SQL: "UPDATE product SET x = 1"})
	tracer.TraceQueryEnd(ctx, nil, pgx.TraceQueryEndData{Err: errors.New("boom")})

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "pgx SELECT", spans[0].Name())
	assert.Equal(t, "pgx UPDATE", spans[1].Name())
	assert.Equal(t, codes.Error, spans[1].Status().Code)
}

func TestMustRegisterDomainMetrics(t *testing.T) {
	MustRegisterDomainMetrics("tierprice_test", prometheus.NewRegistry())
	require.NotNil(t, CrossVariantRepricedTotal)
	require.NotNil(t, SettingsLookupTotal)
	SettingsLookupTotal.WithLabelValues("channel").Inc()
	assert.GreaterOrEqual(t, testutil.ToFloat64(SettingsLookupTotal.WithLabelValues("channel")), 1.0)
}
