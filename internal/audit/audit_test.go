package audit

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-tierprice/internal/common"
)

func newStore(t *testing.T) RedisStore {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return RedisStore{Client: client, Stream: "test:audit", MaxLen: 100}
}

func auditedRouter(svc *Service, status int) http.Handler {
	r := chi.NewRouter()
	rec := HTTPRecorder{Service: svc}
	r.With(rec.Middleware(HTTPConfig{
		Action:          "settings.replace",
		ResourceType:    "settings",
		ResourceIDParam: "salesChannelId",
		MetadataFunc: func(*http.Request, int) map[string]any {
			return map[string]any{"namespace": "CrossVariantPricing.config"}
		},
	})).Put("/api/v1/admin/settings/{salesChannelId}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	})
	return r
}

func TestMiddlewareRecordsSettingsChanges(t *testing.T) {
	store := newStore(t)
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	svc := &Service{Store: store, Enabled: true, now: func() time.Time { return fixed }}
	h := auditedRouter(svc, http.StatusOK)

	req := httptest.NewRequest(http.MethodPut, "/api/v1/admin/settings/sc-1", nil)
	req = req.WithContext(common.WithUserID(req.Context(), "ops"))
	h.ServeHTTP(httptest.NewRecorder(), req)

	entries, err := store.List(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	e := entries[0]
	assert.NotEmpty(t, e.ID)
	assert.True(t, fixed.Equal(e.At))
	assert.Equal(t, Actor{Kind: ActorKindUser, UserID: "ops"}, e.Actor)
	assert.Equal(t, "settings.replace", e.Action)
	assert.Equal(t, "settings", e.ResourceType)
	assert.Equal(t, "sc-1", e.ResourceID)
	assert.Equal(t, "/api/v1/admin/settings/{salesChannelId}", e.Route)
	assert.Equal(t, http.StatusOK, e.Status)
	assert.Equal(t, "CrossVariantPricing.config", e.Metadata["namespace"])
}

func TestMiddlewareSkipsServerErrorsAndDisabledService(t *testing.T) {
	store := newStore(t)

	h := auditedRouter(&Service{Store: store, Enabled: true}, http.StatusServiceUnavailable)
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPut, "/api/v1/admin/settings/sc-1", nil))

	h = auditedRouter(&Service{Store: store}, http.StatusOK)
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPut, "/api/v1/admin/settings/sc-1", nil))

	entries, err := store.List(context.Background(), 10)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestListReturnsNewestFirst(t *testing.T) {
	store := newStore(t)
	svc := Service{Store: store, Enabled: true}
	for _, path := range []string{"/first", "/second"} {
		req := httptest.NewRequest(http.MethodDelete, path, nil)
		require.NoError(t, svc.Record(context.Background(), Actor{Kind: "bogus"}, "", "", "", req, 0, nil))
	}

	rec := httptest.NewRecorder()
	Handler{Store: store}.List(rec, httptest.NewRequest(http.MethodGet, "/api/v1/admin/audit?limit=1", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data []Entry `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "/second", resp.Data[0].Path)
	assert.Equal(t, "DELETE /", resp.Data[0].Action)
	assert.Equal(t, "unknown", resp.Data[0].ResourceType)
	assert.Equal(t, ActorKindAnonymous, resp.Data[0].Actor.Kind)
	assert.Equal(t, http.StatusOK, resp.Data[0].Status)
}

type brokenStore struct{}

func (brokenStore) Append(context.Context, Entry) error        { return errors.New("down") }
func (brokenStore) List(context.Context, int) ([]Entry, error) { return nil, errors.New("down") }

func TestFailuresAreReported(t *testing.T) {
	var reported error
	r := chi.NewRouter()
	r.With(HTTPRecorder{Service: &Service{Store: brokenStore{}, Enabled: true}, OnError: func(err error) { reported = err }}.Middleware(HTTPConfig{})).
		Delete("/x", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/x", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.EqualError(t, reported, "down")

	rec = httptest.NewRecorder()
	Handler{Store: brokenStore{}}.List(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestBuildResource(t *testing.T) {
	assert.Equal(t, "admin.settings.{salesChannelId}", buildResource("", "/api/v1/admin/settings/{salesChannelId}"))
	assert.Equal(t, "health.ready", buildResource("", "/health/ready"))
	assert.Equal(t, "settings", buildResource(" settings ", "/x"))
}
