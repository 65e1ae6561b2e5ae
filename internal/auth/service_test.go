package auth_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alexedwards/argon2id"
	validator "github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-tierprice/internal/auth"
	"github.com/noah-isme/toko-tierprice/internal/common"
	"github.com/noah-isme/toko-tierprice/internal/salesctx"
)

var fastParams = &argon2id.Params{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

func newService(t *testing.T) *auth.Service {
	t.Helper()
	hash, err := argon2id.CreateHash("s3cret", fastParams)
	require.NoError(t, err)
	svc, err := auth.NewService(auth.Config{
		Secret:   "test-secret",
		Issuer:   "issuer",
		Audience: "aud",
		Admins:   map[string]string{"ops": hash},
	})
	require.NoError(t, err)
	return svc
}

func TestNewServiceRequiresSecret(t *testing.T) {
	_, err := auth.NewService(auth.Config{})
	require.Error(t, err)
}

func TestLoginIssuesAdminToken(t *testing.T) {
	svc := newService(t)

	result, err := svc.Login(t.Context(), "ops", "s3cret")
	require.NoError(t, err)
	require.NotEmpty(t, result.AccessToken)

	claims, err := svc.ParseToken(result.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "ops", claims.Subject)
	require.True(t, claims.HasScope(auth.ScopeAdmin))

	_, err = svc.Login(t.Context(), "ops", "wrong")
	require.True(t, common.IsAppError(err))
	_, err = svc.Login(t.Context(), "nobody", "s3cret")
	require.True(t, common.IsAppError(err))
}

func TestParseTokenRejectsForeignAndExpiredTokens(t *testing.T) {
	svc := newService(t)
	other, err := auth.NewService(auth.Config{Secret: "another-secret", Issuer: "issuer", Audience: "aud"})
	require.NoError(t, err)

	foreign, _, err := other.SignToken("ops", auth.ScopeAdmin)
	require.NoError(t, err)
	_, err = svc.ParseToken(foreign)
	require.Error(t, err)

	svc.WithNow(func() time.Time { return time.Now().Add(-2 * time.Hour) })
	stale, _, err := svc.SignToken("ops", auth.ScopeAdmin)
	require.NoError(t, err)
	svc.WithNow(time.Now)
	_, err = svc.ParseToken(stale)
	require.Error(t, err)

	_, err = svc.ParseToken("not-a-token")
	require.Error(t, err)
}

func TestParseAdmins(t *testing.T) {
	admins := auth.ParseAdmins("ops:$argon2id$v=19$m=65536,t=1,p=2$c2FsdA$aGFzaA; broken ;:nohash; dev : $argon2id$x ")
	require.Len(t, admins, 2)
	require.Equal(t, "$argon2id$v=19$m=65536,t=1,p=2$c2FsdA$aGFzaA", admins["ops"])
	require.Equal(t, "$argon2id$x", admins["dev"])
}

func TestHashPassword(t *testing.T) {
	hash, err := auth.HashPassword("pw")
	require.NoError(t, err)
	ok, err := argon2id.ComparePasswordAndHash("pw", hash)
	require.NoError(t, err)
	require.True(t, ok)
}

func sourceRecorder(t *testing.T, got *salesctx.Source) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*got = salesctx.SourceFrom(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestAuthenticateMarksAdminSource(t *testing.T) {
	svc := newService(t)
	mw := auth.Middleware{Service: svc}
	adminToken, _, err := svc.SignToken("ops", auth.ScopeAdmin)
	require.NoError(t, err)
	plainToken, _, err := svc.SignToken("reporter")
	require.NoError(t, err)

	cases := []struct {
		name   string
		header string
		want   salesctx.SourceKind
	}{
		{name: "no token", want: salesctx.SourceStorefront},
		{name: "invalid token ignored", header: "Bearer garbage", want: salesctx.SourceStorefront},
		{name: "token without admin scope", header: "Bearer " + plainToken, want: salesctx.SourceStorefront},
		{name: "admin token", header: "Bearer " + adminToken, want: salesctx.SourceAdminAPI},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var got salesctx.Source
			req := httptest.NewRequest(http.MethodPost, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			mw.Authenticate(sourceRecorder(t, &got)).ServeHTTP(rec, req)
			require.Equal(t, http.StatusNoContent, rec.Code)
			require.Equal(t, tc.want, got.Kind)
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	svc := newService(t)
	mw := auth.Middleware{Service: svc}
	adminToken, _, _ := svc.SignToken("ops", auth.ScopeAdmin)
	plainToken, _, _ := svc.SignToken("reporter")

	cases := []struct {
		header string
		want   int
	}{
		{header: "", want: http.StatusUnauthorized},
		{header: "Bearer garbage", want: http.StatusUnauthorized},
		{header: "Bearer " + plainToken, want: http.StatusForbidden},
		{header: "Bearer " + adminToken, want: http.StatusNoContent},
	}
	for _, tc := range cases {
		var got salesctx.Source
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		rec := httptest.NewRecorder()
		mw.RequireAdmin(sourceRecorder(t, &got)).ServeHTTP(rec, req)
		require.Equal(t, tc.want, rec.Code, "header %q", tc.header)
	}
}

func TestLoginHandler(t *testing.T) {
	h := &auth.Handler{Service: newService(t), Validate: validator.New()}

	rec := httptest.NewRecorder()
	h.Login(rec, httptest.NewRequest(http.MethodPost, "/api/v1/admin/login", strings.NewReader(`{"username":"ops","password":"s3cret"}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "access_token")

	rec = httptest.NewRecorder()
	h.Login(rec, httptest.NewRequest(http.MethodPost, "/api/v1/admin/login", strings.NewReader(`{"username":"ops","password":"nope"}`)))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Body.String(), "INVALID_CREDENTIALS")

	rec = httptest.NewRecorder()
	h.Login(rec, httptest.NewRequest(http.MethodPost, "/api/v1/admin/login", strings.NewReader(`{"username":"ops"}`)))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = httptest.NewRecorder()
	h.Login(rec, httptest.NewRequest(http.MethodPost, "/api/v1/admin/login", strings.NewReader(`{`)))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
