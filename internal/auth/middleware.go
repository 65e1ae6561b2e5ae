package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/noah-isme/toko-tierprice/internal/common"
	"github.com/noah-isme/toko-tierprice/internal/salesctx"
)

var errNoToken = errors.New("auth: token missing")

// Middleware wires authentication context into HTTP handlers.
type Middleware struct {
	Service *Service
}

// Authenticate attaches the caller to the request context when a valid token is present.
// Admin tokens switch the request source to the admin API. Invalid tokens are ignored
// and the request proceeds as a storefront request.
func (m Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, _, err := m.authenticateRequest(r)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin rejects requests without a valid admin token.
func (m Middleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, claims, err := m.authenticateRequest(r)
		if err != nil {
			if errors.Is(err, errNoToken) {
				common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid token", nil)
				return
			}
			if appErr, ok := common.AsAppError(err); ok {
				common.JSONError(w, appErr.Status(http.StatusUnauthorized), appErr.Code, appErr.Message, appErr.Details)
				return
			}
			common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid token", nil)
			return
		}
		if !claims.HasScope(ScopeAdmin) {
			common.JSONError(w, http.StatusForbidden, "FORBIDDEN", "admin scope required", nil)
			return
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m Middleware) authenticateRequest(r *http.Request) (context.Context, Claims, error) {
	if m.Service == nil {
		return r.Context(), Claims{}, errors.New("auth: service not configured")
	}
	token := extractToken(r)
	if token == "" {
		return r.Context(), Claims{}, errNoToken
	}
	claims, err := m.Service.ParseToken(token)
	if err != nil {
		return r.Context(), Claims{}, err
	}
	ctx := common.WithUserID(r.Context(), claims.Subject)
	if claims.HasScope(ScopeAdmin) {
		ctx = salesctx.WithSource(ctx, salesctx.Source{Kind: salesctx.SourceAdminAPI, UserID: claims.Subject})
	}
	return ctx, claims, nil
}

func extractToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}
