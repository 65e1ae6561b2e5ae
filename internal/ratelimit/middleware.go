package ratelimit

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/toko-tierprice/internal/common"
)

// Config describes how to derive a rate limit key and thresholds.
type Config struct {
	Key    func(*http.Request) string
	Window time.Duration
	Max    int
}

// ClientChannelKey keys hits by client address and sales channel.
func ClientChannelKey(r *http.Request) string {
	key := common.ClientIP(r)
	if channel := chi.URLParam(r, "salesChannelId"); channel != "" {
		key += ":" + channel
	}
	return key
}

// Handler enforces rate limits before delegating to the next handler.
// Limiter failures let the request through and are reported to OnError.
type Handler struct {
	Limiter Limiter
	Config  Config
	OnError func(error)
}

// Middleware implements the http.Handler middleware interface.
func (h Handler) Middleware(next http.Handler) http.Handler {
	if h.Limiter == nil || h.Config.Max <= 0 {
		return next
	}
	keyFn := h.Config.Key
	if keyFn == nil {
		keyFn = ClientChannelKey
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		decision, err := h.Limiter.Allow(r.Context(), keyFn(r), h.Config.Window, h.Config.Max)
		if err != nil {
			if h.OnError != nil {
				h.OnError(err)
			}
			next.ServeHTTP(w, r)
			return
		}

		headers := w.Header()
		headers.Set("X-RateLimit-Limit", strconv.Itoa(h.Config.Max))
		headers.Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
		headers.Set("X-RateLimit-Reset", strconv.FormatInt(decision.Reset.Unix(), 10))

		if !decision.Allowed {
			retryAfter := int(time.Until(decision.Reset).Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			headers.Set("Retry-After", strconv.Itoa(retryAfter))
			common.JSONError(w, http.StatusTooManyRequests, "RATE_LIMITED", "rate limit exceeded", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}
