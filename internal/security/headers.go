package security

import (
	"net/http"
	"strconv"
	"strings"
)

// Headers attaches security headers to every response.
type Headers struct {
	Enable     bool
	EnableHSTS bool
	HSTSMaxAge int

	// FrameAncestors lists origins allowed to embed responses, such as the
	// storefront hosting the product designer. Empty denies framing.
	FrameAncestors []string
}

// Middleware attaches the configured headers.
func (h Headers) Middleware(next http.Handler) http.Handler {
	if !h.Enable {
		return next
	}
	frame := h.framePolicy()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers := w.Header()
		headers.Set("X-Content-Type-Options", "nosniff")
		headers.Set("Referrer-Policy", "no-referrer")
		headers.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors "+frame)
		if frame == "'none'" {
			headers.Set("X-Frame-Options", "DENY")
		}
		if h.EnableHSTS && r.TLS != nil {
			maxAge := h.HSTSMaxAge
			if maxAge <= 0 {
				maxAge = 31536000
			}
			headers.Set("Strict-Transport-Security", "max-age="+strconv.Itoa(maxAge)+"; includeSubDomains")
		}
		next.ServeHTTP(w, r)
	})
}

func (h Headers) framePolicy() string {
	var origins []string
	for _, origin := range h.FrameAncestors {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	if len(origins) == 0 {
		return "'none'"
	}
	return "'self' " + strings.Join(origins, " ")
}
