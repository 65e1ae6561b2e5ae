package security

import (
	"net/http"

	"github.com/noah-isme/toko-tierprice/internal/common"
)

// BodyLimit caps request payload sizes.
type BodyLimit struct {
	Max int64
}

// Middleware rejects declared oversize bodies with 413 and caps the reader for
// the rest, so decoders fail once the limit is crossed.
func (b BodyLimit) Middleware(next http.Handler) http.Handler {
	if b.Max <= 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength > b.Max {
			common.JSONError(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "request entity too large", nil)
			return
		}
		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, b.Max)
		}
		next.ServeHTTP(w, r)
	})
}
