package audit

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/toko-tierprice/internal/common"
	"github.com/noah-isme/toko-tierprice/internal/obs"
)

// HTTPRecorder records HTTP requests after they have been handled.
type HTTPRecorder struct {
	Service *Service
	OnError func(error)
}

// HTTPConfig customises how the audit entry is produced for a route.
type HTTPConfig struct {
	Action          string
	ResourceType    string
	ResourceIDParam string
	MetadataFunc    func(*http.Request, int) map[string]any
}

// Middleware returns a chi middleware that records an entry for every
// request that did not fail on the server side.
func (r HTTPRecorder) Middleware(cfg HTTPConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if r.Service == nil || !r.Service.Enabled {
				next.ServeHTTP(w, req)
				return
			}

			recorder := obs.NewStatusRecorder(w)
			next.ServeHTTP(recorder, req)
			if recorder.Status() >= http.StatusInternalServerError {
				return
			}

			resourceID := ""
			if cfg.ResourceIDParam != "" {
				resourceID = chi.URLParam(req, cfg.ResourceIDParam)
			}
			var metadata map[string]any
			if cfg.MetadataFunc != nil {
				metadata = cfg.MetadataFunc(req, recorder.Status())
			}

			err := r.Service.Record(req.Context(), actorFor(req), cfg.Action, cfg.ResourceType, resourceID, req, recorder.Status(), metadata)
			if err != nil && r.OnError != nil {
				r.OnError(err)
			}
		})
	}
}

func actorFor(req *http.Request) Actor {
	if userID, ok := common.UserID(req.Context()); ok && userID != "" {
		return Actor{Kind: ActorKindUser, UserID: userID}
	}
	return Actor{Kind: ActorKindAnonymous}
}
