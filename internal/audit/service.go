package audit

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/noah-isme/toko-tierprice/internal/common"
)

// ActorKind represents the source of an audited action.
type ActorKind string

const (
	// ActorKindUser represents an authenticated back-office user.
	ActorKindUser ActorKind = "user"
	// ActorKindSystem represents internal automated actions.
	ActorKindSystem ActorKind = "system"
	// ActorKindAnonymous represents unauthenticated actors.
	ActorKindAnonymous ActorKind = "anonymous"
)

// Actor describes the entity performing the action.
type Actor struct {
	Kind   ActorKind `json:"kind"`
	UserID string    `json:"userId,omitempty"`
}

// Entry is one audited action.
type Entry struct {
	ID           string         `json:"id,omitempty"`
	At           time.Time      `json:"at"`
	Actor        Actor          `json:"actor"`
	Action       string         `json:"action"`
	ResourceType string         `json:"resourceType"`
	ResourceID   string         `json:"resourceId,omitempty"`
	Method       string         `json:"method"`
	Path         string         `json:"path"`
	Route        string         `json:"route,omitempty"`
	Status       int            `json:"status"`
	IP           string         `json:"ip,omitempty"`
	RequestID    string         `json:"requestId,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// Store persists and lists audit entries, newest first.
type Store interface {
	Append(ctx context.Context, e Entry) error
	List(ctx context.Context, limit int) ([]Entry, error)
}

// Service records audit entries for back-office changes.
type Service struct {
	Store   Store
	Enabled bool
	now     func() time.Time
}

// Record persists an audit entry for req when auditing is enabled.
func (s Service) Record(ctx context.Context, actor Actor, action, resourceType, resourceID string, req *http.Request, status int, metadata map[string]any) error {
	if !s.Enabled {
		return nil
	}
	if req == nil {
		return errors.New("audit: request is required")
	}
	if s.Store == nil {
		return errors.New("audit: store not configured")
	}

	route := ""
	if rc := chi.RouteContext(req.Context()); rc != nil {
		route = rc.RoutePattern()
	}
	if status == 0 {
		status = http.StatusOK
	}
	now := time.Now
	if s.now != nil {
		now = s.now
	}

	return s.Store.Append(ctx, Entry{
		At:           now().UTC(),
		Actor:        normalizeActor(actor),
		Action:       buildAction(action, req.Method, route),
		ResourceType: buildResource(resourceType, route),
		ResourceID:   strings.TrimSpace(resourceID),
		Method:       req.Method,
		Path:         req.URL.Path,
		Route:        route,
		Status:       status,
		IP:           common.ClientIP(req),
		RequestID:    middleware.GetReqID(req.Context()),
		Metadata:     metadata,
	})
}

func buildAction(action, method, route string) string {
	trimmed := strings.TrimSpace(action)
	if trimmed != "" {
		return trimmed
	}
	target := route
	if target == "" {
		target = "/"
	}
	return strings.ToUpper(strings.TrimSpace(method)) + " " + target
}

func buildResource(resourceType, route string) string {
	trimmed := strings.TrimSpace(resourceType)
	if trimmed != "" {
		return trimmed
	}
	route = strings.TrimSpace(route)
	if route == "" {
		return "unknown"
	}
	segments := strings.Split(strings.Trim(route, "/"), "/")
	if len(segments) >= 3 && segments[0] == "api" && segments[1] == "v1" {
		return strings.Join(segments[2:], ".")
	}
	return strings.ReplaceAll(strings.Trim(route, "/"), "/", ".")
}

func normalizeActor(actor Actor) Actor {
	actor.UserID = strings.TrimSpace(actor.UserID)
	switch actor.Kind {
	case ActorKindUser, ActorKindSystem:
		return actor
	default:
		return Actor{Kind: ActorKindAnonymous}
	}
}
