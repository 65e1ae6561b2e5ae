package common

import "context"

type userIDKey struct{}

// WithUserID records the authenticated subject on ctx.
func WithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, userIDKey{}, id)
}

// UserID returns the authenticated subject, if any.
func UserID(ctx context.Context) (string, bool) {
	id, _ := ctx.Value(userIDKey{}).(string)
	return id, id != ""
}
