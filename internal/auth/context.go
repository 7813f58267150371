// Package auth carries the authenticated user's identity through a request
// context. Identity is established by the HTTP middleware; the services only
// ever read it.
package auth

import "context"

type ctxKey struct{}

func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, userID)
}

// CurrentUserID returns the user bound to ctx. ok is false when the request
// is anonymous.
func CurrentUserID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ctxKey{}).(string)
	return id, ok && id != ""
}
