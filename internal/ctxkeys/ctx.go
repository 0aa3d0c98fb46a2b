package ctxkeys

import (
	"context"
)

// contextKey is a type for context keys to avoid collisions
type contextKey string

const PrincipalKey contextKey = "principal"

// Principal returns the authenticated principal id, or "" for anonymous requests.
func Principal(ctx context.Context) string {
	id, _ := ctx.Value(PrincipalKey).(string)
	return id
}

func WithPrincipal(ctx context.Context, principalID string) context.Context {
	return context.WithValue(ctx, PrincipalKey, principalID)
}
