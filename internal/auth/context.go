package auth

import "context"

type adminKey struct{}

// WithAdmin returns a context carrying the authenticated admin's username.
func WithAdmin(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, adminKey{}, username)
}

// AdminFromContext returns the authenticated admin's username, or "" when
// the request is not authenticated.
func AdminFromContext(ctx context.Context) string {
	if username, ok := ctx.Value(adminKey{}).(string); ok {
		return username
	}
	return ""
}
