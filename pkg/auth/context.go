package auth

import "context"

type contextKey string

const userContextKey contextKey = "user"

// UserContext is the authenticated caller identity attached to a request
// after token validation.
type UserContext struct {
	UserID string
	Email  string
	Role   Role
	Groups []string
}

// SetUserInContext attaches the caller identity to the context.
func SetUserInContext(ctx context.Context, user *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// GetUserFromContext returns the caller identity, or nil when the request
// has not passed authentication.
func GetUserFromContext(ctx context.Context) *UserContext {
	user, ok := ctx.Value(userContextKey).(*UserContext)
	if !ok {
		return nil
	}
	return user
}
