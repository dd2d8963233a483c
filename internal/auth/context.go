// Package auth provides API key generation, hashing and the caller context.
package auth

import (
	"context"

	"github.com/confcentral/confcentral/internal/model"
)

type contextKey string

const authContextKey contextKey = "auth_context"

// ContextWithAuth adds AuthContext to the context.
func ContextWithAuth(ctx context.Context, authCtx *model.AuthContext) context.Context {
	return context.WithValue(ctx, authContextKey, authCtx)
}

// AuthFromContext retrieves AuthContext from the context.
// Returns nil for anonymous callers.
func AuthFromContext(ctx context.Context) *model.AuthContext {
	authCtx, ok := ctx.Value(authContextKey).(*model.AuthContext)
	if !ok {
		return nil
	}
	return authCtx
}

// UserIDFromContext returns the caller's user id, or "" if anonymous.
func UserIDFromContext(ctx context.Context) string {
	authCtx := AuthFromContext(ctx)
	if authCtx == nil {
		return ""
	}
	return authCtx.UserID
}
