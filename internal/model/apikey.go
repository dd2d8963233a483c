package model

import (
	"slices"
	"time"
)

// Scope constants for API key authorization.
const (
	ScopeRead  = "read"
	ScopeWrite = "write"
	ScopeAdmin = "admin"
)

// ValidScopes contains all valid scope values.
var ValidScopes = []string{ScopeRead, ScopeWrite, ScopeAdmin}

// User is the account an API key belongs to. Its ID is also the id of the
// user's conference profile.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// APIKey is a credential owned by a user.
type APIKey struct {
	ID         string
	UserID     string
	UserEmail  string
	KeyHash    string
	KeyPrefix  string
	Scopes     []string
	Name       string
	RevokedAt  *time.Time
	LastUsedAt *time.Time
	CreatedAt  time.Time
}

// IsRevoked returns true if the key has been revoked.
func (k *APIKey) IsRevoked() bool {
	return k.RevokedAt != nil
}

// AuthContext is the caller identity injected into the request context by
// the auth middleware. UserID doubles as the caller's profile id.
type AuthContext struct {
	KeyID     string
	KeyPrefix string
	UserID    string
	Email     string
	Scopes    []string
}

// HasScope checks if the auth context has a specific scope.
// Admin implies every other scope and write implies read.
func (a *AuthContext) HasScope(scope string) bool {
	if a == nil {
		return false
	}
	if slices.Contains(a.Scopes, ScopeAdmin) {
		return true
	}
	if scope == ScopeRead && slices.Contains(a.Scopes, ScopeWrite) {
		return true
	}
	return slices.Contains(a.Scopes, scope)
}
