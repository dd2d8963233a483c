package auth

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/confcentral/confcentral/internal/model"
)

// ErrEmailRequired is returned when a key is issued without an owner email.
var ErrEmailRequired = errors.New("owner email is required")

// KeyStore persists key owners and their keys.
type KeyStore interface {
	GetOrCreateUser(ctx context.Context, user *model.User) (*model.User, error)
	CreateAPIKey(ctx context.Context, key *model.APIKey) error
}

// IssueRequest describes a key to issue.
type IssueRequest struct {
	Email  string
	Name   string
	Scopes []string
	Env    string
}

// IssuedKey is a stored key together with its one-time plaintext.
type IssuedKey struct {
	Key       *model.APIKey
	Plaintext string
}

// IssueKey creates the owner if needed, then generates and stores a key.
// The owner's user id becomes their profile id.
func IssueKey(ctx context.Context, store KeyStore, req IssueRequest) (*IssuedKey, error) {
	if req.Email == "" {
		return nil, ErrEmailRequired
	}
	scopes := slices.Clone(req.Scopes)
	if len(scopes) == 0 {
		scopes = []string{model.ScopeRead}
	}

	now := time.Now().UTC()
	user, err := store.GetOrCreateUser(ctx, &model.User{
		ID:        ulid.Make().String(),
		Email:     req.Email,
		CreatedAt: now,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get or create user: %w", err)
	}

	generated, err := GenerateAPIKey(req.Env)
	if err != nil {
		return nil, err
	}

	key := &model.APIKey{
		ID:        ulid.Make().String(),
		UserID:    user.ID,
		UserEmail: user.Email,
		KeyHash:   generated.Hash,
		KeyPrefix: generated.Prefix,
		Scopes:    scopes,
		Name:      req.Name,
		CreatedAt: now,
	}
	if err := store.CreateAPIKey(ctx, key); err != nil {
		return nil, fmt.Errorf("failed to create api key: %w", err)
	}

	return &IssuedKey{Key: key, Plaintext: generated.Plaintext}, nil
}
