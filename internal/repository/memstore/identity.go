package memstore

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/confcentral/confcentral/internal/model"
	"github.com/confcentral/confcentral/internal/repository"
)

// CreateUser stores a user or returns repository.ErrEmailExists.
func (s *Store) CreateUser(_ context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.state.users {
		if u.Email == user.Email {
			return repository.ErrEmailExists
		}
	}
	s.state.users[user.ID] = *user
	return nil
}

// GetUserByEmail returns a user by email address.
func (s *Store) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.state.users {
		if u.Email == email {
			user := u
			return &user, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

// GetOrCreateUser returns the user with the same email, creating it when missing.
func (s *Store) GetOrCreateUser(ctx context.Context, user *model.User) (*model.User, error) {
	if existing, err := s.GetUserByEmail(ctx, user.Email); err == nil {
		return existing, nil
	}
	if err := s.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return s.GetUserByEmail(ctx, user.Email)
		}
		return nil, err
	}
	stored := *user
	return &stored, nil
}

// CreateAPIKey stores an API key.
func (s *Store) CreateAPIKey(_ context.Context, key *model.APIKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *key
	stored.Scopes = slices.Clone(key.Scopes)
	s.state.apiKeys[key.ID] = stored
	return nil
}

// GetAPIKeysByPrefix returns the active keys sharing a prefix, with the
// owner's email filled in.
func (s *Store) GetAPIKeysByPrefix(_ context.Context, prefix string) ([]*model.APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var keys []*model.APIKey
	for _, k := range s.state.apiKeys {
		if k.KeyPrefix != prefix || k.IsRevoked() {
			continue
		}
		user, ok := s.state.users[k.UserID]
		if !ok {
			continue
		}
		key := k
		key.Scopes = slices.Clone(k.Scopes)
		key.UserEmail = user.Email
		keys = append(keys, &key)
	}
	return keys, nil
}

// UpdateAPIKeyLastUsed records the time a key was last used.
func (s *Store) UpdateAPIKeyLastUsed(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key, ok := s.state.apiKeys[id]
	if !ok {
		return repository.ErrAPIKeyNotFound
	}
	now := time.Now()
	key.LastUsedAt = &now
	s.state.apiKeys[id] = key
	return nil
}
