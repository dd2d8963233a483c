package service

import (
	"context"
	"fmt"

	"github.com/confcentral/confcentral/internal/model"
	"github.com/confcentral/confcentral/internal/repository"
)

// AddToWishlist adds a session to the caller's wishlist. Adding a session
// twice is a validation error.
func (s *SessionService) AddToWishlist(ctx context.Context, caller *model.AuthContext, sessionKey string) error {
	return s.editWishlist(ctx, caller, sessionKey, func(profile *model.Profile, encoded string) error {
		if profile.HasWishlisted(encoded) {
			return validationf("%s: %s", ErrAlreadyWishlisted.Message, sessionKey)
		}
		profile.Wishlist(encoded)
		return nil
	})
}

// RemoveFromWishlist removes a session from the caller's wishlist. Removing a
// session that is not wishlisted is a not found error.
func (s *SessionService) RemoveFromWishlist(ctx context.Context, caller *model.AuthContext, sessionKey string) error {
	return s.editWishlist(ctx, caller, sessionKey, func(profile *model.Profile, encoded string) error {
		if !profile.Unwishlist(encoded) {
			return notFoundf("%s: %s", ErrNotWishlisted.Message, sessionKey)
		}
		return nil
	})
}

// ListWishlist returns the caller's wishlisted sessions in the order they
// were added. Sessions that no longer resolve are skipped.
func (s *SessionService) ListWishlist(ctx context.Context, caller *model.AuthContext) ([]*model.Session, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	profile, err := s.profiles.ensureProfile(ctx, caller)
	if err != nil {
		return nil, err
	}

	keys := make([]model.Key, 0, len(profile.SessionKeysWishlist))
	for _, websafe := range profile.SessionKeysWishlist {
		key, err := model.DecodeKeyOf(websafe, model.KindSession)
		if err != nil {
			continue
		}
		keys = append(keys, key)
	}

	sessions, err := s.store.GetSessionsByKeys(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("failed to get sessions: %w", err)
	}
	return sessions, nil
}

// editWishlist resolves the session, then applies edit to the caller's
// profile inside a transaction holding the profile row lock.
func (s *SessionService) editWishlist(ctx context.Context, caller *model.AuthContext, sessionKey string, edit func(*model.Profile, string) error) error {
	if err := requireCaller(caller); err != nil {
		return err
	}
	session, err := s.getSession(ctx, sessionKey)
	if err != nil {
		return err
	}
	if _, err := s.profiles.ensureProfile(ctx, caller); err != nil {
		return err
	}

	encoded := session.Key().Encode()
	err = s.store.RunInTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		profile, err := tx.GetProfileForUpdate(ctx, caller.UserID)
		if err != nil {
			return err
		}
		if err := edit(profile, encoded); err != nil {
			return err
		}
		return tx.UpdateProfile(ctx, profile)
	})
	if err != nil {
		return mapStoreError(err, "failed to update wishlist")
	}
	return nil
}
