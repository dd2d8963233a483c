package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/confcentral/confcentral/internal/model"
	"github.com/confcentral/confcentral/internal/repository"
)

// ProfileService handles profile business logic.
type ProfileService struct {
	store  Store
	logger *slog.Logger
}

// NewProfileService creates a new ProfileService.
func NewProfileService(store Store, logger *slog.Logger) *ProfileService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProfileService{
		store:  store,
		logger: logger.With("component", "profile_service"),
	}
}

// GetProfile returns the caller's profile, creating it on first access.
func (s *ProfileService) GetProfile(ctx context.Context, caller *model.AuthContext) (*model.Profile, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	return s.ensureProfile(ctx, caller)
}

// SaveProfile updates the caller's display name and shirt size. An empty
// field leaves the stored value untouched.
func (s *ProfileService) SaveProfile(ctx context.Context, caller *model.AuthContext, in ProfileUpdate) (*model.Profile, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	if _, err := s.ensureProfile(ctx, caller); err != nil {
		return nil, err
	}

	var saved *model.Profile
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		profile, err := tx.GetProfileForUpdate(ctx, caller.UserID)
		if err != nil {
			return err
		}
		if err := applyProfileUpdate(profile, in); err != nil {
			return err
		}
		if err := tx.UpdateProfile(ctx, profile); err != nil {
			return err
		}
		saved = profile
		return nil
	})
	if err != nil {
		return nil, mapStoreError(err, "failed to save profile")
	}

	return saved, nil
}

// ensureProfile loads the caller's profile, creating the default profile when
// none exists yet. A concurrent first access by the same user is tolerated.
func (s *ProfileService) ensureProfile(ctx context.Context, caller *model.AuthContext) (*model.Profile, error) {
	profile, err := s.store.GetProfile(ctx, caller.UserID)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, repository.ErrProfileNotFound) {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	profile = model.NewProfile(caller.UserID, caller.Email)
	if err := s.store.CreateProfile(ctx, profile); err != nil {
		if errors.Is(err, repository.ErrProfileExists) {
			return s.store.GetProfile(ctx, caller.UserID)
		}
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}

	s.logger.Info("profile created", "user_id", caller.UserID)
	return profile, nil
}

// mapStoreError translates repository errors into service errors. Service
// errors pass through unchanged.
func mapStoreError(err error, action string) error {
	var svcErr *Error
	switch {
	case errors.As(err, &svcErr):
		return err
	case errors.Is(err, repository.ErrConferenceNotFound):
		return ErrConferenceNotFound
	case errors.Is(err, repository.ErrSessionNotFound):
		return ErrSessionNotFound
	case errors.Is(err, repository.ErrSpeakerNotFound):
		return ErrSpeakerNotFound
	case errors.Is(err, repository.ErrProfileNotFound):
		return notFoundf("no profile found")
	case errors.Is(err, repository.ErrConstraintViolated):
		return ErrNoSeatsAvailable
	}
	return fmt.Errorf("%s: %w", action, err)
}
