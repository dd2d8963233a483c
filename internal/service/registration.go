package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/confcentral/confcentral/internal/metrics"
	"github.com/confcentral/confcentral/internal/model"
	"github.com/confcentral/confcentral/internal/repository"
)

// LedgerConfig tunes the registration ledger.
type LedgerConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// Ledger performs transactional seat accounting for registrations.
type Ledger struct {
	store       Store
	profiles    *ProfileService
	metrics     metrics.Recorder
	logger      *slog.Logger
	maxAttempts int
	baseDelay   time.Duration
}

// NewLedger creates a new Ledger.
func NewLedger(store Store, profiles *ProfileService, recorder metrics.Recorder, logger *slog.Logger, cfg LedgerConfig) *Ledger {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = defaultBaseDelay
	}
	return &Ledger{
		store:       store,
		profiles:    profiles,
		metrics:     recorder,
		logger:      logger.With("component", "registration_ledger"),
		maxAttempts: cfg.MaxAttempts,
		baseDelay:   cfg.BaseDelay,
	}
}

// Register adds the conference to the caller's attending list and takes one
// seat. Both writes commit together.
func (l *Ledger) Register(ctx context.Context, caller *model.AuthContext, websafeKey string) (bool, error) {
	return l.transition(ctx, caller, websafeKey, true)
}

// Unregister removes the conference from the caller's attending list and
// returns the seat. It returns false, with no change, when the caller was not
// registered.
func (l *Ledger) Unregister(ctx context.Context, caller *model.AuthContext, websafeKey string) (bool, error) {
	return l.transition(ctx, caller, websafeKey, false)
}

func (l *Ledger) transition(ctx context.Context, caller *model.AuthContext, websafeKey string, register bool) (bool, error) {
	if err := requireCaller(caller); err != nil {
		return false, err
	}
	key, err := decodeKey(websafeKey, model.KindConference)
	if err != nil {
		return false, err
	}
	if _, err := l.profiles.ensureProfile(ctx, caller); err != nil {
		return false, err
	}

	// Stored keys are compared in canonical form.
	encoded := key.Encode()

	var changed bool
	err = retryOnConflict(ctx, l.maxAttempts, l.baseDelay, l.metrics.IncRegistrationRetry, func(ctx context.Context) error {
		return l.store.RunInTx(ctx, func(ctx context.Context, tx repository.Tx) error {
			profile, err := tx.GetProfileForUpdate(ctx, caller.UserID)
			if err != nil {
				return err
			}
			conf, err := tx.GetConferenceForUpdate(ctx, key)
			if err != nil {
				return err
			}

			if register {
				if profile.IsAttending(encoded) {
					return ErrAlreadyRegistered
				}
				if conf.SeatsAvailable <= 0 {
					return ErrNoSeatsAvailable
				}
				profile.Attend(encoded)
				conf.SeatsAvailable--
			} else {
				if !profile.Unattend(encoded) {
					changed = false
					return nil
				}
				conf.SeatsAvailable++
			}

			if err := tx.UpdateProfile(ctx, profile); err != nil {
				return err
			}
			if err := tx.UpdateConference(ctx, conf); err != nil {
				return err
			}
			changed = true
			return nil
		})
	})

	switch {
	case err == nil:
	case errors.Is(err, repository.ErrTxConflict):
		l.metrics.IncRegistration(metrics.RegistrationConflict)
		l.logger.Warn("registration retries exhausted", "conference_key", encoded, "user_id", caller.UserID, "error", err)
		return false, ErrRegistrationContended
	case errors.Is(err, ErrConflict):
		l.metrics.IncRegistration(metrics.RegistrationConflict)
		return false, err
	case errors.Is(err, repository.ErrConferenceNotFound):
		return false, notFoundf("%s with key: %s", ErrConferenceNotFound.Message, websafeKey)
	default:
		return false, mapStoreError(err, "failed to update registration")
	}

	switch {
	case register:
		l.metrics.IncRegistration(metrics.RegistrationRegistered)
	case changed:
		l.metrics.IncRegistration(metrics.RegistrationUnregistered)
	default:
		l.metrics.IncRegistration(metrics.RegistrationNoop)
	}
	return changed, nil
}
