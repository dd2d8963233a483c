package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/confcentral/confcentral/internal/metrics"
	"github.com/confcentral/confcentral/internal/model"
	"github.com/confcentral/confcentral/internal/query"
	"github.com/confcentral/confcentral/internal/repository"
)

// DefaultPublishTimeout bounds how long a request waits on an enqueue.
const DefaultPublishTimeout = 500 * time.Millisecond

// ConferenceService handles conference business logic.
type ConferenceService struct {
	store          Store
	profiles       *ProfileService
	tasks          TaskQueue
	metrics        metrics.Recorder
	logger         *slog.Logger
	publishTimeout time.Duration
}

// NewConferenceService creates a new ConferenceService. tasks may be nil,
// in which case no confirmation email is queued.
func NewConferenceService(store Store, profiles *ProfileService, tasks TaskQueue, recorder metrics.Recorder, logger *slog.Logger, publishTimeout time.Duration) *ConferenceService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if logger == nil {
		logger = slog.Default()
	}
	if publishTimeout <= 0 {
		publishTimeout = DefaultPublishTimeout
	}
	return &ConferenceService{
		store:          store,
		profiles:       profiles,
		tasks:          tasks,
		metrics:        recorder,
		logger:         logger.With("component", "conference_service"),
		publishTimeout: publishTimeout,
	}
}

// CreateConference creates a conference owned by the caller and queues a
// confirmation email to the caller.
func (s *ConferenceService) CreateConference(ctx context.Context, caller *model.AuthContext, in ConferenceInput) (*ConferenceDetails, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}

	conf, err := newConference(caller.UserID, in)
	if err != nil {
		return nil, err
	}

	profile, err := s.profiles.ensureProfile(ctx, caller)
	if err != nil {
		return nil, err
	}

	if err := s.store.CreateConference(ctx, conf); err != nil {
		return nil, mapStoreError(err, "failed to create conference")
	}

	s.metrics.IncConferenceCreated()
	s.logger.Info("conference created", "conference_key", conf.Key().Encode(), "user_id", caller.UserID)

	if s.tasks != nil && profile.MainEmail != "" {
		enqueue(ctx, s.logger, s.publishTimeout, "send_confirmation_email", func(ctx context.Context) error {
			return s.tasks.EnqueueConfirmationEmail(ctx, profile.MainEmail, conferenceSummary(conf))
		})
	}

	return &ConferenceDetails{Conference: conf, OrganizerDisplayName: profile.DisplayName}, nil
}

// UpdateConference applies a partial update. Only the organizer may update.
// The row is locked for the update so concurrent registrations are not lost.
func (s *ConferenceService) UpdateConference(ctx context.Context, caller *model.AuthContext, websafeKey string, in ConferenceUpdate) (*ConferenceDetails, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	key, err := decodeKey(websafeKey, model.KindConference)
	if err != nil {
		return nil, err
	}

	var updated *model.Conference
	err = s.store.RunInTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		conf, err := tx.GetConferenceForUpdate(ctx, key)
		if err != nil {
			return err
		}
		if conf.OrganizerUserID != caller.UserID {
			return ErrNotOwner
		}
		if err := applyConferenceUpdate(conf, in); err != nil {
			return err
		}
		if err := tx.UpdateConference(ctx, conf); err != nil {
			return err
		}
		updated = conf
		return nil
	})
	if err != nil {
		return nil, mapStoreError(err, "failed to update conference")
	}

	s.metrics.IncConferenceUpdated()

	details, err := s.withOrganizerNames(ctx, []*model.Conference{updated})
	if err != nil {
		return nil, err
	}
	return &details[0], nil
}

// GetConference returns a conference by its opaque key.
func (s *ConferenceService) GetConference(ctx context.Context, websafeKey string) (*ConferenceDetails, error) {
	key, err := decodeKey(websafeKey, model.KindConference)
	if err != nil {
		return nil, err
	}

	conf, err := s.store.GetConference(ctx, key)
	if err != nil {
		if errors.Is(err, repository.ErrConferenceNotFound) {
			return nil, notFoundf("%s with key: %s", ErrConferenceNotFound.Message, websafeKey)
		}
		return nil, err
	}

	details, err := s.withOrganizerNames(ctx, []*model.Conference{conf})
	if err != nil {
		return nil, err
	}
	return &details[0], nil
}

// ListCreated returns the conferences the caller organizes.
func (s *ConferenceService) ListCreated(ctx context.Context, caller *model.AuthContext) ([]ConferenceDetails, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	profile, err := s.profiles.ensureProfile(ctx, caller)
	if err != nil {
		return nil, err
	}

	confs, err := s.store.ListConferencesByOrganizer(ctx, caller.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list conferences: %w", err)
	}

	out := make([]ConferenceDetails, 0, len(confs))
	for _, conf := range confs {
		out = append(out, ConferenceDetails{Conference: conf, OrganizerDisplayName: profile.DisplayName})
	}
	return out, nil
}

// QueryConferences validates the filters and runs the resulting plan.
func (s *ConferenceService) QueryConferences(ctx context.Context, filters []query.Filter) ([]ConferenceDetails, error) {
	plan, err := query.Build(filters)
	if err != nil {
		return nil, newError(ErrValidation, err.Error())
	}
	return s.runPlan(ctx, plan)
}

// SmallConferences returns conferences with fewer than 50 max attendees.
func (s *ConferenceService) SmallConferences(ctx context.Context) ([]ConferenceDetails, error) {
	return s.runPlan(ctx, query.SmallConferences())
}

// ListAttending returns the conferences the caller is registered for, in
// registration order.
func (s *ConferenceService) ListAttending(ctx context.Context, caller *model.AuthContext) ([]ConferenceDetails, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	profile, err := s.profiles.ensureProfile(ctx, caller)
	if err != nil {
		return nil, err
	}

	keys := make([]model.Key, 0, len(profile.ConferenceKeysToAttend))
	for _, websafe := range profile.ConferenceKeysToAttend {
		key, err := model.DecodeKeyOf(websafe, model.KindConference)
		if err != nil {
			s.logger.Warn("skipping malformed attending key", "user_id", caller.UserID, "key", websafe)
			continue
		}
		keys = append(keys, key)
	}

	confs, err := s.store.GetConferencesByKeys(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("failed to get conferences: %w", err)
	}
	return s.withOrganizerNames(ctx, confs)
}

func (s *ConferenceService) runPlan(ctx context.Context, plan *query.Plan) ([]ConferenceDetails, error) {
	confs, err := s.store.QueryConferences(ctx, plan)
	if err != nil {
		return nil, fmt.Errorf("failed to query conferences: %w", err)
	}
	return s.withOrganizerNames(ctx, confs)
}

// withOrganizerNames resolves organizer display names with one batched lookup.
func (s *ConferenceService) withOrganizerNames(ctx context.Context, confs []*model.Conference) ([]ConferenceDetails, error) {
	ids := make([]string, 0, len(confs))
	seen := make(map[string]struct{}, len(confs))
	for _, conf := range confs {
		if _, ok := seen[conf.OrganizerUserID]; ok {
			continue
		}
		seen[conf.OrganizerUserID] = struct{}{}
		ids = append(ids, conf.OrganizerUserID)
	}

	profiles, err := s.store.GetProfilesByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to get organizers: %w", err)
	}

	out := make([]ConferenceDetails, 0, len(confs))
	for _, conf := range confs {
		details := ConferenceDetails{Conference: conf}
		if p, ok := profiles[conf.OrganizerUserID]; ok {
			details.OrganizerDisplayName = p.DisplayName
		}
		out = append(out, details)
	}
	return out, nil
}

// conferenceSummary renders the conference body of the confirmation email.
func conferenceSummary(conf *model.Conference) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Name: %s\n", conf.Name)
	if conf.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", conf.Description)
	}
	fmt.Fprintf(&b, "City: %s\n", conf.City)
	fmt.Fprintf(&b, "Topics: %s\n", strings.Join(conf.Topics, ", "))
	if conf.StartDate != nil {
		fmt.Fprintf(&b, "Dates: %s to %s\n", model.FormatDate(conf.StartDate), model.FormatDate(conf.EndDate))
	}
	fmt.Fprintf(&b, "Max attendees: %d\n", conf.MaxAttendees)
	fmt.Fprintf(&b, "Key: %s\n", conf.Key().Encode())
	return b.String()
}
