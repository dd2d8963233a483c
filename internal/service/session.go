package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/confcentral/confcentral/internal/metrics"
	"github.com/confcentral/confcentral/internal/model"
	"github.com/confcentral/confcentral/internal/repository"
)

// Preset boundaries.
var (
	eveningCutoff = model.NewClock(19, 0)
	lunchEnd      = model.NewClock(13, 0)
)

// SessionService handles session and wishlist business logic.
type SessionService struct {
	store          Store
	profiles       *ProfileService
	tasks          TaskQueue
	metrics        metrics.Recorder
	logger         *slog.Logger
	publishTimeout time.Duration
}

// NewSessionService creates a new SessionService. tasks may be nil, in which
// case featured speakers are never evaluated.
func NewSessionService(store Store, profiles *ProfileService, tasks TaskQueue, recorder metrics.Recorder, logger *slog.Logger, publishTimeout time.Duration) *SessionService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if logger == nil {
		logger = slog.Default()
	}
	if publishTimeout <= 0 {
		publishTimeout = DefaultPublishTimeout
	}
	return &SessionService{
		store:          store,
		profiles:       profiles,
		tasks:          tasks,
		metrics:        recorder,
		logger:         logger.With("component", "session_service"),
		publishTimeout: publishTimeout,
	}
}

// CreateSession adds a session to a conference the caller organizes. When a
// speaker is named, the featured speaker evaluation is queued.
func (s *SessionService) CreateSession(ctx context.Context, caller *model.AuthContext, conferenceKey string, in SessionInput) (*model.Session, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	conf, err := s.getConference(ctx, conferenceKey)
	if err != nil {
		return nil, err
	}
	if conf.OrganizerUserID != caller.UserID {
		return nil, ErrNotOwner
	}

	var speakerID string
	if in.SpeakerKey != "" {
		speakerKey, err := decodeKey(in.SpeakerKey, model.KindSpeaker)
		if err != nil {
			return nil, err
		}
		if _, err := s.store.GetSpeaker(ctx, speakerKey.ID); err != nil {
			if errors.Is(err, repository.ErrSpeakerNotFound) {
				return nil, notFoundf("%s with key: %s", ErrSpeakerNotFound.Message, in.SpeakerKey)
			}
			return nil, err
		}
		speakerID = speakerKey.ID
	}

	session, err := newSession(conf, speakerID, in)
	if err != nil {
		return nil, err
	}
	if err := s.store.CreateSession(ctx, session); err != nil {
		return nil, mapStoreError(err, "failed to create session")
	}

	s.metrics.IncSessionCreated()
	s.logger.Info("session created", "session_key", session.Key().Encode(), "conference_key", conf.Key().Encode())

	if s.tasks != nil && speakerID != "" {
		speakerKey := session.SpeakerKey()
		confKey := conf.Key().Encode()
		enqueue(ctx, s.logger, s.publishTimeout, "handle_featured_speaker", func(ctx context.Context) error {
			return s.tasks.EnqueueFeaturedSpeaker(ctx, speakerKey, confKey)
		})
	}

	return session, nil
}

// ListByConference returns every session of a conference.
func (s *SessionService) ListByConference(ctx context.Context, conferenceKey string) ([]*model.Session, error) {
	conf, err := s.getConference(ctx, conferenceKey)
	if err != nil {
		return nil, err
	}

	sessions, err := s.store.ListSessionsByConference(ctx, conf.Key(), "")
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return sessions, nil
}

// ListByType returns a conference's sessions of one type. An empty result is
// reported as not found.
func (s *SessionService) ListByType(ctx context.Context, conferenceKey, typeOfSession string) ([]*model.Session, error) {
	conf, err := s.getConference(ctx, conferenceKey)
	if err != nil {
		return nil, err
	}

	sessions, err := s.store.ListSessionsByConference(ctx, conf.Key(), typeOfSession)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	if len(sessions) == 0 {
		return nil, notFoundf("%s with session type %s", ErrSessionNotFound.Message, typeOfSession)
	}
	return sessions, nil
}

// ListBySpeaker returns every session given by a speaker. An empty result is
// reported as not found.
func (s *SessionService) ListBySpeaker(ctx context.Context, speakerKey string) ([]*model.Session, error) {
	key, err := decodeKey(speakerKey, model.KindSpeaker)
	if err != nil {
		return nil, err
	}

	sessions, err := s.store.ListSessionsBySpeaker(ctx, key.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	if len(sessions) == 0 {
		return nil, notFoundf("%s with speaker %s", ErrSessionNotFound.Message, speakerKey)
	}
	return sessions, nil
}

// NonWorkshopsBeforeSeven returns sessions that are not workshops and start
// before 19:00.
func (s *SessionService) NonWorkshopsBeforeSeven(ctx context.Context) ([]*model.Session, error) {
	sessions, err := s.store.ListSessionsNotOfTypeBefore(ctx, model.SessionTypeWorkshop, eveningCutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return sessions, nil
}

// AfterLunch returns sessions starting at or after 13:00.
func (s *SessionService) AfterLunch(ctx context.Context) ([]*model.Session, error) {
	sessions, err := s.store.ListSessionsStartingFrom(ctx, lunchEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return sessions, nil
}

func (s *SessionService) getConference(ctx context.Context, websafeKey string) (*model.Conference, error) {
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
	return conf, nil
}

func (s *SessionService) getSession(ctx context.Context, websafeKey string) (*model.Session, error) {
	key, err := decodeKey(websafeKey, model.KindSession)
	if err != nil {
		return nil, err
	}
	session, err := s.store.GetSession(ctx, key)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, notFoundf("%s with key: %s", ErrSessionNotFound.Message, websafeKey)
		}
		return nil, err
	}
	return session, nil
}
