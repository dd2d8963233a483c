package memstore

import (
	"context"
	"slices"
	"strings"

	"github.com/confcentral/confcentral/internal/model"
	"github.com/confcentral/confcentral/internal/repository"
)

// CreateSession stores a new session. The parent conference must exist.
func (s *Store) CreateSession(_ context.Context, session *model.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := lookupConference(&s.state, session.ConferenceKey()); err != nil {
		return err
	}
	s.state.sessions[session.ID] = session.Clone()
	return nil
}

// GetSession returns a session by key, checking its full ancestor path.
func (s *Store) GetSession(_ context.Context, key model.Key) (*model.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.state.sessions[key.ID]
	if !ok || !session.Key().Equal(key) {
		return nil, repository.ErrSessionNotFound
	}
	return session.Clone(), nil
}

// GetSessionsByKeys returns sessions in key order, skipping keys that do not resolve.
func (s *Store) GetSessionsByKeys(_ context.Context, keys []model.Key) ([]*model.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*model.Session, 0, len(keys))
	for _, k := range keys {
		if session, ok := s.state.sessions[k.ID]; ok && session.Key().Equal(k) {
			out = append(out, session.Clone())
		}
	}
	return out, nil
}

// ListSessionsByConference returns a conference's sessions, optionally
// restricted to one session type.
func (s *Store) ListSessionsByConference(_ context.Context, confKey model.Key, typeOfSession string) ([]*model.Session, error) {
	return s.filterSessions(func(session *model.Session) bool {
		if !session.ConferenceKey().Equal(confKey) {
			return false
		}
		return typeOfSession == "" || session.TypeOfSession == typeOfSession
	}), nil
}

// ListSessionsBySpeaker returns every session given by a speaker.
func (s *Store) ListSessionsBySpeaker(_ context.Context, speakerID string) ([]*model.Session, error) {
	return s.filterSessions(func(session *model.Session) bool {
		return session.SpeakerID == speakerID
	}), nil
}

// ListSessionsBySpeakerInConference returns a speaker's sessions within one conference.
func (s *Store) ListSessionsBySpeakerInConference(_ context.Context, speakerID string, confKey model.Key) ([]*model.Session, error) {
	return s.filterSessions(func(session *model.Session) bool {
		return session.SpeakerID == speakerID && session.ConferenceID == confKey.ID
	}), nil
}

// ListSessionsNotOfTypeBefore returns sessions of any type but excluded that
// start strictly before the given time. Sessions without a start time never match.
func (s *Store) ListSessionsNotOfTypeBefore(_ context.Context, excluded string, before model.Clock) ([]*model.Session, error) {
	return s.filterSessions(func(session *model.Session) bool {
		return session.TypeOfSession != excluded &&
			session.StartTime != nil && *session.StartTime < before
	}), nil
}

// ListSessionsStartingFrom returns sessions starting at or after the given time.
func (s *Store) ListSessionsStartingFrom(_ context.Context, from model.Clock) ([]*model.Session, error) {
	return s.filterSessions(func(session *model.Session) bool {
		return session.StartTime != nil && *session.StartTime >= from
	}), nil
}

func (s *Store) filterSessions(keep func(*model.Session) bool) []*model.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*model.Session, 0)
	for _, session := range s.state.sessions {
		if keep(session) {
			out = append(out, session.Clone())
		}
	}
	slices.SortFunc(out, func(a, b *model.Session) int {
		if c := strings.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out
}

// CreateSpeaker stores a new speaker.
func (s *Store) CreateSpeaker(_ context.Context, speaker *model.Speaker) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.speakers[speaker.ID] = *speaker
	return nil
}

// GetSpeaker returns a speaker by id.
func (s *Store) GetSpeaker(_ context.Context, id string) (*model.Speaker, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	speaker, ok := s.state.speakers[id]
	if !ok {
		return nil, repository.ErrSpeakerNotFound
	}
	return &speaker, nil
}
