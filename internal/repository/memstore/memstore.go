// Package memstore provides an in-process entity store with the same
// behavior and error values as the PostgreSQL repository. It backs the
// memory store backend and the service and handler tests.
package memstore

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/confcentral/confcentral/internal/model"
	"github.com/confcentral/confcentral/internal/query"
	"github.com/confcentral/confcentral/internal/repository"
)

type memoryState struct {
	users       map[string]model.User
	apiKeys     map[string]model.APIKey
	profiles    map[string]*model.Profile
	conferences map[string]*model.Conference
	sessions    map[string]*model.Session
	speakers    map[string]model.Speaker
}

func newMemoryState() memoryState {
	return memoryState{
		users:       map[string]model.User{},
		apiKeys:     map[string]model.APIKey{},
		profiles:    map[string]*model.Profile{},
		conferences: map[string]*model.Conference{},
		sessions:    map[string]*model.Session{},
		speakers:    map[string]model.Speaker{},
	}
}

// Store is a mutex guarded in-memory store. Every returned entity is a copy.
type Store struct {
	mu    sync.RWMutex
	state memoryState
}

// New returns an empty store.
func New() *Store {
	return &Store{state: newMemoryState()}
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error {
	return nil
}

// Close is a no-op.
func (s *Store) Close() {}

// RunInTx runs fn with exclusive access to the store. Writes made through the
// Tx are staged and become visible only when fn returns nil. fn must not call
// other Store methods.
func (s *Store) RunInTx(ctx context.Context, fn repository.TxFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{
		state:       &s.state,
		profiles:    map[string]*model.Profile{},
		conferences: map[string]*model.Conference{},
	}
	if err := fn(ctx, tx); err != nil {
		return err
	}

	for id, p := range tx.profiles {
		s.state.profiles[id] = p
	}
	for id, c := range tx.conferences {
		s.state.conferences[id] = c
	}
	return nil
}

type memTx struct {
	state       *memoryState
	profiles    map[string]*model.Profile
	conferences map[string]*model.Conference
}

func (t *memTx) GetProfileForUpdate(_ context.Context, userID string) (*model.Profile, error) {
	if p, ok := t.profiles[userID]; ok {
		return p.Clone(), nil
	}
	p, ok := t.state.profiles[userID]
	if !ok {
		return nil, repository.ErrProfileNotFound
	}
	return p.Clone(), nil
}

func (t *memTx) GetConferenceForUpdate(_ context.Context, key model.Key) (*model.Conference, error) {
	if c, ok := t.conferences[key.ID]; ok && c.OrganizerUserID == key.ParentID() {
		return c.Clone(), nil
	}
	return lookupConference(t.state, key)
}

func (t *memTx) UpdateProfile(_ context.Context, profile *model.Profile) error {
	if _, ok := t.state.profiles[profile.UserID]; !ok {
		return repository.ErrProfileNotFound
	}
	t.profiles[profile.UserID] = profile.Clone()
	return nil
}

func (t *memTx) UpdateConference(_ context.Context, conf *model.Conference) error {
	if _, ok := t.state.conferences[conf.ID]; !ok {
		return repository.ErrConferenceNotFound
	}
	if conf.SeatsAvailable < 0 {
		return repository.ErrConstraintViolated
	}
	conf.UpdatedAt = time.Now().UTC()
	t.conferences[conf.ID] = conf.Clone()
	return nil
}

// CreateProfile stores a new profile or returns repository.ErrProfileExists.
func (s *Store) CreateProfile(_ context.Context, profile *model.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.state.profiles[profile.UserID]; ok {
		return repository.ErrProfileExists
	}
	s.state.profiles[profile.UserID] = profile.Clone()
	return nil
}

// GetProfile returns a profile by user id.
func (s *Store) GetProfile(_ context.Context, userID string) (*model.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.state.profiles[userID]
	if !ok {
		return nil, repository.ErrProfileNotFound
	}
	return p.Clone(), nil
}

// UpdateProfile overwrites a stored profile.
func (s *Store) UpdateProfile(_ context.Context, profile *model.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.state.profiles[profile.UserID]; !ok {
		return repository.ErrProfileNotFound
	}
	s.state.profiles[profile.UserID] = profile.Clone()
	return nil
}

// GetProfilesByIDs returns the profiles that exist, keyed by user id.
func (s *Store) GetProfilesByIDs(_ context.Context, userIDs []string) (map[string]*model.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]*model.Profile, len(userIDs))
	for _, id := range userIDs {
		if p, ok := s.state.profiles[id]; ok {
			out[id] = p.Clone()
		}
	}
	return out, nil
}

// CreateConference stores a new conference. The organizer profile must exist.
func (s *Store) CreateConference(_ context.Context, conf *model.Conference) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.state.profiles[conf.OrganizerUserID]; !ok {
		return repository.ErrProfileNotFound
	}
	if conf.SeatsAvailable < 0 {
		return repository.ErrConstraintViolated
	}
	s.state.conferences[conf.ID] = conf.Clone()
	return nil
}

// GetConference returns a conference by key.
func (s *Store) GetConference(_ context.Context, key model.Key) (*model.Conference, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return lookupConference(&s.state, key)
}

// GetConferencesByKeys returns conferences in key order, skipping keys that
// do not resolve.
func (s *Store) GetConferencesByKeys(_ context.Context, keys []model.Key) ([]*model.Conference, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*model.Conference, 0, len(keys))
	for _, k := range keys {
		if c, err := lookupConference(&s.state, k); err == nil {
			out = append(out, c)
		}
	}
	return out, nil
}

// ListConferencesByOrganizer returns the conferences a user created, by name.
func (s *Store) ListConferencesByOrganizer(_ context.Context, userID string) ([]*model.Conference, error) {
	return s.filterConferences(func(c *model.Conference) bool {
		return c.OrganizerUserID == userID
	}), nil
}

// ListNearlySoldOut returns conferences with 1..threshold seats left, by name.
func (s *Store) ListNearlySoldOut(_ context.Context, threshold int) ([]*model.Conference, error) {
	return s.filterConferences(func(c *model.Conference) bool {
		return c.SeatsAvailable > 0 && c.SeatsAvailable <= threshold
	}), nil
}

// QueryConferences evaluates a plan in memory.
func (s *Store) QueryConferences(_ context.Context, plan *query.Plan) ([]*model.Conference, error) {
	s.mu.RLock()
	all := make([]*model.Conference, 0, len(s.state.conferences))
	for _, c := range s.state.conferences {
		all = append(all, c.Clone())
	}
	s.mu.RUnlock()

	return plan.Apply(all), nil
}

// UpdateConference overwrites a stored conference.
func (s *Store) UpdateConference(_ context.Context, conf *model.Conference) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.state.conferences[conf.ID]; !ok {
		return repository.ErrConferenceNotFound
	}
	if conf.SeatsAvailable < 0 {
		return repository.ErrConstraintViolated
	}
	conf.UpdatedAt = time.Now().UTC()
	s.state.conferences[conf.ID] = conf.Clone()
	return nil
}

func (s *Store) filterConferences(keep func(*model.Conference) bool) []*model.Conference {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*model.Conference, 0)
	for _, c := range s.state.conferences {
		if keep(c) {
			out = append(out, c.Clone())
		}
	}
	slices.SortFunc(out, func(a, b *model.Conference) int {
		if c := strings.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out
}

func lookupConference(state *memoryState, key model.Key) (*model.Conference, error) {
	c, ok := state.conferences[key.ID]
	if !ok || c.OrganizerUserID != key.ParentID() {
		return nil, repository.ErrConferenceNotFound
	}
	return c.Clone(), nil
}
