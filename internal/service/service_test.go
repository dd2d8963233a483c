package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/confcentral/confcentral/internal/metrics"
	"github.com/confcentral/confcentral/internal/model"
	"github.com/confcentral/confcentral/internal/repository"
	"github.com/confcentral/confcentral/internal/repository/memstore"
)

var errCacheMiss = errors.New("cache miss")

type fakeCache struct {
	mu     sync.Mutex
	values map[string]string
	err    error
}

func newFakeCache() *fakeCache {
	return &fakeCache{values: map[string]string{}}
}

func (c *fakeCache) GetFact(_ context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return "", c.err
	}
	v, ok := c.values[key]
	if !ok {
		return "", errCacheMiss
	}
	return v, nil
}

func (c *fakeCache) SetFact(_ context.Context, key, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.values[key] = value
	return nil
}

func (c *fakeCache) DeleteFact(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	delete(c.values, key)
	return nil
}

type queuedTask struct {
	kind string
	args []string
}

type fakeQueue struct {
	mu    sync.Mutex
	tasks []queuedTask
	err   error
}

func (q *fakeQueue) EnqueueConfirmationEmail(_ context.Context, email, info string) error {
	return q.add("send_confirmation_email", email, info)
}

func (q *fakeQueue) EnqueueFeaturedSpeaker(_ context.Context, speakerKey, conferenceKey string) error {
	return q.add("handle_featured_speaker", speakerKey, conferenceKey)
}

func (q *fakeQueue) add(kind string, args ...string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.tasks = append(q.tasks, queuedTask{kind: kind, args: args})
	return nil
}

func (q *fakeQueue) queued() []queuedTask {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]queuedTask(nil), q.tasks...)
}

// conflictStore fails the first conflicts transactions with ErrTxConflict.
type conflictStore struct {
	*memstore.Store
	mu        sync.Mutex
	conflicts int
}

func (s *conflictStore) RunInTx(ctx context.Context, fn repository.TxFunc) error {
	s.mu.Lock()
	if s.conflicts > 0 {
		s.conflicts--
		s.mu.Unlock()
		return repository.ErrTxConflict
	}
	s.mu.Unlock()
	return s.Store.RunInTx(ctx, fn)
}

type testEnv struct {
	store       Store
	cache       *fakeCache
	queue       *fakeQueue
	recorder    *metrics.InMemoryRecorder
	profiles    *ProfileService
	conferences *ConferenceService
	ledger      *Ledger
	sessions    *SessionService
	speakers    *SpeakerService
	facts       *FactService
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithStore(t, memstore.New())
}

func newTestEnvWithStore(t *testing.T, store Store) *testEnv {
	t.Helper()
	logger := discardLogger()
	env := &testEnv{
		store:    store,
		cache:    newFakeCache(),
		queue:    &fakeQueue{},
		recorder: metrics.NewInMemory(),
	}
	env.profiles = NewProfileService(store, logger)
	env.conferences = NewConferenceService(store, env.profiles, env.queue, env.recorder, logger, 0)
	env.ledger = NewLedger(store, env.profiles, env.recorder, logger, LedgerConfig{MaxAttempts: 3, BaseDelay: 1})
	env.sessions = NewSessionService(store, env.profiles, env.queue, env.recorder, logger, 0)
	env.speakers = NewSpeakerService(store)
	env.facts = NewFactService(store, env.cache, env.recorder, logger, DefaultFeaturedThreshold)
	return env
}

func caller(id string) *model.AuthContext {
	return &model.AuthContext{UserID: id, Email: id + "@example.com", Scopes: []string{model.ScopeWrite}}
}

func (e *testEnv) createConference(t *testing.T, owner *model.AuthContext, name string, maxAttendees int) *model.Conference {
	t.Helper()
	details, err := e.conferences.CreateConference(context.Background(), owner, ConferenceInput{Name: name, MaxAttendees: maxAttendees})
	if err != nil {
		t.Fatalf("CreateConference(%q) failed: %v", name, err)
	}
	return details.Conference
}

func (e *testEnv) conference(t *testing.T, conf *model.Conference) *model.Conference {
	t.Helper()
	stored, err := e.store.GetConference(context.Background(), conf.Key())
	if err != nil {
		t.Fatalf("GetConference failed: %v", err)
	}
	return stored
}

func (e *testEnv) setSeats(t *testing.T, conf *model.Conference, seats int) {
	t.Helper()
	err := e.store.RunInTx(context.Background(), func(ctx context.Context, tx repository.Tx) error {
		locked, err := tx.GetConferenceForUpdate(ctx, conf.Key())
		if err != nil {
			return err
		}
		locked.SeatsAvailable = seats
		return tx.UpdateConference(ctx, locked)
	})
	if err != nil {
		t.Fatalf("setSeats failed: %v", err)
	}
}

func assertKind(t *testing.T, err, kind error) {
	t.Helper()
	if !errors.Is(err, kind) {
		t.Fatalf("expected error of kind %v, got %v", kind, err)
	}
}
