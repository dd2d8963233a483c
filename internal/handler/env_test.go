package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/confcentral/confcentral/internal/auth"
	"github.com/confcentral/confcentral/internal/metrics"
	"github.com/confcentral/confcentral/internal/middleware"
	"github.com/confcentral/confcentral/internal/model"
	"github.com/confcentral/confcentral/internal/repository/memstore"
	"github.com/confcentral/confcentral/internal/service"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type memFacts struct {
	mu     sync.Mutex
	values map[string]string
}

func (c *memFacts) GetFact(_ context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.values[key]
	if !ok {
		return "", errors.New("miss")
	}
	return v, nil
}

func (c *memFacts) SetFact(_ context.Context, key, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = value
	return nil
}

func (c *memFacts) DeleteFact(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.values, key)
	return nil
}

type nopQueue struct{}

func (nopQueue) EnqueueConfirmationEmail(context.Context, string, string) error { return nil }
func (nopQueue) EnqueueFeaturedSpeaker(context.Context, string, string) error { return nil }

// keyCache resolves every test key from memory so no hashing happens.
type keyCache struct {
	entries map[string]*model.AuthContext
}

func (c *keyCache) GetAuthContext(_ context.Context, cacheKey string) (*model.AuthContext, error) {
	return c.entries[cacheKey], nil
}

func (c *keyCache) SetAuthContext(context.Context, string, *model.AuthContext) error {
	return nil
}

type noKeys struct{}

func (noKeys) GetAPIKeysByPrefix(context.Context, string) ([]*model.APIKey, error) { return nil, nil }
func (noKeys) UpdateAPIKeyLastUsed(context.Context, string) error { return nil }

type testAPI struct {
	router   *chi.Mux
	services Services
	recorder *metrics.InMemoryRecorder
	keys     *keyCache
	count    int
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	logger := discardLogger()
	store := memstore.New()
	recorder := metrics.NewInMemory()

	profiles := service.NewProfileService(store, logger)
	svc := Services{
		Profiles:    profiles,
		Conferences: service.NewConferenceService(store, profiles, nopQueue{}, recorder, logger, 0),
		Ledger:      service.NewLedger(store, profiles, recorder, logger, service.LedgerConfig{MaxAttempts: 3, BaseDelay: 1}),
		Sessions:    service.NewSessionService(store, profiles, nopQueue{}, recorder, logger, 0),
		Speakers:    service.NewSpeakerService(store),
		Facts:       service.NewFactService(store, &memFacts{values: map[string]string{}}, recorder, logger, service.DefaultFeaturedThreshold),
	}

	keys := &keyCache{entries: map[string]*model.AuthContext{}}
	api := &testAPI{services: svc, recorder: recorder, keys: keys}
	api.router = NewRouter(RouterConfig{
		Logger:        logger,
		Services:      svc,
		Auth:          middleware.AuthConfig{Logger: logger, Keys: noKeys{}, Cache: keys},
		Metrics:       recorder,
		IsDevelopment: true,
	})
	return api
}

// key registers an API key for userID with the given scopes.
func (a *testAPI) key(userID string, scopes ...string) string {
	a.count++
	plaintext := fmt.Sprintf("cc_test_%06x_%032x", a.count, a.count)
	a.keys.entries[auth.CacheKey(plaintext)] = &model.AuthContext{
		KeyID:     fmt.Sprintf("key-%d", a.count),
		KeyPrefix: fmt.Sprintf("%06x", a.count),
		UserID:    userID,
		Email:     userID + "@example.com",
		Scopes:    scopes,
	}
	return plaintext
}

func (a *testAPI) do(t *testing.T, method, path, key string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("failed to decode response: %v (body %q)", err, rec.Body.String())
	}
	return v
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("expected status %d, got %d: %s", want, rec.Code, rec.Body.String())
	}
}
