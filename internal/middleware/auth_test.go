package middleware

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/confcentral/confcentral/internal/auth"
	"github.com/confcentral/confcentral/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeKeyStore struct {
	mu      sync.Mutex
	keys    []*model.APIKey
	err     error
	lookups int
	used    chan string
}

func (s *fakeKeyStore) GetAPIKeysByPrefix(_ context.Context, prefix string) ([]*model.APIKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lookups++
	if s.err != nil {
		return nil, s.err
	}
	var out []*model.APIKey
	for _, k := range s.keys {
		if k.KeyPrefix == prefix {
			out = append(out, k)
		}
	}
	return out, nil
}

func (s *fakeKeyStore) UpdateAPIKeyLastUsed(_ context.Context, id string) error {
	if s.used != nil {
		s.used <- id
	}
	return nil
}

type fakeAuthCache struct {
	mu      sync.Mutex
	entries map[string]*model.AuthContext
}

func (c *fakeAuthCache) GetAuthContext(_ context.Context, cacheKey string) (*model.AuthContext, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries[cacheKey], nil
}

func (c *fakeAuthCache) SetAuthContext(_ context.Context, cacheKey string, authCtx *model.AuthContext) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[cacheKey] = authCtx
	return nil
}

// echoCaller writes the resolved user id, or "anonymous".
var echoCaller = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	if id := auth.UserIDFromContext(r.Context()); id != "" {
		_, _ = w.Write([]byte(id))
		return
	}
	_, _ = w.Write([]byte("anonymous"))
})

func newKey(t *testing.T, userID string) (string, *model.APIKey) {
	t.Helper()
	generated, err := auth.GenerateAPIKey(auth.EnvTest)
	if err != nil {
		t.Fatalf("GenerateAPIKey failed: %v", err)
	}
	return generated.Plaintext, &model.APIKey{
		ID:        "key-" + userID,
		UserID:    userID,
		UserEmail: userID + "@example.com",
		KeyHash:   generated.Hash,
		KeyPrefix: generated.Prefix,
		Scopes:    []string{model.ScopeRead},
	}
}

func TestAuth(t *testing.T) {
	t.Parallel()

	plaintext, key := newKey(t, "alice")
	revokedPlain, revoked := newKey(t, "mallory")
	now := time.Now()
	revoked.RevokedAt = &now
	store := &fakeKeyStore{keys: []*model.APIKey{key, revoked}}
	wrongSecret := plaintext[:len(plaintext)-1] + "0"
	if wrongSecret == plaintext {
		wrongSecret = plaintext[:len(plaintext)-1] + "1"
	}

	tests := []struct {
		name       string
		optional   bool
		header     string
		value      string
		wantStatus int
		wantBody   string
	}{
		{"bearer key", false, "Authorization", "Bearer " + plaintext, http.StatusOK, "alice"},
		{"x-api-key", false, "X-API-Key", plaintext, http.StatusOK, "alice"},
		{"missing key required", false, "", "", http.StatusUnauthorized, ""},
		{"missing key optional", true, "", "", http.StatusOK, "anonymous"},
		{"bad format optional", true, "X-API-Key", "pk_live_nope", http.StatusUnauthorized, ""},
		{"unknown key", false, "X-API-Key", "cc_test_000000_0123456789abcdef0123456789abcdef", http.StatusUnauthorized, ""},
		{"wrong secret", false, "X-API-Key", wrongSecret, http.StatusUnauthorized, ""},
		{"revoked", true, "X-API-Key", revokedPlain, http.StatusUnauthorized, ""},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			mw := Auth(AuthConfig{Logger: discardLogger(), Keys: store, Optional: tt.optional})

			req := httptest.NewRequest(http.MethodGet, "/api/v1/profile", nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			rec := httptest.NewRecorder()
			mw(echoCaller).ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantBody != "" && rec.Body.String() != tt.wantBody {
				t.Errorf("body = %q, want %q", rec.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestAuth_UsesCacheAndFillsEmail(t *testing.T) {
	t.Parallel()

	plaintext, key := newKey(t, "bob")
	store := &fakeKeyStore{keys: []*model.APIKey{key}, used: make(chan string, 1)}
	authCache := &fakeAuthCache{entries: map[string]*model.AuthContext{}}

	var seen *model.AuthContext
	mw := Auth(AuthConfig{Logger: discardLogger(), Keys: store, Cache: authCache})
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = auth.AuthFromContext(r.Context())
	}))

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+plaintext)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d status = %d", i, rec.Code)
		}
	}

	if store.lookups != 1 {
		t.Errorf("store lookups = %d, want 1 (second request served from cache)", store.lookups)
	}
	if seen == nil || seen.Email != "bob@example.com" {
		t.Errorf("caller = %+v, want email filled", seen)
	}
	select {
	case id := <-store.used:
		if id != key.ID {
			t.Errorf("last used updated for %q", id)
		}
	case <-time.After(time.Second):
		t.Error("last used was not updated")
	}
}

func TestAuth_StoreErrorIsUnauthorized(t *testing.T) {
	t.Parallel()
	store := &fakeKeyStore{err: errors.New("db down")}
	mw := Auth(AuthConfig{Logger: discardLogger(), Keys: store})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-API-Key", "cc_live_abc123_0123456789abcdef0123456789abcdef")
	rec := httptest.NewRecorder()
	mw(echoCaller).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestAuth_MinDurationPadsFailures(t *testing.T) {
	t.Parallel()
	mw := Auth(AuthConfig{Logger: discardLogger(), Keys: &fakeKeyStore{}, MinDuration: 30 * time.Millisecond})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-API-Key", "garbage")
	start := time.Now()
	mw(echoCaller).ServeHTTP(httptest.NewRecorder(), req)
	if elapsed := time.Since(start); elapsed < 30*time.Millisecond {
		t.Errorf("failure returned after %v, want at least 30ms", elapsed)
	}
}

func TestRequireScope(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		caller     *model.AuthContext
		required   string
		wantStatus int
	}{
		{"anonymous", nil, model.ScopeRead, http.StatusUnauthorized},
		{"read allows read", &model.AuthContext{Scopes: []string{model.ScopeRead}}, model.ScopeRead, http.StatusOK},
		{"read denies write", &model.AuthContext{Scopes: []string{model.ScopeRead}}, model.ScopeWrite, http.StatusForbidden},
		{"write allows read", &model.AuthContext{Scopes: []string{model.ScopeWrite}}, model.ScopeRead, http.StatusOK},
		{"admin allows write", &model.AuthContext{Scopes: []string{model.ScopeAdmin}}, model.ScopeWrite, http.StatusOK},
		{"write denies admin", &model.AuthContext{Scopes: []string{model.ScopeWrite}}, model.ScopeAdmin, http.StatusForbidden},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.caller != nil {
				req = req.WithContext(auth.ContextWithAuth(req.Context(), tt.caller))
			}
			rec := httptest.NewRecorder()
			RequireScope(tt.required)(echoCaller).ServeHTTP(rec, req)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}
