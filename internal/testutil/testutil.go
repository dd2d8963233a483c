package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"

	"github.com/confcentral/confcentral/internal/model"
)

// RequireEnv returns an environment variable or skips the test if missing.
func RequireEnv(t testing.TB, key string) string {
	t.Helper()
	value := os.Getenv(key)
	if value == "" {
		t.Skipf("%s not set", key)
	}
	return value
}

const advisoryLockID int64 = 515151

// AcquireDBLock grabs a global advisory lock to serialize DB tests.
func AcquireDBLock(ctx context.Context, pool *pgxpool.Pool) (func() error, error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}

	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", advisoryLockID); err != nil {
		conn.Release()
		return nil, fmt.Errorf("acquire advisory lock: %w", err)
	}

	unlock := func() error {
		defer conn.Release()
		if _, err := conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", advisoryLockID); err != nil {
			return fmt.Errorf("release advisory lock: %w", err)
		}
		return nil
	}

	return unlock, nil
}

// Migrations lists the migration basenames in apply order.
var Migrations = []string{
	"000001_auth",
	"000002_conferences",
}

// ResetSchema rolls every migration back in reverse order and re-applies them.
func ResetSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for i := len(Migrations) - 1; i >= 0; i-- {
		if err := applyMigration(ctx, pool, Migrations[i]+".down.sql"); err != nil {
			return err
		}
	}
	for _, name := range Migrations {
		if err := applyMigration(ctx, pool, name+".up.sql"); err != nil {
			return err
		}
	}
	return nil
}

func applyMigration(ctx context.Context, pool *pgxpool.Pool, file string) error {
	root, err := ProjectRoot()
	if err != nil {
		return err
	}

	sql, err := os.ReadFile(filepath.Join(root, "migrations", file))
	if err != nil {
		return fmt.Errorf("read migration %s: %w", file, err)
	}
	if _, err := pool.Exec(ctx, string(sql)); err != nil {
		return fmt.Errorf("apply migration %s: %w", file, err)
	}
	return nil
}

// FlushRedis clears the current Redis database.
func FlushRedis(ctx context.Context, client *redis.Client) error {
	return client.FlushDB(ctx).Err()
}

// ProjectRoot returns the project root directory.
func ProjectRoot() (string, error) {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		return "", fmt.Errorf("failed to resolve testutil path")
	}
	root := filepath.Clean(filepath.Join(filepath.Dir(filename), "..", ".."))
	return root, nil
}

// UniqueID generates a unique, lexically sortable ID for tests.
func UniqueID(prefix string) string {
	return prefix + "-" + ulid.Make().String()
}

// NewTestProfile creates a profile for a fresh user id.
func NewTestProfile(t testing.TB) *model.Profile {
	t.Helper()
	id := UniqueID("user")
	return model.NewProfile(id, id+"@example.com")
}

// NewTestConference creates a conference with defaults applied.
func NewTestConference(t testing.TB, organizerID, name string, maxAttendees int) *model.Conference {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Microsecond)
	conf := &model.Conference{
		ID:              UniqueID("conf"),
		OrganizerUserID: organizerID,
		Name:            name,
		MaxAttendees:    maxAttendees,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	conf.ApplyDefaults()
	return conf
}

// NewTestSession creates a session under a conference.
func NewTestSession(t testing.TB, conf *model.Conference, name, speakerID string) *model.Session {
	t.Helper()
	return &model.Session{
		ID:              UniqueID("sess"),
		ConferenceID:    conf.ID,
		OrganizerUserID: conf.OrganizerUserID,
		Name:            name,
		SpeakerID:       speakerID,
		CreatedAt:       time.Now().UTC().Truncate(time.Microsecond),
	}
}
