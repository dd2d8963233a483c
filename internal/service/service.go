// Package service provides business logic for the application.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/confcentral/confcentral/internal/model"
	"github.com/confcentral/confcentral/internal/query"
	"github.com/confcentral/confcentral/internal/repository"
)

// Store is the entity store the services run against. It is implemented by
// repository.Repository and memstore.Store.
type Store interface {
	RunInTx(ctx context.Context, fn repository.TxFunc) error

	CreateProfile(ctx context.Context, profile *model.Profile) error
	GetProfile(ctx context.Context, userID string) (*model.Profile, error)
	UpdateProfile(ctx context.Context, profile *model.Profile) error
	GetProfilesByIDs(ctx context.Context, userIDs []string) (map[string]*model.Profile, error)

	CreateConference(ctx context.Context, conf *model.Conference) error
	GetConference(ctx context.Context, key model.Key) (*model.Conference, error)
	GetConferencesByKeys(ctx context.Context, keys []model.Key) ([]*model.Conference, error)
	ListConferencesByOrganizer(ctx context.Context, userID string) ([]*model.Conference, error)
	ListNearlySoldOut(ctx context.Context, threshold int) ([]*model.Conference, error)
	QueryConferences(ctx context.Context, plan *query.Plan) ([]*model.Conference, error)

	CreateSession(ctx context.Context, session *model.Session) error
	GetSession(ctx context.Context, key model.Key) (*model.Session, error)
	GetSessionsByKeys(ctx context.Context, keys []model.Key) ([]*model.Session, error)
	ListSessionsByConference(ctx context.Context, confKey model.Key, typeOfSession string) ([]*model.Session, error)
	ListSessionsBySpeaker(ctx context.Context, speakerID string) ([]*model.Session, error)
	ListSessionsBySpeakerInConference(ctx context.Context, speakerID string, confKey model.Key) ([]*model.Session, error)
	ListSessionsNotOfTypeBefore(ctx context.Context, excluded string, before model.Clock) ([]*model.Session, error)
	ListSessionsStartingFrom(ctx context.Context, from model.Clock) ([]*model.Session, error)

	CreateSpeaker(ctx context.Context, speaker *model.Speaker) error
	GetSpeaker(ctx context.Context, id string) (*model.Speaker, error)
}

// FactCache holds the precomputed display strings.
type FactCache interface {
	GetFact(ctx context.Context, key string) (string, error)
	SetFact(ctx context.Context, key, value string) error
	DeleteFact(ctx context.Context, key string) error
}

// TaskQueue accepts deferred work. Implementations deliver at least once.
type TaskQueue interface {
	EnqueueConfirmationEmail(ctx context.Context, email, conferenceInfo string) error
	EnqueueFeaturedSpeaker(ctx context.Context, speakerKey, conferenceKey string) error
}

// requireCaller returns ErrUnauthorized when the request carries no identity.
func requireCaller(caller *model.AuthContext) error {
	if caller == nil || caller.UserID == "" {
		return ErrUnauthorized
	}
	return nil
}

// decodeKey decodes an opaque key of the given kind.
func decodeKey(websafe string, kind model.Kind) (model.Key, error) {
	key, err := model.DecodeKeyOf(websafe, kind)
	if err != nil {
		return model.Key{}, validationf("%s: %s", ErrInvalidKey.Message, websafe)
	}
	return key, nil
}

// newID returns a fresh, lexically sortable entity id.
func newID() string {
	return ulid.Make().String()
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// enqueue runs a best-effort publish bounded by timeout. Failures are logged
// and never reach the caller.
func enqueue(ctx context.Context, logger *slog.Logger, timeout time.Duration, task string, publish func(ctx context.Context) error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	if err := publish(ctx); err != nil {
		logger.Warn("failed to enqueue task", "task", task, "error", err)
	}
}
