package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/jackc/pgx/v5"

	"github.com/confcentral/confcentral/internal/model"
)

// Common errors for session repository operations.
var (
	ErrSessionNotFound = errors.New("session not found")
)

var sessionSelect = []any{
	"id", "conference_id", "organizer_user_id", "name", "highlights", "speaker_id",
	"duration", "type_of_session", "date", "start_minutes", "created_at",
}

// CreateSession inserts a new session.
func (r *Repository) CreateSession(ctx context.Context, s *model.Session) error {
	query := `
		INSERT INTO sessions (id, conference_id, organizer_user_id, name, highlights, speaker_id,
		                      duration, type_of_session, date, start_minutes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.pool.Exec(ctx, query,
		s.ID,
		s.ConferenceID,
		s.OrganizerUserID,
		s.Name,
		s.Highlights,
		s.SpeakerID,
		s.Duration,
		s.TypeOfSession,
		s.Date,
		clockMinutes(s.StartTime),
		s.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// GetSession retrieves a session by key, checking its full ancestor path.
func (r *Repository) GetSession(ctx context.Context, key model.Key) (*model.Session, error) {
	conf, _ := key.Ancestor(model.KindConference)
	sessions, err := r.selectSessions(ctx,
		goqu.C("id").Eq(key.ID),
		goqu.C("conference_id").Eq(conf.ID),
		goqu.C("organizer_user_id").Eq(conf.ParentID()),
	)
	if err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		return nil, ErrSessionNotFound
	}
	return sessions[0], nil
}

// GetSessionsByKeys fetches sessions in key order, skipping keys that do not resolve.
func (r *Repository) GetSessionsByKeys(ctx context.Context, keys []model.Key) ([]*model.Session, error) {
	if len(keys) == 0 {
		return []*model.Session{}, nil
	}

	ids := make([]string, 0, len(keys))
	for _, k := range keys {
		ids = append(ids, k.ID)
	}

	sessions, err := r.selectSessions(ctx, goqu.C("id").In(ids))
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*model.Session, len(sessions))
	for _, s := range sessions {
		byID[s.ID] = s
	}

	out := make([]*model.Session, 0, len(keys))
	for _, k := range keys {
		if s, ok := byID[k.ID]; ok && s.Key().Equal(k) {
			out = append(out, s)
		}
	}
	return out, nil
}

// ListSessionsByConference returns a conference's sessions, optionally
// restricted to one session type.
func (r *Repository) ListSessionsByConference(ctx context.Context, confKey model.Key, typeOfSession string) ([]*model.Session, error) {
	where := []exp.Expression{
		goqu.C("conference_id").Eq(confKey.ID),
		goqu.C("organizer_user_id").Eq(confKey.ParentID()),
	}
	if typeOfSession != "" {
		where = append(where, goqu.C("type_of_session").Eq(typeOfSession))
	}
	return r.selectSessions(ctx, where...)
}

// ListSessionsBySpeaker returns every session given by a speaker.
func (r *Repository) ListSessionsBySpeaker(ctx context.Context, speakerID string) ([]*model.Session, error) {
	return r.selectSessions(ctx, goqu.C("speaker_id").Eq(speakerID))
}

// ListSessionsBySpeakerInConference returns a speaker's sessions within one conference.
func (r *Repository) ListSessionsBySpeakerInConference(ctx context.Context, speakerID string, confKey model.Key) ([]*model.Session, error) {
	return r.selectSessions(ctx,
		goqu.C("speaker_id").Eq(speakerID),
		goqu.C("conference_id").Eq(confKey.ID),
	)
}

// ListSessionsNotOfTypeBefore returns sessions of any type but excluded that
// start strictly before the given time.
func (r *Repository) ListSessionsNotOfTypeBefore(ctx context.Context, excluded string, before model.Clock) ([]*model.Session, error) {
	return r.selectSessions(ctx,
		goqu.C("type_of_session").Neq(excluded),
		goqu.C("start_minutes").Lt(before.Minutes()),
	)
}

// ListSessionsStartingFrom returns sessions starting at or after the given time.
func (r *Repository) ListSessionsStartingFrom(ctx context.Context, from model.Clock) ([]*model.Session, error) {
	return r.selectSessions(ctx, goqu.C("start_minutes").Gte(from.Minutes()))
}

func (r *Repository) selectSessions(ctx context.Context, where ...exp.Expression) ([]*model.Session, error) {
	sql, args, err := goqu.Dialect(dialectPostgres).
		From("sessions").
		Select(sessionSelect...).
		Where(where...).
		Order(goqu.C("name").Asc(), goqu.C("id").Asc()).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("failed to build session query: %w", err)
	}

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	sessions := make([]*model.Session, 0)
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sessions: %w", err)
	}
	return sessions, nil
}

func scanSession(row pgx.Row) (*model.Session, error) {
	var (
		s       model.Session
		minutes *int
	)

	err := row.Scan(
		&s.ID,
		&s.ConferenceID,
		&s.OrganizerUserID,
		&s.Name,
		&s.Highlights,
		&s.SpeakerID,
		&s.Duration,
		&s.TypeOfSession,
		&s.Date,
		&minutes,
		&s.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	if minutes != nil {
		c := model.Clock(*minutes)
		s.StartTime = &c
	}
	return &s, nil
}

func clockMinutes(c *model.Clock) *int {
	if c == nil {
		return nil
	}
	m := c.Minutes()
	return &m
}
