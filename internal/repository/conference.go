package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/lib/pq"

	"github.com/confcentral/confcentral/internal/model"
)

// Common errors for conference repository operations.
var (
	ErrConferenceNotFound = errors.New("conference not found")
)

const conferenceColumns = `id, organizer_user_id, name, description, topics, city, start_date, end_date, month, max_attendees, seats_available, created_at, updated_at`

// CreateConference inserts a new conference.
func (r *Repository) CreateConference(ctx context.Context, conf *model.Conference) error {
	query := `
		INSERT INTO conferences (` + conferenceColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.pool.Exec(ctx, query,
		conf.ID,
		conf.OrganizerUserID,
		conf.Name,
		conf.Description,
		pq.Array(nonNil(conf.Topics)),
		conf.City,
		conf.StartDate,
		conf.EndDate,
		conf.Month,
		conf.MaxAttendees,
		conf.SeatsAvailable,
		conf.CreatedAt,
		conf.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create conference: %w", mapTxError(err))
	}

	return nil
}

// GetConference retrieves a conference by key. The key's organizer must
// match the stored owner.
func (r *Repository) GetConference(ctx context.Context, key model.Key) (*model.Conference, error) {
	return getConference(ctx, r.pool, key, false)
}

// GetConferencesByKeys fetches conferences in key order, skipping keys that
// do not resolve.
func (r *Repository) GetConferencesByKeys(ctx context.Context, keys []model.Key) ([]*model.Conference, error) {
	if len(keys) == 0 {
		return []*model.Conference{}, nil
	}

	ids := make([]string, 0, len(keys))
	for _, k := range keys {
		ids = append(ids, k.ID)
	}

	query := `SELECT ` + conferenceColumns + ` FROM conferences WHERE id = ANY($1)`
	confs, err := r.queryConferences(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*model.Conference, len(confs))
	for _, c := range confs {
		byID[c.ID] = c
	}

	out := make([]*model.Conference, 0, len(keys))
	for _, k := range keys {
		if c, ok := byID[k.ID]; ok && c.OrganizerUserID == k.ParentID() {
			out = append(out, c)
		}
	}
	return out, nil
}

// ListConferencesByOrganizer returns the conferences a user created, by name.
func (r *Repository) ListConferencesByOrganizer(ctx context.Context, userID string) ([]*model.Conference, error) {
	query := `SELECT ` + conferenceColumns + ` FROM conferences WHERE organizer_user_id = $1 ORDER BY name, id`
	return r.queryConferences(ctx, query, userID)
}

// ListNearlySoldOut returns conferences with 1..threshold seats left, by name.
func (r *Repository) ListNearlySoldOut(ctx context.Context, threshold int) ([]*model.Conference, error) {
	query := `
		SELECT ` + conferenceColumns + `
		FROM conferences
		WHERE seats_available > 0 AND seats_available <= $1
		ORDER BY name, id
	`
	return r.queryConferences(ctx, query, threshold)
}

// UpdateConference overwrites a conference's mutable attributes.
func (r *Repository) UpdateConference(ctx context.Context, conf *model.Conference) error {
	return updateConference(ctx, r.pool, conf)
}

func (r *Repository) queryConferences(ctx context.Context, query string, args ...any) ([]*model.Conference, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query conferences: %w", err)
	}
	defer rows.Close()

	confs := make([]*model.Conference, 0)
	for rows.Next() {
		conf, err := scanConference(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan conference: %w", err)
		}
		confs = append(confs, conf)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating conferences: %w", err)
	}

	return confs, nil
}

func getConference(ctx context.Context, q querier, key model.Key, forUpdate bool) (*model.Conference, error) {
	query := `SELECT ` + conferenceColumns + ` FROM conferences WHERE id = $1 AND organizer_user_id = $2`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	conf, err := scanConference(q.QueryRow(ctx, query, key.ID, key.ParentID()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrConferenceNotFound
		}
		return nil, fmt.Errorf("failed to get conference: %w", err)
	}
	return conf, nil
}

func updateConference(ctx context.Context, q querier, conf *model.Conference) error {
	query := `
		UPDATE conferences
		SET name = $2,
		    description = $3,
		    topics = $4,
		    city = $5,
		    start_date = $6,
		    end_date = $7,
		    month = $8,
		    max_attendees = $9,
		    seats_available = $10,
		    updated_at = $11
		WHERE id = $1
	`

	conf.UpdatedAt = time.Now().UTC()
	tag, err := q.Exec(ctx, query,
		conf.ID,
		conf.Name,
		conf.Description,
		pq.Array(nonNil(conf.Topics)),
		conf.City,
		conf.StartDate,
		conf.EndDate,
		conf.Month,
		conf.MaxAttendees,
		conf.SeatsAvailable,
		conf.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update conference: %w", mapTxError(err))
	}
	if tag.RowsAffected() == 0 {
		return ErrConferenceNotFound
	}
	return nil
}

func scanConference(row pgx.Row) (*model.Conference, error) {
	var (
		conf   model.Conference
		topics []string
	)

	err := row.Scan(
		&conf.ID,
		&conf.OrganizerUserID,
		&conf.Name,
		&conf.Description,
		pq.Array(&topics),
		&conf.City,
		&conf.StartDate,
		&conf.EndDate,
		&conf.Month,
		&conf.MaxAttendees,
		&conf.SeatsAvailable,
		&conf.CreatedAt,
		&conf.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	conf.Topics = nonNil(topics)
	return &conf, nil
}
