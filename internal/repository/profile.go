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

// Common errors for profile repository operations.
var (
	ErrProfileNotFound = errors.New("profile not found")
	ErrProfileExists   = errors.New("profile already exists")
)

const profileColumns = `user_id, display_name, main_email, tee_shirt_size, conference_keys_to_attend, session_keys_wishlist`

// CreateProfile inserts a profile. It returns ErrProfileExists when another
// request created the same profile first.
func (r *Repository) CreateProfile(ctx context.Context, profile *model.Profile) error {
	query := `
		INSERT INTO profiles (` + profileColumns + `, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		ON CONFLICT (user_id) DO NOTHING
	`

	tag, err := r.pool.Exec(ctx, query,
		profile.UserID,
		profile.DisplayName,
		profile.MainEmail,
		string(profile.TeeShirtSize),
		pq.Array(nonNil(profile.ConferenceKeysToAttend)),
		pq.Array(nonNil(profile.SessionKeysWishlist)),
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to create profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrProfileExists
	}

	return nil
}

// GetProfile retrieves a profile by user id.
func (r *Repository) GetProfile(ctx context.Context, userID string) (*model.Profile, error) {
	return getProfile(ctx, r.pool, userID, false)
}

// UpdateProfile overwrites a profile's mutable attributes.
func (r *Repository) UpdateProfile(ctx context.Context, profile *model.Profile) error {
	return updateProfile(ctx, r.pool, profile)
}

// GetProfilesByIDs fetches many profiles in one round trip, keyed by user id.
// Missing ids are absent from the result.
func (r *Repository) GetProfilesByIDs(ctx context.Context, userIDs []string) (map[string]*model.Profile, error) {
	result := make(map[string]*model.Profile, len(userIDs))
	if len(userIDs) == 0 {
		return result, nil
	}

	query := `SELECT ` + profileColumns + ` FROM profiles WHERE user_id = ANY($1)`

	rows, err := r.pool.Query(ctx, query, pq.Array(userIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to get profiles: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		profile, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		result[profile.UserID] = profile
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating profiles: %w", err)
	}

	return result, nil
}

func getProfile(ctx context.Context, q querier, userID string, forUpdate bool) (*model.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE user_id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	profile, err := scanProfile(q.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return profile, nil
}

func updateProfile(ctx context.Context, q querier, profile *model.Profile) error {
	query := `
		UPDATE profiles
		SET display_name = $2,
		    tee_shirt_size = $3,
		    conference_keys_to_attend = $4,
		    session_keys_wishlist = $5,
		    updated_at = $6
		WHERE user_id = $1
	`

	tag, err := q.Exec(ctx, query,
		profile.UserID,
		profile.DisplayName,
		string(profile.TeeShirtSize),
		pq.Array(nonNil(profile.ConferenceKeysToAttend)),
		pq.Array(nonNil(profile.SessionKeysWishlist)),
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrProfileNotFound
	}
	return nil
}

func scanProfile(row pgx.Row) (*model.Profile, error) {
	var (
		profile  model.Profile
		size     string
		attend   []string
		wishlist []string
	)

	err := row.Scan(
		&profile.UserID,
		&profile.DisplayName,
		&profile.MainEmail,
		&size,
		pq.Array(&attend),
		pq.Array(&wishlist),
	)
	if err != nil {
		return nil, err
	}

	profile.TeeShirtSize = model.TeeShirtSize(size)
	profile.ConferenceKeysToAttend = nonNil(attend)
	profile.SessionKeysWishlist = nonNil(wishlist)
	return &profile, nil
}

// nonNil keeps NOT NULL array columns from receiving SQL NULL.
func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
