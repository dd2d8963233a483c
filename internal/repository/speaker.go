package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/confcentral/confcentral/internal/model"
)

// Common errors for speaker repository operations.
var (
	ErrSpeakerNotFound = errors.New("speaker not found")
)

// CreateSpeaker inserts a new speaker.
func (r *Repository) CreateSpeaker(ctx context.Context, speaker *model.Speaker) error {
	query := `INSERT INTO speakers (id, name, created_at) VALUES ($1, $2, $3)`

	if _, err := r.pool.Exec(ctx, query, speaker.ID, speaker.Name, speaker.CreatedAt); err != nil {
		return fmt.Errorf("failed to create speaker: %w", err)
	}
	return nil
}

// GetSpeaker retrieves a speaker by id.
func (r *Repository) GetSpeaker(ctx context.Context, id string) (*model.Speaker, error) {
	query := `SELECT id, name, created_at FROM speakers WHERE id = $1`

	var speaker model.Speaker
	err := r.pool.QueryRow(ctx, query, id).Scan(&speaker.ID, &speaker.Name, &speaker.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSpeakerNotFound
		}
		return nil, fmt.Errorf("failed to get speaker: %w", err)
	}
	return &speaker, nil
}
