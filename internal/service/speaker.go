package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/confcentral/confcentral/internal/model"
	"github.com/confcentral/confcentral/internal/repository"
)

// SpeakerService handles speaker business logic.
type SpeakerService struct {
	store Store
}

// NewSpeakerService creates a new SpeakerService.
func NewSpeakerService(store Store) *SpeakerService {
	return &SpeakerService{store: store}
}

// CreateSpeaker creates a speaker.
func (s *SpeakerService) CreateSpeaker(ctx context.Context, name string) (*model.Speaker, error) {
	if name == "" {
		return nil, ErrSpeakerNameRequired
	}

	speaker := &model.Speaker{
		ID:        newID(),
		Name:      name,
		CreatedAt: now(),
	}
	if err := s.store.CreateSpeaker(ctx, speaker); err != nil {
		return nil, fmt.Errorf("failed to create speaker: %w", err)
	}
	return speaker, nil
}

// GetSpeaker returns a speaker by its opaque key.
func (s *SpeakerService) GetSpeaker(ctx context.Context, websafeKey string) (*model.Speaker, error) {
	key, err := decodeKey(websafeKey, model.KindSpeaker)
	if err != nil {
		return nil, err
	}

	speaker, err := s.store.GetSpeaker(ctx, key.ID)
	if err != nil {
		if errors.Is(err, repository.ErrSpeakerNotFound) {
			return nil, notFoundf("%s with key: %s", ErrSpeakerNotFound.Message, websafeKey)
		}
		return nil, err
	}
	return speaker, nil
}
