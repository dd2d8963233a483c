package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/confcentral/confcentral/internal/metrics"
	"github.com/confcentral/confcentral/internal/model"
)

// Cache keys of the precomputed facts.
const (
	AnnouncementKey    = "RECENT_ANNOUNCEMENTS"
	FeaturedSpeakerKey = "FEATURED_SPEAKER"
)

const (
	// NearlySoldOutSeats is the largest seat count announced as nearly sold out.
	NearlySoldOutSeats = 5
	// DefaultFeaturedThreshold is the session count that makes a speaker featured.
	DefaultFeaturedThreshold = 2

	announcementPrefix = "Last chance to attend! The following conferences are nearly sold out: "
)

// FactService recomputes and serves the cached announcement and featured
// speaker strings.
type FactService struct {
	store             Store
	cache             FactCache
	metrics           metrics.Recorder
	logger            *slog.Logger
	featuredThreshold int
}

// NewFactService creates a new FactService.
func NewFactService(store Store, cache FactCache, recorder metrics.Recorder, logger *slog.Logger, featuredThreshold int) *FactService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if logger == nil {
		logger = slog.Default()
	}
	if featuredThreshold <= 0 {
		featuredThreshold = DefaultFeaturedThreshold
	}
	return &FactService{
		store:             store,
		cache:             cache,
		metrics:           recorder,
		logger:            logger.With("component", "fact_service"),
		featuredThreshold: featuredThreshold,
	}
}

// RefreshAnnouncement lists conferences with 1 to 5 seats left. If there are
// any, the announcement naming them is cached; otherwise the cached
// announcement is removed. It returns the announcement, "" when cleared.
func (s *FactService) RefreshAnnouncement(ctx context.Context) (string, error) {
	confs, err := s.store.ListNearlySoldOut(ctx, NearlySoldOutSeats)
	if err != nil {
		return "", fmt.Errorf("failed to list nearly sold out conferences: %w", err)
	}

	if len(confs) == 0 {
		if err := s.cache.DeleteFact(ctx, AnnouncementKey); err != nil {
			return "", fmt.Errorf("failed to clear announcement: %w", err)
		}
		s.metrics.IncCacheRefresh(metrics.RefreshAnnouncementCleared)
		return "", nil
	}

	names := make([]string, 0, len(confs))
	for _, conf := range confs {
		names = append(names, conf.Name)
	}
	announcement := announcementPrefix + strings.Join(names, ", ")

	if err := s.cache.SetFact(ctx, AnnouncementKey, announcement); err != nil {
		return "", fmt.Errorf("failed to cache announcement: %w", err)
	}
	s.metrics.IncCacheRefresh(metrics.RefreshAnnouncementSet)
	s.logger.Debug("announcement refreshed", "conferences", len(confs))
	return announcement, nil
}

// RefreshFeaturedSpeaker counts the speaker's sessions in the conference. At
// or above the threshold it caches a message naming the speaker and those
// sessions; below it the cached value is left alone. It returns the message,
// "" when nothing was cached.
func (s *FactService) RefreshFeaturedSpeaker(ctx context.Context, speakerKey, conferenceKey string) (string, error) {
	spk, err := decodeKey(speakerKey, model.KindSpeaker)
	if err != nil {
		return "", err
	}
	confKey, err := decodeKey(conferenceKey, model.KindConference)
	if err != nil {
		return "", err
	}

	sessions, err := s.store.ListSessionsBySpeakerInConference(ctx, spk.ID, confKey)
	if err != nil {
		return "", fmt.Errorf("failed to list speaker sessions: %w", err)
	}
	if len(sessions) < s.featuredThreshold {
		s.metrics.IncCacheRefresh(metrics.RefreshFeaturedSkipped)
		return "", nil
	}

	speaker, err := s.store.GetSpeaker(ctx, spk.ID)
	if err != nil {
		return "", mapStoreError(err, "failed to get speaker")
	}

	names := make([]string, 0, len(sessions))
	for _, session := range sessions {
		names = append(names, session.Name)
	}
	message := fmt.Sprintf("Featured speaker: %s. Sessions: %s", speaker.Name, strings.Join(names, ", "))

	if err := s.cache.SetFact(ctx, FeaturedSpeakerKey, message); err != nil {
		return "", fmt.Errorf("failed to cache featured speaker: %w", err)
	}
	s.metrics.IncCacheRefresh(metrics.RefreshFeaturedSet)
	s.logger.Info("featured speaker set", "speaker_key", speakerKey, "sessions", len(sessions))
	return message, nil
}

// GetAnnouncement returns the cached announcement, or "" when none is cached
// or the cache is unavailable.
func (s *FactService) GetAnnouncement(ctx context.Context) string {
	return s.read(ctx, AnnouncementKey)
}

// GetFeaturedSpeaker returns the cached featured speaker message, or "".
func (s *FactService) GetFeaturedSpeaker(ctx context.Context) string {
	return s.read(ctx, FeaturedSpeakerKey)
}

func (s *FactService) read(ctx context.Context, key string) string {
	value, err := s.cache.GetFact(ctx, key)
	if err != nil {
		s.logger.Debug("fact unavailable", "key", key, "error", err)
		return ""
	}
	return value
}
