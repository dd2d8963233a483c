package tasks

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// DefaultAnnouncementInterval matches the hourly refresh of the announcement.
const DefaultAnnouncementInterval = time.Hour

// AnnouncementRefresher recomputes the nearly-sold-out announcement.
type AnnouncementRefresher interface {
	RefreshAnnouncement(ctx context.Context) (string, error)
}

// Scheduler refreshes the announcement once at start and then on an interval.
type Scheduler struct {
	refresher AnnouncementRefresher
	interval  time.Duration
	logger    *slog.Logger

	started bool
	cancel  context.CancelFunc
	done    chan struct{}
	mu      sync.Mutex
}

// NewScheduler creates an announcement scheduler.
func NewScheduler(refresher AnnouncementRefresher, interval time.Duration, logger *slog.Logger) *Scheduler {
	if interval <= 0 {
		interval = DefaultAnnouncementInterval
	}
	return &Scheduler{
		refresher: refresher,
		interval:  interval,
		logger:    logger.With("component", "tasks.scheduler"),
	}
}

// Run blocks until ctx is cancelled or Shutdown is called.
func (s *Scheduler) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return errors.New("scheduler already started")
	}
	s.started = true
	s.done = make(chan struct{})
	ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	defer close(s.done)

	s.logger.Info("announcement scheduler started", "interval", s.interval)
	s.refresh(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("announcement scheduler stopping")
			return nil
		case <-ticker.C:
			s.refresh(ctx)
		}
	}
}

// Shutdown stops the scheduler. It implements server.ShutdownFunc.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	cancel := s.cancel
	done := s.done
	s.mu.Unlock()

	cancel()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) refresh(ctx context.Context) {
	announcement, err := s.refresher.RefreshAnnouncement(ctx)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Warn("announcement refresh failed", "error", err)
		}
		return
	}
	s.logger.Debug("announcement refreshed", "empty", announcement == "")
}
