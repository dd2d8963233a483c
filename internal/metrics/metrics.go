// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Registration results.
const (
	RegistrationRegistered   = "registered"
	RegistrationUnregistered = "unregistered"
	RegistrationConflict     = "conflict"
	RegistrationNoop         = "noop"
)

// Cache refresh outcomes.
const (
	RefreshAnnouncementSet     = "announcement_set"
	RefreshAnnouncementCleared = "announcement_cleared"
	RefreshFeaturedSet         = "featured_set"
	RefreshFeaturedSkipped     = "featured_skipped"
)

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus, StatsD, etc.
type Recorder interface {
	// Entity metrics
	IncConferenceCreated()
	IncConferenceUpdated()
	IncSessionCreated()

	// Registration ledger metrics
	IncRegistration(result string)
	IncRegistrationRetry()

	// Task pipeline metrics
	IncTaskPublished(status string) // status: "success" or "dropped"
	IncTaskProcessed(status string) // status: "success", "failed", "dead_lettered"
	ObserveTaskDuration(duration time.Duration)
	SetTaskQueueDepth(depth int64)

	// Cached facts
	IncCacheRefresh(outcome string)
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
