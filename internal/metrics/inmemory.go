package metrics

import (
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	ConferencesCreated uint64
	ConferencesUpdated uint64
	SessionsCreated    uint64

	Registrations         uint64
	Unregistrations       uint64
	RegistrationConflicts uint64
	RegistrationNoops     uint64
	RegistrationRetries   uint64

	TasksPublished      uint64
	TasksDropped        uint64
	TasksProcessed      uint64
	TasksFailed         uint64
	TasksDeadLettered   uint64
	TaskDurationCount   uint64
	TaskDurationTotalNs int64
	TaskQueueDepth      int64

	AnnouncementsSet     uint64
	AnnouncementsCleared uint64
	FeaturedSet          uint64
	FeaturedSkipped      uint64
}

// InMemoryRecorder stores metrics in memory. It backs the /metrics endpoint
// and the tests.
type InMemoryRecorder struct {
	conferencesCreated uint64
	conferencesUpdated uint64
	sessionsCreated    uint64

	registrations         uint64
	unregistrations       uint64
	registrationConflicts uint64
	registrationNoops     uint64
	registrationRetries   uint64

	tasksPublished      uint64
	tasksDropped        uint64
	tasksProcessed      uint64
	tasksFailed         uint64
	tasksDeadLettered   uint64
	taskDurationCount   uint64
	taskDurationTotalNs int64
	taskQueueDepth      int64

	announcementsSet     uint64
	announcementsCleared uint64
	featuredSet          uint64
	featuredSkipped      uint64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	return Snapshot{
		ConferencesCreated:    atomic.LoadUint64(&m.conferencesCreated),
		ConferencesUpdated:    atomic.LoadUint64(&m.conferencesUpdated),
		SessionsCreated:       atomic.LoadUint64(&m.sessionsCreated),
		Registrations:         atomic.LoadUint64(&m.registrations),
		Unregistrations:       atomic.LoadUint64(&m.unregistrations),
		RegistrationConflicts: atomic.LoadUint64(&m.registrationConflicts),
		RegistrationNoops:     atomic.LoadUint64(&m.registrationNoops),
		RegistrationRetries:   atomic.LoadUint64(&m.registrationRetries),
		TasksPublished:        atomic.LoadUint64(&m.tasksPublished),
		TasksDropped:          atomic.LoadUint64(&m.tasksDropped),
		TasksProcessed:        atomic.LoadUint64(&m.tasksProcessed),
		TasksFailed:           atomic.LoadUint64(&m.tasksFailed),
		TasksDeadLettered:     atomic.LoadUint64(&m.tasksDeadLettered),
		TaskDurationCount:     atomic.LoadUint64(&m.taskDurationCount),
		TaskDurationTotalNs:   atomic.LoadInt64(&m.taskDurationTotalNs),
		TaskQueueDepth:        atomic.LoadInt64(&m.taskQueueDepth),
		AnnouncementsSet:      atomic.LoadUint64(&m.announcementsSet),
		AnnouncementsCleared:  atomic.LoadUint64(&m.announcementsCleared),
		FeaturedSet:           atomic.LoadUint64(&m.featuredSet),
		FeaturedSkipped:       atomic.LoadUint64(&m.featuredSkipped),
	}
}

// IncConferenceCreated increments conference created counter.
func (m *InMemoryRecorder) IncConferenceCreated() {
	atomic.AddUint64(&m.conferencesCreated, 1)
}

// IncConferenceUpdated increments conference updated counter.
func (m *InMemoryRecorder) IncConferenceUpdated() {
	atomic.AddUint64(&m.conferencesUpdated, 1)
}

// IncSessionCreated increments session created counter.
func (m *InMemoryRecorder) IncSessionCreated() {
	atomic.AddUint64(&m.sessionsCreated, 1)
}

// IncRegistration counts a ledger transition by result.
func (m *InMemoryRecorder) IncRegistration(result string) {
	switch result {
	case RegistrationRegistered:
		atomic.AddUint64(&m.registrations, 1)
	case RegistrationUnregistered:
		atomic.AddUint64(&m.unregistrations, 1)
	case RegistrationConflict:
		atomic.AddUint64(&m.registrationConflicts, 1)
	case RegistrationNoop:
		atomic.AddUint64(&m.registrationNoops, 1)
	}
}

// IncRegistrationRetry counts a retried ledger transaction.
func (m *InMemoryRecorder) IncRegistrationRetry() {
	atomic.AddUint64(&m.registrationRetries, 1)
}

// IncTaskPublished counts an enqueue attempt by status.
func (m *InMemoryRecorder) IncTaskPublished(status string) {
	switch status {
	case "success":
		atomic.AddUint64(&m.tasksPublished, 1)
	case "dropped":
		atomic.AddUint64(&m.tasksDropped, 1)
	}
}

// IncTaskProcessed counts a consumed task by status.
func (m *InMemoryRecorder) IncTaskProcessed(status string) {
	switch status {
	case "success":
		atomic.AddUint64(&m.tasksProcessed, 1)
	case "failed":
		atomic.AddUint64(&m.tasksFailed, 1)
	case "dead_lettered":
		atomic.AddUint64(&m.tasksDeadLettered, 1)
	}
}

// ObserveTaskDuration records task handling duration.
func (m *InMemoryRecorder) ObserveTaskDuration(duration time.Duration) {
	atomic.AddUint64(&m.taskDurationCount, 1)
	atomic.AddInt64(&m.taskDurationTotalNs, duration.Nanoseconds())
}

// SetTaskQueueDepth stores the last observed stream length.
func (m *InMemoryRecorder) SetTaskQueueDepth(depth int64) {
	atomic.StoreInt64(&m.taskQueueDepth, depth)
}

// IncCacheRefresh counts a cached fact refresh by outcome.
func (m *InMemoryRecorder) IncCacheRefresh(outcome string) {
	switch outcome {
	case RefreshAnnouncementSet:
		atomic.AddUint64(&m.announcementsSet, 1)
	case RefreshAnnouncementCleared:
		atomic.AddUint64(&m.announcementsCleared, 1)
	case RefreshFeaturedSet:
		atomic.AddUint64(&m.featuredSet, 1)
	case RefreshFeaturedSkipped:
		atomic.AddUint64(&m.featuredSkipped, 1)
	}
}
