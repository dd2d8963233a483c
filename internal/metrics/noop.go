package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

// IncConferenceCreated is a no-op.
func (n *NoopRecorder) IncConferenceCreated() {}

// IncConferenceUpdated is a no-op.
func (n *NoopRecorder) IncConferenceUpdated() {}

// IncSessionCreated is a no-op.
func (n *NoopRecorder) IncSessionCreated() {}

// IncRegistration is a no-op.
func (n *NoopRecorder) IncRegistration(result string) {}

// IncRegistrationRetry is a no-op.
func (n *NoopRecorder) IncRegistrationRetry() {}

// IncTaskPublished is a no-op.
func (n *NoopRecorder) IncTaskPublished(status string) {}

// IncTaskProcessed is a no-op.
func (n *NoopRecorder) IncTaskProcessed(status string) {}

// ObserveTaskDuration is a no-op.
func (n *NoopRecorder) ObserveTaskDuration(duration time.Duration) {}

// SetTaskQueueDepth is a no-op.
func (n *NoopRecorder) SetTaskQueueDepth(depth int64) {}

// IncCacheRefresh is a no-op.
func (n *NoopRecorder) IncCacheRefresh(outcome string) {}
