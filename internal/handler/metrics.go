package handler

import (
	"fmt"
	"net/http"

	"github.com/confcentral/confcentral/internal/metrics"
)

// MetricsHandler exposes in-memory metrics.
type MetricsHandler struct {
	snapshotter metrics.Snapshotter
}

// NewMetricsHandler creates a new MetricsHandler.
func NewMetricsHandler(snapshotter metrics.Snapshotter) *MetricsHandler {
	return &MetricsHandler{snapshotter: snapshotter}
}

// Metrics returns metrics in Prometheus exposition format.
func (h *MetricsHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	if h.snapshotter == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	snap := h.snapshotter.Snapshot()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	writeMetric(w, "confcentral_conferences_created_total %d\n", snap.ConferencesCreated)
	writeMetric(w, "confcentral_conferences_updated_total %d\n", snap.ConferencesUpdated)
	writeMetric(w, "confcentral_sessions_created_total %d\n", snap.SessionsCreated)

	writeMetric(w, "confcentral_registrations_total{result=\"registered\"} %d\n", snap.Registrations)
	writeMetric(w, "confcentral_registrations_total{result=\"unregistered\"} %d\n", snap.Unregistrations)
	writeMetric(w, "confcentral_registrations_total{result=\"conflict\"} %d\n", snap.RegistrationConflicts)
	writeMetric(w, "confcentral_registrations_total{result=\"noop\"} %d\n", snap.RegistrationNoops)
	writeMetric(w, "confcentral_registration_retries_total %d\n", snap.RegistrationRetries)

	writeMetric(w, "confcentral_tasks_published_total{status=\"success\"} %d\n", snap.TasksPublished)
	writeMetric(w, "confcentral_tasks_published_total{status=\"dropped\"} %d\n", snap.TasksDropped)

	writeMetric(w, "confcentral_tasks_processed_total{status=\"success\"} %d\n", snap.TasksProcessed)
	writeMetric(w, "confcentral_tasks_processed_total{status=\"failed\"} %d\n", snap.TasksFailed)
	writeMetric(w, "confcentral_tasks_processed_total{status=\"dead_lettered\"} %d\n", snap.TasksDeadLettered)
	writeMetric(w, "confcentral_task_duration_seconds_count %d\n", snap.TaskDurationCount)
	writeMetric(w, "confcentral_task_duration_seconds_sum %.6f\n", float64(snap.TaskDurationTotalNs)/1e9)
	writeMetric(w, "confcentral_task_queue_depth %d\n", snap.TaskQueueDepth)

	writeMetric(w, "confcentral_cache_refreshes_total{kind=\"announcement\",result=\"set\"} %d\n", snap.AnnouncementsSet)
	writeMetric(w, "confcentral_cache_refreshes_total{kind=\"announcement\",result=\"cleared\"} %d\n", snap.AnnouncementsCleared)
	writeMetric(w, "confcentral_cache_refreshes_total{kind=\"featured_speaker\",result=\"set\"} %d\n", snap.FeaturedSet)
	writeMetric(w, "confcentral_cache_refreshes_total{kind=\"featured_speaker\",result=\"skipped\"} %d\n", snap.FeaturedSkipped)
}

func writeMetric(w http.ResponseWriter, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
