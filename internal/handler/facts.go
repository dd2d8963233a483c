package handler

import (
	"log/slog"
	"net/http"

	"github.com/confcentral/confcentral/internal/handler/dto"
	"github.com/confcentral/confcentral/internal/service"
)

// FactHandler serves the cached announcement and featured speaker.
type FactHandler struct {
	facts  *service.FactService
	logger *slog.Logger
}

// NewFactHandler creates a new FactHandler.
func NewFactHandler(facts *service.FactService, logger *slog.Logger) *FactHandler {
	return &FactHandler{facts: facts, logger: logger}
}

// Announcement handles GET /api/v1/announcement.
func (h *FactHandler) Announcement(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, dto.StringMessage{Data: h.facts.GetAnnouncement(r.Context())})
}

// FeaturedSpeaker handles GET /api/v1/speakers/featured.
func (h *FactHandler) FeaturedSpeaker(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, dto.StringMessage{Data: h.facts.GetFeaturedSpeaker(r.Context())})
}

// RefreshAnnouncement handles POST /internal/crons/announcement.
func (h *FactHandler) RefreshAnnouncement(w http.ResponseWriter, r *http.Request) {
	announcement, err := h.facts.RefreshAnnouncement(r.Context())
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	h.logger.Info("announcement_refreshed", "empty", announcement == "")
	writeJSON(w, http.StatusOK, dto.StringMessage{Data: announcement})
}
