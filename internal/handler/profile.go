package handler

import (
	"log/slog"
	"net/http"

	"github.com/confcentral/confcentral/internal/auth"
	"github.com/confcentral/confcentral/internal/handler/dto"
	"github.com/confcentral/confcentral/internal/service"
)

// ProfileHandler handles HTTP requests for the caller's profile.
type ProfileHandler struct {
	profiles *service.ProfileService
	logger   *slog.Logger
}

// NewProfileHandler creates a new ProfileHandler.
func NewProfileHandler(profiles *service.ProfileService, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, logger: logger}
}

// Get handles GET /api/v1/profile.
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	profile, err := h.profiles.GetProfile(r.Context(), auth.AuthFromContext(r.Context()))
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToProfileResponse(profile))
}

// Save handles POST /api/v1/profile.
func (h *ProfileHandler) Save(w http.ResponseWriter, r *http.Request) {
	var req dto.ProfileRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	profile, err := h.profiles.SaveProfile(r.Context(), auth.AuthFromContext(r.Context()), req.ToUpdate())
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToProfileResponse(profile))
}
