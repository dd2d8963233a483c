package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/confcentral/confcentral/internal/auth"
	"github.com/confcentral/confcentral/internal/handler/dto"
	"github.com/confcentral/confcentral/internal/model"
	"github.com/confcentral/confcentral/internal/service"
)

// SessionHandler handles HTTP requests for sessions, speakers and the
// caller's wishlist.
type SessionHandler struct {
	sessions *service.SessionService
	speakers *service.SpeakerService
	logger   *slog.Logger
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(sessions *service.SessionService, speakers *service.SpeakerService, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{
		sessions: sessions,
		speakers: speakers,
		logger:   logger,
	}
}

// Create handles POST /api/v1/conferences/{key}/sessions.
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.SessionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	input, err := req.ToInput()
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	session, err := h.sessions.CreateSession(r.Context(), auth.AuthFromContext(r.Context()), chi.URLParam(r, "key"), input)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("session_created",
		"session_key", session.Key().Encode(),
		"has_speaker", session.SpeakerID != "",
	)
	writeJSON(w, http.StatusCreated, dto.ToSessionResponse(session))
}

// ListByConference handles GET /api/v1/conferences/{key}/sessions.
func (h *SessionHandler) ListByConference(w http.ResponseWriter, r *http.Request) {
	h.writeList(w)(h.sessions.ListByConference(r.Context(), chi.URLParam(r, "key")))
}

// ListByType handles GET /api/v1/conferences/{key}/sessions/type/{type}.
func (h *SessionHandler) ListByType(w http.ResponseWriter, r *http.Request) {
	h.writeList(w)(h.sessions.ListByType(r.Context(), chi.URLParam(r, "key"), chi.URLParam(r, "type")))
}

// ListBySpeaker handles GET /api/v1/speakers/{key}/sessions.
func (h *SessionHandler) ListBySpeaker(w http.ResponseWriter, r *http.Request) {
	h.writeList(w)(h.sessions.ListBySpeaker(r.Context(), chi.URLParam(r, "key")))
}

// NonWorkshopsBeforeSeven handles GET /api/v1/queries/sessions/non-workshop-before-seven.
func (h *SessionHandler) NonWorkshopsBeforeSeven(w http.ResponseWriter, r *http.Request) {
	h.writeList(w)(h.sessions.NonWorkshopsBeforeSeven(r.Context()))
}

// AfterLunch handles GET /api/v1/queries/sessions/after-lunch.
func (h *SessionHandler) AfterLunch(w http.ResponseWriter, r *http.Request) {
	h.writeList(w)(h.sessions.AfterLunch(r.Context()))
}

// Wishlist handles GET /api/v1/wishlist.
func (h *SessionHandler) Wishlist(w http.ResponseWriter, r *http.Request) {
	h.writeList(w)(h.sessions.ListWishlist(r.Context(), auth.AuthFromContext(r.Context())))
}

// AddToWishlist handles PUT /api/v1/wishlist/{key}.
func (h *SessionHandler) AddToWishlist(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.AddToWishlist(r.Context(), auth.AuthFromContext(r.Context()), chi.URLParam(r, "key")); err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.BooleanMessage{Data: true})
}

// RemoveFromWishlist handles DELETE /api/v1/wishlist/{key}.
func (h *SessionHandler) RemoveFromWishlist(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.RemoveFromWishlist(r.Context(), auth.AuthFromContext(r.Context()), chi.URLParam(r, "key")); err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.BooleanMessage{Data: true})
}

// CreateSpeaker handles POST /api/v1/speakers.
func (h *SessionHandler) CreateSpeaker(w http.ResponseWriter, r *http.Request) {
	var req dto.SpeakerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	speaker, err := h.speakers.CreateSpeaker(r.Context(), req.Name)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, dto.ToSpeakerResponse(speaker))
}

// GetSpeaker handles GET /api/v1/speakers/{key}.
func (h *SessionHandler) GetSpeaker(w http.ResponseWriter, r *http.Request) {
	speaker, err := h.speakers.GetSpeaker(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToSpeakerResponse(speaker))
}

func (h *SessionHandler) writeList(w http.ResponseWriter) func([]*model.Session, error) {
	return func(list []*model.Session, err error) {
		if err != nil {
			handleServiceError(w, h.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, dto.ToSessionListResponse(list))
	}
}
