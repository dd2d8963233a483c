package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/confcentral/confcentral/internal/auth"
	"github.com/confcentral/confcentral/internal/handler/dto"
	"github.com/confcentral/confcentral/internal/service"
)

// ConferenceHandler handles HTTP requests for conferences and registration.
type ConferenceHandler struct {
	conferences *service.ConferenceService
	ledger      *service.Ledger
	logger      *slog.Logger
}

// NewConferenceHandler creates a new ConferenceHandler.
func NewConferenceHandler(conferences *service.ConferenceService, ledger *service.Ledger, logger *slog.Logger) *ConferenceHandler {
	return &ConferenceHandler{
		conferences: conferences,
		ledger:      ledger,
		logger:      logger,
	}
}

// Create handles POST /api/v1/conferences.
func (h *ConferenceHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.ConferenceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	input, err := req.ToInput()
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	details, err := h.conferences.CreateConference(r.Context(), auth.AuthFromContext(r.Context()), input)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("conference_created",
		"conference_key", details.Conference.Key().Encode(),
		"user_id", details.Conference.OrganizerUserID,
	)
	writeJSON(w, http.StatusCreated, dto.ToConferenceResponse(*details))
}

// Update handles PUT /api/v1/conferences/{key}.
func (h *ConferenceHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdateConferenceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	upd, err := req.ToUpdate()
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	details, err := h.conferences.UpdateConference(r.Context(), auth.AuthFromContext(r.Context()), chi.URLParam(r, "key"), upd)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToConferenceResponse(*details))
}

// Get handles GET /api/v1/conferences/{key}.
func (h *ConferenceHandler) Get(w http.ResponseWriter, r *http.Request) {
	details, err := h.conferences.GetConference(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToConferenceResponse(*details))
}

// Query handles POST /api/v1/conferences/query.
func (h *ConferenceHandler) Query(w http.ResponseWriter, r *http.Request) {
	var req dto.QueryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	h.writeList(w)(h.conferences.QueryConferences(r.Context(), req.Filters))
}

// Small handles GET /api/v1/queries/conferences/small.
func (h *ConferenceHandler) Small(w http.ResponseWriter, r *http.Request) {
	h.writeList(w)(h.conferences.SmallConferences(r.Context()))
}

// Created handles GET /api/v1/profile/conferences/created.
func (h *ConferenceHandler) Created(w http.ResponseWriter, r *http.Request) {
	h.writeList(w)(h.conferences.ListCreated(r.Context(), auth.AuthFromContext(r.Context())))
}

// Attending handles GET /api/v1/profile/conferences/attending.
func (h *ConferenceHandler) Attending(w http.ResponseWriter, r *http.Request) {
	h.writeList(w)(h.conferences.ListAttending(r.Context(), auth.AuthFromContext(r.Context())))
}

// Register handles POST /api/v1/conferences/{key}/registration.
func (h *ConferenceHandler) Register(w http.ResponseWriter, r *http.Request) {
	ok, err := h.ledger.Register(r.Context(), auth.AuthFromContext(r.Context()), chi.URLParam(r, "key"))
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.BooleanMessage{Data: ok})
}

// Unregister handles DELETE /api/v1/conferences/{key}/registration.
func (h *ConferenceHandler) Unregister(w http.ResponseWriter, r *http.Request) {
	ok, err := h.ledger.Unregister(r.Context(), auth.AuthFromContext(r.Context()), chi.URLParam(r, "key"))
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.BooleanMessage{Data: ok})
}

func (h *ConferenceHandler) writeList(w http.ResponseWriter) func([]service.ConferenceDetails, error) {
	return func(list []service.ConferenceDetails, err error) {
		if err != nil {
			handleServiceError(w, h.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, dto.ToConferenceListResponse(list))
	}
}
