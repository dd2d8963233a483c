package dto

import (
	"github.com/confcentral/confcentral/internal/model"
	"github.com/confcentral/confcentral/internal/service"
)

// SessionRequest represents the request body for creating a session.
type SessionRequest struct {
	Name          string `json:"name"`
	Highlights    string `json:"highlights,omitempty"`
	SpeakerKey    string `json:"speakerKey,omitempty"`
	Duration      int    `json:"duration,omitempty"`
	TypeOfSession string `json:"typeOfSession,omitempty"`
	Date          string `json:"date,omitempty"`
	StartTime     string `json:"startTime,omitempty"`
}

// SessionResponse represents a session in API responses.
type SessionResponse struct {
	WebsafeKey    string `json:"websafeKey"`
	ConferenceKey string `json:"conferenceKey"`
	Name          string `json:"name"`
	Highlights    string `json:"highlights"`
	SpeakerKey    string `json:"speakerKey,omitempty"`
	Duration      int    `json:"duration"`
	TypeOfSession string `json:"typeOfSession"`
	Date          string `json:"date,omitempty"`
	StartTime     string `json:"startTime,omitempty"`
}

// SessionListResponse represents a list of sessions.
type SessionListResponse struct {
	Items []SessionResponse `json:"items"`
}

// SpeakerRequest represents the request body for creating a speaker.
type SpeakerRequest struct {
	Name string `json:"name"`
}

// SpeakerResponse represents a speaker in API responses.
type SpeakerResponse struct {
	WebsafeKey string `json:"websafeKey"`
	Name       string `json:"name"`
}

// ToInput converts the request into service input.
func (r SessionRequest) ToInput() (service.SessionInput, error) {
	date, err := parseDate("date", r.Date)
	if err != nil {
		return service.SessionInput{}, err
	}
	start, err := model.ParseClock(r.StartTime)
	if err != nil {
		return service.SessionInput{}, &InvalidFieldError{Field: "startTime", Err: err}
	}
	return service.SessionInput{
		Name:          r.Name,
		Highlights:    r.Highlights,
		SpeakerKey:    r.SpeakerKey,
		Duration:      r.Duration,
		TypeOfSession: r.TypeOfSession,
		Date:          date,
		StartTime:     start,
	}, nil
}

// ToSessionResponse converts a session to a response DTO.
func ToSessionResponse(s *model.Session) SessionResponse {
	return SessionResponse{
		WebsafeKey:    s.Key().Encode(),
		ConferenceKey: s.ConferenceKey().Encode(),
		Name:          s.Name,
		Highlights:    s.Highlights,
		SpeakerKey:    s.SpeakerKey(),
		Duration:      s.Duration,
		TypeOfSession: s.TypeOfSession,
		Date:          model.FormatDate(s.Date),
		StartTime:     model.FormatClock(s.StartTime),
	}
}

// ToSessionListResponse converts a list of sessions.
func ToSessionListResponse(list []*model.Session) SessionListResponse {
	items := make([]SessionResponse, 0, len(list))
	for _, s := range list {
		items = append(items, ToSessionResponse(s))
	}
	return SessionListResponse{Items: items}
}

// ToSpeakerResponse converts a speaker to a response DTO.
func ToSpeakerResponse(s *model.Speaker) SpeakerResponse {
	return SpeakerResponse{
		WebsafeKey: s.Key().Encode(),
		Name:       s.Name,
	}
}
