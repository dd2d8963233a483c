package dto

import (
	"fmt"
	"time"

	"github.com/confcentral/confcentral/internal/model"
	"github.com/confcentral/confcentral/internal/query"
	"github.com/confcentral/confcentral/internal/service"
)

// ConferenceRequest represents the request body for creating a conference.
type ConferenceRequest struct {
	Name         string   `json:"name"`
	Description  string   `json:"description,omitempty"`
	Topics       []string `json:"topics,omitempty"`
	City         string   `json:"city,omitempty"`
	StartDate    string   `json:"startDate,omitempty"`
	EndDate      string   `json:"endDate,omitempty"`
	MaxAttendees int      `json:"maxAttendees,omitempty"`
}

// UpdateConferenceRequest represents the request body for updating a
// conference. Absent and empty fields leave the stored value untouched.
type UpdateConferenceRequest struct {
	Name         *string  `json:"name,omitempty"`
	Description  *string  `json:"description,omitempty"`
	Topics       []string `json:"topics,omitempty"`
	City         *string  `json:"city,omitempty"`
	StartDate    *string  `json:"startDate,omitempty"`
	EndDate      *string  `json:"endDate,omitempty"`
	MaxAttendees *int     `json:"maxAttendees,omitempty"`
}

// QueryRequest represents the request body for querying conferences.
type QueryRequest struct {
	Filters []query.Filter `json:"filters"`
}

// ConferenceResponse represents a conference in API responses.
type ConferenceResponse struct {
	WebsafeKey           string   `json:"websafeKey"`
	Name                 string   `json:"name"`
	Description          string   `json:"description"`
	OrganizerDisplayName string   `json:"organizerDisplayName"`
	Topics               []string `json:"topics"`
	City                 string   `json:"city"`
	StartDate            string   `json:"startDate,omitempty"`
	EndDate              string   `json:"endDate,omitempty"`
	Month                int      `json:"month"`
	MaxAttendees         int      `json:"maxAttendees"`
	SeatsAvailable       int      `json:"seatsAvailable"`
}

// ConferenceListResponse represents a list of conferences.
type ConferenceListResponse struct {
	Items []ConferenceResponse `json:"items"`
}

// ToInput converts the request into service input.
func (r ConferenceRequest) ToInput() (service.ConferenceInput, error) {
	start, err := parseDate("startDate", r.StartDate)
	if err != nil {
		return service.ConferenceInput{}, err
	}
	end, err := parseDate("endDate", r.EndDate)
	if err != nil {
		return service.ConferenceInput{}, err
	}
	return service.ConferenceInput{
		Name:         r.Name,
		Description:  r.Description,
		Topics:       r.Topics,
		City:         r.City,
		StartDate:    start,
		EndDate:      end,
		MaxAttendees: r.MaxAttendees,
	}, nil
}

// ToUpdate converts the request into a partial service update.
func (r UpdateConferenceRequest) ToUpdate() (service.ConferenceUpdate, error) {
	upd := service.ConferenceUpdate{
		Name:         r.Name,
		Description:  r.Description,
		Topics:       r.Topics,
		City:         r.City,
		MaxAttendees: r.MaxAttendees,
	}
	var err error
	if r.StartDate != nil {
		if upd.StartDate, err = parseDate("startDate", *r.StartDate); err != nil {
			return service.ConferenceUpdate{}, err
		}
	}
	if r.EndDate != nil {
		if upd.EndDate, err = parseDate("endDate", *r.EndDate); err != nil {
			return service.ConferenceUpdate{}, err
		}
	}
	return upd, nil
}

// ToConferenceResponse converts conference details to a response DTO.
func ToConferenceResponse(d service.ConferenceDetails) ConferenceResponse {
	c := d.Conference
	topics := c.Topics
	if topics == nil {
		topics = []string{}
	}
	return ConferenceResponse{
		WebsafeKey:           c.Key().Encode(),
		Name:                 c.Name,
		Description:          c.Description,
		OrganizerDisplayName: d.OrganizerDisplayName,
		Topics:               topics,
		City:                 c.City,
		StartDate:            model.FormatDate(c.StartDate),
		EndDate:              model.FormatDate(c.EndDate),
		Month:                c.Month,
		MaxAttendees:         c.MaxAttendees,
		SeatsAvailable:       c.SeatsAvailable,
	}
}

// ToConferenceListResponse converts a list of conference details.
func ToConferenceListResponse(list []service.ConferenceDetails) ConferenceListResponse {
	items := make([]ConferenceResponse, 0, len(list))
	for _, d := range list {
		items = append(items, ToConferenceResponse(d))
	}
	return ConferenceListResponse{Items: items}
}

// InvalidFieldError reports a request field that could not be parsed.
type InvalidFieldError struct {
	Field string
	Err   error
}

func (e *InvalidFieldError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *InvalidFieldError) Unwrap() error {
	return e.Err
}

func parseDate(field, value string) (*time.Time, error) {
	t, err := model.ParseDate(value)
	if err != nil {
		return nil, &InvalidFieldError{Field: field, Err: err}
	}
	return t, nil
}
