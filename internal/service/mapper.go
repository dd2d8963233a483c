package service

import (
	"slices"
	"time"

	"github.com/confcentral/confcentral/internal/model"
)

// ConferenceInput defines input for creating a conference. Zero values are
// replaced by the create defaults.
type ConferenceInput struct {
	Name         string
	Description  string
	Topics       []string
	City         string
	StartDate    *time.Time
	EndDate      *time.Time
	MaxAttendees int
}

// ConferenceUpdate defines a partial conference update. A nil pointer, an
// empty string or an empty list leaves the stored attribute untouched.
type ConferenceUpdate struct {
	Name         *string
	Description  *string
	Topics       []string
	City         *string
	StartDate    *time.Time
	EndDate      *time.Time
	MaxAttendees *int
}

// ConferenceDetails is a conference together with its organizer's display name.
type ConferenceDetails struct {
	Conference           *model.Conference
	OrganizerDisplayName string
}

// ProfileUpdate defines the user-modifiable profile fields.
type ProfileUpdate struct {
	DisplayName  *string
	TeeShirtSize *string
}

// SessionInput defines input for creating a session.
type SessionInput struct {
	Name          string
	Highlights    string
	SpeakerKey    string
	Duration      int
	TypeOfSession string
	Date          *time.Time
	StartTime     *model.Clock
}

func newConference(organizerID string, in ConferenceInput) (*model.Conference, error) {
	if in.Name == "" {
		return nil, ErrConferenceNameRequired
	}
	if err := checkDateRange(in.StartDate, in.EndDate); err != nil {
		return nil, err
	}

	ts := now()
	conf := &model.Conference{
		ID:              newID(),
		OrganizerUserID: organizerID,
		Name:            in.Name,
		Description:     in.Description,
		Topics:          slices.Clone(in.Topics),
		City:            in.City,
		StartDate:       in.StartDate,
		EndDate:         in.EndDate,
		MaxAttendees:    max(in.MaxAttendees, 0),
		CreatedAt:       ts,
		UpdatedAt:       ts,
	}
	conf.ApplyDefaults()
	return conf, nil
}

// applyConferenceUpdate copies the present fields onto conf. A change of
// maxAttendees moves seatsAvailable by the same delta so the number of
// registered attendees is preserved.
func applyConferenceUpdate(conf *model.Conference, in ConferenceUpdate) error {
	if in.Name != nil && *in.Name != "" {
		conf.Name = *in.Name
	}
	if in.Description != nil && *in.Description != "" {
		conf.Description = *in.Description
	}
	if len(in.Topics) > 0 {
		conf.Topics = slices.Clone(in.Topics)
	}
	if in.City != nil && *in.City != "" {
		conf.City = *in.City
	}
	if in.StartDate != nil {
		conf.StartDate = in.StartDate
		conf.Month = model.MonthOf(in.StartDate)
	}
	if in.EndDate != nil {
		conf.EndDate = in.EndDate
	}
	if err := checkDateRange(conf.StartDate, conf.EndDate); err != nil {
		return err
	}

	if in.MaxAttendees != nil {
		registered := conf.MaxAttendees - conf.SeatsAvailable
		if conf.MaxAttendees == 0 {
			registered = 0
		}
		next := *in.MaxAttendees
		if next < 0 || (next > 0 && next < registered) {
			return ErrMaxBelowRegistered
		}
		conf.MaxAttendees = next
		conf.SeatsAvailable = 0
		if next > 0 {
			conf.SeatsAvailable = next - registered
		}
	}
	return nil
}

func checkDateRange(start, end *time.Time) error {
	if start != nil && end != nil && end.Before(*start) {
		return ErrEndBeforeStart
	}
	return nil
}

func applyProfileUpdate(profile *model.Profile, in ProfileUpdate) error {
	if in.DisplayName != nil && *in.DisplayName != "" {
		profile.DisplayName = *in.DisplayName
	}
	if in.TeeShirtSize != nil && *in.TeeShirtSize != "" {
		size, err := model.ParseTeeShirtSize(*in.TeeShirtSize)
		if err != nil {
			return validationf("%s: %s", ErrInvalidTeeShirtSize.Message, *in.TeeShirtSize)
		}
		profile.TeeShirtSize = size
	}
	return nil
}

func newSession(conf *model.Conference, speakerID string, in SessionInput) (*model.Session, error) {
	if in.Name == "" {
		return nil, ErrSessionNameRequired
	}
	return &model.Session{
		ID:              newID(),
		ConferenceID:    conf.ID,
		OrganizerUserID: conf.OrganizerUserID,
		Name:            in.Name,
		Highlights:      in.Highlights,
		SpeakerID:       speakerID,
		Duration:        max(in.Duration, 0),
		TypeOfSession:   in.TypeOfSession,
		Date:            in.Date,
		StartTime:       in.StartTime,
		CreatedAt:       now(),
	}, nil
}
