package model

import "time"

// SessionTypeWorkshop is the session type excluded by the evening preset.
const SessionTypeWorkshop = "Workshop"

// Session is a talk or workshop inside a conference.
type Session struct {
	ID              string
	ConferenceID    string
	OrganizerUserID string
	Name            string
	Highlights      string
	SpeakerID       string
	Duration        int
	TypeOfSession   string
	Date            *time.Time
	StartTime       *Clock
	CreatedAt       time.Time
}

// ConferenceKey returns the key of the owning conference.
func (s *Session) ConferenceKey() Key {
	return NewConferenceKey(s.OrganizerUserID, s.ConferenceID)
}

// Key returns the session key, parented by its conference.
func (s *Session) Key() Key {
	return NewSessionKey(s.ConferenceKey(), s.ID)
}

// SpeakerKey returns the encoded speaker key, or "" when no speaker is set.
func (s *Session) SpeakerKey() string {
	if s.SpeakerID == "" {
		return ""
	}
	return NewSpeakerKey(s.SpeakerID).Encode()
}

// Clone returns a deep copy.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.Date = cloneTime(s.Date)
	if s.StartTime != nil {
		c := *s.StartTime
		out.StartTime = &c
	}
	return &out
}

// Speaker is a person presenting sessions.
type Speaker struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// Key returns the speaker key.
func (s *Speaker) Key() Key {
	return NewSpeakerKey(s.ID)
}
