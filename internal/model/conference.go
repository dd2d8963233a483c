package model

import (
	"slices"
	"time"
)

// Defaults applied to a conference on create when the caller leaves a field out.
const (
	DefaultCity         = "Default City"
	DefaultMaxAttendees = 0
)

// DefaultTopics is applied on create when no topics are given.
var DefaultTopics = []string{"Default", "Topic"}

// Conference is an event organized by a single profile.
type Conference struct {
	ID              string
	OrganizerUserID string
	Name            string
	Description     string
	Topics          []string
	City            string
	StartDate       *time.Time
	EndDate         *time.Time
	Month           int
	MaxAttendees    int
	SeatsAvailable  int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Key returns the conference key, parented by its organizer's profile.
func (c *Conference) Key() Key {
	return NewConferenceKey(c.OrganizerUserID, c.ID)
}

// HasTopic reports whether the conference lists the topic.
func (c *Conference) HasTopic(topic string) bool {
	return slices.Contains(c.Topics, topic)
}

// ApplyDefaults fills unset attributes with their create-time defaults and
// derives month and seat count.
func (c *Conference) ApplyDefaults() {
	if c.City == "" {
		c.City = DefaultCity
	}
	if len(c.Topics) == 0 {
		c.Topics = slices.Clone(DefaultTopics)
	}
	if c.MaxAttendees < 0 {
		c.MaxAttendees = DefaultMaxAttendees
	}
	c.Month = MonthOf(c.StartDate)
	c.SeatsAvailable = 0
	if c.MaxAttendees > 0 {
		c.SeatsAvailable = c.MaxAttendees
	}
}

// Clone returns a deep copy.
func (c *Conference) Clone() *Conference {
	if c == nil {
		return nil
	}
	out := *c
	out.Topics = slices.Clone(c.Topics)
	out.StartDate = cloneTime(c.StartDate)
	out.EndDate = cloneTime(c.EndDate)
	return &out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
