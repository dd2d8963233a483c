package model

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

var (
	// ErrInvalidDate indicates a date that is not YYYY-MM-DD.
	ErrInvalidDate = errors.New("invalid date, expected YYYY-MM-DD")
	// ErrInvalidClock indicates a time of day that is not HH:MM.
	ErrInvalidClock = errors.New("invalid time, expected HH:MM")
)

// ParseDate parses the leading YYYY-MM-DD of s. Anything past the first
// ten characters (a time component, a zone) is ignored. Empty input yields nil.
func ParseDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if len(s) > len(DateLayout) {
		s = s[:len(DateLayout)]
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return nil, ErrInvalidDate
	}
	return &t, nil
}

// FormatDate renders a date as YYYY-MM-DD, or "" for nil.
func FormatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(DateLayout)
}

// MonthOf returns the month number of t, or 0 when t is nil.
func MonthOf(t *time.Time) int {
	if t == nil {
		return 0
	}
	return int(t.Month())
}

// Clock is a time of day in minutes since midnight.
type Clock int

// NewClock builds a Clock from hours and minutes.
func NewClock(hour, minute int) Clock {
	return Clock(hour*60 + minute)
}

// ParseClock accepts HH:MM or HH:MM:SS in 24h form. Empty input yields nil.
func ParseClock(s string) (*Clock, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	parts := strings.Split(s, ":")
	if len(parts) != 2 && len(parts) != 3 {
		return nil, ErrInvalidClock
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return nil, ErrInvalidClock
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return nil, ErrInvalidClock
	}
	if len(parts) == 3 {
		if sec, err := strconv.Atoi(parts[2]); err != nil || sec < 0 || sec > 59 {
			return nil, ErrInvalidClock
		}
	}

	c := NewClock(hour, minute)
	return &c, nil
}

// String renders the clock as HH:MM.
func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// Minutes returns the number of minutes since midnight.
func (c Clock) Minutes() int {
	return int(c)
}

// FormatClock renders c as HH:MM, or "" for nil.
func FormatClock(c *Clock) string {
	if c == nil {
		return ""
	}
	return c.String()
}
