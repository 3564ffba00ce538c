// Package calendar holds the calendar entries created for study sessions
// and their iCalendar export.
package calendar

import (
	"errors"
	"strings"
	"time"
)

type EventRequest struct {
	Title       string
	Start       time.Time
	End         time.Time
	Owner       string
	LeadMinutes int
}

func (r EventRequest) Validate() error {
	if strings.TrimSpace(r.Owner) == "" {
		return errors.New("calendar: event owner is required")
	}
	if r.Start.IsZero() || !r.End.After(r.Start) {
		return errors.New("calendar: event end must be after start")
	}
	if r.LeadMinutes < 0 {
		return errors.New("calendar: lead minutes must not be negative")
	}
	return nil
}

type Event struct {
	ID          string
	Title       string
	Start       time.Time
	End         time.Time
	Owner       string
	LeadMinutes int
	CreatedAt   time.Time
}

// RemindAt is when a reminder for the event is due.
func (e Event) RemindAt() time.Time {
	return e.Start.Add(-time.Duration(e.LeadMinutes) * time.Minute)
}
