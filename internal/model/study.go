package model

import (
	"strings"
	"time"
)

type CycleStatus string

const (
	CycleScheduled   CycleStatus = "scheduled"
	CycleInProgress  CycleStatus = "in-progress"
	CycleCompleted   CycleStatus = "completed"
	CycleRescheduled CycleStatus = "rescheduled"
	CycleMoved       CycleStatus = "moved"
)

func (s CycleStatus) IsValid() bool {
	switch s {
	case CycleScheduled, CycleInProgress, CycleCompleted, CycleRescheduled, CycleMoved:
		return true
	default:
		return false
	}
}

// Occupies reports whether a cycle in this status holds its time slot.
func (s CycleStatus) Occupies() bool {
	return s == CycleScheduled || s == CycleInProgress
}

// StudyCycle is a scheduled run of study/pause blocks. ScheduledAt carries
// both the scheduled date and clock time.
type StudyCycle struct {
	ID               string
	Owner            string
	Subject          string
	StudyMinutes     int
	PauseMinutes     int
	Cycles           int
	CompletedCycles  int
	ScheduledAt      time.Time
	Status           CycleStatus
	OriginalDate     time.Time
	RescheduledCount int
	EventID          string
	ParentID         string
	Version          int64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (c StudyCycle) Remaining() int {
	return c.Cycles - c.CompletedCycles
}

// Incomplete reports whether the sweep should pick this cycle up.
func (c StudyCycle) Incomplete() bool {
	switch c.Status {
	case CycleScheduled:
		return true
	case CycleInProgress:
		return c.CompletedCycles < c.Cycles
	default:
		return false
	}
}

// SessionLength is the wall-clock span of n study+pause blocks.
func (c StudyCycle) SessionLength(n int) time.Duration {
	return time.Duration((c.StudyMinutes+c.PauseMinutes)*n) * time.Minute
}

func (c StudyCycle) EndAt() time.Time {
	return c.ScheduledAt.Add(c.SessionLength(c.Remaining()))
}

func (c StudyCycle) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return Validationf("model: study cycle id is required")
	}
	if strings.TrimSpace(c.Owner) == "" {
		return Validationf("model: study cycle owner is required")
	}
	if c.StudyMinutes <= 0 {
		return Validationf("model: study minutes must be positive, got %d", c.StudyMinutes)
	}
	if c.PauseMinutes < 0 {
		return Validationf("model: pause minutes must not be negative, got %d", c.PauseMinutes)
	}
	if c.Cycles <= 0 {
		return Validationf("model: cycles must be positive, got %d", c.Cycles)
	}
	if c.CompletedCycles < 0 || c.CompletedCycles > c.Cycles {
		return Validationf("model: completed cycles %d out of range [0,%d]", c.CompletedCycles, c.Cycles)
	}
	if c.ScheduledAt.IsZero() {
		return Validationf("model: study cycle scheduled time is required")
	}
	if !c.Status.IsValid() {
		return Validationf("model: invalid study cycle status %q", c.Status)
	}
	return nil
}

// DateOf truncates t to midnight in its own location.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// AtClock places the clock time of clock on the calendar date of day.
func AtClock(day time.Time, clock time.Time) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, clock.Hour(), clock.Minute(), clock.Second(), 0, clock.Location())
}
