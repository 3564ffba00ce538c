package planner

import (
	"time"

	"github.com/sandeepkv93/studyd/internal/model"
)

const (
	// DefaultMaxAttempts covers one day at hourly steps.
	DefaultMaxAttempts = 24
	DefaultStep        = time.Hour
)

// SlotSet holds the start instants already taken by an owner.
type SlotSet map[int64]struct{}

func NewSlotSet(cycles []model.StudyCycle, skipID string) SlotSet {
	out := make(SlotSet, len(cycles))
	for _, c := range cycles {
		if c.ID == skipID || !c.Status.Occupies() {
			continue
		}
		out.Add(c.ScheduledAt)
	}
	return out
}

func (s SlotSet) Add(t time.Time) {
	s[t.UnixNano()] = struct{}{}
}

func (s SlotSet) Taken(t time.Time) bool {
	_, ok := s[t.UnixNano()]
	return ok
}

// FindSlot probes candidate, candidate+step, ... for at most maxAttempts
// instants and returns the first one not taken.
func FindSlot(candidate time.Time, taken SlotSet, maxAttempts int, step time.Duration) (time.Time, error) {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if step <= 0 {
		step = DefaultStep
	}
	probe := candidate
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if !taken.Taken(probe) {
			return probe, nil
		}
		probe = probe.Add(step)
	}
	return time.Time{}, model.ConflictUnresolvedf("no free slot within %d attempts from %s", maxAttempts, candidate.Format(time.RFC3339))
}
