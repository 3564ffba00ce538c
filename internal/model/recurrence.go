package model

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"
)

type RepeatKind string

const (
	RepeatDaily        RepeatKind = "daily"
	RepeatEveryWeekday RepeatKind = "every_weekday"
	RepeatEveryNDays   RepeatKind = "every_n_days"
	RepeatEveryNWeeks  RepeatKind = "every_n_weeks"
)

var (
	ErrInvalidRepeatKind = errors.New("model: invalid repeat kind")
	ErrInvalidInterval   = errors.New("model: invalid repeat interval")
)

// RepeatRule spaces out a series of study sessions. Every occurrence keeps
// the clock time of Anchor.
type RepeatRule struct {
	Kind     RepeatKind
	Interval int
	Anchor   time.Time
	Weekdays []time.Weekday
}

func (r RepeatRule) Validate() error {
	switch r.Kind {
	case RepeatDaily, RepeatEveryWeekday, RepeatEveryNDays, RepeatEveryNWeeks:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidRepeatKind, r.Kind)
	}
	if r.Anchor.IsZero() {
		return errors.New("model: repeat anchor is required")
	}
	if r.Kind != RepeatDaily && r.Kind != RepeatEveryWeekday && r.Interval <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidInterval, r.Interval)
	}
	if r.Kind == RepeatEveryWeekday && len(r.Weekdays) > 0 {
		s := make([]int, 0, len(r.Weekdays))
		for _, d := range r.Weekdays {
			s = append(s, int(d))
		}
		sort.Ints(s)
		for i := 1; i < len(s); i++ {
			if s[i] == s[i-1] {
				return errors.New("model: duplicate weekday in repeat rule")
			}
		}
	}
	return nil
}

// NextAfter returns the first occurrence strictly after from.
func (r RepeatRule) NextAfter(from time.Time) (time.Time, error) {
	if err := r.Validate(); err != nil {
		return time.Time{}, err
	}
	anchor := r.Anchor
	if from.Before(anchor) {
		return anchor, nil
	}
	switch r.Kind {
	case RepeatDaily:
		return r.nextEveryDays(from, 1), nil
	case RepeatEveryNDays:
		return r.nextEveryDays(from, r.Interval), nil
	case RepeatEveryNWeeks:
		return r.nextEveryDays(from, r.Interval*7), nil
	default:
		return r.nextWeekday(from), nil
	}
}

// Preview lists the anchor followed by the next count-1 occurrences.
func (r RepeatRule) Preview(count int) ([]time.Time, error) {
	if count <= 0 {
		return []time.Time{}, nil
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	out := make([]time.Time, 0, count)
	cursor := r.Anchor
	if r.Kind == RepeatEveryWeekday && !r.allowedWeekdays()[cursor.Weekday()] {
		cursor = r.nextWeekday(cursor)
	}
	for len(out) < count {
		out = append(out, cursor)
		next, err := r.NextAfter(cursor)
		if err != nil {
			return nil, err
		}
		cursor = next
	}
	return out, nil
}

func (r RepeatRule) nextEveryDays(from time.Time, days int) time.Time {
	anchorDay := DateOf(r.Anchor)
	fromDay := DateOf(from.In(r.Anchor.Location()))
	elapsed := int(math.Round(fromDay.Sub(anchorDay).Hours() / 24))
	steps := elapsed / days
	probe := AtClock(anchorDay.AddDate(0, 0, steps*days), r.Anchor)
	for !probe.After(from) {
		steps++
		probe = AtClock(anchorDay.AddDate(0, 0, steps*days), r.Anchor)
	}
	return probe
}

func (r RepeatRule) nextWeekday(from time.Time) time.Time {
	allowed := r.allowedWeekdays()
	probe := AtClock(from.In(r.Anchor.Location()), r.Anchor)
	if !probe.After(from) {
		probe = probe.AddDate(0, 0, 1)
	}
	for {
		if allowed[probe.Weekday()] {
			return probe
		}
		probe = probe.AddDate(0, 0, 1)
	}
}

func (r RepeatRule) allowedWeekdays() map[time.Weekday]bool {
	if len(r.Weekdays) > 0 {
		m := make(map[time.Weekday]bool, len(r.Weekdays))
		for _, w := range r.Weekdays {
			m[w] = true
		}
		return m
	}
	return map[time.Weekday]bool{
		time.Monday:    true,
		time.Tuesday:   true,
		time.Wednesday: true,
		time.Thursday:  true,
		time.Friday:    true,
	}
}
