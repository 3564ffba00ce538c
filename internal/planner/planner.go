// Package planner schedules study cycles and moves unfinished ones to the
// next free slot.
package planner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sandeepkv93/studyd/internal/calendar"
	"github.com/sandeepkv93/studyd/internal/model"
)

// CycleStore persists study cycles. SaveStudyCycle must reject stale
// versions with ErrVersionMismatch.
type CycleStore interface {
	GetStudyCycle(ctx context.Context, id string) (model.StudyCycle, error)
	CreateStudyCycle(ctx context.Context, c model.StudyCycle) (model.StudyCycle, error)
	SaveStudyCycle(ctx context.Context, c model.StudyCycle) (model.StudyCycle, error)
	DeleteStudyCycle(ctx context.Context, id string) error
	FindIncompleteStudyCycles(ctx context.Context, owner string, day time.Time) ([]model.StudyCycle, error)
	CyclesBetween(ctx context.Context, owner string, from, to time.Time) ([]model.StudyCycle, error)
}

type Calendar interface {
	CreateEvent(ctx context.Context, req calendar.EventRequest) (string, error)
	DeleteEvent(ctx context.Context, id string) error
}

type Config struct {
	MaxAttempts int
	Step        time.Duration
	LeadMinutes int
}

type Planner struct {
	store  CycleStore
	cal    Calendar
	cfg    Config
	logger *slog.Logger
	now    func() time.Time
	newID  func() string
}

type Option func(*Planner)

func WithLogger(l *slog.Logger) Option {
	return func(p *Planner) {
		if l != nil {
			p.logger = l
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(p *Planner) {
		if now != nil {
			p.now = now
		}
	}
}

func WithIDs(newID func() string) Option {
	return func(p *Planner) {
		if newID != nil {
			p.newID = newID
		}
	}
}

func New(store CycleStore, cal Calendar, cfg Config, opts ...Option) *Planner {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.Step <= 0 {
		cfg.Step = DefaultStep
	}
	if cfg.LeadMinutes < 0 {
		cfg.LeadMinutes = 0
	}
	p := &Planner{
		store:  store,
		cal:    cal,
		cfg:    cfg,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// RescheduleIncomplete sweeps the owner's unfinished cycles from the day
// before asOf and respawns each on asOf's date at its original clock time,
// or the next free hour. Failures are collected and the sweep continues.
func (p *Planner) RescheduleIncomplete(ctx context.Context, owner string, asOf time.Time) ([]model.StudyCycle, error) {
	if strings.TrimSpace(owner) == "" {
		return nil, model.Unauthorizedf("owner is required")
	}
	day := model.DateOf(asOf)
	cycles, err := p.store.FindIncompleteStudyCycles(ctx, owner, day.AddDate(0, 0, -1))
	if err != nil {
		return nil, fmt.Errorf("find incomplete cycles: %w", err)
	}

	out := make([]model.StudyCycle, 0, len(cycles))
	var errs []error
	for _, c := range cycles {
		if c.Owner != owner || !c.Incomplete() || c.Remaining() <= 0 {
			continue
		}
		next, err := p.respawn(ctx, c, day, model.CycleRescheduled)
		if err != nil {
			p.logger.Warn("reschedule failed", "cycle", c.ID, "owner", owner, "err", err)
			errs = append(errs, fmt.Errorf("cycle %s: %w", c.ID, err))
			continue
		}
		out = append(out, next)
	}
	p.logger.Info("sweep finished", "owner", owner, "date", day.Format("2006-01-02"), "swept", len(cycles), "rescheduled", len(out))
	return out, errors.Join(errs...)
}

// MoveToDate respawns an unfinished cycle on date and marks the original moved.
func (p *Planner) MoveToDate(ctx context.Context, principal, cycleID string, date time.Time) (model.StudyCycle, error) {
	c, err := p.owned(ctx, principal, cycleID)
	if err != nil {
		return model.StudyCycle{}, err
	}
	if !c.Incomplete() || c.Remaining() <= 0 {
		return model.StudyCycle{}, model.Validationf("cycle %s is %s with %d cycles left", c.ID, c.Status, c.Remaining())
	}
	return p.respawn(ctx, c, model.DateOf(date), model.CycleMoved)
}

func (p *Planner) respawn(ctx context.Context, src model.StudyCycle, day time.Time, mark model.CycleStatus) (model.StudyCycle, error) {
	candidate := model.AtClock(day, src.ScheduledAt.In(day.Location()))
	slot, err := p.findSlot(ctx, src.Owner, candidate, src.ID)
	if err != nil {
		return model.StudyCycle{}, err
	}

	remaining := src.Remaining()
	original := src.OriginalDate
	if original.IsZero() {
		original = model.DateOf(src.ScheduledAt)
	}
	oldEvent := src.EventID

	next := model.StudyCycle{
		ID:               p.newID(),
		Owner:            src.Owner,
		Subject:          src.Subject,
		StudyMinutes:     src.StudyMinutes,
		PauseMinutes:     src.PauseMinutes,
		Cycles:           remaining,
		ScheduledAt:      slot,
		Status:           model.CycleScheduled,
		OriginalDate:     original,
		RescheduledCount: src.RescheduledCount + 1,
		ParentID:         src.ID,
	}
	// The source is closed only after its successor exists.
	created, err := p.create(ctx, next)
	if err != nil {
		return model.StudyCycle{}, err
	}

	src.Status = mark
	src.UpdatedAt = p.now().UTC()
	if _, err := p.store.SaveStudyCycle(ctx, src); err != nil {
		p.discard(ctx, created)
		return model.StudyCycle{}, err
	}
	if oldEvent != "" {
		if err := p.cal.DeleteEvent(ctx, oldEvent); err != nil && !errors.Is(err, model.ErrNotFound) {
			p.logger.Warn("stale calendar event kept", "cycle", src.ID, "event", oldEvent, "err", err)
		}
	}
	p.logger.Info("cycle respawned", "from", src.ID, "to", created.ID, "status", mark, "at", slot.Format(time.RFC3339), "cycles", remaining)
	return created, nil
}

type ScheduleRequest struct {
	Subject      string
	At           time.Time
	StudyMinutes int
	PauseMinutes int
	Cycles       int
}

// Schedule books a new cycle at req.At or the next free hour after it.
func (p *Planner) Schedule(ctx context.Context, principal string, req ScheduleRequest) (model.StudyCycle, error) {
	if strings.TrimSpace(principal) == "" {
		return model.StudyCycle{}, model.Unauthorizedf("principal is required")
	}
	c := model.StudyCycle{
		ID:           p.newID(),
		Owner:        principal,
		Subject:      req.Subject,
		StudyMinutes: req.StudyMinutes,
		PauseMinutes: req.PauseMinutes,
		Cycles:       req.Cycles,
		ScheduledAt:  req.At,
		Status:       model.CycleScheduled,
	}
	if err := c.Validate(); err != nil {
		return model.StudyCycle{}, err
	}
	slot, err := p.findSlot(ctx, principal, req.At, "")
	if err != nil {
		return model.StudyCycle{}, err
	}
	c.ScheduledAt = slot
	c.OriginalDate = model.DateOf(slot)
	return p.create(ctx, c)
}

// ScheduleSeries books count sessions on the dates produced by rule. The
// rule's anchor defaults to req.At. Sessions booked before a failure are
// returned along with the error.
func (p *Planner) ScheduleSeries(ctx context.Context, principal string, req ScheduleRequest, rule model.RepeatRule, count int) ([]model.StudyCycle, error) {
	if rule.Anchor.IsZero() {
		rule.Anchor = req.At
	}
	dates, err := rule.Preview(count)
	if err != nil {
		return nil, model.Validationf("%v", err)
	}
	out := make([]model.StudyCycle, 0, len(dates))
	for _, at := range dates {
		r := req
		r.At = at
		c, err := p.Schedule(ctx, principal, r)
		if err != nil {
			return out, err
		}
		out = append(out, c)
	}
	return out, nil
}

// StartCycle marks a scheduled cycle in progress.
func (p *Planner) StartCycle(ctx context.Context, principal, cycleID string) (model.StudyCycle, error) {
	c, err := p.owned(ctx, principal, cycleID)
	if err != nil {
		return model.StudyCycle{}, err
	}
	if c.Status != model.CycleScheduled {
		return model.StudyCycle{}, model.Validationf("cycle %s is %s, not scheduled", c.ID, c.Status)
	}
	c.Status = model.CycleInProgress
	c.UpdatedAt = p.now().UTC()
	return p.store.SaveStudyCycle(ctx, c)
}

// RecordCycle counts one finished study block. The cycle completes when
// every block is done.
func (p *Planner) RecordCycle(ctx context.Context, principal, cycleID string) (model.StudyCycle, error) {
	c, err := p.owned(ctx, principal, cycleID)
	if err != nil {
		return model.StudyCycle{}, err
	}
	if !c.Status.Occupies() {
		return model.StudyCycle{}, model.Validationf("cycle %s is %s", c.ID, c.Status)
	}
	if c.CompletedCycles >= c.Cycles {
		return model.StudyCycle{}, model.Validationf("cycle %s already has %d of %d blocks", c.ID, c.CompletedCycles, c.Cycles)
	}
	c.CompletedCycles++
	c.Status = model.CycleInProgress
	if c.CompletedCycles == c.Cycles {
		c.Status = model.CycleCompleted
	}
	c.UpdatedAt = p.now().UTC()
	return p.store.SaveStudyCycle(ctx, c)
}

func (p *Planner) owned(ctx context.Context, principal, cycleID string) (model.StudyCycle, error) {
	c, err := p.store.GetStudyCycle(ctx, cycleID)
	if err != nil {
		return model.StudyCycle{}, err
	}
	if c.Owner != principal {
		return model.StudyCycle{}, model.Unauthorizedf("principal %q does not own cycle %s", principal, cycleID)
	}
	return c, nil
}

func (p *Planner) findSlot(ctx context.Context, owner string, candidate time.Time, skipID string) (time.Time, error) {
	window := candidate.Add(time.Duration(p.cfg.MaxAttempts) * p.cfg.Step)
	existing, err := p.store.CyclesBetween(ctx, owner, candidate, window)
	if err != nil {
		return time.Time{}, fmt.Errorf("load occupied slots: %w", err)
	}
	return FindSlot(candidate, NewSlotSet(existing, skipID), p.cfg.MaxAttempts, p.cfg.Step)
}

// create books the calendar entry, then stores the cycle pointing at it.
func (p *Planner) create(ctx context.Context, c model.StudyCycle) (model.StudyCycle, error) {
	eventID, err := p.cal.CreateEvent(ctx, calendar.EventRequest{
		Title:       sessionTitle(c),
		Start:       c.ScheduledAt,
		End:         c.EndAt(),
		Owner:       c.Owner,
		LeadMinutes: p.cfg.LeadMinutes,
	})
	if err != nil {
		return model.StudyCycle{}, fmt.Errorf("create calendar event: %w", err)
	}
	c.EventID = eventID
	now := p.now().UTC()
	c.CreatedAt, c.UpdatedAt = now, now
	created, err := p.store.CreateStudyCycle(ctx, c)
	if err != nil {
		if delErr := p.cal.DeleteEvent(ctx, eventID); delErr != nil {
			p.logger.Warn("orphaned calendar event", "event", eventID, "err", delErr)
		}
		return model.StudyCycle{}, err
	}
	return created, nil
}

// discard removes a successor whose source could not be closed.
func (p *Planner) discard(ctx context.Context, c model.StudyCycle) {
	if err := p.store.DeleteStudyCycle(ctx, c.ID); err != nil {
		p.logger.Warn("orphaned study cycle", "cycle", c.ID, "err", err)
	}
	if err := p.cal.DeleteEvent(ctx, c.EventID); err != nil && !errors.Is(err, model.ErrNotFound) {
		p.logger.Warn("orphaned calendar event", "event", c.EventID, "err", err)
	}
}

func sessionTitle(c model.StudyCycle) string {
	if s := strings.TrimSpace(c.Subject); s != "" {
		return "Study: " + s
	}
	return "Study session"
}
