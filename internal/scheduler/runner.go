package scheduler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/sandeepkv93/studyd/internal/calendar"
)

type Handler func(ctx context.Context, job Job) error

// Runner drains an Engine and dispatches each job to the handler for its kind.
type Runner struct {
	engine   *Engine
	handlers map[JobKind]Handler
	logger   *slog.Logger
}

func NewRunner(engine *Engine, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Runner{engine: engine, handlers: map[JobKind]Handler{}, logger: logger}
}

func (r *Runner) Handle(kind JobKind, h Handler) {
	r.handlers[kind] = h
}

// Run blocks until ctx is cancelled or the engine is stopped. Handler
// errors are logged and do not stop the loop.
func (r *Runner) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case job, ok := <-r.engine.C():
			if !ok {
				return nil
			}
			r.dispatch(ctx, job)
		}
	}
}

func (r *Runner) dispatch(ctx context.Context, job Job) {
	h, ok := r.handlers[job.Kind]
	if !ok {
		r.logger.Warn("no handler for job", "job", job.ID, "kind", job.Kind)
		return
	}
	if err := h(ctx, job); err != nil {
		r.logger.Error("job failed", "job", job.ID, "kind", job.Kind, "owner", job.Owner, "err", err)
		return
	}
	r.logger.Debug("job done", "job", job.ID, "kind", job.Kind)
}

// NextSweep is the first hour:00 strictly after now, in now's location.
func NextSweep(now time.Time, hour int) time.Time {
	y, m, d := now.Date()
	at := time.Date(y, m, d, hour, 0, 0, 0, now.Location())
	if !at.After(now) {
		at = at.AddDate(0, 0, 1)
	}
	return at
}

func SweepJob(owner string, at time.Time) Job {
	return Job{
		ID:    fmt.Sprintf("sweep:%s:%s", owner, at.Format("2006-01-02")),
		Kind:  JobSweep,
		Owner: owner,
		RunAt: at,
	}
}

// ReminderJobs builds one reminder per event whose reminder time is still
// ahead of now. Events without a lead time get none.
func ReminderJobs(events []calendar.Event, now time.Time) []Job {
	out := make([]Job, 0, len(events))
	for _, ev := range events {
		if ev.LeadMinutes <= 0 {
			continue
		}
		at := ev.RemindAt()
		if !at.After(now) {
			continue
		}
		out = append(out, Job{
			ID:    "reminder:" + ev.ID,
			Kind:  JobSessionReminder,
			Owner: ev.Owner,
			RefID: ev.ID,
			Title: ev.Title,
			RunAt: at,
		})
	}
	return out
}
