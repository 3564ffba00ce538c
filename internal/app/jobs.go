package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sandeepkv93/studyd/internal/model"
	"github.com/sandeepkv93/studyd/internal/scheduler"
	"github.com/sandeepkv93/studyd/internal/storage"
)

// reminderHorizon bounds how far ahead reminders are queued.
const reminderHorizon = 48 * time.Hour

// Notifier receives due session reminders.
type Notifier func(job scheduler.Job)

// AttachJobs registers the sweep and reminder handlers on r and queues the
// next sweep plus upcoming reminders on engine.
func (a *App) AttachJobs(ctx context.Context, engine *scheduler.Engine, r *scheduler.Runner, notify Notifier) error {
	r.Handle(scheduler.JobSweep, func(ctx context.Context, job scheduler.Job) error {
		_, sweepErr := a.Planner.RescheduleIncomplete(ctx, job.Owner, job.RunAt.In(a.loc))
		next := scheduler.SweepJob(job.Owner, scheduler.NextSweep(job.RunAt.In(a.loc), a.cfg.SweepHour))
		if err := engine.Schedule(next); err != nil {
			return fmt.Errorf("queue next sweep: %w", err)
		}
		if _, err := a.QueueReminders(ctx, engine); err != nil {
			return err
		}
		return sweepErr
	})
	r.Handle(scheduler.JobSessionReminder, func(ctx context.Context, job scheduler.Job) error {
		// the session may have been moved since the reminder was queued
		if _, err := a.repo.GetEvent(ctx, job.RefID); err != nil {
			if errors.Is(err, model.ErrNotFound) {
				return nil
			}
			return err
		}
		if notify != nil {
			notify(job)
		}
		return nil
	})

	first := scheduler.SweepJob(a.cfg.Principal, scheduler.NextSweep(a.now().In(a.loc), a.cfg.SweepHour))
	if err := engine.Schedule(first); err != nil {
		return fmt.Errorf("queue sweep: %w", err)
	}
	_, err := a.QueueReminders(ctx, engine)
	return err
}

// QueueReminders (re)queues reminders for the principal's events starting
// within the reminder horizon. Jobs already queued for an event are
// replaced, so calling it after every change is safe.
func (a *App) QueueReminders(ctx context.Context, engine *scheduler.Engine) (int, error) {
	now := a.now()
	events, err := a.repo.ListEvents(ctx, storage.EventListFilter{
		Owner: a.cfg.Principal,
		From:  now,
		To:    now.Add(reminderHorizon),
	})
	if err != nil {
		return 0, fmt.Errorf("list events: %w", err)
	}
	jobs := scheduler.ReminderJobs(events, now)
	for _, job := range jobs {
		engine.Cancel(job.ID)
		if err := engine.Schedule(job); err != nil {
			return 0, err
		}
	}
	a.logger.Debug("reminders queued", "count", len(jobs))
	return len(jobs), nil
}
