package planner

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/sandeepkv93/studyd/internal/calendar"
	"github.com/sandeepkv93/studyd/internal/model"
	"github.com/sandeepkv93/studyd/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	monday  = time.Date(2026, 2, 9, 9, 0, 0, 0, time.UTC)
	tuesday = monday.AddDate(0, 0, 1)
)

func setup(t *testing.T, cfg Config) (*Planner, *storage.SQLiteRepository) {
	t.Helper()
	repo, err := storage.OpenSQLite(filepath.Join(t.TempDir(), "planner.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	n := 0
	ids := func() string {
		n++
		return fmt.Sprintf("cycle-%d", n)
	}
	clock := func() time.Time { return tuesday.Add(-time.Hour) }
	return New(repo, repo, cfg, WithIDs(ids), WithClock(clock)), repo
}

// seed stores a cycle with a live calendar event.
func seed(t *testing.T, repo *storage.SQLiteRepository, c model.StudyCycle) model.StudyCycle {
	t.Helper()
	ctx := context.Background()
	eventID, err := repo.CreateEvent(ctx, calendar.EventRequest{
		Title: c.Subject, Start: c.ScheduledAt, End: c.EndAt(), Owner: c.Owner,
	})
	require.NoError(t, err)
	c.EventID = eventID
	created, err := repo.CreateStudyCycle(ctx, c)
	require.NoError(t, err)
	return created
}

func cycle(id string, at time.Time, cycles, completed int, status model.CycleStatus) model.StudyCycle {
	return model.StudyCycle{
		ID: id, Owner: "ana", Subject: "Calculus", StudyMinutes: 25, PauseMinutes: 5,
		Cycles: cycles, CompletedCycles: completed, ScheduledAt: at, Status: status,
	}
}

func TestRescheduleIncompleteFindsNextFreeHour(t *testing.T) {
	ctx := context.Background()
	p, repo := setup(t, Config{LeadMinutes: 10})

	src := seed(t, repo, cycle("src", monday, 4, 1, model.CycleInProgress))
	seed(t, repo, cycle("busy", tuesday, 2, 0, model.CycleScheduled))

	out, err := p.RescheduleIncomplete(ctx, "ana", tuesday)
	require.NoError(t, err)
	require.Len(t, out, 1)

	next := out[0]
	assert.Equal(t, tuesday.Add(time.Hour), next.ScheduledAt)
	assert.Equal(t, 3, next.Cycles)
	assert.Equal(t, 0, next.CompletedCycles)
	assert.Equal(t, 1, next.RescheduledCount)
	assert.Equal(t, model.DateOf(monday), next.OriginalDate)
	assert.Equal(t, "src", next.ParentID)
	assert.Equal(t, model.CycleScheduled, next.Status)

	old, err := repo.GetStudyCycle(ctx, "src")
	require.NoError(t, err)
	assert.Equal(t, model.CycleRescheduled, old.Status)
	assert.Equal(t, int64(2), old.Version)

	_, err = repo.GetEvent(ctx, src.EventID)
	assert.ErrorIs(t, err, model.ErrNotFound)

	ev, err := repo.GetEvent(ctx, next.EventID)
	require.NoError(t, err)
	assert.Equal(t, "Study: Calculus", ev.Title)
	assert.Equal(t, next.ScheduledAt, ev.Start)
	assert.Equal(t, next.ScheduledAt.Add(90*time.Minute), ev.End)
	assert.Equal(t, 10, ev.LeadMinutes)

	// a second sweep for the same day has nothing left to move
	again, err := p.RescheduleIncomplete(ctx, "ana", tuesday)
	require.NoError(t, err)
	assert.Empty(t, again)
}

func TestRescheduleIncompleteSpreadsSameClock(t *testing.T) {
	ctx := context.Background()
	p, repo := setup(t, Config{})

	seed(t, repo, cycle("a", monday, 2, 0, model.CycleScheduled))
	seed(t, repo, cycle("b", monday, 2, 0, model.CycleScheduled))
	seed(t, repo, cycle("done", monday.Add(time.Hour), 2, 2, model.CycleCompleted))

	out, err := p.RescheduleIncomplete(ctx, "ana", tuesday)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, tuesday, out[0].ScheduledAt)
	assert.Equal(t, tuesday.Add(time.Hour), out[1].ScheduledAt)
}

func TestRescheduleIncompleteCarriesLineage(t *testing.T) {
	ctx := context.Background()
	p, repo := setup(t, Config{})

	first := cycle("src", monday, 3, 0, model.CycleScheduled)
	first.OriginalDate = model.DateOf(monday.AddDate(0, 0, -3))
	first.RescheduledCount = 2
	seed(t, repo, first)

	out, err := p.RescheduleIncomplete(ctx, "ana", tuesday)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, 3, out[0].RescheduledCount)
	assert.Equal(t, first.OriginalDate, out[0].OriginalDate)
}

func TestRescheduleIncompleteExhaustedLeavesSourceUntouched(t *testing.T) {
	ctx := context.Background()
	p, repo := setup(t, Config{MaxAttempts: 2})

	seed(t, repo, cycle("src", monday, 2, 0, model.CycleScheduled))
	seed(t, repo, cycle("x", tuesday, 1, 0, model.CycleScheduled))
	seed(t, repo, cycle("y", tuesday.Add(time.Hour), 1, 0, model.CycleScheduled))

	out, err := p.RescheduleIncomplete(ctx, "ana", tuesday)
	assert.ErrorIs(t, err, model.ErrConflictUnresolved)
	assert.Empty(t, out)

	src, err := repo.GetStudyCycle(ctx, "src")
	require.NoError(t, err)
	assert.Equal(t, model.CycleScheduled, src.Status)
	assert.Equal(t, int64(1), src.Version)
}

// downCalendar refuses new events.
type downCalendar struct {
	*storage.SQLiteRepository
}

func (downCalendar) CreateEvent(context.Context, calendar.EventRequest) (string, error) {
	return "", errors.New("calendar down")
}

// staleStore rejects every save as if another writer got there first.
type staleStore struct {
	*storage.SQLiteRepository
}

func (staleStore) SaveStudyCycle(_ context.Context, c model.StudyCycle) (model.StudyCycle, error) {
	return model.StudyCycle{}, model.VersionMismatchf("study cycle %s", c.ID)
}

func TestRescheduleIncompleteCalendarFailureKeepsSource(t *testing.T) {
	ctx := context.Background()
	p, repo := setup(t, Config{})
	src := seed(t, repo, cycle("src", monday, 4, 1, model.CycleInProgress))

	broken := New(repo, downCalendar{repo}, Config{}, WithClock(func() time.Time { return tuesday }))
	out, err := broken.RescheduleIncomplete(ctx, "ana", tuesday)
	require.Error(t, err)
	assert.Empty(t, out)

	kept, err := repo.GetStudyCycle(ctx, "src")
	require.NoError(t, err)
	assert.Equal(t, model.CycleInProgress, kept.Status)
	assert.Equal(t, int64(1), kept.Version)
	_, err = repo.GetEvent(ctx, src.EventID)
	require.NoError(t, err)

	all, err := repo.ListStudyCycles(ctx, storage.StudyCycleFilter{Owner: "ana"})
	require.NoError(t, err)
	assert.Len(t, all, 1)

	// once the calendar is back the next sweep moves it
	again, err := p.RescheduleIncomplete(ctx, "ana", tuesday)
	require.NoError(t, err)
	require.Len(t, again, 1)
	assert.Equal(t, 3, again[0].Cycles)
	assert.Equal(t, "src", again[0].ParentID)
}

func TestRescheduleIncompleteStaleSourceDiscardsSuccessor(t *testing.T) {
	ctx := context.Background()
	_, repo := setup(t, Config{})
	src := seed(t, repo, cycle("src", monday, 2, 0, model.CycleScheduled))

	p := New(staleStore{repo}, repo, Config{}, WithIDs(func() string { return "succ" }), WithClock(func() time.Time { return tuesday }))
	_, err := p.RescheduleIncomplete(ctx, "ana", tuesday)
	require.ErrorIs(t, err, model.ErrVersionMismatch)

	_, err = repo.GetStudyCycle(ctx, "succ")
	assert.ErrorIs(t, err, model.ErrNotFound)
	events, err := repo.ListEvents(ctx, storage.EventListFilter{Owner: "ana", From: monday.Add(-time.Hour), To: tuesday.AddDate(0, 0, 2)})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, src.EventID, events[0].ID)

	kept, err := repo.GetStudyCycle(ctx, "src")
	require.NoError(t, err)
	assert.Equal(t, model.CycleScheduled, kept.Status)
}

func TestRescheduleIncompleteRequiresOwner(t *testing.T) {
	p, _ := setup(t, Config{})
	_, err := p.RescheduleIncomplete(context.Background(), "", tuesday)
	assert.ErrorIs(t, err, model.ErrUnauthorized)
}

func TestMoveToDate(t *testing.T) {
	ctx := context.Background()
	p, repo := setup(t, Config{})

	seed(t, repo, cycle("src", monday, 4, 1, model.CycleInProgress))

	_, err := p.MoveToDate(ctx, "bob", "src", tuesday)
	assert.ErrorIs(t, err, model.ErrUnauthorized)

	friday := monday.AddDate(0, 0, 4)
	next, err := p.MoveToDate(ctx, "ana", "src", friday)
	require.NoError(t, err)
	assert.Equal(t, friday, next.ScheduledAt)
	assert.Equal(t, 3, next.Cycles)
	assert.Equal(t, 1, next.RescheduledCount)

	old, err := repo.GetStudyCycle(ctx, "src")
	require.NoError(t, err)
	assert.Equal(t, model.CycleMoved, old.Status)

	_, err = p.MoveToDate(ctx, "ana", "src", friday)
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestMoveToSameDayKeepsOwnSlot(t *testing.T) {
	ctx := context.Background()
	p, repo := setup(t, Config{})

	seed(t, repo, cycle("src", monday, 2, 0, model.CycleScheduled))
	next, err := p.MoveToDate(ctx, "ana", "src", monday)
	require.NoError(t, err)
	assert.Equal(t, monday, next.ScheduledAt)
}

func TestScheduleAndRecordCycles(t *testing.T) {
	ctx := context.Background()
	p, repo := setup(t, Config{})
	seed(t, repo, cycle("busy", monday, 1, 0, model.CycleScheduled))

	c, err := p.Schedule(ctx, "ana", ScheduleRequest{Subject: "Physics", At: monday, StudyMinutes: 50, PauseMinutes: 10, Cycles: 2})
	require.NoError(t, err)
	assert.Equal(t, monday.Add(time.Hour), c.ScheduledAt)
	assert.Equal(t, model.DateOf(monday), c.OriginalDate)
	assert.NotEmpty(t, c.EventID)

	_, err = p.Schedule(ctx, "ana", ScheduleRequest{Subject: "Physics", At: monday, StudyMinutes: 0, Cycles: 2})
	assert.ErrorIs(t, err, model.ErrValidation)

	_, err = p.RecordCycle(ctx, "bob", c.ID)
	assert.ErrorIs(t, err, model.ErrUnauthorized)

	started, err := p.StartCycle(ctx, "ana", c.ID)
	require.NoError(t, err)
	assert.Equal(t, model.CycleInProgress, started.Status)

	_, err = p.StartCycle(ctx, "ana", c.ID)
	assert.ErrorIs(t, err, model.ErrValidation)

	one, err := p.RecordCycle(ctx, "ana", c.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, one.CompletedCycles)
	assert.Equal(t, model.CycleInProgress, one.Status)

	two, err := p.RecordCycle(ctx, "ana", c.ID)
	require.NoError(t, err)
	assert.Equal(t, model.CycleCompleted, two.Status)

	_, err = p.RecordCycle(ctx, "ana", c.ID)
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestScheduleSeries(t *testing.T) {
	ctx := context.Background()
	p, _ := setup(t, Config{})

	out, err := p.ScheduleSeries(ctx, "ana",
		ScheduleRequest{Subject: "History", At: monday, StudyMinutes: 25, PauseMinutes: 5, Cycles: 1},
		model.RepeatRule{Kind: model.RepeatEveryNDays, Interval: 2}, 3)
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, monday, out[0].ScheduledAt)
	assert.Equal(t, monday.AddDate(0, 0, 2), out[1].ScheduledAt)
	assert.Equal(t, monday.AddDate(0, 0, 4), out[2].ScheduledAt)

	_, err = p.ScheduleSeries(ctx, "ana",
		ScheduleRequest{Subject: "History", At: monday, StudyMinutes: 25, Cycles: 1},
		model.RepeatRule{Kind: "fortnightly"}, 2)
	assert.ErrorIs(t, err, model.ErrValidation)
}
