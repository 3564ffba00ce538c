package app

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sandeepkv93/studyd/internal/commands"
	"github.com/sandeepkv93/studyd/internal/config"
	"github.com/sandeepkv93/studyd/internal/model"
	"github.com/sandeepkv93/studyd/internal/scheduler"
	"github.com/sandeepkv93/studyd/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)

const planYAML = `id: thesis
name: Thesis
phases:
  - id: research
    name: Research
    tasks:
      - id: read
        name: Read papers
        start: 2026-03-02T09:00:00Z
        end: 2026-03-07T09:00:00Z
      - id: outline
        name: Outline
        start: 2026-03-12T09:00:00Z
        end: 2026-03-17T09:00:00Z
        dependencies: [read]
  - id: writing
    name: Writing
    tasks:
      - id: draft
        name: Draft
        start: 2026-03-17T09:00:00Z
        end: 2026-03-31T09:00:00Z
        dependencies: [outline]
        milestone: true
`

func newTestApp(t *testing.T) *App {
	t.Helper()
	repo, err := storage.OpenSQLite(filepath.Join(t.TempDir(), "app.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	cfg := config.DefaultRuntimeConfig()
	cfg.Principal = "ana"
	return New(cfg, repo, WithClock(func() time.Time { return now }), WithLocation(time.UTC))
}

func run(t *testing.T, a *App, line string) commands.Result {
	t.Helper()
	res, err := a.Run(context.Background(), line)
	require.NoError(t, err, line)
	return res
}

func importPlan(t *testing.T, a *App) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "plan.yaml")
	require.NoError(t, os.WriteFile(path, []byte(planYAML), 0o600))
	res := run(t, a, "import "+path)
	assert.Equal(t, "imported Thesis as thesis (3 tasks)", res.Message)
}

func TestProjectCommands(t *testing.T) {
	a := newTestApp(t)
	importPlan(t, a)

	res := run(t, a, "projects")
	assert.Equal(t, "thesis  Thesis  0% (0/3)", res.Message)

	// "read" ended on the 7th and is three days late
	res = run(t, a, "progress thesis")
	assert.True(t, res.Markdown)
	assert.Contains(t, res.Message, "> 1 delayed, 0 abandoned")

	res = run(t, a, "gantt thesis day")
	assert.Contains(t, res.Message, "Research")
	assert.Contains(t, res.Message, "  Draft")

	res = run(t, a, "delay thesis read translate")
	assert.Contains(t, res.Message, "outline  2026-03-15 -> 2026-03-20")

	res = run(t, a, "status thesis read completed")
	assert.Equal(t, "task read is now Completed", res.Message)

	p, err := a.Tracker.Project(context.Background(), "ana", "thesis")
	require.NoError(t, err)
	assert.Equal(t, model.TaskActivatable, p.Phases[0].Tasks[1].Status)
	assert.Equal(t, model.TaskNonActivatable, p.Phases[1].Tasks[0].Status)

	_, err = a.Run(context.Background(), "status thesis draft active")
	assert.ErrorIs(t, err, model.ErrValidation)

	_, err = a.Run(context.Background(), "progress nope")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestImportRejectsCycles(t *testing.T) {
	a := newTestApp(t)
	path := filepath.Join(t.TempDir(), "plan.json")
	body := `{"id":"loop","name":"Loop","phases":[{"id":"p","name":"P","tasks":[
		{"id":"a","name":"A","start":"2026-03-01T00:00:00Z","end":"2026-03-02T00:00:00Z","dependencies":["b"]},
		{"id":"b","name":"B","start":"2026-03-02T00:00:00Z","end":"2026-03-03T00:00:00Z","dependencies":["a"]}]}]}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	_, err := a.Run(context.Background(), "import "+path)
	assert.ErrorIs(t, err, model.ErrDependencyCycle)

	bad := filepath.Join(t.TempDir(), "plan.yml")
	require.NoError(t, os.WriteFile(bad, []byte("phases: [oops"), 0o600))
	_, err = a.Run(context.Background(), "import "+bad)
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestStudyCommands(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()

	res := run(t, a, "schedule 2026-03-09T09:00 25 5 4 Calculus")
	assert.Contains(t, res.Message, "booked Calculus at 2026-03-09 09:00")
	run(t, a, "schedule 2026-03-10T09:00 50 10 1 Physics")

	yesterday, err := a.DayCycles(ctx, now.AddDate(0, 0, -1))
	require.NoError(t, err)
	require.Len(t, yesterday, 1)
	calc := yesterday[0]
	run(t, a, "start "+calc.ID)
	res = run(t, a, "record "+calc.ID)
	assert.Equal(t, "Calculus: 1/4 blocks, in-progress", res.Message)

	// 09:00 today is taken by Physics, so Calculus lands at 10:00
	res = run(t, a, "sweep")
	assert.Contains(t, res.Message, "rescheduled 1 session(s) onto 2026-03-10")
	assert.Contains(t, res.Message, "10:00 Calculus x3")

	res = run(t, a, "cycles")
	assert.True(t, res.Markdown)
	assert.Contains(t, res.Message, "| 2026-03-10 10:00 | Calculus | 0/3 | scheduled |")

	today, err := a.DayCycles(ctx, now)
	require.NoError(t, err)
	require.Len(t, today, 2)
	moved := today[1]
	res = run(t, a, "move "+moved.ID+" 2026-03-12")
	assert.Contains(t, res.Message, "moved to 2026-03-12 10:00")

	res = run(t, a, "export 2026-03-09 2026-03-12")
	assert.True(t, strings.HasPrefix(res.Message, "BEGIN:VCALENDAR"))
	assert.Equal(t, 2, strings.Count(res.Message, "BEGIN:VEVENT"), "moved and rescheduled sessions drop their old events")
	assert.Contains(t, res.Message, "TRIGGER:-PT10M")
}

func TestScheduleSeriesCommand(t *testing.T) {
	a := newTestApp(t)
	res := run(t, a, "schedule 2026-03-11T18:00 25 5 2 History repeat:every_n_days/2 count:3")
	lines := strings.Split(res.Message, "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[2], "2026-03-15 18:00")
}

func TestQueueReminders(t *testing.T) {
	a := newTestApp(t)
	run(t, a, "schedule 2026-03-10T09:00 25 5 1 Chemistry")
	run(t, a, "schedule 2026-03-10T08:05 25 5 1 Biology")
	run(t, a, "schedule 2026-03-20T09:00 25 5 1 Far away")

	engine := scheduler.NewEngine(4)
	n, err := a.QueueReminders(context.Background(), engine)
	require.NoError(t, err)
	// Biology's reminder at 07:55 already passed; Far away is past the horizon
	assert.Equal(t, 1, n)

	n, err = a.QueueReminders(context.Background(), engine)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, engine.Pending())
}

func TestAttachJobsQueuesSweep(t *testing.T) {
	a := newTestApp(t)
	engine := scheduler.NewEngine(4)
	runner := scheduler.NewRunner(engine, nil)
	require.NoError(t, a.AttachJobs(context.Background(), engine, runner, nil))
	assert.Equal(t, 1, engine.Pending())
	assert.True(t, engine.Cancel("sweep:ana:2026-03-11"))
}

func TestDescribe(t *testing.T) {
	a := newTestApp(t)
	_, err := a.Run(context.Background(), "gantt")
	assert.Equal(t, "error: gantt requires a project id and an optional scale", Describe(err))

	_, err = a.Run(context.Background(), "move missing 2026-03-12")
	assert.Contains(t, Describe(err), "not_found")
}
