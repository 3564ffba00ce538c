// Package app binds the command set to the tracker, the planner and the
// store for one principal.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/sandeepkv93/studyd/internal/calendar"
	"github.com/sandeepkv93/studyd/internal/commands"
	"github.com/sandeepkv93/studyd/internal/config"
	"github.com/sandeepkv93/studyd/internal/model"
	"github.com/sandeepkv93/studyd/internal/planner"
	"github.com/sandeepkv93/studyd/internal/storage"
	"github.com/sandeepkv93/studyd/internal/tracker"
	"github.com/sandeepkv93/studyd/internal/views"
	"gopkg.in/yaml.v3"
)

const ganttWidth = 100

type App struct {
	cfg     config.RuntimeConfig
	repo    storage.Repository
	Tracker *tracker.Service
	Planner *planner.Planner
	logger  *slog.Logger
	now     func() time.Time
	loc     *time.Location
}

type Option func(*App)

func WithLogger(l *slog.Logger) Option {
	return func(a *App) {
		if l != nil {
			a.logger = l
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(a *App) {
		if now != nil {
			a.now = now
		}
	}
}

func WithLocation(loc *time.Location) Option {
	return func(a *App) {
		if loc != nil {
			a.loc = loc
		}
	}
}

func New(cfg config.RuntimeConfig, repo storage.Repository, opts ...Option) *App {
	a := &App{
		cfg:    cfg,
		repo:   repo,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:    time.Now,
		loc:    time.Local,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.Tracker = tracker.NewService(repo,
		tracker.WithLogger(a.logger.With("component", "tracker")),
		tracker.WithClock(a.now),
		tracker.WithGanttPadding(cfg.GanttPadding()),
	)
	a.Planner = planner.New(repo, repo, planner.Config{
		MaxAttempts: cfg.MaxSlotAttempts,
		Step:        cfg.SlotStep(),
		LeadMinutes: cfg.CalendarLeadMinutes,
	},
		planner.WithLogger(a.logger.With("component", "planner")),
		planner.WithClock(a.now),
	)
	return a
}

func (a *App) Principal() string {
	return a.cfg.Principal
}

func (a *App) Location() *time.Location {
	return a.loc
}

func (a *App) Today() time.Time {
	return model.DateOf(a.now().In(a.loc))
}

// Run parses and executes one command line.
func (a *App) Run(ctx context.Context, line string) (commands.Result, error) {
	cmd, err := commands.ParseIn(line, a.loc)
	if err != nil {
		return commands.Result{}, err
	}
	res, err := commands.Execute(cmd, a.Handlers(ctx))
	if err != nil {
		a.logger.Debug("command failed", "command", cmd.Type, "err", err)
	}
	return res, err
}

func (a *App) Handlers(ctx context.Context) commands.Handlers {
	return commands.Handlers{
		Projects: func() (commands.Result, error) { return a.projects(ctx) },
		Import:   func(args commands.ImportArgs) (commands.Result, error) { return a.importProject(ctx, args) },
		Progress: func(args commands.ProjectArgs) (commands.Result, error) { return a.progress(ctx, args) },
		Gantt:    func(args commands.GanttArgs) (commands.Result, error) { return a.gantt(ctx, args) },
		Status:   func(args commands.StatusArgs) (commands.Result, error) { return a.status(ctx, args) },
		Delay:    func(args commands.DelayArgs) (commands.Result, error) { return a.delay(ctx, args) },
		Sweep:    func(args commands.SweepArgs) (commands.Result, error) { return a.sweep(ctx, args) },
		Move:     func(args commands.MoveArgs) (commands.Result, error) { return a.move(ctx, args) },
		Schedule: func(args commands.ScheduleArgs) (commands.Result, error) { return a.schedule(ctx, args) },
		Start: func(args commands.CycleArgs) (commands.Result, error) {
			c, err := a.Planner.StartCycle(ctx, a.cfg.Principal, args.CycleID)
			if err != nil {
				return commands.Result{}, err
			}
			return commands.Result{Message: fmt.Sprintf("started %s (%s)", c.Subject, c.ID)}, nil
		},
		Record: func(args commands.CycleArgs) (commands.Result, error) {
			c, err := a.Planner.RecordCycle(ctx, a.cfg.Principal, args.CycleID)
			if err != nil {
				return commands.Result{}, err
			}
			return commands.Result{Message: fmt.Sprintf("%s: %d/%d blocks, %s", c.Subject, c.CompletedCycles, c.Cycles, c.Status)}, nil
		},
		Cycles: func(args commands.CyclesArgs) (commands.Result, error) { return a.cycles(ctx, args) },
		Export: func(args commands.ExportArgs) (commands.Result, error) { return a.export(ctx, args) },
	}
}

func (a *App) projects(ctx context.Context) (commands.Result, error) {
	list, err := a.repo.ListProjects(ctx, a.cfg.Principal)
	if err != nil {
		return commands.Result{}, err
	}
	if len(list) == 0 {
		return commands.Result{Message: "no projects"}, nil
	}
	lines := make([]string, 0, len(list))
	for _, p := range list {
		s := tracker.ComputeProgress(p, a.now())
		lines = append(lines, fmt.Sprintf("%s  %s  %.0f%% (%d/%d)", p.ID, p.Name, s.Percent, s.Completed, s.Total))
	}
	return commands.Result{Message: strings.Join(lines, "\n")}, nil
}

// ProjectFile is the on-disk shape accepted by import.
type ProjectFile struct {
	ID     string        `json:"id" yaml:"id"`
	Name   string        `json:"name" yaml:"name"`
	Phases []model.Phase `json:"phases" yaml:"phases"`
}

func DecodeProjectFile(path string, data []byte) (ProjectFile, error) {
	var pf ProjectFile
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &pf); err != nil {
			return ProjectFile{}, model.Validationf("parse %s: %v", path, err)
		}
	default:
		if err := json.Unmarshal(data, &pf); err != nil {
			return ProjectFile{}, model.Validationf("parse %s: %v", path, err)
		}
	}
	return pf, nil
}

func (a *App) importProject(ctx context.Context, args commands.ImportArgs) (commands.Result, error) {
	data, err := os.ReadFile(args.Path)
	if err != nil {
		return commands.Result{}, err
	}
	pf, err := DecodeProjectFile(args.Path, data)
	if err != nil {
		return commands.Result{}, err
	}
	p, err := a.Tracker.CreateProject(ctx, a.cfg.Principal, model.Project{ID: pf.ID, Name: pf.Name, Phases: pf.Phases})
	if err != nil {
		return commands.Result{}, err
	}
	return commands.Result{Message: fmt.Sprintf("imported %s as %s (%d tasks)", p.Name, p.ID, len(p.Tasks()))}, nil
}

func (a *App) progress(ctx context.Context, args commands.ProjectArgs) (commands.Result, error) {
	p, err := a.Tracker.Project(ctx, a.cfg.Principal, args.ProjectID)
	if err != nil {
		return commands.Result{}, err
	}
	s := tracker.ComputeProgress(p, a.now())
	return commands.Result{Message: views.ProgressMarkdown(p.Name, s), Markdown: true}, nil
}

func (a *App) gantt(ctx context.Context, args commands.GanttArgs) (commands.Result, error) {
	chart, err := a.Tracker.Gantt(ctx, a.cfg.Principal, args.ProjectID)
	if err != nil {
		return commands.Result{}, err
	}
	return commands.Result{Message: views.RenderGantt(chart, args.Scale, ganttWidth)}, nil
}

func (a *App) status(ctx context.Context, args commands.StatusArgs) (commands.Result, error) {
	p, err := a.Tracker.SetTaskStatus(ctx, a.cfg.Principal, args.ProjectID, args.TaskID, args.Status)
	if err != nil {
		return commands.Result{}, err
	}
	derived := tracker.DeriveAll(p, a.now())
	return commands.Result{Message: fmt.Sprintf("task %s is now %s", args.TaskID, derived[args.TaskID])}, nil
}

func (a *App) delay(ctx context.Context, args commands.DelayArgs) (commands.Result, error) {
	p, err := a.Tracker.ApplyDelay(ctx, a.cfg.Principal, args.ProjectID, args.TaskID, args.Action)
	if err != nil {
		return commands.Result{}, err
	}
	lines := []string{fmt.Sprintf("%s applied after %s:", args.Action, args.TaskID)}
	for _, t := range p.Tasks() {
		if t.DependsOn(args.TaskID) {
			lines = append(lines, fmt.Sprintf("  %s  %s -> %s", t.ID, t.Start.In(a.loc).Format("2006-01-02"), t.End.In(a.loc).Format("2006-01-02")))
		}
	}
	if len(lines) == 1 {
		lines = append(lines, "  (no dependents)")
	}
	return commands.Result{Message: strings.Join(lines, "\n")}, nil
}

func (a *App) sweep(ctx context.Context, args commands.SweepArgs) (commands.Result, error) {
	asOf := args.Date
	if asOf.IsZero() {
		asOf = a.Today()
	}
	out, err := a.Planner.RescheduleIncomplete(ctx, a.cfg.Principal, asOf)
	msg := fmt.Sprintf("rescheduled %d session(s) onto %s", len(out), asOf.Format("2006-01-02"))
	for _, c := range out {
		msg += fmt.Sprintf("\n  %s %s x%d (%s)", c.ScheduledAt.In(a.loc).Format("15:04"), c.Subject, c.Cycles, c.ID)
	}
	return commands.Result{Message: msg}, err
}

func (a *App) move(ctx context.Context, args commands.MoveArgs) (commands.Result, error) {
	c, err := a.Planner.MoveToDate(ctx, a.cfg.Principal, args.CycleID, args.Date)
	if err != nil {
		return commands.Result{}, err
	}
	return commands.Result{Message: fmt.Sprintf("moved to %s as %s", c.ScheduledAt.In(a.loc).Format("2006-01-02 15:04"), c.ID)}, nil
}

func (a *App) schedule(ctx context.Context, args commands.ScheduleArgs) (commands.Result, error) {
	req := planner.ScheduleRequest{
		Subject:      args.Subject,
		At:           args.At,
		StudyMinutes: args.StudyMinutes,
		PauseMinutes: args.PauseMinutes,
		Cycles:       args.Cycles,
	}
	var booked []model.StudyCycle
	var err error
	if args.Repeat != nil {
		booked, err = a.Planner.ScheduleSeries(ctx, a.cfg.Principal, req, *args.Repeat, args.Count)
	} else {
		var c model.StudyCycle
		c, err = a.Planner.Schedule(ctx, a.cfg.Principal, req)
		if err == nil {
			booked = append(booked, c)
		}
	}
	if len(booked) == 0 {
		return commands.Result{}, err
	}
	lines := make([]string, 0, len(booked))
	for _, c := range booked {
		lines = append(lines, fmt.Sprintf("booked %s at %s (%s)", c.Subject, c.ScheduledAt.In(a.loc).Format("2006-01-02 15:04"), c.ID))
	}
	return commands.Result{Message: strings.Join(lines, "\n")}, err
}

// DayCycles lists every cycle of the principal starting on day.
func (a *App) DayCycles(ctx context.Context, day time.Time) ([]model.StudyCycle, error) {
	from := model.DateOf(day.In(a.loc))
	return a.repo.ListStudyCycles(ctx, storage.StudyCycleFilter{
		Owner: a.cfg.Principal,
		From:  from,
		To:    from.AddDate(0, 0, 1),
	})
}

func (a *App) cycles(ctx context.Context, args commands.CyclesArgs) (commands.Result, error) {
	day := args.Date
	if day.IsZero() {
		day = a.Today()
	}
	list, err := a.DayCycles(ctx, day)
	if err != nil {
		return commands.Result{}, err
	}
	title := "Sessions on " + day.Format("2006-01-02")
	return commands.Result{Message: views.CyclesMarkdown(title, list, a.loc), Markdown: true}, nil
}

func (a *App) export(ctx context.Context, args commands.ExportArgs) (commands.Result, error) {
	events, err := a.repo.ListEvents(ctx, storage.EventListFilter{Owner: a.cfg.Principal, From: args.From, To: args.To})
	if err != nil {
		return commands.Result{}, err
	}
	return commands.Result{Message: calendar.BuildICS(events, a.now())}, nil
}

// ProjectSummaries returns the principal's projects with their progress,
// sorted by name.
func (a *App) ProjectSummaries(ctx context.Context) ([]model.Project, []tracker.ProjectSummary, error) {
	list, err := a.repo.ListProjects(ctx, a.cfg.Principal)
	if err != nil {
		return nil, nil, err
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	sums := make([]tracker.ProjectSummary, 0, len(list))
	for _, p := range list {
		sums = append(sums, tracker.ComputeProgress(p, a.now()))
	}
	return list, sums, nil
}

// Describe turns an error into a one-line status message.
func Describe(err error) string {
	var ce *commands.CommandError
	if errors.As(err, &ce) {
		return "error: " + ce.Message
	}
	return "error: " + err.Error()
}

// Gantt lays out one of the principal's projects.
func (a *App) Gantt(ctx context.Context, projectID string) (tracker.GanttChart, error) {
	return a.Tracker.Gantt(ctx, a.cfg.Principal, projectID)
}
