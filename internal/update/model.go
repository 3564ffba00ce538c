// Package update is the Bubble Tea dashboard: a project pane with a Gantt
// preview, a study-session pane for one day, and a command palette that
// runs the same commands as the CLI.
package update

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	"github.com/sandeepkv93/studyd/internal/commands"
	"github.com/sandeepkv93/studyd/internal/model"
	"github.com/sandeepkv93/studyd/internal/scheduler"
	"github.com/sandeepkv93/studyd/internal/tracker"
	"github.com/sandeepkv93/studyd/internal/views"
)

// Backend is what the dashboard needs from the application layer.
type Backend interface {
	Run(ctx context.Context, line string) (commands.Result, error)
	ProjectSummaries(ctx context.Context) ([]model.Project, []tracker.ProjectSummary, error)
	DayCycles(ctx context.Context, day time.Time) ([]model.StudyCycle, error)
	Gantt(ctx context.Context, projectID string) (tracker.GanttChart, error)
	Principal() string
	Today() time.Time
	Location() *time.Location
}

type View string

const (
	ViewProjects View = "Projects"
	ViewSessions View = "Sessions"
)

type StatusBar struct {
	Text    string
	IsError bool
}

type CommandPaletteState struct {
	Active bool
	Input  string
}

type KeyMap struct {
	Projects key.Binding
	Sessions key.Binding
	Toggle   key.Binding
	Up       key.Binding
	Down     key.Binding
	Scale    key.Binding
	Start    key.Binding
	Record   key.Binding
	NextDay  key.Binding
	PrevDay  key.Binding
	Sweep    key.Binding
	Palette  key.Binding
	Help     key.Binding
	Quit     key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Projects: key.NewBinding(key.WithKeys("1"), key.WithHelp("1", "projects")),
		Sessions: key.NewBinding(key.WithKeys("2"), key.WithHelp("2", "sessions")),
		Toggle:   key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "switch pane")),
		Up:       key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k/↑", "up")),
		Down:     key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/↓", "down")),
		Scale:    key.NewBinding(key.WithKeys("g"), key.WithHelp("g", "gantt scale")),
		Start:    key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "start session")),
		Record:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "record block")),
		NextDay:  key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "next day")),
		PrevDay:  key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "previous day")),
		Sweep:    key.NewBinding(key.WithKeys("S"), key.WithHelp("S", "sweep yesterday")),
		Palette:  key.NewBinding(key.WithKeys(":", "/"), key.WithHelp(":", "command")),
		Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.Palette, k.Help, k.Quit}
}

func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Projects, k.Sessions, k.Toggle, k.Up, k.Down},
		{k.Scale, k.Start, k.Record, k.NextDay, k.PrevDay},
		{k.Sweep, k.Palette, k.Help, k.Quit},
	}
}

type Model struct {
	CurrentView View
	Projects    []views.ProjectItemData
	ProjectIdx  int
	GanttView   string
	Scale       tracker.Scale
	Day         time.Time
	Cycles      []model.StudyCycle
	CycleIdx    int
	Reminders   []scheduler.Job
	Palette     CommandPaletteState
	HelpVisible bool
	Status      StatusBar
	Keys        KeyMap
	Quitting    bool
	LastError   error

	ctx          context.Context
	backend      Backend
	reminders    <-chan scheduler.Job
	commandInput textinput.Model
	output       viewport.Model
	helpModel    help.Model
	width        int
}

type DataLoadedMsg struct {
	Projects  []model.Project
	Summaries []tracker.ProjectSummary
	Day       time.Time
	Cycles    []model.StudyCycle
	Err       error
}

type GanttLoadedMsg struct {
	ProjectID string
	View      string
	Err       error
}

type CommandResultMsg struct {
	Input  string
	Result commands.Result
	Err    error
}

type ReminderDueMsg struct {
	Job scheduler.Job
}

type SetStatusMsg struct {
	Text    string
	IsError bool
}

type ClearStatusMsg struct{}

type AppErrorMsg struct {
	Err error
}

// NewModel builds the dashboard. reminders may be nil.
func NewModel(ctx context.Context, backend Backend, reminders <-chan scheduler.Job) Model {
	input := textinput.New()
	input.Prompt = ": "
	input.Placeholder = "schedule 2026-02-09T09:00 25 5 4 Calculus"
	input.CharLimit = 256

	m := Model{
		CurrentView:  ViewProjects,
		Scale:        tracker.ScaleWeek,
		Day:          backend.Today(),
		Keys:         DefaultKeyMap(),
		ctx:          ctx,
		backend:      backend,
		reminders:    reminders,
		commandInput: input,
		output:       viewport.New(58, 12),
		helpModel:    help.New(),
		width:        58,
	}
	return m
}
