package update

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sandeepkv93/studyd/internal/app"
	"github.com/sandeepkv93/studyd/internal/scheduler"
	"github.com/sandeepkv93/studyd/internal/tracker"
	"github.com/sandeepkv93/studyd/internal/views"
)

const maxReminderLog = 20

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.loadData()}
	if m.reminders != nil {
		cmds = append(cmds, waitForReminderCmd(m.reminders))
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch typed := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = max(40, typed.Width/2-4)
		m.output.Width = m.width
		m.output.Height = max(6, typed.Height-16)
		return m, m.loadGantt()
	case tea.KeyMsg:
		if m.Palette.Active {
			return m.handlePaletteKey(typed)
		}
		return m.handleKey(typed)
	case DataLoadedMsg:
		if typed.Err != nil {
			return m.fail(typed.Err), nil
		}
		m.Projects = make([]views.ProjectItemData, 0, len(typed.Projects))
		for i, p := range typed.Projects {
			m.Projects = append(m.Projects, views.ProjectItemData{
				ID:      p.ID,
				Name:    p.Name,
				Percent: typed.Summaries[i].Percent,
				Delayed: typed.Summaries[i].Delayed,
			})
		}
		m.ProjectIdx = clamp(m.ProjectIdx, len(m.Projects))
		m.Day = typed.Day
		m.Cycles = typed.Cycles
		m.CycleIdx = clamp(m.CycleIdx, len(m.Cycles))
		return m, m.loadGantt()
	case GanttLoadedMsg:
		if typed.Err != nil {
			return m.fail(typed.Err), nil
		}
		if typed.ProjectID == m.selectedProjectID() {
			m.GanttView = typed.View
		}
		return m, nil
	case CommandResultMsg:
		if typed.Err != nil {
			m = m.fail(typed.Err)
		} else {
			m.Status = StatusBar{Text: "ok: " + firstLine(typed.Result.Message)}
		}
		if typed.Result.Message != "" {
			body := typed.Result.Message
			if typed.Result.Markdown {
				body = views.RenderMarkdown(body)
			}
			m.output.SetContent(body)
			m.output.GotoTop()
		}
		return m, m.loadData()
	case ReminderDueMsg:
		m.Reminders = append(m.Reminders, typed.Job)
		if len(m.Reminders) > maxReminderLog {
			m.Reminders = m.Reminders[len(m.Reminders)-maxReminderLog:]
		}
		m.Status = StatusBar{Text: fmt.Sprintf("reminder: %s at %s", typed.Job.Title, typed.Job.RunAt.In(m.backend.Location()).Format("15:04"))}
		if m.reminders != nil {
			return m, waitForReminderCmd(m.reminders)
		}
		return m, nil
	case SetStatusMsg:
		m.Status = StatusBar{Text: typed.Text, IsError: typed.IsError}
		return m, nil
	case ClearStatusMsg:
		m.Status = StatusBar{}
		return m, nil
	case AppErrorMsg:
		return m.fail(typed.Err), nil
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.Keys.Quit):
		m.Quitting = true
		return m, tea.Quit
	case key.Matches(msg, m.Keys.Palette):
		m.Palette = CommandPaletteState{Active: true}
		m.commandInput.SetValue("")
		m.Status = StatusBar{Text: "command palette active"}
		return m, m.commandInput.Focus()
	case key.Matches(msg, m.Keys.Help):
		m.HelpVisible = !m.HelpVisible
		m.helpModel.ShowAll = m.HelpVisible
		return m, nil
	case key.Matches(msg, m.Keys.Projects):
		m.CurrentView = ViewProjects
		return m, nil
	case key.Matches(msg, m.Keys.Sessions):
		m.CurrentView = ViewSessions
		return m, nil
	case key.Matches(msg, m.Keys.Toggle):
		if m.CurrentView == ViewProjects {
			m.CurrentView = ViewSessions
		} else {
			m.CurrentView = ViewProjects
		}
		return m, nil
	case key.Matches(msg, m.Keys.Sweep):
		return m, m.runCommand("sweep")
	}

	if m.CurrentView == ViewProjects {
		return m.handleProjectsKey(msg)
	}
	return m.handleSessionsKey(msg)
}

func (m Model) handleProjectsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.Keys.Up):
		if m.ProjectIdx > 0 {
			m.ProjectIdx--
			return m, m.loadGantt()
		}
	case key.Matches(msg, m.Keys.Down):
		if m.ProjectIdx < len(m.Projects)-1 {
			m.ProjectIdx++
			return m, m.loadGantt()
		}
	case key.Matches(msg, m.Keys.Scale):
		m.Scale = nextScale(m.Scale)
		m.Status = StatusBar{Text: "gantt scale: " + string(m.Scale)}
		return m, m.loadGantt()
	}
	return m, nil
}

func (m Model) handleSessionsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.Keys.Up):
		if m.CycleIdx > 0 {
			m.CycleIdx--
		}
	case key.Matches(msg, m.Keys.Down):
		if m.CycleIdx < len(m.Cycles)-1 {
			m.CycleIdx++
		}
	case key.Matches(msg, m.Keys.NextDay):
		m.Day = m.Day.AddDate(0, 0, 1)
		m.CycleIdx = 0
		return m, m.loadData()
	case key.Matches(msg, m.Keys.PrevDay):
		m.Day = m.Day.AddDate(0, 0, -1)
		m.CycleIdx = 0
		return m, m.loadData()
	case key.Matches(msg, m.Keys.Start):
		if id := m.selectedCycleID(); id != "" {
			return m, m.runCommand("start " + id)
		}
	case key.Matches(msg, m.Keys.Record):
		if id := m.selectedCycleID(); id != "" {
			return m, m.runCommand("record " + id)
		}
	}
	return m, nil
}

func (m Model) handlePaletteKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.Palette = CommandPaletteState{}
		m.commandInput.SetValue("")
		m.commandInput.Blur()
		m.Status = StatusBar{Text: "command palette closed"}
		return m, nil
	case "enter":
		line := strings.TrimSpace(m.commandInput.Value())
		m.Palette = CommandPaletteState{}
		m.commandInput.SetValue("")
		m.commandInput.Blur()
		if line == "" {
			return m, nil
		}
		m.Status = StatusBar{Text: "running: " + line}
		return m, m.runCommand(line)
	}
	if msg.Type == tea.KeyRunes {
		m.commandInput.SetValue(m.commandInput.Value() + string(msg.Runes))
		m.commandInput.CursorEnd()
		m.Palette.Input = m.commandInput.Value()
		return m, nil
	}
	var cmd tea.Cmd
	m.commandInput, cmd = m.commandInput.Update(msg)
	m.Palette.Input = m.commandInput.Value()
	return m, cmd
}

func (m Model) fail(err error) Model {
	m.LastError = err
	if err != nil {
		m.Status = StatusBar{Text: app.Describe(err), IsError: true}
	}
	return m
}

func (m Model) runCommand(line string) tea.Cmd {
	ctx, backend := m.ctx, m.backend
	return func() tea.Msg {
		res, err := backend.Run(ctx, line)
		return CommandResultMsg{Input: line, Result: res, Err: err}
	}
}

func (m Model) loadData() tea.Cmd {
	ctx, backend, day := m.ctx, m.backend, m.Day
	return func() tea.Msg {
		projects, sums, err := backend.ProjectSummaries(ctx)
		if err != nil {
			return DataLoadedMsg{Err: err}
		}
		cycles, err := backend.DayCycles(ctx, day)
		if err != nil {
			return DataLoadedMsg{Err: err}
		}
		return DataLoadedMsg{Projects: projects, Summaries: sums, Day: day, Cycles: cycles}
	}
}

func (m Model) loadGantt() tea.Cmd {
	id := m.selectedProjectID()
	if id == "" {
		return nil
	}
	ctx, backend, scale, width := m.ctx, m.backend, m.Scale, m.width
	return func() tea.Msg {
		chart, err := backend.Gantt(ctx, id)
		if err != nil {
			return GanttLoadedMsg{ProjectID: id, Err: err}
		}
		return GanttLoadedMsg{ProjectID: id, View: views.RenderGantt(chart, scale, width)}
	}
}

func waitForReminderCmd(ch <-chan scheduler.Job) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		job, ok := <-ch
		if !ok {
			return nil
		}
		return ReminderDueMsg{Job: job}
	}
}

func (m Model) selectedProjectID() string {
	if m.ProjectIdx < 0 || m.ProjectIdx >= len(m.Projects) {
		return ""
	}
	return m.Projects[m.ProjectIdx].ID
}

func (m Model) selectedCycleID() string {
	if m.CycleIdx < 0 || m.CycleIdx >= len(m.Cycles) {
		return ""
	}
	return m.Cycles[m.CycleIdx].ID
}

func nextScale(s tracker.Scale) tracker.Scale {
	switch s {
	case tracker.ScaleDay:
		return tracker.ScaleWeek
	case tracker.ScaleWeek:
		return tracker.ScaleMonth
	default:
		return tracker.ScaleDay
	}
}

func clamp(i, n int) int {
	if i >= n {
		i = n - 1
	}
	if i < 0 {
		i = 0
	}
	return i
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	return line
}
