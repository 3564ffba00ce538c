package update

import (
	"fmt"
	"strings"

	"github.com/sandeepkv93/studyd/internal/commands"
	"github.com/sandeepkv93/studyd/internal/views"
)

func (m Model) View() string {
	if m.Quitting {
		return ""
	}
	status := ""
	if m.Status.Text != "" {
		status = "status: " + m.Status.Text
	}

	left := m.renderLeftPane()
	right := strings.TrimSpace(strings.Join([]string{
		"output:\n" + m.output.View(),
		views.RenderCommandPalette(m.Palette.Active, m.commandInput.View()),
		m.renderHelpIfVisible(),
	}, "\n\n"))

	return views.RenderApp(views.AppData{
		Header:        fmt.Sprintf("studyd | %s | view: %s | day: %s", m.backend.Principal(), m.CurrentView, m.Day.Format("Mon 2006-01-02")),
		LeftPane:      left,
		RightPane:     right,
		StatusLine:    status,
		StatusIsError: m.Status.IsError,
		Notification:  m.renderLastReminder(),
		Footer:        m.helpModel.ShortHelpView(m.Keys.ShortHelp()),
		PaneWidth:     m.width,
	})
}

func (m Model) renderLeftPane() string {
	if m.CurrentView == ViewSessions {
		return views.RenderCyclesPanel(views.CyclesPanelData{
			Date:       m.Day.Format("2006-01-02"),
			Items:      views.CycleItems(m.Cycles, m.backend.Location()),
			SelectedID: m.selectedCycleID(),
		})
	}
	return views.RenderProjectsPanel(views.ProjectsPanelData{
		Items:      m.Projects,
		SelectedID: m.selectedProjectID(),
		GanttView:  m.GanttView,
	})
}

func (m Model) renderHelpIfVisible() string {
	if !m.HelpVisible {
		return ""
	}
	return views.RenderHelpPanel(views.HelpPanelData{
		Commands: commands.Usage(),
		HelpView: m.helpModel.View(m.Keys),
	})
}

func (m Model) renderLastReminder() string {
	if len(m.Reminders) == 0 {
		return ""
	}
	last := m.Reminders[len(m.Reminders)-1]
	return views.RenderNotification("reminder", fmt.Sprintf("%s (due %s)",
		last.Title, last.RunAt.In(m.backend.Location()).Format("15:04")))
}
