package views

import (
	"fmt"
	"strings"
	"time"

	"github.com/sandeepkv93/studyd/internal/model"
	"github.com/sandeepkv93/studyd/internal/tracker"
)

type ProjectItemData struct {
	ID      string
	Name    string
	Percent float64
	Delayed int
}

type ProjectsPanelData struct {
	Items      []ProjectItemData
	SelectedID string
	GanttView  string
}

type CycleItemData struct {
	ID        string
	Subject   string
	Time      string
	Status    string
	Done      int
	Cycles    int
	Carryover int
}

type CyclesPanelData struct {
	Date       string
	Items      []CycleItemData
	SelectedID string
}

type HelpPanelData struct {
	Bindings []string
	Commands []string
	HelpView string
}

func RenderProjectsPanel(data ProjectsPanelData) string {
	var b strings.Builder
	b.WriteString("projects:\n")
	b.WriteString("actions: [j/k]move [g]scale [:]command\n")
	if len(data.Items) == 0 {
		b.WriteString("(no projects, try: import plan.yaml)")
		return b.String()
	}
	for _, item := range data.Items {
		cursor := " "
		if item.ID == data.SelectedID {
			cursor = ">"
		}
		b.WriteString(fmt.Sprintf("%s %s %3.0f%%", cursor, item.Name, item.Percent))
		if item.Delayed > 0 {
			b.WriteString(fmt.Sprintf(" [%d delayed]", item.Delayed))
		}
		b.WriteString("\n")
	}
	if data.GanttView != "" {
		b.WriteString("\n" + data.GanttView)
	}
	return strings.TrimSpace(b.String())
}

func RenderCyclesPanel(data CyclesPanelData) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("study sessions %s:\n", data.Date))
	b.WriteString("actions: [s]start [r]record [n]next day [p]prev day\n")
	if len(data.Items) == 0 {
		b.WriteString("(none)")
		return b.String()
	}
	for _, item := range data.Items {
		cursor := " "
		if item.ID == data.SelectedID {
			cursor = ">"
		}
		b.WriteString(fmt.Sprintf("%s %s %s [%s] %d/%d", cursor, item.Time, item.Subject, strings.ToUpper(item.Status), item.Done, item.Cycles))
		if item.Carryover > 0 {
			b.WriteString(fmt.Sprintf(" (moved %dx)", item.Carryover))
		}
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String())
}

func CycleItems(cycles []model.StudyCycle, loc *time.Location) []CycleItemData {
	out := make([]CycleItemData, 0, len(cycles))
	for _, c := range cycles {
		out = append(out, CycleItemData{
			ID:        c.ID,
			Subject:   c.Subject,
			Time:      c.ScheduledAt.In(loc).Format("15:04"),
			Status:    string(c.Status),
			Done:      c.CompletedCycles,
			Cycles:    c.Cycles,
			Carryover: c.RescheduledCount,
		})
	}
	return out
}

// ProgressMarkdown summarises a project as a markdown document.
func ProgressMarkdown(name string, s tracker.ProjectSummary) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("# %s\n\n", name))
	b.WriteString(fmt.Sprintf("**%.0f%%** complete: %d of %d tasks", s.Percent, s.Completed, s.Total))
	if s.Milestones > 0 {
		b.WriteString(fmt.Sprintf(", %d milestones", s.Milestones))
	}
	b.WriteString("\n\n")
	if s.Delayed > 0 || s.Abandoned > 0 {
		b.WriteString(fmt.Sprintf("> %d delayed, %d abandoned\n\n", s.Delayed, s.Abandoned))
	}
	b.WriteString("| Phase | Tasks | Done | Progress |\n")
	b.WriteString("|---|---:|---:|---:|\n")
	for _, ph := range s.Phases {
		b.WriteString(fmt.Sprintf("| %s | %d | %d | %.0f%% |\n", ph.Name, ph.Total, ph.Completed, ph.Percent))
	}
	return b.String()
}

// CyclesMarkdown lists study cycles as a markdown table.
func CyclesMarkdown(title string, cycles []model.StudyCycle, loc *time.Location) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("## %s\n\n", title))
	if len(cycles) == 0 {
		b.WriteString("_no sessions_\n")
		return b.String()
	}
	b.WriteString("| When | Subject | Blocks | Status | ID |\n")
	b.WriteString("|---|---|---:|---|---|\n")
	for _, c := range cycles {
		b.WriteString(fmt.Sprintf("| %s | %s | %d/%d | %s | `%s` |\n",
			c.ScheduledAt.In(loc).Format("2006-01-02 15:04"), c.Subject, c.CompletedCycles, c.Cycles, c.Status, c.ID))
	}
	return b.String()
}

func RenderCommandPalette(active bool, input string) string {
	if !active {
		return ""
	}
	return "command: " + input
}

func RenderNotification(level string, body string) string {
	if strings.TrimSpace(body) == "" {
		return ""
	}
	return fmt.Sprintf("notification: [%s] %s", strings.ToUpper(level), body)
}

func RenderHelpPanel(data HelpPanelData) string {
	return fmt.Sprintf("help:\nkeys:\n%s\ncommands:\n%s\n%s",
		strings.Join(data.Bindings, "\n"),
		strings.Join(data.Commands, "\n"),
		data.HelpView,
	)
}
