package views

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/sandeepkv93/studyd/internal/model"
	"github.com/sandeepkv93/studyd/internal/tracker"
)

const ganttLabelWidth = 22

var (
	phaseBarStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	scaleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusColors  = map[model.TaskStatus]lipgloss.Color{
		model.TaskNonActivatable: lipgloss.Color("8"),
		model.TaskActivatable:    lipgloss.Color("14"),
		model.TaskActive:         lipgloss.Color("11"),
		model.TaskCompleted:      lipgloss.Color("10"),
		model.TaskReactivated:    lipgloss.Color("13"),
		model.TaskDelayed:        lipgloss.Color("208"),
		model.TaskAbandoned:      lipgloss.Color("9"),
	}
)

// barCells maps a row's fractional geometry onto cols character cells.
// Every row with a positive width gets at least one cell.
func barCells(offset, width float64, cols int) (start, n int) {
	if cols <= 0 {
		return 0, 0
	}
	start = int(math.Floor(offset * float64(cols)))
	end := int(math.Ceil((offset + width) * float64(cols)))
	if start >= cols {
		start = cols - 1
	}
	if end > cols {
		end = cols
	}
	n = end - start
	if n < 1 && width > 0 {
		n = 1
	}
	if n < 0 {
		n = 0
	}
	return start, n
}

// RenderGantt draws chart in width columns with a scale header.
func RenderGantt(chart tracker.GanttChart, scale tracker.Scale, width int) string {
	if len(chart.Rows) == 0 {
		return "(no tasks)"
	}
	cols := width - ganttLabelWidth - 1
	if cols < 10 {
		cols = 10
	}

	var b strings.Builder
	b.WriteString(strings.Repeat(" ", ganttLabelWidth+1))
	b.WriteString(scaleStyle.Render(scaleHeader(chart.Bounds.Labels(scale), cols)))
	b.WriteString("\n")

	for _, row := range chart.Rows {
		label := row.Name
		if row.Type != tracker.RowPhase {
			label = "  " + label
		}
		b.WriteString(fit(label, ganttLabelWidth))
		b.WriteString(" ")

		start, n := barCells(row.Offset, row.Width, cols)
		b.WriteString(strings.Repeat(" ", start))
		switch row.Type {
		case tracker.RowPhase:
			b.WriteString(phaseBarStyle.Render(strings.Repeat("━", n)))
			b.WriteString(fmt.Sprintf(" %3.0f%%", row.Progress))
		case tracker.RowMilestone:
			b.WriteString(rowStyle(row).Render("◆"))
		default:
			b.WriteString(rowStyle(row).Render(strings.Repeat("█", n)))
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func rowStyle(row tracker.GanttRow) lipgloss.Style {
	if row.Color != "" {
		return lipgloss.NewStyle().Foreground(lipgloss.Color(row.Color))
	}
	if c, ok := statusColors[row.Status]; ok {
		return lipgloss.NewStyle().Foreground(c)
	}
	return lipgloss.NewStyle()
}

// scaleHeader places each label at its fraction, dropping labels that
// would overlap the previous one.
func scaleHeader(labels []tracker.TimelineLabel, cols int) string {
	line := []rune(strings.Repeat(" ", cols))
	next := 0
	for _, l := range labels {
		pos := int(l.Frac * float64(cols))
		text := []rune(l.Text)
		if pos < next || pos+len(text) > cols {
			continue
		}
		copy(line[pos:], text)
		next = pos + len(text) + 1
	}
	return strings.TrimRight(string(line), " ")
}

func fit(s string, width int) string {
	r := []rune(s)
	if len(r) > width {
		return string(r[:width-1]) + "…"
	}
	return s + strings.Repeat(" ", width-len(r))
}
