package views

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

const defaultPaneWidth = 58

type AppData struct {
	Header        string
	LeftPane      string
	RightPane     string
	StatusLine    string
	StatusIsError bool
	Footer        string
	Notification  string
	// PaneWidth is the inner width of each pane. Zero means 58.
	PaneWidth int
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	paneStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	noticeStyle  = paneStyle.BorderForeground(lipgloss.Color("11"))
	hintStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// RenderApp lays out the header, the two panes side by side, then the
// status line, an optional notification and the key hints.
func RenderApp(data AppData) string {
	width := data.PaneWidth
	if width <= 0 {
		width = defaultPaneWidth
	}
	panes := lipgloss.JoinHorizontal(lipgloss.Top,
		paneStyle.Width(width).Render(data.LeftPane),
		paneStyle.Width(width).Render(data.RightPane),
	)

	status := okStyle
	if data.StatusIsError {
		status = failStyle
	}
	out := []string{titleStyle.Render(data.Header), panes, status.Render(data.StatusLine)}
	if data.Notification != "" {
		out = append(out, noticeStyle.Render(data.Notification))
	}
	if data.Footer != "" {
		out = append(out, hintStyle.Render(data.Footer))
	}
	return strings.Join(out, "\n")
}

// RenderMarkdown renders md for the terminal, falling back to the raw text
// when glamour fails.
func RenderMarkdown(md string) string {
	if strings.TrimSpace(md) == "" {
		return ""
	}
	out, err := glamour.Render(md, "dark")
	if err != nil {
		return md
	}
	return strings.TrimSpace(out)
}
