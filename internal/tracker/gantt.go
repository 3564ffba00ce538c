package tracker

import (
	"time"

	"github.com/sandeepkv93/studyd/internal/model"
)

// TimelinePadding is added on both sides of the chart's date range.
const TimelinePadding = 7 * day

type RowType string

const (
	RowPhase     RowType = "phase"
	RowTask      RowType = "task"
	RowMilestone RowType = "milestone"
)

type Scale string

const (
	ScaleDay   Scale = "day"
	ScaleWeek  Scale = "week"
	ScaleMonth Scale = "month"
)

func (s Scale) IsValid() bool {
	return s == ScaleDay || s == ScaleWeek || s == ScaleMonth
}

type GanttRow struct {
	ID           string
	ParentID     string
	Name         string
	Type         RowType
	Start        time.Time
	End          time.Time
	Progress     float64
	Status       model.TaskStatus
	Color        string
	Dependencies []string
	// Offset and Width locate the bar as fractions of the timeline span.
	Offset float64
	Width  float64
}

type Timeline struct {
	Start time.Time
	End   time.Time
}

func (tl Timeline) Span() time.Duration {
	return tl.End.Sub(tl.Start)
}

// Fraction maps t linearly into [0,1] over the timeline.
func (tl Timeline) Fraction(t time.Time) float64 {
	span := tl.Span()
	if span <= 0 {
		return 0
	}
	f := float64(t.Sub(tl.Start)) / float64(span)
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}

type TimelineLabel struct {
	At   time.Time
	Text string
	Frac float64
}

// Labels buckets the timeline for display. Row geometry does not depend on
// the scale.
func (tl Timeline) Labels(scale Scale) []TimelineLabel {
	if tl.Span() <= 0 {
		return nil
	}
	var (
		cursor time.Time
		step   func(time.Time) time.Time
		layout string
	)
	switch scale {
	case ScaleMonth:
		y, m, _ := tl.Start.Date()
		cursor = time.Date(y, m, 1, 0, 0, 0, 0, tl.Start.Location())
		step = func(t time.Time) time.Time { return t.AddDate(0, 1, 0) }
		layout = "Jan 2006"
	case ScaleWeek:
		cursor = model.DateOf(tl.Start)
		for cursor.Weekday() != time.Monday {
			cursor = cursor.AddDate(0, 0, -1)
		}
		step = func(t time.Time) time.Time { return t.AddDate(0, 0, 7) }
		layout = "Jan 02"
	default:
		cursor = model.DateOf(tl.Start)
		step = func(t time.Time) time.Time { return t.AddDate(0, 0, 1) }
		layout = "02"
	}
	out := make([]TimelineLabel, 0)
	for ; !cursor.After(tl.End); cursor = step(cursor) {
		if cursor.Before(tl.Start) {
			continue
		}
		out = append(out, TimelineLabel{At: cursor, Text: cursor.Format(layout), Frac: tl.Fraction(cursor)})
	}
	return out
}

type GanttChart struct {
	Bounds Timeline
	Rows   []GanttRow
}

// ProjectToGanttRows lays out one row per non-empty phase followed by its
// task rows. Task rows carry the stored status.
func ProjectToGanttRows(p model.Project) GanttChart {
	return ProjectToGanttRowsPadded(p, TimelinePadding)
}

func ProjectToGanttRowsPadded(p model.Project, padding time.Duration) GanttChart {
	var chart GanttChart
	var lo, hi time.Time
	widen := func(t time.Time) {
		if t.IsZero() {
			return
		}
		if lo.IsZero() || t.Before(lo) {
			lo = t
		}
		if hi.IsZero() || t.After(hi) {
			hi = t
		}
	}

	for _, ph := range p.Phases {
		if len(ph.Tasks) == 0 {
			continue
		}
		phaseRow := GanttRow{
			ID:       ph.ID,
			Name:     ph.Name,
			Type:     RowPhase,
			Start:    ph.Tasks[0].Start,
			End:      ph.Tasks[0].End,
			Progress: PhaseProgress(ph),
		}
		taskRows := make([]GanttRow, 0, len(ph.Tasks))
		for _, t := range ph.Tasks {
			if t.Start.Before(phaseRow.Start) {
				phaseRow.Start = t.Start
			}
			if t.End.After(phaseRow.End) {
				phaseRow.End = t.End
			}
			widen(t.Start)
			widen(t.End)
			if t.MilestoneAt != nil {
				widen(*t.MilestoneAt)
			}
			row := GanttRow{
				ID:           t.ID,
				ParentID:     ph.ID,
				Name:         t.Name,
				Type:         RowTask,
				Start:        t.Start,
				End:          t.End,
				Progress:     TaskProgressPercent(t.Status),
				Status:       t.Status,
				Color:        t.Color,
				Dependencies: append([]string(nil), t.Dependencies...),
			}
			if t.Milestone {
				row.Type = RowMilestone
			}
			taskRows = append(taskRows, row)
		}
		chart.Rows = append(chart.Rows, phaseRow)
		chart.Rows = append(chart.Rows, taskRows...)
	}
	if len(chart.Rows) == 0 {
		return chart
	}

	chart.Bounds = Timeline{Start: lo.Add(-padding), End: hi.Add(padding)}
	for i := range chart.Rows {
		r := &chart.Rows[i]
		r.Offset = chart.Bounds.Fraction(r.Start)
		r.Width = chart.Bounds.Fraction(r.End) - r.Offset
	}
	return chart
}
