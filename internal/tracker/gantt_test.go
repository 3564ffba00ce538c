package tracker

import (
	"testing"
	"time"

	"github.com/sandeepkv93/studyd/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProjectToGanttRows(t *testing.T) {
	ms := task("m", 10, 11, model.TaskActivatable, "b")
	ms.Milestone = true
	ms.Color = "#ff0000"
	p := model.Project{
		ID: "p", Owner: "ana", Name: "Thesis",
		Phases: []model.Phase{
			{ID: "ph-1", Name: "Research", Tasks: []model.Task{
				task("a", 0, 4, model.TaskCompleted),
				task("b", 2, 6, model.TaskActive, "a"),
			}},
			{ID: "ph-empty", Name: "Later"},
			{ID: "ph-2", Name: "Writing", Tasks: []model.Task{ms}},
		},
	}
	chart := ProjectToGanttRows(p)

	require.Len(t, chart.Rows, 5)
	assert.Equal(t, daysAfter(-7), chart.Bounds.Start)
	assert.Equal(t, daysAfter(18), chart.Bounds.End)

	phase := chart.Rows[0]
	assert.Equal(t, RowPhase, phase.Type)
	assert.Equal(t, daysAfter(0), phase.Start)
	assert.Equal(t, daysAfter(6), phase.End)
	assert.Equal(t, 50.0, phase.Progress)

	b := chart.Rows[2]
	assert.Equal(t, RowTask, b.Type)
	assert.Equal(t, "ph-1", b.ParentID)
	assert.Equal(t, 50.0, b.Progress)
	assert.Equal(t, []string{"a"}, b.Dependencies)
	assert.InDelta(t, 9.0/25.0, b.Offset, 1e-9)
	assert.InDelta(t, 4.0/25.0, b.Width, 1e-9)

	m := chart.Rows[4]
	assert.Equal(t, RowMilestone, m.Type)
	assert.Equal(t, "#ff0000", m.Color)
	assert.Equal(t, model.TaskActivatable, m.Status)
}

func TestProjectToGanttRows_Empty(t *testing.T) {
	chart := ProjectToGanttRows(model.Project{ID: "p"})
	assert.Empty(t, chart.Rows)
	assert.True(t, chart.Bounds.Start.IsZero())
}

func TestTimelineLabels(t *testing.T) {
	tl := Timeline{
		Start: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 4, 15, 0, 0, 0, 0, time.UTC),
	}
	months := tl.Labels(ScaleMonth)
	require.Len(t, months, 1)
	assert.Equal(t, "Apr 2026", months[0].Text)

	weeks := tl.Labels(ScaleWeek)
	require.NotEmpty(t, weeks)
	assert.Equal(t, "Mar 02", weeks[0].Text)
	assert.Equal(t, 0.0, weeks[0].Frac)

	assert.Len(t, tl.Labels(ScaleDay), 45)
}
