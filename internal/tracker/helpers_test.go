package tracker

import (
	"time"

	"github.com/sandeepkv93/studyd/internal/model"
)

var base = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func daysAfter(n int) time.Time {
	return base.Add(time.Duration(n) * 24 * time.Hour)
}

func task(id string, start, end int, status model.TaskStatus, deps ...string) model.Task {
	return model.Task{
		ID:           id,
		Name:         "task " + id,
		Start:        daysAfter(start),
		End:          daysAfter(end),
		Status:       status,
		Dependencies: deps,
	}
}

func project(tasks ...model.Task) model.Project {
	return model.Project{
		ID:     "proj-1",
		Owner:  "ana",
		Name:   "Thesis",
		Phases: []model.Phase{{ID: "ph-1", Name: "Research", Tasks: tasks}},
	}
}
