package tracker

import (
	"time"

	"github.com/sandeepkv93/studyd/internal/model"
)

// PhaseSummary counts a phase by derived status. Completed and Percent use
// the same basis, so a stored-completed task whose dependencies are not
// done counts in neither.
type PhaseSummary struct {
	PhaseID   string
	Name      string
	Total     int
	Completed int
	Percent   float64
}

type ProjectSummary struct {
	Total      int
	Completed  int
	Active     int
	Delayed    int
	Abandoned  int
	Milestones int
	Percent    float64
	Phases     []PhaseSummary
}

// PhaseProgress is the share of tasks in ph whose stored status is
// Completed, 0 for an empty phase. Gantt phase bars use it.
func PhaseProgress(ph model.Phase) float64 {
	if len(ph.Tasks) == 0 {
		return 0
	}
	done := 0
	for _, t := range ph.Tasks {
		if t.Status == model.TaskCompleted {
			done++
		}
	}
	return 100 * float64(done) / float64(len(ph.Tasks))
}

func TaskProgressPercent(s model.TaskStatus) float64 {
	switch s {
	case model.TaskCompleted:
		return 100
	case model.TaskReactivated:
		return 75
	case model.TaskActive:
		return 50
	default:
		return 0
	}
}

// ComputeProgress folds the derived status of every task into a summary.
func ComputeProgress(p model.Project, now time.Time) ProjectSummary {
	derived := DeriveAll(p, now)
	var out ProjectSummary
	out.Phases = make([]PhaseSummary, 0, len(p.Phases))
	for _, ph := range p.Phases {
		ps := PhaseSummary{PhaseID: ph.ID, Name: ph.Name, Total: len(ph.Tasks)}
		for _, t := range ph.Tasks {
			out.Total++
			if t.Milestone {
				out.Milestones++
			}
			switch derived[t.ID] {
			case model.TaskCompleted:
				out.Completed++
				ps.Completed++
			case model.TaskActive:
				out.Active++
			case model.TaskDelayed:
				out.Delayed++
			case model.TaskAbandoned:
				out.Abandoned++
			}
		}
		if ps.Total > 0 {
			ps.Percent = 100 * float64(ps.Completed) / float64(ps.Total)
		}
		out.Phases = append(out.Phases, ps)
	}
	if out.Total > 0 {
		out.Percent = 100 * float64(out.Completed) / float64(out.Total)
	}
	return out
}
