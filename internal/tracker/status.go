// Package tracker derives live task state for projects and applies the
// owner-driven mutations on a project's task graph.
package tracker

import (
	"time"

	"github.com/sandeepkv93/studyd/internal/model"
)

// AbandonAfterDays is the lateness beyond which a delayed task is abandoned.
const AbandonAfterDays = 30

const day = 24 * time.Hour

// DeriveStatus computes the effective status of task against the stored
// statuses of allTasks at instant now. It never mutates its inputs.
func DeriveStatus(task model.Task, allTasks []model.Task, now time.Time) model.TaskStatus {
	if task.End.Before(now) && task.Status != model.TaskCompleted {
		daysLate := int(now.Sub(task.End) / day)
		if daysLate > AbandonAfterDays {
			return model.TaskAbandoned
		}
		return model.TaskDelayed
	}
	if !available(task, allTasks) {
		return model.TaskNonActivatable
	}
	return task.Status
}

// DeriveAll derives every task of p in one pass.
func DeriveAll(p model.Project, now time.Time) map[string]model.TaskStatus {
	all := p.Tasks()
	out := make(map[string]model.TaskStatus, len(all))
	for _, t := range all {
		out[t.ID] = DeriveStatus(t, all, now)
	}
	return out
}

func available(task model.Task, allTasks []model.Task) bool {
	if len(task.Dependencies) == 0 {
		return true
	}
	stored := make(map[string]model.TaskStatus, len(allTasks))
	for _, t := range allTasks {
		stored[t.ID] = t.Status
	}
	for _, dep := range task.Dependencies {
		if stored[dep] != model.TaskCompleted {
			return false
		}
	}
	return true
}

// NormalizeNew fills in the stored status of tasks that have none yet.
func NormalizeNew(p model.Project) model.Project {
	out := p.Clone()
	for i := range out.Phases {
		for j := range out.Phases[i].Tasks {
			t := &out.Phases[i].Tasks[j]
			if t.Status != "" {
				continue
			}
			if len(t.Dependencies) == 0 {
				t.Status = model.TaskActivatable
			} else {
				t.Status = model.TaskNonActivatable
			}
		}
	}
	return out
}

// UpdateTaskStatus is the only path that writes a stored status. The
// transition is checked against the derived status at now. Completing a
// task promotes direct dependents whose dependencies are now all complete.
func UpdateTaskStatus(p model.Project, principal, taskID string, target model.TaskStatus, now time.Time) (model.Project, error) {
	if principal != p.Owner {
		return model.Project{}, model.Unauthorizedf("principal %q does not own project %s", principal, p.ID)
	}
	if !target.IsValid() {
		return model.Project{}, model.Validationf("invalid target status %q", target)
	}
	pi, ti, ok := p.FindTask(taskID)
	if !ok {
		return model.Project{}, model.NotFoundf("task %s in project %s", taskID, p.ID)
	}
	all := p.Tasks()
	current := DeriveStatus(p.Phases[pi].Tasks[ti], all, now)
	if !current.CanTransitionTo(target) {
		return model.Project{}, model.Validationf("task %s cannot move from %s to %s", taskID, current, target)
	}

	out := p.Clone()
	out.Phases[pi].Tasks[ti].Status = target
	if target == model.TaskCompleted {
		promoteDependents(&out, taskID)
	}
	return out, nil
}

func promoteDependents(p *model.Project, completedID string) {
	all := p.Tasks()
	for i := range p.Phases {
		for j := range p.Phases[i].Tasks {
			t := &p.Phases[i].Tasks[j]
			if t.Status != model.TaskNonActivatable || !t.DependsOn(completedID) {
				continue
			}
			if available(*t, all) {
				t.Status = model.TaskActivatable
			}
		}
	}
}
