package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidStatus      = errors.New("model: invalid task status")
	ErrInvalidDelayAction = errors.New("model: invalid delay action")
)

type TaskStatus string

const (
	TaskNonActivatable TaskStatus = "NonActivatable"
	TaskActivatable    TaskStatus = "Activatable"
	TaskActive         TaskStatus = "Active"
	TaskCompleted      TaskStatus = "Completed"
	TaskReactivated    TaskStatus = "Reactivated"
	TaskDelayed        TaskStatus = "Delayed"
	TaskAbandoned      TaskStatus = "Abandoned"
)

func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskNonActivatable, TaskActivatable, TaskActive, TaskCompleted, TaskReactivated, TaskDelayed, TaskAbandoned:
		return true
	default:
		return false
	}
}

// CanTransitionTo reports whether an explicit status mutation from s to
// target is allowed. s is expected to be the derived status of the task.
func (s TaskStatus) CanTransitionTo(target TaskStatus) bool {
	switch s {
	case TaskActivatable:
		return target == TaskActive || target == TaskCompleted
	case TaskActive:
		return target == TaskCompleted
	case TaskCompleted:
		return target == TaskReactivated
	case TaskReactivated:
		return target == TaskCompleted || target == TaskActive
	case TaskDelayed:
		return target == TaskActive || target == TaskCompleted
	case TaskAbandoned:
		return target == TaskReactivated
	default:
		return false
	}
}

func ParseTaskStatus(raw string) (TaskStatus, error) {
	for _, s := range []TaskStatus{TaskNonActivatable, TaskActivatable, TaskActive, TaskCompleted, TaskReactivated, TaskDelayed, TaskAbandoned} {
		if strings.EqualFold(string(s), strings.TrimSpace(raw)) {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
}

type DelayAction string

const (
	DelayTranslate DelayAction = "translate"
	DelayCompress  DelayAction = "compress"
)

func (a DelayAction) IsValid() bool {
	return a == DelayTranslate || a == DelayCompress
}

type Task struct {
	ID           string     `json:"id" yaml:"id"`
	Name         string     `json:"name" yaml:"name"`
	Actors       []string   `json:"actors,omitempty" yaml:"actors,omitempty"`
	Start        time.Time  `json:"start" yaml:"start"`
	End          time.Time  `json:"end" yaml:"end"`
	Status       TaskStatus `json:"status" yaml:"status"`
	Milestone    bool       `json:"milestone,omitempty" yaml:"milestone,omitempty"`
	MilestoneAt  *time.Time `json:"milestone_at,omitempty" yaml:"milestone_at,omitempty"`
	Dependencies []string   `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	Input        string     `json:"input,omitempty" yaml:"input,omitempty"`
	Output       string     `json:"output,omitempty" yaml:"output,omitempty"`
	Color        string     `json:"color,omitempty" yaml:"color,omitempty"`
}

func (t Task) DependsOn(id string) bool {
	for _, dep := range t.Dependencies {
		if dep == id {
			return true
		}
	}
	return false
}

func (t Task) Duration() time.Duration {
	return t.End.Sub(t.Start)
}

func (t Task) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return Validationf("model: task id is required")
	}
	if strings.TrimSpace(t.Name) == "" {
		return Validationf("model: task %s name is required", t.ID)
	}
	if !t.Status.IsValid() {
		return Validationf("%v: %q", ErrInvalidStatus, t.Status)
	}
	if t.Start.IsZero() || t.End.IsZero() {
		return Validationf("model: task %s start and end are required", t.ID)
	}
	if !t.End.After(t.Start) {
		return Validationf("model: task %s end must be after start", t.ID)
	}
	return nil
}

type Phase struct {
	ID    string `json:"id" yaml:"id"`
	Name  string `json:"name" yaml:"name"`
	Tasks []Task `json:"tasks" yaml:"tasks"`
}

type Project struct {
	ID        string
	Owner     string
	Name      string
	Phases    []Phase
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Tasks flattens every phase in order.
func (p Project) Tasks() []Task {
	out := make([]Task, 0)
	for _, ph := range p.Phases {
		out = append(out, ph.Tasks...)
	}
	return out
}

// FindTask returns the phase and task index of id, or ok=false.
func (p Project) FindTask(id string) (phase int, task int, ok bool) {
	for i, ph := range p.Phases {
		for j, t := range ph.Tasks {
			if t.ID == id {
				return i, j, true
			}
		}
	}
	return -1, -1, false
}

// Clone deep-copies the phases subtree so mutations never alias the input.
func (p Project) Clone() Project {
	out := p
	out.Phases = make([]Phase, len(p.Phases))
	for i, ph := range p.Phases {
		cp := ph
		cp.Tasks = make([]Task, len(ph.Tasks))
		for j, t := range ph.Tasks {
			tc := t
			tc.Actors = append([]string(nil), t.Actors...)
			tc.Dependencies = append([]string(nil), t.Dependencies...)
			if t.MilestoneAt != nil {
				at := *t.MilestoneAt
				tc.MilestoneAt = &at
			}
			cp.Tasks[j] = tc
		}
		out.Phases[i] = cp
	}
	return out
}

func (p Project) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return Validationf("model: project id is required")
	}
	if strings.TrimSpace(p.Owner) == "" {
		return Validationf("model: project owner is required")
	}
	if strings.TrimSpace(p.Name) == "" {
		return Validationf("model: project name is required")
	}
	for _, ph := range p.Phases {
		if strings.TrimSpace(ph.ID) == "" {
			return Validationf("model: phase id is required")
		}
		for _, t := range ph.Tasks {
			if err := t.Validate(); err != nil {
				return err
			}
		}
	}
	return nil
}
