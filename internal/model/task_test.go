package model

import (
	"errors"
	"testing"
	"time"
)

func TestTaskValidateSuccess(t *testing.T) {
	start := time.Date(2026, 2, 9, 12, 0, 0, 0, time.UTC)
	task := Task{
		ID:     "task-1",
		Name:   "Draft literature review",
		Start:  start,
		End:    start.AddDate(0, 0, 5),
		Status: TaskActivatable,
	}
	if err := task.Validate(); err != nil {
		t.Fatalf("expected valid task, got error: %v", err)
	}
}

func TestTaskValidateRejectsInvertedWindow(t *testing.T) {
	start := time.Date(2026, 2, 9, 12, 0, 0, 0, time.UTC)
	task := Task{ID: "task-1", Name: "Backwards", Start: start, End: start, Status: TaskActive}
	err := task.Validate()
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got: %v", err)
	}
	if err.Error() != "validation: model: task task-1 end must be after start" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestTaskValidateInvalidStatus(t *testing.T) {
	start := time.Date(2026, 2, 9, 12, 0, 0, 0, time.UTC)
	task := Task{ID: "task-1", Name: "Bad", Start: start, End: start.Add(time.Hour), Status: TaskStatus("Paused")}
	if err := task.Validate(); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got: %v", err)
	}
}

func TestParseTaskStatus(t *testing.T) {
	got, err := ParseTaskStatus("completed")
	if err != nil || got != TaskCompleted {
		t.Fatalf("expected Completed, got %q err=%v", got, err)
	}
	if _, err := ParseTaskStatus("paused"); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
}

func TestStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to TaskStatus
		want     bool
	}{
		{TaskActivatable, TaskActive, true},
		{TaskActive, TaskCompleted, true},
		{TaskCompleted, TaskReactivated, true},
		{TaskDelayed, TaskCompleted, true},
		{TaskNonActivatable, TaskActive, false},
		{TaskCompleted, TaskActive, false},
		{TaskActive, TaskDelayed, false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransitionTo(tc.to); got != tc.want {
			t.Fatalf("%s -> %s = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestProjectCloneDoesNotAlias(t *testing.T) {
	at := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	p := Project{
		ID: "p1", Owner: "ana", Name: "Thesis",
		Phases: []Phase{{ID: "ph1", Name: "Research", Tasks: []Task{{ID: "t1", Dependencies: []string{"t0"}, MilestoneAt: &at}}}},
	}
	cp := p.Clone()
	cp.Phases[0].Tasks[0].Dependencies[0] = "changed"
	cp.Phases[0].Tasks[0].MilestoneAt = nil
	cp.Phases[0].Name = "Other"
	if p.Phases[0].Tasks[0].Dependencies[0] != "t0" || p.Phases[0].Tasks[0].MilestoneAt == nil || p.Phases[0].Name != "Research" {
		t.Fatalf("clone aliased original: %+v", p)
	}
}

func TestErrorKindMatching(t *testing.T) {
	err := NotFoundf("project %s", "p9")
	if !errors.Is(err, ErrNotFound) {
		t.Fatal("expected ErrNotFound match")
	}
	if errors.Is(err, ErrUnauthorized) {
		t.Fatal("unexpected ErrUnauthorized match")
	}
	if KindOf(err) != KindNotFound {
		t.Fatalf("unexpected kind: %q", KindOf(err))
	}
	if KindOf(errors.New("plain")) != "" {
		t.Fatal("expected empty kind for plain error")
	}
}

func TestStudyCycleValidate(t *testing.T) {
	at := time.Date(2026, 2, 9, 9, 0, 0, 0, time.UTC)
	c := StudyCycle{
		ID: "c1", Owner: "ana", StudyMinutes: 25, PauseMinutes: 5,
		Cycles: 4, CompletedCycles: 1, ScheduledAt: at, Status: CycleInProgress,
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("expected valid cycle, got %v", err)
	}
	if c.Remaining() != 3 || !c.Incomplete() {
		t.Fatalf("unexpected remaining/incomplete: %d %v", c.Remaining(), c.Incomplete())
	}
	if got := c.EndAt(); !got.Equal(at.Add(90 * time.Minute)) {
		t.Fatalf("unexpected end: %s", got)
	}

	c.CompletedCycles = 5
	if err := c.Validate(); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error for overrun, got %v", err)
	}
}
