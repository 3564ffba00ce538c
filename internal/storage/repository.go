package storage

import (
	"context"
	"time"

	"github.com/sandeepkv93/studyd/internal/calendar"
	"github.com/sandeepkv93/studyd/internal/model"
)

// ErrNotFound matches model.ErrNotFound so callers need only one sentinel.
var ErrNotFound = model.ErrNotFound

type StudyCycleFilter struct {
	Owner    string
	From     time.Time
	To       time.Time
	Statuses []model.CycleStatus
	Limit    int
	Offset   int
}

type EventListFilter struct {
	Owner  string
	From   time.Time
	To     time.Time
	Limit  int
	Offset int
}

type Repository interface {
	CreateProject(ctx context.Context, in model.Project) (model.Project, error)
	GetProject(ctx context.Context, id string) (model.Project, error)
	SaveProject(ctx context.Context, in model.Project) (model.Project, error)
	DeleteProject(ctx context.Context, id string) error
	ListProjects(ctx context.Context, owner string) ([]model.Project, error)

	CreateStudyCycle(ctx context.Context, in model.StudyCycle) (model.StudyCycle, error)
	GetStudyCycle(ctx context.Context, id string) (model.StudyCycle, error)
	SaveStudyCycle(ctx context.Context, in model.StudyCycle) (model.StudyCycle, error)
	DeleteStudyCycle(ctx context.Context, id string) error
	ListStudyCycles(ctx context.Context, filter StudyCycleFilter) ([]model.StudyCycle, error)
	FindIncompleteStudyCycles(ctx context.Context, owner string, day time.Time) ([]model.StudyCycle, error)
	CyclesBetween(ctx context.Context, owner string, from, to time.Time) ([]model.StudyCycle, error)

	CreateEvent(ctx context.Context, in calendar.EventRequest) (string, error)
	GetEvent(ctx context.Context, id string) (calendar.Event, error)
	DeleteEvent(ctx context.Context, id string) error
	ListEvents(ctx context.Context, filter EventListFilter) ([]calendar.Event, error)
}
