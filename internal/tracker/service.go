package tracker

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sandeepkv93/studyd/internal/model"
)

// ProjectStore persists whole project aggregates. SaveProject must reject a
// write whose Version differs from the stored one with ErrVersionMismatch.
type ProjectStore interface {
	GetProject(ctx context.Context, id string) (model.Project, error)
	CreateProject(ctx context.Context, p model.Project) (model.Project, error)
	SaveProject(ctx context.Context, p model.Project) (model.Project, error)
}

type Service struct {
	store   ProjectStore
	logger  *slog.Logger
	now     func() time.Time
	padding time.Duration
}

type Option func(*Service)

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func WithGanttPadding(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.padding = d
		}
	}
}

func NewService(store ProjectStore, opts ...Option) *Service {
	s := &Service{
		store:   store,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:     time.Now,
		padding: TimelinePadding,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateProject stores a new project owned by principal.
func (s *Service) CreateProject(ctx context.Context, principal string, p model.Project) (model.Project, error) {
	if strings.TrimSpace(principal) == "" {
		return model.Project{}, model.Unauthorizedf("principal is required")
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.Owner = principal
	now := s.now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	p = NormalizeNew(p)
	if err := check(p); err != nil {
		return model.Project{}, err
	}
	created, err := s.store.CreateProject(ctx, p)
	if err != nil {
		return model.Project{}, err
	}
	s.logger.Info("project created", "project", created.ID, "owner", principal, "tasks", len(created.Tasks()))
	return created, nil
}

// SaveProject writes an edited project. p.Version must be the version read.
func (s *Service) SaveProject(ctx context.Context, principal string, p model.Project) (model.Project, error) {
	current, err := s.Project(ctx, principal, p.ID)
	if err != nil {
		return model.Project{}, err
	}
	p.Owner = current.Owner
	p.CreatedAt = current.CreatedAt
	p.UpdatedAt = s.now().UTC()
	p = NormalizeNew(p)
	if err := check(p); err != nil {
		return model.Project{}, err
	}
	return s.save(ctx, p)
}

// Project loads a project visible to principal.
func (s *Service) Project(ctx context.Context, principal, id string) (model.Project, error) {
	p, err := s.store.GetProject(ctx, id)
	if err != nil {
		return model.Project{}, err
	}
	if p.Owner != principal {
		return model.Project{}, model.Unauthorizedf("principal %q does not own project %s", principal, id)
	}
	return p, nil
}

func (s *Service) SetTaskStatus(ctx context.Context, principal, projectID, taskID string, target model.TaskStatus) (model.Project, error) {
	p, err := s.Project(ctx, principal, projectID)
	if err != nil {
		return model.Project{}, err
	}
	next, err := UpdateTaskStatus(p, principal, taskID, target, s.now())
	if err != nil {
		return model.Project{}, err
	}
	next.UpdatedAt = s.now().UTC()
	saved, err := s.save(ctx, next)
	if err != nil {
		return model.Project{}, err
	}
	s.logger.Info("task status updated", "project", projectID, "task", taskID, "status", target)
	return saved, nil
}

func (s *Service) ApplyDelay(ctx context.Context, principal, projectID, taskID string, action model.DelayAction) (model.Project, error) {
	p, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return model.Project{}, err
	}
	now := s.now()
	next, err := ApplyDelayConsequence(p, principal, taskID, action, now)
	if err != nil {
		s.logger.Warn("delay rejected", "project", projectID, "task", taskID, "action", action, "err", err)
		return model.Project{}, err
	}
	next.UpdatedAt = now.UTC()
	saved, err := s.save(ctx, next)
	if err != nil {
		return model.Project{}, err
	}
	s.logger.Info("delay applied", "project", projectID, "task", taskID, "action", action)
	return saved, nil
}

func (s *Service) Progress(ctx context.Context, principal, projectID string) (ProjectSummary, error) {
	p, err := s.Project(ctx, principal, projectID)
	if err != nil {
		return ProjectSummary{}, err
	}
	return ComputeProgress(p, s.now()), nil
}

func (s *Service) Gantt(ctx context.Context, principal, projectID string) (GanttChart, error) {
	p, err := s.Project(ctx, principal, projectID)
	if err != nil {
		return GanttChart{}, err
	}
	return ProjectToGanttRowsPadded(p, s.padding), nil
}

func (s *Service) save(ctx context.Context, p model.Project) (model.Project, error) {
	saved, err := s.store.SaveProject(ctx, p)
	if err != nil {
		if model.KindOf(err) == model.KindVersionMismatch {
			s.logger.Warn("stale project write", "project", p.ID, "version", p.Version)
		}
		return model.Project{}, err
	}
	return saved, nil
}

func check(p model.Project) error {
	if err := p.Validate(); err != nil {
		return err
	}
	return ValidateGraph(p)
}
