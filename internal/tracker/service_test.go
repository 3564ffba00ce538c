package tracker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/sandeepkv93/studyd/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	mu       sync.Mutex
	projects map[string]model.Project
}

func newMemoryStore() *memoryStore {
	return &memoryStore{projects: map[string]model.Project{}}
}

func (m *memoryStore) GetProject(_ context.Context, id string) (model.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[id]
	if !ok {
		return model.Project{}, model.NotFoundf("project %s", id)
	}
	return p.Clone(), nil
}

func (m *memoryStore) CreateProject(_ context.Context, p model.Project) (model.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.Version = 1
	m.projects[p.ID] = p.Clone()
	return p, nil
}

func (m *memoryStore) SaveProject(_ context.Context, p model.Project) (model.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.projects[p.ID]
	if !ok {
		return model.Project{}, model.NotFoundf("project %s", p.ID)
	}
	if cur.Version != p.Version {
		return model.Project{}, model.VersionMismatchf("project %s at version %d, write has %d", p.ID, cur.Version, p.Version)
	}
	p.Version++
	m.projects[p.ID] = p.Clone()
	return p, nil
}

func newTestService(store ProjectStore, now int) *Service {
	return NewService(store, WithClock(func() time.Time { return daysAfter(now) }))
}

func TestServiceCreateNormalizesAndChecks(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newMemoryStore(), 0)

	in := project(
		task("a", 0, 5, ""),
		task("b", 5, 10, "", "a"),
	)
	in.ID = ""
	in.Owner = "someone-else"
	created, err := svc.CreateProject(ctx, "ana", in)
	require.NoError(t, err)

	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "ana", created.Owner)
	assert.Equal(t, int64(1), created.Version)
	assert.Equal(t, model.TaskActivatable, created.Phases[0].Tasks[0].Status)
	assert.Equal(t, model.TaskNonActivatable, created.Phases[0].Tasks[1].Status)

	cyclic := project(
		task("a", 0, 5, "", "b"),
		task("b", 5, 10, "", "a"),
	)
	_, err = svc.CreateProject(ctx, "ana", cyclic)
	assert.ErrorIs(t, err, model.ErrDependencyCycle)

	_, err = svc.CreateProject(ctx, " ", project(task("a", 0, 5, "")))
	assert.ErrorIs(t, err, model.ErrUnauthorized)
}

func TestServiceSetTaskStatusPromotesAndVersions(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()
	svc := newTestService(store, 1)

	created, err := svc.CreateProject(ctx, "ana", project(
		task("a", 0, 5, model.TaskActivatable),
		task("b", 5, 10, model.TaskNonActivatable, "a"),
	))
	require.NoError(t, err)

	got, err := svc.SetTaskStatus(ctx, "ana", created.ID, "a", model.TaskCompleted)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.Version)
	assert.Equal(t, model.TaskActivatable, got.Phases[0].Tasks[1].Status)

	_, err = svc.SetTaskStatus(ctx, "bob", created.ID, "b", model.TaskActive)
	assert.ErrorIs(t, err, model.ErrUnauthorized)

	_, err = svc.SetTaskStatus(ctx, "ana", created.ID, "missing", model.TaskActive)
	assert.ErrorIs(t, err, model.ErrNotFound)

	// an edit made against version 1 loses to the write above
	created.Name = "Renamed"
	_, err = svc.SaveProject(ctx, "ana", created)
	assert.ErrorIs(t, err, model.ErrVersionMismatch)

	stored, err := store.GetProject(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Thesis", stored.Name)
}

func TestServiceApplyDelayAndReadModels(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newMemoryStore(), 8)

	created, err := svc.CreateProject(ctx, "ana", delayFixture())
	require.NoError(t, err)

	_, err = svc.ApplyDelay(ctx, "bob", created.ID, "a", model.DelayTranslate)
	assert.ErrorIs(t, err, model.ErrUnauthorized)

	moved, err := svc.ApplyDelay(ctx, "ana", created.ID, "a", model.DelayTranslate)
	require.NoError(t, err)
	assert.Equal(t, daysAfter(13), moved.Phases[0].Tasks[1].Start)

	summary, err := svc.Progress(ctx, "ana", created.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 1, summary.Delayed)

	chart, err := svc.Gantt(ctx, "ana", created.ID)
	require.NoError(t, err)
	require.Len(t, chart.Rows, 4)
	assert.Equal(t, RowPhase, chart.Rows[0].Type)
	assert.Equal(t, daysAfter(0).Add(-TimelinePadding), chart.Bounds.Start)

	_, err = svc.Gantt(ctx, "bob", created.ID)
	assert.ErrorIs(t, err, model.ErrUnauthorized)
}
