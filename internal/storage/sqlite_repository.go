package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sandeepkv93/studyd/internal/calendar"
	"github.com/sandeepkv93/studyd/internal/model"
)

// Fixed-width UTC layout so stored instants compare correctly as text.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

var _ Repository = (*SQLiteRepository)(nil)

func NewSQLiteRepository(db *sql.DB) (*SQLiteRepository, error) {
	if db == nil {
		return nil, errors.New("storage: nil db")
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	return &SQLiteRepository{db: db, now: time.Now}, nil
}

// OpenSQLite opens path and applies pending migrations.
func OpenSQLite(path string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := MigrateUp(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	repo, err := NewSQLiteRepository(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

func (r *SQLiteRepository) CreateProject(ctx context.Context, in model.Project) (model.Project, error) {
	phases, err := encodePhases(in.Phases)
	if err != nil {
		return model.Project{}, err
	}
	now := r.now()
	if in.CreatedAt.IsZero() {
		in.CreatedAt = now
	}
	if in.UpdatedAt.IsZero() {
		in.UpdatedAt = now
	}
	in.Version = 1
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO projects (id, owner, name, phases, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		in.ID, in.Owner, in.Name, phases, in.Version, mustTime(in.CreatedAt), mustTime(in.UpdatedAt),
	)
	if err != nil {
		return model.Project{}, fmt.Errorf("insert project %s: %w", in.ID, err)
	}
	return in, nil
}

func (r *SQLiteRepository) GetProject(ctx context.Context, id string) (model.Project, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, owner, name, phases, version, created_at, updated_at
		FROM projects WHERE id = ?`, id)
	p, err := scanProject(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Project{}, model.NotFoundf("project %s", id)
		}
		return model.Project{}, err
	}
	return p, nil
}

// SaveProject replaces the stored aggregate if in.Version is still current.
func (r *SQLiteRepository) SaveProject(ctx context.Context, in model.Project) (model.Project, error) {
	phases, err := encodePhases(in.Phases)
	if err != nil {
		return model.Project{}, err
	}
	if in.UpdatedAt.IsZero() {
		in.UpdatedAt = r.now()
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE projects
		SET owner = ?, name = ?, phases = ?, updated_at = ?, version = version + 1
		WHERE id = ? AND version = ?`,
		in.Owner, in.Name, phases, mustTime(in.UpdatedAt), in.ID, in.Version,
	)
	if err != nil {
		return model.Project{}, fmt.Errorf("update project %s: %w", in.ID, err)
	}
	if err := r.checkVersioned(ctx, res, "projects", in.ID, in.Version); err != nil {
		return model.Project{}, err
	}
	in.Version++
	return in, nil
}

func (r *SQLiteRepository) DeleteProject(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return checkRowsAffected(res, "project", id)
}

func (r *SQLiteRepository) ListProjects(ctx context.Context, owner string) ([]model.Project, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, owner, name, phases, version, created_at, updated_at
		FROM projects WHERE owner = ? ORDER BY created_at ASC`, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Project, 0)
	for rows.Next() {
		p, scanErr := scanProject(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

const cycleColumns = `id, owner, subject, study_minutes, pause_minutes, cycles, completed_cycles, scheduled_at, status,
	original_date, rescheduled_count, event_id, parent_id, version, created_at, updated_at`

func (r *SQLiteRepository) CreateStudyCycle(ctx context.Context, in model.StudyCycle) (model.StudyCycle, error) {
	now := r.now()
	if in.CreatedAt.IsZero() {
		in.CreatedAt = now
	}
	if in.UpdatedAt.IsZero() {
		in.UpdatedAt = now
	}
	if in.OriginalDate.IsZero() {
		in.OriginalDate = model.DateOf(in.ScheduledAt)
	}
	in.Version = 1
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO study_cycles (`+cycleColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		in.ID, in.Owner, in.Subject, in.StudyMinutes, in.PauseMinutes, in.Cycles, in.CompletedCycles,
		mustTime(in.ScheduledAt), string(in.Status), mustTime(in.OriginalDate), in.RescheduledCount,
		in.EventID, in.ParentID, in.Version, mustTime(in.CreatedAt), mustTime(in.UpdatedAt),
	)
	if err != nil {
		return model.StudyCycle{}, fmt.Errorf("insert study cycle %s: %w", in.ID, err)
	}
	return in, nil
}

func (r *SQLiteRepository) GetStudyCycle(ctx context.Context, id string) (model.StudyCycle, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+cycleColumns+` FROM study_cycles WHERE id = ?`, id)
	c, err := scanStudyCycle(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.StudyCycle{}, model.NotFoundf("study cycle %s", id)
		}
		return model.StudyCycle{}, err
	}
	return c, nil
}

func (r *SQLiteRepository) SaveStudyCycle(ctx context.Context, in model.StudyCycle) (model.StudyCycle, error) {
	if in.UpdatedAt.IsZero() {
		in.UpdatedAt = r.now()
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE study_cycles
		SET subject = ?, study_minutes = ?, pause_minutes = ?, cycles = ?, completed_cycles = ?, scheduled_at = ?,
			status = ?, original_date = ?, rescheduled_count = ?, event_id = ?, parent_id = ?, updated_at = ?,
			version = version + 1
		WHERE id = ? AND version = ?`,
		in.Subject, in.StudyMinutes, in.PauseMinutes, in.Cycles, in.CompletedCycles, mustTime(in.ScheduledAt),
		string(in.Status), mustTime(in.OriginalDate), in.RescheduledCount, in.EventID, in.ParentID, mustTime(in.UpdatedAt),
		in.ID, in.Version,
	)
	if err != nil {
		return model.StudyCycle{}, fmt.Errorf("update study cycle %s: %w", in.ID, err)
	}
	if err := r.checkVersioned(ctx, res, "study_cycles", in.ID, in.Version); err != nil {
		return model.StudyCycle{}, err
	}
	in.Version++
	return in, nil
}

func (r *SQLiteRepository) DeleteStudyCycle(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM study_cycles WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return checkRowsAffected(res, "study cycle", id)
}

func (r *SQLiteRepository) ListStudyCycles(ctx context.Context, filter StudyCycleFilter) ([]model.StudyCycle, error) {
	query := `SELECT ` + cycleColumns + ` FROM study_cycles`
	clauses := make([]string, 0, 4)
	args := make([]any, 0, 8)
	if filter.Owner != "" {
		clauses = append(clauses, "owner = ?")
		args = append(args, filter.Owner)
	}
	if !filter.From.IsZero() {
		clauses = append(clauses, "scheduled_at >= ?")
		args = append(args, mustTime(filter.From))
	}
	if !filter.To.IsZero() {
		clauses = append(clauses, "scheduled_at < ?")
		args = append(args, mustTime(filter.To))
	}
	if len(filter.Statuses) > 0 {
		marks := make([]string, 0, len(filter.Statuses))
		for _, s := range filter.Statuses {
			marks = append(marks, "?")
			args = append(args, string(s))
		}
		clauses = append(clauses, "status IN ("+strings.Join(marks, ", ")+")")
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += ` ORDER BY scheduled_at ASC, id ASC`
	query += applyPagination(&args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.StudyCycle, 0)
	for rows.Next() {
		c, scanErr := scanStudyCycle(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// FindIncompleteStudyCycles lists the owner's slot-holding cycles scheduled
// on the calendar day of day, in day's location.
func (r *SQLiteRepository) FindIncompleteStudyCycles(ctx context.Context, owner string, day time.Time) ([]model.StudyCycle, error) {
	from := model.DateOf(day)
	return r.ListStudyCycles(ctx, StudyCycleFilter{
		Owner:    owner,
		From:     from,
		To:       from.AddDate(0, 0, 1),
		Statuses: []model.CycleStatus{model.CycleScheduled, model.CycleInProgress},
	})
}

// CyclesBetween lists the owner's slot-holding cycles starting in [from, to).
func (r *SQLiteRepository) CyclesBetween(ctx context.Context, owner string, from, to time.Time) ([]model.StudyCycle, error) {
	return r.ListStudyCycles(ctx, StudyCycleFilter{
		Owner:    owner,
		From:     from,
		To:       to,
		Statuses: []model.CycleStatus{model.CycleScheduled, model.CycleInProgress},
	})
}

func (r *SQLiteRepository) CreateEvent(ctx context.Context, in calendar.EventRequest) (string, error) {
	if err := in.Validate(); err != nil {
		return "", model.Validationf("%v", err)
	}
	id := uuid.NewString()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO calendar_events (id, owner, title, start_at, end_at, lead_minutes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, in.Owner, in.Title, mustTime(in.Start), mustTime(in.End), in.LeadMinutes, mustTime(r.now()),
	)
	if err != nil {
		return "", fmt.Errorf("insert calendar event: %w", err)
	}
	return id, nil
}

func (r *SQLiteRepository) GetEvent(ctx context.Context, id string) (calendar.Event, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, owner, title, start_at, end_at, lead_minutes, created_at
		FROM calendar_events WHERE id = ?`, id)
	ev, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return calendar.Event{}, model.NotFoundf("calendar event %s", id)
		}
		return calendar.Event{}, err
	}
	return ev, nil
}

func (r *SQLiteRepository) DeleteEvent(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM calendar_events WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return checkRowsAffected(res, "calendar event", id)
}

func (r *SQLiteRepository) ListEvents(ctx context.Context, filter EventListFilter) ([]calendar.Event, error) {
	query := `SELECT id, owner, title, start_at, end_at, lead_minutes, created_at FROM calendar_events`
	clauses := make([]string, 0, 3)
	args := make([]any, 0, 5)
	if filter.Owner != "" {
		clauses = append(clauses, "owner = ?")
		args = append(args, filter.Owner)
	}
	if !filter.From.IsZero() {
		clauses = append(clauses, "start_at >= ?")
		args = append(args, mustTime(filter.From))
	}
	if !filter.To.IsZero() {
		clauses = append(clauses, "start_at < ?")
		args = append(args, mustTime(filter.To))
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += ` ORDER BY start_at ASC`
	query += applyPagination(&args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]calendar.Event, 0)
	for rows.Next() {
		ev, scanErr := scanEvent(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// checkVersioned turns a zero-row versioned update into NotFound or
// VersionMismatch depending on whether the row exists.
func (r *SQLiteRepository) checkVersioned(ctx context.Context, res sql.Result, table, id string, version int64) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected > 0 {
		return nil
	}
	var current int64
	err = r.db.QueryRowContext(ctx, `SELECT version FROM `+table+` WHERE id = ?`, id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return model.NotFoundf("%s %s", table, id)
	}
	if err != nil {
		return err
	}
	return model.VersionMismatchf("%s %s: have version %d, stored %d", table, id, version, current)
}

func encodePhases(phases []model.Phase) (string, error) {
	if phases == nil {
		phases = []model.Phase{}
	}
	raw, err := json.Marshal(phases)
	if err != nil {
		return "", fmt.Errorf("encode phases: %w", err)
	}
	return string(raw), nil
}

func mustTime(v time.Time) string {
	return v.UTC().Format(sqliteTimeLayout)
}

func parseRequiredTime(v string) (time.Time, error) {
	return time.Parse(sqliteTimeLayout, v)
}

func applyPagination(args *[]any, limit, offset int) string {
	sql := ""
	if limit > 0 {
		sql += " LIMIT ?"
		*args = append(*args, limit)
	} else if offset > 0 {
		sql += " LIMIT -1"
	}
	if offset > 0 {
		sql += " OFFSET ?"
		*args = append(*args, offset)
	}
	return sql
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProject(s scanner) (model.Project, error) {
	var out model.Project
	var phases, created, updated string
	if err := s.Scan(&out.ID, &out.Owner, &out.Name, &phases, &out.Version, &created, &updated); err != nil {
		return model.Project{}, err
	}
	if err := json.Unmarshal([]byte(phases), &out.Phases); err != nil {
		return model.Project{}, fmt.Errorf("decode phases of project %s: %w", out.ID, err)
	}
	createdAt, err := parseRequiredTime(created)
	if err != nil {
		return model.Project{}, err
	}
	updatedAt, err := parseRequiredTime(updated)
	if err != nil {
		return model.Project{}, err
	}
	out.CreatedAt = createdAt
	out.UpdatedAt = updatedAt
	return out, nil
}

func scanStudyCycle(s scanner) (model.StudyCycle, error) {
	var out model.StudyCycle
	var status, scheduled, original, created, updated string
	if err := s.Scan(&out.ID, &out.Owner, &out.Subject, &out.StudyMinutes, &out.PauseMinutes, &out.Cycles,
		&out.CompletedCycles, &scheduled, &status, &original, &out.RescheduledCount, &out.EventID, &out.ParentID,
		&out.Version, &created, &updated); err != nil {
		return model.StudyCycle{}, err
	}
	out.Status = model.CycleStatus(status)
	var err error
	if out.ScheduledAt, err = parseRequiredTime(scheduled); err != nil {
		return model.StudyCycle{}, err
	}
	if out.OriginalDate, err = parseRequiredTime(original); err != nil {
		return model.StudyCycle{}, err
	}
	if out.CreatedAt, err = parseRequiredTime(created); err != nil {
		return model.StudyCycle{}, err
	}
	if out.UpdatedAt, err = parseRequiredTime(updated); err != nil {
		return model.StudyCycle{}, err
	}
	return out, nil
}

func scanEvent(s scanner) (calendar.Event, error) {
	var out calendar.Event
	var start, end, created string
	if err := s.Scan(&out.ID, &out.Owner, &out.Title, &start, &end, &out.LeadMinutes, &created); err != nil {
		return calendar.Event{}, err
	}
	var err error
	if out.Start, err = parseRequiredTime(start); err != nil {
		return calendar.Event{}, err
	}
	if out.End, err = parseRequiredTime(end); err != nil {
		return calendar.Event{}, err
	}
	if out.CreatedAt, err = parseRequiredTime(created); err != nil {
		return calendar.Event{}, err
	}
	return out, nil
}

func checkRowsAffected(res sql.Result, what, id string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return model.NotFoundf("%s %s", what, id)
	}
	return nil
}
