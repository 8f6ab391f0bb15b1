package task

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore is an embedded task store, for running without PostgreSQL.
// Timestamps are stored as RFC 3339 text in UTC.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore opens (creating if needed) the database at path.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite pragma %q: %w", p, err)
		}
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// DB exposes the handle so other stores (the activity log) can share the
// same database file.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

// EnsureSchema creates the tasks table if it doesn't exist.
func (s *SQLiteStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS tasks (
			id             INTEGER PRIMARY KEY AUTOINCREMENT,
			name           TEXT NOT NULL,
			description    TEXT NOT NULL DEFAULT '',
			status         TEXT NOT NULL DEFAULT 'todo',
			defined_time   TEXT NOT NULL,
			redefined_time TEXT NOT NULL,
			remaining_time TEXT,
			started_at     TEXT,
			finish_in      TEXT,
			completed_at   TEXT,
			paused_in      TEXT,
			list_number    INTEGER NOT NULL DEFAULT 0
		)`)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status)`)
	return err
}

// FindAll returns every task ordered by list_number ascending.
func (s *SQLiteStore) FindAll(ctx context.Context) ([]Task, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+taskColumns+` FROM tasks ORDER BY list_number ASC`)
	if err != nil {
		return nil, fmt.Errorf("find all tasks: %w", err)
	}
	defer rows.Close()
	return collectSQLTasks(rows)
}

// FindByStatus returns tasks with the given status, ordered by id.
func (s *SQLiteStore) FindByStatus(ctx context.Context, status Status) ([]Task, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE status = ? ORDER BY id ASC`, string(status))
	if err != nil {
		return nil, fmt.Errorf("find tasks by status: %w", err)
	}
	defer rows.Close()
	return collectSQLTasks(rows)
}

// FindByID retrieves a single task by id.
func (s *SQLiteStore) FindByID(ctx context.Context, id int64) (*Task, error) {
	t, err := scanSQLTask(s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("task %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get task %d: %w", id, err)
	}
	return t, nil
}

// Create inserts a new task, assigning the id and the next list_number.
func (s *SQLiteStore) Create(ctx context.Context, t *Task) (*Task, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (name, description, status, defined_time, redefined_time, remaining_time, started_at, finish_in, completed_at, paused_in, list_number)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, (SELECT COALESCE(MAX(list_number), 0) + 1 FROM tasks))`,
		t.Name, t.Description, string(t.Status), t.DefinedTime, t.RedefinedTime, nullString(t.RemainingTime),
		sqlTime(t.StartedAt), sqlTime(t.FinishIn), sqlTime(t.CompletedAt), sqlTime(t.PausedIn))
	if err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("create task id: %w", err)
	}
	return s.FindByID(ctx, id)
}

// Update modifies task fields; see PgStore.Update for the supported keys.
func (s *SQLiteStore) Update(ctx context.Context, id int64, updates map[string]any) (*Task, error) {
	setClauses := "id = id"
	args := []any{}

	for _, k := range []string{"name", "description", "status", "defined_time", "redefined_time", "remaining_time", "started_at", "finish_in", "completed_at", "paused_in"} {
		v, ok := updates[k]
		if !ok {
			continue
		}
		if tv, isTime := v.(time.Time); isTime {
			v = tv.UTC().Format(time.RFC3339Nano)
		}
		setClauses += ", " + k + " = ?"
		args = append(args, v)
	}
	args = append(args, id)

	res, err := s.db.ExecContext(ctx, "UPDATE tasks SET "+setClauses+" WHERE id = ?", args...)
	if err != nil {
		return nil, fmt.Errorf("update task %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("update task %d: %w", id, err)
	}
	if n == 0 {
		return nil, fmt.Errorf("task %d: %w", id, ErrNotFound)
	}
	return s.FindByID(ctx, id)
}

// UpdateMany reassigns list positions in a single transaction. Any missing
// id rolls the whole batch back. Results are in input order.
func (s *SQLiteStore) UpdateMany(ctx context.Context, order []ListPosition) ([]Task, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, pos := range order {
		res, err := tx.ExecContext(ctx, `UPDATE tasks SET list_number = ? WHERE id = ?`, pos.ListNumber, pos.ID)
		if err != nil {
			return nil, fmt.Errorf("reorder task %d: %w", pos.ID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("reorder task %d: %w", pos.ID, err)
		}
		if n == 0 {
			return nil, fmt.Errorf("reorder task %d: %w", pos.ID, ErrNotFound)
		}
	}

	tasks := make([]Task, 0, len(order))
	for _, pos := range order {
		t, err := scanSQLTask(tx.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, pos.ID))
		if err != nil {
			return nil, fmt.Errorf("reorder task %d: %w", pos.ID, err)
		}
		tasks = append(tasks, *t)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit reorder: %w", err)
	}
	return tasks, nil
}

// Delete removes a task and returns its last state.
func (s *SQLiteStore) Delete(ctx context.Context, id int64) (*Task, error) {
	t, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id); err != nil {
		return nil, fmt.Errorf("delete task %d: %w", id, err)
	}
	return t, nil
}

// DeleteAll removes every task.
func (s *SQLiteStore) DeleteAll(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks`)
	if err != nil {
		return 0, fmt.Errorf("delete all tasks: %w", err)
	}
	return res.RowsAffected()
}

// CreateMany bulk-inserts tasks in one transaction, assigning list numbers
// sequentially after the current maximum.
func (s *SQLiteStore) CreateMany(ctx context.Context, tasks []Task) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var next int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(list_number), 0) + 1 FROM tasks`).Scan(&next); err != nil {
		return 0, fmt.Errorf("next list_number: %w", err)
	}

	for i, t := range tasks {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO tasks (name, description, status, defined_time, redefined_time, remaining_time, started_at, finish_in, completed_at, paused_in, list_number)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			t.Name, t.Description, string(t.Status), t.DefinedTime, t.RedefinedTime, nullString(t.RemainingTime),
			sqlTime(t.StartedAt), sqlTime(t.FinishIn), sqlTime(t.CompletedAt), sqlTime(t.PausedIn), next+int64(i))
		if err != nil {
			return 0, fmt.Errorf("create task %q: %w", t.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit create many: %w", err)
	}
	return int64(len(tasks)), nil
}

type sqlScanner interface {
	Scan(dest ...any) error
}

func scanSQLTask(row sqlScanner) (*Task, error) {
	var t Task
	var status string
	var remaining, startedAt, finishIn, completedAt, pausedIn sql.NullString
	err := row.Scan(&t.ID, &t.Name, &t.Description, &status, &t.DefinedTime, &t.RedefinedTime,
		&remaining, &startedAt, &finishIn, &completedAt, &pausedIn, &t.ListNumber)
	if err != nil {
		return nil, err
	}
	t.Status = Status(status)
	if remaining.Valid {
		v := remaining.String
		t.RemainingTime = &v
	}
	if t.StartedAt, err = parseSQLTime(startedAt); err != nil {
		return nil, fmt.Errorf("started_at: %w", err)
	}
	if t.FinishIn, err = parseSQLTime(finishIn); err != nil {
		return nil, fmt.Errorf("finish_in: %w", err)
	}
	if t.CompletedAt, err = parseSQLTime(completedAt); err != nil {
		return nil, fmt.Errorf("completed_at: %w", err)
	}
	if t.PausedIn, err = parseSQLTime(pausedIn); err != nil {
		return nil, fmt.Errorf("paused_in: %w", err)
	}
	return &t, nil
}

func collectSQLTasks(rows *sql.Rows) ([]Task, error) {
	var tasks []Task
	for rows.Next() {
		t, err := scanSQLTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration: %w", err)
	}
	return tasks, nil
}

func sqlTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func nullString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func parseSQLTime(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
