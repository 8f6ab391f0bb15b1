package task

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const taskColumns = "id, name, description, status, defined_time, redefined_time, remaining_time, started_at, finish_in, completed_at, paused_in, list_number"

// PgStore is a PostgreSQL-backed task store.
type PgStore struct {
	pool *pgxpool.Pool
}

// NewPgStore creates a PgStore.
func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

// EnsureSchema creates the tasks table if it doesn't exist.
func (s *PgStore) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS tasks (
			id             BIGSERIAL PRIMARY KEY,
			name           TEXT NOT NULL,
			description    TEXT NOT NULL DEFAULT '',
			status         TEXT NOT NULL DEFAULT 'todo',
			defined_time   TEXT NOT NULL,
			redefined_time TEXT NOT NULL,
			remaining_time TEXT,
			started_at     TIMESTAMPTZ,
			finish_in      TIMESTAMPTZ,
			completed_at   TIMESTAMPTZ,
			paused_in      TIMESTAMPTZ,
			list_number    BIGINT NOT NULL DEFAULT 0
		)`)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status)`)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `CREATE INDEX IF NOT EXISTS idx_tasks_list_number ON tasks(list_number)`)
	return err
}

// FindAll returns every task ordered by list_number ascending.
func (s *PgStore) FindAll(ctx context.Context) ([]Task, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+taskColumns+` FROM tasks ORDER BY list_number ASC`)
	if err != nil {
		return nil, fmt.Errorf("find all tasks: %w", err)
	}
	defer rows.Close()
	return scanTaskRows(rows)
}

// FindByStatus returns tasks with the given status, ordered by id.
func (s *PgStore) FindByStatus(ctx context.Context, status Status) ([]Task, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+taskColumns+` FROM tasks WHERE status = $1 ORDER BY id ASC`, string(status))
	if err != nil {
		return nil, fmt.Errorf("find tasks by status: %w", err)
	}
	defer rows.Close()
	return scanTaskRows(rows)
}

// FindByID retrieves a single task by id.
func (s *PgStore) FindByID(ctx context.Context, id int64) (*Task, error) {
	var t Task
	err := s.pool.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id).
		Scan(&t.ID, &t.Name, &t.Description, &t.Status, &t.DefinedTime, &t.RedefinedTime, &t.RemainingTime, &t.StartedAt, &t.FinishIn, &t.CompletedAt, &t.PausedIn, &t.ListNumber)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("task %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get task %d: %w", id, err)
	}
	return &t, nil
}

// Create inserts a new task, assigning the id and the next list_number.
func (s *PgStore) Create(ctx context.Context, t *Task) (*Task, error) {
	var created Task
	err := s.pool.QueryRow(ctx, `
		INSERT INTO tasks (name, description, status, defined_time, redefined_time, remaining_time, started_at, finish_in, completed_at, paused_in, list_number)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, (SELECT COALESCE(MAX(list_number), 0) + 1 FROM tasks))
		RETURNING `+taskColumns,
		t.Name, t.Description, string(t.Status), t.DefinedTime, t.RedefinedTime, t.RemainingTime, t.StartedAt, t.FinishIn, t.CompletedAt, t.PausedIn).
		Scan(&created.ID, &created.Name, &created.Description, &created.Status, &created.DefinedTime, &created.RedefinedTime, &created.RemainingTime, &created.StartedAt, &created.FinishIn, &created.CompletedAt, &created.PausedIn, &created.ListNumber)
	if err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	return &created, nil
}

// Update modifies task fields. Supported keys: name, description, status,
// defined_time, redefined_time, remaining_time, started_at, finish_in,
// completed_at, paused_in.
func (s *PgStore) Update(ctx context.Context, id int64, updates map[string]any) (*Task, error) {
	setClauses := "id = id"
	args := []any{}
	argIdx := 1

	for _, k := range []string{"name", "description", "status", "defined_time", "redefined_time", "remaining_time", "started_at", "finish_in", "completed_at", "paused_in"} {
		v, ok := updates[k]
		if !ok {
			continue
		}
		setClauses += fmt.Sprintf(", %s = $%d", k, argIdx)
		args = append(args, v)
		argIdx++
	}

	args = append(args, id)
	query := fmt.Sprintf("UPDATE tasks SET %s WHERE id = $%d RETURNING %s", setClauses, argIdx, taskColumns)

	var t Task
	err := s.pool.QueryRow(ctx, query, args...).
		Scan(&t.ID, &t.Name, &t.Description, &t.Status, &t.DefinedTime, &t.RedefinedTime, &t.RemainingTime, &t.StartedAt, &t.FinishIn, &t.CompletedAt, &t.PausedIn, &t.ListNumber)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("task %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("update task %d: %w", id, err)
	}
	return &t, nil
}

// UpdateMany reassigns list positions in a single transaction. Any missing
// id rolls the whole batch back. Results are in input order.
func (s *PgStore) UpdateMany(ctx context.Context, order []ListPosition) ([]Task, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	tasks := make([]Task, 0, len(order))
	for _, pos := range order {
		var t Task
		err := tx.QueryRow(ctx, `UPDATE tasks SET list_number = $1 WHERE id = $2 RETURNING `+taskColumns, pos.ListNumber, pos.ID).
			Scan(&t.ID, &t.Name, &t.Description, &t.Status, &t.DefinedTime, &t.RedefinedTime, &t.RemainingTime, &t.StartedAt, &t.FinishIn, &t.CompletedAt, &t.PausedIn, &t.ListNumber)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("reorder task %d: %w", pos.ID, ErrNotFound)
		}
		if err != nil {
			return nil, fmt.Errorf("reorder task %d: %w", pos.ID, err)
		}
		tasks = append(tasks, t)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit reorder: %w", err)
	}
	return tasks, nil
}

// Delete removes a task and returns its last state.
func (s *PgStore) Delete(ctx context.Context, id int64) (*Task, error) {
	var t Task
	err := s.pool.QueryRow(ctx, `DELETE FROM tasks WHERE id = $1 RETURNING `+taskColumns, id).
		Scan(&t.ID, &t.Name, &t.Description, &t.Status, &t.DefinedTime, &t.RedefinedTime, &t.RemainingTime, &t.StartedAt, &t.FinishIn, &t.CompletedAt, &t.PausedIn, &t.ListNumber)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("task %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("delete task %d: %w", id, err)
	}
	return &t, nil
}

// DeleteAll removes every task.
func (s *PgStore) DeleteAll(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM tasks`)
	if err != nil {
		return 0, fmt.Errorf("delete all tasks: %w", err)
	}
	return tag.RowsAffected(), nil
}

// CreateMany bulk-inserts tasks in one transaction, assigning list numbers
// sequentially after the current maximum.
func (s *PgStore) CreateMany(ctx context.Context, tasks []Task) (int64, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var next int64
	if err := tx.QueryRow(ctx, `SELECT COALESCE(MAX(list_number), 0) + 1 FROM tasks`).Scan(&next); err != nil {
		return 0, fmt.Errorf("next list_number: %w", err)
	}

	for i, t := range tasks {
		_, err := tx.Exec(ctx, `
			INSERT INTO tasks (name, description, status, defined_time, redefined_time, remaining_time, started_at, finish_in, completed_at, paused_in, list_number)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			t.Name, t.Description, string(t.Status), t.DefinedTime, t.RedefinedTime, t.RemainingTime, t.StartedAt, t.FinishIn, t.CompletedAt, t.PausedIn, next+int64(i))
		if err != nil {
			return 0, fmt.Errorf("create task %q: %w", t.Name, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit create many: %w", err)
	}
	return int64(len(tasks)), nil
}

func scanTaskRows(rows pgx.Rows) ([]Task, error) {
	var tasks []Task
	for rows.Next() {
		var t Task
		if err := rows.Scan(&t.ID, &t.Name, &t.Description, &t.Status, &t.DefinedTime, &t.RedefinedTime, &t.RemainingTime, &t.StartedAt, &t.FinishIn, &t.CompletedAt, &t.PausedIn, &t.ListNumber); err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration: %w", err)
	}
	return tasks, nil
}
