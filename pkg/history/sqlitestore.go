package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SQLiteStore is an embedded activity log sharing the task database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore wraps an already-open database handle.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// EnsureSchema creates the task_events table if it doesn't exist.
func (s *SQLiteStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS task_events (
			id         TEXT PRIMARY KEY,
			task_id    INTEGER NOT NULL,
			action     TEXT NOT NULL,
			detail     TEXT NOT NULL DEFAULT '{}',
			created_at TEXT NOT NULL
		)`)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_task_events_task ON task_events(task_id)`)
	return err
}

// Record appends one event.
func (s *SQLiteStore) Record(ctx context.Context, taskID int64, action string, detail map[string]any) error {
	if detail == nil {
		detail = map[string]any{}
	}
	detailJSON, err := json.Marshal(detail)
	if err != nil {
		return fmt.Errorf("marshal detail: %w", err)
	}
	id := uuid.Must(uuid.NewV7()).String()
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO task_events (id, task_id, action, detail, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		id, taskID, action, string(detailJSON), now)
	if err != nil {
		return fmt.Errorf("record event: %w", err)
	}
	return nil
}

// ForTask returns a task's trail, oldest first.
func (s *SQLiteStore) ForTask(ctx context.Context, taskID int64) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, task_id, action, detail, created_at
		FROM task_events WHERE task_id = ? ORDER BY id ASC`, taskID)
	if err != nil {
		return nil, fmt.Errorf("events for task %d: %w", taskID, err)
	}
	defer rows.Close()
	return collectEvents(rows)
}

// Recent returns the newest events across all tasks.
func (s *SQLiteStore) Recent(ctx context.Context, limit int) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, task_id, action, detail, created_at
		FROM task_events ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent events: %w", err)
	}
	defer rows.Close()
	return collectEvents(rows)
}

func collectEvents(rows *sql.Rows) ([]Event, error) {
	var events []Event
	for rows.Next() {
		var e Event
		var detailJSON, createdAt string
		if err := rows.Scan(&e.ID, &e.TaskID, &e.Action, &detailJSON, &createdAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(detailJSON), &e.Detail); err != nil {
			e.Detail = map[string]any{}
		}
		t, err := time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("created_at: %w", err)
		}
		e.CreatedAt = t
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration: %w", err)
	}
	return events, nil
}
