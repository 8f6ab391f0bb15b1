package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgStore is a PostgreSQL-backed activity log.
type PgStore struct {
	pool *pgxpool.Pool
}

// NewPgStore creates a PgStore.
func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

// EnsureSchema creates the task_events table if it doesn't exist.
func (s *PgStore) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS task_events (
			id         TEXT PRIMARY KEY,
			task_id    BIGINT NOT NULL,
			action     TEXT NOT NULL,
			detail     JSONB NOT NULL DEFAULT '{}',
			created_at TIMESTAMPTZ NOT NULL
		)`)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `CREATE INDEX IF NOT EXISTS idx_task_events_task ON task_events(task_id)`)
	return err
}

// Record appends one event.
func (s *PgStore) Record(ctx context.Context, taskID int64, action string, detail map[string]any) error {
	if detail == nil {
		detail = map[string]any{}
	}
	detailJSON, err := json.Marshal(detail)
	if err != nil {
		return fmt.Errorf("marshal detail: %w", err)
	}
	id := uuid.Must(uuid.NewV7()).String()
	now := time.Now().Truncate(time.Microsecond)
	_, err = s.pool.Exec(ctx, `
		INSERT INTO task_events (id, task_id, action, detail, created_at)
		VALUES ($1, $2, $3, $4::jsonb, $5)`,
		id, taskID, action, string(detailJSON), now)
	if err != nil {
		return fmt.Errorf("record event: %w", err)
	}
	return nil
}

// ForTask returns a task's trail, oldest first.
func (s *PgStore) ForTask(ctx context.Context, taskID int64) ([]Event, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, task_id, action, detail, created_at
		FROM task_events WHERE task_id = $1 ORDER BY id ASC`, taskID)
	if err != nil {
		return nil, fmt.Errorf("events for task %d: %w", taskID, err)
	}
	defer rows.Close()
	return scanEventRows(rows)
}

// Recent returns the newest events across all tasks.
func (s *PgStore) Recent(ctx context.Context, limit int) ([]Event, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, task_id, action, detail, created_at
		FROM task_events ORDER BY id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent events: %w", err)
	}
	defer rows.Close()
	return scanEventRows(rows)
}

func scanEventRows(rows pgx.Rows) ([]Event, error) {
	var events []Event
	for rows.Next() {
		var e Event
		var detailJSON []byte
		if err := rows.Scan(&e.ID, &e.TaskID, &e.Action, &detailJSON, &e.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(detailJSON, &e.Detail); err != nil {
			e.Detail = map[string]any{}
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration: %w", err)
	}
	return events, nil
}
