package history

import (
	"context"
	"time"
)

// Event is one entry in the append-only task activity trail.
type Event struct {
	ID        string         `json:"id"` // UUID v7 (time-ordered)
	TaskID    int64          `json:"task_id"`
	Action    string         `json:"action"` // created, updated, reordered, deleted
	Detail    map[string]any `json:"detail"`
	CreatedAt time.Time      `json:"created_at"`
}

// Log is the contract for activity trail persistence.
type Log interface {
	Record(ctx context.Context, taskID int64, action string, detail map[string]any) error
	ForTask(ctx context.Context, taskID int64) ([]Event, error)
	Recent(ctx context.Context, limit int) ([]Event, error)
	EnsureSchema(ctx context.Context) error
}
