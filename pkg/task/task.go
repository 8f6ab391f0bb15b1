package task

import (
	"context"
	"errors"
	"time"
)

// Status is the lifecycle state of a task.
type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in_progress"
	StatusContinuing Status = "continuing" // alias for in_progress, used on resume
	StatusPaused     Status = "paused"
	StatusCompleted  Status = "completed"
)

// Active reports whether the status counts as "being worked on now".
// Transitions into an active status recompute the task's deadline.
func (s Status) Active() bool {
	return s == StatusInProgress || s == StatusContinuing
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusContinuing, StatusPaused, StatusCompleted:
		return true
	}
	return false
}

// Task represents a unit of work in the system.
//
// Durations are string-encoded millisecond counts: DefinedTime is the
// originally planned duration, RedefinedTime the duration applied each time
// the task (re)enters an active status, RemainingTime what was left when the
// task was last paused or completed.
type Task struct {
	ID            int64      `json:"id"`
	Name          string     `json:"name"`
	Description   string     `json:"description,omitempty"`
	Status        Status     `json:"status"`
	DefinedTime   string     `json:"defined_time"`
	RedefinedTime string     `json:"redefined_time"`
	RemainingTime *string    `json:"remaining_time,omitempty"`
	StartedAt     *time.Time `json:"started_at,omitempty"`
	FinishIn      *time.Time `json:"finish_in,omitempty"` // computed deadline, never user-set
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	PausedIn      *time.Time `json:"paused_in,omitempty"`
	ListNumber    int64      `json:"list_number"`
}

// ListPosition assigns a task a new position in the display order.
type ListPosition struct {
	ID         int64 `json:"id"`
	ListNumber int64 `json:"list_number"`
}

// Sentinel errors returned by stores and the service. Callers match with
// errors.Is.
var (
	ErrNotFound         = errors.New("task not found")
	ErrValidation       = errors.New("validation failed")
	ErrNoCompletedTasks = errors.New("no completed tasks")
)

// Store is the contract for task persistence.
//
// UpdateMany must apply the whole batch in one transaction: either every
// assignment commits or none do, and a missing id fails the batch with
// ErrNotFound.
type Store interface {
	FindAll(ctx context.Context) ([]Task, error) // ordered by list_number asc
	FindByStatus(ctx context.Context, status Status) ([]Task, error)
	FindByID(ctx context.Context, id int64) (*Task, error)
	Create(ctx context.Context, t *Task) (*Task, error)
	Update(ctx context.Context, id int64, updates map[string]any) (*Task, error)
	UpdateMany(ctx context.Context, order []ListPosition) ([]Task, error)
	Delete(ctx context.Context, id int64) (*Task, error)
	DeleteAll(ctx context.Context) (int64, error)
	CreateMany(ctx context.Context, tasks []Task) (int64, error)
	EnsureSchema(ctx context.Context) error
}
