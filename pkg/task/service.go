package task

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"
)

// Limits on user-supplied fields, matching the API contract.
const (
	MaxNameLen        = 100
	MaxDescriptionLen = 300
)

// Recorder receives task mutation events for the activity trail. Recording is
// best-effort: the service logs recorder failures and never fails a mutation
// because of one.
type Recorder interface {
	Record(ctx context.Context, taskID int64, action string, detail map[string]any) error
}

// Service implements the task lifecycle, the atomic reorder batch, and the
// statistics report on top of a Store.
//
// Service holds no mutable state between calls; every invocation re-reads
// from the store. "Now" comes from an injected clock so deadline computation
// and the stats calendar are deterministic under test.
type Service struct {
	store Store
	rec   Recorder
	now   func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the wall clock.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithRecorder attaches an activity trail recorder.
func WithRecorder(r Recorder) Option {
	return func(s *Service) { s.rec = r }
}

// NewService creates a Service over the given store.
func NewService(store Store, opts ...Option) *Service {
	s := &Service{store: store, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateInput is the payload for CreateTask.
type CreateInput struct {
	Name          string `json:"name"`
	Description   string `json:"description"`
	DefinedTime   string `json:"defined_time"`
	RedefinedTime string `json:"redefined_time"`
}

// UpdateInput is the payload for UpdateTask. Nil pointer fields are left
// unchanged. FinishIn is absent on purpose: it is derived, never user-set.
type UpdateInput struct {
	ID            int64      `json:"id"`
	Name          *string    `json:"name,omitempty"`
	Description   *string    `json:"description,omitempty"`
	Status        *Status    `json:"status,omitempty"`
	DefinedTime   *string    `json:"defined_time,omitempty"`
	RedefinedTime *string    `json:"redefined_time,omitempty"`
	RemainingTime *string    `json:"remaining_time,omitempty"`
	StartedAt     *time.Time `json:"started_at,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	PausedIn      *time.Time `json:"paused_in,omitempty"`
}

// GetAllTasks returns every task ordered by list_number ascending.
func (s *Service) GetAllTasks(ctx context.Context) ([]Task, error) {
	return s.store.FindAll(ctx)
}

// GetTaskByID returns one task or ErrNotFound.
func (s *Service) GetTaskByID(ctx context.Context, id int64) (*Task, error) {
	return s.store.FindByID(ctx, id)
}

// CreateTask validates the input and inserts a new task. Status starts at
// todo, redefined_time defaults to defined_time, and the store assigns the
// id and the next list_number.
func (s *Service) CreateTask(ctx context.Context, in CreateInput) (*Task, error) {
	if in.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}
	if len(in.Name) > MaxNameLen {
		return nil, fmt.Errorf("%w: name exceeds %d characters", ErrValidation, MaxNameLen)
	}
	if len(in.Description) > MaxDescriptionLen {
		return nil, fmt.Errorf("%w: description exceeds %d characters", ErrValidation, MaxDescriptionLen)
	}
	if _, err := parseMillis(in.DefinedTime); err != nil {
		return nil, fmt.Errorf("%w: defined_time: %v", ErrValidation, err)
	}
	redefined := in.RedefinedTime
	if redefined == "" {
		redefined = in.DefinedTime
	} else if _, err := parseMillis(redefined); err != nil {
		return nil, fmt.Errorf("%w: redefined_time: %v", ErrValidation, err)
	}

	t := &Task{
		Name:          in.Name,
		Description:   in.Description,
		Status:        StatusTodo,
		DefinedTime:   in.DefinedTime,
		RedefinedTime: redefined,
	}
	created, err := s.store.Create(ctx, t)
	if err != nil {
		return nil, err
	}
	s.record(ctx, created.ID, "created", map[string]any{"name": created.Name})
	return created, nil
}

// UpdateTask applies a partial update to one task.
//
// When the new status is active (in_progress or continuing) the deadline is
// recomputed unconditionally: finish_in = now + redefined_time of the merged
// record. Re-activating a paused task therefore restarts the countdown from
// redefined_time; preserving elapsed progress is the caller's job, done by
// updating redefined_time before resuming. Every other field is merged
// verbatim with no derived computation.
func (s *Service) UpdateTask(ctx context.Context, in UpdateInput) (*Task, error) {
	existing, err := s.store.FindByID(ctx, in.ID)
	if err != nil {
		return nil, err
	}

	updates, err := s.buildUpdates(in)
	if err != nil {
		return nil, err
	}

	if in.Status != nil && in.Status.Active() {
		redefined := existing.RedefinedTime
		if in.RedefinedTime != nil {
			redefined = *in.RedefinedTime
		}
		ms, err := parseMillis(redefined)
		if err != nil {
			return nil, fmt.Errorf("%w: redefined_time: %v", ErrValidation, err)
		}
		finishIn := s.now().Add(time.Duration(ms) * time.Millisecond)
		updates["finish_in"] = finishIn
	}

	updated, err := s.store.Update(ctx, in.ID, updates)
	if err != nil {
		return nil, err
	}
	s.record(ctx, updated.ID, "updated", map[string]any{"status": string(updated.Status)})
	return updated, nil
}

func (s *Service) buildUpdates(in UpdateInput) (map[string]any, error) {
	updates := map[string]any{}
	if in.Name != nil {
		if *in.Name == "" {
			return nil, fmt.Errorf("%w: name cannot be empty", ErrValidation)
		}
		if len(*in.Name) > MaxNameLen {
			return nil, fmt.Errorf("%w: name exceeds %d characters", ErrValidation, MaxNameLen)
		}
		updates["name"] = *in.Name
	}
	if in.Description != nil {
		if len(*in.Description) > MaxDescriptionLen {
			return nil, fmt.Errorf("%w: description exceeds %d characters", ErrValidation, MaxDescriptionLen)
		}
		updates["description"] = *in.Description
	}
	if in.Status != nil {
		if !in.Status.Valid() {
			return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, *in.Status)
		}
		updates["status"] = string(*in.Status)
	}
	if in.DefinedTime != nil {
		if _, err := parseMillis(*in.DefinedTime); err != nil {
			return nil, fmt.Errorf("%w: defined_time: %v", ErrValidation, err)
		}
		updates["defined_time"] = *in.DefinedTime
	}
	if in.RedefinedTime != nil {
		if _, err := parseMillis(*in.RedefinedTime); err != nil {
			return nil, fmt.Errorf("%w: redefined_time: %v", ErrValidation, err)
		}
		updates["redefined_time"] = *in.RedefinedTime
	}
	if in.RemainingTime != nil {
		if _, err := parseMillis(*in.RemainingTime); err != nil {
			return nil, fmt.Errorf("%w: remaining_time: %v", ErrValidation, err)
		}
		updates["remaining_time"] = *in.RemainingTime
	}
	if in.StartedAt != nil {
		updates["started_at"] = *in.StartedAt
	}
	if in.CompletedAt != nil {
		updates["completed_at"] = *in.CompletedAt
	}
	if in.PausedIn != nil {
		updates["paused_in"] = *in.PausedIn
	}
	return updates, nil
}

// ReorderTasks applies a batch of list position assignments atomically:
// either every assignment commits or none do. A missing id fails the whole
// batch with ErrNotFound and leaves the store untouched. Assignments are
// applied literally; uniqueness and gaps are the caller's concern. Results
// come back in input order.
func (s *Service) ReorderTasks(ctx context.Context, order []ListPosition) ([]Task, error) {
	if len(order) == 0 {
		return []Task{}, nil
	}
	updated, err := s.store.UpdateMany(ctx, order)
	if err != nil {
		return nil, err
	}
	for _, pos := range order {
		s.record(ctx, pos.ID, "reordered", map[string]any{"list_number": pos.ListNumber})
	}
	return updated, nil
}

// DeleteTask removes one task and returns its last state.
func (s *Service) DeleteTask(ctx context.Context, id int64) (*Task, error) {
	deleted, err := s.store.Delete(ctx, id)
	if err != nil {
		return nil, err
	}
	s.record(ctx, id, "deleted", map[string]any{"name": deleted.Name})
	return deleted, nil
}

// DeleteAllTasks removes every task and returns how many were deleted.
func (s *Service) DeleteAllTasks(ctx context.Context) (int64, error) {
	return s.store.DeleteAll(ctx)
}

func (s *Service) record(ctx context.Context, taskID int64, action string, detail map[string]any) {
	if s.rec == nil {
		return
	}
	if err := s.rec.Record(ctx, taskID, action, detail); err != nil {
		log.Printf("record %s for task %d: %v", action, taskID, err)
	}
}

// parseMillis parses a string-encoded millisecond count.
func parseMillis(v string) (int64, error) {
	ms, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not an integer millisecond count", v)
	}
	return ms, nil
}
