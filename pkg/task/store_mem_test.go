package task

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// memStore is an in-memory Store used by the engine tests. UpdateMany
// mimics the transactional contract: it validates the whole batch before
// touching anything, so a missing id leaves the store unchanged.
type memStore struct {
	tasks  map[int64]Task
	nextID int64
}

func newMemStore() *memStore {
	return &memStore{tasks: map[int64]Task{}}
}

func (m *memStore) put(t Task) {
	if t.ID >= m.nextID {
		m.nextID = t.ID + 1
	}
	m.tasks[t.ID] = t
}

func (m *memStore) FindAll(ctx context.Context) ([]Task, error) {
	out := make([]Task, 0, len(m.tasks))
	for _, t := range m.tasks {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ListNumber < out[j].ListNumber })
	return out, nil
}

func (m *memStore) FindByStatus(ctx context.Context, status Status) ([]Task, error) {
	var out []Task
	for _, t := range m.tasks {
		if t.Status == status {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) FindByID(ctx context.Context, id int64) (*Task, error) {
	t, ok := m.tasks[id]
	if !ok {
		return nil, fmt.Errorf("task %d: %w", id, ErrNotFound)
	}
	return &t, nil
}

func (m *memStore) Create(ctx context.Context, t *Task) (*Task, error) {
	if m.nextID == 0 {
		m.nextID = 1
	}
	created := *t
	created.ID = m.nextID
	m.nextID++
	var max int64
	for _, existing := range m.tasks {
		if existing.ListNumber > max {
			max = existing.ListNumber
		}
	}
	created.ListNumber = max + 1
	m.tasks[created.ID] = created
	return &created, nil
}

func (m *memStore) Update(ctx context.Context, id int64, updates map[string]any) (*Task, error) {
	t, ok := m.tasks[id]
	if !ok {
		return nil, fmt.Errorf("task %d: %w", id, ErrNotFound)
	}
	for k, v := range updates {
		switch k {
		case "name":
			t.Name = v.(string)
		case "description":
			t.Description = v.(string)
		case "status":
			t.Status = Status(v.(string))
		case "defined_time":
			t.DefinedTime = v.(string)
		case "redefined_time":
			t.RedefinedTime = v.(string)
		case "remaining_time":
			s := v.(string)
			t.RemainingTime = &s
		case "started_at":
			tv := v.(time.Time)
			t.StartedAt = &tv
		case "finish_in":
			tv := v.(time.Time)
			t.FinishIn = &tv
		case "completed_at":
			tv := v.(time.Time)
			t.CompletedAt = &tv
		case "paused_in":
			tv := v.(time.Time)
			t.PausedIn = &tv
		}
	}
	m.tasks[id] = t
	return &t, nil
}

func (m *memStore) UpdateMany(ctx context.Context, order []ListPosition) ([]Task, error) {
	for _, pos := range order {
		if _, ok := m.tasks[pos.ID]; !ok {
			return nil, fmt.Errorf("reorder task %d: %w", pos.ID, ErrNotFound)
		}
	}
	out := make([]Task, 0, len(order))
	for _, pos := range order {
		t := m.tasks[pos.ID]
		t.ListNumber = pos.ListNumber
		m.tasks[pos.ID] = t
		out = append(out, t)
	}
	return out, nil
}

func (m *memStore) Delete(ctx context.Context, id int64) (*Task, error) {
	t, ok := m.tasks[id]
	if !ok {
		return nil, fmt.Errorf("task %d: %w", id, ErrNotFound)
	}
	delete(m.tasks, id)
	return &t, nil
}

func (m *memStore) DeleteAll(ctx context.Context) (int64, error) {
	n := int64(len(m.tasks))
	m.tasks = map[int64]Task{}
	return n, nil
}

func (m *memStore) CreateMany(ctx context.Context, tasks []Task) (int64, error) {
	for i := range tasks {
		if _, err := m.Create(ctx, &tasks[i]); err != nil {
			return 0, err
		}
	}
	return int64(len(tasks)), nil
}

func (m *memStore) EnsureSchema(ctx context.Context) error { return nil }
