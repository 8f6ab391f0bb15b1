package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"tasktempo/pkg/history"
	"tasktempo/pkg/task"
)

var testClock = time.Date(2024, 9, 10, 12, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	store, err := task.OpenSQLiteStore(filepath.Join(t.TempDir(), "tasks.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	if err := store.EnsureSchema(t.Context()); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	hist := history.NewSQLiteStore(store.DB())
	if err := hist.EnsureSchema(t.Context()); err != nil {
		t.Fatalf("ensure history schema: %v", err)
	}

	svc := task.NewService(store,
		task.WithClock(func() time.Time { return testClock }),
		task.WithRecorder(hist),
	)
	ts := httptest.NewServer(New(svc, hist))
	t.Cleanup(ts.Close)
	return ts
}

func doJSON(t *testing.T, method, url string, body any, wantStatus int, out any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != wantStatus {
		t.Fatalf("%s %s: status %d, want %d", method, url, resp.StatusCode, wantStatus)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Errorf("%s %s: missing X-Request-ID header", method, url)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
}

// TestTaskLifecycleOverHTTP walks a task from creation through activation
// to completion, checking the computed deadline on the way.
func TestTaskLifecycleOverHTTP(t *testing.T) {
	ts := newTestServer(t)

	var created task.Task
	doJSON(t, "POST", ts.URL+"/api/tasks", task.CreateInput{
		Name:        "ship release",
		DefinedTime: "600000",
	}, 201, &created)
	if created.Status != task.StatusTodo {
		t.Errorf("status = %q, want todo", created.Status)
	}

	var active task.Task
	doJSON(t, "PATCH", fmt.Sprintf("%s/api/tasks/%d", ts.URL, created.ID),
		map[string]any{"status": "in_progress"}, 200, &active)
	want := testClock.Add(600000 * time.Millisecond)
	if active.FinishIn == nil || !active.FinishIn.Equal(want) {
		t.Errorf("finish_in = %v, want %v", active.FinishIn, want)
	}

	var done task.Task
	doJSON(t, "PATCH", fmt.Sprintf("%s/api/tasks/%d", ts.URL, created.ID),
		map[string]any{"status": "completed", "remaining_time": "0", "completed_at": "2024-09-10T12:10:00Z"}, 200, &done)
	if done.Status != task.StatusCompleted {
		t.Errorf("status = %q, want completed", done.Status)
	}

	var trail []history.Event
	doJSON(t, "GET", fmt.Sprintf("%s/api/tasks/%d/history", ts.URL, created.ID), nil, 200, &trail)
	if len(trail) != 3 {
		t.Errorf("history length = %d, want 3 (created + 2 updates)", len(trail))
	}
}

// TestReorderOverHTTP verifies the bulk reorder endpoint and the resulting
// list order.
func TestReorderOverHTTP(t *testing.T) {
	ts := newTestServer(t)

	var first, second task.Task
	doJSON(t, "POST", ts.URL+"/api/tasks", task.CreateInput{Name: "one", DefinedTime: "1000"}, 201, &first)
	doJSON(t, "POST", ts.URL+"/api/tasks", task.CreateInput{Name: "two", DefinedTime: "1000"}, 201, &second)

	var swapped []task.Task
	doJSON(t, "POST", ts.URL+"/api/tasks/reorder", []task.ListPosition{
		{ID: first.ID, ListNumber: 2},
		{ID: second.ID, ListNumber: 1},
	}, 200, &swapped)
	if len(swapped) != 2 || swapped[0].ID != first.ID || swapped[0].ListNumber != 2 {
		t.Errorf("swapped = %+v, want input order with new positions", swapped)
	}

	var all []task.Task
	doJSON(t, "GET", ts.URL+"/api/tasks", nil, 200, &all)
	if len(all) != 2 || all[0].ID != second.ID {
		t.Errorf("list order = %+v, want second task first", all)
	}

	// Batch with a bad id must change nothing.
	doJSON(t, "POST", ts.URL+"/api/tasks/reorder", []task.ListPosition{
		{ID: first.ID, ListNumber: 5},
		{ID: 9999, ListNumber: 6},
	}, 404, nil)
	doJSON(t, "GET", ts.URL+"/api/tasks", nil, 200, &all)
	if all[1].ID != first.ID || all[1].ListNumber != 2 {
		t.Errorf("state changed after failed batch: %+v", all)
	}
}

// TestStatsOverHTTP verifies the stats endpoint, including the empty-dataset
// status code.
func TestStatsOverHTTP(t *testing.T) {
	ts := newTestServer(t)

	doJSON(t, "GET", ts.URL+"/api/stats", nil, 422, nil)

	doJSON(t, "POST", ts.URL+"/api/tasks/seed", nil, 201, nil)

	var stats task.Stats
	doJSON(t, "GET", ts.URL+"/api/stats", nil, 200, &stats)
	c := stats.TaskCategories
	if c.Short+c.Medium+c.Long != 30 {
		t.Errorf("bucket sum = %d, want 30", c.Short+c.Medium+c.Long)
	}
	if stats.AverageCompletionTime <= 0 {
		t.Errorf("averageCompletionTime = %v, want positive", stats.AverageCompletionTime)
	}
}

// TestErrorStatuses verifies the error-kind to HTTP status mapping.
func TestErrorStatuses(t *testing.T) {
	ts := newTestServer(t)

	doJSON(t, "GET", ts.URL+"/api/tasks/42", nil, 404, nil)
	doJSON(t, "DELETE", ts.URL+"/api/tasks/42", nil, 404, nil)
	doJSON(t, "GET", ts.URL+"/api/tasks/not-a-number", nil, 400, nil)
	doJSON(t, "POST", ts.URL+"/api/tasks", task.CreateInput{Name: "", DefinedTime: "1000"}, 400, nil)
	doJSON(t, "PATCH", ts.URL+"/api/tasks/42", map[string]any{"status": "archived"}, 404, nil)
}

// TestDeleteAllOverHTTP verifies bulk deletion reports the count.
func TestDeleteAllOverHTTP(t *testing.T) {
	ts := newTestServer(t)

	doJSON(t, "POST", ts.URL+"/api/tasks", task.CreateInput{Name: "a", DefinedTime: "1000"}, 201, nil)
	doJSON(t, "POST", ts.URL+"/api/tasks", task.CreateInput{Name: "b", DefinedTime: "1000"}, 201, nil)

	var result map[string]int64
	doJSON(t, "DELETE", ts.URL+"/api/tasks", nil, 200, &result)
	if result["deleted"] != 2 {
		t.Errorf("deleted = %d, want 2", result["deleted"])
	}

	var all []task.Task
	doJSON(t, "GET", ts.URL+"/api/tasks", nil, 200, &all)
	if len(all) != 0 {
		t.Errorf("tasks remain after delete all: %+v", all)
	}
}
