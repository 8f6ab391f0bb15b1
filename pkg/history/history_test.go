package history

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"
)

func openTestLog(t *testing.T) *SQLiteStore {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	log := NewSQLiteStore(db)
	if err := log.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	return log
}

// TestLogRoundTrip verifies events land per task, oldest first, with their
// detail payloads intact.
func TestLogRoundTrip(t *testing.T) {
	log := openTestLog(t)
	ctx := context.Background()

	if err := log.Record(ctx, 1, "created", map[string]any{"name": "demo"}); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := log.Record(ctx, 1, "updated", map[string]any{"status": "in_progress"}); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := log.Record(ctx, 2, "created", nil); err != nil {
		t.Fatalf("record: %v", err)
	}

	trail, err := log.ForTask(ctx, 1)
	if err != nil {
		t.Fatalf("for task: %v", err)
	}
	if len(trail) != 2 {
		t.Fatalf("trail length = %d, want 2", len(trail))
	}
	if trail[0].Action != "created" || trail[1].Action != "updated" {
		t.Errorf("trail actions = [%s %s], want oldest first", trail[0].Action, trail[1].Action)
	}
	if trail[0].Detail["name"] != "demo" {
		t.Errorf("detail = %v, want name=demo", trail[0].Detail)
	}
	if trail[0].CreatedAt.IsZero() {
		t.Error("created_at not set")
	}
}

// TestLogRecent verifies the cross-task listing honors its limit and
// returns newest first.
func TestLogRecent(t *testing.T) {
	log := openTestLog(t)
	ctx := context.Background()

	for i := int64(1); i <= 5; i++ {
		if err := log.Record(ctx, i, "created", nil); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	recent, err := log.Recent(ctx, 3)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 3 {
		t.Fatalf("recent length = %d, want 3", len(recent))
	}
	if recent[0].TaskID != 5 {
		t.Errorf("recent[0].TaskID = %d, want newest (5)", recent[0].TaskID)
	}
}

// TestLogNilDetail verifies a nil detail map round-trips as an empty object.
func TestLogNilDetail(t *testing.T) {
	log := openTestLog(t)
	ctx := context.Background()

	if err := log.Record(ctx, 7, "deleted", nil); err != nil {
		t.Fatalf("record: %v", err)
	}
	trail, err := log.ForTask(ctx, 7)
	if err != nil {
		t.Fatalf("for task: %v", err)
	}
	if trail[0].Detail == nil || len(trail[0].Detail) != 0 {
		t.Errorf("detail = %v, want empty map", trail[0].Detail)
	}
}
