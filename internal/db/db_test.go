package db

import (
	"path/filepath"
	"testing"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	d, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	if err := d.Migrate(); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return d
}

func TestMigrateIsIdempotent(t *testing.T) {
	d := openTestDB(t)
	if err := d.Migrate(); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}
}

func TestRunLifecycle(t *testing.T) {
	d := openTestDB(t)

	if err := d.RecordRunStart("abc123", "/tmp/trace.json", "/tmp/out"); err != nil {
		t.Fatalf("RecordRunStart: %v", err)
	}
	if err := d.RecordRunEnd("abc123", true); err != nil {
		t.Fatalf("RecordRunEnd: %v", err)
	}

	runs, err := d.RecentRuns(10)
	if err != nil {
		t.Fatalf("RecentRuns: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("runs = %d, want 1", len(runs))
	}
	r := runs[0]
	if r.RunID != "abc123" || !r.Success.Valid || !r.Success.Bool || !r.EndedAt.Valid {
		t.Errorf("run row = %+v", r)
	}
}

func TestStageEvents(t *testing.T) {
	d := openTestDB(t)

	if err := d.RecordStageEvent("abc123", "rca", "stage_start", "", "", 0, ""); err != nil {
		t.Fatalf("RecordStageEvent: %v", err)
	}
	if err := d.RecordStageEvent("abc123", "rca", "stage_end", "succeeded", "tight_regex", 1200, ""); err != nil {
		t.Fatalf("RecordStageEvent: %v", err)
	}

	events, err := d.StageEvents("abc123")
	if err != nil {
		t.Fatalf("StageEvents: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("events = %d, want 2", len(events))
	}
	end := events[1]
	if end.Event != "stage_end" || end.Status.String != "succeeded" || end.Strategy.String != "tight_regex" || end.DurationMs.Int64 != 1200 {
		t.Errorf("stage_end row = %+v", end)
	}
}

func TestStageEventCheckConstraint(t *testing.T) {
	d := openTestDB(t)
	if err := d.RecordStageEvent("x", "rca", "bogus_event", "", "", 0, ""); err == nil {
		t.Fatal("expected CHECK constraint violation")
	}
}

func TestReset(t *testing.T) {
	d := openTestDB(t)
	if err := d.RecordRunStart("abc", "t", "o"); err != nil {
		t.Fatal(err)
	}
	if err := d.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	runs, err := d.RecentRuns(10)
	if err != nil {
		t.Fatalf("RecentRuns after reset: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("runs after reset = %d, want 0", len(runs))
	}
}
