package history

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"faceframe/internal/jobs"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func sampleOutcome(result jobs.Result, finished time.Time) jobs.Outcome {
	return jobs.Outcome{
		Kind:     jobs.KindScan,
		Folder:   "/photos",
		Provider: "CPUExecutionProvider",
		Result:   result,
		Message:  "",
		Progress: jobs.Progress{Current: 120, Total: 120},
		Started:  finished.Add(-time.Minute),
		Finished: finished,
	}
}

func TestRecordAndRecent(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		if _, err := store.Record(ctx, sampleOutcome(jobs.ResultComplete, base.Add(time.Duration(i)*time.Hour))); err != nil {
			t.Fatalf("Record returned error: %v", err)
		}
	}

	runs, err := store.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent returned error: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("got %d runs, want 2", len(runs))
	}
	if !runs[0].FinishedAt.After(runs[1].FinishedAt) {
		t.Fatalf("runs not newest-first: %v then %v", runs[0].FinishedAt, runs[1].FinishedAt)
	}
	if runs[0].Kind != jobs.KindScan || runs[0].Folder != "/photos" || runs[0].Current != 120 {
		t.Fatalf("unexpected run: %+v", runs[0])
	}
}

func TestRecordKeepsErrorMessage(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	outcome := sampleOutcome(jobs.ResultError, time.Now().UTC())
	outcome.Message = "worker exited unexpectedly (code 3)"
	if _, err := store.Record(ctx, outcome); err != nil {
		t.Fatal(err)
	}
	runs, err := store.Recent(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if runs[0].Result != jobs.ResultError || runs[0].Message != outcome.Message {
		t.Fatalf("unexpected run: %+v", runs[0])
	}
}

func TestClearRemovesRuns(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	if _, err := store.Record(ctx, sampleOutcome(jobs.ResultCancelled, time.Now().UTC())); err != nil {
		t.Fatal(err)
	}
	if err := store.Clear(ctx); err != nil {
		t.Fatalf("Clear returned error: %v", err)
	}
	runs, err := store.Recent(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 0 {
		t.Fatalf("expected empty history, got %d runs", len(runs))
	}
}

func TestOpenRejectsForeignSchemaVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.db.Exec("UPDATE schema_version SET version = 99"); err != nil {
		t.Fatal(err)
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	if _, err := Open(path); !errors.Is(err, ErrSchemaMismatch) {
		t.Fatalf("reopen error = %v, want ErrSchemaMismatch", err)
	}
}

func TestRecentOnEmptyStore(t *testing.T) {
	store := openTestStore(t)
	runs, err := store.Recent(context.Background(), 0)
	if err != nil {
		t.Fatalf("Recent returned error: %v", err)
	}
	if len(runs) != 0 {
		t.Fatalf("expected no runs, got %d", len(runs))
	}
}
