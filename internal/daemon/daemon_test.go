package daemon

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"faceframe/internal/config"
	"faceframe/internal/jobs"
	"faceframe/internal/logging"
	"faceframe/internal/protocol"
	"faceframe/internal/testsupport"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return testsupport.NewConfig(t)
}

func newTestDaemon(t *testing.T, cfg *config.Config) *Daemon {
	t.Helper()
	d, err := New(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func TestStartStopLifecycle(t *testing.T) {
	cfg := testConfig(t)
	d := newTestDaemon(t, cfg)

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	status := d.Status()
	if !status.Running || !status.WorkerAlive || status.WorkerPID == 0 {
		t.Fatalf("unexpected status after start: %+v", status)
	}

	d.Stop()
	status = d.Status()
	if status.Running || status.WorkerAlive {
		t.Fatalf("unexpected status after stop: %+v", status)
	}
	// Stop is idempotent.
	d.Stop()
}

func TestSecondInstanceIsRejected(t *testing.T) {
	cfg := testConfig(t)
	first := newTestDaemon(t, cfg)
	if err := first.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	second := newTestDaemon(t, cfg)
	if err := second.Start(context.Background()); err == nil {
		second.Stop()
		t.Fatal("second instance acquired the lock")
	}
}

func TestSelectFolderValidatesDirectory(t *testing.T) {
	cfg := testConfig(t)
	d := newTestDaemon(t, cfg)
	if err := d.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	folder := t.TempDir()
	if err := d.SelectFolder(folder); err != nil {
		t.Fatalf("SelectFolder returned error: %v", err)
	}
	if got := d.Status().Folder; got != folder {
		t.Fatalf("status folder = %q, want %q", got, folder)
	}

	if err := d.SelectFolder(filepath.Join(folder, "missing")); err == nil {
		t.Fatal("expected error for missing folder")
	}
}

func TestRestartWorkerSpawnsFreshProcess(t *testing.T) {
	cfg := testConfig(t)
	d := newTestDaemon(t, cfg)
	if err := d.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	before := d.Status().WorkerPID

	if err := d.RestartWorker(); err != nil {
		t.Fatalf("RestartWorker returned error: %v", err)
	}
	after := d.Status()
	if !after.WorkerAlive {
		t.Fatal("worker not alive after restart")
	}
	if after.WorkerPID == before {
		t.Fatalf("worker pid unchanged after restart: %d", before)
	}
}

func TestRestartWorkerResolvesActiveJob(t *testing.T) {
	cfg := testConfig(t)
	d := newTestDaemon(t, cfg)
	if err := d.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	folder := t.TempDir()
	if err := d.SelectFolder(folder); err != nil {
		t.Fatal(err)
	}
	if err := d.Dispatcher().Scan(folder, ""); err != nil {
		t.Fatalf("Scan returned error: %v", err)
	}
	if got := d.Status().Job.State; got != jobs.StateScanning {
		t.Fatalf("job state = %s, want scanning", got)
	}

	if err := d.RestartWorker(); err != nil {
		t.Fatalf("RestartWorker returned error: %v", err)
	}
	if got := d.Status().Job.State; got != jobs.StateIdle {
		t.Fatalf("job state after restart = %s, want idle", got)
	}

	runs, err := d.History(context.Background(), 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].Result != jobs.ResultError {
		t.Fatalf("unexpected history after restart: %+v", runs)
	}

	if err := d.Dispatcher().Scan(folder, ""); err != nil {
		t.Fatalf("scan after restart returned error: %v", err)
	}
}

// TestTerminalEventTriggersExactlyOneRefresh records every command reaching
// the worker's stdin (tee stands in for the worker) and checks a finished
// job re-reads each snapshot exactly once.
func TestTerminalEventTriggersExactlyOneRefresh(t *testing.T) {
	capture := filepath.Join(t.TempDir(), "commands.jsonl")
	cfg := testsupport.NewConfig(t, testsupport.WithWorkerBinary("tee", capture))
	d := newTestDaemon(t, cfg)
	if err := d.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	folder := t.TempDir()
	if err := d.SelectFolder(folder); err != nil {
		t.Fatal(err)
	}
	if err := d.Dispatcher().Scan(folder, ""); err != nil {
		t.Fatal(err)
	}
	waitForCommands(t, capture, `"action":"SCAN"`, 1)
	persons := countCommands(t, capture, `"action":"GET_PERSONS"`)
	unclustered := countCommands(t, capture, `"action":"GET_UNCLUSTERED"`)

	d.machine.Apply(protocol.CompleteEvent{Path: folder})

	waitForCommands(t, capture, `"action":"GET_PERSONS"`, persons+1)
	waitForCommands(t, capture, `"action":"GET_UNCLUSTERED"`, unclustered+1)
	time.Sleep(100 * time.Millisecond)
	if got := countCommands(t, capture, `"action":"GET_PERSONS"`); got != persons+1 {
		t.Fatalf("GET_PERSONS sent %d times after terminal event, want %d", got, persons+1)
	}
	if got := countCommands(t, capture, `"action":"GET_UNCLUSTERED"`); got != unclustered+1 {
		t.Fatalf("GET_UNCLUSTERED sent %d times after terminal event, want %d", got, unclustered+1)
	}
}

func countCommands(t *testing.T, path, marker string) int {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0
		}
		t.Fatalf("read capture file: %v", err)
	}
	return strings.Count(string(data), marker)
}

func waitForCommands(t *testing.T, path, marker string, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if countCommands(t, path, marker) >= want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("never saw %d commands matching %s", want, marker)
}

func TestHistoryStartsEmpty(t *testing.T) {
	cfg := testConfig(t)
	d := newTestDaemon(t, cfg)
	runs, err := d.History(context.Background(), 10)
	if err != nil {
		t.Fatalf("History returned error: %v", err)
	}
	if len(runs) != 0 {
		t.Fatalf("expected empty history, got %d runs", len(runs))
	}
}
