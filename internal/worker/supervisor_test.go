package worker

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"

	"faceframe/internal/protocol"
)

func helperSupervisor(t *testing.T, mode string) (*Supervisor, *int) {
	t.Helper()
	spawns := new(int)
	original := commandContext
	commandContext = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		*spawns++
		cmd := exec.CommandContext(ctx, os.Args[0], "-test.run=TestHelperProcess")
		cmd.Env = append(os.Environ(), "GO_WANT_HELPER_PROCESS=1", "WORKER_HELPER_MODE="+mode)
		return cmd
	}
	t.Cleanup(func() {
		commandContext = original
	})
	return New("faceframe-worker", WithStopGrace(2*time.Second)), spawns
}

func subscribeEvents(s *Supervisor) <-chan protocol.Event {
	events := make(chan protocol.Event, 64)
	s.Subscribe(func(ev protocol.Event) {
		events <- ev
	})
	return events
}

func nextEvent(t *testing.T, events <-chan protocol.Event) protocol.Event {
	t.Helper()
	select {
	case ev := <-events:
		return ev
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func TestSupervisorStartIsIdempotent(t *testing.T) {
	s, spawns := helperSupervisor(t, "idle")
	defer s.Stop()

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("second Start returned error: %v", err)
	}
	if *spawns != 1 {
		t.Fatalf("expected exactly one spawn, got %d", *spawns)
	}
	if !s.Alive() {
		t.Fatal("worker should be alive after Start")
	}
}

func TestSupervisorDeliversEventsInArrivalOrder(t *testing.T) {
	s, _ := helperSupervisor(t, "scan")
	events := subscribeEvents(s)
	defer s.Stop()

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}

	if _, ok := nextEvent(t, events).(protocol.StartedEvent); !ok {
		t.Fatal("expected started first")
	}
	for i := 1; i <= 3; i++ {
		progress, ok := nextEvent(t, events).(protocol.ProgressEvent)
		if !ok {
			t.Fatalf("expected progress event %d", i)
		}
		if progress.Current != i {
			t.Fatalf("progress out of order: got %d, want %d", progress.Current, i)
		}
	}
	if _, ok := nextEvent(t, events).(protocol.CompleteEvent); !ok {
		t.Fatal("expected complete last")
	}
	// The diagnostic lines interleaved by the helper never surface as events.
	select {
	case ev := <-events:
		t.Fatalf("unexpected extra event %T", ev)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSupervisorSendReachesWorker(t *testing.T) {
	s, _ := helperSupervisor(t, "echo")
	events := subscribeEvents(s)
	defer s.Stop()

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}

	s.Send(protocol.Ping())
	if _, ok := nextEvent(t, events).(protocol.PongEvent); !ok {
		t.Fatal("expected pong reply")
	}
}

func TestSupervisorSynthesizesErrorOnCrash(t *testing.T) {
	s, _ := helperSupervisor(t, "crash")
	events := subscribeEvents(s)

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}

	if _, ok := nextEvent(t, events).(protocol.ProgressEvent); !ok {
		t.Fatal("expected progress before crash")
	}
	errEv, ok := nextEvent(t, events).(protocol.ErrorEvent)
	if !ok {
		t.Fatal("expected synthesized error event after crash")
	}
	if !strings.Contains(errEv.Message, "exited unexpectedly") {
		t.Fatalf("unexpected error message %q", errEv.Message)
	}
	if s.Alive() {
		t.Fatal("worker should not be alive after crash")
	}
	if code := s.ExitCode(); code != 3 {
		t.Fatalf("exit code = %d, want 3", code)
	}
}

func TestSupervisorDropsCommandOnDeadWorker(t *testing.T) {
	s := New("faceframe-worker")
	// Never started; must be a quiet no-op, not a panic or error.
	s.Send(protocol.GetProviders())
	if s.Alive() {
		t.Fatal("unstarted supervisor cannot be alive")
	}
}

func TestSupervisorStopReapsProcess(t *testing.T) {
	s, _ := helperSupervisor(t, "idle")
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	s.Stop()
	if s.Alive() {
		t.Fatal("worker should be stopped")
	}
	// Stop on an already stopped supervisor is a no-op.
	s.Stop()
}

// TestHelperProcess stands in for the worker binary in supervisor tests.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	defer os.Exit(0)

	emit := func(v any) {
		data, err := json.Marshal(v)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Println(string(data))
	}

	switch os.Getenv("WORKER_HELPER_MODE") {
	case "scan":
		emit(map[string]any{"status": "started", "path": "/p"})
		fmt.Println("loading detection model")
		for i := 1; i <= 3; i++ {
			emit(map[string]any{"status": "progress", "current": i, "total": 3, "file": fmt.Sprintf("%d.jpg", i)})
		}
		fmt.Println("writing thumbnails")
		emit(map[string]any{"status": "complete", "path": "/p"})
		waitForStdinClose()
	case "echo":
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			var cmd struct {
				Action string `json:"action"`
			}
			if err := json.Unmarshal(scanner.Bytes(), &cmd); err != nil {
				continue
			}
			if cmd.Action == "PING" {
				emit(map[string]any{"status": "pong"})
			}
		}
	case "crash":
		emit(map[string]any{"status": "progress", "current": 1, "total": 10, "file": "a.jpg"})
		os.Exit(3)
	default: // idle
		waitForStdinClose()
	}
}

func waitForStdinClose() {
	buf := make([]byte, 256)
	for {
		if _, err := os.Stdin.Read(buf); err != nil {
			return
		}
	}
}
