package dispatch

import (
	"errors"
	"testing"

	"faceframe/internal/jobs"
	"faceframe/internal/library"
	"faceframe/internal/logging"
	"faceframe/internal/protocol"
)

type recordingSender struct {
	commands []protocol.Command
}

func (r *recordingSender) Send(cmd protocol.Command) {
	r.commands = append(r.commands, cmd)
}

func newTestDispatcher() (*Dispatcher, *recordingSender, *jobs.Machine) {
	d, sender, machine, _ := newGatedDispatcher()
	return d, sender, machine
}

// newGatedDispatcher exposes the worker-liveness switch jobs are gated on.
func newGatedDispatcher() (*Dispatcher, *recordingSender, *jobs.Machine, *bool) {
	sender := &recordingSender{}
	tagged := NewTagger(sender)
	machine := jobs.NewMachine(logging.NewNop())
	view := library.NewView(tagged, logging.NewNop())
	workerUp := true
	d := New(tagged, machine, view, func() bool { return workerUp }, "CPUExecutionProvider", logging.NewNop())
	return d, sender, machine, &workerUp
}

func TestScanStartsJobAndSendsCommand(t *testing.T) {
	d, sender, machine := newTestDispatcher()
	if err := d.Scan("/photos", ""); err != nil {
		t.Fatalf("Scan returned error: %v", err)
	}
	if len(sender.commands) != 1 {
		t.Fatalf("sent %d commands, want 1", len(sender.commands))
	}
	cmd := sender.commands[0]
	if cmd.Action != protocol.ActionScan || cmd.Path != "/photos" {
		t.Fatalf("unexpected command: %+v", cmd)
	}
	if cmd.Provider != "CPUExecutionProvider" {
		t.Fatalf("provider = %q, want configured default", cmd.Provider)
	}
	if snap := machine.Snapshot(); snap.State != jobs.StateScanning {
		t.Fatalf("machine state = %s, want scanning", snap.State)
	}
}

func TestSecondScanWhileBusySendsNothing(t *testing.T) {
	d, sender, _ := newTestDispatcher()
	if err := d.Scan("/photos", ""); err != nil {
		t.Fatal(err)
	}
	sent := len(sender.commands)

	if err := d.Scan("/other", ""); !errors.Is(err, jobs.ErrBusy) {
		t.Fatalf("second scan error = %v, want ErrBusy", err)
	}
	if len(sender.commands) != sent {
		t.Fatalf("rejected scan reached the wire: %v", sender.commands[sent:])
	}
}

func TestScanWhileWorkerDownIsRejected(t *testing.T) {
	d, sender, machine, workerUp := newGatedDispatcher()
	*workerUp = false

	if err := d.Scan("/photos", ""); !errors.Is(err, ErrWorkerDown) {
		t.Fatalf("scan error = %v, want ErrWorkerDown", err)
	}
	if len(sender.commands) != 0 {
		t.Fatal("rejected scan reached the wire")
	}
	if snap := machine.Snapshot(); snap.State != jobs.StateIdle {
		t.Fatalf("machine state = %s, want idle", snap.State)
	}

	// The machine was never claimed, so a scan succeeds once the worker is
	// back, with no daemon restart in between.
	*workerUp = true
	if err := d.Scan("/photos", ""); err != nil {
		t.Fatalf("scan after worker return: %v", err)
	}
}

func TestClusterWhileWorkerDownIsRejected(t *testing.T) {
	d, sender, machine, workerUp := newGatedDispatcher()
	d.view.SetFolder("/photos")
	*workerUp = false

	if err := d.Cluster(); !errors.Is(err, ErrWorkerDown) {
		t.Fatalf("cluster error = %v, want ErrWorkerDown", err)
	}
	if len(sender.commands) != 0 {
		t.Fatal("rejected cluster reached the wire")
	}
	if snap := machine.Snapshot(); snap.State != jobs.StateIdle {
		t.Fatalf("machine state = %s, want idle", snap.State)
	}
}

func TestClusterWhileScanningIsRejected(t *testing.T) {
	d, sender, _ := newTestDispatcher()
	if err := d.Scan("/photos", ""); err != nil {
		t.Fatal(err)
	}
	sent := len(sender.commands)
	if err := d.Cluster(); !errors.Is(err, jobs.ErrBusy) {
		t.Fatalf("cluster error = %v, want ErrBusy", err)
	}
	if len(sender.commands) != sent {
		t.Fatal("rejected cluster reached the wire")
	}
}

func TestClusterRequiresSelectedFolder(t *testing.T) {
	d, sender, _ := newTestDispatcher()
	if err := d.Cluster(); !errors.Is(err, library.ErrNoFolder) {
		t.Fatalf("cluster error = %v, want ErrNoFolder", err)
	}
	if len(sender.commands) != 0 {
		t.Fatal("folderless cluster reached the wire")
	}
}

func TestCancelOutsideScanIsRejected(t *testing.T) {
	d, sender, _ := newTestDispatcher()
	if err := d.CancelScan(); !errors.Is(err, jobs.ErrNotCancellable) {
		t.Fatalf("cancel error = %v, want ErrNotCancellable", err)
	}
	if len(sender.commands) != 0 {
		t.Fatal("rejected cancel reached the wire")
	}
}

func TestCancelDuringScanSendsCommand(t *testing.T) {
	d, sender, machine := newTestDispatcher()
	if err := d.Scan("/photos", "CUDAExecutionProvider"); err != nil {
		t.Fatal(err)
	}
	if err := d.CancelScan(); err != nil {
		t.Fatalf("CancelScan returned error: %v", err)
	}
	last := sender.commands[len(sender.commands)-1]
	if last.Action != protocol.ActionCancelScan {
		t.Fatalf("last command = %+v, want CANCEL_SCAN", last)
	}
	if snap := machine.Snapshot(); snap.State != jobs.StateCancelling {
		t.Fatalf("machine state = %s, want cancelling", snap.State)
	}
}

func TestScanAllowedAgainAfterTerminalEvent(t *testing.T) {
	d, _, machine := newTestDispatcher()
	if err := d.Scan("/photos", ""); err != nil {
		t.Fatal(err)
	}
	machine.Apply(protocol.CompleteEvent{Path: "/photos"})
	if err := d.Scan("/photos", ""); err != nil {
		t.Fatalf("scan after completion returned error: %v", err)
	}
}

func TestEveryCommandCarriesRequestID(t *testing.T) {
	d, sender, _ := newTestDispatcher()
	d.Ping()
	d.RequestProviders()
	if err := d.Scan("/photos", ""); err != nil {
		t.Fatal(err)
	}
	d.Refresh()

	seen := make(map[string]bool)
	for _, cmd := range sender.commands {
		if cmd.RequestID == "" {
			t.Fatalf("command %s left without a request id", cmd.Action)
		}
		if seen[cmd.RequestID] {
			t.Fatalf("request id %q reused", cmd.RequestID)
		}
		seen[cmd.RequestID] = true
	}
}

func TestPhotosByPersonRequiresFolder(t *testing.T) {
	d, sender, _ := newTestDispatcher()
	if err := d.RequestPhotosByPerson(3); !errors.Is(err, library.ErrNoFolder) {
		t.Fatalf("error = %v, want ErrNoFolder", err)
	}
	if len(sender.commands) != 0 {
		t.Fatal("folderless read reached the wire")
	}
}
