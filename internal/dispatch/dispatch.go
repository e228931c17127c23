// Package dispatch is the single choke point between user intent and the
// worker wire. Job commands are gated on the job state machine so only one
// scan or clustering pass runs at a time; identity mutations delegate to the
// library view, which validates them first. Every command that leaves this
// package carries a fresh correlation id.
package dispatch

import (
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"faceframe/internal/jobs"
	"faceframe/internal/library"
	"faceframe/internal/logging"
	"faceframe/internal/protocol"
)

// ErrWorkerDown rejects job starts while the worker process is not running.
// A command sent to a dead process can never answer with a terminal event,
// so accepting the job would strand the state machine.
var ErrWorkerDown = errors.New("worker unavailable")

// tagger stamps a request id onto every command before handing it on.
type tagger struct {
	next library.Sender
}

// NewTagger wraps a sender so each command carries a unique request id. The
// worker ignores the id today; logs on both sides can still be joined on it.
func NewTagger(next library.Sender) library.Sender {
	return &tagger{next: next}
}

func (t *tagger) Send(cmd protocol.Command) {
	if cmd.RequestID == "" {
		cmd.RequestID = uuid.NewString()
	}
	t.next.Send(cmd)
}

// Dispatcher validates and routes all worker-bound operations.
type Dispatcher struct {
	sender          library.Sender
	machine         *jobs.Machine
	view            *library.View
	alive           func() bool
	defaultProvider string
	logger          *slog.Logger
}

// New builds a dispatcher. The sender should already be wrapped by NewTagger
// so dispatcher and view sends share one id scheme. alive reports worker
// liveness; job starts are rejected while it returns false. A nil alive
// disables the gate.
func New(sender library.Sender, machine *jobs.Machine, view *library.View, alive func() bool, defaultProvider string, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		sender:          sender,
		machine:         machine,
		view:            view,
		alive:           alive,
		defaultProvider: defaultProvider,
		logger:          logging.WithComponent(logger, "dispatch"),
	}
}

func (d *Dispatcher) workerAlive() bool {
	return d.alive == nil || d.alive()
}

// Scan starts a detection pass over folder. A second job while one is active
// fails with jobs.ErrBusy, a dead worker fails with ErrWorkerDown, and in
// both cases nothing reaches the wire. An empty provider falls back to the
// configured default.
func (d *Dispatcher) Scan(folder, provider string) error {
	if folder == "" {
		return library.ErrNoFolder
	}
	if !d.workerAlive() {
		return ErrWorkerDown
	}
	if provider == "" {
		provider = d.defaultProvider
	}
	if err := d.machine.TryStart(jobs.KindScan, folder, provider); err != nil {
		return err
	}
	d.view.SetFolder(folder)
	d.sender.Send(protocol.Scan(folder, provider))
	return nil
}

// CancelScan requests cooperative cancellation of the running scan. The job
// stays active until the worker answers with a terminal event.
func (d *Dispatcher) CancelScan() error {
	if err := d.machine.RequestCancel(); err != nil {
		return err
	}
	d.sender.Send(protocol.CancelScan())
	return nil
}

// Cluster starts a clustering pass over the selected folder. Like Scan it is
// rejected with ErrWorkerDown while the worker is not running.
func (d *Dispatcher) Cluster() error {
	folder := d.view.Folder()
	if folder == "" {
		return library.ErrNoFolder
	}
	if !d.workerAlive() {
		return ErrWorkerDown
	}
	if err := d.machine.TryStart(jobs.KindCluster, folder, ""); err != nil {
		return err
	}
	d.sender.Send(protocol.Cluster(folder))
	return nil
}

// RequestProviders asks the worker for its execution providers.
func (d *Dispatcher) RequestProviders() {
	d.sender.Send(protocol.GetProviders())
}

// RequestPhotosByPerson asks for every photo a person appears in.
func (d *Dispatcher) RequestPhotosByPerson(personID int64) error {
	folder := d.view.Folder()
	if folder == "" {
		return library.ErrNoFolder
	}
	d.sender.Send(protocol.GetPhotosByPerson(folder, personID))
	return nil
}

// Ping sends a liveness probe.
func (d *Dispatcher) Ping() {
	d.sender.Send(protocol.Ping())
}

// Refresh re-reads both identity snapshots for the selected folder.
func (d *Dispatcher) Refresh() {
	d.view.RequestRefresh()
}

// Rename delegates to the library view.
func (d *Dispatcher) Rename(personID int64, newName string) error {
	return d.view.Rename(personID, newName)
}

// ProposeMerge delegates to the library view.
func (d *Dispatcher) ProposeMerge(keepID, mergeID int64) (string, error) {
	return d.view.ProposeMerge(keepID, mergeID)
}

// ConfirmMerge delegates to the library view.
func (d *Dispatcher) ConfirmMerge(token string) error {
	return d.view.ConfirmMerge(token)
}

// ProposeClearIndex delegates to the library view.
func (d *Dispatcher) ProposeClearIndex() (string, error) {
	return d.view.ProposeClearIndex()
}

// ConfirmClearIndex delegates to the library view.
func (d *Dispatcher) ConfirmClearIndex(token string) error {
	return d.view.ConfirmClearIndex(token)
}

// Discard delegates to the library view.
func (d *Dispatcher) Discard(token string) {
	d.view.Discard(token)
}
