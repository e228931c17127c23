package jobs

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"faceframe/internal/logging"
	"faceframe/internal/protocol"
)

// State is the job machine's current mode.
type State string

const (
	StateIdle       State = "idle"
	StateScanning   State = "scanning"
	StateClustering State = "clustering"
	StateCancelling State = "cancelling"
)

// Kind names the type of job being run.
type Kind string

const (
	KindScan    Kind = "scan"
	KindCluster Kind = "cluster"
)

// Result classifies how a job ended.
type Result string

const (
	ResultComplete  Result = "complete"
	ResultError     Result = "error"
	ResultCancelled Result = "cancelled"
)

// ErrBusy rejects a job start while another job is active.
var ErrBusy = errors.New("a job is already running")

// ErrNotCancellable rejects a cancel outside of an active scan.
var ErrNotCancellable = errors.New("no cancellable job is running")

// Progress is the last reported job advancement. Total zero means the
// worker has not determined the total yet (indeterminate).
type Progress struct {
	Current int
	Total   int
	File    string
}

// Snapshot is a copy of the machine's observable state.
type Snapshot struct {
	State     State
	Kind      Kind
	Folder    string
	Provider  string
	Progress  Progress
	StartedAt time.Time
}

// Outcome describes one finished job.
type Outcome struct {
	Kind     Kind
	Folder   string
	Provider string
	Result   Result
	Message  string
	Progress Progress
	Started  time.Time
	Finished time.Time
}

// IdleHook observes the transition back to idle after a terminal event.
type IdleHook func(Outcome)

// Machine is the job lifecycle state machine. All methods are safe for
// concurrent use; hooks run on the caller of Apply without the lock held.
type Machine struct {
	logger *slog.Logger

	mu        sync.Mutex
	state     State
	kind      Kind
	folder    string
	provider  string
	progress  Progress
	startedAt time.Time

	hooks []IdleHook
}

// NewMachine constructs an idle machine.
func NewMachine(logger *slog.Logger) *Machine {
	return &Machine{
		logger: logging.WithComponent(logger, "jobs"),
		state:  StateIdle,
	}
}

// OnIdle registers a hook invoked each time a running job reaches a
// terminal event and the machine returns to idle.
func (m *Machine) OnIdle(hook IdleHook) {
	if hook == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hooks = append(m.hooks, hook)
}

// Snapshot returns a copy of the current state.
func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{
		State:     m.state,
		Kind:      m.kind,
		Folder:    m.folder,
		Provider:  m.provider,
		Progress:  m.progress,
		StartedAt: m.startedAt,
	}
}

// TryStart claims the machine for a new job. Only an idle machine accepts
// a start; anything else fails with ErrBusy and changes nothing.
func (m *Machine) TryStart(kind Kind, folder, provider string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateIdle {
		return fmt.Errorf("%w: %s of %s", ErrBusy, m.kind, m.folder)
	}
	switch kind {
	case KindScan:
		m.state = StateScanning
	case KindCluster:
		m.state = StateClustering
	default:
		return fmt.Errorf("unknown job kind %q", kind)
	}
	m.kind = kind
	m.folder = folder
	m.provider = provider
	m.progress = Progress{}
	m.startedAt = time.Now().UTC()
	m.logger.Info("job started",
		logging.String(logging.FieldJobKind, string(kind)),
		logging.String(logging.FieldFolder, folder))
	return nil
}

// RequestCancel moves a running scan into the cancelling state. The job
// stays active until the worker emits a terminal event; cancellation is
// cooperative, never forced.
func (m *Machine) RequestCancel() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateScanning {
		return ErrNotCancellable
	}
	m.state = StateCancelling
	m.logger.Info("cancel requested", logging.String(logging.FieldFolder, m.folder))
	return nil
}

// Apply feeds one worker event into the machine. Non-job events are
// ignored. Progress never decreases; a regressing report is clamped to the
// previous value. Terminal events return the machine to idle and fire the
// idle hooks.
func (m *Machine) Apply(ev protocol.Event) {
	m.mu.Lock()
	if m.state == StateIdle {
		m.mu.Unlock()
		return
	}

	var (
		outcome Outcome
		fired   bool
	)
	switch ev := ev.(type) {
	case protocol.StartedEvent:
		// Confirmation only; the job is already active.
	case protocol.ProgressEvent:
		if ev.Current >= m.progress.Current {
			m.progress = Progress{Current: ev.Current, Total: ev.Total, File: ev.File}
		} else {
			m.logger.Debug("progress regression clamped",
				logging.Int("reported", ev.Current),
				logging.Int("held", m.progress.Current))
		}
	case protocol.CompleteEvent:
		outcome, fired = m.finishLocked(ResultComplete, "")
	case protocol.ClusteredEvent:
		outcome, fired = m.finishLocked(ResultComplete, fmt.Sprintf("%d faces clustered", ev.Count))
	case protocol.ErrorEvent:
		outcome, fired = m.finishLocked(ResultError, ev.Message)
	case protocol.CancelledEvent:
		outcome, fired = m.finishLocked(ResultCancelled, ev.Message)
	}
	hooks := append([]IdleHook(nil), m.hooks...)
	m.mu.Unlock()

	if fired {
		for _, hook := range hooks {
			hook(outcome)
		}
	}
}

func (m *Machine) finishLocked(result Result, message string) (Outcome, bool) {
	outcome := Outcome{
		Kind:     m.kind,
		Folder:   m.folder,
		Provider: m.provider,
		Result:   result,
		Message:  message,
		Progress: m.progress,
		Started:  m.startedAt,
		Finished: time.Now().UTC(),
	}
	m.logger.Info("job finished",
		logging.String(logging.FieldJobKind, string(m.kind)),
		logging.String(logging.FieldFolder, m.folder),
		logging.String("result", string(result)))

	m.state = StateIdle
	m.kind = ""
	m.folder = ""
	m.provider = ""
	m.progress = Progress{}
	m.startedAt = time.Time{}
	return outcome, true
}
