package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"faceframe/internal/logging"
	"faceframe/internal/protocol"
)

var commandContext = exec.CommandContext

// Handler receives one parsed worker event. Handlers run on the supervisor's
// read loop and must not block; they are invoked in strict arrival order.
type Handler func(protocol.Event)

// Option configures the supervisor.
type Option func(*Supervisor)

// WithArgs sets extra arguments passed to the worker binary.
func WithArgs(args []string) Option {
	return func(s *Supervisor) {
		s.args = append([]string(nil), args...)
	}
}

// WithStopGrace sets how long Stop waits after SIGTERM before killing.
func WithStopGrace(grace time.Duration) Option {
	return func(s *Supervisor) {
		if grace > 0 {
			s.grace = grace
		}
	}
}

// WithLogger sets the supervisor logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Supervisor) {
		if logger != nil {
			s.logger = logging.WithComponent(logger, "worker")
		}
	}
}

// Supervisor owns exactly one worker process instance. Only the supervisor
// reads the worker's output streams and only the supervisor writes its
// input stream, which keeps the line framing intact under concurrency.
type Supervisor struct {
	binary string
	args   []string
	grace  time.Duration
	logger *slog.Logger

	mu       sync.Mutex
	cmd      *exec.Cmd
	stdin    io.WriteCloser
	alive    bool
	stopping bool
	exitCode int
	done     chan struct{}

	handlers []Handler
}

// New constructs a supervisor for the given worker binary. The process is
// not spawned until Start.
func New(binary string, opts ...Option) *Supervisor {
	s := &Supervisor{
		binary:   binary,
		grace:    5 * time.Second,
		logger:   logging.NewNop(),
		exitCode: -1,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subscribe registers a fan-out target for parsed events. Subscriptions
// survive worker restarts.
func (s *Supervisor) Subscribe(handler Handler) {
	if handler == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers = append(s.handlers, handler)
}

// Start spawns the worker process. It is idempotent: a second call while
// the process is alive is a no-op, not a second spawn.
func (s *Supervisor) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.alive {
		return nil
	}

	cmd := commandContext(ctx, s.binary, s.args...) //nolint:gosec
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("spawn worker %q: %w", s.binary, err)
	}

	s.cmd = cmd
	s.stdin = stdin
	s.alive = true
	s.stopping = false
	s.exitCode = -1
	s.done = make(chan struct{})

	s.logger.Info("worker started", logging.Int("pid", cmd.Process.Pid), logging.String("binary", s.binary))

	var pipes sync.WaitGroup
	pipes.Add(2)
	go func() {
		defer pipes.Done()
		s.readLoop(stdout)
	}()
	go func() {
		defer pipes.Done()
		s.drainStderr(stderr)
	}()
	go s.reap(cmd, &pipes, s.done)

	return nil
}

// Send serializes one command and writes it as a single line to the worker's
// stdin. When the process is not alive the command is logged and dropped;
// transport problems are never surfaced to callers.
func (s *Supervisor) Send(cmd protocol.Command) {
	data, err := protocol.EncodeCommand(cmd)
	if err != nil {
		s.logger.Warn("command rejected", logging.String("action", string(cmd.Action)), logging.Error(err))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.alive || s.stdin == nil {
		s.logger.Warn("command dropped, worker not running", logging.String("action", string(cmd.Action)))
		return
	}
	if _, err := s.stdin.Write(append(data, '\n')); err != nil {
		s.logger.Warn("command write failed", logging.String("action", string(cmd.Action)), logging.Error(err))
	}
}

// Alive reports whether the worker process is currently running.
func (s *Supervisor) Alive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.alive
}

// Pid returns the worker process id, or zero when not running.
func (s *Supervisor) Pid() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.alive || s.cmd == nil || s.cmd.Process == nil {
		return 0
	}
	return s.cmd.Process.Pid
}

// ExitCode returns the last recorded exit code, or -1 before the first exit.
func (s *Supervisor) ExitCode() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exitCode
}

// Stop terminates the worker and blocks until the process is reaped, so a
// host shutdown never leaves an orphan. The worker's process group receives
// SIGTERM first and SIGKILL after the grace period.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	if !s.alive || s.cmd == nil || s.cmd.Process == nil {
		s.mu.Unlock()
		return
	}
	s.stopping = true
	pid := s.cmd.Process.Pid
	done := s.done
	if s.stdin != nil {
		_ = s.stdin.Close()
	}
	s.mu.Unlock()

	_ = unix.Kill(-pid, unix.SIGTERM)
	select {
	case <-done:
	case <-time.After(s.grace):
		s.logger.Warn("worker did not exit in time, killing", logging.Int("pid", pid))
		_ = unix.Kill(-pid, unix.SIGKILL)
		<-done
	}
}

func (s *Supervisor) readLoop(stdout io.Reader) {
	var framer LineFramer
	buf := make([]byte, 32*1024)
	for {
		n, err := stdout.Read(buf)
		if n > 0 {
			for _, line := range framer.Push(buf[:n]) {
				s.handleLine(line)
			}
		}
		if err != nil {
			if tail := framer.Flush(); len(tail) > 0 {
				s.logger.Debug("worker stream ended mid-line", logging.String("tail", string(tail)))
			}
			if !errors.Is(err, io.EOF) {
				s.logger.Debug("worker stdout closed", logging.Error(err))
			}
			return
		}
	}
}

func (s *Supervisor) handleLine(line []byte) {
	ev, err := protocol.DecodeEvent(line)
	if errors.Is(err, protocol.ErrNotProtocol) {
		// Stray print from the worker, not a protocol record.
		s.logger.Debug("worker diagnostic", logging.String("line", string(line)))
		return
	}
	if err != nil {
		s.logger.Warn("malformed event dropped", logging.Error(err))
		return
	}
	s.deliver(ev)
}

func (s *Supervisor) deliver(ev protocol.Event) {
	s.mu.Lock()
	handlers := append([]Handler(nil), s.handlers...)
	s.mu.Unlock()
	for _, handler := range handlers {
		handler(ev)
	}
}

func (s *Supervisor) drainStderr(stderr io.Reader) {
	var framer LineFramer
	buf := make([]byte, 8*1024)
	for {
		n, err := stderr.Read(buf)
		if n > 0 {
			for _, line := range framer.Push(buf[:n]) {
				s.logger.Debug("worker stderr", logging.String("line", string(line)))
			}
		}
		if err != nil {
			return
		}
	}
}

// reap waits for the pipes to drain and the process to exit, records the
// exit code, and synthesizes a terminal failure for unexpected exits so an
// in-flight job cannot stay stuck waiting for a reply that will never come.
func (s *Supervisor) reap(cmd *exec.Cmd, pipes *sync.WaitGroup, done chan struct{}) {
	pipes.Wait()
	err := cmd.Wait()

	code := 0
	if err != nil {
		code = -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code = exitErr.ExitCode()
		}
	}

	s.mu.Lock()
	s.alive = false
	s.exitCode = code
	s.stdin = nil
	s.cmd = nil
	crashed := !s.stopping
	s.mu.Unlock()

	if crashed {
		s.logger.Error("worker exited unexpectedly", logging.Int("exit_code", code))
		s.deliver(protocol.ErrorEvent{Message: fmt.Sprintf("worker exited unexpectedly (code %d)", code)})
	} else {
		s.logger.Info("worker stopped", logging.Int("exit_code", code))
	}
	close(done)
}
