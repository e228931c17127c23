package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"faceframe/internal/assets"
	"faceframe/internal/config"
	"faceframe/internal/dispatch"
	"faceframe/internal/history"
	"faceframe/internal/jobs"
	"faceframe/internal/library"
	"faceframe/internal/logging"
	"faceframe/internal/protocol"
	"faceframe/internal/watcher"
	"faceframe/internal/worker"
)

// Daemon coordinates the worker process and every host-side service built
// around it.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger

	supervisor *worker.Supervisor
	machine    *jobs.Machine
	view       *library.View
	dispatcher *dispatch.Dispatcher
	store      *history.Store
	watch      *watcher.Watcher
	assetSrv   *assets.Server

	lockPath string
	lock     *flock.Flock

	providersWait awaiter[protocol.ProvidersEvent]
	photosWait    awaiter[protocol.PhotosByPersonEvent]
	pongWait      awaiter[protocol.PongEvent]

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// Status is the daemon's runtime snapshot as reported to clients.
type Status struct {
	Running          bool
	PID              int
	WorkerAlive      bool
	WorkerPID        int
	WorkerExitCode   int
	Job              jobs.Snapshot
	Folder           string
	PersonCount      int
	UnclusteredCount int
	AssetAddr        string
	LockFilePath     string
	HistoryDBPath    string
}

// New constructs a daemon with all dependencies wired but nothing started.
func New(cfg *config.Config, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || logger == nil {
		return nil, errors.New("daemon requires config and logger")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	store, err := history.Open(cfg.HistoryDBPath())
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}

	supervisor := worker.New(cfg.Worker.Binary,
		worker.WithArgs(cfg.Worker.Args),
		worker.WithStopGrace(time.Duration(cfg.Worker.StopGraceSeconds)*time.Second),
		worker.WithLogger(logger),
	)

	machine := jobs.NewMachine(logger)
	tagged := dispatch.NewTagger(supervisor)
	view := library.NewView(tagged, logger)
	dispatcher := dispatch.New(tagged, machine, view, supervisor.Alive, cfg.Worker.DefaultProvider, logger)

	d := &Daemon{
		cfg:        cfg,
		logger:     logging.WithComponent(logger, "daemon"),
		supervisor: supervisor,
		machine:    machine,
		view:       view,
		dispatcher: dispatcher,
		store:      store,
		lockPath:   cfg.LockPath(),
		lock:       flock.New(cfg.LockPath()),
	}

	// All worker events flow through the machine first, then the view, so
	// the job lifecycle is always at least as current as the snapshots.
	supervisor.Subscribe(machine.Apply)
	supervisor.Subscribe(view.Apply)
	supervisor.Subscribe(d.onAsyncReply)
	machine.OnIdle(d.onJobFinished)

	if cfg.Watcher.Enabled {
		debounce := time.Duration(cfg.Watcher.DebounceSeconds) * time.Second
		watch, err := watcher.New(debounce, d.onFolderSettled, logger)
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("start watcher: %w", err)
		}
		d.watch = watch
	}

	if cfg.Paths.AssetBind != "" {
		d.assetSrv = assets.NewServer(cfg.Paths.AssetBind, logger)
	}

	return d, nil
}

// Start acquires the instance lock, spawns the worker, and begins serving
// assets. A configured library folder is selected immediately.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another faceframe daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)

	if d.assetSrv != nil {
		if err := d.assetSrv.Start(); err != nil {
			d.releaseStart()
			return fmt.Errorf("start asset server: %w", err)
		}
	}

	if err := d.supervisor.Start(d.ctx); err != nil {
		if d.assetSrv != nil {
			_ = d.assetSrv.Stop(context.Background())
		}
		d.releaseStart()
		return fmt.Errorf("start worker: %w", err)
	}

	d.running.Store(true)
	d.logger.Info("faceframe daemon started", logging.String("lock", d.lockPath))

	if d.cfg.Paths.LibraryDir != "" {
		if err := d.SelectFolder(d.cfg.Paths.LibraryDir); err != nil {
			d.logger.Warn("configured library folder not selectable", logging.Error(err))
		}
	}
	return nil
}

func (d *Daemon) releaseStart() {
	_ = d.lock.Unlock()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.ctx = nil
}

// Stop shuts everything down in dependency order: stop accepting folder
// events, terminate the worker (blocking until reaped), then stop the asset
// server and release the lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.watch != nil {
		_ = d.watch.Close()
	}
	d.supervisor.Stop()
	if d.assetSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = d.assetSrv.Stop(ctx)
		cancel()
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.ctx = nil
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("faceframe daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Dispatcher returns the command façade for IPC handlers.
func (d *Daemon) Dispatcher() *dispatch.Dispatcher {
	return d.dispatcher
}

// View returns the library view for IPC handlers.
func (d *Daemon) View() *library.View {
	return d.view
}

// History lists the most recent finished jobs.
func (d *Daemon) History(ctx context.Context, limit int) ([]history.Run, error) {
	return d.store.Recent(ctx, limit)
}

// ClearHistory removes all recorded jobs.
func (d *Daemon) ClearHistory(ctx context.Context) error {
	return d.store.Clear(ctx)
}

// LogPath returns the daemon log file location.
func (d *Daemon) LogPath() string {
	return d.cfg.LogPath()
}

// SelectFolder makes folder the active library, starts watching it, and
// kicks off a snapshot refresh.
func (d *Daemon) SelectFolder(folder string) error {
	info, err := os.Stat(folder)
	if err != nil {
		return fmt.Errorf("stat folder: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%q is not a directory", folder)
	}
	d.view.SetFolder(folder)
	if d.watch != nil {
		if err := d.watch.Watch(folder); err != nil {
			d.logger.Warn("cannot watch folder", logging.String(logging.FieldFolder, folder), logging.Error(err))
		}
	}
	d.dispatcher.Refresh()
	d.logger.Info("folder selected", logging.String(logging.FieldFolder, folder))
	return nil
}

// RestartWorker stops the worker process and spawns a fresh one. A job the
// old process was running can never finish, so it is resolved with a
// synthesized terminal error before the new process starts; the snapshots
// are then re-read from it.
func (d *Daemon) RestartWorker() error {
	if !d.running.Load() {
		return errors.New("daemon not running")
	}
	d.logger.Info("worker restart requested")
	d.supervisor.Stop()
	d.machine.Apply(protocol.ErrorEvent{Message: "worker restarted"})
	if err := d.supervisor.Start(d.ctx); err != nil {
		return fmt.Errorf("restart worker: %w", err)
	}
	d.dispatcher.Refresh()
	return nil
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	return Status{
		Running:          d.running.Load(),
		PID:              os.Getpid(),
		WorkerAlive:      d.supervisor.Alive(),
		WorkerPID:        d.supervisor.Pid(),
		WorkerExitCode:   d.supervisor.ExitCode(),
		Job:              d.machine.Snapshot(),
		Folder:           d.view.Folder(),
		PersonCount:      len(d.view.Persons()),
		UnclusteredCount: len(d.view.Unclustered()),
		AssetAddr:        d.assetAddr(),
		LockFilePath:     d.lockPath,
		HistoryDBPath:    d.cfg.HistoryDBPath(),
	}
}

func (d *Daemon) assetAddr() string {
	if d.assetSrv == nil {
		return ""
	}
	return d.assetSrv.Addr()
}

// onJobFinished records the outcome and re-reads the snapshots, since a
// finished scan or clustering pass usually changed them.
func (d *Daemon) onJobFinished(outcome jobs.Outcome) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := d.store.Record(ctx, outcome); err != nil {
		d.logger.Warn("failed to record job outcome", logging.Error(err))
	}
	d.view.RequestRefresh()
}

// onFolderSettled triggers a rescan after the watched folder quiets down.
// A busy machine simply skips the rescan; the next change will retry.
func (d *Daemon) onFolderSettled(folder string) {
	if err := d.dispatcher.Scan(folder, ""); err != nil {
		d.logger.Debug("auto rescan skipped", logging.String(logging.FieldFolder, folder), logging.Error(err))
	}
}
