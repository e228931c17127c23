package ipc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"sync"
	"time"

	"faceframe/internal/daemon"
	"faceframe/internal/jobs"
	"faceframe/internal/library"
	"faceframe/internal/logging"
	"faceframe/internal/logs"
)

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer configures the IPC server at the given socket path. shutdown is
// invoked when a client asks the daemon process to exit.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, shutdown func(), logger *slog.Logger) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	rpcServer := rpc.NewServer()
	srv := &service{daemon: d, shutdown: shutdown, logger: logging.WithComponent(logger, "ipc"), ctx: ctx}
	if err := rpcServer.RegisterName("FaceFrame", srv); err != nil {
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	return &Server{
		path:      path,
		logger:    logging.WithComponent(logger, "ipc"),
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
	}, nil
}

// Serve starts accepting RPC connections until the context is canceled.
func (s *Server) Serve() {
	s.logger.Debug("ipc server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				s.logger.Warn("accept failed", logging.Error(err))
				continue
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

// Close stops the server and removes the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		s.logger.Warn("failed to remove socket", logging.String("socket", s.path), logging.Error(err))
	}
}

type service struct {
	daemon   *daemon.Daemon
	shutdown func()
	logger   *slog.Logger
	ctx      context.Context
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	status := s.daemon.Status()
	*resp = StatusResponse{
		Running:          status.Running,
		PID:              status.PID,
		WorkerAlive:      status.WorkerAlive,
		WorkerPID:        status.WorkerPID,
		WorkerExitCode:   status.WorkerExitCode,
		Job:              convertJob(status.Job),
		Folder:           status.Folder,
		PersonCount:      status.PersonCount,
		UnclusteredCount: status.UnclusteredCount,
		AssetAddr:        status.AssetAddr,
		LockPath:         status.LockFilePath,
		HistoryDBPath:    status.HistoryDBPath,
	}
	return nil
}

func (s *service) SelectFolder(req SelectFolderRequest, resp *SelectFolderResponse) error {
	if err := s.daemon.SelectFolder(req.Folder); err != nil {
		return err
	}
	resp.Folder = s.daemon.View().Folder()
	return nil
}

func (s *service) Scan(req ScanRequest, resp *ScanResponse) error {
	folder := req.Folder
	if folder == "" {
		folder = s.daemon.View().Folder()
	}
	if err := s.daemon.Dispatcher().Scan(folder, req.Provider); err != nil {
		return err
	}
	s.logger.Info("scan requested via ipc", logging.String(logging.FieldFolder, folder))
	resp.Folder = folder
	resp.Provider = req.Provider
	return nil
}

func (s *service) CancelScan(_ CancelScanRequest, resp *CancelScanResponse) error {
	if err := s.daemon.Dispatcher().CancelScan(); err != nil {
		return err
	}
	resp.Requested = true
	return nil
}

func (s *service) Cluster(_ ClusterRequest, resp *ClusterResponse) error {
	if err := s.daemon.Dispatcher().Cluster(); err != nil {
		return err
	}
	resp.Folder = s.daemon.View().Folder()
	return nil
}

func (s *service) Providers(_ ProvidersRequest, resp *ProvidersResponse) error {
	ev, err := s.daemon.Providers(s.ctx)
	if err != nil {
		return err
	}
	resp.Providers = ev.Providers
	resp.GPUInfo = ev.GPUInfo
	return nil
}

func (s *service) Persons(_ PersonsRequest, resp *PersonsResponse) error {
	resp.Folder = s.daemon.View().Folder()
	persons := s.daemon.View().Persons()
	resp.Persons = make([]Person, 0, len(persons))
	for _, p := range persons {
		resp.Persons = append(resp.Persons, Person{
			ID:        p.ID,
			Name:      p.DisplayName,
			FaceCount: p.FaceCount,
			Thumbnail: p.Thumbnail,
		})
	}
	return nil
}

func (s *service) Unclustered(_ UnclusteredRequest, resp *UnclusteredResponse) error {
	resp.Folder = s.daemon.View().Folder()
	faces := s.daemon.View().Unclustered()
	resp.Faces = make([]Face, 0, len(faces))
	for _, f := range faces {
		resp.Faces = append(resp.Faces, Face{
			ID:        f.ID,
			Photo:     f.SourcePath,
			Thumbnail: f.Thumbnail,
			Box:       [4]float64{f.BBox.X1, f.BBox.Y1, f.BBox.X2, f.BBox.Y2},
		})
	}
	return nil
}

func (s *service) PhotosByPerson(req PhotosByPersonRequest, resp *PhotosByPersonResponse) error {
	ev, err := s.daemon.PhotosByPerson(s.ctx, req.PersonID)
	if err != nil {
		return err
	}
	resp.PersonID = ev.PersonID
	resp.Photos = ev.Photos
	return nil
}

func (s *service) Refresh(_ RefreshRequest, _ *RefreshResponse) error {
	if s.daemon.View().Folder() == "" {
		return library.ErrNoFolder
	}
	s.daemon.Dispatcher().Refresh()
	return nil
}

func (s *service) RenamePerson(req RenamePersonRequest, _ *RenamePersonResponse) error {
	return s.daemon.Dispatcher().Rename(req.PersonID, req.NewName)
}

func (s *service) ProposeMerge(req ProposeMergeRequest, resp *ProposeMergeResponse) error {
	token, err := s.daemon.Dispatcher().ProposeMerge(req.KeepID, req.MergeID)
	if err != nil {
		return err
	}
	resp.Token = token
	return nil
}

func (s *service) ConfirmMerge(req ConfirmMergeRequest, _ *ConfirmMergeResponse) error {
	return s.daemon.Dispatcher().ConfirmMerge(req.Token)
}

func (s *service) ProposeClearIndex(_ ProposeClearIndexRequest, resp *ProposeClearIndexResponse) error {
	token, err := s.daemon.Dispatcher().ProposeClearIndex()
	if err != nil {
		return err
	}
	resp.Token = token
	resp.Folder = s.daemon.View().Folder()
	return nil
}

func (s *service) ConfirmClearIndex(req ConfirmClearIndexRequest, _ *ConfirmClearIndexResponse) error {
	return s.daemon.Dispatcher().ConfirmClearIndex(req.Token)
}

func (s *service) DiscardProposal(req DiscardProposalRequest, _ *DiscardProposalResponse) error {
	s.daemon.Dispatcher().Discard(req.Token)
	return nil
}

func (s *service) History(req HistoryRequest, resp *HistoryResponse) error {
	runs, err := s.daemon.History(s.ctx, req.Limit)
	if err != nil {
		return err
	}
	resp.Runs = make([]Run, 0, len(runs))
	for _, run := range runs {
		resp.Runs = append(resp.Runs, Run{
			ID:       run.ID,
			Kind:     string(run.Kind),
			Folder:   run.Folder,
			Provider: run.Provider,
			Result:   string(run.Result),
			Message:  run.Message,
			Current:  run.Current,
			Total:    run.Total,
			Started:  run.StartedAt.Format(time.RFC3339),
			Finished: run.FinishedAt.Format(time.RFC3339),
		})
	}
	return nil
}

func (s *service) ClearHistory(_ ClearHistoryRequest, _ *ClearHistoryResponse) error {
	return s.daemon.ClearHistory(s.ctx)
}

func (s *service) WorkerRestart(_ WorkerRestartRequest, resp *WorkerRestartResponse) error {
	if err := s.daemon.RestartWorker(); err != nil {
		return err
	}
	resp.WorkerPID = s.daemon.Status().WorkerPID
	s.logger.Info("worker restarted via ipc", logging.Int("pid", resp.WorkerPID))
	return nil
}

func (s *service) LogTail(req LogTailRequest, resp *LogTailResponse) error {
	wait := time.Duration(req.WaitMillis) * time.Millisecond
	if req.Follow && wait <= 0 {
		wait = time.Second
	}
	ctx := s.ctx
	if req.Follow && wait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(s.ctx, wait+500*time.Millisecond)
		defer cancel()
	}
	result, err := logs.Tail(ctx, s.daemon.LogPath(), logs.Options{
		Offset: req.Offset,
		Limit:  req.Limit,
		Follow: req.Follow,
		Wait:   wait,
	})
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	resp.Lines = result.Lines
	resp.Offset = result.Offset
	return nil
}

func (s *service) Ping(_ PingRequest, _ *PingResponse) error {
	return s.daemon.Ping(s.ctx)
}

func (s *service) Shutdown(_ ShutdownRequest, resp *ShutdownResponse) error {
	s.logger.Info("shutdown requested via ipc")
	resp.Stopping = true
	if s.shutdown != nil {
		// Run after the reply is flushed so the client sees a response.
		go s.shutdown()
	}
	return nil
}

func convertJob(snap jobs.Snapshot) Job {
	job := Job{
		State:    string(snap.State),
		Kind:     string(snap.Kind),
		Folder:   snap.Folder,
		Provider: snap.Provider,
		Current:  snap.Progress.Current,
		Total:    snap.Progress.Total,
		File:     snap.Progress.File,
	}
	if !snap.StartedAt.IsZero() {
		job.Started = snap.StartedAt.Format(time.RFC3339)
	}
	return job
}
