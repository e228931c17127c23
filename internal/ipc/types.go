package ipc

// Person is the IPC copy of one person record.
type Person struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	FaceCount int    `json:"face_count"`
	Thumbnail string `json:"thumbnail"`
}

// Face is the IPC copy of one unclustered detection.
type Face struct {
	ID        int64      `json:"id"`
	Photo     string     `json:"photo"`
	Thumbnail string     `json:"thumbnail"`
	Box       [4]float64 `json:"box"`
}

// Job describes the active job, if any.
type Job struct {
	State    string `json:"state"`
	Kind     string `json:"kind"`
	Folder   string `json:"folder"`
	Provider string `json:"provider"`
	Current  int    `json:"current"`
	Total    int    `json:"total"`
	File     string `json:"file"`
	Started  string `json:"started"`
}

// Run is the IPC copy of one recorded job execution.
type Run struct {
	ID       int64  `json:"id"`
	Kind     string `json:"kind"`
	Folder   string `json:"folder"`
	Provider string `json:"provider"`
	Result   string `json:"result"`
	Message  string `json:"message"`
	Current  int    `json:"current"`
	Total    int    `json:"total"`
	Started  string `json:"started"`
	Finished string `json:"finished"`
}

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// StatusResponse is the daemon's runtime snapshot.
type StatusResponse struct {
	Running          bool   `json:"running"`
	PID              int    `json:"pid"`
	WorkerAlive      bool   `json:"worker_alive"`
	WorkerPID        int    `json:"worker_pid"`
	WorkerExitCode   int    `json:"worker_exit_code"`
	Job              Job    `json:"job"`
	Folder           string `json:"folder"`
	PersonCount      int    `json:"person_count"`
	UnclusteredCount int    `json:"unclustered_count"`
	AssetAddr        string `json:"asset_addr"`
	LockPath         string `json:"lock_path"`
	HistoryDBPath    string `json:"history_db_path"`
}

// SelectFolderRequest selects the active photo folder.
type SelectFolderRequest struct {
	Folder string `json:"folder"`
}

// SelectFolderResponse echoes the selected folder.
type SelectFolderResponse struct {
	Folder string `json:"folder"`
}

// ScanRequest starts a face detection pass.
type ScanRequest struct {
	Folder   string `json:"folder"`
	Provider string `json:"provider"`
}

// ScanResponse confirms the scan was accepted.
type ScanResponse struct {
	Folder   string `json:"folder"`
	Provider string `json:"provider"`
}

// CancelScanRequest requests cooperative cancellation of the running scan.
type CancelScanRequest struct{}

// CancelScanResponse confirms the cancel was forwarded.
type CancelScanResponse struct {
	Requested bool `json:"requested"`
}

// ClusterRequest starts a clustering pass over the selected folder.
type ClusterRequest struct{}

// ClusterResponse confirms the clustering pass was accepted.
type ClusterResponse struct {
	Folder string `json:"folder"`
}

// ProvidersRequest lists the worker's execution providers.
type ProvidersRequest struct{}

// ProvidersResponse lists execution providers and GPU details.
type ProvidersResponse struct {
	Providers []string `json:"providers"`
	GPUInfo   string   `json:"gpu_info"`
}

// PersonsRequest fetches the cached persons snapshot.
type PersonsRequest struct{}

// PersonsResponse contains the cached persons snapshot.
type PersonsResponse struct {
	Folder  string   `json:"folder"`
	Persons []Person `json:"persons"`
}

// UnclusteredRequest fetches the cached unclustered-faces snapshot.
type UnclusteredRequest struct{}

// UnclusteredResponse contains the cached unclustered-faces snapshot.
type UnclusteredResponse struct {
	Folder string `json:"folder"`
	Faces  []Face `json:"faces"`
}

// PhotosByPersonRequest lists photos containing one person.
type PhotosByPersonRequest struct {
	PersonID int64 `json:"person_id"`
}

// PhotosByPersonResponse lists photos containing the person.
type PhotosByPersonResponse struct {
	PersonID int64    `json:"person_id"`
	Photos   []string `json:"photos"`
}

// RefreshRequest re-reads both identity snapshots from the worker.
type RefreshRequest struct{}

// RefreshResponse confirms the refresh was sent.
type RefreshResponse struct{}

// RenamePersonRequest renames a person.
type RenamePersonRequest struct {
	PersonID int64  `json:"person_id"`
	NewName  string `json:"new_name"`
}

// RenamePersonResponse confirms the rename was forwarded.
type RenamePersonResponse struct{}

// ProposeMergeRequest parks a merge behind a confirmation token.
type ProposeMergeRequest struct {
	KeepID  int64 `json:"keep_id"`
	MergeID int64 `json:"merge_id"`
}

// ProposeMergeResponse returns the confirmation token.
type ProposeMergeResponse struct {
	Token string `json:"token"`
}

// ConfirmMergeRequest confirms a proposed merge.
type ConfirmMergeRequest struct {
	Token string `json:"token"`
}

// ConfirmMergeResponse confirms the merge was forwarded.
type ConfirmMergeResponse struct{}

// ProposeClearIndexRequest parks an index wipe behind a confirmation token.
type ProposeClearIndexRequest struct{}

// ProposeClearIndexResponse returns the confirmation token and the folder
// whose index would be wiped.
type ProposeClearIndexResponse struct {
	Token  string `json:"token"`
	Folder string `json:"folder"`
}

// ConfirmClearIndexRequest confirms a proposed index wipe.
type ConfirmClearIndexRequest struct {
	Token string `json:"token"`
}

// ConfirmClearIndexResponse confirms the wipe was forwarded.
type ConfirmClearIndexResponse struct{}

// DiscardProposalRequest declines a pending proposal.
type DiscardProposalRequest struct {
	Token string `json:"token"`
}

// DiscardProposalResponse confirms the proposal was dropped.
type DiscardProposalResponse struct{}

// HistoryRequest lists recent job runs.
type HistoryRequest struct {
	Limit int `json:"limit"`
}

// HistoryResponse contains recent job runs, newest first.
type HistoryResponse struct {
	Runs []Run `json:"runs"`
}

// ClearHistoryRequest removes all recorded job runs.
type ClearHistoryRequest struct{}

// ClearHistoryResponse confirms history was cleared.
type ClearHistoryResponse struct{}

// WorkerRestartRequest restarts the worker process.
type WorkerRestartRequest struct{}

// WorkerRestartResponse reports the new worker pid.
type WorkerRestartResponse struct {
	WorkerPID int `json:"worker_pid"`
}

// PingRequest probes worker liveness through the wire.
type PingRequest struct{}

// PingResponse confirms the worker answered.
type PingResponse struct{}

// LogTailRequest fetches daemon log lines. A negative offset means "the
// last Limit lines".
type LogTailRequest struct {
	Offset     int64 `json:"offset"`
	Limit      int   `json:"limit"`
	Follow     bool  `json:"follow"`
	WaitMillis int64 `json:"wait_millis"`
}

// LogTailResponse carries log lines and the offset to resume from.
type LogTailResponse struct {
	Lines  []string `json:"lines"`
	Offset int64    `json:"offset"`
}

// ShutdownRequest asks the daemon process to exit.
type ShutdownRequest struct{}

// ShutdownResponse confirms shutdown was initiated.
type ShutdownResponse struct {
	Stopping bool `json:"stopping"`
}
