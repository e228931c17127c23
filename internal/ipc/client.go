package ipc

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"
)

// Client provides RPC access to the daemon.
type Client struct {
	conn   net.Conn
	client *rpc.Client
}

// Dial connects to the IPC server at the given socket path.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		return nil, err
	}
	rpcClient := rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))
	return &Client{conn: conn, client: rpcClient}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.client != nil {
		_ = c.client.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// Status retrieves the daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.client.Call("FaceFrame.Status", StatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SelectFolder selects the active photo folder.
func (c *Client) SelectFolder(folder string) (*SelectFolderResponse, error) {
	var resp SelectFolderResponse
	if err := c.client.Call("FaceFrame.SelectFolder", SelectFolderRequest{Folder: folder}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Scan starts a face detection pass.
func (c *Client) Scan(folder, provider string) (*ScanResponse, error) {
	var resp ScanResponse
	if err := c.client.Call("FaceFrame.Scan", ScanRequest{Folder: folder, Provider: provider}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CancelScan requests cancellation of the running scan.
func (c *Client) CancelScan() (*CancelScanResponse, error) {
	var resp CancelScanResponse
	if err := c.client.Call("FaceFrame.CancelScan", CancelScanRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Cluster starts a clustering pass over the selected folder.
func (c *Client) Cluster() (*ClusterResponse, error) {
	var resp ClusterResponse
	if err := c.client.Call("FaceFrame.Cluster", ClusterRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Providers lists the worker's execution providers.
func (c *Client) Providers() (*ProvidersResponse, error) {
	var resp ProvidersResponse
	if err := c.client.Call("FaceFrame.Providers", ProvidersRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Persons returns the cached persons snapshot.
func (c *Client) Persons() (*PersonsResponse, error) {
	var resp PersonsResponse
	if err := c.client.Call("FaceFrame.Persons", PersonsRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Unclustered returns the cached unclustered-faces snapshot.
func (c *Client) Unclustered() (*UnclusteredResponse, error) {
	var resp UnclusteredResponse
	if err := c.client.Call("FaceFrame.Unclustered", UnclusteredRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// PhotosByPerson lists every photo a person appears in.
func (c *Client) PhotosByPerson(personID int64) (*PhotosByPersonResponse, error) {
	var resp PhotosByPersonResponse
	if err := c.client.Call("FaceFrame.PhotosByPerson", PhotosByPersonRequest{PersonID: personID}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Refresh re-reads both identity snapshots from the worker.
func (c *Client) Refresh() error {
	var resp RefreshResponse
	return c.client.Call("FaceFrame.Refresh", RefreshRequest{}, &resp)
}

// RenamePerson renames a person.
func (c *Client) RenamePerson(personID int64, newName string) error {
	var resp RenamePersonResponse
	return c.client.Call("FaceFrame.RenamePerson", RenamePersonRequest{PersonID: personID, NewName: newName}, &resp)
}

// ProposeMerge parks a merge behind a confirmation token.
func (c *Client) ProposeMerge(keepID, mergeID int64) (*ProposeMergeResponse, error) {
	var resp ProposeMergeResponse
	if err := c.client.Call("FaceFrame.ProposeMerge", ProposeMergeRequest{KeepID: keepID, MergeID: mergeID}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ConfirmMerge confirms a proposed merge.
func (c *Client) ConfirmMerge(token string) error {
	var resp ConfirmMergeResponse
	return c.client.Call("FaceFrame.ConfirmMerge", ConfirmMergeRequest{Token: token}, &resp)
}

// ProposeClearIndex parks an index wipe behind a confirmation token.
func (c *Client) ProposeClearIndex() (*ProposeClearIndexResponse, error) {
	var resp ProposeClearIndexResponse
	if err := c.client.Call("FaceFrame.ProposeClearIndex", ProposeClearIndexRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ConfirmClearIndex confirms a proposed index wipe.
func (c *Client) ConfirmClearIndex(token string) error {
	var resp ConfirmClearIndexResponse
	return c.client.Call("FaceFrame.ConfirmClearIndex", ConfirmClearIndexRequest{Token: token}, &resp)
}

// DiscardProposal declines a pending proposal.
func (c *Client) DiscardProposal(token string) error {
	var resp DiscardProposalResponse
	return c.client.Call("FaceFrame.DiscardProposal", DiscardProposalRequest{Token: token}, &resp)
}

// History lists recent job runs, newest first.
func (c *Client) History(limit int) (*HistoryResponse, error) {
	var resp HistoryResponse
	if err := c.client.Call("FaceFrame.History", HistoryRequest{Limit: limit}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ClearHistory removes all recorded job runs.
func (c *Client) ClearHistory() error {
	var resp ClearHistoryResponse
	return c.client.Call("FaceFrame.ClearHistory", ClearHistoryRequest{}, &resp)
}

// WorkerRestart restarts the worker process.
func (c *Client) WorkerRestart() (*WorkerRestartResponse, error) {
	var resp WorkerRestartResponse
	if err := c.client.Call("FaceFrame.WorkerRestart", WorkerRestartRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// LogTail returns daemon log lines starting at the request offset.
func (c *Client) LogTail(req LogTailRequest) (*LogTailResponse, error) {
	var resp LogTailResponse
	if err := c.client.Call("FaceFrame.LogTail", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Ping probes worker liveness through the daemon.
func (c *Client) Ping() error {
	var resp PingResponse
	return c.client.Call("FaceFrame.Ping", PingRequest{}, &resp)
}

// Shutdown asks the daemon process to exit.
func (c *Client) Shutdown() (*ShutdownResponse, error) {
	var resp ShutdownResponse
	if err := c.client.Call("FaceFrame.Shutdown", ShutdownRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
