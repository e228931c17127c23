package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Status tags an inbound event record.
type Status string

const (
	StatusStarted        Status = "started"
	StatusProgress       Status = "progress"
	StatusComplete       Status = "complete"
	StatusError          Status = "error"
	StatusCancelled      Status = "cancelled"
	StatusProviders      Status = "providers"
	StatusPersons        Status = "persons"
	StatusUnclustered    Status = "unclustered"
	StatusClustered      Status = "clustered"
	StatusIndexCleared   Status = "index_cleared"
	StatusPong           Status = "pong"
	StatusPersonRenamed  Status = "person_renamed"
	StatusPersonsMerged  Status = "persons_merged"
	StatusPhotosByPerson Status = "photos_by_person"
)

// ErrNotProtocol marks a line that is not a protocol event. Such lines are
// worker diagnostics and must be dropped without failing the stream.
var ErrNotProtocol = errors.New("not a protocol record")

// Event is one inbound notification from the worker. The set of
// implementations is closed: DecodeEvent only ever returns the types in
// this package, so a type switch over them is exhaustive.
type Event interface {
	Status() Status
}

// StartedEvent confirms a scan began for a folder.
type StartedEvent struct {
	Path string `json:"path"`
}

// ProgressEvent reports scan/cluster advancement. Total zero means the
// worker does not know the total yet (indeterminate).
type ProgressEvent struct {
	Current int    `json:"current"`
	Total   int    `json:"total"`
	File    string `json:"file"`
}

// CompleteEvent terminates a job successfully.
type CompleteEvent struct {
	Path string `json:"path"`
}

// ErrorEvent terminates a job with a failure.
type ErrorEvent struct {
	Message string `json:"message"`
}

// CancelledEvent terminates a job after a cooperative cancel.
type CancelledEvent struct {
	Message string `json:"message"`
}

// ProvidersEvent lists available execution providers.
type ProvidersEvent struct {
	Providers []string `json:"providers"`
	GPUInfo   string   `json:"gpu_info"`
}

// PersonsEvent is a wholesale replacement snapshot of all persons.
type PersonsEvent struct {
	Data []Person `json:"data"`
}

// UnclusteredEvent is a wholesale replacement snapshot of unclustered faces.
type UnclusteredEvent struct {
	Data []Face `json:"data"`
}

// ClusteredEvent acknowledges a finished clustering pass.
type ClusteredEvent struct {
	Count int `json:"count"`
}

// IndexClearedEvent acknowledges removal of a folder's index.
type IndexClearedEvent struct{}

// PongEvent answers a liveness ping.
type PongEvent struct{}

// PersonRenamedEvent acknowledges a rename.
type PersonRenamedEvent struct {
	PersonID int64  `json:"person_id"`
	NewName  string `json:"new_name"`
}

// PersonsMergedEvent acknowledges a merge.
type PersonsMergedEvent struct {
	KeepID  int64 `json:"keep_id"`
	MergeID int64 `json:"merge_id"`
}

// PhotosByPersonEvent lists source photos containing one person.
type PhotosByPersonEvent struct {
	PersonID int64    `json:"person_id"`
	Photos   []string `json:"photos"`
}

func (StartedEvent) Status() Status        { return StatusStarted }
func (ProgressEvent) Status() Status       { return StatusProgress }
func (CompleteEvent) Status() Status       { return StatusComplete }
func (ErrorEvent) Status() Status          { return StatusError }
func (CancelledEvent) Status() Status      { return StatusCancelled }
func (ProvidersEvent) Status() Status      { return StatusProviders }
func (PersonsEvent) Status() Status        { return StatusPersons }
func (UnclusteredEvent) Status() Status    { return StatusUnclustered }
func (ClusteredEvent) Status() Status      { return StatusClustered }
func (IndexClearedEvent) Status() Status   { return StatusIndexCleared }
func (PongEvent) Status() Status           { return StatusPong }
func (PersonRenamedEvent) Status() Status  { return StatusPersonRenamed }
func (PersonsMergedEvent) Status() Status  { return StatusPersonsMerged }
func (PhotosByPersonEvent) Status() Status { return StatusPhotosByPerson }

// DecodeEvent parses one complete line into its concrete event type. Lines
// that are not JSON objects, lack a status tag, or carry an unknown status
// fail with ErrNotProtocol.
func DecodeEvent(line []byte) (Event, error) {
	var probe struct {
		Status Status `json:"status"`
	}
	if err := json.Unmarshal(line, &probe); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotProtocol, err)
	}
	if probe.Status == "" {
		return nil, fmt.Errorf("%w: missing status tag", ErrNotProtocol)
	}

	switch probe.Status {
	case StatusStarted:
		return decodeAs[StartedEvent](line, probe.Status)
	case StatusProgress:
		return decodeAs[ProgressEvent](line, probe.Status)
	case StatusComplete:
		return decodeAs[CompleteEvent](line, probe.Status)
	case StatusError:
		return decodeAs[ErrorEvent](line, probe.Status)
	case StatusCancelled:
		return decodeAs[CancelledEvent](line, probe.Status)
	case StatusProviders:
		return decodeAs[ProvidersEvent](line, probe.Status)
	case StatusPersons:
		return decodeAs[PersonsEvent](line, probe.Status)
	case StatusUnclustered:
		return decodeAs[UnclusteredEvent](line, probe.Status)
	case StatusClustered:
		return decodeAs[ClusteredEvent](line, probe.Status)
	case StatusIndexCleared:
		return IndexClearedEvent{}, nil
	case StatusPong:
		return PongEvent{}, nil
	case StatusPersonRenamed:
		return decodeAs[PersonRenamedEvent](line, probe.Status)
	case StatusPersonsMerged:
		return decodeAs[PersonsMergedEvent](line, probe.Status)
	case StatusPhotosByPerson:
		return decodeAs[PhotosByPersonEvent](line, probe.Status)
	default:
		return nil, fmt.Errorf("%w: unknown status %q", ErrNotProtocol, probe.Status)
	}
}

func decodeAs[T Event](line []byte, status Status) (Event, error) {
	var ev T
	if err := json.Unmarshal(line, &ev); err != nil {
		return nil, fmt.Errorf("decode %s event: %w", status, err)
	}
	return ev, nil
}
