package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Action tags an outbound command record.
type Action string

const (
	ActionScan              Action = "SCAN"
	ActionCancelScan        Action = "CANCEL_SCAN"
	ActionGetProviders      Action = "GET_PROVIDERS"
	ActionCluster           Action = "CLUSTER"
	ActionGetPersons        Action = "GET_PERSONS"
	ActionGetUnclustered    Action = "GET_UNCLUSTERED"
	ActionClearIndex        Action = "CLEAR_INDEX"
	ActionRenamePerson      Action = "RENAME_PERSON"
	ActionMergePersons      Action = "MERGE_PERSONS"
	ActionPing              Action = "PING"
	ActionGetPhotosByPerson Action = "GET_PHOTOS_BY_PERSON"
)

// Command is one outbound request to the worker. Fields beyond Action are
// populated per action; unused fields are omitted from the wire record.
//
// RequestID is a host-generated correlation id. The current worker ignores
// it and never echoes it back, but carrying it keeps the wire format ready
// for correlated replies without a protocol change.
type Command struct {
	Action    Action `json:"action"`
	RequestID string `json:"request_id,omitempty"`
	Path      string `json:"path,omitempty"`
	Provider  string `json:"provider,omitempty"`
	PersonID  int64  `json:"person_id,omitempty"`
	NewName   string `json:"new_name,omitempty"`
	KeepID    int64  `json:"keep_id,omitempty"`
	MergeID   int64  `json:"merge_id,omitempty"`
}

// ErrInvalidCommand indicates a command that must not be written to the wire.
var ErrInvalidCommand = errors.New("invalid command")

// EncodeCommand serializes one command as a single JSON record without the
// trailing line break; the transport owns framing.
func EncodeCommand(cmd Command) ([]byte, error) {
	if err := cmd.validate(); err != nil {
		return nil, err
	}
	data, err := json.Marshal(cmd)
	if err != nil {
		return nil, fmt.Errorf("encode command: %w", err)
	}
	return data, nil
}

func (c Command) validate() error {
	switch c.Action {
	case ActionScan:
		if c.Path == "" || c.Provider == "" {
			return fmt.Errorf("%w: SCAN requires path and provider", ErrInvalidCommand)
		}
	case ActionCancelScan, ActionGetProviders, ActionPing:
	case ActionCluster, ActionGetPersons, ActionGetUnclustered, ActionClearIndex:
		if c.Path == "" {
			return fmt.Errorf("%w: %s requires path", ErrInvalidCommand, c.Action)
		}
	case ActionRenamePerson:
		if c.Path == "" || c.PersonID == 0 || c.NewName == "" {
			return fmt.Errorf("%w: RENAME_PERSON requires path, person_id, and new_name", ErrInvalidCommand)
		}
	case ActionMergePersons:
		if c.Path == "" || c.KeepID == 0 || c.MergeID == 0 {
			return fmt.Errorf("%w: MERGE_PERSONS requires path, keep_id, and merge_id", ErrInvalidCommand)
		}
		if c.KeepID == c.MergeID {
			return fmt.Errorf("%w: MERGE_PERSONS requires distinct ids", ErrInvalidCommand)
		}
	case ActionGetPhotosByPerson:
		if c.Path == "" || c.PersonID == 0 {
			return fmt.Errorf("%w: GET_PHOTOS_BY_PERSON requires path and person_id", ErrInvalidCommand)
		}
	default:
		return fmt.Errorf("%w: unknown action %q", ErrInvalidCommand, c.Action)
	}
	return nil
}

func Scan(path, provider string) Command {
	return Command{Action: ActionScan, Path: path, Provider: provider}
}

func CancelScan() Command {
	return Command{Action: ActionCancelScan}
}

func GetProviders() Command {
	return Command{Action: ActionGetProviders}
}

func Cluster(path string) Command {
	return Command{Action: ActionCluster, Path: path}
}

func GetPersons(path string) Command {
	return Command{Action: ActionGetPersons, Path: path}
}

func GetUnclustered(path string) Command {
	return Command{Action: ActionGetUnclustered, Path: path}
}

func ClearIndex(path string) Command {
	return Command{Action: ActionClearIndex, Path: path}
}

func RenamePerson(path string, personID int64, newName string) Command {
	return Command{Action: ActionRenamePerson, Path: path, PersonID: personID, NewName: newName}
}

func MergePersons(path string, keepID, mergeID int64) Command {
	return Command{Action: ActionMergePersons, Path: path, KeepID: keepID, MergeID: mergeID}
}

func Ping() Command {
	return Command{Action: ActionPing}
}

func GetPhotosByPerson(path string, personID int64) Command {
	return Command{Action: ActionGetPhotosByPerson, Path: path, PersonID: personID}
}
