package library

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"faceframe/internal/logging"
	"faceframe/internal/protocol"
)

// Sender delivers commands to the worker. Satisfied by the supervisor.
type Sender interface {
	Send(protocol.Command)
}

var (
	// ErrNoFolder rejects operations before a folder has been selected.
	ErrNoFolder = errors.New("no folder selected")
	// ErrEmptyName rejects renames whose trimmed name is empty.
	ErrEmptyName = errors.New("person name must not be empty")
	// ErrSelfMerge rejects merging a person into itself.
	ErrSelfMerge = errors.New("cannot merge a person into itself")
	// ErrNoSuchProposal rejects confirmations for unknown or expired tokens.
	ErrNoSuchProposal = errors.New("no such pending proposal")
)

// proposalTTL bounds how long a destructive action stays confirmable.
const proposalTTL = 2 * time.Minute

// Person is the view's copy of one worker person record.
type Person struct {
	ID          int64
	DisplayName string
	FaceCount   int
	Thumbnail   string
}

// Face is the view's copy of one unclustered detection. Identity is the ID;
// several faces may share one source photo.
type Face struct {
	ID         int64
	SourcePath string
	BBox       protocol.BoundingBox
	Thumbnail  string
}

type proposalKind string

const (
	proposalMerge      proposalKind = "merge"
	proposalClearIndex proposalKind = "clear_index"
)

type proposal struct {
	kind    proposalKind
	folder  string
	keepID  int64
	mergeID int64
	expires time.Time
}

// View caches the last known snapshots and validates mutations before any
// command leaves the host.
type View struct {
	sender   Sender
	logger   *slog.Logger
	collator *collate.Collator
	now      func() time.Time

	mu          sync.Mutex
	folder      string
	persons     []Person
	unclustered []Face
	proposals   map[string]proposal
}

// NewView constructs an empty view bound to a command sender.
func NewView(sender Sender, logger *slog.Logger) *View {
	return &View{
		sender:    sender,
		logger:    logging.WithComponent(logger, "library"),
		collator:  collate.New(language.Und, collate.IgnoreCase),
		now:       time.Now,
		proposals: make(map[string]proposal),
	}
}

// SetFolder selects the active photo folder and drops snapshots and pending
// proposals belonging to the previous one.
func (v *View) SetFolder(path string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.folder == path {
		return
	}
	v.folder = path
	v.persons = nil
	v.unclustered = nil
	v.proposals = make(map[string]proposal)
}

// Folder returns the active photo folder, empty when none is selected.
func (v *View) Folder() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.folder
}

// Persons returns a copy of the last persons snapshot.
func (v *View) Persons() []Person {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]Person(nil), v.persons...)
}

// Unclustered returns a copy of the last unclustered-faces snapshot.
func (v *View) Unclustered() []Face {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]Face(nil), v.unclustered...)
}

// RequestRefresh fires both read commands, fire-and-forget. The replies are
// uncorrelated; whichever snapshot arrives next wins.
func (v *View) RequestRefresh() {
	folder := v.Folder()
	if folder == "" {
		return
	}
	v.sender.Send(protocol.GetPersons(folder))
	v.sender.Send(protocol.GetUnclustered(folder))
}

// Rename validates and sends a person rename followed by a refresh. The
// cached snapshot is left untouched until the worker answers.
func (v *View) Rename(personID int64, newName string) error {
	trimmed := strings.TrimSpace(newName)
	if trimmed == "" {
		return ErrEmptyName
	}
	folder := v.Folder()
	if folder == "" {
		return ErrNoFolder
	}
	v.sender.Send(protocol.RenamePerson(folder, personID, trimmed))
	v.logger.Info("rename sent", logging.Int64(logging.FieldPersonID, personID))
	v.RequestRefresh()
	return nil
}

// ProposeMerge validates a merge and parks it behind a confirmation token.
// Nothing is sent until ConfirmMerge; an unconfirmed proposal expires
// silently. Merging is not commutative: the keep person survives with its
// display name and absorbs every face the merge person owned.
func (v *View) ProposeMerge(keepID, mergeID int64) (string, error) {
	if keepID == mergeID {
		return "", ErrSelfMerge
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.folder == "" {
		return "", ErrNoFolder
	}
	token := uuid.NewString()
	v.proposals[token] = proposal{
		kind:    proposalMerge,
		folder:  v.folder,
		keepID:  keepID,
		mergeID: mergeID,
		expires: v.now().Add(proposalTTL),
	}
	return token, nil
}

// ConfirmMerge sends the merge parked behind token and refreshes.
func (v *View) ConfirmMerge(token string) error {
	p, err := v.takeProposal(token, proposalMerge)
	if err != nil {
		return err
	}
	v.sender.Send(protocol.MergePersons(p.folder, p.keepID, p.mergeID))
	v.logger.Info("merge sent",
		logging.Int64("keep_id", p.keepID),
		logging.Int64("merge_id", p.mergeID))
	v.RequestRefresh()
	return nil
}

// ProposeClearIndex parks a full index wipe behind a confirmation token.
func (v *View) ProposeClearIndex() (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.folder == "" {
		return "", ErrNoFolder
	}
	token := uuid.NewString()
	v.proposals[token] = proposal{
		kind:    proposalClearIndex,
		folder:  v.folder,
		expires: v.now().Add(proposalTTL),
	}
	return token, nil
}

// ConfirmClearIndex sends the index wipe parked behind token.
func (v *View) ConfirmClearIndex(token string) error {
	p, err := v.takeProposal(token, proposalClearIndex)
	if err != nil {
		return err
	}
	v.sender.Send(protocol.ClearIndex(p.folder))
	v.logger.Info("index clear sent", logging.String(logging.FieldFolder, p.folder))
	return nil
}

// Discard drops a pending proposal. Declining a confirmation is a silent
// no-op on the worker side.
func (v *View) Discard(token string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.proposals, token)
}

func (v *View) takeProposal(token string, kind proposalKind) (proposal, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	p, ok := v.proposals[token]
	if !ok || p.kind != kind || p.folder != v.folder {
		return proposal{}, ErrNoSuchProposal
	}
	delete(v.proposals, token)
	if v.now().After(p.expires) {
		return proposal{}, fmt.Errorf("%w: proposal expired", ErrNoSuchProposal)
	}
	return p, nil
}

// Apply feeds one worker event into the view. Snapshot events replace the
// matching list wholesale regardless of which read call caused them; the
// last-applied snapshot for each kind always wins.
func (v *View) Apply(ev protocol.Event) {
	switch ev := ev.(type) {
	case protocol.PersonsEvent:
		persons := make([]Person, 0, len(ev.Data))
		for _, p := range ev.Data {
			persons = append(persons, convertPerson(p))
		}
		v.sortPersons(persons)
		v.mu.Lock()
		v.persons = persons
		v.mu.Unlock()
		v.logger.Debug("persons snapshot applied", logging.Int("count", len(persons)))
	case protocol.UnclusteredEvent:
		faces := make([]Face, 0, len(ev.Data))
		for _, f := range ev.Data {
			faces = append(faces, convertFace(f))
		}
		v.mu.Lock()
		v.unclustered = faces
		v.mu.Unlock()
		v.logger.Debug("unclustered snapshot applied", logging.Int("count", len(faces)))
	case protocol.IndexClearedEvent:
		v.mu.Lock()
		v.persons = nil
		v.unclustered = nil
		v.mu.Unlock()
		v.logger.Info("index cleared")
	case protocol.PersonRenamedEvent:
		v.logger.Debug("rename acknowledged", logging.Int64(logging.FieldPersonID, ev.PersonID))
	case protocol.PersonsMergedEvent:
		v.logger.Debug("merge acknowledged",
			logging.Int64("keep_id", ev.KeepID),
			logging.Int64("merge_id", ev.MergeID))
	}
}

func (v *View) sortPersons(persons []Person) {
	sort.SliceStable(persons, func(i, j int) bool {
		if c := v.collator.CompareString(persons[i].DisplayName, persons[j].DisplayName); c != 0 {
			return c < 0
		}
		return persons[i].ID < persons[j].ID
	})
}

func convertPerson(p protocol.Person) Person {
	name := strings.TrimSpace(p.Name)
	if name == "" {
		name = fmt.Sprintf("Person %d", p.ID)
	}
	return Person{
		ID:          p.ID,
		DisplayName: name,
		FaceCount:   p.FaceCount,
		Thumbnail:   p.Thumbnail,
	}
}

func convertFace(f protocol.Face) Face {
	box := f.BBox
	// A worker bug could report swapped corners; normalize so the
	// x1<x2, y1<y2 invariant holds for renderers.
	if box.X1 > box.X2 {
		box.X1, box.X2 = box.X2, box.X1
	}
	if box.Y1 > box.Y2 {
		box.Y1, box.Y2 = box.Y2, box.Y1
	}
	return Face{
		ID:         f.ID,
		SourcePath: f.FilePath,
		BBox:       box,
		Thumbnail:  f.Thumbnail,
	}
}
