package library

import (
	"errors"
	"testing"

	"faceframe/internal/logging"
	"faceframe/internal/protocol"
)

type recordingSender struct {
	commands []protocol.Command
}

func (r *recordingSender) Send(cmd protocol.Command) {
	r.commands = append(r.commands, cmd)
}

func (r *recordingSender) byAction(action protocol.Action) []protocol.Command {
	var out []protocol.Command
	for _, cmd := range r.commands {
		if cmd.Action == action {
			out = append(out, cmd)
		}
	}
	return out
}

func newTestView() (*View, *recordingSender) {
	sender := &recordingSender{}
	view := NewView(sender, logging.NewNop())
	view.SetFolder("/photos")
	return view, sender
}

func TestRequestRefreshSendsBothReads(t *testing.T) {
	view, sender := newTestView()
	view.RequestRefresh()

	if got := len(sender.byAction(protocol.ActionGetPersons)); got != 1 {
		t.Fatalf("GET_PERSONS sent %d times, want 1", got)
	}
	if got := len(sender.byAction(protocol.ActionGetUnclustered)); got != 1 {
		t.Fatalf("GET_UNCLUSTERED sent %d times, want 1", got)
	}
}

func TestRequestRefreshWithoutFolderSendsNothing(t *testing.T) {
	sender := &recordingSender{}
	view := NewView(sender, logging.NewNop())
	view.RequestRefresh()
	if len(sender.commands) != 0 {
		t.Fatalf("expected no commands, got %v", sender.commands)
	}
}

func TestRenameTrimsAndRefreshes(t *testing.T) {
	view, sender := newTestView()
	if err := view.Rename(3, " Alice "); err != nil {
		t.Fatalf("Rename returned error: %v", err)
	}
	renames := sender.byAction(protocol.ActionRenamePerson)
	if len(renames) != 1 {
		t.Fatalf("RENAME_PERSON sent %d times, want 1", len(renames))
	}
	if renames[0].NewName != "Alice" || renames[0].PersonID != 3 || renames[0].Path != "/photos" {
		t.Fatalf("unexpected rename command: %+v", renames[0])
	}
	if len(sender.byAction(protocol.ActionGetPersons)) != 1 || len(sender.byAction(protocol.ActionGetUnclustered)) != 1 {
		t.Fatal("rename must be followed by one full refresh")
	}
}

func TestRenameRejectsEmptyNames(t *testing.T) {
	view, sender := newTestView()
	for _, name := range []string{"", "   ", "\t\n"} {
		if err := view.Rename(3, name); !errors.Is(err, ErrEmptyName) {
			t.Errorf("Rename(%q) error = %v, want ErrEmptyName", name, err)
		}
	}
	if len(sender.commands) != 0 {
		t.Fatalf("rejected renames must send nothing, got %v", sender.commands)
	}
}

func TestMergeRequiresDistinctIDs(t *testing.T) {
	view, sender := newTestView()
	if _, err := view.ProposeMerge(4, 4); !errors.Is(err, ErrSelfMerge) {
		t.Fatalf("self merge error = %v, want ErrSelfMerge", err)
	}
	if len(sender.commands) != 0 {
		t.Fatalf("self merge must send nothing, got %v", sender.commands)
	}
}

func TestMergeTwoPhaseConfirm(t *testing.T) {
	view, sender := newTestView()
	token, err := view.ProposeMerge(1, 2)
	if err != nil {
		t.Fatalf("ProposeMerge returned error: %v", err)
	}
	// Proposal alone sends nothing; the command waits for confirmation.
	if len(sender.commands) != 0 {
		t.Fatalf("unconfirmed merge sent commands: %v", sender.commands)
	}

	if err := view.ConfirmMerge(token); err != nil {
		t.Fatalf("ConfirmMerge returned error: %v", err)
	}
	merges := sender.byAction(protocol.ActionMergePersons)
	if len(merges) != 1 || merges[0].KeepID != 1 || merges[0].MergeID != 2 {
		t.Fatalf("unexpected merge commands: %v", merges)
	}
	if len(sender.byAction(protocol.ActionGetPersons)) != 1 {
		t.Fatal("confirmed merge must trigger a refresh")
	}

	// A token is single-use.
	if err := view.ConfirmMerge(token); !errors.Is(err, ErrNoSuchProposal) {
		t.Fatalf("reused token error = %v, want ErrNoSuchProposal", err)
	}
}

func TestMergeDeclinedIsSilent(t *testing.T) {
	view, sender := newTestView()
	token, err := view.ProposeMerge(1, 2)
	if err != nil {
		t.Fatal(err)
	}
	view.Discard(token)
	if err := view.ConfirmMerge(token); !errors.Is(err, ErrNoSuchProposal) {
		t.Fatalf("discarded token error = %v, want ErrNoSuchProposal", err)
	}
	if len(sender.commands) != 0 {
		t.Fatalf("declined merge must send nothing, got %v", sender.commands)
	}
}

func TestProposalInvalidatedByFolderChange(t *testing.T) {
	view, sender := newTestView()
	token, err := view.ProposeMerge(1, 2)
	if err != nil {
		t.Fatal(err)
	}
	view.SetFolder("/other")
	if err := view.ConfirmMerge(token); !errors.Is(err, ErrNoSuchProposal) {
		t.Fatalf("stale token error = %v, want ErrNoSuchProposal", err)
	}
	if len(sender.commands) != 0 {
		t.Fatalf("stale confirmation must send nothing, got %v", sender.commands)
	}
}

func TestClearIndexTwoPhase(t *testing.T) {
	view, sender := newTestView()
	token, err := view.ProposeClearIndex()
	if err != nil {
		t.Fatal(err)
	}
	if err := view.ConfirmClearIndex(token); err != nil {
		t.Fatalf("ConfirmClearIndex returned error: %v", err)
	}
	if got := sender.byAction(protocol.ActionClearIndex); len(got) != 1 || got[0].Path != "/photos" {
		t.Fatalf("unexpected clear commands: %v", got)
	}
}

func TestSnapshotsReplaceWholesale(t *testing.T) {
	view, _ := newTestView()

	view.Apply(protocol.PersonsEvent{Data: []protocol.Person{
		{ID: 2, Name: "bob"},
		{ID: 1, Name: "Alice"},
		{ID: 3},
	}})
	persons := view.Persons()
	if len(persons) != 3 {
		t.Fatalf("persons count = %d, want 3", len(persons))
	}
	// Collated, case-insensitive ordering; unnamed persons get a fallback.
	if persons[0].DisplayName != "Alice" || persons[1].DisplayName != "bob" || persons[2].DisplayName != "Person 3" {
		t.Fatalf("unexpected order: %+v", persons)
	}

	// A later snapshot wholesale-replaces the earlier one.
	view.Apply(protocol.PersonsEvent{Data: []protocol.Person{{ID: 9, Name: "Zoe"}}})
	persons = view.Persons()
	if len(persons) != 1 || persons[0].ID != 9 {
		t.Fatalf("snapshot not replaced: %+v", persons)
	}
}

func TestUnclusteredFacesKeepIdentityByID(t *testing.T) {
	view, _ := newTestView()
	view.Apply(protocol.UnclusteredEvent{Data: []protocol.Face{
		{ID: 10, FilePath: "/p/a.jpg", BBox: protocol.BoundingBox{X1: 1, Y1: 1, X2: 2, Y2: 2}},
		{ID: 11, FilePath: "/p/a.jpg", BBox: protocol.BoundingBox{X1: 5, Y1: 5, X2: 6, Y2: 6}},
	}})
	faces := view.Unclustered()
	if len(faces) != 2 {
		t.Fatalf("faces count = %d, want 2", len(faces))
	}
	if faces[0].ID == faces[1].ID {
		t.Fatal("faces sharing a photo must remain distinct entities")
	}
}

func TestApplyNormalizesSwappedBoxCorners(t *testing.T) {
	view, _ := newTestView()
	view.Apply(protocol.UnclusteredEvent{Data: []protocol.Face{
		{ID: 1, FilePath: "/p/a.jpg", BBox: protocol.BoundingBox{X1: 9, Y1: 8, X2: 3, Y2: 2}},
	}})
	box := view.Unclustered()[0].BBox
	if !box.Valid() {
		t.Fatalf("box not normalized: %+v", box)
	}
}

func TestIndexClearedDropsSnapshots(t *testing.T) {
	view, _ := newTestView()
	view.Apply(protocol.PersonsEvent{Data: []protocol.Person{{ID: 1, Name: "Alice"}}})
	view.Apply(protocol.IndexClearedEvent{})
	if len(view.Persons()) != 0 || len(view.Unclustered()) != 0 {
		t.Fatal("index_cleared must drop cached snapshots")
	}
}
