package chat

import (
	"strings"
	"testing"
	"time"

	"github.com/am-byte-code/EchoNote-Summarise/internal/note"
)

func newTestManager(t *testing.T) (*Manager, *note.Repository) {
	t.Helper()
	store, err := note.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	repo, err := note.NewRepository(store)
	if err != nil {
		t.Fatalf("NewRepository() error = %v", err)
	}
	return NewManager(repo), repo
}

func testNote(id, title string) note.Note {
	return note.Note{
		ID:         id,
		Title:      title,
		TitleEmoji: "🎙️",
		Summary:    "Summary of " + title,
		Transcript: []note.TranscriptSegment{{Speaker: "Speaker 1", Text: "Body of " + title}},
		Audio:      note.AudioPayload{Data: "AAAA", MIMEType: "audio/webm"},
		CreatedAt:  time.Now(),
	}
}

func TestGlobalSessionStableWhileNotesUnchanged(t *testing.T) {
	t.Parallel()

	manager, _ := newTestManager(t)
	first := manager.Global()
	if first == nil {
		t.Fatal("expected a global session")
	}
	if manager.Global() != first {
		t.Fatal("global session must be reused while the collection is unchanged")
	}
}

func TestGlobalSessionRebuiltOnMutation(t *testing.T) {
	t.Parallel()

	manager, repo := newTestManager(t)
	stale := manager.Global()
	if _, err := stale.Begin("remember this"); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	stale.Append("I will.")
	stale.Finish()

	if err := repo.Create(testNote("a1", "Standup")); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	fresh := manager.Global()
	if fresh == stale {
		t.Fatal("mutation must discard the previous global session")
	}
	if len(fresh.Messages()) != 0 {
		t.Fatal("rebuilt session must start with an empty transcript")
	}
	if !strings.Contains(fresh.Instructions(), "Standup") {
		t.Fatalf("rebuilt instructions should reflect the new note:\n%s", fresh.Instructions())
	}
}

func TestGlobalIsCurrentDetectsSupersededStreams(t *testing.T) {
	t.Parallel()

	manager, repo := newTestManager(t)
	session := manager.Global()
	captured := session.Generation()
	if !manager.GlobalIsCurrent(captured) {
		t.Fatal("freshly built session should be current")
	}

	if err := repo.Create(testNote("a1", "Standup")); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if manager.GlobalIsCurrent(captured) {
		t.Fatal("stream from before the mutation must be recognized as stale")
	}
}

func TestStaleFragmentsDoNotReachNewSession(t *testing.T) {
	t.Parallel()

	manager, repo := newTestManager(t)
	stale := manager.Global()
	capturedGen := stale.Generation()
	if _, err := stale.Begin("question"); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}

	// Collection changes while the reply is still streaming.
	if err := repo.Create(testNote("a1", "Standup")); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	fresh := manager.Global()
	// The caller's stale guard: fragments whose generation no longer
	// matches are dropped instead of being applied.
	for _, fragment := range []string{"late ", "chunks"} {
		if manager.GlobalIsCurrent(capturedGen) {
			fresh.Append(fragment)
		}
	}
	if len(fresh.Messages()) != 0 {
		t.Fatalf("late fragments leaked into the new session: %#v", fresh.Messages())
	}
}

func TestForNoteBuiltOncePerNote(t *testing.T) {
	t.Parallel()

	manager, repo := newTestManager(t)
	n := testNote("a1", "Standup")
	if err := repo.Create(n); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	first := manager.ForNote(n)
	if !strings.Contains(first.Instructions(), "Body of Standup") {
		t.Fatalf("note session instructions missing transcript:\n%s", first.Instructions())
	}

	// Further mutations do not refresh a note session.
	if err := repo.Create(testNote("a2", "Grocery run")); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if manager.ForNote(n) != first {
		t.Fatal("note session must be reused for the note's lifetime")
	}
	if strings.Contains(first.Instructions(), "Grocery run") {
		t.Fatal("note session must not absorb other notes")
	}
}

func TestIndependentSessionsStreamConcurrently(t *testing.T) {
	t.Parallel()

	manager, repo := newTestManager(t)
	n := testNote("a1", "Standup")
	if err := repo.Create(n); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	global := manager.Global()
	scoped := manager.ForNote(n)

	if _, err := global.Begin("global question"); err != nil {
		t.Fatalf("global Begin() error = %v", err)
	}
	if _, err := scoped.Begin("note question"); err != nil {
		t.Fatalf("scoped session must stream independently, got %v", err)
	}

	global.Append("global answer")
	scoped.Append("note answer")
	global.Finish()
	scoped.Finish()

	gm := global.Messages()
	sm := scoped.Messages()
	if gm[len(gm)-1].Content != "global answer" || sm[len(sm)-1].Content != "note answer" {
		t.Fatalf("streams interfered: global=%q scoped=%q", gm[len(gm)-1].Content, sm[len(sm)-1].Content)
	}
}

func TestDropForgetsNoteSession(t *testing.T) {
	t.Parallel()

	manager, repo := newTestManager(t)
	n := testNote("a1", "Standup")
	if err := repo.Create(n); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	first := manager.ForNote(n)
	manager.Drop(n.ID)
	if manager.ForNote(n) == first {
		t.Fatal("dropped session should not be resurrected")
	}
}
