package context

import (
	"strings"
	"testing"
	"time"

	"github.com/am-byte-code/EchoNote-Summarise/internal/note"
)

func sampleNote(id, title, summary string) note.Note {
	return note.Note{
		ID:         id,
		Title:      title,
		TitleEmoji: "🎙️",
		Summary:    summary,
		Transcript: []note.TranscriptSegment{
			{Speaker: "Speaker 1", Text: "First thing."},
			{Speaker: "Speaker 2", Text: "Second thing."},
		},
		CreatedAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestGlobalListsActiveSummariesAndTrashTitles(t *testing.T) {
	active := []note.Note{sampleNote("a1", "Standup", "Sprint status.")}
	trashed := []note.Note{sampleNote("a2", "Old memo", "Stale details.")}

	got := Global(active, trashed)
	if !strings.Contains(got, "Standup") || !strings.Contains(got, "Sprint status.") {
		t.Fatalf("active note title+summary missing:\n%s", got)
	}
	if !strings.Contains(got, "Old memo") {
		t.Fatalf("trashed note title missing:\n%s", got)
	}
	if strings.Contains(got, "Stale details.") {
		t.Fatalf("trashed notes must contribute titles only:\n%s", got)
	}
}

func TestGlobalIsDeterministic(t *testing.T) {
	active := []note.Note{
		sampleNote("a1", "Standup", "Sprint status."),
		sampleNote("a2", "Grocery run", "Milk and eggs."),
	}
	trashed := []note.Note{sampleNote("a3", "Old memo", "x")}

	first := Global(active, trashed)
	second := Global(active, trashed)
	if first != second {
		t.Fatal("identical inputs must yield byte-identical output")
	}
}

func TestGlobalEmptyCollections(t *testing.T) {
	got := Global(nil, nil)
	if !strings.Contains(got, "no active notes") {
		t.Fatalf("missing empty-active marker:\n%s", got)
	}
	if !strings.Contains(got, "trash is empty") {
		t.Fatalf("missing empty-trash marker:\n%s", got)
	}
}

func TestForNoteCarriesFullTranscript(t *testing.T) {
	n := sampleNote("a1", "Standup", "Sprint status.")

	got := ForNote(n)
	if !strings.Contains(got, "Standup") || !strings.Contains(got, "Sprint status.") {
		t.Fatalf("note title or summary missing:\n%s", got)
	}
	if !strings.Contains(got, "Speaker 1: First thing.") || !strings.Contains(got, "Speaker 2: Second thing.") {
		t.Fatalf("transcript segments missing:\n%s", got)
	}
	first := strings.Index(got, "First thing.")
	second := strings.Index(got, "Second thing.")
	if first < 0 || second < 0 || first > second {
		t.Fatalf("transcript order not preserved:\n%s", got)
	}

	if again := ForNote(n); again != got {
		t.Fatal("identical input must yield byte-identical output")
	}
}

func TestForNoteWithoutTranscript(t *testing.T) {
	n := sampleNote("a1", "Standup", "Sprint status.")
	n.Transcript = nil
	if got := ForNote(n); !strings.Contains(got, "(no transcript)") {
		t.Fatalf("missing empty-transcript marker:\n%s", got)
	}
}

func TestDisplayTitleFallsBack(t *testing.T) {
	n := note.Note{}
	got := Global([]note.Note{n}, nil)
	if !strings.Contains(got, "Untitled note") {
		t.Fatalf("blank titles should fall back:\n%s", got)
	}
}
