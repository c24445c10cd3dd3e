package tui

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/am-byte-code/EchoNote-Summarise/internal/chat"
	"github.com/am-byte-code/EchoNote-Summarise/internal/llm"
	"github.com/am-byte-code/EchoNote-Summarise/internal/note"
)

type fakeLLM struct {
	summary   llm.NoteSummary
	fragments []string
	streamErr error
}

func (f fakeLLM) Summarize(ctx context.Context, audio llm.Audio) (llm.NoteSummary, error) {
	return f.summary, nil
}

func (f fakeLLM) StreamChat(ctx context.Context, instructions string, history []llm.Message, handler llm.StreamHandler) error {
	if f.streamErr != nil {
		return f.streamErr
	}
	for _, fragment := range f.fragments {
		if err := handler(llm.StreamDelta{Content: fragment}); err != nil {
			return err
		}
	}
	return handler(llm.StreamDelta{Done: true})
}

func (fakeLLM) Name() string { return "fake" }

func newTestRepo(t *testing.T) *note.Repository {
	t.Helper()
	store, err := note.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	repo, err := note.NewRepository(store)
	if err != nil {
		t.Fatalf("NewRepository: %v", err)
	}
	return repo
}

func newTestModel(t *testing.T) *model {
	t.Helper()
	repo := newTestRepo(t)
	teaModel, ok := New(Config{
		Repo:     repo,
		Sessions: chat.NewManager(repo),
	}).(*model)
	if !ok {
		t.Fatalf("expected *model, got %T", teaModel)
	}
	return teaModel
}

func seedNote(t *testing.T, repo *note.Repository, title string) note.Note {
	t.Helper()
	n := note.New(title, "🎙️", "A short recap of "+title+".", []note.TranscriptSegment{
		{Speaker: "Speaker 1", Text: "Hello from " + title},
	}, note.AudioPayload{Data: "QUJD", MIMEType: "audio/webm"})
	if err := repo.Create(n); err != nil {
		t.Fatalf("Create(%s): %v", title, err)
	}
	return n
}

func TestTruncatePreview(t *testing.T) {
	t.Parallel()
	if got := truncatePreview("short summary", 160); got != "short summary" {
		t.Fatalf("short text should pass through, got %q", got)
	}
	long := strings.Repeat("word ", 80)
	got := truncatePreview(long, 40)
	if len([]rune(got)) > 40 {
		t.Fatalf("preview longer than limit: %d runes", len([]rune(got)))
	}
	if !strings.HasSuffix(got, "…") {
		t.Fatalf("truncated preview should end with ellipsis, got %q", got)
	}
	if got := truncatePreview("line\none\ntwo", 160); strings.Contains(got, "\n") {
		t.Fatalf("preview should be single line, got %q", got)
	}
}

func TestFormatWhen(t *testing.T) {
	t.Parallel()
	when := time.Date(2026, time.March, 14, 9, 30, 0, 0, time.UTC)
	if got := formatWhen(when); got == "" {
		t.Fatal("formatWhen returned empty string")
	}
}

func TestStartChatStreamDeliversFragmentsInOrder(t *testing.T) {
	t.Parallel()
	client := fakeLLM{fragments: []string{"Hel", "lo, ", "world"}}
	cmd := startChatStream(client, scopeGlobal, "", 3, "instructions", nil)

	var collected []string
	var sawDone bool
	for {
		msg, ok := cmd().(chatStreamMsg)
		if !ok {
			t.Fatal("expected chatStreamMsg from stream command")
		}
		if msg.generation != 3 {
			t.Fatalf("generation tag lost, got %d", msg.generation)
		}
		if msg.done {
			sawDone = true
			if msg.err != nil {
				t.Fatalf("unexpected stream error: %v", msg.err)
			}
			break
		}
		collected = append(collected, msg.fragment)
		cmd = waitForChatStream(msg.updates)
	}
	if !sawDone {
		t.Fatal("stream never reported done")
	}
	if got := strings.Join(collected, ""); got != "Hello, world" {
		t.Fatalf("fragments out of order or lost: %q", got)
	}
}

func TestStartChatStreamSurfacesFailure(t *testing.T) {
	t.Parallel()
	client := fakeLLM{streamErr: context.DeadlineExceeded}
	cmd := startChatStream(client, scopeGlobal, "", 1, "instructions", nil)

	msg, ok := cmd().(chatStreamMsg)
	if !ok {
		t.Fatal("expected chatStreamMsg from stream command")
	}
	if !msg.done {
		t.Fatal("failed stream should report done")
	}
	if msg.err == nil {
		t.Fatal("expected error on the final stream event")
	}
}
