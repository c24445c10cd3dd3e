package tui

import (
	"context"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/am-byte-code/EchoNote-Summarise/internal/audio"
	"github.com/am-byte-code/EchoNote-Summarise/internal/llm"
)

const (
	summarizeTimeout = 5 * time.Minute
	chatTimeout      = 2 * time.Minute
)

// ingestJob reads an audio file, encodes it, and asks the remote model
// for the structured summary. No partial note escapes a failure.
func ingestJob(client llm.Client, path string) jobRunner {
	return func(parent context.Context) (tea.Msg, error) {
		payload, err := audio.FromFile(path)
		if err != nil {
			return ingestResultMsg{err: err}, err
		}
		ctx, cancel := context.WithTimeout(parent, summarizeTimeout)
		defer cancel()
		summary, err := client.Summarize(ctx, llm.Audio{Data: payload.Data, MIMEType: payload.MIMEType})
		if err != nil {
			return ingestResultMsg{err: err}, err
		}
		return ingestResultMsg{summary: summary, payload: payload}, nil
	}
}

// chatStreamMsg carries one event of a streamed reply back into the
// update loop. The generation tag is the stale-stream guard: global
// fragments whose generation no longer matches the repository are
// dropped by the model instead of being merged into the new session.
type chatStreamMsg struct {
	scope      chatScope
	noteID     string
	generation uint64
	fragment   string
	done       bool
	err        error
	updates    chan chatStreamMsg
}

// startChatStream forwards the message exchange to the remote
// assistant and pumps fragments through a channel, one tea.Msg per
// delta, in arrival order.
func startChatStream(client llm.Client, scope chatScope, noteID string, generation uint64, instructions string, history []llm.Message) tea.Cmd {
	updates := make(chan chatStreamMsg, 16)
	base := chatStreamMsg{scope: scope, noteID: noteID, generation: generation, updates: updates}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), chatTimeout)
		defer cancel()
		err := client.StreamChat(ctx, instructions, history, func(delta llm.StreamDelta) error {
			if delta.Done || delta.Content == "" {
				return nil
			}
			msg := base
			msg.fragment = delta.Content
			updates <- msg
			return nil
		})
		final := base
		final.done = true
		final.err = err
		updates <- final
		close(updates)
	}()
	return waitForChatStream(updates)
}

func waitForChatStream(updates chan chatStreamMsg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-updates
		if !ok {
			return nil
		}
		return msg
	}
}

func truncatePreview(text string, limit int) string {
	text = strings.TrimSpace(strings.ReplaceAll(text, "\n", " "))
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return strings.TrimSpace(string(runes[:limit-1])) + "…"
}

func formatWhen(t time.Time) string {
	return t.Local().Format("Jan 2 15:04")
}
