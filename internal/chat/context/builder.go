// Package context derives the instruction blocks injected into
// conversational sessions. Both builders are pure functions: identical
// note collections always produce byte-identical output, and the block
// is regenerated whole on every change because the remote assistant
// cannot apply a context diff.
package context

import (
	"fmt"
	"strings"

	"github.com/am-byte-code/EchoNote-Summarise/internal/note"
)

const globalPreamble = "You are EchoNote's assistant. You help the user recall and reason " +
	"about their voice notes. Answer using only the notes listed below; say so when the " +
	"notes do not contain the answer."

const notePreamble = "You are EchoNote's assistant for a single voice note. Answer questions " +
	"using only this note's summary and transcript; say so when they do not contain the answer."

// Global enumerates every active note's title and summary plus every
// trashed note's title, for the assistant that spans the whole
// collection.
func Global(active, trashed []note.Note) string {
	var b strings.Builder
	b.WriteString(globalPreamble)
	b.WriteString("\n\n")

	if len(active) == 0 {
		b.WriteString("The user has no active notes yet.\n")
	} else {
		b.WriteString("Active notes, newest first:\n")
		for i, n := range active {
			fmt.Fprintf(&b, "%d. %s\n", i+1, displayTitle(n))
			fmt.Fprintf(&b, "   Summary: %s\n", strings.TrimSpace(n.Summary))
		}
	}

	b.WriteString("\n")
	if len(trashed) == 0 {
		b.WriteString("The trash is empty.\n")
	} else {
		b.WriteString("Notes in the trash (titles only):\n")
		for _, n := range trashed {
			fmt.Fprintf(&b, "- %s\n", displayTitle(n))
		}
	}
	return b.String()
}

// ForNote carries the full transcript and summary of exactly one note,
// for that note's scoped assistant.
func ForNote(n note.Note) string {
	var b strings.Builder
	b.WriteString(notePreamble)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Note: %s\n", displayTitle(n))
	fmt.Fprintf(&b, "Summary: %s\n", strings.TrimSpace(n.Summary))
	b.WriteString("\nTranscript:\n")
	if len(n.Transcript) == 0 {
		b.WriteString("(no transcript)\n")
		return b.String()
	}
	for _, segment := range n.Transcript {
		fmt.Fprintf(&b, "%s: %s\n", segment.Speaker, segment.Text)
	}
	return b.String()
}

func displayTitle(n note.Note) string {
	title := strings.TrimSpace(n.Title)
	if title == "" {
		title = "Untitled note"
	}
	if emoji := strings.TrimSpace(n.TitleEmoji); emoji != "" {
		return emoji + " " + title
	}
	return title
}
