package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var whitespaceRe = regexp.MustCompile(`\s+`)

const summarizeInstructions = "You are a meticulous note-taking assistant. " +
	"Listen to the voice note, transcribe it with speaker diarization, and summarize it.\n" +
	"Label speakers as \"Speaker 1\", \"Speaker 2\", and so on, in order of first appearance.\n" +
	"Return ONLY JSON matching exactly: " +
	`{"title":"","titleEmoji":"","summary":"","transcript":[{"speaker":"","text":""}]}` + "\n" +
	"title: a short descriptive phrase (<=8 words). titleEmoji: one emoji that fits the note.\n" +
	"summary: 2-4 sentences capturing the key points and any action items.\n" +
	"transcript: every utterance in chronological order."

const summarizeUserText = "Transcribe and summarize this voice note."

func clipText(text string, limit int) string {
	text = strings.TrimSpace(text)
	if limit <= 0 || len(text) <= limit {
		return text
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}

// parseNoteSummary accepts the raw completion text and demands the
// exact summarization shape. A payload missing any field is rejected
// so a malformed remote response never turns into a half-filled note.
func parseNoteSummary(raw string) (NoteSummary, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return NoteSummary{}, fmt.Errorf("empty summarization response")
	}

	candidates := []string{raw}
	if start := strings.Index(raw, "{"); start >= 0 {
		if end := strings.LastIndex(raw, "}"); end > start {
			candidates = append(candidates, raw[start:end+1])
		}
	}

	for _, candidate := range candidates {
		var summary NoteSummary
		if err := json.Unmarshal([]byte(candidate), &summary); err != nil {
			continue
		}
		summary = sanitizeNoteSummary(summary)
		if err := validateNoteSummary(summary); err == nil {
			return summary, nil
		}
	}
	return NoteSummary{}, fmt.Errorf("unable to parse summarization payload")
}

func sanitizeNoteSummary(summary NoteSummary) NoteSummary {
	summary.Title = strings.TrimSpace(summary.Title)
	summary.TitleEmoji = strings.TrimSpace(summary.TitleEmoji)
	summary.Summary = strings.TrimSpace(summary.Summary)
	segments := make([]TranscriptSegment, 0, len(summary.Transcript))
	for _, segment := range summary.Transcript {
		segment.Speaker = strings.TrimSpace(segment.Speaker)
		segment.Text = strings.TrimSpace(whitespaceRe.ReplaceAllString(segment.Text, " "))
		if segment.Text == "" {
			continue
		}
		if segment.Speaker == "" {
			segment.Speaker = "Speaker 1"
		}
		segments = append(segments, segment)
	}
	summary.Transcript = segments
	return summary
}

func validateNoteSummary(summary NoteSummary) error {
	switch {
	case summary.Title == "":
		return fmt.Errorf("summarization payload missing title")
	case summary.TitleEmoji == "":
		return fmt.Errorf("summarization payload missing titleEmoji")
	case summary.Summary == "":
		return fmt.Errorf("summarization payload missing summary")
	case len(summary.Transcript) == 0:
		return fmt.Errorf("summarization payload missing transcript")
	}
	return nil
}
