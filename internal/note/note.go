package note

import (
	"time"

	"github.com/google/uuid"
)

// Note is a single recorded or uploaded voice memo together with the
// title, summary, and speaker transcript derived from it. Everything
// except collection membership is immutable after creation.
type Note struct {
	ID         string              `json:"id"`
	Title      string              `json:"title"`
	TitleEmoji string              `json:"titleEmoji"`
	Summary    string              `json:"summary"`
	Transcript []TranscriptSegment `json:"transcript"`
	Audio      AudioPayload        `json:"audio"`
	CreatedAt  time.Time           `json:"createdAt"`
}

// TranscriptSegment is one utterance in chronological order. Speaker
// labels are free-form strings, commonly "Speaker 1".
type TranscriptSegment struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

// AudioPayload is the durable representation of the recording: base64
// encoded bytes plus a MIME type tag. Playable handles are derived from
// it on demand and never persisted.
type AudioPayload struct {
	Data     string `json:"data"`
	MIMEType string `json:"mimeType"`
}

// New assembles a Note from a finished summarization result. The ID and
// creation timestamp are assigned here and never change.
func New(title, titleEmoji, summary string, transcript []TranscriptSegment, audio AudioPayload) Note {
	return Note{
		ID:         uuid.NewString(),
		Title:      title,
		TitleEmoji: titleEmoji,
		Summary:    summary,
		Transcript: append([]TranscriptSegment(nil), transcript...),
		Audio:      audio,
		CreatedAt:  time.Now(),
	}
}
