// Package chat owns the conversational sessions bound to the note
// collection: one global session spanning every note and one scoped
// session per note. Sessions are driven from the single-threaded UI
// event loop; nothing here is safe for concurrent mutation and nothing
// needs to be.
package chat

import (
	"errors"

	"github.com/am-byte-code/EchoNote-Summarise/internal/llm"
)

// ErrBusy signals a Send while the session is still streaming the
// previous reply. The message is rejected, not queued.
var ErrBusy = errors.New("session is streaming")

// FailureNotice replaces the pending assistant reply when an exchange
// fails. The session itself stays usable for the next message.
const FailureNotice = "Sorry, I couldn't answer that. Please try sending your message again."

// State tracks where a session is in its lifecycle.
type State int

const (
	// StateReady means the session can accept the next user message.
	StateReady State = iota
	// StateStreaming means a reply is arriving; new submissions are
	// rejected until the stream ends.
	StateStreaming
	// StateError is entered transiently when an exchange fails; the
	// session returns to StateReady immediately after the failure
	// notice is recorded.
	StateError
)

// Session is one conversational exchange handle. Its instructions are
// fixed for its whole lifetime; a context change means a new session,
// never an edit.
type Session struct {
	instructions string
	generation   uint64
	noteID       string
	state        State
	transcript   []llm.Message
	// streaming is the index of the in-progress assistant message, -1
	// when no stream is active. Kept explicit instead of relying on
	// last-element lookup.
	streaming int
	lastError string
}

func newSession(instructions string, generation uint64, noteID string) *Session {
	return &Session{
		instructions: instructions,
		generation:   generation,
		noteID:       noteID,
		state:        StateReady,
		streaming:    -1,
	}
}

// Instructions returns the fixed system context this session was
// opened with.
func (s *Session) Instructions() string {
	return s.instructions
}

// Generation is the context version captured when the session was
// built. Stream fragments carry it so superseded deliveries can be
// recognized and dropped.
func (s *Session) Generation() uint64 {
	return s.generation
}

// NoteID reports which note a scoped session belongs to; empty for the
// global session.
func (s *Session) NoteID() string {
	return s.noteID
}

// State reports the current lifecycle state.
func (s *Session) State() State {
	return s.state
}

// LastError returns the most recent exchange failure, empty when the
// last exchange succeeded.
func (s *Session) LastError() string {
	return s.lastError
}

// Messages returns a copy of the visible transcript, including the
// in-progress assistant message while streaming.
func (s *Session) Messages() []llm.Message {
	return append([]llm.Message(nil), s.transcript...)
}

// Begin accepts a user message: the message is appended to the visible
// transcript immediately, an empty assistant message is opened for the
// incoming fragments, and the session enters StateStreaming. The
// returned history is what the caller forwards to the remote assistant
// (everything up to and including the new user message).
func (s *Session) Begin(message string) ([]llm.Message, error) {
	if s.state == StateStreaming {
		return nil, ErrBusy
	}
	s.transcript = append(s.transcript, llm.Message{Role: llm.RoleUser, Content: message})
	history := append([]llm.Message(nil), s.transcript...)
	s.transcript = append(s.transcript, llm.Message{Role: llm.RoleAssistant})
	s.streaming = len(s.transcript) - 1
	s.state = StateStreaming
	s.lastError = ""
	return history, nil
}

// Append adds one arrived fragment to the in-progress assistant
// message. Fragments arriving outside a stream are ignored.
func (s *Session) Append(fragment string) {
	if s.state != StateStreaming || s.streaming < 0 {
		return
	}
	s.transcript[s.streaming].Content += fragment
}

// Finish closes the stream and returns the session to StateReady.
func (s *Session) Finish() {
	s.streaming = -1
	s.state = StateReady
}

// Fail records a transport or remote failure: the trailing assistant
// message is replaced with the fixed failure notice and the session
// returns to StateReady for the next message.
func (s *Session) Fail(err error) {
	s.state = StateError
	if err != nil {
		s.lastError = err.Error()
	}
	if s.streaming >= 0 {
		s.transcript[s.streaming].Content = FailureNotice
	}
	s.streaming = -1
	s.state = StateReady
}
