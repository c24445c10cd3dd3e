package chat

import (
	chatcontext "github.com/am-byte-code/EchoNote-Summarise/internal/chat/context"
	"github.com/am-byte-code/EchoNote-Summarise/internal/note"
)

// Manager owns the global session and the per-note sessions. The
// global session is discarded and rebuilt whenever the repository
// generation moves past the one it captured, which also discards its
// conversation history; per-note sessions are built once per note and
// never refreshed, because note content is immutable.
type Manager struct {
	repo    *note.Repository
	global  *Session
	perNote map[string]*Session
}

// NewManager wires the manager to the repository whose generation
// counter drives staleness.
func NewManager(repo *note.Repository) *Manager {
	return &Manager{
		repo:    repo,
		perNote: map[string]*Session{},
	}
}

// Global returns the current global session, rebuilding it from fresh
// context when the note collection has changed since the session was
// opened. Callers must not cache the returned pointer across
// repository mutations.
func (m *Manager) Global() *Session {
	current := m.repo.Generation()
	if m.global == nil || m.global.generation != current {
		instructions := chatcontext.Global(m.repo.Active(), m.repo.Trashed())
		m.global = newSession(instructions, current, "")
	}
	return m.global
}

// GlobalIsCurrent reports whether a stream opened at the given
// generation still belongs to the live context. Fragments from a
// superseded stream must be dropped, never merged.
func (m *Manager) GlobalIsCurrent(generation uint64) bool {
	return generation == m.repo.Generation()
}

// ForNote returns the scoped session for a note, creating it on first
// access. The session keeps its instructions for the note's lifetime.
func (m *Manager) ForNote(n note.Note) *Session {
	if s, ok := m.perNote[n.ID]; ok {
		return s
	}
	s := newSession(chatcontext.ForNote(n), m.repo.Generation(), n.ID)
	m.perNote[n.ID] = s
	return s
}

// Lookup returns the scoped session for a note ID when one has been
// built, without creating it.
func (m *Manager) Lookup(noteID string) (*Session, bool) {
	s, ok := m.perNote[noteID]
	return s, ok
}

// Drop forgets the scoped session for a note. Called when the note is
// purged; a later re-creation would be a fresh conversation anyway.
func (m *Manager) Drop(noteID string) {
	delete(m.perNote, noteID)
}
