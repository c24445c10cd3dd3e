package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/am-byte-code/EchoNote-Summarise/internal/audio"
	"github.com/am-byte-code/EchoNote-Summarise/internal/chat"
	"github.com/am-byte-code/EchoNote-Summarise/internal/llm"
	"github.com/am-byte-code/EchoNote-Summarise/internal/note"
)

// Config wires runtime options into the TUI program.
type Config struct {
	Repo     *note.Repository
	Sessions *chat.Manager
	LLM      llm.Client
	// PlaybackDir receives decoded audio files for export; empty means
	// the system temp dir.
	PlaybackDir string
	// StartupWarning carries a degraded-load condition from startup,
	// shown once in the footer.
	StartupWarning string
}

// New returns a tea.Model ready to be mounted into a Program.
func New(config Config) tea.Model {
	composer := textinput.New()
	composer.Placeholder = composerIngestPlaceholder
	composer.CharLimit = 400
	composer.Width = 70

	spin := spinner.New()
	spin.Spinner = spinner.Dot

	vp := viewport.New(80, 20)
	vp.MouseWheelEnabled = true

	m := &model{
		config:        config,
		jobs:          newJobBus(),
		stage:         stageList,
		composerMode:  composerModeIdle,
		composer:      composer,
		spinner:       spin,
		viewport:      vp,
		viewportDirty: true,
		infoMessage:   "Press n to add a voice note, ? for help.",
	}
	if config.StartupWarning != "" {
		m.errorMessage = config.StartupWarning
	}
	return m
}

type model struct {
	config Config
	jobs   *jobBus
	stage  stage

	composer     textinput.Model
	composerMode composerMode
	spinner      spinner.Model
	viewport     viewport.Model

	cursor      int
	trashCursor int
	openNoteID  string
	playback    *audio.Handle

	ingesting     bool
	infoMessage   string
	errorMessage  string
	helpVisible   bool
	viewportDirty bool
}

type ingestResultMsg struct {
	summary llm.NoteSummary
	payload audio.Payload
	err     error
}

func (m *model) Init() tea.Cmd {
	return textinput.Blink
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		if m.ingesting || m.activeSessionStreaming() {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.releasePlayback()
			return m, tea.Quit
		}
		return m.handleKey(msg)
	case tea.MouseMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	case tea.WindowSizeMsg:
		newWidth := msg.Width - viewportHorizontalPadding
		if newWidth < minViewportWidth {
			newWidth = minViewportWidth
		}
		m.viewport.Width = newWidth
		height := msg.Height - 8
		if height < 5 {
			height = 5
		}
		m.viewport.Height = height
		m.markViewportDirty()
		return m, nil
	case jobSignalMsg:
		return m, nil
	case jobResultEnvelope:
		if msg.Payload == nil {
			return m, nil
		}
		return m.Update(msg.Payload)
	case ingestResultMsg:
		return m.handleIngestResult(msg)
	case chatStreamMsg:
		return m.handleChatStream(msg)
	}
	return m, nil
}

func (m *model) handleKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.composerMode != composerModeIdle {
		return m.handleComposerKey(key)
	}

	switch m.stage {
	case stageList:
		return m.handleListKey(key)
	case stageTrash:
		return m.handleTrashKey(key)
	case stageNote:
		return m.handleNoteKey(key)
	case stageChat:
		return m.handleChatKey(key)
	}
	return m, nil
}

func (m *model) handleComposerKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.Type {
	case tea.KeyEsc:
		m.closeComposer()
		if m.stage == stageChat {
			m.stage = stageList
			m.markViewportDirty()
		}
		m.infoMessage = "Canceled."
		return m, nil
	case tea.KeyEnter:
		value := strings.TrimSpace(m.composer.Value())
		m.composer.SetValue("")
		if value == "" {
			m.infoMessage = "Type something or press Esc to cancel."
			return m, nil
		}
		switch m.composerMode {
		case composerModeIngest:
			m.closeComposer()
			return m, m.startIngest(value)
		case composerModeChat:
			return m, m.submitChat(value)
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.composer, cmd = m.composer.Update(key)
	return m, cmd
}

func (m *model) handleListKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.String() {
	case "up", "k":
		m.moveCursor(-1)
	case "down", "j":
		m.moveCursor(1)
	case "enter":
		return m, m.openNoteAtCursor()
	case "n":
		return m, m.startIngestEntry()
	case "d":
		return m, m.deleteAtCursor()
	case "t":
		m.stage = stageTrash
		m.trashCursor = 0
		m.infoMessage = "Trash: r restores, x purges permanently."
		m.markViewportDirty()
	case "g":
		return m, m.openGlobalChat()
	case "?":
		m.helpVisible = !m.helpVisible
		m.markViewportDirty()
	case "q", "esc":
		m.releasePlayback()
		return m, tea.Quit
	default:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(key)
		return m, cmd
	}
	return m, nil
}

func (m *model) handleTrashKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.String() {
	case "up", "k":
		m.moveTrashCursor(-1)
	case "down", "j":
		m.moveTrashCursor(1)
	case "r":
		return m, m.restoreAtCursor()
	case "x":
		return m, m.purgeAtCursor()
	case "t", "esc", "q":
		m.stage = stageList
		m.infoMessage = "Press n to add a voice note, ? for help."
		m.markViewportDirty()
	}
	return m, nil
}

func (m *model) handleNoteKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.String() {
	case "c":
		if m.config.LLM == nil {
			m.infoMessage = "Configure an LLM endpoint to chat about this note."
			return m, nil
		}
		m.openComposer(composerModeChat)
		return m, nil
	case "e":
		return m, m.exportAudio()
	case "esc", "q":
		m.closeNote()
		return m, nil
	default:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(key)
		return m, cmd
	}
}

func (m *model) handleChatKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.String() {
	case "esc", "q":
		m.closeComposer()
		m.stage = stageList
		m.infoMessage = "Press n to add a voice note, ? for help."
		m.markViewportDirty()
		return m, nil
	default:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(key)
		return m, cmd
	}
}

func (m *model) startIngestEntry() tea.Cmd {
	if m.config.LLM == nil {
		m.infoMessage = "Configure an LLM endpoint to summarize recordings."
		return nil
	}
	if m.ingesting {
		m.infoMessage = "A recording is already being summarized."
		return nil
	}
	m.openComposer(composerModeIngest)
	return nil
}

func (m *model) startIngest(path string) tea.Cmd {
	m.ingesting = true
	m.errorMessage = ""
	m.infoMessage = "Transcribing and summarizing…"
	m.markViewportDirty()
	return tea.Batch(m.spinner.Tick, m.jobs.Start(jobKindIngest, ingestJob(m.config.LLM, path)))
}

func (m *model) handleIngestResult(msg ingestResultMsg) (tea.Model, tea.Cmd) {
	m.ingesting = false
	if msg.err != nil {
		m.errorMessage = msg.err.Error()
		m.infoMessage = "Summarization failed. Press n to try again."
		m.markViewportDirty()
		return m, nil
	}

	n := note.New(
		msg.summary.Title,
		msg.summary.TitleEmoji,
		msg.summary.Summary,
		mapTranscript(msg.summary.Transcript),
		note.AudioPayload{Data: msg.payload.Data, MIMEType: msg.payload.MIMEType},
	)
	if err := m.config.Repo.Create(n); err != nil {
		if errors.Is(err, note.ErrDuplicateID) {
			m.errorMessage = err.Error()
			m.markViewportDirty()
			return m, nil
		}
		// The note is in memory; only the write-through failed.
		m.errorMessage = fmt.Sprintf("note kept in memory, saving failed: %v", err)
	} else {
		m.errorMessage = ""
	}
	m.cursor = 0
	m.infoMessage = fmt.Sprintf("Note ready: %s %s", n.TitleEmoji, n.Title)
	m.markViewportDirty()
	return m, nil
}

func (m *model) deleteAtCursor() tea.Cmd {
	n, ok := m.noteAtCursor()
	if !ok {
		return nil
	}
	if err := m.config.Repo.SoftDelete(n.ID); err != nil {
		m.surfaceMutationError(err)
		return nil
	}
	m.clampCursor()
	m.infoMessage = fmt.Sprintf("Moved to trash: %s. Press t to view the trash.", n.Title)
	m.markViewportDirty()
	return nil
}

func (m *model) restoreAtCursor() tea.Cmd {
	trashed := m.config.Repo.Trashed()
	if m.trashCursor >= len(trashed) {
		return nil
	}
	n := trashed[m.trashCursor]
	if err := m.config.Repo.Restore(n.ID); err != nil {
		m.surfaceMutationError(err)
		return nil
	}
	m.clampTrashCursor()
	m.infoMessage = fmt.Sprintf("Restored: %s", n.Title)
	m.markViewportDirty()
	return nil
}

func (m *model) purgeAtCursor() tea.Cmd {
	trashed := m.config.Repo.Trashed()
	if m.trashCursor >= len(trashed) {
		return nil
	}
	n := trashed[m.trashCursor]
	if err := m.config.Repo.Purge(n.ID); err != nil {
		m.surfaceMutationError(err)
		return nil
	}
	m.config.Sessions.Drop(n.ID)
	m.clampTrashCursor()
	m.infoMessage = fmt.Sprintf("Purged permanently: %s", n.Title)
	m.markViewportDirty()
	return nil
}

func (m *model) surfaceMutationError(err error) {
	if errors.Is(err, note.ErrNotFound) {
		m.infoMessage = "That note is gone already."
	} else {
		// In-memory state already changed; only durability failed.
		m.errorMessage = fmt.Sprintf("change kept in memory, saving failed: %v", err)
	}
	m.markViewportDirty()
}

func (m *model) openNoteAtCursor() tea.Cmd {
	n, ok := m.noteAtCursor()
	if !ok {
		return nil
	}
	m.openNoteID = n.ID
	m.stage = stageNote
	m.infoMessage = "c chats about this note, e exports the audio, Esc goes back."
	m.viewport.SetYOffset(0)
	m.markViewportDirty()
	return nil
}

func (m *model) closeNote() {
	m.releasePlayback()
	m.closeComposer()
	m.openNoteID = ""
	m.stage = stageList
	m.infoMessage = "Press n to add a voice note, ? for help."
	m.markViewportDirty()
}

func (m *model) openGlobalChat() tea.Cmd {
	if m.config.LLM == nil {
		m.infoMessage = "Configure an LLM endpoint to chat with the assistant."
		return nil
	}
	m.stage = stageChat
	m.openComposer(composerModeChat)
	m.viewport.SetYOffset(0)
	m.markViewportDirty()
	return nil
}

func (m *model) exportAudio() tea.Cmd {
	n, ok := m.config.Repo.Get(m.openNoteID)
	if !ok {
		return nil
	}
	m.releasePlayback()
	handle, err := audio.Payload(n.Audio).Open(m.config.PlaybackDir)
	if err != nil {
		m.errorMessage = err.Error()
		m.markViewportDirty()
		return nil
	}
	m.playback = handle
	m.infoMessage = fmt.Sprintf("Audio ready to play: %s", handle.Path())
	m.markViewportDirty()
	return nil
}

func (m *model) releasePlayback() {
	if m.playback != nil {
		m.playback.Release()
		m.playback = nil
	}
}

func (m *model) submitChat(message string) tea.Cmd {
	if m.config.LLM == nil {
		m.infoMessage = "Configure an LLM endpoint to chat with the assistant."
		return nil
	}
	session, scope, noteID, ok := m.currentChatSession()
	if !ok {
		return nil
	}
	history, err := session.Begin(message)
	if err != nil {
		if errors.Is(err, chat.ErrBusy) {
			m.infoMessage = "The assistant is still replying; wait for it to finish."
		} else {
			m.errorMessage = err.Error()
		}
		return nil
	}
	m.errorMessage = ""
	m.infoMessage = "Assistant is replying…"
	m.markViewportDirty()
	return tea.Batch(
		m.spinner.Tick,
		startChatStream(m.config.LLM, scope, noteID, session.Generation(), session.Instructions(), history),
	)
}

func (m *model) currentChatSession() (*chat.Session, chatScope, string, bool) {
	if m.stage == stageNote {
		n, ok := m.config.Repo.Get(m.openNoteID)
		if !ok {
			return nil, scopeNote, "", false
		}
		return m.config.Sessions.ForNote(n), scopeNote, n.ID, true
	}
	return m.config.Sessions.Global(), scopeGlobal, "", true
}

// handleChatStream applies one stream event. Events from a superseded
// global session are drained but never applied: a context rebuild
// invalidates the stream that was running against the old context.
func (m *model) handleChatStream(msg chatStreamMsg) (tea.Model, tea.Cmd) {
	session, current := m.streamTarget(msg)
	if !current {
		if msg.done {
			return m, nil
		}
		return m, waitForChatStream(msg.updates)
	}

	if msg.done {
		if msg.err != nil {
			session.Fail(msg.err)
			m.errorMessage = fmt.Sprintf("assistant error: %v", msg.err)
			m.infoMessage = "You can send your message again."
		} else {
			session.Finish()
			m.errorMessage = ""
			m.infoMessage = "Reply complete."
		}
		m.markViewportDirty()
		return m, nil
	}

	session.Append(msg.fragment)
	m.markViewportDirty()
	return m, waitForChatStream(msg.updates)
}

func (m *model) streamTarget(msg chatStreamMsg) (*chat.Session, bool) {
	if msg.scope == scopeNote {
		session, ok := m.config.Sessions.Lookup(msg.noteID)
		return session, ok
	}
	if !m.config.Sessions.GlobalIsCurrent(msg.generation) {
		return nil, false
	}
	return m.config.Sessions.Global(), true
}

func (m *model) activeSessionStreaming() bool {
	session, _, _, ok := m.currentChatSession()
	return ok && session.State() == chat.StateStreaming
}

func (m *model) openComposer(mode composerMode) {
	m.composerMode = mode
	switch mode {
	case composerModeIngest:
		m.composer.Placeholder = composerIngestPlaceholder
	case composerModeChat:
		m.composer.Placeholder = composerChatPlaceholder
	}
	m.composer.SetValue("")
	m.composer.Focus()
}

func (m *model) closeComposer() {
	m.composerMode = composerModeIdle
	m.composer.SetValue("")
	m.composer.Blur()
}

func (m *model) noteAtCursor() (note.Note, bool) {
	active := m.config.Repo.Active()
	if len(active) == 0 || m.cursor < 0 || m.cursor >= len(active) {
		return note.Note{}, false
	}
	return active[m.cursor], true
}

func (m *model) moveCursor(delta int) {
	m.cursor += delta
	m.clampCursor()
	m.markViewportDirty()
}

func (m *model) clampCursor() {
	max := len(m.config.Repo.Active()) - 1
	if m.cursor > max {
		m.cursor = max
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m *model) moveTrashCursor(delta int) {
	m.trashCursor += delta
	m.clampTrashCursor()
	m.markViewportDirty()
}

func (m *model) clampTrashCursor() {
	max := len(m.config.Repo.Trashed()) - 1
	if m.trashCursor > max {
		m.trashCursor = max
	}
	if m.trashCursor < 0 {
		m.trashCursor = 0
	}
}

func (m *model) markViewportDirty() {
	m.viewportDirty = true
}

func mapTranscript(segments []llm.TranscriptSegment) []note.TranscriptSegment {
	result := make([]note.TranscriptSegment, 0, len(segments))
	for _, segment := range segments {
		result = append(result, note.TranscriptSegment{Speaker: segment.Speaker, Text: segment.Text})
	}
	return result
}
