package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/am-byte-code/EchoNote-Summarise/internal/chat"
	"github.com/am-byte-code/EchoNote-Summarise/internal/llm"
	"github.com/am-byte-code/EchoNote-Summarise/internal/note"
)

func (m *model) View() string {
	m.refreshViewportIfDirty()
	parts := []string{m.heroView(), m.viewport.View()}
	if m.errorMessage != "" {
		parts = append(parts, errorStyle.Render(m.errorMessage))
	}
	if m.infoMessage != "" {
		message := m.infoMessage
		if m.ingesting || m.activeSessionStreaming() {
			message = fmt.Sprintf("%s %s", m.spinner.View(), message)
		}
		parts = append(parts, helperStyle.Render(message))
	}
	if m.composerMode != composerModeIdle {
		parts = append(parts, m.composerPanel())
	}
	if m.helpVisible {
		parts = append(parts, m.helpView())
	}
	return joinNonEmpty(parts)
}

func (m *model) heroView() string {
	title := heroTitleStyle.Render("EchoNote")
	counts := helperStyle.Render(fmt.Sprintf("%d active · %d in trash", len(m.config.Repo.Active()), len(m.config.Repo.Trashed())))
	banner := heroBoxStyle.Render(title + "  " + counts)
	return lipgloss.JoinVertical(lipgloss.Left, banner, taglineStyle.Render(heroTagline))
}

func (m *model) composerPanel() string {
	label := "Composer"
	switch m.composerMode {
	case composerModeIngest:
		label = "Add Voice Note"
	case composerModeChat:
		if m.stage == stageNote {
			label = "Ask About This Note"
		} else {
			label = "Ask The Assistant"
		}
	}
	return joinNonEmpty([]string{
		sectionHeaderStyle.Render(label),
		m.composer.View(),
		helperStyle.Render("Enter to submit, Esc to cancel."),
	})
}

func (m *model) refreshViewportIfDirty() {
	if !m.viewportDirty {
		return
	}
	m.viewportDirty = false
	switch m.stage {
	case stageList:
		m.viewport.SetContent(m.renderList())
	case stageTrash:
		m.viewport.SetContent(m.renderTrash())
	case stageNote:
		m.viewport.SetContent(m.renderNote())
	case stageChat:
		m.viewport.SetContent(m.renderGlobalChat())
		m.viewport.GotoBottom()
	}
}

func (m *model) renderList() string {
	var b strings.Builder
	b.WriteString(sectionHeaderStyle.Render("Notes"))
	b.WriteRune('\n')
	active := m.config.Repo.Active()
	if len(active) == 0 {
		b.WriteString(helperStyle.Render("No notes yet. Press n and point EchoNote at an audio file."))
		b.WriteRune('\n')
		return b.String()
	}
	for idx, n := range active {
		line := fmt.Sprintf("%s %s", n.TitleEmoji, n.Title)
		meta := helperStyle.Render(formatWhen(n.CreatedAt))
		if idx == m.cursor {
			b.WriteString(currentLineStyle.Render("▸ " + line))
		} else {
			b.WriteString("  " + line)
		}
		b.WriteString("  " + meta)
		b.WriteRune('\n')
		preview := truncatePreview(n.Summary, summaryPreviewLimit)
		if preview != "" {
			b.WriteString(helperStyle.Render("    " + preview))
			b.WriteRune('\n')
		}
	}
	return b.String()
}

func (m *model) renderTrash() string {
	var b strings.Builder
	b.WriteString(sectionHeaderStyle.Render("Trash"))
	b.WriteRune('\n')
	trashed := m.config.Repo.Trashed()
	if len(trashed) == 0 {
		b.WriteString(helperStyle.Render("The trash is empty."))
		b.WriteRune('\n')
		return b.String()
	}
	for idx, n := range trashed {
		line := fmt.Sprintf("%s %s", n.TitleEmoji, n.Title)
		if idx == m.trashCursor {
			b.WriteString(currentLineStyle.Render("▸ " + line))
		} else {
			b.WriteString("  " + line)
		}
		b.WriteRune('\n')
	}
	b.WriteRune('\n')
	b.WriteString(helperStyle.Render("r restores the selected note, x purges it permanently."))
	b.WriteRune('\n')
	return b.String()
}

func (m *model) renderNote() string {
	n, ok := m.config.Repo.Get(m.openNoteID)
	if !ok {
		return helperStyle.Render("This note no longer exists.")
	}
	wrap := m.wrapWidth()

	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("%s %s", n.TitleEmoji, n.Title)))
	b.WriteRune('\n')
	b.WriteString(helperStyle.Render(formatWhen(n.CreatedAt)))
	b.WriteString("\n\n")

	b.WriteString(sectionHeaderStyle.Render("Summary"))
	b.WriteRune('\n')
	b.WriteString(wordwrap.String(n.Summary, wrap))
	b.WriteString("\n\n")

	b.WriteString(sectionHeaderStyle.Render("Transcript"))
	b.WriteRune('\n')
	b.WriteString(renderTranscript(n, wrap))

	if session, ok := m.config.Sessions.Lookup(n.ID); ok && len(session.Messages()) > 0 {
		b.WriteRune('\n')
		b.WriteString(sectionHeaderStyle.Render("Conversation"))
		b.WriteRune('\n')
		b.WriteString(renderConversation(session, wrap))
	}
	return b.String()
}

func renderTranscript(n note.Note, wrap int) string {
	if len(n.Transcript) == 0 {
		return helperStyle.Render("(no transcript)") + "\n"
	}
	var b strings.Builder
	for _, segment := range n.Transcript {
		b.WriteString(subtitleStyle.Render(segment.Speaker))
		b.WriteRune('\n')
		b.WriteString(indentMultiline(wordwrap.String(segment.Text, wrap), "  "))
		b.WriteRune('\n')
	}
	return b.String()
}

func (m *model) renderGlobalChat() string {
	var b strings.Builder
	b.WriteString(sectionHeaderStyle.Render("Assistant"))
	b.WriteRune('\n')
	session := m.config.Sessions.Global()
	if len(session.Messages()) == 0 {
		b.WriteString(helperStyle.Render("Ask anything about your notes. The assistant sees every active note and the trash titles."))
		b.WriteRune('\n')
		return b.String()
	}
	b.WriteString(renderConversation(session, m.wrapWidth()))
	return b.String()
}

func renderConversation(session *chat.Session, wrap int) string {
	var b strings.Builder
	messages := session.Messages()
	for idx, msg := range messages {
		label := "Assistant"
		if msg.Role == llm.RoleUser {
			label = "You"
		}
		b.WriteString(subtitleStyle.Render(label))
		b.WriteRune('\n')
		content := msg.Content
		if content == "" && idx == len(messages)-1 && session.State() == chat.StateStreaming {
			content = "…"
		}
		b.WriteString(indentMultiline(wordwrap.String(content, wrap), "  "))
		b.WriteRune('\n')
	}
	return b.String()
}

func (m *model) helpView() string {
	rows := []string{
		"n      add a voice note (path to an audio file)",
		"enter  open the selected note",
		"d      move the selected note to trash",
		"t      toggle the trash view (r restore, x purge)",
		"g      chat with the assistant about all notes",
		"c      chat about the open note",
		"e      export the open note's audio for playback",
		"?      toggle this help",
		"q      quit",
	}
	return helpBoxStyle.Render(strings.Join(rows, "\n"))
}

func (m *model) wrapWidth() int {
	width := m.viewport.Width - 4
	if width < 20 {
		width = 20
	}
	return width
}

func indentMultiline(text, prefix string) string {
	lines := strings.Split(text, "\n")
	for i := range lines {
		lines[i] = prefix + lines[i]
	}
	return strings.Join(lines, "\n")
}

func joinNonEmpty(parts []string) string {
	filtered := make([]string, 0, len(parts))
	for _, part := range parts {
		if strings.TrimSpace(part) == "" {
			continue
		}
		filtered = append(filtered, part)
	}
	return strings.Join(filtered, "\n\n")
}

var (
	titleStyle         = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205")).Underline(true)
	subtitleStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("147"))
	sectionHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("81"))
	errorStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	helperStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))

	heroAccentColor = lipgloss.Color("#7f5af0")
	heroTextColor   = lipgloss.Color("#fffffe")

	heroTitleStyle   = lipgloss.NewStyle().Bold(true).Foreground(heroAccentColor)
	heroBoxStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(heroAccentColor).Foreground(heroTextColor).Padding(0, 2)
	taglineStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#94a1b2")).Italic(true)
	helpBoxStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#56526e")).Padding(1, 2)
	currentLineStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#0f0f0f")).Background(lipgloss.Color("#8ecae6"))
)
