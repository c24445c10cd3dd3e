package tui

type stage int

const (
	stageList stage = iota
	stageTrash
	stageNote
	stageChat
)

type composerMode int

const (
	composerModeIdle composerMode = iota
	composerModeIngest
	composerModeChat
)

type chatScope int

const (
	scopeGlobal chatScope = iota
	scopeNote
)

const (
	composerIngestPlaceholder = "Path to an audio file (webm, mp3, wav, m4a)…"
	composerChatPlaceholder   = "Ask the assistant…"
)

const heroTagline = "Voice notes, transcribed and summarized. EchoNote."

const (
	minViewportWidth          = 40
	viewportHorizontalPadding = 4
	summaryPreviewLimit       = 160
)
