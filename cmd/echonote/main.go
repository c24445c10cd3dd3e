package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"github.com/am-byte-code/EchoNote-Summarise/internal/chat"
	"github.com/am-byte-code/EchoNote-Summarise/internal/llm"
	"github.com/am-byte-code/EchoNote-Summarise/internal/note"
	"github.com/am-byte-code/EchoNote-Summarise/internal/tui"
)

func main() {
	defaultData := filepath.Join(".", "echonote-data")
	dataDir := flag.String("data", defaultData, "directory holding the note collections")
	noAltScreen := flag.Bool("no-alt-screen", false, "disable the alternate screen buffer")
	llmModel := flag.String("llm-model", "", "override the default model (gpt-4o-audio-preview)")
	llmEndpoint := flag.String("llm-endpoint", "", "custom OpenAI-compatible base URL")
	flag.Parse()

	// Local .env files carry the API key during development; a missing
	// file is not an error.
	_ = godotenv.Load()

	absData, err := filepath.Abs(*dataDir)
	if err != nil {
		fmt.Println("failed to resolve data directory:", err)
		os.Exit(1)
	}
	store, err := note.NewStore(absData)
	if err != nil {
		fmt.Println("failed to open data directory:", err)
		os.Exit(1)
	}
	repo, warn := note.NewRepository(store)
	var startupWarning string
	if warn != nil {
		startupWarning = fmt.Sprintf("some saved notes could not be read and were skipped: %v", warn)
	}

	var llmClient llm.Client
	llmClient, err = llm.NewFromEnv(llm.Config{
		Model:    *llmModel,
		Endpoint: *llmEndpoint,
	})
	if err != nil {
		fmt.Println("LLM disabled:", err)
		llmClient = nil
	}

	opts := []tea.ProgramOption{}
	if !*noAltScreen {
		opts = append(opts, tea.WithAltScreen())
	}
	program := tea.NewProgram(
		tui.New(tui.Config{
			Repo:           repo,
			Sessions:       chat.NewManager(repo),
			LLM:            llmClient,
			StartupWarning: startupWarning,
		}),
		opts...,
	)

	if _, err := program.Run(); err != nil {
		fmt.Println("program error:", err)
		os.Exit(1)
	}
}
