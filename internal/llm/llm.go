package llm

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strings"
	"time"
)

const (
	defaultModel    = "gpt-4o-audio-preview"
	defaultEndpoint = "https://api.openai.com/v1"

	// Chat instructions carry the full note context verbatim; the cap
	// keeps very large collections from blowing past the model window.
	maxInstructionChars = 120_000
)

const defaultLLMHTTPTimeout = 3 * time.Minute

// Config describes how to build an LLM client.
type Config struct {
	Model      string
	Endpoint   string
	APIKey     string
	HTTPClient *http.Client
}

// Client exposes the two remote calls the app consumes: one-shot audio
// summarization and streamed assistant chat.
type Client interface {
	Summarize(ctx context.Context, audio Audio) (NoteSummary, error)
	StreamChat(ctx context.Context, instructions string, history []Message, handler StreamHandler) error
	Name() string
}

// Audio is the wire form of a recording sent for summarization: base64
// encoded bytes plus the MIME type they were captured with.
type Audio struct {
	Data     string
	MIMEType string
}

// NoteSummary is the structured result a summarization call must
// produce. Anything that does not parse into this exact shape is a
// failure; no partial note is ever created from it.
type NoteSummary struct {
	Title      string              `json:"title"`
	TitleEmoji string              `json:"titleEmoji"`
	Summary    string              `json:"summary"`
	Transcript []TranscriptSegment `json:"transcript"`
}

// TranscriptSegment is one diarized utterance in chronological order.
type TranscriptSegment struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

// Message is one turn of an assistant conversation.
type Message struct {
	Role    string
	Content string
}

// Chat roles understood by the remote endpoint.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// StreamDelta carries one incremental text fragment of a streamed
// reply. Fragment boundaries carry no meaning; concatenation order is
// the only guarantee.
type StreamDelta struct {
	Content string
	Done    bool
}

// StreamHandler receives fragments as they arrive. Returning an error
// aborts the stream.
type StreamHandler func(delta StreamDelta) error

// NewFromEnv inspects CLI arguments & environment variables to build a
// client against an OpenAI-compatible endpoint.
func NewFromEnv(cfg Config) (Client, error) {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		if env := os.Getenv("ECHONOTE_LLM_ENDPOINT"); env != "" {
			endpoint = env
		} else {
			endpoint = defaultEndpoint
		}
	}
	model := cfg.Model
	if model == "" {
		if env := os.Getenv("ECHONOTE_LLM_MODEL"); env != "" {
			model = env
		} else {
			model = defaultModel
		}
	}
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("ECHONOTE_LLM_API_KEY")
	}
	if apiKey == "" && endpoint == defaultEndpoint {
		return nil, errors.New("ECHONOTE_LLM_API_KEY is not set")
	}
	return &openAIClient{
		apiKey: apiKey,
		model:  model,
		base:   strings.TrimRight(endpoint, "/"),
		client: pickHTTPClient(cfg.HTTPClient),
	}, nil
}

func pickHTTPClient(custom *http.Client) *http.Client {
	if custom != nil {
		return custom
	}
	// Audio transcription regularly needs more than 60s; the caller's
	// context handles cancellation.
	return &http.Client{Timeout: defaultLLMHTTPTimeout}
}
