package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestOpenAIClientSummarize(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Fatalf("unexpected method: %s", r.Method)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Fatalf("unexpected auth header: %s", got)
		}
		var payload struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string          `json:"role"`
				Content json.RawMessage `json:"content"`
			} `json:"messages"`
			ResponseFormat struct {
				Type string `json:"type"`
			} `json:"response_format"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("failed to decode payload: %v", err)
		}
		if payload.Model != "test-model" {
			t.Fatalf("expected model test-model, got %s", payload.Model)
		}
		if payload.ResponseFormat.Type != "json_object" {
			t.Fatalf("expected json_object response format, got %s", payload.ResponseFormat.Type)
		}
		if len(payload.Messages) != 2 {
			t.Fatalf("expected system + user messages, got %d", len(payload.Messages))
		}
		if !strings.Contains(string(payload.Messages[1].Content), `"format":"wav"`) {
			t.Fatalf("user message missing audio format: %s", payload.Messages[1].Content)
		}
		if !strings.Contains(string(payload.Messages[1].Content), "QUJD") {
			t.Fatalf("user message missing audio data: %s", payload.Messages[1].Content)
		}

		content := `{"title":"Standup","titleEmoji":"🎙️","summary":"Sprint status.","transcript":[{"speaker":"Speaker 1","text":"We are on track."}]}`
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"choices":[{"message":{"content":%q}}]}`, content)
	}))
	defer server.Close()

	client := &openAIClient{
		apiKey: "test-key",
		model:  "test-model",
		base:   server.URL,
		client: server.Client(),
	}

	summary, err := client.Summarize(context.Background(), Audio{Data: "QUJD", MIMEType: "audio/wav"})
	if err != nil {
		t.Fatalf("summarize failed: %v", err)
	}
	if summary.Title != "Standup" || len(summary.Transcript) != 1 {
		t.Fatalf("unexpected summary: %#v", summary)
	}
}

func TestOpenAIClientSummarizeRejectsNonConformingPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"choices":[{"message":{"content":"{\"oops\":true}"}}]}`)
	}))
	defer server.Close()

	client := &openAIClient{model: "test-model", base: server.URL, client: server.Client()}
	if _, err := client.Summarize(context.Background(), Audio{Data: "QUJD", MIMEType: "audio/webm"}); err == nil {
		t.Fatal("non-conforming payload must be treated as a failure")
	}
}

func TestOpenAIClientSummarizeRejectsEmptyAudio(t *testing.T) {
	client := &openAIClient{model: "test-model", base: "http://unused", client: http.DefaultClient}
	if _, err := client.Summarize(context.Background(), Audio{}); err == nil {
		t.Fatal("empty audio should not reach the remote call")
	}
}

func TestOpenAIClientStreamChatConcatenatesFragments(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			Stream   bool `json:"stream"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("failed to decode payload: %v", err)
		}
		if !payload.Stream {
			t.Fatal("expected streaming to be enabled")
		}
		if payload.Messages[0].Role != "system" || !strings.Contains(payload.Messages[0].Content, "all notes") {
			t.Fatalf("instructions not passed as system message: %#v", payload.Messages[0])
		}
		if last := payload.Messages[len(payload.Messages)-1]; last.Role != RoleUser || last.Content != "What did I record today?" {
			t.Fatalf("user message missing: %#v", last)
		}

		w.Header().Set("Content-Type", "text/event-stream")
		for _, fragment := range []string{"Hel", "lo, ", "world"} {
			fmt.Fprintf(w, "data: {\"choices\":[{\"delta\":{\"content\":%q}}]}\n\n", fragment)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	client := &openAIClient{model: "test-model", base: server.URL, client: server.Client()}

	var got strings.Builder
	done := false
	err := client.StreamChat(context.Background(), "You are an assistant over all notes.",
		[]Message{{Role: RoleUser, Content: "What did I record today?"}},
		func(delta StreamDelta) error {
			if delta.Done {
				done = true
				return nil
			}
			got.WriteString(delta.Content)
			return nil
		})
	if err != nil {
		t.Fatalf("stream failed: %v", err)
	}
	if got.String() != "Hello, world" {
		t.Fatalf("fragments must concatenate in order, got %q", got.String())
	}
	if !done {
		t.Fatal("handler should observe stream completion")
	}
}

func TestOpenAIClientStreamChatSurfacesHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model melted", http.StatusBadGateway)
	}))
	defer server.Close()

	client := &openAIClient{model: "test-model", base: server.URL, client: server.Client()}
	err := client.StreamChat(context.Background(), "ctx", nil, func(StreamDelta) error { return nil })
	if err == nil || !strings.Contains(err.Error(), "model melted") {
		t.Fatalf("expected remote error to surface, got %v", err)
	}
}

func TestOpenAIClientStreamChatHandlerAborts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"x\"}}]}\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"y\"}}]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	client := &openAIClient{model: "test-model", base: server.URL, client: server.Client()}
	abort := fmt.Errorf("stop now")
	err := client.StreamChat(context.Background(), "ctx", nil, func(StreamDelta) error { return abort })
	if err != abort {
		t.Fatalf("handler error should abort the stream, got %v", err)
	}
}
