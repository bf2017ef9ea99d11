package llm_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/brennhill/revagent/internal/llm"
)

func TestOpenAIClientChat(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("Authorization header = %q", r.Header.Get("Authorization"))
		}
		data, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(data, &gotBody); err != nil {
			t.Fatalf("unmarshal request: %v", err)
		}
		w.Write([]byte(`{"choices":[{"message":{"content":"hello back"}}]}`))
	}))
	defer srv.Close()

	c := llm.NewOpenAIClient("test-key", "gpt-4o-mini", srv.URL, slog.Default())
	resp, err := c.Chat(context.Background(), []llm.Message{
		{Role: llm.RoleUser, Content: "hi"},
	}, llm.ChatOptions{Temperature: 0.2, MaxTokens: 100})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if resp.Content != "hello back" {
		t.Fatalf("Content = %q, want %q", resp.Content, "hello back")
	}
	if gotBody["model"] != "gpt-4o-mini" {
		t.Fatalf("model = %v", gotBody["model"])
	}
}

func TestOpenAIClientChatError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"rate limited"}}`))
	}))
	defer srv.Close()

	c := llm.NewOpenAIClient("k", "m", srv.URL, nil)
	_, err := c.Chat(context.Background(), []llm.Message{{Role: llm.RoleUser, Content: "hi"}}, llm.ChatOptions{})
	if err == nil {
		t.Fatal("expected error for rate-limited response")
	}
}

func TestOpenAIClientChatWithImage(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		json.Unmarshal(data, &gotBody)
		w.Write([]byte(`{"choices":[{"message":{"content":"looks like a captcha"}}]}`))
	}))
	defer srv.Close()

	c := llm.NewOpenAIClient("k", "gpt-4o", srv.URL, nil)
	resp, err := c.ChatWithImage(context.Background(), []llm.Message{
		{Role: llm.RoleSystem, Content: "sys"},
		{Role: llm.RoleUser, Content: "what is this?"},
	}, []byte{0x89, 0x50, 0x4e, 0x47}, llm.ChatOptions{})
	if err != nil {
		t.Fatalf("ChatWithImage: %v", err)
	}
	if resp.Content != "looks like a captcha" {
		t.Fatalf("Content = %q", resp.Content)
	}

	messages, _ := gotBody["messages"].([]any)
	if len(messages) != 2 {
		t.Fatalf("messages len = %d, want 2", len(messages))
	}
	last := messages[1].(map[string]any)
	content, ok := last["content"].([]any)
	if !ok || len(content) != 2 {
		t.Fatalf("last message content = %#v, want a 2-element multimodal array", last["content"])
	}
}
