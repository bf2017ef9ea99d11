package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

// rewriteTransport redirects every request to target, letting tests
// point AnthropicClient (whose baseURL is fixed to the public API) at
// an httptest.Server without exposing a baseURL override in production
// code.
type rewriteTransport struct {
	target string
}

func (rt rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	u := *req.URL
	u.Scheme = "http"
	u.Host = rt.target
	req2 := req.Clone(req.Context())
	req2.URL = &u
	req2.Host = rt.target
	return http.DefaultTransport.RoundTrip(req2)
}

func TestAnthropicClientChat(t *testing.T) {
	var gotBody map[string]any
	var gotHeaders http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeaders = r.Header.Clone()
		data, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(data, &gotBody); err != nil {
			t.Fatalf("unmarshal request: %v", err)
		}
		w.Write([]byte(`{"content":[{"type":"text","text":"hi there"}]}`))
	}))
	defer srv.Close()

	c := NewAnthropicClient("anthropic-key", "claude-3-5-sonnet-latest", nil)
	c.client.Transport = rewriteTransport{target: srv.URL[len("http://"):]}

	resp, err := c.Chat(context.Background(), []Message{
		{Role: RoleSystem, Content: "be terse"},
		{Role: RoleUser, Content: "hello"},
	}, ChatOptions{MaxTokens: 50})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if resp.Content != "hi there" {
		t.Fatalf("Content = %q", resp.Content)
	}
	if gotHeaders.Get("x-api-key") != "anthropic-key" {
		t.Fatalf("x-api-key = %q", gotHeaders.Get("x-api-key"))
	}
	if gotHeaders.Get("anthropic-version") == "" {
		t.Fatal("missing anthropic-version header")
	}
	if gotBody["system"] != "be terse" {
		t.Fatalf("system = %v, want the RoleSystem message pulled out of messages", gotBody["system"])
	}
	msgs, _ := gotBody["messages"].([]any)
	if len(msgs) != 1 {
		t.Fatalf("messages len = %d, want 1 (system message extracted)", len(msgs))
	}
}

func TestAnthropicClientDefaultMaxTokens(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		json.Unmarshal(data, &gotBody)
		w.Write([]byte(`{"content":[{"type":"text","text":"ok"}]}`))
	}))
	defer srv.Close()

	c := NewAnthropicClient("k", "m", nil)
	c.client.Transport = rewriteTransport{target: srv.URL[len("http://"):]}

	if _, err := c.Chat(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, ChatOptions{}); err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if gotBody["max_tokens"].(float64) != 1024 {
		t.Fatalf("max_tokens = %v, want default 1024", gotBody["max_tokens"])
	}
}

func TestAnthropicClientVisionAppendsImageToLastMessage(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		json.Unmarshal(data, &gotBody)
		w.Write([]byte(`{"content":[{"type":"text","text":"captcha"}]}`))
	}))
	defer srv.Close()

	c := NewAnthropicClient("k", "m", nil)
	c.client.Transport = rewriteTransport{target: srv.URL[len("http://"):]}

	_, err := c.ChatWithImage(context.Background(), []Message{
		{Role: RoleUser, Content: "what is this"},
	}, []byte{1, 2, 3}, ChatOptions{})
	if err != nil {
		t.Fatalf("ChatWithImage: %v", err)
	}
	msgs, _ := gotBody["messages"].([]any)
	last := msgs[len(msgs)-1].(map[string]any)
	blocks, ok := last["content"].([]any)
	if !ok || len(blocks) != 2 {
		t.Fatalf("last message content = %#v, want 2 blocks (text + image)", last["content"])
	}
}
