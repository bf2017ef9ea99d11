package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// AnthropicClient speaks the Anthropic Messages API. It satisfies both
// Provider and VisionCapable.
type AnthropicClient struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// NewAnthropicClient constructs a client against the public Anthropic
// API.
func NewAnthropicClient(apiKey, model string, logger *slog.Logger) *AnthropicClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &AnthropicClient{
		apiKey:  apiKey,
		model:   model,
		baseURL: "https://api.anthropic.com/v1",
		client:  &http.Client{Timeout: 60 * time.Second},
		logger:  logger,
	}
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature,omitempty"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *AnthropicClient) Chat(ctx context.Context, messages []Message, opts ChatOptions) (ChatResponse, error) {
	return c.send(ctx, messages, nil, opts)
}

func (c *AnthropicClient) ChatWithImage(ctx context.Context, messages []Message, imagePNG []byte, opts ChatOptions) (ChatResponse, error) {
	return c.send(ctx, messages, imagePNG, opts)
}

func (c *AnthropicClient) send(ctx context.Context, messages []Message, imagePNG []byte, opts ChatOptions) (ChatResponse, error) {
	var system string
	var turns []anthropicMessage
	for i, m := range messages {
		if m.Role == RoleSystem {
			system = m.Content
			continue
		}
		var content any = m.Content
		if imagePNG != nil && i == len(messages)-1 {
			content = []map[string]any{
				{"type": "text", "text": m.Content},
				{"type": "image", "source": map[string]any{
					"type":       "base64",
					"media_type": "image/png",
					"data":       base64.StdEncoding.EncodeToString(imagePNG),
				}},
			}
		}
		turns = append(turns, anthropicMessage{Role: string(m.Role), Content: content})
	}

	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	reqBody := anthropicRequest{
		Model:       c.model,
		System:      system,
		Messages:    turns,
		MaxTokens:   maxTokens,
		Temperature: opts.Temperature,
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return ChatResponse{}, fmt.Errorf("llm: marshal request: %w", err)
	}

	endpoint := c.baseURL + "/messages"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return ChatResponse{}, fmt.Errorf("llm: new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := c.client.Do(req)
	if err != nil {
		return ChatResponse{}, fmt.Errorf("llm: request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return ChatResponse{}, fmt.Errorf("llm: read response: %w", err)
	}

	var aResp anthropicResponse
	if err := json.Unmarshal(respBody, &aResp); err != nil {
		return ChatResponse{}, fmt.Errorf("llm: decode response: %w", err)
	}
	if aResp.Error != nil {
		return ChatResponse{}, fmt.Errorf("llm: anthropic: %s", aResp.Error.Message)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("llm: anthropic non-2xx", "status", resp.StatusCode)
		return ChatResponse{}, fmt.Errorf("llm: anthropic: status %d", resp.StatusCode)
	}

	var text string
	for _, block := range aResp.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	return ChatResponse{Content: text}, nil
}
