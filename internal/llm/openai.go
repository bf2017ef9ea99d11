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

// OpenAIClient speaks the OpenAI-compatible chat completions API. It
// satisfies both Provider and VisionCapable.
type OpenAIClient struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// NewOpenAIClient constructs a client against baseURL (defaulting to
// the public OpenAI API when empty).
func NewOpenAIClient(apiKey, model, baseURL string, logger *slog.Logger) *OpenAIClient {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &OpenAIClient{
		apiKey:  apiKey,
		model:   model,
		baseURL: baseURL,
		client:  &http.Client{Timeout: 60 * time.Second},
		logger:  logger,
	}
}

type openaiMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type openaiChatRequest struct {
	Model       string          `json:"model"`
	Messages    []openaiMessage `json:"messages"`
	Temperature float64         `json:"temperature,omitempty"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
}

type openaiChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *OpenAIClient) Chat(ctx context.Context, messages []Message, opts ChatOptions) (ChatResponse, error) {
	return c.send(ctx, toOpenAIMessages(messages, nil), opts)
}

func (c *OpenAIClient) ChatWithImage(ctx context.Context, messages []Message, imagePNG []byte, opts ChatOptions) (ChatResponse, error) {
	return c.send(ctx, toOpenAIMessages(messages, imagePNG), opts)
}

func toOpenAIMessages(messages []Message, imagePNG []byte) []openaiMessage {
	out := make([]openaiMessage, 0, len(messages))
	for i, m := range messages {
		var content any = m.Content
		if imagePNG != nil && i == len(messages)-1 {
			dataURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString(imagePNG)
			content = []map[string]any{
				{"type": "text", "text": m.Content},
				{"type": "image_url", "image_url": map[string]any{"url": dataURL}},
			}
		}
		out = append(out, openaiMessage{Role: string(m.Role), Content: content})
	}
	return out
}

func (c *OpenAIClient) send(ctx context.Context, messages []openaiMessage, opts ChatOptions) (ChatResponse, error) {
	reqBody := openaiChatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return ChatResponse{}, fmt.Errorf("llm: marshal request: %w", err)
	}

	endpoint := c.baseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return ChatResponse{}, fmt.Errorf("llm: new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return ChatResponse{}, fmt.Errorf("llm: request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return ChatResponse{}, fmt.Errorf("llm: read response: %w", err)
	}

	var oaiResp openaiChatResponse
	if err := json.Unmarshal(respBody, &oaiResp); err != nil {
		return ChatResponse{}, fmt.Errorf("llm: decode response: %w", err)
	}
	if oaiResp.Error != nil {
		return ChatResponse{}, fmt.Errorf("llm: openai: %s", oaiResp.Error.Message)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("llm: openai non-2xx", "status", resp.StatusCode)
		return ChatResponse{}, fmt.Errorf("llm: openai: status %d", resp.StatusCode)
	}
	if len(oaiResp.Choices) == 0 {
		return ChatResponse{}, fmt.Errorf("llm: openai: empty choices")
	}
	return ChatResponse{Content: oaiResp.Choices[0].Message.Content}, nil
}
