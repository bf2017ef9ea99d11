package tools

import (
	"context"
	"fmt"

	"github.com/go-rod/rod/lib/proto"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/brennhill/revagent/internal/kit"
	"github.com/brennhill/revagent/internal/llm"
)

func (d *Deps) registerCaptchaTools(srv *mcp.Server) {
	d.registerCaptchaDetect(srv)
}

type captchaDetectRequest struct {
	Selector string `json:"selector,omitempty"`
}

func (d *Deps) registerCaptchaDetect(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "captcha_detect",
		Description: "Screenshot the active page (or an element matched by selector) and ask the LLM provider's vision capability whether a CAPTCHA challenge is present, and if so, of what kind.",
		InputSchema: inputSchema(map[string]any{"selector": str("optional CSS selector to crop the screenshot to")}, nil),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*captchaDetectRequest)
		vision, ok := d.LLM.(llm.VisionCapable)
		if !ok {
			return nil, fmt.Errorf("captcha_detect: configured LLM provider has no vision capability")
		}

		page, err := d.Browser.ActivePage()
		if err != nil {
			return nil, err
		}

		var png []byte
		if r.Selector != "" {
			el, err := page.Element(r.Selector)
			if err != nil {
				return nil, fmt.Errorf("captcha_detect: element %q: %w", r.Selector, err)
			}
			png, err = el.Screenshot(proto.PageCaptureScreenshotFormatPng, 0)
			if err != nil {
				return nil, fmt.Errorf("captcha_detect: %w", err)
			}
		} else {
			png, err = page.Screenshot(false, nil)
			if err != nil {
				return nil, fmt.Errorf("captcha_detect: %w", err)
			}
		}

		resp, err := vision.ChatWithImage(ctx, []llm.Message{
			{Role: llm.RoleSystem, Content: captchaSystemPrompt},
			{Role: llm.RoleUser, Content: "Does this screenshot show a CAPTCHA challenge? If so, identify its type (reCAPTCHA, hCaptcha, image-grid, text-distortion, slider, other) and describe what solving it would require."},
		}, png, llm.ChatOptions{Temperature: 0.0, MaxTokens: 500})
		if err != nil {
			return nil, fmt.Errorf("captcha_detect: %w", err)
		}

		return d.smartHandle(map[string]any{
			"screenshot": encodeBase64(png),
			"analysis":   resp.Content,
		})
	}
	kit.RegisterTool(srv, tool, d.chain(endpoint), decodeJSON[captchaDetectRequest])
}

const captchaSystemPrompt = "You are a CAPTCHA detection assistant reviewing a browser screenshot."
