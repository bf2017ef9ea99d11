// Package analysis implements the AI-assisted analysis facades (spec
// §4.L): deobfuscate, detect_obfuscation, detect_crypto, understand_code,
// and environment_emulator. Each facade is a thin struct over an
// llm.Provider; where the spec calls for a closed-vocabulary rule
// table, that table runs as a cheap deterministic pass before the LLM
// is ever invoked, matching connectivity's layered-checks style.
package analysis

import (
	"context"
	"fmt"
	"regexp"

	"github.com/brennhill/revagent/internal/llm"
)

// Rule is one entry of a closed-vocabulary detection table, evaluated
// against raw source before any LLM call.
type Rule struct {
	Pattern  *regexp.Regexp
	Tag      string
	Severity string
}

func chat(ctx context.Context, provider llm.Provider, system, user string) (string, error) {
	if provider == nil {
		return "", fmt.Errorf("analysis: no LLM provider configured")
	}
	resp, err := provider.Chat(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: system},
		{Role: llm.RoleUser, Content: user},
	}, llm.ChatOptions{Temperature: 0.2, MaxTokens: 2000})
	if err != nil {
		return "", fmt.Errorf("analysis: llm chat: %w", err)
	}
	return resp.Content, nil
}
