package analysis

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/brennhill/revagent/internal/llm"
)

// DeobfuscateFacade implements deobfuscate (spec §4.L).
type DeobfuscateFacade struct {
	Provider llm.Provider
}

// DeobfuscateResult is deobfuscate's return shape.
type DeobfuscateResult struct {
	Code             string
	ReadabilityScore float64
	Confidence       float64
	ObfuscationType  []string
	Transformations  []string
	Analysis         string
}

// Deobfuscate detects the obfuscation style deterministically, then
// asks the provider to produce a readable rewrite.
func (f *DeobfuscateFacade) Deobfuscate(ctx context.Context, code string, aggressive bool) (DeobfuscateResult, error) {
	tags := DetectObfuscation(code)

	mode := "conservative: preserve structure, only rename identifiers and simplify literals"
	if aggressive {
		mode = "aggressive: also inline constant-folded control flow and unroll flattened switches"
	}
	prompt := fmt.Sprintf(
		"Detected obfuscation styles: %v. Rewrite the following JavaScript to be "+
			"human-readable, in %s mode. After the code, list the transformations you "+
			"applied, one per line.\n\n%s", tags, mode, code)

	narrative, err := chat(ctx, f.Provider, deobfuscateSystemPrompt, prompt)
	if err != nil {
		return DeobfuscateResult{}, err
	}

	code, trailer := splitCodeFromTrailer(narrative)

	return DeobfuscateResult{
		Code:             code,
		ObfuscationType:  tags,
		Confidence:       confidenceFromTagCount(len(tags)),
		Transformations:  parseTransformations(trailer),
		ReadabilityScore: estimateReadability(code),
		Analysis:         narrative,
	}, nil
}

const deobfuscateSystemPrompt = "You are a JavaScript deobfuscation assistant. Produce readable code plus a list of the transformations you applied."

var fencedCodeBlockPattern = regexp.MustCompile("(?s)```(?:javascript|js)?\\s*\\n(.*?)```")

// splitCodeFromTrailer pulls the fenced code block out of narrative and
// returns it alongside whatever text follows (the "after the code, list
// the transformations" section the prompt asked for). If the model
// didn't fence its code, the whole narrative is treated as code and
// there is no trailer to parse transformations from.
func splitCodeFromTrailer(narrative string) (code, trailer string) {
	loc := fencedCodeBlockPattern.FindStringSubmatchIndex(narrative)
	if loc == nil {
		return narrative, ""
	}
	code = strings.TrimSpace(narrative[loc[2]:loc[3]])
	trailer = narrative[loc[1]:]
	return code, trailer
}

// parseTransformations turns a free-text list (bulleted, numbered, or
// bare lines) into individual transformation descriptions.
func parseTransformations(trailer string) []string {
	numberedPrefix := regexp.MustCompile(`^\d+[.)]\s*`)
	var out []string
	for _, line := range strings.Split(trailer, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lower := strings.ToLower(strings.TrimSuffix(line, ":"))
		if lower == "transformations" || lower == "transformations applied" {
			continue
		}
		for _, prefix := range []string{"- ", "* ", "• "} {
			if strings.HasPrefix(line, prefix) {
				line = strings.TrimPrefix(line, prefix)
				break
			}
		}
		line = numberedPrefix.ReplaceAllString(line, "")
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

// identifierPattern matches JS identifiers for the readability heuristic
// below.
var identifierPattern = regexp.MustCompile(`\b[A-Za-z_$][A-Za-z0-9_$]*\b`)

// estimateReadability is a cheap proxy for how "readable" rewritten code
// is: the fraction of identifiers that are at least 3 characters long,
// since obfuscated/minified names are overwhelmingly 1-2 characters
// (a, b, _0x1). Not a substitute for the LLM's own judgment, just a
// deterministic number to return alongside it.
func estimateReadability(code string) float64 {
	idents := identifierPattern.FindAllString(code, -1)
	if len(idents) == 0 {
		return 0.5
	}
	long := 0
	for _, id := range idents {
		if len(id) >= 3 {
			long++
		}
	}
	return float64(long) / float64(len(idents))
}

func confidenceFromTagCount(n int) float64 {
	switch {
	case n == 0:
		return 0.3
	case n == 1:
		return 0.6
	default:
		return 0.85
	}
}
