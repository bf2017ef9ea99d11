package analysis

import (
	"context"
	"fmt"
	"regexp"

	"github.com/brennhill/revagent/internal/llm"
)

// ObfuscationTags is the closed vocabulary detect_obfuscation draws
// from (spec §4.L).
var ObfuscationTags = []Rule{
	{Pattern: regexp.MustCompile(`_0x[0-9a-fA-F]{4,}`), Tag: "javascript-obfuscator", Severity: "high"},
	{Pattern: regexp.MustCompile(`\\x[0-9a-fA-F]{2}\\x[0-9a-fA-F]{2}`), Tag: "invisible-unicode", Severity: "medium"},
	{Pattern: regexp.MustCompile(`while\s*\(\s*true\s*\)\s*\{\s*switch`), Tag: "control-flow-flattening", Severity: "high"},
	{Pattern: regexp.MustCompile(`\(\s*\[\]\s*\[\s*\(\s*!\s*\[\]`), Tag: "jsfuck", Severity: "high"},
	{Pattern: regexp.MustCompile(`゙|ゥ|ァ|ア|ィ`), Tag: "aaencode", Severity: "medium"},
	{Pattern: regexp.MustCompile(`\$\s*=\s*~\s*\[\s*\]\s*;\s*\$\s*=`), Tag: "jjencode", Severity: "medium"},
	{Pattern: regexp.MustCompile(`eval\(function\(p,a,c,k,e,`), Tag: "packer", Severity: "high"},
	{Pattern: regexp.MustCompile(`WebAssembly\.instantiate`), Tag: "vm-protection", Severity: "high"},
}

// DetectObfuscation runs the deterministic tag pass over code.
func DetectObfuscation(code string) []string {
	var tags []string
	for _, r := range ObfuscationTags {
		if r.Pattern.MatchString(code) {
			tags = append(tags, r.Tag)
		}
	}
	return tags
}

// UnderstandFacade implements understand_code (spec §4.L).
type UnderstandFacade struct {
	Provider llm.Provider
}

// StructuralSummary is understand_code's return shape.
type StructuralSummary struct {
	Functions         []string
	CallGraph         map[string][]string
	TechStack         []string
	DataFlowPaths     []string
	SecurityRisks     []string
	ComplexityMetrics map[string]float64
	Narrative         string
}

// Understand asks the provider for a structural summary of code,
// optionally focused by focus (e.g. "security", "data-flow").
func (f *UnderstandFacade) Understand(ctx context.Context, code, focus string) (StructuralSummary, error) {
	prompt := fmt.Sprintf(
		"Analyze the following JavaScript. Focus: %s.\n"+
			"List functions, a call graph, the apparent tech stack, data-flow "+
			"taint paths from untrusted input to sensitive sinks, security risks, "+
			"and complexity metrics.\n\n%s", orDefault(focus, "general structure"), code)
	narrative, err := chat(ctx, f.Provider, understandSystemPrompt, prompt)
	if err != nil {
		return StructuralSummary{}, err
	}
	return StructuralSummary{Narrative: narrative}, nil
}

const understandSystemPrompt = "You are a reverse-engineering assistant. Respond with a precise structural summary, not a rewrite of the code."

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
