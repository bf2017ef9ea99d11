package tools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/brennhill/revagent/internal/analysis"
	"github.com/brennhill/revagent/internal/kit"
)

func (d *Deps) registerAnalysisTools(srv *mcp.Server) {
	d.registerAIDeobfuscate(srv)
	d.registerAIDetectObfuscation(srv)
	d.registerAIDetectCrypto(srv)
	d.registerAIUnderstandCode(srv)
	d.registerAIEnvironmentEmulator(srv)
}

type aiDeobfuscateRequest struct {
	Code       string `json:"code"`
	Aggressive bool   `json:"aggressive,omitempty"`
}

func (d *Deps) registerAIDeobfuscate(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "ai_deobfuscate",
		Description: "Detect the obfuscation style of code deterministically, then ask the LLM for a readable rewrite plus the transformations it applied (spec §4.L).",
		InputSchema: inputSchema(map[string]any{
			"code":       str("JavaScript source to deobfuscate"),
			"aggressive": boolean("also inline constant-folded control flow and unroll flattened switches"),
		}, []string{"code"}),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*aiDeobfuscateRequest)
		result, err := d.Deobfuscate.Deobfuscate(ctx, r.Code, r.Aggressive)
		if err != nil {
			return nil, err
		}
		return d.smartHandle(result)
	}
	kit.RegisterTool(srv, tool, d.chain(endpoint), decodeJSON[aiDeobfuscateRequest])
}

type aiCodeRequest struct {
	Code string `json:"code"`
}

func (d *Deps) registerAIDetectObfuscation(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "ai_detect_obfuscation",
		Description: "Run the deterministic obfuscation-style rule table over code (no LLM call): javascript-obfuscator, jsfuck, packer, aaencode, jjencode, control-flow-flattening, invisible-unicode, vm-protection.",
		InputSchema: inputSchema(map[string]any{"code": str("JavaScript source")}, []string{"code"}),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*aiCodeRequest)
		return map[string]any{"tags": analysis.DetectObfuscation(r.Code)}, nil
	}
	kit.RegisterTool(srv, tool, d.chain(endpoint), decodeJSON[aiCodeRequest])
}

func (d *Deps) registerAIDetectCrypto(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "ai_detect_crypto",
		Description: "Run the deterministic crypto-algorithm rule table over code, then ask the LLM to confirm or refine the assessment (spec §4.L).",
		InputSchema: inputSchema(map[string]any{"code": str("JavaScript source")}, []string{"code"}),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*aiCodeRequest)
		findings, narrative, err := d.Crypto.Detect(ctx, r.Code)
		if err != nil {
			return nil, err
		}
		return d.smartHandle(map[string]any{"findings": findings, "narrative": narrative})
	}
	kit.RegisterTool(srv, tool, d.chain(endpoint), decodeJSON[aiCodeRequest])
}

type aiUnderstandCodeRequest struct {
	Code  string `json:"code"`
	Focus string `json:"focus,omitempty"`
}

func (d *Deps) registerAIUnderstandCode(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "ai_understand_code",
		Description: "Ask the LLM for a structural summary of code: functions, call graph, tech stack, data-flow taint paths, security risks, complexity metrics. Optionally focused, e.g. security or data-flow.",
		InputSchema: inputSchema(map[string]any{
			"code":  str("JavaScript source"),
			"focus": str("optional focus area, e.g. security, data-flow"),
		}, []string{"code"}),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*aiUnderstandCodeRequest)
		summary, err := d.Understand.Understand(ctx, r.Code, r.Focus)
		if err != nil {
			return nil, err
		}
		return d.smartHandle(summary)
	}
	kit.RegisterTool(srv, tool, d.chain(endpoint), decodeJSON[aiUnderstandCodeRequest])
}

type aiEnvironmentEmulatorRequest struct {
	Code        string `json:"code"`
	Runtime     string `json:"runtime,omitempty"`
	BrowserType string `json:"browserType,omitempty"`
}

func (d *Deps) registerAIEnvironmentEmulator(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "ai_environment_emulator",
		Description: "Statically enumerate code's free identifiers (likely global references), then ask the LLM to recommend emulation values and generate Node.js/Python environment-patching code so the script runs outside a real browser.",
		InputSchema: inputSchema(map[string]any{
			"code":        str("JavaScript source"),
			"runtime":     str("target runtime, e.g. node, python (default node)"),
			"browserType": str("browser fingerprint to impersonate, e.g. chrome, firefox (default chrome)"),
		}, []string{"code"}),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*aiEnvironmentEmulatorRequest)
		runtime := r.Runtime
		if runtime == "" {
			runtime = "node"
		}
		browserType := r.BrowserType
		if browserType == "" {
			browserType = "chrome"
		}
		result, err := d.Emulator.Emulate(ctx, r.Code, runtime, browserType)
		if err != nil {
			return nil, err
		}
		return d.smartHandle(result)
	}
	kit.RegisterTool(srv, tool, d.chain(endpoint), decodeJSON[aiEnvironmentEmulatorRequest])
}
