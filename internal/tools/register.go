package tools

import "github.com/modelcontextprotocol/go-sdk/mcp"

// RegisterAll wires every tool-name-prefix group onto srv. Called once
// from cmd/revagent/main.go after every subsystem in Deps is
// constructed.
func RegisterAll(srv *mcp.Server, deps *Deps) {
	deps.registerBrowserTools(srv)
	deps.registerPageTools(srv)
	deps.registerDOMTools(srv)
	deps.registerDebuggerTools(srv)
	deps.registerBreakpointTools(srv)
	deps.registerWatchTools(srv)
	deps.registerXHRBreakpointTools(srv)
	deps.registerEventBreakpointTools(srv)
	deps.registerBlackboxTools(srv)
	deps.registerNetworkTools(srv)
	deps.registerConsoleTools(srv)
	deps.registerPerformanceTools(srv)
	deps.registerScriptTools(srv)
	deps.registerHookTools(srv)
	deps.registerAnalysisTools(srv)
	deps.registerStealthTools(srv)
	deps.registerCaptchaTools(srv)
	deps.registerBudgetTools(srv)
	deps.registerDetailTools(srv)
	deps.registerCacheTools(srv)
}
