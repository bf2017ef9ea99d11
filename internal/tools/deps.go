// Package tools implements the Tool Handlers (spec §4.K): thin adapters
// that validate and coerce arguments, invoke one or more of the
// subsystems in internal/{browsersession,scriptcatalog,netrecorder,
// consolemonitor,debugger,hookengine,analysis}, and shape the result for
// the LLM — passing oversized payloads through the Detail-ID store.
// One file per tool-name prefix from spec §6, matching
// domkeeper/mcp.go's one-register-function-per-tool shape.
package tools

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/brennhill/revagent/internal/analysis"
	"github.com/brennhill/revagent/internal/browsersession"
	"github.com/brennhill/revagent/internal/cachecoord"
	"github.com/brennhill/revagent/internal/consolemonitor"
	"github.com/brennhill/revagent/internal/debugger"
	"github.com/brennhill/revagent/internal/detailstore"
	"github.com/brennhill/revagent/internal/hookengine"
	"github.com/brennhill/revagent/internal/kit"
	"github.com/brennhill/revagent/internal/llm"
	"github.com/brennhill/revagent/internal/netrecorder"
	"github.com/brennhill/revagent/internal/perfmonitor"
	"github.com/brennhill/revagent/internal/scriptcatalog"
	"github.com/brennhill/revagent/internal/tokenbudget"
)

// Deps bundles every subsystem a tool handler might need. Constructed
// once in cmd/revagent/main.go and threaded through Register.
type Deps struct {
	Browser     *browsersession.Manager
	Scripts     *scriptcatalog.Catalog
	Network     *netrecorder.Recorder
	Console     *consolemonitor.Monitor
	Debugger    *debugger.Core
	Hooks       *hookengine.Engine
	Perf        *perfmonitor.Monitor
	Detail      *detailstore.Store
	Budget      *tokenbudget.Budget
	Caches      *cachecoord.Coordinator
	LLM         llm.Provider
	Logger      *slog.Logger

	Deobfuscate *analysis.DeobfuscateFacade
	Crypto      *analysis.CryptoFacade
	Understand  *analysis.UnderstandFacade
	Emulator    *analysis.EmulatorFacade
}

// detailThreshold is the §4.C smartHandle threshold every tool result
// is passed through.
const detailThreshold = detailstore.DefaultThreshold

// smartHandle externalizes resp through the Detail-ID store when it
// serializes over detailThreshold bytes.
func (d *Deps) smartHandle(resp any) (any, error) {
	return d.Detail.SmartHandle(resp, detailThreshold)
}

// chain wraps endpoint with the Token Budget accounting middleware so
// every dispatched tool call is metered regardless of its outcome (spec
// §4.A): this is where that rule is structurally enforced, not
// reimplemented per handler.
func (d *Deps) chain(endpoint kit.Endpoint) kit.Endpoint {
	return kit.Chain(d.budgetMiddleware())(endpoint)
}

func (d *Deps) budgetMiddleware() kit.Middleware {
	return func(next kit.Endpoint) kit.Endpoint {
		return func(ctx context.Context, req any) (any, error) {
			reqJSON, _ := json.Marshal(req)

			resp, err := next(ctx, req)

			var respJSON []byte
			if err != nil {
				respJSON = []byte(err.Error())
			} else {
				respJSON, _ = json.Marshal(resp)
			}

			if d.Budget != nil {
				d.Budget.Account(kit.ToolName(ctx), reqJSON, respJSON)
			}
			return resp, err
		}
	}
}
