// Package hookengine turns a typed hook request into an injectable JS
// payload (spec §4.J). It never evaluates the payload itself — the
// caller is responsible for injecting the returned script via
// page.Eval (immediate) or page.EvalOnNewDocument (persisted across
// navigations), per the returned InjectionMethod.
package hookengine

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"
	"text/template"
	"time"

	"github.com/brennhill/revagent/internal/errs"
	"github.com/brennhill/revagent/internal/idgen"
)

//go:embed templates/hook.tmpl.js
var hookTemplateSrc string

//go:embed templates/antidebug.js
var antiDebugScript string

var hookTemplate = template.Must(template.New("hook").Parse(hookTemplateSrc))

// TargetType is the closed vocabulary for HookOptions.Type (spec §4.J).
type TargetType string

const (
	TargetFunction     TargetType = "function"
	TargetXHR          TargetType = "xhr"
	TargetFetch        TargetType = "fetch"
	TargetWebSocket    TargetType = "websocket"
	TargetLocalStorage TargetType = "localstorage"
	TargetCookie       TargetType = "cookie"
	TargetEval         TargetType = "eval"
	TargetObjectMethod TargetType = "object-method"
)

// Action is the closed vocabulary for HookOptions.Action.
type Action string

const (
	ActionLog    Action = "log"
	ActionBlock  Action = "block"
	ActionModify Action = "modify"
)

// InjectionMethod tells the caller which page method to use, matching
// rod's Page.Eval / Page.EvalOnNewDocument split.
type InjectionMethod string

const (
	InjectEval             InjectionMethod = "page.Eval"
	InjectEvalOnNewDocument InjectionMethod = "page.EvalOnNewDocument"
)

// Condition mirrors spec §4.J's condition bundle: maxCalls, minInterval,
// and argument/return predicates (raw JS boolean expressions referencing
// `args`/`returnValue`). The argument predicate is evaluated inside the
// generated hook; ReturnPredicate is carried but the generated hook does
// not evaluate it.
type Condition struct {
	MaxCalls          int
	MinInterval       time.Duration
	ArgumentPredicate string
	ReturnPredicate   string
}

// HookOptions is the typed HookRequest from spec §4.J.
type HookOptions struct {
	Target      string
	Type        TargetType
	Action      Action
	CustomCode  string
	Condition   *Condition
	Performance bool
}

// HookResult is what the engine returns; injection is left to the
// caller.
type HookResult struct {
	HookID          string
	Script          string
	Instructions    string
	InjectionMethod InjectionMethod
}

// MaxHookRecordsPerHook and MaxTotalHookRecords bound HookRecord
// storage (spec §3).
const (
	MaxHookRecordsPerHook = 1000
	MaxTotalHookRecords   = 10000
)

// HookRecord mirrors spec §3's HookRecord.
type HookRecord struct {
	HookID      string
	Timestamp   time.Time
	Args        json.RawMessage
	ReturnValue json.RawMessage
	Stack       string
}

// Engine generates hook payloads and stores records reported back by
// the page's __aiHooks accumulator.
type Engine struct {
	mu      sync.Mutex
	idgen   idgen.Generator
	records map[string][]HookRecord
	order   []string // hookIds in first-seen order, for oldest-hook eviction
	total   int
}

// New constructs an Engine with NanoID hook identifiers prefixed
// "hook_", matching detailstore's "det_" convention.
func New() *Engine {
	return &Engine{
		idgen:   idgen.Prefixed("hook_", idgen.NanoID(10)),
		records: make(map[string][]HookRecord),
	}
}

// Generate dispatches to the per-type install-snippet builder and
// renders the shared hook template around it.
func (e *Engine) Generate(opts HookOptions) (HookResult, error) {
	if opts.Target == "" {
		return HookResult{}, &errs.InvalidArgument{Field: "target", Reason: "required"}
	}
	switch opts.Action {
	case ActionLog, ActionBlock, ActionModify:
	default:
		return HookResult{}, &errs.InvalidArgument{Field: "action", Reason: "must be log, block, or modify"}
	}
	if opts.Action == ActionModify && opts.CustomCode == "" {
		return HookResult{}, &errs.InvalidArgument{Field: "customCode", Reason: "required when action is modify"}
	}

	hookID := e.idgen()

	install, method, err := installSnippet(hookID, opts)
	if err != nil {
		return HookResult{}, err
	}

	data := struct {
		HookIDJSON          string
		TargetJSON          string
		ActionJSON          string
		MaxCalls            int
		MinInterval         int64
		ArgumentPredicateJS string
		MaxHookRecords      int
		InstallJS           string
	}{
		HookIDJSON:     jsonLit(hookID),
		TargetJSON:     jsonLit(opts.Target),
		ActionJSON:     jsonLit(string(opts.Action)),
		MaxHookRecords: MaxHookRecordsPerHook,
		InstallJS:      install,
	}
	if opts.Condition != nil {
		data.MaxCalls = opts.Condition.MaxCalls
		data.MinInterval = opts.Condition.MinInterval.Milliseconds()
		if opts.Condition.ArgumentPredicate != "" {
			data.ArgumentPredicateJS = fmt.Sprintf("if (!(%s)) return false;", opts.Condition.ArgumentPredicate)
		}
	}

	var buf bytes.Buffer
	if err := hookTemplate.Execute(&buf, data); err != nil {
		return HookResult{}, fmt.Errorf("hookengine: render template: %w", err)
	}

	e.mu.Lock()
	e.records[hookID] = nil
	e.order = append(e.order, hookID)
	e.mu.Unlock()

	return HookResult{
		HookID:          hookID,
		Script:          buf.String(),
		Instructions:    instructionsFor(opts.Type, method),
		InjectionMethod: method,
	}, nil
}

// AntiDebugBypass returns the fixed anti-debug-bypass script (spec
// §4.J's separate generator). It is not parameterized and carries no
// hookId/record bookkeeping.
func (e *Engine) AntiDebugBypass() HookResult {
	return HookResult{
		Script:          antiDebugScript,
		Instructions:    "inject once via page.EvalOnNewDocument before any navigation to mask debugger detection",
		InjectionMethod: InjectEvalOnNewDocument,
	}
}

// RecordCallback ingests the records accumulated in the page's
// window.__aiHooks[hookId], applying the bounded-storage rules from
// spec §3: per-hook cap with newest-retained, global cap dropping the
// oldest half of the oldest hook's records.
func (e *Engine) RecordCallback(hookID string, recs []HookRecord) {
	e.mu.Lock()
	defer e.mu.Unlock()

	existing, ok := e.records[hookID]
	if !ok {
		e.order = append(e.order, hookID)
	}
	existing = append(existing, recs...)
	if len(existing) > MaxHookRecordsPerHook {
		existing = existing[len(existing)-MaxHookRecordsPerHook:]
	}
	delta := len(existing) - len(e.records[hookID])
	e.records[hookID] = existing
	e.total += delta

	for e.total > MaxTotalHookRecords && len(e.order) > 0 {
		oldest := e.order[0]
		oldRecs := e.records[oldest]
		drop := len(oldRecs) / 2
		if drop == 0 {
			drop = 1
		}
		if drop >= len(oldRecs) {
			e.total -= len(oldRecs)
			delete(e.records, oldest)
			e.order = e.order[1:]
			continue
		}
		e.records[oldest] = oldRecs[drop:]
		e.total -= drop
	}
}

// Records returns the stored records for hookID.
func (e *Engine) Records(hookID string) ([]HookRecord, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	recs, ok := e.records[hookID]
	if !ok {
		return nil, &errs.NotFound{Kind: "hook", ID: hookID, Listing: "ai_hook_list"}
	}
	out := make([]HookRecord, len(recs))
	copy(out, recs)
	return out, nil
}

// List returns every known hookId.
func (e *Engine) List() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.order))
	copy(out, e.order)
	return out
}

func jsonLit(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func instructionsFor(t TargetType, m InjectionMethod) string {
	if m == InjectEvalOnNewDocument {
		return fmt.Sprintf("inject via page.EvalOnNewDocument before navigation so the %s interceptor is installed before page scripts run", t)
	}
	return fmt.Sprintf("inject via page.Eval once the %s target already exists on the page", t)
}
