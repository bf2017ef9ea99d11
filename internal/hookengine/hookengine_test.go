package hookengine_test

import (
	"strings"
	"testing"

	"github.com/brennhill/revagent/internal/hookengine"
)

func TestGenerateFunctionHookUsesEval(t *testing.T) {
	e := hookengine.New()
	res, err := e.Generate(hookengine.HookOptions{
		Target: "window.fetchData",
		Type:   hookengine.TargetFunction,
		Action: hookengine.ActionLog,
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if res.HookID == "" {
		t.Fatal("expected a non-empty hookId")
	}
	if res.InjectionMethod != hookengine.InjectEval {
		t.Fatalf("InjectionMethod = %q, want page.Eval for a function hook", res.InjectionMethod)
	}
	if !strings.Contains(res.Script, "window.fetchData") {
		t.Fatalf("script missing target reference:\n%s", res.Script)
	}
}

func TestGenerateXHRHookUsesEvalOnNewDocument(t *testing.T) {
	e := hookengine.New()
	res, err := e.Generate(hookengine.HookOptions{
		Target: "*",
		Type:   hookengine.TargetXHR,
		Action: hookengine.ActionLog,
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if res.InjectionMethod != hookengine.InjectEvalOnNewDocument {
		t.Fatalf("InjectionMethod = %q, want page.EvalOnNewDocument for an API-level interceptor", res.InjectionMethod)
	}
	if !strings.Contains(res.Script, "XMLHttpRequest.prototype.open") {
		t.Fatalf("script missing XHR interception:\n%s", res.Script)
	}
}

func TestGenerateRejectsMissingTarget(t *testing.T) {
	e := hookengine.New()
	_, err := e.Generate(hookengine.HookOptions{Type: hookengine.TargetFunction, Action: hookengine.ActionLog})
	if err == nil {
		t.Fatal("expected an error for an empty target")
	}
}

func TestGenerateRejectsModifyWithoutCustomCode(t *testing.T) {
	e := hookengine.New()
	_, err := e.Generate(hookengine.HookOptions{
		Target: "window.f",
		Type:   hookengine.TargetFunction,
		Action: hookengine.ActionModify,
	})
	if err == nil {
		t.Fatal("expected an error when action=modify has no customCode")
	}
}

func TestGenerateRejectsUnknownTargetType(t *testing.T) {
	e := hookengine.New()
	_, err := e.Generate(hookengine.HookOptions{
		Target: "window.f",
		Type:   hookengine.TargetType("not-a-real-type"),
		Action: hookengine.ActionLog,
	})
	if err == nil {
		t.Fatal("expected an error for an unknown target type")
	}
}

func TestAntiDebugBypassIsFixedAndPersisted(t *testing.T) {
	e := hookengine.New()
	res := e.AntiDebugBypass()
	if res.Script == "" {
		t.Fatal("expected a non-empty anti-debug script")
	}
	if res.InjectionMethod != hookengine.InjectEvalOnNewDocument {
		t.Fatalf("InjectionMethod = %q, want page.EvalOnNewDocument", res.InjectionMethod)
	}
	if res.HookID != "" {
		t.Fatalf("HookID = %q, want empty (not a tracked hook)", res.HookID)
	}
}

func TestRecordCallbackAccumulatesAndCapsPerHook(t *testing.T) {
	e := hookengine.New()
	res, _ := e.Generate(hookengine.HookOptions{Target: "window.f", Type: hookengine.TargetFunction, Action: hookengine.ActionLog})

	recs := make([]hookengine.HookRecord, hookengine.MaxHookRecordsPerHook+50)
	e.RecordCallback(res.HookID, recs)

	got, err := e.Records(res.HookID)
	if err != nil {
		t.Fatalf("Records: %v", err)
	}
	if len(got) != hookengine.MaxHookRecordsPerHook {
		t.Fatalf("len(Records) = %d, want %d (capped, newest retained)", len(got), hookengine.MaxHookRecordsPerHook)
	}
}

func TestRecordsUnknownHookReturnsNotFound(t *testing.T) {
	e := hookengine.New()
	_, err := e.Records("hook_doesnotexist")
	if err == nil {
		t.Fatal("expected an error for an unknown hookId")
	}
}

func TestListReturnsAllGeneratedHooks(t *testing.T) {
	e := hookengine.New()
	r1, _ := e.Generate(hookengine.HookOptions{Target: "window.a", Type: hookengine.TargetFunction, Action: hookengine.ActionLog})
	r2, _ := e.Generate(hookengine.HookOptions{Target: "window.b", Type: hookengine.TargetFunction, Action: hookengine.ActionLog})

	list := e.List()
	if len(list) != 2 {
		t.Fatalf("List() = %v, want 2 hookIds", list)
	}
	if list[0] != r1.HookID || list[1] != r2.HookID {
		t.Fatalf("List() = %v, want [%s %s] in insertion order", list, r1.HookID, r2.HookID)
	}
}
