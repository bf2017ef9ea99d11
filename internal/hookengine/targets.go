package hookengine

import (
	"fmt"

	"github.com/brennhill/revagent/internal/errs"
)

// installSnippet builds the target-specific body of the hook template:
// the original-reference capture, the wrapper function, and the
// reinstallation of the wrapper on the real object. It also decides
// which page method the result must be injected with — API-level
// interceptors (xhr, fetch, websocket, localstorage, cookie) need to
// exist before page scripts run, so they go through
// EvalOnNewDocument; everything else can be patched in place with Eval.
func installSnippet(hookID string, opts HookOptions) (string, InjectionMethod, error) {
	switch opts.Type {
	case TargetFunction, TargetObjectMethod:
		return functionSnippet(opts), InjectEval, nil
	case TargetEval:
		return evalSnippet(opts), InjectEval, nil
	case TargetXHR:
		return xhrSnippet(opts), InjectEvalOnNewDocument, nil
	case TargetFetch:
		return fetchSnippet(opts), InjectEvalOnNewDocument, nil
	case TargetWebSocket:
		return websocketSnippet(opts), InjectEvalOnNewDocument, nil
	case TargetLocalStorage:
		return localStorageSnippet(opts), InjectEvalOnNewDocument, nil
	case TargetCookie:
		return cookieSnippet(opts), InjectEvalOnNewDocument, nil
	default:
		return "", "", &errs.InvalidArgument{Field: "type", Reason: "unknown hook target type " + string(opts.Type)}
	}
}

// actionBody emits the block/log/modify behavior shared by every
// wrapper: guard on conditionHolds, optionally time the call, invoke
// (or short-circuit) the original, splice customCode, and record.
func actionBody(opts HookOptions, callOriginal string) string {
	switch opts.Action {
	case ActionBlock:
		return fmt.Sprintf(`
      if (!conditionHolds(args)) { return %s; }
      callCount++; lastCallAt = Date.now();
      record(args, undefined, new Error().stack);
      return undefined;`, callOriginal)
	case ActionModify:
		return fmt.Sprintf(`
      if (!conditionHolds(args)) { return %s; }
      callCount++; lastCallAt = Date.now();
      var __t0 = %s;
      %s
      var result = %s;
      if (%t) { var __dt = (%s) - __t0; }
      record(args, result, new Error().stack);
      return result;`,
			callOriginal, perfStart(opts), opts.CustomCode, callOriginal, opts.Performance, perfEnd(opts))
	default: // ActionLog
		return fmt.Sprintf(`
      if (!conditionHolds(args)) { return %s; }
      callCount++; lastCallAt = Date.now();
      var __t0 = %s;
      var result = %s;
      if (%t) { var __dt = (%s) - __t0; }
      record(args, result, new Error().stack);
      return result;`,
			callOriginal, perfStart(opts), callOriginal, opts.Performance, perfEnd(opts))
	}
}

func perfStart(opts HookOptions) string {
	if opts.Performance {
		return "performance.now()"
	}
	return "0"
}

func perfEnd(opts HookOptions) string {
	if opts.Performance {
		return "performance.now()"
	}
	return "0"
}

func functionSnippet(opts HookOptions) string {
	return fmt.Sprintf(`
  var __path = %q.split(".");
  var __parent = window;
  for (var i = 0; i < __path.length - 1; i++) { __parent = __parent[__path[i]]; }
  var __prop = __path[__path.length - 1];
  var __orig = __parent[__prop];
  __parent[__prop] = function() {
    var args = Array.prototype.slice.call(arguments);
    var self = this;
    %s
  };
`, opts.Target, actionBody(opts, "__orig.apply(self, args)"))
}

func evalSnippet(opts HookOptions) string {
	return fmt.Sprintf(`
  var __orig = window.eval;
  window.eval = function(src) {
    var args = [src];
    var self = this;
    %s
  };
  window.eval.toString = function() { return "function eval() { [native code] }"; };
`, actionBody(opts, "__orig.call(self, src)"))
}

func xhrSnippet(opts HookOptions) string {
	return fmt.Sprintf(`
  var __origOpen = XMLHttpRequest.prototype.open;
  var __origSend = XMLHttpRequest.prototype.send;
  XMLHttpRequest.prototype.open = function(method, url) {
    this.__hookMethod = method; this.__hookUrl = url;
    return __origOpen.apply(this, arguments);
  };
  XMLHttpRequest.prototype.send = function(body) {
    var args = [this.__hookMethod, this.__hookUrl, body];
    var self = this;
    %s
  };
`, actionBody(opts, "__origSend.call(self, body)"))
}

func fetchSnippet(opts HookOptions) string {
	return fmt.Sprintf(`
  var __orig = window.fetch;
  window.fetch = function(input, init) {
    var args = [input, init];
    var self = this;
    %s
  };
`, actionBody(opts, "__orig.apply(self, args)"))
}

func websocketSnippet(opts HookOptions) string {
	return fmt.Sprintf(`
  var __OrigWS = window.WebSocket;
  function __HookedWS(url, protocols) {
    var args = [url, protocols];
    var self = this;
    var ws = new __OrigWS(url, protocols);
    %s
    return ws;
  }
  __HookedWS.prototype = __OrigWS.prototype;
  window.WebSocket = __HookedWS;
`, actionBody(opts, "ws"))
}

func localStorageSnippet(opts HookOptions) string {
	return fmt.Sprintf(`
  var __origSet = Storage.prototype.setItem;
  var __origGet = Storage.prototype.getItem;
  Storage.prototype.setItem = function(key, value) {
    var args = [key, value];
    var self = this;
    %s
  };
  Storage.prototype.getItem = function(key) {
    return __origGet.call(this, key);
  };
`, actionBody(opts, "__origSet.call(self, key, value)"))
}

func cookieSnippet(opts HookOptions) string {
	return fmt.Sprintf(`
  var __proto = Object.getPrototypeOf(document);
  var __desc = Object.getOwnPropertyDescriptor(__proto, "cookie");
  Object.defineProperty(document, "cookie", {
    configurable: true,
    get: function() { return __desc.get.call(document); },
    set: function(value) {
      var args = [value];
      var self = document;
      %s
    },
  });
`, actionBody(opts, "__desc.set.call(self, value)"))
}
