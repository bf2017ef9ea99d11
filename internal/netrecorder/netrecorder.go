// Package netrecorder implements the Network Recorder (spec §4.G): bounded
// ring buffers of requests/responses, on-demand body fetch, and bulk
// JavaScript-response extraction. It owns its own cdp.Session (the
// Network domain) separate from the Debugger Core's shared session, so
// enabling/disabling Debugger never touches Network (spec §5).
package netrecorder

import (
	"encoding/base64"
	"strings"
	"sync"

	"github.com/go-rod/rod/lib/proto"

	"github.com/brennhill/revagent/internal/cachecoord"
	"github.com/brennhill/revagent/internal/cdp"
	"github.com/brennhill/revagent/internal/errs"
)

// MaxRecords bounds each insertion-ordered map; oldest entries are
// evicted on overflow.
const MaxRecords = 500

// Request mirrors spec §3's NetworkRequest.
type Request struct {
	RequestID string
	URL       string
	Method    string
	Headers   map[string]string
	PostData  string
	Timestamp float64
	Type      string
	Initiator string
}

// Response mirrors spec §3's NetworkResponse.
type Response struct {
	RequestID  string
	URL        string
	Status     int
	StatusText string
	Headers    map[string]string
	MimeType   string
	Timestamp  float64
	FromCache  bool
}

// Recorder is the process's network capture subsystem.
type Recorder struct {
	mu        sync.RWMutex
	enabled   bool
	session   *cdp.Session
	reqOrder  []string
	reqs      map[string]*Request
	respOrder []string
	resps     map[string]*Response
	getBody   func(requestID string) (data string, base64Encoded bool, err error)
}

// New creates an empty, disabled Recorder.
func New() *Recorder {
	return &Recorder{
		reqs:  make(map[string]*Request),
		resps: make(map[string]*Response),
	}
}

// Enable subscribes Network.requestWillBeSent/responseReceived/
// loadingFinished on session and enables the CDP Network domain. Safe to
// call more than once; a second call is a no-op.
func (r *Recorder) Enable(session *cdp.Session) error {
	r.mu.Lock()
	if r.enabled {
		r.mu.Unlock()
		return nil
	}
	r.session = session
	r.enabled = true
	r.getBody = func(requestID string) (string, bool, error) {
		res, err := proto.NetworkGetResponseBody{RequestID: proto.NetworkRequestID(requestID)}.Call(session.Page())
		if err != nil {
			return "", false, err
		}
		return res.Body, res.Base64Encoded, nil
	}
	r.mu.Unlock()

	if err := proto.NetworkEnable{}.Call(session.Page()); err != nil {
		return &errs.RemoteFailure{Command: "Network.enable", Cause: err}
	}

	go session.Page().Context(session.Context()).EachEvent(
		func(e *proto.NetworkRequestWillBeSent) {
			r.onRequest(e)
		},
		func(e *proto.NetworkResponseReceived) {
			r.onResponse(e)
		},
		func(e *proto.NetworkLoadingFinished) {
			// readiness signal only; body is fetched on demand.
		},
	)()

	return nil
}

// Disable issues Network.disable, closes the session and clears listener
// state. Idempotent.
func (r *Recorder) Disable() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.enabled {
		return nil
	}
	if r.session != nil {
		_ = proto.NetworkDisable{}.Call(r.session.Page())
		r.session.Close()
	}
	r.enabled = false
	r.session = nil
	r.getBody = nil
	return nil
}

func (r *Recorder) onRequest(e *proto.NetworkRequestWillBeSent) {
	headers := map[string]string{}
	for k, v := range e.Request.Headers {
		headers[k] = v
	}
	req := &Request{
		RequestID: string(e.RequestID),
		URL:       e.Request.URL,
		Method:    e.Request.Method,
		Headers:   headers,
		PostData:  e.Request.PostData,
		Timestamp: float64(e.Timestamp),
		Initiator: string(e.Initiator.Type),
	}
	if e.Type != "" {
		req.Type = string(e.Type)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.reqs[req.RequestID]; !exists {
		r.reqOrder = append(r.reqOrder, req.RequestID)
	}
	r.reqs[req.RequestID] = req
	r.evictReqsLocked()
}

func (r *Recorder) onResponse(e *proto.NetworkResponseReceived) {
	headers := map[string]string{}
	for k, v := range e.Response.Headers {
		headers[k] = v
	}
	resp := &Response{
		RequestID:  string(e.RequestID),
		URL:        e.Response.URL,
		Status:     int(e.Response.Status),
		StatusText: e.Response.StatusText,
		Headers:    headers,
		MimeType:   e.Response.MIMEType,
		Timestamp:  float64(e.Timestamp),
		FromCache:  e.Response.FromDiskCache || e.Response.FromServiceWorker,
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.resps[resp.RequestID]; !exists {
		r.respOrder = append(r.respOrder, resp.RequestID)
	}
	r.resps[resp.RequestID] = resp
	r.evictRespsLocked()
}

func (r *Recorder) evictReqsLocked() {
	for len(r.reqOrder) > MaxRecords {
		victim := r.reqOrder[0]
		r.reqOrder = r.reqOrder[1:]
		delete(r.reqs, victim)
	}
}

func (r *Recorder) evictRespsLocked() {
	for len(r.respOrder) > MaxRecords {
		victim := r.respOrder[0]
		r.respOrder = r.respOrder[1:]
		delete(r.resps, victim)
	}
}

// Requests returns all captured requests, oldest first, optionally
// filtered by urlSubstring and method (empty = no filter).
func (r *Recorder) Requests(urlSubstring, method string) []Request {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Request
	for _, id := range r.reqOrder {
		req := r.reqs[id]
		if urlSubstring != "" && !strings.Contains(req.URL, urlSubstring) {
			continue
		}
		if method != "" && !strings.EqualFold(req.Method, method) {
			continue
		}
		out = append(out, *req)
	}
	return out
}

// Responses returns all captured responses, oldest first.
func (r *Recorder) Responses() []Response {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Response, 0, len(r.respOrder))
	for _, id := range r.respOrder {
		out = append(out, *r.resps[id])
	}
	return out
}

// ResponseBody fetches a response body by requestId. Returns (nil, nil)
// — not an error — when monitoring is disabled, the request is unknown,
// or the response hasn't arrived yet, matching §4.G's "must not throw
// for a known, completed request" contract: those three states aren't
// "completed", so returning nil is correct, not a failure to surface.
type Body struct {
	Data          string
	Base64Encoded bool
}

func (r *Recorder) ResponseBody(requestID string) (*Body, error) {
	r.mu.RLock()
	enabled := r.enabled
	getBody := r.getBody
	_, known := r.reqs[requestID]
	_, hasResp := r.resps[requestID]
	r.mu.RUnlock()

	if !enabled || !known || !hasResp {
		return nil, nil
	}

	data, b64, err := getBody(requestID)
	if err != nil {
		return nil, &errs.RemoteFailure{Command: "Network.getResponseBody", Cause: err}
	}
	return &Body{Data: data, Base64Encoded: b64}, nil
}

// JSResponse is one JavaScript response returned by AllJavaScriptResponses.
type JSResponse struct {
	RequestID string
	URL       string
	Body      string
}

// AllJavaScriptResponses iterates recorded responses whose MimeType
// contains "javascript" or whose URL ends in .js/.js?, fetching each
// body and decoding base64 when flagged. Idempotent — callers can call
// it repeatedly as new scripts load.
func (r *Recorder) AllJavaScriptResponses() ([]JSResponse, error) {
	r.mu.RLock()
	var candidates []*Response
	for _, id := range r.respOrder {
		resp := r.resps[id]
		if strings.Contains(resp.MimeType, "javascript") || strings.HasSuffix(resp.URL, ".js") || strings.Contains(resp.URL, ".js?") {
			candidates = append(candidates, resp)
		}
	}
	r.mu.RUnlock()

	out := make([]JSResponse, 0, len(candidates))
	for _, c := range candidates {
		body, err := r.ResponseBody(c.RequestID)
		if err != nil || body == nil {
			continue
		}
		text := body.Data
		if body.Base64Encoded {
			if decoded, derr := base64.StdEncoding.DecodeString(body.Data); derr == nil {
				text = string(decoded)
			}
		}
		out = append(out, JSResponse{RequestID: c.RequestID, URL: c.URL, Body: text})
	}
	return out, nil
}

// Enabled reports whether network_enable has been called.
func (r *Recorder) Enabled() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.enabled
}

// --- cachecoord.CacheInstance ---

type CacheAdapter struct{ *Recorder }

func (a CacheAdapter) Name() string { return "netrecorder" }

func (a CacheAdapter) Stats() cachecoord.Stats {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return cachecoord.Stats{Name: "netrecorder", Entries: len(a.reqs) + len(a.resps)}
}

func (a CacheAdapter) Cleanup() int64 { return 0 }

func (a CacheAdapter) Clear() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := len(a.reqs) + len(a.resps)
	a.reqs = make(map[string]*Request)
	a.reqOrder = nil
	a.resps = make(map[string]*Response)
	a.respOrder = nil
	return int64(n)
}
