// Package cdp is the typed boundary this server speaks across to the
// browser engine. Per spec §1 the DevTools-Protocol wire layer itself is
// an out-of-core-scope external collaborator; this package is the typed
// command/event surface that boundary is expressed through. The
// concrete implementation is backed by github.com/go-rod/rod, which
// already gives each subsystem its own CDP domain enable/disable and
// event subscription scope — so "separate CDP session" (spec §5) maps to
// "separate Session value wrapping the same underlying page", each with
// its own cancelable event-loop context, rather than a second websocket.
package cdp

import (
	"context"
	"log/slog"

	"github.com/go-rod/rod"
)

// Session is the shared capability every debug/inspect subsystem
// consumes. The Debugger Core (4.I) owns the single "shared" Session
// (its subordinate managers receive this exact value per Design Note
// "cyclic ownership ... resolved by passing the session object by
// value"); Network Recorder, Console Monitor, and Script Catalog each
// construct their own Session from the same *rod.Page so that enabling
// or disabling one domain never disables another.
type Session struct {
	page   *rod.Page
	owner  string
	ctx    context.Context
	cancel context.CancelFunc
	logger *slog.Logger
}

// New wraps page for a single owning subsystem (owner is a label used
// only for logging/diagnostics, e.g. "debugger", "network").
func New(parent context.Context, page *rod.Page, owner string, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(parent)
	return &Session{page: page, owner: owner, ctx: ctx, cancel: cancel, logger: logger}
}

// Page returns the underlying rod page so callers can issue
// proto.X{...}.Call(page) commands and page.EachEvent subscriptions
// directly — this package deliberately doesn't re-wrap every CDP command
// rod already exposes typed.
func (s *Session) Page() *rod.Page { return s.page }

// Context returns the session's cancelable lifetime context. Event
// subscription goroutines select on Done() to stop when Close is
// called.
func (s *Session) Context() context.Context { return s.ctx }

// Owner returns the subsystem label this session was created for.
func (s *Session) Owner() string { return s.owner }

// Logger returns the session's logger, pre-tagged with its owner.
func (s *Session) Logger() *slog.Logger { return s.logger.With("cdp_session", s.owner) }

// Close cancels the session's context, stopping any goroutines selecting
// on it. It does not close the underlying page — ownership of the page
// itself belongs to the Browser Session Manager (4.E).
func (s *Session) Close() { s.cancel() }
