// Package errs holds the tool-server's error taxonomy (spec §7). Each type
// carries enough structure for a handler to shape an actionable, LLM-facing
// message without string-matching on Error() text.
package errs

import "fmt"

// InvalidArgument means the caller's arguments are malformed or out of
// range. Never retried.
type InvalidArgument struct {
	Field  string
	Reason string
}

func (e *InvalidArgument) Error() string {
	return fmt.Sprintf("invalid argument %q: %s", e.Field, e.Reason)
}

// PreconditionFailed means a required subsystem state wasn't met (e.g.
// debugger not enabled, not paused, network monitoring disabled). Hint
// names the call the LLM should make first.
type PreconditionFailed struct {
	Condition string
	Hint      string
}

func (e *PreconditionFailed) Error() string {
	return fmt.Sprintf("precondition not met: %s (hint: %s)", e.Condition, e.Hint)
}

// NotFound means a lookup by id failed. Listing names a tool the caller
// can use to enumerate valid ids.
type NotFound struct {
	Kind    string // "breakpoint", "script", "requestId", "detailId", ...
	ID      string
	Listing string
}

func (e *NotFound) Error() string {
	return fmt.Sprintf("%s not found: %q (list with %s)", e.Kind, e.ID, e.Listing)
}

// Timeout means a waiter (waitForPaused, waitForSelector, an LLM call)
// exceeded its deadline. The waiter must already be deregistered by the
// time this is returned.
type Timeout struct {
	Op      string
	Timeout string
}

func (e *Timeout) Error() string {
	return fmt.Sprintf("timed out waiting for %s after %s", e.Op, e.Timeout)
}

// RemoteFailure wraps a rejected CDP command. Propagated unchanged except
// during teardown, where it is logged and swallowed.
type RemoteFailure struct {
	Command string
	Cause   error
}

func (e *RemoteFailure) Error() string {
	return fmt.Sprintf("cdp command %s failed: %v", e.Command, e.Cause)
}

func (e *RemoteFailure) Unwrap() error { return e.Cause }

// BrowserUnavailable is returned when a subsystem's required page is gone.
// It is never retried with an implicit relaunch (4.E).
type BrowserUnavailable struct {
	Reason string
}

func (e *BrowserUnavailable) Error() string {
	return fmt.Sprintf("browser not available: %s", e.Reason)
}

// Expired means a detail ID (or similar TTL-bound handle) has passed its
// expiresAt.
type Expired struct {
	Kind string
	ID   string
}

func (e *Expired) Error() string {
	return fmt.Sprintf("%s expired: %q", e.Kind, e.ID)
}
