package debugger

import (
	"fmt"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/brennhill/revagent/internal/errs"
)

// ScopeVariable mirrors spec §4.I's getScopeVariables result shape.
type ScopeVariable struct {
	Name          string
	Value         any
	Type          string
	Scope         string // "local", "closure", "global", "with", "catch", "block", "eval", ...
	Writable      bool
	Configurable  bool
	Enumerable    bool
	ObjectID      string
}

// ScopeVariableOptions parameterizes GetScopeVariables (spec §4.I).
type ScopeVariableOptions struct {
	CallFrameID           string
	IncludeObjectProperties bool
	MaxDepth              int
	SkipErrors            bool
}

func (o *ScopeVariableOptions) defaults() {
	if o.MaxDepth <= 0 {
		o.MaxDepth = 1
	}
}

// GetScopeVariables walks the target call frame's scope chain, requesting
// Runtime.getProperties(ownProperties) for each scope whose object has an
// objectId. Paused-only.
func (c *Core) GetScopeVariables(opts ScopeVariableOptions) ([]ScopeVariable, error) {
	if err := c.requirePaused(); err != nil {
		return nil, err
	}
	session, _ := c.requireEnabled()

	c.mu.Lock()
	ps := c.paused
	c.mu.Unlock()
	if ps == nil {
		return nil, &errs.PreconditionFailed{Condition: "not in paused state", Hint: "trigger or wait for a breakpoint hit first"}
	}

	opts.defaults()

	var frame *CallFrame
	for i := range ps.CallFrames {
		if opts.CallFrameID == "" || ps.CallFrames[i].CallFrameID == opts.CallFrameID {
			frame = &ps.CallFrames[i]
			break
		}
	}
	if frame == nil {
		return nil, &errs.NotFound{Kind: "callFrame", ID: opts.CallFrameID, Listing: "debugger_get_paused_state"}
	}

	var out []ScopeVariable
	var scopeErrors []error

	for _, scope := range frame.ScopeChain {
		if scope.ObjectID == "" {
			continue
		}
		props, err := fetchProperties(session.Page(), scope.ObjectID)
		if err != nil {
			if opts.SkipErrors {
				scopeErrors = append(scopeErrors, err)
				continue
			}
			return nil, err
		}
		for _, p := range props {
			if p.Name == "__proto__" {
				continue
			}
			sv := ScopeVariable{
				Name:         p.Name,
				Scope:        scope.Type,
				Writable:     p.Writable,
				Configurable: p.Configurable,
				Enumerable:   p.Enumerable,
			}
			if p.Value != nil {
				sv.ObjectID = p.Value.ObjectID
				sv.Type = p.Value.Type
				sv.Value = p.Value.Value
			}
			out = append(out, sv)

			if opts.IncludeObjectProperties && opts.MaxDepth > 0 && sv.ObjectID != "" {
				children, err := fetchProperties(session.Page(), sv.ObjectID)
				if err == nil {
					for _, cp := range children {
						if cp.Name == "__proto__" {
							continue
						}
						child := ScopeVariable{
							Name:         sv.Name + "." + cp.Name,
							Scope:        scope.Type,
							Writable:     cp.Writable,
							Configurable: cp.Configurable,
							Enumerable:   cp.Enumerable,
						}
						if cp.Value != nil {
							child.ObjectID = cp.Value.ObjectID
							child.Type = cp.Value.Type
							child.Value = cp.Value.Value
						}
						out = append(out, child)
					}
				}
			}
		}
	}

	if len(scopeErrors) > 0 && !opts.SkipErrors {
		return out, fmt.Errorf("scope errors: %v", scopeErrors)
	}
	return out, nil
}

type propertyValue struct {
	ObjectID string
	Type     string
	Value    any
}

type property struct {
	Name         string
	Value        *propertyValue
	Writable     bool
	Configurable bool
	Enumerable   bool
}

// fetchProperties calls Runtime.getProperties(ownProperties=true) for
// objectID and flattens the result into the local property shape.
func fetchProperties(page *rod.Page, objectID string) ([]property, error) {
	res, err := (proto.RuntimeGetProperties{
		ObjectID:      proto.RuntimeRemoteObjectID(objectID),
		OwnProperties: true,
	}).Call(page)
	if err != nil {
		return nil, &errs.RemoteFailure{Command: "Runtime.getProperties", Cause: err}
	}

	out := make([]property, 0, len(res.Result))
	for _, d := range res.Result {
		p := property{
			Name:         d.Name,
			Writable:     d.Writable,
			Configurable: d.Configurable,
			Enumerable:   d.Enumerable,
		}
		if d.Value != nil {
			pv := &propertyValue{Type: string(d.Value.Type)}
			if d.Value.ObjectID != "" {
				pv.ObjectID = string(d.Value.ObjectID)
			}
			if d.Value.Value != nil {
				pv.Value = d.Value.Value.Val()
			}
			p.Value = pv
		}
		out = append(out, p)
	}
	return out, nil
}
