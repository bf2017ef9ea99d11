package debugger

import (
	"fmt"

	"github.com/go-rod/rod/lib/proto"

	"github.com/brennhill/revagent/internal/cdp"
)

// globalRuntimeEvaluate issues a value-returning Runtime.evaluate on
// session's page, for watch expressions evaluated outside a paused call
// frame.
func globalRuntimeEvaluate(session *cdp.Session, expression string) (any, error) {
	res, err := (proto.RuntimeEvaluate{Expression: expression, ReturnByValue: true}).Call(session.Page())
	if err != nil {
		return nil, err
	}
	if res.ExceptionDetails != nil {
		return nil, fmt.Errorf("evaluate threw: %s", res.ExceptionDetails.Text)
	}
	if res.Result != nil && res.Result.Value != nil {
		return res.Result.Value.Val(), nil
	}
	return nil, nil
}
