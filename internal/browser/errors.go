package browser

import (
	"errors"
	"fmt"

	"github.com/mafredri/cdp/protocol/runtime"

	"github.com/halilc4/tabby-mcp/api/schemas"
)

// ErrNoTargets is returned when the debugging endpoint lists no pages at
// all, which usually means Tabby is running without remote debugging or
// every window has been closed.
var ErrNoTargets = errors.New("no tabby pages found")

// TransportError wraps a failure to reach the remote debugging endpoint
// itself, as opposed to a failure inside a page.
type TransportError struct {
	Endpoint string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("devtools endpoint %s: %v", e.Endpoint, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// TargetNotFoundError reports a specifier that matched none of the pages
// currently listed by the endpoint.
type TargetNotFoundError struct {
	Specifier schemas.TargetSpecifier
}

func (e *TargetNotFoundError) Error() string {
	return fmt.Sprintf("target not found: %s", e.Specifier)
}

// ScriptError carries a JavaScript exception out of the page. Text is the
// protocol's one-line summary; Description, when present, holds the
// exception message and stack.
type ScriptError struct {
	Text        string
	Description string
}

func (e *ScriptError) Error() string {
	if e.Description != "" {
		return e.Text + ": " + e.Description
	}
	return e.Text
}

// newScriptError shapes protocol exception details into a ScriptError.
func newScriptError(details *runtime.ExceptionDetails) *ScriptError {
	text := details.Text
	if text == "" {
		text = "unknown script error"
	}
	e := &ScriptError{Text: text}
	if details.Exception != nil && details.Exception.Description != nil {
		e.Description = *details.Exception.Description
	}
	return e
}
