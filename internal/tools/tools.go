package tools

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/halilc4/tabby-mcp/api/schemas"
	"github.com/halilc4/tabby-mcp/internal/browser"
)

// Connector is the slice of the browser connection the tool handlers
// drive. *browser.Conn satisfies it; tests substitute a scripted fake.
type Connector interface {
	ListTargets(ctx context.Context) ([]schemas.TargetDescriptor, error)
	Execute(ctx context.Context, spec schemas.TargetSpecifier, code string, raw bool) (interface{}, error)
	Query(ctx context.Context, spec schemas.TargetSpecifier, selector string, opts browser.QueryOptions) ([]schemas.ElementInfo, error)
	Click(ctx context.Context, spec schemas.TargetSpecifier, selector string, index int) (bool, error)
	Text(ctx context.Context, spec schemas.TargetSpecifier, selector string) (string, bool, error)
	WaitForSelector(ctx context.Context, spec schemas.TargetSpecifier, selector string, opts browser.WaitOptions) (bool, error)
	Screenshot(ctx context.Context, spec schemas.TargetSpecifier, format schemas.ImageFormat, quality int) ([]byte, error)
}

var _ Connector = (*browser.Conn)(nil)

// Handler binds every tool to one connection and one logger.
type Handler struct {
	conn   Connector
	logger *zap.Logger
}

// NewHandler creates the shared handler state behind the tool surface.
func NewHandler(conn Connector, logger *zap.Logger) *Handler {
	return &Handler{conn: conn, logger: logger.Named("tools")}
}

// call returns a logger carrying the tool name and a fresh correlation
// id, so the start and finish lines of one invocation can be matched in
// the stderr stream.
func (h *Handler) call(tool string) *zap.Logger {
	return h.logger.With(zap.String("tool", tool), zap.String("call_id", uuid.New().String()))
}

// textResult wraps a string as a successful text result.
func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: text}}}
}

// errorResult reports a failed call in-band as "Error: <cause>". Handlers
// return it instead of a Go error so one bad call never tears down the
// protocol loop or the session cache behind it.
func errorResult(err error) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: "Error: " + err.Error()}},
	}
}

// ListTargetsInput is deliberately empty; the tool takes no arguments.
type ListTargetsInput struct{}

// ExecuteJSInput names a page and the code to run in it.
type ExecuteJSInput struct {
	Code   string      `json:"code" jsonschema:"JavaScript code to execute"`
	Target interface{} `json:"target,omitempty" jsonschema:"Target tab: index (0=first, -1=last) or WebSocket URL from list_targets"`
	Raw    bool        `json:"raw,omitempty" jsonschema:"Evaluate the code verbatim instead of inside a fresh async scope, so declarations persist in the page"`
}

// QueryInput selects elements to describe.
type QueryInput struct {
	Selector        string      `json:"selector" jsonschema:"CSS selector to query"`
	Target          interface{} `json:"target,omitempty" jsonschema:"Target tab: index (0=first, -1=last) or WebSocket URL from list_targets"`
	IncludeText     *bool       `json:"include_text,omitempty" jsonschema:"Include each element's text content, capped at 200 characters (default true)"`
	IncludeChildren bool        `json:"include_children,omitempty" jsonschema:"Include a summary of up to 10 direct children per element"`
	SkipWait        bool        `json:"skip_wait,omitempty" jsonschema:"Query immediately instead of waiting for the page's framework to settle"`
}

// ClickInput names the match to click.
type ClickInput struct {
	Selector string      `json:"selector" jsonschema:"CSS selector for the element to click"`
	Target   interface{} `json:"target,omitempty" jsonschema:"Target tab: index (0=first, -1=last) or WebSocket URL from list_targets"`
	Index    int         `json:"index,omitempty" jsonschema:"Which match to click when several elements match (default 0, negative counts from the end)"`
}

// GetTextInput names the element to read.
type GetTextInput struct {
	Selector string      `json:"selector" jsonschema:"CSS selector for the element to read"`
	Target   interface{} `json:"target,omitempty" jsonschema:"Target tab: index (0=first, -1=last) or WebSocket URL from list_targets"`
}

// WaitForInput bounds a selector wait.
type WaitForInput struct {
	Selector       string      `json:"selector" jsonschema:"CSS selector to wait for"`
	Target         interface{} `json:"target,omitempty" jsonschema:"Target tab: index (0=first, -1=last) or WebSocket URL from list_targets"`
	TimeoutSeconds float64     `json:"timeout_seconds,omitempty" jsonschema:"How long to keep polling before giving up (default 5)"`
	RequireVisible bool        `json:"require_visible,omitempty" jsonschema:"Require the match to occupy layout space, not just exist in the DOM"`
}

// ScreenshotInput selects the page and encoding to capture. Quality is a
// pointer so an explicit 0 (maximum compression) survives the decode.
type ScreenshotInput struct {
	Target  interface{} `json:"target,omitempty" jsonschema:"Target tab: index (0=first, -1=last) or WebSocket URL from list_targets"`
	Format  string      `json:"format,omitempty" jsonschema:"Image format, png or jpeg (default png)"`
	Quality *int        `json:"quality,omitempty" jsonschema:"JPEG compression quality 0-100 (default 80), ignored for png"`
}

// ListTargets reports the debuggable pages as indented JSON, the shape
// agents copy target values back out of.
func (h *Handler) ListTargets(ctx context.Context, req *mcp.CallToolRequest, in ListTargetsInput) (*mcp.CallToolResult, any, error) {
	log := h.call("list_targets")
	log.Debug("Tool call received")

	targets, err := h.conn.ListTargets(ctx)
	if err != nil {
		log.Warn("Tool call failed", zap.Error(err))
		return errorResult(err), nil, nil
	}

	payload, err := json.MarshalIndent(targets, "", "  ")
	if err != nil {
		return errorResult(err), nil, nil
	}
	log.Debug("Tool call completed", zap.Int("targets", len(targets)))
	return textResult(string(payload)), nil, nil
}

// ExecuteJS evaluates code in the resolved page and returns the result
// JSON-encoded; a value-less evaluation reads "null".
func (h *Handler) ExecuteJS(ctx context.Context, req *mcp.CallToolRequest, in ExecuteJSInput) (*mcp.CallToolResult, any, error) {
	log := h.call("execute_js")
	log.Debug("Tool call received", zap.Any("target", in.Target), zap.Bool("raw", in.Raw), zap.Int("code_len", len(in.Code)))

	if in.Code == "" {
		return errorResult(errors.New("code is required")), nil, nil
	}
	spec, err := schemas.ParseTargetSpecifier(in.Target)
	if err != nil {
		return errorResult(err), nil, nil
	}

	value, err := h.conn.Execute(ctx, spec, in.Code, in.Raw)
	if err != nil {
		log.Warn("Tool call failed", zap.Error(err))
		return errorResult(err), nil, nil
	}

	payload, err := json.Marshal(value)
	if err != nil {
		return errorResult(err), nil, nil
	}
	log.Debug("Tool call completed")
	return textResult(string(payload)), nil, nil
}

// Query describes every element matching the selector. Text content
// rides along unless the caller opts out.
func (h *Handler) Query(ctx context.Context, req *mcp.CallToolRequest, in QueryInput) (*mcp.CallToolResult, any, error) {
	log := h.call("query")
	log.Debug("Tool call received", zap.Any("target", in.Target), zap.String("selector", in.Selector))

	if in.Selector == "" {
		return errorResult(errors.New("selector is required")), nil, nil
	}
	spec, err := schemas.ParseTargetSpecifier(in.Target)
	if err != nil {
		return errorResult(err), nil, nil
	}

	elements, err := h.conn.Query(ctx, spec, in.Selector, browser.QueryOptions{
		IncludeText:     in.IncludeText == nil || *in.IncludeText,
		IncludeChildren: in.IncludeChildren,
		SkipWait:        in.SkipWait,
	})
	if err != nil {
		log.Warn("Tool call failed", zap.Error(err))
		return errorResult(err), nil, nil
	}

	payload, err := json.MarshalIndent(elements, "", "  ")
	if err != nil {
		return errorResult(err), nil, nil
	}
	log.Debug("Tool call completed", zap.Int("matches", len(elements)))
	return textResult(string(payload)), nil, nil
}

// Click dispatches a synthetic click on the index-th match and reports
// whether anything was there to receive it.
func (h *Handler) Click(ctx context.Context, req *mcp.CallToolRequest, in ClickInput) (*mcp.CallToolResult, any, error) {
	log := h.call("click")
	log.Debug("Tool call received", zap.Any("target", in.Target), zap.String("selector", in.Selector), zap.Int("index", in.Index))

	if in.Selector == "" {
		return errorResult(errors.New("selector is required")), nil, nil
	}
	spec, err := schemas.ParseTargetSpecifier(in.Target)
	if err != nil {
		return errorResult(err), nil, nil
	}

	clicked, err := h.conn.Click(ctx, spec, in.Selector, in.Index)
	if err != nil {
		log.Warn("Tool call failed", zap.Error(err))
		return errorResult(err), nil, nil
	}

	payload, err := json.Marshal(map[string]bool{"clicked": clicked})
	if err != nil {
		return errorResult(err), nil, nil
	}
	log.Debug("Tool call completed", zap.Bool("clicked", clicked))
	return textResult(string(payload)), nil, nil
}

// GetText returns the first match's text content, or the literal "null"
// when nothing matches.
func (h *Handler) GetText(ctx context.Context, req *mcp.CallToolRequest, in GetTextInput) (*mcp.CallToolResult, any, error) {
	log := h.call("get_text")
	log.Debug("Tool call received", zap.Any("target", in.Target), zap.String("selector", in.Selector))

	if in.Selector == "" {
		return errorResult(errors.New("selector is required")), nil, nil
	}
	spec, err := schemas.ParseTargetSpecifier(in.Target)
	if err != nil {
		return errorResult(err), nil, nil
	}

	text, found, err := h.conn.Text(ctx, spec, in.Selector)
	if err != nil {
		log.Warn("Tool call failed", zap.Error(err))
		return errorResult(err), nil, nil
	}
	if !found {
		log.Debug("Tool call completed", zap.Bool("found", false))
		return textResult("null"), nil, nil
	}
	log.Debug("Tool call completed", zap.Bool("found", true))
	return textResult(text), nil, nil
}

// WaitFor polls for the selector and reports whether it appeared within
// the window. Timing out is an answer, not an error.
func (h *Handler) WaitFor(ctx context.Context, req *mcp.CallToolRequest, in WaitForInput) (*mcp.CallToolResult, any, error) {
	log := h.call("wait_for")
	log.Debug("Tool call received", zap.Any("target", in.Target), zap.String("selector", in.Selector), zap.Float64("timeout_seconds", in.TimeoutSeconds))

	if in.Selector == "" {
		return errorResult(errors.New("selector is required")), nil, nil
	}
	spec, err := schemas.ParseTargetSpecifier(in.Target)
	if err != nil {
		return errorResult(err), nil, nil
	}

	found, err := h.conn.WaitForSelector(ctx, spec, in.Selector, browser.WaitOptions{
		Timeout: time.Duration(in.TimeoutSeconds * float64(time.Second)),
		Visible: in.RequireVisible,
	})
	if err != nil {
		log.Warn("Tool call failed", zap.Error(err))
		return errorResult(err), nil, nil
	}

	payload, err := json.Marshal(map[string]bool{"found": found})
	if err != nil {
		return errorResult(err), nil, nil
	}
	log.Debug("Tool call completed", zap.Bool("found", found))
	return textResult(string(payload)), nil, nil
}

// Screenshot captures the resolved page and returns it as image content.
func (h *Handler) Screenshot(ctx context.Context, req *mcp.CallToolRequest, in ScreenshotInput) (*mcp.CallToolResult, any, error) {
	log := h.call("screenshot")
	log.Debug("Tool call received", zap.Any("target", in.Target), zap.String("format", in.Format))

	spec, err := schemas.ParseTargetSpecifier(in.Target)
	if err != nil {
		return errorResult(err), nil, nil
	}
	format, err := schemas.ParseImageFormat(in.Format)
	if err != nil {
		return errorResult(err), nil, nil
	}
	quality := schemas.DefaultJPEGQuality
	if in.Quality != nil {
		quality = *in.Quality
	}

	data, err := h.conn.Screenshot(ctx, spec, format, quality)
	if err != nil {
		log.Warn("Tool call failed", zap.Error(err))
		return errorResult(err), nil, nil
	}

	log.Debug("Tool call completed", zap.String("format", string(format)), zap.Int("bytes", len(data)))
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.ImageContent{Data: data, MIMEType: format.MIME()}},
	}, nil, nil
}
