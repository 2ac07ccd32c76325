package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/mafredri/cdp"
	"github.com/mafredri/cdp/devtool"
	"github.com/mafredri/cdp/protocol/page"
	"github.com/mafredri/cdp/protocol/runtime"
	"github.com/mafredri/cdp/rpcc"
	"go.uber.org/zap"

	"github.com/halilc4/tabby-mcp/api/schemas"
)

// runtimeClient is the slice of the protocol client the evaluate path
// uses. Tests substitute an in-process engine behind it.
type runtimeClient interface {
	Evaluate(ctx context.Context, args *runtime.EvaluateArgs) (*runtime.EvaluateReply, error)
}

// pageClient is the slice of the protocol client used for captures.
type pageClient interface {
	CaptureScreenshot(ctx context.Context, args *page.CaptureScreenshotArgs) (*page.CaptureScreenshotReply, error)
}

// Session is a live websocket attachment to one page. A session stays
// cached until CloseAll; stopping it detaches the debugger only and never
// closes the page itself.
type Session struct {
	id          string
	wsURL       string
	conn        io.Closer // the rpcc connection; closing it detaches
	rt          runtimeClient
	pg          pageClient
	evalTimeout time.Duration
	logger      *zap.Logger
}

var _ Evaluator = (*Session)(nil)

// dialSession attaches to the target's websocket debugger endpoint.
func dialSession(ctx context.Context, target *devtool.Target, evalTimeout time.Duration, logger *zap.Logger) (*Session, error) {
	conn, err := rpcc.DialContext(ctx, target.WebSocketDebuggerURL)
	if err != nil {
		return nil, &TransportError{Endpoint: target.WebSocketDebuggerURL, Err: err}
	}

	client := cdp.NewClient(conn)
	return &Session{
		id:          target.ID,
		wsURL:       target.WebSocketDebuggerURL,
		conn:        conn,
		rt:          client.Runtime,
		pg:          client.Page,
		evalTimeout: evalTimeout,
		logger:      logger.Named("session").With(zap.String("target_id", target.ID)),
	}, nil
}

// ID returns the page's target ID.
func (s *Session) ID() string { return s.id }

// Evaluate runs expression inside a fresh async scope and waits for the
// result to settle. The wrapper keeps declarations out of the page's
// global namespace and makes top-level `return` and `await` legal in the
// submitted code.
func (s *Session) Evaluate(ctx context.Context, expression string) (interface{}, error) {
	return s.eval(ctx, fmt.Sprintf("(async () => { %s })()", expression), true)
}

// EvaluateRaw submits expression verbatim in the page's top-level scope,
// where declarations persist across calls. The remote side is not asked
// to await a deferred result, so an expression that evaluates to a
// promise comes back unsettled.
func (s *Session) EvaluateRaw(ctx context.Context, expression string) (interface{}, error) {
	return s.eval(ctx, expression, false)
}

func (s *Session) eval(ctx context.Context, expression string, await bool) (interface{}, error) {
	if s.evalTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.evalTimeout)
		defer cancel()
	}

	s.logger.Debug("Evaluating script", zap.Int("script_bytes", len(expression)))
	args := runtime.NewEvaluateArgs(expression).SetReturnByValue(true).SetAwaitPromise(await)
	reply, err := s.rt.Evaluate(ctx, args)
	if err != nil {
		return nil, fmt.Errorf("runtime evaluate: %w", err)
	}
	if reply.ExceptionDetails != nil {
		return nil, newScriptError(reply.ExceptionDetails)
	}

	// The protocol omits the value field entirely for undefined results;
	// both that and an explicit null decode to nil.
	if len(reply.Result.Value) == 0 {
		return nil, nil
	}
	var value interface{}
	if err := json.Unmarshal(reply.Result.Value, &value); err != nil {
		return nil, fmt.Errorf("decode result value: %w", err)
	}
	return value, nil
}

// CaptureScreenshot captures the page as encoded image bytes. Quality is
// only forwarded for lossy formats; the protocol rejects it on PNG.
func (s *Session) CaptureScreenshot(ctx context.Context, format schemas.ImageFormat, quality int) ([]byte, error) {
	args := page.NewCaptureScreenshotArgs().SetFormat(string(format))
	if format == schemas.FormatJPEG {
		args = args.SetQuality(quality)
	}

	s.logger.Debug("Capturing screenshot", zap.String("format", string(format)))
	reply, err := s.pg.CaptureScreenshot(ctx, args)
	if err != nil {
		return nil, fmt.Errorf("capture screenshot: %w", err)
	}
	return reply.Data, nil
}

// Stop detaches from the page by closing the websocket. The page itself
// stays open.
func (s *Session) Stop() error {
	s.logger.Debug("Detaching session")
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}
