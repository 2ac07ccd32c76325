package browser

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/mafredri/cdp/devtool"
	"go.uber.org/zap"

	"github.com/halilc4/tabby-mcp/api/schemas"
	"github.com/halilc4/tabby-mcp/internal/config"
)

// Conn owns the attachment to one Tabby instance: the HTTP registry
// handle, the cache of per-page sessions, and the single lock that
// serializes public operations. There is deliberately no internal
// parallelism; one slow page script blocks the next caller rather than
// interleaving protocol traffic on shared sessions.
type Conn struct {
	cfg      config.DevToolsConfig
	endpoint string
	logger   *zap.Logger

	mu       sync.Mutex
	devt     *devtool.DevTools
	sessions map[string]*Session

	// newSession is swapped by tests to avoid real websocket dials.
	newSession func(ctx context.Context, target *devtool.Target) (*Session, error)
}

// NewConn builds a connection handle for the configured endpoint. No
// network traffic happens until the first operation.
func NewConn(cfg config.DevToolsConfig, logger *zap.Logger) *Conn {
	c := &Conn{
		cfg:      cfg,
		endpoint: cfg.Endpoint(),
		logger:   logger.Named("browser"),
		sessions: make(map[string]*Session),
	}
	c.newSession = func(ctx context.Context, target *devtool.Target) (*Session, error) {
		return dialSession(ctx, target, cfg.EvalTimeout, c.logger)
	}
	return c
}

// devtLocked lazily builds the registry handle. Callers hold c.mu.
func (c *Conn) devtLocked() *devtool.DevTools {
	if c.devt == nil {
		httpClient := &http.Client{Timeout: c.cfg.HTTPTimeout}
		c.devt = devtool.New(c.endpoint, devtool.WithClient(httpClient))
	}
	return c.devt
}

// Version reports the browser build behind the endpoint. Serve startup
// uses it as a reachability probe before accepting tool calls.
func (c *Conn) Version(ctx context.Context) (*devtool.Version, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, err := c.devtLocked().Version(ctx)
	if err != nil {
		return nil, &TransportError{Endpoint: c.endpoint, Err: err}
	}
	return v, nil
}

// ListTargets returns the pages currently listed by the endpoint, in
// listing order. The Index fields are the ordinals target specifiers
// accept.
func (c *Conn) ListTargets(ctx context.Context) ([]schemas.TargetDescriptor, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	pages, err := listPages(ctx, c.devtLocked(), c.endpoint)
	if err != nil {
		return nil, err
	}

	descriptors := make([]schemas.TargetDescriptor, len(pages))
	for i, t := range pages {
		descriptors[i] = schemas.TargetDescriptor{
			Index:        i,
			Title:        t.Title,
			URL:          t.URL,
			ID:           t.ID,
			WebSocketURL: t.WebSocketDebuggerURL,
		}
	}
	return descriptors, nil
}

// Execute runs JavaScript in the resolved page. Scoped execution wraps
// the code in a fresh async scope; raw submits it verbatim so
// declarations persist in the page.
func (c *Conn) Execute(ctx context.Context, spec schemas.TargetSpecifier, code string, raw bool) (interface{}, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, err := c.resolveLocked(ctx, spec)
	if err != nil {
		return nil, err
	}
	if raw {
		return s.EvaluateRaw(ctx, code)
	}
	return s.Evaluate(ctx, code)
}

// Query matches selector in the resolved page and returns one record per
// element. Unless opts.SkipWait is set the page's framework is first
// given a short window to settle, and an empty result is retried a few
// times before being accepted.
func (c *Conn) Query(ctx context.Context, spec schemas.TargetSpecifier, selector string, opts QueryOptions) ([]schemas.ElementInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, err := c.resolveLocked(ctx, spec)
	if err != nil {
		return nil, err
	}
	if !opts.SkipWait {
		WaitForAngularStable(ctx, s, 0)
	}
	return QueryWithRetry(ctx, s, selector, opts)
}

// Click clicks the index-th element matching selector in the resolved
// page. The boolean reports whether such an element existed.
func (c *Conn) Click(ctx context.Context, spec schemas.TargetSpecifier, selector string, index int) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, err := c.resolveLocked(ctx, spec)
	if err != nil {
		return false, err
	}
	return Click(ctx, s, selector, index)
}

// Text returns the text content of the first element matching selector
// in the resolved page. The boolean distinguishes a missing element from
// one present with empty text.
func (c *Conn) Text(ctx context.Context, spec schemas.TargetSpecifier, selector string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, err := c.resolveLocked(ctx, spec)
	if err != nil {
		return "", false, err
	}
	return Text(ctx, s, selector)
}

// WaitForSelector polls the resolved page until selector matches. A
// false return means the window elapsed without a match; resolution
// failures are reported as errors.
func (c *Conn) WaitForSelector(ctx context.Context, spec schemas.TargetSpecifier, selector string, opts WaitOptions) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, err := c.resolveLocked(ctx, spec)
	if err != nil {
		return false, err
	}
	return WaitForSelector(ctx, s, selector, opts), nil
}

// Screenshot captures the resolved page as encoded image bytes. Quality
// only applies to lossy formats.
func (c *Conn) Screenshot(ctx context.Context, spec schemas.TargetSpecifier, format schemas.ImageFormat, quality int) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, err := c.resolveLocked(ctx, spec)
	if err != nil {
		return nil, err
	}
	return s.CaptureScreenshot(ctx, format, quality)
}

// WaitForAngular exposes the framework stability wait against a resolved
// page. Like the package-level helper it reports true on timeout.
func (c *Conn) WaitForAngular(ctx context.Context, spec schemas.TargetSpecifier, timeout time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, err := c.resolveLocked(ctx, spec)
	if err != nil {
		return false, err
	}
	return WaitForAngularStable(ctx, s, timeout), nil
}

// CloseAll detaches every cached session and drops the registry handle.
// Pages are left untouched. The loop visits every session even after a
// failure and returns the collected errors.
func (c *Conn) CloseAll() error {
	c.mu.Lock()
	sessions := c.sessions
	c.sessions = make(map[string]*Session)
	c.devt = nil
	c.mu.Unlock()

	var errs []error
	for id, s := range sessions {
		if err := s.Stop(); err != nil {
			c.logger.Warn("Failed to detach session", zap.String("target_id", id), zap.Error(err))
			errs = append(errs, fmt.Errorf("detach %s: %w", id, err))
			continue
		}
		c.logger.Debug("Session detached", zap.String("target_id", id))
	}
	return errors.Join(errs...)
}

// resolveLocked maps a specifier onto a live session, dialing a new one
// on a cache miss. The target list is fetched fresh on every call so
// ordinals always index what the endpoint reports right now.
func (c *Conn) resolveLocked(ctx context.Context, spec schemas.TargetSpecifier) (*Session, error) {
	pages, err := listPages(ctx, c.devtLocked(), c.endpoint)
	if err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, ErrNoTargets
	}

	var target *devtool.Target
	switch spec.Kind {
	case schemas.SpecifierIdentity:
		for _, t := range pages {
			if t.ID == spec.Identity || t.WebSocketDebuggerURL == spec.Identity {
				target = t
				break
			}
		}
	default:
		idx := spec.Ordinal
		if idx < 0 {
			idx += len(pages)
		}
		if idx >= 0 && idx < len(pages) {
			target = pages[idx]
		}
	}
	if target == nil {
		return nil, &TargetNotFoundError{Specifier: spec}
	}

	if s, ok := c.sessions[target.ID]; ok {
		return s, nil
	}
	s, err := c.newSession(ctx, target)
	if err != nil {
		return nil, err
	}
	c.sessions[target.ID] = s
	c.logger.Debug("Attached to target", zap.String("target_id", target.ID), zap.String("url", target.URL))
	return s, nil
}
