package browser

import (
	"context"
	"time"
)

// Polling cadences and default windows for the wait helpers. Selector
// polls are spaced wider than stability polls because selector checks
// usually run against pages that are still rendering.
const (
	DefaultSelectorTimeout  = 5 * time.Second
	DefaultStabilityTimeout = 2 * time.Second

	selectorPollInterval  = 100 * time.Millisecond
	stabilityPollInterval = 50 * time.Millisecond
)

// WaitOptions tunes WaitForSelector.
type WaitOptions struct {
	// Timeout bounds the whole wait; zero means DefaultSelectorTimeout.
	Timeout time.Duration
	// Visible additionally requires the match to occupy layout space.
	Visible bool
}

// WaitForSelector polls until selector matches in the page, returning
// false when the window elapses without a match. Evaluation faults during
// polling are swallowed; a transient error is just one missed poll.
func WaitForSelector(ctx context.Context, ev Evaluator, selector string, opts WaitOptions) bool {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultSelectorTimeout
	}
	script := selectorProbeScript(selector, opts.Visible)

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if value, err := ev.Evaluate(ctx, script); err == nil {
			if found, ok := value.(bool); ok && found {
				return true
			}
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(selectorPollInterval):
		}
	}
	return false
}

// WaitForAngularStable polls the page's framework testability hooks until
// they report stable. Unlike WaitForSelector this returns true when the
// window elapses: a framework that never settles must not wedge the
// caller, and pages without the hooks report stable on the first poll.
func WaitForAngularStable(ctx context.Context, ev Evaluator, timeout time.Duration) bool {
	if timeout <= 0 {
		timeout = DefaultStabilityTimeout
	}

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if value, err := ev.Evaluate(ctx, stabilityProbeScript); err == nil {
			if stable, ok := value.(bool); ok && stable {
				return true
			}
		}
		select {
		case <-ctx.Done():
			return true
		case <-time.After(stabilityPollInterval):
		}
	}
	return true
}
