package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/halilc4/tabby-mcp/api/schemas"
)

// Evaluator is the one-method view of a session the DOM and wait helpers
// need. Tests drive these helpers with an in-process JavaScript engine
// behind the same interface.
type Evaluator interface {
	Evaluate(ctx context.Context, expression string) (interface{}, error)
}

// Defaults for QueryWithRetry.
const (
	DefaultQueryRetries    = 3
	DefaultQueryRetryDelay = 200 * time.Millisecond
)

// QueryOptions tunes element collection.
type QueryOptions struct {
	// IncludeText adds each element's text content, capped at 200 runes
	// by the page-side script.
	IncludeText bool
	// IncludeChildren adds a shallow summary of up to 10 direct children.
	IncludeChildren bool
	// SkipWait makes Conn.Query skip the framework stability wait.
	SkipWait bool
	// MaxRetries and RetryDelay shape QueryWithRetry; zero values take
	// the package defaults.
	MaxRetries int
	RetryDelay time.Duration
}

// Query runs the collection script once and decodes the element records.
func Query(ctx context.Context, ev Evaluator, selector string, opts QueryOptions) ([]schemas.ElementInfo, error) {
	value, err := ev.Evaluate(ctx, queryScript(selector, opts))
	if err != nil {
		return nil, err
	}
	if value == nil {
		return []schemas.ElementInfo{}, nil
	}

	var elements []schemas.ElementInfo
	if err := remarshal(value, &elements); err != nil {
		return nil, fmt.Errorf("decode element records: %w", err)
	}
	if elements == nil {
		elements = []schemas.ElementInfo{}
	}
	return elements, nil
}

// QueryWithRetry retries an empty Query result a fixed number of times
// with a pause between attempts, for elements that render a beat after
// the page settles. Script failures abort immediately; only emptiness is
// retried. An empty result after the final attempt is returned as such.
func QueryWithRetry(ctx context.Context, ev Evaluator, selector string, opts QueryOptions) ([]schemas.ElementInfo, error) {
	retries := opts.MaxRetries
	if retries <= 0 {
		retries = DefaultQueryRetries
	}
	delay := opts.RetryDelay
	if delay <= 0 {
		delay = DefaultQueryRetryDelay
	}

	var elements []schemas.ElementInfo
	for attempt := 0; attempt < retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		var err error
		elements, err = Query(ctx, ev, selector, opts)
		if err != nil {
			return nil, err
		}
		if len(elements) > 0 {
			return elements, nil
		}
	}
	return elements, nil
}

// Click clicks the index-th element matching selector. The return value
// reports whether such an element existed; a missing element is not an
// error.
func Click(ctx context.Context, ev Evaluator, selector string, index int) (bool, error) {
	value, err := ev.Evaluate(ctx, clickScript(selector, index))
	if err != nil {
		return false, err
	}
	clicked, _ := value.(bool)
	return clicked, nil
}

// Text returns the text content of the first element matching selector.
// The boolean distinguishes a missing element from one that is present
// with empty text.
func Text(ctx context.Context, ev Evaluator, selector string) (string, bool, error) {
	value, err := ev.Evaluate(ctx, textScript(selector))
	if err != nil {
		return "", false, err
	}
	text, ok := value.(string)
	if !ok {
		return "", false, nil
	}
	return text, true, nil
}

// remarshal moves a decoded JSON value into a typed destination.
func remarshal(value interface{}, dst interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dst)
}
