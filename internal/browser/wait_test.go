package browser

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// fakeEvaluator scripts Evaluate responses per call, for wait and retry
// tests that need exact control over poll outcomes.
type fakeEvaluator struct {
	calls int
	fn    func(call int, expression string) (interface{}, error)
}

func (f *fakeEvaluator) Evaluate(_ context.Context, expression string) (interface{}, error) {
	f.calls++
	return f.fn(f.calls, expression)
}

func TestWaitForSelectorFound(t *testing.T) {
	h := newDOMHarness(t, `<html><body><button id="save">Save</button></body></html>`)

	found := WaitForSelector(context.Background(), h, "#save", WaitOptions{Timeout: 500 * time.Millisecond})
	assert.True(t, found)
	assert.Len(t, h.expressions, 1, "a present selector should satisfy the first poll")
}

func TestWaitForSelectorVisibility(t *testing.T) {
	// #ghost matches but occupies no layout space; #solid has a box.
	h := newDOMHarness(t, `
		<html><body>
			<div id="ghost"></div>
			<div id="solid" data-width="120" data-height="40"></div>
		</body></html>`)

	t.Run("plain match ignores layout", func(t *testing.T) {
		assert.True(t, WaitForSelector(context.Background(), h, "#ghost", WaitOptions{Timeout: 500 * time.Millisecond}))
	})
	t.Run("visible requires a box", func(t *testing.T) {
		assert.False(t, WaitForSelector(context.Background(), h, "#ghost", WaitOptions{Timeout: 250 * time.Millisecond, Visible: true}))
	})
	t.Run("visible match", func(t *testing.T) {
		assert.True(t, WaitForSelector(context.Background(), h, "#solid", WaitOptions{Timeout: 500 * time.Millisecond, Visible: true}))
	})
}

func TestWaitForSelectorTimeout(t *testing.T) {
	ev := &fakeEvaluator{fn: func(int, string) (interface{}, error) { return false, nil }}

	start := time.Now()
	found := WaitForSelector(context.Background(), ev, "#missing", WaitOptions{Timeout: 250 * time.Millisecond})

	assert.False(t, found, "an elapsed window without a match reports false")
	assert.GreaterOrEqual(t, time.Since(start), 250*time.Millisecond)
	assert.GreaterOrEqual(t, ev.calls, 2, "the window should be polled, not checked once")
}

func TestWaitForSelectorAppears(t *testing.T) {
	ev := &fakeEvaluator{fn: func(call int, _ string) (interface{}, error) {
		return call >= 3, nil
	}}

	found := WaitForSelector(context.Background(), ev, "#late", WaitOptions{Timeout: 2 * time.Second})
	assert.True(t, found)
	assert.Equal(t, 3, ev.calls)
}

func TestWaitForSelectorSwallowsEvalErrors(t *testing.T) {
	ev := &fakeEvaluator{fn: func(call int, _ string) (interface{}, error) {
		if call == 1 {
			return nil, errors.New("page is navigating")
		}
		return true, nil
	}}

	found := WaitForSelector(context.Background(), ev, "#late", WaitOptions{Timeout: 2 * time.Second})
	assert.True(t, found, "a transient evaluate fault is just one missed poll")
	assert.Equal(t, 2, ev.calls)
}

func TestWaitForSelectorContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ev := &fakeEvaluator{fn: func(int, string) (interface{}, error) {
		cancel()
		return false, nil
	}}

	start := time.Now()
	found := WaitForSelector(ctx, ev, "#missing", WaitOptions{Timeout: 10 * time.Second})

	assert.False(t, found)
	assert.Equal(t, 1, ev.calls)
	assert.Less(t, time.Since(start), time.Second, "cancellation must not wait out the window")
}

func TestWaitForAngularStableNoHooks(t *testing.T) {
	h := newDOMHarness(t, "<html><body></body></html>")

	stable := WaitForAngularStable(context.Background(), h, 0)
	assert.True(t, stable, "pages without the testability hooks count as stable")
	assert.Len(t, h.expressions, 1)
	assert.Zero(t, h.stabilityChecks)
}

func TestWaitForAngularStableEmptyHookList(t *testing.T) {
	h := newDOMHarness(t, "<html><body></body></html>")
	h.installEmptyTestabilities()

	assert.True(t, WaitForAngularStable(context.Background(), h, 0))
	assert.Len(t, h.expressions, 1)
}

func TestWaitForAngularStableSettles(t *testing.T) {
	h := newDOMHarness(t, "<html><body></body></html>")
	h.installTestabilities(2)

	stable := WaitForAngularStable(context.Background(), h, 0)
	assert.True(t, stable)
	assert.Equal(t, 3, h.stabilityChecks, "two unstable polls then the stable one")
}

// TestWaitForAngularStableTimeoutReportsStable pins the deliberate
// asymmetry with the selector wait: a framework that never settles
// reports stable once the window elapses so callers are not wedged.
func TestWaitForAngularStableTimeoutReportsStable(t *testing.T) {
	ev := &fakeEvaluator{fn: func(int, string) (interface{}, error) { return false, nil }}

	start := time.Now()
	stable := WaitForAngularStable(context.Background(), ev, 200*time.Millisecond)

	assert.True(t, stable)
	assert.GreaterOrEqual(t, time.Since(start), 200*time.Millisecond)
	assert.GreaterOrEqual(t, ev.calls, 2)
}

func TestWaitForAngularStableContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ev := &fakeEvaluator{fn: func(int, string) (interface{}, error) {
		cancel()
		return false, nil
	}}

	stable := WaitForAngularStable(ctx, ev, 10*time.Second)
	assert.True(t, stable, "cancellation resolves the wait as stable, not as a failure")
	assert.Equal(t, 1, ev.calls)
}

func TestWaitForAngularStableSwallowsEvalErrors(t *testing.T) {
	ev := &fakeEvaluator{fn: func(call int, _ string) (interface{}, error) {
		if call == 1 {
			return nil, errors.New("page is navigating")
		}
		return true, nil
	}}

	assert.True(t, WaitForAngularStable(context.Background(), ev, 2*time.Second))
	assert.Equal(t, 2, ev.calls)
}
