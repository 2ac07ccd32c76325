package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/dop251/goja"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

// domHarness stands in for a live page session: it implements Evaluator
// by running expressions through an in-process goja engine with a small
// DOM built from fixture HTML. The wrap it applies is the same fresh
// async scope the real session applies, so the scripts under test run
// with top-level return and await exactly as they would in a page.
type domHarness struct {
	t  *testing.T
	vm *goja.Runtime

	window *goja.Object
	roots  []*fixtureElement
	all    []*fixtureElement
	objs   map[*fixtureElement]*goja.Object

	// Recorders. selectors holds every selector string the document
	// functions received, proving the Go->JS quoting round-trips.
	expressions     []string
	selectors       []string
	clicks          []string
	stabilityChecks int
	unstablePolls   int
}

var _ Evaluator = (*domHarness)(nil)

// fixtureElement is one parsed element of the fixture document.
type fixtureElement struct {
	tag      string
	id       string
	class    string
	attrs    [][2]string
	text     string
	children []*fixtureElement
	width    float64
	height   float64
}

func (el *fixtureElement) label() string {
	if el.id != "" {
		return "#" + el.id
	}
	return el.tag
}

func newDOMHarness(t *testing.T, fixture string) *domHarness {
	t.Helper()

	h := &domHarness{
		t:    t,
		vm:   goja.New(),
		objs: make(map[*fixtureElement]*goja.Object),
	}
	h.roots, h.all = parseFixture(t, fixture)

	document := h.vm.NewObject()
	require.NoError(t, document.Set("querySelectorAll", func(selector string) *goja.Object {
		h.selectors = append(h.selectors, selector)
		var matched []interface{}
		for _, el := range h.all {
			if matchSelector(el, selector) {
				matched = append(matched, h.object(el))
			}
		}
		return h.vm.NewArray(matched...)
	}))
	require.NoError(t, document.Set("querySelector", func(selector string) goja.Value {
		h.selectors = append(h.selectors, selector)
		for _, el := range h.all {
			if matchSelector(el, selector) {
				return h.object(el)
			}
		}
		return goja.Null()
	}))
	require.NoError(t, h.vm.Set("document", document))

	h.window = h.vm.NewObject()
	require.NoError(t, h.vm.Set("window", h.window))

	return h
}

// Evaluate mirrors the session contract: the expression runs inside a
// fresh async scope and the settled value comes back as decoded JSON.
func (h *domHarness) Evaluate(_ context.Context, expression string) (interface{}, error) {
	h.expressions = append(h.expressions, expression)

	value, err := h.vm.RunString(fmt.Sprintf("(async () => { %s })()", expression))
	if err != nil {
		var exc *goja.Exception
		if errors.As(err, &exc) {
			return nil, &ScriptError{Text: "Uncaught", Description: exc.Value().String()}
		}
		return nil, err
	}

	promise, ok := value.Export().(*goja.Promise)
	if !ok {
		return nil, errors.New("async scope did not produce a promise")
	}
	switch promise.State() {
	case goja.PromiseStateFulfilled:
		return normalizeJSValue(promise.Result().Export())
	case goja.PromiseStateRejected:
		return nil, &ScriptError{Text: "Uncaught", Description: promise.Result().String()}
	default:
		return nil, errors.New("promise left pending; fixture scripts must settle synchronously")
	}
}

func (h *domHarness) mustEvaluate(t *testing.T, expression string) interface{} {
	t.Helper()
	value, err := h.Evaluate(context.Background(), expression)
	require.NoError(t, err)
	return value
}

func (h *domHarness) lastSelector() string {
	require.NotEmpty(h.t, h.selectors)
	return h.selectors[len(h.selectors)-1]
}

// installTestabilities publishes the framework stability hook. The page
// reports unstable for the first unstablePolls checks and stable after.
func (h *domHarness) installTestabilities(unstablePolls int) {
	h.unstablePolls = unstablePolls

	testability := h.vm.NewObject()
	require.NoError(h.t, testability.Set("isStable", func() bool {
		h.stabilityChecks++
		if h.unstablePolls > 0 {
			h.unstablePolls--
			return false
		}
		return true
	}))
	require.NoError(h.t, h.window.Set("getAllAngularTestabilities", func() *goja.Object {
		return h.vm.NewArray(testability)
	}))
}

// installEmptyTestabilities publishes the hook with no testabilities
// registered, the shape a framework-free bundle can leave behind.
func (h *domHarness) installEmptyTestabilities() {
	require.NoError(h.t, h.window.Set("getAllAngularTestabilities", func() *goja.Object {
		return h.vm.NewArray()
	}))
}

// object returns the memoized JS view of an element. Tag names are
// published uppercase the way a real DOM reports them, so the scripts
// under test have to do their own lowercasing.
func (h *domHarness) object(el *fixtureElement) *goja.Object {
	if obj, ok := h.objs[el]; ok {
		return obj
	}

	obj := h.vm.NewObject()
	h.objs[el] = obj
	require.NoError(h.t, obj.Set("tagName", strings.ToUpper(el.tag)))
	require.NoError(h.t, obj.Set("id", el.id))
	require.NoError(h.t, obj.Set("className", el.class))
	require.NoError(h.t, obj.Set("textContent", el.text))

	attrs := make([]interface{}, len(el.attrs))
	for i, kv := range el.attrs {
		attr := h.vm.NewObject()
		require.NoError(h.t, attr.Set("name", kv[0]))
		require.NoError(h.t, attr.Set("value", kv[1]))
		attrs[i] = attr
	}
	require.NoError(h.t, obj.Set("attributes", h.vm.NewArray(attrs...)))

	children := make([]interface{}, len(el.children))
	for i, child := range el.children {
		children[i] = h.object(child)
	}
	require.NoError(h.t, obj.Set("children", h.vm.NewArray(children...)))

	label := el.label()
	require.NoError(h.t, obj.Set("click", func() {
		h.clicks = append(h.clicks, label)
	}))
	require.NoError(h.t, obj.Set("getBoundingClientRect", func() map[string]interface{} {
		return map[string]interface{}{"width": el.width, "height": el.height}
	}))

	return obj
}

// parseFixture builds the element list from fixture HTML. Elements are
// collected in document order, the order querySelectorAll must return.
// Fixtures occupy no layout space unless they carry explicit data-width
// and data-height attributes.
func parseFixture(t *testing.T, src string) (roots, all []*fixtureElement) {
	t.Helper()

	doc, err := html.Parse(strings.NewReader(src))
	require.NoError(t, err)
	body := findBody(doc)
	require.NotNil(t, body, "fixture has no body")

	var build func(n *html.Node) *fixtureElement
	build = func(n *html.Node) *fixtureElement {
		el := &fixtureElement{tag: n.Data, text: textOf(n)}
		for _, a := range n.Attr {
			el.attrs = append(el.attrs, [2]string{a.Key, a.Val})
			switch a.Key {
			case "id":
				el.id = a.Val
			case "class":
				el.class = a.Val
			case "data-width":
				el.width, _ = strconv.ParseFloat(a.Val, 64)
			case "data-height":
				el.height, _ = strconv.ParseFloat(a.Val, 64)
			}
		}
		all = append(all, el)
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode {
				el.children = append(el.children, build(c))
			}
		}
		return el
	}

	for c := body.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			roots = append(roots, build(c))
		}
	}
	return roots, all
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "body" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if body := findBody(c); body != nil {
			return body
		}
	}
	return nil
}

func textOf(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

// matchSelector understands just enough CSS for the fixtures: a tag
// name, #id, .class, and tag#id / tag.class pairs. Anything fancier
// matches nothing, which is still useful for tests that only care about
// what selector string arrived.
func matchSelector(el *fixtureElement, selector string) bool {
	selector = strings.TrimSpace(selector)
	if selector == "*" {
		return true
	}

	tag := selector
	rest := ""
	if i := strings.IndexAny(selector, "#."); i >= 0 {
		tag, rest = selector[:i], selector[i:]
	}
	if tag != "" && tag != el.tag {
		return false
	}

	switch {
	case rest == "":
		return tag != ""
	case strings.HasPrefix(rest, "#"):
		return el.id == rest[1:]
	case strings.HasPrefix(rest, "."):
		for _, class := range strings.Fields(el.class) {
			if class == rest[1:] {
				return true
			}
		}
	}
	return false
}

// normalizeJSValue pushes an exported goja value through the JSON codec
// so tests see the same generic shapes the real session decodes from the
// protocol.
func normalizeJSValue(v interface{}) (interface{}, error) {
	if v == nil {
		return nil, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
