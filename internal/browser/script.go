package browser

import (
	"bytes"
	"encoding/json"
	"fmt"
	"text/template"
)

// quoteJS returns s as a JavaScript string literal. Routing through the
// JSON encoder escapes quotes, backslashes, control characters and the
// U+2028/U+2029 separators that are legal in JSON but not in JS source.
func quoteJS(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

// queryScriptTmpl builds the element collection script. The selector is
// injected as an already-quoted literal; the optional sections are only
// emitted when asked for, keeping the common payload small.
var queryScriptTmpl = template.Must(template.New("query").Parse(`
const matches = document.querySelectorAll({{.Selector}});
return Array.from(matches).map((el, i) => {
    const attrs = {};
    for (const attr of el.attributes) {
        attrs[attr.name] = attr.value;
    }
    const record = {
        index: i,
        tagName: el.tagName.toLowerCase(),
        id: el.id || null,
        className: el.className || null,
        attributes: attrs,
        childCount: el.children.length
    };
{{- if .IncludeText}}
    record.textContent = el.textContent ? el.textContent.substring(0, 200) : null;
{{- end}}
{{- if .IncludeChildren}}
    record.children = Array.from(el.children).slice(0, 10).map((c) => ({
        tagName: c.tagName.toLowerCase(),
        id: c.id || null,
        className: c.className || null
    }));
{{- end}}
    return record;
});`))

type queryScriptParams struct {
	Selector        string
	IncludeText     bool
	IncludeChildren bool
}

// queryScript renders the collection script for one selector.
func queryScript(selector string, opts QueryOptions) string {
	var buf bytes.Buffer
	// The template is static and the params are plain values, so this
	// cannot fail at runtime.
	_ = queryScriptTmpl.Execute(&buf, queryScriptParams{
		Selector:        quoteJS(selector),
		IncludeText:     opts.IncludeText,
		IncludeChildren: opts.IncludeChildren,
	})
	return buf.String()
}

// clickScript clicks the index-th match. Indexing past the end (or with a
// negative index) reads undefined and falls through to false, it never
// throws.
func clickScript(selector string, index int) string {
	return fmt.Sprintf(`
const matches = document.querySelectorAll(%s);
if (matches[%d]) {
    matches[%d].click();
    return true;
}
return false;`, quoteJS(selector), index, index)
}

// textScript reads the text content of the first match, or null when the
// selector matches nothing.
func textScript(selector string) string {
	return fmt.Sprintf(`
const el = document.querySelector(%s);
return el ? el.textContent : null;`, quoteJS(selector))
}

// selectorProbeScript reports whether the selector currently matches. In
// visible mode the match must also occupy layout space.
func selectorProbeScript(selector string, visible bool) string {
	if !visible {
		return fmt.Sprintf(`return document.querySelector(%s) !== null;`, quoteJS(selector))
	}
	return fmt.Sprintf(`
const el = document.querySelector(%s);
if (!el) {
    return false;
}
const rect = el.getBoundingClientRect();
return rect.width > 0 && rect.height > 0;`, quoteJS(selector))
}

// stabilityProbeScript asks Angular's testability hooks whether the page
// has settled. Pages without the hooks (or with none registered) count as
// stable so non-Angular views never stall callers.
const stabilityProbeScript = `
if (!window.getAllAngularTestabilities) {
    return true;
}
const testabilities = window.getAllAngularTestabilities();
if (!testabilities || testabilities.length === 0) {
    return true;
}
return testabilities.every((t) => t.isStable());`
