package schemas

import (
	"fmt"
	"strconv"
)

// -- Target Models --
// These types describe the debuggable pages exposed by Tabby's remote
// debugging endpoint and the ways callers may name one of them.

// TargetDescriptor is the public listing entry for one attachable page.
type TargetDescriptor struct {
	Index        int    `json:"index"`
	Title        string `json:"title"`
	URL          string `json:"url"`
	ID           string `json:"id"`
	WebSocketURL string `json:"ws_url"`
}

// SpecifierKind discriminates the two ways callers may name a target.
type SpecifierKind uint8

const (
	// SpecifierOrdinal selects a page by its position in the current
	// listing; negative ordinals count from the end.
	SpecifierOrdinal SpecifierKind = iota
	// SpecifierIdentity selects a page by target ID or websocket URL.
	SpecifierIdentity
)

// TargetSpecifier names one page. The zero value is ordinal 0, the first
// listed page, which is also the default when a caller names no target.
type TargetSpecifier struct {
	Kind     SpecifierKind
	Ordinal  int
	Identity string
}

// ByOrdinal returns a specifier for the page at position n. Negative n
// counts from the end of the listing.
func ByOrdinal(n int) TargetSpecifier {
	return TargetSpecifier{Kind: SpecifierOrdinal, Ordinal: n}
}

// ByIdentity returns a specifier matching a page's target ID or websocket
// debugger URL.
func ByIdentity(id string) TargetSpecifier {
	return TargetSpecifier{Kind: SpecifierIdentity, Identity: id}
}

func (s TargetSpecifier) String() string {
	if s.Kind == SpecifierIdentity {
		return s.Identity
	}
	return strconv.Itoa(s.Ordinal)
}

// ParseTargetSpecifier converts a decoded JSON value into a TargetSpecifier.
// nil selects the first page, numbers are ordinals and strings are
// identities. Fractional numbers are rejected rather than truncated.
func ParseTargetSpecifier(v interface{}) (TargetSpecifier, error) {
	switch t := v.(type) {
	case nil:
		return ByOrdinal(0), nil
	case string:
		return ByIdentity(t), nil
	case int:
		return ByOrdinal(t), nil
	case int64:
		return ByOrdinal(int(t)), nil
	case float64:
		n := int(t)
		if float64(n) != t {
			return TargetSpecifier{}, fmt.Errorf("target ordinal must be an integer, got %v", t)
		}
		return ByOrdinal(n), nil
	default:
		return TargetSpecifier{}, fmt.Errorf("target must be an integer or a string, got %T", v)
	}
}

// ParseTargetFlag converts a command line --target value into a specifier.
// Unlike ParseTargetSpecifier it treats integer literals as ordinals, so
// "--target -1" picks the last listed page.
func ParseTargetFlag(s string) TargetSpecifier {
	if s == "" {
		return ByOrdinal(0)
	}
	if n, err := strconv.Atoi(s); err == nil {
		return ByOrdinal(n)
	}
	return ByIdentity(s)
}

// -- Element Models --
// These types carry DOM query results back to callers. Pointer fields
// marshal as JSON null when the page reported a blank value.

// ElementInfo is one matched element from a DOM query.
type ElementInfo struct {
	Index       int               `json:"index"`
	TagName     string            `json:"tagName"`
	ID          *string           `json:"id"`
	ClassName   *string           `json:"className"`
	Attributes  map[string]string `json:"attributes"`
	ChildCount  int               `json:"childCount"`
	TextContent *string           `json:"textContent,omitempty"`
	Children    []ChildSummary    `json:"children,omitempty"`
}

// ChildSummary is the shallow description of one direct child element.
type ChildSummary struct {
	TagName   string  `json:"tagName"`
	ID        *string `json:"id"`
	ClassName *string `json:"className"`
}

// -- Screenshot Models --

// ImageFormat selects the screenshot encoding.
type ImageFormat string

const (
	FormatPNG  ImageFormat = "png"
	FormatJPEG ImageFormat = "jpeg"
)

// DefaultJPEGQuality is the compression quality used when a caller asks
// for a lossy capture without naming one.
const DefaultJPEGQuality = 80

// ParseImageFormat validates a caller-supplied format string. The empty
// string selects PNG.
func ParseImageFormat(s string) (ImageFormat, error) {
	switch s {
	case "", string(FormatPNG):
		return FormatPNG, nil
	case string(FormatJPEG):
		return FormatJPEG, nil
	default:
		return "", fmt.Errorf("unsupported image format %q", s)
	}
}

// MIME returns the media type for the encoded image.
func (f ImageFormat) MIME() string {
	if f == FormatJPEG {
		return "image/jpeg"
	}
	return "image/png"
}
