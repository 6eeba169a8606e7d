// Package dom defines document side of capture: style resolution
// capabilities of a host environment, tree pairing and serialization.
package dom

import (
	"context"
	"strings"

	"golang.org/x/net/html"
)

// Property is a single entry of a resolved style.
type Property struct {
	Name     string
	Value    string
	Priority string // "important" or empty
}

// Style is a resolved (computed) style in the order host reported it.
type Style []Property

// Get returns value of the named property.
func (s Style) Get(name string) (string, bool) {
	for _, p := range s {
		if p.Name == name {
			return p.Value, true
		}
	}
	return "", false
}

// Value returns value of the named property or empty string.
func (s Style) Value(name string) string {
	v, _ := s.Get(name)
	return v
}

// Map returns style as property name to value map.
func (s Style) Map() map[string]string {
	m := make(map[string]string, len(s))
	for _, p := range s {
		m[p.Name] = p.Value
	}
	return m
}

// StyleSource is a stylesheet visible to the document with the URL relative
// references in it are resolved against.
type StyleSource struct {
	BaseURL string
	Text    string
}

// Host is the environment able to resolve presentation of document nodes.
// All nodes passed to it belong to the document host was created for.
type Host interface {
	// ComputedStyle returns fully resolved style of the element, or of its
	// pseudo-element when pseudo is not empty ("::before", "::after", ...).
	ComputedStyle(ctx context.Context, n *html.Node, pseudo string) (Style, error)
	// DefaultStyle returns resolved style of a freshly created, unstyled
	// element with the tag name. Result depends only on the tag name and the
	// environment, never on the document being captured.
	DefaultStyle(ctx context.Context, tag string) (Style, error)
	// ClientSize returns inner box dimensions of the element.
	ClientSize(ctx context.Context, n *html.Node) (width, height int, err error)
	// StyleSheets returns stylesheets of the document in document order.
	StyleSheets(ctx context.Context) ([]StyleSource, error)
}

// Importer is implemented by hosts which produce clones themselves (deep copy
// through the host document). Such clones are paired with originals by
// structure, see Pair.
type Importer interface {
	Import(ctx context.Context, n *html.Node) (*html.Node, error)
}

// State is live, non-attribute state of an element.
type State struct {
	Value      string
	HasValue   bool
	ScrollLeft int
	ScrollTop  int
}

// StateReader is implemented by hosts which know live element state.
type StateReader interface {
	LiveState(ctx context.Context, n *html.Node) (State, error)
}

// ApplyState copies live state to clone: form values become markup, scroll
// offsets are kept as data attributes.
func ApplyState(clone *html.Node, st State) {
	if st.HasValue {
		switch strings.ToLower(clone.Data) {
		case "textarea":
			for c := clone.FirstChild; c != nil; {
				next := c.NextSibling
				clone.RemoveChild(c)
				c = next
			}
			clone.AppendChild(&html.Node{Type: html.TextNode, Data: st.Value})
		case "select":
			for opt := range clone.Descendants() {
				if opt.Type != html.ElementNode || opt.Data != "option" {
					continue
				}
				RemoveAttr(opt, "selected")
				if optionValue(opt) == st.Value {
					SetAttr(opt, "selected", "selected")
				}
			}
		default:
			SetAttr(clone, "value", st.Value)
		}
	}
	if st.ScrollLeft != 0 {
		SetAttr(clone, "data-scroll-left", itoa(st.ScrollLeft))
	}
	if st.ScrollTop != 0 {
		SetAttr(clone, "data-scroll-top", itoa(st.ScrollTop))
	}
}

func optionValue(opt *html.Node) string {
	if v, ok := Attr(opt, "value"); ok {
		return v
	}
	return strings.TrimSpace(TextContent(opt))
}
