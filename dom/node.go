package dom

import (
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// Attr returns value of the attribute.
func Attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// SetAttr sets or replaces attribute value.
func SetAttr(n *html.Node, key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Namespace == "" && n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// RemoveAttr deletes attribute if present.
func RemoveAttr(n *html.Node, key string) {
	out := n.Attr[:0]
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			continue
		}
		out = append(out, a)
	}
	n.Attr = out
}

// ElementChildren returns element children of the node in order. Text,
// comment and other nodes are skipped.
func ElementChildren(n *html.Node) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			out = append(out, c)
		}
	}
	return out
}

// TagName returns lower case tag name of element.
func TagName(n *html.Node) string {
	return strings.ToLower(n.Data)
}

// TextContent returns concatenated text of all descendant text nodes.
func TextContent(n *html.Node) string {
	var sb strings.Builder
	for d := range n.Descendants() {
		if d.Type == html.TextNode {
			sb.WriteString(d.Data)
		}
	}
	return sb.String()
}

// FindElement returns first element with the tag name in document order.
func FindElement(root *html.Node, tag string) *html.Node {
	if root.Type == html.ElementNode && TagName(root) == tag {
		return root
	}
	for d := range root.Descendants() {
		if d.Type == html.ElementNode && TagName(d) == tag {
			return d
		}
	}
	return nil
}

// ParseInt parses leading integer of a CSS length the way lenient script
// conversion does: "12.7px" is 12, "-3px" is -3, anything without leading
// digits is 0.
func ParseInt(s string) int {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0
	}
	v, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0
	}
	return v
}

func itoa(v int) string {
	return strconv.Itoa(v)
}
