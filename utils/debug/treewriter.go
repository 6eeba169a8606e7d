// Package debug produces human readable dumps for debug reports.
package debug

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// TreeWriter accumulates indented tree dump.
type TreeWriter struct {
	w *strings.Builder
}

func NewTreeWriter() *TreeWriter {
	return &TreeWriter{
		w: &strings.Builder{},
	}
}

func (tw TreeWriter) String() string {
	return tw.w.String()
}

func (tw TreeWriter) indent(depth int) {
	for range depth {
		tw.w.WriteString("  ")
	}
}

func (tw TreeWriter) Line(depth int, format string, args ...any) {
	tw.indent(depth)
	fmt.Fprintf(tw.w, format, args...)
	tw.w.WriteByte('\n')
}

func (tw TreeWriter) TextBlock(depth int, label, value string) {
	tw.indent(depth)
	tw.w.WriteString(label)
	tw.w.WriteString(": ")
	tw.w.WriteString(encodeText(value))
	tw.w.WriteByte('\n')
}

// Node dumps markup subtree: one line per element with its attributes, text
// and comments as quoted blocks. Whitespace only text is skipped.
func (tw TreeWriter) Node(depth int, n *html.Node) {
	switch n.Type {
	case html.DocumentNode:
		tw.Line(depth, "#document")
	case html.DoctypeNode:
		tw.Line(depth, "<!DOCTYPE %s>", n.Data)
		return
	case html.ElementNode:
		tw.Line(depth, "<%s%s>", n.Data, formatAttrs(n.Attr))
	case html.TextNode:
		if strings.TrimSpace(n.Data) != "" {
			tw.TextBlock(depth, "text", n.Data)
		}
		return
	case html.CommentNode:
		tw.TextBlock(depth, "comment", n.Data)
		return
	default:
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		tw.Node(depth+1, c)
	}
}

func formatAttrs(attrs []html.Attribute) string {
	var sb strings.Builder
	for _, a := range attrs {
		sb.WriteByte(' ')
		if a.Namespace != "" {
			sb.WriteString(a.Namespace)
			sb.WriteByte(':')
		}
		sb.WriteString(a.Key)
		sb.WriteByte('=')
		sb.WriteString(strconv.Quote(a.Val))
	}
	return sb.String()
}

func encodeText(raw string) string {
	if raw == "" {
		return raw
	}
	return strconv.Quote(raw)
}
