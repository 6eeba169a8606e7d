package snapshot

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"htmlsnap/css"
	"htmlsnap/dom"
)

// Sheet is the synthesized stylesheet of a capture. Sections are written in
// fixed order: tag baselines, per element differences, pseudo-elements and
// inlined fonts. Later sections win over earlier ones for equal specificity.
type Sheet struct {
	Baselines []css.Rule
	Diffs     []css.Rule
	Pseudos   []css.Rule
	Fonts     []css.FontFace
}

// Len returns number of non empty blocks which would be written.
func (s *Sheet) Len() int {
	n := 0
	for _, section := range [][]css.Rule{s.Baselines, s.Diffs, s.Pseudos} {
		for _, r := range section {
			if !r.Empty() {
				n++
			}
		}
	}
	for _, ff := range s.Fonts {
		if len(ff.Declarations) > 0 {
			n++
		}
	}
	return n
}

// String returns stylesheet text. Rules without declarations are omitted.
func (s *Sheet) String() string {
	var sb strings.Builder
	for _, section := range [][]css.Rule{s.Baselines, s.Diffs, s.Pseudos} {
		for _, r := range section {
			if r.Empty() {
				continue
			}
			_, _ = css.WriteRule(&sb, r)
		}
	}
	for _, ff := range s.Fonts {
		if len(ff.Declarations) == 0 {
			continue
		}
		_, _ = css.WriteFontFace(&sb, ff)
	}
	return sb.String()
}

// retokenize strips native class and style attributes from every element of
// the clone and gives elements with assigned token that token as their only
// class.
func retokenize(clone *html.Node, token func(*html.Node) (string, bool)) {
	apply := func(n *html.Node) {
		if n.Type != html.ElementNode {
			return
		}
		dom.RemoveAttr(n, "class")
		dom.RemoveAttr(n, "style")
		if t, ok := token(n); ok {
			dom.SetAttr(n, "class", t)
		}
	}
	apply(clone)
	for d := range clone.Descendants() {
		apply(d)
	}
}

// attach inserts stylesheet text as the first child of clone.
func attach(clone *html.Node, text string) *html.Node {
	style := &html.Node{Type: html.ElementNode, DataAtom: atom.Style, Data: "style"}
	dom.SetAttr(style, "type", "text/css")
	style.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	clone.InsertBefore(style, clone.FirstChild)
	return style
}
