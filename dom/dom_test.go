package dom

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/net/html"
)

func parse(t *testing.T, src string) *html.Node {
	t.Helper()
	doc, err := ParseDocument(strings.NewReader(src), "text/html; charset=utf-8")
	if err != nil {
		t.Fatalf("ParseDocument() error = %v", err)
	}
	return doc
}

func mustSelect(t *testing.T, root *html.Node, sel string) *html.Node {
	t.Helper()
	n, err := Select(root, sel)
	if err != nil {
		t.Fatalf("Select(%q) error = %v", sel, err)
	}
	return n
}

func ids(pairs []NodePair) []string {
	var out []string
	for _, p := range pairs {
		id, _ := Attr(p.Original, "id")
		out = append(out, p.Original.Data+"#"+id)
	}
	return out
}

func TestCloneWithPairs(t *testing.T) {
	doc := parse(t, `<div id="root">text<p id="a">one<b id="b">two</b></p><!-- c --><ul id="c"><li id="d">x</li></ul></div>`)
	root := mustSelect(t, doc, "#root")

	clone, pairs := CloneWithPairs(root)

	if clone.Parent != nil {
		t.Error("clone must be detached")
	}
	if diff := cmp.Diff([]string{"div#root", "p#a", "b#b", "ul#c", "li#d"}, ids(pairs)); diff != "" {
		t.Errorf("pairs mismatch (-want +got):\n%s", diff)
	}
	for _, p := range pairs {
		if p.Original == p.Clone {
			t.Fatal("clone shares nodes with original")
		}
		if p.Original.Data != p.Clone.Data {
			t.Errorf("pair %s/%s does not correspond", p.Original.Data, p.Clone.Data)
		}
	}

	// attributes are copied, not shared
	SetAttr(pairs[1].Clone, "id", "changed")
	if id, _ := Attr(pairs[1].Original, "id"); id != "a" {
		t.Errorf("original attribute changed to %q", id)
	}
	if TextContent(clone) != TextContent(root) {
		t.Errorf("clone text %q differs from %q", TextContent(clone), TextContent(root))
	}
}

func TestPair_MatchingTrees(t *testing.T) {
	doc := parse(t, `<div id="root"><p id="a"><b id="b"></b></p><p id="c"></p></div>`)
	root := mustSelect(t, doc, "#root")
	clone, want := CloneWithPairs(root)

	got := Pairs(root, clone)
	if len(got) != len(want) {
		t.Fatalf("Pairs() returned %d pairs, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("pair %d differs", i)
		}
	}
}

func TestPair_StopsOnDivergence(t *testing.T) {
	doc := parse(t, `<div id="root"><p id="a"><b id="b"></b><i id="i"></i></p><p id="c"><em id="e"></em></p></div>`)
	root := mustSelect(t, doc, "#root")
	clone, _ := CloneWithPairs(root)

	// drop one child of the first paragraph in the clone
	p := ElementChildren(clone)[0]
	p.RemoveChild(ElementChildren(p)[1])

	pairs := Pairs(root, clone)
	if diff := cmp.Diff([]string{"div#root", "p#a", "p#c", "em#e"}, ids(pairs)); diff != "" {
		t.Errorf("pairs mismatch (-want +got):\n%s", diff)
	}
}

func TestPair_DivergentRootChildren(t *testing.T) {
	doc := parse(t, `<div id="root"><p id="a"></p><p id="b"></p></div>`)
	root := mustSelect(t, doc, "#root")
	clone, _ := CloneWithPairs(root)
	clone.AppendChild(&html.Node{Type: html.ElementNode, Data: "span"})

	var visited int
	err := Pair(root, clone, func(o, c *html.Node) error {
		visited++
		return nil
	})
	if err != nil {
		t.Fatalf("Pair() error = %v", err)
	}
	if visited != 1 {
		t.Errorf("visited %d pairs, want only the roots", visited)
	}
}

func TestPair_IgnoresTextNodes(t *testing.T) {
	doc := parse(t, `<div id="root">a<p id="a"></p>b</div>`)
	root := mustSelect(t, doc, "#root")
	clone, _ := CloneWithPairs(root)
	clone.AppendChild(&html.Node{Type: html.TextNode, Data: "extra"})

	if got := len(Pairs(root, clone)); got != 2 {
		t.Errorf("Pairs() = %d, want 2", got)
	}
}

func TestPair_VisitErrorStops(t *testing.T) {
	doc := parse(t, `<div id="root"><p></p><p></p></div>`)
	root := mustSelect(t, doc, "#root")
	clone, _ := CloneWithPairs(root)

	var visited int
	err := Pair(root, clone, func(o, c *html.Node) error {
		visited++
		if o.Data == "p" {
			return errTest
		}
		return nil
	})
	if err != errTest {
		t.Errorf("Pair() error = %v, want %v", err, errTest)
	}
	if visited != 2 {
		t.Errorf("visited %d, want 2", visited)
	}
}

type testError string

func (e testError) Error() string { return string(e) }

const errTest = testError("host failure")

func TestParseInt(t *testing.T) {
	tests := map[string]int{
		"8px":    8,
		"12.7px": 12,
		"-3px":   -3,
		"+4":     4,
		"auto":   0,
		"":       0,
		" 10px ": 10,
		"-":      0,
		"0px":    0,
	}
	for in, want := range tests {
		if got := ParseInt(in); got != want {
			t.Errorf("ParseInt(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestSerializeXHTML(t *testing.T) {
	doc := parse(t, `<div id="root" class="a" @click="x"><p>a &amp; b<br>c</p><svg viewBox="0 0 10 10"><foreignObject></foreignObject><use xlink:href="#x"></use></svg><style>p > b { color: red }</style></div>`)
	root := mustSelect(t, doc, "#root")

	out, err := SerializeXHTML(root)
	if err != nil {
		t.Fatalf("SerializeXHTML() error = %v", err)
	}

	for _, want := range []string{
		`<div xmlns="http://www.w3.org/1999/xhtml" id="root" class="a">`,
		`<p>a &amp; b<br></br>c</p>`,
		`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 10 10">`,
		`<foreignObject></foreignObject>`,
		`xlink:href="#x"`,
		`xmlns:xlink="http://www.w3.org/1999/xlink"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output does not contain %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "@click") {
		t.Errorf("invalid attribute name leaked into XML:\n%s", out)
	}
}

func TestSerializeXHTML_Comments(t *testing.T) {
	doc := parse(t, `<div id="root"><!-- kept --><!--a--b--><!-- trailing--->`+
		`<!--x--><!---leading--><p><!--y---></p></div>`)
	root := mustSelect(t, doc, "#root")

	out, err := SerializeXHTML(root)
	if err != nil {
		t.Fatalf("SerializeXHTML() error = %v", err)
	}
	for _, want := range []string{`<!-- kept -->`, `<!--x-->`, `<!---leading-->`, `<p></p>`} {
		if !strings.Contains(out, want) {
			t.Errorf("output does not contain %q:\n%s", want, out)
		}
	}
	for _, bad := range []string{"a--b", "trailing", "y-"} {
		if strings.Contains(out, bad) {
			t.Errorf("invalid comment %q leaked into XML:\n%s", bad, out)
		}
	}

	for in, want := range map[string]bool{
		"":          true,
		" note ":    true,
		"-leading":  true,
		"a-b":       true,
		"a--b":      false,
		"trailing-": false,
		"-":         false,
	} {
		if got := validXMLComment(in); got != want {
			t.Errorf("validXMLComment(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestSerializeXHTML_NotElement(t *testing.T) {
	if _, err := SerializeXHTML(&html.Node{Type: html.TextNode, Data: "x"}); err == nil {
		t.Error("expected error for non element root")
	}
}

func TestApplyState(t *testing.T) {
	doc := parse(t, `<form><input id="i" value="old"><textarea id="t">old</textarea><select id="s"><option selected>a</option><option value="bv">b</option></select></form>`)

	input := mustSelect(t, doc, "#i")
	ApplyState(input, State{Value: "new", HasValue: true, ScrollLeft: 5})
	if v, _ := Attr(input, "value"); v != "new" {
		t.Errorf("input value = %q, want new", v)
	}
	if v, _ := Attr(input, "data-scroll-left"); v != "5" {
		t.Errorf("data-scroll-left = %q, want 5", v)
	}
	if _, ok := Attr(input, "data-scroll-top"); ok {
		t.Error("zero scroll offset must not be recorded")
	}

	ta := mustSelect(t, doc, "#t")
	ApplyState(ta, State{Value: "typed text", HasValue: true})
	if TextContent(ta) != "typed text" {
		t.Errorf("textarea text = %q", TextContent(ta))
	}

	sel := mustSelect(t, doc, "#s")
	ApplyState(sel, State{Value: "bv", HasValue: true})
	opts := ElementChildren(sel)
	if _, ok := Attr(opts[0], "selected"); ok {
		t.Error("first option must be deselected")
	}
	if _, ok := Attr(opts[1], "selected"); !ok {
		t.Error("second option must be selected")
	}
}

func TestTitle(t *testing.T) {
	doc := parse(t, `<html><head><title>  My
	Page </title></head><body></body></html>`)
	if got := Title(doc); got != "My Page" {
		t.Errorf("Title() = %q", got)
	}
}

func TestSelect_Errors(t *testing.T) {
	doc := parse(t, `<p></p>`)
	if _, err := Select(doc, "p["); err == nil {
		t.Error("expected error for bad selector")
	}
	if _, err := Select(doc, "div"); err == nil {
		t.Error("expected error for selector matching nothing")
	}
}

func TestStyle(t *testing.T) {
	s := Style{{Name: "color", Value: "red"}, {Name: "margin-top", Value: "0px"}}
	if v, ok := s.Get("color"); !ok || v != "red" {
		t.Errorf("Get(color) = %q, %v", v, ok)
	}
	if s.Value("display") != "" {
		t.Error("Value of absent property must be empty")
	}
	if diff := cmp.Diff(map[string]string{"color": "red", "margin-top": "0px"}, s.Map()); diff != "" {
		t.Errorf("Map() mismatch (-want +got):\n%s", diff)
	}
}
