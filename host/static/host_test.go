package static

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap/zaptest"
	"golang.org/x/net/html"

	"htmlsnap/dom"
	"htmlsnap/fonts"
)

const page = `<!DOCTYPE html>
<html><head><style>
body { margin: 0 }
.box { color: red; padding: 2px 4px; width: 100px; height: 50px }
#b { color: blue }
.imp { color: purple !important }
p.note::before { content: "»"; color: green }
@media print { .box { color: black } }
div:hover { color: gray }
</style></head>
<body><div class="box" id="b" style="margin: 0 auto; color: orange"><p class="note">x <span id="s">y</span></p></div>
<div class="box" id="c"></div><div class="box imp" id="d" style="color: orange"></div>
<input id="i" placeholder="type"></body></html>`

func parse(t *testing.T, src string) *html.Node {
	t.Helper()
	doc, err := html.Parse(strings.NewReader(src))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return doc
}

func byID(t *testing.T, doc *html.Node, id string) *html.Node {
	t.Helper()
	n, err := dom.Select(doc, "#"+id)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	return n
}

func newHost(t *testing.T, doc *html.Node, opts Options) *Host {
	t.Helper()
	opts.Log = zaptest.NewLogger(t)
	h, err := New(context.Background(), doc, opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return h
}

func styleOf(t *testing.T, h *Host, n *html.Node, pseudo string) map[string]string {
	t.Helper()
	st, err := h.ComputedStyle(context.Background(), n, pseudo)
	if err != nil {
		t.Fatalf("ComputedStyle: %v", err)
	}
	return st.Map()
}

func TestComputedStyleCascade(t *testing.T) {
	doc := parse(t, page)
	h := newHost(t, doc, Options{})

	tests := []struct {
		id   string
		prop string
		want string
	}{
		{"b", "color", "orange"},  // style attribute over id selector
		{"c", "color", "red"},     // class only
		{"d", "color", "purple"},  // important over style attribute
		{"b", "display", "block"}, // user agent
		{"b", "padding-left", "4px"},
		{"b", "padding-top", "2px"},
		{"b", "margin-left", "auto"},
		{"b", "margin-top", "0"},
		{"s", "color", "orange"}, // inherited through p
		{"s", "display", "inline"},
		{"s", "margin-left", "0px"},
		{"i", "display", "inline-block"},
	}
	for _, tt := range tests {
		t.Run(tt.id+"/"+tt.prop, func(t *testing.T) {
			got := styleOf(t, h, byID(t, doc, tt.id), "")
			if got[tt.prop] != tt.want {
				t.Errorf("%s = %q, want %q", tt.prop, got[tt.prop], tt.want)
			}
		})
	}
}

func TestComputedStyleSpecificity(t *testing.T) {
	doc := parse(t, strings.Replace(page, `#b { color: blue }`, `#c { color: blue }`, 1))
	h := newHost(t, doc, Options{})
	if got := styleOf(t, h, byID(t, doc, "c"), "")["color"]; got != "blue" {
		t.Errorf("color = %q, want blue", got)
	}
}

func TestComputedStyleOrder(t *testing.T) {
	doc := parse(t, page)
	h := newHost(t, doc, Options{})

	st, err := h.ComputedStyle(context.Background(), byID(t, doc, "s"), "")
	if err != nil {
		t.Fatal(err)
	}
	if len(st) != len(properties) {
		t.Fatalf("got %d properties, want %d", len(st), len(properties))
	}
	for i := 1; i < len(st); i++ {
		if st[i-1].Name >= st[i].Name {
			t.Fatalf("properties are not sorted: %q before %q", st[i-1].Name, st[i].Name)
		}
	}
}

func TestComputedStylePseudo(t *testing.T) {
	doc := parse(t, page)
	h := newHost(t, doc, Options{})
	p := byID(t, doc, "s").Parent

	before := styleOf(t, h, p, "::before")
	if got := strings.Trim(before["content"], `"'`); got != "»" {
		t.Errorf("::before content = %q", before["content"])
	}
	if before["color"] != "green" {
		t.Errorf("::before color = %q, want green", before["color"])
	}
	// legacy single colon notation is the same pseudo-element
	if got := styleOf(t, h, p, ":before")["color"]; got != "green" {
		t.Errorf(":before color = %q, want green", got)
	}

	after := styleOf(t, h, p, "::after")
	if after["content"] != "none" {
		t.Errorf("::after content = %q, want none", after["content"])
	}
	if after["color"] != "orange" {
		t.Errorf("::after color = %q, want inherited orange", after["color"])
	}

	ph := styleOf(t, h, byID(t, doc, "i"), "::placeholder")
	if ph["color"] != "darkgray" {
		t.Errorf("::placeholder color = %q, want darkgray", ph["color"])
	}
}

func TestDefaultStyle(t *testing.T) {
	doc := parse(t, page)
	h := newHost(t, doc, Options{})
	ctx := context.Background()

	tests := []struct {
		tag  string
		prop string
		want string
	}{
		{"div", "display", "block"},
		{"DIV", "display", "block"},
		{"span", "display", "inline"},
		{"div", "color", "rgb(0, 0, 0)"},
		{"body", "margin-left", "8px"}, // author body rule does not apply
		{"h1", "font-weight", "700"},
		{"li", "display", "list-item"},
		{"custom-tag", "display", "inline"},
	}
	for _, tt := range tests {
		t.Run(tt.tag+"/"+tt.prop, func(t *testing.T) {
			st, err := h.DefaultStyle(ctx, tt.tag)
			if err != nil {
				t.Fatal(err)
			}
			if got := st.Value(tt.prop); got != tt.want {
				t.Errorf("%s = %q, want %q", tt.prop, got, tt.want)
			}
		})
	}

	if _, err := h.DefaultStyle(ctx, " "); err == nil {
		t.Error("expected error for empty tag")
	}
}

func TestClientSize(t *testing.T) {
	doc := parse(t, page)
	h := newHost(t, doc, Options{ViewportWidth: 800, ViewportHeight: 600})
	ctx := context.Background()

	w, hgt, err := h.ClientSize(ctx, byID(t, doc, "b"))
	if err != nil {
		t.Fatal(err)
	}
	if w != 108 || hgt != 54 {
		t.Errorf("box client size = %dx%d, want 108x54", w, hgt)
	}

	body := dom.FindElement(doc, "body")
	w, hgt, err = h.ClientSize(ctx, body)
	if err != nil {
		t.Fatal(err)
	}
	if w != 800 || hgt != 600 {
		t.Errorf("body client size = %dx%d, want 800x600", w, hgt)
	}

	head := dom.FindElement(doc, "head")
	if w, hgt, _ = h.ClientSize(ctx, head); w != 0 || hgt != 0 {
		t.Errorf("hidden element client size = %dx%d", w, hgt)
	}
}

func TestStyleSheetsLinked(t *testing.T) {
	files := map[string]string{
		"http://example.com/css/main.css":  `@import "extra.css"; p { color: teal }`,
		"http://example.com/css/extra.css": `p { font-style: italic; }`,
	}
	var requested []string
	fetcher := fonts.FetcherFunc(func(_ context.Context, ref string) ([]byte, int, error) {
		requested = append(requested, ref)
		text, ok := files[ref]
		if !ok {
			return nil, http.StatusNotFound, nil
		}
		return []byte(text), http.StatusOK, nil
	})

	doc := parse(t, `<html><head>
<link rel="stylesheet" href="css/main.css">
<link rel="stylesheet" href="css/missing.css">
<link rel="alternate stylesheet" href="css/alt.css">
<link rel="stylesheet" media="print" href="css/print.css">
<style>p { font-weight: bold }</style>
</head><body><p id="p">x</p></body></html>`)
	h := newHost(t, doc, Options{BaseURL: "http://example.com/index.html", Fetcher: fetcher})

	wantRequested := []string{
		"http://example.com/css/main.css",
		"http://example.com/css/extra.css",
		"http://example.com/css/missing.css",
	}
	if diff := cmp.Diff(wantRequested, requested); diff != "" {
		t.Errorf("requested mismatch (-want +got):\n%s", diff)
	}

	sheets, err := h.StyleSheets(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	var bases []string
	for _, s := range sheets {
		bases = append(bases, s.BaseURL)
	}
	wantBases := []string{
		"http://example.com/css/extra.css",
		"http://example.com/css/main.css",
		"http://example.com/index.html",
	}
	if diff := cmp.Diff(wantBases, bases); diff != "" {
		t.Errorf("stylesheet bases mismatch (-want +got):\n%s", diff)
	}

	got := styleOf(t, h, byID(t, doc, "p"), "")
	want := map[string]string{"color": "teal", "font-style": "italic", "font-weight": "700"}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("%s = %q, want %q", k, got[k], v)
		}
	}
}

func TestStyleSheetsResolveReferences(t *testing.T) {
	fetcher := fonts.FetcherFunc(func(_ context.Context, ref string) ([]byte, int, error) {
		if ref != "http://example.com/css/main.css" {
			return nil, http.StatusNotFound, nil
		}
		return []byte(`#p { background-image: url(../img/bg.png) }`), http.StatusOK, nil
	})

	doc := parse(t, `<html><head>
<link rel="stylesheet" href="css/main.css">
<style>#q { background-image: url('img/q.png') } #r { background-image: url(data:image/png;base64,AA==) }</style>
</head><body><p id="p">x</p><p id="q">y</p><p id="r">z</p></body></html>`)
	h := newHost(t, doc, Options{BaseURL: "http://example.com/index.html", Fetcher: fetcher})

	for id, want := range map[string]string{
		"p": `url("http://example.com/img/bg.png")`,
		"q": `url("http://example.com/img/q.png")`,
		"r": `url("data:image/png;base64,AA==")`,
	} {
		if got := styleOf(t, h, byID(t, doc, id), "")["background-image"]; got != want {
			t.Errorf("#%s background-image = %q, want %q", id, got, want)
		}
	}

	var sb strings.Builder
	n, err := h.WriteTo(&sb)
	if err != nil {
		t.Fatalf("WriteTo() error = %v", err)
	}
	out := sb.String()
	if n != int64(len(out)) {
		t.Errorf("WriteTo() reported %d bytes, wrote %d", n, len(out))
	}
	for _, want := range []string{
		"/* http://example.com/css/main.css */\n#p {\n  background-image: url(\"http://example.com/img/bg.png\");\n}\n",
		"/* http://example.com/index.html */\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("dump misses %q:\n%s", want, out)
		}
	}
}

func TestBaseElement(t *testing.T) {
	doc := parse(t, `<html><head><base href="http://cdn.example.org/site/"><style>p{}</style></head><body></body></html>`)
	h := newHost(t, doc, Options{BaseURL: "http://example.com/"})
	sheets, _ := h.StyleSheets(context.Background())
	if len(sheets) != 1 || sheets[0].BaseURL != "http://cdn.example.org/site/" {
		t.Errorf("unexpected sheets %+v", sheets)
	}
}

func TestComputedStyleErrors(t *testing.T) {
	doc := parse(t, page)
	h := newHost(t, doc, Options{})

	if _, err := h.ComputedStyle(context.Background(), &html.Node{Type: html.TextNode}, ""); err == nil {
		t.Error("expected error for text node")
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := h.ComputedStyle(ctx, byID(t, doc, "b"), ""); err == nil {
		t.Error("expected error for cancelled context")
	}
	if _, err := New(context.Background(), nil, Options{}); err == nil {
		t.Error("expected error for nil document")
	}
}

func TestExpand(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  [][2]string
	}{
		{"margin", "1px 2px", [][2]string{
			{"margin-top", "1px"}, {"margin-right", "2px"}, {"margin-bottom", "1px"}, {"margin-left", "2px"},
		}},
		{"border-top", "1px solid red", [][2]string{
			{"border-top-width", "1px"}, {"border-top-style", "solid"}, {"border-top-color", "red"},
		}},
		{"border-color", "rgb(1, 2, 3) blue", [][2]string{
			{"border-top-color", "rgb(1, 2, 3)"}, {"border-right-color", "blue"},
			{"border-bottom-color", "rgb(1, 2, 3)"}, {"border-left-color", "blue"},
		}},
		{"font", "italic bold 12px/1.5 Arial, sans-serif", [][2]string{
			{"font-style", "italic"}, {"font-variant", "normal"}, {"font-weight", "700"},
			{"font-size", "12px"}, {"line-height", "1.5"}, {"font-family", "Arial, sans-serif"},
		}},
		{"font", "caption", nil},
		{"flex", "1", [][2]string{{"flex-grow", "1"}, {"flex-shrink", "1"}, {"flex-basis", "0%"}}},
		{"flex", "none", [][2]string{{"flex-grow", "0"}, {"flex-shrink", "0"}, {"flex-basis", "auto"}}},
		{"background", "url(a.png) #fff no-repeat center", [][2]string{
			{"background-image", "url(a.png)"}, {"background-color", "#fff"}, {"background-repeat", "no-repeat"},
		}},
		{"text-decoration", "underline dotted", [][2]string{
			{"text-decoration-line", "underline"}, {"text-decoration-style", "dotted"}, {"text-decoration-color", "currentcolor"},
		}},
		{"overflow", "hidden", [][2]string{{"overflow-x", "hidden"}, {"overflow-y", "hidden"}}},
		{"margin", "1px 2px 3px 4px 5px", nil},
		{"color", "red", [][2]string{{"color", "red"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name+" "+tt.value, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, expand(tt.name, tt.value)); diff != "" {
				t.Errorf("expand mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFields(t *testing.T) {
	got := fields(` 1px  rgb(1, 2, 3) "a b" url(x y) `)
	want := []string{"1px", "rgb(1, 2, 3)", `"a b"`, "url(x y)"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("fields mismatch (-want +got):\n%s", diff)
	}
}
