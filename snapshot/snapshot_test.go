package snapshot

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap/zaptest"
	"golang.org/x/net/html"

	"htmlsnap/common"
	"htmlsnap/css"
	"htmlsnap/dom"
	"htmlsnap/fonts"
)

// fakeHost resolves styles from tables keyed by element id.
type fakeHost struct {
	styles   map[string]map[string]dom.Style
	defaults map[string]dom.Style
	sheets   []dom.StyleSource

	width, height int
	failID        string

	defaultCalls map[string]int
	styleCalls   int
}

func (h *fakeHost) ComputedStyle(_ context.Context, n *html.Node, pseudo string) (dom.Style, error) {
	h.styleCalls++
	id, _ := dom.Attr(n, "id")
	if id != "" && id == h.failID {
		return nil, errors.New("node is detached")
	}
	if st, ok := h.styles[id][pseudo]; ok {
		return st, nil
	}
	if pseudo != "" {
		return dom.Style{{Name: "content", Value: "none"}, {Name: "color", Value: "black"}}, nil
	}
	return h.defaults[dom.TagName(n)], nil
}

func (h *fakeHost) DefaultStyle(_ context.Context, tag string) (dom.Style, error) {
	if h.defaultCalls == nil {
		h.defaultCalls = make(map[string]int)
	}
	h.defaultCalls[tag]++
	return h.defaults[tag], nil
}

func (h *fakeHost) ClientSize(context.Context, *html.Node) (int, int, error) {
	return h.width, h.height, nil
}

func (h *fakeHost) StyleSheets(context.Context) ([]dom.StyleSource, error) {
	return h.sheets, nil
}

func newFakeHost() *fakeHost {
	return &fakeHost{
		width:  200,
		height: 100,
		defaults: map[string]dom.Style{
			"div": {
				{Name: "display", Value: "block"},
				{Name: "color", Value: "black"},
				{Name: "margin-left", Value: "0px"},
				{Name: "cursor", Value: "auto"},
			},
			"p": {
				{Name: "display", Value: "block"},
				{Name: "color", Value: "black"},
				{Name: "margin", Value: "0"},
			},
			"span": {
				{Name: "display", Value: "inline"},
				{Name: "color", Value: "black"},
			},
			"input": {
				{Name: "display", Value: "inline-block"},
			},
		},
		styles: map[string]map[string]dom.Style{
			"root": {"": {
				{Name: "display", Value: "block"},
				{Name: "color", Value: "red"},
				{Name: "margin-left", Value: "8px"},
				{Name: "margin-right", Value: "8px"},
				{Name: "cursor", Value: "pointer"},
				{Name: "transition", Value: "all 1s"},
				{Name: "-webkit-animation-name", Value: "spin"},
			}},
			"s1": {"::before": {
				{Name: "content", Value: `"•"`},
				{Name: "color", Value: "black"},
				{Name: "animation-name", Value: "blink"},
			}},
		},
	}
}

func parseRoot(t *testing.T, markup string) *html.Node {
	t.Helper()
	doc, err := html.Parse(strings.NewReader("<html><body>" + markup + "</body></html>"))
	if err != nil {
		t.Fatalf("unable to parse: %v", err)
	}
	body := dom.FindElement(doc, "body")
	if body == nil || body.FirstChild == nil || body.FirstChild.Type != html.ElementNode {
		t.Fatal("fragment has no root element")
	}
	return body.FirstChild
}

const testMarkup = `<div id="root" class="x" style="color: red"><p id="p1" class="a">a</p><span id="s1">b</span></div>`

func TestAllocator(t *testing.T) {
	a := NewAllocator("")
	if got := []string{a.Next(), a.Next(), a.Next()}; !cmp.Equal(got, []string{"snap-1", "snap-2", "snap-3"}) {
		t.Fatalf("unexpected tokens %v", got)
	}
	b := NewAllocator("cap-")
	if got := b.Next(); got != "cap-1" {
		t.Fatalf("unexpected token %q", got)
	}
}

func TestIgnored(t *testing.T) {
	for _, p := range []string{"animation", "animation-play-state", "cursor", "transition-delay", "-webkit-transition", "-webkit-animation-name"} {
		if !Ignored(p) {
			t.Errorf("%s should be ignored", p)
		}
	}
	for _, p := range []string{"color", "-webkit-cursor-visibility", "transform", "content"} {
		if Ignored(p) {
			t.Errorf("%s should not be ignored", p)
		}
	}
}

func TestBaselineMemoized(t *testing.T) {
	host := newFakeHost()
	cache := NewBaselineCache(host)
	ctx := context.Background()

	first, err := cache.Baseline(ctx, "DIV")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := cache.Baseline(ctx, "div")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("baseline changed between calls:\n%s", diff)
	}
	if host.defaultCalls["div"] != 1 || cache.Len() != 1 {
		t.Fatalf("expected single resolution, got %d calls", host.defaultCalls["div"])
	}

	rule, err := cache.Rule(ctx, "div")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := css.Rule{Selector: "div", Declarations: css.Declarations{
		{Property: "display", Value: "block"},
		{Property: "color", Value: "black"},
		{Property: "margin-left", Value: "0px"},
	}}
	if diff := cmp.Diff(want, rule); diff != "" {
		t.Fatalf("unexpected baseline rule (-want +got):\n%s", diff)
	}
	if host.defaultCalls["div"] != 1 {
		t.Fatal("rule should use cached baseline")
	}
}

func TestExtractDifferenceOnly(t *testing.T) {
	host := newFakeHost()
	host.styles["p1"] = map[string]dom.Style{"": {
		{Name: "color", Value: "red"},
		{Name: "margin", Value: "0"},
	}}
	root := parseRoot(t, testMarkup)
	p := dom.FindElement(root, "p")
	clone, _ := dom.CloneWithPairs(p)

	ex := NewExtractor(host, nil, nil, false)
	rule, err := ex.Extract(context.Background(), p, clone)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var sb strings.Builder
	if _, err := css.WriteRule(&sb, rule); err != nil {
		t.Fatal(err)
	}
	if want := ".snap-1 {\n  color: red !important;\n}\n"; sb.String() != want {
		t.Fatalf("unexpected rule:\n%s\nwant:\n%s", sb.String(), want)
	}

	// token is stable for the clone
	again, err := ex.Extract(context.Background(), p, clone)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if again.Selector != ".snap-1" {
		t.Fatalf("token changed: %s", again.Selector)
	}
}

func TestExtractMatchingBaseline(t *testing.T) {
	host := newFakeHost()
	root := parseRoot(t, testMarkup)
	p := dom.FindElement(root, "p")
	clone, _ := dom.CloneWithPairs(p)

	ex := NewExtractor(host, nil, nil, false)
	rule, err := ex.Extract(context.Background(), p, clone)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !rule.Empty() {
		t.Fatalf("expected empty rule, got %+v", rule)
	}
	pseudo, err := ex.Pseudo(context.Background(), p, clone)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pseudo) != 0 {
		t.Fatalf("expected no pseudo rules, got %+v", pseudo)
	}
	sheet := Sheet{Diffs: []css.Rule{rule}, Pseudos: pseudo}
	if sheet.String() != "" || sheet.Len() != 0 {
		t.Fatalf("expected empty sheet, got %q", sheet.String())
	}
}

func TestExtractBeforePseudo(t *testing.T) {
	host := newFakeHost()
	host.styles["s1"][""] = dom.Style{{Name: "display", Value: "inline"}, {Name: "color", Value: "blue"}}
	root := parseRoot(t, testMarkup)
	span := dom.FindElement(root, "span")
	clone, _ := dom.CloneWithPairs(span)

	ex := NewExtractor(host, nil, NewAllocator("t-"), false)
	rule, err := ex.Extract(context.Background(), span, clone)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	pseudo, err := ex.Pseudo(context.Background(), span, clone)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rules := append([]css.Rule{rule}, pseudo...)
	want := []css.Rule{
		{Selector: ".t-1", Declarations: css.Declarations{{Property: "color", Value: "blue", Important: true}}},
		{Selector: ".t-1::before", Declarations: css.Declarations{
			{Property: "content", Value: `"•"`, Important: true},
			{Property: "color", Value: "black", Important: true},
		}},
	}
	if diff := cmp.Diff(want, rules); diff != "" {
		t.Fatalf("unexpected rules (-want +got):\n%s", diff)
	}
}

func TestPseudoPlaceholder(t *testing.T) {
	host := newFakeHost()
	host.styles["in"] = map[string]dom.Style{"::placeholder": {
		{Name: "content", Value: "normal"},
		{Name: "color", Value: "gray"},
	}}
	root := parseRoot(t, `<div id="root"><input id="in"><span id="s1"></span></div>`)
	input := dom.FindElement(root, "input")
	span := dom.FindElement(root, "span")

	for _, enabled := range []bool{false, true} {
		ex := NewExtractor(host, nil, nil, enabled)
		rules, err := ex.Pseudo(context.Background(), input, input)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		switch {
		case !enabled && len(rules) != 0:
			t.Fatalf("placeholder captured while disabled: %+v", rules)
		case enabled && (len(rules) != 1 || rules[0].Selector != ".snap-1::placeholder"):
			t.Fatalf("unexpected placeholder rules: %+v", rules)
		}

		// span has no placeholder, only ::before is rendered
		rules, err = ex.Pseudo(context.Background(), span, span)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(rules) != 1 || !strings.HasSuffix(rules[0].Selector, "::before") {
			t.Fatalf("unexpected span rules: %+v", rules)
		}
	}
}

func TestRetokenize(t *testing.T) {
	root := parseRoot(t, `<div class="a b" style="color: red"><p class="c">x</p><em style="x">y</em></div>`)
	clone, pairs := dom.CloneWithPairs(root)
	tokens := map[*html.Node]string{pairs[0].Clone: "snap-1", pairs[1].Clone: "snap-2"}

	retokenize(clone, func(n *html.Node) (string, bool) {
		tok, ok := tokens[n]
		return tok, ok
	})
	out, err := dom.SerializeXHTML(clone)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `<div xmlns="http://www.w3.org/1999/xhtml" class="snap-1"><p class="snap-2">x</p><em>y</em></div>`
	if out != want {
		t.Fatalf("unexpected markup:\n got: %s\nwant: %s", out, want)
	}
	// original is untouched
	if v, _ := dom.Attr(root, "class"); v != "a b" {
		t.Fatalf("original modified: %q", v)
	}
}

func fontFetcher() fonts.Fetcher {
	return fonts.FetcherFunc(func(_ context.Context, ref string) ([]byte, int, error) {
		switch ref {
		case "https://fonts.test/fonts/ok.woff":
			return []byte("font"), http.StatusOK, nil
		default:
			return nil, http.StatusNotFound, nil
		}
	})
}

func TestExecute(t *testing.T) {
	host := newFakeHost()
	host.sheets = []dom.StyleSource{{
		BaseURL: "https://fonts.test/css/site.css",
		Text:    `@font-face { font-family: F; src: url(../fonts/ok.woff), url(../fonts/bad.ttf); }`,
	}}
	root := parseRoot(t, testMarkup)
	log := zaptest.NewLogger(t)

	var events []Progress
	p := New(host, Options{
		Log:        log,
		Fonts:      fonts.NewInliner(fontFetcher(), common.FontModeAsync, 2, log),
		OnProgress: func(pr Progress) { events = append(events, pr) },
	})
	res, err := p.Execute(context.Background(), root)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// progress
	if len(events) != 11 {
		t.Fatalf("expected 11 progress reports, got %d: %v", len(events), events)
	}
	for i := 1; i < len(events); i++ {
		if events[i].Percent < events[i-1].Percent {
			t.Fatalf("progress decreased at %d: %v", i, events)
		}
		if events[i].Stage < events[i-1].Stage {
			t.Fatalf("stages out of order at %d: %v", i, events)
		}
	}
	if last := events[len(events)-1]; last.Percent != 1.0 || last.Status != "Exporting document" {
		t.Fatalf("unexpected last report %+v", last)
	}
	if events[0].Status != "Cloning document" || events[0].Percent != 0.05 {
		t.Fatalf("unexpected first report %+v", events[0])
	}

	// stylesheet sections in fixed order
	wantPrefix := "div {\n  display: block;\n  color: black;\n  margin-left: 0px;\n}\n" +
		"p {\n  display: block;\n  color: black;\n  margin: 0;\n}\n" +
		"span {\n  display: inline;\n  color: black;\n}\n" +
		".snap-1 {\n  color: red !important;\n  margin-left: 8px !important;\n  margin-right: 8px !important;\n}\n" +
		".snap-3::before {\n  content: \"•\" !important;\n  color: black !important;\n}\n" +
		"@font-face {\n  font-family: F;\n"
	if !strings.HasPrefix(res.Stylesheet, wantPrefix) {
		t.Fatalf("unexpected stylesheet:\n%s\nwant prefix:\n%s", res.Stylesheet, wantPrefix)
	}
	if !strings.Contains(res.Stylesheet, `url("data:application/font-woff;base64,Zm9udA==")`) ||
		!strings.Contains(res.Stylesheet, `url("data:application/font-sfnt;base64,")`) {
		t.Fatalf("fonts not inlined as expected:\n%s", res.Stylesheet)
	}
	if res.Sheet.Len() != 6 {
		t.Fatalf("expected 6 blocks, got %d", res.Sheet.Len())
	}

	// clone
	if res.Pairs != 3 {
		t.Fatalf("expected 3 pairs, got %d", res.Pairs)
	}
	for _, want := range []string{`xmlns="http://www.w3.org/1999/xhtml"`, `id="root" class="snap-1"`, `<style type="text/css">`, `class="snap-2"`, `class="snap-3"`} {
		if !strings.Contains(res.Markup, want) {
			t.Fatalf("markup misses %q:\n%s", want, res.Markup)
		}
	}
	if strings.Contains(res.Markup, `style="`) || strings.Contains(res.Markup, `class="x"`) {
		t.Fatalf("native attributes leaked:\n%s", res.Markup)
	}
	if v, _ := dom.Attr(root, "class"); v != "x" {
		t.Fatal("original document modified")
	}

	// envelope, raster, export
	if res.Width != 216 || res.Height != 100 {
		t.Fatalf("unexpected envelope size %dx%d", res.Width, res.Height)
	}
	if !bytes.HasPrefix(res.Envelope, []byte(`<svg xmlns="http://www.w3.org/2000/svg" width="216" height="100" viewBox="0 0 216 100">`)) {
		t.Fatalf("unexpected envelope: %s", res.Envelope)
	}
	if !strings.HasPrefix(res.EnvelopeURI, "data:image/svg+xml;base64,") || !strings.HasPrefix(res.RasterURI, "data:image/png;base64,") {
		t.Fatal("unexpected data uris")
	}
	if res.Raster.Width != 216 || res.Raster.Height != 100 {
		t.Fatalf("unexpected raster size %dx%d", res.Raster.Width, res.Raster.Height)
	}
	if res.Document == nil {
		t.Fatal("no export document")
	}
	var buf bytes.Buffer
	if _, err := res.Document.WriteTo(&buf); err != nil {
		t.Fatalf("unable to write document: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")) {
		t.Fatal("document is not a pdf")
	}

	// every tag resolved once
	for tag, n := range host.defaultCalls {
		if n != 1 {
			t.Fatalf("default style of %s resolved %d times", tag, n)
		}
	}
}

func TestStep(t *testing.T) {
	host := newFakeHost()
	root := parseRoot(t, testMarkup)
	run := New(host, Options{}).Start(root)

	if _, err := run.Result(); err == nil {
		t.Fatal("result of unfinished run should fail")
	}

	steps := 0
	var polled []Progress
	for {
		more, err := run.Step(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		steps++
		ev := run.Events()
		if len(ev) != 1 {
			t.Fatalf("expected one report per step, got %d", len(ev))
		}
		polled = append(polled, ev...)
		if !more {
			break
		}
	}
	// clone, fonts, one per element, and six stages after capture
	if steps != 2+3+6 {
		t.Fatalf("unexpected number of steps %d", steps)
	}
	capture := polled[2:5]
	for i, pr := range capture {
		if pr.Stage != StageCapture || pr.Done != i+1 || pr.Total != 3 {
			t.Fatalf("unexpected capture report %+v", pr)
		}
	}
	if capture[2].Percent != 0.70 {
		t.Fatalf("capture should end at 0.70, got %v", capture[2].Percent)
	}

	if more, err := run.Step(context.Background()); more || !errors.Is(err, ErrRunFinished) {
		t.Fatalf("expected ErrRunFinished, got %v %v", more, err)
	}
	if res, err := run.Result(); err != nil || res == nil {
		t.Fatalf("unexpected result %v %v", res, err)
	}
}

func TestStepCancelled(t *testing.T) {
	host := newFakeHost()
	run := New(host, Options{}).Start(parseRoot(t, testMarkup))

	ctx, cancel := context.WithCancel(context.Background())
	if _, err := run.Step(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cancel()
	if _, err := run.Step(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if _, err := run.Result(); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation from result, got %v", err)
	}
}

func TestExecuteHostFailure(t *testing.T) {
	host := newFakeHost()
	host.failID = "s1"
	var last Progress
	p := New(host, Options{OnProgress: func(pr Progress) { last = pr }})

	_, err := p.Execute(context.Background(), parseRoot(t, testMarkup))
	if err == nil || !strings.Contains(err.Error(), "node is detached") || !strings.HasPrefix(err.Error(), "capture:") {
		t.Fatalf("expected host failure, got %v", err)
	}
	if last.Percent >= 1.0 {
		t.Fatal("failed run should not report completion")
	}
}

func TestExecuteNotElement(t *testing.T) {
	_, err := New(newFakeHost(), Options{}).Execute(context.Background(), &html.Node{Type: html.TextNode, Data: "x"})
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestStream(t *testing.T) {
	host := newFakeHost()
	events, wait := New(host, Options{}).Stream(context.Background(), parseRoot(t, testMarkup))

	var got []Progress
	for pr := range events {
		got = append(got, pr)
	}
	res, err := wait()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Document == nil {
		t.Fatal("no export document")
	}
	if len(got) == 0 || got[len(got)-1].Percent != 1.0 {
		t.Fatalf("stream did not reach completion: %v", got)
	}
}

// importHost produces its own clones, the clone of the paragraph gets an
// extra child so pairing stops below it.
type importHost struct {
	*fakeHost
	liveValue string
}

func (h *importHost) Import(_ context.Context, n *html.Node) (*html.Node, error) {
	clone, _ := dom.CloneWithPairs(n)
	p := dom.FindElement(clone, "p")
	p.AppendChild(&html.Node{Type: html.ElementNode, Data: "b"})
	p.AppendChild(&html.Node{Type: html.ElementNode, Data: "i"})
	return clone, nil
}

func (h *importHost) LiveState(_ context.Context, n *html.Node) (dom.State, error) {
	if dom.TagName(n) == "input" {
		return dom.State{Value: h.liveValue, HasValue: true}, nil
	}
	return dom.State{}, nil
}

func TestExecuteImporter(t *testing.T) {
	host := &importHost{fakeHost: newFakeHost(), liveValue: "typed"}
	root := parseRoot(t, `<div id="root"><p id="p1"><em>a</em></p><input id="in"></div>`)

	res, err := New(host, Options{}).Execute(context.Background(), root)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// div, p, input; children of p diverge and are skipped
	if res.Pairs != 3 {
		t.Fatalf("expected 3 pairs, got %d", res.Pairs)
	}
	if !strings.Contains(res.Markup, `value="typed"`) {
		t.Fatalf("live state not applied:\n%s", res.Markup)
	}
	if strings.Contains(res.Markup, `<em class=`) {
		t.Fatalf("unpaired element got a token:\n%s", res.Markup)
	}
}
