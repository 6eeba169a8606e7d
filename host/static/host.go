// Package static implements offline host: styles are resolved by a small
// cascade over document stylesheets, style attributes and built in user agent
// defaults. There is no layout, values are reported as specified after
// cascade and inheritance.
package static

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"slices"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"htmlsnap/css"
	"htmlsnap/dom"
	"htmlsnap/fonts"
)

const (
	defaultViewportWidth  = 1024
	defaultViewportHeight = 768
	defaultMedium         = "screen"
	// maxImportDepth limits @import chains.
	maxImportDepth = 4
)

// Options of static host. Zero value is usable.
type Options struct {
	Log *zap.Logger
	// BaseURL document was loaded from, <base> element overrides it.
	BaseURL string
	// Medium selects @media blocks, "screen" when empty.
	Medium         string
	ViewportWidth  int
	ViewportHeight int
	// Fetcher loads linked and imported stylesheets, when nil only <style>
	// blocks of the document are used.
	Fetcher fonts.Fetcher
}

type resolved struct {
	style  dom.Style
	values map[string]string
}

type styleKey struct {
	n      *html.Node
	pseudo string
}

// Host resolves styles of a single parsed document. It is safe for concurrent
// use.
type Host struct {
	doc    *html.Node
	opts   Options
	log    *zap.Logger
	parser *css.Parser
	base   string

	sources []dom.StyleSource
	sheets  []*css.Stylesheet
	rules   []rule

	mu    sync.Mutex
	cache map[styleKey]*resolved
}

// New loads stylesheets of the document and prepares the cascade.
func New(ctx context.Context, doc *html.Node, opts Options) (*Host, error) {
	if doc == nil {
		return nil, errors.New("no document")
	}
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Medium == "" {
		opts.Medium = defaultMedium
	}
	if opts.ViewportWidth <= 0 {
		opts.ViewportWidth = defaultViewportWidth
	}
	if opts.ViewportHeight <= 0 {
		opts.ViewportHeight = defaultViewportHeight
	}

	h := &Host{
		doc:    doc,
		opts:   opts,
		log:    log.Named("static-host"),
		parser: css.NewParser(log),
		base:   documentBase(doc, opts.BaseURL),
		cache:  make(map[styleKey]*resolved),
	}
	if err := h.load(ctx); err != nil {
		return nil, err
	}
	h.log.Debug("Host ready",
		zap.String("base", h.base),
		zap.Int("stylesheets", len(h.sources)),
		zap.Int("rules", len(h.rules)))
	return h, nil
}

func documentBase(doc *html.Node, base string) string {
	el := dom.FindElement(doc, "base")
	if el == nil {
		return base
	}
	href, ok := dom.Attr(el, "href")
	if !ok {
		return base
	}
	if abs, err := resolveURL(base, href); err == nil {
		return abs
	}
	return base
}

func resolveURL(base, ref string) (string, error) {
	r, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return "", err
	}
	if base == "" {
		return r.String(), nil
	}
	b, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	return b.ResolveReference(r).String(), nil
}

// load collects stylesheets in document order.
func (h *Host) load(ctx context.Context) error {
	order := 0
	for n := range h.doc.Descendants() {
		if n.Type != html.ElementNode {
			continue
		}
		switch n.DataAtom {
		case atom.Style:
			if typ, ok := dom.Attr(n, "type"); ok && typ != "" && !strings.EqualFold(typ, "text/css") {
				continue
			}
			if !h.mediaMatches(n) {
				continue
			}
			order = h.addSheet(ctx, h.base, dom.TextContent(n), order, 0)
		case atom.Link:
			if !isStylesheetLink(n) || !h.mediaMatches(n) {
				continue
			}
			href, _ := dom.Attr(n, "href")
			text, abs, ok := h.fetchSheet(ctx, h.base, href)
			if !ok {
				continue
			}
			order = h.addSheet(ctx, abs, text, order, 0)
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	return nil
}

func isStylesheetLink(n *html.Node) bool {
	rel, _ := dom.Attr(n, "rel")
	var sheet bool
	for _, r := range strings.Fields(strings.ToLower(rel)) {
		switch r {
		case "stylesheet":
			sheet = true
		case "alternate":
			return false
		}
	}
	return sheet
}

func (h *Host) mediaMatches(n *html.Node) bool {
	media, ok := dom.Attr(n, "media")
	if !ok || strings.TrimSpace(media) == "" {
		return true
	}
	for _, m := range strings.Split(strings.ToLower(media), ",") {
		switch strings.TrimSpace(m) {
		case "all", h.opts.Medium:
			return true
		}
	}
	return false
}

// addSheet registers stylesheet, imported ones go first as cascade requires.
func (h *Host) addSheet(ctx context.Context, base, text string, order, depth int) int {
	sheet := h.parser.Parse([]byte(text), base)
	if depth < maxImportDepth {
		for _, ref := range sheet.Imports() {
			imported, abs, ok := h.fetchSheet(ctx, base, ref)
			if !ok {
				continue
			}
			order = h.addSheet(ctx, abs, imported, order, depth+1)
		}
	}
	// computed values carry absolute references, same as browsers report them
	sheet.RewriteURLs(func(ref string) string {
		if base == "" || strings.HasPrefix(strings.ToLower(ref), "data:") {
			return ref
		}
		abs, err := resolveURL(base, ref)
		if err != nil {
			return ref
		}
		return abs
	})
	h.sources = append(h.sources, dom.StyleSource{BaseURL: base, Text: text})
	h.sheets = append(h.sheets, sheet)
	var rules []rule
	rules, order = compile(sheet.Rules(h.opts.Medium), originAuthor, order, h.log)
	h.rules = append(h.rules, rules...)
	return order
}

func (h *Host) fetchSheet(ctx context.Context, base, ref string) (string, string, bool) {
	if h.opts.Fetcher == nil || strings.TrimSpace(ref) == "" {
		return "", "", false
	}
	abs, err := resolveURL(base, ref)
	if err != nil {
		h.log.Warn("Bad stylesheet reference", zap.String("ref", ref), zap.Error(err))
		return "", "", false
	}
	data, status, err := h.opts.Fetcher.Fetch(ctx, abs)
	switch {
	case err != nil:
		h.log.Warn("Unable to load stylesheet", zap.String("url", abs), zap.Error(err))
		return "", "", false
	case status < 200 || status > 299:
		h.log.Warn("Unable to load stylesheet", zap.String("url", abs), zap.Int("status", status))
		return "", "", false
	}
	return string(data), abs, true
}

// ComputedStyle implements dom.Host.
func (h *Host) ComputedStyle(ctx context.Context, n *html.Node, pseudo string) (dom.Style, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if n == nil || n.Type != html.ElementNode {
		return nil, errors.New("not an element")
	}
	r, err := h.resolve(n, normalizePseudo(pseudo), false)
	if err != nil {
		return nil, err
	}
	return slices.Clone(r.style), nil
}

// DefaultStyle implements dom.Host. Only user agent rules apply to the
// detached element created for the tag.
func (h *Host) DefaultStyle(ctx context.Context, tag string) (dom.Style, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tag = strings.ToLower(strings.TrimSpace(tag))
	if tag == "" {
		return nil, errors.New("empty tag name")
	}
	n := &html.Node{Type: html.ElementNode, DataAtom: atom.Lookup([]byte(tag)), Data: tag}
	r, err := h.resolve(n, "", true)
	if err != nil {
		return nil, err
	}
	return r.style, nil
}

// ClientSize implements dom.Host. Lengths in pixels are honored, otherwise
// element is assumed to fill the viewport width less its margins.
func (h *Host) ClientSize(ctx context.Context, n *html.Node) (int, int, error) {
	st, err := h.ComputedStyle(ctx, n, "")
	if err != nil {
		return 0, 0, err
	}
	m := st.Map()
	if m["display"] == "none" {
		return 0, 0, nil
	}
	px := func(name string) (int, bool) {
		v := m[name]
		if !strings.HasSuffix(v, "px") {
			return 0, false
		}
		return dom.ParseInt(v), true
	}
	padding := func(a, b string) int {
		pa, _ := px(a)
		pb, _ := px(b)
		return pa + pb
	}

	w, ok := px("width")
	if ok {
		if m["box-sizing"] != "border-box" {
			w += padding("padding-left", "padding-right")
		}
	} else {
		ml, _ := px("margin-left")
		mr, _ := px("margin-right")
		w = h.opts.ViewportWidth - ml - mr
	}
	hgt, ok := px("height")
	if ok {
		if m["box-sizing"] != "border-box" {
			hgt += padding("padding-top", "padding-bottom")
		}
	} else {
		hgt = h.opts.ViewportHeight
	}
	return max(w, 0), max(hgt, 0), nil
}

// StyleSheets implements dom.Host.
func (h *Host) StyleSheets(ctx context.Context) ([]dom.StyleSource, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return slices.Clone(h.sources), nil
}

func normalizePseudo(pseudo string) string {
	p := strings.ToLower(strings.TrimLeft(strings.TrimSpace(pseudo), ":"))
	if p == "" {
		return ""
	}
	return "::" + p
}

func (h *Host) resolve(n *html.Node, pseudo string, uaOnly bool) (*resolved, error) {
	key := styleKey{n: n, pseudo: pseudo}
	if !uaOnly {
		h.mu.Lock()
		r, ok := h.cache[key]
		h.mu.Unlock()
		if ok {
			return r, nil
		}
	}

	var parent map[string]string
	switch {
	case pseudo != "":
		p, err := h.resolve(n, "", uaOnly)
		if err != nil {
			return nil, err
		}
		parent = p.values
	case n.Parent != nil && n.Parent.Type == html.ElementNode:
		p, err := h.resolve(n.Parent, "", uaOnly)
		if err != nil {
			return nil, err
		}
		parent = p.values
	}

	cascaded := h.cascade(n, pseudo, uaOnly)
	r := compute(cascaded, parent, pseudo)

	if !uaOnly {
		h.mu.Lock()
		h.cache[key] = r
		h.mu.Unlock()
	}
	return r, nil
}

// compute turns cascaded values into resolved style applying defaulting
// keywords and inheritance.
func compute(cascaded map[string]propState, parent map[string]string, pseudo string) *resolved {
	values := make(map[string]string, len(properties)+len(cascaded))
	fromParent := func(p property) string {
		if v, ok := parent[p.name]; ok {
			return v
		}
		return p.initial
	}

	for _, p := range properties {
		st, ok := cascaded[p.name]
		switch {
		case !ok:
			if p.inherited {
				values[p.name] = fromParent(p)
			} else {
				values[p.name] = p.initial
			}
		default:
			switch strings.ToLower(st.value) {
			case "inherit":
				values[p.name] = fromParent(p)
			case "initial":
				values[p.name] = p.initial
			case "unset", "revert":
				if p.inherited {
					values[p.name] = fromParent(p)
				} else {
					values[p.name] = p.initial
				}
			default:
				values[p.name] = st.value
			}
		}
	}

	// border of no style has no width
	for _, prefix := range []string{"border-top", "border-right", "border-bottom", "border-left", "outline"} {
		switch values[prefix+"-style"] {
		case "none", "hidden":
			values[prefix+"-width"] = "0px"
		}
	}

	switch pseudo {
	case "::before", "::after":
		switch values["content"] {
		case "normal", "none", "":
			values["content"] = "none"
		}
	}

	style := make(dom.Style, 0, len(values))
	for _, p := range properties {
		style = append(style, dom.Property{Name: p.name, Value: values[p.name]})
	}

	var extra []string
	for name := range cascaded {
		if _, known := lookupProperty(name); !known {
			extra = append(extra, name)
		}
	}
	slices.Sort(extra)
	for _, name := range extra {
		v := cascaded[name].value
		values[name] = v
		style = append(style, dom.Property{Name: name, Value: v})
	}
	return &resolved{style: style, values: values}
}

// String is used in debug output.
// WriteTo writes author stylesheets in cascade order with references already
// resolved, implementing io.WriterTo.
func (h *Host) WriteTo(w io.Writer) (int64, error) {
	var total int64
	for i, sheet := range h.sheets {
		n, err := fmt.Fprintf(w, "/* %s */\n", h.sources[i].BaseURL)
		total += int64(n)
		if err != nil {
			return total, err
		}
		m, err := sheet.WriteTo(w)
		total += m
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func (h *Host) String() string {
	return fmt.Sprintf("static host (%d stylesheets, %d rules)", len(h.sources), len(h.rules))
}
