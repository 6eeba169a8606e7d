// Package browser implements host backed by headless Chromium: styles,
// stylesheets and box metrics are those of a real rendering engine.
package browser

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/ysmood/gson"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"htmlsnap/dom"
)

// idAttr marks elements of the live document, original tree is never
// modified.
const idAttr = "data-snap-id"

const (
	defaultViewportWidth  = 1024
	defaultViewportHeight = 768
)

// Options of browser host.
type Options struct {
	Log *zap.Logger
	// BaseURL relative references of the document are resolved against.
	BaseURL string
	// RemoteURL of DevTools endpoint of already running browser, when empty
	// a browser is launched.
	RemoteURL string
	// Bin is browser binary to launch, when empty launcher finds or
	// downloads one.
	Bin            string
	Headless       bool
	ViewportWidth  int
	ViewportHeight int
}

// Host resolves styles in a live browser page showing the document. Calls
// are serialized, host is safe for concurrent use. Close must be called to
// release the browser.
type Host struct {
	log  *zap.Logger
	opts Options

	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
	// scratch is a blank page for baselines and rasterization
	scratch *rod.Page

	mu  sync.Mutex
	ids map[*html.Node]string
}

// New starts (or connects to) browser and loads the document into it.
func New(ctx context.Context, doc *html.Node, opts Options) (h *Host, err error) {
	if doc == nil {
		return nil, errors.New("no document")
	}
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	if opts.ViewportWidth <= 0 {
		opts.ViewportWidth = defaultViewportWidth
	}
	if opts.ViewportHeight <= 0 {
		opts.ViewportHeight = defaultViewportHeight
	}
	h = &Host{log: log.Named("browser-host"), opts: opts}
	defer func() {
		if err != nil {
			err = multierr.Append(err, h.Close())
			h = nil
		}
	}()

	wsURL := opts.RemoteURL
	if wsURL == "" {
		l := launcher.New().Context(ctx).Headless(opts.Headless)
		if opts.Bin != "" {
			l = l.Bin(opts.Bin)
		}
		if wsURL, err = l.Launch(); err != nil {
			return h, fmt.Errorf("unable to launch browser: %w", err)
		}
		h.launcher = l
		h.log.Debug("Launched browser", zap.String("url", wsURL))
	} else {
		h.log.Debug("Connecting to remote browser")
	}

	b := rod.New().ControlURL(wsURL)
	if err = b.Connect(); err != nil {
		return h, fmt.Errorf("unable to connect to browser: %w", err)
	}
	h.browser = b

	if h.scratch, err = h.newPage(h.viewport()); err != nil {
		return h, err
	}
	if err = h.scratch.SetDocumentContent(scratchDocument); err != nil {
		return h, fmt.Errorf("unable to prepare scratch page: %w", err)
	}
	if h.page, err = h.newPage(h.viewport()); err != nil {
		return h, err
	}

	markup, ids, err := tagDocument(doc, opts.BaseURL)
	if err != nil {
		return h, err
	}
	h.ids = ids

	page := h.page.Context(ctx)
	if err = page.SetDocumentContent(markup); err != nil {
		return h, fmt.Errorf("unable to load document: %w", err)
	}
	if err = page.WaitLoad(); err != nil {
		h.log.Warn("Document did not finish loading", zap.Error(err))
		err = nil
	}
	h.log.Debug("Document loaded", zap.Int("elements", len(ids)))
	return h, nil
}

// viewport is the configured size both pages start with.
func (h *Host) viewport() *proto.EmulationSetDeviceMetricsOverride {
	return &proto.EmulationSetDeviceMetricsOverride{
		Width:             h.opts.ViewportWidth,
		Height:            h.opts.ViewportHeight,
		DeviceScaleFactor: 1,
	}
}

func (h *Host) newPage(viewport *proto.EmulationSetDeviceMetricsOverride) (*rod.Page, error) {
	p, err := h.browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, fmt.Errorf("unable to create page: %w", err)
	}
	if err := p.SetViewport(viewport); err != nil {
		return nil, multierr.Append(fmt.Errorf("unable to set viewport: %w", err), p.Close())
	}
	return p, nil
}

// Close releases pages and browser, launched browser is killed.
func (h *Host) Close() error {
	var err error
	for _, p := range []*rod.Page{h.page, h.scratch} {
		if p != nil {
			err = multierr.Append(err, p.Close())
		}
	}
	h.page, h.scratch = nil, nil
	if h.browser != nil {
		err = multierr.Append(err, h.browser.Close())
		h.browser = nil
	}
	if h.launcher != nil {
		h.launcher.Cleanup()
		h.launcher = nil
	}
	return err
}

// tagDocument renders copy of the document with every element carrying
// unique id attribute. When base is set and document has no <base> one is
// added so relative references resolve as in the source location.
func tagDocument(doc *html.Node, base string) (string, map[*html.Node]string, error) {
	clone, pairs := dom.CloneWithPairs(doc)
	ids := make(map[*html.Node]string, len(pairs))
	for i, p := range pairs {
		id := strconv.Itoa(i + 1)
		ids[p.Original] = id
		dom.SetAttr(p.Clone, idAttr, id)
	}
	if base != "" && dom.FindElement(clone, "base") == nil {
		if head := dom.FindElement(clone, "head"); head != nil {
			el := &html.Node{Type: html.ElementNode, DataAtom: atom.Base, Data: "base"}
			dom.SetAttr(el, "href", base)
			head.InsertBefore(el, head.FirstChild)
		}
	}
	var buf bytes.Buffer
	if err := html.Render(&buf, clone); err != nil {
		return "", nil, fmt.Errorf("unable to render document: %w", err)
	}
	return buf.String(), ids, nil
}

func (h *Host) id(n *html.Node) (string, error) {
	if n == nil || n.Type != html.ElementNode {
		return "", errors.New("not an element")
	}
	id, ok := h.ids[n]
	if !ok {
		return "", fmt.Errorf("<%s> does not belong to loaded document", dom.TagName(n))
	}
	return id, nil
}

func (h *Host) eval(ctx context.Context, page *rod.Page, js string, args ...any) (gson.JSON, error) {
	if page == nil {
		return gson.JSON{}, errors.New("host is closed")
	}
	if err := ctx.Err(); err != nil {
		return gson.JSON{}, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	res, err := page.Context(ctx).Eval(js, args...)
	if err != nil {
		return gson.JSON{}, err
	}
	return res.Value, nil
}

func decodeStyle(v gson.JSON) (dom.Style, error) {
	entries := v.Arr()
	st := make(dom.Style, 0, len(entries))
	for _, e := range entries {
		f := e.Arr()
		if len(f) != 3 {
			return nil, fmt.Errorf("unexpected style data: %s", e.JSON("", ""))
		}
		st = append(st, dom.Property{Name: f[0].Str(), Value: f[1].Str(), Priority: f[2].Str()})
	}
	return st, nil
}

// ComputedStyle implements dom.Host.
func (h *Host) ComputedStyle(ctx context.Context, n *html.Node, pseudo string) (dom.Style, error) {
	id, err := h.id(n)
	if err != nil {
		return nil, err
	}
	v, err := h.eval(ctx, h.page, jsComputedStyle, idAttr, id, pseudo)
	if err != nil {
		return nil, fmt.Errorf("unable to get computed style: %w", err)
	}
	if v.Nil() {
		return nil, fmt.Errorf("<%s> is not in live document", dom.TagName(n))
	}
	return decodeStyle(v)
}

// DefaultStyle implements dom.Host, element is created in scratch page.
func (h *Host) DefaultStyle(ctx context.Context, tag string) (dom.Style, error) {
	v, err := h.eval(ctx, h.scratch, jsDefaultStyle, tag)
	if err != nil {
		return nil, fmt.Errorf("unable to get default style of <%s>: %w", tag, err)
	}
	return decodeStyle(v)
}

// ClientSize implements dom.Host.
func (h *Host) ClientSize(ctx context.Context, n *html.Node) (int, int, error) {
	id, err := h.id(n)
	if err != nil {
		return 0, 0, err
	}
	v, err := h.eval(ctx, h.page, jsClientSize, idAttr, id)
	if err != nil {
		return 0, 0, fmt.Errorf("unable to get client size: %w", err)
	}
	if v.Nil() {
		return 0, 0, fmt.Errorf("<%s> is not in live document", dom.TagName(n))
	}
	arr := v.Arr()
	if len(arr) != 2 {
		return 0, 0, fmt.Errorf("unexpected client size data: %s", v.JSON("", ""))
	}
	return arr[0].Int(), arr[1].Int(), nil
}

// StyleSheets implements dom.Host. Sheets browser does not let scripts read
// (cross origin ones) are reported with empty text.
func (h *Host) StyleSheets(ctx context.Context) ([]dom.StyleSource, error) {
	v, err := h.eval(ctx, h.page, jsStyleSheets)
	if err != nil {
		return nil, fmt.Errorf("unable to list stylesheets: %w", err)
	}
	sheets := v.Arr()
	out := make([]dom.StyleSource, 0, len(sheets))
	for _, s := range sheets {
		base := s.Get("base").Str()
		if msg := s.Get("error").Str(); msg != "" {
			h.log.Warn("Stylesheet is not readable", zap.String("href", base), zap.String("error", msg))
		}
		out = append(out, dom.StyleSource{BaseURL: base, Text: s.Get("text").Str()})
	}
	return out, nil
}

// LiveState implements dom.StateReader.
func (h *Host) LiveState(ctx context.Context, n *html.Node) (dom.State, error) {
	id, err := h.id(n)
	if err != nil {
		return dom.State{}, err
	}
	v, err := h.eval(ctx, h.page, jsLiveState, idAttr, id)
	if err != nil {
		return dom.State{}, fmt.Errorf("unable to get element state: %w", err)
	}
	if v.Nil() {
		return dom.State{}, fmt.Errorf("<%s> is not in live document", dom.TagName(n))
	}
	return dom.State{
		Value:      v.Get("value").Str(),
		HasValue:   v.Get("hasValue").Bool(),
		ScrollLeft: v.Get("scrollLeft").Int(),
		ScrollTop:  v.Get("scrollTop").Int(),
	}, nil
}
