// Package snapshot captures resolved presentation of a document subtree into
// a self-contained, style inlined clone and exports it as a raster page.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/beevik/etree"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"htmlsnap/common"
	"htmlsnap/dom"
	"htmlsnap/export"
	"htmlsnap/fonts"
)

// ErrRunFinished is returned by Step of a run which already completed or
// failed.
var ErrRunFinished = errors.New("run finished")

// Options control a pipeline. Zero value is usable: fonts are not inlined,
// run state is created per run, rasterization is done by host when it is
// able to, and the result is exported to PDF.
type Options struct {
	Log *zap.Logger

	TokenPrefix string
	Placeholder bool

	// Fonts inlines @font-face payloads of host stylesheets, nil disables
	// inlining.
	Fonts *fonts.Inliner

	// Run state, shared with other runs only when set explicitly.
	Baselines *BaselineCache
	FontCache *fonts.Cache
	Tokens    *Allocator

	Rasterizer  export.Rasterizer
	Paginator   export.PaginatorFactory
	Scale       float64
	Orientation common.Orientation
	// JPEGQuality > 0 embeds raster into exported document as JPEG instead
	// of PNG.
	JPEGQuality int

	// OnProgress is called synchronously for every progress report.
	OnProgress func(Progress)
}

// Pipeline captures subtrees of documents known to host.
type Pipeline struct {
	host dom.Host
	opts Options
	log  *zap.Logger
}

func New(host dom.Host, opts Options) *Pipeline {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Scale <= 0 {
		opts.Scale = 1.0
	}
	return &Pipeline{host: host, opts: opts, log: log.Named("snapshot")}
}

// Result is everything produced by a run.
type Result struct {
	Clone      *html.Node
	Pairs      int
	Sheet      *Sheet
	Stylesheet string
	Markup     string

	Width       int
	Height      int
	Envelope    []byte
	EnvelopeURI string

	Raster    *export.Raster
	RasterURI string

	Document export.Paginator
}

// Run is a single capture in progress. Work is advanced explicitly with Step,
// run is not safe for concurrent use.
type Run struct {
	p    *Pipeline
	root *html.Node

	stage    Stage
	started  time.Time
	extract  *Extractor
	pairs    []dom.NodePair
	next     int
	sheet    *Sheet
	markup   *etree.Document
	listener func(Progress)

	percent float64
	events  []Progress

	result *Result
	err    error
	done   bool
}

// Start prepares a run capturing subtree rooted at element root. Nothing is
// done until Step is called.
func (p *Pipeline) Start(root *html.Node) *Run {
	baselines := p.opts.Baselines
	if baselines == nil {
		baselines = NewBaselineCache(p.host)
	}
	tokens := p.opts.Tokens
	if tokens == nil {
		tokens = NewAllocator(p.opts.TokenPrefix)
	}
	return &Run{
		p:       p,
		root:    root,
		extract: NewExtractor(p.host, baselines, tokens, p.opts.Placeholder),
		sheet:   &Sheet{},
		result:  &Result{},
	}
}

// Step advances run by one unit of work: a whole stage or, during capture,
// a single element. It returns false once the run is over. Context is
// checked before every unit.
func (r *Run) Step(ctx context.Context) (bool, error) {
	if r.done {
		return false, ErrRunFinished
	}
	if r.started.IsZero() {
		r.started = time.Now()
		if r.root == nil || r.root.Type != html.ElementNode {
			return r.fail(fmt.Errorf("capture root is not an element"))
		}
	}
	if err := ctx.Err(); err != nil {
		return r.fail(err)
	}

	stage := r.stage
	var err error
	switch stage {
	case StageClone:
		err = r.clone(ctx)
	case StageFonts:
		err = r.inlineFonts(ctx)
	case StageCapture:
		err = r.capture(ctx)
	case StageAssemble:
		err = r.assemble()
	case StageAttach:
		attach(r.result.Clone, r.result.Stylesheet)
	case StageSerialize:
		err = r.serialize()
	case StageEnvelope:
		err = r.envelope(ctx)
	case StageRasterize:
		err = r.rasterize(ctx)
	case StageExport:
		err = r.export()
	}
	if err != nil {
		return r.fail(fmt.Errorf("%s: %w", stage, err))
	}

	// capture reports and completes itself once all pairs are visited
	if stage != StageCapture {
		r.report(Progress{Stage: stage, Percent: stage.end(), Status: stage.Status()})
		r.stage = stage + 1
	}
	if r.stage.valid() {
		return true, nil
	}

	r.done = true
	r.p.log.Debug("Capture completed",
		zap.Int("elements", r.result.Pairs),
		zap.Int("rules", r.sheet.Len()),
		zap.Duration("elapsed", time.Since(r.started)))
	return false, nil
}

func (r *Run) fail(err error) (bool, error) {
	r.done = true
	r.err = err
	return false, err
}

func (r *Run) report(p Progress) {
	if p.Percent < r.percent {
		p.Percent = r.percent
	}
	r.percent = p.Percent
	r.events = append(r.events, p)
	if r.p.opts.OnProgress != nil {
		r.p.opts.OnProgress(p)
	}
	if r.listener != nil {
		r.listener(p)
	}
}

// Events returns progress reports produced since previous call.
func (r *Run) Events() []Progress {
	ev := r.events
	r.events = nil
	return ev
}

// Result returns outcome of a finished run.
func (r *Run) Result() (*Result, error) {
	if !r.done {
		return nil, fmt.Errorf("run is not finished")
	}
	if r.err != nil {
		return nil, r.err
	}
	return r.result, nil
}

func (r *Run) clone(ctx context.Context) error {
	if imp, ok := r.p.host.(dom.Importer); ok {
		clone, err := imp.Import(ctx, r.root)
		if err != nil {
			return fmt.Errorf("unable to import subtree: %w", err)
		}
		r.result.Clone = clone
		r.pairs = dom.Pairs(r.root, clone)
	} else {
		r.result.Clone, r.pairs = dom.CloneWithPairs(r.root)
	}
	r.result.Pairs = len(r.pairs)

	if sr, ok := r.p.host.(dom.StateReader); ok {
		for _, pair := range r.pairs {
			st, err := sr.LiveState(ctx, pair.Original)
			if err != nil {
				return fmt.Errorf("unable to read element state: %w", err)
			}
			dom.ApplyState(pair.Clone, st)
		}
	}
	return nil
}

func (r *Run) inlineFonts(ctx context.Context) error {
	if r.p.opts.Fonts == nil {
		return nil
	}
	sources, err := r.p.host.StyleSheets(ctx)
	if err != nil {
		return fmt.Errorf("unable to list stylesheets: %w", err)
	}
	cache := r.p.opts.FontCache
	if cache == nil {
		cache = fonts.NewCache()
	}
	faces, err := r.p.opts.Fonts.Inline(ctx, sources, cache)
	if err != nil {
		return err
	}
	r.sheet.Fonts = faces
	return nil
}

// capture handles one pair per call.
func (r *Run) capture(ctx context.Context) error {
	total := len(r.pairs)
	if r.next < total {
		pair := r.pairs[r.next]
		rule, err := r.extract.Extract(ctx, pair.Original, pair.Clone)
		if err != nil {
			return err
		}
		pseudo, err := r.extract.Pseudo(ctx, pair.Original, pair.Clone)
		if err != nil {
			return err
		}
		r.sheet.Diffs = append(r.sheet.Diffs, rule)
		r.sheet.Pseudos = append(r.sheet.Pseudos, pseudo...)
		r.next++
	}

	start, end := StageCapture.start(), StageCapture.end()
	percent := end
	if r.next < total {
		percent = start + (end-start)*float64(r.next)/float64(total)
	}
	r.report(Progress{Stage: StageCapture, Percent: percent, Status: StageCapture.Status(), Done: r.next, Total: total})
	if r.next >= total {
		r.stage++
	}
	return nil
}

func (r *Run) assemble() error {
	for _, tag := range r.extract.Tags() {
		// baselines were resolved during capture, this never calls host
		rule, err := r.extract.baselines.Rule(context.Background(), tag)
		if err != nil {
			return err
		}
		r.sheet.Baselines = append(r.sheet.Baselines, rule)
	}
	retokenize(r.result.Clone, r.extract.Assigned)
	r.result.Sheet = r.sheet
	r.result.Stylesheet = r.sheet.String()
	return nil
}

func (r *Run) serialize() error {
	doc, err := dom.ToXHTML(r.result.Clone)
	if err != nil {
		return err
	}
	markup, err := doc.WriteToString()
	if err != nil {
		return fmt.Errorf("unable to serialize markup: %w", err)
	}
	r.markup = doc
	r.result.Markup = markup
	return nil
}

func (r *Run) envelope(ctx context.Context) error {
	cw, ch, err := r.p.host.ClientSize(ctx, r.root)
	if err != nil {
		return fmt.Errorf("unable to get client size: %w", err)
	}
	st, err := r.p.host.ComputedStyle(ctx, r.root, "")
	if err != nil {
		return fmt.Errorf("unable to resolve style of capture root: %w", err)
	}
	w, h := export.EnvelopeSize(cw, ch, st)
	env, err := export.Envelope(r.markup, w, h)
	if err != nil {
		return err
	}
	r.result.Width, r.result.Height = w, h
	r.result.Envelope = env
	r.result.EnvelopeURI = export.EnvelopeURI(env)
	return nil
}

func (r *Run) rasterizer() export.Rasterizer {
	if r.p.opts.Rasterizer != nil {
		return r.p.opts.Rasterizer
	}
	if rz, ok := r.p.host.(export.Rasterizer); ok {
		return rz
	}
	return export.SVGRasterizer{}
}

func (r *Run) rasterize(ctx context.Context) error {
	raster, err := export.Rasterize(ctx, r.rasterizer(), r.result.Envelope, r.result.Width, r.result.Height, r.p.opts.Scale, r.p.log)
	if err != nil {
		return err
	}
	r.result.Raster = raster
	r.result.RasterURI = raster.URI()
	return nil
}

func (r *Run) export() error {
	factory := r.p.opts.Paginator
	if factory == nil {
		factory = export.NewPDFFactory(export.PDFOptions{})
	}
	doc, err := factory(r.p.opts.Orientation, float64(r.result.Width), float64(r.result.Height))
	if err != nil {
		return err
	}
	uri := r.result.RasterURI
	if q := r.p.opts.JPEGQuality; q > 0 {
		if uri, err = r.result.Raster.JPEGURI(q); err != nil {
			return err
		}
	}
	if err := export.PlaceFullPage(doc, uri); err != nil {
		return err
	}
	r.result.Document = doc
	return nil
}

// Execute runs capture of root to completion yielding the processor between
// steps.
func (p *Pipeline) Execute(ctx context.Context, root *html.Node) (*Result, error) {
	run := p.Start(root)
	for {
		more, err := run.Step(ctx)
		if err != nil {
			return nil, err
		}
		if !more {
			break
		}
		runtime.Gosched()
	}
	return run.Result()
}

// Stream runs capture of root on its own goroutine. Progress reports are
// delivered on returned channel which is closed when run is over; it must be
// drained (or ctx cancelled) for run to make progress. Wait blocks until run
// is over and returns its outcome.
func (p *Pipeline) Stream(ctx context.Context, root *html.Node) (<-chan Progress, func() (*Result, error)) {
	events := make(chan Progress, len(stages))
	done := make(chan struct{})

	run := p.Start(root)
	run.listener = func(pr Progress) {
		select {
		case events <- pr:
		case <-ctx.Done():
		}
	}

	go func() {
		defer close(done)
		defer close(events)
		for {
			more, err := run.Step(ctx)
			if err != nil || !more {
				return
			}
		}
	}()

	return events, func() (*Result, error) {
		<-done
		return run.Result()
	}
}
