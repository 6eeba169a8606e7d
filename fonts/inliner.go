// Package fonts inlines @font-face payloads referenced by document
// stylesheets as base64 data URIs.
package fonts

import (
	"context"
	"net/url"
	"strings"

	"github.com/h2non/filetype"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"htmlsnap/common"
	"htmlsnap/css"
	"htmlsnap/dom"
	"htmlsnap/utils/datauri"
)

// Inliner collects @font-face blocks of stylesheets and replaces their url()
// references with data URIs.
type Inliner struct {
	fetcher     Fetcher
	mode        common.FontMode
	concurrency int
	log         *zap.Logger
}

// NewInliner creates inliner. In async mode at most concurrency fetches are
// in flight, non-positive value means no limit.
func NewInliner(fetcher Fetcher, mode common.FontMode, concurrency int, log *zap.Logger) *Inliner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Inliner{
		fetcher:     fetcher,
		mode:        mode,
		concurrency: concurrency,
		log:         log.Named("fonts"),
	}
}

// face is a font-face block together with absolute URLs of its references
// keyed by reference text.
type face struct {
	ff       css.FontFace
	resolved map[string]string
}

// Inline returns font-face blocks of all sources in source order with every
// non data url() reference replaced by data URI. Failed fetches produce data
// URI with empty payload. Cache may be nil, then one is created for the call.
func (in *Inliner) Inline(ctx context.Context, sources []dom.StyleSource, cache *Cache) ([]css.FontFace, error) {
	if cache == nil {
		cache = NewCache()
	}

	parser := css.NewParser(in.log)

	var (
		faces  []face
		unique []string
		seen   = make(map[string]bool)
	)
	for _, src := range sources {
		sheet := parser.Parse([]byte(src.Text), src.BaseURL)
		for _, ff := range sheet.FontFaces() {
			f := face{ff: ff, resolved: make(map[string]string)}
			for _, d := range ff.Declarations {
				for _, ref := range css.ExtractURLs(d.Value) {
					if datauri.Is(ref) {
						continue
					}
					abs := resolve(src.BaseURL, ref)
					f.resolved[ref] = abs
					if !seen[abs] {
						seen[abs] = true
						unique = append(unique, abs)
					}
				}
			}
			faces = append(faces, f)
		}
	}

	if err := in.fetchAll(ctx, unique, cache); err != nil {
		return nil, err
	}

	result := make([]css.FontFace, 0, len(faces))
	for _, f := range faces {
		ds := make(css.Declarations, len(f.ff.Declarations))
		copy(ds, f.ff.Declarations)
		for i := range ds {
			if !strings.Contains(ds[i].Value, "url(") {
				continue
			}
			ds[i].Value = css.RewriteURLs(ds[i].Value, func(ref string) string {
				abs, ok := f.resolved[ref]
				if !ok {
					return ref
				}
				uri, _ := cache.Get(abs)
				return uri
			})
		}
		result = append(result, css.FontFace{Declarations: ds})
	}

	in.log.Debug("Fonts inlined",
		zap.Stringer("mode", in.mode),
		zap.Int("faces", len(result)),
		zap.Int("urls", len(unique)))
	return result, nil
}

func (in *Inliner) fetchAll(ctx context.Context, urls []string, cache *Cache) error {
	var pending []string
	for _, u := range urls {
		if _, ok := cache.Get(u); !ok {
			pending = append(pending, u)
		}
	}
	if len(pending) == 0 {
		return nil
	}

	if in.mode != common.FontModeAsync {
		for _, u := range pending {
			if err := ctx.Err(); err != nil {
				return err
			}
			cache.put(u, in.fetch(ctx, u))
		}
		return nil
	}

	uris := make([]string, len(pending))
	g, gctx := errgroup.WithContext(ctx)
	if in.concurrency > 0 {
		g.SetLimit(in.concurrency)
	}
	for i, u := range pending {
		g.Go(func() error {
			uris[i] = in.fetch(gctx, u)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	for i, u := range pending {
		cache.put(u, uris[i])
	}
	return nil
}

// fetch never fails: transport errors and bad statuses produce empty payload.
func (in *Inliner) fetch(ctx context.Context, ref string) string {
	mime := MimeType(ref)

	data, status, err := in.fetcher.Fetch(ctx, ref)
	if err != nil {
		in.log.Warn("Unable to fetch font, using empty payload", zap.String("url", ref), zap.Error(err))
		return datauri.Encode(mime, nil)
	}
	if status < 200 || status > 299 {
		in.log.Warn("Unable to fetch font, using empty payload", zap.String("url", ref), zap.Int("status", status))
		return datauri.Encode(mime, nil)
	}

	if kind, err := filetype.Match(data); err == nil && kind != filetype.Unknown && kind.Extension != Extension(ref) {
		in.log.Debug("Font payload does not match its extension",
			zap.String("url", ref),
			zap.String("detected", kind.MIME.Value))
	}
	in.log.Debug("Font fetched", zap.String("url", ref), zap.Int("bytes", len(data)))
	return datauri.Encode(mime, data)
}

// resolve makes reference absolute against base, reference is returned as is
// when either cannot be parsed.
func resolve(base, ref string) string {
	r, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	if base == "" {
		return r.String()
	}
	b, err := url.Parse(base)
	if err != nil {
		return r.String()
	}
	return b.ResolveReference(r).String()
}
