package snapshot

import (
	"context"
	"fmt"

	"golang.org/x/net/html"

	"htmlsnap/css"
	"htmlsnap/dom"
)

// Extractor produces per element rules: difference between element resolved
// style and default style of its tag, and styles of its pseudo-elements.
// Extractor belongs to a single run.
type Extractor struct {
	host        dom.Host
	baselines   *BaselineCache
	tokens      *Allocator
	placeholder bool

	assigned map[*html.Node]string
	tags     []string
	seenTags map[string]bool
}

func NewExtractor(host dom.Host, baselines *BaselineCache, tokens *Allocator, placeholder bool) *Extractor {
	if baselines == nil {
		baselines = NewBaselineCache(host)
	}
	if tokens == nil {
		tokens = NewAllocator(DefaultTokenPrefix)
	}
	return &Extractor{
		host:        host,
		baselines:   baselines,
		tokens:      tokens,
		placeholder: placeholder,
		assigned:    make(map[*html.Node]string),
		seenTags:    make(map[string]bool),
	}
}

// Token returns class token of clone, allocating one on first request.
func (e *Extractor) Token(clone *html.Node) string {
	if t, ok := e.assigned[clone]; ok {
		return t
	}
	t := e.tokens.Next()
	e.assigned[clone] = t
	return t
}

// Assigned returns token of clone if it has one.
func (e *Extractor) Assigned(clone *html.Node) (string, bool) {
	t, ok := e.assigned[clone]
	return t, ok
}

// Tags returns tags whose baselines were consulted, in order of first use.
func (e *Extractor) Tags() []string {
	return e.tags
}

// Extract returns rule selecting the clone token with every non ignored
// property of original whose value differs from the tag baseline. All
// declarations are forced. Rule may have no declarations.
func (e *Extractor) Extract(ctx context.Context, original, clone *html.Node) (css.Rule, error) {
	tag := dom.TagName(original)
	st, err := e.host.ComputedStyle(ctx, original, "")
	if err != nil {
		return css.Rule{}, fmt.Errorf("unable to resolve style of <%s>: %w", tag, err)
	}
	base, err := e.baselines.Baseline(ctx, tag)
	if err != nil {
		return css.Rule{}, err
	}
	if !e.seenTags[tag] {
		e.seenTags[tag] = true
		e.tags = append(e.tags, tag)
	}

	rule := css.Rule{Selector: "." + e.Token(clone)}
	seen := make(map[string]bool, len(st))
	for _, p := range st {
		if Ignored(p.Name) || seen[p.Name] {
			continue
		}
		seen[p.Name] = true
		if v, ok := base[p.Name]; ok && v == p.Value {
			continue
		}
		rule.Declarations = append(rule.Declarations, css.Declaration{Property: p.Name, Value: p.Value, Important: true})
	}
	return rule, nil
}
