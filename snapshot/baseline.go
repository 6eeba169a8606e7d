package snapshot

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"htmlsnap/css"
	"htmlsnap/dom"
)

type baseline struct {
	style  dom.Style
	values map[string]string
}

// BaselineCache memoizes default styles of tags as reported by host. Every
// tag is resolved at most once. Safe for concurrent use, so it may outlive a
// single run as long as host environment stays the same.
type BaselineCache struct {
	host dom.Host

	mu      sync.Mutex
	entries map[string]*baseline
}

func NewBaselineCache(host dom.Host) *BaselineCache {
	return &BaselineCache{host: host, entries: make(map[string]*baseline)}
}

func (c *BaselineCache) get(ctx context.Context, tag string) (*baseline, error) {
	tag = strings.ToLower(tag)

	c.mu.Lock()
	defer c.mu.Unlock()

	if b, ok := c.entries[tag]; ok {
		return b, nil
	}
	st, err := c.host.DefaultStyle(ctx, tag)
	if err != nil {
		return nil, fmt.Errorf("unable to resolve default style of <%s>: %w", tag, err)
	}
	b := &baseline{style: st, values: st.Map()}
	c.entries[tag] = b
	return b, nil
}

// Baseline returns property to value map of default style of tag. Returned
// map is shared and must not be modified.
func (c *BaselineCache) Baseline(ctx context.Context, tag string) (map[string]string, error) {
	b, err := c.get(ctx, tag)
	if err != nil {
		return nil, err
	}
	return b.values, nil
}

// Rule returns default style of tag as a rule selecting the tag, ignored
// properties are left out and nothing is forced.
func (c *BaselineCache) Rule(ctx context.Context, tag string) (css.Rule, error) {
	b, err := c.get(ctx, tag)
	if err != nil {
		return css.Rule{}, err
	}
	rule := css.Rule{Selector: strings.ToLower(tag)}
	seen := make(map[string]bool, len(b.style))
	for _, p := range b.style {
		if Ignored(p.Name) || seen[p.Name] {
			continue
		}
		seen[p.Name] = true
		rule.Declarations = append(rule.Declarations, css.Declaration{Property: p.Name, Value: p.Value})
	}
	return rule, nil
}

// Len returns number of resolved tags.
func (c *BaselineCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}
