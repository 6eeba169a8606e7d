package static

import (
	_ "embed"
	"strings"
	"sync"

	"github.com/andybalholm/cascadia"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"htmlsnap/css"
	"htmlsnap/dom"
)

//go:embed ua.css
var uaCSS []byte

type origin int

const (
	originUA origin = iota
	originAuthor
)

// inlineSpecificity ranks style attribute above any selector.
var inlineSpecificity = cascadia.Specificity{1 << 12, 0, 0}

type rule struct {
	sel    cascadia.Sel
	pseudo string
	spec   cascadia.Specificity
	order  int
	origin origin
	decls  []declaration
}

type declaration struct {
	name      string
	value     string
	important bool
}

// compile turns parsed rules into matchable ones, expanding shorthands.
// Rules with selectors cascadia does not support are skipped.
func compile(rules []css.Rule, o origin, order int, log *zap.Logger) ([]rule, int) {
	out := make([]rule, 0, len(rules))
	for _, r := range rules {
		sel, err := cascadia.ParseWithPseudoElement(r.Selector)
		if err != nil {
			log.Debug("Skipping rule", zap.String("selector", r.Selector), zap.Error(err))
			continue
		}
		pseudo := ""
		if pe := sel.PseudoElement(); pe != "" {
			pseudo = "::" + pe
		}
		out = append(out, rule{
			sel:    sel,
			pseudo: pseudo,
			spec:   sel.Specificity(),
			order:  order,
			origin: o,
			decls:  expandAll(r.Declarations),
		})
		order++
	}
	return out, order
}

func expandAll(ds css.Declarations) []declaration {
	var out []declaration
	for _, d := range ds {
		for _, l := range expand(d.Property, strings.TrimSpace(d.Value)) {
			out = append(out, declaration{name: l[0], value: normalize(l[0], l[1]), important: d.Important})
		}
	}
	return out
}

func normalize(name, value string) string {
	switch name {
	case "font-weight":
		switch strings.ToLower(value) {
		case "normal":
			return "400"
		case "bold":
			return "700"
		}
	case "display", "position", "float", "visibility", "text-align", "font-style", "white-space":
		return strings.ToLower(value)
	}
	return value
}

var (
	uaOnce  sync.Once
	uaRules []rule
)

// userAgentRules returns compiled default stylesheet.
func userAgentRules() []rule {
	uaOnce.Do(func() {
		sheet := css.NewParser(nil).Parse(uaCSS)
		uaRules, _ = compile(sheet.Rules("screen"), originUA, 0, zap.NewNop())
	})
	return uaRules
}

type propState struct {
	value     string
	spec      cascadia.Specificity
	order     int
	origin    origin
	important bool
}

// wins reports whether declaration in state s overrides prev: important
// first, then origin, then specificity, then order of appearance.
func (s propState) wins(prev propState) bool {
	if s.important != prev.important {
		return s.important
	}
	if s.origin != prev.origin {
		return s.origin > prev.origin
	}
	if prev.spec.Less(s.spec) {
		return true
	}
	if s.spec.Less(prev.spec) {
		return false
	}
	return s.order >= prev.order
}

func apply(store map[string]propState, d declaration, st propState) {
	if d.name == "" || d.value == "" {
		return
	}
	st.value, st.important = d.value, d.important
	if prev, ok := store[d.name]; ok && !st.wins(prev) {
		return
	}
	store[d.name] = st
}

// cascade returns winning declarations for element (or its pseudo-element).
func (h *Host) cascade(n *html.Node, pseudo string, uaOnly bool) map[string]propState {
	store := make(map[string]propState)
	sets := [][]rule{userAgentRules()}
	if !uaOnly {
		sets = append(sets, h.rules)
	}
	for _, rules := range sets {
		for _, r := range rules {
			if r.pseudo != pseudo || !r.sel.Match(n) {
				continue
			}
			for _, d := range r.decls {
				apply(store, d, propState{spec: r.spec, order: r.order, origin: r.origin})
			}
		}
	}
	if uaOnly || pseudo != "" {
		return store
	}
	if inline, ok := dom.Attr(n, "style"); ok {
		for i, d := range expandAll(h.parser.ParseInline(inline)) {
			apply(store, d, propState{spec: inlineSpecificity, order: (1 << 30) + i, origin: originAuthor})
		}
	}
	return store
}
