package snapshot

import (
	"context"
	"fmt"

	"golang.org/x/net/html"

	"htmlsnap/css"
	"htmlsnap/dom"
)

// pseudoElements are always captured, in this order.
var pseudoElements = []string{"::after", "::before"}

const (
	placeholderPseudo = "::placeholder"
	// contentNone is resolved content of a pseudo-element which is not
	// rendered.
	contentNone = "none"
)

// Pseudo returns rules for rendered pseudo-elements of original, selecting
// them on the clone token. Placeholder is considered only when enabled and
// only for elements having one.
func (e *Extractor) Pseudo(ctx context.Context, original, clone *html.Node) ([]css.Rule, error) {
	pseudos := pseudoElements
	if e.placeholder && hasPlaceholder(original) {
		pseudos = append(pseudos[:len(pseudos):len(pseudos)], placeholderPseudo)
	}

	var rules []css.Rule
	for _, pseudo := range pseudos {
		st, err := e.host.ComputedStyle(ctx, original, pseudo)
		if err != nil {
			return nil, fmt.Errorf("unable to resolve style of <%s>%s: %w", dom.TagName(original), pseudo, err)
		}
		if st.Value("content") == contentNone {
			continue
		}
		rule := css.Rule{Selector: "." + e.Token(clone) + pseudo}
		seen := make(map[string]bool, len(st))
		for _, p := range st {
			if Ignored(p.Name) || seen[p.Name] {
				continue
			}
			seen[p.Name] = true
			rule.Declarations = append(rule.Declarations, css.Declaration{Property: p.Name, Value: p.Value, Important: true})
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

func hasPlaceholder(n *html.Node) bool {
	switch dom.TagName(n) {
	case "input", "textarea":
		return true
	}
	return false
}
