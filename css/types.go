package css

import (
	"fmt"
	"io"
	"regexp"
	"strings"
)

// cssEscapeDoubleQuoted escapes a string for use inside CSS double quotes.
func cssEscapeDoubleQuoted(s string) string {
	if !strings.ContainsAny(s, `"\`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 4)
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Declaration is a single property assignment, in the order it appeared.
type Declaration struct {
	Property  string
	Value     string
	Important bool
}

// String returns declaration as it would appear in a rule, without the
// trailing semicolon.
func (d Declaration) String() string {
	if d.Important {
		return d.Property + ": " + d.Value + " !important"
	}
	return d.Property + ": " + d.Value
}

// Declarations is an ordered list of declarations. Later entries for the same
// property win unless an earlier one is important and the later one is not.
type Declarations []Declaration

// Get returns the effective declaration for the property.
func (ds Declarations) Get(name string) (Declaration, bool) {
	var (
		found Declaration
		ok    bool
	)
	for _, d := range ds {
		if d.Property != name {
			continue
		}
		if ok && found.Important && !d.Important {
			continue
		}
		found, ok = d, true
	}
	return found, ok
}

// MediaQuery represents a parsed @media prelude, for instance
// "print", "not print", "screen and (min-width:600px)".
type MediaQuery struct {
	Raw     string // Original media query string
	Type    string // Media type ("screen", "print", "all") or empty
	Negated bool   // true if "not" modifier was used on main type
	Feature bool   // true if query carries feature conditions
}

// Matches reports whether the query applies to the given media type. Queries
// with feature conditions are never matched since no layout viewport is known
// at cascade time.
func (mq MediaQuery) Matches(medium string) bool {
	if mq.Feature {
		return false
	}
	var typeMatches bool
	switch mq.Type {
	case "", "all":
		typeMatches = true
	default:
		typeMatches = strings.EqualFold(mq.Type, medium)
	}
	if mq.Negated {
		typeMatches = !typeMatches
	}
	return typeMatches
}

// Rule represents a single CSS rule (selector + declarations). Grouped
// selectors are split into separate rules sharing declarations.
type Rule struct {
	Selector     string
	Declarations Declarations
}

// Empty reports whether rule has nothing to declare.
func (r Rule) Empty() bool {
	return len(r.Declarations) == 0
}

// FontFace represents an @font-face block with all of its descriptors.
type FontFace struct {
	Declarations Declarations
}

// Family returns unquoted font-family descriptor.
func (ff FontFace) Family() string {
	if d, ok := ff.Declarations.Get("font-family"); ok {
		return unquote(d.Value)
	}
	return ""
}

// Src returns src descriptor.
func (ff FontFace) Src() string {
	if d, ok := ff.Declarations.Get("src"); ok {
		return d.Value
	}
	return ""
}

// StylesheetItem is a single top-level item in a stylesheet.
// Exactly one of Rule, MediaBlock, FontFace or Import is non-nil.
type StylesheetItem struct {
	Rule       *Rule
	MediaBlock *MediaBlock
	FontFace   *FontFace
	Import     *string
}

// MediaBlock represents a @media block with its query and nested rules.
type MediaBlock struct {
	Query MediaQuery
	Rules []Rule
}

// Stylesheet represents a parsed CSS stylesheet.
type Stylesheet struct {
	Items    []StylesheetItem // All top-level items in source order
	Warnings []string         // Warnings for skipped constructs
}

// Imports returns all @import URLs from the stylesheet in source order.
func (s *Stylesheet) Imports() []string {
	var urls []string
	for _, item := range s.Items {
		if item.Import != nil {
			urls = append(urls, *item.Import)
		}
	}
	return urls
}

// FontFaces returns all @font-face blocks from the stylesheet in source order.
func (s *Stylesheet) FontFaces() []FontFace {
	var faces []FontFace
	for _, item := range s.Items {
		if item.FontFace != nil {
			faces = append(faces, *item.FontFace)
		}
	}
	return faces
}

// Rules returns rules applicable to the medium in source order, rules of
// matching @media blocks included at their position.
func (s *Stylesheet) Rules(medium string) []Rule {
	var rules []Rule
	for _, item := range s.Items {
		switch {
		case item.Rule != nil:
			rules = append(rules, *item.Rule)
		case item.MediaBlock != nil && item.MediaBlock.Query.Matches(medium):
			rules = append(rules, item.MediaBlock.Rules...)
		}
	}
	return rules
}

// urlPattern matches url() references in CSS values.
// Handles: url("path"), url('path'), url(path)
var urlPattern = regexp.MustCompile(`url\s*\(\s*(?:["']([^"']*)["']|([^)"]*))\s*\)`)

// ExtractURLs returns all url() references of a value in order of appearance.
func ExtractURLs(value string) []string {
	var urls []string
	for _, sub := range urlPattern.FindAllStringSubmatch(value, -1) {
		u := sub[1]
		if u == "" {
			u = sub[2]
		}
		if u = strings.TrimSpace(u); u != "" {
			urls = append(urls, u)
		}
	}
	return urls
}

// RewriteURLs replaces url() references in a CSS value string with result of
// fn, always producing double quoted form.
func RewriteURLs(value string, fn func(string) string) string {
	return urlPattern.ReplaceAllStringFunc(value, func(match string) string {
		sub := urlPattern.FindStringSubmatch(match)
		if len(sub) < 3 {
			return match
		}
		// Group 1 is quoted URL, group 2 is unquoted URL
		originalURL := sub[1]
		if originalURL == "" {
			originalURL = sub[2]
		}
		return fmt.Sprintf("url(\"%s\")", cssEscapeDoubleQuoted(fn(strings.TrimSpace(originalURL))))
	})
}

// RewriteURLs walks all URL references in the stylesheet and applies fn to
// each: @import URLs, @font-face descriptors and rule declarations.
func (s *Stylesheet) RewriteURLs(fn func(originalURL string) string) {
	for i := range s.Items {
		item := &s.Items[i]

		switch {
		case item.Import != nil:
			newURL := fn(*item.Import)
			item.Import = &newURL
		case item.FontFace != nil:
			rewriteURLsInDeclarations(item.FontFace.Declarations, fn)
		case item.Rule != nil:
			rewriteURLsInDeclarations(item.Rule.Declarations, fn)
		case item.MediaBlock != nil:
			for j := range item.MediaBlock.Rules {
				rewriteURLsInDeclarations(item.MediaBlock.Rules[j].Declarations, fn)
			}
		}
	}
}

func rewriteURLsInDeclarations(ds Declarations, fn func(string) string) {
	for i := range ds {
		if strings.Contains(ds[i].Value, "url(") {
			ds[i].Value = RewriteURLs(ds[i].Value, fn)
		}
	}
}

// WriteTo writes the stylesheet to w in source order, implementing io.WriterTo.
func (s *Stylesheet) WriteTo(w io.Writer) (int64, error) {
	var total int64
	for _, item := range s.Items {
		var (
			n   int
			err error
		)
		switch {
		case item.Import != nil:
			n, err = fmt.Fprintf(w, "@import url(\"%s\");\n", cssEscapeDoubleQuoted(*item.Import))
		case item.FontFace != nil:
			n, err = WriteFontFace(w, *item.FontFace)
		case item.MediaBlock != nil:
			n, err = writeMediaBlock(w, item.MediaBlock)
		case item.Rule != nil:
			n, err = WriteRule(w, *item.Rule)
		}
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// WriteRule writes a single CSS rule to w, declarations in their order.
func WriteRule(w io.Writer, rule Rule) (int, error) {
	return writeBlock(w, "", rule.Selector, rule.Declarations)
}

// WriteFontFace writes an @font-face block to w.
func WriteFontFace(w io.Writer, ff FontFace) (int, error) {
	return writeBlock(w, "", "@font-face", ff.Declarations)
}

func writeBlock(w io.Writer, indent, head string, ds Declarations) (int, error) {
	var total int
	n, err := fmt.Fprintf(w, "%s%s {\n", indent, head)
	total += n
	if err != nil {
		return total, err
	}
	for _, d := range ds {
		n, err = fmt.Fprintf(w, "%s  %s;\n", indent, d)
		total += n
		if err != nil {
			return total, err
		}
	}
	n, err = fmt.Fprintf(w, "%s}\n", indent)
	total += n
	return total, err
}

func writeMediaBlock(w io.Writer, mb *MediaBlock) (int, error) {
	var total int
	n, err := fmt.Fprintf(w, "@media %s {\n", mb.Query.Raw)
	total += n
	if err != nil {
		return total, err
	}
	for _, rule := range mb.Rules {
		n, err = writeBlock(w, "  ", rule.Selector, rule.Declarations)
		total += n
		if err != nil {
			return total, err
		}
	}
	n, err = fmt.Fprint(w, "}\n")
	total += n
	return total, err
}
