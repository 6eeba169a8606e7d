package css

import (
	"bytes"
	"slices"
	"strings"

	parse "github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
	"go.uber.org/zap"
)

// Parser parses CSS stylesheets and inline style attributes.
type Parser struct {
	log *zap.Logger
}

// NewParser creates a new CSS parser.
func NewParser(log *zap.Logger) *Parser {
	if log == nil {
		log = zap.NewNop()
	}
	return &Parser{log: log.Named("css-parser")}
}

// Parse parses CSS text into a Stylesheet.
// The optional source parameter identifies what's being parsed (for debug logging).
func (p *Parser) Parse(data []byte, source ...string) *Stylesheet {
	sheet := &Stylesheet{
		Items:    make([]StylesheetItem, 0),
		Warnings: make([]string, 0),
	}

	if len(source) > 0 && source[0] != "" {
		p.log.Debug("Parsing CSS", zap.String("source", source[0]), zap.Int("bytes", len(data)))
	}

	parser := css.NewParser(parse.NewInput(bytes.NewReader(data)), false)
	last := -1
	for {
		gt, _, data := parser.Next()

		switch gt {
		case css.ErrorGrammar:
			if recoverable(parser, &last) {
				// parser skips to the end of offending construct
				p.log.Debug("CSS parse error", zap.Error(parser.Err()))
				sheet.Warnings = append(sheet.Warnings, parser.Err().Error())
				continue
			}
			return sheet

		case css.BeginAtRuleGrammar:
			atRule := string(data)
			switch atRule {
			case "@media":
				mq := parseMediaQuery(parser.Values())
				rules := p.parseRuleList(parser)
				p.log.Debug("Parsed @media block", zap.String("query", mq.Raw), zap.Int("rules", len(rules)))
				sheet.Items = append(sheet.Items, StylesheetItem{
					MediaBlock: &MediaBlock{Query: mq, Rules: rules},
				})
			case "@font-face":
				ff := FontFace{Declarations: p.parseDeclarationList(parser)}
				sheet.Items = append(sheet.Items, StylesheetItem{FontFace: &ff})
			default:
				skipAtRuleBlock(parser)
				sheet.Warnings = append(sheet.Warnings, "skipped "+atRule+" block")
				p.log.Debug("Skipping @-rule", zap.String("rule", atRule))
			}

		case css.AtRuleGrammar:
			atRule := string(data)
			if atRule == "@import" {
				if url := extractImportURL(parser.Values()); url != "" {
					sheet.Items = append(sheet.Items, StylesheetItem{Import: &url})
					p.log.Debug("Parsed @import", zap.String("url", url))
				}
			} else {
				p.log.Debug("Skipping @-rule", zap.String("rule", atRule))
			}

		case css.BeginRulesetGrammar:
			selectors := splitSelectors(data, parser.Values())
			decls := p.parseDeclarationList(parser)
			for _, sel := range selectors {
				sheet.Items = append(sheet.Items, StylesheetItem{Rule: &Rule{
					Selector:     sel,
					Declarations: slices.Clone(decls),
				}})
			}
		}
	}
}

// ParseInline parses content of a style attribute.
func (p *Parser) ParseInline(style string) Declarations {
	if strings.TrimSpace(style) == "" {
		return nil
	}
	parser := css.NewParser(parse.NewInput(strings.NewReader(style)), true)
	return p.parseDeclarationList(parser)
}

// parseDeclarationList collects declarations until the end of enclosing block
// or input.
func (p *Parser) parseDeclarationList(parser *css.Parser) Declarations {
	var decls Declarations
	last := -1
	for {
		gt, _, data := parser.Next()

		switch gt {
		case css.EndAtRuleGrammar, css.EndRulesetGrammar:
			return decls
		case css.ErrorGrammar:
			if recoverable(parser, &last) {
				p.log.Debug("CSS declaration error", zap.Error(parser.Err()))
				continue
			}
			return decls
		case css.DeclarationGrammar:
			if d, ok := makeDeclaration(string(data), parser.Values()); ok {
				decls = append(decls, d)
			}
		case css.CustomPropertyGrammar:
			// custom properties are resolved by the host, never emitted
			continue
		}
	}
}

// makeDeclaration converts value tokens into declaration, recognizing
// trailing "!important".
func makeDeclaration(name string, tokens []css.Token) (Declaration, bool) {
	tokens = trimWhitespace(tokens)
	d := Declaration{Property: strings.ToLower(name)}

	if n := len(tokens); n >= 2 &&
		tokens[n-1].TokenType == css.IdentToken && strings.EqualFold(string(tokens[n-1].Data), "important") &&
		tokens[n-2].TokenType == css.DelimToken && string(tokens[n-2].Data) == "!" {
		d.Important = true
		tokens = trimWhitespace(tokens[:n-2])
	}
	if len(tokens) == 0 {
		return d, false
	}
	d.Value = joinTokens(tokens)
	return d, true
}

func trimWhitespace(tokens []css.Token) []css.Token {
	for len(tokens) > 0 && tokens[0].TokenType == css.WhitespaceToken {
		tokens = tokens[1:]
	}
	for len(tokens) > 0 && tokens[len(tokens)-1].TokenType == css.WhitespaceToken {
		tokens = tokens[:len(tokens)-1]
	}
	return tokens
}

func joinTokens(tokens []css.Token) string {
	var sb strings.Builder
	for _, t := range tokens {
		if t.TokenType == css.WhitespaceToken {
			sb.WriteByte(' ')
			continue
		}
		sb.Write(t.Data)
	}
	return strings.TrimSpace(sb.String())
}

// extractImportURL extracts the URL from @import tokens.
// Handles: @import "url"; @import url("url"); @import url(url);
func extractImportURL(tokens []css.Token) string {
	for _, t := range tokens {
		switch t.TokenType {
		case css.StringToken:
			return unquote(string(t.Data))
		case css.URLToken:
			if urls := ExtractURLs(string(t.Data)); len(urls) > 0 {
				return urls[0]
			}
		}
	}
	return ""
}

// splitSelectors splits selector group at top level commas.
func splitSelectors(data []byte, values []css.Token) []string {
	var sb strings.Builder
	sb.Write(data)

	var (
		selectors []string
		level     int
	)
	flush := func() {
		if s := strings.TrimSpace(sb.String()); s != "" {
			selectors = append(selectors, s)
		}
		sb.Reset()
	}
	for _, v := range values {
		switch v.TokenType {
		case css.FunctionToken, css.LeftParenthesisToken, css.LeftBracketToken:
			level++
		case css.RightParenthesisToken, css.RightBracketToken:
			level--
		case css.CommaToken:
			if level == 0 {
				flush()
				continue
			}
		}
		sb.Write(v.Data)
	}
	flush()
	return selectors
}

// skipAtRuleBlock skips tokens until the matching end of an @-rule block.
func skipAtRuleBlock(parser *css.Parser) {
	depth, last := 1, -1
	for depth > 0 {
		gt, _, _ := parser.Next()
		switch gt {
		case css.ErrorGrammar:
			if !recoverable(parser, &last) {
				return
			}
		case css.BeginAtRuleGrammar, css.BeginRulesetGrammar:
			depth++
		case css.EndAtRuleGrammar, css.EndRulesetGrammar:
			depth--
		}
	}
}

// parseMediaQuery parses a media query from CSS tokens.
// Format: [not|only] type [and (feature)]...
func parseMediaQuery(tokens []css.Token) MediaQuery {
	mq := MediaQuery{Raw: joinTokens(trimWhitespace(tokens))}

	for _, t := range tokens {
		switch t.TokenType {
		case css.LeftParenthesisToken:
			mq.Feature = true
		case css.IdentToken:
			switch ident := strings.ToLower(string(t.Data)); ident {
			case "not":
				mq.Negated = true
			case "only", "and":
			default:
				if mq.Type == "" {
					mq.Type = ident
				}
			}
		}
	}
	return mq
}

// parseRuleList parses rules inside an @media block and returns them.
func (p *Parser) parseRuleList(parser *css.Parser) []Rule {
	var rules []Rule
	last := -1
	for {
		gt, _, data := parser.Next()

		switch gt {
		case css.EndAtRuleGrammar:
			return rules
		case css.ErrorGrammar:
			if !recoverable(parser, &last) {
				return rules
			}
		case css.BeginAtRuleGrammar:
			skipAtRuleBlock(parser)
		case css.BeginRulesetGrammar:
			selectors := splitSelectors(data, parser.Values())
			decls := p.parseDeclarationList(parser)
			for _, sel := range selectors {
				rules = append(rules, Rule{Selector: sel, Declarations: slices.Clone(decls)})
			}
		}
	}
}

// recoverable reports whether parsing may continue after ErrorGrammar: there
// has to be a parse error (not end of input) and parser has to make progress.
func recoverable(parser *css.Parser, last *int) bool {
	if !parser.HasParseError() {
		return false
	}
	off := parser.Offset()
	if off == *last {
		return false
	}
	*last = off
	return true
}

// unquote removes surrounding quotes from a string.
func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) < 2 {
		return s
	}
	if (s[0] == '"' && s[len(s)-1] == '"') ||
		(s[0] == '\'' && s[len(s)-1] == '\'') {
		return s[1 : len(s)-1]
	}
	return s
}
