package dom

import (
	"fmt"
	"io"
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
)

// ParseDocument parses HTML source, decoding it to UTF-8 using content type
// hint and document meta declarations.
func ParseDocument(r io.Reader, contentType string) (*html.Node, error) {
	utf8r, err := charset.NewReader(r, contentType)
	if err != nil {
		return nil, fmt.Errorf("unable to detect document encoding: %w", err)
	}
	doc, err := html.Parse(utf8r)
	if err != nil {
		return nil, fmt.Errorf("unable to parse document: %w", err)
	}
	return doc, nil
}

// Select returns first element matching CSS selector.
func Select(root *html.Node, selector string) (*html.Node, error) {
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("bad selector %q: %w", selector, err)
	}
	n := cascadia.Query(root, sel)
	if n == nil {
		return nil, fmt.Errorf("nothing matches selector %q", selector)
	}
	return n, nil
}

// Title returns text of document title element.
func Title(doc *html.Node) string {
	if t := FindElement(doc, "title"); t != nil {
		return strings.Join(strings.Fields(TextContent(t)), " ")
	}
	return ""
}
