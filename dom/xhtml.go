package dom

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/beevik/etree"
	"golang.org/x/net/html"
)

const (
	NamespaceXHTML = "http://www.w3.org/1999/xhtml"
	NamespaceSVG   = "http://www.w3.org/2000/svg"
	NamespaceMath  = "http://www.w3.org/1998/Math/MathML"
	NamespaceXLink = "http://www.w3.org/1999/xlink"
)

// ToXHTML converts element subtree into an XML document which root element
// carries XHTML namespace. Attributes which cannot be represented in XML are
// dropped, comments are kept.
func ToXHTML(root *html.Node) (*etree.Document, error) {
	if root == nil || root.Type != html.ElementNode {
		return nil, fmt.Errorf("unable to serialize: root is not an element")
	}

	doc := etree.NewDocument()
	doc.WriteSettings.CanonicalEndTags = true

	el := doc.CreateElement(TagName(root))
	el.CreateAttr("xmlns", NamespaceXHTML)
	appendAttrs(el, root)
	appendChildren(el, root)
	return doc, nil
}

// SerializeXHTML returns XML text of the element subtree, see ToXHTML.
func SerializeXHTML(root *html.Node) (string, error) {
	doc, err := ToXHTML(root)
	if err != nil {
		return "", err
	}
	out, err := doc.WriteToString()
	if err != nil {
		return "", fmt.Errorf("unable to serialize markup: %w", err)
	}
	return out, nil
}

func appendChildren(parent *etree.Element, n *html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.TextNode:
			parent.CreateText(xmlText(c.Data))
		case html.CommentNode:
			if text := xmlText(c.Data); validXMLComment(text) {
				parent.CreateComment(text)
			}
		case html.ElementNode:
			tag := xmlTag(c)
			if !validXMLName(tag) {
				continue
			}
			el := parent.CreateElement(tag)
			switch {
			case c.Namespace == "svg" && n.Namespace != "svg":
				el.CreateAttr("xmlns", NamespaceSVG)
			case c.Namespace == "math" && n.Namespace != "math":
				el.CreateAttr("xmlns", NamespaceMath)
			}
			appendAttrs(el, c)
			appendChildren(el, c)
		}
	}
}

func appendAttrs(el *etree.Element, n *html.Node) {
	for _, a := range n.Attr {
		switch {
		case a.Key == "xmlns" || strings.HasPrefix(a.Key, "xmlns:"):
			// namespaces are declared by serializer
		case a.Namespace == "xlink":
			if el.SelectAttr("xmlns:xlink") == nil {
				el.CreateAttr("xmlns:xlink", NamespaceXLink)
			}
			el.CreateAttr("xlink:"+a.Key, xmlText(a.Val))
		case a.Namespace == "xml":
			el.CreateAttr("xml:"+a.Key, xmlText(a.Val))
		case a.Namespace == "" && validXMLName(a.Key):
			el.CreateAttr(a.Key, xmlText(a.Val))
		}
	}
}

// xmlTag keeps case of foreign (SVG, MathML) element names which the HTML
// parser has already adjusted.
func xmlTag(n *html.Node) string {
	if n.Namespace != "" {
		return n.Data
	}
	return TagName(n)
}

// validXMLComment reports whether s could be put between <!-- and --> in
// XML: it must not contain "--" and must not end with "-".
func validXMLComment(s string) bool {
	return !strings.Contains(s, "--") && !strings.HasSuffix(s, "-")
}

// validXMLName reports whether s is usable as unprefixed XML name.
func validXMLName(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || unicode.IsLetter(r):
		case i > 0 && (r == '-' || r == '.' || unicode.IsDigit(r)):
		default:
			return false
		}
	}
	return !strings.HasPrefix(strings.ToLower(s), "xml")
}

// xmlText removes characters not allowed in XML documents.
func xmlText(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\t' || r == '\n' || r == '\r':
			return r
		case r < 0x20, r == 0xFFFE, r == 0xFFFF, r >= 0xD800 && r <= 0xDFFF:
			return -1
		}
		return r
	}, s)
}
