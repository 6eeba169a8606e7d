package dom

import (
	"golang.org/x/net/html"
)

// NodePair binds element of the original tree to its counterpart in clone.
type NodePair struct {
	Original *html.Node
	Clone    *html.Node
}

// Pair walks original and clone in lockstep, pre-order, calling visit for each
// corresponding pair of elements. Only element children are considered. When
// the number of element children differs the walk does not descend into that
// subtree; this is not an error. An error returned by visit stops the walk.
func Pair(original, clone *html.Node, visit func(original, clone *html.Node) error) error {
	if original == nil || clone == nil {
		return nil
	}
	if err := visit(original, clone); err != nil {
		return err
	}
	oc, cc := ElementChildren(original), ElementChildren(clone)
	if len(oc) == 0 || len(oc) != len(cc) {
		return nil
	}
	for i := range oc {
		if err := Pair(oc[i], cc[i], visit); err != nil {
			return err
		}
	}
	return nil
}

// Pairs collects pairs produced by Pair.
func Pairs(original, clone *html.Node) []NodePair {
	var pairs []NodePair
	_ = Pair(original, clone, func(o, c *html.Node) error {
		pairs = append(pairs, NodePair{Original: o, Clone: c})
		return nil
	})
	return pairs
}

// CloneWithPairs deep copies subtree rooted at n (which must be an element)
// and returns the copy detached from any parent together with (original, copy)
// pairs of all elements in pre-order. Since the copy is built in a single
// pass the pairing is always complete.
func CloneWithPairs(n *html.Node) (*html.Node, []NodePair) {
	var pairs []NodePair
	clone := cloneNode(n, &pairs)
	return clone, pairs
}

func cloneNode(n *html.Node, pairs *[]NodePair) *html.Node {
	c := &html.Node{
		Type:      n.Type,
		DataAtom:  n.DataAtom,
		Data:      n.Data,
		Namespace: n.Namespace,
	}
	if len(n.Attr) > 0 {
		c.Attr = make([]html.Attribute, len(n.Attr))
		copy(c.Attr, n.Attr)
	}
	if n.Type == html.ElementNode {
		*pairs = append(*pairs, NodePair{Original: n, Clone: c})
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		c.AppendChild(cloneNode(child, pairs))
	}
	return c
}
