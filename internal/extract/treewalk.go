package extract

import (
	"strings"

	"golang.org/x/net/html"
)

// The alert template nests price, address and link at varying depths with no
// stable common ancestor. The scanner anchors on "nearest element of a given
// kind following a node in document order", which these helpers provide over
// plain parse-tree nodes so they can be exercised on hand-built trees.

// nextInDocumentOrder returns the node after n in document order: first
// child, else next sibling, else the next sibling of the closest ancestor
// that has one.
func nextInDocumentOrder(n *html.Node) *html.Node {
	if n.FirstChild != nil {
		return n.FirstChild
	}
	for n != nil {
		if n.NextSibling != nil {
			return n.NextSibling
		}
		n = n.Parent
	}
	return nil
}

// followingElements collects up to max elements with the given tag that
// occur after n in document order. max <= 0 means no limit.
func followingElements(n *html.Node, tag string, max int) []*html.Node {
	var out []*html.Node
	for cur := nextInDocumentOrder(n); cur != nil; cur = nextInDocumentOrder(cur) {
		if cur.Type == html.ElementNode && cur.Data == tag {
			out = append(out, cur)
			if max > 0 && len(out) == max {
				break
			}
		}
	}
	return out
}

// ascendToFollowing climbs from n toward the root until some element of the
// given tag follows the current node in document order, then returns the
// index-th such element. Returns nil when no ancestor qualifies or the
// qualifying ancestor has fewer than index+1 following elements.
func ascendToFollowing(n *html.Node, tag string, index int) *html.Node {
	for cur := n; cur != nil; cur = cur.Parent {
		if len(followingElements(cur, tag, 1)) == 0 {
			continue
		}
		found := followingElements(cur, tag, index+1)
		if len(found) > index {
			return found[index]
		}
		return nil
	}
	return nil
}

// nodeText returns the concatenated text content of n's subtree.
func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(cur *html.Node) {
		if cur.Type == html.TextNode {
			b.WriteString(cur.Data)
		}
		for child := cur.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)
	return b.String()
}

// attrValue returns the value of the named attribute, or "".
func attrValue(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}
