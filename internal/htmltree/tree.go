// Package htmltree builds a compact element tree from sanitized webform HTML.
package htmltree

import (
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Attribute is a single element attribute, kept in document order.
type Attribute struct {
	Key   string
	Value string
}

// Node is one element of the parsed document.
type Node struct {
	Tag      string
	Attrs    []Attribute
	Children []*Node
	// Text is the trimmed content of the last direct text child.
	Text    string
	HasText bool
}

// Attr returns the value of the named attribute.
func (n *Node) Attr(key string) (string, bool) {
	for _, attr := range n.Attrs {
		if attr.Key == key {
			return attr.Value, true
		}
	}
	return "", false
}

// HasAttr reports whether the attribute is present, regardless of value.
func (n *Node) HasAttr(key string) bool {
	_, ok := n.Attr(key)
	return ok
}

// ElementCount returns the number of element children.
func (n *Node) ElementCount() int {
	return len(n.Children)
}

// Parse parses HTML from r and returns the tree rooted at the document element.
func Parse(r io.Reader) (*Node, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, &ParseError{Message: "failed to parse HTML", Cause: err}
	}

	for _, docNode := range doc.Nodes {
		for c := docNode.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode {
				return buildNode(c), nil
			}
		}
	}

	return emptyRoot(), nil
}

// Build parses an HTML string. It never fails: when nothing can be parsed an
// empty html node is returned.
func Build(htmlString string) *Node {
	root, err := Parse(strings.NewReader(htmlString))
	if err != nil {
		return emptyRoot()
	}
	return root
}

func emptyRoot() *Node {
	return &Node{Tag: "html"}
}

func buildNode(n *html.Node) *Node {
	node := &Node{
		Tag:   n.Data,
		Attrs: collectAttrs(n.Attr),
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.ElementNode:
			node.Children = append(node.Children, buildNode(c))
		case html.TextNode:
			node.Text = strings.TrimSpace(c.Data)
			node.HasText = true
		}
	}

	return node
}

// collectAttrs copies attributes verbatim. The first occurrence of a key wins,
// matching how browsers treat duplicated attributes.
func collectAttrs(attrs []html.Attribute) []Attribute {
	if len(attrs) == 0 {
		return nil
	}
	result := make([]Attribute, 0, len(attrs))
	seen := make(map[string]bool, len(attrs))
	for _, attr := range attrs {
		if seen[attr.Key] {
			continue
		}
		seen[attr.Key] = true
		result = append(result, Attribute{Key: attr.Key, Value: attr.Val})
	}
	return result
}
