package xmlutil

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"strings"

	ierr "github.com/petshopone/fiscal-service/internal/errors"
)

// Node is a namespace-tolerant XML element tree. Fiscal documents in
// the wild arrive with and without the portal namespace, with prefixes,
// or with none at all, so every lookup matches on local name only.
type Node struct {
	Name     string
	Attrs    map[string]string
	Text     string
	Children []*Node
}

// Parse builds the element tree for an XML document
func Parse(data []byte) (*Node, error) {
	decoder := xml.NewDecoder(bytes.NewReader(data))

	var root *Node
	var stack []*Node

	for {
		token, err := decoder.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, ierr.WithError(err).
				WithMessage("failed to parse xml document").
				Mark(ierr.ErrMalformedResponse)
		}

		switch t := token.(type) {
		case xml.StartElement:
			node := &Node{
				Name:  t.Name.Local,
				Attrs: make(map[string]string, len(t.Attr)),
			}
			for _, attr := range t.Attr {
				node.Attrs[attr.Name.Local] = attr.Value
			}
			if len(stack) == 0 {
				if root != nil {
					return nil, ierr.NewError("multiple root elements").
						Mark(ierr.ErrMalformedResponse)
				}
				root = node
			} else {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, node)
			}
			stack = append(stack, node)
		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].Text += string(t)
			}
		}
	}

	if root == nil {
		return nil, ierr.NewError("empty xml document").
			Mark(ierr.ErrMalformedResponse)
	}
	return root, nil
}

// TrimmedText returns the element text with surrounding whitespace removed
func (n *Node) TrimmedText() string {
	return strings.TrimSpace(n.Text)
}

// Attr returns an attribute value by local name, or "" when absent
func (n *Node) Attr(name string) string {
	if n == nil {
		return ""
	}
	return n.Attrs[name]
}

// Child returns the first direct child with the given local name
func (n *Node) Child(name string) *Node {
	if n == nil {
		return nil
	}
	for _, child := range n.Children {
		if child.Name == name {
			return child
		}
	}
	return nil
}

// Find returns the first descendant (including n itself) with the given
// local name, in document order
func (n *Node) Find(name string) *Node {
	if n == nil {
		return nil
	}
	if n.Name == name {
		return n
	}
	for _, child := range n.Children {
		if found := child.Find(name); found != nil {
			return found
		}
	}
	return nil
}

// FindAll returns every descendant (including n itself) with the given
// local name, in document order
func (n *Node) FindAll(name string) []*Node {
	if n == nil {
		return nil
	}
	var out []*Node
	if n.Name == name {
		out = append(out, n)
	}
	for _, child := range n.Children {
		out = append(out, child.FindAll(name)...)
	}
	return out
}

// TextOf returns the trimmed text of the first descendant with the
// given local name, or "" when absent
func (n *Node) TextOf(name string) string {
	found := n.Find(name)
	if found == nil {
		return ""
	}
	return found.TrimmedText()
}
