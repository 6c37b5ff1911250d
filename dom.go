package tether

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ParseFragment parses markup into a detached container node. The parsed
// nodes are children of the container so structural binders can insert
// markers and siblings next to root elements.
func ParseFragment(src string) (*html.Node, error) {
	context := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(src), context)
	if err != nil {
		return nil, fmt.Errorf("tether: parse fragment: %w", err)
	}
	container := &html.Node{Type: html.DocumentNode}
	for _, node := range nodes {
		container.AppendChild(node)
	}
	return container, nil
}

// Render writes node to w. Document and fragment containers render their
// children only.
func Render(w io.Writer, node *html.Node) error {
	if node == nil {
		return nil
	}
	if node.Type != html.DocumentNode {
		return html.Render(w, node)
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		if err := html.Render(w, child); err != nil {
			return err
		}
	}
	return nil
}

// RenderString renders node into a string.
func RenderString(node *html.Node) string {
	var buf bytes.Buffer
	if err := Render(&buf, node); err != nil {
		return ""
	}
	return buf.String()
}

// Attr returns the value of the attribute named key.
func Attr(node *html.Node, key string) (string, bool) {
	if node == nil {
		return "", false
	}
	for _, attr := range node.Attr {
		if attr.Namespace == "" && attr.Key == key {
			return attr.Val, true
		}
	}
	return "", false
}

// SetAttr sets or adds the attribute named key.
func SetAttr(node *html.Node, key, value string) {
	if node == nil {
		return
	}
	for i := range node.Attr {
		if node.Attr[i].Namespace == "" && node.Attr[i].Key == key {
			node.Attr[i].Val = value
			return
		}
	}
	node.Attr = append(node.Attr, html.Attribute{Key: key, Val: value})
}

// RemoveAttr deletes the attribute named key.
func RemoveAttr(node *html.Node, key string) {
	if node == nil {
		return
	}
	kept := node.Attr[:0]
	for _, attr := range node.Attr {
		if attr.Namespace == "" && attr.Key == key {
			continue
		}
		kept = append(kept, attr)
	}
	node.Attr = kept
}

// TextContent concatenates the text of node and its descendants.
func TextContent(node *html.Node) string {
	if node == nil {
		return ""
	}
	if node.Type == html.TextNode {
		return node.Data
	}
	var b strings.Builder
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		b.WriteString(TextContent(child))
	}
	return b.String()
}

// SetTextContent replaces the children of node with a single text node.
func SetTextContent(node *html.Node, text string) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		node.Data = text
		return
	}
	RemoveChildren(node)
	node.AppendChild(&html.Node{Type: html.TextNode, Data: text})
}

// RemoveChildren detaches every child of node.
func RemoveChildren(node *html.Node) {
	for child := node.FirstChild; child != nil; {
		next := child.NextSibling
		node.RemoveChild(child)
		child = next
	}
}

// Detach removes node from its parent, if any.
func Detach(node *html.Node) {
	if node != nil && node.Parent != nil {
		node.Parent.RemoveChild(node)
	}
}

// CloneNode returns a deep copy of node without a parent.
func CloneNode(node *html.Node) *html.Node {
	if node == nil {
		return nil
	}
	clone := &html.Node{
		Type:      node.Type,
		DataAtom:  node.DataAtom,
		Data:      node.Data,
		Namespace: node.Namespace,
	}
	if len(node.Attr) > 0 {
		clone.Attr = make([]html.Attribute, len(node.Attr))
		copy(clone.Attr, node.Attr)
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		clone.AppendChild(CloneNode(child))
	}
	return clone
}

// Children returns a snapshot of node's children.
func Children(node *html.Node) []*html.Node {
	var out []*html.Node
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		out = append(out, child)
	}
	return out
}

// InputValue reads the DOM side value of a form control.
func InputValue(node *html.Node) any {
	if node == nil || node.Type != html.ElementNode {
		return nil
	}
	switch node.DataAtom {
	case atom.Input:
		kind, _ := Attr(node, "type")
		switch strings.ToLower(kind) {
		case "checkbox", "radio":
			_, checked := Attr(node, "checked")
			return checked
		}
	case atom.Textarea:
		return TextContent(node)
	case atom.Select:
		_, multiple := Attr(node, "multiple")
		var selected []any
		for _, option := range Options(node) {
			if _, ok := Attr(option, "selected"); !ok {
				continue
			}
			if !multiple {
				return OptionValue(option)
			}
			selected = append(selected, OptionValue(option))
		}
		if multiple {
			return selected
		}
		if opts := Options(node); len(opts) > 0 {
			return OptionValue(opts[0])
		}
		return nil
	}
	value, _ := Attr(node, "value")
	return value
}

// Options returns the option elements of a select, including those nested in
// optgroups.
func Options(node *html.Node) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			if child.Type == html.ElementNode && child.DataAtom == atom.Option {
				out = append(out, child)
				continue
			}
			walk(child)
		}
	}
	walk(node)
	return out
}

// OptionValue returns the submitted value of an option element.
func OptionValue(option *html.Node) string {
	if value, ok := Attr(option, "value"); ok {
		return value
	}
	return strings.TrimSpace(TextContent(option))
}
