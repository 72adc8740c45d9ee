package dom

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// NewElement creates a detached element node owned by this document. Attach
// it with AppendChild.
func (d *Document) NewElement(tag string) *Element {
	tag = strings.ToLower(tag)
	return &Element{doc: d, n: &html.Node{
		Type:     html.ElementNode,
		Data:     tag,
		DataAtom: atom.Lookup([]byte(tag)),
	}}
}

// NewText creates a detached text node wrapped in no element; it is only
// useful as a child.
func newTextNode(value string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: value}
}

// AppendChild attaches child as the last child of e. The child must be
// detached.
func (e *Element) AppendChild(child *Element) {
	e.n.AppendChild(child.n)
}

// AppendText appends a text node to e.
func (e *Element) AppendText(value string) {
	e.n.AppendChild(newTextNode(value))
}

// Remove detaches e from its parent. No-op when already detached.
func (e *Element) Remove() {
	if e.n.Parent != nil {
		e.n.Parent.RemoveChild(e.n)
	}
}

// Attached reports whether e is reachable from the document root.
func (e *Element) Attached() bool {
	for n := e.n; n != nil; n = n.Parent {
		if n == e.doc.root {
			return true
		}
	}
	return false
}
