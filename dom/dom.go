// Package dom is the document layer of the phoenix editing engine. It wraps
// a parsed golang.org/x/net/html tree with the mutation and introspection
// operations the tracker, locator, and editors need: ordered attributes,
// class lists, inline style properties, direct-text mutation, selector
// generation, and estimated viewport geometry.
//
// The DOM is the single source of truth. Higher layers keep side-tables
// keyed by element id, but every read here reflects the live tree.
package dom

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Document owns one parsed HTML tree and its viewport model.
//
// Document does no locking of its own and is not safe for unsynchronized
// concurrent use. One editing session owns one Document; anything touching
// it from outside the session's message loop, timer callbacks included,
// must coordinate with that loop.
type Document struct {
	root     *html.Node
	viewport Rect
	rects    map[*html.Node]Rect // host-supplied geometry overrides
}

// DefaultViewport is used when the embedding host supplies no geometry.
var DefaultViewport = Rect{Width: 1280, Height: 800}

// Parse reads an HTML document from r.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("dom: parse: %w", err)
	}
	return &Document{
		root:     root,
		viewport: DefaultViewport,
		rects:    make(map[*html.Node]Rect),
	}, nil
}

// ParseString parses an HTML document held in a string.
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

// Viewport returns the current viewport rectangle.
func (d *Document) Viewport() Rect { return d.viewport }

// SetViewport resizes the viewport model. Geometry estimates are derived
// from it on demand, so no re-layout pass is needed.
func (d *Document) SetViewport(width, height float64) {
	d.viewport = Rect{Width: width, Height: height}
}

// Root returns the underlying parse tree root.
func (d *Document) Root() *html.Node { return d.root }

// Body returns the document body, or nil for a body-less fragment.
func (d *Document) Body() *Element {
	n := findFirst(d.root, atom.Body)
	if n == nil {
		return nil
	}
	return &Element{doc: d, n: n}
}

// Render serialises the whole document back to HTML.
func (d *Document) Render() (string, error) {
	var sb strings.Builder
	if err := html.Render(&sb, d.root); err != nil {
		return "", fmt.Errorf("dom: render: %w", err)
	}
	return sb.String(), nil
}

// EachElement visits every element node in document order. Returning false
// from fn stops the walk.
func (d *Document) EachElement(fn func(*Element) bool) {
	var walk func(*html.Node) bool
	walk = func(n *html.Node) bool {
		if n.Type == html.ElementNode {
			if !fn(&Element{doc: d, n: n}) {
				return false
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if !walk(c) {
				return false
			}
		}
		return true
	}
	walk(d.root)
}

// ElementsByTag returns all elements with any of the given (lowercase) tags,
// in document order.
func (d *Document) ElementsByTag(tags ...string) []*Element {
	want := make(map[string]bool, len(tags))
	for _, t := range tags {
		want[t] = true
	}
	var out []*Element
	d.EachElement(func(e *Element) bool {
		if want[e.Tag()] {
			out = append(out, e)
		}
		return true
	})
	return out
}

// FindByAttr returns the first element carrying attribute key with the exact
// value, or nil.
func (d *Document) FindByAttr(key, value string) *Element {
	var found *Element
	d.EachElement(func(e *Element) bool {
		if v, ok := e.Attr(key); ok && v == value {
			found = e
			return false
		}
		return true
	})
	return found
}

// ElementsWithAttr returns every element carrying the attribute key,
// regardless of value.
func (d *Document) ElementsWithAttr(key string) []*Element {
	var out []*Element
	d.EachElement(func(e *Element) bool {
		if _, ok := e.Attr(key); ok {
			out = append(out, e)
		}
		return true
	})
	return out
}

func findFirst(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, a); found != nil {
			return found
		}
	}
	return nil
}

// Attr is one ordered attribute of an element.
type Attr struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Element is a handle on one element node of a Document. Handles are cheap
// and created on demand; two handles refer to the same element iff Same
// reports true.
type Element struct {
	doc *Document
	n   *html.Node
}

// Node exposes the wrapped parse-tree node.
func (e *Element) Node() *html.Node { return e.n }

// Document returns the owning document.
func (e *Element) Document() *Document { return e.doc }

// Same reports whether both handles wrap the same node.
func (e *Element) Same(o *Element) bool {
	return o != nil && e.n == o.n
}

// Tag returns the lowercase tag name.
func (e *Element) Tag() string { return strings.ToLower(e.n.Data) }

// Attr returns the attribute value and whether it is present.
func (e *Element) Attr(key string) (string, bool) {
	for _, a := range e.n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// AttrOr returns the attribute value, or fallback when absent.
func (e *Element) AttrOr(key, fallback string) string {
	if v, ok := e.Attr(key); ok {
		return v
	}
	return fallback
}

// SetAttr sets or replaces an attribute.
func (e *Element) SetAttr(key, value string) {
	for i, a := range e.n.Attr {
		if a.Key == key {
			e.n.Attr[i].Val = value
			return
		}
	}
	e.n.Attr = append(e.n.Attr, html.Attribute{Key: key, Val: value})
}

// RemoveAttr deletes an attribute if present.
func (e *Element) RemoveAttr(key string) {
	for i, a := range e.n.Attr {
		if a.Key == key {
			e.n.Attr = append(e.n.Attr[:i], e.n.Attr[i+1:]...)
			return
		}
	}
}

// Attributes returns all attributes in document order.
func (e *Element) Attributes() []Attr {
	out := make([]Attr, 0, len(e.n.Attr))
	for _, a := range e.n.Attr {
		out = append(out, Attr{Name: a.Key, Value: a.Val})
	}
	return out
}

// ID returns the id attribute, or "".
func (e *Element) ID() string { return e.AttrOr("id", "") }

// ClassName returns the raw class attribute string.
func (e *Element) ClassName() string { return e.AttrOr("class", "") }

// SetClassName replaces the whole class attribute.
func (e *Element) SetClassName(s string) { e.SetAttr("class", s) }

// Classes returns the class list with empty entries dropped.
func (e *Element) Classes() []string {
	return strings.Fields(e.ClassName())
}

// HasClass reports whether the class list contains name.
func (e *Element) HasClass(name string) bool {
	for _, c := range e.Classes() {
		if c == name {
			return true
		}
	}
	return false
}

// AddClass appends a class if not already present.
func (e *Element) AddClass(name string) {
	if name == "" || e.HasClass(name) {
		return
	}
	cls := e.Classes()
	cls = append(cls, name)
	e.SetClassName(strings.Join(cls, " "))
}

// RemoveClass drops a class from the list.
func (e *Element) RemoveClass(name string) {
	cls := e.Classes()
	out := cls[:0]
	for _, c := range cls {
		if c != name {
			out = append(out, c)
		}
	}
	e.SetClassName(strings.Join(out, " "))
}

// Parent returns the parent element, or nil at the tree top.
func (e *Element) Parent() *Element {
	for p := e.n.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode {
			return &Element{doc: e.doc, n: p}
		}
	}
	return nil
}

// Children returns the direct child elements.
func (e *Element) Children() []*Element {
	var out []*Element
	for c := e.n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			out = append(out, &Element{doc: e.doc, n: c})
		}
	}
	return out
}

// Depth counts element ancestors up to (excluding) the body.
func (e *Element) Depth() int {
	depth := 0
	for p := e.Parent(); p != nil && p.n.DataAtom != atom.Body; p = p.Parent() {
		depth++
	}
	return depth
}

// Closest walks from the element upward (self first) and returns the first
// element for which pred is true, stopping at the body. Innermost-first by
// construction.
func (e *Element) Closest(pred func(*Element) bool) *Element {
	for cur := e; cur != nil; cur = cur.Parent() {
		if pred(cur) {
			return cur
		}
		if cur.n.DataAtom == atom.Body {
			break
		}
	}
	return nil
}

// Contains reports whether other is inside e's subtree (self included).
func (e *Element) Contains(other *Element) bool {
	if other == nil {
		return false
	}
	for n := other.n; n != nil; n = n.Parent {
		if n == e.n {
			return true
		}
	}
	return false
}

// Text collects all descendant text, trimmed per node and space-joined,
// skipping script and style subtrees.
func (e *Element) Text() string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				if sb.Len() > 0 {
					sb.WriteByte(' ')
				}
				sb.WriteString(t)
			}
			return
		}
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Noscript:
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(e.n)
	return sb.String()
}

// TextPreview returns the first max characters of the element text.
func (e *Element) TextPreview(max int) string {
	t := e.Text()
	if len(t) > max {
		t = t[:max]
	}
	return strings.TrimSpace(t)
}

// DirectText returns the trimmed non-empty direct text nodes, excluding
// text inside child elements.
func (e *Element) DirectText() []string {
	var out []string
	for c := e.n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			if t := strings.TrimSpace(c.Data); t != "" {
				out = append(out, t)
			}
		}
	}
	return out
}

// SetDirectText updates only the element's direct text, never descendant
// markup: the first direct text node is rewritten when one exists; an
// element without children gets a single text node; otherwise a text node
// is prepended before the first child.
func (e *Element) SetDirectText(value string) {
	for c := e.n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode && strings.TrimSpace(c.Data) != "" {
			c.Data = value
			return
		}
	}
	text := &html.Node{Type: html.TextNode, Data: value}
	if e.n.FirstChild == nil {
		e.n.AppendChild(text)
		return
	}
	e.n.InsertBefore(text, e.n.FirstChild)
}

// HTML serialises the element subtree (outer HTML).
func (e *Element) HTML() string {
	var sb strings.Builder
	if err := html.Render(&sb, e.n); err != nil {
		return ""
	}
	return sb.String()
}

// SelectorPath builds a root-to-element CSS-ish path: "#id" when the element
// has one, else tag(.firstClass) segments joined with " > " down from the
// body.
func (e *Element) SelectorPath() string {
	if id := e.ID(); id != "" {
		return "#" + id
	}
	var path []string
	for cur := e; cur != nil && cur.n.DataAtom != atom.Body; cur = cur.Parent() {
		seg := cur.Tag()
		if cls := cur.Classes(); len(cls) > 0 {
			seg += "." + cls[0]
		}
		path = append([]string{seg}, path...)
	}
	return strings.Join(path, " > ")
}

// ShortSelector builds a compact selector: "#id", or tag plus up to two
// classes.
func (e *Element) ShortSelector() string {
	if id := e.ID(); id != "" {
		return "#" + id
	}
	sel := e.Tag()
	cls := e.Classes()
	if len(cls) > 2 {
		cls = cls[:2]
	}
	if len(cls) > 0 {
		sel += "." + strings.Join(cls, ".")
	}
	return sel
}
