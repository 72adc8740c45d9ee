package dom

import (
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Rect is a viewport-space rectangle. Geometry here is a best-effort model:
// the engine has no layout pass, so rects are either host-supplied or
// estimated from document structure. Callers must treat them as a
// point-in-time cache and re-read before positioning.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

const (
	blockPadding = 8
	lineHeight   = 24
	inlineHeight = 20
	charWidth    = 8
)

// SetRect records host-supplied geometry for an element. Hosts that render
// the document (a real browser, a layout service) should feed real rects;
// everything else falls back to the flow estimate.
func (d *Document) SetRect(e *Element, r Rect) {
	d.rects[e.n] = r
}

// ClearRects drops all host-supplied geometry.
func (d *Document) ClearRects() {
	d.rects = make(map[*html.Node]Rect)
}

// Rect returns the element's rectangle: the host override when present,
// else a deterministic flow estimate (blocks stack vertically inside their
// parent, inline elements size by text length). Estimates are clamped to
// the viewport.
func (d *Document) Rect(e *Element) Rect {
	if r, ok := d.rects[e.n]; ok {
		return r
	}
	if e.n.DataAtom == atom.Body || e.n.DataAtom == atom.Html {
		return d.viewport
	}
	parent := e.Parent()
	if parent == nil {
		return d.viewport
	}
	pr := d.Rect(parent)

	if isInlineTag(e.Tag()) {
		w := float64(len(e.Text()))*charWidth + 2*blockPadding
		if w > pr.Width {
			w = pr.Width
		}
		return Rect{X: pr.X + blockPadding, Y: pr.Y + 4, Width: w, Height: inlineHeight}
	}

	y := pr.Y + blockPadding
	for _, sib := range parent.Children() {
		if sib.n == e.n {
			break
		}
		y += d.estimateHeight(sib)
	}
	r := Rect{
		X:      pr.X + blockPadding,
		Y:      y,
		Width:  pr.Width - 2*blockPadding,
		Height: d.estimateHeight(e),
	}
	if r.Width > d.viewport.Width {
		r.Width = d.viewport.Width
	}
	if r.Height > d.viewport.Height {
		r.Height = d.viewport.Height
	}
	return r
}

func (d *Document) estimateHeight(e *Element) float64 {
	if r, ok := d.rects[e.n]; ok {
		return r.Height
	}
	if isInlineTag(e.Tag()) {
		return inlineHeight
	}
	h := float64(lineHeight)
	for _, c := range e.Children() {
		h += d.estimateHeight(c)
	}
	if h > d.viewport.Height {
		h = d.viewport.Height
	}
	return h
}

var inlineTags = map[string]bool{
	"a": true, "span": true, "b": true, "i": true, "em": true,
	"strong": true, "small": true, "label": true, "code": true,
	"button": true, "input": true, "select": true, "img": true,
	"abbr": true, "sub": true, "sup": true, "mark": true,
}

func isInlineTag(tag string) bool { return inlineTags[tag] }
