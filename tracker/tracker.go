// Package tracker discovers which document elements are eligible for visual
// editing, assigns them stable identifiers, and produces serialisable
// metadata snapshots. The registry it maintains is a cache keyed by id; the
// DOM node's live attributes stay authoritative and the registry is rebuilt
// on every (re-)enable.
package tracker

import (
	"log/slog"

	"golang.org/x/net/html"

	"github.com/hazyhaar/phoenix/dom"
	"github.com/hazyhaar/phoenix/idgen"
	"github.com/hazyhaar/phoenix/locator"
)

// Priority classifies how a trackable element was discovered. It orders
// scanning, it never filters.
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

var interactiveTags = map[string]bool{
	"button": true, "a": true, "input": true, "select": true,
	"textarea": true, "summary": true,
}

var interactiveRoles = map[string]bool{
	"button": true, "link": true, "tab": true, "menuitem": true,
	"checkbox": true, "switch": true,
}

var semanticTags = map[string]bool{
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"p": true, "label": true, "nav": true, "header": true, "footer": true,
	"main": true, "section": true, "article": true, "aside": true, "form": true,
}

var structuralTags = map[string]bool{
	"ul": true, "ol": true, "li": true, "dl": true, "dt": true, "dd": true,
	"table": true, "thead": true, "tbody": true, "tr": true, "td": true,
	"th": true, "span": true,
}

var excludedTags = map[string]bool{
	"script": true, "style": true, "meta": true, "head": true, "link": true,
	"title": true, "noscript": true, "base": true, "html": true, "body": true,
	"img": true, "video": true, "audio": true, "canvas": true, "svg": true,
	"iframe": true, "embed": true, "object": true, "source": true, "track": true,
}

// containerTags get the size filter; specific tags are always eligible.
var containerTags = map[string]bool{
	"div": true, "section": true, "article": true, "main": true,
	"aside": true, "nav": true, "header": true, "footer": true,
}

const (
	minFootprintPx    = 10
	viewportCoverage  = 0.95
	textPreviewLength = 100
)

// Metadata is the serialisable snapshot of one tracked element.
type Metadata struct {
	ID              string           `json:"id"`
	TagName         string           `json:"tagName"`
	ClassName       string           `json:"className"`
	TextPreview     string           `json:"textContentPreview"`
	Attributes      []dom.Attr       `json:"attributes"`
	BoundingRect    dom.Rect         `json:"boundingRect"`
	SourceLocation  locator.Location `json:"sourceLocation"`
	Priority        string           `json:"priority"`
	IsInteractive   bool             `json:"isInteractive"`
	IsEditableText  bool             `json:"isEditableText"`
	Depth           int              `json:"depth"`
	ParentSelector  string           `json:"parentSelector,omitempty"`
	ChildrenSummary []string         `json:"childrenSummary,omitempty"`
}

// Stats summarises the current registry.
type Stats struct {
	Total      int            `json:"total"`
	ByTag      map[string]int `json:"byTag"`
	ByPriority map[string]int `json:"byPriority"`
}

// Tracker owns element discovery and the id registry for one document.
type Tracker struct {
	doc *dom.Document
	loc *locator.Locator
	log *slog.Logger
	gen idgen.Generator

	registry map[string]*dom.Element
}

// Option customises a Tracker.
type Option func(*Tracker)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option { return func(t *Tracker) { t.log = l } }

// WithIDGenerator replaces the element id generator, mainly for tests that
// want deterministic ids.
func WithIDGenerator(g idgen.Generator) Option { return func(t *Tracker) { t.gen = g } }

// New returns a Tracker over a parsed document.
func New(doc *dom.Document, loc *locator.Locator, opts ...Option) *Tracker {
	t := &Tracker{
		doc:      doc,
		loc:      loc,
		log:      slog.Default(),
		gen:      idgen.Element(),
		registry: make(map[string]*dom.Element),
	}
	for _, o := range opts {
		o(t)
	}
	if t.log == nil {
		t.log = slog.Default()
	}
	return t
}

// Scan rebuilds the registry with a prioritized cascade: interactive
// elements first, then semantic content, then structural elements, then
// generic containers. Pre-stamped ids are reused; everything else gets a
// fresh id attached as a marker attribute so re-scans recognise the node.
// Scanning mutates nothing but that attribute.
func (t *Tracker) Scan() int {
	t.registry = make(map[string]*dom.Element)
	seen := make(map[*html.Node]bool)

	groups := []func(*dom.Element) bool{
		t.isInteractive,
		func(e *dom.Element) bool { return semanticTags[e.Tag()] },
		func(e *dom.Element) bool { return structuralTags[e.Tag()] },
		func(e *dom.Element) bool { return e.Tag() == "div" },
	}
	for _, match := range groups {
		t.doc.EachElement(func(e *dom.Element) bool {
			if seen[e.Node()] || !match(e) || !t.IsTrackable(e) {
				return true
			}
			seen[e.Node()] = true
			t.register(e)
			return true
		})
	}

	t.log.Debug("tracker: scan complete", "elements", len(t.registry))
	return len(t.registry)
}

func (t *Tracker) register(e *dom.Element) {
	id := e.AttrOr(dom.AttrID, "")
	if id == "" {
		id = t.gen()
		e.SetAttr(dom.AttrID, id)
	} else if _, taken := t.registry[id]; taken {
		// A duplicated stamp violates id uniqueness; the later node gets
		// a fresh identity.
		id = t.gen()
		e.SetAttr(dom.AttrID, id)
	}
	t.registry[id] = e
}

// IsTrackable reports whether an element is eligible for tracking. The
// filter works by exclusion: non-visual and media tags and editor-injected
// UI are out, and generic containers must additionally have a minimum
// footprint and not blanket the whole viewport. Everything else is in.
func (t *Tracker) IsTrackable(e *dom.Element) bool {
	tag := e.Tag()
	if excludedTags[tag] {
		return false
	}
	if t.isEditorUI(e) {
		return false
	}
	// Everything not excluded is fair game; the tag groups above drive scan
	// priority, not eligibility. The size rule applies to containers only.
	if containerTags[tag] {
		r := t.doc.Rect(e)
		if r.Width < minFootprintPx || r.Height < minFootprintPx {
			return false
		}
		vp := t.doc.Viewport()
		if r.Width >= vp.Width*viewportCoverage && r.Height >= vp.Height*viewportCoverage {
			return false
		}
	}
	return true
}

// isEditorUI reports whether the element is (inside) injected editor UI.
func (t *Tracker) isEditorUI(e *dom.Element) bool {
	return e.Closest(func(cur *dom.Element) bool {
		_, ok := cur.Attr(dom.AttrEditorUI)
		return ok
	}) != nil
}

func (t *Tracker) isInteractive(e *dom.Element) bool {
	if interactiveTags[e.Tag()] {
		return true
	}
	if role, ok := e.Attr("role"); ok && interactiveRoles[role] {
		return true
	}
	_, hasClick := e.Attr("onclick")
	return hasClick
}

// Nearest resolves the innermost trackable ancestor of an event target,
// self included. It registers the hit if a scan has not claimed it yet.
func (t *Tracker) Nearest(e *dom.Element) *dom.Element {
	if e == nil {
		return nil
	}
	hit := e.Closest(t.IsTrackable)
	if hit == nil {
		return nil
	}
	if id := hit.AttrOr(dom.AttrID, ""); id == "" || t.registry[id] == nil {
		t.register(hit)
	}
	return hit
}

// Get returns the tracked element for an id.
func (t *Tracker) Get(id string) (*dom.Element, bool) {
	e, ok := t.registry[id]
	return e, ok
}

// Count returns how many elements are registered.
func (t *Tracker) Count() int { return len(t.registry) }

// Reset drops the registry. Marker attributes stay on the DOM so the next
// scan reassigns the same ids.
func (t *Tracker) Reset() {
	t.registry = make(map[string]*dom.Element)
}

// Priority classifies an element for scan ordering and metadata.
func (t *Tracker) Priority(e *dom.Element) string {
	switch {
	case t.isInteractive(e):
		return PriorityHigh
	case semanticTags[e.Tag()]:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// Metadata assembles the snapshot for one element, delegating source
// resolution to the locator and geometry to the document model.
func (t *Tracker) Metadata(e *dom.Element) Metadata {
	m := Metadata{
		ID:             e.AttrOr(dom.AttrID, ""),
		TagName:        e.Tag(),
		ClassName:      e.ClassName(),
		TextPreview:    e.TextPreview(textPreviewLength),
		Attributes:     e.Attributes(),
		BoundingRect:   t.doc.Rect(e),
		SourceLocation: t.loc.Locate(e),
		Priority:       t.Priority(e),
		IsInteractive:  t.isInteractive(e),
		IsEditableText: EditableText(e),
		Depth:          e.Depth(),
	}
	if p := e.Parent(); p != nil {
		m.ParentSelector = p.ShortSelector()
	}
	for i, c := range e.Children() {
		if i == 5 {
			break
		}
		m.ChildrenSummary = append(m.ChildrenSummary, c.ShortSelector())
	}
	return m
}

// MetadataByID assembles the snapshot for a registered id.
func (t *Tracker) MetadataByID(id string) (Metadata, bool) {
	e, ok := t.registry[id]
	if !ok {
		return Metadata{}, false
	}
	return t.Metadata(e), true
}

// Stats summarises the registry by tag and priority.
func (t *Tracker) Stats() Stats {
	s := Stats{
		Total:      len(t.registry),
		ByTag:      make(map[string]int),
		ByPriority: make(map[string]int),
	}
	for _, e := range t.registry {
		s.ByTag[e.Tag()]++
		s.ByPriority[t.Priority(e)]++
	}
	return s
}
