// Package optimistic applies visual edits to the live document immediately
// and keeps the snapshots needed to undo them if the authoritative source
// edit fails. Both inline editors and the external visual-edit channel
// funnel their mutations through here so rollback always restores the
// pre-edit state, never an intermediate one.
package optimistic

import (
	"log/slog"
	"sort"
	"strings"

	"github.com/hazyhaar/phoenix/dom"
	"github.com/hazyhaar/phoenix/tracker"
)

// conflictPrefixes maps an editable property to the utility-class prefix
// family that styles it. Applying a utility value for the property first
// strips classes from the same family so the new one cannot be shadowed.
var conflictPrefixes = map[string][]string{
	"backgroundColor": {"bg-"},
	"color":           {"text-"},
	"padding":         {"p-", "px-", "py-", "pt-", "pb-", "pl-", "pr-"},
	"margin":          {"m-", "mx-", "my-", "mt-", "mb-", "ml-", "mr-"},
	"width":           {"w-"},
	"height":          {"h-"},
	"fontSize":        {"text-"},
	"fontWeight":      {"font-"},
	"borderRadius":    {"rounded-"},
	"border":          {"border-"},
	"shadow":          {"shadow-"},
}

// cssNames maps properties to their CSS declaration names for the inline
// write strategy.
var cssNames = map[string]string{
	"backgroundColor": "background-color",
	"color":           "color",
	"padding":         "padding",
	"margin":          "margin",
	"width":           "width",
	"height":          "height",
	"fontSize":        "font-size",
	"fontWeight":      "font-weight",
	"borderRadius":    "border-radius",
	"border":          "border",
	"shadow":          "box-shadow",
}

// Properties lists every property Apply understands, for capability
// announcements.
func Properties() []string {
	out := []string{"className", "textContent"}
	for p := range conflictPrefixes {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// snapshot is the first-touch state rollback restores.
type snapshot struct {
	className string
	style     string
}

// Coordinator owns the pending-edit table for one document session.
type Coordinator struct {
	tr  *tracker.Tracker
	log *slog.Logger

	pending map[string]snapshot
}

// Option customises a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option { return func(c *Coordinator) { c.log = l } }

// New returns a Coordinator resolving element ids through the tracker.
func New(tr *tracker.Tracker, opts ...Option) *Coordinator {
	c := &Coordinator{
		tr:      tr,
		log:     slog.Default(),
		pending: make(map[string]snapshot),
	}
	for _, o := range opts {
		o(c)
	}
	if c.log == nil {
		c.log = slog.Default()
	}
	return c
}

// Apply mutates the element for the given property and value. The first
// touch of an element snapshots its class and style attributes; later
// touches before confirm/rollback keep that original snapshot. It reports
// false, with no side effects, for an unknown element or property.
func (c *Coordinator) Apply(elementID, property, value string) bool {
	e, ok := c.tr.Get(elementID)
	if !ok {
		c.log.Debug("optimistic: unknown element", "id", elementID)
		return false
	}

	switch {
	case property == "className":
		c.snapshotOnce(elementID, e)
		e.SetClassName(value)
	case property == "textContent":
		c.snapshotOnce(elementID, e)
		e.SetDirectText(value)
	default:
		prefixes, known := conflictPrefixes[property]
		if !known {
			c.log.Debug("optimistic: unknown property", "id", elementID, "property", property)
			return false
		}
		c.snapshotOnce(elementID, e)
		if utilityValue(value, prefixes) {
			stripConflicts(e, prefixes)
			e.AddClass(value)
		} else {
			e.SetStyleProperty(cssNames[property], value)
		}
	}
	return true
}

// Confirm keeps the mutation and drops the snapshot. No-op without one.
func (c *Coordinator) Confirm(elementID string) {
	delete(c.pending, elementID)
}

// Rollback restores the class and style attributes exactly to the
// first-touch snapshot. It reports false when no snapshot exists.
func (c *Coordinator) Rollback(elementID string) bool {
	snap, ok := c.pending[elementID]
	if !ok {
		return false
	}
	delete(c.pending, elementID)
	e, found := c.tr.Get(elementID)
	if !found {
		return false
	}
	e.SetClassName(snap.className)
	e.SetStyleAttr(snap.style)
	return true
}

// RollbackAll restores every pending edit, answering the reset channel.
func (c *Coordinator) RollbackAll() int {
	n := 0
	for id := range c.pending {
		if c.Rollback(id) {
			n++
		}
	}
	return n
}

// Pending reports how many elements have unconfirmed edits.
func (c *Coordinator) Pending() int { return len(c.pending) }

func (c *Coordinator) snapshotOnce(id string, e *dom.Element) {
	if _, ok := c.pending[id]; ok {
		return
	}
	c.pending[id] = snapshot{
		className: e.ClassName(),
		style:     e.StyleAttr(),
	}
}

// utilityValue reports whether value is a class token from the property's
// own prefix family rather than a raw CSS value.
func utilityValue(value string, prefixes []string) bool {
	if strings.ContainsAny(value, " :;#") {
		return false
	}
	for _, p := range prefixes {
		if strings.HasPrefix(value, p) {
			return true
		}
	}
	return false
}

func stripConflicts(e *dom.Element, prefixes []string) {
	for _, class := range e.Classes() {
		for _, p := range prefixes {
			if strings.HasPrefix(class, p) {
				e.RemoveClass(class)
				break
			}
		}
	}
}
