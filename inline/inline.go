// Package inline implements the two inline edit surfaces: a floating text
// overlay and a class-string input. Exactly one edit session is active at a
// time; starting a new session cancels the previous one, and cancel always
// restores the target element's pre-edit presentation.
package inline

import (
	"strconv"
	"sync"
	"time"

	"github.com/hazyhaar/phoenix/dom"
	"github.com/hazyhaar/phoenix/frame"
)

// DefaultBlurGrace is how long a class-editor blur waits before committing,
// so a click on adjacent helper UI does not commit prematurely.
const DefaultBlurGrace = 150 * time.Millisecond

// Emitter sends messages to the parent frame. *frame.WSConn and pipe ends
// both satisfy it.
type Emitter interface {
	Send(m frame.Message) error
}

// Session is an active inline edit of either kind.
type Session interface {
	// Kind is "text" or "class".
	Kind() string
	// Cancel discards the edit and restores the element.
	Cancel()
	// SetDraft replaces the in-progress value.
	SetDraft(v string)
	// Draft returns the in-progress value.
	Draft() string
	// Commit finalises the edit. A nil result means the edit was a no-op
	// (empty or unchanged) and was treated as a cancel.
	Commit() *EditResult
	// HandleKey applies commit/cancel key bindings to the session.
	HandleKey(k frame.Key)
}

// EditResult describes one committed inline edit awaiting persistence.
type EditResult struct {
	RequestID string
	ElementID string
	OldValue  string
	NewValue  string
}

// Manager holds the single active session slot.
type Manager struct {
	mu     sync.Mutex
	active Session
}

// NewManager returns an empty manager.
func NewManager() *Manager { return &Manager{} }

// Start installs a new session, cancelling any active one first.
func (m *Manager) Start(s Session) {
	m.mu.Lock()
	prev := m.active
	m.active = s
	m.mu.Unlock()
	if prev != nil {
		prev.Cancel()
	}
}

// Active returns the current session, or nil.
func (m *Manager) Active() Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// CancelActive cancels the current session if any, reporting whether one
// was open.
func (m *Manager) CancelActive() bool {
	m.mu.Lock()
	s := m.active
	m.mu.Unlock()
	if s == nil {
		return false
	}
	s.Cancel()
	return true
}

// release clears the slot if it still holds s.
func (m *Manager) release(s Session) {
	m.mu.Lock()
	if m.active == s {
		m.active = nil
	}
	m.mu.Unlock()
}

// Typography properties copied from the target so the overlay visually
// matches the element it floats over.
var copiedStyleProps = []string{
	"font-family", "font-size", "font-weight", "line-height",
	"text-align", "padding",
}

// buildOverlay creates the floating editor element positioned over the
// target's rect, matching its typography but forcing a high-contrast scheme
// regardless of the element's own colors. It is marked as editor UI so the
// tracker never tracks it.
func buildOverlay(doc *dom.Document, target *dom.Element, tag string) *dom.Element {
	rect := doc.Rect(target)
	cs := target.ComputedStyle()

	decls := []dom.StyleDecl{
		{Property: "position", Value: "absolute"},
		{Property: "left", Value: px(rect.X)},
		{Property: "top", Value: px(rect.Y)},
		{Property: "width", Value: px(rect.Width)},
		{Property: "min-height", Value: px(rect.Height)},
	}
	for _, p := range copiedStyleProps {
		if v := cs[p]; v != "" {
			decls = append(decls, dom.StyleDecl{Property: p, Value: v})
		}
	}
	decls = append(decls,
		dom.StyleDecl{Property: "color", Value: "#111111"},
		dom.StyleDecl{Property: "background-color", Value: "#fffef8"},
		dom.StyleDecl{Property: "border", Value: "2px solid #3b82f6"},
		dom.StyleDecl{Property: "border-radius", Value: "4px"},
		dom.StyleDecl{Property: "box-shadow", Value: "0 4px 12px rgba(0, 0, 0, 0.25)"},
		dom.StyleDecl{Property: "z-index", Value: "2147483646"},
		dom.StyleDecl{Property: "outline", Value: "none"},
	)

	overlay := doc.NewElement(tag)
	overlay.SetAttr(dom.AttrEditorUI, "true")
	overlay.SetStyleAttr(dom.FormatStyle(decls))
	if body := doc.Body(); body != nil {
		body.AppendChild(overlay)
	}
	return overlay
}

func px(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + "px"
}

// dimTarget fades the element and marks it as being edited, returning the
// style snapshot cleanup must restore.
func dimTarget(e *dom.Element) string {
	saved := e.StyleAttr()
	e.SetStyleProperty("opacity", "0.3")
	e.SetStyleProperty("pointer-events", "none")
	e.SetAttr(dom.AttrEditing, "true")
	return saved
}

func restoreTarget(e *dom.Element, savedStyle string) {
	e.SetStyleAttr(savedStyle)
	e.RemoveAttr(dom.AttrEditing)
}
