// Package interaction is the gesture entry point of the editing engine.
// Forwarded pointer and keyboard events resolve to the innermost trackable
// element and fan out into highlighting, selection broadcasts, the inline
// editors, and the context bridge.
package interaction

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hazyhaar/phoenix/contextbridge"
	"github.com/hazyhaar/phoenix/dom"
	"github.com/hazyhaar/phoenix/frame"
	"github.com/hazyhaar/phoenix/inline"
	"github.com/hazyhaar/phoenix/locator"
	"github.com/hazyhaar/phoenix/tracker"
)

// DefaultHoverDelay debounces hover resolution so fast pointer travel over
// nested candidates renders only the most recent target.
const DefaultHoverDelay = 10 * time.Millisecond

// Popup geometry used for viewport clamping.
const (
	popupWidth  = 180
	popupHeight = 88

	tooltipWidth  = 240
	tooltipHeight = 24
)

// Popup actions offered after a selection click.
const (
	ActionAddToContext = "add-to-context"
	ActionEditClasses  = "edit-classes"
)

// Emitter sends messages to the parent frame.
type Emitter interface {
	Send(m frame.Message) error
}

// Tooltip is the hover tooltip model the host renders.
type Tooltip struct {
	Text    string  `json:"text"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Visible bool    `json:"visible"`
}

// Popup is the post-click action popup model, already clamped to the
// viewport.
type Popup struct {
	ElementID string   `json:"elementId"`
	X         float64  `json:"x"`
	Y         float64  `json:"y"`
	Actions   []string `json:"actions"`
}

// Deps are the collaborators a Controller drives.
type Deps struct {
	Doc      *dom.Document
	Tracker  *tracker.Tracker
	Locator  *locator.Locator
	Text     *inline.TextEditor
	Class    *inline.ClassEditor
	Sessions *inline.Manager
	Bridge   *contextbridge.Bridge
	Out      Emitter
}

// Controller owns pointer/keyboard dispatch and highlight state.
type Controller struct {
	deps Deps
	log  *slog.Logger

	hoverDelay time.Duration

	mu            sync.Mutex
	enabled       bool
	hovered       *dom.Element
	hoveredStyle  string
	selected      *dom.Element
	selectedStyle string
	hoverTimer    *time.Timer
	tooltip       *Tooltip
	popup         *Popup
}

// Option customises a Controller.
type Option func(*Controller)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option { return func(c *Controller) { c.log = l } }

// WithHoverDelay sets the hover debounce. Zero or negative resolves hover
// synchronously, which tests rely on. Default: DefaultHoverDelay.
func WithHoverDelay(d time.Duration) Option { return func(c *Controller) { c.hoverDelay = d } }

// New returns a Controller over its collaborators.
func New(deps Deps, opts ...Option) *Controller {
	c := &Controller{
		deps:       deps,
		log:        slog.Default(),
		hoverDelay: DefaultHoverDelay,
	}
	for _, o := range opts {
		o(c)
	}
	if c.log == nil {
		c.log = slog.Default()
	}
	return c
}

// Enable scans the document and announces tracking. It returns the number
// of tracked elements.
func (c *Controller) Enable() int {
	c.mu.Lock()
	c.enabled = true
	c.mu.Unlock()

	count := c.deps.Tracker.Scan()
	msg := &frame.Enabled{}
	msg.Payload.ElementCount = count
	msg.Payload.Timestamp = time.Now().Format(time.RFC3339)
	c.send(msg)
	c.log.Info("interaction: tracking enabled", "elements", count)
	return count
}

// Disable tears tracking down: highlights, tooltip, and popup are cleared,
// an open edit session is force-cancelled so no overlay outlives its
// listeners, and the disabled notification is emitted.
func (c *Controller) Disable() {
	c.mu.Lock()
	c.enabled = false
	c.stopHoverTimerLocked()
	c.mu.Unlock()

	c.deps.Sessions.CancelActive()
	c.clearHover()
	c.clearSelection()
	c.ClosePopup()
	c.deps.Tracker.Reset()

	msg := &frame.Disabled{}
	msg.Payload.Timestamp = time.Now().Format(time.RFC3339)
	c.send(msg)
	c.log.Info("interaction: tracking disabled")
}

// Enabled reports the tracking state.
func (c *Controller) Enabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enabled
}

// PointerMove schedules hover resolution for the viewport point. Each call
// cancels the previous pending resolution, so only the latest position is
// ever rendered.
func (c *Controller) PointerMove(x, y float64) {
	c.mu.Lock()
	if !c.enabled {
		c.mu.Unlock()
		return
	}
	c.stopHoverTimerLocked()
	if c.hoverDelay <= 0 {
		c.mu.Unlock()
		c.resolveHover(x, y)
		return
	}
	c.hoverTimer = time.AfterFunc(c.hoverDelay, func() { c.resolveHover(x, y) })
	c.mu.Unlock()
}

// PointerOut clears hover state and the tooltip.
func (c *Controller) PointerOut() {
	c.mu.Lock()
	c.stopHoverTimerLocked()
	c.tooltip = nil
	c.mu.Unlock()
	c.clearHover()
}

// Click resolves the innermost trackable element at the point and branches:
// shift opens the class editor directly, a plain click selects the element,
// broadcasts both selection messages, and opens the action popup. The
// resolved element is returned, nil when nothing trackable was hit.
func (c *Controller) Click(x, y float64, shift bool) *dom.Element {
	if !c.Enabled() {
		return nil
	}
	target := c.resolve(x, y)
	if target == nil {
		return nil
	}
	if shift {
		c.deps.Class.Start(target)
		return target
	}
	c.selectTarget(target, x, y)
	return target
}

// DoubleClick opens the text editor when the target has editable text. The
// captured string prefers the host's pre-selection, then its live selection,
// then the element's full text. Ineligible targets are left alone so their
// native double-click behavior survives.
func (c *Controller) DoubleClick(x, y float64, preSelected, selected string) *dom.Element {
	if !c.Enabled() {
		return nil
	}
	target := c.resolve(x, y)
	if target == nil || !tracker.EditableText(target) {
		return nil
	}
	captured := preSelected
	if captured == "" {
		captured = selected
	}
	if _, err := c.deps.Text.Start(target, captured); err != nil {
		c.log.Warn("interaction: text session failed", "error", err)
		return nil
	}
	return target
}

// HandleKey routes a key press to the active edit session.
func (c *Controller) HandleKey(k frame.Key) {
	if s := c.deps.Sessions.Active(); s != nil {
		s.HandleKey(k)
	}
}

// HandleInput routes a draft update to the active edit session.
func (c *Controller) HandleInput(v string) {
	if s := c.deps.Sessions.Active(); s != nil {
		s.SetDraft(v)
	}
}

// PopupAction runs one of the open popup's actions and closes it.
func (c *Controller) PopupAction(ctx context.Context, action string) {
	c.mu.Lock()
	popup := c.popup
	c.mu.Unlock()
	if popup == nil {
		return
	}
	c.ClosePopup()

	switch action {
	case ActionAddToContext:
		res := c.deps.Bridge.AddToChat(ctx, popup.ElementID)
		if !res.Success {
			c.log.Debug("interaction: add to context failed",
				"id", popup.ElementID, "reason", res.Reason, "error", res.Error)
		}
	case ActionEditClasses:
		if e, ok := c.deps.Tracker.Get(popup.ElementID); ok {
			c.deps.Class.Start(e)
		}
	}
}

// ClosePopup dismisses the action popup.
func (c *Controller) ClosePopup() {
	c.mu.Lock()
	c.popup = nil
	c.mu.Unlock()
}

// Tooltip returns the current tooltip model, or nil.
func (c *Controller) Tooltip() *Tooltip {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tooltip
}

// Popup returns the current popup model, or nil.
func (c *Controller) Popup() *Popup {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.popup
}

// Hovered returns the currently hover-highlighted element, or nil.
func (c *Controller) Hovered() *dom.Element {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hovered
}

// Selected returns the currently selected element, or nil.
func (c *Controller) Selected() *dom.Element {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selected
}

func (c *Controller) stopHoverTimerLocked() {
	if c.hoverTimer != nil {
		c.hoverTimer.Stop()
		c.hoverTimer = nil
	}
}

// resolve hit-tests the point and walks up to the innermost trackable
// ancestor.
func (c *Controller) resolve(x, y float64) *dom.Element {
	hit := c.hitTest(x, y)
	if hit == nil {
		return nil
	}
	return c.deps.Tracker.Nearest(hit)
}

// hitTest returns the deepest body descendant whose rect contains the
// point, ignoring injected editor UI.
func (c *Controller) hitTest(x, y float64) *dom.Element {
	body := c.deps.Doc.Body()
	if body == nil {
		return nil
	}
	var best *dom.Element
	bestDepth := -1
	c.deps.Doc.EachElement(func(e *dom.Element) bool {
		if !body.Contains(e) {
			return true
		}
		if _, ok := e.Attr(dom.AttrEditorUI); ok {
			return true
		}
		r := c.deps.Doc.Rect(e)
		if x < r.X || x >= r.X+r.Width || y < r.Y || y >= r.Y+r.Height {
			return true
		}
		if d := e.Depth(); d > bestDepth {
			best, bestDepth = e, d
		}
		return true
	})
	return best
}

func (c *Controller) resolveHover(x, y float64) {
	if !c.Enabled() {
		return
	}
	target := c.resolve(x, y)

	c.mu.Lock()
	same := target != nil && target.Same(c.hovered)
	isSelected := target != nil && target.Same(c.selected)
	c.mu.Unlock()
	if same {
		return
	}

	c.clearHover()
	if target == nil || isSelected {
		c.mu.Lock()
		c.tooltip = nil
		c.mu.Unlock()
		return
	}

	c.mu.Lock()
	c.hovered = target
	c.hoveredStyle = target.StyleAttr()
	c.mu.Unlock()

	target.SetStyleProperty("outline", "2px dashed #3b82f6")
	target.SetStyleProperty("outline-offset", "2px")
	target.SetAttr(dom.AttrHover, "true")

	rect := c.deps.Doc.Rect(target)
	loc := c.deps.Locator.Locate(target)
	tipX := rect.X
	tipY := rect.Y - tooltipHeight
	if tipY < 0 {
		// Clipped above the viewport: flip below the element.
		tipY = rect.Y + rect.Height + 4
	}
	vp := c.deps.Doc.Viewport()
	if tipX+tooltipWidth > vp.Width {
		tipX = vp.Width - tooltipWidth
	}
	if tipX < 0 {
		tipX = 0
	}
	c.mu.Lock()
	c.tooltip = &Tooltip{
		Text:    target.ShortSelector() + " · " + loc.FileRef(),
		X:       tipX,
		Y:       tipY,
		Visible: true,
	}
	c.mu.Unlock()
}

func (c *Controller) clearHover() {
	c.mu.Lock()
	e := c.hovered
	saved := c.hoveredStyle
	c.hovered = nil
	c.hoveredStyle = ""
	c.mu.Unlock()
	if e == nil {
		return
	}
	e.SetStyleAttr(saved)
	e.RemoveAttr(dom.AttrHover)
}

func (c *Controller) clearSelection() {
	c.mu.Lock()
	e := c.selected
	saved := c.selectedStyle
	c.selected = nil
	c.selectedStyle = ""
	c.mu.Unlock()
	if e == nil {
		return
	}
	e.SetStyleAttr(saved)
	e.RemoveAttr(dom.AttrSelected)
}

// selectTarget marks the element selected, broadcasts both selection
// shapes, and opens the action popup unless the element is already in the
// chat context. Clearing always precedes applying so exactly one element
// carries a highlight.
func (c *Controller) selectTarget(e *dom.Element, x, y float64) {
	c.clearSelection()
	c.mu.Lock()
	var saved string
	if e.Same(c.hovered) {
		// Promote: the hover snapshot is the true pre-highlight state.
		saved = c.hoveredStyle
		c.hovered = nil
		c.hoveredStyle = ""
	} else {
		saved = e.StyleAttr()
	}
	c.selected = e
	c.selectedStyle = saved
	c.tooltip = nil
	c.mu.Unlock()
	e.RemoveAttr(dom.AttrHover)

	e.SetStyleAttr(saved)
	e.SetStyleProperty("outline", "3px solid #2563eb")
	e.SetStyleProperty("outline-offset", "2px")
	e.SetStyleProperty("box-shadow", "0 0 0 4px rgba(37, 99, 235, 0.2)")
	e.SetAttr(dom.AttrSelected, "true")

	id := e.AttrOr(dom.AttrID, "")
	meta := c.deps.Tracker.Metadata(e)
	loc := meta.SourceLocation
	rect := meta.BoundingRect
	now := time.Now()

	attrs := make(map[string]string, len(meta.Attributes))
	for _, a := range meta.Attributes {
		attrs[a.Name] = a.Value
	}
	legacy := &frame.Select{Payload: frame.SelectPayload{
		UID:           id,
		Selector:      e.SelectorPath(),
		Tag:           e.Tag(),
		ComponentName: contextbridge.GenerateDisplayName(e),
		FileName:      loc.FileRef(),
		Classes:       e.Classes(),
		Text:          meta.TextPreview,
		Rect:          frame.SelectRect{X: rect.X, Y: rect.Y, Width: rect.Width, Height: rect.Height},
		Attributes:    attrs,
		Analysis:      meta,
		Timestamp:     now.Format(time.RFC3339),
	}}
	c.send(legacy)

	structured := &frame.ComponentSelected{
		Data: frame.ComponentSelection{
			DisplayName:    contextbridge.GenerateDisplayName(e),
			Description:    contextbridge.GenerateDescription(e),
			Category:       contextbridge.Categorize(e),
			PhoenixElement: meta,
			SelectedAt:     now.Format(time.RFC3339),
			SelectionMode:  "click",
			BoundingRect:   rect,
		},
		Timestamp: now.UnixMilli(),
	}
	c.send(structured)

	if !c.deps.Bridge.IsInContext(id) {
		c.openPopup(id, x, y)
	}
}

// openPopup places the action popup at the click point, clamped so it stays
// fully inside the viewport.
func (c *Controller) openPopup(elementID string, x, y float64) {
	vp := c.deps.Doc.Viewport()
	if x+popupWidth > vp.Width {
		x = vp.Width - popupWidth
	}
	if y+popupHeight > vp.Height {
		y = vp.Height - popupHeight
	}
	if x < 0 {
		x = 0
	}
	if y < 0 {
		y = 0
	}
	c.mu.Lock()
	c.popup = &Popup{
		ElementID: elementID,
		X:         x,
		Y:         y,
		Actions:   []string{ActionAddToContext, ActionEditClasses},
	}
	c.mu.Unlock()
}

func (c *Controller) send(m frame.Message) {
	if err := c.deps.Out.Send(m); err != nil {
		c.log.Warn("interaction: send failed", "type", m.MsgType(), "error", err)
	}
}
