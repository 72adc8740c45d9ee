package inline

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/hazyhaar/phoenix/dom"
	"github.com/hazyhaar/phoenix/frame"
	"github.com/hazyhaar/phoenix/idgen"
	"github.com/hazyhaar/phoenix/locator"
	"github.com/hazyhaar/phoenix/optimistic"
)

const classHelperCaption = "Enter to save · Esc to cancel"

// ClassEditor opens class-string edit sessions. Every element is eligible;
// an element without a class attribute simply starts from an empty value.
type ClassEditor struct {
	doc *dom.Document
	loc *locator.Locator
	co  *optimistic.Coordinator
	mgr *Manager
	out Emitter

	blurGrace time.Duration
	newReqID  idgen.Generator
	onCommit  func(kind string, r *EditResult)
	log       *slog.Logger
}

// ClassOption customises a ClassEditor.
type ClassOption func(*ClassEditor)

// WithClassLogger sets the logger. Default: slog.Default().
func WithClassLogger(l *slog.Logger) ClassOption { return func(c *ClassEditor) { c.log = l } }

// WithBlurGrace sets the delay between blur and commit. Zero commits
// synchronously, which tests rely on. Default: DefaultBlurGrace.
func WithBlurGrace(d time.Duration) ClassOption { return func(c *ClassEditor) { c.blurGrace = d } }

// WithClassRequestIDs replaces the request id generator.
func WithClassRequestIDs(g idgen.Generator) ClassOption { return func(c *ClassEditor) { c.newReqID = g } }

// WithClassCommitHook registers a callback invoked after every successful
// commit, before the session closes.
func WithClassCommitHook(fn func(kind string, r *EditResult)) ClassOption {
	return func(c *ClassEditor) { c.onCommit = fn }
}

// NewClassEditor wires a class editor over the shared session manager.
// A nil coordinator enables the direct-apply fallback on commit.
func NewClassEditor(doc *dom.Document, loc *locator.Locator, co *optimistic.Coordinator, mgr *Manager, out Emitter, opts ...ClassOption) *ClassEditor {
	c := &ClassEditor{
		doc:       doc,
		loc:       loc,
		co:        co,
		mgr:       mgr,
		out:       out,
		blurGrace: DefaultBlurGrace,
		newReqID:  idgen.Request,
		log:       slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	if c.log == nil {
		c.log = slog.Default()
	}
	return c
}

// Start opens a class session on the element, pre-filled with its current
// class string. Any active session of either kind is cancelled first.
func (c *ClassEditor) Start(e *dom.Element) *ClassSession {
	s := &ClassSession{
		ed:       c,
		el:       e,
		original: e.ClassName(),
		draft:    e.ClassName(),
	}
	c.mgr.Start(s)

	s.overlay = buildOverlay(c.doc, e, "input")
	s.overlay.SetAttr("value", s.original)

	s.caption = c.doc.NewElement("span")
	s.caption.SetAttr(dom.AttrEditorUI, "true")
	s.caption.SetStyleAttr("position: absolute; font-size: 11px; color: #6b7280; z-index: 2147483646")
	s.caption.AppendText(classHelperCaption)
	if body := c.doc.Body(); body != nil {
		body.AppendChild(s.caption)
	}

	s.savedStyle = dimTarget(e)
	c.log.Debug("inline: class session started", "element", e.ShortSelector())
	return s
}

// ClassSession is one active class-string edit.
type ClassSession struct {
	ed *ClassEditor
	el *dom.Element

	mu         sync.Mutex
	overlay    *dom.Element
	caption    *dom.Element
	original   string
	draft      string
	savedStyle string
	blurTimer  *time.Timer
	done       bool
}

// Kind reports "class".
func (s *ClassSession) Kind() string { return "class" }

// SetDraft replaces the in-progress class string.
func (s *ClassSession) SetDraft(v string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft = v
}

// Draft returns the in-progress class string.
func (s *ClassSession) Draft() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft
}

// OriginalValue returns the class string captured at session start.
func (s *ClassSession) OriginalValue() string { return s.original }

// Commit finalises the edit. An unchanged draft is treated as a cancel. The
// mutation goes through the coordinator when one is wired; without a
// coordinator the class string is written to the element directly as a
// last-resort fallback.
func (s *ClassSession) Commit() *EditResult {
	s.mu.Lock()
	if s.done {
		s.mu.Unlock()
		return nil
	}
	s.stopBlurLocked()
	draft := s.draft
	s.mu.Unlock()

	newClasses := strings.TrimSpace(draft)
	oldClasses := strings.TrimSpace(s.original)
	if newClasses == oldClasses {
		s.Cancel()
		return nil
	}

	id := s.el.AttrOr(dom.AttrID, "")
	if s.ed.co != nil {
		if !s.ed.co.Apply(id, "className", newClasses) {
			s.ed.log.Warn("inline: class apply failed", "id", id)
			s.finish()
			return nil
		}
	} else {
		s.el.SetClassName(newClasses)
	}

	loc := s.ed.loc.Locate(s.el)
	res := &EditResult{
		RequestID: s.ed.newReqID(),
		ElementID: id,
		OldValue:  oldClasses,
		NewValue:  newClasses,
	}
	msg := &frame.ClassEdit{
		RequestID: res.RequestID,
		PhoenixID: id,
		Data: frame.ClassEditData{
			PhoenixID:     id,
			FilePath:      loc.FilePath,
			LineNumber:    loc.Line,
			ColumnNumber:  loc.Column,
			OldClasses:    oldClasses,
			NewClasses:    newClasses,
			ElementTag:    s.el.Tag(),
			OperationType: "updateClasses",
		},
	}
	if err := s.ed.out.Send(msg); err != nil {
		s.ed.log.Warn("inline: class edit send failed", "id", id, "error", err)
	}
	if s.ed.onCommit != nil {
		s.ed.onCommit("class", res)
	}
	s.finish()
	return res
}

// Cancel discards the edit and restores the element.
func (s *ClassSession) Cancel() { s.finish() }

// Blur schedules a commit after the grace delay, giving a click on the
// helper caption time to land first. With a zero grace the commit runs
// synchronously.
func (s *ClassSession) Blur() {
	if s.ed.blurGrace <= 0 {
		s.Commit()
		return
	}
	s.mu.Lock()
	if s.done {
		s.mu.Unlock()
		return
	}
	s.stopBlurLocked()
	s.blurTimer = time.AfterFunc(s.ed.blurGrace, func() { s.Commit() })
	s.mu.Unlock()
}

// Focus cancels a pending blur commit.
func (s *ClassSession) Focus() {
	s.mu.Lock()
	s.stopBlurLocked()
	s.mu.Unlock()
}

// HandleKey applies the commit and cancel bindings: Enter commits, Escape
// cancels. Other keys are ignored.
func (s *ClassSession) HandleKey(k frame.Key) {
	switch k.Key {
	case "Enter":
		s.Commit()
	case "Escape":
		s.Cancel()
	}
}

func (s *ClassSession) stopBlurLocked() {
	if s.blurTimer != nil {
		s.blurTimer.Stop()
		s.blurTimer = nil
	}
}

func (s *ClassSession) finish() {
	s.mu.Lock()
	if s.done {
		s.mu.Unlock()
		return
	}
	s.done = true
	s.stopBlurLocked()
	overlay := s.overlay
	caption := s.caption
	saved := s.savedStyle
	s.mu.Unlock()

	if overlay != nil {
		overlay.Remove()
	}
	if caption != nil {
		caption.Remove()
	}
	restoreTarget(s.el, saved)
	s.ed.mgr.release(s)
}
