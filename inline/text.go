package inline

import (
	"fmt"
	stdhtml "html"
	"log/slog"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"

	"github.com/hazyhaar/phoenix/dom"
	"github.com/hazyhaar/phoenix/frame"
	"github.com/hazyhaar/phoenix/idgen"
	"github.com/hazyhaar/phoenix/locator"
	"github.com/hazyhaar/phoenix/optimistic"
	"github.com/hazyhaar/phoenix/tracker"
)

// TextEditor opens floating text-edit sessions over prose elements.
type TextEditor struct {
	doc *dom.Document
	loc *locator.Locator
	co  *optimistic.Coordinator
	mgr *Manager
	out Emitter

	san      *bluemonday.Policy
	newReqID idgen.Generator
	onCommit func(kind string, r *EditResult)
	log      *slog.Logger
}

// TextOption customises a TextEditor.
type TextOption func(*TextEditor)

// WithTextLogger sets the logger. Default: slog.Default().
func WithTextLogger(l *slog.Logger) TextOption { return func(t *TextEditor) { t.log = l } }

// WithTextRequestIDs replaces the request id generator.
func WithTextRequestIDs(g idgen.Generator) TextOption { return func(t *TextEditor) { t.newReqID = g } }

// WithTextCommitHook registers a callback invoked after every successful
// commit, before the session closes.
func WithTextCommitHook(fn func(kind string, r *EditResult)) TextOption {
	return func(t *TextEditor) { t.onCommit = fn }
}

// NewTextEditor wires a text editor over the shared session manager.
func NewTextEditor(doc *dom.Document, loc *locator.Locator, co *optimistic.Coordinator, mgr *Manager, out Emitter, opts ...TextOption) *TextEditor {
	t := &TextEditor{
		doc:      doc,
		loc:      loc,
		co:       co,
		mgr:      mgr,
		out:      out,
		san:      bluemonday.StrictPolicy(),
		newReqID: idgen.Request,
		log:      slog.Default(),
	}
	for _, o := range opts {
		o(t)
	}
	if t.log == nil {
		t.log = slog.Default()
	}
	return t
}

// Start opens a text session on the element. The captured string, when
// non-empty, seeds the draft (a pre-selection or live selection from the
// host); otherwise the element's full text is used. Any active session of
// either kind is cancelled first.
func (t *TextEditor) Start(e *dom.Element, captured string) (*TextSession, error) {
	if !tracker.EditableText(e) {
		return nil, fmt.Errorf("inline: element %s is not text-editable", e.ShortSelector())
	}
	original := strings.TrimSpace(captured)
	if original == "" {
		original = e.Text()
	}

	s := &TextSession{
		ed:       t,
		el:       e,
		original: original,
		draft:    original,
	}
	t.mgr.Start(s)

	s.overlay = buildOverlay(t.doc, e, "div")
	s.overlay.SetAttr("contenteditable", "true")
	s.overlay.AppendText(original)
	s.savedStyle = dimTarget(e)

	t.log.Debug("inline: text session started", "element", e.ShortSelector())
	return s, nil
}

// TextSession is one active text edit.
type TextSession struct {
	ed *TextEditor
	el *dom.Element

	mu         sync.Mutex
	overlay    *dom.Element
	original   string
	draft      string
	savedStyle string
	done       bool
}

// Kind reports "text".
func (s *TextSession) Kind() string { return "text" }

// SetDraft replaces the in-progress text.
func (s *TextSession) SetDraft(v string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft = v
}

// Draft returns the in-progress text.
func (s *TextSession) Draft() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft
}

// OriginalValue returns the text captured at session start.
func (s *TextSession) OriginalValue() string { return s.original }

// Commit finalises the edit. An empty or unchanged draft is treated as a
// cancel and returns nil. The mutation goes through the coordinator; on
// success a text-edit request is emitted to the parent for persistence.
func (s *TextSession) Commit() *EditResult {
	s.mu.Lock()
	if s.done {
		s.mu.Unlock()
		return nil
	}
	draft := s.draft
	s.mu.Unlock()

	clean := stdhtml.UnescapeString(s.ed.san.Sanitize(strings.TrimSpace(draft)))
	orig := strings.TrimSpace(s.original)
	if clean == "" || clean == orig {
		s.Cancel()
		return nil
	}

	id := s.el.AttrOr(dom.AttrID, "")
	if !s.ed.co.Apply(id, "textContent", clean) {
		s.ed.log.Warn("inline: text apply failed", "id", id)
		s.finish()
		return nil
	}

	loc := s.ed.loc.Locate(s.el)
	res := &EditResult{
		RequestID: s.ed.newReqID(),
		ElementID: id,
		OldValue:  orig,
		NewValue:  clean,
	}
	msg := &frame.TextEdit{
		RequestID: res.RequestID,
		PhoenixID: id,
		Data: frame.TextEditData{
			PhoenixID:      id,
			FilePath:       loc.FilePath,
			LineNumber:     loc.Line,
			ColumnNumber:   loc.Column,
			OldText:        orig,
			NewText:        clean,
			ElementTag:     s.el.Tag(),
			ElementClasses: s.el.Classes(),
			OperationType:  "updateText",
		},
	}
	if err := s.ed.out.Send(msg); err != nil {
		s.ed.log.Warn("inline: text edit send failed", "id", id, "error", err)
	}
	if s.ed.onCommit != nil {
		s.ed.onCommit("text", res)
	}
	s.finish()
	return res
}

// Cancel discards the edit and restores the element.
func (s *TextSession) Cancel() { s.finish() }

// HandleKey applies the commit and cancel bindings: Enter without Shift or
// Cmd/Ctrl+S commits, Escape cancels. Other keys are ignored.
func (s *TextSession) HandleKey(k frame.Key) {
	switch {
	case k.Key == "Enter" && !k.Shift:
		s.Commit()
	case (k.Key == "s" || k.Key == "S") && (k.Meta || k.Ctrl):
		s.Commit()
	case k.Key == "Escape":
		s.Cancel()
	}
}

func (s *TextSession) finish() {
	s.mu.Lock()
	if s.done {
		s.mu.Unlock()
		return
	}
	s.done = true
	overlay := s.overlay
	saved := s.savedStyle
	s.mu.Unlock()

	if overlay != nil {
		overlay.Remove()
	}
	restoreTarget(s.el, saved)
	s.ed.mgr.release(s)
}
