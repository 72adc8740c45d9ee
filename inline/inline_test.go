package inline_test

import (
	"testing"

	"github.com/hazyhaar/phoenix/dom"
	"github.com/hazyhaar/phoenix/frame"
	"github.com/hazyhaar/phoenix/inline"
	"github.com/hazyhaar/phoenix/locator"
	"github.com/hazyhaar/phoenix/optimistic"
	"github.com/hazyhaar/phoenix/tracker"
)

type capture struct {
	msgs []frame.Message
}

func (c *capture) Send(m frame.Message) error {
	c.msgs = append(c.msgs, m)
	return nil
}

func (c *capture) last() frame.Message {
	if len(c.msgs) == 0 {
		return nil
	}
	return c.msgs[len(c.msgs)-1]
}

type fixture struct {
	doc *dom.Document
	tr  *tracker.Tracker
	co  *optimistic.Coordinator
	mgr *inline.Manager
	out *capture
}

func setup(t *testing.T, body string) *fixture {
	t.Helper()
	d, err := dom.ParseString("<html><body>" + body + "</body></html>")
	if err != nil {
		t.Fatal(err)
	}
	tr := tracker.New(d, locator.New(nil))
	tr.Scan()
	return &fixture{
		doc: d,
		tr:  tr,
		co:  optimistic.New(tr),
		mgr: inline.NewManager(),
		out: &capture{},
	}
}

func (f *fixture) textEditor() *inline.TextEditor {
	return inline.NewTextEditor(f.doc, locator.New(nil), f.co, f.mgr, f.out)
}

func (f *fixture) classEditor(opts ...inline.ClassOption) *inline.ClassEditor {
	return inline.NewClassEditor(f.doc, locator.New(nil), f.co, f.mgr, f.out, opts...)
}

func first(t *testing.T, d *dom.Document, tag string) *dom.Element {
	t.Helper()
	els := d.ElementsByTag(tag)
	if len(els) == 0 {
		t.Fatalf("no <%s>", tag)
	}
	return els[0]
}

func TestTextStartRejectsNonEditable(t *testing.T) {
	f := setup(t, `<button>Save now</button>`)
	if _, err := f.textEditor().Start(first(t, f.doc, "button"), ""); err == nil {
		t.Error("button should not be text-editable")
	}
}

func TestTextCommitMutatesAndEmits(t *testing.T) {
	f := setup(t, `<p class="greeting">Hello world</p>`)
	p := first(t, f.doc, "p")

	s, err := f.textEditor().Start(p, "")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := p.Attr(dom.AttrEditing); !ok {
		t.Error("target should be marked as editing")
	}

	s.SetDraft("Hello there")
	res := s.Commit()
	if res == nil {
		t.Fatal("Commit returned nil")
	}
	if got := p.Text(); got != "Hello there" {
		t.Errorf("text: got %q", got)
	}

	msg, ok := f.out.last().(*frame.TextEdit)
	if !ok {
		t.Fatalf("last message: %T", f.out.last())
	}
	if msg.Data.OldText != "Hello world" || msg.Data.NewText != "Hello there" {
		t.Errorf("edit data: %+v", msg.Data)
	}
	if msg.Data.ElementTag != "p" || msg.RequestID == "" {
		t.Errorf("edit data: %+v", msg.Data)
	}

	// Session cleanup: editing marker and dim removed, slot free.
	if _, ok := p.Attr(dom.AttrEditing); ok {
		t.Error("editing marker should be removed")
	}
	if got := p.StyleProperty("opacity"); got != "" {
		t.Errorf("opacity not restored: %q", got)
	}
	if f.mgr.Active() != nil {
		t.Error("session slot should be free")
	}
}

func TestTextUnchangedOrEmptyCancels(t *testing.T) {
	f := setup(t, `<p>Stable text</p>`)
	p := first(t, f.doc, "p")
	te := f.textEditor()

	s, _ := te.Start(p, "")
	s.SetDraft("  Stable text  ")
	if res := s.Commit(); res != nil {
		t.Error("unchanged draft should cancel")
	}

	s, _ = te.Start(p, "")
	s.SetDraft("   ")
	if res := s.Commit(); res != nil {
		t.Error("empty draft should cancel")
	}
	if len(f.out.msgs) != 0 {
		t.Errorf("no messages expected, got %d", len(f.out.msgs))
	}
	if got := p.Text(); got != "Stable text" {
		t.Errorf("text changed: %q", got)
	}
}

func TestTextEscapeCancels(t *testing.T) {
	f := setup(t, `<p>Original copy</p>`)
	p := first(t, f.doc, "p")

	s, _ := f.textEditor().Start(p, "")
	s.SetDraft("Changed copy")
	s.HandleKey(frame.Key{Key: "Escape"})
	if got := p.Text(); got != "Original copy" {
		t.Errorf("text after escape: %q", got)
	}
	if f.mgr.Active() != nil {
		t.Error("session should be closed")
	}
}

func TestTextCommitKeys(t *testing.T) {
	f := setup(t, `<p>Key commit test</p>`)
	p := first(t, f.doc, "p")
	te := f.textEditor()

	s, _ := te.Start(p, "")
	s.SetDraft("Via enter")
	s.HandleKey(frame.Key{Key: "Enter"})
	if got := p.Text(); got != "Via enter" {
		t.Errorf("enter commit: %q", got)
	}

	s, _ = te.Start(p, "")
	s.SetDraft("Via shortcut")
	s.HandleKey(frame.Key{Key: "Enter", Shift: true}) // newline, not commit
	if got := p.Text(); got == "Via shortcut" {
		t.Error("shift+enter must not commit")
	}
	s.HandleKey(frame.Key{Key: "s", Meta: true})
	if got := p.Text(); got != "Via shortcut" {
		t.Errorf("cmd+s commit: %q", got)
	}
}

func TestTextSanitizesMarkup(t *testing.T) {
	f := setup(t, `<p>Plain before</p>`)
	p := first(t, f.doc, "p")

	s, _ := f.textEditor().Start(p, "")
	s.SetDraft("<b>Bold</b> move")
	if res := s.Commit(); res == nil {
		t.Fatal("Commit returned nil")
	}
	if got := p.Text(); got != "Bold move" {
		t.Errorf("sanitized text: %q", got)
	}
}

func TestPreSelectedTextSeedsSession(t *testing.T) {
	f := setup(t, `<p>Full paragraph text</p>`)
	s, err := f.textEditor().Start(first(t, f.doc, "p"), "paragraph")
	if err != nil {
		t.Fatal(err)
	}
	if s.OriginalValue() != "paragraph" || s.Draft() != "paragraph" {
		t.Errorf("seed: %q / %q", s.OriginalValue(), s.Draft())
	}
}

func TestSingleActiveSession(t *testing.T) {
	f := setup(t, `<p>Some prose here</p><h2 class="headline">Big title</h2>`)
	p := first(t, f.doc, "p")

	ts, err := f.textEditor().Start(p, "")
	if err != nil {
		t.Fatal(err)
	}
	_ = ts

	cs := f.classEditor().Start(first(t, f.doc, "h2"))
	if f.mgr.Active() != inline.Session(cs) {
		t.Error("class session should be the active one")
	}
	// The text session was cancelled and its target restored.
	if _, ok := p.Attr(dom.AttrEditing); ok {
		t.Error("previous target still marked editing")
	}
}

func TestClassCommit(t *testing.T) {
	f := setup(t, `<h2 class="old-class">Heading text</h2>`)
	h2 := first(t, f.doc, "h2")

	s := f.classEditor().Start(h2)
	if s.OriginalValue() != "old-class" {
		t.Errorf("prefill: %q", s.OriginalValue())
	}
	s.SetDraft("new-class extra")
	res := s.Commit()
	if res == nil {
		t.Fatal("Commit returned nil")
	}
	if got := h2.ClassName(); got != "new-class extra" {
		t.Errorf("className: %q", got)
	}
	msg, ok := f.out.last().(*frame.ClassEdit)
	if !ok {
		t.Fatalf("last message: %T", f.out.last())
	}
	if msg.Data.OldClasses != "old-class" || msg.Data.NewClasses != "new-class extra" {
		t.Errorf("edit data: %+v", msg.Data)
	}
	// The edit stays pending until the parent confirms.
	if f.co.Pending() != 1 {
		t.Errorf("pending edits: %d", f.co.Pending())
	}
}

func TestClassUnchangedCancels(t *testing.T) {
	f := setup(t, `<h2 class="same">Title here</h2>`)
	s := f.classEditor().Start(first(t, f.doc, "h2"))
	s.SetDraft(" same ")
	if res := s.Commit(); res != nil {
		t.Error("unchanged draft should cancel")
	}
	if len(f.out.msgs) != 0 {
		t.Error("no message expected")
	}
}

func TestClassBlurCommitsSynchronouslyWithZeroGrace(t *testing.T) {
	f := setup(t, `<h2 class="a">Blur target</h2>`)
	h2 := first(t, f.doc, "h2")

	s := f.classEditor(inline.WithBlurGrace(0)).Start(h2)
	s.SetDraft("b")
	s.Blur()
	if got := h2.ClassName(); got != "b" {
		t.Errorf("className after blur: %q", got)
	}
}

func TestClassDirectFallbackWithoutCoordinator(t *testing.T) {
	f := setup(t, `<h2 class="a">Fallback case</h2>`)
	h2 := first(t, f.doc, "h2")

	ed := inline.NewClassEditor(f.doc, locator.New(nil), nil, f.mgr, f.out)
	s := ed.Start(h2)
	s.SetDraft("direct")
	if res := s.Commit(); res == nil {
		t.Fatal("Commit returned nil")
	}
	if got := h2.ClassName(); got != "direct" {
		t.Errorf("className: %q", got)
	}
}
