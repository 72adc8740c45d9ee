package optimistic_test

import (
	"testing"

	"github.com/hazyhaar/phoenix/dom"
	"github.com/hazyhaar/phoenix/locator"
	"github.com/hazyhaar/phoenix/optimistic"
	"github.com/hazyhaar/phoenix/tracker"
)

func setup(t *testing.T, body string) (*dom.Document, *tracker.Tracker, *optimistic.Coordinator) {
	t.Helper()
	d, err := dom.ParseString("<html><body>" + body + "</body></html>")
	if err != nil {
		t.Fatal(err)
	}
	tr := tracker.New(d, locator.New(nil))
	tr.Scan()
	return d, tr, optimistic.New(tr)
}

func idOf(t *testing.T, d *dom.Document, tag string) string {
	t.Helper()
	els := d.ElementsByTag(tag)
	if len(els) == 0 {
		t.Fatalf("no <%s>", tag)
	}
	return els[0].AttrOr(dom.AttrID, "")
}

func TestApplyClassName(t *testing.T) {
	d, tr, c := setup(t, `<p class="old-look">hello there</p>`)
	id := idOf(t, d, "p")

	if !c.Apply(id, "className", "new-look shiny") {
		t.Fatal("Apply returned false")
	}
	e, _ := tr.Get(id)
	if got := e.ClassName(); got != "new-look shiny" {
		t.Errorf("className: got %q", got)
	}
}

func TestApplyTextContentPreservesMarkup(t *testing.T) {
	d, tr, c := setup(t, `<p class="msg">old text <b>bold bit</b></p>`)
	id := idOf(t, d, "p")

	if !c.Apply(id, "textContent", "new text ") {
		t.Fatal("Apply returned false")
	}
	e, _ := tr.Get(id)
	if got := e.Text(); got != "new text bold bit" {
		t.Errorf("Text: got %q", got)
	}
}

func TestApplyUtilityClassStripsConflicts(t *testing.T) {
	d, tr, c := setup(t, `<button class="btn bg-blue-500 px-4">Go</button>`)
	id := idOf(t, d, "button")

	if !c.Apply(id, "backgroundColor", "bg-red-500") {
		t.Fatal("Apply returned false")
	}
	e, _ := tr.Get(id)
	if got := e.ClassName(); got != "btn px-4 bg-red-500" {
		t.Errorf("className: got %q", got)
	}
}

func TestApplyInlineCSSValue(t *testing.T) {
	d, tr, c := setup(t, `<p>some paragraph text</p>`)
	id := idOf(t, d, "p")

	if !c.Apply(id, "backgroundColor", "#ff0000") {
		t.Fatal("Apply returned false")
	}
	e, _ := tr.Get(id)
	if got := e.StyleProperty("background-color"); got != "#ff0000" {
		t.Errorf("style: got %q", got)
	}

	if !c.Apply(id, "fontSize", "18px") {
		t.Fatal("fontSize apply failed")
	}
	if got := e.StyleProperty("font-size"); got != "18px" {
		t.Errorf("font-size: got %q", got)
	}
}

func TestApplyUnknowns(t *testing.T) {
	d, _, c := setup(t, `<p>text body here</p>`)
	id := idOf(t, d, "p")

	if c.Apply("missing-id", "className", "x") {
		t.Error("unknown element should fail")
	}
	if c.Apply(id, "zIndex", "10") {
		t.Error("unknown property should fail")
	}
	if c.Pending() != 0 {
		t.Errorf("failed applies must not snapshot: %d pending", c.Pending())
	}
}

func TestRollbackRestoresFirstSnapshot(t *testing.T) {
	d, tr, c := setup(t, `<p class="a" style="color: red">words in a row</p>`)
	id := idOf(t, d, "p")

	c.Apply(id, "className", "b")
	c.Apply(id, "color", "#00ff00")
	c.Apply(id, "className", "c")

	if !c.Rollback(id) {
		t.Fatal("Rollback returned false")
	}
	e, _ := tr.Get(id)
	if got := e.ClassName(); got != "a" {
		t.Errorf("className after rollback: got %q, want %q", got, "a")
	}
	if got := e.StyleAttr(); got != "color: red" {
		t.Errorf("style after rollback: got %q", got)
	}

	// Snapshot is gone; a second rollback reports false.
	if c.Rollback(id) {
		t.Error("second rollback should return false")
	}
}

func TestConfirmKeepsMutation(t *testing.T) {
	d, tr, c := setup(t, `<p class="a">plain words here</p>`)
	id := idOf(t, d, "p")

	c.Apply(id, "className", "b")
	c.Confirm(id)
	if c.Rollback(id) {
		t.Error("rollback after confirm should return false")
	}
	e, _ := tr.Get(id)
	if got := e.ClassName(); got != "b" {
		t.Errorf("className: got %q", got)
	}
}

func TestRollbackAll(t *testing.T) {
	d, tr, c := setup(t, `<p class="a">first text block</p><h2 class="x">second heading</h2>`)
	pID := idOf(t, d, "p")
	hID := idOf(t, d, "h2")

	c.Apply(pID, "className", "changed")
	c.Apply(hID, "className", "changed")
	if got := c.RollbackAll(); got != 2 {
		t.Fatalf("RollbackAll: got %d, want 2", got)
	}
	p, _ := tr.Get(pID)
	h, _ := tr.Get(hID)
	if p.ClassName() != "a" || h.ClassName() != "x" {
		t.Errorf("restore failed: %q %q", p.ClassName(), h.ClassName())
	}
	if c.Pending() != 0 {
		t.Errorf("pending: %d", c.Pending())
	}
}
