package contextbridge_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hazyhaar/phoenix/contextbridge"
	"github.com/hazyhaar/phoenix/dom"
	"github.com/hazyhaar/phoenix/frame"
	"github.com/hazyhaar/phoenix/locator"
	"github.com/hazyhaar/phoenix/tracker"
)

type capture struct {
	mu   sync.Mutex
	msgs []frame.Message
}

func (c *capture) Send(m frame.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, m)
	return nil
}

func (c *capture) snapshot() []frame.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]frame.Message(nil), c.msgs...)
}

func (c *capture) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = nil
}

func setup(t *testing.T, body string) (*dom.Document, *tracker.Tracker, *capture) {
	t.Helper()
	d, err := dom.ParseString("<html><body>" + body + "</body></html>")
	if err != nil {
		t.Fatal(err)
	}
	tr := tracker.New(d, locator.New(nil))
	tr.Scan()
	return d, tr, &capture{}
}

func elemID(t *testing.T, d *dom.Document, tag string) string {
	t.Helper()
	els := d.ElementsByTag(tag)
	if len(els) == 0 {
		t.Fatalf("no <%s>", tag)
	}
	return els[0].AttrOr(dom.AttrID, "")
}

// respond resolves the next AddToContext request as soon as it is sent.
func respond(b *contextbridge.Bridge, c *capture, success bool, errMsg string) chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			for _, m := range c.snapshot() {
				if req, ok := m.(*frame.AddToContext); ok {
					b.Resolve(req.RequestID, success, errMsg)
					return
				}
			}
			time.Sleep(5 * time.Millisecond)
		}
	}()
	return done
}

func TestAddToChatSuccess(t *testing.T) {
	d, tr, out := setup(t, `<button class="cta">Buy now</button>`)
	b := contextbridge.New(tr, out)
	id := elemID(t, d, "button")

	done := respond(b, out, true, "")
	res := b.AddToChat(context.Background(), id)
	<-done

	if !res.Success {
		t.Fatalf("got %+v", res)
	}
	if !b.IsInContext(id) {
		t.Error("element should be in context")
	}
	e, _ := tr.Get(id)
	if _, ok := e.Attr(dom.AttrContextAdded); !ok {
		t.Error("added badge missing")
	}
	if _, ok := e.Attr(dom.AttrContextAdding); ok {
		t.Error("adding feedback should be cleared")
	}

	req := out.snapshot()[0].(*frame.AddToContext)
	data, ok := req.ComponentData.(contextbridge.ComponentData)
	if !ok {
		t.Fatalf("component data: %T", req.ComponentData)
	}
	if !strings.HasPrefix(data.DisplayName, "Button: Buy now") {
		t.Errorf("display name: %q", data.DisplayName)
	}
	if data.Category != "ui" {
		t.Errorf("category: %q", data.Category)
	}
}

func TestAddToChatDuplicateRejected(t *testing.T) {
	d, tr, out := setup(t, `<h2>Pricing plans</h2>`)
	b := contextbridge.New(tr, out)
	id := elemID(t, d, "h2")

	done := respond(b, out, true, "")
	b.AddToChat(context.Background(), id)
	<-done

	res := b.AddToChat(context.Background(), id)
	if res.Success || res.Reason != "already-added" {
		t.Errorf("got %+v", res)
	}
	if got := len(out.snapshot()); got != 1 {
		t.Errorf("duplicate add must not send: %d messages", got)
	}
}

func TestAddToChatTimeout(t *testing.T) {
	d, tr, out := setup(t, `<h2>Slow host</h2>`)
	b := contextbridge.New(tr, out, contextbridge.WithTimeout(20*time.Millisecond))
	id := elemID(t, d, "h2")

	res := b.AddToChat(context.Background(), id)
	if res.Success || res.Error != "timeout" {
		t.Errorf("got %+v", res)
	}
	if b.IsInContext(id) {
		t.Error("timed-out add must not mark as added")
	}
	e, _ := tr.Get(id)
	if _, ok := e.Attr(dom.AttrContextAdding); ok {
		t.Error("adding feedback should be reverted")
	}
}

func TestAddToChatFailureResponse(t *testing.T) {
	d, tr, out := setup(t, `<h2>Rejected</h2>`)
	b := contextbridge.New(tr, out)
	id := elemID(t, d, "h2")

	done := respond(b, out, false, "context full")
	res := b.AddToChat(context.Background(), id)
	<-done

	if res.Success || res.Error != "context full" {
		t.Errorf("got %+v", res)
	}
	if b.IsInContext(id) {
		t.Error("failed add must not mark as added")
	}
}

func TestAddToChatUnknownElement(t *testing.T) {
	_, tr, out := setup(t, `<h2>x</h2>`)
	b := contextbridge.New(tr, out)
	res := b.AddToChat(context.Background(), "no-such-id")
	if res.Success || res.Error == "" {
		t.Errorf("got %+v", res)
	}
}

func TestRemoveAndClear(t *testing.T) {
	d, tr, out := setup(t, `<h2>First item</h2><p>Second item here</p>`)
	b := contextbridge.New(tr, out)
	h2 := elemID(t, d, "h2")
	p := elemID(t, d, "p")

	done := respond(b, out, true, "")
	b.AddToChat(context.Background(), h2)
	<-done
	out.reset()
	done = respond(b, out, true, "")
	b.AddToChat(context.Background(), p)
	<-done

	b.RemoveFromContext(h2)
	if b.IsInContext(h2) {
		t.Error("h2 should be removed")
	}
	if !b.IsInContext(p) {
		t.Error("p should still be in context")
	}

	b.ClearAll()
	if b.IsInContext(p) {
		t.Error("ClearAll should empty the set")
	}
	e, _ := tr.Get(p)
	if _, ok := e.Attr(dom.AttrContextAdded); ok {
		t.Error("badge should be cleared")
	}
}

func TestLateResolveIgnored(t *testing.T) {
	_, tr, out := setup(t, `<h2>x</h2>`)
	b := contextbridge.New(tr, out)
	if b.Resolve("req-unknown", true, "") {
		t.Error("unknown request id should report false")
	}
}

func TestDisplayHeuristics(t *testing.T) {
	d, _, _ := setup(t, `<nav class="main-nav"></nav><a href="/x">Read more</a><div class="hero grid wide extra">content words</div>`)

	nav := d.ElementsByTag("nav")[0]
	if got := contextbridge.GenerateDisplayName(nav); got != "Navigation (main-nav)" {
		t.Errorf("nav display name: %q", got)
	}

	link := d.ElementsByTag("a")[0]
	if got := contextbridge.GenerateDisplayName(link); got != "Link: Read more" {
		t.Errorf("link display name: %q", got)
	}

	div := d.ElementsByTag("div")[0]
	desc := contextbridge.GenerateDescription(div)
	if !strings.Contains(desc, "<div> element") || !strings.Contains(desc, "hero, grid, wide") {
		t.Errorf("description: %q", desc)
	}
}

func TestCategorize(t *testing.T) {
	d, _, _ := setup(t, `<form></form><input><nav></nav><div class="navbar"></div>
<header></header><main></main><button>Buy</button><a href="/x">go</a>
<span role="button">fake</span><div onclick="f()">clicky</div>
<p>plain prose</p><div class="hero">box</div>`)

	cases := []struct {
		tag, class, want string
	}{
		{"form", "", "form"},
		{"input", "", "form"},
		{"nav", "", "navigation"},
		{"div", "navbar", "navigation"},
		{"header", "", "layout"},
		{"main", "", "layout"},
		{"button", "", "ui"},
		{"a", "", "ui"},
		{"span", "", "ui"},
		{"div", "", "ui"},
		{"p", "", "other"},
		{"div", "hero", "other"},
	}
	for _, tc := range cases {
		var target *dom.Element
		for _, e := range d.ElementsByTag(tc.tag) {
			if e.ClassName() == tc.class {
				target = e
				break
			}
		}
		if target == nil {
			t.Fatalf("fixture has no <%s class=%q>", tc.tag, tc.class)
		}
		if got := contextbridge.Categorize(target); got != tc.want {
			t.Errorf("<%s class=%q>: %q, want %q", tc.tag, tc.class, got, tc.want)
		}
	}
}
