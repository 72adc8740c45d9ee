package locator_test

import (
	"testing"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/phoenix/dbopen"
	"github.com/hazyhaar/phoenix/dom"
	"github.com/hazyhaar/phoenix/locator"
)

func parse(t *testing.T, s string) *dom.Document {
	t.Helper()
	d, err := dom.ParseString(s)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func first(t *testing.T, d *dom.Document, tag string) *dom.Element {
	t.Helper()
	els := d.ElementsByTag(tag)
	if len(els) == 0 {
		t.Fatalf("no <%s>", tag)
	}
	return els[0]
}

func TestLocateStampedAttributes(t *testing.T) {
	d := parse(t, `<html><body>
<p data-phoenix-source="./src/components/Hero.tsx" data-phoenix-line="42" data-phoenix-col="7">hi</p>
</body></html>`)
	lc := locator.New(nil)

	loc := lc.Locate(first(t, d, "p"))
	want := locator.Location{
		FilePath:   "./src/components/Hero.tsx",
		Line:       42,
		Column:     7,
		Confidence: 1.0,
		Strategy:   locator.StrategyStamped,
	}
	if loc != want {
		t.Errorf("got %+v, want %+v", loc, want)
	}
}

func TestLocateIndexNode(t *testing.T) {
	db := dbopen.OpenMemory(t, dbopen.WithSchema(locator.Schema))
	lc := locator.New(db)

	if err := lc.IndexNode("phoenix-1-1", locator.Location{FilePath: "./src/app/nav.tsx", Line: 9, Column: 3}); err != nil {
		t.Fatal(err)
	}

	d := parse(t, `<html><body><nav data-phoenix-id="phoenix-1-1">x</nav></body></html>`)
	loc := lc.Locate(first(t, d, "nav"))
	if loc.FilePath != "./src/app/nav.tsx" || loc.Confidence != 0.9 || loc.Strategy != locator.StrategyIndexNode {
		t.Errorf("got %+v", loc)
	}
}

func TestLocateIndexPathAndFingerprint(t *testing.T) {
	db := dbopen.OpenMemory(t, dbopen.WithSchema(locator.Schema))
	lc := locator.New(db)

	d := parse(t, `<html><body><div class="card"><h2 class="card-title">Pricing</h2></div></body></html>`)
	h2 := first(t, d, "h2")

	if err := lc.IndexPath(h2.SelectorPath(), locator.Location{FilePath: "./src/components/Card.tsx", Line: 12, Column: 5}); err != nil {
		t.Fatal(err)
	}
	loc := lc.Locate(h2)
	if loc.Strategy != locator.StrategyIndexPath || loc.Confidence != 0.85 {
		t.Errorf("path lookup: got %+v", loc)
	}

	// Fingerprint resolves the same element after its path changed.
	db2 := dbopen.OpenMemory(t, dbopen.WithSchema(locator.Schema))
	lc2 := locator.New(db2)
	if err := lc2.IndexFingerprint(locator.Fingerprint(h2), locator.Location{FilePath: "./src/components/Card.tsx", Line: 12, Column: 5}); err != nil {
		t.Fatal(err)
	}
	loc2 := lc2.Locate(h2)
	if loc2.Strategy != locator.StrategyFingerprint || loc2.Confidence != 0.85 {
		t.Errorf("fingerprint lookup: got %+v", loc2)
	}
}

func TestLocateClassAmbiguitySkipped(t *testing.T) {
	db := dbopen.OpenMemory(t, dbopen.WithSchema(locator.Schema))
	lc := locator.New(db)

	// "btn" maps to two files, "checkout-cta" to one.
	if err := lc.IndexClass("btn", locator.Location{FilePath: "./src/a.tsx", Line: 1, Column: 1}); err != nil {
		t.Fatal(err)
	}
	if err := lc.IndexClass("btn", locator.Location{FilePath: "./src/b.tsx", Line: 2, Column: 1}); err != nil {
		t.Fatal(err)
	}
	if err := lc.IndexClass("checkout-cta", locator.Location{FilePath: "./src/checkout.tsx", Line: 30, Column: 2}); err != nil {
		t.Fatal(err)
	}

	d := parse(t, `<html><body><button class="btn checkout-cta">Buy</button></body></html>`)
	loc := lc.Locate(first(t, d, "button"))
	if loc.FilePath != "./src/checkout.tsx" || loc.Strategy != locator.StrategyUniqueClass || loc.Confidence != 0.8 {
		t.Errorf("got %+v", loc)
	}
}

func TestLocateDebugMetadata(t *testing.T) {
	d := parse(t, `<html><body>
<section data-debug-source='{"fileName":"./src/sections/Faq.tsx","lineNumber":18,"columnNumber":4}'>q</section>
</body></html>`)
	loc := locator.New(nil).Locate(first(t, d, "section"))
	if loc.FilePath != "./src/sections/Faq.tsx" || loc.Line != 18 || loc.Confidence != 0.8 {
		t.Errorf("got %+v", loc)
	}
}

func TestLocateRenderTraceOnAncestor(t *testing.T) {
	d := parse(t, `<html><body>
<div data-render-trace="./src/widgets/Chart.tsx:77:10"><span>legend</span></div>
</body></html>`)
	loc := locator.New(nil).Locate(first(t, d, "span"))
	if loc.FilePath != "./src/widgets/Chart.tsx" || loc.Line != 77 || loc.Column != 10 {
		t.Errorf("got %+v", loc)
	}
	if loc.Confidence != 0.6 || loc.Strategy != locator.StrategyRenderTrace {
		t.Errorf("got %+v", loc)
	}
}

func TestLocateStructuralGuesses(t *testing.T) {
	tests := []struct {
		name string
		html string
		tag  string
		file string
	}{
		{
			"css module class",
			`<html><body><div class="Button_root__a1b2c">x</div></body></html>`,
			"div", "./src/components/Button.tsx",
		},
		{
			"pascal case class",
			`<html><body><div class="Sidebar">x</div></body></html>`,
			"div", "./src/components/Sidebar.tsx",
		},
		{
			"ancestor data-component",
			`<html><body><div data-component="Footer"><p>x</p></div></body></html>`,
			"p", "./src/components/Footer.tsx",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := parse(t, tt.html)
			loc := locator.New(nil).Locate(first(t, d, tt.tag))
			if loc.FilePath != tt.file {
				t.Errorf("got %q, want %q", loc.FilePath, tt.file)
			}
			if loc.Confidence != 0.3 || loc.Strategy != locator.StrategyStructural {
				t.Errorf("got %+v", loc)
			}
		})
	}
}

func TestLocateFallbackNeverFails(t *testing.T) {
	d := parse(t, `<html><body><p>plain</p></body></html>`)
	loc := locator.New(nil).Locate(first(t, d, "p"))
	want := locator.Location{
		FilePath:   locator.FallbackPath,
		Line:       1,
		Column:     1,
		Confidence: 0.3,
		Strategy:   locator.StrategyFallback,
	}
	if loc != want {
		t.Errorf("got %+v, want %+v", loc, want)
	}
}

func TestFileRef(t *testing.T) {
	loc := locator.Location{FilePath: "./src/app/page.tsx", Line: 14}
	if got := loc.FileRef(); got != "./src/app/page.tsx:14" {
		t.Errorf("got %q", got)
	}
}
