// Package pageload captures a rendered page into the document model: it
// drives a headless Chrome through Rod, pulls the post-render HTML, and
// transfers the browser's layout geometry onto the parsed tree so
// hit-testing and footprint rules work on real coordinates.
package pageload

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/hazyhaar/phoenix/dom"
)

// Config configures the loader.
type Config struct {
	// RemoteURL is the WebSocket URL of an external Chrome instance.
	// Empty = launch a local Chrome via launcher.
	RemoteURL string

	// Stealth applies the stealth evasions when opening pages. Default: on
	// for launched browsers, matching how dev servers treat obvious bots.
	Stealth bool

	// NavigateTimeout bounds navigation plus load wait. Default: 30s.
	NavigateTimeout time.Duration

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.NavigateTimeout <= 0 {
		c.NavigateTimeout = 30 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Loader owns one browser connection and snapshots pages from it.
type Loader struct {
	cfg Config

	mu      sync.Mutex
	browser *rod.Browser
	lnch    *launcher.Launcher
}

// New creates a Loader. Call Start before Snapshot.
func New(cfg Config) *Loader {
	cfg.defaults()
	return &Loader{cfg: cfg}
}

// Start launches Chrome, or connects to the configured remote instance.
func (l *Loader) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.browser != nil {
		return nil
	}

	url := l.cfg.RemoteURL
	if url == "" {
		lnch := launcher.New().Headless(true)
		u, err := lnch.Launch()
		if err != nil {
			return fmt.Errorf("pageload: launch chrome: %w", err)
		}
		l.lnch = lnch
		url = u
	}

	b := rod.New().Context(ctx).ControlURL(url)
	if err := b.Connect(); err != nil {
		if l.lnch != nil {
			l.lnch.Cleanup()
			l.lnch = nil
		}
		return fmt.Errorf("pageload: connect: %w", err)
	}
	l.browser = b
	l.cfg.Logger.Info("pageload: browser ready", "remote", l.cfg.RemoteURL != "")
	return nil
}

// Close disconnects and, for a launched browser, kills the Chrome process.
func (l *Loader) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.browser == nil {
		return nil
	}
	err := l.browser.Close()
	if l.lnch != nil {
		l.lnch.Cleanup()
		l.lnch = nil
	}
	l.browser = nil
	return err
}

// layout is the geometry dump evaluated in the page: viewport plus one rect
// per element in document order, the same order the parsed tree walks.
type layout struct {
	Width  float64 `json:"w"`
	Height float64 `json:"h"`
	Rects  []struct {
		X float64 `json:"x"`
		Y float64 `json:"y"`
		W float64 `json:"w"`
		H float64 `json:"h"`
	} `json:"rects"`
}

const layoutScript = `() => {
	const rects = [];
	for (const el of document.querySelectorAll('*')) {
		const r = el.getBoundingClientRect();
		rects.push({x: r.x, y: r.y, w: r.width, h: r.height});
	}
	return JSON.stringify({w: innerWidth, h: innerHeight, rects});
}`

// Snapshot navigates to the URL, waits for load, and returns the rendered
// document with browser geometry attached. Geometry transfer is best-effort:
// if the parsed tree and the live DOM disagree on element count the rects
// are skipped and the flow estimator takes over.
func (l *Loader) Snapshot(ctx context.Context, pageURL string) (*dom.Document, error) {
	l.mu.Lock()
	b := l.browser
	l.mu.Unlock()
	if b == nil {
		return nil, fmt.Errorf("pageload: not started")
	}

	var page *rod.Page
	var err error
	if l.cfg.Stealth {
		page, err = stealth.Page(b)
	} else {
		page, err = b.Page(proto.TargetCreateTarget{URL: ""})
	}
	if err != nil {
		return nil, fmt.Errorf("pageload: create tab: %w", err)
	}
	defer page.Close()

	navCtx, cancel := context.WithTimeout(ctx, l.cfg.NavigateTimeout)
	defer cancel()

	if err := page.Context(navCtx).Navigate(pageURL); err != nil {
		return nil, fmt.Errorf("pageload: navigate %s: %w", pageURL, err)
	}
	if err := page.Context(navCtx).WaitLoad(); err != nil {
		l.cfg.Logger.Warn("pageload: wait load timeout", "url", pageURL, "error", err)
	}

	res, err := page.Context(navCtx).Eval(`() => document.documentElement.outerHTML`)
	if err != nil {
		return nil, fmt.Errorf("pageload: read html: %w", err)
	}
	doc, err := dom.ParseString(res.Value.Str())
	if err != nil {
		return nil, fmt.Errorf("pageload: parse: %w", err)
	}

	if err := l.applyLayout(navCtx, page, doc); err != nil {
		l.cfg.Logger.Warn("pageload: layout skipped", "url", pageURL, "error", err)
	}
	return doc, nil
}

func (l *Loader) applyLayout(ctx context.Context, page *rod.Page, doc *dom.Document) error {
	res, err := page.Context(ctx).Eval(layoutScript)
	if err != nil {
		return fmt.Errorf("eval layout: %w", err)
	}
	var lay layout
	if err := json.Unmarshal([]byte(res.Value.Str()), &lay); err != nil {
		return fmt.Errorf("decode layout: %w", err)
	}
	if lay.Width > 0 && lay.Height > 0 {
		doc.SetViewport(lay.Width, lay.Height)
	}

	count := 0
	doc.EachElement(func(*dom.Element) bool { count++; return true })
	if count != len(lay.Rects) {
		return fmt.Errorf("element count mismatch: parsed %d, live %d", count, len(lay.Rects))
	}

	i := 0
	doc.EachElement(func(e *dom.Element) bool {
		r := lay.Rects[i]
		i++
		doc.SetRect(e, dom.Rect{X: r.X, Y: r.Y, Width: r.W, Height: r.H})
		return true
	})
	return nil
}
