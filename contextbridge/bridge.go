// Package contextbridge adds tracked components to the host's chat context.
// Adds are correlated request/response exchanges with the parent frame; the
// local added-set and its visual badges are pure local state.
package contextbridge

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	htmltomd "github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"

	"github.com/hazyhaar/phoenix/dom"
	"github.com/hazyhaar/phoenix/frame"
	"github.com/hazyhaar/phoenix/idgen"
	"github.com/hazyhaar/phoenix/tracker"
)

const snippetMaxLength = 500

// Emitter sends messages to the parent frame.
type Emitter interface {
	Send(m frame.Message) error
}

// ComponentData is the payload describing one component to the host.
type ComponentData struct {
	DisplayName string           `json:"displayName"`
	Description string           `json:"description"`
	Category    string           `json:"category"`
	Snippet     string           `json:"snippet,omitempty"`
	Element     tracker.Metadata `json:"element"`
}

// AddResult is the outcome of an AddToChat call.
type AddResult struct {
	Success bool   `json:"success"`
	Reason  string `json:"reason,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Bridge owns the added-set and the correlation table for context requests.
type Bridge struct {
	tr   *tracker.Tracker
	out  Emitter
	conv *htmltomd.Converter

	pending  *frame.Pending
	newReqID idgen.Generator
	log      *slog.Logger

	mu    sync.Mutex
	added map[string]bool
}

// Option customises a Bridge.
type Option func(*Bridge)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option { return func(b *Bridge) { b.log = l } }

// WithTimeout sets the response timeout. Default: frame.DefaultRequestTimeout.
func WithTimeout(d time.Duration) Option {
	return func(b *Bridge) { b.pending = frame.NewPending(d) }
}

// WithRequestIDs replaces the request id generator.
func WithRequestIDs(g idgen.Generator) Option { return func(b *Bridge) { b.newReqID = g } }

// New wires a Bridge over the tracker and outbound channel.
func New(tr *tracker.Tracker, out Emitter, opts ...Option) *Bridge {
	b := &Bridge{
		tr: tr,
		out: out,
		conv: htmltomd.NewConverter(
			htmltomd.WithPlugins(base.NewBasePlugin(), commonmark.NewCommonmarkPlugin()),
		),
		pending:  frame.NewPending(frame.DefaultRequestTimeout),
		newReqID: idgen.Request,
		log:      slog.Default(),
		added:    make(map[string]bool),
	}
	for _, o := range opts {
		o(b)
	}
	if b.log == nil {
		b.log = slog.Default()
	}
	return b
}

// AddToChat asks the host to add the element to the chat context and waits
// for the correlated response. A duplicate add short-circuits locally; a
// response that never arrives resolves as a timeout failure. Only a
// successful response marks the element as added.
func (b *Bridge) AddToChat(ctx context.Context, elementID string) AddResult {
	e, ok := b.tr.Get(elementID)
	if !ok {
		return AddResult{Success: false, Error: "unknown element"}
	}

	b.mu.Lock()
	if b.added[elementID] {
		b.mu.Unlock()
		return AddResult{Success: false, Reason: "already-added"}
	}
	b.mu.Unlock()

	// Immediate pulse feedback while the request is in flight.
	e.SetAttr(dom.AttrContextAdding, "true")

	reqID := b.newReqID()
	b.pending.Register(reqID)
	msg := &frame.AddToContext{
		PhoenixID:     elementID,
		ComponentData: b.Describe(e),
		Timestamp:     time.Now().UnixMilli(),
		RequestID:     reqID,
	}
	if err := b.out.Send(msg); err != nil {
		e.RemoveAttr(dom.AttrContextAdding)
		b.log.Warn("contextbridge: send failed", "id", elementID, "error", err)
		return AddResult{Success: false, Error: err.Error()}
	}

	r := b.pending.Await(ctx, reqID)
	e.RemoveAttr(dom.AttrContextAdding)
	if !r.Success {
		b.log.Debug("contextbridge: add failed", "id", elementID, "error", r.Err)
		return AddResult{Success: false, Error: r.Err}
	}

	e.SetAttr(dom.AttrContextAdded, "true")
	b.mu.Lock()
	b.added[elementID] = true
	b.mu.Unlock()
	return AddResult{Success: true}
}

// Resolve routes an add-to-context response to its waiting request. Late or
// unknown request ids report false.
func (b *Bridge) Resolve(requestID string, success bool, errMsg string) bool {
	return b.pending.Resolve(requestID, frame.Result{Success: success, Err: errMsg})
}

// IsInContext reports whether the element has been added.
func (b *Bridge) IsInContext(elementID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.added[elementID]
}

// RemoveFromContext drops the element from the added-set and clears its
// badge. Local state only.
func (b *Bridge) RemoveFromContext(elementID string) {
	b.mu.Lock()
	delete(b.added, elementID)
	b.mu.Unlock()
	if e, ok := b.tr.Get(elementID); ok {
		e.RemoveAttr(dom.AttrContextAdded)
	}
}

// ClearAll empties the added-set and clears every badge.
func (b *Bridge) ClearAll() {
	b.mu.Lock()
	ids := make([]string, 0, len(b.added))
	for id := range b.added {
		ids = append(ids, id)
	}
	b.added = make(map[string]bool)
	b.mu.Unlock()
	for _, id := range ids {
		if e, ok := b.tr.Get(id); ok {
			e.RemoveAttr(dom.AttrContextAdded)
		}
	}
}

// Describe assembles the component payload sent with an add request.
func (b *Bridge) Describe(e *dom.Element) ComponentData {
	return ComponentData{
		DisplayName: GenerateDisplayName(e),
		Description: GenerateDescription(e),
		Category:    Categorize(e),
		Snippet:     b.snippet(e),
		Element:     b.tr.Metadata(e),
	}
}

// snippet renders the element's outer HTML to markdown, truncated. A
// conversion failure degrades to no snippet rather than failing the add.
func (b *Bridge) snippet(e *dom.Element) string {
	md, err := b.conv.ConvertString(e.HTML())
	if err != nil {
		b.log.Debug("contextbridge: snippet conversion failed", "error", err)
		return ""
	}
	md = strings.TrimSpace(md)
	if len(md) > snippetMaxLength {
		md = md[:snippetMaxLength]
	}
	return md
}
