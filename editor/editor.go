// Package editor assembles the visual editing engine: document model,
// tracker, locator, optimistic coordinator, inline editors, interaction
// controller, and context bridge, all driven by one message loop over the
// parent-frame channel.
package editor

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hazyhaar/phoenix/contextbridge"
	"github.com/hazyhaar/phoenix/dbopen"
	"github.com/hazyhaar/phoenix/dom"
	"github.com/hazyhaar/phoenix/frame"
	"github.com/hazyhaar/phoenix/inline"
	"github.com/hazyhaar/phoenix/interaction"
	"github.com/hazyhaar/phoenix/locator"
	"github.com/hazyhaar/phoenix/optimistic"
	"github.com/hazyhaar/phoenix/tracker"
)

// Editor is one editing engine bound to a document and a frame channel.
type Editor struct {
	cfg  Config
	doc  *dom.Document
	conn frame.Conn
	log  *slog.Logger

	loc    *locator.Locator
	tr     *tracker.Tracker
	co     *optimistic.Coordinator
	mgr    *inline.Manager
	text   *inline.TextEditor
	class  *inline.ClassEditor
	bridge *contextbridge.Bridge
	ctrl   *interaction.Controller

	db *sql.DB

	// editTargets maps in-flight edit request ids to element ids so the
	// parent's persistence outcome can confirm or roll back the right
	// optimistic mutation.
	mu          sync.Mutex
	editTargets map[string]string
}

// Option customises an Editor.
type Option func(*Editor)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option { return func(e *Editor) { e.log = l } }

// WithIndexDB supplies an already-open source index database instead of
// opening cfg.Index.Path.
func WithIndexDB(db *sql.DB) Option { return func(e *Editor) { e.db = db } }

// New builds the engine over a parsed document and a frame connection.
func New(cfg Config, doc *dom.Document, conn frame.Conn, opts ...Option) (*Editor, error) {
	cfg.applyDefaults()
	e := &Editor{
		cfg:         cfg,
		doc:         doc,
		conn:        conn,
		log:         slog.Default(),
		editTargets: make(map[string]string),
	}
	for _, o := range opts {
		o(e)
	}
	if e.log == nil {
		e.log = slog.Default()
	}

	doc.SetViewport(cfg.Viewport.Width, cfg.Viewport.Height)

	if e.db == nil && cfg.Index.Path != "" {
		db, err := dbopen.Open(cfg.Index.Path, dbopen.WithMkdirAll(), dbopen.WithSchema(locator.Schema))
		if err != nil {
			return nil, fmt.Errorf("editor: open source index: %w", err)
		}
		e.db = db
	}

	e.loc = locator.New(e.db, locator.WithLogger(e.log))
	e.tr = tracker.New(doc, e.loc, tracker.WithLogger(e.log))
	e.co = optimistic.New(e.tr, optimistic.WithLogger(e.log))
	e.mgr = inline.NewManager()

	hook := func(kind string, r *inline.EditResult) {
		e.mu.Lock()
		e.editTargets[r.RequestID] = r.ElementID
		e.mu.Unlock()
	}
	e.text = inline.NewTextEditor(doc, e.loc, e.co, e.mgr, conn,
		inline.WithTextLogger(e.log), inline.WithTextCommitHook(hook))
	e.class = inline.NewClassEditor(doc, e.loc, e.co, e.mgr, conn,
		inline.WithClassLogger(e.log), inline.WithClassCommitHook(hook),
		inline.WithBlurGrace(cfg.Timing.BlurGrace))
	e.bridge = contextbridge.New(e.tr, conn,
		contextbridge.WithLogger(e.log), contextbridge.WithTimeout(cfg.Timing.RequestTimeout))
	e.ctrl = interaction.New(interaction.Deps{
		Doc:      doc,
		Tracker:  e.tr,
		Locator:  e.loc,
		Text:     e.text,
		Class:    e.class,
		Sessions: e.mgr,
		Bridge:   e.bridge,
		Out:      conn,
	}, interaction.WithLogger(e.log), interaction.WithHoverDelay(cfg.Timing.HoverDelay))

	return e, nil
}

// Tracker exposes the element registry, mainly for the MCP surface.
func (e *Editor) Tracker() *tracker.Tracker { return e.tr }

// Controller exposes the interaction controller.
func (e *Editor) Controller() *interaction.Controller { return e.ctrl }

// Bridge exposes the context-addition bridge.
func (e *Editor) Bridge() *contextbridge.Bridge { return e.bridge }

// Coordinator exposes the optimistic edit coordinator.
func (e *Editor) Coordinator() *optimistic.Coordinator { return e.co }

// Locator exposes the source locator.
func (e *Editor) Locator() *locator.Locator { return e.loc }

// Close releases the source index database, if the editor opened one.
func (e *Editor) Close() error {
	if e.db != nil {
		return e.db.Close()
	}
	return nil
}

// Run announces readiness and pumps the inbound message loop until ctx is
// cancelled or the connection closes.
func (e *Editor) Run(ctx context.Context) error {
	e.announce()

	type recvResult struct {
		msg frame.Message
		err error
	}
	inbox := make(chan recvResult)
	go func() {
		for {
			m, err := e.conn.Recv()
			select {
			case inbox <- recvResult{m, err}:
			case <-ctx.Done():
				return
			}
			if err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case r := <-inbox:
			if r.err != nil {
				if errors.Is(r.err, frame.ErrClosed) {
					return nil
				}
				return fmt.Errorf("editor: recv: %w", r.err)
			}
			e.Handle(ctx, r.msg)
		}
	}
}

// announce emits the load beacon and the per-subsystem readiness beacons.
func (e *Editor) announce() {
	now := time.Now().UnixMilli()
	e.send(&frame.HelperReady{Enabled: e.ctrl.Enabled(), Timestamp: now})
	e.send(&frame.ContextIntegrationReady{Timestamp: now})
	e.send(&frame.SourceMapTrackerReady{ProjectRoot: e.cfg.Project.Root, Timestamp: now})
	e.send(&frame.TextEditorReady{Timestamp: now})
	ready := &frame.VisualEditReady{}
	ready.Payload.ProjectID = e.cfg.Project.ID
	ready.Payload.Capabilities = optimistic.Properties()
	ready.Payload.Timestamp = now
	e.send(ready)
}

// Handle dispatches one inbound message. Unknown inbound types are logged
// and dropped; outbound types arriving inbound are a host bug and treated
// the same way.
func (e *Editor) Handle(ctx context.Context, m frame.Message) {
	switch msg := m.(type) {
	case *frame.TrackingToggle:
		e.handleToggle(msg)
	case *frame.Ping:
		e.handlePing()
	case *frame.VisualEditRequest:
		e.handleVisualEdit(msg)
	case *frame.VisualEditOptimistic:
		for property, value := range msg.Payload.Changes {
			if !e.co.Apply(msg.Payload.PhoenixID, property, value) {
				e.log.Debug("editor: optimistic change rejected",
					"id", msg.Payload.PhoenixID, "property", property)
			}
		}
	case *frame.VisualEditReset:
		n := e.co.RollbackAll()
		e.log.Info("editor: visual edits reset", "rolled_back", n)
	case *frame.AddToContextResponse:
		if !e.bridge.Resolve(msg.RequestID, msg.Success, msg.Error) {
			e.log.Debug("editor: stale context response", "request_id", msg.RequestID)
		}
	case *frame.ASTEditResponse:
		e.handleASTEditResponse(msg)
	case *frame.PointerMove:
		e.ctrl.PointerMove(msg.X, msg.Y)
	case *frame.PointerOut:
		e.ctrl.PointerOut()
	case *frame.Click:
		e.ctrl.Click(msg.X, msg.Y, msg.Shift)
	case *frame.DoubleClick:
		e.ctrl.DoubleClick(msg.X, msg.Y, msg.PreSelectedText, msg.SelectedText)
	case *frame.Key:
		e.ctrl.HandleKey(*msg)
	case *frame.Input:
		e.ctrl.HandleInput(msg.Value)
	case *frame.PopupAction:
		if msg.Action == interaction.ActionAddToContext {
			// AddToChat blocks awaiting the response this very loop must
			// deliver, so the action runs off the loop goroutine.
			go e.ctrl.PopupAction(ctx, msg.Action)
		} else {
			e.ctrl.PopupAction(ctx, msg.Action)
		}
	default:
		e.log.Warn("editor: unhandled message", "type", m.MsgType())
	}
}

// handleToggle acknowledges before any state change, then applies the
// toggle. A toggle to the current state is acknowledged but otherwise a
// no-op, so repeated enables do not re-scan and re-announce.
func (e *Editor) handleToggle(msg *frame.TrackingToggle) {
	prev := e.ctrl.Enabled()
	e.send(&frame.TrackingToggleAck{
		Enabled:       msg.Enabled,
		PreviousState: prev,
		Timestamp:     time.Now().UnixMilli(),
	})
	if msg.Enabled == prev {
		return
	}
	if msg.Enabled {
		e.ctrl.Enable()
	} else {
		e.ctrl.Disable()
	}
}

func (e *Editor) handlePing() {
	pong := &frame.Pong{}
	pong.Payload.Enabled = e.ctrl.Enabled()
	pong.Payload.ElementCount = e.tr.Count()
	pong.Payload.Timestamp = time.Now().Format(time.RFC3339)
	e.send(pong)
}

// handleVisualEdit applies one property change and always answers, success
// or not. A successful apply is confirmed immediately: the parent owns the
// source of truth for this channel and reconciles via reset if needed.
func (e *Editor) handleVisualEdit(msg *frame.VisualEditRequest) {
	p := msg.Payload
	applied := e.co.Apply(p.PhoenixID, p.Property, p.Value)
	if applied {
		e.co.Confirm(p.PhoenixID)
	}

	resp := &frame.VisualEditResponse{Payload: frame.VisualEditResponsePayload{
		PhoenixID: p.PhoenixID,
		Property:  p.Property,
		Value:     p.Value,
		Success:   applied,
		Timestamp: time.Now().UnixMilli(),
	}}
	if !applied {
		resp.Payload.Error = "edit not applied"
	}
	e.send(resp)
}

// handleASTEditResponse settles the optimistic mutation behind a committed
// inline edit: persisted means confirm, failed means roll back.
func (e *Editor) handleASTEditResponse(msg *frame.ASTEditResponse) {
	e.mu.Lock()
	elementID, ok := e.editTargets[msg.RequestID]
	delete(e.editTargets, msg.RequestID)
	e.mu.Unlock()
	if !ok {
		e.log.Debug("editor: response for unknown edit", "request_id", msg.RequestID)
		return
	}
	if msg.Success {
		e.co.Confirm(elementID)
		e.log.Info("editor: edit persisted", "request_id", msg.RequestID, "id", elementID)
		return
	}
	if e.co.Rollback(elementID) {
		e.log.Warn("editor: edit rejected, rolled back", "request_id", msg.RequestID, "id", elementID)
	} else {
		e.log.Warn("editor: edit rejected, nothing to roll back", "request_id", msg.RequestID, "id", elementID)
	}
}

func (e *Editor) send(m frame.Message) {
	if err := e.conn.Send(m); err != nil {
		e.log.Warn("editor: send failed", "type", m.MsgType(), "error", err)
	}
}
