package editor

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/phoenix/kit"
)

// RegisterMCP registers the editor's inspection and edit tools on an MCP
// server, giving agent tooling the same surface the parent frame has.
func (e *Editor) RegisterMCP(srv *mcp.Server) {
	e.registerToggleTool(srv)
	e.registerScanTool(srv)
	e.registerInspectTool(srv)
	e.registerLocateTool(srv)
	e.registerSelectTool(srv)
	e.registerEditTool(srv)
	e.registerEditTextTool(srv)
	e.registerAddToContextTool(srv)
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

// --- toggle ---

type toggleReq struct {
	Enabled bool `json:"enabled"`
}

func (e *Editor) registerToggleTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "phoenix_toggle",
		Description: "Enable or disable element tracking. Disabling cancels any active inline edit.",
		InputSchema: inputSchema(map[string]any{
			"enabled": map[string]any{"type": "boolean", "description": "Desired tracking state"},
		}, []string{"enabled"}),
	}

	endpoint := func(_ context.Context, req any) (any, error) {
		r := req.(*toggleReq)
		if r.Enabled != e.ctrl.Enabled() {
			if r.Enabled {
				e.ctrl.Enable()
			} else {
				e.ctrl.Disable()
			}
		}
		return map[string]any{"enabled": e.ctrl.Enabled(), "elementCount": e.tr.Count()}, nil
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r toggleReq
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- scan ---

func (e *Editor) registerScanTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "phoenix_scan",
		Description: "Scan the document for trackable elements and return registry statistics.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}

	endpoint := func(_ context.Context, _ any) (any, error) {
		count := e.tr.Scan()
		return map[string]any{"count": count, "stats": e.tr.Stats()}, nil
	}

	decode := func(_ *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		return &kit.MCPDecodeResult{Request: struct{}{}}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- inspect ---

type inspectReq struct {
	ElementID string `json:"element_id"`
}

func (e *Editor) registerInspectTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "phoenix_inspect",
		Description: "Return the metadata snapshot of a tracked element by its phoenix id.",
		InputSchema: inputSchema(map[string]any{
			"element_id": map[string]any{"type": "string", "description": "Tracked element id"},
		}, []string{"element_id"}),
	}

	endpoint := func(_ context.Context, req any) (any, error) {
		r := req.(*inspectReq)
		meta, ok := e.tr.MetadataByID(r.ElementID)
		if !ok {
			return nil, fmt.Errorf("unknown element %q", r.ElementID)
		}
		return meta, nil
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r inspectReq
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- locate ---

type locateReq struct {
	ElementID string `json:"element_id"`
}

func (e *Editor) registerLocateTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "phoenix_locate",
		Description: "Resolve the source file, line, and column of a tracked element, with a confidence score.",
		InputSchema: inputSchema(map[string]any{
			"element_id": map[string]any{"type": "string", "description": "Tracked element id"},
		}, []string{"element_id"}),
	}

	endpoint := func(_ context.Context, req any) (any, error) {
		r := req.(*locateReq)
		el, ok := e.tr.Get(r.ElementID)
		if !ok {
			return nil, fmt.Errorf("unknown element %q", r.ElementID)
		}
		return e.loc.Locate(el), nil
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r locateReq
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- select ---

type selectReq struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Shift bool    `json:"shift"`
}

func (e *Editor) registerSelectTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "phoenix_select",
		Description: "Click at viewport coordinates: select the nearest trackable element, or open the class editor with shift.",
		InputSchema: inputSchema(map[string]any{
			"x":     map[string]any{"type": "number", "description": "Viewport x"},
			"y":     map[string]any{"type": "number", "description": "Viewport y"},
			"shift": map[string]any{"type": "boolean", "description": "Shift-click opens the class editor"},
		}, []string{"x", "y"}),
	}

	endpoint := func(_ context.Context, req any) (any, error) {
		r := req.(*selectReq)
		target := e.ctrl.Click(r.X, r.Y, r.Shift)
		if target == nil {
			return nil, fmt.Errorf("no trackable element at (%v, %v)", r.X, r.Y)
		}
		return e.tr.Metadata(target), nil
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r selectReq
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- edit ---

type editReq struct {
	ElementID string `json:"element_id"`
	Property  string `json:"property"`
	Value     string `json:"value"`
}

func (e *Editor) registerEditTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "phoenix_edit",
		Description: "Apply a visual edit (className, textContent, or a style property) to a tracked element.",
		InputSchema: inputSchema(map[string]any{
			"element_id": map[string]any{"type": "string", "description": "Tracked element id"},
			"property":   map[string]any{"type": "string", "description": "Property to change"},
			"value":      map[string]any{"type": "string", "description": "New value"},
		}, []string{"element_id", "property", "value"}),
	}

	endpoint := func(_ context.Context, req any) (any, error) {
		r := req.(*editReq)
		if !e.co.Apply(r.ElementID, r.Property, r.Value) {
			return nil, fmt.Errorf("edit not applied: element %q property %q", r.ElementID, r.Property)
		}
		e.co.Confirm(r.ElementID)
		return map[string]any{"applied": true}, nil
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r editReq
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- edit text ---

type editTextReq struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Text string  `json:"text"`
}

func (e *Editor) registerEditTextTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "phoenix_edit_text",
		Description: "Open an inline text edit on the element at the coordinates and commit the given text. A no-op edit is reported, not an error.",
		InputSchema: inputSchema(map[string]any{
			"x":    map[string]any{"type": "number", "description": "Viewport x"},
			"y":    map[string]any{"type": "number", "description": "Viewport y"},
			"text": map[string]any{"type": "string", "description": "Replacement text"},
		}, []string{"x", "y", "text"}),
	}

	endpoint := func(_ context.Context, req any) (any, error) {
		r := req.(*editTextReq)
		if e.ctrl.DoubleClick(r.X, r.Y, "", "") == nil {
			return nil, fmt.Errorf("no editable text at (%v, %v)", r.X, r.Y)
		}
		s := e.mgr.Active()
		if s == nil {
			return nil, fmt.Errorf("text session did not open")
		}
		s.SetDraft(r.Text)
		res := s.Commit()
		if res == nil {
			return map[string]any{"committed": false}, nil
		}
		return map[string]any{
			"committed": true,
			"requestId": res.RequestID,
			"elementId": res.ElementID,
		}, nil
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r editTextReq
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- add to context ---

type addToContextReq struct {
	ElementID string `json:"element_id"`
}

func (e *Editor) registerAddToContextTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "phoenix_add_to_context",
		Description: "Request that the parent add a tracked element to the chat context, waiting for the correlated response.",
		InputSchema: inputSchema(map[string]any{
			"element_id": map[string]any{"type": "string", "description": "Tracked element id"},
		}, []string{"element_id"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*addToContextReq)
		return e.bridge.AddToChat(ctx, r.ElementID), nil
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r addToContextReq
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}
