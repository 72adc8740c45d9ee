// Package frame implements the cross-document messaging channel between the
// editor engine and its parent frame: a closed, typed message set, an origin
// policy, request/response correlation, and two transports (in-process pipe
// and websocket).
//
// The wire format is a JSON object with a "type" discriminator and the
// message fields at top level, matching what the embedding host already
// speaks. Unknown types are a decode error, not a silent drop, so typos in
// the discriminator surface at the boundary.
package frame

import "encoding/json"

// Message is one typed frame message. The set of implementations in this
// package is closed; Decode refuses anything else.
type Message interface {
	MsgType() string
}

// Message type discriminators, editor → parent.
const (
	TypeHelperReady             = "phoenix-helper-ready"
	TypeEnabled                 = "ed.enabled"
	TypeDisabled                = "ed.disabled"
	TypeSelect                  = "ed.select"
	TypeComponentSelected       = "phoenix-component-selected"
	TypeTextEdit                = "phoenix-text-edit"
	TypeClassEdit               = "phoenix-class-edit"
	TypeAddToContext            = "phoenix-add-to-context"
	TypeVisualEditResponse      = "visual-edit-response"
	TypeTrackingToggleAck       = "phoenix-tracking-toggle-ack"
	TypePong                    = "ed.pong"
	TypeContextIntegrationReady = "phoenix-context-integration-ready"
	TypeSourceMapTrackerReady   = "phoenix-sourcemap-tracker-ready"
	TypeTextEditorReady         = "phoenix-text-editor-ready"
	TypeVisualEditReady         = "visual-edit-ready"
)

// Message type discriminators, parent → editor. The ed.pointer/click/key
// family carries forwarded user gestures: a headless engine has no event
// loop of its own, so the host that renders the document streams gestures in.
const (
	TypeTrackingToggle       = "phoenix-tracking-toggle"
	TypePing                 = "ed.ping"
	TypeVisualEditRequest    = "visual-edit-request"
	TypeVisualEditOptimistic = "visual-edit-optimistic"
	TypeVisualEditReset      = "visual-edit-reset"
	TypeAddToContextResponse = "phoenix-add-to-context-response"
	TypeASTEditResponse      = "phoenix-ast-edit-response"
	TypePointerMove          = "ed.pointer-move"
	TypePointerOut           = "ed.pointer-out"
	TypeClick                = "ed.click"
	TypeDoubleClick          = "ed.dblclick"
	TypeKey                  = "ed.key"
	TypeInput                = "ed.input"
	TypePopupAction          = "ed.popup-action"
)

// --- editor → parent ---

// HelperReady is sent once when the engine loads.
type HelperReady struct {
	Enabled   bool  `json:"enabled"`
	Timestamp int64 `json:"timestamp"`
}

func (HelperReady) MsgType() string { return TypeHelperReady }

// EnabledPayload reports a tracking enable.
type EnabledPayload struct {
	ElementCount int    `json:"elementCount"`
	Timestamp    string `json:"timestamp"`
}

// Enabled announces that tracking turned on.
type Enabled struct {
	Payload EnabledPayload `json:"payload"`
}

func (Enabled) MsgType() string { return TypeEnabled }

// Disabled announces that tracking turned off.
type Disabled struct {
	Payload struct {
		Timestamp string `json:"timestamp"`
	} `json:"payload"`
}

func (Disabled) MsgType() string { return TypeDisabled }

// SelectRect is the click-time geometry snapshot in the legacy selection.
type SelectRect struct {
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
	ScrollX float64 `json:"scrollX"`
	ScrollY float64 `json:"scrollY"`
}

// SelectPayload is the legacy flat selection shape.
type SelectPayload struct {
	UID           string            `json:"uid"`
	Selector      string            `json:"selector"`
	Tag           string            `json:"tag"`
	ComponentName string            `json:"componentName"`
	FileName      string            `json:"fileName"`
	Classes       []string          `json:"classes"`
	Text          string            `json:"text"`
	Rect          SelectRect        `json:"rect"`
	Attributes    map[string]string `json:"attributes"`
	Analysis      any               `json:"analysis"`
	Timestamp     string            `json:"timestamp"`
}

// Select is the legacy selection broadcast, kept for backward compatibility
// and always sent alongside ComponentSelected.
type Select struct {
	Payload SelectPayload `json:"payload"`
}

func (Select) MsgType() string { return TypeSelect }

// ComponentSelection is the structured selection shape.
type ComponentSelection struct {
	DisplayName    string `json:"displayName"`
	Description    string `json:"description"`
	Category       string `json:"category"`
	PhoenixElement any    `json:"phoenixElement"`
	SelectedAt     string `json:"selectedAt"`
	SelectionMode  string `json:"selectionMode"`
	BoundingRect   any    `json:"boundingRect"`
}

// ComponentSelected is the structured selection broadcast.
type ComponentSelected struct {
	Data      ComponentSelection `json:"data"`
	Timestamp int64              `json:"timestamp"`
}

func (ComponentSelected) MsgType() string { return TypeComponentSelected }

// TextEditData carries a text persistence request.
type TextEditData struct {
	PhoenixID      string   `json:"phoenixId"`
	FilePath       string   `json:"filePath"`
	LineNumber     int      `json:"lineNumber"`
	ColumnNumber   int      `json:"columnNumber"`
	OldText        string   `json:"oldText"`
	NewText        string   `json:"newText"`
	ElementTag     string   `json:"elementTag"`
	ElementClasses []string `json:"elementClasses"`
	OperationType  string   `json:"operationType"`
}

// TextEdit asks the parent to persist a text change into source.
type TextEdit struct {
	RequestID string       `json:"requestId"`
	PhoenixID string       `json:"phoenixId"`
	Data      TextEditData `json:"data"`
}

func (TextEdit) MsgType() string { return TypeTextEdit }

// ClassEditData carries a class persistence request.
type ClassEditData struct {
	PhoenixID     string `json:"phoenixId"`
	FilePath      string `json:"filePath"`
	LineNumber    int    `json:"lineNumber"`
	ColumnNumber  int    `json:"columnNumber"`
	OldClasses    string `json:"oldClasses"`
	NewClasses    string `json:"newClasses"`
	ElementTag    string `json:"elementTag"`
	OperationType string `json:"operationType"`
}

// ClassEdit asks the parent to persist a class change into source.
type ClassEdit struct {
	RequestID string        `json:"requestId"`
	PhoenixID string        `json:"phoenixId"`
	Data      ClassEditData `json:"data"`
}

func (ClassEdit) MsgType() string { return TypeClassEdit }

// AddToContext asks the parent to add a component to the chat context.
type AddToContext struct {
	PhoenixID     string `json:"phoenixId"`
	ComponentData any    `json:"componentData"`
	Timestamp     int64  `json:"timestamp"`
	RequestID     string `json:"requestId"`
}

func (AddToContext) MsgType() string { return TypeAddToContext }

// VisualEditResponsePayload reports the outcome of a visual-edit-request.
type VisualEditResponsePayload struct {
	PhoenixID string `json:"phoenixId"`
	Property  string `json:"property"`
	Value     string `json:"value"`
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// VisualEditResponse answers a VisualEditRequest; one is always sent.
type VisualEditResponse struct {
	Payload VisualEditResponsePayload `json:"payload"`
}

func (VisualEditResponse) MsgType() string { return TypeVisualEditResponse }

// TrackingToggleAck acknowledges a TrackingToggle before any state change.
type TrackingToggleAck struct {
	Enabled       bool  `json:"enabled"`
	PreviousState bool  `json:"previousState"`
	Timestamp     int64 `json:"timestamp"`
}

func (TrackingToggleAck) MsgType() string { return TypeTrackingToggleAck }

// PongPayload reports liveness state.
type PongPayload struct {
	Enabled      bool   `json:"enabled"`
	ElementCount int    `json:"elementCount"`
	Timestamp    string `json:"timestamp"`
}

// Pong answers Ping.
type Pong struct {
	Payload PongPayload `json:"payload"`
}

func (Pong) MsgType() string { return TypePong }

// ContextIntegrationReady is a readiness beacon.
type ContextIntegrationReady struct {
	Timestamp int64 `json:"timestamp"`
}

func (ContextIntegrationReady) MsgType() string { return TypeContextIntegrationReady }

// SourceMapTrackerReady is a readiness beacon.
type SourceMapTrackerReady struct {
	ProjectRoot string `json:"projectRoot"`
	Timestamp   int64  `json:"timestamp"`
}

func (SourceMapTrackerReady) MsgType() string { return TypeSourceMapTrackerReady }

// TextEditorReady is a readiness beacon.
type TextEditorReady struct {
	Timestamp int64 `json:"timestamp"`
}

func (TextEditorReady) MsgType() string { return TypeTextEditorReady }

// VisualEditReadyPayload lists the editable property capabilities.
type VisualEditReadyPayload struct {
	ProjectID    string   `json:"projectId"`
	Capabilities []string `json:"capabilities"`
	Timestamp    int64    `json:"timestamp"`
}

// VisualEditReady is a readiness beacon.
type VisualEditReady struct {
	Payload VisualEditReadyPayload `json:"payload"`
}

func (VisualEditReady) MsgType() string { return TypeVisualEditReady }

// --- parent → editor ---

// TrackingToggle enables or disables tracking.
type TrackingToggle struct {
	Enabled bool `json:"enabled"`
}

func (TrackingToggle) MsgType() string { return TypeTrackingToggle }

// Ping probes liveness.
type Ping struct{}

func (Ping) MsgType() string { return TypePing }

// VisualEditRequestPayload names one property change.
type VisualEditRequestPayload struct {
	PhoenixID string `json:"phoenixId"`
	Property  string `json:"property"`
	Value     string `json:"value"`
}

// VisualEditRequest routes a property change through the coordinator.
type VisualEditRequest struct {
	Payload VisualEditRequestPayload `json:"payload"`
}

func (VisualEditRequest) MsgType() string { return TypeVisualEditRequest }

// VisualEditOptimisticPayload batches property changes for one element.
type VisualEditOptimisticPayload struct {
	PhoenixID string            `json:"phoenixId"`
	Changes   map[string]string `json:"changes"`
}

// VisualEditOptimistic applies changes with no response expected.
type VisualEditOptimistic struct {
	Payload VisualEditOptimisticPayload `json:"payload"`
}

func (VisualEditOptimistic) MsgType() string { return TypeVisualEditOptimistic }

// VisualEditReset rolls back every pending optimistic change.
type VisualEditReset struct{}

func (VisualEditReset) MsgType() string { return TypeVisualEditReset }

// AddToContextResponse resolves a pending AddToContext request.
type AddToContextResponse struct {
	RequestID string `json:"requestId"`
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
}

func (AddToContextResponse) MsgType() string { return TypeAddToContextResponse }

// ASTEditResponse reports the parent's persistence outcome. The engine only
// observes it; reconciliation is the parent's job.
type ASTEditResponse struct {
	RequestID string          `json:"requestId"`
	Success   bool            `json:"success"`
	Data      json.RawMessage `json:"data,omitempty"`
}

func (ASTEditResponse) MsgType() string { return TypeASTEditResponse }

// PointerMove is a forwarded pointer movement in viewport coordinates.
type PointerMove struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (PointerMove) MsgType() string { return TypePointerMove }

// PointerOut is a forwarded pointer exit.
type PointerOut struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (PointerOut) MsgType() string { return TypePointerOut }

// Click is a forwarded click. Shift selects the class-editor branch.
type Click struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Shift bool    `json:"shift"`
}

func (Click) MsgType() string { return TypeClick }

// DoubleClick is a forwarded double click, with the host's best text capture.
type DoubleClick struct {
	X               float64 `json:"x"`
	Y               float64 `json:"y"`
	PreSelectedText string  `json:"preSelectedText,omitempty"`
	SelectedText    string  `json:"selectedText,omitempty"`
}

func (DoubleClick) MsgType() string { return TypeDoubleClick }

// Key is a forwarded key press targeting the active inline session.
type Key struct {
	Key   string `json:"key"`
	Shift bool   `json:"shift"`
	Meta  bool   `json:"meta"`
	Ctrl  bool   `json:"ctrl"`
}

func (Key) MsgType() string { return TypeKey }

// Input replaces the draft value of the active inline session.
type Input struct {
	Value string `json:"value"`
}

func (Input) MsgType() string { return TypeInput }

// PopupAction activates one of the open action popup's choices.
type PopupAction struct {
	Action string `json:"action"`
}

func (PopupAction) MsgType() string { return TypePopupAction }
