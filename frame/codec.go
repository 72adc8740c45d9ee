package frame

import (
	"encoding/json"
	"fmt"
)

// decoders maps every known discriminator to a constructor for its message
// type. Both directions live in one table; a transport is symmetric and the
// router decides which types it acts on.
var decoders = map[string]func() Message{
	TypeHelperReady:             func() Message { return &HelperReady{} },
	TypeEnabled:                 func() Message { return &Enabled{} },
	TypeDisabled:                func() Message { return &Disabled{} },
	TypeSelect:                  func() Message { return &Select{} },
	TypeComponentSelected:       func() Message { return &ComponentSelected{} },
	TypeTextEdit:                func() Message { return &TextEdit{} },
	TypeClassEdit:               func() Message { return &ClassEdit{} },
	TypeAddToContext:            func() Message { return &AddToContext{} },
	TypeVisualEditResponse:      func() Message { return &VisualEditResponse{} },
	TypeTrackingToggleAck:       func() Message { return &TrackingToggleAck{} },
	TypePong:                    func() Message { return &Pong{} },
	TypeContextIntegrationReady: func() Message { return &ContextIntegrationReady{} },
	TypeSourceMapTrackerReady:   func() Message { return &SourceMapTrackerReady{} },
	TypeTextEditorReady:         func() Message { return &TextEditorReady{} },
	TypeVisualEditReady:         func() Message { return &VisualEditReady{} },

	TypeTrackingToggle:       func() Message { return &TrackingToggle{} },
	TypePing:                 func() Message { return &Ping{} },
	TypeVisualEditRequest:    func() Message { return &VisualEditRequest{} },
	TypeVisualEditOptimistic: func() Message { return &VisualEditOptimistic{} },
	TypeVisualEditReset:      func() Message { return &VisualEditReset{} },
	TypeAddToContextResponse: func() Message { return &AddToContextResponse{} },
	TypeASTEditResponse:      func() Message { return &ASTEditResponse{} },
	TypePointerMove:          func() Message { return &PointerMove{} },
	TypePointerOut:           func() Message { return &PointerOut{} },
	TypeClick:                func() Message { return &Click{} },
	TypeDoubleClick:          func() Message { return &DoubleClick{} },
	TypeKey:                  func() Message { return &Key{} },
	TypeInput:                func() Message { return &Input{} },
	TypePopupAction:          func() Message { return &PopupAction{} },
}

// Encode serialises a message to its wire form, injecting the "type"
// discriminator at top level next to the message fields.
func Encode(m Message) ([]byte, error) {
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("frame: encode %s: %w", m.MsgType(), err)
	}
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, fmt.Errorf("frame: encode %s: %w", m.MsgType(), err)
	}
	obj["type"] = m.MsgType()
	out, err := json.Marshal(obj)
	if err != nil {
		return nil, fmt.Errorf("frame: encode %s: %w", m.MsgType(), err)
	}
	return out, nil
}

// Decode parses wire data into its typed message. Unknown or missing
// discriminators are an error.
func Decode(data []byte) (Message, error) {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("frame: decode: %w", err)
	}
	if probe.Type == "" {
		return nil, fmt.Errorf("frame: decode: missing type")
	}
	ctor, ok := decoders[probe.Type]
	if !ok {
		return nil, fmt.Errorf("frame: decode: unknown type %q", probe.Type)
	}
	m := ctor()
	if err := json.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("frame: decode %s: %w", probe.Type, err)
	}
	return m, nil
}
