package frame

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	in := &VisualEditRequest{Payload: VisualEditRequestPayload{
		PhoenixID: "phoenix-1700000000000-1",
		Property:  "backgroundColor",
		Value:     "#ff0000",
	}}
	data, err := Encode(in)
	if err != nil {
		t.Fatal(err)
	}

	var probe map[string]any
	if err := json.Unmarshal(data, &probe); err != nil {
		t.Fatal(err)
	}
	if probe["type"] != TypeVisualEditRequest {
		t.Errorf("type: got %v, want %q", probe["type"], TypeVisualEditRequest)
	}

	out, err := Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	got, ok := out.(*VisualEditRequest)
	if !ok {
		t.Fatalf("decoded %T, want *VisualEditRequest", out)
	}
	if got.Payload != in.Payload {
		t.Errorf("payload: got %+v, want %+v", got.Payload, in.Payload)
	}
}

func TestDecodeUnknownType(t *testing.T) {
	if _, err := Decode([]byte(`{"type":"ed.bogus"}`)); err == nil {
		t.Error("want error for unknown type")
	}
	if _, err := Decode([]byte(`{"payload":{}}`)); err == nil {
		t.Error("want error for missing type")
	}
}

func TestPolicy(t *testing.T) {
	tests := []struct {
		name    string
		origins []string
		origin  string
		want    bool
	}{
		{"empty policy refuses", nil, "https://app.example", false},
		{"exact match", []string{"https://app.example"}, "https://app.example", true},
		{"non-match", []string{"https://app.example"}, "https://evil.example", false},
		{"explicit wildcard", []string{"*"}, "https://anything.example", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Policy{AllowedOrigins: tt.origins}
			if got := p.Allow(tt.origin); got != tt.want {
				t.Errorf("Allow(%q): got %v, want %v", tt.origin, got, tt.want)
			}
		})
	}
}

func TestPipeRoundTrip(t *testing.T) {
	a, b := Pipe(4)
	defer a.Close()
	defer b.Close()

	if err := a.Send(&Ping{}); err != nil {
		t.Fatal(err)
	}
	m, err := b.Recv()
	if err != nil {
		t.Fatal(err)
	}
	if m.MsgType() != TypePing {
		t.Errorf("got %s, want %s", m.MsgType(), TypePing)
	}
}

func TestPipeClosed(t *testing.T) {
	a, b := Pipe(0)
	a.Close()
	if err := b.Send(&Ping{}); err != ErrClosed {
		t.Errorf("Send after peer close: got %v, want ErrClosed", err)
	}
	if _, err := a.Recv(); err != ErrClosed {
		t.Errorf("Recv after close: got %v, want ErrClosed", err)
	}
}

func TestPendingResolve(t *testing.T) {
	p := NewPending(time.Second)
	p.Register("req-1")

	go p.Resolve("req-1", Result{Success: true})

	r := p.Await(context.Background(), "req-1")
	if !r.Success {
		t.Errorf("got %+v, want success", r)
	}
	if p.Len() != 0 {
		t.Errorf("slots remaining: %d", p.Len())
	}
}

func TestPendingTimeout(t *testing.T) {
	p := NewPending(10 * time.Millisecond)
	p.Register("req-2")

	r := p.Await(context.Background(), "req-2")
	if r.Success || r.Err != "timeout" {
		t.Errorf("got %+v, want timeout failure", r)
	}

	// A late response after timeout must be ignored.
	if p.Resolve("req-2", Result{Success: true}) {
		t.Error("late resolve should report false")
	}
}

func TestPendingDuplicateResolve(t *testing.T) {
	p := NewPending(time.Second)
	p.Register("req-3")

	if !p.Resolve("req-3", Result{Success: false, Err: "first"}) {
		t.Fatal("first resolve should succeed")
	}
	if p.Resolve("req-3", Result{Success: true}) {
		t.Error("second resolve should report false")
	}

	r := p.Await(context.Background(), "req-3")
	if r.Err != "first" {
		t.Errorf("got %+v, want first result", r)
	}
}

func TestPendingUnknownID(t *testing.T) {
	p := NewPending(time.Second)
	r := p.Await(context.Background(), "never-registered")
	if r.Success || r.Err != "timeout" {
		t.Errorf("got %+v, want timeout failure", r)
	}
}
