package frame

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// WSConn adapts a websocket connection to Conn. Writes are serialised;
// reads must come from a single goroutine, which matches how the editor
// pumps its inbound loop.
type WSConn struct {
	conn *websocket.Conn

	writeMu sync.Mutex
}

// NewWSConn wraps an established websocket connection.
func NewWSConn(c *websocket.Conn) *WSConn {
	return &WSConn{conn: c}
}

// Upgrade upgrades an HTTP request to a websocket Conn, enforcing the origin
// policy during the handshake. Requests without an Origin header are treated
// as same-process tooling and allowed when the policy is open at all.
func Upgrade(w http.ResponseWriter, r *http.Request, policy Policy) (*WSConn, error) {
	up := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return policy.Open()
			}
			return policy.Allow(origin)
		},
	}
	c, err := up.Upgrade(w, r, nil)
	if err != nil {
		return nil, fmt.Errorf("frame: upgrade: %w", err)
	}
	return NewWSConn(c), nil
}

// Dial connects to a websocket frame endpoint.
func Dial(url string) (*WSConn, error) {
	c, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, fmt.Errorf("frame: dial %s: %w", url, err)
	}
	return NewWSConn(c), nil
}

// Send encodes and writes one message as a text frame.
func (w *WSConn) Send(m Message) error {
	data, err := Encode(m)
	if err != nil {
		return err
	}
	w.writeMu.Lock()
	defer w.writeMu.Unlock()
	if err := w.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("frame: write: %w", err)
	}
	return nil
}

// Recv reads and decodes one message.
func (w *WSConn) Recv() (Message, error) {
	_, data, err := w.conn.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("frame: read: %w", err)
	}
	return Decode(data)
}

// Close closes the underlying connection.
func (w *WSConn) Close() error {
	return w.conn.Close()
}
