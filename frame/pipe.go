package frame

import (
	"errors"
	"sync"
)

// ErrClosed is returned by Conn operations after Close.
var ErrClosed = errors.New("frame: connection closed")

// Conn is one end of a message channel between the editor and its parent
// frame. Send and Recv operate on typed messages; the transport owns the
// wire encoding.
type Conn interface {
	Send(m Message) error
	Recv() (Message, error)
	Close() error
}

type pipeEnd struct {
	out chan<- Message
	in  <-chan Message

	mu     sync.Mutex
	closed chan struct{}
	peer   *pipeEnd
}

// Pipe returns two connected in-process Conn ends. Messages sent on one end
// arrive on the other. Both ends fail with ErrClosed once either is closed.
func Pipe(buffer int) (Conn, Conn) {
	if buffer < 0 {
		buffer = 0
	}
	ab := make(chan Message, buffer)
	ba := make(chan Message, buffer)
	a := &pipeEnd{out: ab, in: ba, closed: make(chan struct{})}
	b := &pipeEnd{out: ba, in: ab, closed: make(chan struct{})}
	a.peer = b
	b.peer = a
	return a, b
}

func (p *pipeEnd) Send(m Message) error {
	select {
	case <-p.closed:
		return ErrClosed
	case <-p.peer.closed:
		return ErrClosed
	case p.out <- m:
		return nil
	}
}

func (p *pipeEnd) Recv() (Message, error) {
	select {
	case m := <-p.in:
		return m, nil
	case <-p.closed:
		return nil, ErrClosed
	case <-p.peer.closed:
		// Drain what the peer sent before it closed.
		select {
		case m := <-p.in:
			return m, nil
		default:
			return nil, ErrClosed
		}
	}
}

func (p *pipeEnd) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	select {
	case <-p.closed:
		return nil
	default:
		close(p.closed)
	}
	return nil
}
