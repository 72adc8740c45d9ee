package frame

import (
	"context"
	"sync"
	"time"
)

// DefaultRequestTimeout bounds how long a correlated request waits for its
// response before resolving as a timeout failure.
const DefaultRequestTimeout = 5 * time.Second

// Result is the terminal outcome of a correlated request. Exactly one Result
// is delivered per registered request id.
type Result struct {
	Success bool
	Err     string
}

type slot struct {
	ch       chan Result
	resolved bool
}

// Pending is the request/response correlation table. Register opens a slot
// keyed by request id, Resolve fills it at most once, and Await blocks until
// resolution or timeout. Late and duplicate responses are ignored.
type Pending struct {
	mu      sync.Mutex
	slots   map[string]*slot
	timeout time.Duration
}

// NewPending returns a correlation table. A non-positive timeout falls back
// to DefaultRequestTimeout.
func NewPending(timeout time.Duration) *Pending {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return &Pending{
		slots:   make(map[string]*slot),
		timeout: timeout,
	}
}

// Register opens a slot for the given request id.
func (p *Pending) Register(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.slots[id]; ok {
		return
	}
	p.slots[id] = &slot{ch: make(chan Result, 1)}
}

// Resolve delivers the result for a registered request id. It reports false
// when the id is unknown, already resolved, or timed out.
func (p *Pending) Resolve(id string, r Result) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.slots[id]
	if !ok || s.resolved {
		return false
	}
	s.resolved = true
	s.ch <- r
	return true
}

// Await blocks until the request resolves, times out, or ctx is done. On
// timeout or cancellation the slot is discarded so a late response is
// ignored, and a failure Result with error "timeout" is returned.
func (p *Pending) Await(ctx context.Context, id string) Result {
	p.mu.Lock()
	s, ok := p.slots[id]
	p.mu.Unlock()
	if !ok {
		return Result{Success: false, Err: "timeout"}
	}

	timer := time.NewTimer(p.timeout)
	defer timer.Stop()

	var r Result
	select {
	case r = <-s.ch:
	case <-timer.C:
		r = Result{Success: false, Err: "timeout"}
	case <-ctx.Done():
		r = Result{Success: false, Err: "timeout"}
	}

	p.mu.Lock()
	// Mark resolved so a response arriving after timeout reports false.
	s.resolved = true
	delete(p.slots, id)
	p.mu.Unlock()
	return r
}

// Len reports how many requests are still awaiting resolution.
func (p *Pending) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.slots)
}
