package proxy

import (
	"sync"
	"time"
)

// pendingEntry tracks one in-flight upstream request the proxy is waiting
// on the child to answer.
type pendingEntry struct {
	framing Framing
	method  string
	timer   *time.Timer
}

// Correlator tracks every upstream request id the proxy has forwarded
// to the child but not yet gotten a response for, each with its own
// deadline. Exactly one timeout callback fires per id, and only if no
// response arrived first.
type Correlator struct {
	mu      sync.Mutex
	pending map[string]*pendingEntry
}

// NewCorrelator returns an empty, ready-to-use Correlator.
func NewCorrelator() *Correlator {
	return &Correlator{pending: make(map[string]*pendingEntry)}
}

// Register records id as pending with the given timeout. onTimeout is
// invoked at most once, only if Resolve(id) has not already removed the
// entry by then, and receives back the framing the original request
// arrived with so the synthesized timeout response can match it.
func (c *Correlator) Register(id string, timeout time.Duration, framing Framing, method string, onTimeout func(id string, framing Framing)) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry := &pendingEntry{framing: framing, method: method}
	entry.timer = time.AfterFunc(timeout, func() {
		c.mu.Lock()
		_, still := c.pending[id]
		if still {
			delete(c.pending, id)
		}
		c.mu.Unlock()
		if still {
			onTimeout(id, framing)
		}
	})
	c.pending[id] = entry
}

// Resolve removes id from the pending set, stopping its timer, and
// reports the framing and original method of the request (so the
// response can be encoded and post-processed to match), along with
// whether id was still pending.
func (c *Correlator) Resolve(id string) (framing Framing, method string, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, found := c.pending[id]
	if !found {
		return FramingLine, "", false
	}
	entry.timer.Stop()
	delete(c.pending, id)
	return entry.framing, entry.method, true
}

// DrainedRequest is one entry returned by DrainAll.
type DrainedRequest struct {
	ID      string
	Framing Framing
}

// DrainAll removes and returns every currently pending request, stopping
// each one's timer, without invoking onTimeout for any of them. Used when
// the child exits so the caller can synthesize ErrChildExited responses
// directly instead of racing the timeout callback.
func (c *Correlator) DrainAll() []DrainedRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]DrainedRequest, 0, len(c.pending))
	for id, entry := range c.pending {
		entry.timer.Stop()
		out = append(out, DrainedRequest{ID: id, Framing: entry.framing})
	}
	c.pending = make(map[string]*pendingEntry)
	return out
}

// Len reports how many requests are currently pending, mostly for tests.
func (c *Correlator) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}
