// Package session tracks which backend session and OS process currently
// incarnates each agent, so the daemon and the control socket can answer
// "who is running right now" without asking every plugin.
package session

import "sync"

// State is the lifecycle state of a session record.
type State int

const (
	// Active means the record's process was alive as of the last probe.
	Active State = iota
	// Dead means the liveness probe failed, or a death hook fired.
	Dead
)

func (s State) String() string {
	switch s {
	case Active:
		return "active"
	case Dead:
		return "dead"
	default:
		return "unknown"
	}
}

// Record is a snapshot of one agent's current session.
type Record struct {
	AgentName string
	SessionID string
	ProcessID int
	State     State
}

// Registry is a thread-safe map from agent name to its current session
// record. The zero value is ready to use.
type Registry struct {
	mu      sync.RWMutex
	records map[string]Record
}

// NewRegistry returns an empty, ready-to-use Registry.
func NewRegistry() *Registry {
	return &Registry{records: make(map[string]Record)}
}

// Upsert creates or replaces the record for name, resetting its state to
// Active. This is called on every session-start event.
func (r *Registry) Upsert(name, sessionID string, pid int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.records == nil {
		r.records = make(map[string]Record)
	}
	r.records[name] = Record{
		AgentName: name,
		SessionID: sessionID,
		ProcessID: pid,
		State:     Active,
	}
}

// Query returns the record for name and whether one exists.
func (r *Registry) Query(name string) (Record, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[name]
	return rec, ok
}

// MarkDead flips name's state to Dead. It is a no-op if name is unknown.
func (r *Registry) MarkDead(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[name]
	if !ok {
		return
	}
	rec.State = Dead
	r.records[name] = rec
}

// All returns a snapshot of every tracked record, in no particular order.
func (r *Registry) All() []Record {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Record, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, rec)
	}
	return out
}

// ReapDead probes every Active record's liveness and marks the ones whose
// process no longer exists as Dead. It returns the agent names it
// transitioned. Callers typically run this on a timer.
func (r *Registry) ReapDead(probe func(pid int) bool) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var reaped []string
	for name, rec := range r.records {
		if rec.State != Active {
			continue
		}
		if !probe(rec.ProcessID) {
			rec.State = Dead
			r.records[name] = rec
			reaped = append(reaped, name)
		}
	}
	return reaped
}
