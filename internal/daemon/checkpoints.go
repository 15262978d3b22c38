package daemon

import (
	"sync"

	"github.com/agentmail/atm/internal/progress"
)

// checkpointTracker stamps daemon housekeeping events (plugin lifecycle
// transitions, spool-drain passes, watcher dispatches) with Lamport
// sequence numbers, so status.json reports a deterministic event order
// even when two events share a wall-clock timestamp.
type checkpointTracker struct {
	mu         sync.Mutex
	generation int64
	clocks     map[string]*progress.Clock
}

// newCheckpointTracker returns a tracker for one daemon lifetime;
// generation distinguishes this lifetime's ticks from a prior run's.
func newCheckpointTracker(generation int64) *checkpointTracker {
	return &checkpointTracker{generation: generation, clocks: make(map[string]*progress.Clock)}
}

// Advance ticks task's clock and returns its new pointstamp.
func (t *checkpointTracker) Advance(task string) progress.Pointstamp {
	t.mu.Lock()
	defer t.mu.Unlock()
	c, ok := t.clocks[task]
	if !ok {
		c = &progress.Clock{}
		t.clocks[task] = c
	}
	return progress.Pointstamp{TaskName: task, Generation: t.generation, Tick: c.Tick()}
}

// Generation returns the tracker's lifetime identifier.
func (t *checkpointTracker) Generation() int64 {
	return t.generation
}

// Snapshot returns every task's current tick, for the status writer.
func (t *checkpointTracker) Snapshot() map[string]int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]int64, len(t.clocks))
	for task, c := range t.clocks {
		out[task] = c.Value()
	}
	return out
}
