// Package progress tracks the relative ordering of daemon housekeeping
// events (plugin lifecycle transitions, spool-drain ticks) without a
// global barrier, adapted from a Lamport-clock-and-Naiad-frontier
// coordination model originally built for CLI epoch gating.
package progress

// Clock is a Lamport logical clock used to stamp daemon events with a
// monotonic sequence number distinct from wall-clock time, so two events
// that land in the same status.json snapshot can still be ordered. Not
// goroutine-safe; the daemon owns one Clock per task and only that task
// ticks it.
type Clock struct {
	seq int64
}

// Tick increments the clock before an internal event (a plugin state
// transition, a drain pass completing) and returns the new sequence
// number.
func (c *Clock) Tick() int64 {
	c.seq++
	return c.seq
}

// Value returns the current sequence number without advancing it.
func (c *Clock) Value() int64 { return c.seq }
