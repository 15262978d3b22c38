package proxy

import (
	"sync"
	"testing"
	"time"
)

func TestCorrelatorResolveBeforeTimeout(t *testing.T) {
	c := NewCorrelator()
	fired := false
	c.Register("1", time.Hour, FramingLine, "tools/call", func(string, Framing) { fired = true })

	framing, method, ok := c.Resolve("1")
	if !ok || framing != FramingLine || method != "tools/call" {
		t.Fatalf("Resolve = %v %v %v", framing, method, ok)
	}
	if fired {
		t.Fatal("onTimeout must not fire once resolved")
	}
	if c.Len() != 0 {
		t.Fatalf("Len = %d, want 0", c.Len())
	}
}

func TestCorrelatorResolveUnknownID(t *testing.T) {
	c := NewCorrelator()
	_, _, ok := c.Resolve("missing")
	if ok {
		t.Fatal("expected ok=false for unregistered id")
	}
}

func TestCorrelatorTimeoutFiresExactlyOnce(t *testing.T) {
	c := NewCorrelator()
	var mu sync.Mutex
	count := 0
	var gotFraming Framing

	c.Register("1", 10*time.Millisecond, FramingContentLength, "tools/call", func(id string, framing Framing) {
		mu.Lock()
		count++
		gotFraming = framing
		mu.Unlock()
	})

	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if count != 1 {
		t.Fatalf("onTimeout fired %d times, want 1", count)
	}
	if gotFraming != FramingContentLength {
		t.Fatalf("framing = %v, want FramingContentLength", gotFraming)
	}

	if c.Len() != 0 {
		t.Fatalf("Len = %d, want 0 after timeout fired", c.Len())
	}
}

func TestCorrelatorResolveAfterTimeoutAlreadyFired(t *testing.T) {
	c := NewCorrelator()
	fired := make(chan struct{})
	c.Register("1", 5*time.Millisecond, FramingLine, "tools/call", func(string, Framing) { close(fired) })
	<-fired
	// A late response from the child must find nothing to resolve.
	_, _, ok := c.Resolve("1")
	if ok {
		t.Fatal("expected Resolve to report not-found once timeout already fired")
	}
}

func TestCorrelatorDrainAll(t *testing.T) {
	c := NewCorrelator()
	c.Register("1", time.Hour, FramingLine, "a", func(string, Framing) {})
	c.Register("2", time.Hour, FramingContentLength, "b", func(string, Framing) {})

	drained := c.DrainAll()
	if len(drained) != 2 {
		t.Fatalf("drained %d entries, want 2", len(drained))
	}
	if c.Len() != 0 {
		t.Fatalf("Len = %d after DrainAll, want 0", c.Len())
	}

	// DrainAll must not have invoked any timeout callback.
	time.Sleep(20 * time.Millisecond)
}
