package daemon

import (
	"context"
	"testing"
)

type stubPlugin struct {
	meta Metadata
}

func (s *stubPlugin) Metadata() Metadata                            { return s.meta }
func (s *stubPlugin) Init(ctx context.Context, pctx *Context) error { return nil }
func (s *stubPlugin) Run(ctx context.Context) error                 { return nil }
func (s *stubPlugin) Shutdown(ctx context.Context) error            { return nil }

func TestRegistry_RegisterAndLookup(t *testing.T) {
	r := NewRegistry()
	p := &stubPlugin{meta: Metadata{Name: "tracker", Capabilities: []string{"file-events"}}}

	if err := r.Register(p); err != nil {
		t.Fatal(err)
	}

	got, ok := r.Lookup("tracker")
	if !ok || got != p {
		t.Fatalf("expected lookup to find registered plugin, got %v ok=%v", got, ok)
	}
}

func TestRegistry_DuplicateNameRejected(t *testing.T) {
	r := NewRegistry()
	p1 := &stubPlugin{meta: Metadata{Name: "tracker"}}
	p2 := &stubPlugin{meta: Metadata{Name: "tracker"}}

	if err := r.Register(p1); err != nil {
		t.Fatal(err)
	}
	if err := r.Register(p2); err == nil {
		t.Fatal("expected duplicate registration to fail")
	}
}

func TestRegistry_ByCapability(t *testing.T) {
	r := NewRegistry()
	watched := &stubPlugin{meta: Metadata{Name: "watched", Capabilities: []string{"file-events"}}}
	silent := &stubPlugin{meta: Metadata{Name: "silent"}}

	r.Register(watched)
	r.Register(silent)

	matched := r.ByCapability("file-events")
	if len(matched) != 1 || matched[0] != watched {
		t.Fatalf("expected only 'watched' plugin, got %v", matched)
	}
}

func TestRegistry_StateTransitions(t *testing.T) {
	r := NewRegistry()
	p := &stubPlugin{meta: Metadata{Name: "tracker"}}
	r.Register(p)

	states := r.States()
	if states["tracker"] != Created {
		t.Fatalf("expected Created, got %v", states["tracker"])
	}

	r.SetState("tracker", Running)
	states = r.States()
	if states["tracker"] != Running {
		t.Fatalf("expected Running, got %v", states["tracker"])
	}
}

func TestRegistry_AllPreservesOrder(t *testing.T) {
	r := NewRegistry()
	names := []string{"a", "b", "c"}
	for _, name := range names {
		r.Register(&stubPlugin{meta: Metadata{Name: name}})
	}

	all := r.All()
	if len(all) != 3 {
		t.Fatalf("expected 3 plugins, got %d", len(all))
	}
	for i, name := range names {
		if all[i].Metadata().Name != name {
			t.Fatalf("expected order preserved, got %q at index %d", all[i].Metadata().Name, i)
		}
	}
}
