package daemon

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/agentmail/atm/internal/home"
)

// lifecyclePlugin records the order of its lifecycle calls and blocks in
// Run until cancelled, like a real integration would.
type lifecyclePlugin struct {
	meta        Metadata
	initCalls   atomic.Int32
	runStarted  atomic.Int32
	shutdowns   atomic.Int32
	initErr     error
	shutdownErr error
	gotMail     atomic.Bool
}

func (p *lifecyclePlugin) Metadata() Metadata { return p.meta }

func (p *lifecyclePlugin) Init(ctx context.Context, pctx *Context) error {
	p.initCalls.Add(1)
	if pctx.Mail != nil {
		p.gotMail.Store(true)
	}
	return p.initErr
}

func (p *lifecyclePlugin) Run(ctx context.Context) error {
	p.runStarted.Add(1)
	<-ctx.Done()
	return nil
}

func (p *lifecyclePlugin) Shutdown(ctx context.Context) error {
	p.shutdowns.Add(1)
	return p.shutdownErr
}

func TestEventLoop_RunsPluginsAndReportsShutdown(t *testing.T) {
	l := home.New(t.TempDir())
	r := NewRegistry()

	good := &lifecyclePlugin{meta: Metadata{Name: "good"}}
	bad := &lifecyclePlugin{meta: Metadata{Name: "bad"}, shutdownErr: errors.New("flush failed")}
	if err := r.Register(good); err != nil {
		t.Fatal(err)
	}
	if err := r.Register(bad); err != nil {
		t.Fatal(err)
	}

	loop := &EventLoop{
		Layout:     l,
		Registry:   r,
		Roster:     NewTeamRoster(l, 3),
		MaxRetries: 3,
		Version:    "test",
		Log:        zap.NewNop(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	report, err := loop.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if good.initCalls.Load() != 1 || bad.initCalls.Load() != 1 {
		t.Fatal("expected every plugin initialized exactly once")
	}
	if !good.gotMail.Load() {
		t.Fatal("expected plugin context to carry a MailService")
	}
	if good.runStarted.Load() != 1 || bad.runStarted.Load() != 1 {
		t.Fatal("expected every plugin's Run spawned")
	}
	if report.Success != 1 || report.Error != 1 || report.Timeout != 0 {
		t.Fatalf("report = %+v, want one success and one error", report)
	}

	states := r.States()
	if states["good"] != Terminated || states["bad"] != Terminated {
		t.Fatalf("states = %v, want both Terminated", states)
	}
}

func TestEventLoop_FailedInitExcludesPluginFromRun(t *testing.T) {
	l := home.New(t.TempDir())
	r := NewRegistry()

	broken := &lifecyclePlugin{meta: Metadata{Name: "broken"}, initErr: errors.New("bad config")}
	healthy := &lifecyclePlugin{meta: Metadata{Name: "healthy"}}
	if err := r.Register(broken); err != nil {
		t.Fatal(err)
	}
	if err := r.Register(healthy); err != nil {
		t.Fatal(err)
	}

	loop := &EventLoop{
		Layout:     l,
		Registry:   r,
		Roster:     NewTeamRoster(l, 3),
		MaxRetries: 3,
		Version:    "test",
		Log:        zap.NewNop(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	if _, err := loop.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if broken.runStarted.Load() != 0 {
		t.Fatal("a plugin whose Init failed must not be run")
	}
	if healthy.runStarted.Load() != 1 {
		t.Fatal("a healthy sibling must still run")
	}
}
