package daemon

import (
	"context"
	"os"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/agentmail/atm/internal/home"
	"github.com/agentmail/atm/internal/session"
)

func startControlServer(t *testing.T, l home.Layout, cancel context.CancelFunc, sessions *session.Registry) context.CancelFunc {
	t.Helper()
	ctx, stop := context.WithCancel(context.Background())
	srv := NewControlServer(l, cancel, zap.NewNop())
	srv.sessions = sessions

	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()
	t.Cleanup(func() {
		stop()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Error("control server did not stop")
		}
	})

	sockPath := l.DaemonControlSocketPath()
	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, err := os.Stat(sockPath); err == nil {
			return stop
		}
		if time.Now().After(deadline) {
			t.Fatal("control socket never appeared")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestControlServer_Ping(t *testing.T) {
	l := home.New(t.TempDir())
	startControlServer(t, l, func() {}, nil)

	resp, err := DialControl(l, ControlRequest{Command: "ping"}, time.Second)
	if err != nil {
		t.Fatalf("DialControl: %v", err)
	}
	if !resp.OK {
		t.Fatalf("resp = %+v, want OK", resp)
	}
}

func TestControlServer_SessionsListsRegistry(t *testing.T) {
	l := home.New(t.TempDir())
	reg := session.NewRegistry()
	reg.Upsert("arch@core", "t1", os.Getpid())
	startControlServer(t, l, func() {}, reg)

	resp, err := DialControl(l, ControlRequest{Command: "sessions"}, time.Second)
	if err != nil {
		t.Fatalf("DialControl: %v", err)
	}
	if !resp.OK || len(resp.Sessions) != 1 {
		t.Fatalf("resp = %+v, want one session", resp)
	}
	got := resp.Sessions[0]
	if got.Agent != "arch@core" || got.SessionID != "t1" || got.State != "active" {
		t.Fatalf("session = %+v", got)
	}
}

func TestControlServer_ShutdownInvokesCancel(t *testing.T) {
	l := home.New(t.TempDir())
	cancelled := make(chan struct{})
	startControlServer(t, l, func() { close(cancelled) }, nil)

	resp, err := DialControl(l, ControlRequest{Command: "shutdown"}, time.Second)
	if err != nil {
		t.Fatalf("DialControl: %v", err)
	}
	if !resp.OK {
		t.Fatalf("resp = %+v, want OK", resp)
	}
	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatal("shutdown command never invoked cancel")
	}
}

func TestControlServer_UnknownCommand(t *testing.T) {
	l := home.New(t.TempDir())
	startControlServer(t, l, func() {}, nil)

	resp, err := DialControl(l, ControlRequest{Command: "bogus"}, time.Second)
	if err != nil {
		t.Fatalf("DialControl: %v", err)
	}
	if resp.OK || resp.Error == "" {
		t.Fatalf("resp = %+v, want error", resp)
	}
}
