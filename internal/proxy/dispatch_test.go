package proxy

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

func TestProxyDrainThreadDispatchesCloseAheadOfQueuedAutoMail(t *testing.T) {
	child := newFakeChild()
	p := New(Config{Identity: "alice", Team: "core", RequestTimeout: time.Second}, child, nil, nil)

	queue := p.Thread(mainThreadID)
	if !queue.PushAutoMail("queued before the close request") {
		t.Fatal("expected the auto-mail push to be accepted")
	}
	ok, reply := queue.PushClose()
	if !ok {
		t.Fatal("expected PushClose to succeed on first call")
	}

	p.drainThread(queue)

	select {
	case result := <-reply:
		if result != ClosedIdle {
			t.Fatalf("close result = %v, want ClosedIdle", result)
		}
	default:
		t.Fatal("expected the close reply channel to receive a result")
	}

	if len(child.writes()) != 0 {
		t.Fatalf("close must take priority and stop the drain before the queued auto-mail forwards, got %d writes", len(child.writes()))
	}
	if queue.Len() != 1 {
		t.Fatalf("queue.Len() = %d, want 1 (the auto-mail left undrained behind the close)", queue.Len())
	}
}

func TestProxyCloseRequestRejectsFurtherUserTurns(t *testing.T) {
	child := newFakeChild()
	p := New(Config{Identity: "alice", Team: "core", RequestTimeout: time.Second}, child, nil, nil)

	var upstreamOut bytesBufferStub
	p.upstreamMu.Lock()
	p.upstreamOut = &upstreamOut
	p.upstreamMu.Unlock()

	queue := p.Thread(mainThreadID)
	queue.PushClose()

	req := &Message{JSONRPC: "2.0", ID: json.RawMessage("2"), Method: "tools/call",
		Params: mustMarshal(toolCallParams{Name: "session-reply", Arguments: map[string]interface{}{}})}
	if err := p.handleUpstreamMessage(context.Background(), req, FramingLine); err != nil {
		t.Fatalf("handleUpstreamMessage: %v", err)
	}

	if len(child.writes()) != 0 {
		t.Fatalf("expected no forward to the child once close was requested, got %d writes", len(child.writes()))
	}
	var resp Message
	if err := json.Unmarshal(upstreamOut.buf, &resp); err != nil {
		t.Fatalf("unmarshal upstream response: %v", err)
	}
	if resp.Error == nil || resp.Error.Code != ErrCodeSessionClosed {
		t.Fatalf("resp.Error = %+v, want ErrCodeSessionClosed", resp.Error)
	}
}

func TestRunThreadDispatcherDeliversQueuedAutoMail(t *testing.T) {
	child := newFakeChild()
	p := New(Config{Identity: "alice", Team: "core", RequestTimeout: time.Second}, child, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	queue := p.Thread(mainThreadID)
	queue.PushAutoMail("you have mail")

	done := make(chan struct{})
	go func() {
		p.runThreadDispatcher(ctx, mainThreadID)
		close(done)
	}()

	deadline := time.After(time.Second)
	for len(child.writes()) == 0 {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for auto-mail to be forwarded to the child")
		case <-time.After(5 * time.Millisecond):
		}
	}

	var forwarded Message
	if err := json.Unmarshal(child.writes()[0], &forwarded); err != nil {
		t.Fatalf("unmarshal forwarded: %v", err)
	}
	var call toolCallParams
	if err := json.Unmarshal(forwarded.Params, &call); err != nil {
		t.Fatalf("unmarshal params: %v", err)
	}
	if call.Name != "session-reply" {
		t.Fatalf("call.Name = %q, want session-reply", call.Name)
	}

	cancel()
	<-done
}

// bytesBufferStub is a minimal io.Writer that accumulates writes,
// avoiding an extra bytes.Buffer import purely for one assertion.
type bytesBufferStub struct {
	buf []byte
}

func (b *bytesBufferStub) Write(p []byte) (int, error) {
	b.buf = append(b.buf, p...)
	return len(p), nil
}
