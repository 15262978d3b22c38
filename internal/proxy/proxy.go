package proxy

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
)

// mainThreadID is the single command-queue thread a proxy drives: a
// proxy is bound to exactly one upstream connection (and so one agent
// conversation) for its lifetime, so there is never more than one
// thread_id in practice despite the queue being keyed by one.
const mainThreadID = "default"

// childIO is the subset of *ChildTransport the proxy core depends on, so
// tests can substitute an in-memory fake instead of spawning a real
// subprocess.
type childIO interface {
	WriteLine(data []byte) error
	ReadLine() ([]byte, error)
}

// SyntheticToolHandler executes one of the proxy's own atm_* tools. The
// proxy only advertises and routes these; their behavior is supplied by
// the surrounding daemon/inbox layer.
type SyntheticToolHandler interface {
	Handle(ctx context.Context, name string, arguments json.RawMessage) (result json.RawMessage, isError bool, err error)
}

// Config is the proxy's static, startup-loaded configuration.
type Config struct {
	Identity       string
	Team           string
	RequestTimeout time.Duration
	Context        SessionContext
}

// Proxy multiplexes one upstream JSON-RPC client and one spawned agent
// subprocess. A Proxy is bound to exactly one upstream connection for
// its lifetime; Run stores that connection's writer so timeout and
// child-exit handlers can answer upstream without threading it through
// every callback.
type Proxy struct {
	cfg        Config
	child      childIO
	correlator *Correlator
	log        Logger
	tools      SyntheticToolHandler

	threadsMu sync.Mutex
	threads   map[string]*ThreadQueue

	resumeOnce  sync.Once
	resumeBlock string

	upstreamMu  sync.Mutex
	upstreamOut io.Writer

	unhealthyMu sync.Mutex
	unhealthy   bool
}

// New builds a Proxy bound to child, ready to run once Run is called.
func New(cfg Config, child childIO, tools SyntheticToolHandler, log Logger) *Proxy {
	if log == nil {
		log = nopLogger{}
	}
	return &Proxy{
		cfg:        cfg,
		child:      child,
		correlator: NewCorrelator(),
		log:        log,
		tools:      tools,
		threads:    make(map[string]*ThreadQueue),
	}
}

type nopLogger struct{}

func (nopLogger) Warnf(string, ...interface{}) {}

// SetResumeSummary arms the one-time resume block prepended to the first
// session-context injection after startup.
func (p *Proxy) SetResumeSummary(identity, timestamp, summary string) {
	p.resumeBlock = FormatResumeBlock(identity, timestamp, summary)
}

// Thread returns (creating if necessary) the command queue for threadID.
func (p *Proxy) Thread(threadID string) *ThreadQueue {
	p.threadsMu.Lock()
	defer p.threadsMu.Unlock()
	q, ok := p.threads[threadID]
	if !ok {
		q = NewThreadQueue()
		p.threads[threadID] = q
	}
	return q
}

// Run drives the proxy until ctx is cancelled or the upstream/child
// connection ends. It pumps two directions concurrently: upstream ->
// child, and child -> upstream.
func (p *Proxy) Run(ctx context.Context, upstreamIn io.Reader, upstreamOut io.Writer) error {
	p.upstreamMu.Lock()
	p.upstreamOut = upstreamOut
	p.upstreamMu.Unlock()

	var wg sync.WaitGroup
	errCh := make(chan error, 3)

	wg.Add(3)
	go func() {
		defer wg.Done()
		errCh <- p.pumpUpstream(ctx, upstreamIn)
	}()
	go func() {
		defer wg.Done()
		errCh <- p.pumpChild(ctx)
	}()
	go func() {
		defer wg.Done()
		p.runThreadDispatcher(ctx, mainThreadID)
		errCh <- nil
	}()

	wg.Wait()
	close(errCh)

	for err := range errCh {
		if err != nil {
			return err
		}
	}
	return nil
}

// pumpUpstream reads framed messages from upstream, forwarding requests
// and notifications to the child (after any required injection/routing),
// until ctx is cancelled or upstreamIn is exhausted.
func (p *Proxy) pumpUpstream(ctx context.Context, upstreamIn io.Reader) error {
	reader := NewFrameReader(upstreamIn)
	for {
		if ctx.Err() != nil {
			return nil
		}
		body, framing, err := reader.ReadMessage()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}

		var msg Message
		if err := json.Unmarshal(body, &msg); err != nil {
			resp := NewErrorResponse(nil, ErrCodeParse, fmt.Sprintf("parse error: %v", err))
			p.writeUpstream(resp, framing)
			continue
		}

		if err := p.handleUpstreamMessage(ctx, &msg, framing); err != nil {
			p.log.Warnf("proxy: handling upstream message: %v", err)
		}
	}
}

func (p *Proxy) handleUpstreamMessage(ctx context.Context, msg *Message, framing Framing) error {
	if msg.IsRequest() && msg.Method == "tools/call" {
		name, err := ToolCallName(msg.Params)
		if err == nil && IsSyntheticTool(name) {
			p.handleSyntheticCall(ctx, msg, framing, name)
			return nil
		}
		if err == nil && IsSessionTool(name) {
			var blocks []string
			p.resumeOnce.Do(func() {
				if p.resumeBlock != "" {
					blocks = append(blocks, p.resumeBlock)
				}
			})
			blocks = append(blocks, p.cfg.Context.Render())
			injected, err := InjectDeveloperInstructions(msg.Params, blocks...)
			if err != nil {
				return err
			}
			msg.Params = injected
			return p.enqueueUserTurn(msg, framing)
		}
	}

	if msg.IsRequest() {
		idStr := idString(msg.ID)
		p.correlator.Register(idStr, p.cfg.RequestTimeout, framing, msg.Method, p.onRequestTimeout)
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return p.child.WriteLine(data)
}

// enqueueUserTurn registers the request for timeout tracking (the
// deadline runs from arrival, not dispatch, so a backed-up queue can
// still time out a turn), pushes it onto the tail of the thread's
// command queue, behind any pending Close and anything already queued
// (no new auto-mail is accepted while it is pending), then immediately
// drains whatever is now ready. Since
// pumpUpstream handles one upstream message at a time, this inline
// drain is what actually forwards the common case to the child; the
// background dispatcher in Run exists for auto-mail ticks, which have
// no upstream call to piggyback a drain onto.
func (p *Proxy) enqueueUserTurn(msg *Message, framing Framing) error {
	idStr := idString(msg.ID)
	p.correlator.Register(idStr, p.cfg.RequestTimeout, framing, msg.Method, p.onRequestTimeout)

	queue := p.Thread(mainThreadID)
	if err := queue.PushUserTurn(idStr, msg.Params); err != nil {
		p.correlator.Resolve(idStr)
		p.writeUpstream(NewErrorResponse(msg.ID, ErrCodeSessionClosed, err.Error()), framing)
		return nil
	}
	p.drainThread(queue)
	return nil
}

// drainThread dispatches every command currently queued without
// blocking for new arrivals, stopping early if it dispatches a Close.
func (p *Proxy) drainThread(queue *ThreadQueue) {
	for {
		cmd, ok := queue.TryPop()
		if !ok {
			return
		}
		if p.dispatchCommand(cmd) {
			return
		}
	}
}

// runThreadDispatcher blocks on threadID's queue for the lifetime of
// ctx, so commands pushed with nothing else to drain them — namely
// auto-mail ticks, which arrive from their own ticker goroutine — still
// reach the child.
func (p *Proxy) runThreadDispatcher(ctx context.Context, threadID string) {
	queue := p.Thread(threadID)
	for {
		cmd, ok := queue.Pop(ctx)
		if !ok {
			return
		}
		if p.dispatchCommand(cmd) {
			return
		}
	}
}

// dispatchCommand drives the child for one popped command: a user turn
// is the original tools/call forwarded verbatim (its response still
// flows back through the normal correlator/pumpChild path); an
// auto-mail injection is synthesized as a session-reply call whose
// response is intentionally left unforwarded, since no upstream caller
// is waiting on it. It reports whether the thread should stop (a Close
// was dispatched).
func (p *Proxy) dispatchCommand(cmd Command) bool {
	switch cmd.Kind {
	case CmdUserTurn:
		p.dispatchUserTurn(cmd)
		return false
	case CmdAutoMailInject:
		p.dispatchAutoMail(cmd)
		return false
	case CmdClose:
		if cmd.Reply != nil {
			cmd.Reply <- ClosedIdle
			close(cmd.Reply)
		}
		return true
	default:
		return false
	}
}

func (p *Proxy) dispatchUserTurn(cmd Command) {
	msg := &Message{JSONRPC: "2.0", ID: json.RawMessage(cmd.RequestID), Method: "tools/call", Params: cmd.Args}
	data, err := json.Marshal(msg)
	if err != nil {
		p.log.Warnf("proxy: serializing queued user turn: %v", err)
		return
	}
	if err := p.child.WriteLine(data); err != nil {
		p.log.Warnf("proxy: forwarding queued user turn: %v", err)
	}
}

func (p *Proxy) dispatchAutoMail(cmd Command) {
	params := toolCallParams{Name: "session-reply", Arguments: map[string]interface{}{"text": cmd.Body}}
	rawParams, err := json.Marshal(params)
	if err != nil {
		p.log.Warnf("proxy: marshaling auto-mail params: %v", err)
		return
	}
	injected, err := InjectDeveloperInstructions(rawParams, p.cfg.Context.Render())
	if err != nil {
		p.log.Warnf("proxy: injecting auto-mail context: %v", err)
		return
	}
	msg := &Message{JSONRPC: "2.0", ID: json.RawMessage(fmt.Sprintf("%q", "automail-"+uuid.NewString())), Method: "tools/call", Params: injected}
	data, err := json.Marshal(msg)
	if err != nil {
		p.log.Warnf("proxy: serializing auto-mail turn: %v", err)
		return
	}
	if err := p.child.WriteLine(data); err != nil {
		p.log.Warnf("proxy: forwarding auto-mail turn: %v", err)
	}
}

// handleSyntheticCall answers one of the proxy's own atm_* tools directly,
// without ever forwarding it to the child.
func (p *Proxy) handleSyntheticCall(ctx context.Context, msg *Message, framing Framing, name string) {
	var call toolCallParams
	if err := json.Unmarshal(msg.Params, &call); err != nil {
		p.writeUpstream(NewErrorResponse(msg.ID, ErrCodeParse, err.Error()), framing)
		return
	}
	argsRaw, err := json.Marshal(call.Arguments)
	if err != nil {
		p.writeUpstream(NewErrorResponse(msg.ID, ErrCodeParse, err.Error()), framing)
		return
	}

	if p.tools == nil {
		p.writeUpstream(NewErrorResponse(msg.ID, ErrCodeParse, fmt.Sprintf("no handler registered for tool %q", name)), framing)
		return
	}

	result, isError, toolErr := p.tools.Handle(ctx, name, argsRaw)
	if toolErr != nil {
		p.writeUpstream(NewErrorResponse(msg.ID, ErrCodeParse, toolErr.Error()), framing)
		return
	}
	resp := &Message{JSONRPC: "2.0", ID: msg.ID, Result: wrapToolResult(result, isError)}
	p.writeUpstream(resp, framing)
}

func wrapToolResult(result json.RawMessage, isError bool) json.RawMessage {
	wrapper := map[string]interface{}{"content": result, "isError": isError}
	raw, _ := json.Marshal(wrapper)
	return raw
}

// pumpChild reads newline-delimited messages from the child, forwarding
// responses (matched against the correlator) and notifications to
// upstream, until ctx is cancelled or the child exits.
func (p *Proxy) pumpChild(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		line, err := p.child.ReadLine()
		if err != nil {
			if err == io.EOF {
				p.handleChildExit()
				return nil
			}
			return err
		}
		if len(line) == 0 {
			continue
		}

		var msg Message
		if err := json.Unmarshal(line, &msg); err != nil {
			p.log.Warnf("proxy: child sent unparseable message: %v", err)
			continue
		}

		p.handleChildMessage(&msg)
	}
}

func (p *Proxy) handleChildMessage(msg *Message) {
	if msg.IsResponse() {
		idStr := idString(msg.ID)
		framing, method, ok := p.correlator.Resolve(idStr)
		if !ok {
			// Already timed out and answered upstream; drop the late reply.
			return
		}
		if method == "tools/list" && msg.Result != nil {
			if merged, err := AppendSyntheticTools(msg.Result); err == nil {
				msg.Result = merged
			} else {
				p.log.Warnf("proxy: appending synthetic tools: %v", err)
			}
		}
		p.writeUpstream(msg, framing)
		return
	}

	// Notifications from the child are forwarded as-is.
	p.writeUpstream(msg, FramingLine)
}

// onRequestTimeout fires when a pending request's deadline expires:
// exactly one notifications/cancelled is sent to the child, and a
// synthesized timeout error response is sent upstream, encoded to
// match how the original request arrived.
func (p *Proxy) onRequestTimeout(id string, framing Framing) {
	cancelParams := CancelledParams{RequestID: json.RawMessage(id)}
	if notification, err := NewNotification("notifications/cancelled", cancelParams); err == nil {
		if data, merr := json.Marshal(notification); merr == nil {
			if werr := p.child.WriteLine(data); werr != nil {
				p.log.Warnf("proxy: notifying child of cancelled request %s: %v", id, werr)
			}
		}
	}
	resp := NewErrorResponse(json.RawMessage(id), ErrCodeRequestTimeout, "request timed out waiting for agent response")
	p.writeUpstream(resp, framing)
}

// handleChildExit drains every pending request and answers each with a
// child-exited error, marking the proxy unhealthy.
func (p *Proxy) handleChildExit() {
	p.unhealthyMu.Lock()
	p.unhealthy = true
	p.unhealthyMu.Unlock()

	for _, req := range p.correlator.DrainAll() {
		resp := NewErrorResponse(json.RawMessage(req.ID), ErrCodeChildExited, "agent subprocess exited")
		p.writeUpstream(resp, req.Framing)
	}
}

// Unhealthy reports whether the child has exited; the supervising process
// decides whether to restart based on this.
func (p *Proxy) Unhealthy() bool {
	p.unhealthyMu.Lock()
	defer p.unhealthyMu.Unlock()
	return p.unhealthy
}

// writeUpstream serializes msg and writes it to the upstream connection
// while holding upstreamMu, so a timeout callback and the child pump can
// never interleave partial frames.
func (p *Proxy) writeUpstream(msg *Message, framing Framing) {
	data, err := json.Marshal(msg)
	if err != nil {
		p.log.Warnf("proxy: serializing upstream message: %v", err)
		return
	}

	p.upstreamMu.Lock()
	defer p.upstreamMu.Unlock()
	if p.upstreamOut == nil {
		return
	}
	if err := WriteFramed(p.upstreamOut, data, framing); err != nil {
		p.log.Warnf("proxy: writing upstream message: %v", err)
	}
}
