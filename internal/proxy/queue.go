package proxy

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/agentmail/atm/internal/atmerr"
)

// CommandKind distinguishes the three commands a thread queue carries.
type CommandKind int

const (
	CmdUserTurn CommandKind = iota
	CmdAutoMailInject
	CmdClose
)

func (k CommandKind) String() string {
	switch k {
	case CmdUserTurn:
		return "user_turn"
	case CmdAutoMailInject:
		return "auto_mail_inject"
	case CmdClose:
		return "close"
	default:
		return "unknown"
	}
}

// CloseResult is the eventual outcome a Close command resolves to.
type CloseResult int

const (
	ClosedIdle CloseResult = iota
	ClosedWithSummary
	Interrupted
)

// Command is one entry in a ThreadQueue.
type Command struct {
	Kind      CommandKind
	RequestID string          // set for CmdUserTurn
	Args      json.RawMessage // set for CmdUserTurn
	Body      string          // set for CmdAutoMailInject
	Reply     chan<- CloseResult // set for CmdClose
}

// ThreadQueue is the per-thread command queue: a deque with Close kept
// at the head and a sticky close_requested flag. Other commands leave in
// arrival order; auto-mail is refused while a UserTurn is pending, and
// both are refused after Close. The zero value is not ready to use;
// construct with NewThreadQueue.
type ThreadQueue struct {
	mu               sync.Mutex
	items            []Command
	closeRequested   bool
	pendingUserTurns int
	autoMailEnabled  bool
	wake             chan struct{}
}

// NewThreadQueue returns an empty, ready-to-use ThreadQueue with
// auto-mail enabled.
func NewThreadQueue() *ThreadQueue {
	return &ThreadQueue{autoMailEnabled: true, wake: make(chan struct{}, 1)}
}

// SetAutoMailEnabled flips this thread's auto-mail toggle. While off,
// the injection ticker skips the thread entirely and PushAutoMail
// drops.
func (q *ThreadQueue) SetAutoMailEnabled(enabled bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.autoMailEnabled = enabled
}

// AutoMailEnabled reports whether auto-mail injection is on for this
// thread.
func (q *ThreadQueue) AutoMailEnabled() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.autoMailEnabled
}

func (q *ThreadQueue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// PushUserTurn enqueues a user turn at the tail. It returns
// atmerr.ErrSessionClosed if Close has already been requested.
func (q *ThreadQueue) PushUserTurn(requestID string, args json.RawMessage) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closeRequested {
		return atmerr.ErrSessionClosed
	}
	q.items = append(q.items, Command{Kind: CmdUserTurn, RequestID: requestID, Args: args})
	q.pendingUserTurns++
	q.signal()
	return nil
}

// PushAutoMail enqueues an auto-mail injection at the tail. It reports
// false (dropped, not an error) if auto-mail is toggled off for this
// thread, Close has been requested, or a UserTurn is already pending;
// auto-mail always defers to human turns.
func (q *ThreadQueue) PushAutoMail(body string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.autoMailEnabled || q.closeRequested || q.pendingUserTurns > 0 {
		return false
	}
	q.items = append(q.items, Command{Kind: CmdAutoMailInject, Body: body})
	q.signal()
	return true
}

// PushClose enqueues Close at the head, idempotently. It returns true and
// a reply channel on the first call; subsequent calls return false and a
// nil channel ("already-requested").
func (q *ThreadQueue) PushClose() (bool, <-chan CloseResult) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closeRequested {
		return false, nil
	}
	reply := make(chan CloseResult, 1)
	q.closeRequested = true
	q.items = append([]Command{{Kind: CmdClose, Reply: reply}}, q.items...)
	q.signal()
	return true, reply
}

// Pop blocks until a command is available or ctx is cancelled, returning
// ok=false in the latter case. Because Close is always pushed to the
// head, it is always returned before anything enqueued ahead of it.
func (q *ThreadQueue) Pop(ctx context.Context) (Command, bool) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			cmd := q.items[0]
			q.items = q.items[1:]
			if cmd.Kind == CmdUserTurn {
				q.pendingUserTurns--
			}
			q.mu.Unlock()
			return cmd, true
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return Command{}, false
		case <-q.wake:
		}
	}
}

// TryPop returns the next command if one is immediately available,
// without blocking for new arrivals.
func (q *ThreadQueue) TryPop() (Command, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return Command{}, false
	}
	cmd := q.items[0]
	q.items = q.items[1:]
	if cmd.Kind == CmdUserTurn {
		q.pendingUserTurns--
	}
	return cmd, true
}

// CloseRequested reports whether Close has been pushed.
func (q *ThreadQueue) CloseRequested() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closeRequested
}

// Len reports how many commands are currently queued, for tests/status.
func (q *ThreadQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
