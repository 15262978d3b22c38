// control.go implements the local control socket named in the daemon
// runtime's responsibilities: a small JSON-over-Unix-socket protocol so
// `atm daemon status` and `atm daemon stop` have something to dial
// without shelling out to signals or re-reading the status file racily.
// Interrupt delivery to individual agent sessions deliberately does
// not travel over this socket; that belongs to the proxy's per-thread
// command queue.
package daemon

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/agentmail/atm/internal/home"
	"github.com/agentmail/atm/internal/session"
)

// ControlRequest is one line sent to the control socket.
type ControlRequest struct {
	Command string `json:"command"`
}

// ControlSession is one agent session as reported over the control
// socket, a stable wire view of the daemon's in-memory registry record.
type ControlSession struct {
	Agent     string `json:"agent"`
	SessionID string `json:"session_id"`
	PID       int    `json:"pid"`
	State     string `json:"state"`
}

// ControlResponse is the single JSON line sent back for every request.
type ControlResponse struct {
	OK       bool             `json:"ok"`
	Status   *Status          `json:"status,omitempty"`
	Sessions []ControlSession `json:"sessions,omitempty"`
	Error    string           `json:"error,omitempty"`
}

// ControlServer accepts connections on the daemon's control socket and
// dispatches status, sessions, and shutdown requests.
type ControlServer struct {
	layout   home.Layout
	cancel   context.CancelFunc
	sessions *session.Registry // may be nil; "sessions" then returns empty
	log      *zap.Logger
}

// NewControlServer returns a server bound to layout's control socket
// path. cancel is invoked on a "shutdown" command; it should cancel the
// same context EventLoop.Run was given so the rest of the daemon
// unwinds through its normal shutdown path rather than os.Exit.
func NewControlServer(l home.Layout, cancel context.CancelFunc, log *zap.Logger) *ControlServer {
	return &ControlServer{layout: l, cancel: cancel, log: log}
}

// Serve listens until ctx is cancelled, handling one request per
// connection. It removes any stale socket file left behind by a prior
// crash before binding, and cleans up its own socket file on return.
func (c *ControlServer) Serve(ctx context.Context) error {
	sockPath := c.layout.DaemonControlSocketPath()
	if err := os.MkdirAll(filepath.Dir(sockPath), 0o755); err != nil {
		return fmt.Errorf("control socket dir: %w", err)
	}
	if err := os.Remove(sockPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing stale control socket: %w", err)
	}

	ln, err := net.Listen("unix", sockPath)
	if err != nil {
		return fmt.Errorf("listening on control socket: %w", err)
	}
	defer os.Remove(sockPath)
	defer ln.Close()

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.log.Warn("control socket accept failed", zap.Error(err))
			continue
		}
		go c.handle(conn)
	}
}

func (c *ControlServer) handle(conn net.Conn) {
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(5 * time.Second))

	var req ControlRequest
	if err := json.NewDecoder(bufio.NewReader(conn)).Decode(&req); err != nil {
		c.log.Warn("control socket decode failed", zap.Error(err))
		return
	}

	resp := c.dispatch(req)
	if err := json.NewEncoder(conn).Encode(resp); err != nil {
		c.log.Warn("control socket encode failed", zap.Error(err))
	}
}

func (c *ControlServer) dispatch(req ControlRequest) ControlResponse {
	switch req.Command {
	case "ping":
		return ControlResponse{OK: true}
	case "status":
		status, err := ReadStatus(c.layout)
		if err != nil {
			return ControlResponse{Error: err.Error()}
		}
		return ControlResponse{OK: true, Status: &status}
	case "sessions":
		resp := ControlResponse{OK: true}
		if c.sessions != nil {
			for _, rec := range c.sessions.All() {
				resp.Sessions = append(resp.Sessions, ControlSession{
					Agent:     rec.AgentName,
					SessionID: rec.SessionID,
					PID:       rec.ProcessID,
					State:     rec.State.String(),
				})
			}
		}
		return resp
	case "shutdown":
		c.cancel()
		return ControlResponse{OK: true}
	default:
		return ControlResponse{Error: fmt.Sprintf("unknown control command %q", req.Command)}
	}
}

// DialControl sends a single request to the running daemon's control
// socket and returns its response. Callers should treat a dial failure
// as "daemon not running" rather than a hard error.
func DialControl(l home.Layout, req ControlRequest, timeout time.Duration) (ControlResponse, error) {
	conn, err := net.DialTimeout("unix", l.DaemonControlSocketPath(), timeout)
	if err != nil {
		return ControlResponse{}, err
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(timeout))

	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return ControlResponse{}, fmt.Errorf("sending control request: %w", err)
	}
	var resp ControlResponse
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return ControlResponse{}, fmt.Errorf("reading control response: %w", err)
	}
	return resp, nil
}
