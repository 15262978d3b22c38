// tools.go implements the seven synthetic atm_*/agent_* tools the proxy
// advertises: it is the concrete SyntheticToolHandler that routes each
// call into the inbox engine, the persisted session registry, and the
// proxy's own thread queue.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/agentmail/atm/internal/home"
	"github.com/agentmail/atm/internal/inbox"
	"github.com/agentmail/atm/internal/proxy"
	"github.com/agentmail/atm/internal/schema"
	"github.com/agentmail/atm/internal/session"
)

// atmToolHandler implements proxy.SyntheticToolHandler, bound to one
// agent's identity/team for the lifetime of the proxy process.
type atmToolHandler struct {
	layout     home.Layout
	identity   string
	team       string
	maxRetries int
	log        *zap.Logger

	// proxy is wired in after construction (tools.go needs a handler
	// before proxy.New exists, and proxy.New needs the handler), so
	// agent_close can reach the bound thread's command queue.
	proxy *proxy.Proxy
}

func newAtmToolHandler(l home.Layout, identity, team string, maxRetries int, log *zap.Logger) *atmToolHandler {
	return &atmToolHandler{layout: l, identity: identity, team: team, maxRetries: maxRetries, log: log}
}

func (h *atmToolHandler) bindProxy(p *proxy.Proxy) { h.proxy = p }

func (h *atmToolHandler) Handle(ctx context.Context, name string, arguments json.RawMessage) (json.RawMessage, bool, error) {
	switch name {
	case "atm_send":
		return h.atmSend(arguments)
	case "atm_read":
		return h.atmRead(arguments)
	case "atm_broadcast":
		return h.atmBroadcast(arguments)
	case "atm_pending_count":
		return h.atmPendingCount()
	case "agent_sessions":
		return h.agentSessions()
	case "agent_status":
		return h.agentStatus()
	case "agent_close":
		return h.agentClose(ctx, arguments)
	default:
		return errResult(fmt.Sprintf("unknown synthetic tool %q", name))
	}
}

func errResult(msg string) (json.RawMessage, bool, error) {
	raw, _ := json.Marshal(map[string]string{"error": msg})
	return raw, true, nil
}

func okResult(v interface{}) (json.RawMessage, bool, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, true, err
	}
	return raw, false, nil
}

type sendArgs struct {
	To      string `json:"to"`
	Text    string `json:"text"`
	Summary string `json:"summary"`
}

func (h *atmToolHandler) atmSend(arguments json.RawMessage) (json.RawMessage, bool, error) {
	var args sendArgs
	if err := json.Unmarshal(arguments, &args); err != nil {
		return errResult(fmt.Sprintf("parsing atm_send arguments: %v", err))
	}
	if args.To == "" || args.Text == "" {
		return errResult("atm_send requires \"to\" and \"text\"")
	}

	team, agent := resolveAddress(args.To, h.team)
	msg := schema.InboxMessage{
		From:      h.identity,
		Text:      args.Text,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Summary:   summaryOrDerive(args.Summary, args.Text),
		MessageID: newMessageID(),
	}

	outcome, err := inbox.Append(h.layout, team, agent, msg, h.maxRetries, zapWarnf(h.log))
	if err != nil {
		return errResult(fmt.Sprintf("sending to %s: %v", args.To, err))
	}
	return okResult(map[string]interface{}{"delivered_to": agent, "team": team, "outcome": outcome.Kind.String()})
}

type readArgs struct {
	UnreadOnly *bool `json:"unread_only"`
	Limit      int   `json:"limit"`
}

func (h *atmToolHandler) atmRead(arguments json.RawMessage) (json.RawMessage, bool, error) {
	var args readArgs
	if len(arguments) > 0 {
		if err := json.Unmarshal(arguments, &args); err != nil {
			return errResult(fmt.Sprintf("parsing atm_read arguments: %v", err))
		}
	}

	messages, err := inbox.Unread(h.layout, h.team, h.identity)
	if err != nil {
		return errResult(fmt.Sprintf("reading inbox: %v", err))
	}
	if args.Limit > 0 && len(messages) > args.Limit {
		messages = messages[:args.Limit]
	}

	if len(messages) > 0 {
		if _, err := inbox.MarkRead(h.layout, h.team, h.identity, messages, h.maxRetries, zapWarnf(h.log)); err != nil {
			h.log.Warn("marking messages read", zap.Error(err))
		}
	}
	return okResult(map[string]interface{}{"messages": messages, "count": len(messages)})
}

type broadcastArgs struct {
	Text    string `json:"text"`
	Summary string `json:"summary"`
}

func (h *atmToolHandler) atmBroadcast(arguments json.RawMessage) (json.RawMessage, bool, error) {
	var args broadcastArgs
	if err := json.Unmarshal(arguments, &args); err != nil {
		return errResult(fmt.Sprintf("parsing atm_broadcast arguments: %v", err))
	}
	if args.Text == "" {
		return errResult("atm_broadcast requires \"text\"")
	}

	cfg, err := readTeamConfig(h.layout, h.team)
	if err != nil {
		return errResult(fmt.Sprintf("reading team config: %v", err))
	}

	summary := summaryOrDerive(args.Summary, args.Text)
	delivered := 0
	for _, member := range cfg.Members {
		if member.Name == h.identity {
			continue
		}
		msg := schema.InboxMessage{
			From:      h.identity,
			Text:      args.Text,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Summary:   summary,
			MessageID: newMessageID(),
		}
		if _, err := inbox.Append(h.layout, h.team, member.Name, msg, h.maxRetries, zapWarnf(h.log)); err != nil {
			h.log.Warn("broadcast delivery failed", zap.String("to", member.Name), zap.Error(err))
			continue
		}
		delivered++
	}
	return okResult(map[string]interface{}{"delivered": delivered, "members": len(cfg.Members)})
}

func (h *atmToolHandler) atmPendingCount() (json.RawMessage, bool, error) {
	messages, err := inbox.Unread(h.layout, h.team, h.identity)
	if err != nil {
		return errResult(fmt.Sprintf("reading inbox: %v", err))
	}
	return okResult(map[string]interface{}{"pending": len(messages)})
}

// agentSessions reports the persisted session registry rather than any
// in-memory daemon state: the proxy is a separate process from the
// daemon and has no handle on its in-memory session.Registry, but every
// agent-mcp process (including this one) publishes its own record to
// the same file, so this is the same cross-process view the resume
// selection already reads from.
func (h *atmToolHandler) agentSessions() (json.RawMessage, bool, error) {
	entries, err := session.ReadEntries(h.layout)
	if err != nil {
		return errResult(fmt.Sprintf("reading session registry: %v", err))
	}
	return okResult(map[string]interface{}{"sessions": entries})
}

func (h *atmToolHandler) agentStatus() (json.RawMessage, bool, error) {
	status := map[string]interface{}{
		"identity": h.identity,
		"team":     h.team,
	}
	if h.proxy != nil {
		thread := h.proxy.Thread(mainThreadIDForStatus)
		status["queue_length"] = thread.Len()
		status["close_requested"] = thread.CloseRequested()
		status["auto_mail"] = thread.AutoMailEnabled()
		status["unhealthy"] = h.proxy.Unhealthy()
	}
	return okResult(status)
}

// mainThreadIDForStatus mirrors proxy's unexported mainThreadID; a proxy
// is bound to exactly one thread for its lifetime (see proxy.go), so
// agent_status always inspects this one.
const mainThreadIDForStatus = "default"

type closeArgs struct {
	Summarize bool `json:"summarize"`
}

func (h *atmToolHandler) agentClose(ctx context.Context, arguments json.RawMessage) (json.RawMessage, bool, error) {
	if h.proxy == nil {
		return errResult("agent_close: proxy not yet bound")
	}
	var args closeArgs
	if len(arguments) > 0 {
		_ = json.Unmarshal(arguments, &args)
	}

	thread := h.proxy.Thread(mainThreadIDForStatus)
	first, reply := thread.PushClose()
	if !first {
		return okResult(map[string]interface{}{"already_requested": true})
	}

	if args.Summarize {
		if err := h.persistPlaceholderSummary(); err != nil {
			h.log.Warn("persisting close summary", zap.Error(err))
		}
	}

	select {
	case result := <-reply:
		return okResult(map[string]interface{}{"result": closeResultString(result)})
	case <-ctx.Done():
		return okResult(map[string]interface{}{"result": "pending"})
	}
}

func closeResultString(r proxy.CloseResult) string {
	switch r {
	case proxy.ClosedWithSummary:
		return "closed_with_summary"
	case proxy.Interrupted:
		return "interrupted"
	default:
		return "closed_idle"
	}
}

// persistPlaceholderSummary writes a minimal summary.md so a future
// --resume can find something at the expected path. The proxy has no
// access to the agent's own conversational summary text (that lives in
// the child's session state); the daemon's surrounding system is
// expected to overwrite this with a richer summary before the process
// actually exits.
func (h *atmToolHandler) persistPlaceholderSummary() error {
	backendID := os.Getenv("ATM_THREAD_ID")
	if backendID == "" {
		backendID = "default"
	}
	path := h.layout.SummaryPath(h.team, h.identity, backendID)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	body := fmt.Sprintf("Session closed at %s.\n", time.Now().UTC().Format(time.RFC3339))
	return os.WriteFile(path, []byte(body), 0o644)
}

// resolveAddress splits a "name" or "name@team" address, falling back
// to defaultTeam when no "@team" suffix is present.
func resolveAddress(addr, defaultTeam string) (team, agent string) {
	if i := strings.LastIndex(addr, "@"); i >= 0 {
		return addr[i+1:], addr[:i]
	}
	return defaultTeam, addr
}

// summaryOrDerive returns explicit if non-empty, else derives one from
// the first ~100 characters of text broken on a word boundary.
func summaryOrDerive(explicit, text string) string {
	if explicit != "" {
		return explicit
	}
	const maxLen = 100
	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}
	cut := maxLen
	for cut > 0 && runes[cut] != ' ' {
		cut--
	}
	if cut == 0 {
		cut = maxLen
	}
	return strings.TrimSpace(string(runes[:cut])) + "…"
}

func newMessageID() string { return uuid.NewString() }

func readTeamConfig(l home.Layout, team string) (schema.TeamConfig, error) {
	data, err := os.ReadFile(l.TeamConfigPath(team))
	if err != nil {
		return schema.TeamConfig{}, err
	}
	var cfg schema.TeamConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return schema.TeamConfig{}, err
	}
	return cfg, nil
}

// zapLogWarnf adapts *zap.Logger to inbox.Logger, matching the same
// small adapter internal/daemon keeps private to itself.
type zapLogWarnf struct{ log *zap.Logger }

func (z zapLogWarnf) Warnf(format string, args ...interface{}) {
	z.log.Sugar().Warnf(format, args...)
}

func zapWarnf(log *zap.Logger) inbox.Logger { return zapLogWarnf{log} }
