// Command atm-agent-mcp is the per-agent MCP proxy: it sits on the stdio
// of an upstream JSON-RPC client (the editor/host), spawns the real agent
// subprocess, and multiplexes the two. It holds no application logic of
// its own beyond wiring: framing, queueing, resume, and synthetic-tool
// routing all live in internal/proxy.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/agentmail/atm/internal/home"
	"github.com/agentmail/atm/internal/inbox"
	"github.com/agentmail/atm/internal/proxy"
	"github.com/agentmail/atm/internal/schema"
	"github.com/agentmail/atm/internal/session"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if len(os.Args) > 1 && (os.Args[1] == "--version" || os.Args[1] == "-version") {
		fmt.Printf("atm-agent-mcp %s (commit %s, built %s)\n", version, commit, date)
		return
	}

	flags := flag.NewFlagSet("atm-agent-mcp", flag.ContinueOnError)
	identity := flags.String("identity", envOr("ATM_IDENTITY", ""), "this proxy's bound agent identity")
	team := flags.String("team", envOr("ATM_TEAM", ""), "team the identity belongs to")
	command := flags.String("command", "", "agent subprocess command to spawn")
	cmdArgs := flags.String("args", "", "comma-separated args passed to --command")
	cwd := flags.String("cwd", "", "working directory for the spawned subprocess (defaults to current)")
	requestTimeout := flags.Duration("request-timeout", 120*time.Second, "per-request timeout before notifications/cancelled fires")
	maxRetries := flags.Int("max-retries", 5, "max retries for inbox lock acquisition")
	autoMail := flags.Bool("auto-mail", envBool("ATM_AUTO_MAIL", true), "inject unread mail into idle turns")
	resume := flags.Bool("resume", false, "resume the most recent prior session for this identity")
	resumeAgentID := flags.String("resume-agent", "", "resume a specific agent_id instead of the most recent")
	repoName := flags.String("repo-name", "", "repo name reported in session-context (empty renders as null)")
	repoRoot := flags.String("repo-root", "", "repo root reported in session-context (empty renders as null)")
	branch := flags.String("branch", "", "branch reported in session-context (empty renders as null)")
	verbose := flags.Bool("verbose", false, "enable debug-level logging")
	if err := flags.Parse(os.Args[1:]); err != nil {
		os.Exit(2)
	}

	if *identity == "" || *team == "" {
		fatal("--identity and --team are required")
	}
	if *command == "" {
		fatal("--command is required")
	}

	log, err := newLogger(*verbose)
	if err != nil {
		fatal("building logger: %v", err)
	}
	defer log.Sync()

	layout, err := home.NewFromEnv()
	if err != nil {
		fatal("resolving home directory: %v", err)
	}

	workDir := *cwd
	if workDir == "" {
		if wd, err := os.Getwd(); err == nil {
			workDir = wd
		}
	}

	child, err := proxy.Spawn(proxy.SpawnConfig{
		Command: *command,
		Args:    splitArgs(*cmdArgs),
		Dir:     workDir,
	})
	if err != nil {
		fatal("spawning agent subprocess: %v", err)
	}

	sessCtx := proxy.SessionContext{
		Identity: *identity,
		Team:     *team,
		RepoName: nullableString(*repoName),
		RepoRoot: nullableString(*repoRoot),
		Branch:   nullableString(*branch),
		CWD:      workDir,
	}

	handler := newAtmToolHandler(layout, *identity, *team, *maxRetries, log)
	p := proxy.New(proxy.Config{
		Identity:       *identity,
		Team:           *team,
		RequestTimeout: *requestTimeout,
		Context:        sessCtx,
	}, child, handler, zapProxyLogger{log})
	handler.bindProxy(p)

	backendID := "default"
	if *resume || *resumeAgentID != "" {
		backendID = wireResume(layout, p, *team, *identity, *resumeAgentID, log)
	}
	os.Setenv("ATM_THREAD_ID", backendID)

	if err := session.WriteEntries(layout, session.Upsert(mustReadEntries(layout, log), session.PersistedEntry{
		AgentID:    *identity + "@" + *team,
		Identity:   *identity,
		ThreadID:   backendID,
		ProcessID:  os.Getpid(),
		LastActive: time.Now().UTC(),
	})); err != nil {
		log.Warn("persisting session registry entry", zap.Error(err))
	}

	if v := schema.DetectClaudeVersion(layout.VersionCachePath()); v.Version != "" {
		log.Info("detected claude version", zap.String("version", v.Version))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	automailCfg := proxy.DefaultAutoMailConfig()
	reader := &markReadAutoMailReader{layout: layout, maxRetries: *maxRetries, log: log}
	thread := p.Thread("default")
	thread.SetAutoMailEnabled(*autoMail)
	go proxy.RunAutoMail(ctx, automailCfg, reader, *team, *identity, thread, zapProxyLogger{log})

	go func() {
		<-ctx.Done()
		child.RunUntilCancel(context.Background())
	}()

	log.Info("atm-agent-mcp starting",
		zap.String("identity", *identity),
		zap.String("team", *team),
		zap.String("command", *command),
	)

	if err := p.Run(ctx, os.Stdin, os.Stdout); err != nil {
		log.Warn("proxy run exited with error", zap.Error(err))
	}

	if waitErr := child.Wait(); waitErr != nil {
		log.Info("agent subprocess exited", zap.Error(waitErr), zap.Int("exit_code", child.ExitCode()))
	}
}

// wireResume implements the resume path: select an entry from
// the persisted registry, try to load its summary, and arm the proxy's
// one-shot resume block. A missing summary is a warning, not a fatal
// error — the proxy still resumes without prior context.
func wireResume(l home.Layout, p *proxy.Proxy, team, identity, explicitAgentID string, log *zap.Logger) string {
	persisted, err := session.ReadEntries(l)
	if err != nil {
		log.Warn("reading session registry for resume", zap.Error(err))
		return "default"
	}

	entries := make([]proxy.SessionEntry, 0, len(persisted))
	for _, e := range persisted {
		entries = append(entries, proxy.SessionEntry{
			AgentID: e.AgentID, Identity: e.Identity, ThreadID: e.ThreadID, LastActive: e.LastActive,
		})
	}

	selected, ok := proxy.SelectResumeSession(entries, explicitAgentID)
	if !ok {
		log.Warn("no prior session found to resume", zap.String("identity", identity))
		return "default"
	}

	summary, ok, err := proxy.LoadSummary(l, team, selected.Identity, selected.ThreadID)
	if err != nil {
		log.Warn("loading prior session summary", zap.Error(err))
	} else if ok {
		p.SetResumeSummary(selected.Identity, selected.LastActive.Format(time.RFC3339), summary)
	} else {
		log.Warn("no summary file found for resumed session", zap.String("thread_id", selected.ThreadID))
	}
	return selected.ThreadID
}

func mustReadEntries(l home.Layout, log *zap.Logger) []session.PersistedEntry {
	entries, err := session.ReadEntries(l)
	if err != nil {
		log.Warn("reading session registry", zap.Error(err))
		return nil
	}
	return entries
}

// markReadAutoMailReader adapts the inbox engine to proxy.MailReader:
// each tick both fetches unread mail and marks it read, so a message
// is only ever injected into the agent's thread once.
type markReadAutoMailReader struct {
	layout     home.Layout
	maxRetries int
	log        *zap.Logger
}

func (r *markReadAutoMailReader) Unread(team, identity string) ([]schema.InboxMessage, error) {
	messages, err := inbox.Unread(r.layout, team, identity)
	if err != nil || len(messages) == 0 {
		return messages, err
	}
	if _, err := inbox.MarkRead(r.layout, team, identity, messages, r.maxRetries, zapWarnf(r.log)); err != nil {
		r.log.Warn("marking auto-mail read", zap.Error(err))
	}
	return messages, nil
}

// zapProxyLogger adapts *zap.Logger to proxy.Logger.
type zapProxyLogger struct{ log *zap.Logger }

func (z zapProxyLogger) Warnf(format string, args ...interface{}) {
	z.log.Sugar().Warnf(format, args...)
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func splitArgs(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	return cfg.Build()
}

func envOr(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func envBool(key string, def bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return parsed
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "atm-agent-mcp: "+format+"\n", args...)
	os.Exit(1)
}
