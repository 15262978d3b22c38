// Package home resolves the canonical directory layout for agent-team-mail.
//
// All higher layers (inbox engine, daemon, proxy, CLI) go through this
// package instead of joining paths by hand, so the ATM_HOME override
// behaves identically everywhere — production and tests alike.
package home

import (
	"os"
	"path/filepath"
	"strings"
)

// Dir resolves the effective home directory: ATM_HOME (trimmed) when set
// and non-empty, else os.UserHomeDir().
func Dir() (string, error) {
	if v, ok := os.LookupEnv("ATM_HOME"); ok {
		trimmed := strings.TrimSpace(v)
		if trimmed != "" {
			return trimmed, nil
		}
	}
	return os.UserHomeDir()
}

// Layout resolves every well-known path under a given home directory.
// Construct with New or NewFromEnv; all paths are derived once so callers
// never re-implement the join order.
type Layout struct {
	home string
}

// New builds a Layout rooted at the given home directory.
func New(homeDir string) Layout { return Layout{home: homeDir} }

// NewFromEnv builds a Layout rooted at Dir().
func NewFromEnv() (Layout, error) {
	h, err := Dir()
	if err != nil {
		return Layout{}, err
	}
	return New(h), nil
}

// Home returns the resolved home directory.
func (l Layout) Home() string { return l.home }

// TeamsRoot returns home/.claude/teams.
func (l Layout) TeamsRoot() string {
	return filepath.Join(l.home, ".claude", "teams")
}

// TeamDir returns teams_root/<team>.
func (l Layout) TeamDir(team string) string {
	return filepath.Join(l.TeamsRoot(), team)
}

// TeamConfigPath returns teams_root/<team>/config.json.
func (l Layout) TeamConfigPath(team string) string {
	return filepath.Join(l.TeamDir(team), "config.json")
}

// InboxesDir returns teams_root/<team>/inboxes.
func (l Layout) InboxesDir(team string) string {
	return filepath.Join(l.TeamDir(team), "inboxes")
}

// InboxPath returns teams_root/<team>/inboxes/<agent>.json.
func (l Layout) InboxPath(team, agent string) string {
	return filepath.Join(l.InboxesDir(team), agent+".json")
}

// SpoolDir returns teams_root/<team>/.spool/<agent>.
func (l Layout) SpoolDir(team, agent string) string {
	return filepath.Join(l.TeamDir(team), ".spool", agent)
}

// SpoolRoot returns teams_root/<team>/.spool, used by the drain walk.
func (l Layout) SpoolRoot(team string) string {
	return filepath.Join(l.TeamDir(team), ".spool")
}

// ArchiveDir returns teams_root/<team>/.archive/<agent>, used by retention
// when the archive strategy is selected.
func (l Layout) ArchiveDir(team, agent string) string {
	return filepath.Join(l.TeamDir(team), ".archive", agent)
}

// SummaryPath returns teams_root/<team>/<identity>/<backendID>/summary.md.
func (l Layout) SummaryPath(team, identity, backendID string) string {
	return filepath.Join(l.TeamDir(team), identity, backendID, "summary.md")
}

// DaemonDir returns home/.claude/daemon.
func (l Layout) DaemonDir() string {
	return filepath.Join(l.home, ".claude", "daemon")
}

// DaemonStatusPath returns home/.claude/daemon/status.json.
func (l Layout) DaemonStatusPath() string {
	return filepath.Join(l.DaemonDir(), "status.json")
}

// DaemonControlSocketPath returns home/.claude/daemon/control.sock.
func (l Layout) DaemonControlSocketPath() string {
	return filepath.Join(l.DaemonDir(), "control.sock")
}

// SessionRegistryPath returns home/.claude/daemon/sessions.json, where
// the daemon and agent-mcp processes persist known sessions for
// resume-after-crash lookups.
func (l Layout) SessionRegistryPath() string {
	return filepath.Join(l.DaemonDir(), "sessions.json")
}

// ConfigDir returns home/.config/atm.
func (l Layout) ConfigDir() string {
	return filepath.Join(l.home, ".config", "atm")
}

// CLIStatePath returns home/.config/atm/state.json.
func (l Layout) CLIStatePath() string {
	return filepath.Join(l.ConfigDir(), "state.json")
}

// TUIConfigPath returns home/.config/atm/tui.toml.
func (l Layout) TUIConfigPath() string {
	return filepath.Join(l.ConfigDir(), "tui.toml")
}

// VersionCachePath returns home/.claude/claude-version.json, the
// schema-version cache with a 24h TTL.
func (l Layout) VersionCachePath() string {
	return filepath.Join(l.home, ".claude", "claude-version.json")
}

// SearchIndexPath returns home/.claude/daemon/search-index.db, the
// derived SQLite query cache. It is never authoritative and is always
// safe to delete.
func (l Layout) SearchIndexPath() string {
	return filepath.Join(l.DaemonDir(), "search-index.db")
}
