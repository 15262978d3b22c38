package proxy

import (
	"os"
	"time"

	"github.com/agentmail/atm/internal/home"
)

// SessionEntry is one record in the persisted session registry file the
// proxy reads to pick a session to resume.
type SessionEntry struct {
	AgentID    string
	Identity   string
	ThreadID   string
	LastActive time.Time
}

// SelectResumeSession picks the entry to resume: the one whose AgentID
// matches explicitAgentID if given and found, else the entry with the
// most recent LastActive. ok is false if entries is empty or
// explicitAgentID was given but not found.
func SelectResumeSession(entries []SessionEntry, explicitAgentID string) (SessionEntry, bool) {
	if explicitAgentID != "" {
		for _, e := range entries {
			if e.AgentID == explicitAgentID {
				return e, true
			}
		}
		return SessionEntry{}, false
	}

	if len(entries) == 0 {
		return SessionEntry{}, false
	}
	best := entries[0]
	for _, e := range entries[1:] {
		if e.LastActive.After(best.LastActive) {
			best = e
		}
	}
	return best, true
}

// LoadSummary reads the prior-session summary file for (team, identity,
// backendID). A missing file is reported via ok=false with a nil error —
// this is a warning the caller logs, not a failure that
// blocks resume.
func LoadSummary(l home.Layout, team, identity, backendID string) (summary string, ok bool, err error) {
	data, readErr := os.ReadFile(l.SummaryPath(team, identity, backendID))
	if os.IsNotExist(readErr) {
		return "", false, nil
	}
	if readErr != nil {
		return "", false, readErr
	}
	return string(data), true, nil
}
