package main

import (
	"encoding/json"
	"os"
	"time"

	"github.com/agentmail/atm/internal/atomicio"
	"github.com/agentmail/atm/internal/home"
)

// cliState is the per-user CLI state file at home/.config/atm/state.json:
// last-seen timestamps per (team, agent). `atm read` records them after
// each read but does not filter by them: it always returns every unread
// message.
type cliState struct {
	LastSeen map[string]string `json:"last_seen"` // "team/agent" -> RFC3339 timestamp
}

func seenKey(team, agent string) string { return team + "/" + agent }

func loadCLIState(l home.Layout) cliState {
	data, err := os.ReadFile(l.CLIStatePath())
	if err != nil {
		return cliState{LastSeen: map[string]string{}}
	}
	var s cliState
	if err := json.Unmarshal(data, &s); err != nil || s.LastSeen == nil {
		return cliState{LastSeen: map[string]string{}}
	}
	return s
}

func (s cliState) lastSeen(team, agent string) (time.Time, bool) {
	raw, ok := s.LastSeen[seenKey(team, agent)]
	if !ok {
		return time.Time{}, false
	}
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}

func saveCLIState(l home.Layout, s cliState) error {
	if err := os.MkdirAll(l.ConfigDir(), 0o755); err != nil {
		return err
	}
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return atomicio.WriteViaSwap(l.CLIStatePath(), data)
}

// markSeen records now as the last-seen timestamp for (team, agent).
func markSeen(l home.Layout, team, agent string, now time.Time) error {
	s := loadCLIState(l)
	s.LastSeen[seenKey(team, agent)] = now.UTC().Format(time.RFC3339)
	return saveCLIState(l, s)
}
