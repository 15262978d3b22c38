package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/agentmail/atm/internal/home"
)

// app holds shared state for all CLI subcommands, rooted in a
// home.Layout so every command resolves paths the same way.
type app struct {
	layout     home.Layout
	maxRetries int
	team       string // default team from ATM_TEAM, may be empty
	identity   string // default identity from ATM_IDENTITY, may be empty
}

func newApp() (*app, error) {
	layout, err := home.NewFromEnv()
	if err != nil {
		return nil, fmt.Errorf("resolving home directory: %w", err)
	}
	return &app{
		layout:     layout,
		maxRetries: 5,
		team:       os.Getenv("ATM_TEAM"),
		identity:   os.Getenv("ATM_IDENTITY"),
	}, nil
}

// resolveTeam returns flagVal if set, else the ATM_TEAM default, else an
// error — every command that touches an inbox needs a team.
func (a *app) resolveTeam(flagVal string) (string, error) {
	if flagVal != "" {
		return flagVal, nil
	}
	if a.team != "" {
		return a.team, nil
	}
	return "", fmt.Errorf("no team: pass --team or set ATM_TEAM")
}

// resolveIdentity returns flagVal if set, else the ATM_IDENTITY default,
// else an error.
func (a *app) resolveIdentity(flagVal string) (string, error) {
	if flagVal != "" {
		return flagVal, nil
	}
	if a.identity != "" {
		return a.identity, nil
	}
	return "", fmt.Errorf("no identity: pass --identity or set ATM_IDENTITY")
}

// resolveAddress splits a "name" or "name@team" address, falling back
// to defaultTeam when no "@team" suffix is present. --team always
// overrides the address's own team portion, even when the address
// carries one.
func resolveAddress(addr, overrideTeam, defaultTeam string) (team, agent string) {
	team, agent = defaultTeam, addr
	if i := strings.LastIndex(addr, "@"); i >= 0 {
		team, agent = addr[i+1:], addr[:i]
	}
	if overrideTeam != "" {
		team = overrideTeam
	}
	return team, agent
}

func envOr(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "atm: "+format+"\n", args...)
	os.Exit(1)
}
