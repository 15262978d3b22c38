package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/agentmail/atm/internal/inbox"
	"github.com/agentmail/atm/internal/schema"
)

func (a *app) cmdCleanup(args []string) int {
	flags := flag.NewFlagSet("cleanup", flag.ContinueOnError)
	team := flags.String("team", "", "team")
	agent := flags.String("agent", "", "single agent only (default: every member of the team)")
	maxAge := flags.Duration("max-age", 0, "discard/archive messages older than this (0 = unbounded)")
	maxCount := flags.Int("max-count", 0, "cap inbox size, trimming the oldest surplus (0 = unbounded)")
	archive := flags.Bool("archive", false, "archive removed messages instead of discarding them")
	dryRun := flags.Bool("dry-run", false, "report what would be removed without mutating anything")
	if err := flags.Parse(args); err != nil {
		return 1
	}

	teamName, err := a.resolveTeam(*team)
	if err != nil {
		fmt.Fprintf(os.Stderr, "atm: %v\n", err)
		return 1
	}

	strategy := inbox.RetentionDelete
	if *archive {
		strategy = inbox.RetentionArchive
	}
	policy := inbox.RetentionPolicy{MaxAge: *maxAge, MaxCount: *maxCount, Strategy: strategy, DryRun: *dryRun}

	agents, err := a.cleanupTargets(teamName, *agent)
	if err != nil {
		fmt.Fprintf(os.Stderr, "atm: cleanup: %v\n", err)
		return 1
	}

	var totalRemoved, totalArchived int
	for _, ag := range agents {
		result, err := inbox.ApplyRetention(a.layout, teamName, ag, policy, a.maxRetries, fmtLogger{})
		if err != nil {
			fmt.Fprintf(os.Stderr, "atm: cleanup: %s: %v\n", ag, err)
			continue
		}
		totalRemoved += result.Removed
		totalArchived += result.Archived
		if result.Removed > 0 || result.Archived > 0 {
			fmt.Printf("%s: removed=%d archived=%d\n", ag, result.Removed, result.Archived)
		}
	}
	if *dryRun {
		fmt.Printf("dry run: would remove %d, archive %d\n", totalRemoved, totalArchived)
	}
	return 0
}

func (a *app) cleanupTargets(team, agentFlag string) ([]string, error) {
	if agentFlag != "" {
		return []string{agentFlag}, nil
	}
	data, err := os.ReadFile(a.layout.TeamConfigPath(team))
	if err != nil {
		return nil, fmt.Errorf("reading team config: %w", err)
	}
	var cfg schema.TeamConfig
	if err := cfg.UnmarshalJSON(data); err != nil {
		return nil, fmt.Errorf("parsing team config: %w", err)
	}
	agents := make([]string, 0, len(cfg.Members))
	for _, m := range cfg.Members {
		agents = append(agents, m.AgentID)
	}
	return agents, nil
}
