package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/agentmail/atm/internal/schema"
)

const (
	agentsBeginMarker = "<!-- BEGIN ATM INTEGRATION -->"
	agentsEndMarker   = "<!-- END ATM INTEGRATION -->"
)

const agentsSection = `<!-- BEGIN ATM INTEGRATION -->
## Team mail with atm

This project uses **atm** for asynchronous mail between agent sessions
on the same team.

**Quick reference:**
- ` + "`atm send <to> <message>`" + `   — deliver mail to name or name@team
- ` + "`atm read --timeout 30s`" + `    — wait for and read new mail
- ` + "`atm members list`" + `          — see who's on the team
- ` + "`atm status`" + `                — daemon and team overview

**Environment:** ` + "`export ATM_TEAM=<team>` and `export ATM_IDENTITY=<your-id>`" + `
<!-- END ATM INTEGRATION -->
`

func (a *app) cmdInit(args []string) int {
	flags := flag.NewFlagSet("init", flag.ContinueOnError)
	team := flags.String("team", "", "team to create or join")
	leadAgent := flags.String("lead", "", "lead agent ID for a newly created team")
	description := flags.String("description", "", "team description")
	agentsFile := flags.String("agents-md", "AGENTS.md", "path to AGENTS.md")
	skipAgents := flags.Bool("skip-agents-md", false, "don't touch AGENTS.md")
	if err := flags.Parse(args); err != nil {
		return 1
	}

	teamName, err := a.resolveTeam(*team)
	if err != nil {
		fmt.Fprintf(os.Stderr, "atm: %v\n", err)
		return 1
	}

	path := a.layout.TeamConfigPath(teamName)
	if _, err := os.Stat(path); err == nil {
		fmt.Printf("team %q already initialized (%s)\n", teamName, path)
	} else {
		if err := os.MkdirAll(a.layout.TeamDir(teamName), 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "atm: init: %v\n", err)
			return 1
		}
		cfg := schema.TeamConfig{
			Name:        teamName,
			Description: *description,
			CreatedAt:   uint64(time.Now().UnixMilli()),
			LeadAgentID: *leadAgent,
		}
		data, err := cfg.MarshalJSON()
		if err != nil {
			fmt.Fprintf(os.Stderr, "atm: init: %v\n", err)
			return 1
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "atm: init: %v\n", err)
			return 1
		}
		fmt.Printf("initialized team %q (%s)\n", teamName, path)
	}

	if err := os.MkdirAll(a.layout.InboxesDir(teamName), 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "atm: init: %v\n", err)
		return 1
	}

	if !*skipAgents {
		if err := injectAgentsSection(*agentsFile); err != nil {
			fmt.Fprintf(os.Stderr, "atm: AGENTS.md: %v\n", err)
		}
	}

	fmt.Println()
	fmt.Println("next steps:")
	fmt.Printf("  export ATM_TEAM=%s\n", teamName)
	fmt.Println("  export ATM_IDENTITY=<your-id>")
	fmt.Println("  atm members add --name <name> <your-id>")
	fmt.Println("  atm status")
	return 0
}

// injectAgentsSection creates or updates AGENTS.md with the atm section,
// using HTML markers for idempotent re-runs, the same pattern cmd/cm's
// init command uses for its own integration block.
func injectAgentsSection(path string) error {
	content, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		newContent := "# Agent Instructions\n\n" + agentsSection
		if err := os.WriteFile(path, []byte(newContent), 0o644); err != nil {
			return fmt.Errorf("create %s: %w", path, err)
		}
		fmt.Printf("  created %s with atm section\n", path)
		return nil
	} else if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	text := string(content)

	if strings.Contains(text, agentsBeginMarker) {
		start := strings.Index(text, agentsBeginMarker)
		end := strings.Index(text, agentsEndMarker)
		if start >= 0 && end >= 0 {
			endOfMarker := end + len(agentsEndMarker)
			if nl := strings.Index(text[endOfMarker:], "\n"); nl >= 0 {
				endOfMarker += nl + 1
			}
			newContent := text[:start] + agentsSection + text[endOfMarker:]
			if err := os.WriteFile(path, []byte(newContent), 0o644); err != nil {
				return fmt.Errorf("update %s: %w", path, err)
			}
			fmt.Printf("  updated atm section in %s\n", path)
			return nil
		}
	}

	newContent := text
	if !strings.HasSuffix(newContent, "\n") {
		newContent += "\n"
	}
	newContent += "\n" + agentsSection
	if err := os.WriteFile(path, []byte(newContent), 0o644); err != nil {
		return fmt.Errorf("update %s: %w", path, err)
	}
	fmt.Printf("  added atm section to %s\n", path)
	return nil
}
