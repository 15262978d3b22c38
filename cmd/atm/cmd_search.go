package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/agentmail/atm/internal/searchindex"
)

func (a *app) openSearchIndex(rebuild bool) (*searchindex.Index, error) {
	idx, err := searchindex.Open(a.layout.SearchIndexPath())
	if err != nil {
		return nil, fmt.Errorf("opening search index: %w", err)
	}
	if rebuild {
		if err := searchindex.Rebuild(idx, a.layout); err != nil {
			idx.Close()
			return nil, fmt.Errorf("rebuilding search index: %w", err)
		}
	}
	return idx, nil
}

func (a *app) cmdSearch(args []string) int {
	flags := flag.NewFlagSet("search", flag.ContinueOnError)
	team := flags.String("team", "", "restrict to one team")
	agent := flags.String("agent", "", "restrict to one agent's inbox")
	limit := flags.Int("limit", 0, "max results")
	rebuild := flags.Bool("rebuild", false, "rebuild the search index from inbox files before querying")
	jsonOut := flags.Bool("json", false, "JSON output")
	if err := flags.Parse(args); err != nil {
		return 1
	}
	if flags.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: atm search [--team T] [--agent A] [--rebuild] <query>")
		return 1
	}

	idx, err := a.openSearchIndex(*rebuild)
	if err != nil {
		fmt.Fprintf(os.Stderr, "atm: search: %v\n", err)
		return 1
	}
	defer idx.Close()

	results, err := searchindex.Search(idx, searchindex.SearchQuery{
		Text: flags.Arg(0), Team: *team, Agent: *agent, Limit: *limit,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "atm: search: %v\n", err)
		return 1
	}
	return printResults(results, *jsonOut)
}

func (a *app) cmdLog(args []string) int {
	flags := flag.NewFlagSet("log", flag.ContinueOnError)
	team := flags.String("team", "", "restrict to one team")
	agent := flags.String("agent", "", "restrict to one agent's inbox")
	across := flags.Bool("across-teams", false, "show messages across every team")
	limit := flags.Int("limit", 0, "max results")
	rebuild := flags.Bool("rebuild", false, "rebuild the search index from inbox files first")
	jsonOut := flags.Bool("json", false, "JSON output")
	if err := flags.Parse(args); err != nil {
		return 1
	}

	teamName := *team
	if !*across {
		if resolved, err := a.resolveTeam(*team); err == nil {
			teamName = resolved
		}
	}

	idx, err := a.openSearchIndex(*rebuild)
	if err != nil {
		fmt.Fprintf(os.Stderr, "atm: log: %v\n", err)
		return 1
	}
	defer idx.Close()

	results, err := searchindex.Log(idx, searchindex.LogQuery{
		Team: teamName, Agent: *agent, AcrossTeams: *across, Limit: *limit,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "atm: log: %v\n", err)
		return 1
	}
	return printResults(results, *jsonOut)
}

func printResults(results []searchindex.Result, jsonOut bool) int {
	if jsonOut {
		printJSON(results)
		return 0
	}
	if len(results) == 0 {
		fmt.Println("no matching messages")
		return 0
	}
	for _, r := range results {
		fmt.Printf("[%s] %s@%s from %s: %s\n", r.Timestamp, r.Agent, r.Team, r.From, r.Summary)
	}
	return 0
}
