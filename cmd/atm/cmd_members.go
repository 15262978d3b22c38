package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/agentmail/atm/internal/daemon"
	"github.com/agentmail/atm/internal/schema"
)

func (a *app) cmdMembers(args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "usage: atm members <list|add|remove> ...")
		return 1
	}
	switch args[0] {
	case "list":
		return a.cmdMembersList(args[1:])
	case "add":
		return a.cmdMembersAdd(args[1:])
	case "remove":
		return a.cmdMembersRemove(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "atm: members: unknown subcommand %q\n", args[0])
		return 1
	}
}

func (a *app) cmdMembersList(args []string) int {
	flags := flag.NewFlagSet("members list", flag.ContinueOnError)
	team := flags.String("team", "", "team")
	jsonOut := flags.Bool("json", false, "JSON output")
	if err := flags.Parse(args); err != nil {
		return 1
	}
	teamName, err := a.resolveTeam(*team)
	if err != nil {
		fmt.Fprintf(os.Stderr, "atm: %v\n", err)
		return 1
	}

	data, err := os.ReadFile(a.layout.TeamConfigPath(teamName))
	if err != nil {
		fmt.Fprintf(os.Stderr, "atm: members: reading team config: %v\n", err)
		return 1
	}
	var cfg schema.TeamConfig
	if err := cfg.UnmarshalJSON(data); err != nil {
		fmt.Fprintf(os.Stderr, "atm: members: parsing team config: %v\n", err)
		return 1
	}

	if *jsonOut {
		printJSON(cfg.Members)
		return 0
	}
	for _, m := range cfg.Members {
		fmt.Printf("%s\t%s\t(%s)\n", m.AgentID, m.Name, m.AgentType)
	}
	return 0
}

func (a *app) cmdMembersAdd(args []string) int {
	flags := flag.NewFlagSet("members add", flag.ContinueOnError)
	team := flags.String("team", "", "team")
	name := flags.String("name", "", "display name")
	agentType := flags.String("type", "", "agent type")
	if err := flags.Parse(args); err != nil {
		return 1
	}
	if flags.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: atm members add --name NAME [--type TYPE] <agent-id>")
		return 1
	}
	teamName, err := a.resolveTeam(*team)
	if err != nil {
		fmt.Fprintf(os.Stderr, "atm: %v\n", err)
		return 1
	}

	roster := daemon.NewTeamRoster(a.layout, a.maxRetries)
	agentID := flags.Arg(0)
	if err := roster.AddMember(teamName, daemon.AgentMember{
		AgentID: agentID, Name: *name, AgentType: *agentType,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "atm: members: add: %v\n", err)
		return 1
	}
	fmt.Printf("added %s to %s\n", agentID, teamName)
	return 0
}

func (a *app) cmdMembersRemove(args []string) int {
	flags := flag.NewFlagSet("members remove", flag.ContinueOnError)
	team := flags.String("team", "", "team")
	if err := flags.Parse(args); err != nil {
		return 1
	}
	if flags.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: atm members remove <agent-id>")
		return 1
	}
	teamName, err := a.resolveTeam(*team)
	if err != nil {
		fmt.Fprintf(os.Stderr, "atm: %v\n", err)
		return 1
	}

	roster := daemon.NewTeamRoster(a.layout, a.maxRetries)
	agentID := flags.Arg(0)
	if err := roster.RemoveMember(teamName, agentID); err != nil {
		fmt.Fprintf(os.Stderr, "atm: members: remove: %v\n", err)
		return 1
	}
	fmt.Printf("removed %s from %s\n", agentID, teamName)
	return 0
}
