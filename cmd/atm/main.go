// Command atm is the team mail CLI: send and read messages between
// agent sessions on a team, inspect daemon and roster state, and search
// the mail history.
package main

import (
	"fmt"
	"os"
)

// Set via -ldflags at build time.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "--help", "-h", "help":
		printUsage()
		return
	case "--version", "-v", "version":
		fmt.Printf("atm %s (commit %s, built %s)\n", version, commit, date)
		return
	}

	a, err := newApp()
	if err != nil {
		fatal("%v", err)
	}

	switch os.Args[1] {
	case "init":
		os.Exit(a.cmdInit(os.Args[2:]))
	case "send":
		os.Exit(a.cmdSend(os.Args[2:]))
	case "read":
		os.Exit(a.cmdRead(os.Args[2:]))
	case "members":
		os.Exit(a.cmdMembers(os.Args[2:]))
	case "status":
		os.Exit(a.cmdStatus(os.Args[2:]))
	case "daemon":
		os.Exit(a.cmdDaemon(os.Args[2:]))
	case "search":
		os.Exit(a.cmdSearch(os.Args[2:]))
	case "log":
		os.Exit(a.cmdLog(os.Args[2:]))
	case "cleanup":
		os.Exit(a.cmdCleanup(os.Args[2:]))

	default:
		fmt.Fprintf(os.Stderr, "atm: unknown command %q\n", os.Args[1])
		fmt.Fprintln(os.Stderr, "Run 'atm --help' for usage.")
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Print(`atm — team mail for concurrent AI agent sessions

Durable per-agent inboxes on the filesystem. No daemon required for
send/read; the daemon adds plugins, a control socket, and live MCP
proxy sessions on top of the same inbox files.

Usage:
  atm <command> [flags]

Setup:
  init [--team T] [--lead ID]     Create or join a team, inject AGENTS.md

Mail:
  send [--file] <to> <message>    Deliver mail to name or name@team
  read [--timeout DUR]            Read unread mail, optionally blocking
  search [--team] [--agent] <query>   Full-text search over mail history
  log [--across-teams]            Chronological mail history
  cleanup [--max-age] [--max-count] [--archive]   Apply retention to an inbox

Team:
  members list                    List team members
  members add --name NAME <id>    Add or update a member
  members remove <id>             Remove a member

Daemon:
  status                          Show daemon status (control socket, falls back to status.json)
  daemon stop                     Request graceful daemon shutdown

Recipients:
  "name" uses --team, else ATM_TEAM; "name@team" names the team, but an
  explicit --team overrides it.

Environment:
  ATM_HOME       root directory for all team/inbox state
  ATM_TEAM       default team
  ATM_IDENTITY   default sending/reading identity

send, read, members list, status, daemon status, search and log accept
--json for machine-readable output.

Exit codes:
  0  success
  1  error (includes "read --timeout" expiring with no new mail)
`)
}
