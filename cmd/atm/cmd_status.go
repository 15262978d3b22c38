package main

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/agentmail/atm/internal/daemon"
	"github.com/agentmail/atm/internal/progress"
)

const controlDialTimeout = 2 * time.Second

func (a *app) cmdStatus(args []string) int {
	flags := flag.NewFlagSet("status", flag.ContinueOnError)
	jsonOut := flags.Bool("json", false, "JSON output")
	if err := flags.Parse(args); err != nil {
		return 1
	}

	resp, err := daemon.DialControl(a.layout, daemon.ControlRequest{Command: "status"}, controlDialTimeout)
	if err == nil && resp.OK && resp.Status != nil {
		return printStatus(*resp.Status, *jsonOut, false)
	}

	status, err := daemon.ReadStatus(a.layout)
	if err != nil {
		fmt.Fprintln(os.Stderr, "atm: status: daemon not running")
		return 1
	}
	return printStatus(status, *jsonOut, daemon.IsStale(status, daemon.StatusWritePeriod))
}

func printStatus(status daemon.Status, jsonOut, stale bool) int {
	behind := behindTasks(status)
	if jsonOut {
		printJSON(map[string]interface{}{
			"pid": status.PID, "version": status.Version, "uptime_secs": status.UptimeSecs,
			"plugins": status.Plugins, "teams": status.Teams, "stale": stale,
			"behind": behind,
		})
		return 0
	}
	staleTag := ""
	if stale {
		staleTag = " (stale)"
	}
	fmt.Printf("daemon pid=%d version=%s uptime=%ds%s\n", status.PID, status.Version, status.UptimeSecs, staleTag)
	for name, state := range status.Plugins {
		fmt.Printf("  plugin %s: %s\n", name, state)
	}
	for _, t := range status.Teams {
		fmt.Printf("  team %s\n", t)
	}
	if len(behind) > 0 {
		fmt.Printf("  behind: %s\n", strings.Join(behind, ", "))
	}
	return 0
}

// behindTasks reconstructs the daemon's housekeeping pointstamps from
// the status snapshot and reports which tasks some sibling has ticked
// strictly past.
func behindTasks(status daemon.Status) []string {
	if len(status.Checkpoints) == 0 {
		return nil
	}
	active := make([]progress.Pointstamp, 0, len(status.Checkpoints))
	for task, tick := range status.Checkpoints {
		active = append(active, progress.Pointstamp{
			TaskName:   task,
			Generation: status.CheckpointGeneration,
			Tick:       tick,
		})
	}
	behind := progress.LaggingTasks(active)
	sort.Strings(behind)
	return behind
}

func (a *app) cmdDaemon(args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "usage: atm daemon <status|stop>")
		return 1
	}
	switch args[0] {
	case "status":
		return a.cmdStatus(args[1:])
	case "stop":
		return a.cmdDaemonStop(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "atm: daemon: unknown subcommand %q\n", args[0])
		return 1
	}
}

func (a *app) cmdDaemonStop(args []string) int {
	resp, err := daemon.DialControl(a.layout, daemon.ControlRequest{Command: "shutdown"}, controlDialTimeout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "atm: daemon: stop: %v\n", err)
		return 1
	}
	if !resp.OK {
		fmt.Fprintf(os.Stderr, "atm: daemon: stop: %s\n", resp.Error)
		return 1
	}
	fmt.Println("daemon shutting down")
	return 0
}
