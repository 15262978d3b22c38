// Command atm-daemon is the long-running supervisor process: it drains
// the spool, watches inboxes for plugin file-event dispatch, writes
// status.json on an interval, and serves the control socket. It holds
// no application state of its own beyond what internal/daemon already
// owns; main here only wires flags, logging, and signal handling.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/agentmail/atm/internal/daemon"
	"github.com/agentmail/atm/internal/home"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if len(os.Args) > 1 && (os.Args[1] == "--version" || os.Args[1] == "-version") {
		fmt.Printf("atm-daemon %s (commit %s, built %s)\n", version, commit, date)
		return
	}

	flags := flag.NewFlagSet("atm-daemon", flag.ContinueOnError)
	maxRetries := flags.Int("max-retries", 5, "max retries for lock acquisition and atomic writes")
	team := flags.String("team", envOr("ATM_TEAM", ""), "default team for environment facts reported to plugins")
	verbose := flags.Bool("verbose", false, "enable debug-level logging")
	if err := flags.Parse(os.Args[1:]); err != nil {
		os.Exit(2)
	}

	log, err := newLogger(*verbose)
	if err != nil {
		fatal("building logger: %v", err)
	}
	defer log.Sync()

	layout, err := home.NewFromEnv()
	if err != nil {
		fatal("resolving home directory: %v", err)
	}

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	registry := daemon.NewRegistry()
	roster := daemon.NewTeamRoster(layout, *maxRetries)

	loop := &daemon.EventLoop{
		Layout:     layout,
		Registry:   registry,
		Roster:     roster,
		Env: daemon.Environment{
			Hostname: hostname,
			Platform: "go",
			Version:  version,
			Team:     *team,
		},
		MaxRetries: *maxRetries,
		Version:    version,
		Cancel:     cancel,
		Log:        log,
	}

	log.Info("atm-daemon starting",
		zap.String("version", version),
		zap.String("home", layout.Home()),
	)

	report, err := loop.Run(ctx)
	if err != nil {
		fatal("event loop: %v", err)
	}

	log.Info("atm-daemon stopped",
		zap.Int("plugins_shutdown_ok", report.Success),
		zap.Int("plugins_shutdown_timeout", report.Timeout),
		zap.Int("plugins_shutdown_error", report.Error),
	)
}

func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	return cfg.Build()
}

func envOr(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "atm-daemon: "+format+"\n", args...)
	os.Exit(1)
}
