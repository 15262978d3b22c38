package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/agentmail/atm/internal/inbox"
	"github.com/agentmail/atm/internal/schema"
)

// pollFallbackInterval is how often atm read --timeout re-checks the
// inbox when fsnotify can't be set up (e.g. the team's inboxes directory
// doesn't exist yet).
const pollFallbackInterval = 2 * time.Second

func (a *app) cmdRead(args []string) int {
	flags := flag.NewFlagSet("read", flag.ContinueOnError)
	identity := flags.String("identity", "", "reading agent's identity")
	team := flags.String("team", "", "team")
	markRead := flags.Bool("mark-read", true, "mark returned messages as read")
	timeout := flags.Duration("timeout", 0, "block up to this long waiting for new mail (0 = don't block)")
	jsonOut := flags.Bool("json", false, "JSON output")
	if err := flags.Parse(args); err != nil {
		return 1
	}

	agent, err := a.resolveIdentity(*identity)
	if err != nil {
		fmt.Fprintf(os.Stderr, "atm: %v\n", err)
		return 1
	}
	teamName, err := a.resolveTeam(*team)
	if err != nil {
		fmt.Fprintf(os.Stderr, "atm: %v\n", err)
		return 1
	}

	msgs, err := inbox.Unread(a.layout, teamName, agent)
	if err != nil {
		fmt.Fprintf(os.Stderr, "atm: read: %v\n", err)
		return 1
	}

	if len(msgs) == 0 && *timeout > 0 {
		msgs, err = a.waitForMail(teamName, agent, *timeout)
		if err != nil {
			fmt.Fprintf(os.Stderr, "atm: read: %v\n", err)
			return 1
		}
		if len(msgs) == 0 {
			fmt.Fprintln(os.Stderr, "atm: read: timed out waiting for new mail")
			return 1
		}
	}

	if *markRead && len(msgs) > 0 {
		if _, err := inbox.MarkRead(a.layout, teamName, agent, msgs, a.maxRetries, fmtLogger{}); err != nil {
			fmt.Fprintf(os.Stderr, "atm: read: marking read: %v\n", err)
			return 1
		}
		_ = markSeen(a.layout, teamName, agent, time.Now())
	}

	if *jsonOut {
		printJSON(map[string]interface{}{"messages": msgs, "count": len(msgs)})
		return 0
	}
	if len(msgs) == 0 {
		fmt.Println("no unread messages")
		return 0
	}
	for _, m := range msgs {
		fmt.Printf("[%s] %s: %s\n", m.Timestamp, m.From, m.Text)
	}
	return 0
}

// waitForMail blocks until a new message arrives for (team, agent) or
// timeout elapses. It watches the inbox directory with fsnotify and
// falls back to polling when the watch can't be established (directory
// missing, fsnotify unsupported).
func (a *app) waitForMail(team, agent string, timeout time.Duration) ([]schema.InboxMessage, error) {
	deadline := time.Now().Add(timeout)

	watcher, werr := fsnotify.NewWatcher()
	if werr == nil {
		defer watcher.Close()
		if addErr := watcher.Add(a.layout.InboxesDir(team)); addErr != nil {
			watcher.Close()
			watcher = nil
		}
	} else {
		watcher = nil
	}

	poll := time.NewTicker(pollFallbackInterval)
	defer poll.Stop()

	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, nil
		}

		if watcher != nil {
			select {
			case <-watcher.Events:
				if msgs, err := inboxUnreadOrEmpty(a, team, agent); err != nil {
					return nil, err
				} else if len(msgs) > 0 {
					return msgs, nil
				}
			case err := <-watcher.Errors:
				if err != nil {
					watcher.Close()
					watcher = nil
				}
			case <-time.After(min(remaining, pollFallbackInterval)):
				if msgs, err := inboxUnreadOrEmpty(a, team, agent); err != nil {
					return nil, err
				} else if len(msgs) > 0 {
					return msgs, nil
				}
			}
			continue
		}

		<-poll.C
		if msgs, err := inboxUnreadOrEmpty(a, team, agent); err != nil {
			return nil, err
		} else if len(msgs) > 0 {
			return msgs, nil
		}
	}
}

func inboxUnreadOrEmpty(a *app, team, agent string) ([]schema.InboxMessage, error) {
	return inbox.Unread(a.layout, team, agent)
}
