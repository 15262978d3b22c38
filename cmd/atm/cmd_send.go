package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/agentmail/atm/internal/inbox"
	"github.com/agentmail/atm/internal/schema"
)

// maxInlineFileBytes bounds how much of a referenced file's content atm
// send will inline before falling back to a file-reference line, keeping
// every message under the inbox's 1 MiB message bound even when --file points at
// something large.
const maxInlineFileBytes = 64 * 1024

func (a *app) cmdSend(args []string) int {
	flags := flag.NewFlagSet("send", flag.ContinueOnError)
	identity := flags.String("identity", "", "sender identity")
	team := flags.String("team", "", "team override for an @-qualified address")
	summary := flags.String("summary", "", "short preview (auto-generated if omitted)")
	file := flags.String("file", "", "attach a file's content, or a reference if it's outside cwd")
	jsonOut := flags.Bool("json", false, "JSON output")
	if err := flags.Parse(args); err != nil {
		return 1
	}
	if flags.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: atm send [--file PATH] [--summary TEXT] <to> [message]")
		return 1
	}

	from, err := a.resolveIdentity(*identity)
	if err != nil {
		fmt.Fprintf(os.Stderr, "atm: %v\n", err)
		return 1
	}

	to := flags.Arg(0)
	body := strings.Join(flags.Args()[1:], " ")

	if *file != "" {
		fileBlock, ferr := processFileReference(*file)
		if ferr != nil {
			fmt.Fprintf(os.Stderr, "atm: send: %v\n", ferr)
			return 1
		}
		if body != "" {
			body = body + "\n\n" + fileBlock
		} else {
			body = fileBlock
		}
	}
	if body == "" {
		fmt.Fprintln(os.Stderr, "atm: send: message body is empty")
		return 1
	}

	destTeam, agent := resolveAddress(to, *team, a.team)
	if destTeam == "" {
		fmt.Fprintln(os.Stderr, "atm: send: no team: pass --team, set ATM_TEAM, or use name@team")
		return 1
	}

	msg := schema.InboxMessage{
		From:      from,
		Text:      body,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Summary:   generateSummary(*summary, body),
		MessageID: uuid.NewString(),
	}

	outcome, err := inbox.Append(a.layout, destTeam, agent, msg, a.maxRetries, fmtLogger{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "atm: send: %v\n", err)
		return 1
	}

	if *jsonOut {
		printJSON(map[string]interface{}{
			"to": to, "team": destTeam, "agent": agent, "outcome": outcome.Kind.String(), "message_id": msg.MessageID,
		})
	} else {
		fmt.Printf("sent to %s@%s (%s)\n", agent, destTeam, outcome.Kind)
	}
	return 0
}

// processFileReference implements the --file attachment policy: a small
// file in the current working tree is inlined directly; anything
// larger, or outside the current working directory, becomes an explicit
// reference line instead of inline content, so a message never balloons
// past the inbox size bound just because of one attachment.
func processFileReference(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("reading --file %q: %w", path, err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	outsideTree := !strings.HasPrefix(abs, cwd+string(filepath.Separator)) && abs != cwd

	if outsideTree || info.Size() > maxInlineFileBytes {
		return fmt.Sprintf("[file reference: %s (%d bytes)]", abs, info.Size()), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading --file %q: %w", path, err)
	}
	return fmt.Sprintf("[file: %s]\n%s", filepath.Base(path), string(data)), nil
}

// generateSummary returns explicit if set, else derives one from the
// first ~100 characters of text broken on a word boundary.
func generateSummary(explicit, text string) string {
	if explicit != "" {
		return explicit
	}
	const maxLen = 100
	runes := []rune(strings.TrimSpace(text))
	if len(runes) <= maxLen {
		return string(runes)
	}
	cut := maxLen
	for cut > 0 && runes[cut] != ' ' {
		cut--
	}
	if cut == 0 {
		cut = maxLen
	}
	return strings.TrimSpace(string(runes[:cut])) + "…"
}

func printJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
