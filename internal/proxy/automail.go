package proxy

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/agentmail/atm/internal/schema"
)

// AutoMailConfig bounds how much unread mail one injection prompt carries.
type AutoMailConfig struct {
	Interval         time.Duration
	MaxMessages      int
	MaxMessageLength int // Unicode scalar values, not bytes
}

// DefaultAutoMailConfig is the tick rate and truncation bounds used
// when the caller doesn't override them.
func DefaultAutoMailConfig() AutoMailConfig {
	return AutoMailConfig{Interval: 5 * time.Second, MaxMessages: 5, MaxMessageLength: 500}
}

// MailReader is the subset of the inbox engine auto-mail needs: read (and
// typically mark-read) the unread messages for one identity.
type MailReader interface {
	Unread(team, identity string) ([]schema.InboxMessage, error)
}

// truncateRunes truncates s to at most n Unicode scalar values; bounds
// are counted in runes, not bytes, so multi-byte text isn't cut short.
func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "…"
}

// FormatAutoMailPrompt renders the first cfg.MaxMessages of messages as
// a single prompt body, truncating each message's text to
// cfg.MaxMessageLength.
func FormatAutoMailPrompt(messages []schema.InboxMessage, cfg AutoMailConfig) string {
	limit := messages
	if cfg.MaxMessages > 0 && len(limit) > cfg.MaxMessages {
		limit = limit[:cfg.MaxMessages]
	}

	var b strings.Builder
	b.WriteString("You have new team-mail:\n\n")
	for _, m := range limit {
		text := m.Text
		if cfg.MaxMessageLength > 0 {
			text = truncateRunes(text, cfg.MaxMessageLength)
		}
		fmt.Fprintf(&b, "From %s at %s:\n%s\n\n", m.From, m.Timestamp, text)
	}
	return strings.TrimRight(b.String(), "\n")
}

// Logger receives non-fatal auto-mail diagnostics.
type Logger interface {
	Warnf(format string, args ...interface{})
}

// RunAutoMail ticks on cfg.Interval, reading unread mail for (team,
// identity) via reader and enqueueing it onto queue as an
// AutoMailInject. A tick is a no-op while the thread's auto-mail
// toggle is off; a lock-timeout or other read error just skips that
// tick — the mail is still on disk and will be seen next tick. It
// returns when ctx is cancelled.
func RunAutoMail(ctx context.Context, cfg AutoMailConfig, reader MailReader, team, identity string, queue *ThreadQueue, log Logger) {
	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			tickAutoMail(cfg, reader, team, identity, queue, log)
		}
	}
}

func tickAutoMail(cfg AutoMailConfig, reader MailReader, team, identity string, queue *ThreadQueue, log Logger) {
	if !queue.AutoMailEnabled() {
		return
	}
	messages, err := reader.Unread(team, identity)
	if err != nil {
		log.Warnf("automail: skipping tick for %s/%s: %v", team, identity, err)
		return
	}
	if len(messages) == 0 {
		return
	}
	prompt := FormatAutoMailPrompt(messages, cfg)
	queue.PushAutoMail(prompt)
}
