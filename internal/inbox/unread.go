package inbox

import (
	"github.com/agentmail/atm/internal/home"
	"github.com/agentmail/atm/internal/schema"
)

// Unread returns every message in agent's inbox with Read == false,
// in on-disk order (oldest first, per append order). It does not
// mutate the inbox; callers that want read-marking after delivery
// call MarkRead separately once they know delivery succeeded.
func Unread(l home.Layout, team, agent string) ([]schema.InboxMessage, error) {
	path := l.InboxPath(team, agent)
	data, err := readInboxBytesOrEmpty(path)
	if err != nil {
		return nil, err
	}
	messages := parseMessagesLenient(data, path, nopLogger{})

	var unread []schema.InboxMessage
	for _, m := range messages {
		if !m.Read {
			unread = append(unread, m)
		}
	}
	return unread, nil
}

// messageKey identifies a message for read-marking when MessageID is
// empty, falling back to the (From, Timestamp, Text) tuple — the same
// identity rule the merge loop uses for deduplication.
func messageKey(m schema.InboxMessage) string {
	if m.MessageID != "" {
		return "id:" + m.MessageID
	}
	return "tuple:" + m.From + "\x00" + m.Timestamp + "\x00" + m.Text
}

// MarkRead flips Read to true for every message in messages, matched
// by MessageID where present and by the (From, Timestamp, Text) tuple
// otherwise, then commits the mutation through the same lock-mutate-
// swap path every other inbox write uses.
func MarkRead(l home.Layout, team, agent string, messages []schema.InboxMessage, maxRetries int, log Logger) (WriteOutcome, error) {
	targets := make(map[string]bool, len(messages))
	for _, m := range messages {
		targets[messageKey(m)] = true
	}

	return Update(l, team, agent, maxRetries, log, func(current []schema.InboxMessage) []schema.InboxMessage {
		for i := range current {
			if targets[messageKey(current[i])] {
				current[i].Read = true
			}
		}
		return current
	})
}
