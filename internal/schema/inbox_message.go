package schema

import "encoding/json"

// InboxMessage is one entry in an agent's inbox file
// (teams_root/<team>/inboxes/<agent>.json, stored as a JSON array).
type InboxMessage struct {
	From      string
	Text      string
	Timestamp string // ISO 8601 UTC
	Read      bool
	Summary   string // brief, 5-10 words; empty if unset
	MessageID string // dedup key for atm-originated messages; empty if unset

	// UnknownFields preserves any JSON object keys this version of atm
	// doesn't recognize, so round-tripping a message never drops data a
	// newer writer (or Claude Code itself) put there.
	UnknownFields map[string]json.RawMessage
}

var inboxMessageKnownKeys = []string{"from", "text", "timestamp", "read", "summary", "message_id"}

type inboxMessageAlias struct {
	From      string `json:"from"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
	Read      bool   `json:"read"`
	Summary   string `json:"summary,omitempty"`
	MessageID string `json:"message_id,omitempty"`
}

func (m InboxMessage) MarshalJSON() ([]byte, error) {
	alias := inboxMessageAlias{
		From:      m.From,
		Text:      m.Text,
		Timestamp: m.Timestamp,
		Read:      m.Read,
		Summary:   m.Summary,
		MessageID: m.MessageID,
	}
	return mergeUnknown(alias, m.UnknownFields)
}

func (m *InboxMessage) UnmarshalJSON(data []byte) error {
	var alias inboxMessageAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}
	unknown, err := splitKnown(data, inboxMessageKnownKeys)
	if err != nil {
		return err
	}

	m.From = alias.From
	m.Text = alias.Text
	m.Timestamp = alias.Timestamp
	m.Read = alias.Read
	m.Summary = alias.Summary
	m.MessageID = alias.MessageID
	m.UnknownFields = unknown
	return nil
}
