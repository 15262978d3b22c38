package schema

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestInboxMessage_RoundtripMinimal(t *testing.T) {
	in := []byte(`{
		"from": "team-lead",
		"text": "CI failure detected",
		"timestamp": "2026-02-11T14:30:00.000Z",
		"read": false
	}`)

	var msg InboxMessage
	if err := json.Unmarshal(in, &msg); err != nil {
		t.Fatal(err)
	}
	if msg.From != "team-lead" || msg.Text != "CI failure detected" || msg.Read {
		t.Fatalf("unexpected decode: %+v", msg)
	}
	if msg.Summary != "" || msg.MessageID != "" {
		t.Fatalf("expected empty optional fields, got %+v", msg)
	}

	out, err := json.Marshal(msg)
	if err != nil {
		t.Fatal(err)
	}
	var reparsed InboxMessage
	if err := json.Unmarshal(out, &reparsed); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(reparsed, msg) {
		t.Fatalf("roundtrip mismatch: %+v != %+v", reparsed, msg)
	}
}

func TestInboxMessage_RoundtripComplete(t *testing.T) {
	in := []byte(`{
		"from": "ci-fix-agent",
		"text": "Investigation complete. Fix implemented.",
		"timestamp": "2026-02-11T14:35:00.000Z",
		"read": true,
		"summary": "Fix implemented",
		"message_id": "msg-abc-123"
	}`)

	var msg InboxMessage
	if err := json.Unmarshal(in, &msg); err != nil {
		t.Fatal(err)
	}
	if msg.MessageID != "msg-abc-123" || msg.Summary != "Fix implemented" || !msg.Read {
		t.Fatalf("unexpected decode: %+v", msg)
	}
}

func TestInboxMessage_RoundtripWithUnknownFields(t *testing.T) {
	in := []byte(`{
		"from": "team-lead",
		"text": "Test message",
		"timestamp": "2026-02-11T14:30:00.000Z",
		"read": false,
		"unknownField": "value",
		"futureFeature": {"nested": "data"}
	}`)

	var msg InboxMessage
	if err := json.Unmarshal(in, &msg); err != nil {
		t.Fatal(err)
	}
	if len(msg.UnknownFields) != 2 {
		t.Fatalf("expected 2 unknown fields, got %d: %v", len(msg.UnknownFields), msg.UnknownFields)
	}
	if _, ok := msg.UnknownFields["unknownField"]; !ok {
		t.Error("missing unknownField")
	}
	if _, ok := msg.UnknownFields["futureFeature"]; !ok {
		t.Error("missing futureFeature")
	}

	out, err := json.Marshal(msg)
	if err != nil {
		t.Fatal(err)
	}
	var reparsed InboxMessage
	if err := json.Unmarshal(out, &reparsed); err != nil {
		t.Fatal(err)
	}
	if len(reparsed.UnknownFields) != 2 {
		t.Fatalf("unknown fields did not survive roundtrip: %v", reparsed.UnknownFields)
	}
}

func TestInboxMessage_Array(t *testing.T) {
	in := []byte(`[
		{"from": "team-lead", "text": "First", "timestamp": "2026-02-11T14:30:00.000Z", "read": false},
		{"from": "ci-fix-agent", "text": "Second", "timestamp": "2026-02-11T14:31:00.000Z", "read": true}
	]`)

	var messages []InboxMessage
	if err := json.Unmarshal(in, &messages); err != nil {
		t.Fatal(err)
	}
	if len(messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(messages))
	}
	if messages[0].From != "team-lead" || messages[1].From != "ci-fix-agent" {
		t.Fatalf("unexpected order: %+v", messages)
	}
}
