package proxy

import (
	"strings"
	"testing"
	"time"

	"github.com/agentmail/atm/internal/schema"
)

func TestTruncateRunesCountsScalarValuesNotBytes(t *testing.T) {
	// "héllo" has 5 runes but 6 bytes (é is 2 bytes in UTF-8).
	s := "héllo world"
	got := truncateRunes(s, 5)
	want := "héllo…"
	if got != want {
		t.Fatalf("truncateRunes = %q, want %q", got, want)
	}
}

func TestTruncateRunesNoopWhenShortEnough(t *testing.T) {
	s := "short"
	if got := truncateRunes(s, 100); got != s {
		t.Fatalf("truncateRunes = %q, want unchanged %q", got, s)
	}
}

func TestFormatAutoMailPromptLimitsMessageCount(t *testing.T) {
	msgs := []schema.InboxMessage{
		{From: "a", Text: "one"},
		{From: "b", Text: "two"},
		{From: "c", Text: "three"},
	}
	cfg := AutoMailConfig{MaxMessages: 2, MaxMessageLength: 100}
	prompt := FormatAutoMailPrompt(msgs, cfg)
	if strings.Contains(prompt, "three") {
		t.Fatalf("prompt should not include the third message: %q", prompt)
	}
	if !strings.Contains(prompt, "one") || !strings.Contains(prompt, "two") {
		t.Fatalf("prompt missing expected messages: %q", prompt)
	}
}

func TestFormatAutoMailPromptTruncatesLongMessages(t *testing.T) {
	msgs := []schema.InboxMessage{{From: "a", Text: strings.Repeat("x", 1000)}}
	cfg := AutoMailConfig{MaxMessages: 5, MaxMessageLength: 10}
	prompt := FormatAutoMailPrompt(msgs, cfg)
	if strings.Contains(prompt, strings.Repeat("x", 11)) {
		t.Fatalf("prompt was not truncated: %q", prompt)
	}
	if !strings.Contains(prompt, "…") {
		t.Fatalf("prompt missing truncation marker: %q", prompt)
	}
}

type fakeMailReader struct {
	messages []schema.InboxMessage
	err      error
	calls    int
}

func (f *fakeMailReader) Unread(team, identity string) ([]schema.InboxMessage, error) {
	f.calls++
	return f.messages, f.err
}

type fakeAutoMailLogger struct{ warnings []string }

func (f *fakeAutoMailLogger) Warnf(format string, args ...interface{}) {
	f.warnings = append(f.warnings, format)
}

func TestTickAutoMailSkipsOnReadError(t *testing.T) {
	reader := &fakeMailReader{err: errBoom}
	log := &fakeAutoMailLogger{}
	q := NewThreadQueue()
	tickAutoMail(DefaultAutoMailConfig(), reader, "core", "alice", q, log)
	if q.Len() != 0 {
		t.Fatalf("queue should stay empty on read error, got len %d", q.Len())
	}
	if len(log.warnings) != 1 {
		t.Fatalf("expected one warning logged, got %d", len(log.warnings))
	}
}

func TestTickAutoMailEnqueuesWhenMailPresent(t *testing.T) {
	reader := &fakeMailReader{messages: []schema.InboxMessage{{From: "bob", Text: "hi", Timestamp: time.Now().Format(time.RFC3339)}}}
	log := &fakeAutoMailLogger{}
	q := NewThreadQueue()
	tickAutoMail(DefaultAutoMailConfig(), reader, "core", "alice", q, log)
	if q.Len() != 1 {
		t.Fatalf("expected one queued command, got %d", q.Len())
	}
}

func TestTickAutoMailSkipsEntirelyWhenToggledOff(t *testing.T) {
	reader := &fakeMailReader{messages: []schema.InboxMessage{{From: "bob", Text: "hi", Timestamp: time.Now().Format(time.RFC3339)}}}
	log := &fakeAutoMailLogger{}
	q := NewThreadQueue()
	q.SetAutoMailEnabled(false)

	tickAutoMail(DefaultAutoMailConfig(), reader, "core", "alice", q, log)

	if reader.calls != 0 {
		t.Fatalf("expected no inbox read while toggled off, got %d", reader.calls)
	}
	if q.Len() != 0 {
		t.Fatalf("expected no queued command, got %d", q.Len())
	}
}

func TestTickAutoMailNoopWhenNoUnread(t *testing.T) {
	reader := &fakeMailReader{}
	log := &fakeAutoMailLogger{}
	q := NewThreadQueue()
	tickAutoMail(DefaultAutoMailConfig(), reader, "core", "alice", q, log)
	if q.Len() != 0 {
		t.Fatalf("expected no queued command, got %d", q.Len())
	}
}

type boomErr struct{}

func (boomErr) Error() string { return "boom" }

var errBoom = boomErr{}
