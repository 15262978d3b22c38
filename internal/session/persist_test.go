package session

import (
	"testing"
	"time"

	"github.com/agentmail/atm/internal/home"
)

func TestPersist_WriteThenRead(t *testing.T) {
	l := home.New(t.TempDir())
	entries := []PersistedEntry{
		{AgentID: "arch@core", Identity: "arch", ThreadID: "t1", ProcessID: 42, LastActive: time.Unix(100, 0).UTC()},
	}
	if err := WriteEntries(l, entries); err != nil {
		t.Fatal(err)
	}

	got, err := ReadEntries(l)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].AgentID != "arch@core" || got[0].ProcessID != 42 {
		t.Fatalf("got %+v", got)
	}
}

func TestPersist_ReadMissingFileIsEmpty(t *testing.T) {
	l := home.New(t.TempDir())
	got, err := ReadEntries(l)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Fatalf("got %+v, want empty", got)
	}
}

func TestPersist_UpsertReplacesByAgentID(t *testing.T) {
	entries := []PersistedEntry{
		{AgentID: "a1", ThreadID: "t1"},
		{AgentID: "a2", ThreadID: "t2"},
	}
	out := Upsert(entries, PersistedEntry{AgentID: "a1", ThreadID: "t9"})
	if len(out) != 2 {
		t.Fatalf("len = %d, want 2", len(out))
	}
	if out[0].ThreadID != "t9" {
		t.Fatalf("out[0] = %+v, want replaced thread t9", out[0])
	}
	// The input slice must not have been mutated.
	if entries[0].ThreadID != "t1" {
		t.Fatalf("input mutated: %+v", entries[0])
	}
}

func TestPersist_UpsertAppendsNewAgent(t *testing.T) {
	out := Upsert(nil, PersistedEntry{AgentID: "a1", ThreadID: "t1"})
	if len(out) != 1 || out[0].AgentID != "a1" {
		t.Fatalf("out = %+v", out)
	}
}
