package proxy

import (
	"encoding/json"
	"testing"
)

func TestSyntheticToolsCoversFixedSet(t *testing.T) {
	want := []string{"atm_send", "atm_read", "atm_broadcast", "atm_pending_count", "agent_sessions", "agent_status", "agent_close"}
	tools := SyntheticTools()
	if len(tools) != len(want) {
		t.Fatalf("got %d tools, want %d", len(tools), len(want))
	}
	for i, name := range want {
		if tools[i].Name != name {
			t.Fatalf("tools[%d].Name = %q, want %q", i, tools[i].Name, name)
		}
	}
}

func TestIsSyntheticTool(t *testing.T) {
	if !IsSyntheticTool("atm_send") {
		t.Fatal("expected atm_send recognized as synthetic")
	}
	if IsSyntheticTool("session-start") {
		t.Fatal("native tool must not be recognized as synthetic")
	}
}

func TestAppendSyntheticToolsPreservesExisting(t *testing.T) {
	childResult, _ := json.Marshal(map[string]interface{}{
		"tools": []map[string]interface{}{{"name": "child_tool"}},
	})

	merged, err := AppendSyntheticTools(childResult)
	if err != nil {
		t.Fatalf("AppendSyntheticTools: %v", err)
	}

	var parsed struct {
		Tools []map[string]interface{} `json:"tools"`
	}
	if err := json.Unmarshal(merged, &parsed); err != nil {
		t.Fatalf("unmarshal merged: %v", err)
	}
	if len(parsed.Tools) != 1+len(SyntheticTools()) {
		t.Fatalf("got %d tools, want %d", len(parsed.Tools), 1+len(SyntheticTools()))
	}
	if parsed.Tools[0]["name"] != "child_tool" {
		t.Fatalf("first tool = %v, want child_tool preserved first", parsed.Tools[0])
	}
}
