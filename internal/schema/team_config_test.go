package schema

import (
	"encoding/json"
	"testing"
)

func TestTeamConfig_RoundtripMinimal(t *testing.T) {
	in := []byte(`{
		"name": "test-team",
		"createdAt": 1770765919076,
		"leadAgentId": "team-lead@test-team",
		"leadSessionId": "6075f866-f103-4be1-b2e9-8dbf66009eb9",
		"members": []
	}`)

	var cfg TeamConfig
	if err := json.Unmarshal(in, &cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.Name != "test-team" || cfg.CreatedAt != 1770765919076 {
		t.Fatalf("unexpected decode: %+v", cfg)
	}
	if cfg.Description != "" {
		t.Errorf("expected empty description, got %q", cfg.Description)
	}
	if len(cfg.Members) != 0 {
		t.Errorf("expected no members, got %d", len(cfg.Members))
	}

	out, err := json.Marshal(cfg)
	if err != nil {
		t.Fatal(err)
	}
	var reparsed TeamConfig
	if err := json.Unmarshal(out, &reparsed); err != nil {
		t.Fatal(err)
	}
	if reparsed.Name != cfg.Name {
		t.Fatalf("name mismatch after roundtrip")
	}
}

func TestTeamConfig_RoundtripComplete(t *testing.T) {
	in := []byte(`{
		"name": "test-team",
		"description": "Test team for agent coordination",
		"createdAt": 1770765919076,
		"leadAgentId": "team-lead@test-team",
		"leadSessionId": "6075f866-f103-4be1-b2e9-8dbf66009eb9",
		"members": [
			{
				"agentId": "team-lead@test-team",
				"name": "team-lead",
				"agentType": "general-purpose",
				"model": "claude-haiku-4-5-20251001",
				"joinedAt": 1770765919076,
				"tmuxPaneId": "",
				"cwd": "/test",
				"subscriptions": []
			},
			{
				"agentId": "haiku-poet-1@test-team",
				"name": "haiku-poet-1",
				"agentType": "general-purpose",
				"model": "claude-opus-4-6",
				"prompt": "You are a creative haiku poet.",
				"color": "blue",
				"planModeRequired": false,
				"joinedAt": 1770772206905,
				"tmuxPaneId": "%14",
				"cwd": "/test",
				"subscriptions": [],
				"backendType": "tmux",
				"isActive": false
			}
		]
	}`)

	var cfg TeamConfig
	if err := json.Unmarshal(in, &cfg); err != nil {
		t.Fatal(err)
	}
	if len(cfg.Members) != 2 {
		t.Fatalf("expected 2 members, got %d", len(cfg.Members))
	}
	if cfg.Members[1].Color != "blue" {
		t.Errorf("expected color blue, got %q", cfg.Members[1].Color)
	}

	out, err := json.Marshal(cfg)
	if err != nil {
		t.Fatal(err)
	}
	var reparsed TeamConfig
	if err := json.Unmarshal(out, &reparsed); err != nil {
		t.Fatal(err)
	}
	if len(reparsed.Members) != len(cfg.Members) {
		t.Fatalf("member count mismatch after roundtrip")
	}
}

func TestTeamConfig_RoundtripWithUnknownFields(t *testing.T) {
	in := []byte(`{
		"name": "test-team",
		"createdAt": 1770765919076,
		"leadAgentId": "team-lead@test-team",
		"leadSessionId": "6075f866-f103-4be1-b2e9-8dbf66009eb9",
		"members": [],
		"unknownField": "value",
		"futureFeature": {"nested": "data"}
	}`)

	var cfg TeamConfig
	if err := json.Unmarshal(in, &cfg); err != nil {
		t.Fatal(err)
	}
	if len(cfg.UnknownFields) != 2 {
		t.Fatalf("expected 2 unknown fields, got %d", len(cfg.UnknownFields))
	}

	out, err := json.Marshal(cfg)
	if err != nil {
		t.Fatal(err)
	}
	var reparsed TeamConfig
	if err := json.Unmarshal(out, &reparsed); err != nil {
		t.Fatal(err)
	}
	if len(reparsed.UnknownFields) != 2 {
		t.Fatalf("unknown fields did not survive roundtrip")
	}
}

func TestTeamConfig_Member(t *testing.T) {
	cfg := TeamConfig{
		Members: []AgentMember{
			{Name: "team-lead", AgentID: "team-lead@t"},
			{Name: "bob", AgentID: "bob@t"},
		},
	}

	m, ok := cfg.Member("bob")
	if !ok || m.AgentID != "bob@t" {
		t.Fatalf("expected to find bob, got %+v ok=%v", m, ok)
	}

	_, ok = cfg.Member("nobody")
	if ok {
		t.Fatal("expected not found for nobody")
	}
}
