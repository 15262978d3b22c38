package schema

import (
	"encoding/json"
	"testing"
)

func TestSettings_RoundtripMinimal(t *testing.T) {
	var s SettingsJson
	if err := json.Unmarshal([]byte(`{}`), &s); err != nil {
		t.Fatal(err)
	}
	if s.Schema != "" || s.Permissions != nil || len(s.Env) != 0 {
		t.Fatalf("expected zero value, got %+v", s)
	}
}

func TestSettings_RoundtripComplete(t *testing.T) {
	in := []byte(`{
		"$schema": "https://json.schemastore.org/claude-code-settings.json",
		"permissions": {
			"allow": ["Bash(npm run lint)", "Read(~/.zshrc)"],
			"deny": ["Bash(curl *)", "Read(./secrets/**)"]
		},
		"env": {
			"CLAUDE_CODE_ENABLE_TELEMETRY": "1",
			"NODE_ENV": "development"
		}
	}`)

	var s SettingsJson
	if err := json.Unmarshal(in, &s); err != nil {
		t.Fatal(err)
	}
	if s.Schema != "https://json.schemastore.org/claude-code-settings.json" {
		t.Errorf("unexpected schema: %q", s.Schema)
	}
	if s.Permissions == nil || len(s.Permissions.Allow) != 2 || len(s.Permissions.Deny) != 2 {
		t.Fatalf("unexpected permissions: %+v", s.Permissions)
	}
	if len(s.Env) != 2 || s.Env["CLAUDE_CODE_ENABLE_TELEMETRY"] != "1" {
		t.Fatalf("unexpected env: %+v", s.Env)
	}
}

func TestSettings_RoundtripWithUnknownFields(t *testing.T) {
	in := []byte(`{
		"$schema": "https://json.schemastore.org/claude-code-settings.json",
		"permissions": {"allow": ["Bash(test)"]},
		"env": {"TEST": "value"},
		"hooks": {"pre-commit": "npm test"},
		"model": "claude-opus-4-6",
		"unknownField": "value",
		"futureFeature": {"nested": "data"}
	}`)

	var s SettingsJson
	if err := json.Unmarshal(in, &s); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"hooks", "model", "unknownField", "futureFeature"} {
		if _, ok := s.UnknownFields[key]; !ok {
			t.Errorf("missing unknown field %q", key)
		}
	}

	out, err := json.Marshal(s)
	if err != nil {
		t.Fatal(err)
	}
	var reparsed SettingsJson
	if err := json.Unmarshal(out, &reparsed); err != nil {
		t.Fatal(err)
	}
	if len(reparsed.UnknownFields) != len(s.UnknownFields) {
		t.Fatalf("unknown fields did not survive roundtrip")
	}
}

func TestPermissions_RoundtripWithUnknownFields(t *testing.T) {
	in := []byte(`{
		"allow": ["Bash(npm test)"],
		"unknownField": "value",
		"futureFeature": {"nested": "data"}
	}`)

	var p Permissions
	if err := json.Unmarshal(in, &p); err != nil {
		t.Fatal(err)
	}
	if len(p.Allow) != 1 || len(p.UnknownFields) != 2 {
		t.Fatalf("unexpected decode: %+v", p)
	}
}
