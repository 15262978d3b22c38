package proxy

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestSessionContextRenderOrderAndNullable(t *testing.T) {
	ctx := SessionContext{
		Identity: "alice",
		Team:     "core",
		CWD:      "/work/core",
	}
	got := ctx.Render()
	want := "<session-context>\n" +
		"Identity:  alice\n" +
		"Team:      core\n" +
		"Repo:      null (null)\n" +
		"Branch:    null\n" +
		"CWD:       /work/core\n" +
		"</session-context>"
	if got != want {
		t.Fatalf("Render() =\n%s\nwant\n%s", got, want)
	}
}

func TestSessionContextRenderWithRepoAndBranch(t *testing.T) {
	repoName, repoRoot, branch := "atm", "/work/atm", "main"
	ctx := SessionContext{
		Identity: "bob",
		Team:     "infra",
		RepoName: &repoName,
		RepoRoot: &repoRoot,
		Branch:   &branch,
		CWD:      "/work/atm",
	}
	got := ctx.Render()
	if !strings.Contains(got, "Repo:      atm (/work/atm)") {
		t.Fatalf("Render() missing repo line:\n%s", got)
	}
	if !strings.Contains(got, "Branch:    main") {
		t.Fatalf("Render() missing branch line:\n%s", got)
	}
}

func TestFormatResumeBlock(t *testing.T) {
	block := FormatResumeBlock("alice", "2026-07-30T00:00:00Z", "did the thing")
	if !strings.HasPrefix(block, "[Previous session — alice on 2026-07-30T00:00:00Z]\n") {
		t.Fatalf("block = %q", block)
	}
	if !strings.HasSuffix(block, "\n[End of previous session]") {
		t.Fatalf("block = %q", block)
	}
	if !strings.Contains(block, "did the thing") {
		t.Fatalf("block missing summary: %q", block)
	}
}

func TestIsSessionTool(t *testing.T) {
	if !IsSessionTool("session-start") || !IsSessionTool("session-reply") {
		t.Fatal("expected both native session tools recognized")
	}
	if IsSessionTool("atm_send") {
		t.Fatal("synthetic tool must not be treated as a session tool")
	}
}

func TestInjectDeveloperInstructionsSetsWhenAbsent(t *testing.T) {
	params, _ := json.Marshal(toolCallParams{Name: "session-start", Arguments: map[string]interface{}{"base-instructions": "base"}})
	out, err := InjectDeveloperInstructions(params, "<session-context>\nIdentity:  a\n</session-context>")
	if err != nil {
		t.Fatalf("InjectDeveloperInstructions: %v", err)
	}

	var call toolCallParams
	if err := json.Unmarshal(out, &call); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	if call.Arguments["base-instructions"] != "base" {
		t.Fatal("base-instructions must be untouched")
	}
	di, _ := call.Arguments["developer-instructions"].(string)
	if !strings.Contains(di, "Identity:  a") {
		t.Fatalf("developer-instructions = %q", di)
	}
}

func TestInjectDeveloperInstructionsAppendsWhenPresent(t *testing.T) {
	params, _ := json.Marshal(toolCallParams{Name: "session-reply", Arguments: map[string]interface{}{"developer-instructions": "prior"}})
	out, err := InjectDeveloperInstructions(params, "resume-block", "session-context-block")
	if err != nil {
		t.Fatalf("InjectDeveloperInstructions: %v", err)
	}

	var call toolCallParams
	if err := json.Unmarshal(out, &call); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	di := call.Arguments["developer-instructions"].(string)
	want := "prior\nresume-block\nsession-context-block"
	if di != want {
		t.Fatalf("developer-instructions = %q, want %q", di, want)
	}
}

func TestToolCallName(t *testing.T) {
	params, _ := json.Marshal(toolCallParams{Name: "atm_send"})
	name, err := ToolCallName(params)
	if err != nil {
		t.Fatalf("ToolCallName: %v", err)
	}
	if name != "atm_send" {
		t.Fatalf("name = %q", name)
	}
}
