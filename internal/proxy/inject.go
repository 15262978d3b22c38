package proxy

import (
	"encoding/json"
	"fmt"
	"strings"
)

// SessionContext is the per-turn identity/environment block injected into
// every session-start or session-reply tool call.
type SessionContext struct {
	Identity string
	Team     string
	RepoName *string
	RepoRoot *string
	Branch   *string
	CWD      string
}

// nullable renders a possibly-nil string field, with nil rendering as
// the literal string "null" — downstream tooling expects the word, not
// an empty slot.
func nullable(v *string) string {
	if v == nil {
		return "null"
	}
	return *v
}

// Render produces the exact five-line <session-context> block in the
// fixed Identity/Team/Repo/Branch/CWD order. Downstream tooling parses
// the block line by line, so the layout is load-bearing.
func (s SessionContext) Render() string {
	var b strings.Builder
	b.WriteString("<session-context>\n")
	fmt.Fprintf(&b, "Identity:  %s\n", s.Identity)
	fmt.Fprintf(&b, "Team:      %s\n", s.Team)
	fmt.Fprintf(&b, "Repo:      %s (%s)\n", nullable(s.RepoName), nullable(s.RepoRoot))
	fmt.Fprintf(&b, "Branch:    %s\n", nullable(s.Branch))
	fmt.Fprintf(&b, "CWD:       %s\n", s.CWD)
	b.WriteString("</session-context>")
	return b.String()
}

// FormatResumeBlock wraps a prior session's summary in resume
// delimiters, prepended ahead of the session-context block on the
// first turn after a resume.
func FormatResumeBlock(identity, timestamp, summary string) string {
	return fmt.Sprintf("[Previous session — %s on %s]\n%s\n[End of previous session]", identity, timestamp, summary)
}

// sessionToolNames are the native tool names that receive session-context
// injection: session-start and session-reply.
var sessionToolNames = map[string]bool{
	"session-start": true,
	"session-reply": true,
}

// IsSessionTool reports whether name is a native tool the proxy injects
// context into.
func IsSessionTool(name string) bool {
	return sessionToolNames[name]
}

// toolCallParams mirrors the shape of a tools/call request's params: a
// tool name plus a loosely-typed arguments bag.
type toolCallParams struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}

// InjectDeveloperInstructions parses a tools/call params blob, appends (or
// sets) blocks into arguments["developer-instructions"] joined by "\n",
// and returns the re-serialized params. base-instructions is never
// touched. Blocks are applied in order, each as its own "\n"-separated
// segment; pass the resume block (if any) before the session-context
// block so it ends up first.
func InjectDeveloperInstructions(params json.RawMessage, blocks ...string) (json.RawMessage, error) {
	var call toolCallParams
	if err := json.Unmarshal(params, &call); err != nil {
		return nil, fmt.Errorf("parsing tools/call params: %w", err)
	}
	if call.Arguments == nil {
		call.Arguments = make(map[string]interface{})
	}

	existing, _ := call.Arguments["developer-instructions"].(string)
	segments := make([]string, 0, len(blocks)+1)
	if existing != "" {
		segments = append(segments, existing)
	}
	segments = append(segments, blocks...)
	call.Arguments["developer-instructions"] = strings.Join(segments, "\n")

	return json.Marshal(call)
}

// ToolCallName extracts the "name" field from a tools/call params blob
// without fully decoding arguments, used to decide whether this call
// needs session-context injection or is a synthetic atm_* tool.
func ToolCallName(params json.RawMessage) (string, error) {
	var head struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(params, &head); err != nil {
		return "", err
	}
	return head.Name, nil
}
