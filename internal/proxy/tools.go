package proxy

import (
	"encoding/json"
	"fmt"
)

// ToolSchema is one entry in a tools/list response, MCP's JSON-Schema
// shaped tool advertisement.
type ToolSchema struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func stringProp(description string) map[string]interface{} {
	return map[string]interface{}{"type": "string", "description": description}
}

func intProp(description string) map[string]interface{} {
	return map[string]interface{}{"type": "integer", "description": description}
}

// SyntheticTools returns the seven fixed team-mail tools the proxy
// advertises alongside whatever the child's own tools/list reports.
// The proxy only advertises and routes these; their behavior is
// implemented by the surrounding daemon/inbox layer.
func SyntheticTools() []ToolSchema {
	return []ToolSchema{
		{
			Name:        "atm_send",
			Description: "Send a team-mail message to one agent.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"to":      stringProp("recipient, as name or name@team"),
					"text":    stringProp("message body"),
					"summary": stringProp("optional short preview"),
				},
				"required": []string{"to", "text"},
			},
		},
		{
			Name:        "atm_read",
			Description: "Read unread (or all) messages from the caller's inbox.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"unread_only": map[string]interface{}{"type": "boolean", "description": "only return unread messages"},
					"limit":       intProp("maximum messages to return"),
				},
			},
		},
		{
			Name:        "atm_broadcast",
			Description: "Send a team-mail message to every member of the caller's team.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"text":    stringProp("message body"),
					"summary": stringProp("optional short preview"),
				},
				"required": []string{"text"},
			},
		},
		{
			Name:        "atm_pending_count",
			Description: "Count unread messages waiting in the caller's inbox.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
		{
			Name:        "agent_sessions",
			Description: "List currently tracked agent sessions and their liveness.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
		{
			Name:        "agent_status",
			Description: "Report this proxy's current thread and queue state.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
		{
			Name:        "agent_close",
			Description: "Request a graceful close of the caller's current thread.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"summarize": map[string]interface{}{"type": "boolean", "description": "persist a summary before closing"},
				},
			},
		},
	}
}

// IsSyntheticTool reports whether name is one of the proxy's own tools
// rather than one the child advertised.
func IsSyntheticTool(name string) bool {
	for _, t := range SyntheticTools() {
		if t.Name == name {
			return true
		}
	}
	return false
}

// toolsListResult mirrors the shape of a tools/list response's result.
type toolsListResult struct {
	Tools []json.RawMessage `json:"tools"`
}

// AppendSyntheticTools parses a child's tools/list result, appends the
// synthetic tool schemas, and returns the re-serialized result.
func AppendSyntheticTools(result json.RawMessage) (json.RawMessage, error) {
	var parsed toolsListResult
	if err := json.Unmarshal(result, &parsed); err != nil {
		return nil, fmt.Errorf("parsing tools/list result: %w", err)
	}

	for _, t := range SyntheticTools() {
		raw, err := json.Marshal(t)
		if err != nil {
			return nil, err
		}
		parsed.Tools = append(parsed.Tools, raw)
	}

	return json.Marshal(parsed)
}
