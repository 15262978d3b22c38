package schema

import "encoding/json"

// AgentMember is one entry in a TeamConfig's member list.
type AgentMember struct {
	AgentID          string // "<name>@<team>"
	Name             string
	AgentType        string // e.g. "general-purpose", "Explore", "Plan"
	Model            string
	Prompt           string // specialization prompt; empty for team-lead
	Color            string // UI color code; empty if unset
	PlanModeRequired *bool
	JoinedAt         uint64 // unix ms
	TmuxPaneID       string
	CWD              string
	Subscriptions    []json.RawMessage
	BackendType      string // e.g. "tmux"; empty if not running
	IsActive         *bool
	LastActive       *uint64 // unix ms of last send/read

	UnknownFields map[string]json.RawMessage
}

var agentMemberKnownKeys = []string{
	"agentId", "name", "agentType", "model", "prompt", "color",
	"planModeRequired", "joinedAt", "tmuxPaneId", "cwd", "subscriptions",
	"backendType", "isActive", "lastActive",
}

type agentMemberAlias struct {
	AgentID          string             `json:"agentId"`
	Name             string             `json:"name"`
	AgentType        string             `json:"agentType"`
	Model            string             `json:"model"`
	Prompt           string             `json:"prompt,omitempty"`
	Color            string             `json:"color,omitempty"`
	PlanModeRequired *bool              `json:"planModeRequired,omitempty"`
	JoinedAt         uint64             `json:"joinedAt"`
	TmuxPaneID       string             `json:"tmuxPaneId,omitempty"`
	CWD              string             `json:"cwd"`
	Subscriptions    []json.RawMessage  `json:"subscriptions,omitempty"`
	BackendType      string             `json:"backendType,omitempty"`
	IsActive         *bool              `json:"isActive,omitempty"`
	LastActive       *uint64            `json:"lastActive,omitempty"`
}

func (m AgentMember) MarshalJSON() ([]byte, error) {
	alias := agentMemberAlias{
		AgentID:          m.AgentID,
		Name:             m.Name,
		AgentType:        m.AgentType,
		Model:            m.Model,
		Prompt:           m.Prompt,
		Color:            m.Color,
		PlanModeRequired: m.PlanModeRequired,
		JoinedAt:         m.JoinedAt,
		TmuxPaneID:       m.TmuxPaneID,
		CWD:              m.CWD,
		Subscriptions:    m.Subscriptions,
		BackendType:      m.BackendType,
		IsActive:         m.IsActive,
		LastActive:       m.LastActive,
	}
	return mergeUnknown(alias, m.UnknownFields)
}

func (m *AgentMember) UnmarshalJSON(data []byte) error {
	var alias agentMemberAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}
	unknown, err := splitKnown(data, agentMemberKnownKeys)
	if err != nil {
		return err
	}

	m.AgentID = alias.AgentID
	m.Name = alias.Name
	m.AgentType = alias.AgentType
	m.Model = alias.Model
	m.Prompt = alias.Prompt
	m.Color = alias.Color
	m.PlanModeRequired = alias.PlanModeRequired
	m.JoinedAt = alias.JoinedAt
	m.TmuxPaneID = alias.TmuxPaneID
	m.CWD = alias.CWD
	m.Subscriptions = alias.Subscriptions
	m.BackendType = alias.BackendType
	m.IsActive = alias.IsActive
	m.LastActive = alias.LastActive
	m.UnknownFields = unknown
	return nil
}
