package schema

import "encoding/json"

// TeamConfig is a team's configuration file, stored at
// teams_root/<team>/config.json.
type TeamConfig struct {
	Name          string
	Description   string // human-readable purpose; empty if unset
	CreatedAt     uint64 // unix ms
	LeadAgentID   string // "team-lead@<team>"
	LeadSessionID string // uuid of the session that created the team
	Members       []AgentMember

	UnknownFields map[string]json.RawMessage
}

var teamConfigKnownKeys = []string{
	"name", "description", "createdAt", "leadAgentId", "leadSessionId", "members",
}

type teamConfigAlias struct {
	Name          string        `json:"name"`
	Description   string        `json:"description,omitempty"`
	CreatedAt     uint64        `json:"createdAt"`
	LeadAgentID   string        `json:"leadAgentId"`
	LeadSessionID string        `json:"leadSessionId"`
	Members       []AgentMember `json:"members"`
}

func (c TeamConfig) MarshalJSON() ([]byte, error) {
	members := c.Members
	if members == nil {
		members = []AgentMember{}
	}
	alias := teamConfigAlias{
		Name:          c.Name,
		Description:   c.Description,
		CreatedAt:     c.CreatedAt,
		LeadAgentID:   c.LeadAgentID,
		LeadSessionID: c.LeadSessionID,
		Members:       members,
	}
	return mergeUnknown(alias, c.UnknownFields)
}

func (c *TeamConfig) UnmarshalJSON(data []byte) error {
	var alias teamConfigAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}
	unknown, err := splitKnown(data, teamConfigKnownKeys)
	if err != nil {
		return err
	}

	c.Name = alias.Name
	c.Description = alias.Description
	c.CreatedAt = alias.CreatedAt
	c.LeadAgentID = alias.LeadAgentID
	c.LeadSessionID = alias.LeadSessionID
	c.Members = alias.Members
	c.UnknownFields = unknown
	return nil
}

// Member looks up a member by name, returning ok=false if absent.
func (c TeamConfig) Member(name string) (AgentMember, bool) {
	for _, m := range c.Members {
		if m.Name == name {
			return m, true
		}
	}
	return AgentMember{}, false
}
