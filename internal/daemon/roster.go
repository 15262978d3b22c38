package daemon

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/agentmail/atm/internal/atomicio"
	"github.com/agentmail/atm/internal/home"
	"github.com/agentmail/atm/internal/schema"
)

// teamRoster implements Roster over a team's config.json, reusing the
// same lock-read-write-swap discipline as the inbox engine so roster
// edits from plugins never race with a concurrent CLI `atm members` edit.
type teamRoster struct {
	layout     home.Layout
	maxRetries int
}

func newTeamRoster(l home.Layout, maxRetries int) *teamRoster {
	return &teamRoster{layout: l, maxRetries: maxRetries}
}

// NewTeamRoster returns a Roster backed by each team's config.json,
// for callers outside this package (cmd/atm-daemon) that need to wire
// one into an EventLoop.
func NewTeamRoster(l home.Layout, maxRetries int) Roster {
	return newTeamRoster(l, maxRetries)
}

func (r *teamRoster) AddMember(team string, member AgentMember) error {
	return r.mutate(team, func(cfg *schema.TeamConfig) {
		for i, existing := range cfg.Members {
			if existing.AgentID == member.AgentID {
				cfg.Members[i].Name = member.Name
				cfg.Members[i].AgentType = member.AgentType
				return
			}
		}
		cfg.Members = append(cfg.Members, schema.AgentMember{
			AgentID:   member.AgentID,
			Name:      member.Name,
			AgentType: member.AgentType,
		})
	})
}

func (r *teamRoster) RemoveMember(team, agentID string) error {
	return r.mutate(team, func(cfg *schema.TeamConfig) {
		kept := cfg.Members[:0]
		for _, existing := range cfg.Members {
			if existing.AgentID != agentID {
				kept = append(kept, existing)
			}
		}
		cfg.Members = kept
	})
}

func (r *teamRoster) mutate(team string, fn func(cfg *schema.TeamConfig)) error {
	path := r.layout.TeamConfigPath(team)
	if err := os.MkdirAll(r.layout.TeamDir(team), 0o755); err != nil {
		return fmt.Errorf("creating team directory: %w", err)
	}

	lock, err := atomicio.Acquire(path+".lock", r.maxRetries)
	if err != nil {
		return err
	}
	defer lock.Close()

	cfg, err := readTeamConfig(path)
	if err != nil {
		return err
	}
	fn(&cfg)

	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("serialising team config: %w", err)
	}
	return atomicio.WriteViaSwap(path, data)
}

func readTeamConfig(path string) (schema.TeamConfig, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return schema.TeamConfig{}, nil
	}
	if err != nil {
		return schema.TeamConfig{}, fmt.Errorf("reading team config: %w", err)
	}
	var cfg schema.TeamConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return schema.TeamConfig{}, fmt.Errorf("parsing team config: %w", err)
	}
	return cfg, nil
}
