package schema

import "encoding/json"

// Permissions is the permissions block of a Claude Code settings file.
type Permissions struct {
	Allow []string
	Deny  []string
	Ask   []string

	UnknownFields map[string]json.RawMessage
}

var permissionsKnownKeys = []string{"allow", "deny", "ask"}

type permissionsAlias struct {
	Allow []string `json:"allow,omitempty"`
	Deny  []string `json:"deny,omitempty"`
	Ask   []string `json:"ask,omitempty"`
}

func (p Permissions) MarshalJSON() ([]byte, error) {
	alias := permissionsAlias{Allow: p.Allow, Deny: p.Deny, Ask: p.Ask}
	return mergeUnknown(alias, p.UnknownFields)
}

func (p *Permissions) UnmarshalJSON(data []byte) error {
	var alias permissionsAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}
	unknown, err := splitKnown(data, permissionsKnownKeys)
	if err != nil {
		return err
	}
	p.Allow = alias.Allow
	p.Deny = alias.Deny
	p.Ask = alias.Ask
	p.UnknownFields = unknown
	return nil
}

// SettingsJson is a Claude Code settings.json file (user, project, local,
// or managed scope). atm only ever touches Permissions and Env directly;
// everything else (hooks, model, status line, plugin settings, ...)
// round-trips through UnknownFields untouched.
type SettingsJson struct {
	Schema      string // "$schema"; empty if unset
	Permissions *Permissions
	Env         map[string]string

	UnknownFields map[string]json.RawMessage
}

var settingsKnownKeys = []string{"$schema", "permissions", "env"}

type settingsAlias struct {
	Schema      string            `json:"$schema,omitempty"`
	Permissions *Permissions      `json:"permissions,omitempty"`
	Env         map[string]string `json:"env,omitempty"`
}

func (s SettingsJson) MarshalJSON() ([]byte, error) {
	alias := settingsAlias{Schema: s.Schema, Permissions: s.Permissions, Env: s.Env}
	return mergeUnknown(alias, s.UnknownFields)
}

func (s *SettingsJson) UnmarshalJSON(data []byte) error {
	var alias settingsAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}
	unknown, err := splitKnown(data, settingsKnownKeys)
	if err != nil {
		return err
	}
	s.Schema = alias.Schema
	s.Permissions = alias.Permissions
	s.Env = alias.Env
	s.UnknownFields = unknown
	return nil
}
