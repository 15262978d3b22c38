// Package daemon hosts the long-running supervisor: plugin lifecycle,
// the spool-drain and filesystem-watcher tasks, a status writer, and
// bounded graceful shutdown.
package daemon

import (
	"context"

	"github.com/agentmail/atm/internal/home"
	"github.com/agentmail/atm/internal/inbox"
	"github.com/agentmail/atm/internal/schema"
)

// Metadata describes a plugin without requiring it to be initialized.
type Metadata struct {
	Name         string
	Version      string
	Capabilities []string
}

// MailService is the subset of the inbox engine a plugin is allowed to
// call. Plugins never touch internal/home or internal/inbox directly;
// they go through this interface so the daemon controls their blast
// radius.
type MailService interface {
	Append(team, agent string, msg schema.InboxMessage) (inbox.WriteOutcome, error)
}

// Roster lets a plugin register or remove team members as it discovers
// them (for example, an issue-tracker integration creating an agent per
// assignee).
type Roster interface {
	AddMember(team string, member AgentMember) error
	RemoveMember(team, agentID string) error
}

// AgentMember is the roster-facing view of a team member; plugins only
// ever see these fields, not the full schema.AgentMember unknown-fields
// bag.
type AgentMember struct {
	AgentID   string
	Name      string
	AgentType string
}

// Environment carries read-only facts about the host the daemon is
// running on, passed to every plugin at init time.
type Environment struct {
	Hostname string
	Platform string
	Version  string
	Team     string
}

// Context is handed to every plugin at Init. It bundles the inbox
// engine, the resolved layout, a roster service, and environment facts
// a plugin needs but should never reach for through globals.
type Context struct {
	Layout      home.Layout
	Mail        MailService
	Roster      Roster
	Environment Environment
}

// Plugin is an integration the daemon hosts: something that watches an
// external system (an issue tracker, a CI service, an SSH transport) and
// injects inbox messages in response. Metadata must be pure and cheap;
// Init does one-shot setup; Run is the long-running body and must
// observe ctx.Done(); Shutdown flushes and closes. HandleMessage is not
// part of this interface; it is declared separately by MessageHandler.
type Plugin interface {
	Metadata() Metadata
	Init(ctx context.Context, pctx *Context) error
	Run(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

// MessageHandler declares a HandleMessage method for plugins that consume
// injected inbox messages. The daemon never checks plugins for this
// interface and forwards no messages through it.
type MessageHandler interface {
	HandleMessage(msg InjectedMessage) error
}

// FileEventHandler is implemented by plugins that declared the
// "file-events" capability and want the watcher's events forwarded to
// them. A plugin that declares the capability but doesn't implement
// this interface is skipped.
type FileEventHandler interface {
	HandleFileEvent(ev FileEvent) error
}

// InjectedMessage is a message handed to a plugin's HandleMessage.
type InjectedMessage struct {
	Team  string
	Agent string
	Text  string
}
