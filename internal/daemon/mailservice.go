package daemon

import (
	"github.com/agentmail/atm/internal/home"
	"github.com/agentmail/atm/internal/inbox"
	"github.com/agentmail/atm/internal/schema"
)

// mailService is the concrete MailService every plugin's Context carries.
// It thinly wraps the inbox engine with the daemon's configured retry
// budget and logger so plugins cannot bypass either.
type mailService struct {
	layout     home.Layout
	maxRetries int
	log        inbox.Logger
}

func newMailService(l home.Layout, maxRetries int, log inbox.Logger) *mailService {
	return &mailService{layout: l, maxRetries: maxRetries, log: log}
}

func (m *mailService) Append(team, agent string, msg schema.InboxMessage) (inbox.WriteOutcome, error) {
	return inbox.Append(m.layout, team, agent, msg, m.maxRetries, m.log)
}
