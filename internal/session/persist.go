package session

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/agentmail/atm/internal/atomicio"
	"github.com/agentmail/atm/internal/home"
)

// PersistedEntry is one row of the on-disk session registry snapshot
// proxy resume reads at startup. ThreadID is the backend's own
// conversation identifier, opaque to this package, used to locate a
// prior summary via home.Layout.SummaryPath.
type PersistedEntry struct {
	AgentID    string    `json:"agent_id"`
	Identity   string    `json:"identity"`
	ThreadID   string    `json:"thread_id"`
	ProcessID  int       `json:"pid,omitempty"`
	LastActive time.Time `json:"last_active"`
}

// WriteEntries atomically replaces the persisted session registry file
// with entries.
func WriteEntries(l home.Layout, entries []PersistedEntry) error {
	if err := os.MkdirAll(l.DaemonDir(), 0o755); err != nil {
		return fmt.Errorf("creating daemon directory: %w", err)
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("serialising session registry: %w", err)
	}
	return atomicio.WriteViaSwap(l.SessionRegistryPath(), data)
}

// ReadEntries reads the persisted session registry file. A missing file
// is not an error; it means no agent has ever persisted a session yet.
func ReadEntries(l home.Layout) ([]PersistedEntry, error) {
	data, err := os.ReadFile(l.SessionRegistryPath())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading session registry: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	var entries []PersistedEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing session registry: %w", err)
	}
	return entries, nil
}

// Upsert returns entries with e inserted or replacing any existing
// entry sharing its AgentID, used by an agent-mcp process to publish
// its own record without clobbering every other agent's.
func Upsert(entries []PersistedEntry, e PersistedEntry) []PersistedEntry {
	for i, existing := range entries {
		if existing.AgentID == e.AgentID {
			out := append([]PersistedEntry(nil), entries...)
			out[i] = e
			return out
		}
	}
	return append(append([]PersistedEntry(nil), entries...), e)
}
