package inbox

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/agentmail/atm/internal/atomicio"
	"github.com/agentmail/atm/internal/home"
	"github.com/agentmail/atm/internal/schema"
)

// RetentionStrategy controls what happens to a message retention removes.
type RetentionStrategy int

const (
	// RetentionDelete discards removed messages outright.
	RetentionDelete RetentionStrategy = iota
	// RetentionArchive copies removed messages to the team's archive
	// directory before removing them from the inbox.
	RetentionArchive
)

// RetentionPolicy bounds an inbox by age and/or count. A zero MaxAge or
// MaxCount means that dimension is unbounded.
type RetentionPolicy struct {
	MaxAge   time.Duration
	MaxCount int
	Strategy RetentionStrategy
	DryRun   bool
}

// RetentionResult reports what ApplyRetention did or would do.
type RetentionResult struct {
	Removed  int
	Archived int
}

// ApplyRetention removes messages older than policy.MaxAge, then if the
// inbox is still over policy.MaxCount, trims the oldest surplus. DryRun
// computes the counts without mutating anything.
func ApplyRetention(l home.Layout, team, agent string, policy RetentionPolicy, maxRetries int, log Logger) (RetentionResult, error) {
	log = orNop(log)
	path := l.InboxPath(team, agent)

	lock, err := atomicio.Acquire(path+".lock", maxRetries)
	if err != nil {
		return RetentionResult{}, err
	}
	defer lock.Close()

	data, err := readInboxBytesOrEmpty(path)
	if err != nil {
		return RetentionResult{}, fmt.Errorf("reading inbox: %w", err)
	}
	messages := parseMessagesLenient(data, path, log)

	keep, removed := selectForRetention(messages, policy)
	result := RetentionResult{Removed: len(removed)}

	if policy.DryRun {
		return result, nil
	}

	if policy.Strategy == RetentionArchive && len(removed) > 0 {
		if err := archiveMessages(l, team, agent, removed); err != nil {
			return RetentionResult{}, fmt.Errorf("archiving retained messages: %w", err)
		}
		result.Archived = len(removed)
	}

	if len(removed) == 0 {
		return result, nil
	}

	tmpPath, err := writeTmp(path, keep)
	if err != nil {
		return RetentionResult{}, err
	}
	if err := commitTmp(path, tmpPath); err != nil {
		os.Remove(tmpPath)
		return RetentionResult{}, fmt.Errorf("committing inbox: %w", err)
	}
	return result, nil
}

// selectForRetention returns the messages to keep and the messages to
// remove, in original order. Age is applied first, then count.
func selectForRetention(messages []schema.InboxMessage, policy RetentionPolicy) (keep, removed []schema.InboxMessage) {
	working := messages

	if policy.MaxAge > 0 {
		cutoff := time.Now().Add(-policy.MaxAge)
		var survivors []schema.InboxMessage
		for _, m := range working {
			ts, err := time.Parse(time.RFC3339, m.Timestamp)
			if err != nil || !ts.Before(cutoff) {
				survivors = append(survivors, m)
			} else {
				removed = append(removed, m)
			}
		}
		working = survivors
	}

	if policy.MaxCount > 0 && len(working) > policy.MaxCount {
		sorted := append([]schema.InboxMessage(nil), working...)
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].Timestamp < sorted[j].Timestamp
		})
		surplus := len(sorted) - policy.MaxCount
		removed = append(removed, sorted[:surplus]...)
		working = sorted[surplus:]
	}

	return working, removed
}

func archiveMessages(l home.Layout, team, agent string, messages []schema.InboxMessage) error {
	dir := l.ArchiveDir(team, agent)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	data, err := json.Marshal(messages)
	if err != nil {
		return err
	}
	name := fmt.Sprintf("%d.json", time.Now().UnixNano())
	return os.WriteFile(filepath.Join(dir, name), data, 0o644)
}
