package inbox

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/agentmail/atm/internal/home"
	"github.com/agentmail/atm/internal/schema"
)

// DrainStatus tallies the outcome of a spool drain pass.
type DrainStatus struct {
	Delivered int
	Pending   int
	Failed    int
}

// Drain walks teams_root/*/.spool/*/ and attempts to deliver every
// spooled message to its inferred (team, agent) destination. It is
// best-effort: a spool entry is only ever removed once inbox_append
// reports Success or ConflictResolved. Entries still locked out are left
// in place and counted as Pending; I/O failures are counted as Failed
// without removing the entry.
func Drain(l home.Layout, maxRetries int, log Logger) (DrainStatus, error) {
	log = orNop(log)
	var status DrainStatus

	teamDirs, err := os.ReadDir(l.TeamsRoot())
	if errors.Is(err, os.ErrNotExist) {
		return status, nil
	}
	if err != nil {
		return status, fmt.Errorf("listing teams: %w", err)
	}

	for _, teamEntry := range teamDirs {
		if !teamEntry.IsDir() {
			continue
		}
		team := teamEntry.Name()
		spoolRoot := l.SpoolRoot(team)

		agentDirs, err := os.ReadDir(spoolRoot)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			log.Warnf("inbox: listing spool dir %s: %v", spoolRoot, err)
			status.Failed++
			continue
		}

		for _, agentEntry := range agentDirs {
			if !agentEntry.IsDir() {
				continue
			}
			agent := agentEntry.Name()
			drainAgentSpool(l, team, agent, maxRetries, log, &status)
		}
	}

	return status, nil
}

func drainAgentSpool(l home.Layout, team, agent string, maxRetries int, log Logger, status *DrainStatus) {
	dir := l.SpoolDir(team, agent)
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return
	}
	if err != nil {
		log.Warnf("inbox: listing spool entries in %s: %v", dir, err)
		status.Failed++
		return
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		entryPath := filepath.Join(dir, entry.Name())
		drainOne(l, team, agent, entryPath, maxRetries, log, status)
	}
}

func drainOne(l home.Layout, team, agent, entryPath string, maxRetries int, log Logger, status *DrainStatus) {
	data, err := os.ReadFile(entryPath)
	if err != nil {
		log.Warnf("inbox: reading spool entry %s: %v", entryPath, err)
		status.Failed++
		return
	}

	var msg schema.InboxMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Warnf("inbox: parsing spool entry %s: %v", entryPath, err)
		status.Failed++
		return
	}

	outcome, err := Append(l, team, agent, msg, maxRetries, log)
	if err != nil {
		log.Warnf("inbox: delivering spool entry %s: %v", entryPath, err)
		status.Failed++
		return
	}

	switch outcome.Kind {
	case Success, ConflictResolved:
		if err := os.Remove(entryPath); err != nil {
			log.Warnf("inbox: removing delivered spool entry %s: %v", entryPath, err)
		}
		status.Delivered++
	case Queued:
		// Append spooled a fresh copy; drop that copy and leave the
		// original entry in place.
		if err := os.Remove(outcome.SpoolPath); err != nil {
			log.Warnf("inbox: removing duplicate spool entry %s: %v", outcome.SpoolPath, err)
		}
		status.Pending++
	}
}
