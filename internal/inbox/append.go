package inbox

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/zeebo/blake3"

	"github.com/agentmail/atm/internal/atmerr"
	"github.com/agentmail/atm/internal/atomicio"
	"github.com/agentmail/atm/internal/home"
	"github.com/agentmail/atm/internal/schema"
)

// Append performs the atomic read-modify-write on an inbox: read and
// digest the current content, append msg, serialise to a private temp
// file, then take the per-(team,agent) lock only to verify the digest
// and swap the result into place — merging in any concurrent writer's
// content first when the digest moved. If the lock can't be acquired
// within maxRetries, msg is spooled instead of failing the caller.
func Append(l home.Layout, team, agent string, msg schema.InboxMessage, maxRetries int, log Logger) (WriteOutcome, error) {
	path := l.InboxPath(team, agent)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return WriteOutcome{}, fmt.Errorf("creating inbox directory: %w", err)
	}

	outcome, err := mutateAndCommit(path, maxRetries, log, 1, func(messages []schema.InboxMessage) []schema.InboxMessage {
		return append(messages, msg)
	})
	if err != nil {
		var timeout *atmerr.LockTimeout
		if errors.As(err, &timeout) {
			spoolPath, spoolErr := writeSpoolEntry(l, team, agent, msg)
			if spoolErr != nil {
				return WriteOutcome{}, fmt.Errorf("spooling after lock timeout: %w", spoolErr)
			}
			return WriteOutcome{Kind: Queued, SpoolPath: spoolPath}, nil
		}
		return WriteOutcome{}, err
	}
	return outcome, nil
}

// Update is the same read-modify-write as Append, but lets the caller
// transform the whole message list (for example to flip a message's
// Read flag) instead of appending a fixed message. Because an Update
// has no single new message to spool, a LockTimeout is surfaced to the
// caller rather than queued.
func Update(l home.Layout, team, agent string, maxRetries int, log Logger, fn func(messages []schema.InboxMessage) []schema.InboxMessage) (WriteOutcome, error) {
	path := l.InboxPath(team, agent)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return WriteOutcome{}, fmt.Errorf("creating inbox directory: %w", err)
	}
	return mutateAndCommit(path, maxRetries, log, 0, fn)
}

// mutateAndCommit reads and transforms path's content without holding
// the inbox lock, then acquires the lock only for the commit: re-read,
// re-hash, merge if a concurrent writer committed in the window, swap.
// The unlocked read is what lets two concurrent writers interleave —
// both snapshot the same initial digest, the first to reach the lock
// commits, and the second observes the moved digest and merges.
//
// transform is applied once to the initially parsed list; on a digest
// mismatch only newly observed disk messages are merged in ahead of the
// last tailLen entries (the messages transform appended), transform is
// not re-applied.
func mutateAndCommit(path string, maxRetries int, log Logger, tailLen int, transform func([]schema.InboxMessage) []schema.InboxMessage) (WriteOutcome, error) {
	log = orNop(log)

	initialBytes, err := readInboxBytesOrEmpty(path)
	if err != nil {
		return WriteOutcome{}, fmt.Errorf("reading inbox: %w", err)
	}
	expectedHash := blake3.Sum256(initialBytes)

	ours := transform(parseMessagesLenient(initialBytes, path, log))

	tmpPath, err := writeTmp(path, ours)
	if err != nil {
		return WriteOutcome{}, err
	}

	lock, err := atomicio.Acquire(path+".lock", maxRetries)
	if err != nil {
		os.Remove(tmpPath)
		return WriteOutcome{}, err
	}
	defer lock.Close()

	merged := 0
	for attempt := 0; attempt < mergeLoopLimit; attempt++ {
		currentBytes, err := readInboxBytesOrEmpty(path)
		if err != nil {
			os.Remove(tmpPath)
			return WriteOutcome{}, fmt.Errorf("re-reading inbox: %w", err)
		}
		currentHash := blake3.Sum256(currentBytes)

		if currentHash == expectedHash {
			if err := commitTmp(path, tmpPath); err != nil {
				os.Remove(tmpPath)
				return WriteOutcome{}, fmt.Errorf("committing inbox: %w", err)
			}
			return outcomeFor(merged), nil
		}

		// A writer committed between our unlocked read and taking the
		// lock. Fold its messages in and refresh the temp file.
		diskList := parseMessagesLenient(currentBytes, path, log)
		merged += mergeInto(&ours, diskList, tailLen)
		expectedHash = currentHash
		os.Remove(tmpPath)
		tmpPath, err = writeTmp(path, ours)
		if err != nil {
			return WriteOutcome{}, err
		}
	}

	// Exceeded the retry budget; commit whatever we have. The merge loop
	// is best-effort, not a hard failure.
	if err := commitTmp(path, tmpPath); err != nil {
		os.Remove(tmpPath)
		return WriteOutcome{}, fmt.Errorf("committing inbox: %w", err)
	}
	return WriteOutcome{Kind: ConflictResolved, Merged: merged}, nil
}

func outcomeFor(merged int) WriteOutcome {
	if merged == 0 {
		return WriteOutcome{Kind: Success}
	}
	return WriteOutcome{Kind: ConflictResolved, Merged: merged}
}

// writeTmp serialises messages to a uniquely named sibling of path, so
// concurrent writers each stage their own candidate without clobbering
// one another's.
func writeTmp(path string, messages []schema.InboxMessage) (string, error) {
	data, err := json.Marshal(messages)
	if err != nil {
		return "", fmt.Errorf("serialising inbox: %w", err)
	}
	tmpPath := path + "." + uuid.NewString() + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return "", fmt.Errorf("writing temp inbox: %w", err)
	}
	return tmpPath, nil
}

func readInboxBytesOrEmpty(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return []byte("[]"), nil
	}
	return data, err
}

// parseMessagesLenient parses an inbox file's bytes; a parse failure is
// logged and treated as an empty list rather than propagated, per the
// read-side error policy.
func parseMessagesLenient(data []byte, path string, log Logger) []schema.InboxMessage {
	var messages []schema.InboxMessage
	if err := json.Unmarshal(data, &messages); err != nil {
		log.Warnf("inbox: failed to parse %s, treating as empty: %v", path, err)
		return nil
	}
	return messages
}

// commitTmp atomically installs tmpPath as path. If path doesn't exist
// yet there is nothing to exchange with, so a plain rename suffices;
// otherwise the two are exchanged and the old content (now at tmpPath)
// is discarded.
func commitTmp(path, tmpPath string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return os.Rename(tmpPath, path)
	}
	if err := atomicio.Swap(path, tmpPath); err != nil {
		return err
	}
	return os.Remove(tmpPath)
}

func writeSpoolEntry(l home.Layout, team, agent string, msg schema.InboxMessage) (string, error) {
	dir := l.SpoolDir(team, agent)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating spool directory: %w", err)
	}
	spoolPath := filepath.Join(dir, uuid.NewString()+".json")
	data, err := json.Marshal(msg)
	if err != nil {
		return "", fmt.Errorf("serialising spool entry: %w", err)
	}
	if err := os.WriteFile(spoolPath, data, 0o644); err != nil {
		return "", fmt.Errorf("writing spool entry: %w", err)
	}
	return spoolPath, nil
}
