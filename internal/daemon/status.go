package daemon

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/agentmail/atm/internal/atomicio"
	"github.com/agentmail/atm/internal/home"
)

// Status is the snapshot the daemon periodically serialises to
// status.json. A status CLI reads it and flags staleness itself by
// comparing Timestamp against now.
type Status struct {
	Timestamp  time.Time         `json:"timestamp"`
	PID        int               `json:"pid"`
	Version    string            `json:"version"`
	UptimeSecs int64             `json:"uptime_secs"`
	Plugins    map[string]string `json:"plugins"`
	Teams      []string          `json:"teams"`

	// CheckpointGeneration and Checkpoints report the daemon's logical
	// event order (one Lamport tick per housekeeping event), so two
	// snapshots sharing a wall-clock timestamp can still be ordered.
	CheckpointGeneration int64            `json:"checkpoint_generation,omitempty"`
	Checkpoints          map[string]int64 `json:"checkpoints,omitempty"`
}

// StatusWritePeriod is how often the daemon rewrites status.json;
// readers flag a snapshot older than twice this as stale.
const StatusWritePeriod = 5 * time.Second

// StatusWriter periodically writes a Status snapshot to disk via
// atomic temp-file-and-rename, so a reader never observes a partially
// written file.
type StatusWriter struct {
	layout      home.Layout
	version     string
	startedAt   time.Time
	registry    *Registry
	checkpoints *checkpointTracker // optional
}

// NewStatusWriter returns a writer bound to layout, stamping every
// snapshot with version and uptime measured from now.
func NewStatusWriter(l home.Layout, version string, registry *Registry) *StatusWriter {
	return &StatusWriter{layout: l, version: version, startedAt: time.Now(), registry: registry}
}

// Write serialises one snapshot, listing teams by walking teams_root.
func (w *StatusWriter) Write() error {
	states := w.registry.States()
	plugins := make(map[string]string, len(states))
	for name, state := range states {
		plugins[name] = state.String()
	}

	teams, err := listTeams(w.layout)
	if err != nil {
		return fmt.Errorf("listing teams: %w", err)
	}

	status := Status{
		Timestamp:  time.Now().UTC(),
		PID:        os.Getpid(),
		Version:    w.version,
		UptimeSecs: int64(time.Since(w.startedAt).Seconds()),
		Plugins:    plugins,
		Teams:      teams,
	}
	if w.checkpoints != nil {
		status.CheckpointGeneration = w.checkpoints.Generation()
		status.Checkpoints = w.checkpoints.Snapshot()
	}

	data, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("serialising status: %w", err)
	}

	if err := os.MkdirAll(w.layout.DaemonDir(), 0o755); err != nil {
		return fmt.Errorf("creating daemon directory: %w", err)
	}
	return atomicio.WriteViaSwap(w.layout.DaemonStatusPath(), data)
}

func listTeams(l home.Layout) ([]string, error) {
	entries, err := os.ReadDir(l.TeamsRoot())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var teams []string
	for _, e := range entries {
		if e.IsDir() {
			teams = append(teams, e.Name())
		}
	}
	return teams, nil
}

// ReadStatus reads and parses the daemon's current status.json.
func ReadStatus(l home.Layout) (Status, error) {
	data, err := os.ReadFile(l.DaemonStatusPath())
	if err != nil {
		return Status{}, err
	}
	var status Status
	if err := json.Unmarshal(data, &status); err != nil {
		return Status{}, fmt.Errorf("parsing status: %w", err)
	}
	return status, nil
}

// IsStale reports whether status is older than 2x writerPeriod.
func IsStale(status Status, writerPeriod time.Duration) bool {
	return time.Since(status.Timestamp) > 2*writerPeriod
}
