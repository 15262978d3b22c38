package daemon

import (
	"context"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/agentmail/atm/internal/home"
	"github.com/agentmail/atm/internal/inbox"
	"github.com/agentmail/atm/internal/session"
)

const (
	spoolDrainInterval  = 10 * time.Second
	sessionReapInterval = 15 * time.Second
	pluginShutdownCap   = 5 * time.Second
	taskAwaitCap        = 5 * time.Second
)

// ShutdownReport tallies how graceful shutdown went across every
// registered plugin.
type ShutdownReport struct {
	Success int
	Timeout int
	Error   int
}

// EventLoop owns every long-running daemon task: plugin Run bodies, the
// spool-drain ticker, and the filesystem watcher, all carrying one
// shared cancellation context.
type EventLoop struct {
	Layout     home.Layout
	Registry   *Registry
	Roster     Roster
	Env        Environment
	MaxRetries int
	Version    string
	// Cancel, if set, is wired to the control socket's "shutdown"
	// command so an operator-initiated stop unwinds through the same
	// path as a signal-driven one. Run works without it; the control
	// socket task is simply skipped.
	Cancel context.CancelFunc
	Log    *zap.Logger

	// Sessions is the in-memory agent-session registry the daemon owns.
	// Run creates one when it's nil; tests may inject their own.
	Sessions *session.Registry

	checkpoints *checkpointTracker
}

// Run executes the daemon's full lifecycle: init every
// plugin, spawn their Run bodies plus the spool-drain and watcher tasks
// under one cancellable group, block until ctx is cancelled (typically
// by a signal handler upstream), then perform bounded graceful
// shutdown. It returns once every task has been accounted for.
func (el *EventLoop) Run(ctx context.Context) (ShutdownReport, error) {
	el.checkpoints = newCheckpointTracker(time.Now().Unix())
	if el.Sessions == nil {
		el.Sessions = session.NewRegistry()
	}

	zapLog := loggerAdapter{el.Log}
	pctx := &Context{
		Layout:      el.Layout,
		Mail:        newMailService(el.Layout, el.MaxRetries, zapLog),
		Roster:      el.Roster,
		Environment: el.Env,
	}

	el.initAll(ctx, pctx)

	group, groupCtx := errgroup.WithContext(ctx)

	for name, state := range el.Registry.States() {
		if state != Initialized {
			// Init failed; the plugin never runs.
			continue
		}
		p, ok := el.Registry.Lookup(name)
		if !ok {
			continue
		}
		name := name
		group.Go(func() error {
			el.Registry.SetState(name, Running)
			el.checkpoints.Advance("plugin:" + name)
			err := p.Run(groupCtx)
			if err != nil {
				el.Log.Warn("plugin run exited with error", zap.String("plugin", name), zap.Error(err))
			}
			return err
		})
	}

	group.Go(func() error {
		return el.runSpoolDrain(groupCtx)
	})

	group.Go(func() error {
		return el.runSessionReaper(groupCtx)
	})

	fileEvents := make(chan FileEvent, 64)
	group.Go(func() error {
		return watchTree(groupCtx, el.Layout.TeamsRoot(), fileEvents, el.Log)
	})
	group.Go(func() error {
		return el.dispatchFileEvents(groupCtx, fileEvents)
	})

	statusWriter := NewStatusWriter(el.Layout, el.Version, el.Registry)
	statusWriter.checkpoints = el.checkpoints
	group.Go(func() error {
		return el.runStatusWriter(groupCtx, statusWriter)
	})

	if el.Cancel != nil {
		control := NewControlServer(el.Layout, el.Cancel, el.Log)
		control.sessions = el.Sessions
		group.Go(func() error {
			return control.Serve(groupCtx)
		})
	}

	<-ctx.Done()

	report := el.shutdownAll(ctx)

	awaitCtx, cancel := context.WithTimeout(context.Background(), taskAwaitCap)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- group.Wait() }()

	select {
	case err := <-done:
		if err != nil {
			el.Log.Warn("event loop task group exited with error", zap.Error(err))
		}
	case <-awaitCtx.Done():
		el.Log.Warn("timed out waiting for daemon tasks to finish")
	}

	return report, nil
}

// initAll initializes every registered plugin. A plugin whose Init
// fails is left out of the running set (it stays in Created state) but
// never blocks its siblings; the aggregated errors are logged, not
// returned, since an integration failing to configure itself must not
// take the mail bus down with it.
func (el *EventLoop) initAll(ctx context.Context, pctx *Context) {
	var errs error
	for _, p := range el.Registry.All() {
		name := p.Metadata().Name
		if err := p.Init(ctx, pctx); err != nil {
			el.Log.Warn("plugin init failed, excluding from run", zap.String("plugin", name), zap.Error(err))
			errs = multierr.Append(errs, err)
			continue
		}
		el.Registry.SetState(name, Initialized)
	}
	if errs != nil {
		el.Log.Warn("one or more plugins failed to initialize", zap.Error(errs))
	}
}

func (el *EventLoop) runSpoolDrain(ctx context.Context) error {
	ticker := time.NewTicker(spoolDrainInterval)
	defer ticker.Stop()

	zapLog := loggerAdapter{el.Log}
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			status, err := inbox.Drain(el.Layout, el.MaxRetries, zapLog)
			el.checkpoints.Advance("spool-drain")
			if err != nil {
				el.Log.Warn("spool drain failed", zap.Error(err))
				continue
			}
			if status.Delivered > 0 || status.Pending > 0 || status.Failed > 0 {
				el.Log.Info("spool drain complete",
					zap.Int("delivered", status.Delivered),
					zap.Int("pending", status.Pending),
					zap.Int("failed", status.Failed))
			}
		}
	}
}

// runSessionReaper keeps the in-memory session registry current: it
// folds in new records agent-mcp processes have published to the
// persisted registry file, then probes every Active record's PID and
// marks vanished processes Dead.
func (el *EventLoop) runSessionReaper(ctx context.Context) error {
	ticker := time.NewTicker(sessionReapInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			entries, err := session.ReadEntries(el.Layout)
			if err != nil {
				el.Log.Warn("reading persisted session registry", zap.Error(err))
			}
			for _, e := range entries {
				current, known := el.Sessions.Query(e.AgentID)
				if !known || current.SessionID != e.ThreadID || current.ProcessID != e.ProcessID {
					el.Sessions.Upsert(e.AgentID, e.ThreadID, e.ProcessID)
				}
			}
			for _, name := range el.Sessions.ReapDead(session.IsPidAlive) {
				el.Log.Info("session process gone, marked dead", zap.String("agent", name))
			}
			el.checkpoints.Advance("session-reaper")
		}
	}
}

func (el *EventLoop) runStatusWriter(ctx context.Context, w *StatusWriter) error {
	if err := w.Write(); err != nil {
		el.Log.Warn("status write failed", zap.Error(err))
	}
	ticker := time.NewTicker(StatusWritePeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := w.Write(); err != nil {
				el.Log.Warn("status write failed", zap.Error(err))
			}
		}
	}
}

func (el *EventLoop) dispatchFileEvents(ctx context.Context, events <-chan FileEvent) error {
	handlers := el.Registry.ByCapability("file-events")
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			el.checkpoints.Advance("watcher")
			for _, p := range handlers {
				handler, ok := p.(FileEventHandler)
				if !ok {
					continue
				}
				if err := handler.HandleFileEvent(ev); err != nil {
					el.Log.Warn("plugin failed handling file event",
						zap.String("plugin", p.Metadata().Name), zap.Error(err))
				}
			}
		}
	}
}

// shutdownAll invokes Shutdown on every plugin with a per-plugin
// timeout, independent of whether the rest succeed.
func (el *EventLoop) shutdownAll(parent context.Context) ShutdownReport {
	var report ShutdownReport
	states := el.Registry.States()
	for _, p := range el.Registry.All() {
		name := p.Metadata().Name
		if s := states[name]; s != Initialized && s != Running {
			// Never initialized; there is nothing to flush or close.
			continue
		}
		el.Registry.SetState(name, ShuttingDown)
		el.checkpoints.Advance("plugin:" + name)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), pluginShutdownCap)
		done := make(chan error, 1)
		go func() { done <- p.Shutdown(shutdownCtx) }()

		select {
		case err := <-done:
			if err != nil {
				report.Error++
				el.Log.Warn("plugin shutdown returned error", zap.String("plugin", name), zap.Error(err))
			} else {
				report.Success++
			}
		case <-shutdownCtx.Done():
			report.Timeout++
			el.Log.Warn("plugin shutdown timed out", zap.String("plugin", name))
		}
		cancel()

		el.Registry.SetState(name, Terminated)
	}
	return report
}

// loggerAdapter satisfies inbox.Logger with a zap backend, so the
// engine's non-fatal warnings get structured daemon logging instead of
// being dropped.
type loggerAdapter struct {
	log *zap.Logger
}

func (a loggerAdapter) Warnf(format string, args ...interface{}) {
	a.log.Sugar().Warnf(format, args...)
}
