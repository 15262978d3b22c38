package daemon

import (
	"context"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// FileEvent is a simplified, daemon-owned view of a raw fsnotify event,
// forwarded to every plugin that declared the "file-events" capability.
type FileEvent struct {
	Path string
	Op   fsnotify.Op
}

// watchTree recursively watches root and every directory created under
// it afterwards, forwarding every event it sees to events until ctx is
// cancelled. The watcher does not filter by capability itself — every
// event is forwarded; callers narrow by capability if they choose to.
func watchTree(ctx context.Context, root string, events chan<- FileEvent, log *zap.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := addRecursive(watcher, root); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op&fsnotify.Create != 0 && isDir(ev.Name) {
				if err := watcher.Add(ev.Name); err != nil {
					log.Warn("watcher: failed to add new directory", zap.String("path", ev.Name), zap.Error(err))
				}
			}
			select {
			case events <- FileEvent{Path: ev.Name, Op: ev.Op}:
			case <-ctx.Done():
				return nil
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn("watcher: fsnotify error", zap.Error(err))
		}
	}
}

// addRecursive walks root once at startup, adding every directory found
// (fsnotify watches are not recursive by default; new subdirectories are
// picked up afterward via the Create branch in watchTree's loop).
func addRecursive(watcher *fsnotify.Watcher, root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			// Root may not exist yet on a fresh install; that's not fatal,
			// the daemon will pick up teams_root once it's created.
			return nil
		}
		if info.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}
