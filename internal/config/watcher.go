package config

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"engram/internal/logging"
)

// reloadDebounce absorbs the write bursts editors and atomic-rename saves
// produce (several events for one logical save).
const reloadDebounce = 250 * time.Millisecond

// Watcher reloads a TOML config file from disk whenever it changes and
// hands the result to a callback. Config is otherwise a single versioned
// snapshot distributed by reference at startup (see DESIGN.md); Watcher is
// the opt-in path for the handful of settings safe to swap in under a
// running process, such as the safety gate's deny patterns.
type Watcher struct {
	path string
	fsw  *fsnotify.Watcher
}

// NewWatcher opens an fsnotify watch on the directory containing path. The
// directory (rather than the file itself) is watched because editors and
// atomic config writers commonly replace the file via rename, which drops
// a direct file watch.
func NewWatcher(path string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	dir := filepath.Dir(path)
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, err
	}
	return &Watcher{path: path, fsw: fsw}, nil
}

// Watch blocks until ctx is cancelled, calling onReload with the freshly
// parsed config each time the watched file is written, created, or
// renamed into place. Load errors are logged and skipped rather than
// passed to onReload, so a transient partial write never replaces a good
// snapshot with a broken one.
func (w *Watcher) Watch(ctx context.Context, onReload func(*Config)) {
	defer w.fsw.Close()

	target := filepath.Clean(w.path)
	var pending *time.Timer
	defer func() {
		if pending != nil {
			pending.Stop()
		}
	}()

	fire := func() {
		cfg, err := Load(w.path)
		if err != nil {
			logging.ConfigLog("config reload failed, keeping previous snapshot: %v", err)
			return
		}
		logging.ConfigLog("config reloaded from %s", w.path)
		onReload(cfg)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if pending != nil {
				pending.Stop()
			}
			pending = time.AfterFunc(reloadDebounce, fire)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			logging.ConfigLog("config watcher error: %v", err)
		}
	}
}
