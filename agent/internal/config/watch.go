package config

import (
	"context"
	"log/slog"

	"github.com/fsnotify/fsnotify"
)

// Watch re-reads the config file whenever it changes on disk and hands each
// successfully loaded Config to onChange. It blocks until ctx is cancelled.
//
// A change that fails to load (bad YAML, failed validation) is logged and
// dropped; the running config stays in effect.
func Watch(ctx context.Context, path string, onChange func(*Config)) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	if err := fw.Add(path); err != nil {
		return err
	}

	slog.Info("config: watching for changes", "path", path)

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if reload(ev, path, onChange) {
				// An atomic save replaces the inode, which silently
				// detaches the watch. Re-arm it on every change event.
				_ = fw.Add(path)
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			slog.Error("config: watcher error", "err", err)
		}
	}
}

// reload handles one filesystem event and reports whether the file changed.
// Create counts as a change because editors often save via rename.
func reload(ev fsnotify.Event, path string, onChange func(*Config)) bool {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
		return false
	}

	cfg, err := Load(path)
	if err != nil {
		slog.Error("config: reload failed — keeping previous config",
			"path", path, "err", err)
		return true
	}

	slog.Info("config: reloaded", "path", path)
	onChange(cfg)
	return true
}
