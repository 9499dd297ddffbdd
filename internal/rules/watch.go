package rules

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch hot-reloads the rule file into registry whenever it changes on
// disk, until ctx is cancelled. The parent directory is watched rather
// than the file itself: editors and config-sync agents typically replace
// the file via write-to-temp + rename, which would otherwise drop the
// watch. A reload that fails to read or parse keeps the previous rule set
// active.
func Watch(ctx context.Context, path string, registry *Registry, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With("component", "rules", "file", path)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return err
	}

	target := filepath.Base(path)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != target {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			ruleset, err := LoadFile(path)
			if err != nil {
				log.Warn("rule reload failed, keeping previous set", "error", err)
				continue
			}
			n := registry.Compile(ruleset)
			log.Info("rules reloaded", "active", n)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn("rule watcher error", "error", err)
		}
	}
}
