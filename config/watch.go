package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch logs when the loaded config file changes on disk. Settings are
// never reloaded live: the process must be restarted to apply them.
func Watch(ctx context.Context, file string, logger *slog.Logger) error {
	if file == "" {
		return nil
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config watcher: %w", err)
	}
	// watch the directory: editors replace files instead of writing in place
	if err := w.Add(filepath.Dir(file)); err != nil {
		_ = w.Close()
		return fmt.Errorf("config watcher: add %s: %w", file, err)
	}

	target := filepath.Clean(file)
	go func() {
		defer w.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target {
					continue
				}
				if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
					logger.Warn("CONFIG_CHANGED: restart required to apply",
						slog.String("file", file),
						slog.String("op", ev.Op.String()),
					)
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Error("CONFIG_WATCH_FAILED", slog.Any("err", err))
			}
		}
	}()
	return nil
}
