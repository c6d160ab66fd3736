package config

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watch monitors filename and reloads it through Load after every change,
// passing the freshly loaded value to onChange. It watches the parent
// directory so editor save patterns (rename plus create) are still seen,
// and debounces bursts of events into a single reload. A reload that fails
// to parse or validate is logged and skipped; the previous configuration
// stays in effect.
//
// Watch blocks until ctx is cancelled.
func Watch[T any](ctx context.Context, filename string, logger *slog.Logger, onChange func(*T)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(filepath.Dir(filename)); err != nil {
		return err
	}
	base := filepath.Base(filename)

	logger.Info("config watcher: started", slog.String("file", filename))

	// debounceTimer collapses event bursts from editors into one reload.
	var debounceTimer *time.Timer
	var debounceCh <-chan time.Time

	schedule := func() {
		if debounceTimer == nil {
			debounceTimer = time.NewTimer(200 * time.Millisecond)
			debounceCh = debounceTimer.C
		} else {
			debounceTimer.Reset(200 * time.Millisecond)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			logger.Info("config watcher: stopped")
			return nil

		case <-debounceCh:
			var cfg T
			if loadErr := Load(filename, &cfg); loadErr != nil {
				logger.Warn("config watcher: reload failed", slog.String("error", loadErr.Error()))
				continue
			}
			logger.Info("config watcher: configuration reloaded")
			onChange(&cfg)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != base {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			schedule()

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("config watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
