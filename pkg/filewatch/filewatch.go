// Package filewatch reports changes to a single file.
//
// The parent directory is watched rather than the file itself, so a save
// that replaces the file (write to a temp file, then rename over the target)
// is seen the same way as an in-place write. Events for the file that arrive
// within the settle window of the first one collapse into a single callback.
package filewatch

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// DefaultSettle is the window used when Watch is given a zero settle time.
const DefaultSettle = 100 * time.Millisecond

// Watch calls onChange after path is written or created. onChange runs on
// the Watch goroutine. Watch returns an error if path does not exist or
// cannot be watched, and nil once ctx is cancelled.
func Watch(ctx context.Context, path string, settle time.Duration, logger zerolog.Logger, onChange func()) error {
	if settle <= 0 {
		settle = DefaultSettle
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(abs); err != nil {
		return err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(filepath.Dir(abs)); err != nil {
		return err
	}
	logger.Info().Str("path", abs).Msg("watching for changes")

	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			if fire == nil {
				fire = time.After(settle)
			}

		case <-fire:
			fire = nil
			onChange()

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error().Err(err).Msg("watcher error")
		}
	}
}
