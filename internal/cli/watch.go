package cli

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const watchDebounce = 200 * time.Millisecond

// watchInput calls regenerate after every burst of changes to path until ctx
// is done. The parent directory is watched because editors often replace
// files by rename. Regeneration failures are logged and watching continues.
func watchInput(ctx context.Context, path string, debounce time.Duration, regenerate func() error) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("watch: resolve %s: %w", path, err)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	defer func() { _ = w.Close() }()
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch: %s: %w", filepath.Dir(abs), err)
	}

	// Armed by the first matching event.
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				timer.Reset(debounce)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			slog.WarnContext(ctx, "error watching input", "path", abs, "err", err)
		case <-timer.C:
			slog.InfoContext(ctx, "input changed, regenerating", "path", abs)
			if err := regenerate(); err != nil {
				slog.ErrorContext(ctx, "regeneration failed", "err", err)
			}
		}
	}
}
