package verify

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/guardrail-dev/guardrail/internal/observability/logging"
)

// DefaultDebounce coalesces editor save bursts
const DefaultDebounce = 300 * time.Millisecond

// Watch calls fn after each burst of changes under root until ctx is done.
// fn runs on the calling goroutine, never concurrently with itself.
func Watch(ctx context.Context, root string, debounce time.Duration, fn func(context.Context)) error {
	log := logging.From(ctx)
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch init failed: %w", err)
	}
	defer watcher.Close()

	if err := addWatchRecursive(watcher, root); err != nil {
		return fmt.Errorf("watch failed: %w", err)
	}

	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := addWatchRecursive(watcher, ev.Name); err != nil {
						log.Warn("watch", "failed to watch new directory", "path", ev.Name, "error", err.Error())
					}
				}
			}
			log.Debug("watch", "change detected", "path", ev.Name, "op", ev.Op.String())
			timer.Reset(debounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn("watch", "watch error", "error", err.Error())
		case <-timer.C:
			fn(ctx)
		}
	}
}

func addWatchRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil
		}
		if d.IsDir() {
			if d.Name() == ".git" && path != root {
				return filepath.SkipDir
			}
			return w.Add(path)
		}
		return nil
	})
}
