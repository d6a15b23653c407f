package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// DefaultDebounce is how long Watch waits for writes to settle.
const DefaultDebounce = 500 * time.Millisecond

// ChangeFunc handles a batch of changed files.
type ChangeFunc func(ctx context.Context, changed []string) error

// Watch monitors the given files and calls onChange once writes to them have
// settled for debounce. The parent directories are watched so that editors
// replacing a file atomically are still noticed. Errors from onChange are
// logged and do not stop the loop. Blocks until the context is cancelled.
func Watch(ctx context.Context, files []string, debounce time.Duration, onChange ChangeFunc, log *logrus.Logger) error {
	if len(files) == 0 {
		return fmt.Errorf("no files to watch")
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	targets := make(map[string]struct{}, len(files))
	dirs := make(map[string]struct{})
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			return fmt.Errorf("resolving %s: %w", f, err)
		}
		targets[abs] = struct{}{}
		dirs[filepath.Dir(abs)] = struct{}{}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("watching %s: %w", dir, err)
		}
	}

	changed := make(map[string]struct{})
	batchTimer := time.NewTimer(debounce)
	batchTimer.Stop()
	defer batchTimer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !relevant(event) {
				continue
			}
			name := filepath.Clean(event.Name)
			if _, ok := targets[name]; !ok {
				continue
			}

			changed[name] = struct{}{}
			batchTimer.Reset(debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.WithError(err).Warn("Watch error")

		case <-batchTimer.C:
			if len(changed) == 0 {
				continue
			}

			batch := make([]string, 0, len(changed))
			for name := range changed {
				batch = append(batch, name)
			}
			sort.Strings(batch)
			changed = make(map[string]struct{})

			log.WithField("files", batch).Info("Input changed, rebuilding")
			if err := onChange(ctx, batch); err != nil {
				log.WithError(err).Error("Rebuild failed")
			}
		}
	}
}

func relevant(event fsnotify.Event) bool {
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename)
}
