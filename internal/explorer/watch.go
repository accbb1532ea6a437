package explorer

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads the snapshot whenever the dataset file changes on disk.
// The parent directory is watched rather than the file itself, so editors
// and pipelines that replace the file wholesale (write a temp file, rename
// it over the target) keep triggering events. Bursts of events collapse
// into one reload per debounce window. Blocks until ctx is done.
func (e *Explorer) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create dataset watcher: %w", err)
	}
	defer watcher.Close()

	target, err := filepath.Abs(e.cfg.DatasetPath)
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(target), err)
	}
	log.Printf("Watching %s for changes", e.cfg.DatasetPath)

	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			log.Println("Dataset watcher stopped")
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			pending = time.After(e.cfg.ReloadDebounce)

		case <-pending:
			pending = nil
			e.Reload(ctx)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("Warning: dataset watcher error: %v", err)
		}
	}
}
