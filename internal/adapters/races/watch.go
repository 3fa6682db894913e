package races

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/longcourse/agegrade/pkg/logger"
)

// Watch reloads the catalog whenever the races document changes on disk.
// It watches the containing directory rather than the file itself so the
// atomic write-temp-then-rename pattern used by the maintenance tooling
// still triggers a reload. Watch blocks until ctx is done.
func (c *Catalog) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(c.path)); err != nil {
		return err
	}

	target := filepath.Clean(c.path)
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if err := c.Load(ctx); err != nil {
				// Keep serving the previous catalog on a bad write.
				c.log.Warn(ctx, "race catalog reload failed", logger.Error(err))
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			c.log.Warn(ctx, "race catalog watch error", logger.Error(err))
		}
	}
}
