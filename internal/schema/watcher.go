package schema

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watch reloads schemas whenever files under the schema directory change.
// It blocks until the context is cancelled.
func (l *Loader) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	for _, sub := range []string{"contracts", "artifacts"} {
		dir := filepath.Join(l.dir, sub)
		if err := watcher.Add(dir); err != nil {
			l.logger.Warn("not watching schema directory",
				zap.String("dir", dir), zap.Error(err))
		}
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			l.logger.Info("schema change detected",
				zap.String("file", event.Name),
				zap.String("op", event.Op.String()))
			l.reload()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			l.logger.Warn("schema watcher error", zap.Error(err))
		}
	}
}
