package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/radutopala/toolcatalog/internal/loader"
)

// Watch rebuilds the index whenever the source's files change, until ctx
// is cancelled. Bursts of events are collapsed into one rebuild after the
// debounce interval. Rebuild failures are logged and the previous index is
// kept.
func (c *Catalog) Watch(ctx context.Context) error {
	w, ok := c.source.(loader.Watchable)
	if !ok {
		return ErrNotWatchable
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	for _, path := range w.WatchPaths() {
		if err := watcher.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
	}
	c.logger.Info("watching for record changes",
		zap.Strings("paths", w.WatchPaths()),
		zap.Duration("debounce", c.debounce),
	)

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			c.logger.Warn("record watcher error", zap.Error(err))
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op == fsnotify.Chmod || !w.Relevant(event.Name) {
				continue
			}
			c.logger.Debug("record change", zap.String("path", event.Name), zap.String("op", event.Op.String()))
			if timer == nil {
				timer = time.NewTimer(c.debounce)
				continue
			}
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(c.debounce)
		case <-timerChan(timer):
			timer = nil
			// Errors are logged and counted by Reload.
			_ = c.Reload(ctx)
		}
	}
}

func timerChan(timer *time.Timer) <-chan time.Time {
	if timer == nil {
		return nil
	}
	return timer.C
}
