package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/thiagokokada/pushhooks/internal/debounce"
)

// DefaultPublishDelay coalesces the events of one feed rewrite.
const DefaultPublishDelay = 500 * time.Millisecond

// Watcher republishes whenever one of Files in Dir changes.
type Watcher struct {
	Dir       string
	Files     []string
	Publisher Publisher
	Delay     time.Duration
}

// Run watches until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("fsnotify: %w", err)
	}
	// Watch the directory: files replaced by rename keep being tracked.
	slog.Debug("adding path to FS watcher", slog.String("path", w.Dir))
	if err := fsw.Add(w.Dir); err != nil {
		err := errors.Join(err, fsw.Close())
		return fmt.Errorf("watch %s: %w", w.Dir, err)
	}
	defer func() {
		if err := fsw.Close(); err != nil {
			slog.Error("watcher close", slog.Any("error", err))
		}
	}()

	delay := w.Delay
	if delay <= 0 {
		delay = DefaultPublishDelay
	}
	var d *debounce.Debouncer
	debounce.Ensure(&d, delay, func() {
		if err := w.Publisher.Publish(ctx); err != nil {
			slog.Error("feed publish failed", slog.Any("error", err))
			return
		}
		slog.Info("feed published", slog.String("dir", w.Dir))
	})
	defer d.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if !slices.Contains(w.Files, filepath.Base(ev.Name)) {
				continue
			}
			slog.Debug("fsnotify event",
				slog.String("op", ev.Op.String()),
				slog.String("path", ev.Name),
			)
			d.Trigger()
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			slog.Error("fsnotify error", slog.Any("error", err))
		}
	}
}
