package index

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watch starts an fsnotify watcher on the entries directory and replays
// out-of-band file changes into the index until ctx is cancelled. Entries
// written through the service never reach the index via this path in a
// meaningful way (the replay is idempotent); the watcher exists so edits
// made directly on disk keep the projection honest.
//
// Rename events only report the old path, so a rename schedules a
// debounced full reindex to pick up the new name.
func Watch(ctx context.Context, idx Index, src EntrySource, dataDir string, logger *slog.Logger) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(dataDir); err != nil {
		return err
	}
	logger.Info("watcher: started", slog.String("dir", dataDir))

	var reindexTimer *time.Timer
	var reindexCh <-chan time.Time

	scheduleReindex := func() {
		if reindexTimer == nil {
			reindexTimer = time.NewTimer(200 * time.Millisecond)
			reindexCh = reindexTimer.C
		} else {
			reindexTimer.Reset(200 * time.Millisecond)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reindexTimer != nil {
				reindexTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-reindexCh:
			if err := Reindex(idx, src, logger); err != nil {
				logger.Warn("watcher: reindex failed", slog.String("error", err.Error()))
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			slug := filepath.Base(ev.Name)
			// Ignore temp files from atomic writes and anything that is
			// not a direct child of the entries dir (the media subdir
			// shows up as its own event name).
			if strings.HasPrefix(slug, ".") || filepath.Dir(ev.Name) != dataDir {
				continue
			}

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				doc, loadErr := src.GetEntry(slug)
				if loadErr != nil {
					// Not an entry (media dir creation, stray file).
					continue
				}
				if idxErr := idx.EntryUpdated(slug, doc); idxErr != nil {
					logger.Warn("watcher: index failed", slog.String("slug", slug), slog.String("error", idxErr.Error()))
					continue
				}
				logger.Debug("watcher: indexed", slog.String("slug", slug))

			case ev.Op&fsnotify.Remove != 0:
				if idxErr := idx.EntryDeleted(slug, nil); idxErr != nil {
					logger.Warn("watcher: delete failed", slog.String("slug", slug), slog.String("error", idxErr.Error()))
					continue
				}
				logger.Debug("watcher: deleted", slog.String("slug", slug))

			case ev.Op&fsnotify.Rename != 0:
				if idxErr := idx.EntryDeleted(slug, nil); idxErr != nil {
					logger.Warn("watcher: rename delete failed", slog.String("slug", slug), slog.String("error", idxErr.Error()))
				}
				scheduleReindex()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
