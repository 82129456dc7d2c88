package index

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/kmdx/internal/parser"
	"github.com/starford/kmdx/internal/storage"
)

// EventKind classifies a watcher-driven index change.
type EventKind string

const (
	EventCreated EventKind = "created"
	EventUpdated EventKind = "updated"
	EventDeleted EventKind = "deleted"
)

// Event describes one index mutation caused by a file change.
type Event struct {
	Kind EventKind
	Path string
}

// EventCallback is called after a watcher-driven index change.
type EventCallback func(Event)

// DefaultDebounce delays reconciliation after rename bursts.
const DefaultDebounce = 200 * time.Millisecond

// Watcher keeps the index in sync with a notes directory.
type Watcher struct {
	db       *DB
	store    storage.Provider
	root     string
	logger   *slog.Logger
	debounce time.Duration
	cb       EventCallback
}

// NewWatcher creates a watcher for root. cb may be nil.
func NewWatcher(db *DB, store storage.Provider, root string, debounce time.Duration, logger *slog.Logger, cb EventCallback) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{db: db, store: store, root: root, logger: logger, debounce: debounce, cb: cb}
}

// Run processes file change events until ctx is cancelled.
//
// New directories are added to the watch list as they appear. fsnotify only
// reports the old path of a rename, so renames delete the old entry and
// schedule a debounced reconciliation that indexes whatever is new on disk.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	if err := addDirsRecursive(fw, w.root); err != nil {
		return err
	}
	w.logger.Info("watcher: started", slog.String("root", w.root))

	var timer *time.Timer
	var reconcileCh <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("watcher: stopped")
			return nil

		case <-reconcileCh:
			w.reconcile()

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if w.handle(fw, ev) {
				if timer == nil {
					timer = time.NewTimer(w.debounce)
					reconcileCh = timer.C
				} else {
					timer.Reset(w.debounce)
				}
			}

		case watchErr, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// handle applies one fsnotify event and reports whether a reconciliation
// pass should be scheduled.
func (w *Watcher) handle(fw *fsnotify.Watcher, ev fsnotify.Event) bool {
	if storage.Hidden(filepath.Base(ev.Name)) {
		return false
	}
	if ev.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := addDirsRecursive(fw, ev.Name); err != nil {
				w.logger.Warn("watcher: add new dir failed", slog.String("path", ev.Name), slog.String("error", err.Error()))
			}
			w.indexDir(ev.Name)
			return false
		}
	}
	if !strings.HasSuffix(ev.Name, parser.Extension) {
		return false
	}
	rel, err := filepath.Rel(w.root, ev.Name)
	if err != nil {
		return false
	}

	switch {
	case ev.Op&fsnotify.Create != 0:
		w.reindex(rel, EventCreated)
	case ev.Op&fsnotify.Write != 0:
		w.reindex(rel, EventUpdated)
	case ev.Op&fsnotify.Remove != 0:
		w.remove(rel)
	case ev.Op&fsnotify.Rename != 0:
		w.remove(rel)
		return true
	}
	return false
}

func (w *Watcher) reindex(rel string, kind EventKind) {
	data, err := w.store.Read(rel)
	if err != nil {
		w.logger.Warn("watcher: read failed", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}
	if err := indexFile(w.db, rel, data); err != nil {
		w.logger.Warn("watcher: index failed", slog.String("path", rel), slog.String("error", err.Error()))
		// Rows from the last good parse must not outlive the broken file.
		if known, _ := w.db.GetChecksum(rel); known != "" {
			w.remove(rel)
		}
		return
	}
	w.logger.Debug("watcher: indexed", slog.String("path", rel), slog.String("op", string(kind)))
	w.emit(kind, rel)
}

func (w *Watcher) remove(rel string) {
	if err := w.db.DeleteFile(rel); err != nil {
		w.logger.Warn("watcher: delete failed", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}
	w.logger.Debug("watcher: deleted", slog.String("path", rel))
	w.emit(EventDeleted, rel)
}

// reconcile drops index entries without a file on disk and indexes files
// whose checksum is unknown or stale.
func (w *Watcher) reconcile() {
	checksums, err := w.db.AllChecksums()
	if err != nil {
		w.logger.Warn("reconcile: all checksums failed", slog.String("error", err.Error()))
		return
	}
	metas, err := w.store.List("")
	if err != nil {
		w.logger.Warn("reconcile: list failed", slog.String("error", err.Error()))
		return
	}

	disk := make(map[string]string, len(metas))
	for _, m := range metas {
		disk[m.Path] = m.Checksum
	}
	for p := range checksums {
		if _, ok := disk[p]; !ok {
			w.remove(p)
		}
	}
	for p, cs := range disk {
		if checksums[p] != cs {
			w.reindex(p, EventCreated)
		}
	}
}

// indexDir indexes tagged-markdown files already present in a new directory.
func (w *Watcher) indexDir(dir string) {
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != dir && storage.Hidden(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if storage.Hidden(d.Name()) || !strings.HasSuffix(path, parser.Extension) {
			return nil
		}
		if rel, relErr := filepath.Rel(w.root, path); relErr == nil {
			w.reindex(rel, EventCreated)
		}
		return nil
	})
}

func (w *Watcher) emit(kind EventKind, path string) {
	if w.cb != nil {
		w.cb(Event{Kind: kind, Path: path})
	}
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && storage.Hidden(d.Name()) {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}
