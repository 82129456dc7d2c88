package index

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/starford/kmdx/internal/storage"
)

// watcherTestEnv sets up a notes dir, storage, and DB for watcher tests.
func watcherTestEnv(t *testing.T) (*storage.FS, *DB) {
	t.Helper()
	store, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return store, testDB(t)
}

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func startWatcher(t *testing.T, store *storage.FS, db *DB, cb EventCallback) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	w := NewWatcher(db, store, store.Root(), 50*time.Millisecond, quietLogger(), cb)
	go w.Run(ctx)
	time.Sleep(100 * time.Millisecond)
}

func TestWatcher_NewFileIndexed(t *testing.T) {
	store, db := watcherTestEnv(t)

	var mu sync.Mutex
	var events []Event
	startWatcher(t, store, db, func(ev Event) {
		mu.Lock()
		events = append(events, ev)
		mu.Unlock()
	})

	_ = os.WriteFile(filepath.Join(store.Root(), "new.k.md"), []byte("* (a) new\n"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		cs, _ := db.GetChecksum("new.k.md")
		return cs != ""
	}, "new file not indexed by watcher")

	eventually(t, 2*time.Second, 50*time.Millisecond, func() bool {
		mu.Lock()
		defer mu.Unlock()
		for _, e := range events {
			if e.Kind == EventCreated && e.Path == "new.k.md" {
				return true
			}
		}
		return false
	}, "expected created event for new.k.md")
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	store, db := watcherTestEnv(t)
	startWatcher(t, store, db, nil)

	_ = os.WriteFile(filepath.Join(store.Root(), "plain.md"), []byte("* (a) x\n"), 0o644)
	time.Sleep(300 * time.Millisecond)
	if cs, _ := db.GetChecksum("plain.md"); cs != "" {
		t.Error("plain markdown should not be indexed")
	}
}

func TestWatcher_NewDirWatched(t *testing.T) {
	store, db := watcherTestEnv(t)
	startWatcher(t, store, db, nil)

	subDir := filepath.Join(store.Root(), "subdir")
	_ = os.MkdirAll(subDir, 0o755)
	time.Sleep(200 * time.Millisecond)

	_ = os.WriteFile(filepath.Join(subDir, "deep.k.md"), []byte("* deep\n"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		cs, _ := db.GetChecksum(filepath.Join("subdir", "deep.k.md"))
		return cs != ""
	}, "file in new subdir not indexed by watcher")
}

func TestWatcher_DeleteRemovesFromIndex(t *testing.T) {
	store, db := watcherTestEnv(t)

	_ = os.WriteFile(filepath.Join(store.Root(), "del.k.md"), []byte("* delete me\n"), 0o644)
	_, _ = Sync(db, store, quietLogger())
	if cs, _ := db.GetChecksum("del.k.md"); cs == "" {
		t.Fatal("precondition: file should be indexed")
	}

	startWatcher(t, store, db, nil)
	_ = os.Remove(filepath.Join(store.Root(), "del.k.md"))

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		cs, _ := db.GetChecksum("del.k.md")
		return cs == ""
	}, "deleted file still in index")
}

func TestWatcher_BrokenEditDropsStaleRows(t *testing.T) {
	store, db := watcherTestEnv(t)

	path := filepath.Join(store.Root(), "edit.k.md")
	_ = os.WriteFile(path, []byte("* (keep) first\n"), 0o644)
	_, _ = Sync(db, store, quietLogger())
	if rows, _ := db.ItemsByTags([]string{"keep"}); len(rows) != 1 {
		t.Fatalf("precondition: item should be indexed, got %+v", rows)
	}

	startWatcher(t, store, db, nil)
	_ = os.WriteFile(path, []byte("* a\n    * b\n  * c\n"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		rows, _ := db.ItemsByTags([]string{"keep"})
		cs, _ := db.GetChecksum("edit.k.md")
		return len(rows) == 0 && cs == ""
	}, "rows from the last good parse still indexed")
}

func TestWatcher_RenameReconciles(t *testing.T) {
	store, db := watcherTestEnv(t)

	_ = os.WriteFile(filepath.Join(store.Root(), "old.k.md"), []byte("* rename\n"), 0o644)
	_, _ = Sync(db, store, quietLogger())

	startWatcher(t, store, db, nil)
	_ = os.Rename(filepath.Join(store.Root(), "old.k.md"), filepath.Join(store.Root(), "renamed.k.md"))

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		oldCS, _ := db.GetChecksum("old.k.md")
		newCS, _ := db.GetChecksum("renamed.k.md")
		return oldCS == "" && newCS != ""
	}, "rename reconciliation failed: old path should be removed and new path indexed")
}
