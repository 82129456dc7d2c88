package index

import (
	"log/slog"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/starford/kmdx/internal/models"
	"github.com/starford/kmdx/internal/parser"
	"github.com/starford/kmdx/internal/storage"
)

// SyncStats counts what a Sync pass changed.
type SyncStats struct {
	Indexed   int
	Unchanged int
	Failed    int
	Removed   int
}

type parsed struct {
	res      *models.Resource
	checksum string
	err      error
}

// Sync brings the index in line with the notes directory. Documents whose
// checksum changed are parsed concurrently and written in one pass; rows for
// documents gone from disk are deleted. A document that fails to read or
// parse is logged, counted as failed and its previously indexed rows are
// dropped.
func Sync(db *DB, store storage.Provider, logger *slog.Logger) (SyncStats, error) {
	var stats SyncStats

	metas, err := store.List("")
	if err != nil {
		return stats, err
	}
	known, err := db.AllChecksums()
	if err != nil {
		return stats, err
	}

	var stale []models.FileMetadata
	present := make(map[string]bool, len(metas))
	for _, m := range metas {
		present[m.Path] = true
		if known[m.Path] == m.Checksum {
			stats.Unchanged++
			continue
		}
		stale = append(stale, m)
	}

	results := make([]parsed, len(stale))
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, m := range stale {
		g.Go(func() error {
			data, err := store.Read(m.Path)
			if err != nil {
				results[i].err = err
				return nil
			}
			results[i].checksum = storage.Checksum(data)
			results[i].res, results[i].err = parser.ParseFile(m.Path, data)
			return nil
		})
	}
	_ = g.Wait()

	now := time.Now()
	for i, r := range results {
		path := stale[i].Path
		if r.err == nil {
			r.err = db.UpsertResource(r.res, r.checksum, now)
		}
		if r.err != nil {
			stats.Failed++
			logger.Warn("sync: index failed", slog.String("path", path), slog.String("error", r.err.Error()))
			if _, ok := known[path]; ok {
				if err := db.DeleteFile(path); err != nil {
					logger.Warn("sync: delete failed", slog.String("path", path), slog.String("error", err.Error()))
				}
			}
			continue
		}
		stats.Indexed++
		logger.Debug("sync: indexed", slog.String("path", path))
	}

	for p := range known {
		if present[p] {
			continue
		}
		if err := db.DeleteFile(p); err != nil {
			logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			continue
		}
		stats.Removed++
		logger.Debug("sync: removed stale", slog.String("path", p))
	}

	return stats, nil
}

// indexFile parses one document and upserts it.
func indexFile(db *DB, path string, data []byte) error {
	res, err := parser.ParseFile(path, data)
	if err != nil {
		return err
	}
	return db.UpsertResource(res, storage.Checksum(data), time.Now())
}
