package internal

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/kmdx/internal/apperr"
	"github.com/starford/kmdx/internal/filter"
	"github.com/starford/kmdx/internal/index"
	"github.com/starford/kmdx/internal/models"
	"github.com/starford/kmdx/internal/parser"
	"github.com/starford/kmdx/internal/reproduce"
	"github.com/starford/kmdx/internal/storage"
	"github.com/starford/kmdx/internal/summary"
)

// Extract parses source, selects the items matching query and writes the
// regenerated document to output. Nothing is written unless every step
// succeeds.
func Extract(_ context.Context, source, query, output string, opts ...Option) error {
	app := newApplication(os.Stdout, opts)

	if _, err := os.Stat(source); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("source %s: %w", source, apperr.ErrNotFound)
		}
		return fmt.Errorf("source %s: %w", source, err)
	}
	if samePath(source, output) {
		return fmt.Errorf("%w: %s", apperr.ErrSamePath, output)
	}
	if err := parser.CheckExtension(source); err != nil {
		return err
	}

	data, err := os.ReadFile(source)
	if err != nil {
		return fmt.Errorf("read %s: %w", source, err)
	}
	res, err := parser.ParseFile(source, data)
	if err != nil {
		return fmt.Errorf("parse %s: %w", source, err)
	}
	refs, err := filter.Select(query, []*models.Resource{res})
	if err != nil {
		return err
	}
	if len(refs) == 0 {
		return fmt.Errorf("%w: `%s`", apperr.ErrNoMatches, query)
	}

	if err := storage.WriteFileAtomic(output, []byte(reproduce.Render(refs))); err != nil {
		return err
	}
	app.logger.Info("extract: written",
		slog.String("source", source),
		slog.String("output", output),
		slog.String("filter", query),
		slog.Int("items", len(refs)))
	return nil
}

func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return absA == absB
}

// Summary prints the statistics report for a single document or for every
// document under a directory.
func Summary(_ context.Context, path string, opts ...Option) error {
	app := newApplication(os.Stdout, opts)

	resources, err := loadPath(path)
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(app.out, summary.Compute(resources).Markdown())
	return err
}

// loadPath parses path, which may be a document or a directory of them.
func loadPath(path string) ([]*models.Resource, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, apperr.ErrNotFound)
		}
		return nil, err
	}
	if !info.IsDir() {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		res, err := parser.ParseFile(path, data)
		if err != nil {
			return nil, err
		}
		return []*models.Resource{res}, nil
	}

	store, err := storage.NewFS(path)
	if err != nil {
		return nil, err
	}
	metas, err := store.List("")
	if err != nil {
		return nil, err
	}
	out := make([]*models.Resource, 0, len(metas))
	for _, m := range metas {
		data, err := store.Read(m.Path)
		if err != nil {
			return nil, err
		}
		res, err := parser.ParseFile(m.Path, data)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", m.Path, err)
		}
		out = append(out, res)
	}
	return out, nil
}

// Index syncs every document under dir into the SQLite database at dbPath.
func Index(_ context.Context, dir, dbPath string, opts ...Option) error {
	app := newApplication(os.Stdout, opts)

	store, err := storage.NewFS(dir)
	if err != nil {
		return err
	}
	db, err := index.Open(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	stats, err := index.Sync(db, store, app.logger)
	if err != nil {
		return err
	}
	app.logger.Info("index: synced",
		slog.String("dir", dir),
		slog.Int("indexed", stats.Indexed),
		slog.Int("unchanged", stats.Unchanged),
		slog.Int("failed", stats.Failed),
		slog.Int("removed", stats.Removed))
	return nil
}

// Query prints the indexed items carrying every tag of query, one per line.
func Query(_ context.Context, query, dbPath string, opts ...Option) error {
	app := newApplication(os.Stdout, opts)

	tags := filter.ParseQuery(query)
	if len(tags) == 0 {
		return apperr.ErrNoFilter
	}
	db, err := index.Open(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	rows, err := db.ItemsByTags(tags)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("%w: `%s`", apperr.ErrNoMatches, query)
	}
	for _, r := range rows {
		fmt.Fprintf(app.out, "%s:%d\t%s\t(%s)\n", r.Path, r.Line, r.Content, strings.Join(r.Tags, ", "))
	}
	return nil
}
