package index

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/starford/kmdx/internal/models"
)

// ItemRow represents a row in the items table.
type ItemRow struct {
	Path    string   `json:"path"`
	Ord     int      `json:"ord"`
	Parent  int      `json:"parent"`
	Content string   `json:"content"`
	Tags    []string `json:"tags"`
	Line    int      `json:"line"`
}

// TagCount is the number of items carrying a tag.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

const itemColumns = `i.path, i.ord, i.parent, i.content, i.tags, i.line`

// UpsertResource replaces everything indexed for res.Path within a transaction.
func (db *DB) UpsertResource(res *models.Resource, checksum string, updatedAt time.Time) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, table := range []string{"items", "item_tags", "fragments", "refs"} {
		if _, err := tx.Exec(`DELETE FROM `+table+` WHERE path = ?`, res.Path); err != nil {
			return fmt.Errorf("index: clear %s: %w", table, err)
		}
	}

	_, err = tx.Exec(`
		INSERT INTO files (path, checksum, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			checksum   = excluded.checksum,
			updated_at = excluded.updated_at
	`, res.Path, checksum, updatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert file: %w", err)
	}

	itemStmt, err := tx.Prepare(`INSERT INTO items (path, ord, parent, content, tags, line) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("index: prepare item insert: %w", err)
	}
	defer itemStmt.Close()
	tagStmt, err := tx.Prepare(`INSERT OR IGNORE INTO item_tags (path, ord, tag) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("index: prepare tag insert: %w", err)
	}
	defer tagStmt.Close()
	refStmt, err := tx.Prepare(`INSERT INTO refs (path, ord, name) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("index: prepare ref insert: %w", err)
	}
	defer refStmt.Close()

	for _, it := range res.Items {
		tagsJSON, _ := json.Marshal(it.Tags)
		if _, err := itemStmt.Exec(res.Path, int(it.ID), int(it.Parent), it.Content, string(tagsJSON), it.Line); err != nil {
			return fmt.Errorf("index: insert item: %w", err)
		}
		for _, tag := range it.Tags {
			if _, err := tagStmt.Exec(res.Path, int(it.ID), tag); err != nil {
				return fmt.Errorf("index: insert tag: %w", err)
			}
		}
		for _, fid := range it.Refs {
			if _, err := refStmt.Exec(res.Path, int(it.ID), res.FragmentByID(fid).Name); err != nil {
				return fmt.Errorf("index: insert ref: %w", err)
			}
		}
	}

	for _, f := range res.Fragments {
		if _, err := tx.Exec(`INSERT INTO fragments (path, name, content) VALUES (?, ?, ?)`, res.Path, f.Name, f.Text()); err != nil {
			return fmt.Errorf("index: insert fragment: %w", err)
		}
	}

	return tx.Commit()
}

// DeleteFile removes a file and everything indexed from it.
func (db *DB) DeleteFile(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, table := range []string{"items", "item_tags", "fragments", "refs", "files"} {
		_, _ = tx.Exec(`DELETE FROM `+table+` WHERE path = ?`, path)
	}

	return tx.Commit()
}

// GetChecksum returns the stored checksum for a file, or empty string if not found.
func (db *DB) GetChecksum(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM files WHERE path = ?`, path).Scan(&cs)
	if err != nil {
		return "", nil // not found is fine
	}
	return cs, nil
}

// AllChecksums returns the stored checksum of every indexed file.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM files`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}

// ItemsByTags returns every item carrying all of tags, ordered by path and
// document order.
func (db *DB) ItemsByTags(tags []string) ([]ItemRow, error) {
	if len(tags) == 0 {
		return []ItemRow{}, nil
	}
	args := make([]any, 0, len(tags)+1)
	for _, t := range tags {
		args = append(args, t)
	}
	args = append(args, len(tags))
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(tags)), ",")

	return db.queryItems(`
		SELECT `+itemColumns+`
		FROM items i
		JOIN item_tags t ON t.path = i.path AND t.ord = i.ord
		WHERE t.tag IN (`+placeholders+`)
		GROUP BY i.path, i.ord
		HAVING COUNT(DISTINCT t.tag) = ?
		ORDER BY i.path, i.ord
	`, args...)
}

// FragmentUsers returns the items of path that reference the named fragment,
// one row per reference.
func (db *DB) FragmentUsers(path, name string) ([]ItemRow, error) {
	return db.queryItems(`
		SELECT `+itemColumns+`
		FROM refs r
		JOIN items i ON i.path = r.path AND i.ord = r.ord
		WHERE r.path = ? AND r.name = ?
		ORDER BY i.ord
	`, path, name)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Search returns items whose content contains query literally.
func (db *DB) Search(query string, limit int) ([]ItemRow, error) {
	if limit <= 0 {
		limit = 20
	}
	return db.queryItems(`
		SELECT `+itemColumns+`
		FROM items i
		WHERE i.content LIKE ? ESCAPE '\'
		ORDER BY i.path, i.ord
		LIMIT ?
	`, "%"+likeEscaper.Replace(query)+"%", limit)
}

// Tags returns every indexed tag with its item count.
func (db *DB) Tags() ([]TagCount, error) {
	rows, err := db.conn.Query(`SELECT tag, COUNT(*) FROM item_tags GROUP BY tag ORDER BY tag`)
	if err != nil {
		return nil, fmt.Errorf("index: tags: %w", err)
	}
	defer rows.Close()

	out := []TagCount{}
	for rows.Next() {
		var tc TagCount
		if err := rows.Scan(&tc.Tag, &tc.Count); err != nil {
			return nil, err
		}
		out = append(out, tc)
	}
	return out, rows.Err()
}

func (db *DB) queryItems(query string, args ...any) ([]ItemRow, error) {
	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("index: query items: %w", err)
	}
	defer rows.Close()

	out := []ItemRow{}
	for rows.Next() {
		var r ItemRow
		var tagsJSON string
		if err := rows.Scan(&r.Path, &r.Ord, &r.Parent, &r.Content, &tagsJSON, &r.Line); err != nil {
			return nil, err
		}
		_ = json.Unmarshal([]byte(tagsJSON), &r.Tags)
		out = append(out, r)
	}
	return out, rows.Err()
}
