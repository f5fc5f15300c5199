package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// docDB is the document row store shared by every collection of a local
// store. One sqlite database holds content and metadata; vectors live in the
// per-collection HNSW indexes.
type docDB struct {
	db *sql.DB
}

const docSchema = `
CREATE TABLE IF NOT EXISTS items (
	collection TEXT NOT NULL,
	id         TEXT NOT NULL,
	content    TEXT NOT NULL,
	metadata   TEXT NOT NULL,
	PRIMARY KEY (collection, id)
);
`

// openDocDB opens (creating if needed) the sqlite document store at path.
func openDocDB(path string) (*docDB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	// WAL allows a concurrent reader (log viewer, status command) without
	// blocking writes.
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", p, err)
		}
	}

	if _, err := db.Exec(docSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &docDB{db: db}, nil
}

func (d *docDB) close() error {
	return d.db.Close()
}

// upsert inserts or replaces items in one transaction.
func (d *docDB) upsert(ctx context.Context, collection string, items []Item) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO items (collection, id, content, metadata) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, item := range items {
		meta, err := json.Marshal(item.Metadata)
		if err != nil {
			return fmt.Errorf("encode metadata for %s: %w", item.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, collection, item.ID, item.Content, string(meta)); err != nil {
			return fmt.Errorf("upsert item %s: %w", item.ID, err)
		}
	}
	return tx.Commit()
}

// updateMetadata replaces the metadata column of one row. Reports
// sql.ErrNoRows when the row does not exist.
func (d *docDB) updateMetadata(ctx context.Context, collection, id string, metadata map[string]any) error {
	meta, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("encode metadata for %s: %w", id, err)
	}
	res, err := d.db.ExecContext(ctx,
		`UPDATE items SET metadata = ? WHERE collection = ? AND id = ?`,
		string(meta), collection, id)
	if err != nil {
		return fmt.Errorf("update metadata for %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// get fetches rows by id. Missing ids are simply absent from the result.
func (d *docDB) get(ctx context.Context, collection string, ids []string) ([]Item, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, 0, len(ids)+1)
	args = append(args, collection)
	for _, id := range ids {
		args = append(args, id)
	}

	rows, err := d.db.QueryContext(ctx,
		`SELECT id, content, metadata FROM items WHERE collection = ? AND id IN (`+placeholders+`)`,
		args...)
	if err != nil {
		return nil, fmt.Errorf("get items: %w", err)
	}
	defer rows.Close()
	return scanItems(rows)
}

// scan returns rows of a collection matching the predicates, up to limit
// (0 = all). Predicates are evaluated in Go against the decoded metadata.
func (d *docDB) scan(ctx context.Context, collection string, where Where, filter *DocFilter, limit int) ([]Item, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT id, content, metadata FROM items WHERE collection = ? ORDER BY id`, collection)
	if err != nil {
		return nil, fmt.Errorf("scan items: %w", err)
	}
	defer rows.Close()

	var out []Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		if !where.Matches(item.Metadata) || !filter.MatchesContent(item.Content) {
			continue
		}
		out = append(out, item)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, rows.Err()
}

// delete removes rows by id and reports how many existed.
func (d *docDB) delete(ctx context.Context, collection string, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, 0, len(ids)+1)
	args = append(args, collection)
	for _, id := range ids {
		args = append(args, id)
	}

	res, err := d.db.ExecContext(ctx,
		`DELETE FROM items WHERE collection = ? AND id IN (`+placeholders+`)`, args...)
	if err != nil {
		return 0, fmt.Errorf("delete items: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// count returns the number of rows in a collection.
func (d *docDB) count(ctx context.Context, collection string) (int, error) {
	var n int
	err := d.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM items WHERE collection = ?`, collection).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count items: %w", err)
	}
	return n, nil
}

// dropCollection removes every row of a collection.
func (d *docDB) dropCollection(ctx context.Context, collection string) error {
	_, err := d.db.ExecContext(ctx, `DELETE FROM items WHERE collection = ?`, collection)
	if err != nil {
		return fmt.Errorf("drop collection %s: %w", collection, err)
	}
	return nil
}

// collections lists the distinct collection names present.
func (d *docDB) collections(ctx context.Context) ([]string, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT DISTINCT collection FROM items ORDER BY collection`)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func scanItems(rows *sql.Rows) ([]Item, error) {
	var out []Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func scanItem(rows *sql.Rows) (Item, error) {
	var item Item
	var meta string
	if err := rows.Scan(&item.ID, &item.Content, &meta); err != nil {
		return Item{}, fmt.Errorf("scan row: %w", err)
	}
	if err := json.Unmarshal([]byte(meta), &item.Metadata); err != nil {
		return Item{}, fmt.Errorf("decode metadata for %s: %w", item.ID, err)
	}
	return item, nil
}
