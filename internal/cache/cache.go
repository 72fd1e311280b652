// Package cache stores a local SQLite snapshot of the library, written
// by the sync action. The cache is a disposable copy; the Zotero server
// stays the source of truth.
package cache

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/zpapi/zpapi/internal/zotero"
)

// DBFile is the cache database file name.
const DBFile = "library.db"

// DB wraps the SQLite cache database.
type DB struct {
	db *sql.DB
}

// DefaultPath returns the cache database path under XDG_CACHE_HOME,
// defaulting to ~/.cache/zpapi/library.db.
func DefaultPath() string {
	cacheHome := os.Getenv("XDG_CACHE_HOME")
	if cacheHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		cacheHome = filepath.Join(home, ".cache")
	}
	return filepath.Join(cacheHome, "zpapi", DBFile)
}

// Open opens or creates the cache database at the given path.
func Open(path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening cache database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &DB{db: db}, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

func createSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS items (
			key TEXT PRIMARY KEY,
			version INTEGER NOT NULL,
			data TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS collections (
			key TEXT PRIMARY KEY,
			version INTEGER NOT NULL,
			data TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS sync_meta (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			synced_at TEXT NOT NULL
		);
	`
	_, err := db.Exec(schema)
	return err
}

// ReplaceItems clears the items table and stores the given snapshot.
// Returns the number of items written.
func (d *DB) ReplaceItems(items []zotero.Item) (int, error) {
	return d.replace("items", len(items), func(stmt *sql.Stmt) error {
		for _, item := range items {
			if _, err := stmt.Exec(item.Key, item.Version, string(item.Data)); err != nil {
				return fmt.Errorf("inserting item %s: %w", item.Key, err)
			}
		}
		return nil
	})
}

// ReplaceCollections clears the collections table and stores the given
// snapshot. Returns the number of collections written.
func (d *DB) ReplaceCollections(collections []zotero.Collection) (int, error) {
	return d.replace("collections", len(collections), func(stmt *sql.Stmt) error {
		for _, coll := range collections {
			if _, err := stmt.Exec(coll.Key, coll.Version, string(coll.Data)); err != nil {
				return fmt.Errorf("inserting collection %s: %w", coll.Key, err)
			}
		}
		return nil
	})
}

func (d *DB) replace(table string, count int, insert func(*sql.Stmt) error) (int, error) {
	tx, err := d.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM " + table); err != nil {
		return 0, fmt.Errorf("clearing %s: %w", table, err)
	}

	stmt, err := tx.Prepare("INSERT INTO " + table + " (key, version, data) VALUES (?, ?, ?)")
	if err != nil {
		return 0, fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	if err := insert(stmt); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing: %w", err)
	}
	return count, nil
}

// TouchSync records the time of the last completed sync.
func (d *DB) TouchSync(at time.Time) error {
	_, err := d.db.Exec(
		"INSERT INTO sync_meta (id, synced_at) VALUES (1, ?) ON CONFLICT(id) DO UPDATE SET synced_at = excluded.synced_at",
		at.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("recording sync time: %w", err)
	}
	return nil
}

// LastSync returns the time of the last completed sync, or the zero
// time if the cache has never been synced.
func (d *DB) LastSync() (time.Time, error) {
	var raw string
	err := d.db.QueryRow("SELECT synced_at FROM sync_meta WHERE id = 1").Scan(&raw)
	if err == sql.ErrNoRows {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("reading sync time: %w", err)
	}
	return time.Parse(time.RFC3339, raw)
}

// Counts returns the number of cached items and collections.
func (d *DB) Counts() (items, collections int, err error) {
	if err = d.db.QueryRow("SELECT COUNT(*) FROM items").Scan(&items); err != nil {
		return 0, 0, fmt.Errorf("counting items: %w", err)
	}
	if err = d.db.QueryRow("SELECT COUNT(*) FROM collections").Scan(&collections); err != nil {
		return 0, 0, fmt.Errorf("counting collections: %w", err)
	}
	return items, collections, nil
}
