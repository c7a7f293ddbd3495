// Package store keeps compiled objects in an SQLite library so the linker
// can pick them up by build ID or by segment name.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/chazu/avm/object"
	"github.com/tliron/commonlog"
	_ "modernc.org/sqlite"
)

// ErrNotFound indicates the requested object doesn't exist.
var ErrNotFound = errors.New("object not found")

var log = commonlog.GetLogger("avm.store")

// Entry describes a stored object without decoding it.
type Entry struct {
	ID      string
	Name    string
	Created int64
	Size    int
}

// Library is an SQLite-backed object library.
type Library struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
}

// Open opens or creates the library at path. The parent directory is
// created if needed.
func Open(path string) (*Library, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating library directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening library: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS objects (
		id      TEXT PRIMARY KEY,
		name    TEXT NOT NULL,
		created INTEGER NOT NULL,
		data    BLOB NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating table: %w", err)
	}

	log.Debugf("opened object library %s", path)
	return &Library{db: db, path: path}, nil
}

// Path returns the database file the library was opened from.
func (l *Library) Path() string { return l.path }

// Put stores obj under its build ID and returns that ID.
func (l *Library) Put(ctx context.Context, obj *object.Object) (string, error) {
	data, err := object.Marshal(obj)
	if err != nil {
		return "", fmt.Errorf("encoding %s: %w", obj.Name, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	_, err = l.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO objects (id, name, created, data) VALUES (?, ?, ?, ?)",
		obj.BuildID, obj.Name, obj.Created, data)
	if err != nil {
		return "", fmt.Errorf("storing %s: %w", obj.Name, err)
	}
	log.Infof("stored %s as %s (%d bytes)", obj.Name, obj.BuildID, len(data))
	return obj.BuildID, nil
}

// Get loads the object with the given build ID.
func (l *Library) Get(ctx context.Context, id string) (*object.Object, error) {
	return l.load(ctx, "SELECT data FROM objects WHERE id = ?", id)
}

// Latest loads the most recently stored object compiled from the named
// segment.
func (l *Library) Latest(ctx context.Context, name string) (*object.Object, error) {
	return l.load(ctx,
		"SELECT data FROM objects WHERE name = ? ORDER BY created DESC, rowid DESC LIMIT 1", name)
}

func (l *Library) load(ctx context.Context, query, arg string) (*object.Object, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var data []byte
	err := l.db.QueryRowContext(ctx, query, arg).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", arg, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", arg, err)
	}
	return object.Unmarshal(data)
}

// List returns every stored object, newest first.
func (l *Library) List(ctx context.Context) ([]Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rows, err := l.db.QueryContext(ctx,
		"SELECT id, name, created, length(data) FROM objects ORDER BY created DESC, rowid DESC")
	if err != nil {
		return nil, fmt.Errorf("listing objects: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Name, &e.Created, &e.Size); err != nil {
			return nil, fmt.Errorf("scanning object row: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Delete removes an object. Deleting a missing ID reports ErrNotFound.
func (l *Library) Delete(ctx context.Context, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	res, err := l.db.ExecContext(ctx, "DELETE FROM objects WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return nil
}

// Close closes the database connection.
func (l *Library) Close() error {
	if l.db != nil {
		return l.db.Close()
	}
	return nil
}
