package index

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // SQLite driver
)

const directorySchema = `
CREATE TABLE IF NOT EXISTS index_documents (
	id   TEXT PRIMARY KEY,
	body TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS index_meta (
	key   TEXT PRIMARY KEY,
	value INTEGER NOT NULL
);
INSERT OR IGNORE INTO index_meta (key, value) VALUES ('generation', 0);
`

// SQLiteDirectory is a durable Directory stored in a SQLite database.
type SQLiteDirectory struct {
	lock
	db   *sql.DB
	path string
}

// NewSQLiteDirectory opens or creates the index database in dataDir.
func NewSQLiteDirectory(dataDir string) (*SQLiteDirectory, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, ioError("creating directory", err)
	}
	path := filepath.Join(dataDir, "index.db")
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, ioError("opening database", err)
	}
	if _, err := db.Exec(directorySchema); err != nil {
		db.Close()
		return nil, ioError("creating schema", err)
	}
	return &SQLiteDirectory{db: db, path: path}, nil
}

// Path returns the database file path.
func (d *SQLiteDirectory) Path() string {
	return d.path
}

func (d *SQLiteDirectory) Generation(ctx context.Context) (int64, error) {
	var gen int64
	err := d.db.QueryRowContext(ctx, "SELECT value FROM index_meta WHERE key = 'generation'").Scan(&gen)
	if err != nil {
		return 0, ioError("reading generation", err)
	}
	return gen, nil
}

func (d *SQLiteDirectory) Documents(ctx context.Context) (map[string]*Document, int64, error) {
	tx, err := d.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, 0, ioError("beginning read", err)
	}
	defer func() { _ = tx.Rollback() }()

	var gen int64
	if err := tx.QueryRowContext(ctx, "SELECT value FROM index_meta WHERE key = 'generation'").Scan(&gen); err != nil {
		return nil, 0, ioError("reading generation", err)
	}
	rows, err := tx.QueryContext(ctx, "SELECT id, body FROM index_documents")
	if err != nil {
		return nil, 0, ioError("reading documents", err)
	}
	defer rows.Close()

	docs := make(map[string]*Document)
	for rows.Next() {
		var id, body string
		if err := rows.Scan(&id, &body); err != nil {
			return nil, 0, ioError("scanning document", err)
		}
		var doc Document
		if err := json.Unmarshal([]byte(body), &doc); err != nil || doc.ID != id {
			return nil, 0, &IndexError{Op: "decoding document " + id, Err: errors.Join(ErrCorruptIndex, err)}
		}
		docs[id] = &doc
	}
	if err := rows.Err(); err != nil {
		return nil, 0, ioError("reading documents", err)
	}
	return docs, gen, nil
}

func (d *SQLiteDirectory) Apply(ctx context.Context, docs []*Document, deletes []string) (int64, error) {
	if len(docs) == 0 && len(deletes) == 0 {
		return d.Generation(ctx)
	}
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, ioError("beginning commit", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, id := range deletes {
		if _, err := tx.ExecContext(ctx, "DELETE FROM index_documents WHERE id = ?", id); err != nil {
			return 0, ioError("deleting document "+id, err)
		}
	}
	for _, doc := range docs {
		body, err := json.Marshal(doc)
		if err != nil {
			return 0, ioError("encoding document "+doc.ID, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO index_documents (id, body) VALUES (?, ?)
			ON CONFLICT(id) DO UPDATE SET body = excluded.body
		`, doc.ID, string(body))
		if err != nil {
			return 0, ioError("storing document "+doc.ID, err)
		}
	}

	var gen int64
	err = tx.QueryRowContext(ctx,
		"UPDATE index_meta SET value = value + 1 WHERE key = 'generation' RETURNING value").Scan(&gen)
	if err != nil {
		return 0, ioError("advancing generation", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, ioError("committing", err)
	}
	return gen, nil
}

// Lock takes the write lock.
func (d *SQLiteDirectory) Lock() (func(), error) {
	return d.acquire()
}

func (d *SQLiteDirectory) Close() error {
	if err := d.db.Close(); err != nil {
		return fmt.Errorf("closing index database: %w", err)
	}
	return nil
}
