package sqlite

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/xcmis/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/xcmis/internal/core/domain"
	"github.com/custodia-labs/xcmis/internal/core/ports/driven"
)

// Store is a SQLite-based repository that provides access to the node and
// type stores through wrapper types.
type Store struct {
	db     *sql.DB
	path   string
	rootID string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.xcmis/data/repository.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".xcmis", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "repository.db")

	// WAL lets readers proceed while a transaction writes
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	if err := s.ensureRoot(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating root node: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// NodeStore returns a NodeStore interface backed by this store.
func (s *Store) NodeStore() driven.NodeStore {
	return &nodeStore{store: s}
}

// TypeStore returns a TypeStore interface backed by this store.
func (s *Store) TypeStore() driven.TypeStore {
	return &typeStore{store: s}
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_initial.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}

		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// ensureRoot creates the root folder node on first open.
func (s *Store) ensureRoot() error {
	var id string
	err := s.db.QueryRow("SELECT id FROM nodes WHERE parent_id IS NULL").Scan(&id)
	switch {
	case err == nil:
		s.rootID = id
		return nil
	case !errors.Is(err, sql.ErrNoRows):
		return err
	}

	id = uuid.NewString()
	_, err = s.db.Exec(`
		INSERT INTO nodes (id, parent_id, name, primary_type)
		VALUES (?, NULL, ?, ?)
	`, id, domain.RootFolderName, string(domain.BaseTypeFolder))
	if err != nil {
		return err
	}
	s.rootID = id
	return nil
}

// mapError translates SQLite failures into domain errors.
func mapError(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	var cmis *domain.CmisError
	if errors.As(err, &cmis) {
		return err
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed: nodes.parent_id, nodes.name"):
		return domain.NameConstraintf("%s: name already in use", fmt.Sprintf(format, args...))
	case strings.Contains(msg, "SQLITE_BUSY"), strings.Contains(msg, "database is locked"):
		return &domain.CmisError{Kind: domain.ErrUpdateConflict, Message: fmt.Sprintf(format, args...), Err: err}
	default:
		return domain.StorageError(err, format, args...)
	}
}
