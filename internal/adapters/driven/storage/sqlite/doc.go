// Package sqlite provides a SQLite-based implementation of the repository ports.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. It implements two store interfaces
// through a single database connection:
//
//   - NodeStore: Repository nodes, references and version histories
//   - TypeStore: Custom type definitions
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
//
// # Concurrency
//
// Node revisions are checked and bumped when a transaction commits. A
// transaction that lost a race, either on a revision or on SQLite's write
// lock, fails with domain.ErrUpdateConflict.
//
// # Data Location
//
// By default, the database is stored at ~/.xcmis/data/repository.db
package sqlite
