package index

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
)

const (
	logSuffix  = ".txlog"
	logPattern = "**/*" + logSuffix
)

// FSIndexTransactionService stores transaction logs as files so that
// transactions not yet flushed to the durable index survive a restart.
type FSIndexTransactionService struct {
	dir string
}

// NewFSIndexTransactionService stores logs below dir.
func NewFSIndexTransactionService(dir string) (*FSIndexTransactionService, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, &IndexTransactionError{Err: fmt.Errorf("creating log directory: %w", err)}
	}
	return &FSIndexTransactionService{dir: dir}, nil
}

// Dir returns the log directory.
func (s *FSIndexTransactionService) Dir() string {
	return s.dir
}

func (s *FSIndexTransactionService) path(txID string) string {
	return filepath.Join(s.dir, txID+logSuffix)
}

// Write persists tx. The file appears atomically.
func (s *FSIndexTransactionService) Write(tx *Transaction) error {
	data, err := json.Marshal(tx)
	if err != nil {
		return &IndexTransactionError{TransactionID: tx.ID, Err: err}
	}
	tmp, err := os.CreateTemp(s.dir, tx.ID+".*.tmp")
	if err != nil {
		return &IndexTransactionError{TransactionID: tx.ID, Err: err}
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return &IndexTransactionError{TransactionID: tx.ID, Err: err}
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return &IndexTransactionError{TransactionID: tx.ID, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &IndexTransactionError{TransactionID: tx.ID, Err: err}
	}
	if err := os.Rename(tmp.Name(), s.path(tx.ID)); err != nil {
		return &IndexTransactionError{TransactionID: tx.ID, Err: err}
	}
	return nil
}

// Remove deletes the logs of committed transactions. Missing logs are
// ignored.
func (s *FSIndexTransactionService) Remove(txIDs ...string) error {
	var errs []error
	for _, id := range txIDs {
		if err := os.Remove(s.path(id)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, &IndexTransactionError{TransactionID: id, Err: err})
		}
	}
	return errors.Join(errs...)
}

// RecoverFiles returns every log file below the directory, oldest first.
func (s *FSIndexTransactionService) RecoverFiles() ([]string, error) {
	matches, err := doublestar.Glob(os.DirFS(s.dir), logPattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, &IndexTransactionError{Err: fmt.Errorf("scanning %s: %w", s.dir, err)}
	}
	sort.Slice(matches, func(i, j int) bool {
		return filepath.Base(matches[i]) < filepath.Base(matches[j])
	})
	paths := make([]string, 0, len(matches))
	for _, m := range matches {
		paths = append(paths, filepath.Join(s.dir, filepath.FromSlash(m)))
	}
	return paths, nil
}

// HasUncommitted reports whether any log file is left.
func (s *FSIndexTransactionService) HasUncommitted() (bool, error) {
	files, err := s.RecoverFiles()
	return len(files) > 0, err
}

// Read loads a log file.
func (s *FSIndexTransactionService) Read(path string) (*Transaction, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &IndexTransactionError{Err: err}
	}
	var tx Transaction
	if err := json.Unmarshal(data, &tx); err != nil || tx.ID == "" {
		return nil, &IndexTransactionError{
			Err: fmt.Errorf("%w: log %s: %v", ErrCorruptIndex, filepath.Base(path), err),
		}
	}
	return &tx, nil
}

// RemoveFile deletes a log file found by RecoverFiles.
func (s *FSIndexTransactionService) RemoveFile(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return &IndexTransactionError{Err: err}
	}
	return nil
}
