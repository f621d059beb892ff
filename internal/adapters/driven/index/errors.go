package index

import (
	"errors"
	"fmt"
)

var (
	// ErrCorruptIndex indicates stored index data or a log file could not be decoded.
	ErrCorruptIndex = errors.New("corrupt index")

	// ErrUnsupportedOperation is returned by read-only transaction logs.
	ErrUnsupportedOperation = errors.New("unsupported operation")

	// ErrLocked indicates another writer holds the directory.
	ErrLocked = errors.New("index directory is locked")

	// ErrClosed indicates the index has been closed.
	ErrClosed = errors.New("index is closed")
)

// IndexError is an I/O failure of an index directory or writer.
type IndexError struct { //nolint:revive
	Op  string
	Err error
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("index %s: %v", e.Op, e.Err)
}

func (e *IndexError) Unwrap() error { return e.Err }

// IndexTransactionError is a failure to log, apply or recover a transaction.
type IndexTransactionError struct { //nolint:revive
	TransactionID string
	Err           error
}

func (e *IndexTransactionError) Error() string {
	if e.TransactionID == "" {
		return fmt.Sprintf("index transaction: %v", e.Err)
	}
	return fmt.Sprintf("index transaction %s: %v", e.TransactionID, e.Err)
}

func (e *IndexTransactionError) Unwrap() error { return e.Err }

func ioError(op string, err error) error {
	if err == nil {
		return nil
	}
	var ie *IndexError
	if errors.As(err, &ie) {
		return err
	}
	return &IndexError{Op: op, Err: err}
}
