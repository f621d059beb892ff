package index

import (
	"context"
	"sync"
)

// Directory stores the documents of one index. Every Apply that changes the
// directory advances its generation. At most one writer holds the lock.
type Directory interface {
	// Generation returns the number of committed changes.
	Generation(ctx context.Context) (int64, error)

	// Documents returns a copy of every stored document and the generation it
	// was read at.
	Documents(ctx context.Context) (map[string]*Document, int64, error)

	// Apply atomically deletes ids and stores docs, deletes first.
	Apply(ctx context.Context, docs []*Document, deletes []string) (int64, error)

	// Lock takes the exclusive write lock and returns its release function.
	// It fails with ErrLocked when the lock is held.
	Lock() (func(), error)

	// Close releases resources.
	Close() error
}

// lock is the exclusive write lock shared by directory implementations.
type lock struct {
	mu   sync.Mutex
	held bool
}

func (l *lock) acquire() (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held {
		return nil, ErrLocked
	}
	l.held = true
	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			l.held = false
			l.mu.Unlock()
		})
	}, nil
}

// MemoryDirectory is a Directory held in memory.
type MemoryDirectory struct {
	lock
	mu     sync.RWMutex
	docs   map[string]*Document
	gen    int64
	closed bool
}

// NewMemoryDirectory creates an empty directory.
func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{docs: make(map[string]*Document)}
}

func (d *MemoryDirectory) Generation(_ context.Context) (int64, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return 0, ErrClosed
	}
	return d.gen, nil
}

func (d *MemoryDirectory) Documents(_ context.Context) (map[string]*Document, int64, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return nil, 0, ErrClosed
	}
	docs := make(map[string]*Document, len(d.docs))
	for id, doc := range d.docs {
		docs[id] = doc.Clone()
	}
	return docs, d.gen, nil
}

func (d *MemoryDirectory) Apply(_ context.Context, docs []*Document, deletes []string) (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return 0, ErrClosed
	}
	if len(docs) == 0 && len(deletes) == 0 {
		return d.gen, nil
	}
	for _, id := range deletes {
		delete(d.docs, id)
	}
	for _, doc := range docs {
		d.docs[doc.ID] = doc.Clone()
	}
	d.gen++
	return d.gen, nil
}

// Lock takes the write lock.
func (d *MemoryDirectory) Lock() (func(), error) {
	return d.acquire()
}

// Len returns the number of stored documents.
func (d *MemoryDirectory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.docs)
}

func (d *MemoryDirectory) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}
