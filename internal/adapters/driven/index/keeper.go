package index

import (
	"context"
	"fmt"
	"sync"

	"github.com/custodia-labs/xcmis/internal/logger"
)

// ModificationReport lists the documents changed by ReducibleKeeper.Save.
type ModificationReport struct {
	Added   []string
	Updated []string
	Removed []string
}

// IsEmpty returns true if nothing changed.
func (r *ModificationReport) IsEmpty() bool {
	return len(r.Added) == 0 && len(r.Updated) == 0 && len(r.Removed) == 0
}

// ReducibleKeeper is an in-memory index over a directory. Committed holds
// every document visible in the keeper; pending holds the ones not yet
// written to the directory. Writers run under the keeper mutex with a
// SerialMergeScheduler; readers are snapshots.
type ReducibleKeeper struct {
	mu        sync.Mutex
	dir       Directory
	committed map[string]*Document
	pending   map[string]*Document
	log       TransactionLog
	reader    *IndexReader
}

// NewReducibleKeeper creates a keeper. The maps are owned by the keeper.
func NewReducibleKeeper(dir Directory, committed, pending map[string]*Document, log TransactionLog) *ReducibleKeeper {
	if committed == nil {
		committed = make(map[string]*Document)
	}
	if pending == nil {
		pending = make(map[string]*Document)
	}
	if log == nil {
		log = NewSimpleTransactionLog(nil)
	}
	return &ReducibleKeeper{dir: dir, committed: committed, pending: pending, log: log}
}

// Directory returns the keeper's directory.
func (k *ReducibleKeeper) Directory() Directory { return k.dir }

// TransactionLog returns the log of the transactions in the keeper.
func (k *ReducibleKeeper) TransactionLog() TransactionLog { return k.log }

// NumDocs returns the number of documents visible in the keeper.
func (k *ReducibleKeeper) NumDocs() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.committed)
}

// NumPending returns the number of documents not yet written to the
// directory.
func (k *ReducibleKeeper) NumPending() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.pending)
}

// Documents returns the committed documents.
func (k *ReducibleKeeper) Documents() map[string]*Document {
	k.mu.Lock()
	defer k.mu.Unlock()
	out := make(map[string]*Document, len(k.committed))
	for id, doc := range k.committed {
		out[id] = doc
	}
	return out
}

// Holds reports whether every updated and removed document of tx is in the
// keeper and tx adds nothing.
func (k *ReducibleKeeper) Holds(tx *Transaction) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	if len(tx.Added) > 0 {
		return false
	}
	for _, d := range tx.Updated {
		if _, ok := k.committed[d.ID]; !ok {
			return false
		}
	}
	for _, id := range tx.Removed {
		if _, ok := k.committed[id]; !ok {
			return false
		}
	}
	return true
}

func (k *ReducibleKeeper) openWriter() (*IndexWriter, error) {
	return NewIndexWriter(k.dir, WriterConfig{MergeScheduler: SerialMergeScheduler{}})
}

// Save applies the removals and updates of tx. Removed documents that were
// already written to the directory are deleted from it; updated documents
// are written through. The buffers change only after the directory commit
// succeeds.
func (k *ReducibleKeeper) Save(ctx context.Context, tx *Transaction) (*ModificationReport, error) {
	if len(tx.Added) > 0 {
		return nil, &IndexTransactionError{TransactionID: tx.ID, Err: fmt.Errorf("save: additions: %w", ErrUnsupportedOperation)}
	}
	k.mu.Lock()
	defer k.mu.Unlock()

	report := &ModificationReport{}
	var deletes []string
	for _, id := range tx.Removed {
		if _, ok := k.committed[id]; !ok {
			continue
		}
		report.Removed = append(report.Removed, id)
		if _, unflushed := k.pending[id]; !unflushed {
			deletes = append(deletes, id)
		}
	}
	for _, d := range tx.Updated {
		report.Updated = append(report.Updated, d.ID)
	}

	if len(deletes) > 0 || len(tx.Updated) > 0 {
		w, err := k.openWriter()
		if err != nil {
			return nil, err
		}
		defer w.Close()
		for _, id := range deletes {
			if err := w.DeleteDocument(id); err != nil {
				return nil, err
			}
		}
		for _, d := range tx.Updated {
			if err := w.UpdateDocument(d); err != nil {
				return nil, err
			}
		}
		if err := w.Commit(ctx); err != nil {
			return nil, err
		}
	}

	for _, id := range report.Removed {
		delete(k.committed, id)
		delete(k.pending, id)
	}
	for _, d := range tx.Updated {
		k.committed[d.ID] = d.Clone()
		delete(k.pending, d.ID)
	}
	return report, nil
}

// IndexReader returns a reader over the keeper, or nil when the keeper has
// no documents. Pending documents are written first; an unchanged directory
// reuses the previous reader.
func (k *ReducibleKeeper) IndexReader(ctx context.Context) (*IndexReader, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if len(k.committed) == 0 {
		return nil, nil
	}
	if len(k.pending) > 0 {
		if err := k.flushPending(ctx); err != nil {
			return nil, err
		}
	}

	var err error
	if k.reader == nil {
		k.reader, err = OpenReader(ctx, k.dir)
	} else {
		k.reader, err = k.reader.Reopen(ctx)
	}
	if err != nil {
		k.reader = nil
		return nil, err
	}
	return k.reader, nil
}

func (k *ReducibleKeeper) flushPending(ctx context.Context) error {
	w, err := k.openWriter()
	if err != nil {
		return err
	}
	defer w.Close()
	for _, id := range sortedIDs(k.pending) {
		if err := w.AddDocument(k.pending[id]); err != nil {
			return err
		}
	}
	if err := w.Commit(ctx); err != nil {
		return err
	}
	k.pending = make(map[string]*Document)
	return nil
}

// KeeperFactory creates keepers for transactions and merges chains of them.
type KeeperFactory struct {
	// NewDirectory creates the directory of a new keeper. Defaults to
	// NewMemoryDirectory.
	NewDirectory func() Directory

	// MergeScheduler is used when merging keeper directories.
	MergeScheduler MergeScheduler
}

func (f *KeeperFactory) directory() Directory {
	if f.NewDirectory != nil {
		return f.NewDirectory()
	}
	return NewMemoryDirectory()
}

func (f *KeeperFactory) scheduler() MergeScheduler {
	if f.MergeScheduler != nil {
		return f.MergeScheduler
	}
	return SerialMergeScheduler{}
}

// Create builds a keeper from the additions and updates of tx. Its
// documents stay pending until a reader is requested.
func (f *KeeperFactory) Create(_ context.Context, tx *Transaction) (*ReducibleKeeper, error) {
	committed := make(map[string]*Document, len(tx.Added)+len(tx.Updated))
	pending := make(map[string]*Document, len(tx.Added)+len(tx.Updated))
	for _, docs := range [][]*Document{tx.Added, tx.Updated} {
		for _, d := range docs {
			committed[d.ID] = d.Clone()
			pending[d.ID] = committed[d.ID]
		}
	}
	return NewReducibleKeeper(f.directory(), committed, pending, NewSimpleTransactionLog(tx)), nil
}

// Merge combines a chain of keepers, oldest first, into one. Non-empty
// directories are merged into a fresh directory; buffers and logs are
// concatenated so that later keepers win.
func (f *KeeperFactory) Merge(ctx context.Context, chain []*ReducibleKeeper) (*ReducibleKeeper, error) {
	committed := make(map[string]*Document)
	pending := make(map[string]*Document)
	logs := make([]TransactionLog, 0, len(chain))
	var dirs []Directory
	removedLater := idSet{}

	for _, k := range chain {
		k.mu.Lock()
		gen, err := k.dir.Generation(ctx)
		if err != nil {
			k.mu.Unlock()
			return nil, ioError("merging keepers", err)
		}
		if gen > 0 {
			dirs = append(dirs, k.dir)
		}
		for _, id := range k.log.Removed() {
			delete(committed, id)
			delete(pending, id)
			removedLater.add(id)
		}
		for id, doc := range k.committed {
			committed[id] = doc
			delete(pending, id)
		}
		for id, doc := range k.pending {
			pending[id] = doc
		}
		logs = append(logs, k.log)
		k.mu.Unlock()
	}

	dir := f.directory()
	if len(dirs) > 0 {
		w, err := NewIndexWriter(dir, WriterConfig{MergeScheduler: f.scheduler()})
		if err != nil {
			return nil, err
		}
		defer w.Close()
		if err := w.AddIndexesNoOptimize(ctx, dirs...); err != nil {
			return nil, err
		}
		if err := w.Optimize(ctx); err != nil {
			return nil, err
		}
		for _, id := range removedLater.sorted() {
			if _, ok := committed[id]; !ok {
				if err := w.DeleteDocument(id); err != nil {
					return nil, err
				}
			}
		}
		for id := range pending {
			if err := w.DeleteDocument(id); err != nil {
				return nil, err
			}
		}
		if err := w.Commit(ctx); err != nil {
			return nil, err
		}
	}
	logger.Debug("Merged %d index keepers: %d documents, %d pending", len(chain), len(committed), len(pending))
	return NewReducibleKeeper(dir, committed, pending, NewCompositeTransactionLog(logs...)), nil
}
