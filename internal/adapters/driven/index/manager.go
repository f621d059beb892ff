package index

import (
	"context"
	"errors"
	"sync"

	"github.com/custodia-labs/xcmis/internal/core/domain"
	"github.com/custodia-labs/xcmis/internal/core/ports/driven"
	"github.com/custodia-labs/xcmis/internal/logger"
)

// Default thresholds.
const (
	DefaultMergeThreshold = 8
	DefaultFlushThreshold = 1000
)

// Verify interface compliance.
var _ driven.SearchEngine = (*Manager)(nil)

// Config holds the Manager thresholds.
type Config struct {
	// MergeThreshold is the number of keepers after which the chain is
	// merged into one.
	MergeThreshold int

	// FlushThreshold is the number of buffered documents after which the
	// chain is written to the durable directory.
	FlushThreshold int

	// MergeScheduler merges keeper directories. Defaults to a
	// ConcurrentMergeScheduler.
	MergeScheduler MergeScheduler
}

// Stats describes the state of the index.
type Stats struct {
	Keepers     int
	Buffered    int
	Durable     int
	Visible     int
	Generation  int64
	Uncommitted bool
}

// Manager applies index transactions through a chain of keepers in front of
// a durable directory and serves searches over all of them.
type Manager struct {
	mu      sync.Mutex
	durable Directory
	reader  *IndexReader
	factory *KeeperFactory
	logs    *FSIndexTransactionService
	chain   []*ReducibleKeeper
	cfg     Config
	closed  bool
}

// NewManager opens a manager over durable. When logs is set, every
// transaction is logged before it is applied and logs left by an earlier run
// are replayed into durable.
func NewManager(ctx context.Context, durable Directory, logs *FSIndexTransactionService, cfg Config) (*Manager, error) {
	if cfg.MergeThreshold <= 0 {
		cfg.MergeThreshold = DefaultMergeThreshold
	}
	if cfg.FlushThreshold <= 0 {
		cfg.FlushThreshold = DefaultFlushThreshold
	}
	if cfg.MergeScheduler == nil {
		cfg.MergeScheduler = NewConcurrentMergeScheduler(0)
	}
	m := &Manager{
		durable: durable,
		factory: &KeeperFactory{MergeScheduler: cfg.MergeScheduler},
		logs:    logs,
		cfg:     cfg,
	}
	if err := m.recover(ctx); err != nil {
		return nil, err
	}
	return m, nil
}

// recover replays uncommitted transaction logs into the durable directory.
func (m *Manager) recover(ctx context.Context) error {
	if m.logs == nil {
		return nil
	}
	files, err := m.logs.RecoverFiles()
	if err != nil || len(files) == 0 {
		return err
	}
	logger.Info("Recovering %d uncommitted index transactions", len(files))

	w, err := NewIndexWriter(m.durable, WriterConfig{MergeScheduler: SerialMergeScheduler{}})
	if err != nil {
		return err
	}
	defer w.Close()
	for _, f := range files {
		tx, err := m.logs.Read(f)
		if err != nil {
			return err
		}
		if err := writeTransaction(w, tx); err != nil {
			return &IndexTransactionError{TransactionID: tx.ID, Err: err}
		}
	}
	if err := w.Commit(ctx); err != nil {
		return &IndexTransactionError{Err: err}
	}
	for _, f := range files {
		if err := m.logs.RemoveFile(f); err != nil {
			return err
		}
	}
	return nil
}

func writeTransaction(w *IndexWriter, tx *Transaction) error {
	for _, id := range tx.Removed {
		if err := w.DeleteDocument(id); err != nil {
			return err
		}
	}
	for _, docs := range [][]*Document{tx.Added, tx.Updated} {
		for _, d := range docs {
			if err := w.UpdateDocument(d); err != nil {
				return err
			}
		}
	}
	return nil
}

// Apply logs and buffers a transaction. A transaction that only touches
// documents of the newest keeper is saved into it; any other starts a new
// keeper.
func (m *Manager) Apply(ctx context.Context, tx *Transaction) error {
	if tx.IsEmpty() {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if m.logs != nil {
		if err := m.logs.Write(tx); err != nil {
			return err
		}
	}

	if n := len(m.chain); n > 0 && appendable(m.chain[n-1]) && m.chain[n-1].Holds(tx) {
		last := m.chain[n-1]
		if _, err := last.Save(ctx, tx); err != nil {
			return &IndexTransactionError{TransactionID: tx.ID, Err: err}
		}
		if err := last.TransactionLog().Log(tx); err != nil {
			return &IndexTransactionError{TransactionID: tx.ID, Err: err}
		}
		return m.maintain(ctx)
	}

	k, err := m.factory.Create(ctx, tx)
	if err != nil {
		return &IndexTransactionError{TransactionID: tx.ID, Err: err}
	}
	m.chain = append(m.chain, k)
	return m.maintain(ctx)
}

// appendable reports whether k can take more transactions. Merged keepers
// carry a read-only composite log.
func appendable(k *ReducibleKeeper) bool {
	_, merged := k.TransactionLog().(*CompositeTransactionLog)
	return !merged
}

func (m *Manager) maintain(ctx context.Context) error {
	if len(m.chain) > m.cfg.MergeThreshold {
		merged, err := m.factory.Merge(ctx, m.chain)
		if err != nil {
			return err
		}
		logger.Debug("Merged %d index keepers", len(m.chain))
		m.chain = []*ReducibleKeeper{merged}
	}
	if m.buffered() > m.cfg.FlushThreshold {
		return m.flush(ctx)
	}
	return nil
}

func (m *Manager) buffered() int {
	n := 0
	for _, k := range m.chain {
		n += k.NumDocs()
	}
	return n
}

// Flush writes every buffered transaction to the durable directory and
// removes their logs.
func (m *Manager) Flush(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	return m.flush(ctx)
}

func (m *Manager) flush(ctx context.Context) error {
	if len(m.chain) == 0 {
		return nil
	}
	w, err := NewIndexWriter(m.durable, WriterConfig{MergeScheduler: SerialMergeScheduler{}})
	if err != nil {
		return err
	}
	defer w.Close()

	var txIDs []string
	docs := 0
	for _, k := range m.chain {
		log := k.TransactionLog()
		for _, id := range log.Removed() {
			if err := w.DeleteDocument(id); err != nil {
				return err
			}
		}
		kdocs := k.Documents()
		for _, id := range sortedIDs(kdocs) {
			if err := w.UpdateDocument(kdocs[id]); err != nil {
				return err
			}
		}
		docs += len(kdocs)
		txIDs = append(txIDs, log.TransactionIDs()...)
	}
	if err := w.Commit(ctx); err != nil {
		return err
	}
	logger.Info("Flushed %d index documents from %d transactions", docs, len(txIDs))
	m.chain = nil

	if m.logs != nil {
		if err := m.logs.Remove(txIDs...); err != nil {
			logger.Warn("Removing index transaction logs: %v", err)
		}
	}
	return nil
}

func (m *Manager) view(ctx context.Context) (*MultiReader, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}
	var err error
	if m.reader == nil {
		m.reader, err = OpenReader(ctx, m.durable)
	} else {
		m.reader, err = m.reader.Reopen(ctx)
	}
	if err != nil {
		m.reader = nil
		return nil, err
	}
	layers := make([]Layer, 0, len(m.chain))
	for _, k := range m.chain {
		r, err := k.IndexReader(ctx)
		if err != nil {
			return nil, err
		}
		layers = append(layers, Layer{Reader: r, Removed: k.TransactionLog().Removed()})
	}
	return NewMultiReader(m.reader, layers...), nil
}

// Search returns the hits of q. A zero limit returns every hit.
func (m *Manager) Search(ctx context.Context, q domain.Query) ([]domain.SearchHit, error) {
	v, err := m.view(ctx)
	if err != nil {
		return nil, err
	}
	return v.Search(q), nil
}

// Document returns the visible indexed form of an object.
func (m *Manager) Document(ctx context.Context, id string) (*Document, bool, error) {
	v, err := m.view(ctx)
	if err != nil {
		return nil, false, err
	}
	doc, ok := v.Document(id)
	return doc, ok, nil
}

// Stats reports the state of the index.
func (m *Manager) Stats(ctx context.Context) (Stats, error) {
	v, err := m.view(ctx)
	if err != nil {
		return Stats{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	st := Stats{Keepers: len(m.chain), Buffered: m.buffered(), Visible: v.NumDocs()}
	if m.reader != nil {
		st.Durable = m.reader.NumDocs()
		st.Generation = m.reader.Generation()
	}
	if m.logs != nil {
		if st.Uncommitted, err = m.logs.HasUncommitted(); err != nil {
			return Stats{}, err
		}
	}
	return st, nil
}

// Close flushes buffered transactions and closes the durable directory.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	err := m.flush(context.Background())
	return errors.Join(err, m.durable.Close())
}
