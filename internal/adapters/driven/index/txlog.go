package index

import (
	"github.com/oklog/ulid/v2"
)

// Transaction is one commit window of index changes.
type Transaction struct {
	ID      string      `json:"id"`
	Added   []*Document `json:"added,omitempty"`
	Updated []*Document `json:"updated,omitempty"`
	Removed []string    `json:"removed,omitempty"`
}

// NewTransaction creates an empty transaction with a time-ordered id.
func NewTransaction() *Transaction {
	return &Transaction{ID: ulid.Make().String()}
}

// IsEmpty returns true if the transaction changes nothing.
func (t *Transaction) IsEmpty() bool {
	return len(t.Added) == 0 && len(t.Updated) == 0 && len(t.Removed) == 0
}

// TransactionLog records the document ids touched by one or more
// transactions.
type TransactionLog interface {
	// TransactionIDs lists the recorded transactions.
	TransactionIDs() []string

	// Added returns the ids of added documents.
	Added() []string

	// Updated returns the ids of updated documents.
	Updated() []string

	// Removed returns the ids of removed documents.
	Removed() []string

	// Log records another transaction.
	Log(tx *Transaction) error
}

type idSet map[string]struct{}

func (s idSet) add(ids ...string) {
	for _, id := range ids {
		s[id] = struct{}{}
	}
}

func (s idSet) sorted() []string {
	return sortedIDs(s)
}

// SimpleTransactionLog is a writable TransactionLog.
type SimpleTransactionLog struct {
	txIDs   []string
	added   idSet
	updated idSet
	removed idSet
}

// NewSimpleTransactionLog creates a log recording tx, which may be nil.
func NewSimpleTransactionLog(tx *Transaction) *SimpleTransactionLog {
	l := &SimpleTransactionLog{added: idSet{}, updated: idSet{}, removed: idSet{}}
	if tx != nil {
		_ = l.Log(tx)
	}
	return l
}

func (l *SimpleTransactionLog) TransactionIDs() []string {
	return append([]string(nil), l.txIDs...)
}

func (l *SimpleTransactionLog) Added() []string   { return l.added.sorted() }
func (l *SimpleTransactionLog) Updated() []string { return l.updated.sorted() }
func (l *SimpleTransactionLog) Removed() []string { return l.removed.sorted() }

// Log records the ids of tx.
func (l *SimpleTransactionLog) Log(tx *Transaction) error {
	l.txIDs = append(l.txIDs, tx.ID)
	for _, d := range tx.Added {
		l.added.add(d.ID)
	}
	for _, d := range tx.Updated {
		l.updated.add(d.ID)
	}
	l.removed.add(tx.Removed...)
	return nil
}

// CompositeTransactionLog is a read-only union of several logs.
type CompositeTransactionLog struct {
	logs []TransactionLog
}

// NewCompositeTransactionLog combines logs.
func NewCompositeTransactionLog(logs ...TransactionLog) *CompositeTransactionLog {
	return &CompositeTransactionLog{logs: logs}
}

func (c *CompositeTransactionLog) union(get func(TransactionLog) []string) []string {
	set := idSet{}
	for _, l := range c.logs {
		set.add(get(l)...)
	}
	return set.sorted()
}

func (c *CompositeTransactionLog) TransactionIDs() []string {
	var ids []string
	seen := idSet{}
	for _, l := range c.logs {
		for _, id := range l.TransactionIDs() {
			if _, ok := seen[id]; !ok {
				seen.add(id)
				ids = append(ids, id)
			}
		}
	}
	return ids
}

func (c *CompositeTransactionLog) Added() []string {
	return c.union(TransactionLog.Added)
}

func (c *CompositeTransactionLog) Updated() []string {
	return c.union(TransactionLog.Updated)
}

func (c *CompositeTransactionLog) Removed() []string {
	return c.union(TransactionLog.Removed)
}

// Log always fails: a composite log is assembled after the fact.
func (c *CompositeTransactionLog) Log(*Transaction) error {
	return ErrUnsupportedOperation
}
