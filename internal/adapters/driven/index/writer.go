package index

import (
	"context"

	"github.com/custodia-labs/xcmis/internal/logger"
)

// WriterConfig configures an IndexWriter.
type WriterConfig struct {
	// MergeScheduler merges segments on Optimize and Commit. Defaults to a
	// ConcurrentMergeScheduler.
	MergeScheduler MergeScheduler
}

// IndexWriter buffers changes to a Directory and applies them on Commit. It
// holds the directory's write lock until Close.
type IndexWriter struct {
	dir       Directory
	scheduler MergeScheduler
	release   func()
	segments  []*Segment
	closed    bool
}

// NewIndexWriter locks dir and opens a writer on it.
func NewIndexWriter(dir Directory, cfg WriterConfig) (*IndexWriter, error) {
	release, err := dir.Lock()
	if err != nil {
		return nil, ioError("opening writer", err)
	}
	if cfg.MergeScheduler == nil {
		cfg.MergeScheduler = NewConcurrentMergeScheduler(0)
	}
	return &IndexWriter{dir: dir, scheduler: cfg.MergeScheduler, release: release}, nil
}

func (w *IndexWriter) tail() *Segment {
	if n := len(w.segments); n > 0 && !w.segments[n-1].sealed {
		return w.segments[n-1]
	}
	s := newSegment()
	w.segments = append(w.segments, s)
	return s
}

// AddDocument buffers a document.
func (w *IndexWriter) AddDocument(doc *Document) error {
	if w.closed {
		return ErrClosed
	}
	w.tail().put(doc.Clone())
	return nil
}

// UpdateDocument buffers a replacement of the document with the same id,
// adding it when absent.
func (w *IndexWriter) UpdateDocument(doc *Document) error {
	return w.AddDocument(doc)
}

// DeleteDocument buffers the deletion of a document.
func (w *IndexWriter) DeleteDocument(id string) error {
	if w.closed {
		return ErrClosed
	}
	w.tail().remove(id)
	return nil
}

// AddIndexesNoOptimize appends the documents of other directories as
// separate segments.
func (w *IndexWriter) AddIndexesNoOptimize(ctx context.Context, dirs ...Directory) error {
	if w.closed {
		return ErrClosed
	}
	for _, d := range dirs {
		docs, _, err := d.Documents(ctx)
		if err != nil {
			return ioError("reading source directory", err)
		}
		s := newSegment()
		s.docs = docs
		s.sealed = true
		w.segments = append(w.segments, s)
	}
	return nil
}

// Optimize merges the buffered segments into one.
func (w *IndexWriter) Optimize(ctx context.Context) error {
	if w.closed {
		return ErrClosed
	}
	if len(w.segments) < 2 {
		return nil
	}
	merged, err := w.scheduler.Merge(ctx, w.segments)
	if err != nil {
		return ioError("merging segments", err)
	}
	logger.Debug("Merged %d index segments into %d documents", len(w.segments), merged.NumDocs())
	w.segments = []*Segment{merged}
	return nil
}

// Commit applies the buffered changes to the directory.
func (w *IndexWriter) Commit(ctx context.Context) error {
	if w.closed {
		return ErrClosed
	}
	if len(w.segments) == 0 {
		return nil
	}
	merged, err := w.scheduler.Merge(ctx, w.segments)
	if err != nil {
		return ioError("merging segments", err)
	}
	docs := make([]*Document, 0, len(merged.docs))
	for _, id := range sortedIDs(merged.docs) {
		docs = append(docs, merged.docs[id])
	}
	if _, err := w.dir.Apply(ctx, docs, sortedIDs(merged.deletes)); err != nil {
		return ioError("committing", err)
	}
	w.segments = nil
	return nil
}

// Close discards uncommitted changes and releases the write lock.
func (w *IndexWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	w.segments = nil
	w.release()
	return nil
}
