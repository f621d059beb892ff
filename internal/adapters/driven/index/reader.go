package index

import (
	"context"
	"sort"

	"github.com/custodia-labs/xcmis/internal/core/domain"
)

// IndexReader is an immutable snapshot of a directory.
type IndexReader struct {
	dir  Directory
	gen  int64
	docs map[string]*Document
}

// OpenReader reads a snapshot of dir.
func OpenReader(ctx context.Context, dir Directory) (*IndexReader, error) {
	docs, gen, err := dir.Documents(ctx)
	if err != nil {
		return nil, ioError("opening reader", err)
	}
	return &IndexReader{dir: dir, gen: gen, docs: docs}, nil
}

// Reopen returns r itself when the directory has not changed since r was
// opened, and a fresh snapshot otherwise.
func (r *IndexReader) Reopen(ctx context.Context) (*IndexReader, error) {
	gen, err := r.dir.Generation(ctx)
	if err != nil {
		return nil, ioError("reopening reader", err)
	}
	if gen == r.gen {
		return r, nil
	}
	return OpenReader(ctx, r.dir)
}

// Generation returns the directory generation of the snapshot.
func (r *IndexReader) Generation() int64 { return r.gen }

// NumDocs returns the number of documents.
func (r *IndexReader) NumDocs() int { return len(r.docs) }

// Document returns a document by id.
func (r *IndexReader) Document(id string) (*Document, bool) {
	doc, ok := r.docs[id]
	return doc, ok
}

// IDs returns the document ids in order.
func (r *IndexReader) IDs() []string {
	return sortedIDs(r.docs)
}

// Layer is a reader stacked over older ones. Removed ids hide older
// documents before the reader's own documents are added.
type Layer struct {
	Reader  *IndexReader
	Removed []string
}

// MultiReader is the combined view of a base reader and the layers above it.
type MultiReader struct {
	docs map[string]*Document
}

// NewMultiReader combines readers, later layers shadowing earlier ones. A nil
// reader contributes only its removals.
func NewMultiReader(base *IndexReader, layers ...Layer) *MultiReader {
	docs := make(map[string]*Document)
	if base != nil {
		for id, doc := range base.docs {
			docs[id] = doc
		}
	}
	for _, l := range layers {
		for _, id := range l.Removed {
			delete(docs, id)
		}
		if l.Reader == nil {
			continue
		}
		for id, doc := range l.Reader.docs {
			docs[id] = doc
		}
	}
	return &MultiReader{docs: docs}
}

// NumDocs returns the number of visible documents.
func (m *MultiReader) NumDocs() int { return len(m.docs) }

// Document returns a visible document by id.
func (m *MultiReader) Document(id string) (*Document, bool) {
	doc, ok := m.docs[id]
	return doc, ok
}

// Search matches q against the visible documents. Every text term must
// occur; the score is the number of term occurrences. Hits are ordered by
// descending score, then id. The type filter is left to the caller, which
// knows the type hierarchy.
func (m *MultiReader) Search(q domain.Query) []domain.SearchHit {
	terms := Tokenize(q.Text)
	var hits []domain.SearchHit
	for _, id := range sortedIDs(m.docs) {
		doc := m.docs[id]
		if q.FolderID != "" && !doc.Has(FieldParent, q.FolderID) {
			continue
		}
		if !matchesTerms(doc, q.Terms) {
			continue
		}
		score, ok := scoreText(doc, terms)
		if !ok {
			continue
		}
		hits = append(hits, domain.SearchHit{ObjectID: id, Score: score})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })

	if q.Offset > 0 {
		if q.Offset >= len(hits) {
			return nil
		}
		hits = hits[q.Offset:]
	}
	if q.Limit > 0 && len(hits) > q.Limit {
		hits = hits[:q.Limit]
	}
	return hits
}

func matchesTerms(doc *Document, terms map[string]string) bool {
	for field, value := range terms {
		if !doc.Has(field, value) {
			return false
		}
	}
	return true
}

func scoreText(doc *Document, terms []string) (float64, bool) {
	if len(terms) == 0 {
		return 0, true
	}
	counts := make(map[string]int)
	for _, t := range doc.Get(FieldText) {
		counts[t]++
	}
	score := 0
	for _, t := range terms {
		n := counts[t]
		if n == 0 {
			return 0, false
		}
		score += n
	}
	return float64(score), true
}
