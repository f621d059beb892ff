package index

// Segment is a batch of index changes: deletions applied first, then
// documents stored.
type Segment struct {
	docs    map[string]*Document
	deletes map[string]struct{}
	sealed  bool
}

func newSegment() *Segment {
	return &Segment{docs: make(map[string]*Document), deletes: make(map[string]struct{})}
}

// NumDocs returns the number of stored documents.
func (s *Segment) NumDocs() int {
	return len(s.docs)
}

func (s *Segment) put(doc *Document) {
	s.docs[doc.ID] = doc
}

func (s *Segment) remove(id string) {
	delete(s.docs, id)
	s.deletes[id] = struct{}{}
}

// mergeSegments combines a followed by b into one segment with the same
// effect on any directory.
func mergeSegments(a, b *Segment) *Segment {
	out := newSegment()
	for id := range a.deletes {
		out.deletes[id] = struct{}{}
	}
	for id := range b.deletes {
		out.deletes[id] = struct{}{}
	}
	for id, doc := range a.docs {
		if _, gone := b.deletes[id]; !gone {
			out.docs[id] = doc
		}
	}
	for id, doc := range b.docs {
		out.docs[id] = doc
	}
	out.sealed = true
	return out
}
