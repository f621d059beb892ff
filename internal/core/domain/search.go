package domain

// Query is a search over the index. There is no query language: the text is
// matched against the full-text field and the other fields filter.
type Query struct {
	// Text is matched term by term; every term must occur.
	Text string

	// TypeID restricts hits to objects of this type.
	TypeID string

	// FolderID restricts hits to objects filed directly in this folder.
	FolderID string

	// Terms are exact field matches.
	Terms map[string]string

	// Limit is the maximum number of hits. Zero means unlimited.
	Limit int

	// Offset is the number of hits to skip.
	Offset int
}

// IsEmpty returns true if the query has no criteria.
func (q Query) IsEmpty() bool {
	return q.Text == "" && q.TypeID == "" && q.FolderID == "" && len(q.Terms) == 0
}

// SearchHit is a single search result.
type SearchHit struct {
	// ObjectID is the matched object.
	ObjectID string

	// Score is the number of matched terms.
	Score float64
}
