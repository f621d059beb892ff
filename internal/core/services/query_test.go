package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/xcmis/internal/core/domain"
)

type fakeEngine struct {
	hits []string
	last domain.Query
	err  error
}

func (e *fakeEngine) Search(_ context.Context, q domain.Query) ([]domain.SearchHit, error) {
	e.last = q
	if e.err != nil {
		return nil, e.err
	}
	hits := make([]domain.SearchHit, 0, len(e.hits))
	for i, id := range e.hits {
		hits = append(hits, domain.SearchHit{ObjectID: id, Score: float64(len(e.hits) - i)})
	}
	return hits, nil
}

func (e *fakeEngine) Close() error { return nil }

// TestQuery_NotConfigured tests querying without a search engine.
func TestQuery_NotConfigured(t *testing.T) {
	s := newTestStorage(t)

	_, err := s.Query(context.Background(), domain.Query{Text: "x"})

	assert.ErrorIs(t, err, domain.ErrNotSupported)
}

// TestQuery_FiltersAndPages tests filtering of engine hits.
func TestQuery_FiltersAndPages(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	f := mustFolder(t, s, s.RootFolderID(), "f")
	a := mustDocument(t, s, f.ID, "a.txt", "x")
	b := mustDocument(t, s, s.RootFolderID(), "b.txt", "x")
	c := mustDocument(t, s, f.ID, "c.txt", "x")
	engine := &fakeEngine{hits: []string{a.ID, "gone", f.ID, b.ID, c.ID}}
	s.SetSearchEngine(engine)

	tests := []struct {
		name  string
		query domain.Query
		want  []string
	}{
		{"all", domain.Query{Text: "x"}, []string{a.ID, f.ID, b.ID, c.ID}},
		{"documents", domain.Query{Text: "x", TypeID: string(domain.BaseTypeDocument)}, []string{a.ID, b.ID, c.ID}},
		{"in folder", domain.Query{Text: "x", FolderID: f.ID}, []string{a.ID, c.ID}},
		{"limit", domain.Query{Text: "x", Limit: 2}, []string{a.ID, f.ID}},
		{"offset", domain.Query{Text: "x", TypeID: string(domain.BaseTypeDocument), Offset: 1, Limit: 1}, []string{b.ID}},
		{"past end", domain.Query{Text: "x", Offset: 10}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Query(ctx, tt.query)

			require.NoError(t, err)
			if tt.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, ids(got))
			assert.Zero(t, engine.last.Limit)
			assert.Zero(t, engine.last.Offset)
		})
	}
}

// TestQuery_Errors tests invalid queries and engine failures.
func TestQuery_Errors(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	engine := &fakeEngine{}
	s.SetSearchEngine(engine)

	got, err := s.Query(ctx, domain.Query{})
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = s.Query(ctx, domain.Query{Text: "x", Limit: -1})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	engine.err = errors.New("index closed")
	_, err = s.Query(ctx, domain.Query{Text: "x"})
	assert.ErrorIs(t, err, domain.ErrStorage)
}
