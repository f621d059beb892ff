package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/xcmis/internal/core/domain"
)

// treeFixture builds /tree/sub with a single-filed document in each folder
// and a document filed both in /tree/sub and in /outside.
type treeFixture struct {
	tree, sub, outside     *domain.CmisObject
	single, nested, shared *domain.CmisObject
}

func newTreeFixture(t *testing.T, s *Storage) treeFixture {
	t.Helper()
	var f treeFixture
	f.tree = mustFolder(t, s, s.RootFolderID(), "tree")
	f.sub = mustFolder(t, s, f.tree.ID, "sub")
	f.outside = mustFolder(t, s, s.RootFolderID(), "outside")
	f.single = mustDocument(t, s, f.tree.ID, "single.txt", "x")
	f.nested = mustDocument(t, s, f.sub.ID, "nested.txt", "x")
	f.shared = mustDocument(t, s, f.sub.ID, "shared.txt", "x")
	require.NoError(t, s.AddObjectToFolder(context.Background(), f.shared.ID, f.outside.ID))
	return f
}

func exists(t *testing.T, s *Storage, id string) bool {
	t.Helper()
	_, err := s.GetObject(context.Background(), id)
	if err != nil {
		require.ErrorIs(t, err, domain.ErrNotFound)
		return false
	}
	return true
}

// TestDeleteTree_Policies tests the three unfiling policies.
func TestDeleteTree_Policies(t *testing.T) {
	tests := []struct {
		unfile         domain.UnfileObject
		singleSurvives bool
		sharedSurvives bool
	}{
		{domain.UnfileDelete, false, false},
		{domain.UnfileUnfile, true, true},
		{domain.UnfileDeleteSingleFiled, false, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.unfile), func(t *testing.T) {
			s := newTestStorage(t)
			ctx := context.Background()
			f := newTreeFixture(t, s)

			failed, err := s.DeleteTree(ctx, f.tree.ID, true, tt.unfile, false)

			require.NoError(t, err)
			assert.Empty(t, failed)
			assert.False(t, exists(t, s, f.tree.ID))
			assert.False(t, exists(t, s, f.sub.ID))
			assert.Equal(t, tt.singleSurvives, exists(t, s, f.single.ID))
			assert.Equal(t, tt.singleSurvives, exists(t, s, f.nested.ID))
			assert.Equal(t, tt.sharedSurvives, exists(t, s, f.shared.ID))

			outside, err := s.GetChildren(ctx, f.outside.ID)
			require.NoError(t, err)
			if tt.sharedSurvives {
				assert.Equal(t, []string{f.shared.ID}, ids(outside))
				parents, err := s.GetObjectParents(ctx, f.shared.ID)
				require.NoError(t, err)
				assert.Equal(t, []string{f.outside.ID}, ids(parents))
			} else {
				assert.Empty(t, outside)
			}
			if tt.singleSurvives {
				parents, err := s.GetObjectParents(ctx, f.single.ID)
				require.NoError(t, err)
				assert.Empty(t, parents)
			}
		})
	}
}

// TestDeleteTree_Root tests the root folder cannot be deleted.
func TestDeleteTree_Root(t *testing.T) {
	s := newTestStorage(t)

	_, err := s.DeleteTree(context.Background(), s.RootFolderID(), true, domain.UnfileDelete, true)

	assert.ErrorIs(t, err, domain.ErrConstraint)
}

// TestDeleteTree_ContinueOnFailure tests failures are collected.
func TestDeleteTree_ContinueOnFailure(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	f := newTreeFixture(t, s)
	mustRelationship(t, s, f.outside.ID, f.nested.ID, "")

	_, err := s.DeleteTree(ctx, f.tree.ID, true, domain.UnfileDelete, false)
	require.ErrorIs(t, err, domain.ErrConstraint)
	assert.True(t, exists(t, s, f.single.ID))

	failed, err := s.DeleteTree(ctx, f.tree.ID, true, domain.UnfileDelete, true)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{f.nested.ID, f.sub.ID, f.tree.ID}, failed)
	assert.True(t, exists(t, s, f.nested.ID))
	assert.False(t, exists(t, s, f.single.ID))
}

// TestDeleteTree_FailedObjectKeepsFilings tests an object whose delete
// fails keeps its links, inside and outside the tree, and its working copy.
func TestDeleteTree_FailedObjectKeepsFilings(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	f := newTreeFixture(t, s)
	mustRelationship(t, s, f.single.ID, f.shared.ID, "")
	pwc, err := s.Checkout(ctx, f.shared.ID)
	require.NoError(t, err)

	failed, err := s.DeleteTree(ctx, f.tree.ID, true, domain.UnfileDelete, true)

	require.NoError(t, err)
	assert.ElementsMatch(t, []string{f.single.ID, f.shared.ID, f.sub.ID, f.tree.ID}, failed)
	assert.False(t, exists(t, s, f.nested.ID))

	parents, err := s.GetObjectParents(ctx, f.shared.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{f.sub.ID, f.outside.ID}, ids(parents))

	checkedOut, err := s.GetCheckedOutDocs(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{pwc.ID}, ids(checkedOut))
}

// TestDeleteTree_UnknownPolicy tests the unfile value is validated.
func TestDeleteTree_UnknownPolicy(t *testing.T) {
	s := newTestStorage(t)
	f := mustFolder(t, s, s.RootFolderID(), "f")

	_, err := s.DeleteTree(context.Background(), f.ID, true, "shred", false)

	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

// TestPlanTreeDelete tests classification without a repository.
func TestPlanTreeDelete(t *testing.T) {
	outsideLink := &domain.Node{ID: "link-out", ParentID: "elsewhere"}
	insideLink := &domain.Node{ID: "link-in", ParentID: "sub"}
	scan := &treeScan{
		inTree:  map[string]bool{"root": true, "sub": true},
		folders: []treeFolder{{id: "root"}, {id: "sub", depth: 1}},
		filings: map[string]*filing{
			"single":  {node: &domain.Node{ID: "single", ParentID: "root"}},
			"shared":  {node: &domain.Node{ID: "shared", ParentID: "root"}, links: []*domain.Node{insideLink, outsideLink}},
			"visitor": {node: &domain.Node{ID: "visitor", ParentID: "elsewhere"}, links: []*domain.Node{insideLink}},
		},
		order: []string{"single", "shared", "visitor"},
	}

	del := planTreeDelete(scan, domain.UnfileDelete)
	assert.ElementsMatch(t, []string{"single", "shared", "visitor"}, del.objects)
	assert.Empty(t, del.links)
	assert.Empty(t, del.relocations)
	assert.Equal(t, "sub", del.folders[0].id)

	keep := planTreeDelete(scan, domain.UnfileDeleteSingleFiled)
	assert.Equal(t, []string{"single"}, keep.objects)
	require.Len(t, keep.relocations, 1)
	assert.Equal(t, "shared", keep.relocations[0].objectID)
	assert.Equal(t, outsideLink, keep.relocations[0].link)
	assert.ElementsMatch(t, []string{"link-in", "link-in"}, keep.links)

	unfile := planTreeDelete(scan, domain.UnfileUnfile)
	assert.Empty(t, unfile.objects)
	require.Len(t, unfile.relocations, 2)
	assert.Nil(t, unfile.relocations[0].link)
}
