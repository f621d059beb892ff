package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/xcmis/internal/core/domain"
)

// TestVersioning_ReportScenario tests checkout, content change and major
// checkin of a document.
func TestVersioning_ReportScenario(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	f := mustFolder(t, s, s.RootFolderID(), "F")
	doc, err := s.CreateDocument(ctx, domain.ObjectInput{
		ParentID:        f.ID,
		Properties:      named("report.txt"),
		Content:         &domain.ContentStream{FileName: "report.txt", MimeType: "text/plain", Data: []byte("v1")},
		VersioningState: domain.VersioningStateMajor,
	})
	require.NoError(t, err)
	assert.Equal(t, "1.0", doc.VersionLabel())

	pwc, err := s.Checkout(ctx, doc.ID)
	require.NoError(t, err)
	_, err = s.SetContentStream(ctx, pwc.ID, &domain.ContentStream{FileName: "report.txt", MimeType: "text/plain", Data: []byte("v2")}, true)
	require.NoError(t, err)

	latest, err := s.Checkin(ctx, pwc.ID, domain.CheckinInput{Major: true, Comment: "v2"})
	require.NoError(t, err)
	assert.Equal(t, doc.ID, latest.ID)
	assert.Equal(t, "2.0", latest.VersionLabel())
	assert.Equal(t, "v2", latest.Properties.Get(domain.PropCheckinComment).String())

	versions, err := s.GetAllVersions(ctx, doc.VersionSeriesID())
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.False(t, versions[0].IsLatestVersion())
	assert.Equal(t, "1.0", versions[0].VersionLabel())
	assert.True(t, versions[1].IsLatestVersion())
	assert.True(t, versions[1].Properties.Get(domain.PropIsMajorVersion).Bool())
	assert.Equal(t, "2.0", versions[1].VersionLabel())

	cs, err := s.GetContentStream(ctx, doc.ID, "")
	require.NoError(t, err)
	assert.Equal(t, "v2", string(cs.Data))
	old, err := s.GetContentStream(ctx, versions[0].ID, "")
	require.NoError(t, err)
	assert.Equal(t, "v1", string(old.Data))

	_, err = s.GetObject(ctx, pwc.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// TestVersioning_SinglePWC tests that a series has at most one working copy.
func TestVersioning_SinglePWC(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	doc := mustDocument(t, s, s.RootFolderID(), "a.txt", "x")

	pwc, err := s.Checkout(ctx, doc.ID)
	require.NoError(t, err)

	_, err = s.Checkout(ctx, doc.ID)
	assert.ErrorIs(t, err, domain.ErrVersioning)
	_, err = s.Checkout(ctx, pwc.ID)
	assert.ErrorIs(t, err, domain.ErrVersioning)

	docs, err := s.GetCheckedOutDocs(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{pwc.ID}, ids(docs))
}

// TestVersioning_ConcurrentCheckout tests that concurrent checkouts of one
// document produce a single working copy.
func TestVersioning_ConcurrentCheckout(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	doc := mustDocument(t, s, s.RootFolderID(), "a.txt", "x")

	const workers = 8
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		pwcs []string
		errs []error
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pwc, err := s.Checkout(ctx, doc.ID)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			pwcs = append(pwcs, pwc.ID)
		}()
	}
	wg.Wait()

	require.Len(t, pwcs, 1)
	assert.Len(t, errs, workers-1)
	for _, err := range errs {
		assert.True(t, errors.Is(err, domain.ErrVersioning) || errors.Is(err, domain.ErrUpdateConflict), err)
	}
	docs, err := s.GetCheckedOutDocs(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, pwcs, ids(docs))
}

// TestVersioning_CheckinNonPWC tests checkin is rejected on a latest version.
func TestVersioning_CheckinNonPWC(t *testing.T) {
	s := newTestStorage(t)
	doc := mustDocument(t, s, s.RootFolderID(), "a.txt", "x")

	_, err := s.Checkin(context.Background(), doc.ID, domain.CheckinInput{Major: true})

	assert.ErrorIs(t, err, domain.ErrConstraint)
}

// TestVersioning_CheckoutFlags tests the properties of the working copy and
// the checked out document.
func TestVersioning_CheckoutFlags(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	s.SetUser("alice")
	doc := mustDocument(t, s, s.RootFolderID(), "a.txt", "x")

	pwc, err := s.Checkout(ctx, doc.ID)
	require.NoError(t, err)
	latest, err := s.GetObject(ctx, doc.ID)
	require.NoError(t, err)

	assert.Equal(t, "pwc", pwc.VersionLabel())
	assert.Equal(t, doc.VersionSeriesID(), pwc.VersionSeriesID())
	assert.Equal(t, "a.txt", pwc.Name())
	assert.True(t, pwc.IsCheckedOut())
	assert.False(t, latest.IsLatestVersion())
	assert.True(t, latest.IsCheckedOut())
	assert.Equal(t, pwc.ID, latest.Properties.Get(domain.PropVersionSeriesCheckedOutID).String())
	assert.Equal(t, "alice", latest.Properties.Get(domain.PropVersionSeriesCheckedOutBy).String())

	parents, err := s.GetObjectParents(ctx, pwc.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{s.RootFolderID()}, ids(parents))

	versions, err := s.GetAllVersions(ctx, doc.VersionSeriesID())
	require.NoError(t, err)
	assert.Equal(t, []string{doc.ID, pwc.ID}, ids(versions))
}

// TestVersioning_CancelCheckoutRoundTrip tests that checkout and cancel
// leave the latest version unchanged.
func TestVersioning_CancelCheckoutRoundTrip(t *testing.T) {
	for _, fromPWC := range []bool{true, false} {
		s := newTestStorage(t)
		ctx := context.Background()
		doc := mustDocument(t, s, s.RootFolderID(), "a.txt", "content")
		before, err := s.GetObject(ctx, doc.ID)
		require.NoError(t, err)

		pwc, err := s.Checkout(ctx, doc.ID)
		require.NoError(t, err)
		cancelID := doc.ID
		if fromPWC {
			cancelID = pwc.ID
		}
		require.NoError(t, s.CancelCheckout(ctx, cancelID))

		after, err := s.GetObject(ctx, doc.ID)
		require.NoError(t, err)
		assert.Equal(t, len(before.Properties), len(after.Properties))
		for id, p := range before.Properties {
			assert.True(t, p.Equal(after.Properties[id]), "property %s changed", id)
		}
		assert.False(t, after.IsCheckedOut())
		cs, err := s.GetContentStream(ctx, doc.ID, "")
		require.NoError(t, err)
		assert.Equal(t, "content", string(cs.Data))

		_, err = s.GetObject(ctx, pwc.ID)
		assert.ErrorIs(t, err, domain.ErrNotFound)
		assert.ErrorIs(t, s.CancelCheckout(ctx, doc.ID), domain.ErrVersioning)
	}
}

// TestVersioning_MinorLabels tests minor and major label increments.
func TestVersioning_MinorLabels(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	doc, err := s.CreateDocument(ctx, domain.ObjectInput{
		ParentID:        s.RootFolderID(),
		Properties:      named("a.txt"),
		VersioningState: domain.VersioningStateMinor,
	})
	require.NoError(t, err)
	assert.Equal(t, "0.1", doc.VersionLabel())

	labels := []string{"0.2", "1.0", "1.1"}
	for i, major := range []bool{false, true, false} {
		pwc, err := s.Checkout(ctx, doc.ID)
		require.NoError(t, err)
		latest, err := s.Checkin(ctx, pwc.ID, domain.CheckinInput{Major: major})
		require.NoError(t, err)
		assert.Equal(t, labels[i], latest.VersionLabel())
	}

	versions, err := s.GetAllVersions(ctx, doc.VersionSeriesID())
	require.NoError(t, err)
	require.Len(t, versions, 4)
	latestMajor := 0
	for _, v := range versions {
		if v.Properties.Get(domain.PropIsLatestMajorVersion).Bool() {
			latestMajor++
			assert.Equal(t, "1.0", v.VersionLabel())
		}
	}
	assert.Equal(t, 1, latestMajor)
}

// TestVersioning_CheckinAppliesChanges tests checkin properties, rename and ACL.
func TestVersioning_CheckinAppliesChanges(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	f := mustFolder(t, s, s.RootFolderID(), "f")
	doc := mustDocument(t, s, f.ID, "a.txt", "x")
	pwc, err := s.Checkout(ctx, doc.ID)
	require.NoError(t, err)

	latest, err := s.Checkin(ctx, pwc.ID, domain.CheckinInput{
		Major:      false,
		Properties: named("b.txt"),
		Content:    &domain.ContentStream{MimeType: "text/plain", Data: []byte("new")},
		AddACL:     domain.ACL{{Principal: "bob", Permissions: []string{domain.PermissionRead}}},
	})
	require.NoError(t, err)

	assert.Equal(t, "b.txt", latest.Name())
	assert.Equal(t, "1.1", latest.VersionLabel())
	assert.False(t, latest.IsCheckedOut())
	assert.True(t, latest.IsLatestVersion())
	assert.Equal(t, []string{domain.PermissionRead}, latest.ACL.Permissions("bob"))
	assert.True(t, latest.Properties.Get(domain.PropVersionSeriesCheckedOutID).IsEmpty())

	found, err := s.GetObjectByPath(ctx, "/f/b.txt")
	require.NoError(t, err)
	assert.Equal(t, doc.ID, found.ID)
}

// TestVersioning_HistoricalImmutable tests that sealed versions refuse writes.
func TestVersioning_HistoricalImmutable(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	doc := mustDocument(t, s, s.RootFolderID(), "a.txt", "x")
	pwc, err := s.Checkout(ctx, doc.ID)
	require.NoError(t, err)
	_, err = s.Checkin(ctx, pwc.ID, domain.CheckinInput{Major: true})
	require.NoError(t, err)
	versions, err := s.GetAllVersions(ctx, doc.VersionSeriesID())
	require.NoError(t, err)
	old := versions[0].ID

	_, err = s.UpdateProperties(ctx, old, "", named("c.txt"))
	assert.ErrorIs(t, err, domain.ErrVersioning)
	_, err = s.SetContentStream(ctx, old, &domain.ContentStream{Data: []byte("y")}, true)
	assert.ErrorIs(t, err, domain.ErrVersioning)
	assert.ErrorIs(t, s.DeleteObject(ctx, old, true), domain.ErrVersioning)
	_, err = s.ApplyACL(ctx, old, domain.ACL{{Principal: "bob", Permissions: []string{domain.PermissionRead}}}, nil)
	assert.ErrorIs(t, err, domain.ErrVersioning)

	historical, err := s.GetObject(ctx, old)
	require.NoError(t, err)
	assert.Equal(t, "a.txt", historical.Name())
	assert.Equal(t, doc.VersionSeriesID(), historical.VersionSeriesID())
	parents, err := s.GetObjectParents(ctx, old)
	require.NoError(t, err)
	assert.Equal(t, []string{s.RootFolderID()}, ids(parents))
}

// TestVersioning_DeleteWithPWC tests that deleting a checked out document
// removes the working copy.
func TestVersioning_DeleteWithPWC(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	doc := mustDocument(t, s, s.RootFolderID(), "a.txt", "x")
	pwc, err := s.Checkout(ctx, doc.ID)
	require.NoError(t, err)

	require.NoError(t, s.DeleteObject(ctx, doc.ID, true))

	_, err = s.GetObject(ctx, pwc.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = s.GetAllVersions(ctx, doc.VersionSeriesID())
	assert.ErrorIs(t, err, domain.ErrNotFound)
	docs, err := s.GetCheckedOutDocs(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, docs)
}

// TestVersioning_DeleteSingleVersion tests allVersions is required once a
// document has several versions.
func TestVersioning_DeleteSingleVersion(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	doc := mustDocument(t, s, s.RootFolderID(), "a.txt", "x")
	pwc, err := s.Checkout(ctx, doc.ID)
	require.NoError(t, err)
	_, err = s.Checkin(ctx, pwc.ID, domain.CheckinInput{Major: true})
	require.NoError(t, err)

	assert.ErrorIs(t, s.DeleteObject(ctx, doc.ID, false), domain.ErrConstraint)
	require.NoError(t, s.DeleteObject(ctx, doc.ID, true))
}

// TestVersioning_DeletePWCCancels tests deleting a working copy cancels the checkout.
func TestVersioning_DeletePWCCancels(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	doc := mustDocument(t, s, s.RootFolderID(), "a.txt", "x")
	pwc, err := s.Checkout(ctx, doc.ID)
	require.NoError(t, err)

	require.NoError(t, s.DeleteObject(ctx, pwc.ID, false))

	latest, err := s.GetObject(ctx, doc.ID)
	require.NoError(t, err)
	assert.False(t, latest.IsCheckedOut())
	assert.True(t, latest.IsLatestVersion())
}

// TestVersioning_CreateCheckedOut tests creating a document checked out.
func TestVersioning_CreateCheckedOut(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	pwc, err := s.CreateDocument(ctx, domain.ObjectInput{
		ParentID:        s.RootFolderID(),
		Properties:      named("a.txt"),
		VersioningState: domain.VersioningStateCheckedOut,
	})
	require.NoError(t, err)

	assert.Equal(t, "pwc", pwc.VersionLabel())
	docs, err := s.GetCheckedOutDocs(ctx, s.RootFolderID())
	require.NoError(t, err)
	assert.Equal(t, []string{pwc.ID}, ids(docs))
}

// TestVersioning_NotVersionable tests documents of non-versionable types.
func TestVersioning_NotVersionable(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	_, err := s.AddType(ctx, &domain.TypeDefinition{
		ID: "test:note", ParentID: string(domain.BaseTypeDocument), BaseType: domain.BaseTypeDocument,
		Creatable: true, Fileable: true, ControllableACL: true, ControllablePolicy: true,
	})
	require.NoError(t, err)

	props := named("note.txt")
	props[domain.PropObjectTypeID] = domain.NewIDProperty(domain.PropObjectTypeID, "test:note")
	doc, err := s.CreateDocument(ctx, domain.ObjectInput{ParentID: s.RootFolderID(), Properties: props})
	require.NoError(t, err)

	_, err = s.Checkout(ctx, doc.ID)
	assert.ErrorIs(t, err, domain.ErrConstraint)

	versions, err := s.GetAllVersions(ctx, doc.VersionSeriesID())
	require.NoError(t, err)
	assert.Equal(t, []string{doc.ID}, ids(versions))

	props[domain.PropName] = domain.NewStringProperty(domain.PropName, "other.txt")
	_, err = s.CreateDocument(ctx, domain.ObjectInput{
		ParentID: s.RootFolderID(), Properties: props, VersioningState: domain.VersioningStateMajor,
	})
	assert.ErrorIs(t, err, domain.ErrConstraint)
}

// TestNextVersionLabel tests label arithmetic.
func TestNextVersionLabel(t *testing.T) {
	tests := []struct {
		current string
		major   bool
		want    string
		wantErr bool
	}{
		{"1.0", true, "2.0", false},
		{"1.0", false, "1.1", false},
		{"1.9", false, "1.10", false},
		{"0.3", true, "1.0", false},
		{"", false, "0.1", false},
		{"pwc", true, "", true},
	}
	for _, tt := range tests {
		got, err := nextVersionLabel(tt.current, tt.major)
		if tt.wantErr {
			assert.ErrorIs(t, err, domain.ErrVersioning)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}
