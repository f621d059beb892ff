package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/custodia-labs/xcmis/internal/core/domain"
)

// versionControlled lists the properties owned by the versioning state
// machine. They are never copied between a document and its working copy.
var versionControlled = map[string]bool{
	domain.PropObjectID:                  true,
	domain.PropBaseTypeID:                true,
	domain.PropObjectTypeID:              true,
	domain.PropCreatedBy:                 true,
	domain.PropCreationDate:              true,
	domain.PropLastModifiedBy:            true,
	domain.PropLastModificationDate:      true,
	domain.PropChangeToken:               true,
	domain.PropIsLatestVersion:           true,
	domain.PropIsMajorVersion:            true,
	domain.PropIsLatestMajorVersion:      true,
	domain.PropVersionLabel:              true,
	domain.PropVersionSeriesID:           true,
	domain.PropIsVersionSeriesCheckedOut: true,
	domain.PropVersionSeriesCheckedOutBy: true,
	domain.PropVersionSeriesCheckedOutID: true,
	domain.PropCheckinComment:            true,
	domain.PropContentStreamLength:       true,
	domain.PropContentStreamMimeType:     true,
	domain.PropContentStreamFileName:     true,
	domain.PropContentStreamID:           true,
}

// workingCopy returns the working copy container and working copy of a
// version series, or domain.ErrNotFound.
func (se *session) workingCopy(ctx context.Context, seriesID string) (container, pwc *domain.Node, err error) {
	container, err = se.tx.ChildByName(ctx, se.s.workingCopiesID, seriesID)
	if err != nil {
		return nil, nil, err
	}
	children, err := se.tx.Children(ctx, container.ID)
	if err != nil {
		return nil, nil, err
	}
	if len(children) == 0 {
		return nil, nil, domain.NotFoundf("working copy of %s not found", seriesID)
	}
	return container, children[0], nil
}

// Checkout creates the private working copy of the latest version.
func (o *ObjectData) Checkout(ctx context.Context) (*ObjectData, error) {
	if err := o.immutable(); err != nil {
		return nil, err
	}
	if o.node == nil || o.typeDef.BaseType != domain.BaseTypeDocument {
		return nil, domain.InvalidArgumentf("object %s is not a document", o.ID())
	}
	if o.role == rolePWC {
		return nil, domain.Versioningf("document %s is a private working copy", o.ID())
	}
	if !o.typeDef.Versionable {
		return nil, domain.Constraintf("type %s is not versionable", o.typeDef.ID)
	}

	seriesID := o.node.VersionHistoryID
	_, err := o.se.tx.ChildByName(ctx, o.se.s.workingCopiesID, seriesID)
	if err == nil {
		return nil, domain.Versioningf("document %s is already checked out", o.ID())
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	container, err := o.se.tx.AddNode(ctx, domain.NewNode(o.se.s.workingCopiesID, seriesID, domain.NodeTypeSystem))
	if err != nil {
		return nil, err
	}

	pwc := domain.NewNode(container.ID, o.node.Name, o.typeDef.ID)
	pwc.ID = newID()
	for id, p := range o.node.Properties {
		if !versionControlled[id] {
			pwc.SetProperty(p.Clone())
		}
	}
	for _, m := range o.node.Mixins {
		if m != domain.MixinVersionable {
			pwc.AddMixin(m)
		}
	}
	pwc.SetReferences(domain.RefPolicies, o.node.References[domain.RefPolicies]...)
	pwc.SetReferences(domain.RefLatestVersion, o.node.ID)
	pwc.Content = o.node.Content.Clone()
	o.se.stampCreated(pwc)
	pwc.SetProperty(domain.NewIDProperty(domain.PropVersionSeriesID, seriesID))
	pwc.SetProperty(domain.NewStringProperty(domain.PropVersionLabel, labelPWC))
	pwc.SetProperty(domain.NewBooleanProperty(domain.PropIsLatestVersion, false))
	pwc.SetProperty(domain.NewBooleanProperty(domain.PropIsMajorVersion, false))
	pwc.SetProperty(domain.NewBooleanProperty(domain.PropIsLatestMajorVersion, false))
	markCheckedOut(pwc, pwc.ID, o.se.s.user)

	added, err := o.se.tx.AddNode(ctx, pwc)
	if err != nil {
		return nil, err
	}

	o.node.SetProperty(domain.NewBooleanProperty(domain.PropIsLatestVersion, false))
	markCheckedOut(o.node, added.ID, o.se.s.user)
	if err := o.se.tx.UpdateNode(ctx, o.node); err != nil {
		return nil, err
	}
	o.se.record(o.node.ID, domain.ChangeUpdated)
	o.se.record(added.ID, domain.ChangeCreated)
	return o.se.objectFromNode(ctx, added)
}

func markCheckedOut(n *domain.Node, pwcID, user string) {
	n.SetProperty(domain.NewBooleanProperty(domain.PropIsVersionSeriesCheckedOut, true))
	n.SetProperty(domain.NewIDProperty(domain.PropVersionSeriesCheckedOutID, pwcID))
	n.SetProperty(domain.NewStringProperty(domain.PropVersionSeriesCheckedOutBy, user))
}

func clearCheckedOut(n *domain.Node) {
	n.SetProperty(domain.NewBooleanProperty(domain.PropIsVersionSeriesCheckedOut, false))
	n.RemoveProperty(domain.PropVersionSeriesCheckedOutID)
	n.RemoveProperty(domain.PropVersionSeriesCheckedOutBy)
}

// Checkin seals the working copy as the new latest version and removes it.
// It returns the latest version.
func (o *ObjectData) Checkin(ctx context.Context, in domain.CheckinInput) (*ObjectData, error) {
	if err := o.immutable(); err != nil {
		return nil, err
	}
	if o.role != rolePWC {
		return nil, domain.Constraintf("object %s is not a private working copy", o.ID())
	}

	overrides := make(domain.Properties, len(in.Properties))
	for id, p := range in.Properties {
		if !versionControlled[id] {
			overrides[id] = p
		}
	}
	if err := o.SetProperties(overrides); err != nil {
		return nil, err
	}
	if in.Content != nil {
		if err := checkContentAllowed(o.typeDef, in.Content); err != nil {
			return nil, err
		}
		o.node.Content = in.Content.Clone()
	}
	if len(in.AddACL) > 0 || len(in.RemoveACL) > 0 {
		if err := o.SetACL(o.ACL().Merge(in.AddACL, in.RemoveACL)); err != nil {
			return nil, err
		}
	}
	for _, id := range in.Policies {
		policy, err := o.se.object(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := o.ApplyPolicy(policy); err != nil {
			return nil, err
		}
	}

	latest, err := o.se.tx.Node(ctx, o.node.Reference(domain.RefLatestVersion))
	if err != nil {
		return nil, err
	}
	next := latest.Clone()
	for id := range next.Properties {
		if !versionControlled[id] {
			delete(next.Properties, id)
		}
	}
	for id, p := range o.node.Properties {
		if !versionControlled[id] {
			next.SetProperty(p.Clone())
		}
	}
	for _, m := range o.node.Mixins {
		next.AddMixin(m)
	}
	next.SetReferences(domain.RefPolicies, o.node.References[domain.RefPolicies]...)
	next.Content = o.node.Content.Clone()

	label, err := nextVersionLabel(latest.Properties.Get(domain.PropVersionLabel).String(), in.Major)
	if err != nil {
		return nil, err
	}
	next.SetProperty(domain.NewStringProperty(domain.PropVersionLabel, label))
	next.SetProperty(domain.NewBooleanProperty(domain.PropIsLatestVersion, true))
	next.SetProperty(domain.NewBooleanProperty(domain.PropIsMajorVersion, in.Major))
	next.SetProperty(domain.NewBooleanProperty(domain.PropIsLatestMajorVersion, in.Major))
	if in.Comment != "" {
		next.SetProperty(domain.NewStringProperty(domain.PropCheckinComment, in.Comment))
	} else {
		next.RemoveProperty(domain.PropCheckinComment)
	}
	clearCheckedOut(next)

	lo, err := o.se.objectFromNode(ctx, next)
	if err != nil {
		return nil, err
	}
	lo.stampModified()
	if err := o.se.tx.UpdateNode(ctx, next); err != nil {
		return nil, err
	}
	if name := o.Name(); name != latest.Name {
		lo.newName = name
		if err := lo.rename(ctx); err != nil {
			return nil, err
		}
	}
	if err := o.se.seal(ctx, latest.ID); err != nil {
		return nil, err
	}
	if err := o.se.tx.RemoveNode(ctx, o.node.ParentID); err != nil {
		return nil, err
	}
	o.se.record(o.node.ID, domain.ChangeDeleted)
	o.se.record(latest.ID, domain.ChangeUpdated)

	if lo.node, err = o.se.tx.Node(ctx, latest.ID); err != nil {
		return nil, err
	}
	if err := o.se.storeRenditions(ctx, lo); err != nil {
		return nil, err
	}
	return lo, nil
}

// nextVersionLabel increments a "major.minor" label.
func nextVersionLabel(current string, major bool) (string, error) {
	maj, minor := 0, 0
	if current != "" {
		a, b, ok := strings.Cut(current, ".")
		var errA, errB error
		maj, errA = strconv.Atoi(a)
		minor, errB = strconv.Atoi(b)
		if !ok || errA != nil || errB != nil {
			return "", domain.Versioningf("cannot increment version label %q", current)
		}
	}
	if major {
		return fmt.Sprintf("%d.0", maj+1), nil
	}
	return fmt.Sprintf("%d.%d", maj, minor+1), nil
}

// CancelCheckout discards the working copy of the series. The object may be
// the working copy or the checked out latest version.
func (o *ObjectData) CancelCheckout(ctx context.Context) error {
	if err := o.immutable(); err != nil {
		return err
	}
	if o.node == nil || o.typeDef.BaseType != domain.BaseTypeDocument {
		return domain.InvalidArgumentf("object %s is not a document", o.ID())
	}

	var latest *domain.Node
	var err error
	if o.role == rolePWC {
		latest, err = o.se.tx.Node(ctx, o.node.Reference(domain.RefLatestVersion))
	} else {
		latest, err = o.se.tx.Node(ctx, o.node.ID)
	}
	if err != nil {
		return err
	}
	container, pwc, err := o.se.workingCopy(ctx, latest.VersionHistoryID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Versioningf("document %s is not checked out", latest.ID)
	}
	if err != nil {
		return err
	}

	if err := o.se.tx.RemoveNode(ctx, container.ID); err != nil {
		return err
	}
	latest.SetProperty(domain.NewBooleanProperty(domain.PropIsLatestVersion, true))
	clearCheckedOut(latest)
	if err := o.se.tx.UpdateNode(ctx, latest); err != nil {
		return err
	}
	if o.role == roleLatest {
		o.node = latest
	}
	o.se.record(pwc.ID, domain.ChangeDeleted)
	o.se.record(latest.ID, domain.ChangeUpdated)
	return nil
}

func (o *ObjectData) deleteDocument(ctx context.Context, allVersions bool) error {
	historyID := o.node.VersionHistoryID
	if historyID != "" {
		history, err := o.se.tx.VersionHistory(ctx, historyID)
		if err != nil {
			return err
		}
		if !allVersions && len(history) > 1 {
			return domain.Constraintf("document %s has %d versions, delete them with allVersions", o.node.ID, len(history))
		}
		container, pwc, err := o.se.workingCopy(ctx, historyID)
		switch {
		case err == nil:
			if err := o.checkUnreferenced(ctx, pwc.ID); err != nil {
				return err
			}
			if err := o.se.tx.RemoveNode(ctx, container.ID); err != nil {
				return err
			}
			o.se.record(pwc.ID, domain.ChangeDeleted)
		case !errors.Is(err, domain.ErrNotFound):
			return err
		}
	}
	if err := o.deleteFiled(ctx); err != nil {
		return err
	}
	if historyID != "" {
		return o.se.tx.RemoveVersionHistory(ctx, historyID)
	}
	return nil
}

// allVersions returns a version series oldest first: the sealed versions,
// the live latest version and an open working copy.
func (se *session) allVersions(ctx context.Context, seriesID string) ([]*ObjectData, error) {
	latest, err := se.tx.NodeByVersionHistory(ctx, seriesID)
	if errors.Is(err, domain.ErrNotFound) {
		// Documents of non-versionable types form a series of one.
		obj, oerr := se.object(ctx, seriesID)
		if oerr != nil || obj.BaseType() != domain.BaseTypeDocument || obj.node.VersionHistoryID != "" {
			return nil, domain.NotFoundf("version series %s not found", seriesID)
		}
		return []*ObjectData{obj}, nil
	}
	if err != nil {
		return nil, err
	}
	history, err := se.tx.VersionHistory(ctx, seriesID)
	if err != nil {
		return nil, err
	}

	result := make([]*ObjectData, 0, len(history)+1)
	latestMajor := latestMajorVersionID(history)
	if len(history) > 0 {
		for _, v := range history[:len(history)-1] {
			def, err := se.s.types.Get(ctx, v.Frozen.PrimaryType)
			if err != nil {
				return nil, err
			}
			result = append(result, &ObjectData{
				se: se, typeDef: def, node: v.Frozen, version: v, latest: latest,
				role: roleHistorical, isLatestMajor: v.ID == latestMajor,
			})
		}
	}
	lo, err := se.objectFromNode(ctx, latest)
	if err != nil {
		return nil, err
	}
	result = append(result, lo)

	_, pwc, err := se.workingCopy(ctx, seriesID)
	switch {
	case err == nil:
		po, err := se.objectFromNode(ctx, pwc)
		if err != nil {
			return nil, err
		}
		result = append(result, po)
	case !errors.Is(err, domain.ErrNotFound):
		return nil, err
	}
	return result, nil
}

// checkedOut lists the working copies, optionally only those of documents
// filed in folderID.
func (se *session) checkedOut(ctx context.Context, folderID string) ([]*ObjectData, error) {
	containers, err := se.tx.Children(ctx, se.s.workingCopiesID)
	if err != nil {
		return nil, err
	}
	var result []*ObjectData //nolint:prealloc // size unknown from query
	for _, c := range containers {
		_, pwc, err := se.workingCopy(ctx, c.Name)
		if err != nil {
			return nil, err
		}
		po, err := se.objectFromNode(ctx, pwc)
		if err != nil {
			return nil, err
		}
		if folderID != "" {
			parents, err := po.Parents(ctx)
			if err != nil {
				return nil, err
			}
			if !containsObject(parents, folderID) {
				continue
			}
		}
		result = append(result, po)
	}
	return result, nil
}

func containsObject(objs []*ObjectData, id string) bool {
	for _, o := range objs {
		if o.ID() == id {
			return true
		}
	}
	return false
}
