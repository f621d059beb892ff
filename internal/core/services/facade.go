package services

import (
	"context"
	"errors"

	"github.com/custodia-labs/xcmis/internal/core/domain"
	"github.com/custodia-labs/xcmis/internal/logger"
)

// create builds, validates and saves a new object from in.
func (se *session) create(ctx context.Context, base domain.BaseType, in domain.ObjectInput) (*ObjectData, error) {
	o, err := se.newObject(ctx, in.Properties.Get(domain.PropObjectTypeID).String(), base)
	if err != nil {
		return nil, err
	}
	o.parentID = in.ParentID
	o.versioningState = in.VersioningState
	if in.Content != nil {
		if err := o.SetContentStream(in.Content, false); err != nil {
			return nil, err
		}
	}
	if err := o.SetProperties(in.Properties); err != nil {
		return nil, err
	}
	if len(in.AddACL) > 0 || len(in.RemoveACL) > 0 {
		if err := o.SetACL(domain.ACL(nil).Merge(in.AddACL, in.RemoveACL)); err != nil {
			return nil, err
		}
	}
	for _, id := range in.Policies {
		policy, err := se.object(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := o.ApplyPolicy(policy); err != nil {
			return nil, err
		}
	}
	if err := o.Save(ctx); err != nil {
		return nil, err
	}
	return o, nil
}

// CreateDocument creates a document. With VersioningStateCheckedOut the
// private working copy is returned.
func (s *Storage) CreateDocument(ctx context.Context, in domain.ObjectInput) (*domain.CmisObject, error) {
	var result *domain.CmisObject
	err := s.withSession(ctx, true, func(se *session) error {
		o, err := se.create(ctx, domain.BaseTypeDocument, in)
		if err != nil {
			return err
		}
		if in.VersioningState == domain.VersioningStateCheckedOut {
			if o, err = o.Checkout(ctx); err != nil {
				return err
			}
		}
		result = o.snapshot(ctx)
		return nil
	})
	return result, err
}

// CreateFolder creates a folder.
func (s *Storage) CreateFolder(ctx context.Context, in domain.ObjectInput) (*domain.CmisObject, error) {
	return s.createObject(ctx, domain.BaseTypeFolder, in)
}

// CreatePolicy creates a policy.
func (s *Storage) CreatePolicy(ctx context.Context, in domain.ObjectInput) (*domain.CmisObject, error) {
	return s.createObject(ctx, domain.BaseTypePolicy, in)
}

// CreateRelationship creates a relationship.
func (s *Storage) CreateRelationship(ctx context.Context, in domain.ObjectInput) (*domain.CmisObject, error) {
	return s.createObject(ctx, domain.BaseTypeRelationship, in)
}

func (s *Storage) createObject(ctx context.Context, base domain.BaseType, in domain.ObjectInput) (*domain.CmisObject, error) {
	var result *domain.CmisObject
	err := s.withSession(ctx, true, func(se *session) error {
		o, err := se.create(ctx, base, in)
		if err != nil {
			return err
		}
		result = o.snapshot(ctx)
		return nil
	})
	return result, err
}

// read runs fn on one object in a read-only session.
func (s *Storage) read(ctx context.Context, id string, fn func(*session, *ObjectData) error) error {
	return s.withSession(ctx, false, func(se *session) error {
		o, err := se.object(ctx, id)
		if err != nil {
			return err
		}
		return fn(se, o)
	})
}

// update runs fn on one object in a writing session.
func (s *Storage) update(ctx context.Context, id string, fn func(*session, *ObjectData) error) error {
	return s.withSession(ctx, true, func(se *session) error {
		o, err := se.object(ctx, id)
		if err != nil {
			return err
		}
		return fn(se, o)
	})
}

// GetObject returns an object by id.
func (s *Storage) GetObject(ctx context.Context, id string) (*domain.CmisObject, error) {
	var result *domain.CmisObject
	err := s.read(ctx, id, func(_ *session, o *ObjectData) error {
		result = o.snapshot(ctx)
		return nil
	})
	return result, err
}

// GetObjectByPath returns the object at path.
func (s *Storage) GetObjectByPath(ctx context.Context, path string) (*domain.CmisObject, error) {
	var result *domain.CmisObject
	err := s.withSession(ctx, false, func(se *session) error {
		o, err := se.byPath(ctx, path)
		if err != nil {
			return err
		}
		result = o.snapshot(ctx)
		return nil
	})
	return result, err
}

// UpdateProperties changes properties of an object.
func (s *Storage) UpdateProperties(ctx context.Context, id, changeToken string, props domain.Properties) (*domain.CmisObject, error) {
	var result *domain.CmisObject
	err := s.update(ctx, id, func(_ *session, o *ObjectData) error {
		if changeToken != "" && changeToken != o.ChangeToken() {
			return domain.UpdateConflictf("object %s has changed", id)
		}
		if err := o.SetProperties(props); err != nil {
			return err
		}
		if err := o.Save(ctx); err != nil {
			return err
		}
		result = o.snapshot(ctx)
		return nil
	})
	return result, err
}

// DeleteObject deletes an object.
func (s *Storage) DeleteObject(ctx context.Context, id string, allVersions bool) error {
	return s.update(ctx, id, func(_ *session, o *ObjectData) error {
		return o.Delete(ctx, allVersions)
	})
}

// GetContentStream returns the content of a document or of a rendition.
func (s *Storage) GetContentStream(ctx context.Context, id, streamID string) (*domain.ContentStream, error) {
	var result *domain.ContentStream
	err := s.read(ctx, id, func(se *session, o *ObjectData) error {
		if streamID != "" {
			var err error
			result, err = se.renditionStream(ctx, o, streamID)
			return err
		}
		if o.BaseType() != domain.BaseTypeDocument {
			return domain.Constraintf("object %s is not a document", id)
		}
		if result = o.contentStream(); result == nil {
			return domain.Constraintf("document %s has no content stream", id)
		}
		return nil
	})
	return result, err
}

// SetContentStream replaces the content of a document.
func (s *Storage) SetContentStream(ctx context.Context, id string, content *domain.ContentStream, overwrite bool) (*domain.CmisObject, error) {
	if content == nil {
		return nil, domain.InvalidArgumentf("content stream is required")
	}
	return s.changeContent(ctx, id, content, overwrite)
}

// DeleteContentStream removes the content of a document.
func (s *Storage) DeleteContentStream(ctx context.Context, id string) (*domain.CmisObject, error) {
	return s.changeContent(ctx, id, nil, true)
}

func (s *Storage) changeContent(ctx context.Context, id string, content *domain.ContentStream, overwrite bool) (*domain.CmisObject, error) {
	var result *domain.CmisObject
	err := s.update(ctx, id, func(se *session, o *ObjectData) error {
		if err := o.SetContentStream(content, overwrite); err != nil {
			return err
		}
		if err := o.Save(ctx); err != nil {
			return err
		}
		if err := se.storeRenditions(ctx, o); err != nil {
			return err
		}
		result = o.snapshot(ctx)
		return nil
	})
	return result, err
}

// GetRenditions lists the renditions of a document.
func (s *Storage) GetRenditions(ctx context.Context, id string) ([]domain.Rendition, error) {
	var result []domain.Rendition
	err := s.read(ctx, id, func(se *session, o *ObjectData) error {
		var err error
		result, err = se.renditions(ctx, o)
		return err
	})
	return result, err
}

// GetRenditionStream returns the content of one rendition.
func (s *Storage) GetRenditionStream(ctx context.Context, id, streamID string) (*domain.ContentStream, error) {
	if streamID == "" {
		return nil, domain.InvalidArgumentf("stream id is required")
	}
	return s.GetContentStream(ctx, id, streamID)
}

// Checkout creates the private working copy of a document.
func (s *Storage) Checkout(ctx context.Context, id string) (*domain.CmisObject, error) {
	var result *domain.CmisObject
	err := s.update(ctx, id, func(_ *session, o *ObjectData) error {
		pwc, err := o.Checkout(ctx)
		if err != nil {
			return err
		}
		result = pwc.snapshot(ctx)
		return nil
	})
	return result, err
}

// Checkin seals a private working copy.
func (s *Storage) Checkin(ctx context.Context, pwcID string, in domain.CheckinInput) (*domain.CmisObject, error) {
	var result *domain.CmisObject
	err := s.update(ctx, pwcID, func(_ *session, o *ObjectData) error {
		latest, err := o.Checkin(ctx, in)
		if err != nil {
			return err
		}
		result = latest.snapshot(ctx)
		return nil
	})
	return result, err
}

// CancelCheckout discards a private working copy.
func (s *Storage) CancelCheckout(ctx context.Context, id string) error {
	return s.update(ctx, id, func(_ *session, o *ObjectData) error {
		return o.CancelCheckout(ctx)
	})
}

// GetAllVersions returns a version series oldest first.
func (s *Storage) GetAllVersions(ctx context.Context, versionSeriesID string) ([]*domain.CmisObject, error) {
	var result []*domain.CmisObject
	err := s.withSession(ctx, false, func(se *session) error {
		versions, err := se.allVersions(ctx, versionSeriesID)
		if err != nil {
			return err
		}
		result = snapshots(ctx, versions)
		return nil
	})
	return result, err
}

// GetCheckedOutDocs lists private working copies.
func (s *Storage) GetCheckedOutDocs(ctx context.Context, folderID string) ([]*domain.CmisObject, error) {
	var result []*domain.CmisObject
	err := s.withSession(ctx, false, func(se *session) error {
		if folderID != "" {
			if _, err := se.folder(ctx, folderID); err != nil {
				return err
			}
		}
		docs, err := se.checkedOut(ctx, folderID)
		if err != nil {
			return err
		}
		result = snapshots(ctx, docs)
		return nil
	})
	return result, err
}

// GetChildren lists the objects filed in a folder.
func (s *Storage) GetChildren(ctx context.Context, folderID string) ([]*domain.CmisObject, error) {
	var result []*domain.CmisObject
	err := s.withSession(ctx, false, func(se *session) error {
		if _, err := se.folder(ctx, folderID); err != nil {
			return err
		}
		children, err := se.children(ctx, folderID)
		if err != nil {
			return err
		}
		result = snapshots(ctx, children)
		return nil
	})
	return result, err
}

// GetDescendants returns the subtree of a folder.
func (s *Storage) GetDescendants(ctx context.Context, folderID string, depth int) ([]*domain.ObjectTree, error) {
	return s.descendants(ctx, folderID, depth, false)
}

// GetFolderTree returns the folders below a folder.
func (s *Storage) GetFolderTree(ctx context.Context, folderID string, depth int) ([]*domain.ObjectTree, error) {
	return s.descendants(ctx, folderID, depth, true)
}

func (s *Storage) descendants(ctx context.Context, folderID string, depth int, foldersOnly bool) ([]*domain.ObjectTree, error) {
	var result []*domain.ObjectTree
	err := s.withSession(ctx, false, func(se *session) error {
		if _, err := se.folder(ctx, folderID); err != nil {
			return err
		}
		var err error
		result, err = se.tree(ctx, folderID, depth, foldersOnly)
		return err
	})
	return result, err
}

// GetObjectParents lists the folders an object is filed in.
func (s *Storage) GetObjectParents(ctx context.Context, id string) ([]*domain.CmisObject, error) {
	var result []*domain.CmisObject
	err := s.read(ctx, id, func(_ *session, o *ObjectData) error {
		parents, err := o.Parents(ctx)
		if err != nil {
			return err
		}
		result = snapshots(ctx, parents)
		return nil
	})
	return result, err
}

// GetFolderParent returns the parent of a folder.
func (s *Storage) GetFolderParent(ctx context.Context, folderID string) (*domain.CmisObject, error) {
	var result *domain.CmisObject
	err := s.withSession(ctx, false, func(se *session) error {
		f, err := se.folder(ctx, folderID)
		if err != nil {
			return err
		}
		if f.isRoot() {
			return domain.InvalidArgumentf("root folder has no parent")
		}
		parent, err := f.Parent(ctx)
		if err != nil {
			return err
		}
		result = parent.snapshot(ctx)
		return nil
	})
	return result, err
}

// GetObjectRelationships lists the relationships of an object.
func (s *Storage) GetObjectRelationships(ctx context.Context, id, direction, typeID string) ([]*domain.CmisObject, error) {
	dir, err := domain.ParseRelationshipDirection(direction)
	if err != nil {
		return nil, err
	}
	var result []*domain.CmisObject
	err = s.read(ctx, id, func(se *session, o *ObjectData) error {
		rels, err := se.relationships(ctx, o, dir, typeID)
		if err != nil {
			return err
		}
		result = snapshots(ctx, rels)
		return nil
	})
	return result, err
}

// MoveObject moves an object between folders.
func (s *Storage) MoveObject(ctx context.Context, id, targetFolderID, sourceFolderID string) (*domain.CmisObject, error) {
	var result *domain.CmisObject
	err := s.update(ctx, id, func(se *session, o *ObjectData) error {
		target, err := se.folder(ctx, targetFolderID)
		if err != nil {
			return err
		}
		if sourceFolderID == "" && o.node != nil {
			sourceFolderID = o.node.ParentID
		}
		source, err := se.folder(ctx, sourceFolderID)
		if err != nil {
			return err
		}
		if err := o.Move(ctx, target, source); err != nil {
			return err
		}
		result = o.snapshot(ctx)
		return nil
	})
	return result, err
}

// AddObjectToFolder files an object in a folder.
func (s *Storage) AddObjectToFolder(ctx context.Context, id, folderID string) error {
	return s.update(ctx, id, func(se *session, o *ObjectData) error {
		f, err := se.folder(ctx, folderID)
		if err != nil {
			return err
		}
		return f.AddObject(ctx, o)
	})
}

// RemoveObjectFromFolder unfiles an object from one folder or from all.
func (s *Storage) RemoveObjectFromFolder(ctx context.Context, id, folderID string) error {
	return s.update(ctx, id, func(se *session, o *ObjectData) error {
		if folderID == "" {
			return o.Unfile(ctx)
		}
		f, err := se.folder(ctx, folderID)
		if err != nil {
			return err
		}
		return f.RemoveObject(ctx, o)
	})
}

// DeleteTree deletes a folder and everything filed below it.
func (s *Storage) DeleteTree(ctx context.Context, folderID string, allVersions bool, unfile domain.UnfileObject, continueOnFailure bool) ([]string, error) {
	unfile, err := domain.ParseUnfileObject(string(unfile))
	if err != nil {
		return nil, err
	}
	var failed []string
	err = s.withSession(ctx, true, func(se *session) error {
		f, err := se.folder(ctx, folderID)
		if err != nil {
			return err
		}
		failed, err = se.deleteTree(ctx, f, allVersions, unfile, continueOnFailure)
		return err
	})
	if len(failed) > 0 {
		logger.Warn("Tree delete of %s left %d objects", folderID, len(failed))
	}
	return failed, err
}

// ApplyPolicy applies a policy to an object.
func (s *Storage) ApplyPolicy(ctx context.Context, policyID, objectID string) error {
	return s.update(ctx, objectID, func(se *session, o *ObjectData) error {
		policy, err := se.object(ctx, policyID)
		if err != nil {
			return err
		}
		if err := o.ApplyPolicy(policy); err != nil {
			return err
		}
		return o.Save(ctx)
	})
}

// RemovePolicy removes a policy from an object.
func (s *Storage) RemovePolicy(ctx context.Context, policyID, objectID string) error {
	return s.update(ctx, objectID, func(_ *session, o *ObjectData) error {
		if err := o.RemovePolicy(policyID); err != nil {
			return err
		}
		return o.Save(ctx)
	})
}

// GetAppliedPolicies lists the policies applied to an object.
func (s *Storage) GetAppliedPolicies(ctx context.Context, id string) ([]*domain.CmisObject, error) {
	var result []*domain.CmisObject
	err := s.read(ctx, id, func(se *session, o *ObjectData) error {
		for _, pid := range o.Policies() {
			policy, err := se.object(ctx, pid)
			if err != nil {
				return err
			}
			result = append(result, policy.snapshot(ctx))
		}
		return nil
	})
	return result, err
}

// GetACL returns the ACL of an object.
func (s *Storage) GetACL(ctx context.Context, id string) (domain.ACL, error) {
	var result domain.ACL
	err := s.read(ctx, id, func(_ *session, o *ObjectData) error {
		result = o.ACL()
		return nil
	})
	return result, err
}

// ApplyACL changes the ACL of an object.
func (s *Storage) ApplyACL(ctx context.Context, id string, addACL, removeACL domain.ACL) (domain.ACL, error) {
	var result domain.ACL
	err := s.update(ctx, id, func(_ *session, o *ObjectData) error {
		if err := o.SetACL(o.ACL().Merge(addACL, removeACL)); err != nil {
			return err
		}
		if err := o.Save(ctx); err != nil {
			return err
		}
		result = o.ACL()
		return nil
	})
	return result, err
}

// AddType registers a custom type.
func (s *Storage) AddType(ctx context.Context, def *domain.TypeDefinition) (*domain.TypeDefinition, error) {
	return s.types.Add(ctx, def)
}

// RemoveType unregisters a custom type that has no subtypes and no objects.
func (s *Storage) RemoveType(ctx context.Context, id string) error {
	err := s.withSession(ctx, false, func(se *session) error {
		inUse, err := se.typeInUse(ctx, id)
		if err != nil {
			return err
		}
		if inUse {
			return domain.Constraintf("type %s has objects", id)
		}
		return nil
	})
	if err != nil {
		return err
	}
	return s.types.Remove(ctx, id)
}

// GetTypeDefinition returns a type.
func (s *Storage) GetTypeDefinition(ctx context.Context, id string) (*domain.TypeDefinition, error) {
	return s.types.Get(ctx, id)
}

// GetTypeChildren lists the direct subtypes of a type.
func (s *Storage) GetTypeChildren(ctx context.Context, id string) ([]*domain.TypeDefinition, error) {
	return s.types.Children(ctx, id)
}

// typeInUse reports whether any node in the repository is of typeID.
func (se *session) typeInUse(ctx context.Context, typeID string) (bool, error) {
	root, err := se.tx.Root(ctx)
	if err != nil {
		return false, err
	}
	queue := []string{root.ID}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		children, err := se.tx.Children(ctx, id)
		if err != nil {
			return false, err
		}
		for _, c := range children {
			if c.PrimaryType == typeID {
				return true, nil
			}
			queue = append(queue, c.ID)
		}
	}
	return false, nil
}

// relationships lists the relationships of o in the given direction,
// optionally restricted to a type and its subtypes.
func (se *session) relationships(ctx context.Context, o *ObjectData, dir domain.RelationshipDirection, typeID string) ([]*ObjectData, error) {
	if o.node == nil {
		return nil, nil
	}
	refs, err := se.tx.ReferencesTo(ctx, o.node.ID)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var result []*ObjectData //nolint:prealloc // size unknown from query
	for _, ref := range refs {
		switch {
		case ref.Name == domain.PropSourceID && dir != domain.RelationshipTarget:
		case ref.Name == domain.PropTargetID && dir != domain.RelationshipSource:
		default:
			continue
		}
		if seen[ref.SourceID] {
			continue
		}
		seen[ref.SourceID] = true
		rel, err := se.object(ctx, ref.SourceID)
		if err != nil {
			return nil, err
		}
		if typeID != "" && !se.s.types.IsSubtype(ctx, rel.typeDef.ID, typeID) {
			continue
		}
		result = append(result, rel)
	}
	return result, nil
}

// Query searches the index and returns the matching objects that still
// exist, filtered by type and folder.
func (s *Storage) Query(ctx context.Context, q domain.Query) ([]*domain.CmisObject, error) {
	if s.search == nil {
		return nil, domain.NotSupportedf("search is not configured")
	}
	if q.IsEmpty() {
		return nil, nil
	}
	if q.Limit < 0 || q.Offset < 0 {
		return nil, domain.InvalidArgumentf("limit and offset must not be negative")
	}
	logger.Debug("Query: text=%q type=%q folder=%q", q.Text, q.TypeID, q.FolderID)

	engineQuery := q
	engineQuery.Limit, engineQuery.Offset = 0, 0
	hits, err := s.search.Search(ctx, engineQuery)
	if err != nil {
		return nil, domain.WrapStorage(err, "searching index")
	}

	var result []*domain.CmisObject
	err = s.withSession(ctx, false, func(se *session) error {
		skipped := 0
		for _, hit := range hits {
			o, err := se.object(ctx, hit.ObjectID)
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			ok, err := se.matches(ctx, o, q)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			if skipped < q.Offset {
				skipped++
				continue
			}
			result = append(result, o.snapshot(ctx))
			if q.Limit > 0 && len(result) == q.Limit {
				break
			}
		}
		return nil
	})
	logger.Debug("Query returned %d of %d hits", len(result), len(hits))
	return result, err
}

func (se *session) matches(ctx context.Context, o *ObjectData, q domain.Query) (bool, error) {
	if q.TypeID != "" && !se.s.types.IsSubtype(ctx, o.typeDef.ID, q.TypeID) {
		return false, nil
	}
	if q.FolderID == "" {
		return true, nil
	}
	parents, err := o.Parents(ctx)
	if err != nil {
		return false, err
	}
	return containsObject(parents, q.FolderID), nil
}

func snapshots(ctx context.Context, objs []*ObjectData) []*domain.CmisObject {
	result := make([]*domain.CmisObject, 0, len(objs))
	for _, o := range objs {
		result = append(result, o.snapshot(ctx))
	}
	return result
}
