package services

import (
	"context"
	"errors"
	"strings"

	"github.com/custodia-labs/xcmis/internal/core/domain"
)

// fileable checks that obj can take part in multi-filing.
func (o *ObjectData) fileable() error {
	if err := o.immutable(); err != nil {
		return err
	}
	switch {
	case o.node == nil:
		return domain.InvalidArgumentf("object is not persisted")
	case o.role == rolePWC:
		return domain.InvalidArgumentf("private working copy %s cannot be filed", o.ID())
	case o.typeDef.BaseType == domain.BaseTypeFolder:
		return domain.InvalidArgumentf("folder %s cannot be multi-filed", o.ID())
	case !o.typeDef.BaseType.IsFileable() || !o.typeDef.Fileable:
		return domain.InvalidArgumentf("object %s is not fileable", o.ID())
	}
	return nil
}

// linkIn returns the link filing o in folderID, or nil.
func (o *ObjectData) linkIn(ctx context.Context, folderID string) (*domain.Node, error) {
	links, err := o.se.linksTo(ctx, o.node.ID)
	if err != nil {
		return nil, err
	}
	for _, l := range links {
		if l.ParentID == folderID {
			return l, nil
		}
	}
	return nil, nil
}

// filedIn reports whether o is filed in folderID, physically or by a link.
func (o *ObjectData) filedIn(ctx context.Context, folderID string) (bool, error) {
	if o.node.ParentID == folderID {
		return true, nil
	}
	link, err := o.linkIn(ctx, folderID)
	return link != nil, err
}

// AddObject files obj in the folder. An unfiled object is moved here;
// otherwise a link is created.
func (o *ObjectData) AddObject(ctx context.Context, obj *ObjectData) error {
	if o.typeDef.BaseType != domain.BaseTypeFolder || o.node == nil {
		return domain.InvalidArgumentf("object %s is not a folder", o.ID())
	}
	if err := obj.fileable(); err != nil {
		return err
	}
	filed, err := obj.filedIn(ctx, o.ID())
	if err != nil {
		return err
	}
	if filed {
		return domain.InvalidArgumentf("object %s is already filed in folder %s", obj.ID(), o.ID())
	}
	if err := o.allowsChild(ctx, obj.typeDef); err != nil {
		return err
	}
	name := obj.Name()
	if err := o.se.checkFree(ctx, o.ID(), name, ""); err != nil {
		return err
	}

	if o.se.isUnfiledContainer(ctx, obj.node.ParentID) {
		container := obj.node.ParentID
		if err := o.se.tx.MoveNode(ctx, obj.node.ID, o.ID(), name); err != nil {
			return err
		}
		if err := o.se.tx.RemoveNode(ctx, container); err != nil {
			return err
		}
		obj.node.ParentID = o.ID()
	} else {
		link := domain.NewNode(o.ID(), name, domain.NodeTypeLink)
		link.SetReferences(domain.RefTarget, obj.node.ID)
		if _, err := o.se.tx.AddNode(ctx, link); err != nil {
			return err
		}
	}
	o.se.record(obj.ID(), domain.ChangeUpdated)
	return nil
}

// RemoveObject unfiles obj from the folder. When the folder holds the object
// itself, a link from another folder is promoted in its place, or the object
// moves to the unfiled store.
func (o *ObjectData) RemoveObject(ctx context.Context, obj *ObjectData) error {
	if o.typeDef.BaseType != domain.BaseTypeFolder || o.node == nil {
		return domain.InvalidArgumentf("object %s is not a folder", o.ID())
	}
	if err := obj.fileable(); err != nil {
		return err
	}

	if obj.node.ParentID == o.ID() {
		links, err := o.se.linksTo(ctx, obj.node.ID)
		if err != nil {
			return err
		}
		if len(links) == 0 {
			if err := obj.moveToUnfiled(ctx); err != nil {
				return err
			}
		} else {
			promoted := links[0]
			if err := o.se.tx.RemoveNode(ctx, promoted.ID); err != nil {
				return err
			}
			if err := o.se.tx.MoveNode(ctx, obj.node.ID, promoted.ParentID, obj.Name()); err != nil {
				return err
			}
			obj.node.ParentID = promoted.ParentID
		}
		o.se.record(obj.ID(), domain.ChangeUpdated)
		return nil
	}

	link, err := obj.linkIn(ctx, o.ID())
	if err != nil {
		return err
	}
	if link == nil {
		return domain.InvalidArgumentf("object %s is not filed in folder %s", obj.ID(), o.ID())
	}
	if err := o.se.tx.RemoveNode(ctx, link.ID); err != nil {
		return err
	}
	o.se.record(obj.ID(), domain.ChangeUpdated)
	return nil
}

// Unfile removes the object from every folder.
func (o *ObjectData) Unfile(ctx context.Context) error {
	if err := o.fileable(); err != nil {
		return err
	}
	links, err := o.se.linksTo(ctx, o.node.ID)
	if err != nil {
		return err
	}
	for _, l := range links {
		if err := o.se.tx.RemoveNode(ctx, l.ID); err != nil {
			return err
		}
	}
	if !o.se.isUnfiledContainer(ctx, o.node.ParentID) {
		if err := o.moveToUnfiled(ctx); err != nil {
			return err
		}
	}
	o.se.record(o.ID(), domain.ChangeUpdated)
	return nil
}

func (o *ObjectData) moveToUnfiled(ctx context.Context) error {
	store := o.se.s.unfiledID
	if o.typeDef.BaseType == domain.BaseTypePolicy {
		store = o.se.s.policiesID
	}
	container, err := o.se.tx.AddNode(ctx, domain.NewNode(store, o.node.ID, domain.NodeTypeSystem))
	if err != nil {
		return err
	}
	if err := o.se.tx.MoveNode(ctx, o.node.ID, container.ID, o.Name()); err != nil {
		return err
	}
	o.node.ParentID = container.ID
	return nil
}

// Move moves the object from source to target. Without a source the
// physical parent is used.
func (o *ObjectData) Move(ctx context.Context, target, source *ObjectData) error {
	if err := o.immutable(); err != nil {
		return err
	}
	switch {
	case o.node == nil:
		return domain.InvalidArgumentf("object is not persisted")
	case o.isRoot():
		return domain.Constraintf("root folder cannot be moved")
	case o.role == rolePWC:
		return domain.InvalidArgumentf("private working copy %s cannot be moved", o.ID())
	case !o.typeDef.BaseType.IsFileable():
		return domain.InvalidArgumentf("object %s is not fileable", o.ID())
	}
	filed, err := o.filedIn(ctx, source.ID())
	if err != nil {
		return err
	}
	if !filed {
		return domain.InvalidArgumentf("object %s is not filed in folder %s", o.ID(), source.ID())
	}
	if target.ID() == source.ID() {
		return nil
	}
	if err := target.allowsChild(ctx, o.typeDef); err != nil {
		return err
	}

	name := o.Name()
	if o.node.ParentID == source.ID() {
		var link *domain.Node
		if o.typeDef.BaseType != domain.BaseTypeFolder {
			if link, err = o.linkIn(ctx, target.ID()); err != nil {
				return err
			}
		}
		if link != nil {
			if err := o.se.tx.RemoveNode(ctx, link.ID); err != nil {
				return err
			}
		} else if err := o.se.checkFree(ctx, target.ID(), name, o.node.ID); err != nil {
			return err
		}
		if err := o.se.tx.MoveNode(ctx, o.node.ID, target.ID(), name); err != nil {
			return err
		}
		o.node.ParentID = target.ID()
	} else {
		link, err := o.linkIn(ctx, source.ID())
		if err != nil {
			return err
		}
		already, err := o.filedIn(ctx, target.ID())
		if err != nil {
			return err
		}
		if already {
			err = o.se.tx.RemoveNode(ctx, link.ID)
		} else if err = o.se.checkFree(ctx, target.ID(), name, ""); err == nil {
			err = o.se.tx.MoveNode(ctx, link.ID, target.ID(), name)
		}
		if err != nil {
			return err
		}
	}
	o.se.record(o.ID(), domain.ChangeUpdated)
	return nil
}

// resolve returns the object a child node stands for, following links.
// It returns nil for nodes that are not objects.
func (se *session) resolve(ctx context.Context, n *domain.Node) (*ObjectData, error) {
	switch n.PrimaryType {
	case domain.NodeTypeSystem, domain.NodeTypeRendition:
		return nil, nil
	case domain.NodeTypeLink:
		target, err := se.tx.Node(ctx, n.Reference(domain.RefTarget))
		if err != nil {
			return nil, err
		}
		return se.objectFromNode(ctx, target)
	default:
		return se.objectFromNode(ctx, n)
	}
}

// children returns the objects filed in a folder ordered by name.
func (se *session) children(ctx context.Context, folderID string) ([]*ObjectData, error) {
	nodes, err := se.tx.Children(ctx, folderID)
	if err != nil {
		return nil, err
	}
	result := make([]*ObjectData, 0, len(nodes))
	for _, n := range nodes {
		obj, err := se.resolve(ctx, n)
		if err != nil {
			return nil, err
		}
		if obj != nil {
			result = append(result, obj)
		}
	}
	return result, nil
}

// tree returns the descendants of a folder to depth levels; -1 is unlimited.
func (se *session) tree(ctx context.Context, folderID string, depth int, foldersOnly bool) ([]*domain.ObjectTree, error) {
	if depth == 0 || depth < -1 {
		return nil, domain.InvalidArgumentf("invalid depth %d", depth)
	}
	children, err := se.children(ctx, folderID)
	if err != nil {
		return nil, err
	}
	var result []*domain.ObjectTree //nolint:prealloc // size unknown from query
	for _, c := range children {
		isFolder := c.BaseType() == domain.BaseTypeFolder
		if foldersOnly && !isFolder {
			continue
		}
		t := &domain.ObjectTree{Object: c.snapshot(ctx)}
		if isFolder && depth != 1 {
			next := depth - 1
			if depth == -1 {
				next = -1
			}
			if t.Children, err = se.tree(ctx, c.ID(), next, foldersOnly); err != nil {
				return nil, err
			}
		}
		result = append(result, t)
	}
	return result, nil
}

// byPath resolves an absolute path from the root folder.
func (se *session) byPath(ctx context.Context, path string) (*ObjectData, error) {
	if !strings.HasPrefix(path, domain.PathSeparator) {
		return nil, domain.InvalidArgumentf("path %q is not absolute", path)
	}
	n, err := se.tx.Root(ctx)
	if err != nil {
		return nil, err
	}
	for _, name := range strings.Split(path, domain.PathSeparator) {
		if name == "" {
			continue
		}
		child, err := se.tx.ChildByName(ctx, n.ID, name)
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NotFoundf("path %s not found", path)
		}
		if err != nil {
			return nil, err
		}
		switch child.PrimaryType {
		case domain.NodeTypeSystem, domain.NodeTypeRendition:
			return nil, domain.NotFoundf("path %s not found", path)
		case domain.NodeTypeLink:
			if child, err = se.tx.Node(ctx, child.Reference(domain.RefTarget)); err != nil {
				return nil, err
			}
		}
		n = child
	}
	return se.objectFromNode(ctx, n)
}
