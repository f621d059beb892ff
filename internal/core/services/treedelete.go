package services

import (
	"context"
	"sort"

	"github.com/custodia-labs/xcmis/internal/core/domain"
	"github.com/custodia-labs/xcmis/internal/logger"
)

// relocation moves an object out of a tree being deleted. An empty link
// sends the object to the unfiled store; otherwise the link's folder takes
// the object in the link's place.
type relocation struct {
	objectID string
	link     *domain.Node
}

type treeFolder struct {
	id    string
	depth int
}

// treePlan is the outcome of classifying a subtree for deletion.
type treePlan struct {
	folders []treeFolder
	// objects are deleted together with all their links.
	objects []string
	// links are removed from the tree for objects that are kept.
	links       []string
	relocations []relocation
}

// filing describes where an object in the tree is filed.
type filing struct {
	node  *domain.Node
	links []*domain.Node
}

// treeScan is every folder and filed object found below a folder.
type treeScan struct {
	inTree  map[string]bool
	folders []treeFolder
	filings map[string]*filing
	order   []string
}

// collectTree walks the folders of a subtree and gathers every filing found
// in it.
func (se *session) collectTree(ctx context.Context, rootID string) (*treeScan, error) {
	scan := &treeScan{
		inTree:  map[string]bool{rootID: true},
		folders: []treeFolder{{id: rootID}},
		filings: make(map[string]*filing),
	}

	queue := []treeFolder{{id: rootID}}
	for len(queue) > 0 {
		f := queue[0]
		queue = queue[1:]
		children, err := se.tx.Children(ctx, f.id)
		if err != nil {
			return nil, err
		}
		for _, n := range children {
			if !isObjectNode(n) && n.PrimaryType != domain.NodeTypeLink {
				continue
			}
			target := n
			if n.PrimaryType == domain.NodeTypeLink {
				if target, err = se.tx.Node(ctx, n.Reference(domain.RefTarget)); err != nil {
					return nil, err
				}
			}
			def, err := se.s.types.Get(ctx, target.PrimaryType)
			if err != nil {
				return nil, err
			}
			if def.BaseType == domain.BaseTypeFolder {
				child := treeFolder{id: target.ID, depth: f.depth + 1}
				scan.inTree[target.ID] = true
				scan.folders = append(scan.folders, child)
				queue = append(queue, child)
				continue
			}
			if _, seen := scan.filings[target.ID]; seen {
				continue
			}
			links, err := se.linksTo(ctx, target.ID)
			if err != nil {
				return nil, err
			}
			scan.filings[target.ID] = &filing{node: target, links: links}
			scan.order = append(scan.order, target.ID)
		}
	}
	return scan, nil
}

// planTreeDelete classifies the objects of a tree. It does not touch the
// repository.
func planTreeDelete(scan *treeScan, unfile domain.UnfileObject) *treePlan {
	plan := &treePlan{folders: append([]treeFolder(nil), scan.folders...)}
	inTree := scan.inTree
	for _, id := range scan.order {
		f := scan.filings[id]
		var inside []*domain.Node
		var outside *domain.Node
		for _, l := range f.links {
			if inTree[l.ParentID] {
				inside = append(inside, l)
			} else if outside == nil {
				outside = l
			}
		}
		physicalInside := inTree[f.node.ParentID]
		multiFiled := !physicalInside || outside != nil

		keep := unfile == domain.UnfileUnfile ||
			(unfile == domain.UnfileDeleteSingleFiled && multiFiled)
		if !keep {
			plan.objects = append(plan.objects, id)
			continue
		}

		for _, l := range inside {
			plan.links = append(plan.links, l.ID)
		}
		switch {
		case !physicalInside:
		case outside != nil:
			plan.relocations = append(plan.relocations, relocation{objectID: id, link: outside})
		default:
			plan.relocations = append(plan.relocations, relocation{objectID: id})
		}
	}
	sort.SliceStable(plan.folders, func(i, j int) bool { return plan.folders[i].depth > plan.folders[j].depth })
	return plan
}

// deleteTree deletes a folder and its contents. Failures are collected when
// continueOnFailure is set, otherwise the first one is returned.
func (se *session) deleteTree(ctx context.Context, folder *ObjectData, allVersions bool, unfile domain.UnfileObject, continueOnFailure bool) ([]string, error) {
	if folder.isRoot() {
		return nil, domain.Constraintf("root folder cannot be deleted")
	}
	scan, err := se.collectTree(ctx, folder.ID())
	if err != nil {
		return nil, err
	}
	plan := planTreeDelete(scan, unfile)
	logger.Debug("Deleting tree %s: %d folders, %d objects, %d links, %d relocations",
		folder.ID(), len(plan.folders), len(plan.objects), len(plan.links), len(plan.relocations))

	var failed []string
	fail := func(id string, err error) error {
		if !continueOnFailure {
			return err
		}
		logger.Warn("Deleting %s failed: %v", id, err)
		failed = append(failed, id)
		return nil
	}

	for _, r := range plan.relocations {
		if err := se.relocate(ctx, r); err != nil {
			if err := fail(r.objectID, err); err != nil {
				return nil, err
			}
		}
	}
	for _, id := range plan.links {
		if _, err := se.tx.Node(ctx, id); err != nil {
			continue
		}
		if err := se.tx.RemoveNode(ctx, id); err != nil {
			if err := fail(id, err); err != nil {
				return nil, err
			}
		}
	}
	for _, id := range plan.objects {
		obj, err := se.object(ctx, id)
		if err == nil {
			err = obj.Delete(ctx, allVersions)
		}
		if err != nil {
			if err := fail(id, err); err != nil {
				return nil, err
			}
		}
	}
	for _, f := range plan.folders {
		obj, err := se.object(ctx, f.id)
		if err == nil {
			err = obj.deleteFolder(ctx)
		}
		if err != nil {
			if err := fail(f.id, err); err != nil {
				return nil, err
			}
			continue
		}
		se.record(f.id, domain.ChangeDeleted)
	}
	return failed, nil
}

func (se *session) relocate(ctx context.Context, r relocation) error {
	obj, err := se.object(ctx, r.objectID)
	if err != nil {
		return err
	}
	if r.link == nil {
		if err := obj.moveToUnfiled(ctx); err != nil {
			return err
		}
	} else {
		if err := se.tx.RemoveNode(ctx, r.link.ID); err != nil {
			return err
		}
		if err := se.tx.MoveNode(ctx, obj.node.ID, r.link.ParentID, obj.Name()); err != nil {
			return err
		}
	}
	se.record(obj.ID(), domain.ChangeUpdated)
	return nil
}
