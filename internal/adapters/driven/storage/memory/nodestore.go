package memory

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/xcmis/internal/core/domain"
	"github.com/custodia-labs/xcmis/internal/core/ports/driven"
)

// Ensure NodeStore implements the interface.
var _ driven.NodeStore = (*NodeStore)(nil)

var errTxDone = errors.New("transaction already finished")

// NodeStore is an in-memory implementation of driven.NodeStore.
// Transactions stage their changes and apply them under the store lock on
// commit, after comparing the revisions of every node they changed.
type NodeStore struct {
	mu       sync.RWMutex
	nodes    map[string]*domain.Node
	children map[string]map[string]string
	versions map[string][]*domain.NodeVersion
	rootID   string
}

// NewNodeStore creates a new in-memory node store with an empty root folder.
func NewNodeStore() *NodeStore {
	root := domain.NewNode("", domain.RootFolderName, string(domain.BaseTypeFolder))
	root.ID = uuid.NewString()
	root.Revision = 1

	return &NodeStore{
		nodes:    map[string]*domain.Node{root.ID: root},
		children: make(map[string]map[string]string),
		versions: make(map[string][]*domain.NodeVersion),
		rootID:   root.ID,
	}
}

// Begin starts a transaction.
func (s *NodeStore) Begin(_ context.Context) (driven.NodeTx, error) {
	return &nodeTx{
		store:   s,
		staged:  make(map[string]*domain.Node),
		base:    make(map[string]int64),
		added:   make(map[string]bool),
		dropped: make(map[string]bool),
	}, nil
}

// Close releases resources (no-op for memory store).
func (s *NodeStore) Close() error {
	return nil
}

type nodeTx struct {
	store    *NodeStore
	staged   map[string]*domain.Node // nil marks a removed node
	base     map[string]int64
	added    map[string]bool
	versions []*domain.NodeVersion
	dropped  map[string]bool
	done     bool
}

func (t *nodeTx) lookup(id string) (*domain.Node, bool) {
	if n, ok := t.staged[id]; ok {
		return n, n != nil
	}
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	n, ok := t.store.nodes[id]
	return n, ok
}

func (t *nodeTx) get(id string) (*domain.Node, error) {
	n, ok := t.lookup(id)
	if !ok {
		return nil, domain.NotFoundf("node %s not found", id)
	}
	return n, nil
}

// touch records the revision a committed node had when first changed.
func (t *nodeTx) touch(n *domain.Node) {
	if t.added[n.ID] {
		return
	}
	if _, ok := t.base[n.ID]; !ok {
		t.base[n.ID] = n.Revision
	}
}

func (t *nodeTx) allIDs() []string {
	t.store.mu.RLock()
	ids := make([]string, 0, len(t.store.nodes)+len(t.staged))
	for id := range t.store.nodes {
		if _, ok := t.staged[id]; !ok {
			ids = append(ids, id)
		}
	}
	t.store.mu.RUnlock()
	for id := range t.staged {
		ids = append(ids, id)
	}
	return ids
}

func (t *nodeTx) Root(_ context.Context) (*domain.Node, error) {
	n, err := t.get(t.store.rootID)
	if err != nil {
		return nil, err
	}
	return n.Clone(), nil
}

func (t *nodeTx) Node(_ context.Context, id string) (*domain.Node, error) {
	n, err := t.get(id)
	if err != nil {
		return nil, err
	}
	return n.Clone(), nil
}

func (t *nodeTx) children(parentID string) []*domain.Node {
	ids := make(map[string]bool)
	t.store.mu.RLock()
	for _, id := range t.store.children[parentID] {
		ids[id] = true
	}
	t.store.mu.RUnlock()
	for id, n := range t.staged {
		if n == nil || n.ParentID != parentID {
			delete(ids, id)
		} else {
			ids[id] = true
		}
	}

	result := make([]*domain.Node, 0, len(ids))
	for id := range ids {
		if n, ok := t.lookup(id); ok {
			result = append(result, n)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

func (t *nodeTx) ChildByName(_ context.Context, parentID, name string) (*domain.Node, error) {
	for _, n := range t.children(parentID) {
		if n.Name == name {
			return n.Clone(), nil
		}
	}
	return nil, domain.NotFoundf("no child %q in %s", name, parentID)
}

func (t *nodeTx) Children(_ context.Context, parentID string) ([]*domain.Node, error) {
	nodes := t.children(parentID)
	for i, n := range nodes {
		nodes[i] = n.Clone()
	}
	return nodes, nil
}

func (t *nodeTx) ReferencesTo(_ context.Context, targetID string) ([]domain.Reference, error) {
	var refs []domain.Reference
	for _, id := range t.allIDs() {
		n, ok := t.lookup(id)
		if !ok {
			continue
		}
		for name, targets := range n.References {
			for _, target := range targets {
				if target == targetID {
					refs = append(refs, domain.Reference{SourceID: n.ID, Name: name})
				}
			}
		}
	}
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].SourceID != refs[j].SourceID {
			return refs[i].SourceID < refs[j].SourceID
		}
		return refs[i].Name < refs[j].Name
	})
	return refs, nil
}

func (t *nodeTx) NodeByVersionHistory(_ context.Context, historyID string) (*domain.Node, error) {
	for _, id := range t.allIDs() {
		if n, ok := t.lookup(id); ok && n.VersionHistoryID == historyID {
			return n.Clone(), nil
		}
	}
	return nil, domain.NotFoundf("version history %s not found", historyID)
}

func (t *nodeTx) checkName(parentID, name, selfID string) error {
	for _, n := range t.children(parentID) {
		if n.Name == name && n.ID != selfID {
			return domain.NameConstraintf("an object named %q already exists in %s", name, parentID)
		}
	}
	return nil
}

func (t *nodeTx) AddNode(_ context.Context, n *domain.Node) (*domain.Node, error) {
	if n.ParentID == "" {
		return nil, domain.InvalidArgumentf("node %q has no parent", n.Name)
	}
	if n.Name == "" {
		return nil, domain.InvalidArgumentf("node name is required")
	}
	if _, err := t.get(n.ParentID); err != nil {
		return nil, err
	}
	if err := t.checkName(n.ParentID, n.Name, ""); err != nil {
		return nil, err
	}

	c := n.Clone()
	if c.ID == "" {
		c.ID = uuid.NewString()
	} else if _, exists := t.lookup(c.ID); exists {
		return nil, domain.Constraintf("node %s already exists", c.ID)
	}
	if c.HasMixin(domain.MixinVersionable) && c.VersionHistoryID == "" {
		c.VersionHistoryID = uuid.NewString()
	}
	c.Revision = 1
	c.CheckedIn = false

	t.staged[c.ID] = c
	t.added[c.ID] = true
	return c.Clone(), nil
}

func (t *nodeTx) UpdateNode(_ context.Context, n *domain.Node) error {
	cur, err := t.get(n.ID)
	if err != nil {
		return err
	}
	if cur.CheckedIn {
		return domain.Versioningf("node %s is checked in", n.ID)
	}
	if n.Revision != cur.Revision {
		return domain.UpdateConflictf("node %s was changed (revision %d, have %d)", n.ID, cur.Revision, n.Revision)
	}

	t.touch(cur)
	c := n.Clone()
	c.ParentID = cur.ParentID
	c.Name = cur.Name
	c.VersionHistoryID = cur.VersionHistoryID
	c.CheckedIn = cur.CheckedIn
	c.Revision = cur.Revision
	t.staged[c.ID] = c
	return nil
}

func (t *nodeTx) MoveNode(_ context.Context, id, newParentID, newName string) error {
	if id == t.store.rootID {
		return domain.Constraintf("root folder cannot be moved")
	}
	cur, err := t.get(id)
	if err != nil {
		return err
	}
	if _, err := t.get(newParentID); err != nil {
		return err
	}
	for p := newParentID; p != ""; {
		if p == id {
			return domain.Constraintf("cannot move %s into its own subtree", id)
		}
		pn, ok := t.lookup(p)
		if !ok {
			break
		}
		p = pn.ParentID
	}
	if newName == "" {
		newName = cur.Name
	}
	if err := t.checkName(newParentID, newName, id); err != nil {
		return err
	}

	t.touch(cur)
	c := cur.Clone()
	c.ParentID = newParentID
	c.Name = newName
	t.staged[id] = c
	return nil
}

func (t *nodeTx) subtree(id string) []string {
	ids := []string{id}
	for i := 0; i < len(ids); i++ {
		for _, child := range t.children(ids[i]) {
			ids = append(ids, child.ID)
		}
	}
	return ids
}

func (t *nodeTx) RemoveNode(_ context.Context, id string) error {
	if id == t.store.rootID {
		return domain.Constraintf("root folder cannot be removed")
	}
	if _, err := t.get(id); err != nil {
		return err
	}

	removed := make(map[string]bool)
	ids := t.subtree(id)
	for _, sub := range ids {
		removed[sub] = true
	}
	for _, other := range t.allIDs() {
		if removed[other] {
			continue
		}
		n, ok := t.lookup(other)
		if !ok {
			continue
		}
		for _, targets := range n.References {
			for _, target := range targets {
				if removed[target] {
					return domain.Constraintf("node %s is referenced by %s", target, other)
				}
			}
		}
	}

	for _, sub := range ids {
		if n, ok := t.lookup(sub); ok {
			t.touch(n)
		}
		t.staged[sub] = nil
	}
	return nil
}

func (t *nodeTx) Checkin(ctx context.Context, id string) (*domain.NodeVersion, error) {
	cur, err := t.get(id)
	if err != nil {
		return nil, err
	}
	if !cur.HasMixin(domain.MixinVersionable) {
		return nil, domain.Constraintf("node %s is not versionable", id)
	}
	if cur.CheckedIn {
		return nil, domain.Versioningf("node %s is already checked in", id)
	}

	history, err := t.VersionHistory(ctx, cur.VersionHistoryID)
	if err != nil {
		return nil, err
	}
	frozen := cur.Clone()
	frozen.CheckedIn = true
	v := &domain.NodeVersion{
		ID:        uuid.NewString(),
		HistoryID: cur.VersionHistoryID,
		Name:      strconv.Itoa(len(history) + 1),
		Created:   time.Now().UTC(),
		Frozen:    frozen,
	}
	t.versions = append(t.versions, v)

	t.touch(cur)
	c := cur.Clone()
	c.CheckedIn = true
	t.staged[id] = c
	return cloneVersion(v), nil
}

func (t *nodeTx) Checkout(_ context.Context, id string) error {
	cur, err := t.get(id)
	if err != nil {
		return err
	}
	if !cur.CheckedIn {
		return domain.Versioningf("node %s is not checked in", id)
	}
	t.touch(cur)
	c := cur.Clone()
	c.CheckedIn = false
	t.staged[id] = c
	return nil
}

func (t *nodeTx) VersionHistory(_ context.Context, historyID string) ([]*domain.NodeVersion, error) {
	var result []*domain.NodeVersion
	if !t.dropped[historyID] {
		t.store.mu.RLock()
		for _, v := range t.store.versions[historyID] {
			result = append(result, cloneVersion(v))
		}
		t.store.mu.RUnlock()
	}
	for _, v := range t.versions {
		if v.HistoryID == historyID {
			result = append(result, cloneVersion(v))
		}
	}
	return result, nil
}

func (t *nodeTx) Version(_ context.Context, versionID string) (*domain.NodeVersion, error) {
	for _, v := range t.versions {
		if v.ID == versionID {
			return cloneVersion(v), nil
		}
	}
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	for historyID, versions := range t.store.versions {
		if t.dropped[historyID] {
			continue
		}
		for _, v := range versions {
			if v.ID == versionID {
				return cloneVersion(v), nil
			}
		}
	}
	return nil, domain.NotFoundf("version %s not found", versionID)
}

func (t *nodeTx) RemoveVersionHistory(_ context.Context, historyID string) error {
	t.dropped[historyID] = true
	kept := t.versions[:0]
	for _, v := range t.versions {
		if v.HistoryID != historyID {
			kept = append(kept, v)
		}
	}
	t.versions = kept
	return nil
}

func (t *nodeTx) Commit() error {
	if t.done {
		return errTxDone
	}
	t.done = true

	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, base := range t.base {
		cur, ok := s.nodes[id]
		if !ok || cur.Revision != base {
			return domain.UpdateConflictf("node %s was changed by another transaction", id)
		}
	}
	for id, n := range t.staged {
		if n == nil || id == s.rootID {
			continue
		}
		if _, ok := s.nodes[n.ParentID]; !ok {
			if p, staged := t.staged[n.ParentID]; !staged || p == nil {
				return domain.UpdateConflictf("parent of node %s was removed by another transaction", id)
			}
		}
		other, ok := s.children[n.ParentID][n.Name]
		if !ok || other == id {
			continue
		}
		if st, staged := t.staged[other]; staged && (st == nil || st.ParentID != n.ParentID || st.Name != n.Name) {
			continue
		}
		return domain.NameConstraintf("an object named %q already exists in %s", n.Name, n.ParentID)
	}

	for id := range t.staged {
		if old, ok := s.nodes[id]; ok {
			delete(s.children[old.ParentID], old.Name)
		}
	}
	for id, n := range t.staged {
		if n == nil {
			delete(s.nodes, id)
			delete(s.children, id)
			continue
		}
		if t.added[id] {
			n.Revision = 1
		} else {
			n.Revision = t.base[id] + 1
		}
		s.nodes[id] = n
		if id == s.rootID {
			continue
		}
		siblings, ok := s.children[n.ParentID]
		if !ok {
			siblings = make(map[string]string)
			s.children[n.ParentID] = siblings
		}
		siblings[n.Name] = id
	}

	for historyID := range t.dropped {
		delete(s.versions, historyID)
	}
	for _, v := range t.versions {
		s.versions[v.HistoryID] = append(s.versions[v.HistoryID], v)
	}
	return nil
}

func (t *nodeTx) Rollback() error {
	t.done = true
	return nil
}

func cloneVersion(v *domain.NodeVersion) *domain.NodeVersion {
	c := *v
	c.Frozen = v.Frozen.Clone()
	return &c
}
