package driven

import (
	"context"

	"github.com/custodia-labs/xcmis/internal/core/domain"
)

// NodeStore is a transactional content repository of named nodes.
// The store creates the root node when it is first opened.
type NodeStore interface {
	// Begin starts a transaction. Reads see the committed state overlaid
	// with the transaction's own changes.
	Begin(ctx context.Context) (NodeTx, error)

	// Close releases resources.
	Close() error
}

// NodeTx is a repository transaction. Nodes returned by a transaction are
// copies; changes are made through UpdateNode.
//
// Every node carries a revision. UpdateNode requires the revision the
// transaction currently reports for the node, and Commit fails with
// domain.ErrUpdateConflict when another transaction committed a change to a
// node this transaction changed.
type NodeTx interface {
	// Root returns the root node.
	Root(ctx context.Context) (*domain.Node, error)

	// Node returns the node with the given id or domain.ErrNotFound.
	Node(ctx context.Context, id string) (*domain.Node, error)

	// ChildByName returns the named child of parentID or domain.ErrNotFound.
	ChildByName(ctx context.Context, parentID, name string) (*domain.Node, error)

	// Children returns the children of parentID ordered by name.
	Children(ctx context.Context, parentID string) ([]*domain.Node, error)

	// ReferencesTo returns the references of live nodes pointing at targetID.
	ReferencesTo(ctx context.Context, targetID string) ([]domain.Reference, error)

	// NodeByVersionHistory returns the live node of a version history.
	NodeByVersionHistory(ctx context.Context, historyID string) (*domain.Node, error)

	// AddNode adds n under n.ParentID. An empty ID is assigned. A node with
	// the mix:versionable mixin gets a version history.
	// Fails with domain.ErrNameConstraint when the parent has a child of that name.
	AddNode(ctx context.Context, n *domain.Node) (*domain.Node, error)

	// UpdateNode stores the properties, mixins, references and content of n.
	// Name and parent are changed through MoveNode. Fails with
	// domain.ErrVersioning when the node is checked in.
	UpdateNode(ctx context.Context, n *domain.Node) error

	// MoveNode moves id under newParentID with newName.
	MoveNode(ctx context.Context, id, newParentID, newName string) error

	// RemoveNode removes id and its subtree. Fails with domain.ErrConstraint
	// when a node outside the subtree references a removed node.
	RemoveNode(ctx context.Context, id string) error

	// Checkin seals the current state of a versionable node as a new version
	// and marks the node checked in.
	Checkin(ctx context.Context, id string) (*domain.NodeVersion, error)

	// Checkout makes a checked in node writable again.
	Checkout(ctx context.Context, id string) error

	// VersionHistory returns the versions of a history oldest first.
	VersionHistory(ctx context.Context, historyID string) ([]*domain.NodeVersion, error)

	// Version returns a version by id or domain.ErrNotFound.
	Version(ctx context.Context, versionID string) (*domain.NodeVersion, error)

	// RemoveVersionHistory removes every version of a history.
	RemoveVersionHistory(ctx context.Context, historyID string) error

	// Commit applies the transaction.
	Commit() error

	// Rollback discards the transaction. It is a no-op after Commit.
	Rollback() error
}

// TypeStore persists custom type definitions.
// The four base types are built in and never stored.
type TypeStore interface {
	// Get returns a type by id or domain.ErrTypeNotFound.
	Get(ctx context.Context, id string) (*domain.TypeDefinition, error)

	// List returns all stored types.
	List(ctx context.Context) ([]*domain.TypeDefinition, error)

	// Save stores or replaces a type.
	Save(ctx context.Context, def *domain.TypeDefinition) error

	// Delete removes a type.
	Delete(ctx context.Context, id string) error
}
