package driving

import (
	"context"

	"github.com/custodia-labs/xcmis/internal/core/domain"
)

// Connection is the storage facade used by protocol bindings and the CLI.
// Every call runs in one repository transaction.
type Connection interface {
	// RepositoryInfo describes the repository.
	RepositoryInfo(ctx context.Context) (*domain.RepositoryInfo, error)

	// CreateDocument creates a document in in.ParentID, or unfiled.
	CreateDocument(ctx context.Context, in domain.ObjectInput) (*domain.CmisObject, error)

	// CreateFolder creates a folder in in.ParentID.
	CreateFolder(ctx context.Context, in domain.ObjectInput) (*domain.CmisObject, error)

	// CreatePolicy creates a policy in in.ParentID, or unfiled.
	CreatePolicy(ctx context.Context, in domain.ObjectInput) (*domain.CmisObject, error)

	// CreateRelationship creates a relationship between cmis:sourceId and cmis:targetId.
	CreateRelationship(ctx context.Context, in domain.ObjectInput) (*domain.CmisObject, error)

	// GetObject returns an object, a working copy or a historical version by id.
	GetObject(ctx context.Context, id string) (*domain.CmisObject, error)

	// GetObjectByPath returns the object at an absolute path.
	GetObjectByPath(ctx context.Context, path string) (*domain.CmisObject, error)

	// UpdateProperties changes properties. A non-empty changeToken must match
	// the current one.
	UpdateProperties(ctx context.Context, id, changeToken string, props domain.Properties) (*domain.CmisObject, error)

	// DeleteObject deletes an object. For documents allVersions also removes
	// the version history.
	DeleteObject(ctx context.Context, id string, allVersions bool) error

	// GetContentStream returns the content of a document, or of one of its
	// renditions when streamID is set.
	GetContentStream(ctx context.Context, id, streamID string) (*domain.ContentStream, error)

	// SetContentStream replaces the content of a document. Without overwrite
	// it fails when content is already set.
	SetContentStream(ctx context.Context, id string, content *domain.ContentStream, overwrite bool) (*domain.CmisObject, error)

	// DeleteContentStream removes the content of a document.
	DeleteContentStream(ctx context.Context, id string) (*domain.CmisObject, error)

	// GetRenditions lists the renditions of a document.
	GetRenditions(ctx context.Context, id string) ([]domain.Rendition, error)

	// GetRenditionStream returns one rendition.
	GetRenditionStream(ctx context.Context, id, streamID string) (*domain.ContentStream, error)

	// Checkout creates the private working copy of a document.
	Checkout(ctx context.Context, id string) (*domain.CmisObject, error)

	// Checkin seals a private working copy as the new latest version.
	Checkin(ctx context.Context, pwcID string, in domain.CheckinInput) (*domain.CmisObject, error)

	// CancelCheckout discards a private working copy. id is the working copy
	// or the checked out document.
	CancelCheckout(ctx context.Context, id string) error

	// GetAllVersions returns a version series oldest first.
	GetAllVersions(ctx context.Context, versionSeriesID string) ([]*domain.CmisObject, error)

	// GetCheckedOutDocs lists working copies, optionally only those whose
	// document is filed in folderID.
	GetCheckedOutDocs(ctx context.Context, folderID string) ([]*domain.CmisObject, error)

	// GetChildren lists the objects filed in a folder.
	GetChildren(ctx context.Context, folderID string) ([]*domain.CmisObject, error)

	// GetDescendants returns the subtree of a folder. depth -1 is unlimited.
	GetDescendants(ctx context.Context, folderID string, depth int) ([]*domain.ObjectTree, error)

	// GetFolderTree is GetDescendants restricted to folders.
	GetFolderTree(ctx context.Context, folderID string, depth int) ([]*domain.ObjectTree, error)

	// GetObjectParents lists the folders an object is filed in.
	GetObjectParents(ctx context.Context, id string) ([]*domain.CmisObject, error)

	// GetFolderParent returns the parent of a folder.
	GetFolderParent(ctx context.Context, folderID string) (*domain.CmisObject, error)

	// GetObjectRelationships lists relationships of an object. direction is
	// "source", "target" or "either"; typeID filters when set.
	GetObjectRelationships(ctx context.Context, id, direction, typeID string) ([]*domain.CmisObject, error)

	// MoveObject moves an object from sourceFolderID to targetFolderID.
	MoveObject(ctx context.Context, id, targetFolderID, sourceFolderID string) (*domain.CmisObject, error)

	// AddObjectToFolder files an object in an additional folder.
	AddObjectToFolder(ctx context.Context, id, folderID string) error

	// RemoveObjectFromFolder unfiles an object from a folder, or from all
	// folders when folderID is empty.
	RemoveObjectFromFolder(ctx context.Context, id, folderID string) error

	// DeleteTree deletes a folder and its contents. It returns the ids that
	// could not be deleted when continueOnFailure is set.
	DeleteTree(ctx context.Context, folderID string, allVersions bool, unfile domain.UnfileObject, continueOnFailure bool) ([]string, error)

	// ApplyPolicy applies a policy to an object.
	ApplyPolicy(ctx context.Context, policyID, objectID string) error

	// RemovePolicy removes a policy from an object.
	RemovePolicy(ctx context.Context, policyID, objectID string) error

	// GetAppliedPolicies lists the policies applied to an object.
	GetAppliedPolicies(ctx context.Context, id string) ([]*domain.CmisObject, error)

	// GetACL returns the ACL of an object.
	GetACL(ctx context.Context, id string) (domain.ACL, error)

	// ApplyACL grants addACL and revokes removeACL, returning the new ACL.
	ApplyACL(ctx context.Context, id string, addACL, removeACL domain.ACL) (domain.ACL, error)

	// AddType registers a custom type.
	AddType(ctx context.Context, def *domain.TypeDefinition) (*domain.TypeDefinition, error)

	// RemoveType unregisters a custom type without subtypes or objects.
	RemoveType(ctx context.Context, id string) error

	// GetTypeDefinition returns a type.
	GetTypeDefinition(ctx context.Context, id string) (*domain.TypeDefinition, error)

	// GetTypeChildren lists the direct subtypes of id, or the base types when id is empty.
	GetTypeChildren(ctx context.Context, id string) ([]*domain.TypeDefinition, error)

	// Query searches the index and returns the matching objects.
	Query(ctx context.Context, q domain.Query) ([]*domain.CmisObject, error)
}
