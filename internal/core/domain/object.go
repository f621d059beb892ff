package domain

import "time"

// CmisObject is a read-only snapshot of a CMIS object as returned by the
// storage facade.
type CmisObject struct {
	ID         string
	TypeID     string
	BaseType   BaseType
	Properties Properties
	ACL        ACL
	PolicyIDs  []string
	Renditions []Rendition
}

// Name returns the cmis:name of the object.
func (o *CmisObject) Name() string {
	return o.Properties.Get(PropName).String()
}

// Path returns the cmis:path of a folder, or "".
func (o *CmisObject) Path() string {
	return o.Properties.Get(PropPath).String()
}

// ChangeToken returns the current change token.
func (o *CmisObject) ChangeToken() string {
	return o.Properties.Get(PropChangeToken).String()
}

// VersionSeriesID returns the version series of a document, or "".
func (o *CmisObject) VersionSeriesID() string {
	return o.Properties.Get(PropVersionSeriesID).String()
}

// VersionLabel returns the version label of a document, or "".
func (o *CmisObject) VersionLabel() string {
	return o.Properties.Get(PropVersionLabel).String()
}

// IsLatestVersion reports the cmis:isLatestVersion flag.
func (o *CmisObject) IsLatestVersion() bool {
	return o.Properties.Get(PropIsLatestVersion).Bool()
}

// IsCheckedOut reports the cmis:isVersionSeriesCheckedOut flag.
func (o *CmisObject) IsCheckedOut() bool {
	return o.Properties.Get(PropIsVersionSeriesCheckedOut).Bool()
}

// LastModified returns cmis:lastModificationDate.
func (o *CmisObject) LastModified() time.Time {
	return o.Properties.Get(PropLastModificationDate).Time()
}

// ObjectTree is a node of a GetDescendants or GetFolderTree result.
type ObjectTree struct {
	Object   *CmisObject
	Children []*ObjectTree
}

// ObjectInput carries the arguments of the create operations.
// The type and name are taken from cmis:objectTypeId and cmis:name.
type ObjectInput struct {
	// ParentID is the folder to file the object in. Empty leaves a
	// document or policy unfiled.
	ParentID string

	Properties Properties
	Content    *ContentStream
	AddACL     ACL
	RemoveACL  ACL
	Policies   []string

	// VersioningState applies to documents only.
	VersioningState VersioningState
}

// CheckinInput carries the arguments of Checkin.
type CheckinInput struct {
	Major      bool
	Comment    string
	Properties Properties
	Content    *ContentStream
	AddACL     ACL
	RemoveACL  ACL
	Policies   []string
}

// RepositoryInfo describes the repository.
type RepositoryInfo struct {
	ID           string
	Name         string
	RootFolderID string
	Vendor       string
	Version      string
}

// ChangeKind classifies a ChangeEvent.
type ChangeKind string

// Change kinds.
const (
	ChangeCreated ChangeKind = "created"
	ChangeUpdated ChangeKind = "updated"
	ChangeDeleted ChangeKind = "deleted"
)

// ChangeEvent is emitted to the index listener after a transaction commits.
type ChangeEvent struct {
	Kind     ChangeKind
	ObjectID string
	Object   *CmisObject
	Content  *ContentStream

	// ParentIDs are the folders the object is filed in.
	ParentIDs []string
}
