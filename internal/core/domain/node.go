package domain

import (
	"slices"
	"time"
)

// Primary types of repository nodes that are not CMIS objects.
const (
	// NodeTypeSystem is an unstructured container such as the working copies store.
	NodeTypeSystem = "xcmis:system"

	// NodeTypeLink files an object in a second folder.
	NodeTypeLink = "xcmis:link"

	// NodeTypeRendition holds a stored rendition under its document.
	NodeTypeRendition = "xcmis:rendition"
)

// Node mixins.
const (
	MixinVersionable   = "mix:versionable"
	MixinPrivilegeable = "xcmis:privilegeable"
	MixinPolicyable    = "xcmis:policyable"
)

// Reference names.
const (
	// RefTarget points from a link node to the object it files.
	RefTarget = "xcmis:target"

	// RefPolicies lists the policies applied to an object.
	RefPolicies = "xcmis:policies"

	// RefLatestVersion points from a working copy to its version series.
	RefLatestVersion = "xcmis:latestVersionId"
)

// Internal properties stored on nodes.
const (
	PropPermissions   = "xcmis:permissions"
	PropRenditionKind = "xcmis:renditionKind"
)

// Names of the system stores.
const (
	SystemRootName    = "xcmis:system"
	WorkingCopiesName = "workingCopies"
	UnfiledName       = "unfiled"
	RelationshipsName = "relationships"
	PoliciesName      = "policies"
	RootFolderName    = ""
	PathSeparator     = "/"
)

// Node is a content repository node.
type Node struct {
	ID               string              `json:"id"`
	ParentID         string              `json:"parentId"`
	Name             string              `json:"name"`
	PrimaryType      string              `json:"primaryType"`
	Mixins           []string            `json:"mixins,omitempty"`
	Properties       Properties          `json:"properties"`
	References       map[string][]string `json:"references,omitempty"`
	Content          *ContentStream      `json:"content,omitempty"`
	Revision         int64               `json:"revision"`
	VersionHistoryID string              `json:"versionHistoryId,omitempty"`
	CheckedIn        bool                `json:"checkedIn,omitempty"`
}

// NewNode returns a node ready to be added under parentID.
func NewNode(parentID, name, primaryType string) *Node {
	return &Node{
		ParentID:    parentID,
		Name:        name,
		PrimaryType: primaryType,
		Properties:  make(Properties),
		References:  make(map[string][]string),
	}
}

// Clone returns a deep copy.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	c := *n
	c.Mixins = slices.Clone(n.Mixins)
	c.Properties = n.Properties.Clone()
	c.References = make(map[string][]string, len(n.References))
	for k, v := range n.References {
		c.References[k] = slices.Clone(v)
	}
	c.Content = n.Content.Clone()
	return &c
}

// HasMixin returns true if the node carries the mixin.
func (n *Node) HasMixin(mixin string) bool {
	return slices.Contains(n.Mixins, mixin)
}

// AddMixin adds a mixin if not already present.
func (n *Node) AddMixin(mixin string) {
	if !n.HasMixin(mixin) {
		n.Mixins = append(n.Mixins, mixin)
	}
}

// Property returns the property with the given id.
func (n *Node) Property(id string) (Property, bool) {
	p, ok := n.Properties[id]
	return p, ok
}

// SetProperty stores a property. An empty property removes it.
func (n *Node) SetProperty(p Property) {
	if n.Properties == nil {
		n.Properties = make(Properties)
	}
	if p.IsEmpty() {
		delete(n.Properties, p.ID)
		return
	}
	n.Properties[p.ID] = p
}

// RemoveProperty deletes a property.
func (n *Node) RemoveProperty(id string) {
	delete(n.Properties, id)
}

// Reference returns the first target of a named reference.
func (n *Node) Reference(name string) string {
	if refs := n.References[name]; len(refs) > 0 {
		return refs[0]
	}
	return ""
}

// SetReferences replaces a named reference. An empty list removes it.
func (n *Node) SetReferences(name string, targets ...string) {
	if n.References == nil {
		n.References = make(map[string][]string)
	}
	if len(targets) == 0 {
		delete(n.References, name)
		return
	}
	n.References[name] = slices.Clone(targets)
}

// NodeVersion is a sealed, immutable copy of a versionable node.
type NodeVersion struct {
	ID        string    `json:"id"`
	HistoryID string    `json:"historyId"`
	Name      string    `json:"name"`
	Created   time.Time `json:"created"`
	Frozen    *Node     `json:"frozen"`
}

// Reference is an incoming reference to a node.
type Reference struct {
	SourceID string
	Name     string
}
