package services

import (
	"context"
	"errors"
	"slices"
	"sort"
	"strings"

	"github.com/oklog/ulid/v2"

	"github.com/custodia-labs/xcmis/internal/core/domain"
	"github.com/custodia-labs/xcmis/internal/logger"
)

// objectRole is the versioning state of an object facade.
type objectRole int

const (
	// roleLatest is a live object; for documents the latest version.
	roleLatest objectRole = iota

	// rolePWC is a private working copy.
	rolePWC

	// roleHistorical is a sealed version of a document.
	roleHistorical
)

// ObjectData is a CMIS object backed by a repository node. A new object
// buffers its state in memory until Save creates the node.
type ObjectData struct {
	se      *session
	typeDef *domain.TypeDefinition
	role    objectRole

	// node is nil while the object is new. For historical versions it is the
	// frozen copy and version identifies it.
	node    *domain.Node
	version *domain.NodeVersion
	latest  *domain.Node

	// Buffered state of a new object.
	id              string
	parentID        string
	props           domain.Properties
	content         *domain.ContentStream
	acl             domain.ACL
	policies        []string
	versioningState domain.VersioningState

	newName string
	renamed bool
	dirty   bool

	// isLatestMajor is computed for historical versions.
	isLatestMajor bool
}

// ID returns the object id, or "" while the object is new.
func (o *ObjectData) ID() string {
	switch {
	case o.version != nil:
		return o.version.ID
	case o.node != nil:
		return o.node.ID
	default:
		return ""
	}
}

// TypeDefinition returns the object's type.
func (o *ObjectData) TypeDefinition() *domain.TypeDefinition {
	return o.typeDef
}

// BaseType returns the object's base type.
func (o *ObjectData) BaseType() domain.BaseType {
	return o.typeDef.BaseType
}

// IsNew reports whether the object has not been saved yet.
func (o *ObjectData) IsNew() bool {
	return o.node == nil
}

// IsPWC reports whether the object is a private working copy.
func (o *ObjectData) IsPWC() bool {
	return o.role == rolePWC
}

// IsHistorical reports whether the object is a sealed version.
func (o *ObjectData) IsHistorical() bool {
	return o.role == roleHistorical
}

func (o *ObjectData) isRoot() bool {
	return o.node != nil && o.node.ID == o.se.s.rootID
}

func (o *ObjectData) immutable() error {
	if o.role == roleHistorical {
		return domain.Versioningf("version %s is not the latest version", o.ID())
	}
	return nil
}

// Name returns cmis:name. Historical versions report the name of the latest
// version.
func (o *ObjectData) Name() string {
	switch {
	case o.renamed || o.node == nil:
		return o.newName
	case o.role == roleHistorical && o.latest != nil:
		return o.latest.Name
	case o.typeDef.BaseType == domain.BaseTypeRelationship:
		p, _ := o.node.Property(domain.PropName)
		return p.String()
	default:
		return o.node.Name
	}
}

// SetName buffers a rename. Save moves the node.
func (o *ObjectData) SetName(name string) error {
	if err := o.immutable(); err != nil {
		return err
	}
	if err := validateName(name); err != nil {
		return err
	}
	if o.isRoot() {
		return domain.Constraintf("root folder cannot be renamed")
	}
	if o.node != nil && name == o.Name() {
		return nil
	}
	o.newName = name
	if o.node != nil {
		o.renamed = true
		if o.typeDef.BaseType == domain.BaseTypeRelationship {
			o.node.SetProperty(domain.NewStringProperty(domain.PropName, name))
			o.dirty = true
			o.renamed = false
		}
	}
	return nil
}

func validateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return domain.NameConstraintf("name must not be empty")
	}
	if strings.Contains(name, domain.PathSeparator) {
		return domain.NameConstraintf("name %q must not contain %q", name, domain.PathSeparator)
	}
	return nil
}

// ChangeToken returns the current change token.
func (o *ObjectData) ChangeToken() string {
	if o.node == nil {
		return ""
	}
	p, _ := o.node.Property(domain.PropChangeToken)
	return p.String()
}

// Property returns one property, synthesising the virtual ones.
func (o *ObjectData) Property(ctx context.Context, id string) domain.Property {
	return o.Properties(ctx).Get(id)
}

// Properties returns all properties of the object.
func (o *ObjectData) Properties(ctx context.Context) domain.Properties {
	props := make(domain.Properties)
	stored := o.props
	if o.node != nil {
		stored = o.node.Properties
	}
	for id, p := range stored {
		if strings.HasPrefix(id, "xcmis:") {
			continue
		}
		props[id] = p.Clone()
	}

	props[domain.PropObjectTypeID] = domain.NewIDProperty(domain.PropObjectTypeID, o.typeDef.ID)
	props[domain.PropBaseTypeID] = domain.NewIDProperty(domain.PropBaseTypeID, string(o.typeDef.BaseType))
	if id := o.ID(); id != "" {
		props[domain.PropObjectID] = domain.NewIDProperty(domain.PropObjectID, id)
	}
	if name := o.Name(); name != "" || o.isRoot() {
		props[domain.PropName] = domain.NewStringProperty(domain.PropName, name)
	}

	switch o.typeDef.BaseType {
	case domain.BaseTypeFolder:
		if o.node != nil {
			props[domain.PropPath] = domain.NewStringProperty(domain.PropPath, o.path(ctx))
			if !o.isRoot() {
				props[domain.PropParentID] = domain.NewIDProperty(domain.PropParentID, o.node.ParentID)
			}
		}
	case domain.BaseTypeDocument:
		if cs := o.contentStream(); cs != nil {
			props[domain.PropContentStreamLength] = domain.NewIntegerProperty(domain.PropContentStreamLength, cs.Length())
			if cs.MimeType != "" {
				props[domain.PropContentStreamMimeType] = domain.NewStringProperty(domain.PropContentStreamMimeType, cs.MimeType)
			}
			if cs.FileName != "" {
				props[domain.PropContentStreamFileName] = domain.NewStringProperty(domain.PropContentStreamFileName, cs.FileName)
			}
		}
		if o.role == roleHistorical {
			props[domain.PropIsLatestVersion] = domain.NewBooleanProperty(domain.PropIsLatestVersion, false)
			props[domain.PropIsLatestMajorVersion] = domain.NewBooleanProperty(domain.PropIsLatestMajorVersion, o.isLatestMajor)
			if o.latest != nil {
				for _, id := range []string{domain.PropIsVersionSeriesCheckedOut, domain.PropVersionSeriesCheckedOutID, domain.PropVersionSeriesCheckedOutBy} {
					if p, ok := o.latest.Property(id); ok {
						props[id] = p.Clone()
					} else {
						delete(props, id)
					}
				}
			}
		}
	case domain.BaseTypeRelationship:
		if o.node != nil {
			if src := o.node.Reference(domain.PropSourceID); src != "" {
				props[domain.PropSourceID] = domain.NewIDProperty(domain.PropSourceID, src)
			}
			if tgt := o.node.Reference(domain.PropTargetID); tgt != "" {
				props[domain.PropTargetID] = domain.NewIDProperty(domain.PropTargetID, tgt)
			}
		}
	}
	return props
}

func (o *ObjectData) path(ctx context.Context) string {
	if o.isRoot() {
		return domain.PathSeparator
	}
	var names []string
	n := o.node
	for n != nil && n.ID != o.se.s.rootID {
		names = append(names, n.Name)
		parent, err := o.se.tx.Node(ctx, n.ParentID)
		if err != nil {
			logger.Debug("Resolving path of %s: %v", o.ID(), err)
			return ""
		}
		n = parent
	}
	slices.Reverse(names)
	return domain.PathSeparator + strings.Join(names, domain.PathSeparator)
}

func (o *ObjectData) contentStream() *domain.ContentStream {
	if o.typeDef.BaseType != domain.BaseTypeDocument {
		return nil
	}
	if o.node == nil {
		return o.content.Clone()
	}
	return o.node.Content.Clone()
}

// SetProperty validates and writes one property. Writes the property's
// updatability does not permit in the object's state are ignored.
func (o *ObjectData) SetProperty(p domain.Property) error {
	if err := o.immutable(); err != nil {
		return err
	}
	def := o.typeDef.PropertyDefinition(p.ID)
	if def == nil {
		return domain.Constraintf("property %s is not defined by type %s", p.ID, o.typeDef.ID)
	}
	if p.Type == "" {
		p.Type = def.Type
	}
	if p.Type != def.Type {
		return domain.Constraintf("property %s is %s, got %s", p.ID, def.Type, p.Type)
	}
	for _, v := range p.Values {
		if !def.Type.Accepts(v) {
			return domain.Constraintf("property %s does not accept %T", p.ID, v)
		}
	}
	if def.Cardinality == domain.CardinalitySingle && len(p.Values) > 1 {
		return domain.Constraintf("property %s is single valued", p.ID)
	}
	if def.Required && p.IsEmpty() {
		return domain.Constraintf("property %s is required", p.ID)
	}
	if !o.updatable(def) {
		logger.Warn("Ignoring write of %s property %s on %s", def.Updatability, p.ID, o.typeDef.ID)
		return nil
	}

	switch p.ID {
	case domain.PropName:
		return o.SetName(p.String())
	case domain.PropObjectTypeID:
		return nil
	}
	if o.node == nil {
		if p.IsEmpty() {
			delete(o.props, p.ID)
		} else {
			o.props[p.ID] = p.Clone()
		}
		return nil
	}
	o.node.SetProperty(p.Clone())
	o.dirty = true
	return nil
}

func (o *ObjectData) updatable(def *domain.PropertyDefinition) bool {
	switch def.Updatability {
	case domain.UpdatabilityReadWrite:
		return true
	case domain.UpdatabilityOnCreate:
		return o.node == nil
	case domain.UpdatabilityWhenCheckedOut:
		return o.role == rolePWC
	default:
		return false
	}
}

// SetProperties writes a batch of properties in id order.
func (o *ObjectData) SetProperties(props domain.Properties) error {
	ids := make([]string, 0, len(props))
	for id := range props {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		p := props[id]
		if p.ID == "" {
			p.ID = id
		}
		if err := o.SetProperty(p); err != nil {
			return err
		}
	}
	return nil
}

// ACL returns the access control list. Types that are not ACL controllable
// have none.
func (o *ObjectData) ACL() domain.ACL {
	if !o.typeDef.ControllableACL {
		return nil
	}
	if o.node == nil {
		return slices.Clone(o.acl)
	}
	p, _ := o.node.Property(domain.PropPermissions)
	return domain.DecodeACL(p.Strings())
}

// SetACL replaces the access control list.
func (o *ObjectData) SetACL(acl domain.ACL) error {
	if err := o.immutable(); err != nil {
		return err
	}
	if !o.typeDef.ControllableACL {
		return domain.Constraintf("type %s is not ACL controllable", o.typeDef.ID)
	}
	if o.node == nil {
		o.acl = domain.ACL(nil).Merge(acl, nil)
		return nil
	}
	o.node.AddMixin(domain.MixinPrivilegeable)
	o.node.SetProperty(domain.NewStringProperty(domain.PropPermissions, acl.Encode()...))
	o.dirty = true
	return nil
}

// Policies returns the ids of the applied policies. Historical versions
// report the policies of the latest version.
func (o *ObjectData) Policies() []string {
	if !o.typeDef.ControllablePolicy {
		return nil
	}
	switch {
	case o.node == nil:
		return slices.Clone(o.policies)
	case o.role == roleHistorical && o.latest != nil:
		return slices.Clone(o.latest.References[domain.RefPolicies])
	default:
		return slices.Clone(o.node.References[domain.RefPolicies])
	}
}

// ApplyPolicy applies a policy object.
func (o *ObjectData) ApplyPolicy(policy *ObjectData) error {
	if err := o.immutable(); err != nil {
		return err
	}
	if !o.typeDef.ControllablePolicy {
		return domain.Constraintf("type %s is not policy controllable", o.typeDef.ID)
	}
	if policy.BaseType() != domain.BaseTypePolicy || policy.IsNew() {
		return domain.InvalidArgumentf("object %s is not a policy", policy.ID())
	}
	current := o.Policies()
	if slices.Contains(current, policy.ID()) {
		return nil
	}
	current = append(current, policy.ID())
	if o.node == nil {
		o.policies = current
		return nil
	}
	o.node.AddMixin(domain.MixinPolicyable)
	o.node.SetReferences(domain.RefPolicies, current...)
	o.dirty = true
	return nil
}

// RemovePolicy removes an applied policy.
func (o *ObjectData) RemovePolicy(policyID string) error {
	if err := o.immutable(); err != nil {
		return err
	}
	if !o.typeDef.ControllablePolicy {
		return domain.Constraintf("type %s is not policy controllable", o.typeDef.ID)
	}
	current := o.Policies()
	i := slices.Index(current, policyID)
	if i < 0 {
		return domain.InvalidArgumentf("policy %s is not applied to %s", policyID, o.ID())
	}
	current = slices.Delete(current, i, i+1)
	if o.node == nil {
		o.policies = current
		return nil
	}
	o.node.SetReferences(domain.RefPolicies, current...)
	o.dirty = true
	return nil
}

// Parent returns the folder the object is filed in. It fails with
// domain.ErrConstraint for multi-filed objects and returns nil for unfiled
// objects and the root folder.
func (o *ObjectData) Parent(ctx context.Context) (*ObjectData, error) {
	parents, err := o.Parents(ctx)
	if err != nil {
		return nil, err
	}
	switch len(parents) {
	case 0:
		return nil, nil
	case 1:
		return parents[0], nil
	default:
		return nil, domain.Constraintf("object %s is filed in %d folders", o.ID(), len(parents))
	}
}

// Parents returns the folders the object is filed in: the physical parent
// followed by the folders holding links to it.
func (o *ObjectData) Parents(ctx context.Context) ([]*ObjectData, error) {
	if o.node == nil {
		return nil, nil
	}
	n := o.node
	switch o.role {
	case roleHistorical:
		if o.latest == nil {
			return nil, nil
		}
		n = o.latest
	case rolePWC:
		latest, err := o.se.tx.Node(ctx, o.node.Reference(domain.RefLatestVersion))
		if err != nil {
			return nil, err
		}
		n = latest
	}
	if n.ID == o.se.s.rootID {
		return nil, nil
	}

	var parents []*ObjectData
	parent, err := o.se.tx.Node(ctx, n.ParentID)
	if err != nil {
		return nil, err
	}
	if isObjectNode(parent) {
		obj, err := o.se.objectFromNode(ctx, parent)
		if err != nil {
			return nil, err
		}
		parents = append(parents, obj)
	}
	if o.typeDef.BaseType == domain.BaseTypeFolder {
		return parents, nil
	}

	links, err := o.se.linksTo(ctx, n.ID)
	if err != nil {
		return nil, err
	}
	for _, link := range links {
		folder, err := o.se.folder(ctx, link.ParentID)
		if err != nil {
			return nil, err
		}
		parents = append(parents, folder)
	}
	return parents, nil
}

// Save persists the object: a new object is created, a persisted one has its
// changes and pending rename applied.
func (o *ObjectData) Save(ctx context.Context) error {
	if err := o.immutable(); err != nil {
		return err
	}
	if o.node == nil {
		var err error
		switch o.typeDef.BaseType {
		case domain.BaseTypeDocument:
			err = o.createDocument(ctx)
		case domain.BaseTypeFolder:
			err = o.createFolder(ctx)
		case domain.BaseTypePolicy:
			err = o.createPolicy(ctx)
		case domain.BaseTypeRelationship:
			err = o.createRelationship(ctx)
		default:
			err = domain.InvalidArgumentf("unknown base type %q", o.typeDef.BaseType)
		}
		if err != nil {
			return err
		}
		o.se.record(o.ID(), domain.ChangeCreated)
		return nil
	}

	if !o.dirty && !o.renamed {
		return nil
	}
	o.stampModified()
	if err := o.se.tx.UpdateNode(ctx, o.node); err != nil {
		return err
	}
	if o.renamed {
		if err := o.rename(ctx); err != nil {
			return err
		}
	}
	o.dirty = false
	o.se.record(o.ID(), domain.ChangeUpdated)
	return nil
}

func (o *ObjectData) rename(ctx context.Context) error {
	name := o.newName
	if err := o.se.checkFree(ctx, o.node.ParentID, name, o.node.ID); err != nil {
		return err
	}
	if err := o.se.tx.MoveNode(ctx, o.node.ID, o.node.ParentID, name); err != nil {
		return err
	}
	links, err := o.se.linksTo(ctx, o.node.ID)
	if err != nil {
		return err
	}
	for _, link := range links {
		if err := o.se.checkFree(ctx, link.ParentID, name, link.ID); err != nil {
			return err
		}
		if err := o.se.tx.MoveNode(ctx, link.ID, link.ParentID, name); err != nil {
			return err
		}
	}
	o.node.Name = name
	o.renamed = false
	return nil
}

// stampModified records the modification audit properties and a new change
// token on a persisted object.
func (o *ObjectData) stampModified() {
	now := o.se.s.now()
	o.node.SetProperty(domain.NewStringProperty(domain.PropLastModifiedBy, o.se.s.user))
	o.node.SetProperty(domain.NewDateTimeProperty(domain.PropLastModificationDate, now))
	o.node.SetProperty(domain.NewStringProperty(domain.PropChangeToken, newChangeToken()))
}

// stampCreated records the creation audit properties on a node about to be added.
func (se *session) stampCreated(n *domain.Node) {
	now := se.s.now()
	n.SetProperty(domain.NewStringProperty(domain.PropCreatedBy, se.s.user))
	n.SetProperty(domain.NewDateTimeProperty(domain.PropCreationDate, now))
	n.SetProperty(domain.NewStringProperty(domain.PropLastModifiedBy, se.s.user))
	n.SetProperty(domain.NewDateTimeProperty(domain.PropLastModificationDate, now))
	n.SetProperty(domain.NewStringProperty(domain.PropChangeToken, newChangeToken()))
}

// Delete removes the object. For documents allVersions also removes the
// version history.
func (o *ObjectData) Delete(ctx context.Context, allVersions bool) error {
	if err := o.immutable(); err != nil {
		return err
	}
	if o.node == nil {
		return domain.InvalidArgumentf("object is not persisted")
	}
	var err error
	switch o.typeDef.BaseType {
	case domain.BaseTypeDocument:
		if o.role == rolePWC {
			return o.CancelCheckout(ctx)
		}
		err = o.deleteDocument(ctx, allVersions)
	case domain.BaseTypeFolder:
		err = o.deleteFolder(ctx)
	case domain.BaseTypePolicy:
		err = o.deleteFiled(ctx)
	case domain.BaseTypeRelationship:
		err = o.se.tx.RemoveNode(ctx, o.node.ID)
	default:
		err = domain.InvalidArgumentf("unknown base type %q", o.typeDef.BaseType)
	}
	if err != nil {
		return err
	}
	o.se.record(o.node.ID, domain.ChangeDeleted)
	return nil
}

func (o *ObjectData) deleteFolder(ctx context.Context) error {
	if o.isRoot() {
		return domain.Constraintf("root folder cannot be deleted")
	}
	children, err := o.se.tx.Children(ctx, o.node.ID)
	if err != nil {
		return err
	}
	if len(children) > 0 {
		return domain.Constraintf("folder %s is not empty", o.node.ID)
	}
	return o.se.tx.RemoveNode(ctx, o.node.ID)
}

// deleteFiled removes the links to a fileable object and then its node,
// together with its unfiled container.
// checkUnreferenced fails when a node other than a link to the object, or
// the node ignored, references it. Nothing has been removed at that point,
// so a failed delete leaves every filing in place.
func (o *ObjectData) checkUnreferenced(ctx context.Context, ignored string) error {
	refs, err := o.se.tx.ReferencesTo(ctx, o.node.ID)
	if err != nil {
		return err
	}
	for _, ref := range refs {
		if ref.Name == domain.RefTarget || (ignored != "" && ref.SourceID == ignored) {
			continue
		}
		return domain.Constraintf("object %s is referenced by %s", o.node.ID, ref.SourceID)
	}
	return nil
}

func (o *ObjectData) deleteFiled(ctx context.Context) error {
	if err := o.checkUnreferenced(ctx, ""); err != nil {
		return err
	}
	links, err := o.se.linksTo(ctx, o.node.ID)
	if err != nil {
		return err
	}
	for _, link := range links {
		if err := o.se.tx.RemoveNode(ctx, link.ID); err != nil {
			return err
		}
	}
	target := o.node.ID
	if o.se.isUnfiledContainer(ctx, o.node.ParentID) {
		target = o.node.ParentID
	}
	return o.se.tx.RemoveNode(ctx, target)
}

func newChangeToken() string {
	return ulid.Make().String()
}

// isObjectNode reports whether a node holds a CMIS object.
func isObjectNode(n *domain.Node) bool {
	switch n.PrimaryType {
	case domain.NodeTypeSystem, domain.NodeTypeLink, domain.NodeTypeRendition:
		return false
	default:
		return true
	}
}

// object loads an object, a working copy or a historical version by id.
func (se *session) object(ctx context.Context, id string) (*ObjectData, error) {
	if id == "" {
		return nil, domain.InvalidArgumentf("object id is required")
	}
	n, err := se.tx.Node(ctx, id)
	if err == nil {
		if !isObjectNode(n) {
			return nil, domain.NotFoundf("object %s not found", id)
		}
		return se.objectFromNode(ctx, n)
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	v, verr := se.tx.Version(ctx, id)
	if verr != nil {
		if errors.Is(verr, domain.ErrNotFound) {
			return nil, domain.NotFoundf("object %s not found", id)
		}
		return nil, verr
	}
	return se.historical(ctx, v)
}

func (se *session) objectFromNode(ctx context.Context, n *domain.Node) (*ObjectData, error) {
	def, err := se.s.types.Get(ctx, n.PrimaryType)
	if err != nil {
		return nil, err
	}
	o := &ObjectData{se: se, typeDef: def, node: n}
	if n.Reference(domain.RefLatestVersion) != "" {
		o.role = rolePWC
	}
	return o, nil
}

// historical returns the facade of a sealed version.
func (se *session) historical(ctx context.Context, v *domain.NodeVersion) (*ObjectData, error) {
	latest, err := se.tx.NodeByVersionHistory(ctx, v.HistoryID)
	if err != nil {
		return nil, err
	}
	def, err := se.s.types.Get(ctx, v.Frozen.PrimaryType)
	if err != nil {
		return nil, err
	}
	history, err := se.tx.VersionHistory(ctx, v.HistoryID)
	if err != nil {
		return nil, err
	}
	o := &ObjectData{se: se, typeDef: def, node: v.Frozen, version: v, latest: latest, role: roleHistorical}
	o.isLatestMajor = latestMajorVersionID(history) == v.ID
	return o, nil
}

// latestMajorVersionID returns the id of the newest sealed major version.
func latestMajorVersionID(history []*domain.NodeVersion) string {
	id := ""
	for _, v := range history {
		if p, ok := v.Frozen.Property(domain.PropIsMajorVersion); ok && p.Bool() {
			id = v.ID
		}
	}
	return id
}

// folder loads a folder object.
func (se *session) folder(ctx context.Context, id string) (*ObjectData, error) {
	o, err := se.object(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.BaseType() != domain.BaseTypeFolder || o.role != roleLatest {
		return nil, domain.InvalidArgumentf("object %s is not a folder", id)
	}
	return o, nil
}

// newObject returns a new, unsaved object of typeID.
func (se *session) newObject(ctx context.Context, typeID string, base domain.BaseType) (*ObjectData, error) {
	if typeID == "" {
		typeID = string(base)
	}
	def, err := se.s.types.Get(ctx, typeID)
	if err != nil {
		return nil, err
	}
	if def.BaseType != base {
		return nil, domain.Constraintf("type %s is not a %s type", typeID, base)
	}
	if !def.Creatable {
		return nil, domain.Constraintf("type %s is not creatable", typeID)
	}
	return &ObjectData{se: se, typeDef: def, role: roleLatest, props: make(domain.Properties)}, nil
}

// checkFree fails with domain.ErrNameConstraint when parentID has a child
// named name other than selfID.
func (se *session) checkFree(ctx context.Context, parentID, name, selfID string) error {
	existing, err := se.tx.ChildByName(ctx, parentID, name)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if existing.ID != selfID {
		return domain.NameConstraintf("%q already exists in folder %s", name, parentID)
	}
	return nil
}

// linksTo returns the link nodes filing targetID in additional folders.
func (se *session) linksTo(ctx context.Context, targetID string) ([]*domain.Node, error) {
	refs, err := se.tx.ReferencesTo(ctx, targetID)
	if err != nil {
		return nil, err
	}
	var links []*domain.Node //nolint:prealloc // size unknown from query
	for _, ref := range refs {
		if ref.Name != domain.RefTarget {
			continue
		}
		link, err := se.tx.Node(ctx, ref.SourceID)
		if err != nil {
			return nil, err
		}
		links = append(links, link)
	}
	sort.Slice(links, func(i, j int) bool { return links[i].ID < links[j].ID })
	return links, nil
}

// isUnfiledContainer reports whether id is a per-object container in the
// unfiled or policies store.
func (se *session) isUnfiledContainer(ctx context.Context, id string) bool {
	n, err := se.tx.Node(ctx, id)
	if err != nil {
		return false
	}
	return n.PrimaryType == domain.NodeTypeSystem &&
		(n.ParentID == se.s.unfiledID || n.ParentID == se.s.policiesID)
}

// SetContentStream replaces the content of a document. A nil stream removes
// it. Without overwrite existing content is kept and the call fails.
func (o *ObjectData) SetContentStream(cs *domain.ContentStream, overwrite bool) error {
	if err := o.immutable(); err != nil {
		return err
	}
	if o.typeDef.BaseType != domain.BaseTypeDocument {
		return domain.Constraintf("object %s is not a document", o.ID())
	}
	if cs == nil {
		if o.typeDef.ContentStreamAllowed == domain.ContentStreamRequired {
			return domain.Constraintf("type %s requires a content stream", o.typeDef.ID)
		}
	} else {
		if o.typeDef.ContentStreamAllowed == domain.ContentStreamNotAllowed {
			return domain.Constraintf("type %s does not allow a content stream", o.typeDef.ID)
		}
		if !overwrite && o.contentStream() != nil {
			return domain.Constraintf("document %s already has a content stream", o.ID())
		}
	}
	if o.node == nil {
		o.content = cs.Clone()
		return nil
	}
	o.node.Content = cs.Clone()
	o.dirty = true
	return nil
}

// snapshot returns the read-only view handed to callers.
func (o *ObjectData) snapshot(ctx context.Context) *domain.CmisObject {
	obj := &domain.CmisObject{
		ID:         o.ID(),
		TypeID:     o.typeDef.ID,
		BaseType:   o.typeDef.BaseType,
		Properties: o.Properties(ctx),
		ACL:        o.ACL(),
		PolicyIDs:  o.Policies(),
	}
	renditions, err := o.se.renditions(ctx, o)
	if err != nil {
		logger.Debug("Listing renditions of %s: %v", o.ID(), err)
	}
	obj.Renditions = renditions
	return obj
}
