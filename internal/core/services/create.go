package services

import (
	"context"
	"slices"

	"github.com/custodia-labs/xcmis/internal/core/domain"
)

const (
	labelFirstMajor = "1.0"
	labelFirstMinor = "0.1"
	labelPWC        = "pwc"
)

// checkRequired fails when a required property other than the ones each
// create handles itself has no value.
func (o *ObjectData) checkRequired() error {
	for id, def := range o.typeDef.PropertyDefinitions {
		if !def.Required {
			continue
		}
		switch id {
		case domain.PropName, domain.PropObjectTypeID, domain.PropSourceID, domain.PropTargetID:
			continue
		}
		if o.props.Get(id).IsEmpty() {
			return domain.Constraintf("required property %s is not set", id)
		}
	}
	return nil
}

// fileParent resolves the node a new fileable object is added under. Without
// a parent folder the object gets its own container in store.
func (o *ObjectData) fileParent(ctx context.Context, store, name string) (string, error) {
	if o.parentID == "" {
		container, err := o.se.tx.AddNode(ctx, domain.NewNode(store, o.id, domain.NodeTypeSystem))
		if err != nil {
			return "", err
		}
		return container.ID, nil
	}
	if !o.typeDef.Fileable {
		return "", domain.Constraintf("type %s is not fileable", o.typeDef.ID)
	}
	parent, err := o.se.folder(ctx, o.parentID)
	if err != nil {
		return "", err
	}
	if err := parent.allowsChild(ctx, o.typeDef); err != nil {
		return "", err
	}
	if err := o.se.checkFree(ctx, parent.ID(), name, ""); err != nil {
		return "", err
	}
	return parent.ID(), nil
}

// allowsChild checks cmis:allowedChildObjectTypeIds of a folder.
func (o *ObjectData) allowsChild(ctx context.Context, def *domain.TypeDefinition) error {
	allowed := o.node.Properties.Get(domain.PropAllowedChildObjectTypeIDs).Strings()
	if len(allowed) == 0 {
		return nil
	}
	for _, id := range allowed {
		if o.se.s.types.IsSubtype(ctx, def.ID, id) {
			return nil
		}
	}
	return domain.Constraintf("folder %s does not allow objects of type %s", o.ID(), def.ID)
}

// prepareNode builds the node of a new object from its buffered state.
func (o *ObjectData) prepareNode(parentID, name string) *domain.Node {
	n := domain.NewNode(parentID, name, o.typeDef.ID)
	n.ID = o.id
	for _, p := range o.props {
		n.SetProperty(p.Clone())
	}
	o.se.stampCreated(n)
	if len(o.acl) > 0 {
		n.AddMixin(domain.MixinPrivilegeable)
		n.SetProperty(domain.NewStringProperty(domain.PropPermissions, o.acl.Encode()...))
	}
	if len(o.policies) > 0 {
		n.AddMixin(domain.MixinPolicyable)
		n.SetReferences(domain.RefPolicies, o.policies...)
	}
	return n
}

func checkContentAllowed(def *domain.TypeDefinition, content *domain.ContentStream) error {
	switch def.ContentStreamAllowed {
	case domain.ContentStreamNotAllowed:
		if content != nil {
			return domain.Constraintf("type %s does not allow a content stream", def.ID)
		}
	case domain.ContentStreamRequired:
		if content == nil {
			return domain.Constraintf("type %s requires a content stream", def.ID)
		}
	}
	return nil
}

func (o *ObjectData) createDocument(ctx context.Context) error {
	name := o.newName
	if err := validateName(name); err != nil {
		return err
	}
	if err := o.checkRequired(); err != nil {
		return err
	}
	if err := checkContentAllowed(o.typeDef, o.content); err != nil {
		return err
	}
	state := o.versioningState
	if state == "" {
		state = domain.VersioningStateNone
		if o.typeDef.Versionable {
			state = domain.VersioningStateMajor
		}
	}
	if !state.IsValid() {
		return domain.InvalidArgumentf("unknown versioning state %q", state)
	}
	if !o.typeDef.Versionable && state != domain.VersioningStateNone {
		return domain.Constraintf("type %s is not versionable", o.typeDef.ID)
	}

	o.id = newID()
	parentID, err := o.fileParent(ctx, o.se.s.unfiledID, name)
	if err != nil {
		return err
	}
	n := o.prepareNode(parentID, name)
	n.Content = o.content.Clone()

	major := state != domain.VersioningStateMinor
	label := labelFirstMajor
	if !major {
		label = labelFirstMinor
	}
	seriesID := n.ID
	if o.typeDef.Versionable {
		n.AddMixin(domain.MixinVersionable)
		n.VersionHistoryID = newID()
		seriesID = n.VersionHistoryID
	}
	n.SetProperty(domain.NewIDProperty(domain.PropVersionSeriesID, seriesID))
	n.SetProperty(domain.NewStringProperty(domain.PropVersionLabel, label))
	n.SetProperty(domain.NewBooleanProperty(domain.PropIsLatestVersion, true))
	n.SetProperty(domain.NewBooleanProperty(domain.PropIsMajorVersion, major))
	n.SetProperty(domain.NewBooleanProperty(domain.PropIsLatestMajorVersion, major))
	n.SetProperty(domain.NewBooleanProperty(domain.PropIsVersionSeriesCheckedOut, false))
	n.SetProperty(domain.NewBooleanProperty(domain.PropIsImmutable, false))

	added, err := o.se.tx.AddNode(ctx, n)
	if err != nil {
		return err
	}
	if o.typeDef.Versionable {
		if err := o.se.seal(ctx, added.ID); err != nil {
			return err
		}
		if added, err = o.se.tx.Node(ctx, added.ID); err != nil {
			return err
		}
	}
	o.node = added
	o.newName = ""
	return o.se.storeRenditions(ctx, o)
}

// seal records the current state of a versionable node as a new version and
// makes the node writable again.
func (se *session) seal(ctx context.Context, id string) error {
	if _, err := se.tx.Checkin(ctx, id); err != nil {
		return err
	}
	return se.tx.Checkout(ctx, id)
}

func (o *ObjectData) createFolder(ctx context.Context) error {
	name := o.newName
	if err := validateName(name); err != nil {
		return err
	}
	if o.parentID == "" {
		return domain.InvalidArgumentf("folder %q requires a parent folder", name)
	}
	if o.content != nil {
		return domain.Constraintf("folders do not have content streams")
	}
	if err := o.checkRequired(); err != nil {
		return err
	}
	for _, id := range o.props.Get(domain.PropAllowedChildObjectTypeIDs).Strings() {
		if _, err := o.se.s.types.Get(ctx, id); err != nil {
			return err
		}
	}

	o.id = newID()
	parentID, err := o.fileParent(ctx, "", name)
	if err != nil {
		return err
	}
	added, err := o.se.tx.AddNode(ctx, o.prepareNode(parentID, name))
	if err != nil {
		return err
	}
	o.node = added
	o.newName = ""
	return nil
}

func (o *ObjectData) createPolicy(ctx context.Context) error {
	name := o.newName
	if err := validateName(name); err != nil {
		return err
	}
	if o.content != nil {
		return domain.Constraintf("policies do not have content streams")
	}
	if err := o.checkRequired(); err != nil {
		return err
	}

	o.id = newID()
	parentID, err := o.fileParent(ctx, o.se.s.policiesID, name)
	if err != nil {
		return err
	}
	added, err := o.se.tx.AddNode(ctx, o.prepareNode(parentID, name))
	if err != nil {
		return err
	}
	o.node = added
	o.newName = ""
	return nil
}

func (o *ObjectData) createRelationship(ctx context.Context) error {
	name := o.newName
	if err := validateName(name); err != nil {
		return err
	}
	if o.parentID != "" {
		return domain.Constraintf("relationships are not fileable")
	}
	if o.content != nil {
		return domain.Constraintf("relationships do not have content streams")
	}
	if err := o.checkRequired(); err != nil {
		return err
	}

	source, err := o.endpoint(ctx, domain.PropSourceID, o.typeDef.AllowedSourceTypes)
	if err != nil {
		return err
	}
	target, err := o.endpoint(ctx, domain.PropTargetID, o.typeDef.AllowedTargetTypes)
	if err != nil {
		return err
	}

	o.id = newID()
	n := o.prepareNode(o.se.s.relationshipsID, o.id)
	n.RemoveProperty(domain.PropSourceID)
	n.RemoveProperty(domain.PropTargetID)
	n.SetProperty(domain.NewStringProperty(domain.PropName, name))
	n.SetReferences(domain.PropSourceID, source.ID())
	n.SetReferences(domain.PropTargetID, target.ID())

	added, err := o.se.tx.AddNode(ctx, n)
	if err != nil {
		return err
	}
	o.node = added
	o.newName = ""
	return nil
}

// endpoint resolves the source or target of a new relationship.
func (o *ObjectData) endpoint(ctx context.Context, propID string, allowed []string) (*ObjectData, error) {
	id := o.props.Get(propID).String()
	if id == "" {
		return nil, domain.Constraintf("property %s is required", propID)
	}
	obj, err := o.se.object(ctx, id)
	if err != nil {
		return nil, err
	}
	if obj.IsHistorical() {
		return nil, domain.InvalidArgumentf("relationship endpoint %s is not the latest version", id)
	}
	if len(allowed) > 0 && !slices.ContainsFunc(allowed, func(t string) bool {
		return o.se.s.types.IsSubtype(ctx, obj.typeDef.ID, t)
	}) {
		return nil, domain.Constraintf("type %s is not allowed as %s of %s", obj.typeDef.ID, propID, o.typeDef.ID)
	}
	return obj, nil
}
