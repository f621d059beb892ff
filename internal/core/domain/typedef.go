package domain

import "fmt"

// Updatability controls when a property may be written.
type Updatability string

// Updatability values.
const (
	UpdatabilityReadOnly       Updatability = "readonly"
	UpdatabilityReadWrite      Updatability = "readwrite"
	UpdatabilityOnCreate       Updatability = "oncreate"
	UpdatabilityWhenCheckedOut Updatability = "whencheckedout"
)

// Cardinality is the number of values a property may hold.
type Cardinality string

// Cardinality values.
const (
	CardinalitySingle Cardinality = "single"
	CardinalityMulti  Cardinality = "multi"
)

// PropertyDefinition declares a property of an object type.
type PropertyDefinition struct {
	ID           string       `json:"id" yaml:"id"`
	DisplayName  string       `json:"displayName,omitempty" yaml:"displayName,omitempty"`
	Type         PropertyType `json:"type" yaml:"type"`
	Cardinality  Cardinality  `json:"cardinality" yaml:"cardinality"`
	Updatability Updatability `json:"updatability" yaml:"updatability"`
	Required     bool         `json:"required,omitempty" yaml:"required,omitempty"`
	Queryable    bool         `json:"queryable,omitempty" yaml:"queryable,omitempty"`
	Inherited    bool         `json:"inherited,omitempty" yaml:"-"`
}

// Validate checks the definition is well formed.
func (d *PropertyDefinition) Validate() error {
	if d.ID == "" {
		return InvalidArgumentf("property definition id is required")
	}
	if !d.Type.IsValid() {
		return InvalidArgumentf("property %s has unknown type %q", d.ID, d.Type)
	}
	switch d.Cardinality {
	case CardinalitySingle, CardinalityMulti:
	default:
		return InvalidArgumentf("property %s has unknown cardinality %q", d.ID, d.Cardinality)
	}
	switch d.Updatability {
	case UpdatabilityReadOnly, UpdatabilityReadWrite, UpdatabilityOnCreate, UpdatabilityWhenCheckedOut:
	default:
		return InvalidArgumentf("property %s has unknown updatability %q", d.ID, d.Updatability)
	}
	return nil
}

// TypeDefinition describes an object type.
type TypeDefinition struct {
	ID                   string                         `json:"id" yaml:"id"`
	ParentID             string                         `json:"parentId,omitempty" yaml:"parent"`
	BaseType             BaseType                       `json:"baseId" yaml:"base"`
	DisplayName          string                         `json:"displayName,omitempty" yaml:"displayName,omitempty"`
	Description          string                         `json:"description,omitempty" yaml:"description,omitempty"`
	Creatable            bool                           `json:"creatable" yaml:"creatable"`
	Fileable             bool                           `json:"fileable" yaml:"fileable"`
	Queryable            bool                           `json:"queryable" yaml:"queryable"`
	ControllablePolicy   bool                           `json:"controllablePolicy" yaml:"controllablePolicy"`
	ControllableACL      bool                           `json:"controllableACL" yaml:"controllableACL"`
	Versionable          bool                           `json:"versionable,omitempty" yaml:"versionable,omitempty"`
	ContentStreamAllowed ContentStreamAllowed           `json:"contentStreamAllowed,omitempty" yaml:"contentStreamAllowed,omitempty"`
	AllowedSourceTypes   []string                       `json:"allowedSourceTypes,omitempty" yaml:"allowedSourceTypes,omitempty"`
	AllowedTargetTypes   []string                       `json:"allowedTargetTypes,omitempty" yaml:"allowedTargetTypes,omitempty"`
	PropertyDefinitions  map[string]*PropertyDefinition `json:"propertyDefinitions" yaml:"-"`
	Properties           []*PropertyDefinition          `json:"-" yaml:"properties,omitempty"`
}

// PropertyDefinition returns the definition of a property, or nil.
func (t *TypeDefinition) PropertyDefinition(id string) *PropertyDefinition {
	if t.PropertyDefinitions == nil {
		return nil
	}
	return t.PropertyDefinitions[id]
}

// IsBase returns true if the definition is one of the four base types.
func (t *TypeDefinition) IsBase() bool {
	return t.ParentID == "" && BaseType(t.ID) == t.BaseType
}

// Validate checks that a custom type is well formed.
func (t *TypeDefinition) Validate() error {
	if t.ID == "" {
		return InvalidArgumentf("type id is required")
	}
	if !t.BaseType.IsValid() {
		return InvalidArgumentf("type %s has unknown base type %q", t.ID, t.BaseType)
	}
	if t.BaseType == BaseTypeDocument && t.ContentStreamAllowed == "" {
		t.ContentStreamAllowed = ContentStreamAllowedOpt
	}
	for _, d := range t.Properties {
		if err := t.addDefinition(d); err != nil {
			return err
		}
	}
	t.Properties = nil
	for _, d := range t.PropertyDefinitions {
		if err := d.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (t *TypeDefinition) addDefinition(d *PropertyDefinition) error {
	if d == nil {
		return nil
	}
	if t.PropertyDefinitions == nil {
		t.PropertyDefinitions = make(map[string]*PropertyDefinition)
	}
	if _, ok := t.PropertyDefinitions[d.ID]; ok {
		return InvalidArgumentf("type %s declares property %s twice", t.ID, d.ID)
	}
	t.PropertyDefinitions[d.ID] = d
	return nil
}

// Inherit copies the property definitions of parent that t does not redeclare.
// A redeclared property must keep the parent's type.
func (t *TypeDefinition) Inherit(parent *TypeDefinition) error {
	if parent.BaseType != t.BaseType {
		return Constraintf("type %s (%s) cannot extend %s (%s)", t.ID, t.BaseType, parent.ID, parent.BaseType)
	}
	if t.PropertyDefinitions == nil {
		t.PropertyDefinitions = make(map[string]*PropertyDefinition, len(parent.PropertyDefinitions))
	}
	for id, pd := range parent.PropertyDefinitions {
		if own, ok := t.PropertyDefinitions[id]; ok {
			if own.Type != pd.Type {
				return Constraintf("type %s changes the type of inherited property %s", t.ID, id)
			}
			continue
		}
		c := *pd
		c.Inherited = true
		t.PropertyDefinitions[id] = &c
	}
	return nil
}

// Clone returns a deep copy.
func (t *TypeDefinition) Clone() *TypeDefinition {
	c := *t
	c.AllowedSourceTypes = append([]string(nil), t.AllowedSourceTypes...)
	c.AllowedTargetTypes = append([]string(nil), t.AllowedTargetTypes...)
	c.Properties = nil
	for _, pd := range t.Properties {
		if pd != nil {
			d := *pd
			c.Properties = append(c.Properties, &d)
		}
	}
	c.PropertyDefinitions = make(map[string]*PropertyDefinition, len(t.PropertyDefinitions))
	for id, pd := range t.PropertyDefinitions {
		d := *pd
		c.PropertyDefinitions[id] = &d
	}
	return &c
}

func (t *TypeDefinition) String() string {
	return fmt.Sprintf("%s (%s)", t.ID, t.BaseType)
}

func prop(id string, typ PropertyType, card Cardinality, upd Updatability, required bool) *PropertyDefinition {
	return &PropertyDefinition{
		ID:           id,
		Type:         typ,
		Cardinality:  card,
		Updatability: upd,
		Required:     required,
		Queryable:    true,
	}
}

func commonProperties() []*PropertyDefinition {
	return []*PropertyDefinition{
		prop(PropObjectID, PropertyTypeID, CardinalitySingle, UpdatabilityReadOnly, false),
		prop(PropBaseTypeID, PropertyTypeID, CardinalitySingle, UpdatabilityReadOnly, false),
		prop(PropObjectTypeID, PropertyTypeID, CardinalitySingle, UpdatabilityOnCreate, true),
		prop(PropName, PropertyTypeString, CardinalitySingle, UpdatabilityReadWrite, true),
		prop(PropCreatedBy, PropertyTypeString, CardinalitySingle, UpdatabilityReadOnly, false),
		prop(PropCreationDate, PropertyTypeDateTime, CardinalitySingle, UpdatabilityReadOnly, false),
		prop(PropLastModifiedBy, PropertyTypeString, CardinalitySingle, UpdatabilityReadOnly, false),
		prop(PropLastModificationDate, PropertyTypeDateTime, CardinalitySingle, UpdatabilityReadOnly, false),
		prop(PropChangeToken, PropertyTypeString, CardinalitySingle, UpdatabilityReadOnly, false),
	}
}

func newBaseType(base BaseType, extra ...*PropertyDefinition) *TypeDefinition {
	t := &TypeDefinition{
		ID:                 string(base),
		BaseType:           base,
		DisplayName:        string(base),
		Creatable:          true,
		Fileable:           base.IsFileable(),
		Queryable:          true,
		ControllablePolicy: true,
		ControllableACL:    true,
	}
	for _, d := range append(commonProperties(), extra...) {
		_ = t.addDefinition(d)
	}
	return t
}

// BaseTypeDefinitions returns fresh definitions of the four base types.
func BaseTypeDefinitions() []*TypeDefinition {
	doc := newBaseType(BaseTypeDocument,
		prop(PropIsImmutable, PropertyTypeBoolean, CardinalitySingle, UpdatabilityReadOnly, false),
		prop(PropIsLatestVersion, PropertyTypeBoolean, CardinalitySingle, UpdatabilityReadOnly, false),
		prop(PropIsMajorVersion, PropertyTypeBoolean, CardinalitySingle, UpdatabilityReadOnly, false),
		prop(PropIsLatestMajorVersion, PropertyTypeBoolean, CardinalitySingle, UpdatabilityReadOnly, false),
		prop(PropVersionLabel, PropertyTypeString, CardinalitySingle, UpdatabilityReadOnly, false),
		prop(PropVersionSeriesID, PropertyTypeID, CardinalitySingle, UpdatabilityReadOnly, false),
		prop(PropIsVersionSeriesCheckedOut, PropertyTypeBoolean, CardinalitySingle, UpdatabilityReadOnly, false),
		prop(PropVersionSeriesCheckedOutBy, PropertyTypeString, CardinalitySingle, UpdatabilityReadOnly, false),
		prop(PropVersionSeriesCheckedOutID, PropertyTypeID, CardinalitySingle, UpdatabilityReadOnly, false),
		prop(PropCheckinComment, PropertyTypeString, CardinalitySingle, UpdatabilityReadOnly, false),
		prop(PropContentStreamLength, PropertyTypeInteger, CardinalitySingle, UpdatabilityReadOnly, false),
		prop(PropContentStreamMimeType, PropertyTypeString, CardinalitySingle, UpdatabilityReadOnly, false),
		prop(PropContentStreamFileName, PropertyTypeString, CardinalitySingle, UpdatabilityReadOnly, false),
		prop(PropContentStreamID, PropertyTypeID, CardinalitySingle, UpdatabilityReadOnly, false),
	)
	doc.Versionable = true
	doc.ContentStreamAllowed = ContentStreamAllowedOpt

	folder := newBaseType(BaseTypeFolder,
		prop(PropParentID, PropertyTypeID, CardinalitySingle, UpdatabilityReadOnly, false),
		prop(PropPath, PropertyTypeString, CardinalitySingle, UpdatabilityReadOnly, false),
		prop(PropAllowedChildObjectTypeIDs, PropertyTypeID, CardinalityMulti, UpdatabilityOnCreate, false),
	)

	policy := newBaseType(BaseTypePolicy,
		prop(PropPolicyText, PropertyTypeString, CardinalitySingle, UpdatabilityReadWrite, false),
	)

	rel := newBaseType(BaseTypeRelationship,
		prop(PropSourceID, PropertyTypeID, CardinalitySingle, UpdatabilityOnCreate, true),
		prop(PropTargetID, PropertyTypeID, CardinalitySingle, UpdatabilityOnCreate, true),
	)
	rel.ControllablePolicy = false

	return []*TypeDefinition{doc, folder, policy, rel}
}
