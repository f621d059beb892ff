package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestBaseTypeDefinitions tests the built-in base types
func TestBaseTypeDefinitions(t *testing.T) {
	defs := BaseTypeDefinitions()
	require.Len(t, defs, 4)

	byID := make(map[string]*TypeDefinition)
	for _, d := range defs {
		assert.True(t, d.IsBase(), d.ID)
		require.NoError(t, d.Validate())
		byID[d.ID] = d
	}

	doc := byID[string(BaseTypeDocument)]
	assert.True(t, doc.Versionable)
	assert.Equal(t, ContentStreamAllowedOpt, doc.ContentStreamAllowed)
	assert.NotNil(t, doc.PropertyDefinition(PropVersionLabel))
	assert.Equal(t, UpdatabilityReadWrite, doc.PropertyDefinition(PropName).Updatability)

	rel := byID[string(BaseTypeRelationship)]
	assert.False(t, rel.Fileable)
	assert.True(t, rel.PropertyDefinition(PropSourceID).Required)

	folder := byID[string(BaseTypeFolder)]
	assert.Nil(t, folder.PropertyDefinition(PropVersionLabel))
	assert.Equal(t, CardinalityMulti, folder.PropertyDefinition(PropAllowedChildObjectTypeIDs).Cardinality)
}

// TestTypeDefinition_Validate tests validation of custom types
func TestTypeDefinition_Validate(t *testing.T) {
	tests := []struct {
		name    string
		def     TypeDefinition
		wantErr bool
	}{
		{
			name: "valid document subtype",
			def: TypeDefinition{
				ID: "my:invoice", ParentID: "cmis:document", BaseType: BaseTypeDocument,
				Properties: []*PropertyDefinition{{
					ID: "my:amount", Type: PropertyTypeDecimal,
					Cardinality: CardinalitySingle, Updatability: UpdatabilityReadWrite,
				}},
			},
		},
		{name: "missing id", def: TypeDefinition{BaseType: BaseTypeFolder}, wantErr: true},
		{name: "unknown base", def: TypeDefinition{ID: "x", BaseType: "cmis:item"}, wantErr: true},
		{
			name: "bad property type",
			def: TypeDefinition{
				ID: "x", BaseType: BaseTypeFolder,
				Properties: []*PropertyDefinition{{ID: "p", Type: "blob", Cardinality: CardinalitySingle, Updatability: UpdatabilityReadWrite}},
			},
			wantErr: true,
		},
		{
			name: "duplicate property",
			def: TypeDefinition{
				ID: "x", BaseType: BaseTypeFolder,
				Properties: []*PropertyDefinition{
					{ID: "p", Type: PropertyTypeString, Cardinality: CardinalitySingle, Updatability: UpdatabilityReadWrite},
					{ID: "p", Type: PropertyTypeString, Cardinality: CardinalitySingle, Updatability: UpdatabilityReadWrite},
				},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := tt.def
			err := def.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidArgument)
				return
			}
			require.NoError(t, err)
			assert.Nil(t, def.Properties)
			assert.NotNil(t, def.PropertyDefinition("my:amount"))
			assert.Equal(t, ContentStreamAllowedOpt, def.ContentStreamAllowed)
		})
	}
}

// TestTypeDefinition_Inherit tests inheritance of parent properties
func TestTypeDefinition_Inherit(t *testing.T) {
	parent := BaseTypeDefinitions()[0]
	child := &TypeDefinition{ID: "my:doc", ParentID: parent.ID, BaseType: BaseTypeDocument}

	require.NoError(t, child.Inherit(parent))
	name := child.PropertyDefinition(PropName)
	require.NotNil(t, name)
	assert.True(t, name.Inherited)
	assert.False(t, parent.PropertyDefinition(PropName).Inherited)

	folder := &TypeDefinition{ID: "my:folder", BaseType: BaseTypeFolder}
	assert.ErrorIs(t, folder.Inherit(parent), ErrConstraint)

	clash := &TypeDefinition{
		ID: "my:bad", BaseType: BaseTypeDocument,
		PropertyDefinitions: map[string]*PropertyDefinition{
			PropName: {ID: PropName, Type: PropertyTypeInteger, Cardinality: CardinalitySingle, Updatability: UpdatabilityReadWrite},
		},
	}
	assert.ErrorIs(t, clash.Inherit(parent), ErrConstraint)
}

// TestTypeDefinition_Clone tests deep copying
func TestTypeDefinition_Clone(t *testing.T) {
	orig := BaseTypeDefinitions()[1]
	c := orig.Clone()
	c.PropertyDefinition(PropName).Required = false

	assert.True(t, orig.PropertyDefinition(PropName).Required)
}

func TestTypeDefinition_CloneKeepsDeclaredProperties(t *testing.T) {
	orig := &TypeDefinition{
		ID:         "acme:x",
		BaseType:   BaseTypeFolder,
		Properties: []*PropertyDefinition{{ID: "acme:p", Type: PropertyTypeString}},
	}
	c := orig.Clone()
	require.Len(t, c.Properties, 1)
	c.Properties[0].ID = "acme:q"

	assert.Equal(t, "acme:p", orig.Properties[0].ID)
}
