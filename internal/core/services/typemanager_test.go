package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/xcmis/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/xcmis/internal/core/domain"
)

func invoiceType() *domain.TypeDefinition {
	return &domain.TypeDefinition{
		ID:        "acme:invoice",
		BaseType:  domain.BaseTypeDocument,
		Creatable: true,
		Fileable:  true,
		Properties: []*domain.PropertyDefinition{{
			ID:           "acme:amount",
			Type:         domain.PropertyTypeInteger,
			Cardinality:  domain.CardinalitySingle,
			Updatability: domain.UpdatabilityReadWrite,
		}},
	}
}

// TestTypeManager_BaseTypes tests the built-in types.
func TestTypeManager_BaseTypes(t *testing.T) {
	m := NewTypeManager(nil)
	ctx := context.Background()

	roots, err := m.Children(ctx, "")
	require.NoError(t, err)
	require.Len(t, roots, 4)
	assert.Equal(t, "cmis:document", roots[0].ID)

	def, err := m.Get(ctx, string(domain.BaseTypeFolder))
	require.NoError(t, err)
	def.Creatable = false
	again, err := m.Get(ctx, string(domain.BaseTypeFolder))
	require.NoError(t, err)
	assert.True(t, again.Creatable)

	_, err = m.Get(ctx, "acme:missing")
	assert.ErrorIs(t, err, domain.ErrTypeNotFound)
	_, err = m.Add(ctx, invoiceType())
	assert.ErrorIs(t, err, domain.ErrNotSupported)
}

// TestTypeManager_Add tests registration and inheritance.
func TestTypeManager_Add(t *testing.T) {
	m := NewTypeManager(memory.NewTypeStore())
	ctx := context.Background()

	def, err := m.Add(ctx, invoiceType())
	require.NoError(t, err)
	assert.Equal(t, string(domain.BaseTypeDocument), def.ParentID)
	assert.NotNil(t, def.PropertyDefinition("acme:amount"))
	inherited := def.PropertyDefinition(domain.PropName)
	require.NotNil(t, inherited)
	assert.True(t, inherited.Inherited)

	_, err = m.Add(ctx, invoiceType())
	assert.ErrorIs(t, err, domain.ErrConstraint)

	sub := &domain.TypeDefinition{ID: "acme:creditNote", ParentID: "acme:invoice", BaseType: domain.BaseTypeDocument, Creatable: true}
	_, err = m.Add(ctx, sub)
	require.NoError(t, err)
	assert.True(t, m.IsSubtype(ctx, "acme:creditNote", string(domain.BaseTypeDocument)))
	assert.True(t, m.IsSubtype(ctx, "acme:creditNote", "acme:invoice"))
	assert.False(t, m.IsSubtype(ctx, "acme:invoice", "acme:creditNote"))

	children, err := m.Children(ctx, "acme:invoice")
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, "acme:creditNote", children[0].ID)
}

// TestTypeManager_AddErrors tests rejected definitions.
func TestTypeManager_AddErrors(t *testing.T) {
	tests := []struct {
		name string
		def  *domain.TypeDefinition
		err  error
	}{
		{"no id", &domain.TypeDefinition{BaseType: domain.BaseTypeDocument}, domain.ErrInvalidArgument},
		{"bad base", &domain.TypeDefinition{ID: "x", BaseType: "cmis:item"}, domain.ErrInvalidArgument},
		{"base id", &domain.TypeDefinition{ID: "cmis:folder", BaseType: domain.BaseTypeFolder}, domain.ErrConstraint},
		{"unknown parent", &domain.TypeDefinition{ID: "x", ParentID: "nope", BaseType: domain.BaseTypeDocument}, domain.ErrTypeNotFound},
		{"cross base", &domain.TypeDefinition{ID: "x", ParentID: "cmis:folder", BaseType: domain.BaseTypeDocument}, domain.ErrConstraint},
		{"retyped property", &domain.TypeDefinition{ID: "x", BaseType: domain.BaseTypeDocument, Properties: []*domain.PropertyDefinition{{
			ID: domain.PropName, Type: domain.PropertyTypeInteger, Cardinality: domain.CardinalitySingle, Updatability: domain.UpdatabilityReadWrite,
		}}}, domain.ErrConstraint},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewTypeManager(memory.NewTypeStore())

			_, err := m.Add(context.Background(), tt.def)

			assert.ErrorIs(t, err, tt.err)
		})
	}
}

// TestTypeManager_Remove tests type removal rules.
func TestTypeManager_Remove(t *testing.T) {
	m := NewTypeManager(memory.NewTypeStore())
	ctx := context.Background()
	_, err := m.Add(ctx, invoiceType())
	require.NoError(t, err)
	_, err = m.Add(ctx, &domain.TypeDefinition{ID: "acme:sub", ParentID: "acme:invoice", BaseType: domain.BaseTypeDocument})
	require.NoError(t, err)

	assert.ErrorIs(t, m.Remove(ctx, string(domain.BaseTypeDocument)), domain.ErrConstraint)
	assert.ErrorIs(t, m.Remove(ctx, "acme:invoice"), domain.ErrConstraint)
	assert.ErrorIs(t, m.Remove(ctx, "acme:missing"), domain.ErrTypeNotFound)
	require.NoError(t, m.Remove(ctx, "acme:sub"))
	require.NoError(t, m.Remove(ctx, "acme:invoice"))

	_, err = m.Get(ctx, "acme:invoice")
	assert.ErrorIs(t, err, domain.ErrTypeNotFound)
}

// TestTypeManager_Load tests batch loading in any order.
func TestTypeManager_Load(t *testing.T) {
	m := NewTypeManager(memory.NewTypeStore())
	ctx := context.Background()
	defs := []*domain.TypeDefinition{
		{ID: "acme:c", ParentID: "acme:b", BaseType: domain.BaseTypeFolder},
		{ID: "acme:b", ParentID: "acme:a", BaseType: domain.BaseTypeFolder},
		{ID: "acme:a", BaseType: domain.BaseTypeFolder},
	}

	n, err := m.Load(ctx, defs)

	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.True(t, m.IsSubtype(ctx, "acme:c", string(domain.BaseTypeFolder)))
	assert.Empty(t, defs[2].ParentID)

	n, err = m.Load(ctx, []*domain.TypeDefinition{{ID: "acme:a", BaseType: domain.BaseTypeFolder, Description: "reloaded"}})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	def, err := m.Get(ctx, "acme:a")
	require.NoError(t, err)
	assert.Equal(t, "reloaded", def.Description)
}

// TestTypeManager_LoadErrors tests unresolvable batches.
func TestTypeManager_LoadErrors(t *testing.T) {
	m := NewTypeManager(memory.NewTypeStore())
	ctx := context.Background()

	_, err := m.Load(ctx, []*domain.TypeDefinition{{ID: "acme:orphan", ParentID: "acme:none", BaseType: domain.BaseTypeDocument}})
	assert.ErrorIs(t, err, domain.ErrTypeNotFound)

	_, err = m.Load(ctx, []*domain.TypeDefinition{{ID: "cmis:policy", BaseType: domain.BaseTypePolicy}})
	assert.ErrorIs(t, err, domain.ErrConstraint)
}

// TestStorage_RemoveTypeInUse tests a type with objects cannot be removed.
func TestStorage_RemoveTypeInUse(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	_, err := s.AddType(ctx, invoiceType())
	require.NoError(t, err)
	props := named("inv-1")
	props[domain.PropObjectTypeID] = domain.NewIDProperty(domain.PropObjectTypeID, "acme:invoice")
	props["acme:amount"] = domain.NewIntegerProperty("acme:amount", 42)
	doc, err := s.CreateDocument(ctx, domain.ObjectInput{ParentID: s.RootFolderID(), Properties: props})
	require.NoError(t, err)
	assert.Equal(t, int64(42), doc.Properties.Get("acme:amount").Int())

	assert.ErrorIs(t, s.RemoveType(ctx, "acme:invoice"), domain.ErrConstraint)
	require.NoError(t, s.DeleteObject(ctx, doc.ID, true))
	require.NoError(t, s.RemoveType(ctx, "acme:invoice"))
}
