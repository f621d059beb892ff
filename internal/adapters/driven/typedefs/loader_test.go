package typedefs

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/xcmis/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/xcmis/internal/core/domain"
	"github.com/custodia-labs/xcmis/internal/core/services"
)

const invoiceYAML = `
types:
  - id: acme:invoice
    base: cmis:document
    displayName: Invoice
    versionable: true
    properties:
      - id: acme:amount
        type: integer
      - id: acme:tags
        type: string
        cardinality: multi
        updatability: oncreate
  - id: acme:link
    base: cmis:relationship
    creatable: false
---
types:
  - id: acme:credit-note
    parent: acme:invoice
    base: cmis:document
    queryable: false
`

func TestDecode(t *testing.T) {
	defs, err := Decode(strings.NewReader(invoiceYAML))
	require.NoError(t, err)
	require.Len(t, defs, 3)

	invoice := defs[0]
	assert.Equal(t, "acme:invoice", invoice.ID)
	assert.Equal(t, domain.BaseTypeDocument, invoice.BaseType)
	assert.Equal(t, "Invoice", invoice.DisplayName)
	assert.True(t, invoice.Versionable)
	assert.True(t, invoice.Creatable)
	assert.True(t, invoice.Fileable)
	assert.True(t, invoice.Queryable)
	require.Len(t, invoice.Properties, 2)
	assert.Equal(t, domain.PropertyTypeInteger, invoice.Properties[0].Type)
	assert.Equal(t, domain.CardinalitySingle, invoice.Properties[0].Cardinality)
	assert.Equal(t, domain.UpdatabilityReadWrite, invoice.Properties[0].Updatability)
	assert.Equal(t, domain.CardinalityMulti, invoice.Properties[1].Cardinality)
	assert.Equal(t, domain.UpdatabilityOnCreate, invoice.Properties[1].Updatability)

	link := defs[1]
	assert.False(t, link.Creatable)
	assert.False(t, link.Fileable)

	credit := defs[2]
	assert.Equal(t, "acme:invoice", credit.ParentID)
	assert.False(t, credit.Queryable)
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"not yaml", "types: [", "decode type definitions"},
		{"wrong shape", "types: 12", "decode type definitions"},
		{"missing id", "types:\n  - base: cmis:folder\n", "line 2: type id is required"},
		{"duplicate", "types:\n  - id: a:x\n    base: cmis:folder\n---\ntypes:\n  - id: a:x\n    base: cmis:folder\n", "already declared on line 2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrInvalidArgument)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestDecode_Empty(t *testing.T) {
	defs, err := Decode(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, defs)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "types.yaml")
	require.NoError(t, os.WriteFile(path, []byte(invoiceYAML), 0600))

	defs, err := LoadFile(path)
	require.NoError(t, err)
	assert.Len(t, defs, 3)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	require.NoError(t, os.WriteFile(path, []byte("types: ["), 0600))
	_, err = LoadFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), path)
}

func TestEncode_RoundTripThroughTypeManager(t *testing.T) {
	ctx := context.Background()
	defs, err := Decode(strings.NewReader(invoiceYAML))
	require.NoError(t, err)

	tm := services.NewTypeManager(memory.NewTypeStore())
	n, err := tm.Load(ctx, defs)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	credit, err := tm.Get(ctx, "acme:credit-note")
	require.NoError(t, err)
	require.NotNil(t, credit.PropertyDefinition("acme:amount"))
	assert.True(t, credit.PropertyDefinition("acme:amount").Inherited)

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, []*domain.TypeDefinition{credit}))
	assert.NotContains(t, buf.String(), "acme:amount", "inherited properties are not written")

	invoice, err := tm.Get(ctx, "acme:invoice")
	require.NoError(t, err)
	buf.Reset()
	require.NoError(t, Encode(&buf, []*domain.TypeDefinition{invoice}))

	again, err := Decode(&buf)
	require.NoError(t, err)
	require.Len(t, again, 1)
	assert.Equal(t, "acme:invoice", again[0].ID)
	assert.True(t, again[0].Versionable)

	var ids []string
	for _, p := range again[0].Properties {
		ids = append(ids, p.ID)
	}
	assert.Contains(t, ids, "acme:amount")
	assert.Contains(t, ids, "acme:tags")
	assert.NotContains(t, ids, domain.PropName)
}
