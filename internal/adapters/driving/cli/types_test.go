package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/xcmis/internal/adapters/driven/typedefs"
	"github.com/custodia-labs/xcmis/internal/core/domain"
)

const memoTypes = `
types:
  - id: acme:memo
    base: cmis:document
    displayName: Memo
    properties:
      - id: acme:audience
        type: string
`

func TestTypesCommands(t *testing.T) {
	setupTestServices(t)

	out := mustExecute(t, "types", "list")
	assert.Contains(t, out, string(domain.BaseTypeDocument))
	assert.Contains(t, out, string(domain.BaseTypeFolder))

	assert.Equal(t, "acme:memo", mustExecute(t, "types", "add", writeFile(t, "types.yaml", memoTypes)))
	_, err := execute(t, "types", "add", writeFile(t, "types.yaml", memoTypes))
	assert.ErrorIs(t, err, domain.ErrConstraint)

	out = mustExecute(t, "types", "list", string(domain.BaseTypeDocument))
	assert.Contains(t, out, "acme:memo")
	assert.Contains(t, out, "Memo")

	out = mustExecute(t, "types", "show", "acme:memo")
	assert.Contains(t, out, "acme:audience")
	assert.Contains(t, out, "inherited")

	out = mustExecute(t, "types", "show", "--json", "acme:memo")
	assert.Contains(t, out, `"id": "acme:memo"`)

	dest := filepath.Join(t.TempDir(), "export.yaml")
	mustExecute(t, "types", "export", "-o", dest, "acme:memo")
	defs, err := typedefs.LoadFile(dest)
	require.NoError(t, err)
	require.Len(t, defs, 1)
	assert.Equal(t, "acme:memo", defs[0].ID)

	_, err = execute(t, "types", "export", string(domain.BaseTypeFolder))
	assert.Error(t, err)

	mustExecute(t, "types", "rm", "acme:memo")
	_, err = execute(t, "types", "show", "acme:memo")
	assert.ErrorIs(t, err, domain.ErrTypeNotFound)

	_, err = execute(t, "types", "watch")
	require.Error(t, err)
	assert.Contains(t, err.Error(), domain.SettingTypesFile)

	_, err = execute(t, "types", "add", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
