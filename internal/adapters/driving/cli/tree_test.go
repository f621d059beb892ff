package cli

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/xcmis/internal/core/domain"
)

func TestLsAndTree(t *testing.T) {
	setupTestServices(t)
	mustExecute(t, "mkdir", "-p", "/site/docs")
	mustExecute(t, "put", writeFile(t, "index.html", "<html></html>"), "/site")
	mustExecute(t, "put", writeFile(t, "guide.txt", "guide"), "/site/docs")

	out := mustExecute(t, "ls", "/site")
	assert.Contains(t, out, "docs/")
	assert.Contains(t, out, "index.html")
	assert.Contains(t, out, "cmis:document")

	out = mustExecute(t, "ls", "--json", "/site")
	assert.True(t, strings.HasPrefix(out, "["))

	out = mustExecute(t, "tree", "/site")
	assert.Equal(t, "/site\n├── docs/\n│   └── guide.txt\n└── index.html", out)

	out = mustExecute(t, "tree", "--depth", "1", "/site")
	assert.NotContains(t, out, "guide.txt")

	out = mustExecute(t, "tree", "--folders")
	assert.Contains(t, out, "site/")
	assert.NotContains(t, out, "index.html")
}

func TestRmtree(t *testing.T) {
	a := setupTestServices(t)
	ctx := context.Background()
	mustExecute(t, "mkdir", "-p", "/old/sub")
	keep := mustExecute(t, "put", writeFile(t, "keep.txt", "x"), "/old/sub")
	mustExecute(t, "mkdir", "/elsewhere")
	mustExecute(t, "link", keep, "/elsewhere")

	_, err := execute(t, "rmtree", "/old")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--yes")

	_, err = execute(t, "rmtree", "--yes", "--unfile", "shred", "/old")
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = execute(t, "rmtree", "--yes", "/")
	assert.ErrorIs(t, err, domain.ErrConstraint)

	mustExecute(t, "rmtree", "--yes", "--unfile", "deletesinglefiled", "/old")
	_, err = a.Storage.GetObjectByPath(ctx, "/old")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = a.Storage.GetObjectByPath(ctx, "/elsewhere/keep.txt")
	assert.NoError(t, err, "multi-filed documents survive")
}
