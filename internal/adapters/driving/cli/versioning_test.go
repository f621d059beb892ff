package cli

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/xcmis/internal/core/domain"
)

func TestCheckoutCheckin(t *testing.T) {
	a := setupTestServices(t)
	ctx := context.Background()
	id := mustExecute(t, "put", writeFile(t, "plan.txt", "v1"), "/")

	pwcID := mustExecute(t, "checkout", "/plan.txt")
	assert.NotEqual(t, id, pwcID)

	out := mustExecute(t, "checkedout")
	assert.Contains(t, out, pwcID)

	_, err := execute(t, "checkout", id)
	assert.ErrorIs(t, err, domain.ErrVersioning)

	out = mustExecute(t, "checkin", "-m", "second draft", "-f", writeFile(t, "plan.txt", "v2"), pwcID)
	assert.Equal(t, id+" 2.0", out)

	cs, err := a.Storage.GetContentStream(ctx, id, "")
	require.NoError(t, err)
	assert.Equal(t, "v2", string(cs.Data))

	out = mustExecute(t, "versions", "/plan.txt")
	lines := strings.Split(out, "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "2.0 (latest)"))
	assert.Contains(t, lines[0], "second draft")
	assert.True(t, strings.HasPrefix(lines[1], "1.0"))

	assert.Empty(t, mustExecute(t, "checkedout"))
}

func TestCheckinMinorWithProperties(t *testing.T) {
	a := setupTestServices(t)
	ctx := context.Background()
	id := mustExecute(t, "put", writeFile(t, "memo.txt", "v1"), "/")
	pwcID := mustExecute(t, "checkout", id)

	out := mustExecute(t, "checkin", "--major=false", "--prop", "cmis:name=memo-final.txt", pwcID)
	assert.Equal(t, id+" 1.1", out)

	doc, err := a.Storage.GetObject(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "memo-final.txt", doc.Name())
}

func TestCancelCheckout(t *testing.T) {
	a := setupTestServices(t)
	ctx := context.Background()
	id := mustExecute(t, "put", writeFile(t, "draft.txt", "v1"), "/")
	pwcID := mustExecute(t, "checkout", id)

	out := mustExecute(t, "versions", id)
	assert.True(t, strings.HasPrefix(out, "pwc"))

	mustExecute(t, "cancel", pwcID)
	_, err := a.Storage.GetObject(ctx, pwcID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	doc, err := a.Storage.GetObject(ctx, id)
	require.NoError(t, err)
	assert.False(t, doc.IsCheckedOut())

	_, err = execute(t, "cancel", id)
	assert.ErrorIs(t, err, domain.ErrVersioning)
}

func TestVersions_NotVersionable(t *testing.T) {
	setupTestServices(t)
	mustExecute(t, "mkdir", "/folder")

	_, err := execute(t, "versions", "/folder")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not versionable")
}
