package cli

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/xcmis/internal/core/domain"
)

func TestPolicyCommands(t *testing.T) {
	a := setupTestServices(t)
	ctx := context.Background()
	mustExecute(t, "mkdir", "/policies")
	policyID := mustExecute(t, "policy", "create", "--text", "retain 7 years", "--folder", "/policies", "retention")
	docID := mustExecute(t, "put", writeFile(t, "contract.txt", "terms"), "/")

	policy, err := a.Storage.GetObject(ctx, policyID)
	require.NoError(t, err)
	assert.Equal(t, "retain 7 years", policy.Properties.Get(domain.PropPolicyText).String())

	mustExecute(t, "policy", "apply", "/policies/retention", docID)
	out := mustExecute(t, "policy", "list", "/contract.txt")
	assert.Contains(t, out, "retention")
	assert.Contains(t, mustExecute(t, "get", docID), policyID)

	mustExecute(t, "policy", "remove", policyID, docID)
	assert.Empty(t, mustExecute(t, "policy", "list", docID))
}

func TestRelationshipCommands(t *testing.T) {
	setupTestServices(t)
	src := mustExecute(t, "put", writeFile(t, "design.txt", "s"), "/")
	dst := mustExecute(t, "put", writeFile(t, "impl.txt", "i"), "/")

	relID := mustExecute(t, "relate", "/design.txt", "/impl.txt")
	assert.NotEmpty(t, relID)

	out := mustExecute(t, "relations", src)
	assert.Contains(t, out, relID)
	assert.Contains(t, out, src+" -> "+dst)

	assert.Empty(t, mustExecute(t, "relations", dst))
	assert.Contains(t, mustExecute(t, "relations", "--direction", "target", dst), relID)
	assert.Contains(t, mustExecute(t, "relations", "--direction", "either", dst), relID)

	_, err := execute(t, "relations", "--direction", "sideways", src)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestACLCommands(t *testing.T) {
	setupTestServices(t)
	id := mustExecute(t, "put", writeFile(t, "secret.txt", "s"), "/")

	out := mustExecute(t, "acl", "grant", id, "alice", domain.PermissionRead, domain.PermissionWrite)
	assert.Contains(t, out, "alice")
	assert.Contains(t, out, domain.PermissionWrite)

	out = mustExecute(t, "acl", "revoke", "/secret.txt", "alice", domain.PermissionWrite)
	assert.Contains(t, out, domain.PermissionRead)
	assert.NotContains(t, out, domain.PermissionWrite)

	assert.Contains(t, mustExecute(t, "acl", id), "alice")
}
