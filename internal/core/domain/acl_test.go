package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestACL_Merge tests adding and removing permissions
func TestACL_Merge(t *testing.T) {
	acl := ACL{{Principal: "alice", Permissions: []string{PermissionRead}}}

	merged := acl.Merge(
		ACL{{Principal: "alice", Permissions: []string{PermissionWrite}}, {Principal: "bob", Permissions: []string{PermissionRead}}},
		ACL{{Principal: "bob", Permissions: []string{PermissionRead}}, {Principal: "carol", Permissions: []string{PermissionAll}}},
	)

	assert.Len(t, merged, 1)
	assert.Equal(t, []string{PermissionRead, PermissionWrite}, merged.Permissions("alice"))
	assert.Nil(t, merged.Permissions("bob"))
	assert.Len(t, acl, 1, "receiver must not change")
}

// TestACL_EncodeDecode tests the stored form
func TestACL_EncodeDecode(t *testing.T) {
	acl := ACL{
		{Principal: "bob", Permissions: []string{PermissionWrite, PermissionRead}},
		{Principal: "alice", Permissions: []string{PermissionAll}},
	}

	encoded := acl.Encode()
	assert.Equal(t, []string{"alice::cmis:all", "bob::cmis:read", "bob::cmis:write"}, encoded)

	decoded := DecodeACL(append(encoded, "garbage", "::cmis:read"))
	assert.Equal(t, []string{PermissionAll}, decoded.Permissions("alice"))
	assert.Equal(t, []string{PermissionRead, PermissionWrite}, decoded.Permissions("bob"))
	assert.Len(t, decoded, 2)
}
