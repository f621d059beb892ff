package domain

import (
	"sort"
	"strings"
)

// Basic CMIS permissions.
const (
	PermissionRead  = "cmis:read"
	PermissionWrite = "cmis:write"
	PermissionAll   = "cmis:all"
)

// aclSeparator joins a principal and a permission in the stored form.
const aclSeparator = "::"

// AccessControlEntry grants a set of permissions to a principal.
type AccessControlEntry struct {
	Principal   string   `json:"principal"`
	Permissions []string `json:"permissions"`
	Direct      bool     `json:"direct"`
}

// ACL is an access control list. Entries are kept one per principal.
type ACL []AccessControlEntry

// Permissions returns the permissions granted to principal.
func (a ACL) Permissions(principal string) []string {
	for _, e := range a {
		if e.Principal == principal {
			return e.Permissions
		}
	}
	return nil
}

// Merge returns a new ACL with add granted and then remove revoked.
// Principals left with no permissions are dropped.
func (a ACL) Merge(add, remove ACL) ACL {
	perms := a.toMap()
	for _, e := range add {
		set, ok := perms[e.Principal]
		if !ok {
			set = make(map[string]bool)
			perms[e.Principal] = set
		}
		for _, p := range e.Permissions {
			set[p] = true
		}
	}
	for _, e := range remove {
		set, ok := perms[e.Principal]
		if !ok {
			continue
		}
		for _, p := range e.Permissions {
			delete(set, p)
		}
	}
	return fromMap(perms)
}

// Encode returns the stored form of the ACL, one "principal::permission"
// value per grant, sorted.
func (a ACL) Encode() []string {
	var out []string
	for _, e := range a {
		for _, p := range e.Permissions {
			out = append(out, e.Principal+aclSeparator+p)
		}
	}
	sort.Strings(out)
	return out
}

// DecodeACL parses the stored form produced by Encode.
func DecodeACL(values []string) ACL {
	perms := make(map[string]map[string]bool)
	for _, v := range values {
		principal, perm, ok := strings.Cut(v, aclSeparator)
		if !ok || principal == "" || perm == "" {
			continue
		}
		set, ok := perms[principal]
		if !ok {
			set = make(map[string]bool)
			perms[principal] = set
		}
		set[perm] = true
	}
	return fromMap(perms)
}

func (a ACL) toMap() map[string]map[string]bool {
	perms := make(map[string]map[string]bool, len(a))
	for _, e := range a {
		set, ok := perms[e.Principal]
		if !ok {
			set = make(map[string]bool)
			perms[e.Principal] = set
		}
		for _, p := range e.Permissions {
			set[p] = true
		}
	}
	return perms
}

func fromMap(perms map[string]map[string]bool) ACL {
	principals := make([]string, 0, len(perms))
	for p, set := range perms {
		if len(set) > 0 {
			principals = append(principals, p)
		}
	}
	sort.Strings(principals)

	acl := make(ACL, 0, len(principals))
	for _, principal := range principals {
		ps := make([]string, 0, len(perms[principal]))
		for p := range perms[principal] {
			ps = append(ps, p)
		}
		sort.Strings(ps)
		acl = append(acl, AccessControlEntry{Principal: principal, Permissions: ps, Direct: true})
	}
	return acl
}
