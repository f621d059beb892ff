package domain

import "strings"

// BaseType is one of the four CMIS base object types.
type BaseType string

// CMIS base types.
const (
	BaseTypeDocument     BaseType = "cmis:document"
	BaseTypeFolder       BaseType = "cmis:folder"
	BaseTypePolicy       BaseType = "cmis:policy"
	BaseTypeRelationship BaseType = "cmis:relationship"
)

// IsValid returns true if the base type is recognised.
func (b BaseType) IsValid() bool {
	switch b {
	case BaseTypeDocument, BaseTypeFolder, BaseTypePolicy, BaseTypeRelationship:
		return true
	default:
		return false
	}
}

// IsFileable returns true if objects of this base type may be filed in folders.
func (b BaseType) IsFileable() bool {
	return b == BaseTypeDocument || b == BaseTypeFolder || b == BaseTypePolicy
}

// String returns the string representation.
func (b BaseType) String() string {
	return string(b)
}

// VersioningState selects the initial state of a newly created document.
type VersioningState string

// Versioning states accepted by CreateDocument.
const (
	VersioningStateNone       VersioningState = "none"
	VersioningStateMajor      VersioningState = "major"
	VersioningStateMinor      VersioningState = "minor"
	VersioningStateCheckedOut VersioningState = "checkedout"
)

// IsValid returns true if the versioning state is recognised.
func (v VersioningState) IsValid() bool {
	switch v {
	case VersioningStateNone, VersioningStateMajor, VersioningStateMinor, VersioningStateCheckedOut:
		return true
	default:
		return false
	}
}

// UnfileObject selects how DeleteTree treats fileable objects in the tree.
type UnfileObject string

// DeleteTree policies.
const (
	// UnfileDelete deletes every object filed in the tree, including the
	// other filings of multi-filed objects.
	UnfileDelete UnfileObject = "delete"

	// UnfileUnfile detaches objects from the tree instead of deleting them.
	UnfileUnfile UnfileObject = "unfile"

	// UnfileDeleteSingleFiled deletes objects that are only filed in the tree
	// and relocates the multi-filed ones.
	UnfileDeleteSingleFiled UnfileObject = "deletesinglefiled"
)

// ParseUnfileObject parses a DeleteTree policy, case-insensitively.
func ParseUnfileObject(s string) (UnfileObject, error) {
	switch u := UnfileObject(strings.ToLower(s)); u {
	case UnfileDelete, UnfileUnfile, UnfileDeleteSingleFiled:
		return u, nil
	case "":
		return UnfileDelete, nil
	default:
		return "", InvalidArgumentf("unknown unfileObjects value %q", s)
	}
}

// RelationshipDirection filters relationships by the role of the object.
type RelationshipDirection string

// Relationship directions.
const (
	RelationshipSource RelationshipDirection = "source"
	RelationshipTarget RelationshipDirection = "target"
	RelationshipEither RelationshipDirection = "either"
)

// ParseRelationshipDirection parses a direction value supplied by a caller.
// An empty value means source, as in the CMIS default.
func ParseRelationshipDirection(s string) (RelationshipDirection, error) {
	switch d := RelationshipDirection(strings.ToLower(s)); d {
	case RelationshipSource, RelationshipTarget, RelationshipEither:
		return d, nil
	case "":
		return RelationshipSource, nil
	default:
		return "", InvalidArgumentf("unknown relationship direction %q", s)
	}
}

// ContentStreamAllowed describes whether a document type carries content.
type ContentStreamAllowed string

// Content stream policies.
const (
	ContentStreamNotAllowed ContentStreamAllowed = "notallowed"
	ContentStreamAllowedOpt ContentStreamAllowed = "allowed"
	ContentStreamRequired   ContentStreamAllowed = "required"
)
