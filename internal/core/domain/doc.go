// Package domain defines the core entities of the xcmis repository.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - TypeDefinition / PropertyDefinition: the CMIS type schema
//   - Property: a typed, possibly multi-valued property value
//   - CmisObject: a read-only snapshot of a repository object
//   - Node / NodeVersion: the content-repository primitives the core stores objects in
//   - ContentStream / Rendition: document content and its derived representations
//   - the CMIS error taxonomy (constraint, name constraint, versioning, ...)
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
