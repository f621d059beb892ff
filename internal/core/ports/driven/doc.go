// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - NodeStore: Content repository (nodes, references, version histories)
//   - TypeStore: Custom type definition persistence
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - IndexListener: Receives object changes after commit. Without it, nothing is indexed.
//   - SearchEngine: Serves Query. Without it, Query fails with domain.ErrNotSupported.
//   - RenditionProvider: Produces renditions. Without any, documents have no renditions.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
