// Package services implements the driving port interfaces.
//
// Storage is the CMIS facade: it maps documents, folders, policies and
// relationships onto the nodes of a driven.NodeStore, runs the document
// versioning state machine and the multi-filing model, and reports committed
// changes to the search index listener.
//
// Services depend only on ports and domain, never on adapters.
package services
