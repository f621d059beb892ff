// Package typedefs loads custom object type definitions from YAML files and
// keeps a type manager in sync with the file while it changes on disk.
//
// A file holds one or more YAML documents, each with a top-level types list:
//
//	types:
//	  - id: acme:invoice
//	    base: cmis:document
//	    versionable: true
//	    properties:
//	      - id: acme:amount
//	        type: integer
package typedefs
