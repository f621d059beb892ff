// Package file provides the file-backed configuration store for an xcmis
// repository. Settings live in a TOML file whose sections map onto the
// dotted keys used by the settings service, e.g. [index] merge_threshold.
package file
