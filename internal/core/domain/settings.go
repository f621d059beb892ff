package domain

// Config keys for repository settings.
const (
	SettingStorageBackend         = "storage.backend"
	SettingStoragePath            = "storage.path"
	SettingIndexBackend           = "index.backend"
	SettingIndexPath              = "index.path"
	SettingIndexMergeThreshold    = "index.merge_threshold"
	SettingIndexFlushThreshold    = "index.flush_threshold"
	SettingRenditionPreviewLength = "rendition.preview_length"
	SettingTypesFile              = "types.file"
	SettingRepositoryUser         = "repository.user"
)

// Backend selects the persistence of the repository or the index.
type Backend string

// Available backends.
const (
	// BackendMemory keeps everything in memory.
	BackendMemory Backend = "memory"

	// BackendSQLite persists to a SQLite database file.
	BackendSQLite Backend = "sqlite"
)

// IsValid returns true if the backend is recognised.
func (b Backend) IsValid() bool {
	return b == BackendMemory || b == BackendSQLite
}

// String returns the string representation.
func (b Backend) String() string {
	return string(b)
}

// Description returns a human-readable description of the backend.
func (b Backend) Description() string {
	switch b {
	case BackendMemory:
		return "Memory (lost on exit)"
	case BackendSQLite:
		return "SQLite (file)"
	default:
		return "Unknown"
	}
}

// StorageSettings configures the content repository.
type StorageSettings struct {
	Backend Backend

	// Path is the directory holding the SQLite database.
	Path string
}

// IndexSettings configures the search index.
type IndexSettings struct {
	Backend Backend

	// Path is the index directory; transaction logs live under it.
	Path string

	// MergeThreshold is the number of in-memory keepers that triggers a merge.
	MergeThreshold int

	// FlushThreshold is the number of in-memory documents that triggers a
	// flush to the durable directory.
	FlushThreshold int
}

// RenditionSettings configures the built-in rendition providers.
type RenditionSettings struct {
	// PreviewLength is the number of characters of a text preview.
	PreviewLength int
}

// RepositorySettings holds all repository settings.
type RepositorySettings struct {
	Storage   StorageSettings
	Index     IndexSettings
	Rendition RenditionSettings

	// TypesFile is a YAML file of custom type definitions. Optional.
	TypesFile string

	// User is recorded as cmis:createdBy and cmis:lastModifiedBy.
	User string
}

// DefaultRepositorySettings returns settings with sensible defaults.
func DefaultRepositorySettings() RepositorySettings {
	return RepositorySettings{
		Storage: StorageSettings{Backend: BackendMemory},
		Index: IndexSettings{
			Backend:        BackendMemory,
			MergeThreshold: 4,
			FlushThreshold: 1000,
		},
		Rendition: RenditionSettings{PreviewLength: 256},
		User:      "system",
	}
}

// AllBackends returns all available backends.
func AllBackends() []Backend {
	return []Backend{BackendMemory, BackendSQLite}
}
