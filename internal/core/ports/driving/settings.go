package driving

import "github.com/custodia-labs/xcmis/internal/core/domain"

// SettingsService manages repository settings.
type SettingsService interface {
	// Get retrieves current repository settings.
	Get() (*domain.RepositorySettings, error)

	// Save persists repository settings.
	Save(settings *domain.RepositorySettings) error

	// SetStorageBackend selects the repository backend and its database file.
	SetStorageBackend(backend domain.Backend, path string) error

	// SetIndexBackend selects the index backend and its directory.
	SetIndexBackend(backend domain.Backend, path string) error

	// Validate checks the current settings.
	Validate() error

	// GetDefaults returns default settings.
	GetDefaults() domain.RepositorySettings
}
