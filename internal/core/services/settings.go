package services

import (
	"fmt"
	"path/filepath"

	"github.com/custodia-labs/xcmis/internal/core/domain"
	"github.com/custodia-labs/xcmis/internal/core/ports/driven"
	"github.com/custodia-labs/xcmis/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// SettingsService manages repository settings.
type SettingsService struct {
	configStore driven.ConfigStore
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{configStore: configStore}
}

// Get retrieves current repository settings. Missing or invalid values
// fall back to the defaults.
func (s *SettingsService) Get() (*domain.RepositorySettings, error) {
	defaults := domain.DefaultRepositorySettings()

	settings := &domain.RepositorySettings{
		Storage: domain.StorageSettings{
			Backend: s.getBackend(domain.SettingStorageBackend, defaults.Storage.Backend),
			Path:    s.configStore.GetString(domain.SettingStoragePath),
		},
		Index: domain.IndexSettings{
			Backend:        s.getBackend(domain.SettingIndexBackend, defaults.Index.Backend),
			Path:           s.configStore.GetString(domain.SettingIndexPath),
			MergeThreshold: s.getInt(domain.SettingIndexMergeThreshold, defaults.Index.MergeThreshold),
			FlushThreshold: s.getInt(domain.SettingIndexFlushThreshold, defaults.Index.FlushThreshold),
		},
		Rendition: domain.RenditionSettings{
			PreviewLength: s.getInt(domain.SettingRenditionPreviewLength, defaults.Rendition.PreviewLength),
		},
		TypesFile: s.configStore.GetString(domain.SettingTypesFile),
		User:      s.getString(domain.SettingRepositoryUser, defaults.User),
	}

	return settings, nil
}

// Save persists repository settings.
func (s *SettingsService) Save(settings *domain.RepositorySettings) error {
	values := []struct {
		key   string
		value any
	}{
		{domain.SettingStorageBackend, settings.Storage.Backend.String()},
		{domain.SettingStoragePath, settings.Storage.Path},
		{domain.SettingIndexBackend, settings.Index.Backend.String()},
		{domain.SettingIndexPath, settings.Index.Path},
		{domain.SettingIndexMergeThreshold, settings.Index.MergeThreshold},
		{domain.SettingIndexFlushThreshold, settings.Index.FlushThreshold},
		{domain.SettingRenditionPreviewLength, settings.Rendition.PreviewLength},
		{domain.SettingTypesFile, settings.TypesFile},
		{domain.SettingRepositoryUser, settings.User},
	}
	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}
	return nil
}

// SetStorageBackend selects the repository backend and its database file.
func (s *SettingsService) SetStorageBackend(backend domain.Backend, path string) error {
	if !backend.IsValid() {
		return fmt.Errorf("invalid storage backend: %s", backend)
	}
	if backend == domain.BackendSQLite && path == "" {
		return fmt.Errorf("storage backend %s requires a path", backend)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}
	settings.Storage.Backend = backend
	settings.Storage.Path = path
	return s.Save(settings)
}

// SetIndexBackend selects the index backend and its directory.
func (s *SettingsService) SetIndexBackend(backend domain.Backend, path string) error {
	if !backend.IsValid() {
		return fmt.Errorf("invalid index backend: %s", backend)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}
	settings.Index.Backend = backend
	settings.Index.Path = path
	return s.Save(settings)
}

// Validate checks the current settings.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	if settings.Storage.Backend == domain.BackendSQLite && settings.Storage.Path == "" {
		return fmt.Errorf("storage backend %q requires %s", settings.Storage.Backend.Description(), domain.SettingStoragePath)
	}
	if settings.Index.Backend == domain.BackendSQLite && settings.Index.Path == "" {
		return fmt.Errorf("index backend %q requires %s", settings.Index.Backend.Description(), domain.SettingIndexPath)
	}
	if settings.Index.MergeThreshold < 1 {
		return fmt.Errorf("%s must be positive", domain.SettingIndexMergeThreshold)
	}
	if settings.Index.FlushThreshold < 1 {
		return fmt.Errorf("%s must be positive", domain.SettingIndexFlushThreshold)
	}
	if settings.TypesFile != "" && filepath.Ext(settings.TypesFile) != ".yaml" && filepath.Ext(settings.TypesFile) != ".yml" {
		return fmt.Errorf("%s must be a YAML file", domain.SettingTypesFile)
	}

	return nil
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.RepositorySettings {
	return domain.DefaultRepositorySettings()
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val == 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getBackend(key string, defaultVal domain.Backend) domain.Backend {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	backend := domain.Backend(val)
	if !backend.IsValid() {
		return defaultVal
	}
	return backend
}
