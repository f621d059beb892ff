// Package app assembles a repository from its configuration: the node and
// type stores, the storage facade, the search index and the renditions.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/custodia-labs/xcmis/internal/adapters/driven/config/file"
	"github.com/custodia-labs/xcmis/internal/adapters/driven/index"
	"github.com/custodia-labs/xcmis/internal/adapters/driven/rendition"
	"github.com/custodia-labs/xcmis/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/xcmis/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/xcmis/internal/adapters/driven/typedefs"
	"github.com/custodia-labs/xcmis/internal/core/domain"
	"github.com/custodia-labs/xcmis/internal/core/ports/driven"
	"github.com/custodia-labs/xcmis/internal/core/services"
	"github.com/custodia-labs/xcmis/internal/logger"
)

// App is an opened repository.
type App struct {
	ConfigDir string
	Config    driven.ConfigStore
	Settings  *services.SettingsService
	Storage   *services.Storage
	Index     *index.Manager
	Types     *typedefs.Watcher

	closers []func() error
}

// Open reads the configuration in configDir and opens the repository it
// describes. An empty configDir selects ~/.xcmis.
func Open(ctx context.Context, configDir string) (*App, error) {
	if configDir == "" {
		dir, err := file.DefaultDir()
		if err != nil {
			return nil, err
		}
		configDir = dir
	}
	cfg, err := file.NewConfigStore(configDir)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return OpenWithConfig(ctx, configDir, cfg)
}

// OpenWithConfig opens the repository described by cfg. Relative paths in
// the settings are resolved against baseDir.
func OpenWithConfig(ctx context.Context, baseDir string, cfg driven.ConfigStore) (_ *App, err error) {
	a := &App{
		ConfigDir: baseDir,
		Config:    cfg,
		Settings:  services.NewSettingsService(cfg),
	}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	settings, err := a.Settings.Get()
	if err != nil {
		return nil, err
	}
	if err := a.Settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}

	logger.Section("Opening repository")
	logger.Debug("config %s (%d keys)", cfg.Path(), len(cfg.Keys()))
	nodes, typeStore, err := a.openStores(settings.Storage)
	if err != nil {
		return nil, err
	}

	types := services.NewTypeManager(typeStore)
	if settings.TypesFile != "" {
		a.Types = typedefs.NewWatcher(a.resolve(settings.TypesFile), types, 0)
		n, err := a.Types.Reload(ctx)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("loading types: %w", err)
		}
		logger.Debug("loaded %d custom types", n)
	}

	storage, err := services.NewStorage(ctx, nodes, types)
	if err != nil {
		return nil, err
	}
	storage.SetUser(settings.User)
	storage.SetRenditionManager(services.NewRenditionManager(
		rendition.NewTextPreview(settings.Rendition.PreviewLength, false),
	))
	a.Storage = storage

	if err := a.openIndex(ctx, settings.Index); err != nil {
		return nil, err
	}
	storage.SetIndexListener(index.NewListener(a.Index, index.DefaultMaxContent))
	storage.SetSearchEngine(a.Index)

	logger.Info("repository open (storage %s, index %s)", settings.Storage.Backend, settings.Index.Backend)
	return a, nil
}

func (a *App) openStores(s domain.StorageSettings) (driven.NodeStore, driven.TypeStore, error) {
	if s.Backend != domain.BackendSQLite {
		return memory.NewNodeStore(), memory.NewTypeStore(), nil
	}
	store, err := sqlite.NewStore(a.resolve(s.Path))
	if err != nil {
		return nil, nil, fmt.Errorf("opening repository database: %w", err)
	}
	a.closers = append(a.closers, store.Close)
	logger.Debug("repository database %s", store.Path())
	return store.NodeStore(), store.TypeStore(), nil
}

func (a *App) openIndex(ctx context.Context, s domain.IndexSettings) error {
	cfg := index.Config{
		MergeThreshold: s.MergeThreshold,
		FlushThreshold: s.FlushThreshold,
	}

	var (
		dir  index.Directory
		logs *index.FSIndexTransactionService
	)
	if s.Backend == domain.BackendSQLite {
		path := a.resolve(s.Path)
		sqlDir, err := index.NewSQLiteDirectory(path)
		if err != nil {
			return fmt.Errorf("opening index: %w", err)
		}
		dir = sqlDir
		if logs, err = index.NewFSIndexTransactionService(filepath.Join(path, "txlog")); err != nil {
			_ = sqlDir.Close()
			return err
		}
	} else {
		dir = index.NewMemoryDirectory()
	}

	m, err := index.NewManager(ctx, dir, logs, cfg)
	if err != nil {
		_ = dir.Close()
		return err
	}
	a.Index = m
	return nil
}

// resolve makes a relative settings path relative to the config directory.
func (a *App) resolve(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(a.ConfigDir, path)
}

// Close flushes the index and closes the stores.
func (a *App) Close() error {
	var errs []error
	if a.Index != nil {
		errs = append(errs, a.Index.Close())
		a.Index = nil
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}
