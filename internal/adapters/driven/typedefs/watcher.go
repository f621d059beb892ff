package typedefs

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/xcmis/internal/core/domain"
	"github.com/custodia-labs/xcmis/internal/logger"
)

// DefaultDebounce is how long the watcher waits for writes to settle.
const DefaultDebounce = 100 * time.Millisecond

// TypeLoader registers a batch of type definitions.
type TypeLoader interface {
	Load(ctx context.Context, defs []*domain.TypeDefinition) (int, error)
}

// Result describes one reload.
type Result struct {
	Loaded int
	Err    error
}

// Watcher reloads a types file into a TypeLoader whenever the file changes.
// The parent directory is watched so editors that replace the file by rename
// are picked up.
type Watcher struct {
	path     string
	loader   TypeLoader
	debounce time.Duration

	mu       sync.Mutex
	onReload func(Result)
}

// NewWatcher creates a watcher for path. A debounce of zero selects
// DefaultDebounce.
func NewWatcher(path string, loader TypeLoader, debounce time.Duration) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		path:     filepath.Clean(path),
		loader:   loader,
		debounce: debounce,
	}
}

// OnReload registers a callback invoked after every reload triggered by a
// file event.
func (w *Watcher) OnReload(fn func(Result)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onReload = fn
}

// Reload reads the file and loads its types.
func (w *Watcher) Reload(ctx context.Context) (int, error) {
	defs, err := LoadFile(w.path)
	if err != nil {
		return 0, err
	}
	n, err := w.loader.Load(ctx, defs)
	if err != nil {
		return n, fmt.Errorf("%s: %w", w.path, err)
	}
	return n, nil
}

// Run watches the file until ctx is cancelled. It returns nil on
// cancellation and an error if the watcher cannot be set up.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(w.path), err)
	}
	logger.Debug("watching type definitions in %s", w.path)

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				logger.Debug("type definitions file %s went away", w.path)
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				timer.Reset(w.debounce)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("type definitions watcher: %v", err)

		case <-timer.C:
			w.reload(ctx)
		}
	}
}

func (w *Watcher) reload(ctx context.Context) {
	n, err := w.Reload(ctx)
	if err != nil {
		logger.Error(err, "reloading type definitions")
	} else {
		logger.Info("loaded %d type definitions from %s", n, w.path)
	}

	w.mu.Lock()
	fn := w.onReload
	w.mu.Unlock()
	if fn != nil {
		fn(Result{Loaded: n, Err: err})
	}
}
