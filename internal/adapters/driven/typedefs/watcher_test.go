package typedefs

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/xcmis/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/xcmis/internal/core/services"
)

func TestWatcher_Reload(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "types.yaml")
	require.NoError(t, os.WriteFile(path, []byte(invoiceYAML), 0600))

	tm := services.NewTypeManager(memory.NewTypeStore())
	w := NewWatcher(path, tm, 0)
	assert.Equal(t, DefaultDebounce, w.debounce)

	n, err := w.Reload(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	require.NoError(t, os.WriteFile(path, []byte("types:\n  - id: bad:x\n    base: cmis:nothing\n"), 0600))
	_, err = w.Reload(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), path)
}

func TestWatcher_Run(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "types.yaml")
	require.NoError(t, os.WriteFile(path, []byte("types: []\n"), 0600))

	tm := services.NewTypeManager(memory.NewTypeStore())
	w := NewWatcher(path, tm, 20*time.Millisecond)
	results := make(chan Result, 8)
	w.OnReload(func(r Result) { results <- r })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Writes to other files in the directory are ignored; the
	// types file is rewritten until the watcher has registered.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("x"), 0600))

	var got Result
	require.Eventually(t, func() bool {
		select {
		case got = <-results:
			return got.Loaded == 3
		default:
			_ = os.WriteFile(path, []byte(invoiceYAML), 0600)
			return false
		}
	}, 5*time.Second, 50*time.Millisecond)
	require.NoError(t, got.Err)

	def, err := tm.Get(context.Background(), "acme:invoice")
	require.NoError(t, err)
	assert.True(t, def.Versionable)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestWatcher_RunMissingDirectory(t *testing.T) {
	tm := services.NewTypeManager(memory.NewTypeStore())
	w := NewWatcher(filepath.Join(t.TempDir(), "gone", "types.yaml"), tm, 0)

	err := w.Run(context.Background())
	assert.Error(t, err)
}
