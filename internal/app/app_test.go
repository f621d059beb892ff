package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/xcmis/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/xcmis/internal/core/domain"
)

func createDoc(t *testing.T, a *App, name, text string) *domain.CmisObject {
	t.Helper()
	doc, err := a.Storage.CreateDocument(context.Background(), domain.ObjectInput{
		ParentID: a.Storage.RootFolderID(),
		Properties: domain.Properties{
			domain.PropObjectTypeID: domain.NewIDProperty(domain.PropObjectTypeID, string(domain.BaseTypeDocument)),
			domain.PropName:         domain.NewStringProperty(domain.PropName, name),
		},
		Content: &domain.ContentStream{FileName: name, MimeType: "text/plain", Data: []byte(text)},
	})
	require.NoError(t, err)
	return doc
}

func TestOpen_MemoryDefaults(t *testing.T) {
	ctx := context.Background()
	a, err := Open(ctx, t.TempDir())
	require.NoError(t, err)
	defer a.Close()

	assert.Nil(t, a.Types)
	createDoc(t, a, "notes.txt", "quarterly numbers")

	hits, err := a.Storage.Query(ctx, domain.Query{Text: "quarterly"})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "notes.txt", hits[0].Name())

	renditions, err := a.Storage.GetRenditions(ctx, hits[0].ID)
	require.NoError(t, err)
	assert.NotEmpty(t, renditions)
}

func TestOpen_SQLitePersists(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	cfg := memory.NewConfigStore(map[string]any{
		domain.SettingStorageBackend: "sqlite",
		domain.SettingStoragePath:    "data",
		domain.SettingIndexBackend:   "sqlite",
		domain.SettingIndexPath:      "index",
	})

	a, err := OpenWithConfig(ctx, dir, cfg)
	require.NoError(t, err)
	doc := createDoc(t, a, "report.txt", "annual report")
	require.NoError(t, a.Close())
	require.NoError(t, a.Close())

	assert.FileExists(t, filepath.Join(dir, "data", "repository.db"))
	assert.FileExists(t, filepath.Join(dir, "index", "index.db"))

	b, err := OpenWithConfig(ctx, dir, cfg)
	require.NoError(t, err)
	defer b.Close()

	got, err := b.Storage.GetObjectByPath(ctx, "/report.txt")
	require.NoError(t, err)
	assert.Equal(t, doc.ID, got.ID)

	hits, err := b.Storage.Query(ctx, domain.Query{Text: "annual"})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, doc.ID, hits[0].ID)
}

func TestOpen_TypesFile(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	types := "types:\n  - id: acme:memo\n    base: cmis:document\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "types.yaml"), []byte(types), 0600))

	a, err := OpenWithConfig(ctx, dir, memory.NewConfigStore(map[string]any{
		domain.SettingTypesFile: "types.yaml",
	}))
	require.NoError(t, err)
	defer a.Close()

	require.NotNil(t, a.Types)
	def, err := a.Storage.GetTypeDefinition(ctx, "acme:memo")
	require.NoError(t, err)
	assert.Equal(t, domain.BaseTypeDocument, def.BaseType)
}

func TestOpen_MissingTypesFileIsIgnored(t *testing.T) {
	a, err := OpenWithConfig(context.Background(), t.TempDir(), memory.NewConfigStore(map[string]any{
		domain.SettingTypesFile: "types.yaml",
	}))
	require.NoError(t, err)
	assert.NoError(t, a.Close())
}

func TestOpen_Errors(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		values map[string]any
		files  map[string]string
	}{
		{
			name:   "sqlite without path",
			values: map[string]any{domain.SettingStorageBackend: "sqlite"},
		},
		{
			name:   "bad flush threshold",
			values: map[string]any{domain.SettingIndexFlushThreshold: -1},
		},
		{
			name:   "broken types file",
			values: map[string]any{domain.SettingTypesFile: "types.yaml"},
			files:  map[string]string{"types.yaml": "types: ["},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			for name, content := range tt.files {
				require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0600))
			}
			_, err := OpenWithConfig(ctx, dir, memory.NewConfigStore(tt.values))
			assert.Error(t, err)
		})
	}
}

func TestResolve(t *testing.T) {
	a := &App{ConfigDir: "/etc/xcmis"}

	assert.Equal(t, "", a.resolve(""))
	assert.Equal(t, "/var/data", a.resolve("/var/data"))
	assert.Equal(t, "/etc/xcmis/data", a.resolve("data"))
}
