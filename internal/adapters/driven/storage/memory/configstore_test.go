package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/xcmis/internal/core/domain"
)

func TestConfigStore_Seeded(t *testing.T) {
	store := NewConfigStore(map[string]any{
		domain.SettingStorageBackend:      "sqlite",
		domain.SettingIndexMergeThreshold: int64(4),
	})

	assert.Equal(t, "sqlite", store.GetString(domain.SettingStorageBackend))
	assert.Equal(t, 4, store.GetInt(domain.SettingIndexMergeThreshold))
	assert.Equal(t, []string{domain.SettingIndexMergeThreshold, domain.SettingStorageBackend}, store.Keys())
	assert.Equal(t, ":memory:", store.Path())
	assert.NoError(t, store.Save())
	assert.NoError(t, store.Load())
}

func TestConfigStore_TypedAccessors(t *testing.T) {
	store := NewConfigStore()
	require.NoError(t, store.Set("s", "text"))
	require.NoError(t, store.Set("i", 3))
	require.NoError(t, store.Set("f", float64(7)))
	require.NoError(t, store.Set("b", true))
	require.NoError(t, store.Set("si", " 12 "))
	require.NoError(t, store.Set("sb", "true"))
	require.NoError(t, store.Set("list", []string{"a", "b"}))
	require.NoError(t, store.Set("anys", []any{"a", 2, "c"}))

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"string", store.GetString("s"), "text"},
		{"string mismatch", store.GetString("i"), ""},
		{"int", store.GetInt("i"), 3},
		{"float as int", store.GetInt("f"), 7},
		{"int mismatch", store.GetInt("s"), 0},
		{"numeric string", store.GetInt("si"), 12},
		{"bool", store.GetBool("b"), true},
		{"bool missing", store.GetBool("missing"), false},
		{"bool string", store.GetBool("sb"), true},
		{"bool bad string", store.GetBool("s"), false},
		{"slice", store.GetStringSlice("list"), []string{"a", "b"}},
		{"any slice", store.GetStringSlice("anys"), []string{"a", "c"}},
		{"slice missing", store.GetStringSlice("missing"), []string(nil)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got)
		})
	}
}

func TestConfigStore_SliceIsCopied(t *testing.T) {
	store := NewConfigStore()
	require.NoError(t, store.Set("list", []string{"a"}))

	got := store.GetStringSlice("list")
	got[0] = "changed"

	assert.Equal(t, []string{"a"}, store.GetStringSlice("list"))
}

func TestConfigStore_InvalidKeys(t *testing.T) {
	store := NewConfigStore()
	for _, key := range []string{"", ".index", "index."} {
		assert.Error(t, store.Set(key, 1), key)
	}
	assert.Empty(t, store.Keys())
}
