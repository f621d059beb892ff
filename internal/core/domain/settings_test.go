package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestBackend_IsValid tests valid and invalid backends
func TestBackend_IsValid(t *testing.T) {
	tests := []struct {
		name     string
		backend  Backend
		expected bool
	}{
		{name: "memory is valid", backend: BackendMemory, expected: true},
		{name: "sqlite is valid", backend: BackendSQLite, expected: true},
		{name: "empty string is invalid", backend: Backend(""), expected: false},
		{name: "unknown backend is invalid", backend: Backend("postgres"), expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.backend.IsValid())
		})
	}
}

// TestBackend_Description tests human-readable descriptions
func TestBackend_Description(t *testing.T) {
	assert.Equal(t, "Memory (lost on exit)", BackendMemory.Description())
	assert.Equal(t, "SQLite (file)", BackendSQLite.Description())
	assert.Equal(t, "Unknown", Backend("other").Description())
}

// TestDefaultRepositorySettings tests the default values
func TestDefaultRepositorySettings(t *testing.T) {
	s := DefaultRepositorySettings()

	assert.Equal(t, BackendMemory, s.Storage.Backend)
	assert.Equal(t, BackendMemory, s.Index.Backend)
	assert.Equal(t, 4, s.Index.MergeThreshold)
	assert.Equal(t, 1000, s.Index.FlushThreshold)
	assert.Equal(t, 256, s.Rendition.PreviewLength)
	assert.Equal(t, "system", s.User)
	assert.Empty(t, s.TypesFile)
}

// TestAllBackends tests the backend list
func TestAllBackends(t *testing.T) {
	backends := AllBackends()
	assert.Len(t, backends, 2)
	for _, b := range backends {
		assert.True(t, b.IsValid())
	}
}
