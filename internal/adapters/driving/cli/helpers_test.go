package cli

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/xcmis/internal/core/domain"
)

func TestParseValue(t *testing.T) {
	tests := []struct {
		name    string
		typ     domain.PropertyType
		raw     string
		want    any
		wantErr bool
	}{
		{"string", domain.PropertyTypeString, "hello", "hello", false},
		{"boolean", domain.PropertyTypeBoolean, "true", true, false},
		{"integer", domain.PropertyTypeInteger, "42", int64(42), false},
		{"decimal", domain.PropertyTypeDecimal, "1.5", 1.5, false},
		{"datetime", domain.PropertyTypeDateTime, "2024-03-01T10:00:00Z", time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), false},
		{"bad integer", domain.PropertyTypeInteger, "forty", nil, true},
		{"bad boolean", domain.PropertyTypeBoolean, "maybe", nil, true},
		{"bad datetime", domain.PropertyTypeDateTime, "yesterday", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseValue(tt.typ, tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "report.txt", truncate("report.txt", 0))
	assert.Equal(t, "report.txt", truncate("report.txt", 10))
	assert.Equal(t, "repo…", truncate("report.txt", 5))
	assert.Equal(t, "übe…", truncate("überschrift", 4))
}

func TestResolveID(t *testing.T) {
	a := setupTestServices(t)
	id := mustExecute(t, "mkdir", "/a")

	got, err := resolveID(t.Context(), a.Storage, "/a")
	require.NoError(t, err)
	assert.Equal(t, id, got)

	got, err = resolveID(t.Context(), a.Storage, id)
	require.NoError(t, err)
	assert.Equal(t, id, got)

	got, err = resolveID(t.Context(), a.Storage, "")
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = resolveID(t.Context(), a.Storage, "/missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
