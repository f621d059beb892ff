package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexCommands(t *testing.T) {
	setupTestServices(t)
	mustExecute(t, "put", writeFile(t, "a.txt", "alpha"), "/")
	mustExecute(t, "put", writeFile(t, "b.txt", "beta"), "/")

	out := mustExecute(t, "index", "status")
	assert.Contains(t, out, "Index Status")
	assert.Contains(t, out, "Durable:     0")

	assert.Equal(t, "Index flushed.", mustExecute(t, "index", "flush"))

	out = mustExecute(t, "index", "status")
	assert.Contains(t, out, "Buffered:    0 in 0 keepers")
	assert.NotContains(t, out, "Durable:     0")
}

func TestIndexCommands_NotConfigured(t *testing.T) {
	setupTestServices(t)
	services.Index = nil

	_, err := execute(t, "index", "status")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")
}
