package cli

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchCmd_HasLimitFlag(t *testing.T) {
	flag := searchCmd.Flags().Lookup("limit")
	require.NotNil(t, flag, "limit flag should exist")
	assert.Equal(t, "n", flag.Shorthand)
	assert.Equal(t, "10", flag.DefValue)
}

func TestSearchCmd(t *testing.T) {
	setupTestServices(t)
	mustExecute(t, "mkdir", "/reports")
	mustExecute(t, "mkdir", "/archive")
	q3 := mustExecute(t, "put", writeFile(t, "q3.txt", "quarterly revenue grew"), "/reports")
	old := mustExecute(t, "put", writeFile(t, "q1.txt", "quarterly revenue fell"), "/archive")
	mustExecute(t, "put", writeFile(t, "memo.txt", "lunch menu"), "/reports")

	out := mustExecute(t, "search", "quarterly revenue")
	assert.Contains(t, out, q3)
	assert.Contains(t, out, old)
	assert.NotContains(t, out, "memo.txt")

	out = mustExecute(t, "search", "--folder", "/reports", "revenue")
	assert.Contains(t, out, q3)
	assert.NotContains(t, out, old)

	out = mustExecute(t, "search", "--limit", "1", "revenue")
	assert.Len(t, strings.Split(out, "\n"), 1)

	out = mustExecute(t, "search", "--term", "name=memo.txt")
	assert.Contains(t, out, "memo.txt")

	out = mustExecute(t, "search", "--json", "grew")
	assert.True(t, strings.HasPrefix(out, "["))
	assert.Contains(t, out, q3)

	assert.Equal(t, "No results found.", mustExecute(t, "search", "nonexistent"))

	_, err := execute(t, "search")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "needs text")

	_, err = execute(t, "search", "--term", "broken", "x")
	assert.Error(t, err)
}

func TestSearchCmd_TypeFilter(t *testing.T) {
	setupTestServices(t)
	mustExecute(t, "types", "add", writeFile(t, "types.yaml",
		"types:\n  - id: acme:report\n    base: cmis:document\n"))
	report := mustExecute(t, "put", "--type", "acme:report", writeFile(t, "r.txt", "budget"), "/")
	plain := mustExecute(t, "put", "--name", "p.txt", writeFile(t, "p.txt", "budget"), "/")

	out := mustExecute(t, "search", "--type", "acme:report", "budget")
	assert.Contains(t, out, report)
	assert.NotContains(t, out, plain)

	out = mustExecute(t, "search", "--type", "cmis:document", "budget")
	assert.Contains(t, out, report)
	assert.Contains(t, out, plain)
}
