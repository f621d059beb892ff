package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestQuery_IsEmpty tests detection of queries without criteria
func TestQuery_IsEmpty(t *testing.T) {
	tests := []struct {
		name     string
		query    Query
		expected bool
	}{
		{name: "zero value", query: Query{}, expected: true},
		{name: "limit only", query: Query{Limit: 10}, expected: true},
		{name: "text", query: Query{Text: "report"}, expected: false},
		{name: "type", query: Query{TypeID: "cmis:document"}, expected: false},
		{name: "folder", query: Query{FolderID: "f1"}, expected: false},
		{name: "terms", query: Query{Terms: map[string]string{"cmis:name": "a"}}, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.query.IsEmpty())
		})
	}
}
