package index

import (
	"sort"
	"strings"
	"unicode"
)

// Field names of indexed documents.
const (
	FieldID     = "id"
	FieldType   = "type"
	FieldBase   = "base"
	FieldName   = "name"
	FieldParent = "parent"
	FieldText   = "text"
)

// Document is the indexed form of an object: a set of multi-valued fields.
// The text field holds the terms used for full-text matching.
type Document struct {
	ID     string              `json:"id"`
	Fields map[string][]string `json:"fields"`
}

// NewDocument creates a document carrying only its id field.
func NewDocument(id string) *Document {
	return &Document{ID: id, Fields: map[string][]string{FieldID: {id}}}
}

// Add appends values to a field. Empty values are skipped.
func (d *Document) Add(field string, values ...string) {
	for _, v := range values {
		if v != "" {
			d.Fields[field] = append(d.Fields[field], v)
		}
	}
}

// AddText tokenizes text into the full-text field.
func (d *Document) AddText(text string) {
	d.Fields[FieldText] = append(d.Fields[FieldText], Tokenize(text)...)
}

// Get returns the values of a field.
func (d *Document) Get(field string) []string {
	return d.Fields[field]
}

// Has reports whether a field holds value.
func (d *Document) Has(field, value string) bool {
	for _, v := range d.Fields[field] {
		if v == value {
			return true
		}
	}
	return false
}

// Clone returns a deep copy.
func (d *Document) Clone() *Document {
	c := &Document{ID: d.ID, Fields: make(map[string][]string, len(d.Fields))}
	for k, v := range d.Fields {
		c.Fields[k] = append([]string(nil), v...)
	}
	return c
}

// Tokenize splits text into lower-case terms of letters and digits.
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func sortedIDs[V any](m map[string]V) []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
