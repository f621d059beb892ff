package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Well-known CMIS property ids.
const (
	PropObjectID                  = "cmis:objectId"
	PropBaseTypeID                = "cmis:baseTypeId"
	PropObjectTypeID              = "cmis:objectTypeId"
	PropName                      = "cmis:name"
	PropCreatedBy                 = "cmis:createdBy"
	PropCreationDate              = "cmis:creationDate"
	PropLastModifiedBy            = "cmis:lastModifiedBy"
	PropLastModificationDate      = "cmis:lastModificationDate"
	PropChangeToken               = "cmis:changeToken"
	PropIsImmutable               = "cmis:isImmutable"
	PropIsLatestVersion           = "cmis:isLatestVersion"
	PropIsMajorVersion            = "cmis:isMajorVersion"
	PropIsLatestMajorVersion      = "cmis:isLatestMajorVersion"
	PropVersionLabel              = "cmis:versionLabel"
	PropVersionSeriesID           = "cmis:versionSeriesId"
	PropIsVersionSeriesCheckedOut = "cmis:isVersionSeriesCheckedOut"
	PropVersionSeriesCheckedOutBy = "cmis:versionSeriesCheckedOutBy"
	PropVersionSeriesCheckedOutID = "cmis:versionSeriesCheckedOutId"
	PropCheckinComment            = "cmis:checkinComment"
	PropContentStreamLength       = "cmis:contentStreamLength"
	PropContentStreamMimeType     = "cmis:contentStreamMimeType"
	PropContentStreamFileName     = "cmis:contentStreamFileName"
	PropContentStreamID           = "cmis:contentStreamId"
	PropParentID                  = "cmis:parentId"
	PropPath                      = "cmis:path"
	PropAllowedChildObjectTypeIDs = "cmis:allowedChildObjectTypeIds"
	PropSourceID                  = "cmis:sourceId"
	PropTargetID                  = "cmis:targetId"
	PropPolicyText                = "cmis:policyText"
)

// PropertyType is the data type of a property.
type PropertyType string

// CMIS property types.
const (
	PropertyTypeString   PropertyType = "string"
	PropertyTypeBoolean  PropertyType = "boolean"
	PropertyTypeInteger  PropertyType = "integer"
	PropertyTypeDecimal  PropertyType = "decimal"
	PropertyTypeDateTime PropertyType = "datetime"
	PropertyTypeID       PropertyType = "id"
	PropertyTypeURI      PropertyType = "uri"
	PropertyTypeHTML     PropertyType = "html"
)

// IsValid returns true if the property type is recognised.
func (t PropertyType) IsValid() bool {
	switch t {
	case PropertyTypeString, PropertyTypeBoolean, PropertyTypeInteger, PropertyTypeDecimal,
		PropertyTypeDateTime, PropertyTypeID, PropertyTypeURI, PropertyTypeHTML:
		return true
	default:
		return false
	}
}

// Accepts reports whether v is a valid Go value for this property type:
// string for string/id/uri/html, bool, int64, float64 and time.Time.
func (t PropertyType) Accepts(v any) bool {
	switch v.(type) {
	case string:
		return t == PropertyTypeString || t == PropertyTypeID || t == PropertyTypeURI || t == PropertyTypeHTML
	case bool:
		return t == PropertyTypeBoolean
	case int64:
		return t == PropertyTypeInteger
	case float64:
		return t == PropertyTypeDecimal
	case time.Time:
		return t == PropertyTypeDateTime
	default:
		return false
	}
}

// Property is a typed, possibly multi-valued property value.
// An empty Values slice means "not set".
type Property struct {
	ID     string       `json:"id"`
	Type   PropertyType `json:"type"`
	Values []any        `json:"values"`
}

// NewStringProperty creates a string property.
func NewStringProperty(id string, values ...string) Property {
	return Property{ID: id, Type: PropertyTypeString, Values: toAny(values)}
}

// NewIDProperty creates an id property.
func NewIDProperty(id string, values ...string) Property {
	return Property{ID: id, Type: PropertyTypeID, Values: toAny(values)}
}

// NewBooleanProperty creates a boolean property.
func NewBooleanProperty(id string, values ...bool) Property {
	return Property{ID: id, Type: PropertyTypeBoolean, Values: toAny(values)}
}

// NewIntegerProperty creates an integer property.
func NewIntegerProperty(id string, values ...int64) Property {
	return Property{ID: id, Type: PropertyTypeInteger, Values: toAny(values)}
}

// NewDecimalProperty creates a decimal property.
func NewDecimalProperty(id string, values ...float64) Property {
	return Property{ID: id, Type: PropertyTypeDecimal, Values: toAny(values)}
}

// NewDateTimeProperty creates a datetime property.
func NewDateTimeProperty(id string, values ...time.Time) Property {
	return Property{ID: id, Type: PropertyTypeDateTime, Values: toAny(values)}
}

func toAny[T any](values []T) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

// IsEmpty returns true if the property has no values.
func (p Property) IsEmpty() bool {
	return len(p.Values) == 0
}

// String returns the first value as a string, or "".
func (p Property) String() string {
	if len(p.Values) == 0 {
		return ""
	}
	if s, ok := p.Values[0].(string); ok {
		return s
	}
	return fmt.Sprint(p.Values[0])
}

// Strings returns all string values.
func (p Property) Strings() []string {
	out := make([]string, 0, len(p.Values))
	for _, v := range p.Values {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Bool returns the first value as a bool, or false.
func (p Property) Bool() bool {
	if len(p.Values) == 0 {
		return false
	}
	b, _ := p.Values[0].(bool)
	return b
}

// Int returns the first value as an int64, or 0.
func (p Property) Int() int64 {
	if len(p.Values) == 0 {
		return 0
	}
	i, _ := p.Values[0].(int64)
	return i
}

// Time returns the first value as a time, or the zero time.
func (p Property) Time() time.Time {
	if len(p.Values) == 0 {
		return time.Time{}
	}
	t, _ := p.Values[0].(time.Time)
	return t
}

// Clone returns a copy that does not share the values slice.
func (p Property) Clone() Property {
	c := p
	c.Values = append([]any(nil), p.Values...)
	return c
}

// Equal reports whether two properties carry the same id, type and values.
func (p Property) Equal(o Property) bool {
	if p.ID != o.ID || p.Type != o.Type || len(p.Values) != len(o.Values) {
		return false
	}
	for i := range p.Values {
		if t, ok := p.Values[i].(time.Time); ok {
			ot, ok := o.Values[i].(time.Time)
			if !ok || !t.Equal(ot) {
				return false
			}
			continue
		}
		if p.Values[i] != o.Values[i] {
			return false
		}
	}
	return true
}

// UnmarshalJSON restores the Go type of every value from the property type.
func (p *Property) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID     string            `json:"id"`
		Type   PropertyType      `json:"type"`
		Values []json.RawMessage `json:"values"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	p.ID = raw.ID
	p.Type = raw.Type
	p.Values = make([]any, 0, len(raw.Values))
	for _, rv := range raw.Values {
		v, err := decodeValue(raw.Type, rv)
		if err != nil {
			return fmt.Errorf("decoding property %s: %w", raw.ID, err)
		}
		p.Values = append(p.Values, v)
	}
	return nil
}

func decodeValue(t PropertyType, rv json.RawMessage) (any, error) {
	switch t {
	case PropertyTypeBoolean:
		var b bool
		err := json.Unmarshal(rv, &b)
		return b, err
	case PropertyTypeInteger:
		var i int64
		err := json.Unmarshal(rv, &i)
		return i, err
	case PropertyTypeDecimal:
		var f float64
		err := json.Unmarshal(rv, &f)
		return f, err
	case PropertyTypeDateTime:
		var tm time.Time
		err := json.Unmarshal(rv, &tm)
		return tm, err
	default:
		var s string
		err := json.Unmarshal(rv, &s)
		return s, err
	}
}

// Properties is a property bag keyed by property id.
type Properties map[string]Property

// Clone returns a deep copy.
func (ps Properties) Clone() Properties {
	out := make(Properties, len(ps))
	for k, v := range ps {
		out[k] = v.Clone()
	}
	return out
}

// Get returns the property with the given id; the zero Property if absent.
func (ps Properties) Get(id string) Property {
	return ps[id]
}
