// Package dhis is the interface boundary to the tracker-style health
// information system. It holds the wire models for tracked entities,
// enrollments and events, a thin REST client, and the typed Reference used
// for cross-system addressing.
package dhis

import (
	"fmt"
	"strings"
)

// RefType discriminates how a Reference addresses an entity.
type RefType string

const (
	RefID   RefType = "ID"
	RefCode RefType = "CODE"
	RefName RefType = "NAME"
)

// Reference is a typed pointer to an entity in the tracker system. Its
// canonical string form is stable and is used for equality and as a cache-key
// element.
type Reference struct {
	Type  RefType `json:"type"`
	Value string  `json:"value"`
}

func NewReference(t RefType, value string) Reference {
	return Reference{Type: t, Value: value}
}

// String returns the canonical form "TYPE:value".
func (r Reference) String() string {
	return string(r.Type) + ":" + r.Value
}

// IsValid reports whether the reference has a known type and non-empty value.
func (r Reference) IsValid() bool {
	switch r.Type {
	case RefID, RefCode, RefName:
		return r.Value != ""
	}
	return false
}

// ParseReference parses the canonical "TYPE:value" form.
func ParseReference(s string) (Reference, error) {
	idx := strings.IndexByte(s, ':')
	if idx <= 0 || idx == len(s)-1 {
		return Reference{}, fmt.Errorf("malformed reference %q", s)
	}
	r := Reference{Type: RefType(s[:idx]), Value: s[idx+1:]}
	if !r.IsValid() {
		return Reference{}, fmt.Errorf("malformed reference %q", s)
	}
	return r, nil
}
