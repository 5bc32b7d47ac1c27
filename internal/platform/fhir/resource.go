// Package fhir holds the minimal FHIR R4 model the bridge needs at its inbound
// boundary: a generic resource envelope plus the datatypes used for code
// extraction. Full FHIR parsing and validation is out of scope; inbound
// payloads are kept as raw maps and interrogated structurally.
package fhir

import (
	"encoding/json"
	"fmt"
	"time"
)

type Meta struct {
	VersionID   string    `json:"versionId,omitempty"`
	LastUpdated time.Time `json:"lastUpdated,omitempty"`
	Profile     []string  `json:"profile,omitempty"`
}

type Coding struct {
	System  string `json:"system,omitempty"`
	Code    string `json:"code,omitempty"`
	Display string `json:"display,omitempty"`
}

type CodeableConcept struct {
	Coding []Coding `json:"coding,omitempty"`
	Text   string   `json:"text,omitempty"`
}

type Reference struct {
	Reference string `json:"reference,omitempty"`
	Type      string `json:"type,omitempty"`
	Display   string `json:"display,omitempty"`
}

type Identifier struct {
	Use    string `json:"use,omitempty"`
	System string `json:"system,omitempty"`
	Value  string `json:"value,omitempty"`
}

// Resource is a generic FHIR resource envelope. The raw body is retained so
// transformation scripts can interrogate any element without the bridge
// modeling every resource type.
type Resource struct {
	ResourceType string
	ID           string
	Data         map[string]interface{}
}

// UnmarshalJSON keeps the full body and lifts out resourceType and id.
func (r *Resource) UnmarshalJSON(b []byte) error {
	var m map[string]interface{}
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	rt, _ := m["resourceType"].(string)
	if rt == "" {
		return fmt.Errorf("resource has no resourceType")
	}
	id, _ := m["id"].(string)
	r.ResourceType = rt
	r.ID = id
	r.Data = m
	return nil
}

func (r *Resource) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Data)
}
