// Package rule holds the transformation rules that map incoming FHIR
// resources to tracker resources, and the selector that picks candidate rules
// for an input.
package rule

import (
	"time"

	"github.com/google/uuid"

	"github.com/fhirbridge/fhirbridge/internal/platform/dhis"
)

// Rule maps one FHIR resource type to one tracker resource type. A rule with
// an empty code set applies to every resource of its type; otherwise it only
// applies when the resource carries at least one of the listed codes.
//
// ApplicableScript is an optional guard evaluated before transformation;
// TransformScript produces the tracker payload.
type Rule struct {
	ID                  uuid.UUID         `db:"id" json:"id"`
	Name                string            `db:"name" json:"name"`
	FHIRResourceType    string            `db:"fhir_resource_type" json:"fhir_resource_type"`
	TrackerResourceType dhis.ResourceType `db:"tracker_resource_type" json:"tracker_resource_type"`
	Codes               []string          `db:"codes" json:"codes,omitempty"`
	ApplicableScript    *uuid.UUID        `db:"applicable_script_id" json:"applicable_script_id,omitempty"`
	TransformScript     uuid.UUID         `db:"transform_script_id" json:"transform_script_id"`
	Priority            int               `db:"priority" json:"priority"`
	Enabled             bool              `db:"enabled" json:"enabled"`
	CreatedAt           time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time         `db:"updated_at" json:"updated_at"`
}

// Applies reports whether the rule's code restriction matches any of the
// given codes. A rule without codes applies unconditionally.
func (r *Rule) Applies(codes []string) bool {
	if len(r.Codes) == 0 {
		return true
	}
	for _, rc := range r.Codes {
		for _, c := range codes {
			if rc == c {
				return true
			}
		}
	}
	return false
}
