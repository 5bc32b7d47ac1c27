// Package transform orchestrates rule selection, script execution and value
// conversion to turn an incoming FHIR resource into a tracker resource.
package transform

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/fhirbridge/fhirbridge/internal/platform/dhis"
	"github.com/fhirbridge/fhirbridge/internal/platform/fhir"
)

// Input is one transformation attempt: a FHIR resource paired with a
// candidate rule, against a discovered tracker version.
type Input struct {
	Resource *fhir.Resource
	RuleID   uuid.UUID
	Version  string
}

// Outcome is the result of a successful transformation: exactly one tracker
// payload, tagged with the rule that produced it.
type Outcome struct {
	RuleID        uuid.UUID
	ResourceType  dhis.ResourceType
	TrackedEntity *dhis.TrackedEntity
	Enrollment    *dhis.Enrollment
	Event         *dhis.Event
}

// FatalError aborts the whole orchestration instead of declining a single
// candidate rule. A missing transformer or a broken tracker connection is
// fatal; a script raising an error is not.
type FatalError struct {
	Msg string
	Err error
}

func (e *FatalError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *FatalError) Unwrap() error { return e.Err }
